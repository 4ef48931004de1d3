package kernel

import "context"

// DispatchContext is the context threaded through every Entity.Dispatch
// call, carrying the scheduler's current activation so the method body
// can suspend via SuspendAndPost. It embeds context.Context; the
// scheduler builds that context from context.Background() for every
// dispatch, so the deadline and values of the context passed to Run are
// not visible through it.
type DispatchContext interface {
	context.Context
	scheduler() *Scheduler
	activation() *activation
}

type dispatchContext struct {
	context.Context
	sched *Scheduler
	act   *activation
}

func (c *dispatchContext) scheduler() *Scheduler   { return c.sched }
func (c *dispatchContext) activation() *activation { return c.act }

// Continuation is the opaque handle representing the suspended stack of
// exactly one in-progress blocking event (spec §3 "Continuation"). It is
// created by SuspendAndPost and consumed exactly once, by the scheduler
// invoking resumeWith when the reply event it is attached to completes.
//
// Grounded on the teacher's promise struct (settle-once, mutex-guarded
// state): PromiseState's three-state shape becomes Pending/Resolved/
// Rejected here too, though unlike a Promise a Continuation has exactly
// one subscriber (never shared, per spec §3) so no fan-out list is
// needed.
type Continuation struct {
	id    uint64
	state PromiseState

	// resultCh delivers the reply value/error plus the activation that
	// should drive the resumed goroutine's subsequent execution.
	resultCh chan resumeMsg

	// ownerEvent is the event whose Dispatch call is suspended here; it
	// carries this continuation's own Blocking/Continuation fields so
	// completion can cascade to whoever posted ownerEvent, if anyone.
	ownerEvent *Event
}

// PromiseState mirrors the teacher's settle-once lifecycle vocabulary.
type PromiseState int

const (
	Pending PromiseState = iota
	Resolved
	Rejected
)

type resumeMsg struct {
	value any
	err   error
	next  *activation
}

// activation represents one runnable "leg" of a simulated call stack:
// the stretch of execution between either the start of a dispatch (or a
// resumption) and its first subsequent suspension or final return.
//
// Grounded on Design Notes §9: "can be realized with lightweight
// threads ... What is required is that the observable behavior holds."
// Go's goroutines are exactly such lightweight threads, so each
// dispatch runs on its own goroutine, and every later leg of it (after a
// resumption) continues on that same goroutine; settle is the rendezvous point
// the driving Run loop blocks on until this leg yields or completes.
type activation struct {
	sched      *Scheduler
	ownerEvent *Event
	settle     chan settleMsg
	done       bool
}

type settleMsg struct {
	value   any
	err     error
	yielded bool
}

func (a *activation) yield() {
	if a.done {
		return
	}
	a.done = true
	a.settle <- settleMsg{yielded: true}
}

func (a *activation) complete(value any, err error) {
	if a.done {
		return
	}
	a.done = true
	a.settle <- settleMsg{value: value, err: err}
}

// SuspendAndPost implements the C2 contract: it posts replyEntity's
// ordinal method as a new blocking event, captures the calling
// activation's execution state into a fresh Continuation, yields control
// back to the scheduler's Run loop, and blocks until that continuation is
// resumed — at which point it returns the reply's value, or returns the
// reply's error for the caller to handle (spec §4.2 suspend_and_post).
func SuspendAndPost(ctx DispatchContext, replyEntity Entity, ordinal int32, args []any) (any, error) {
	return SuspendAndPostAt(ctx, ctx.scheduler().CurrentTime(), replyEntity, ordinal, args)
}

// SuspendAndPostAt is SuspendAndPost with an explicit reply time t, used
// by facade.BlockingSleep and any other caller that must suspend until a
// future logical time rather than the current one. t must be >= the
// scheduler's current time.
func SuspendAndPostAt(ctx DispatchContext, t int64, replyEntity Entity, ordinal int32, args []any) (any, error) {
	a := ctx.activation()
	s := ctx.scheduler()

	c := s.continuations.New()
	c.ownerEvent = a.ownerEvent

	s.mu.Lock()
	if t < s.currentTime {
		s.mu.Unlock()
		s.continuations.Remove(c.id)
		return nil, &InvalidTimeError{Requested: t, Current: s.currentTime}
	}
	seq := s.nextSequence()
	ev := &Event{
		Time:         t,
		Sequence:     seq,
		Entity:       replyEntity,
		Ordinal:      ordinal,
		Args:         args,
		Blocking:     true,
		Continuation: c,
	}
	if s.opts.causalityTracking {
		ev.Source = a.ownerEvent
		s.recordCausal(ev)
	}
	s.enqueueLocked(ev)
	s.mu.Unlock()
	LogContinuationSuspended(seq, replyEntity.Name(), ordinal)

	a.yield()

	msg := <-c.resultCh
	s.continuations.Remove(c.id)
	next := msg.next
	next.ownerEvent = a.ownerEvent
	*a = *next // this goroutine now drives through the new activation

	LogContinuationResumed(seq, msg.err != nil)
	return msg.value, msg.err
}

// ParkOn suspends the calling activation on a continuation the caller
// already allocated (via Scheduler.NewContinuation) and registered on
// its own internal waiter queue. Unlike SuspendAndPost, ParkOn posts no
// event of its own: the caller is responsible for eventually waking c
// with Scheduler.Resume once whatever condition it is waiting on is
// satisfied. This is how coordination primitives (signal, channel,
// buffer, inventory) block on their own state rather than on another
// entity's reply.
func ParkOn(ctx DispatchContext, c *Continuation) (any, error) {
	a := ctx.activation()
	s := ctx.scheduler()
	c.ownerEvent = a.ownerEvent

	a.yield()

	msg := <-c.resultCh
	s.continuations.Remove(c.id)
	next := msg.next
	next.ownerEvent = a.ownerEvent
	*a = *next

	return msg.value, msg.err
}
