package kernel

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"
)

// ObserverFunc is the shape of the on_event_start/on_event_end hooks
// (spec §4.1).
type ObserverFunc func(ev *Event)

// dispatchMarkerKey tags the context every dispatch goroutine runs
// with, so Run can detect being called reentrantly — from inside the
// scheduler's own dispatch — without a goroutine-local call stack to
// inspect (Go has none).
type dispatchMarkerType struct{}

var dispatchMarkerKey = dispatchMarkerType{}

// Scheduler owns the priority queue, the logical clock, and run/pause/
// stop lifecycle described in spec §3-§5. It is the sole concrete
// implementation of the C1 contract.
//
// Grounded on the teacher's Loop (eventloop/loop.go): the timer heap
// (container/heap ordered by wall-clock deadline) becomes the event heap
// ordered by (logical time, sequence); Loop's state machine and
// on-dispatch hooks generalize directly.
type Scheduler struct {
	mu    sync.Mutex
	queue eventHeap

	currentTime int64
	endTime     int64
	endSet      bool

	sequence int64

	state *atomicState

	continuations *continuationRegistry
	causal        []causalNode

	opts   *schedulerOptions
	logger Logger
	pacing pacingClock

	onEventStart ObserverFunc
	onEventEnd   ObserverFunc

	// err is set when a non-blocking event raises an uncaught condition;
	// Run halts and returns it (spec §7 "terminates run() with the cause
	// attached").
	err error

	// halt is set internally once Run should stop after the current
	// iteration completes.
	halt bool
}

// New creates a Fresh scheduler.
func New(opts ...Option) (*Scheduler, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger
	if logger == nil {
		logger = getGlobalLogger()
	}
	s := &Scheduler{
		state:         newAtomicState(),
		continuations: newContinuationRegistry(),
		opts:          cfg,
		logger:        logger,
	}
	heap.Init(&s.queue)
	return s, nil
}

// State reports the scheduler's current lifecycle state.
func (s *Scheduler) State() State { return s.state.Load() }

// CurrentTime returns the scheduler's logical clock.
func (s *Scheduler) CurrentTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime
}

// SetTime sets the logical clock directly. It fails if any pending event
// is scheduled strictly before t (spec §4.1 set_time).
func (s *Scheduler) SetTime(t int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.queue {
		if ev.Time < t {
			return &InvalidTimeError{Requested: t, Current: s.currentTime}
		}
	}
	s.currentTime = t
	return nil
}

// Advance moves the logical clock forward by a non-negative delta
// without processing events (spec §4.1 advance).
func (s *Scheduler) Advance(delta int64) error {
	if delta < 0 {
		return &InvalidTimeError{Requested: s.currentTime + delta, Current: s.currentTime}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTime += delta
	return nil
}

// EndAt schedules termination at absolute time t: once the clock reaches
// t, Run halts after dispatching every event already queued at t; events
// strictly after t are discarded at pop time (spec §4.1 end_at, and §9's
// resolution of the end_simulation "+1" ambiguity: no offset is applied,
// the semantic described here is the intended one).
func (s *Scheduler) EndAt(t int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t < s.currentTime {
		return &InvalidTimeError{Requested: t, Current: s.currentTime}
	}
	s.endTime = t
	s.endSet = true
	return nil
}

// OnEventStart registers the on_event_start observer hook.
func (s *Scheduler) OnEventStart(fn ObserverFunc) { s.onEventStart = fn }

// OnEventEnd registers the on_event_end observer hook.
func (s *Scheduler) OnEventEnd(fn ObserverFunc) { s.onEventEnd = fn }

func (s *Scheduler) nextSequence() int64 {
	s.sequence++
	return s.sequence
}

// enqueueLocked pushes ev onto the heap. The caller must hold s.mu, or
// call it before Run has started (single-writer bootstrap window).
func (s *Scheduler) enqueueLocked(ev *Event) {
	heap.Push(&s.queue, ev)
}

// Post enqueues a non-blocking event at the current logical time (spec
// §4.1 post).
func (s *Scheduler) Post(entity Entity, ordinal int32, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := &Event{
		Time:     s.currentTime,
		Sequence: s.nextSequence(),
		Entity:   entity,
		Ordinal:  ordinal,
		Args:     args,
	}
	if s.opts.causalityTracking {
		s.recordCausal(ev)
	}
	s.enqueueLocked(ev)
	LogEventPosted(ev.Sequence, entity.Name(), ordinal, false)
}

// PostAt enqueues a non-blocking event at an absolute time t, which must
// be >= CurrentTime() (spec §4.1 post_at).
func (s *Scheduler) PostAt(t int64, entity Entity, ordinal int32, args []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t < s.currentTime {
		return &InvalidTimeError{Requested: t, Current: s.currentTime}
	}
	ev := &Event{
		Time:     t,
		Sequence: s.nextSequence(),
		Entity:   entity,
		Ordinal:  ordinal,
		Args:     args,
	}
	if s.opts.causalityTracking {
		s.recordCausal(ev)
	}
	s.enqueueLocked(ev)
	LogEventPosted(ev.Sequence, entity.Name(), ordinal, false)
	return nil
}

// PostFrom enqueues a non-blocking event at the current logical time,
// recording ctx's owner event as its causal source when causality
// tracking is enabled. The rewritten caller for a non-blocking event
// method call (spec §4.3 caller rewriting rule 2) uses this rather than
// Post so the resulting trace can be walked with CausalTrace.
func (s *Scheduler) PostFrom(ctx DispatchContext, entity Entity, ordinal int32, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := &Event{
		Time:     s.currentTime,
		Sequence: s.nextSequence(),
		Entity:   entity,
		Ordinal:  ordinal,
		Args:     args,
	}
	if s.opts.causalityTracking {
		ev.Source = ctx.activation().ownerEvent
		s.recordCausal(ev)
	}
	s.enqueueLocked(ev)
	LogEventPosted(ev.Sequence, entity.Name(), ordinal, false)
}

// PostBlocking enqueues an event AND suspends the caller until it
// completes, per spec §4.1 post_blocking. ctx must carry an active
// DispatchContext (it must be called from within a running dispatch);
// this is the Scheduler-level name for the same operation SuspendAndPost
// implements at the continuation-manager level.
func (s *Scheduler) PostBlocking(ctx DispatchContext, entity Entity, ordinal int32, args []any) (any, error) {
	return SuspendAndPost(ctx, entity, ordinal, args)
}

// Clear purges the queue and continuations and resets the clock to zero,
// preserving configuration (spec §4.1 clear).
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	heap.Init(&s.queue)
	s.currentTime = 0
	s.endSet = false
	s.endTime = 0
	s.sequence = 0
	s.err = nil
	s.halt = false
	s.causal = nil
	s.continuations.Clear()
	s.state.Store(Fresh)
}

// Run processes events until the queue is empty, an explicit end-time is
// reached, or a fatal error halts the loop (spec §4.1 run, algorithm).
func (s *Scheduler) Run(ctx context.Context) error {
	if v, _ := ctx.Value(dispatchMarkerKey).(bool); v {
		return ErrReentrantRun
	}
	if !s.state.TryTransition(Fresh, Running) && !s.state.TryTransition(Stopped, Running) {
		if s.state.Load() == Running || s.state.Load() == Paused {
			return ErrAlreadyRunning
		}
	}
	s.halt = false
	s.err = nil

	for {
		select {
		case <-ctx.Done():
			s.state.Store(Stopped)
			return ctx.Err()
		default:
		}
		if !s.step() {
			break
		}
	}
	s.state.Store(Stopped)
	return s.err
}

// Step pops and dispatches at most one event, for interactive/debugger
// use (spec §4.1 "Stepping mode", SPEC_FULL §4 item 1). It reports
// whether stepping can go on: false when there was nothing to dispatch,
// when the popped event lay past the end time, or when the dispatched
// event halted the run (an entity error, or the end time reached with
// nothing left queued). The scheduler is left Paused after true and
// Stopped after false.
func (s *Scheduler) Step() bool {
	s.state.Store(Paused)
	ok := s.step()
	if ok {
		s.state.Store(Paused)
	} else {
		s.state.Store(Stopped)
	}
	return ok
}

// step pops and dispatches a single record, applying pacing if enabled.
// It returns false when the loop should halt.
func (s *Scheduler) step() bool {
	s.mu.Lock()
	if s.halt || len(s.queue) == 0 {
		s.mu.Unlock()
		return false
	}
	ev := s.popNext()
	if s.endSet && ev.Time > s.endTime {
		s.mu.Unlock()
		return false
	}
	s.currentTime = ev.Time
	s.mu.Unlock()

	if s.opts.pacingSpeed > 0 {
		paceSleep(s, ev)
	}

	if s.onEventStart != nil {
		s.onEventStart(ev)
	}
	LogEventDispatched(ev.Sequence, eventEntityName(ev), ev.Ordinal, ev.Time)

	if ev.IsResumption {
		s.resumeWith(ev.Continuation, ev.ResumeValue, ev.ResumeErr)
	} else {
		s.runDispatch(ev)
	}

	if s.onEventEnd != nil {
		s.onEventEnd(ev)
	}

	if s.endSet && s.currentTime >= s.endTime && len(s.queue) == 0 {
		return false
	}
	return !s.halt
}

func eventEntityName(ev *Event) string {
	if ev.Entity != nil {
		return ev.Entity.Name()
	}
	return ""
}

// popNext removes and returns the minimum element, honoring the
// randomized-tie option (spec §4.1 "Tie-breaking").
func (s *Scheduler) popNext() *Event {
	if !s.opts.randomizeTies || len(s.queue) < 2 {
		return heap.Pop(&s.queue).(*Event)
	}
	minTime := s.queue[0].Time
	tied := tiedIndices(s.queue, minTime)
	if len(tied) < 2 {
		return heap.Pop(&s.queue).(*Event)
	}
	pick := tied[s.opts.randSource.Int63()%int64(len(tied))]
	ev := s.queue[pick]
	heap.Remove(&s.queue, pick)
	return ev
}

func tiedIndices(q eventHeap, t int64) []int {
	var out []int
	for i, ev := range q {
		if ev.Time == t {
			out = append(out, i)
		}
	}
	return out
}

// runDispatch starts a fresh activation executing ev.Entity.Dispatch on
// its own goroutine, blocking until that leg either yields (suspends on
// a further blocking call) or completes.
func (s *Scheduler) runDispatch(ev *Event) {
	a := &activation{sched: s, ownerEvent: ev, settle: make(chan settleMsg, 1)}
	base := context.WithValue(context.Background(), dispatchMarkerKey, true)
	dctx := &dispatchContext{Context: base, sched: s, act: a}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.complete(nil, fmt.Errorf("panic: %v", r))
			}
		}()
		v, err := ev.Entity.Dispatch(dctx, ev.Ordinal, ev.Args)
		a.complete(v, err)
	}()

	msg := <-a.settle
	if !msg.yielded {
		s.settleEvent(ev, msg.value, msg.err)
	}
}

// resumeWith delivers a reply value/error to a suspended continuation
// and blocks until the resumed leg either yields again or completes
// (spec §4.2 resume_with).
func (s *Scheduler) resumeWith(c *Continuation, value any, err error) {
	if c == nil {
		s.fail(ErrContinuationLost)
		return
	}
	next := &activation{sched: s, ownerEvent: c.ownerEvent, settle: make(chan settleMsg, 1)}
	c.resultCh <- resumeMsg{value: value, err: err, next: next}

	msg := <-next.settle
	if !msg.yielded {
		s.settleEvent(c.ownerEvent, msg.value, msg.err)
	}
}

// settleEvent is invoked when the Dispatch call belonging to ev finally
// returns (possibly many legs and simulated-time units after it was
// first popped). If ev was posted blockingly, its poster's continuation
// is woken via a freshly posted resumption record, ordered like any
// other event (spec §4.2 "Ordering guarantees"). Otherwise, an error
// terminates Run with the cause attached to ev (spec §7).
func (s *Scheduler) settleEvent(ev *Event, value any, err error) {
	if ev.Blocking && ev.Continuation != nil {
		s.mu.Lock()
		s.scheduleResumptionLocked(ev.Continuation, value, err)
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.fail(&EntityException{
			Cause:     err,
			EventTime: s.currentTime,
			Entity:    eventEntityName(ev),
			Ordinal:   ev.Ordinal,
		})
	}
}

// Resume schedules continuation c to wake with value/err as a fresh
// resumption record ordered at the current logical time (spec §4.2
// "Ordering guarantees": a resumption is itself an event). Coordination
// primitives use this to wake a waiter parked via ParkOn once their
// internal condition is satisfied.
func (s *Scheduler) Resume(c *Continuation, value any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleResumptionLocked(c, value, err)
}

func (s *Scheduler) scheduleResumptionLocked(c *Continuation, value any, err error) {
	rev := &Event{
		Time:         s.currentTime,
		Sequence:     s.nextSequence(),
		IsResumption: true,
		Continuation: c,
		ResumeValue:  value,
		ResumeErr:    err,
	}
	s.enqueueLocked(rev)
}

// NewContinuation allocates a continuation not yet tied to any posted
// event, for a primitive that needs to park a waiter on its own
// internal queue rather than on a reply from another entity. Pair with
// ParkOn.
func (s *Scheduler) NewContinuation() *Continuation {
	return s.continuations.New()
}

func (s *Scheduler) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
	s.halt = true
	if s.logger != nil && s.logger.IsEnabled(LevelError) {
		s.logger.Log(LogEntry{Level: LevelError, Category: "event", Message: "run halted", Err: err, Timestamp: time.Now()})
	}
}
