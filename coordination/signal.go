package coordination

import (
	"github.com/hellblazer/primemover/entity"
	"github.com/hellblazer/primemover/kernel"
	"github.com/hellblazer/primemover/reporter"
)

var (
	_ reporter.Snapshot = (*Signal)(nil)
	_ kernel.Entity      = (*Signal)(nil)
)

const ordinalSignalAwait int32 = 1

var signalSignatures = entity.SignatureTable{ordinalSignalAwait: "await() error"}

// Signal is a condvar without a mutex (spec §4.5 "Signal"): Await
// suspends the caller, Signal wakes the oldest waiter, SignalAll wakes
// every current waiter. Waking with no waiters is a no-op.
//
// Signal and SignalAll complete synchronously rather than suspending
// their own caller, so — unlike Await — they are invoked directly
// rather than through Dispatch: the caller is already the sole active
// execution context (spec §5), and the wakeup they schedule via
// Scheduler.Resume is itself a properly ordered future event regardless
// of how the wakeup call itself was reached.
type Signal struct {
	entity.Base
	sched *kernel.Scheduler

	waiters []*kernel.Continuation

	awaits, signals int64
}

// NewSignal creates a signal dispatched through sched.
func NewSignal(sched *kernel.Scheduler, name string) *Signal {
	return &Signal{Base: entity.NewBase(name), sched: sched}
}

func (s *Signal) SignatureFor(ordinal int32) string { return signalSignatures.SignatureFor(ordinal) }

// Dispatch executes the body of Await for the posted event.
func (s *Signal) Dispatch(ctx kernel.DispatchContext, ordinal int32, _ []any) (any, error) {
	if ordinal != ordinalSignalAwait {
		return nil, &kernel.InvalidOrdinalError{Entity: s.Name(), Ordinal: ordinal}
	}
	s.awaits++
	cont := s.sched.NewContinuation()
	s.waiters = append(s.waiters, cont)
	return kernel.ParkOn(ctx, cont)
}

// Await suspends the caller until Signal or SignalAll wakes it.
func (s *Signal) Await(ctx kernel.DispatchContext) error {
	_, err := kernel.SuspendAndPost(ctx, s, ordinalSignalAwait, nil)
	return err
}

// Signal wakes the oldest waiter (FIFO order). A no-op if nobody is
// waiting.
func (s *Signal) Signal() {
	if len(s.waiters) == 0 {
		return
	}
	cont := s.waiters[0]
	s.waiters = s.waiters[1:]
	s.signals++
	s.sched.Resume(cont, nil, nil)
}

// SignalAll wakes every current waiter.
func (s *Signal) SignalAll() {
	woken := s.waiters
	s.waiters = nil
	s.signals += int64(len(woken))
	for _, cont := range woken {
		s.sched.Resume(cont, nil, nil)
	}
}

// Type satisfies reporter.Snapshot.
func (s *Signal) Type() string { return "coordination.Signal" }

// Statistics satisfies reporter.Snapshot.
func (s *Signal) Statistics() map[string]any {
	return map[string]any{
		"awaits":  s.awaits,
		"signals": s.signals,
		"waiting": int64(len(s.waiters)),
	}
}
