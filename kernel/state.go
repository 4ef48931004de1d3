package kernel

import (
	"sync/atomic"
)

// State represents the scheduler's lifecycle state.
//
// State machine, as Scheduler drives it:
//
//	Fresh → Running → Stopped    (Run; Run may start again from Stopped)
//	any → Paused → Stopped       (Step: Paused between steps, Stopped once
//	                              a step reports that stepping cannot go on)
//	any → Fresh                  (Clear)
//
// Run returns ErrAlreadyRunning while the scheduler is Running or
// Paused; no call moves a Paused scheduler back to Running.
//
// Run enters Running with TryTransition (CAS); every other transition
// is a plain Store.
type State uint64

const (
	// Fresh indicates the scheduler has been created but Run has never
	// been called, or Clear() was called to reset it.
	Fresh State = 0
	// Running indicates the scheduler is actively dispatching events.
	Running State = 1
	// Paused indicates stepping mode (Step) is between steps.
	Paused State = 2
	// Stopped indicates Run() has returned or Step reported that stepping
	// cannot go on. Run may be called again; Clear() returns the
	// scheduler to Fresh.
	Stopped State = 3
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// atomicState is a small CAS-guarded state cell. The scheduler loop is
// single-threaded (spec §5), but observers (loggers, reporters) may read
// state concurrently from outside a dispatch, so loads/stores go through
// atomic.Uint64 rather than a plain field.
type atomicState struct {
	v atomic.Uint64
}

func newAtomicState() *atomicState {
	s := &atomicState{}
	s.v.Store(uint64(Fresh))
	return s
}

func (s *atomicState) Load() State {
	return State(s.v.Load())
}

func (s *atomicState) Store(state State) {
	s.v.Store(uint64(state))
}

func (s *atomicState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *atomicState) IsTerminal() bool {
	return s.Load() == Stopped
}
