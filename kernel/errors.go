package kernel

import (
	"errors"
	"fmt"
)

// Sentinel errors usable with errors.Is.
var (
	// ErrNoController is returned when a facade call reaches the kernel
	// outside of a running scheduler context (spec §7 NoController).
	ErrNoController = errors.New("kernel: no controller is active")

	// ErrContinuationLost indicates a resumption record was popped but
	// its continuation is gone. This should be impossible; its presence
	// indicates kernel corruption (spec §7 ContinuationLost).
	ErrContinuationLost = errors.New("kernel: continuation lost")

	// ErrAlreadyRunning is returned when Run is called on a scheduler
	// that is already running, or that is Paused between Step calls.
	ErrAlreadyRunning = errors.New("kernel: scheduler is already running")

	// ErrReentrantRun is returned when Run is called from within the
	// scheduler's own dispatch (the simulated world is single-threaded).
	ErrReentrantRun = errors.New("kernel: cannot call Run from within a dispatch")
)

// InvalidTimeError is returned when a caller posts at a time strictly
// before the scheduler's current logical time (spec §7 InvalidTime).
type InvalidTimeError struct {
	Requested int64
	Current   int64
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("kernel: invalid time %d: current time is %d", e.Requested, e.Current)
}

// InvalidOrdinalError is returned when Dispatch is called with an
// ordinal unknown to the target entity (spec §7 InvalidOrdinal).
type InvalidOrdinalError struct {
	Entity  string
	Ordinal int32
}

func (e *InvalidOrdinalError) Error() string {
	return fmt.Sprintf("kernel: invalid ordinal %d for entity %s", e.Ordinal, e.Entity)
}

// NotTransformedError means a facade method was reached at runtime
// without having been rewritten by the source transformer - the
// transformer did not run over that call site. This is fatal: it is a
// build-time defect, not a user error (spec §7 NotTransformed, §9).
type NotTransformedError struct {
	Site string
}

func (e *NotTransformedError) Error() string {
	return fmt.Sprintf("kernel: facade call at %s was never transformed", e.Site)
}

// EntityException wraps a condition raised by an entity method, plus a
// reference to the event record that was running when it was raised
// (spec §7 EntityException).
type EntityException struct {
	Cause      error
	EventTime  int64
	Entity     string
	Ordinal    int32
	DebugTrace string
}

func (e *EntityException) Error() string {
	return fmt.Sprintf("kernel: entity %s ordinal %d raised at t=%d: %v", e.Entity, e.Ordinal, e.EventTime, e.Cause)
}

func (e *EntityException) Unwrap() error {
	return e.Cause
}

// WrapError wraps an error with a message, preserving the cause chain
// for errors.Is/errors.As.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
