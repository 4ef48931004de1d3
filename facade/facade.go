// Package facade provides the static entry points (spec §6 "Facade
// API"): current time, sleep, channel creation, simulation end, and
// controller access. Each function calls the active controller scheduler
// directly; the source transformer does not rewrite or otherwise
// special-case calls to them.
package facade

import (
	"sync/atomic"

	"github.com/hellblazer/primemover/coordination"
	"github.com/hellblazer/primemover/entity"
	"github.com/hellblazer/primemover/kernel"
)

var controllerPtr atomic.Pointer[kernel.Scheduler]

// Controller returns the active scheduler, or nil if none has been set
// (spec §6 controller()).
func Controller() *kernel.Scheduler {
	return controllerPtr.Load()
}

// SetController installs s as the active scheduler for subsequent
// facade calls (spec §6 set_controller(s)). Safe to call from any
// goroutine before Run starts; during Run the kernel treats it as a
// read-only reference (spec §5 "Thread safety of external observers").
func SetController(s *kernel.Scheduler) {
	controllerPtr.Store(s)
}

// CurrentTime returns the controller's logical clock (spec §6
// current_time()).
func CurrentTime() (int64, error) {
	s := Controller()
	if s == nil {
		return 0, kernel.ErrNoController
	}
	return s.CurrentTime(), nil
}

// SimulationIsRunning reports whether the controller exists and is
// actively dispatching (spec §6 simulation_is_running()).
func SimulationIsRunning() bool {
	s := Controller()
	return s != nil && s.State() == kernel.Running
}

// EndSimulation requests termination once every event already queued at
// the current logical time has been dispatched (spec §6
// end_simulation(), §9 "no offset is applied" resolution of the
// end_simulation "+1" ambiguity).
func EndSimulation() error {
	s := Controller()
	if s == nil {
		return kernel.ErrNoController
	}
	return s.EndAt(s.CurrentTime())
}

// EndSimulationAt requests termination at absolute time t (spec §6
// end_simulation_at(t)).
func EndSimulationAt(t int64) error {
	s := Controller()
	if s == nil {
		return kernel.ErrNoController
	}
	return s.EndAt(t)
}

// CreateChannel allocates a rendezvous channel dispatched through the
// active controller (spec §6 create_channel<T>()). Go has no type
// parameter on this package-level function matching the generic spec
// signature without forcing every caller to instantiate facade itself
// generically; callers type-assert values out of Channel.Take the way
// any any-typed Go channel wrapper would.
func CreateChannel(name string) (*coordination.Channel, error) {
	s := Controller()
	if s == nil {
		return nil, kernel.ErrNoController
	}
	return coordination.NewChannel(s, name), nil
}

// sleepWaker is a trivial entity whose only purpose is to give
// BlockingSleep something to suspend on at a future logical time; its
// dispatch body does nothing.
type sleepWaker struct {
	entity.Base
}

func (w *sleepWaker) Dispatch(kernel.DispatchContext, int32, []any) (any, error) { return nil, nil }
func (w *sleepWaker) SignatureFor(int32) string                                  { return "wake()" }

var (
	_ kernel.Entity = (*sleepWaker)(nil)

	sharedWaker = &sleepWaker{Base: entity.NewBase("facade.sleepWaker")}
)

const wakeOrdinal int32 = 1

// BlockingSleep suspends the calling activation until now+duration
// (spec §6 blocking_sleep(duration)).
func BlockingSleep(ctx kernel.DispatchContext, duration int64) error {
	s := Controller()
	if s == nil {
		return kernel.ErrNoController
	}
	_, err := kernel.SuspendAndPostAt(ctx, s.CurrentTime()+duration, sharedWaker, wakeOrdinal, nil)
	return err
}

// Sleep is the non-blocking variant (spec §6 sleep(duration)): "the
// calling event completes, and its continuation (if any) is scheduled
// at now + duration". A generated proxy that splits a method body at
// the sleep() call site can honor that literally; hand-written Go
// cannot capture "the rest of the calling function" as a continuation
// without such a rewrite. This rendition suspends the calling
// activation exactly like BlockingSleep — callers that want genuine
// fire-and-forget delayed work should post a follow-up event directly
// via Scheduler.PostAt instead of calling Sleep.
func Sleep(ctx kernel.DispatchContext, duration int64) error {
	return BlockingSleep(ctx, duration)
}
