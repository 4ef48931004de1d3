package facade_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellblazer/primemover/entity"
	"github.com/hellblazer/primemover/facade"
	"github.com/hellblazer/primemover/kernel"
)

type probe struct {
	entity.Base
	fn func(ctx kernel.DispatchContext) (any, error)
}

func newProbe(name string, fn func(ctx kernel.DispatchContext) (any, error)) *probe {
	return &probe{Base: entity.NewBase(name), fn: fn}
}
func (p *probe) Dispatch(ctx kernel.DispatchContext, _ int32, _ []any) (any, error) { return p.fn(ctx) }
func (p *probe) SignatureFor(int32) string                                          { return "run()" }

func TestCurrentTimeRequiresController(t *testing.T) {
	facade.SetController(nil)
	_, err := facade.CurrentTime()
	assert.ErrorIs(t, err, kernel.ErrNoController)
}

func TestBlockingSleepResumesAtFutureTime(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	facade.SetController(sched)
	t.Cleanup(func() { facade.SetController(nil) })

	var resumeTime int64
	woke := newProbe("sleeper", func(ctx kernel.DispatchContext) (any, error) {
		err := facade.BlockingSleep(ctx, 10)
		resumeTime = sched.CurrentTime()
		return nil, err
	})
	sched.Post(woke, 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.Equal(t, int64(10), resumeTime)
}

func TestEndSimulationAtHaltsFutureEvents(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	facade.SetController(sched)
	t.Cleanup(func() { facade.SetController(nil) })

	var ran []string
	sched.PostAt(1, newProbe("a", func(ctx kernel.DispatchContext) (any, error) {
		ran = append(ran, "a")
		require.NoError(t, facade.EndSimulationAt(1))
		return nil, nil
	}), 1, nil)
	sched.PostAt(2, newProbe("b", func(ctx kernel.DispatchContext) (any, error) {
		ran = append(ran, "b")
		return nil, nil
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.Equal(t, []string{"a"}, ran)
}

func TestCreateChannelWithoutControllerFails(t *testing.T) {
	facade.SetController(nil)
	_, err := facade.CreateChannel("ch")
	assert.ErrorIs(t, err, kernel.ErrNoController)
}
