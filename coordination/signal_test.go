package coordination_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellblazer/primemover/coordination"
	"github.com/hellblazer/primemover/kernel"
)

func TestSignalWakesSingleWaiter(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	sig := coordination.NewSignal(sched, "sig")

	var woke bool
	waiter := newCaller("waiter", func(ctx kernel.DispatchContext) (any, error) {
		err := sig.Await(ctx)
		woke = true
		return nil, err
	})
	sched.Post(waiter, 1, nil)

	sched.PostAt(1, newCaller("signaler", func(ctx kernel.DispatchContext) (any, error) {
		sig.Signal()
		return nil, nil
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.True(t, woke)
}

func TestSignalWakesThreeWaitersInFIFOOrder(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	sig := coordination.NewSignal(sched, "sig")

	var wakeOrder []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		sched.Post(newCaller(name, func(ctx kernel.DispatchContext) (any, error) {
			err := sig.Await(ctx)
			wakeOrder = append(wakeOrder, name)
			return nil, err
		}), 1, nil)
	}

	sched.PostAt(1, newCaller("signaler", func(ctx kernel.DispatchContext) (any, error) {
		sig.SignalAll()
		return nil, nil
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.Equal(t, []string{"first", "second", "third"}, wakeOrder)
}

func TestSignalWithNoWaitersIsNoOp(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	sig := coordination.NewSignal(sched, "sig")
	assert.NotPanics(t, func() { sig.Signal(); sig.SignalAll() })
	assert.Equal(t, int64(0), sig.Statistics()["signals"])
}
