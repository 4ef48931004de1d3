package coordination_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellblazer/primemover/coordination"
	"github.com/hellblazer/primemover/kernel"
)

func TestCountedInventoryWithdrawBlocksOnEmptyThenResumes(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	inv := coordination.NewCountedInventory(sched, "stock", 10, 0)

	var withdrawn int64
	var withdrawErr error
	sched.Post(newCaller("withdrawer", func(ctx kernel.DispatchContext) (any, error) {
		withdrawn, withdrawErr = inv.Withdraw(ctx, 5)
		return withdrawn, withdrawErr
	}), 1, nil)

	sched.PostAt(3, newCaller("depositor", func(ctx kernel.DispatchContext) (any, error) {
		return nil, inv.Deposit(ctx, 5)
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.NoError(t, withdrawErr)
	assert.Equal(t, int64(5), withdrawn)
	assert.Equal(t, int64(0), inv.Level())
}

func TestCountedInventoryDepositBlocksAtCapacity(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	inv := coordination.NewCountedInventory(sched, "stock", 10, 8)

	var depositReturned bool
	sched.Post(newCaller("depositor", func(ctx kernel.DispatchContext) (any, error) {
		err := inv.Deposit(ctx, 5) // 8+5 > 10: must wait for room
		depositReturned = true
		return nil, err
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.False(t, depositReturned)
	assert.Equal(t, int64(1), inv.Statistics()["blocked_depositors"])
}

func TestCountedInventoryPartialWithdrawTakesWhatsAvailable(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	inv := coordination.NewCountedInventory(sched, "stock", 10, 3, coordination.WithPartialWithdraw())

	var taken int64
	sched.Post(newCaller("withdrawer", func(ctx kernel.DispatchContext) (any, error) {
		v, err := inv.Withdraw(ctx, 5)
		taken = v
		return v, err
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.Equal(t, int64(3), taken)
	assert.Equal(t, int64(0), inv.Level())
}

func TestCountedInventoryStrictWithdrawRespectsHeadOfLineBlocking(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	inv := coordination.NewCountedInventory(sched, "stock", 10, 0)

	var bigDone, smallDone bool
	sched.Post(newCaller("big", func(ctx kernel.DispatchContext) (any, error) {
		_, err := inv.Withdraw(ctx, 8)
		bigDone = true
		return nil, err
	}), 1, nil)
	sched.Post(newCaller("small", func(ctx kernel.DispatchContext) (any, error) {
		_, err := inv.Withdraw(ctx, 1)
		smallDone = true
		return nil, err
	}), 1, nil)

	// Only 5 available: neither the blocked-ahead big request nor the
	// small one behind it should be served out of order.
	sched.PostAt(1, newCaller("depositor", func(ctx kernel.DispatchContext) (any, error) {
		return nil, inv.Deposit(ctx, 5)
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.False(t, bigDone)
	assert.False(t, smallDone, "small must not jump the queue ahead of the still-unsatisfied big request")
	assert.Equal(t, int64(5), inv.Level())
}
