package coordination_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellblazer/primemover/coordination"
	"github.com/hellblazer/primemover/kernel"
)

func TestBoundedBufferBlocksProducerWhenFull(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	buf := coordination.NewBoundedBuffer(sched, "buf", 1)

	var secondPutReturned bool
	sched.Post(newCaller("fill", func(ctx kernel.DispatchContext) (any, error) {
		return nil, buf.Put(ctx, "a")
	}), 1, nil)
	sched.Post(newCaller("overflow", func(ctx kernel.DispatchContext) (any, error) {
		err := buf.Put(ctx, "b")
		secondPutReturned = true
		return nil, err
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.False(t, secondPutReturned, "producer should remain blocked: buffer is at capacity")
	assert.Equal(t, int64(1), buf.Statistics()["blocked_putters"])
}

func TestBoundedBufferDrainUnblocksWaitingProducer(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	buf := coordination.NewBoundedBuffer(sched, "buf", 1)

	var secondPutReturned bool
	sched.Post(newCaller("fill", func(ctx kernel.DispatchContext) (any, error) {
		return nil, buf.Put(ctx, "a")
	}), 1, nil)
	sched.Post(newCaller("overflow", func(ctx kernel.DispatchContext) (any, error) {
		err := buf.Put(ctx, "b")
		secondPutReturned = true
		return nil, err
	}), 1, nil)

	var taken any
	sched.PostAt(1, newCaller("drain", func(ctx kernel.DispatchContext) (any, error) {
		v, err := buf.Take(ctx)
		taken = v
		return v, err
	}), 1, nil)

	require.NoError(t, sched.Run(context.Background()))
	assert.Equal(t, "a", taken)
	assert.True(t, secondPutReturned, "draining the buffer should release the blocked producer")
	assert.Equal(t, int64(1), buf.Statistics()["size"])
}
