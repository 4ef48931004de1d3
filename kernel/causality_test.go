package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellblazer/primemover/kernel"
)

func TestCausalTraceWalksBackToRootTrigger(t *testing.T) {
	sched, err := kernel.New(kernel.WithCausalityTracking(true))
	require.NoError(t, err)

	var trace []string
	callee := newRecorder("callee", &trace)
	caller := newRecorder("caller", &trace)
	caller.fn = func(ctx kernel.DispatchContext, ordinal int32, args []any) (any, error) {
		_, err := kernel.SuspendAndPost(ctx, callee, 1, nil)
		return nil, err
	}
	sched.Post(caller, 1, nil) // root trigger, not itself causally sourced

	require.NoError(t, sched.Run(context.Background()))

	// caller's event is arena index 0 (root, no Source); callee's event,
	// posted from within caller's dispatch, is arena index 1.
	summary := sched.CausalTrace(1)
	require.Len(t, summary, 2)
	assert.Equal(t, "callee", summary[0].Entity)
	assert.Equal(t, "caller", summary[1].Entity)
}

func TestCausalTraceEmptyWhenTrackingDisabled(t *testing.T) {
	sched, err := kernel.New()
	require.NoError(t, err)
	var trace []string
	a := newRecorder("a", &trace)
	sched.Post(a, 1, nil)
	require.NoError(t, sched.Run(context.Background()))
	assert.Nil(t, sched.CausalTrace(0))
}
