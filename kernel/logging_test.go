package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellblazer/primemover/kernel"
)

type captureLogger struct {
	entries []kernel.LogEntry
}

func (c *captureLogger) IsEnabled(level kernel.LogLevel) bool { return true }
func (c *captureLogger) Log(entry kernel.LogEntry)            { c.entries = append(c.entries, entry) }

func TestSchedulerLogsEntityFailure(t *testing.T) {
	logger := &captureLogger{}
	sched, err := kernel.New(kernel.WithLogger(logger))
	require.NoError(t, err)

	boom := assert.AnError
	failing := newRecorder("failing", &[]string{})
	failing.fn = func(ctx kernel.DispatchContext, ordinal int32, args []any) (any, error) {
		return nil, boom
	}
	sched.Post(failing, 1, nil)
	require.Error(t, sched.Run(context.Background()))

	var found bool
	for _, e := range logger.entries {
		if e.Level == kernel.LevelError && e.Category == "event" {
			found = true
		}
	}
	assert.True(t, found, "fail() should emit an error-level log entry")
}

func TestDefaultLoggerRespectsLevelFiltering(t *testing.T) {
	l := kernel.NewDefaultLogger(kernel.LevelWarn)
	assert.False(t, l.IsEnabled(kernel.LevelDebug))
	assert.False(t, l.IsEnabled(kernel.LevelInfo))
	assert.True(t, l.IsEnabled(kernel.LevelWarn))
	assert.True(t, l.IsEnabled(kernel.LevelError))
}

func TestNoOpLoggerDropsEverything(t *testing.T) {
	l := kernel.NewNoOpLogger()
	assert.False(t, l.IsEnabled(kernel.LevelError))
}
