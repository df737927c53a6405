package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymesh/paymesh/types"
)

func TestFuncJob_Run(t *testing.T) {
	job := NewFuncJob("job-1", "echo", map[string]any{"text": "hello"},
		func(_ context.Context, params map[string]any) (string, error) {
			return params["text"].(string), nil
		})

	assert.Equal(t, "job-1", job.ID())
	assert.Equal(t, "echo", job.Type())
	assert.Equal(t, types.JobStatusPending, job.Status())

	result, err := job.Run()
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
	assert.Equal(t, types.JobStatusCompleted, job.Status())
}

func TestFuncJob_Failure(t *testing.T) {
	job := NewFuncJob("job-1", "flaky", nil,
		func(context.Context, map[string]any) (string, error) {
			return "", errors.New("boom")
		})

	_, err := job.Run()
	require.Error(t, err)
	assert.Equal(t, types.JobStatusFailed, job.Status())
}

func TestFuncJob_StatusIsMonotonic(t *testing.T) {
	job := NewFuncJob("job-1", "echo", nil,
		func(context.Context, map[string]any) (string, error) {
			return "done", nil
		})

	_, err := job.Run()
	require.NoError(t, err)

	// A completed job cannot be restarted.
	_, err = job.Run()
	require.Error(t, err)
	assert.Equal(t, types.JobStatusCompleted, job.Status())
}

func TestFuncJob_ObservesContext(t *testing.T) {
	job := NewFuncJob("job-1", "ctx", nil,
		func(ctx context.Context, _ map[string]any) (string, error) {
			return "", ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job.SetContext(ctx)

	_, err := job.Run()
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.JobStatusFailed, job.Status())
}

func TestMemoryRegistry(t *testing.T) {
	registry := NewMemoryRegistry()
	job := NewFuncJob("job-1", "echo", nil,
		func(context.Context, map[string]any) (string, error) { return "", nil })
	registry.Register(job)

	got, err := registry.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, job, got)

	_, err = registry.Get("job-ghost")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrJobNotFound))
}

func TestJobStatusTransitions(t *testing.T) {
	assert.True(t, types.JobStatusPending.CanTransition(types.JobStatusRunning))
	assert.True(t, types.JobStatusPending.CanTransition(types.JobStatusFailed))
	assert.True(t, types.JobStatusRunning.CanTransition(types.JobStatusCompleted))
	assert.True(t, types.JobStatusRunning.CanTransition(types.JobStatusFailed))

	assert.False(t, types.JobStatusRunning.CanTransition(types.JobStatusPending))
	assert.False(t, types.JobStatusCompleted.CanTransition(types.JobStatusRunning))
	assert.False(t, types.JobStatusCompleted.CanTransition(types.JobStatusFailed))
	assert.False(t, types.JobStatusFailed.CanTransition(types.JobStatusCompleted))
}
