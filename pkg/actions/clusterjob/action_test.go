package clusterjob

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/job"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence/file"
	"github.com/stratoml/strato/pkg/protocol"
)

func newTestHandler(t *testing.T) (*Handler, *job.Manager) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	manager := job.NewManager(store.Jobs(), logger)

	return NewHandler(manager), manager
}

func testContext(params map[string]any) protocol.HandlerContext {
	return protocol.HandlerContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		StepID:      "train",
		Params:      params,
		Logger:      slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func statusEvent(jobID, status string, extra map[string]any) *events.PlatformEvent {
	content := map[string]any{"status": status}
	for k, v := range extra {
		content[k] = v
	}

	return &events.PlatformEvent{
		Type: "job_status",
		Payload: map[string]any{
			"workflow_id": jobID,
			"content":     content,
		},
	}
}

func TestValidate(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name     string
		params   map[string]any
		expected int
	}{
		{
			name:     "valid",
			params:   map[string]any{"job_type": "fine-tuning"},
			expected: 0,
		},
		{
			name:     "missing job_type",
			params:   map[string]any{},
			expected: 1,
		},
		{
			name:     "unknown job_type",
			params:   map[string]any{"job_type": "gardening"},
			expected: 1,
		},
		{
			name:     "negative max_wait",
			params:   map[string]any{"job_type": "benchmark", "max_wait_seconds": -5},
			expected: 1,
		},
		{
			name:     "non-numeric max_wait",
			params:   map[string]any{"job_type": "benchmark", "max_wait_seconds": "soon"},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, handler.Validate(tt.params), tt.expected)
		})
	}
}

func TestExecute_DelegatesAndSuspends(t *testing.T) {
	handler, manager := newTestHandler(t)
	ctx := context.Background()

	result, err := handler.Execute(ctx, testContext(map[string]any{
		"job_type":   "benchmark",
		"cluster_id": "gpu-east",
		"config":     map[string]any{"suite": "mmlu"},
	}))
	require.NoError(t, err)
	require.NotNil(t, result.Await)
	assert.Equal(t, DefaultMaxWait, result.Await.MaxWait)

	created, err := manager.Get(ctx, result.Await.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, created.Status)
	assert.Equal(t, models.JobTypeBenchmark, created.Type)
	assert.Equal(t, "workflow-step", created.Source)
	assert.Equal(t, "exec-1/train", created.SourceID)
	assert.Equal(t, "gpu-east", created.ClusterID)

	// Name defaults to the step id.
	assert.Equal(t, "train", created.Name)
}

func TestExecute_ReusesInFlightJob(t *testing.T) {
	handler, manager := newTestHandler(t)
	ctx := context.Background()
	hctx := testContext(map[string]any{"job_type": "benchmark"})

	first, err := handler.Execute(ctx, hctx)
	require.NoError(t, err)

	// A worker restart replays the step. The original job is still
	// queued, so the step must park on it rather than delegate a twin.
	second, err := handler.Execute(ctx, hctx)
	require.NoError(t, err)
	assert.Equal(t, first.Await.CorrelationID, second.Await.CorrelationID)

	pending, err := manager.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestExecute_TerminalJobGetsFreshDelegation(t *testing.T) {
	handler, manager := newTestHandler(t)
	ctx := context.Background()
	hctx := testContext(map[string]any{"job_type": "benchmark"})

	first, err := handler.Execute(ctx, hctx)
	require.NoError(t, err)

	_, err = manager.Fail(ctx, first.Await.CorrelationID, "node preempted")
	require.NoError(t, err)

	second, err := handler.Execute(ctx, hctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Await.CorrelationID, second.Await.CorrelationID)
}

func TestExecute_MaxWaitOverride(t *testing.T) {
	handler, _ := newTestHandler(t)

	result, err := handler.Execute(context.Background(), testContext(map[string]any{
		"job_type":         "custom",
		"max_wait_seconds": 90,
	}))
	require.NoError(t, err)
	require.NotNil(t, result.Await)
	assert.Equal(t, 90*time.Second, result.Await.MaxWait)
}

func TestOnEvent_Lifecycle(t *testing.T) {
	handler, manager := newTestHandler(t)
	ctx := context.Background()
	hctx := testContext(map[string]any{"job_type": "deployment"})

	result, err := handler.Execute(ctx, hctx)
	require.NoError(t, err)
	jobID := result.Await.CorrelationID

	// Progress report moves the job to RUNNING.
	outcome, err := handler.OnEvent(ctx, hctx, statusEvent(jobID, "running", map[string]any{
		"result": map[string]any{"progress": 0.4},
	}))
	require.NoError(t, err)
	assert.Equal(t, protocol.DispositionProgress, outcome.Disposition)
	assert.InDelta(t, 0.4, outcome.Progress, 1e-9)

	current, err := manager.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, current.Status)

	// Success completes the job and surfaces the result as outputs.
	outcome, err = handler.OnEvent(ctx, hctx, statusEvent(jobID, "succeeded", map[string]any{
		"result": map[string]any{"model_uri": "s3://models/run-42"},
	}))
	require.NoError(t, err)
	assert.Equal(t, protocol.DispositionComplete, outcome.Disposition)
	assert.True(t, outcome.Success)
	assert.Equal(t, jobID, outcome.Outputs["job_id"])
	assert.Equal(t, "s3://models/run-42", outcome.Outputs["model_uri"])

	current, err = manager.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, current.Status)
}

func TestOnEvent_Failure(t *testing.T) {
	handler, manager := newTestHandler(t)
	ctx := context.Background()
	hctx := testContext(map[string]any{"job_type": "deployment"})

	result, err := handler.Execute(ctx, hctx)
	require.NoError(t, err)
	jobID := result.Await.CorrelationID

	outcome, err := handler.OnEvent(ctx, hctx, statusEvent(jobID, "failed", map[string]any{
		"message": "CUDA out of memory",
	}))
	require.NoError(t, err)
	assert.Equal(t, protocol.DispositionComplete, outcome.Disposition)
	assert.False(t, outcome.Success)
	assert.Equal(t, "CUDA out of memory", outcome.Message)

	current, err := manager.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, current.Status)
	assert.Equal(t, "CUDA out of memory", current.ErrorMessage)
}

func TestOnEvent_IgnoresMetadataAndUnknownStatus(t *testing.T) {
	handler, _ := newTestHandler(t)
	ctx := context.Background()
	hctx := testContext(nil)

	outcome, err := handler.OnEvent(ctx, hctx, &events.PlatformEvent{Type: events.PlatformMetadataType})
	require.NoError(t, err)
	assert.Equal(t, protocol.DispositionIgnore, outcome.Disposition)

	outcome, err = handler.OnEvent(ctx, hctx, statusEvent("job-x", "provisioning", nil))
	require.NoError(t, err)
	assert.Equal(t, protocol.DispositionIgnore, outcome.Disposition)
}
