package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

func TestNewPersistence_AcceptsFileURL(t *testing.T) {
	dir := t.TempDir()

	store := NewPersistence("file://" + dir)
	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestHealthCheck_MissingRoot(t *testing.T) {
	store := NewPersistence("/nonexistent/strato-data")
	require.Error(t, store.HealthCheck(context.Background()))
}

func TestWorkflowRoundTrip(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()

	def := &models.WorkflowDefinition{
		ID:      "wf-1",
		Name:    "deploy-pipeline",
		Version: "1",
		Status:  models.WorkflowStatusPublished,
		Steps: []*models.Step{
			{ID: "build", Name: "build", Action: "log"},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Workflows().Save(ctx, def))

	loaded, err := store.Workflows().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, def.Name, loaded.Name)
	assert.Equal(t, def.Status, loaded.Status)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, "build", loaded.Steps[0].ID)

	require.NoError(t, store.Workflows().Delete(ctx, "wf-1"))

	_, err = store.Workflows().GetByID(ctx, "wf-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestInvalidIDsRejected(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		_, err := store.Workflows().GetByID(ctx, id)
		require.Error(t, err, "id %q", id)
		assert.NotErrorIs(t, err, persistence.ErrWorkflowNotFound)
	}
}

func TestWebhookSecretHashSurvivesRoundTrip(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()

	secret, hash, err := models.GenerateWebhookSecret()
	require.NoError(t, err)

	webhook := &models.Webhook{
		ID:         "wh-1",
		WorkflowID: "wf-1",
		SecretHash: hash,
		Enabled:    true,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Webhooks().Save(ctx, webhook))

	// The public JSON shape drops the hash; the stored form must not.
	loaded, err := store.Webhooks().GetByID(ctx, "wh-1")
	require.NoError(t, err)
	assert.Equal(t, hash, loaded.SecretHash)
	assert.True(t, loaded.ValidateSecret(secret))

	listed, err := store.Webhooks().List(ctx, persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, hash, listed.Items[0].SecretHash)
}

func TestScheduleDue(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	schedules := []*models.Schedule{
		{ID: "due", WorkflowID: "wf-1", Type: models.ScheduleTypeInterval, Status: models.ScheduleStatusActive, Enabled: true, NextRunAt: &past},
		{ID: "future", WorkflowID: "wf-1", Type: models.ScheduleTypeInterval, Status: models.ScheduleStatusActive, Enabled: true, NextRunAt: &future},
		{ID: "paused", WorkflowID: "wf-1", Type: models.ScheduleTypeInterval, Status: models.ScheduleStatusPaused, Enabled: true, NextRunAt: &past},
		{ID: "disabled", WorkflowID: "wf-1", Type: models.ScheduleTypeInterval, Status: models.ScheduleStatusActive, Enabled: false, NextRunAt: &past},
	}

	for _, schedule := range schedules {
		require.NoError(t, store.Schedules().Save(ctx, schedule))
	}

	due, err := store.Schedules().Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestExecutionListFilters(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()
	base := time.Now().UTC()

	executions := []*models.Execution{
		{ID: "e1", WorkflowID: "wf-1", Status: models.ExecutionStatusCompleted, CreatedAt: base.Add(-3 * time.Hour)},
		{ID: "e2", WorkflowID: "wf-1", Status: models.ExecutionStatusFailed, CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "e3", WorkflowID: "wf-2", Status: models.ExecutionStatusCompleted, CreatedAt: base.Add(-time.Hour)},
	}

	for _, execution := range executions {
		require.NoError(t, store.Executions().Save(ctx, execution))
	}

	page, err := store.Executions().List(ctx, persistence.ListExecutionsOptions{WorkflowID: "wf-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)

	page, err = store.Executions().List(ctx, persistence.ListExecutionsOptions{Status: models.ExecutionStatusFailed})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "e2", page.Items[0].ID)

	from := base.Add(-90 * time.Minute)
	page, err = store.Executions().List(ctx, persistence.ListExecutionsOptions{From: &from})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "e3", page.Items[0].ID)

	// Newest first.
	page, err = store.Executions().List(ctx, persistence.ListExecutionsOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "e3", page.Items[0].ID)
}

func TestExecutionListPagination(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()
	base := time.Now().UTC()

	for i := range 5 {
		require.NoError(t, store.Executions().Save(ctx, &models.Execution{
			ID:         string(rune('a' + i)),
			WorkflowID: "wf-1",
			Status:     models.ExecutionStatusCompleted,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := store.Executions().List(ctx, persistence.ListExecutionsOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 2)
}

func TestSuspensionExpired(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := &models.Suspension{
		CorrelationID: "corr-1",
		ExecutionID:   "exec-1",
		StepID:        "train",
		Deadline:      now.Add(-time.Minute),
	}
	waiting := &models.Suspension{
		CorrelationID: "corr-2",
		ExecutionID:   "exec-2",
		StepID:        "train",
		Deadline:      now.Add(time.Hour),
	}

	require.NoError(t, store.Suspensions().Save(ctx, overdue))
	require.NoError(t, store.Suspensions().Save(ctx, waiting))

	expired, err := store.Suspensions().Expired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "corr-1", expired[0].CorrelationID)

	require.NoError(t, store.Suspensions().Delete(ctx, "corr-1"))

	_, err = store.Suspensions().GetByCorrelationID(ctx, "corr-1")
	require.ErrorIs(t, err, persistence.ErrSuspensionNotFound)
}

func TestJobQueries(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()

	jobs := []*models.Job{
		{ID: "j1", Name: "train", Type: models.JobTypeFineTuning, Status: models.JobStatusRunning, Source: "api", ClusterID: "gpu-east"},
		{ID: "j2", Name: "eval", Type: models.JobTypeBenchmark, Status: models.JobStatusPending, Source: "workflow-step", SourceID: "exec-1/eval", ClusterID: "gpu-east"},
		{ID: "j3", Name: "deploy", Type: models.JobTypeDeployment, Status: models.JobStatusSucceeded, Source: "api", ClusterID: "gpu-west"},
	}

	for _, job := range jobs {
		require.NoError(t, store.Jobs().Save(ctx, job))
	}

	active, err := store.Jobs().Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "j1", active[0].ID)

	pending, err := store.Jobs().Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "j2", pending[0].ID)

	east, err := store.Jobs().ByCluster(ctx, "gpu-east")
	require.NoError(t, err)
	assert.Len(t, east, 2)

	bySource, err := store.Jobs().GetBySource(ctx, "workflow-step", "exec-1/eval")
	require.NoError(t, err)
	assert.Equal(t, "j2", bySource.ID)

	page, err := store.Jobs().List(ctx, persistence.ListJobsOptions{Type: models.JobTypeBenchmark})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

func TestGetBySource_NewestWins(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// File names put the older job first in directory order; the newest
	// by created_at must win regardless.
	jobs := []*models.Job{
		{ID: "a-first", Name: "deploy", Type: models.JobTypeDeployment, Status: models.JobStatusFailed, Source: "workflow-step", SourceID: "exec-9/deploy", CreatedAt: base},
		{ID: "z-second", Name: "deploy", Type: models.JobTypeDeployment, Status: models.JobStatusPending, Source: "workflow-step", SourceID: "exec-9/deploy", CreatedAt: base.Add(time.Minute)},
	}

	for _, job := range jobs {
		require.NoError(t, store.Jobs().Save(ctx, job))
	}

	got, err := store.Jobs().GetBySource(ctx, "workflow-step", "exec-9/deploy")
	require.NoError(t, err)
	assert.Equal(t, "z-second", got.ID)
}
