package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoml/strato/pkg/dag"
	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

func TestExecutionTrigger(t *testing.T) {
	store := newTestStore(t)
	publisher := &capturingPublisher{}
	workflows := NewWorkflow(store)
	service := NewExecution(store, publisher)
	ctx := context.Background()

	def := validDefinition()
	def.Parameters = []models.Parameter{{Name: "environment", Default: "staging"}}
	created, err := workflows.Create(ctx, def)
	require.NoError(t, err)

	execution, err := service.Trigger(ctx, created.ID, map[string]any{"environment": "prod"},
		events.TriggerSourceAPI, "client-1")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusPending, execution.Status)
	assert.Equal(t, "prod", execution.Params["environment"])
	assert.Len(t, execution.Steps, 2)
	assert.Equal(t, models.StepStatusPending, execution.Steps["build"].Status)

	// The run request went onto the bus keyed by the execution id.
	require.Len(t, publisher.events, 1)
	assert.Equal(t, execution.ID, publisher.keys[0])

	requested, ok := publisher.events[0].(events.ExecutionRequested)
	require.True(t, ok)
	assert.Equal(t, created.ID, requested.WorkflowID)
	assert.Equal(t, execution.ID, requested.ExecutionID)
	assert.Equal(t, events.TriggerSourceAPI, requested.TriggeredBy)
	assert.Equal(t, "client-1", requested.SourceID)

	// And the PENDING execution is persisted for the worker to resume.
	stored, err := store.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, stored.Status)
}

func TestExecutionTrigger_DraftRejected(t *testing.T) {
	store := newTestStore(t)
	workflows := NewWorkflow(store)
	service := NewExecution(store, &capturingPublisher{})
	ctx := context.Background()

	draft, err := workflows.Create(ctx, &models.WorkflowDefinition{Name: "draft", Version: "1"})
	require.NoError(t, err)

	_, err = service.Trigger(ctx, draft.ID, nil, events.TriggerSourceAPI, "")
	require.ErrorIs(t, err, ErrWorkflowNotDeployed)
	assert.True(t, IsValidationError(err))
}

func TestExecutionTrigger_CycleRejected(t *testing.T) {
	store := newTestStore(t)
	publisher := &capturingPublisher{}
	service := NewExecution(store, publisher)
	ctx := context.Background()

	// Saved directly: an indirect cycle slips past the parser, which
	// only rejects self-dependencies.
	def := &models.WorkflowDefinition{
		ID:      "wf-cycle",
		Name:    "circular",
		Version: "1",
		Status:  models.WorkflowStatusPublished,
		Steps: []*models.Step{
			{ID: "build", Name: "build", Action: "log", DependsOn: []string{"deploy"}},
			{ID: "deploy", Name: "deploy", Action: "log", DependsOn: []string{"build"}},
		},
	}
	require.NoError(t, store.Workflows().Save(ctx, def))

	_, err := service.Trigger(ctx, def.ID, nil, events.TriggerSourceAPI, "")
	require.ErrorIs(t, err, dag.ErrCyclicDependency)
	assert.True(t, IsValidationError(err))

	// Nothing was recorded or enqueued.
	page, err := store.Executions().List(ctx, persistence.ListExecutionsOptions{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
	assert.Empty(t, publisher.events)
}

func TestExecutionTrigger_UnknownWorkflow(t *testing.T) {
	service := NewExecution(newTestStore(t), &capturingPublisher{})

	_, err := service.Trigger(context.Background(), "missing", nil, events.TriggerSourceAPI, "")
	require.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecutionList_StatusValidation(t *testing.T) {
	service := NewExecution(newTestStore(t), &capturingPublisher{})
	ctx := context.Background()

	_, err := service.List(ctx, persistence.ListExecutionsOptions{Status: "EXPLODED"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = service.List(ctx, persistence.ListExecutionsOptions{Status: models.ExecutionStatusRunning})
	require.NoError(t, err)
}
