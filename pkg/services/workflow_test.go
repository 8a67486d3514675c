package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoml/strato/pkg/dag"
	"github.com/stratoml/strato/pkg/eventbus"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/persistence/file"
)

// capturingPublisher records every published event for assertions.
type capturingPublisher struct {
	events []eventbus.Event
	keys   []string
}

func (p *capturingPublisher) Publish(_ context.Context, key string, event eventbus.Event) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)

	return nil
}

func newTestStore(t *testing.T) persistence.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func validDefinition() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		Name:    "deploy-pipeline",
		Version: "1",
		Steps: []*models.Step{
			{ID: "build", Name: "build", Action: "log"},
			{ID: "deploy", Name: "deploy", Action: "log", DependsOn: []string{"build"}},
		},
	}
}

func TestWorkflowCreate(t *testing.T) {
	service := NewWorkflow(newTestStore(t))

	created, err := service.Create(context.Background(), validDefinition())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusPublished, created.Status)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestWorkflowCreate_DraftWithoutSteps(t *testing.T) {
	service := NewWorkflow(newTestStore(t))

	created, err := service.Create(context.Background(), &models.WorkflowDefinition{
		Name:    "work-in-progress",
		Version: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
}

func TestWorkflowCreate_Invalid(t *testing.T) {
	service := NewWorkflow(newTestStore(t))
	ctx := context.Background()

	_, err := service.Create(ctx, nil)
	require.ErrorIs(t, err, ErrWorkflowNil)

	// Short name fails struct validation.
	_, err = service.Create(ctx, &models.WorkflowDefinition{Name: "ab", Version: "1"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	// Graph problems are validation errors.
	def := validDefinition()
	def.Steps[1].DependsOn = []string{"ghost"}
	_, err = service.Create(ctx, def)
	require.ErrorIs(t, err, dag.ErrValidation)
	assert.True(t, IsValidationError(err))
}

func TestWorkflowCreate_CycleRejected(t *testing.T) {
	service := NewWorkflow(newTestStore(t))
	ctx := context.Background()

	// Indirect cycle: build -> deploy -> build.
	def := validDefinition()
	def.Steps[0].DependsOn = []string{"deploy"}

	_, err := service.Create(ctx, def)
	require.ErrorIs(t, err, dag.ErrCyclicDependency)
	assert.True(t, IsValidationError(err))
}

func TestWorkflowUpdate_CycleRejected(t *testing.T) {
	service := NewWorkflow(newTestStore(t))
	ctx := context.Background()

	created, err := service.Create(ctx, validDefinition())
	require.NoError(t, err)

	replacement := validDefinition()
	replacement.Steps[0].DependsOn = []string{"deploy"}

	_, err = service.Update(ctx, created.ID, replacement)
	require.ErrorIs(t, err, dag.ErrCyclicDependency)
}

func TestWorkflowUpdate_PreservesIdentity(t *testing.T) {
	service := NewWorkflow(newTestStore(t))
	ctx := context.Background()

	created, err := service.Create(ctx, validDefinition())
	require.NoError(t, err)

	replacement := validDefinition()
	replacement.Description = "updated"

	updated, err := service.Update(ctx, created.ID, replacement)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "updated", updated.Description)
}

func TestWorkflowUpdate_NotFound(t *testing.T) {
	service := NewWorkflow(newTestStore(t))

	_, err := service.Update(context.Background(), "missing", validDefinition())
	require.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowValidate(t *testing.T) {
	service := NewWorkflow(newTestStore(t))
	ctx := context.Background()

	batches, err := service.Validate(ctx, validDefinition())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"build"}, {"deploy"}}, batches)

	// Drafts have no execution order.
	batches, err = service.Validate(ctx, &models.WorkflowDefinition{Name: "draft", Version: "1"})
	require.NoError(t, err)
	assert.Nil(t, batches)

	// Cycles surface from the resolver.
	def := validDefinition()
	def.Steps[0].DependsOn = []string{"deploy"}
	_, err = service.Validate(ctx, def)
	require.ErrorIs(t, err, dag.ErrCyclicDependency)
}

func TestWorkflowDelete(t *testing.T) {
	service := NewWorkflow(newTestStore(t))
	ctx := context.Background()

	created, err := service.Create(ctx, validDefinition())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.Get(ctx, created.ID)
	require.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowHealthCheck(t *testing.T) {
	service := NewWorkflow(newTestStore(t))

	message, healthy := service.HealthCheck(context.Background())
	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}
