package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stratoml/strato/pkg/dag"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// Workflow manages workflow definitions. Every create and update passes
// through the DAG parser so invalid definitions are rejected before any
// persistence.
type Workflow struct {
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewWorkflow(store persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: store,
		validator:   validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create parses, validates and stores a new workflow definition. A
// definition without steps is stored as a draft.
func (s *Workflow) Create(ctx context.Context, def *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if def == nil {
		return nil, ErrWorkflowNil
	}

	if err := s.validator.Struct(def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	graph, err := dag.Parse(def)
	if err != nil {
		return nil, err
	}

	if !graph.Draft() {
		if _, err := graph.Resolver().ExecutionOrder(); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	def.ID = uuid.New().String()
	def.CreatedAt = now
	def.UpdatedAt = now

	def.Status = models.WorkflowStatusPublished
	if graph.Draft() {
		def.Status = models.WorkflowStatusDraft
	}

	if err := s.persistence.Workflows().Save(ctx, def); err != nil {
		return nil, err
	}

	return def, nil
}

// Update revalidates and replaces an existing definition. The id and
// creation timestamp are preserved.
func (s *Workflow) Update(ctx context.Context, id string, def *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if def == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := s.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Struct(def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	graph, err := dag.Parse(def)
	if err != nil {
		return nil, err
	}

	if !graph.Draft() {
		if _, err := graph.Resolver().ExecutionOrder(); err != nil {
			return nil, err
		}
	}

	def.ID = existing.ID
	def.CreatedAt = existing.CreatedAt
	def.UpdatedAt = time.Now().UTC()

	def.Status = models.WorkflowStatusPublished
	if graph.Draft() {
		def.Status = models.WorkflowStatusDraft
	}

	if err := s.persistence.Workflows().Save(ctx, def); err != nil {
		return nil, err
	}

	return def, nil
}

// Get fetches one workflow definition.
func (s *Workflow) Get(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	return s.persistence.Workflows().GetByID(ctx, id)
}

// List pages stored definitions.
func (s *Workflow) List(ctx context.Context, opts persistence.ListOptions) (*persistence.Page[*models.WorkflowDefinition], error) {
	return s.persistence.Workflows().List(ctx, opts)
}

// Delete removes a definition permanently.
func (s *Workflow) Delete(ctx context.Context, id string) error {
	return s.persistence.Workflows().Delete(ctx, id)
}

// Validate runs a definition through the parser without persisting it
// and returns the parsed execution order for published workflows.
func (s *Workflow) Validate(_ context.Context, def *models.WorkflowDefinition) ([][]string, error) {
	if def == nil {
		return nil, ErrWorkflowNil
	}

	graph, err := dag.Parse(def)
	if err != nil {
		return nil, err
	}

	if graph.Draft() {
		return nil, nil
	}

	return graph.Resolver().ExecutionOrder()
}
