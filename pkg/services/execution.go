package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stratoml/strato/pkg/dag"
	"github.com/stratoml/strato/pkg/eventbus"
	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// Execution submits workflow runs to the worker pool over the event bus
// and serves execution lookups.
type Execution struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
}

func NewExecution(store persistence.Persistence, publisher eventbus.EventPublisher) *Execution {
	return &Execution{
		persistence: store,
		publisher:   publisher,
	}
}

// Trigger validates the workflow, records a PENDING execution and
// enqueues an execution request for a worker to pick up.
func (s *Execution) Trigger(
	ctx context.Context,
	workflowID string,
	params map[string]any,
	source events.TriggerSource,
	sourceID string,
) (*models.Execution, error) {
	def, err := s.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	graph, err := dag.Parse(def)
	if err != nil {
		return nil, err
	}

	if graph.Draft() {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotDeployed, workflowID)
	}

	// Catch indirect cycles here so the caller gets a rejection instead
	// of a run that can never be scheduled.
	if _, err := graph.Resolver().ExecutionOrder(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	execution := &models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Status:     models.ExecutionStatusPending,
		Params:     def.MergeParams(params),
		Steps:      make(map[string]*models.StepState, len(def.Steps)),
		CreatedAt:  now,
	}

	for _, step := range def.Steps {
		execution.Steps[step.ID] = &models.StepState{
			StepID: step.ID,
			Status: models.StepStatusPending,
		}
	}

	if err := s.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, err
	}

	event := events.ExecutionRequested{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ExecutionRequestedEvent,
			Timestamp: now,
		},
		WorkflowID:  workflowID,
		ExecutionID: execution.ID,
		Params:      params,
		TriggeredBy: source,
		SourceID:    sourceID,
	}

	if err := s.publisher.Publish(ctx, execution.ID, event); err != nil {
		return nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	return execution, nil
}

// Get fetches one execution with its per-step states.
func (s *Execution) Get(ctx context.Context, id string) (*models.Execution, error) {
	return s.persistence.Executions().GetByID(ctx, id)
}

// List pages executions with workflow, status and date-range filters.
func (s *Execution) List(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.Page[*models.Execution], error) {
	if opts.Status != "" {
		switch opts.Status {
		case models.ExecutionStatusPending, models.ExecutionStatusRunning,
			models.ExecutionStatusCompleted, models.ExecutionStatusFailed:
		default:
			return nil, fmt.Errorf("%w: unknown execution status %q", ErrInvalidRequest, opts.Status)
		}
	}

	return s.persistence.Executions().List(ctx, opts)
}
