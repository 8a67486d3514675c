package file

import (
	"context"
	"sort"
	"time"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

const (
	executionsDir  = "executions"
	suspensionsDir = "suspensions"
)

// ExecutionRepository stores executions as JSON files.
type ExecutionRepository struct {
	root string
}

func (r *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	if execution.Steps == nil {
		execution.Steps = make(map[string]*models.StepState)
	}

	return writeJSON(r.root, executionsDir, execution.ID, execution)
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	var execution models.Execution
	if err := readJSON(r.root, executionsDir, id, &execution, persistence.ErrExecutionNotFound); err != nil {
		return nil, err
	}

	return &execution, nil
}

func (r *ExecutionRepository) List(_ context.Context, opts persistence.ListExecutionsOptions) (*persistence.Page[*models.Execution], error) {
	all, err := readAll[models.Execution](r.root, executionsDir)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Execution, 0, len(all))

	for _, execution := range all {
		if opts.WorkflowID != "" && execution.WorkflowID != opts.WorkflowID {
			continue
		}

		if opts.Status != "" && execution.Status != opts.Status {
			continue
		}

		if opts.From != nil && execution.CreatedAt.Before(*opts.From) {
			continue
		}

		if opts.To != nil && execution.CreatedAt.After(*opts.To) {
			continue
		}

		filtered = append(filtered, execution)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	return persistence.NewPage(filtered, opts.Page, opts.PageSize), nil
}

// SuspensionRepository stores parked steps keyed by correlation id.
type SuspensionRepository struct {
	root string
}

func (r *SuspensionRepository) Save(_ context.Context, s *models.Suspension) error {
	return writeJSON(r.root, suspensionsDir, s.CorrelationID, s)
}

func (r *SuspensionRepository) GetByCorrelationID(_ context.Context, correlationID string) (*models.Suspension, error) {
	var s models.Suspension
	if err := readJSON(r.root, suspensionsDir, correlationID, &s, persistence.ErrSuspensionNotFound); err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *SuspensionRepository) List(_ context.Context) ([]*models.Suspension, error) {
	return readAll[models.Suspension](r.root, suspensionsDir)
}

func (r *SuspensionRepository) Expired(ctx context.Context, now time.Time) ([]*models.Suspension, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	expired := make([]*models.Suspension, 0)

	for _, s := range all {
		if !s.Deadline.After(now) {
			expired = append(expired, s)
		}
	}

	return expired, nil
}

func (r *SuspensionRepository) Delete(_ context.Context, correlationID string) error {
	return remove(r.root, suspensionsDir, correlationID, persistence.ErrSuspensionNotFound)
}
