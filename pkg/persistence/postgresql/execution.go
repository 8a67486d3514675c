package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// ExecutionRepository stores workflow runs.
type ExecutionRepository struct {
	db *sql.DB
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	document, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, status, document, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			document = EXCLUDED.document
	`, execution.ID, execution.WorkflowID, execution.Status, document, execution.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveExecution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, "SELECT document FROM executions WHERE id = $1", id)

	return scanDocument[models.Execution](row, persistence.ErrExecutionNotFound)
}

func (r *ExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.Page[*models.Execution], error) {
	page, pageSize := normalizePage(opts.Page, opts.PageSize)

	where := make([]string, 0, 4)
	args := make([]any, 0, 6)

	addFilter := func(clause string, value any) {
		args = append(args, value)
		where = append(where, clause+"$"+strconv.Itoa(len(args)))
	}

	if opts.WorkflowID != "" {
		addFilter("workflow_id = ", opts.WorkflowID)
	}

	if opts.Status != "" {
		addFilter("status = ", string(opts.Status))
	}

	if opts.From != nil {
		addFilter("created_at >= ", *opts.From)
	}

	if opts.To != nil {
		addFilter("created_at <= ", *opts.To)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM executions"+clause, args...).Scan(&total); err != nil {
		return nil, persistence.NewStoreError("ListExecutions", "", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(
		"SELECT document FROM executions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		clause, len(args)-1, len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewStoreError("ListExecutions", "", err)
	}

	items, err := scanDocuments[models.Execution](rows)
	if err != nil {
		return nil, err
	}

	return pageOf(items, total, page, pageSize), nil
}

// SuspensionRepository stores parked steps keyed by correlation id.
type SuspensionRepository struct {
	db *sql.DB
}

func (r *SuspensionRepository) Save(ctx context.Context, s *models.Suspension) error {
	document, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal suspension %s: %w", s.CorrelationID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO suspensions (correlation_id, execution_id, step_id, deadline, document)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (correlation_id) DO UPDATE SET
			deadline = EXCLUDED.deadline,
			document = EXCLUDED.document
	`, s.CorrelationID, s.ExecutionID, s.StepID, s.Deadline, document)
	if err != nil {
		return persistence.NewStoreError("SaveSuspension", s.CorrelationID, err)
	}

	return nil
}

func (r *SuspensionRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*models.Suspension, error) {
	row := r.db.QueryRowContext(ctx, "SELECT document FROM suspensions WHERE correlation_id = $1", correlationID)

	return scanDocument[models.Suspension](row, persistence.ErrSuspensionNotFound)
}

func (r *SuspensionRepository) List(ctx context.Context) ([]*models.Suspension, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT document FROM suspensions")
	if err != nil {
		return nil, persistence.NewStoreError("ListSuspensions", "", err)
	}

	return scanDocuments[models.Suspension](rows)
}

func (r *SuspensionRepository) Expired(ctx context.Context, now time.Time) ([]*models.Suspension, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT document FROM suspensions WHERE deadline <= $1", now)
	if err != nil {
		return nil, persistence.NewStoreError("ExpiredSuspensions", "", err)
	}

	return scanDocuments[models.Suspension](rows)
}

func (r *SuspensionRepository) Delete(ctx context.Context, correlationID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM suspensions WHERE correlation_id = $1", correlationID)
	if err != nil {
		return persistence.NewStoreError("DeleteSuspension", correlationID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("DeleteSuspension", correlationID, err)
	}

	if affected == 0 {
		return persistence.ErrSuspensionNotFound
	}

	return nil
}
