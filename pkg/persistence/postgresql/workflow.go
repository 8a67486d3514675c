package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// WorkflowRepository stores workflow definitions.
type WorkflowRepository struct {
	db *sql.DB
}

func (r *WorkflowRepository) Save(ctx context.Context, def *models.WorkflowDefinition) error {
	document, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", def.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, status, document, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			document = EXCLUDED.document
	`, def.ID, def.Name, def.Status, document, def.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", def.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	row := r.db.QueryRowContext(ctx, "SELECT document FROM workflows WHERE id = $1", id)

	return scanDocument[models.WorkflowDefinition](row, persistence.ErrWorkflowNotFound)
}

func (r *WorkflowRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.Page[*models.WorkflowDefinition], error) {
	page, pageSize := normalizePage(opts.Page, opts.PageSize)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflows").Scan(&total); err != nil {
		return nil, persistence.NewStoreError("ListWorkflows", "", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT document FROM workflows
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, persistence.NewStoreError("ListWorkflows", "", err)
	}

	items, err := scanDocuments[models.WorkflowDefinition](rows)
	if err != nil {
		return nil, err
	}

	return pageOf(items, total, page, pageSize), nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("DeleteWorkflow", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("DeleteWorkflow", id, err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}

	if pageSize <= 0 {
		pageSize = 20
	}

	return page, pageSize
}

func pageOf[T any](items []T, total, page, pageSize int) *persistence.Page[T] {
	return &persistence.Page[T]{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}
