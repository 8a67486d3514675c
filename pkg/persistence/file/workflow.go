package file

import (
	"context"
	"sort"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

const workflowsDir = "workflows"

// WorkflowRepository stores workflow definitions as JSON files.
type WorkflowRepository struct {
	root string
}

func (r *WorkflowRepository) Save(_ context.Context, def *models.WorkflowDefinition) error {
	return writeJSON(r.root, workflowsDir, def.ID, def)
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	var def models.WorkflowDefinition
	if err := readJSON(r.root, workflowsDir, id, &def, persistence.ErrWorkflowNotFound); err != nil {
		return nil, err
	}

	return &def, nil
}

func (r *WorkflowRepository) List(_ context.Context, opts persistence.ListOptions) (*persistence.Page[*models.WorkflowDefinition], error) {
	defs, err := readAll[models.WorkflowDefinition](r.root, workflowsDir)
	if err != nil {
		return nil, err
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].CreatedAt.After(defs[j].CreatedAt)
	})

	return persistence.NewPage(defs, opts.Page, opts.PageSize), nil
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	return remove(r.root, workflowsDir, id, persistence.ErrWorkflowNotFound)
}
