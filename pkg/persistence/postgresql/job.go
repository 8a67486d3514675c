package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// JobRepository stores delegated cluster jobs.
type JobRepository struct {
	db *sql.DB
}

func (r *JobRepository) Save(ctx context.Context, job *models.Job) error {
	document, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, source, source_id, cluster_id, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			cluster_id = EXCLUDED.cluster_id,
			document = EXCLUDED.document
	`, job.ID, job.Type, job.Status, job.Source, job.SourceID, job.ClusterID, document, job.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveJob", job.ID, err)
	}

	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT document FROM jobs WHERE id = $1", id)

	return scanDocument[models.Job](row, persistence.ErrJobNotFound)
}

func (r *JobRepository) GetBySource(ctx context.Context, source, sourceID string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT document FROM jobs WHERE source = $1 AND source_id = $2 ORDER BY created_at DESC LIMIT 1",
		source, sourceID,
	)

	return scanDocument[models.Job](row, persistence.ErrJobNotFound)
}

func (r *JobRepository) List(ctx context.Context, opts persistence.ListJobsOptions) (*persistence.Page[*models.Job], error) {
	page, pageSize := normalizePage(opts.Page, opts.PageSize)

	where := make([]string, 0, 3)
	args := make([]any, 0, 5)

	addFilter := func(clause string, value any) {
		args = append(args, value)
		where = append(where, clause+"$"+strconv.Itoa(len(args)))
	}

	if opts.Type != "" {
		addFilter("type = ", string(opts.Type))
	}

	if opts.Status != "" {
		addFilter("status = ", string(opts.Status))
	}

	if opts.ClusterID != "" {
		addFilter("cluster_id = ", opts.ClusterID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs"+clause, args...).Scan(&total); err != nil {
		return nil, persistence.NewStoreError("ListJobs", "", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(
		"SELECT document FROM jobs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		clause, len(args)-1, len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewStoreError("ListJobs", "", err)
	}

	items, err := scanDocuments[models.Job](rows)
	if err != nil {
		return nil, err
	}

	return pageOf(items, total, page, pageSize), nil
}

func (r *JobRepository) ByCluster(ctx context.Context, clusterID string) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM jobs WHERE cluster_id = $1 ORDER BY created_at",
		clusterID,
	)
	if err != nil {
		return nil, persistence.NewStoreError("JobsByCluster", clusterID, err)
	}

	return scanDocuments[models.Job](rows)
}

func (r *JobRepository) Active(ctx context.Context) ([]*models.Job, error) {
	return r.byStatuses(ctx, "ActiveJobs", models.JobStatusRunning, models.JobStatusRetrying)
}

func (r *JobRepository) Pending(ctx context.Context) ([]*models.Job, error) {
	return r.byStatuses(ctx, "PendingJobs", models.JobStatusPending, models.JobStatusQueued)
}

func (r *JobRepository) byStatuses(ctx context.Context, op string, statuses ...models.JobStatus) ([]*models.Job, error) {
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))

	for i, status := range statuses {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = string(status)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM jobs WHERE status IN ("+strings.Join(placeholders, ", ")+") ORDER BY created_at",
		args...,
	)
	if err != nil {
		return nil, persistence.NewStoreError(op, "", err)
	}

	return scanDocuments[models.Job](rows)
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("DeleteJob", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("DeleteJob", id, err)
	}

	if affected == 0 {
		return persistence.ErrJobNotFound
	}

	return nil
}
