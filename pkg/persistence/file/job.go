package file

import (
	"context"
	"sort"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

const jobsDir = "jobs"

// JobRepository stores cluster jobs as JSON files.
type JobRepository struct {
	root string
}

func (r *JobRepository) Save(_ context.Context, job *models.Job) error {
	return writeJSON(r.root, jobsDir, job.ID, job)
}

func (r *JobRepository) GetByID(_ context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := readJSON(r.root, jobsDir, id, &job, persistence.ErrJobNotFound); err != nil {
		return nil, err
	}

	return &job, nil
}

func (r *JobRepository) GetBySource(ctx context.Context, source, sourceID string) (*models.Job, error) {
	all, err := readAll[models.Job](r.root, jobsDir)
	if err != nil {
		return nil, err
	}

	var newest *models.Job

	for _, job := range all {
		if job.Source != source || job.SourceID != sourceID {
			continue
		}

		if newest == nil || job.CreatedAt.After(newest.CreatedAt) {
			newest = job
		}
	}

	if newest == nil {
		return nil, persistence.ErrJobNotFound
	}

	return newest, nil
}

func (r *JobRepository) List(_ context.Context, opts persistence.ListJobsOptions) (*persistence.Page[*models.Job], error) {
	all, err := readAll[models.Job](r.root, jobsDir)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Job, 0, len(all))

	for _, job := range all {
		if opts.Type != "" && job.Type != opts.Type {
			continue
		}

		if opts.Status != "" && job.Status != opts.Status {
			continue
		}

		if opts.ClusterID != "" && job.ClusterID != opts.ClusterID {
			continue
		}

		filtered = append(filtered, job)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	return persistence.NewPage(filtered, opts.Page, opts.PageSize), nil
}

func (r *JobRepository) ByCluster(_ context.Context, clusterID string) ([]*models.Job, error) {
	all, err := readAll[models.Job](r.root, jobsDir)
	if err != nil {
		return nil, err
	}

	jobs := make([]*models.Job, 0)

	for _, job := range all {
		if job.ClusterID == clusterID {
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

func (r *JobRepository) Active(_ context.Context) ([]*models.Job, error) {
	return r.byPredicate(func(s models.JobStatus) bool { return s.IsActive() })
}

func (r *JobRepository) Pending(_ context.Context) ([]*models.Job, error) {
	return r.byPredicate(func(s models.JobStatus) bool { return s.IsPending() })
}

func (r *JobRepository) Delete(_ context.Context, id string) error {
	return remove(r.root, jobsDir, id, persistence.ErrJobNotFound)
}

func (r *JobRepository) byPredicate(match func(models.JobStatus) bool) ([]*models.Job, error) {
	all, err := readAll[models.Job](r.root, jobsDir)
	if err != nil {
		return nil, err
	}

	jobs := make([]*models.Job, 0)

	for _, job := range all {
		if match(job.Status) {
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}
