// Package job implements the lifecycle state machine for delegated
// cluster work. It is independent of the workflow engine: any caller may
// create and drive jobs, including step handlers that hand work to
// cluster infrastructure.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// MaxJobRetries caps increment_retry_count transitions per job.
const MaxJobRetries = 3

var (
	// ErrInvalidTransition is returned for a transition the state machine
	// does not allow from the job's current status.
	ErrInvalidTransition = fmt.Errorf("invalid job transition")
	// ErrRetriesExhausted is returned when a retry is requested at or past
	// the retry limit.
	ErrRetriesExhausted = fmt.Errorf("job retries exhausted")
)

// Manager owns every job mutation. Other components read jobs through
// the repository but never write them.
type Manager struct {
	jobs      persistence.JobRepository
	validator *validator.Validate
	logger    *slog.Logger
}

func NewManager(jobs persistence.JobRepository, logger *slog.Logger) *Manager {
	return &Manager{
		jobs:      jobs,
		validator: validator.New(),
		logger:    logger.With("module", "job"),
	}
}

// CreateJobRequest carries the caller-supplied fields of a new job.
type CreateJobRequest struct {
	Name      string         `validate:"required"`
	Type      models.JobType `validate:"required"`
	Source    string         `validate:"required"`
	SourceID  string
	ClusterID string
	Config    map[string]any
}

// Create registers a new PENDING job.
func (m *Manager) Create(ctx context.Context, req CreateJobRequest) (*models.Job, error) {
	if err := m.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}

	if !models.ValidJobType(req.Type) {
		return nil, fmt.Errorf("invalid job: unknown type %q", req.Type)
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      req.Type,
		Status:    models.JobStatusPending,
		Source:    req.Source,
		SourceID:  req.SourceID,
		ClusterID: req.ClusterID,
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	m.logger.Info("Job created", "job_id", job.ID, "type", job.Type, "source", job.Source)

	return job, nil
}

// Get fetches a job by id.
func (m *Manager) Get(ctx context.Context, id string) (*models.Job, error) {
	return m.jobs.GetByID(ctx, id)
}

// GetBySource fetches the most recent job created by (source, source_id).
func (m *Manager) GetBySource(ctx context.Context, source, sourceID string) (*models.Job, error) {
	return m.jobs.GetBySource(ctx, source, sourceID)
}

// List pages jobs with optional type/status/cluster filters.
func (m *Manager) List(ctx context.Context, opts persistence.ListJobsOptions) (*persistence.Page[*models.Job], error) {
	return m.jobs.List(ctx, opts)
}

// ByCluster lists every job referencing the given cluster.
func (m *Manager) ByCluster(ctx context.Context, clusterID string) ([]*models.Job, error) {
	return m.jobs.ByCluster(ctx, clusterID)
}

// Active lists jobs currently consuming cluster resources.
func (m *Manager) Active(ctx context.Context) ([]*models.Job, error) {
	return m.jobs.Active(ctx)
}

// Pending lists jobs waiting to consume cluster resources.
func (m *Manager) Pending(ctx context.Context) ([]*models.Job, error) {
	return m.jobs.Pending(ctx)
}

// Queue moves a PENDING job to QUEUED.
func (m *Manager) Queue(ctx context.Context, id string) (*models.Job, error) {
	return m.transition(ctx, id, func(job *models.Job) error {
		if job.Status != models.JobStatusPending {
			return fmt.Errorf("%w: %s -> QUEUED", ErrInvalidTransition, job.Status)
		}

		job.Status = models.JobStatusQueued

		return nil
	})
}

// Start moves a waiting or retrying job to RUNNING. started_at is set on
// the first start only.
func (m *Manager) Start(ctx context.Context, id string) (*models.Job, error) {
	return m.transition(ctx, id, func(job *models.Job) error {
		if !job.Status.IsPending() && job.Status != models.JobStatusRetrying {
			return fmt.Errorf("%w: %s -> RUNNING", ErrInvalidTransition, job.Status)
		}

		job.Status = models.JobStatusRunning
		if job.StartedAt == nil {
			now := time.Now().UTC()
			job.StartedAt = &now
		}

		return nil
	})
}

// Complete moves a job to SUCCEEDED.
func (m *Manager) Complete(ctx context.Context, id string) (*models.Job, error) {
	return m.terminal(ctx, id, models.JobStatusSucceeded, "")
}

// Fail moves a job to FAILED recording the error message.
func (m *Manager) Fail(ctx context.Context, id, errorMessage string) (*models.Job, error) {
	return m.terminal(ctx, id, models.JobStatusFailed, errorMessage)
}

// Cancel moves a job to CANCELLED.
func (m *Manager) Cancel(ctx context.Context, id string) (*models.Job, error) {
	return m.terminal(ctx, id, models.JobStatusCancelled, "")
}

// Timeout moves a job to TIMEOUT.
func (m *Manager) Timeout(ctx context.Context, id string) (*models.Job, error) {
	return m.terminal(ctx, id, models.JobStatusTimeout, "job deadline exceeded")
}

// Retry increments retry_count and moves the job to RETRYING. Permitted
// only from RUNNING, FAILED or TIMEOUT, and only while
// retry_count < MaxJobRetries. SUCCEEDED and CANCELLED jobs are done;
// retrying them would resurrect work nobody wants re-run.
func (m *Manager) Retry(ctx context.Context, id string) (*models.Job, error) {
	return m.transition(ctx, id, func(job *models.Job) error {
		switch job.Status {
		case models.JobStatusRunning, models.JobStatusFailed, models.JobStatusTimeout:
		default:
			return fmt.Errorf("%w: %s -> RETRYING", ErrInvalidTransition, job.Status)
		}

		if !CanRetry(job) {
			return fmt.Errorf("%w: retry_count %d", ErrRetriesExhausted, job.RetryCount)
		}

		job.RetryCount++
		job.Status = models.JobStatusRetrying

		return nil
	})
}

// SetJobError records an error message and forces FAILED regardless of
// the job's prior state.
func (m *Manager) SetJobError(ctx context.Context, id, errorMessage string) (*models.Job, error) {
	return m.transition(ctx, id, func(job *models.Job) error {
		job.ErrorMessage = errorMessage
		job.Status = models.JobStatusFailed

		if job.CompletedAt == nil {
			now := time.Now().UTC()
			job.CompletedAt = &now
		}

		return nil
	})
}

// Delete removes a job permanently.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.jobs.Delete(ctx, id)
}

// CanRetry reports whether the job is still within its retry budget.
func CanRetry(job *models.Job) bool {
	return job.RetryCount < MaxJobRetries
}

// terminal applies a terminal transition. Re-entering the same terminal
// status is a no-op; reaching a different terminal status from a terminal
// one is rejected.
func (m *Manager) terminal(ctx context.Context, id string, status models.JobStatus, errorMessage string) (*models.Job, error) {
	return m.transition(ctx, id, func(job *models.Job) error {
		if job.Status.IsTerminal() {
			if job.Status == status {
				return errNoop
			}

			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
		}

		job.Status = status
		if errorMessage != "" {
			job.ErrorMessage = errorMessage
		}

		if job.CompletedAt == nil {
			now := time.Now().UTC()
			job.CompletedAt = &now
		}

		return nil
	})
}

// errNoop signals an idempotent transition that requires no save.
var errNoop = fmt.Errorf("noop")

func (m *Manager) transition(ctx context.Context, id string, mutate func(*models.Job) error) (*models.Job, error) {
	job, err := m.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := job.Status

	if err := mutate(job); err != nil {
		if err == errNoop {
			return job, nil
		}

		return nil, err
	}

	job.UpdatedAt = time.Now().UTC()

	if err := m.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	m.logger.Info("Job transitioned",
		"job_id", job.ID, "from", previous, "to", job.Status, "retry_count", job.RetryCount)

	return job, nil
}
