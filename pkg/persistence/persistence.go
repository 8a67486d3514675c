// Package persistence defines the durable store contract for workflows,
// executions, jobs, schedules, webhooks and event triggers. Backends must
// preserve entity identity and status across a process restart and commit
// a status transition together with its timestamp side effects.
package persistence

import (
	"context"
	"time"

	"github.com/stratoml/strato/pkg/models"
)

// Persistence aggregates the per-entity repositories of one backend.
type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Suspensions() SuspensionRepository
	Jobs() JobRepository
	Schedules() ScheduleRepository
	Webhooks() WebhookRepository
	EventTriggers() EventTriggerRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Save(ctx context.Context, def *models.WorkflowDefinition) error
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	List(ctx context.Context, opts ListOptions) (*Page[*models.WorkflowDefinition], error)
	Delete(ctx context.Context, id string) error
}

// ListExecutionsOptions filters and paginates execution listings.
type ListExecutionsOptions struct {
	WorkflowID string
	Status     models.ExecutionStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// ExecutionRepository stores workflow runs and their step states.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	List(ctx context.Context, opts ListExecutionsOptions) (*Page[*models.Execution], error)
}

// SuspensionRepository stores parked event-driven steps so in-flight
// executions survive a worker restart.
type SuspensionRepository interface {
	Save(ctx context.Context, s *models.Suspension) error
	GetByCorrelationID(ctx context.Context, correlationID string) (*models.Suspension, error)
	List(ctx context.Context) ([]*models.Suspension, error)
	Expired(ctx context.Context, now time.Time) ([]*models.Suspension, error)
	Delete(ctx context.Context, correlationID string) error
}

// ListJobsOptions filters and paginates job listings.
type ListJobsOptions struct {
	Type      models.JobType
	Status    models.JobStatus
	ClusterID string
	Page      int
	PageSize  int
}

// JobRepository stores delegated cluster jobs.
type JobRepository interface {
	Save(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	GetBySource(ctx context.Context, source, sourceID string) (*models.Job, error)
	List(ctx context.Context, opts ListJobsOptions) (*Page[*models.Job], error)
	ByCluster(ctx context.Context, clusterID string) ([]*models.Job, error)
	Active(ctx context.Context) ([]*models.Job, error)
	Pending(ctx context.Context) ([]*models.Job, error)
	Delete(ctx context.Context, id string) error
}

// ScheduleRepository stores workflow schedules.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *models.Schedule) error
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	List(ctx context.Context, opts ListOptions) (*Page[*models.Schedule], error)
	Due(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	Delete(ctx context.Context, id string) error
}

// WebhookRepository stores webhook configurations. Only secret hashes are
// persisted, never plaintext secrets.
type WebhookRepository interface {
	Save(ctx context.Context, webhook *models.Webhook) error
	GetByID(ctx context.Context, id string) (*models.Webhook, error)
	List(ctx context.Context, opts ListOptions) (*Page[*models.Webhook], error)
	Delete(ctx context.Context, id string) error
}

// EventTriggerRepository stores platform event triggers.
type EventTriggerRepository interface {
	Save(ctx context.Context, trigger *models.EventTrigger) error
	GetByID(ctx context.Context, id string) (*models.EventTrigger, error)
	List(ctx context.Context, opts ListOptions) (*Page[*models.EventTrigger], error)
	ByEventType(ctx context.Context, eventType string) ([]*models.EventTrigger, error)
	Delete(ctx context.Context, id string) error
}

// ListOptions is plain pagination for entities without bespoke filters.
type ListOptions struct {
	Page     int
	PageSize int
}

// Page is one page of a listing plus its pagination envelope.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPage slices items into the requested page and fills the envelope.
// Page numbering is 1-based; a zero or negative page size defaults to 20.
func NewPage[T any](items []T, page, pageSize int) *Page[T] {
	if pageSize <= 0 {
		pageSize = 20
	}

	if page <= 0 {
		page = 1
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	return &Page[T]{
		Items:      items[start:end],
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
