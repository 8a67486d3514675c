package models

import "time"

// JobType enumerates the kinds of delegated cluster work strato tracks.
type JobType string

const (
	JobTypeDeployment       JobType = "deployment"
	JobTypeCustom           JobType = "custom"
	JobTypeFineTuning       JobType = "fine-tuning"
	JobTypeBatchInference   JobType = "batch-inference"
	JobTypeUseCaseComponent JobType = "use-case-component"
	JobTypeBenchmark        JobType = "benchmark"
	JobTypeDataPipeline     JobType = "data-pipeline"
)

// JobTypes lists every supported job type, for request validation.
var JobTypes = []JobType{
	JobTypeDeployment,
	JobTypeCustom,
	JobTypeFineTuning,
	JobTypeBatchInference,
	JobTypeUseCaseComponent,
	JobTypeBenchmark,
	JobTypeDataPipeline,
}

// JobStatus is the lifecycle state of a delegated cluster job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
	JobStatusTimeout   JobStatus = "TIMEOUT"
	JobStatusRetrying  JobStatus = "RETRYING"
)

// Job is a single unit of delegated cluster work. Source and SourceID
// identify the caller that created it (a workflow step, an external API
// client) and its correlation key. Jobs are owned by the job lifecycle
// manager; other components hold references but never mutate them.
type Job struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"   validate:"required"`
	Type         JobType        `json:"type"   validate:"required"`
	Status       JobStatus      `json:"status"`
	Source       string         `json:"source" validate:"required"`
	SourceID     string         `json:"source_id,omitempty"`
	ClusterID    string         `json:"cluster_id,omitempty"`
	RetryCount   int            `json:"retry_count"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsTerminal reports whether the status accepts no further transition.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled, JobStatusTimeout:
		return true
	default:
		return false
	}
}

// IsActive reports whether the job currently consumes cluster resources.
func (s JobStatus) IsActive() bool {
	return s == JobStatusRunning || s == JobStatusRetrying
}

// IsPending reports whether the job is waiting to consume resources.
func (s JobStatus) IsPending() bool {
	return s == JobStatusPending || s == JobStatusQueued
}

// ValidJobType reports whether t is one of the supported job types.
func ValidJobType(t JobType) bool {
	for _, known := range JobTypes {
		if known == t {
			return true
		}
	}

	return false
}
