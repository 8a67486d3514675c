// Package web provides the HTTP handlers and request/response types of
// the strato API.
package web

import (
	"time"

	"github.com/stratoml/strato/pkg/models"
)

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string             `json:"name"        validate:"required,min=3"`
	Version     string             `json:"version"     validate:"required"`
	Description string             `json:"description,omitempty"`
	Parameters  []models.Parameter `json:"parameters,omitempty"`
	Steps       []*models.Step     `json:"steps,omitempty"`
	Outputs     map[string]any     `json:"outputs,omitempty"`
}

// Definition converts the request into the domain model.
func (r *CreateWorkflowRequest) Definition() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		Name:        r.Name,
		Version:     r.Version,
		Description: r.Description,
		Parameters:  r.Parameters,
		Steps:       r.Steps,
		Outputs:     r.Outputs,
	}
}

// TriggerExecutionRequest is the request body for submitting a run.
type TriggerExecutionRequest struct {
	WorkflowID string         `json:"workflow_id" validate:"required"`
	Params     map[string]any `json:"params,omitempty"`
}

// CreateJobRequest is the request body for creating a delegated job.
type CreateJobRequest struct {
	Name      string         `json:"name"   validate:"required"`
	Type      string         `json:"type"   validate:"required"`
	Source    string         `json:"source" validate:"required"`
	SourceID  string         `json:"source_id,omitempty"`
	ClusterID string         `json:"cluster_id,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
}

// FailJobRequest carries the error message for a fail transition.
type FailJobRequest struct {
	ErrorMessage string `json:"error_message" validate:"required"`
}

// CreateScheduleRequest is the request body for creating a schedule.
type CreateScheduleRequest struct {
	WorkflowID string         `json:"workflow_id" validate:"required"`
	Type       string         `json:"type"        validate:"required"`
	Expression string         `json:"expression,omitempty"`
	Timezone   string         `json:"timezone,omitempty"`
	RunAt      *time.Time     `json:"run_at,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	MaxRuns    int            `json:"max_runs,omitempty"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// Schedule converts the request into the domain model.
func (r *CreateScheduleRequest) Schedule() *models.Schedule {
	return &models.Schedule{
		WorkflowID: r.WorkflowID,
		Type:       models.ScheduleType(r.Type),
		Expression: r.Expression,
		Timezone:   r.Timezone,
		RunAt:      r.RunAt,
		Params:     r.Params,
		Enabled:    true,
		MaxRuns:    r.MaxRuns,
		ExpiresAt:  r.ExpiresAt,
	}
}

// CreateWebhookRequest is the request body for creating a webhook.
type CreateWebhookRequest struct {
	WorkflowID    string         `json:"workflow_id" validate:"required"`
	AllowedIPs    []string       `json:"allowed_ips,omitempty"`
	Params        map[string]any `json:"params,omitempty"`
	RequireSecret bool           `json:"require_secret"`
}

// UpdateWebhookRequest is the request body for updating a webhook.
type UpdateWebhookRequest struct {
	AllowedIPs []string       `json:"allowed_ips,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Enabled    bool           `json:"enabled"`
}

// WebhookCreatedResponse carries the plaintext secret exactly once.
type WebhookCreatedResponse struct {
	Webhook *models.Webhook `json:"webhook"`
	Secret  string          `json:"secret,omitempty"`
}

// SecretResponse carries a rotated secret exactly once.
type SecretResponse struct {
	Secret string `json:"secret"`
}

// CreateEventTriggerRequest is the request body for creating a trigger.
type CreateEventTriggerRequest struct {
	WorkflowID string         `json:"workflow_id" validate:"required"`
	EventType  string         `json:"event_type"  validate:"required"`
	Filters    map[string]any `json:"filters,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
}

// Trigger converts the request into the domain model.
func (r *CreateEventTriggerRequest) Trigger() *models.EventTrigger {
	return &models.EventTrigger{
		WorkflowID: r.WorkflowID,
		EventType:  r.EventType,
		Filters:    r.Filters,
		Params:     r.Params,
		Enabled:    true,
	}
}

// CanRetryResponse reports a job's remaining retry budget.
type CanRetryResponse struct {
	JobID      string `json:"job_id"`
	RetryCount int    `json:"retry_count"`
	CanRetry   bool   `json:"can_retry"`
}

// ValidateWorkflowResponse carries the parsed execution order.
type ValidateWorkflowResponse struct {
	Valid   bool       `json:"valid"`
	Draft   bool       `json:"draft"`
	Batches [][]string `json:"batches,omitempty"`
}
