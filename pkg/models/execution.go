package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "PENDING"
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
)

// StepStatus is the lifecycle state of a single step within an execution.
type StepStatus string

const (
	StepStatusPending   StepStatus = "PENDING"
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusRetrying  StepStatus = "RETRYING"
	StepStatusCompleted StepStatus = "COMPLETED"
	StepStatusFailed    StepStatus = "FAILED"
	StepStatusSkipped   StepStatus = "SKIPPED"
)

// Execution is one run of a workflow. Params holds the workflow defaults
// overlaid with caller-supplied values; Steps is keyed by step id and owned
// exclusively by the execution engine for the lifetime of the run.
type Execution struct {
	ID          string                `json:"id"`
	WorkflowID  string                `json:"workflow_id"`
	Status      ExecutionStatus       `json:"status"`
	Params      map[string]any        `json:"params,omitempty"`
	Steps       map[string]*StepState `json:"steps"`
	Outputs     map[string]any        `json:"outputs,omitempty"`
	Error       string                `json:"error,omitempty"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// StepState records the progress of one step within an execution. Outputs
// are populated only after the step reaches COMPLETED.
type StepState struct {
	StepID      string         `json:"step_id"`
	Status      StepStatus     `json:"status"`
	Attempt     int            `json:"attempt,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	SkipReason  string         `json:"skip_reason,omitempty"`
	Progress    float64        `json:"progress,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Suspension is the durable record of a step parked on an external
// completion signal. It carries everything needed to resume the step after
// a process restart: the correlation id events are matched against and the
// deadline for the timeout sweep.
type Suspension struct {
	ExecutionID   string    `json:"execution_id"`
	StepID        string    `json:"step_id"`
	CorrelationID string    `json:"correlation_id"`
	Deadline      time.Time `json:"deadline"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsTerminal reports whether no further status transition is allowed.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the execution has finished.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}
