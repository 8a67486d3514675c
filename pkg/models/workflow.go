// Package models defines the core domain models for the strato control plane.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, not executable
	WorkflowStatusPublished WorkflowStatus = "published" // Executable
)

// WorkflowDefinition is the raw, user-supplied description of a multi-step
// deployment/evaluation workflow. It is immutable once parsed; every update
// goes through the DAG parser again.
type WorkflowDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Version     string         `json:"version"     validate:"required"`
	Status      WorkflowStatus `json:"status"`
	Description string         `json:"description,omitempty"`
	Parameters  []Parameter    `json:"parameters"`
	Steps       []*Step        `json:"steps"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Parameter declares a workflow-level input with an optional default.
type Parameter struct {
	Name     string `json:"name" validate:"required"`
	Default  any    `json:"default,omitempty"`
	Required bool   `json:"required"`
}

// StepByID returns the step with the given id, if declared.
func (w *WorkflowDefinition) StepByID(id string) (*Step, bool) {
	for _, step := range w.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return nil, false
}

// ParameterByName returns the declared parameter with the given name.
func (w *WorkflowDefinition) ParameterByName(name string) (Parameter, bool) {
	for _, p := range w.Parameters {
		if p.Name == name {
			return p, true
		}
	}

	return Parameter{}, false
}

// MergeParams overlays caller-supplied values on top of the declared
// defaults. Extra caller keys are kept; they are visible to handlers and
// templates like any declared parameter.
func (w *WorkflowDefinition) MergeParams(supplied map[string]any) map[string]any {
	merged := make(map[string]any, len(w.Parameters)+len(supplied))

	for _, p := range w.Parameters {
		if p.Default != nil {
			merged[p.Name] = p.Default
		}
	}

	for k, v := range supplied {
		merged[k] = v
	}

	return merged
}
