// Package services implements the business operations behind the HTTP
// API: workflow CRUD and validation, execution submission, schedule and
// trigger management, and webhook secret handling.
package services

import (
	"errors"
	"fmt"

	"github.com/stratoml/strato/pkg/dag"
	"github.com/stratoml/strato/pkg/models"
)

// Validation errors (400 Bad Request).
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrWorkflowNil         = errors.New("workflow cannot be nil")
	ErrWorkflowNotDeployed = errors.New("workflow is a draft and cannot be executed")
	ErrUnsupportedEvent    = errors.New("unsupported event type")
	ErrScheduleService     = errors.New("schedule service error")
)

// Business logic conflicts (409 Conflict).
var (
	ErrScheduleNotResumable = errors.New("expired or completed schedules cannot be resumed")
	ErrJobTransition        = errors.New("job transition not allowed")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // operation name
	Code    string // stable error code for API responses
	Message string // human-readable message
	Err     error  // underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether err should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNotDeployed) ||
		errors.Is(err, ErrUnsupportedEvent) ||
		errors.Is(err, ErrScheduleService) ||
		errors.Is(err, dag.ErrParse) ||
		errors.Is(err, dag.ErrValidation) ||
		errors.Is(err, dag.ErrCyclicDependency) ||
		errors.Is(err, models.ErrCronParse) ||
		errors.Is(err, models.ErrInvalidSchedule) ||
		errors.Is(err, models.ErrUnsupportedEventType)
}

// IsConflictError reports whether err should surface as HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrScheduleNotResumable) ||
		errors.Is(err, ErrJobTransition)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
