package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types every backend returns for lookup misses.
var (
	ErrWorkflowNotFound   = errors.New("workflow not found")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrJobNotFound        = errors.New("job not found")
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrWebhookNotFound    = errors.New("webhook not found")
	ErrTriggerNotFound    = errors.New("event trigger not found")
	ErrSuspensionNotFound = errors.New("suspension not found")
)

// StoreError wraps a repository failure with the operation and entity id.
type StoreError struct {
	Op       string
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.EntityID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a StoreError with context.
func NewStoreError(op, entityID string, err error) *StoreError {
	return &StoreError{Op: op, EntityID: entityID, Err: err}
}

func IsWorkflowNotFound(err error) bool   { return errors.Is(err, ErrWorkflowNotFound) }
func IsExecutionNotFound(err error) bool  { return errors.Is(err, ErrExecutionNotFound) }
func IsJobNotFound(err error) bool        { return errors.Is(err, ErrJobNotFound) }
func IsScheduleNotFound(err error) bool   { return errors.Is(err, ErrScheduleNotFound) }
func IsWebhookNotFound(err error) bool    { return errors.Is(err, ErrWebhookNotFound) }
func IsTriggerNotFound(err error) bool    { return errors.Is(err, ErrTriggerNotFound) }
func IsSuspensionNotFound(err error) bool { return errors.Is(err, ErrSuspensionNotFound) }

// IsNotFound reports whether err is any of the lookup-miss sentinels.
func IsNotFound(err error) bool {
	return IsWorkflowNotFound(err) ||
		IsExecutionNotFound(err) ||
		IsJobNotFound(err) ||
		IsScheduleNotFound(err) ||
		IsWebhookNotFound(err) ||
		IsTriggerNotFound(err) ||
		IsSuspensionNotFound(err)
}
