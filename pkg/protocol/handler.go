// Package protocol defines the contract between the execution engine and
// pluggable step handlers.
package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/stratoml/strato/pkg/events"
)

// HandlerContext is everything a handler sees for one invocation of one
// step: its resolved params, the merged workflow params, the outputs of
// every completed step, and the current attempt number.
type HandlerContext struct {
	ExecutionID    string
	WorkflowID     string
	StepID         string
	Params         map[string]any
	WorkflowParams map[string]any
	StepOutputs    map[string]map[string]any
	Attempt        int
	Timeout        time.Duration
	Logger         *slog.Logger
}

// Result is a handler's terminal or suspending outcome. A nil Await means
// the step completed synchronously with the given outputs. A non-nil
// Await parks the step until an event addressed to CorrelationID arrives
// or MaxWait elapses.
type Result struct {
	Outputs map[string]any
	Await   *Await
}

// Await asks the engine to suspend the step pending an external
// completion signal.
type Await struct {
	CorrelationID string
	MaxWait       time.Duration
}

// EventDisposition classifies an inbound event for a suspended step.
type EventDisposition int

const (
	// DispositionIgnore leaves the step untouched.
	DispositionIgnore EventDisposition = iota
	// DispositionProgress updates the observable completion percentage
	// without changing status.
	DispositionProgress
	// DispositionComplete resolves the suspension, transitioning the step
	// exactly as a synchronous handler result would.
	DispositionComplete
)

// EventOutcome is a handler's classification of one inbound event.
type EventOutcome struct {
	Disposition EventDisposition
	Progress    float64        // for DispositionProgress
	Success     bool           // for DispositionComplete
	Outputs     map[string]any // for successful completion
	Message     string         // failure detail for unsuccessful completion
}

// StepHandler is one registered action implementation. Unregistered
// actions fall back to the mock handler rather than failing.
type StepHandler interface {
	// Validate inspects resolved params before execution and returns
	// every problem found.
	Validate(params map[string]any) []error

	// Execute performs the step. A Result with Await suspends the step.
	Execute(ctx context.Context, hctx HandlerContext) (*Result, error)

	// OnEvent classifies an inbound platform event addressed to a
	// suspension this handler created.
	OnEvent(ctx context.Context, hctx HandlerContext, event *events.PlatformEvent) (EventOutcome, error)
}
