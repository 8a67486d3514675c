// Package events defines the messages exchanged over the strato event bus.
package events

import (
	"time"
)

// EventType tags every bus message for dispatch.
type EventType string

// Topic is the bus topic all strato events travel on.
const Topic = "strato.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// ExecutionRequestedEvent asks a worker to run a workflow.
	ExecutionRequestedEvent EventType = "execution.requested"
	// ExecutionFinishedEvent announces a completed run.
	ExecutionFinishedEvent EventType = "execution.finished"
	// ExecutionFailedEvent announces a failed run.
	ExecutionFailedEvent EventType = "execution.failed"
	// PlatformEventReceived carries an inbound cluster/platform event.
	PlatformEventReceived EventType = "platform.event"
)

// BaseEvent carries the fields shared by every bus message.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// TriggerSource identifies what enqueued an execution request.
type TriggerSource string

const (
	TriggerSourceAPI      TriggerSource = "api"
	TriggerSourceSchedule TriggerSource = "schedule"
	TriggerSourceWebhook  TriggerSource = "webhook"
	TriggerSourceEvent    TriggerSource = "event-trigger"
)

// ExecutionRequested enqueues one workflow run. Params are the
// caller-supplied values merged into workflow defaults by the engine.
type ExecutionRequested struct {
	BaseEvent

	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	TriggeredBy TriggerSource  `json:"triggered_by"`
	SourceID    string         `json:"source_id,omitempty"`
}

func (e ExecutionRequested) GetType() EventType { return ExecutionRequestedEvent }

// ExecutionFinished is published after an execution reaches COMPLETED.
type ExecutionFinished struct {
	BaseEvent

	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	Outputs     map[string]any `json:"outputs,omitempty"`
}

func (e ExecutionFinished) GetType() EventType { return ExecutionFinishedEvent }

// ExecutionFailed is published after an execution reaches FAILED.
type ExecutionFailed struct {
	BaseEvent

	WorkflowID  string `json:"workflow_id"`
	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }
