package models

import (
	"errors"
	"strings"
	"time"
)

// ErrUnsupportedEventType is returned when a trigger references an event
// type outside the supported set.
var ErrUnsupportedEventType = errors.New("unsupported event type")

// SupportedEventType describes one platform event a trigger may bind to.
type SupportedEventType struct {
	Type        string `json:"type"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

// SupportedEventTypes is the closed set of platform events that can start
// workflow runs. Triggers bound to anything else are rejected.
var SupportedEventTypes = []SupportedEventType{
	{Type: "job.succeeded", Source: "cluster", Description: "A delegated cluster job finished successfully"},
	{Type: "job.failed", Source: "cluster", Description: "A delegated cluster job failed"},
	{Type: "deployment.created", Source: "control-plane", Description: "A model deployment was created"},
	{Type: "deployment.deleted", Source: "control-plane", Description: "A model deployment was removed"},
	{Type: "model.published", Source: "catalog", Description: "A model version was published to the catalog"},
	{Type: "benchmark.finished", Source: "cluster", Description: "A benchmark run produced results"},
	{Type: "cluster.scaled", Source: "cluster", Description: "A compute cluster changed capacity"},
	{Type: "dataset.updated", Source: "catalog", Description: "A dataset referenced by pipelines changed"},
}

// EventTrigger starts a workflow run whenever a matching platform event
// arrives. Filters are dot-path equality conditions over the event payload.
type EventTrigger struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id" validate:"required"`
	EventType  string         `json:"event_type"  validate:"required"`
	Filters    map[string]any `json:"filters,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Enabled    bool           `json:"enabled"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ValidEventType reports whether the given type is in the supported set.
func ValidEventType(eventType string) bool {
	for _, supported := range SupportedEventTypes {
		if supported.Type == eventType {
			return true
		}
	}

	return false
}

// Matches reports whether an event payload satisfies every filter. Each
// filter key is a dot path into the payload; a missing path never matches.
func (t *EventTrigger) Matches(eventType string, payload map[string]any) bool {
	if !t.Enabled || t.EventType != eventType {
		return false
	}

	for path, want := range t.Filters {
		got, found := lookupPath(payload, path)
		if !found || got != want {
			return false
		}
	}

	return true
}

// lookupPath traverses nested maps following a dot-separated path.
func lookupPath(payload map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = payload

	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
