package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEventType(t *testing.T) {
	for _, supported := range SupportedEventTypes {
		assert.True(t, ValidEventType(supported.Type))
	}

	assert.False(t, ValidEventType("job.paused"))
	assert.False(t, ValidEventType(""))
}

func TestEventTriggerMatches(t *testing.T) {
	payload := map[string]any{
		"cluster": "gpu-east",
		"job": map[string]any{
			"type":   "benchmark",
			"status": "succeeded",
		},
	}

	tests := []struct {
		name     string
		trigger  EventTrigger
		expected bool
	}{
		{
			name:     "no filters matches everything",
			trigger:  EventTrigger{EventType: "job.succeeded", Enabled: true},
			expected: true,
		},
		{
			name: "top level filter",
			trigger: EventTrigger{
				EventType: "job.succeeded",
				Enabled:   true,
				Filters:   map[string]any{"cluster": "gpu-east"},
			},
			expected: true,
		},
		{
			name: "dot path filter",
			trigger: EventTrigger{
				EventType: "job.succeeded",
				Enabled:   true,
				Filters:   map[string]any{"job.type": "benchmark"},
			},
			expected: true,
		},
		{
			name: "filter mismatch",
			trigger: EventTrigger{
				EventType: "job.succeeded",
				Enabled:   true,
				Filters:   map[string]any{"cluster": "gpu-west"},
			},
			expected: false,
		},
		{
			name: "missing path never matches",
			trigger: EventTrigger{
				EventType: "job.succeeded",
				Enabled:   true,
				Filters:   map[string]any{"job.owner": "mlops"},
			},
			expected: false,
		},
		{
			name: "path through non-map",
			trigger: EventTrigger{
				EventType: "job.succeeded",
				Enabled:   true,
				Filters:   map[string]any{"cluster.zone": "a"},
			},
			expected: false,
		},
		{
			name:     "wrong event type",
			trigger:  EventTrigger{EventType: "job.failed", Enabled: true},
			expected: false,
		},
		{
			name:     "disabled trigger",
			trigger:  EventTrigger{EventType: "job.succeeded", Enabled: false},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.trigger.Matches("job.succeeded", payload))
		})
	}
}
