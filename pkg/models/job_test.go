package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusClassification(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
		active   bool
		pending  bool
	}{
		{JobStatusPending, false, false, true},
		{JobStatusQueued, false, false, true},
		{JobStatusRunning, false, true, false},
		{JobStatusRetrying, false, true, false},
		{JobStatusSucceeded, true, false, false},
		{JobStatusFailed, true, false, false},
		{JobStatusCancelled, true, false, false},
		{JobStatusTimeout, true, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.active, tt.status.IsActive())
			assert.Equal(t, tt.pending, tt.status.IsPending())
		})
	}
}

func TestValidJobType(t *testing.T) {
	for _, jobType := range JobTypes {
		assert.True(t, ValidJobType(jobType))
	}

	assert.False(t, ValidJobType(JobType("gardening")))
	assert.False(t, ValidJobType(JobType("")))
}
