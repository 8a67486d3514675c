package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeParams(t *testing.T) {
	def := &WorkflowDefinition{
		Parameters: []Parameter{
			{Name: "environment", Default: "staging"},
			{Name: "replicas", Default: 2},
			{Name: "model_uri", Required: true},
		},
	}

	t.Run("defaults only", func(t *testing.T) {
		merged := def.MergeParams(nil)
		assert.Equal(t, map[string]any{"environment": "staging", "replicas": 2}, merged)
	})

	t.Run("supplied overrides defaults", func(t *testing.T) {
		merged := def.MergeParams(map[string]any{"environment": "prod"})
		assert.Equal(t, "prod", merged["environment"])
		assert.Equal(t, 2, merged["replicas"])
	})

	t.Run("extra keys are kept", func(t *testing.T) {
		merged := def.MergeParams(map[string]any{"debug": true})
		assert.Equal(t, true, merged["debug"])
	})
}

func TestStepByID(t *testing.T) {
	def := &WorkflowDefinition{
		Steps: []*Step{{ID: "train"}, {ID: "deploy"}},
	}

	step, ok := def.StepByID("deploy")
	assert.True(t, ok)
	assert.Equal(t, "deploy", step.ID)

	_, ok = def.StepByID("ghost")
	assert.False(t, ok)
}

func TestFailurePolicyOrDefault(t *testing.T) {
	assert.Equal(t, FailurePolicyAbort, (&Step{}).FailurePolicyOrDefault())
	assert.Equal(t, FailurePolicyRetry, (&Step{OnFailure: FailurePolicyRetry}).FailurePolicyOrDefault())
	assert.Equal(t, FailurePolicyAbort, (&Step{OnFailure: "EXPLODE"}).FailurePolicyOrDefault())
}

func TestRetryOrDefault(t *testing.T) {
	t.Run("all defaults", func(t *testing.T) {
		policy := (&Step{}).RetryOrDefault()
		assert.Equal(t, 1, policy.MaxAttempts)
		assert.Equal(t, 1.0, policy.BackoffSeconds)
		assert.Equal(t, 2.0, policy.BackoffMultiplier)
		assert.Equal(t, 60.0, policy.MaxBackoffSeconds)
	})

	t.Run("declared values kept", func(t *testing.T) {
		step := &Step{Retry: RetryPolicy{MaxAttempts: 5, BackoffSeconds: 0.5}}
		policy := step.RetryOrDefault()
		assert.Equal(t, 5, policy.MaxAttempts)
		assert.Equal(t, 0.5, policy.BackoffSeconds)
	})
}

func TestStatusTerminality(t *testing.T) {
	assert.True(t, ExecutionStatusCompleted.IsTerminal())
	assert.True(t, ExecutionStatusFailed.IsTerminal())
	assert.False(t, ExecutionStatusPending.IsTerminal())
	assert.False(t, ExecutionStatusRunning.IsTerminal())

	assert.True(t, StepStatusCompleted.IsTerminal())
	assert.True(t, StepStatusFailed.IsTerminal())
	assert.True(t, StepStatusSkipped.IsTerminal())
	assert.False(t, StepStatusPending.IsTerminal())
	assert.False(t, StepStatusRunning.IsTerminal())
	assert.False(t, StepStatusRetrying.IsTerminal())
}
