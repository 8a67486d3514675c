package models

// FailurePolicy controls how the engine reacts when a step handler fails
// after its retry budget is exhausted.
type FailurePolicy string

const (
	FailurePolicyRetry    FailurePolicy = "RETRY"
	FailurePolicyContinue FailurePolicy = "CONTINUE"
	FailurePolicyAbort    FailurePolicy = "ABORT"
)

// Step is a single unit of work inside a workflow definition. Action is an
// opaque identifier resolved through the handler registry at run time.
type Step struct {
	ID             string         `json:"id"     validate:"required,lowercase"`
	Name           string         `json:"name"   validate:"required"`
	Action         string         `json:"action" validate:"required"`
	DependsOn      []string       `json:"depends_on,omitempty"`
	Condition      string         `json:"condition,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	Retry          RetryPolicy    `json:"retry"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
	OnFailure      FailurePolicy  `json:"on_failure,omitempty"`
}

// RetryPolicy bounds handler re-invocation. Backoff grows by Multiplier
// per attempt, capped at MaxBackoffSeconds.
type RetryPolicy struct {
	MaxAttempts       int     `json:"max_attempts,omitempty"`
	BackoffSeconds    float64 `json:"backoff_seconds,omitempty"`
	BackoffMultiplier float64 `json:"backoff_multiplier,omitempty"`
	MaxBackoffSeconds float64 `json:"max_backoff_seconds,omitempty"`
}

// FailurePolicyOrDefault returns the declared policy, defaulting to ABORT.
func (s *Step) FailurePolicyOrDefault() FailurePolicy {
	switch s.OnFailure {
	case FailurePolicyRetry, FailurePolicyContinue, FailurePolicyAbort:
		return s.OnFailure
	default:
		return FailurePolicyAbort
	}
}

// RetryOrDefault fills in the policy defaults: a single attempt with a
// one second initial backoff that doubles up to a minute.
func (s *Step) RetryOrDefault() RetryPolicy {
	policy := s.Retry

	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	if policy.BackoffSeconds <= 0 {
		policy.BackoffSeconds = 1
	}

	if policy.BackoffMultiplier <= 0 {
		policy.BackoffMultiplier = 2
	}

	if policy.MaxBackoffSeconds <= 0 {
		policy.MaxBackoffSeconds = 60
	}

	return policy
}
