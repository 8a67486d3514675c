package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	evaluator := NewEvaluator()

	params := map[string]any{
		"environment": "prod",
		"replicas":    3,
		"canary":      true,
	}
	stepOutputs := map[string]map[string]any{
		"benchmark": {"score": 0.92, "passed": true},
	}

	tests := []struct {
		name      string
		condition string
		expected  bool
	}{
		{
			name:      "empty condition is true",
			condition: "",
			expected:  true,
		},
		{
			name:      "parameter equality",
			condition: `params.environment == "prod"`,
			expected:  true,
		},
		{
			name:      "parameter inequality",
			condition: `params.environment == "staging"`,
			expected:  false,
		},
		{
			name:      "numeric comparison",
			condition: "params.replicas > 1",
			expected:  true,
		},
		{
			name:      "boolean parameter",
			condition: "params.canary",
			expected:  true,
		},
		{
			name:      "step output threshold",
			condition: "steps.benchmark.score >= 0.9",
			expected:  true,
		},
		{
			name:      "combined clauses",
			condition: `params.environment == "prod" && steps.benchmark.passed`,
			expected:  true,
		},
		{
			name:      "negation",
			condition: "!steps.benchmark.passed",
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evaluator.Evaluate(tt.condition, params, stepOutputs)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluate_CompileError(t *testing.T) {
	evaluator := NewEvaluator()

	_, err := evaluator.Evaluate("params.x ==", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile failed")
}

func TestEvaluate_NonBooleanResult(t *testing.T) {
	evaluator := NewEvaluator()

	_, err := evaluator.Evaluate("params.replicas", map[string]any{"replicas": 3}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want bool")
}

func TestEvaluate_CachesPrograms(t *testing.T) {
	evaluator := NewEvaluator()

	condition := `params.environment == "prod"`

	_, err := evaluator.Evaluate(condition, map[string]any{"environment": "prod"}, nil)
	require.NoError(t, err)

	evaluator.mu.RLock()
	_, cached := evaluator.cache[condition]
	evaluator.mu.RUnlock()

	assert.True(t, cached)
}

func TestReferences(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		expected  []Ref
	}{
		{
			name:      "empty condition",
			condition: "",
			expected:  nil,
		},
		{
			name:      "single parameter",
			condition: `params.environment == "prod"`,
			expected:  []Ref{{Kind: RefParam, Name: "environment"}},
		},
		{
			name:      "parameter and step",
			condition: "params.threshold < steps.benchmark.score",
			expected: []Ref{
				{Kind: RefParam, Name: "threshold"},
				{Kind: RefStep, Name: "benchmark"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := References(tt.condition)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, refs)
		})
	}
}

func TestReferences_UnknownIdentifier(t *testing.T) {
	_, err := References(`env == "prod"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown identifier")
}
