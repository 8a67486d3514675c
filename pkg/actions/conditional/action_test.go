package conditional

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoml/strato/pkg/protocol"
)

func testContext(params map[string]any) protocol.HandlerContext {
	return protocol.HandlerContext{
		ExecutionID: "exec-1",
		StepID:      "route",
		Params:      params,
		Logger:      slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func TestValidate(t *testing.T) {
	handler := NewHandler()

	tests := []struct {
		name     string
		params   map[string]any
		expected int
	}{
		{
			name: "complete params",
			params: map[string]any{
				"value":    "prod",
				"cases":    map[string]any{"prod": "deploy-prod"},
				"branches": []any{"deploy-prod", "deploy-staging"},
			},
			expected: 0,
		},
		{
			name:     "everything missing",
			params:   map[string]any{},
			expected: 3,
		},
		{
			name: "branches of wrong type",
			params: map[string]any{
				"value":    "x",
				"cases":    map[string]any{},
				"branches": "deploy-prod",
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, handler.Validate(tt.params), tt.expected)
		})
	}
}

func TestExecute_CaseMatch(t *testing.T) {
	handler := NewHandler()

	result, err := handler.Execute(context.Background(), testContext(map[string]any{
		"value":    "prod",
		"cases":    map[string]any{"prod": "deploy-prod", "staging": "deploy-staging"},
		"branches": []any{"deploy-prod", "deploy-staging"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "deploy-prod", result.Outputs["target_step"])
	assert.Equal(t, "prod", result.Outputs["value"])
	assert.Nil(t, result.Await)
}

func TestExecute_NonStringValue(t *testing.T) {
	handler := NewHandler()

	// Values are compared by their string form.
	result, err := handler.Execute(context.Background(), testContext(map[string]any{
		"value":    3,
		"cases":    map[string]any{"3": "scale-up"},
		"branches": []any{"scale-up"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "scale-up", result.Outputs["target_step"])
}

func TestExecute_DefaultBranch(t *testing.T) {
	handler := NewHandler()

	result, err := handler.Execute(context.Background(), testContext(map[string]any{
		"value":    "unknown",
		"cases":    map[string]any{"prod": "deploy-prod"},
		"branches": []any{"deploy-prod", "fallback"},
		"default":  "fallback",
	}))
	require.NoError(t, err)

	assert.Equal(t, "fallback", result.Outputs["target_step"])
}

func TestExecute_NoMatchNoDefault(t *testing.T) {
	handler := NewHandler()

	_, err := handler.Execute(context.Background(), testContext(map[string]any{
		"value":    "unknown",
		"cases":    map[string]any{"prod": "deploy-prod"},
		"branches": []any{"deploy-prod"},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no branch matched")
}

func TestExecute_TargetOutsideBranches(t *testing.T) {
	handler := NewHandler()

	_, err := handler.Execute(context.Background(), testContext(map[string]any{
		"value":    "prod",
		"cases":    map[string]any{"prod": "somewhere-else"},
		"branches": []any{"deploy-prod"},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the declared branches")
}
