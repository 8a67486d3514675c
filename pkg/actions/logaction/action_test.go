package logaction

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoml/strato/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestValidate(t *testing.T) {
	handler := NewHandler()

	assert.Empty(t, handler.Validate(map[string]any{"message": "hello"}))
	assert.Len(t, handler.Validate(map[string]any{}), 1)
	assert.Len(t, handler.Validate(nil), 1)
}

func TestExecute(t *testing.T) {
	handler := NewHandler()

	tests := []struct {
		name  string
		level string
	}{
		{name: "default level"},
		{name: "debug", level: "debug"},
		{name: "warn", level: "warn"},
		{name: "error", level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := map[string]any{"message": "deployment finished"}
			if tt.level != "" {
				params["level"] = tt.level
			}

			result, err := handler.Execute(context.Background(), protocol.HandlerContext{
				ExecutionID: "exec-1",
				StepID:      "notify",
				Params:      params,
				Logger:      testLogger(),
			})
			require.NoError(t, err)

			assert.Equal(t, "deployment finished", result.Outputs["message"])
			assert.Nil(t, result.Await)
		})
	}
}
