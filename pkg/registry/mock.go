package registry

import (
	"context"
	"time"

	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/protocol"
)

// MockHandler completes any step immediately with synthetic outputs. It
// stands in for cluster integrations that are not wired in the current
// deployment.
type MockHandler struct{}

func (h *MockHandler) Validate(_ map[string]any) []error { return nil }

func (h *MockHandler) Execute(_ context.Context, hctx protocol.HandlerContext) (*protocol.Result, error) {
	return &protocol.Result{
		Outputs: map[string]any{
			"mocked":       true,
			"step_id":      hctx.StepID,
			"execution_id": hctx.ExecutionID,
			"completed_at": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (h *MockHandler) OnEvent(_ context.Context, _ protocol.HandlerContext, _ *events.PlatformEvent) (protocol.EventOutcome, error) {
	return protocol.EventOutcome{Disposition: protocol.DispositionIgnore}, nil
}
