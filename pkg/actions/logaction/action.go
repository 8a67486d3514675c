// Package logaction implements the built-in "log" action: it writes its
// resolved params to the execution log and completes immediately.
package logaction

import (
	"context"
	"fmt"

	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/protocol"
)

const ActionID = "log"

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Validate(params map[string]any) []error {
	if _, ok := params["message"]; !ok {
		return []error{fmt.Errorf("log action requires a message param")}
	}

	return nil
}

func (h *Handler) Execute(_ context.Context, hctx protocol.HandlerContext) (*protocol.Result, error) {
	message := fmt.Sprintf("%v", hctx.Params["message"])

	switch hctx.Params["level"] {
	case "debug":
		hctx.Logger.Debug(message)
	case "warn":
		hctx.Logger.Warn(message)
	case "error":
		hctx.Logger.Error(message)
	default:
		hctx.Logger.Info(message)
	}

	return &protocol.Result{
		Outputs: map[string]any{"message": message},
	}, nil
}

func (h *Handler) OnEvent(_ context.Context, _ protocol.HandlerContext, _ *events.PlatformEvent) (protocol.EventOutcome, error) {
	return protocol.EventOutcome{Disposition: protocol.DispositionIgnore}, nil
}
