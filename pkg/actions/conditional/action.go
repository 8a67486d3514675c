// Package conditional implements the built-in branching action. It
// compares a resolved value against a case table and reports the branch
// step that matched; the engine then prunes the branches that did not.
package conditional

import (
	"context"
	"fmt"

	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/protocol"
)

const ActionID = "conditional"

// Handler selects one branch target from its params:
//
//	value:    the already-resolved value to branch on
//	cases:    map of candidate value -> branch step id
//	branches: every branch step id this step may select
//	default:  branch step id when no case matches (optional)
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Validate(params map[string]any) []error {
	var errs []error

	if _, ok := params["value"]; !ok {
		errs = append(errs, fmt.Errorf("conditional action requires a value param"))
	}

	if _, ok := params["cases"].(map[string]any); !ok {
		errs = append(errs, fmt.Errorf("conditional action requires a cases map"))
	}

	if branches(params) == nil {
		errs = append(errs, fmt.Errorf("conditional action requires a branches list"))
	}

	return errs
}

func (h *Handler) Execute(_ context.Context, hctx protocol.HandlerContext) (*protocol.Result, error) {
	value := fmt.Sprintf("%v", hctx.Params["value"])
	cases, _ := hctx.Params["cases"].(map[string]any)

	target, _ := cases[value].(string)
	if target == "" {
		target, _ = hctx.Params["default"].(string)
	}

	if target == "" {
		return nil, fmt.Errorf("no branch matched value %q and no default is set", value)
	}

	declared := branches(hctx.Params)
	if !contains(declared, target) {
		return nil, fmt.Errorf("selected branch %q is not in the declared branches", target)
	}

	hctx.Logger.Info("Branch selected", "value", value, "target_step", target)

	return &protocol.Result{
		Outputs: map[string]any{
			"target_step": target,
			"value":       value,
		},
	}, nil
}

func (h *Handler) OnEvent(_ context.Context, _ protocol.HandlerContext, _ *events.PlatformEvent) (protocol.EventOutcome, error) {
	return protocol.EventOutcome{Disposition: protocol.DispositionIgnore}, nil
}

func branches(params map[string]any) []string {
	switch raw := params["branches"].(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))

		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				return nil
			}

			out = append(out, s)
		}

		return out
	default:
		return nil
	}
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}

	return false
}
