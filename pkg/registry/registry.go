// Package registry maps step action names to their handler
// implementations. Actions without a registered handler fall back to a
// mock handler so workflows remain executable while cluster integrations
// are stubbed out.
package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/stratoml/strato/pkg/protocol"
)

type Registry struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]protocol.StepHandler
	fallback protocol.StepHandler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger.With("module", "registry"),
		handlers: make(map[string]protocol.StepHandler),
		fallback: &MockHandler{},
	}
}

// Register binds an action name to a handler, replacing any previous
// binding for the same name.
func (r *Registry) Register(action string, handler protocol.StepHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[action] = handler
}

// HandlerFor resolves the handler for an action. The second return
// reports whether a real handler was registered; when false the mock
// fallback is returned.
func (r *Registry) HandlerFor(action string) (protocol.StepHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[action]
	if !ok {
		r.logger.Debug("No handler registered, using mock", "action", action)

		return r.fallback, false
	}

	return handler, true
}

// Available lists the registered action names sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]string, 0, len(r.handlers))
	for action := range r.handlers {
		actions = append(actions, action)
	}

	sort.Strings(actions)

	return actions
}
