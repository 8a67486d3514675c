// Package cmd provides shared initialization for the strato daemons.
package cmd

import (
	"log/slog"

	"github.com/stratoml/strato/pkg/actions/clusterjob"
	"github.com/stratoml/strato/pkg/actions/conditional"
	"github.com/stratoml/strato/pkg/actions/logaction"
	"github.com/stratoml/strato/pkg/job"
	"github.com/stratoml/strato/pkg/registry"
)

// NewRegistry builds the handler registry with the built-in actions
// registered. Actions outside this set run in mock mode.
func NewRegistry(logger *slog.Logger, jobs *job.Manager) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(logaction.ActionID, logaction.NewHandler())
	reg.Register(conditional.ActionID, conditional.NewHandler())
	reg.Register(clusterjob.ActionID, clusterjob.NewHandler(jobs))

	return reg
}
