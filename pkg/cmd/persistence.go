package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/persistence/file"
	"github.com/stratoml/strato/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL
// scheme: postgres URLs get the PostgreSQL backend, everything else the
// file backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
