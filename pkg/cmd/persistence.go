package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/omnireach/omnireach/pkg/persistence"
	"github.com/omnireach/omnireach/pkg/persistence/file"
	"github.com/omnireach/omnireach/pkg/persistence/postgresql"
)

// NewPersistence picks a backend from the database URL scheme. Anything that
// is not postgres is treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)

	return parts[0]
}
