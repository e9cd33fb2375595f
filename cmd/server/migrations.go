package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/bookshelf-api/internal/platform/postgres"
)

// runMigrations executes a goose command against the embedded migrations.
func runMigrations(ctx context.Context, db *sqlx.DB, command string, logger *slog.Logger) error {
	logger.Info("executing migrations", slog.String("command", command))
	if err := postgres.Migrate(ctx, db.DB, command, logger); err != nil {
		return fmt.Errorf("migration %q failed: %w", command, err)
	}
	return nil
}
