// Command migratetest opens a copy of the production database to check that the schema still synchronizes.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/logging"
	"github.com/myrjola/guesswho/internal/sqlite"
)

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, nil)
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd // 5 seconds
	defer cancel()

	if err := migrate(ctx, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "migration test failed", errors.SlogError(err))
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called above
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful", slog.Duration("duration", time.Since(start)))
}

func migrate(ctx context.Context, logger *slog.Logger) error {
	sqliteURL, ok := os.LookupEnv("GUESSWHO_SQLITE_URL")
	if !ok {
		return errors.New("GUESSWHO_SQLITE_URL not set")
	}

	db, err := sqlite.NewDatabase(ctx, sqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", sqliteURL))
	}
	defer func() {
		_ = db.Close()
	}()

	// A production copy without members means something went wrong in the migration.
	var users, members int
	if err = db.ReadOnly.GetContext(ctx, &users, `SELECT COUNT(*) FROM users`); err != nil {
		return errors.Wrap(err, "count users")
	}
	if err = db.ReadOnly.GetContext(ctx, &members, `SELECT COUNT(*) FROM members`); err != nil {
		return errors.Wrap(err, "count members")
	}
	if users == 0 || members == 0 {
		return errors.New("no users or members found", slog.Int("users", users), slog.Int("members", members))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "row counts", slog.Int("users", users), slog.Int("members", members))
	return nil
}
