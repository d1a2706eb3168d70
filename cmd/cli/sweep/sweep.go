// Package sweep implements the command running the housekeeping sweep from a scheduler.
package sweep

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/housekeeping"
	"github.com/myrjola/guesswho/internal/logging"
	"github.com/myrjola/guesswho/internal/sqlite"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "housekeeping",
	Title: "Housekeeping",
}

var Command = &cobra.Command{
	Use:     "housekeeping",
	Short:   "Maintain presence, invitations and games",
	GroupID: Group.ID,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark idle members away or offline, expire invitations and abandon idle games",
	Long: `Run one housekeeping sweep and print what changed as JSON. Games abandoned by the sweep reach open
browser tabs only when the web server runs the sweep itself, so prefer POST /api/cron/cleanup when the server is up.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, err := cmd.Flags().GetString("sqlite-url")
		if err != nil {
			return errors.Wrap(err, "sqlite-url flag")
		}
		cfg, err := housekeeping.LoadConfig(os.LookupEnv)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("game-idle-timeout") {
			if cfg.GameIdleTimeout, err = cmd.Flags().GetDuration("game-idle-timeout"); err != nil {
				return errors.Wrap(err, "game-idle-timeout flag")
			}
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		logger := logging.NewLogger(cmd.ErrOrStderr(), slog.LevelInfo, nil)
		db, err := sqlite.NewDatabase(ctx, url, logger)
		if err != nil {
			return errors.Wrap(err, "open database", slog.String("url", url))
		}
		defer func() {
			_ = db.Close()
		}()

		result, err := housekeeping.New(db, nil, logger, cfg, nil).Sweep(ctx)
		if err != nil {
			return errors.Wrap(err, "sweep")
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return errors.Wrap(encoder.Encode(result), "print result")
	},
}

func init() {
	sweepCmd.Flags().Duration("game-idle-timeout", housekeeping.DefaultConfig().GameIdleTimeout,
		"abandon games idle for longer than this (default from GUESSWHO_GAME_IDLE_TIMEOUT)")
	Command.AddCommand(sweepCmd)
}
