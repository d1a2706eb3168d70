// Package housekeeping keeps presence statuses, invitations and games from going stale. A sweep can be triggered
// by the cron endpoint, the CLI or the in-process ticker.
package housekeeping

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/guesswho/internal/envstruct"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/gameplay"
	"github.com/myrjola/guesswho/internal/repositories"
	"github.com/myrjola/guesswho/internal/sqlite"
)

type Config struct {
	// AwayAfter marks online members away after this long without a heartbeat.
	AwayAfter time.Duration `env:"GUESSWHO_PRESENCE_AWAY_AFTER" envDefault:"2m"`
	// OfflineAfter marks members offline after this long without a heartbeat.
	OfflineAfter time.Duration `env:"GUESSWHO_PRESENCE_OFFLINE_AFTER" envDefault:"10m"`
	// GameIdleTimeout abandons waiting and active games that haven't changed for this long.
	GameIdleTimeout time.Duration `env:"GUESSWHO_GAME_IDLE_TIMEOUT" envDefault:"30m"`
	// Interval of the in-process ticker started with [Service.Start].
	Interval time.Duration `env:"GUESSWHO_HOUSEKEEPING_INTERVAL" envDefault:"1m"`
}

func DefaultConfig() Config {
	return Config{
		AwayAfter:       2 * time.Minute,  //nolint:mnd // presence thresholds
		OfflineAfter:    10 * time.Minute, //nolint:mnd // presence thresholds
		GameIdleTimeout: 30 * time.Minute, //nolint:mnd // idle game timeout
		Interval:        time.Minute,
	}
}

// LoadConfig reads the thresholds from the same environment variables as the web server.
func LoadConfig(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate housekeeping config")
	}
	return cfg, nil
}

// Result counts what a sweep changed.
type Result struct {
	Away               int64    `json:"away"`
	Offline            int64    `json:"offline"`
	ExpiredInvitations int64    `json:"expiredInvitations"`
	AbandonedGames     []string `json:"abandonedGames"`
}

type Service struct {
	members     *repositories.MemberRepository
	invitations *repositories.InvitationRepository
	games       *repositories.GameRepository
	hub         *gameplay.Hub
	cfg         Config
	now         func() time.Time
	logger      *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates the housekeeping service. hub may be nil when nobody in the process streams game updates, e.g., in
// the CLI. now defaults to [time.Now].
func New(db *sqlite.Database, hub *gameplay.Hub, logger *slog.Logger, cfg Config, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		members:     repositories.NewMemberRepository(db, logger),
		invitations: repositories.NewInvitationRepository(db, logger),
		games:       repositories.NewGameRepository(db, logger),
		hub:         hub,
		cfg:         cfg,
		now:         now,
		logger:      logger.With("source", "housekeeping"),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Heartbeat marks the member online.
func (s *Service) Heartbeat(ctx context.Context, memberID string) error {
	if err := s.members.Touch(ctx, memberID, s.now()); err != nil {
		return errors.Wrap(err, "heartbeat")
	}
	return nil
}

// Sweep runs every cleanup once. The cleanups are independent: a failing one doesn't stop the others and the
// errors are joined.
func (s *Service) Sweep(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	var (
		result Result
		errs   []error
		err    error
	)

	if result.Away, result.Offline, err = s.members.SweepPresence(ctx, now, s.cfg.AwayAfter, s.cfg.OfflineAfter); err != nil {
		errs = append(errs, errors.Wrap(err, "sweep presence"))
	}
	if result.ExpiredInvitations, err = s.invitations.ExpireStale(ctx, now); err != nil {
		errs = append(errs, errors.Wrap(err, "expire invitations"))
	}
	result.AbandonedGames, err = s.games.AbandonIdle(ctx, now, s.cfg.GameIdleTimeout)
	if err != nil {
		errs = append(errs, errors.Wrap(err, "abandon idle games"))
	}
	if result.AbandonedGames == nil {
		result.AbandonedGames = []string{}
	}
	if s.hub != nil {
		for _, gameID := range result.AbandonedGames {
			s.hub.Publish(gameplay.GameTopic(gameID), gameplay.Event{
				Kind:    gameplay.EventGameUpdated,
				GameID:  gameID,
				Version: 0,
			})
		}
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "housekeeping sweep completed",
		slog.Int64("away", result.Away),
		slog.Int64("offline", result.Offline),
		slog.Int64("expired_invitations", result.ExpiredInvitations),
		slog.Int("abandoned_games", len(result.AbandonedGames)),
	)
	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}
	return result, nil
}

// Start sweeps immediately and then every [Config.Interval] until Stop is called.
func (s *Service) Start() {
	go s.run()
	s.logger.Info("housekeeping started", slog.Duration("interval", s.cfg.Interval))
}

// Stop waits for a running sweep to finish. Call it only after Start.
func (s *Service) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("housekeeping stopped")
}

func (s *Service) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Service) sweep() {
	ctx := context.Background()
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "housekeeping sweep failed", errors.SlogError(err))
	}
}
