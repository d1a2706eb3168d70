package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/myrjola/guesswho/internal/broker"
	"github.com/myrjola/guesswho/internal/catalog"
	"github.com/myrjola/guesswho/internal/envstruct"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/gameplay"
	"github.com/myrjola/guesswho/internal/housekeeping"
	"github.com/myrjola/guesswho/internal/logging"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/pprofserver"
	"github.com/myrjola/guesswho/internal/ratelimit"
	"github.com/myrjola/guesswho/internal/repositories"
	"github.com/myrjola/guesswho/internal/sqlite"
	"github.com/myrjola/guesswho/internal/webauthnhandler"
)

type application struct {
	logger          *slog.Logger
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	sessionManager  *scs.SessionManager
	htmx            *htmx.HTMX
	pages           *pageTemplates
	gameplay        *gameplay.Service
	housekeeping    *housekeeping.Service
	chatLimiter     *ratelimit.Limiter
	inviteLimiter   *ratelimit.Limiter
	cronSecret      string
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"GUESSWHO_ADDR" envDefault:"localhost:4000"`
	// FQDN is the fully qualified domain name of the server used for WebAuthn Relying Party configuration.
	FQDN string `env:"GUESSWHO_FQDN" envDefault:"localhost"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ephemeral in-memory database.
	SqliteURL string `env:"GUESSWHO_SQLITE_URL" envDefault:"./guesswho.sqlite3"`
	// PprofAddr is the optional address for the pprof server. Leave empty to disable it.
	PprofAddr string `env:"GUESSWHO_PPROF_ADDR" envDefault:""`
	// CronSecret protects the cleanup endpoint. The endpoint is disabled when empty.
	CronSecret string `env:"GUESSWHO_CRON_SECRET" envDefault:""`
	// ChatRatePerMinute and InviteRatePerMinute limit each member. Zero disables the limit.
	ChatRatePerMinute   int `env:"GUESSWHO_CHAT_RATE_PER_MINUTE" envDefault:"30"`
	InviteRatePerMinute int `env:"GUESSWHO_INVITE_RATE_PER_MINUTE" envDefault:"10"`
	// BoardSize is the maximum number of members on a new board.
	BoardSize int `env:"GUESSWHO_BOARD_SIZE" envDefault:"24"`
}

// rpOrigins lists the origins allowed to perform WebAuthn ceremonies. Local development runs on plain HTTP.
func (cfg config) rpOrigins() []string {
	origins := []string{fmt.Sprintf("https://%s", cfg.FQDN)}
	if cfg.FQDN == "localhost" {
		origins = append(origins, fmt.Sprintf("http://%s", cfg.Addr))
	}
	return origins
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	dbCtx, cancelDB := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelDB()
	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(dbCtx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()

	var categories []models.QuestionCategory
	if categories, err = catalog.Default(); err != nil {
		return errors.Wrap(err, "load question catalog")
	}
	if _, err = catalog.Import(ctx, repositories.NewQuestionRepository(db, logger), categories); err != nil {
		return errors.Wrap(err, "import question catalog")
	}

	hub := broker.NewHub[string, gameplay.Event](16) //nolint:mnd // a few events of slack per stream
	go hub.Start()
	defer hub.Stop()

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 24*time.Hour) //nolint:mnd // daily
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 30 * 24 * time.Hour //nolint:mnd // a month
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true

	var webAuthnHandler *webauthnhandler.WebAuthnHandler
	if webAuthnHandler, err = webauthnhandler.New(
		cfg.FQDN, cfg.rpOrigins(), logger, sessionManager, db); err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	var pages *pageTemplates
	if pages, err = parsePageTemplates(); err != nil {
		return errors.Wrap(err, "parse templates")
	}

	// The presence and idle thresholds are shared with the CLI sweep.
	var keeperCfg housekeeping.Config
	if keeperCfg, err = housekeeping.LoadConfig(lookupEnv); err != nil {
		return err
	}
	keeper := housekeeping.New(db, hub, logger, keeperCfg, nil)
	if keeperCfg.Interval > 0 {
		keeper.Start()
		defer keeper.Stop()
	}

	app := application{
		logger:          logger,
		webAuthnHandler: webAuthnHandler,
		sessionManager:  sessionManager,
		htmx:            htmx.New(),
		pages:           pages,
		gameplay: gameplay.New(db, hub, logger, gameplay.Options{
			BoardSize: cfg.BoardSize,
			Now:       nil,
		}),
		housekeeping:  keeper,
		chatLimiter:   ratelimit.New(cfg.ChatRatePerMinute, cfg.ChatRatePerMinute/2), //nolint:mnd // allow short bursts
		inviteLimiter: ratelimit.New(cfg.InviteRatePerMinute, cfg.InviteRatePerMinute/2), //nolint:mnd // allow short bursts
		cronSecret:    cfg.CronSecret,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, hub.Stop); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, nil)

	// The .env file is optional. Real deployments configure the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.LogAttrs(ctx, slog.LevelWarn, "failed to load .env", errors.SlogError(err))
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
