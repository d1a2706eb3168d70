// Package pprofserver serves the runtime profiles on a separate listener that shouldn't be exposed publicly.
package pprofserver

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/myrjola/guesswho/internal/errors"
)

func newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	return mux
}

// Launch serves pprof on addr, e.g., "[::1]:6060", in the background until ctx is done. A failing pprof server is
// logged but doesn't stop the application.
func Launch(ctx context.Context, addr string, logger *slog.Logger) {
	srv := &http.Server{ //nolint:exhaustruct // profiles may take long so no write timeout
		Addr:              addr,
		Handler:           newServeMux(),
		ReadHeaderTimeout: time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server failed", errors.SlogError(errors.Wrap(err, "listen")))
		}
	}()
}
