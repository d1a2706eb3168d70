package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/guesswho/internal/contexthelpers"
	"github.com/myrjola/guesswho/internal/errors"
)

// presence records the heartbeat sent by open pages.
func (app *application) presence(w http.ResponseWriter, r *http.Request) {
	if err := app.housekeeping.Heartbeat(r.Context(), contexthelpers.AuthenticatedMemberID(r.Context())); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cleanup runs a housekeeping sweep for an external scheduler and reports what changed.
func (app *application) cleanup(w http.ResponseWriter, r *http.Request) {
	result, err := app.housekeeping.Sweep(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	out, err := json.Marshal(result)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "encode sweep result"))
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "cleanup triggered", slog.Int("abandoned_games",
		len(result.AbandonedGames)))
	app.writeJSON(w, r, out)
}
