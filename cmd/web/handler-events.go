package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/guesswho/internal/contexthelpers"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/gameplay"
)

// sseHeartbeatInterval keeps proxies from closing idle event streams.
const sseHeartbeatInterval = 15 * time.Second

// gameEvents streams the updates of a game to one of its players as Server-Sent Events.
func (app *application) gameEvents(w http.ResponseWriter, r *http.Request) {
	r, memberID, gameID := gameRequest(r)
	events, cancel, err := app.gameplay.SubscribeGame(r.Context(), memberID, gameID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	defer cancel()
	app.streamEvents(w, r, events)
}

// memberEvents streams the invitations addressed to the member as Server-Sent Events.
func (app *application) memberEvents(w http.ResponseWriter, r *http.Request) {
	events, cancel := app.gameplay.SubscribeMember(contexthelpers.AuthenticatedMemberID(r.Context()))
	defer cancel()
	app.streamEvents(w, r, events)
}

// streamEvents writes events until the client goes away or the hub closes the subscription on shutdown. The event
// name is the event kind so that htmx can trigger on it.
func (app *application) streamEvents(w http.ResponseWriter, r *http.Request, events <-chan gameplay.Event) {
	ctx := r.Context()
	rc := http.NewResponseController(w)
	// The server's write timeout is meant for regular requests.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear write deadline"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		app.serverError(w, r, errors.Wrap(err, "flush headers"))
		return
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()
	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			var data []byte
			if data, err = json.Marshal(event); err != nil {
				app.logger.LogAttrs(ctx, slog.LevelError, "encode event", errors.SlogError(err))
				return
			}
			_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
		case <-heartbeat.C:
			_, err = fmt.Fprint(w, ": heartbeat\n\n")
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "event stream closed", slog.String("reason", err.Error()))
			return
		}
	}
}
