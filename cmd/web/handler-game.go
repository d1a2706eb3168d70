package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/guesswho/internal/contexthelpers"
	"github.com/myrjola/guesswho/internal/gameplay"
	"github.com/myrjola/guesswho/internal/logging"
)

type gameTemplateData struct {
	BaseTemplateData
	View gameplay.View
}

// gameRequest returns the acting member and the game of the request path and adds the game to the log context.
func gameRequest(r *http.Request) (*http.Request, string, string) {
	gameID := r.PathValue("gameID")
	r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("game_id", gameID)))
	return r, contexthelpers.AuthenticatedMemberID(r.Context()), gameID
}

func (app *application) game(w http.ResponseWriter, r *http.Request) {
	r, memberID, gameID := gameRequest(r)
	view, err := app.gameplay.View(r.Context(), memberID, gameID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "game", "game", gameTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		View:             view,
	})
}

// gameAction parses the posted form, runs action and sends the player back to the game.
func (app *application) gameAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(r *http.Request, memberID, gameID string) error,
) {
	r, memberID, gameID := gameRequest(r)
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	if err := action(r, memberID, gameID); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.redirect(w, r, "/games/"+gameID)
}

func (app *application) selectTarget(w http.ResponseWriter, r *http.Request) {
	app.gameAction(w, r, func(r *http.Request, memberID, gameID string) error {
		return app.gameplay.SelectTarget(r.Context(), memberID, gameID, r.PostForm.Get("member_id"))
	})
}

func (app *application) askQuestion(w http.ResponseWriter, r *http.Request) {
	app.gameAction(w, r, func(r *http.Request, memberID, gameID string) error {
		_, err := app.gameplay.AskQuestion(r.Context(), memberID, gameID, r.PostForm.Get("question_id"))
		return err
	})
}

func (app *application) guess(w http.ResponseWriter, r *http.Request) {
	app.gameAction(w, r, func(r *http.Request, memberID, gameID string) error {
		_, err := app.gameplay.Guess(r.Context(), memberID, gameID, r.PostForm.Get("member_id"))
		return err
	})
}

func (app *application) forfeit(w http.ResponseWriter, r *http.Request) {
	app.gameAction(w, r, func(r *http.Request, memberID, gameID string) error {
		return app.gameplay.Forfeit(r.Context(), memberID, gameID)
	})
}

func (app *application) sendChat(w http.ResponseWriter, r *http.Request) {
	app.gameAction(w, r, func(r *http.Request, memberID, gameID string) error {
		_, err := app.gameplay.SendChat(r.Context(), memberID, gameID, r.PostForm.Get("body"))
		return err
	})
}
