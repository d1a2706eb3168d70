package main

import (
	"net/http"

	"github.com/myrjola/guesswho/internal/contexthelpers"
	"github.com/myrjola/guesswho/internal/gameplay"
)

type lobbyTemplateData struct {
	BaseTemplateData
	Lobby gameplay.Lobby
}

func (app *application) lobby(w http.ResponseWriter, r *http.Request) {
	lobby, err := app.gameplay.Lobby(r.Context(), contexthelpers.AuthenticatedMemberID(r.Context()))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "lobby", "lobby", lobbyTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Lobby:            lobby,
	})
}

func (app *application) invite(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	_, err := app.gameplay.Invite(r.Context(), contexthelpers.AuthenticatedMemberID(r.Context()),
		r.PostForm.Get("member_id"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.redirect(w, r, "/members")
}

func (app *application) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	gameID, err := app.gameplay.RespondToInvitation(r.Context(), contexthelpers.AuthenticatedMemberID(r.Context()),
		r.PathValue("invitationID"), true)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.redirect(w, r, "/games/"+gameID)
}

func (app *application) declineInvitation(w http.ResponseWriter, r *http.Request) {
	_, err := app.gameplay.RespondToInvitation(r.Context(), contexthelpers.AuthenticatedMemberID(r.Context()),
		r.PathValue("invitationID"), false)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.redirect(w, r, "/members")
}
