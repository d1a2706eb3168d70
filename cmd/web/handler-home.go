package main

import (
	"net/http"

	"github.com/myrjola/guesswho/internal/contexthelpers"
)

type homeTemplateData struct {
	BaseTemplateData
}

// home shows the passkey sign in. Signed in users continue to the lobby or, without a profile, to create one.
func (app *application) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch {
	case contexthelpers.AuthenticatedMemberID(ctx) != "":
		app.redirect(w, r, "/members")
	case contexthelpers.IsAuthenticated(ctx):
		app.redirect(w, r, "/profile")
	default:
		app.render(w, r, http.StatusOK, "home", "", homeTemplateData{
			BaseTemplateData: newBaseTemplateData(r),
		})
	}
}
