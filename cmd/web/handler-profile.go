package main

import (
	"net/http"
	"strings"

	"github.com/myrjola/guesswho/internal/contexthelpers"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/gameplay"
	"github.com/myrjola/guesswho/internal/models"
)

type profileTemplateData struct {
	BaseTemplateData
	Member               models.Member
	Form                 gameplay.ProfileInput
	WorkspacePreferences []string
	Professions          []string
	Error                string
}

func (app *application) renderProfile(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	member models.Member,
	form gameplay.ProfileInput,
	message string,
) {
	professions, err := app.gameplay.Professions(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, status, "profile", "", profileTemplateData{
		BaseTemplateData:     newBaseTemplateData(r),
		Member:               member,
		Form:                 form,
		WorkspacePreferences: gameplay.WorkspacePreferences,
		Professions:          professions,
		Error:                message,
	})
}

func (app *application) profile(w http.ResponseWriter, r *http.Request) {
	member, err := app.gameplay.Profile(r.Context(), contexthelpers.AuthenticatedUserID(r.Context()))
	switch {
	case errors.Is(err, errors.ErrNotFound):
		// New users are shown on boards unless they opt out.
		app.renderProfile(w, r, http.StatusOK, models.Member{}, gameplay.ProfileInput{GameParticipation: true}, "")
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}

	app.renderProfile(w, r, http.StatusOK, member, gameplay.ProfileInput{
		DisplayName:         member.DisplayName,
		Profession:          member.Profession,
		Bio:                 member.Bio,
		Skills:              strings.Join(member.Skills, ", "),
		Interests:           strings.Join(member.Interests, ", "),
		WorkspacePreference: member.WorkspacePreference,
		GameParticipation:   member.GameParticipation,
	}, "")
}

func (app *application) saveProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	form := gameplay.ProfileInput{
		DisplayName:         r.PostForm.Get("display_name"),
		Profession:          r.PostForm.Get("profession"),
		Bio:                 r.PostForm.Get("bio"),
		Skills:              r.PostForm.Get("skills"),
		Interests:           r.PostForm.Get("interests"),
		WorkspacePreference: r.PostForm.Get("workspace_preference"),
		GameParticipation:   r.PostForm.Get("game_participation") == "true",
	}

	_, err := app.gameplay.SaveProfile(r.Context(), contexthelpers.AuthenticatedUserID(r.Context()), form)
	switch {
	case errors.Is(err, gameplay.ErrInvalidProfile):
		app.renderProfile(w, r, http.StatusUnprocessableEntity, models.Member{}, form,
			"Check your profile: a name is required and the texts and tag lists have a maximum length.")
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}
	app.redirect(w, r, "/members")
}
