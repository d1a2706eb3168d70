package main

import (
	"bytes"
	"encoding/gob"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/guesswho/internal/contexthelpers"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/ui"
)

func init() {
	gob.Register(webauthn.SessionData{})
}

// pages are the directories inside ui/templates/pages. Each has to define the templates "title" and "page".
var pages = []string{"home", "profile", "lobby", "game"}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	// answer spells out a recorded yes/no answer.
	"answer": func(answer *bool) string {
		switch {
		case answer == nil:
			return ""
		case *answer:
			return "yes"
		default:
			return "no"
		}
	},
}

type pageTemplates struct {
	templates map[string]*template.Template
}

// parsePageTemplates parses the embedded templates once at startup.
func parsePageTemplates() (*pageTemplates, error) {
	parsed := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		files, err := fs.Glob(ui.Files, "templates/pages/"+page+"/*.gohtml")
		if err != nil {
			return nil, errors.Wrap(err, "glob page template files", slog.String("page", page))
		}
		patterns := append([]string{"templates/base.gohtml"}, files...)
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(ui.Files, patterns...)
		if err != nil {
			return nil, errors.Wrap(err, "parse page templates", slog.String("page", page))
		}
		parsed[page] = t
	}
	return &pageTemplates{templates: parsed}, nil
}

type BaseTemplateData struct {
	Authenticated bool
	HasProfile    bool
	CurrentPath   string
	CSRFToken     string
	CSPNonce      string
}

func newBaseTemplateData(r *http.Request) BaseTemplateData {
	ctx := r.Context()
	return BaseTemplateData{
		Authenticated: contexthelpers.IsAuthenticated(ctx),
		HasProfile:    contexthelpers.AuthenticatedMemberID(ctx) != "",
		CurrentPath:   contexthelpers.CurrentPath(ctx),
		CSRFToken:     contexthelpers.CSRFToken(ctx),
		CSPNonce:      contexthelpers.CSPNonce(ctx),
	}
}

// render writes the page wrapped in the base layout. htmx requests refreshing a part of the page get only the
// template named partial when it's not empty.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page, partial string, data any) {
	t, ok := app.pages.templates[page]
	if !ok {
		app.serverError(w, r, errors.New("unknown page", slog.String("page", page)))
		return
	}

	name := "base"
	if partial != "" && app.htmx.NewHandler(w, r).IsHxRequest() {
		name = partial
	}

	buf := new(bytes.Buffer)
	if err := t.ExecuteTemplate(buf, name, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template",
			slog.String("page", page), slog.String("template", name)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
