package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	timeout := func(next http.Handler) http.Handler {
		return timeoutHandler(next, defaultTimeout)
	}
	session := alice.New(timeout, app.sessionManager.LoadAndSave, noSurf,
		app.webAuthnHandler.AuthenticateMiddleware, commonContext)
	member := session.Append(app.requireMember)
	// Event streams outlive the write timeout and can't go through the timeout handler or save the session.
	stream := alice.New(app.serverSentEventMiddleware, app.webAuthnHandler.AuthenticateMiddleware, app.requireMember)

	mux.Handle("GET /{$}", session.ThenFunc(app.home))
	mux.Handle("GET /api/healthy", alice.New(timeout).ThenFunc(app.healthy))

	mux.Handle("POST /api/registration/start", session.ThenFunc(app.beginRegistration))
	mux.Handle("POST /api/registration/finish", session.ThenFunc(app.finishRegistration))
	mux.Handle("POST /api/login/start", session.ThenFunc(app.beginLogin))
	mux.Handle("POST /api/login/finish", session.ThenFunc(app.finishLogin))
	mux.Handle("POST /api/logout", session.ThenFunc(app.logout))

	mux.Handle("POST /api/presence", member.ThenFunc(app.presence))
	mux.Handle("POST /api/cron/cleanup", alice.New(timeout, app.requireCronSecret).ThenFunc(app.cleanup))

	mux.Handle("GET /profile", session.Append(app.requireAuthentication).ThenFunc(app.profile))
	mux.Handle("POST /profile", session.Append(app.requireAuthentication).ThenFunc(app.saveProfile))

	invitations := member.Append(app.rateLimit(app.inviteLimiter))
	mux.Handle("GET /members", member.ThenFunc(app.lobby))
	mux.Handle("POST /invitations", invitations.ThenFunc(app.invite))
	mux.Handle("POST /invitations/{invitationID}/accept", member.ThenFunc(app.acceptInvitation))
	mux.Handle("POST /invitations/{invitationID}/decline", member.ThenFunc(app.declineInvitation))
	mux.Handle("GET /events", stream.ThenFunc(app.memberEvents))

	mux.Handle("GET /games/{gameID}", member.ThenFunc(app.game))
	mux.Handle("POST /games/{gameID}/target", member.ThenFunc(app.selectTarget))
	mux.Handle("POST /games/{gameID}/questions", member.ThenFunc(app.askQuestion))
	mux.Handle("POST /games/{gameID}/guess", member.ThenFunc(app.guess))
	mux.Handle("POST /games/{gameID}/forfeit", member.ThenFunc(app.forfeit))
	mux.Handle("POST /games/{gameID}/chat", member.Append(app.rateLimit(app.chatLimiter)).ThenFunc(app.sendChat))
	mux.Handle("GET /games/{gameID}/events", stream.ThenFunc(app.gameEvents))

	return app.recoverPanic(app.logRequest(secureHeaders(mux)))
}
