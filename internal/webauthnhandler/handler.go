// Package webauthnhandler implements passkey registration and login. The authenticated user id is kept in the scs
// session and resolved to the user's member profile on every request.
package webauthnhandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/sqlite"
)

// RPDisplayName is the relying party name shown by authenticators.
const RPDisplayName = "Guess Who"

var errNoWebAuthnSession = errors.NewSentinel("no webauthn session data")

type WebAuthnHandler struct {
	logger         *slog.Logger
	webAuthn       *webauthn.WebAuthn
	sessionManager *scs.SessionManager
	db             *sqlite.Database
}

func New(
	fqdn string,
	rpOrigins []string,
	logger *slog.Logger,
	sessionManager *scs.SessionManager,
	db *sqlite.Database,
) (*WebAuthnHandler, error) {
	webAuthn, err := webauthn.New(&webauthn.Config{ //nolint:exhaustruct // defaults are fine
		RPDisplayName: RPDisplayName,
		RPID:          fqdn,
		RPOrigins:     rpOrigins,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new webauthn")
	}

	return &WebAuthnHandler{
		logger:         logger.With("source", "webauthn"),
		webAuthn:       webAuthn,
		sessionManager: sessionManager,
		db:             db,
	}, nil
}

// BeginRegistration stores a new anonymous user and returns the credential creation options as JSON.
func (h *WebAuthnHandler) BeginRegistration(ctx context.Context) ([]byte, error) {
	u, err := newRandomUser()
	if err != nil {
		return nil, errors.Wrap(err, "new user")
	}

	authSelect := protocol.AuthenticatorSelection{ //nolint:exhaustruct // only the relevant options
		RequireResidentKey: protocol.ResidentKeyNotRequired(),
		UserVerification:   protocol.VerificationDiscouraged,
	}
	opts, session, err := h.webAuthn.BeginRegistration(
		u,
		webauthn.WithAuthenticatorSelection(authSelect),
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired))
	if err != nil {
		return nil, errors.Wrap(err, "begin registration")
	}

	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *session)
	if err = h.upsertUser(ctx, u); err != nil {
		return nil, errors.Wrap(err, "upsert user")
	}

	out, err := json.Marshal(opts)
	if err != nil {
		return nil, errors.Wrap(err, "JSON encode")
	}
	return out, nil
}

func (h *WebAuthnHandler) popWebAuthnSession(ctx context.Context) (webauthn.SessionData, error) {
	session, ok := h.sessionManager.Pop(ctx, string(webAuthnSessionKey)).(webauthn.SessionData)
	if !ok {
		return webauthn.SessionData{}, errors.Wrap(errNoWebAuthnSession, "pop session")
	}
	return session, nil
}

// FinishRegistration verifies the new credential and logs in the registered user.
func (h *WebAuthnHandler) FinishRegistration(r *http.Request) error {
	ctx := r.Context()
	session, err := h.popWebAuthnSession(ctx)
	if err != nil {
		return err
	}

	u, err := h.getUser(ctx, session.UserID)
	if err != nil {
		return errors.Wrap(err, "get user")
	}

	credential, err := h.webAuthn.FinishRegistration(u, session, r)
	if err != nil {
		return errors.Wrap(err, "finish webauthn registration")
	}
	if err = h.upsertCredential(ctx, u.WebAuthnID(), credential); err != nil {
		return errors.Wrap(err, "upsert webauthn credential")
	}

	return h.login(ctx, u.WebAuthnID())
}

// BeginLogin returns the discoverable login options as JSON.
func (h *WebAuthnHandler) BeginLogin(ctx context.Context) ([]byte, error) {
	options, session, err := h.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return nil, errors.Wrap(err, "begin discoverable webauthn login")
	}

	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *session)

	out, err := json.Marshal(options)
	if err != nil {
		return nil, errors.Wrap(err, "JSON encode")
	}
	return out, nil
}

// FinishLogin validates the passkey assertion and logs in its user.
func (h *WebAuthnHandler) FinishLogin(r *http.Request) error {
	ctx := r.Context()
	session, err := h.popWebAuthnSession(ctx)
	if err != nil {
		return err
	}

	parsedResponse, err := protocol.ParseCredentialRequestResponse(r)
	if err != nil {
		return errors.Wrap(err, "parse credential request response")
	}
	findUser := func(_, userHandle []byte) (webauthn.User, error) {
		return h.getUser(ctx, userHandle)
	}
	u, credential, err := h.webAuthn.ValidatePasskeyLogin(findUser, session, parsedResponse)
	if err != nil {
		return errors.Wrap(err, "validate passkey login")
	}

	// The sign count changes on every login.
	if err = h.upsertCredential(ctx, u.WebAuthnID(), credential); err != nil {
		return errors.Wrap(err, "upsert webauthn credential")
	}

	return h.login(ctx, u.WebAuthnID())
}

func (h *WebAuthnHandler) login(ctx context.Context, userID []byte) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	h.sessionManager.Put(ctx, string(userIDSessionKey), userID)
	return nil
}

func (h *WebAuthnHandler) Logout(ctx context.Context) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	h.sessionManager.Remove(ctx, string(userIDSessionKey))
	return nil
}
