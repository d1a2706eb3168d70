package webauthnhandler

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/myrjola/guesswho/internal/contexthelpers"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/logging"
)

// AuthenticateMiddleware marks the request authenticated when the session belongs to an existing user and adds the
// session and member to the logging context.
func (h *WebAuthnHandler) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := h.sessionManager.GetBytes(ctx, string(userIDSessionKey))
		if userID == nil {
			next.ServeHTTP(w, r)
			return
		}

		exists, memberID, err := h.lookupMember(ctx, userID)
		if err != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "server error",
				slog.String("method", r.Method), slog.String("uri", r.URL.RequestURI()), errors.SlogError(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if exists {
			r = contexthelpers.AuthenticateContext(r, userID, memberID)
		}

		// The token is hashed so that it doesn't leak into the logs.
		tokenHash := sha256.Sum256([]byte(h.sessionManager.Token(ctx)))
		ctx = logging.WithAttrs(r.Context(),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.String("user_id", hex.EncodeToString(userID)),
			slog.String("member_id", memberID),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
