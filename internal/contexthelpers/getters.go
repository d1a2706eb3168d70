package contexthelpers

import (
	"context"
)

func IsAuthenticated(ctx context.Context) bool {
	isAuthenticated, ok := ctx.Value(isAuthenticatedContextKey).(bool)
	return ok && isAuthenticated
}

func AuthenticatedUserID(ctx context.Context) []byte {
	userID, _ := ctx.Value(authenticatedUserIDContextKey).([]byte)
	return userID
}

// AuthenticatedMemberID is the member profile of the authenticated user. It's empty until the user has saved a
// profile.
func AuthenticatedMemberID(ctx context.Context) string {
	memberID, _ := ctx.Value(authenticatedMemberIDContextKey).(string)
	return memberID
}

func CurrentPath(ctx context.Context) string {
	currentPath, _ := ctx.Value(currentPathContextKey).(string)
	return currentPath
}

func CSRFToken(ctx context.Context) string {
	csrfToken, _ := ctx.Value(csrfTokenContextKey).(string)
	return csrfToken
}

func CSPNonce(ctx context.Context) string {
	nonce, _ := ctx.Value(cspNonceContextKey).(string)
	return nonce
}
