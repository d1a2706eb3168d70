package contexthelpers

type contextKey string

const (
	isAuthenticatedContextKey       = contextKey("isAuthenticated")
	authenticatedUserIDContextKey   = contextKey("authenticatedUserID")
	authenticatedMemberIDContextKey = contextKey("authenticatedMemberID")
	currentPathContextKey           = contextKey("currentPath")
	csrfTokenContextKey             = contextKey("csrfToken")
	cspNonceContextKey              = contextKey("cspNonce")
)
