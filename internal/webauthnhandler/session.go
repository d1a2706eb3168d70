package webauthnhandler

type sessionKey string

const (
	webAuthnSessionKey = sessionKey("webauthn")
	userIDSessionKey   = sessionKey("userID")
)
