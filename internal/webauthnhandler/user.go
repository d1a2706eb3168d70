package webauthnhandler

import (
	"crypto/rand"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/guesswho/internal/errors"
)

// user implements [webauthn.User]. The player-facing name lives in the member profile, the display name here is
// only what the authenticator shows next to the passkey.
type user struct {
	id          []byte
	displayName string
	credentials []webauthn.Credential
}

// webauthnIDSize is the maximum user handle size allowed by WebAuthn.
const webauthnIDSize = 64

func newRandomUser() (*user, error) {
	id := make([]byte, webauthnIDSize)
	if _, err := rand.Read(id); err != nil {
		return nil, errors.Wrap(err, "generate user id")
	}
	return &user{
		id:          id,
		displayName: fmt.Sprintf("%s player %x", RPDisplayName, id[:4]),
		credentials: []webauthn.Credential{},
	}, nil
}

func (u *user) WebAuthnID() []byte {
	return u.id
}

func (u *user) WebAuthnName() string {
	return u.displayName
}

func (u *user) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
