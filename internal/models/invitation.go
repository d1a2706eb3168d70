package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// InvitationTTL is how long an invitation stays open.
const InvitationTTL = 30 * time.Minute

// GameInvitation asks ToMemberID to play a game against FromMemberID.
type GameInvitation struct {
	ID           string           `db:"id"`
	FromMemberID string           `db:"from_member_id"`
	ToMemberID   string           `db:"to_member_id"`
	Status       InvitationStatus `db:"status"`
	GameID       *string          `db:"game_id"`
	CreatedAt    time.Time        `db:"created_at"`
	ExpiresAt    time.Time        `db:"expires_at"`

	// The display names are joined in for listings.
	FromDisplayName string `db:"from_display_name"`
	ToDisplayName   string `db:"to_display_name"`
}

// IsOpen reports whether the invitation can still be answered at now.
func (i GameInvitation) IsOpen(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}
