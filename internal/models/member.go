package models

import "time"

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
)

// Member is the coworking-space profile of an authenticated user.
//
// Members are never deleted. The owning user edits the profile fields, the presence fields are maintained by
// heartbeats and the housekeeping sweep.
type Member struct {
	ID                  string         `db:"id"`
	UserID              []byte         `db:"user_id"`
	DisplayName         string         `db:"display_name"`
	Profession          string         `db:"profession"`
	Bio                 string         `db:"bio"`
	Skills              []string       `db:"-"`
	Interests           []string       `db:"-"`
	WorkspacePreference string         `db:"workspace_preference"`
	GameParticipation   bool           `db:"game_participation"`
	Status              PresenceStatus `db:"status"`
	LastActiveAt        time.Time      `db:"last_active_at"`
	CreatedAt           time.Time      `db:"created_at"`
}

// Attributes exposes the member as the tree that question attribute paths are resolved against.
//
// Keys use the camelCase names the question catalog refers to. Sequences are []string, flags are bool and free
// text is string. Any other value type never answers "yes".
func (m Member) Attributes() map[string]any {
	return map[string]any{
		"displayName":         m.DisplayName,
		"profession":          m.Profession,
		"bio":                 m.Bio,
		"skills":              m.Skills,
		"interests":           m.Interests,
		"workspacePreference": m.WorkspacePreference,
		"gameParticipation":   m.GameParticipation,
		"status":              string(m.Status),
		"lastActiveAt":        m.LastActiveAt,
	}
}

// AttributeNames lists the top-level attribute names of [Member.Attributes].
var AttributeNames = []string{
	"displayName",
	"profession",
	"bio",
	"skills",
	"interests",
	"workspacePreference",
	"gameParticipation",
	"status",
	"lastActiveAt",
}
