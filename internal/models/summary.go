package models

import "time"

// GameSummary is a game as listed in a member's lobby.
type GameSummary struct {
	ID           string    `db:"id"`
	OpponentID   string    `db:"opponent_id"`
	OpponentName string    `db:"opponent_name"`
	Status       string    `db:"status"`
	CurrentTurn  string    `db:"current_turn"`
	UpdatedAt    time.Time `db:"updated_at"`
}
