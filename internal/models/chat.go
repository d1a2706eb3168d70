package models

import "time"

// ChatMessage is an entry of a game's chat log.
//
// SenderName is copied from the member profile when the message is sent and is not updated on renames.
type ChatMessage struct {
	ID         string    `db:"id"`
	GameID     string    `db:"game_id"`
	SenderID   string    `db:"sender_id"`
	SenderName string    `db:"sender_name"`
	Body       string    `db:"body"`
	CreatedAt  time.Time `db:"created_at"`
}
