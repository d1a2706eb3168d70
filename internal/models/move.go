package models

import "time"

type MoveKind string

const (
	MoveSelectTarget MoveKind = "select_target"
	MoveQuestion     MoveKind = "question"
	MoveGuess        MoveKind = "guess"
	MoveForfeit      MoveKind = "forfeit"
	MoveAbandon      MoveKind = "abandon"
)

// Move is an entry in a game's history.
//
// Target selections don't record the selected member. MemberID is empty for moves made by housekeeping, such as
// abandoning an idle game.
type Move struct {
	ID              string    `db:"id"`
	GameID          string    `db:"game_id"`
	MemberID        string    `db:"member_id"`
	Kind            MoveKind  `db:"kind"`
	QuestionID      *string   `db:"question_id"`
	SubjectID       *string   `db:"subject_id"`
	Answer          *bool     `db:"answer"`
	EliminatedCount int       `db:"eliminated_count"`
	CreatedAt       time.Time `db:"created_at"`

	// Prompt is joined in from the asked question.
	Prompt *string `db:"prompt"`
}
