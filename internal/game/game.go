package game

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/models"
)

type Status string

const (
	// StatusWaiting means at least one player has not yet picked a secret target.
	StatusWaiting Status = "waiting"
	// StatusActive means the players take turns asking questions and guessing.
	StatusActive Status = "active"
	// StatusCompleted means a player guessed the opponent's target. Terminal.
	StatusCompleted Status = "completed"
	// StatusAbandoned means a player forfeited or the game timed out. Terminal.
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether no further turns can be played.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// MinBoardSize is the smallest board a game can be played on.
const MinBoardSize = 2

var (
	ErrNotPlayer     = fmt.Errorf("member does not play in this game: %w", errors.ErrNotFound)
	ErrNotYourTurn   = fmt.Errorf("not your turn: %w", errors.ErrConflict)
	ErrGameOver      = fmt.Errorf("game is over: %w", errors.ErrConflict)
	ErrWrongPhase    = fmt.Errorf("action not allowed in this phase: %w", errors.ErrConflict)
	ErrTargetChosen  = fmt.Errorf("target already chosen: %w", errors.ErrConflict)
	ErrNotOnBoard    = fmt.Errorf("member is not on the board: %w", errors.ErrValidation)
	ErrInvalidSetup  = fmt.Errorf("invalid game setup: %w", errors.ErrValidation)
	ErrUnknownMember = fmt.Errorf("board member profile missing: %w", errors.ErrValidation)
)

// Game is the shared state of a match between two members.
//
// Players[0] invited Players[1] and takes the first turn. Targets maps each player to the board member they
// picked for their opponent to find. The elimination sets are keyed by the player whose target the board hides:
// when Players[0] asks a question, the members it rules out are added to Eliminated[Players[1]].
//
// Mutate a Game only through its methods so that terminal states stay terminal. Version is bumped by every
// transition and is used by the store for compare-and-set updates.
type Game struct {
	ID          string
	Players     [2]string
	Board       []string
	Targets     map[string]string
	Eliminated  map[string][]string
	Status      Status
	CurrentTurn string
	Winner      string
	// AbandonedBy is the forfeiting player, empty when a timeout ended the game.
	AbandonedBy string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	EndedAt     *time.Time
}

// New sets up a game waiting for both players to pick their targets.
func New(id, firstPlayer, secondPlayer string, board []string, now time.Time) (*Game, error) {
	switch {
	case id == "" || firstPlayer == "" || secondPlayer == "":
		return nil, errors.Wrap(ErrInvalidSetup, "missing id")
	case firstPlayer == secondPlayer:
		return nil, errors.Wrap(ErrInvalidSetup, "cannot play against yourself", slog.String("player", firstPlayer))
	case len(board) < MinBoardSize:
		return nil, errors.Wrap(ErrInvalidSetup, "board too small", slog.Int("board_size", len(board)))
	}
	seen := make(map[string]bool, len(board))
	for _, memberID := range board {
		if seen[memberID] {
			return nil, errors.Wrap(ErrInvalidSetup, "duplicate board member", slog.String("member_id", memberID))
		}
		seen[memberID] = true
	}

	now = now.UTC()
	return &Game{
		ID:          id,
		Players:     [2]string{firstPlayer, secondPlayer},
		Board:       slices.Clone(board),
		Targets:     map[string]string{},
		Eliminated:  map[string][]string{},
		Status:      StatusWaiting,
		CurrentTurn: "",
		Winner:      "",
		AbandonedBy: "",
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
		EndedAt:     nil,
	}, nil
}

// IsPlayer reports whether memberID plays in the game.
func (g *Game) IsPlayer(memberID string) bool {
	return memberID != "" && (g.Players[0] == memberID || g.Players[1] == memberID)
}

// Opponent returns the other player.
func (g *Game) Opponent(player string) (string, error) {
	switch player {
	case g.Players[0]:
		return g.Players[1], nil
	case g.Players[1]:
		return g.Players[0], nil
	default:
		return "", errors.Wrap(ErrNotPlayer, "opponent", slog.String("member_id", player))
	}
}

// OnBoard reports whether memberID is one of the board members.
func (g *Game) OnBoard(memberID string) bool {
	return slices.Contains(g.Board, memberID)
}

// IsEliminated reports whether memberID has been ruled out on the board hiding owner's target.
func (g *Game) IsEliminated(owner, memberID string) bool {
	return slices.Contains(g.Eliminated[owner], memberID)
}

// Remaining lists the board members not yet ruled out on the board hiding owner's target, in board order.
func (g *Game) Remaining(owner string) []string {
	remaining := make([]string, 0, len(g.Board))
	for _, memberID := range g.Board {
		if !g.IsEliminated(owner, memberID) {
			remaining = append(remaining, memberID)
		}
	}
	return remaining
}

func (g *Game) touch(now time.Time) {
	g.UpdatedAt = now.UTC()
	g.Version++
}

func (g *Game) end(status Status, now time.Time) {
	ended := now.UTC()
	g.Status = status
	g.CurrentTurn = ""
	g.EndedAt = &ended
	g.touch(now)
}

// checkTurn verifies that player may act in the active game.
func (g *Game) checkTurn(player string) error {
	if !g.IsPlayer(player) {
		return errors.Wrap(ErrNotPlayer, "check turn", slog.String("member_id", player))
	}
	if g.Status.Terminal() {
		return errors.Wrap(ErrGameOver, "check turn", slog.String("status", string(g.Status)))
	}
	if g.Status != StatusActive {
		return errors.Wrap(ErrWrongPhase, "check turn", slog.String("status", string(g.Status)))
	}
	if g.CurrentTurn != player {
		return errors.Wrap(ErrNotYourTurn, "check turn",
			slog.String("member_id", player), slog.String("current_turn", g.CurrentTurn))
	}
	return nil
}

func (g *Game) passTurn(player string) {
	opponent, _ := g.Opponent(player)
	g.CurrentTurn = opponent
}

// SelectTarget records the board member player picks for the opponent to find.
//
// The game becomes active with the first player's turn once both players have picked.
func (g *Game) SelectTarget(player, memberID string, now time.Time) error {
	if !g.IsPlayer(player) {
		return errors.Wrap(ErrNotPlayer, "select target", slog.String("member_id", player))
	}
	if g.Status.Terminal() {
		return errors.Wrap(ErrGameOver, "select target")
	}
	if g.Status != StatusWaiting {
		return errors.Wrap(ErrWrongPhase, "select target", slog.String("status", string(g.Status)))
	}
	if _, ok := g.Targets[player]; ok {
		return errors.Wrap(ErrTargetChosen, "select target", slog.String("member_id", player))
	}
	if !g.OnBoard(memberID) {
		return errors.Wrap(ErrNotOnBoard, "select target", slog.String("target_id", memberID))
	}

	g.Targets[player] = memberID
	if len(g.Targets) == len(g.Players) {
		g.Status = StatusActive
		g.CurrentTurn = g.Players[0]
	}
	g.touch(now)
	return nil
}

// QuestionOutcome is the result of asking a question.
type QuestionOutcome struct {
	// Answer is how the opponent's target answered.
	Answer bool
	// Eliminated lists the members ruled out by this question, in board order.
	Eliminated []string
}

// AskQuestion answers question for the opponent's target and rules out every remaining board member that answers
// differently. The turn passes to the opponent.
//
// A question that rules out nobody, or everybody who answers unlike the target, is still answered. Only the
// offered questions are filtered by [RelevantQuestions]; any catalog question may be asked.
//
// members must contain the profiles of all board members.
func (g *Game) AskQuestion(
	player string,
	question models.Question,
	members map[string]models.Member,
	now time.Time,
) (QuestionOutcome, error) {
	if err := g.checkTurn(player); err != nil {
		return QuestionOutcome{}, err
	}
	opponent, _ := g.Opponent(player)
	target, ok := members[g.Targets[opponent]]
	if !ok {
		return QuestionOutcome{}, errors.Wrap(ErrUnknownMember, "opponent target",
			slog.String("member_id", g.Targets[opponent]))
	}

	answer := Resolve(question, target)
	var eliminated []string
	for _, memberID := range g.Remaining(opponent) {
		member, found := members[memberID]
		if !found {
			return QuestionOutcome{}, errors.Wrap(ErrUnknownMember, "board member", slog.String("member_id", memberID))
		}
		if Resolve(question, member) != answer {
			eliminated = append(eliminated, memberID)
		}
	}

	g.Eliminated[opponent] = append(g.Eliminated[opponent], eliminated...)
	g.passTurn(player)
	g.touch(now)
	return QuestionOutcome{Answer: answer, Eliminated: eliminated}, nil
}

// Guess ends the game with player as winner when memberID is the opponent's target. A wrong guess only passes the
// turn.
func (g *Game) Guess(player, memberID string, now time.Time) (bool, error) {
	if err := g.checkTurn(player); err != nil {
		return false, err
	}
	if !g.OnBoard(memberID) {
		return false, errors.Wrap(ErrNotOnBoard, "guess", slog.String("member_id", memberID))
	}
	opponent, _ := g.Opponent(player)
	if g.Targets[opponent] == memberID {
		g.Winner = player
		g.end(StatusCompleted, now)
		return true, nil
	}
	g.passTurn(player)
	g.touch(now)
	return false, nil
}

// Forfeit abandons the game on behalf of player. No winner is recorded.
func (g *Game) Forfeit(player string, now time.Time) error {
	if !g.IsPlayer(player) {
		return errors.Wrap(ErrNotPlayer, "forfeit", slog.String("member_id", player))
	}
	if err := g.Abandon(now); err != nil {
		return err
	}
	g.AbandonedBy = player
	return nil
}

// Abandon ends a waiting or active game without a winner, e.g., after it has been idle for too long.
func (g *Game) Abandon(now time.Time) error {
	if g.Status.Terminal() {
		return errors.Wrap(ErrGameOver, "abandon", slog.String("status", string(g.Status)))
	}
	g.end(StatusAbandoned, now)
	return nil
}
