package gameplay

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/ids"
	"github.com/myrjola/guesswho/internal/models"
)

func newMove(g *game.Game, memberID string, kind models.MoveKind, now time.Time) models.Move {
	return models.Move{
		ID:              ids.NewAt(now),
		GameID:          g.ID,
		MemberID:        memberID,
		Kind:            kind,
		QuestionID:      nil,
		SubjectID:       nil,
		Answer:          nil,
		EliminatedCount: 0,
		CreatedAt:       now,
		Prompt:          nil,
	}
}

// SelectTarget picks the board member the opponent has to find. The selection is not recorded in the history.
func (s *Service) SelectTarget(ctx context.Context, memberID, gameID, targetID string) error {
	_, err := s.mutate(ctx, memberID, gameID, func(g *game.Game, now time.Time) ([]models.Move, error) {
		if err := g.SelectTarget(memberID, targetID, now); err != nil {
			return nil, err
		}
		return []models.Move{newMove(g, memberID, models.MoveSelectTarget, now)}, nil
	})
	return err
}

// AskQuestion asks a catalog question about the opponent's target and eliminates the board members answering
// differently.
func (s *Service) AskQuestion(ctx context.Context, memberID, gameID, questionID string) (game.QuestionOutcome, error) {
	question, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return game.QuestionOutcome{}, errors.Wrap(err, "ask question", slog.String("question_id", questionID))
	}

	var outcome game.QuestionOutcome
	_, err = s.mutate(ctx, memberID, gameID, func(g *game.Game, now time.Time) ([]models.Move, error) {
		members, err := s.members.ListByIDs(ctx, g.Board)
		if err != nil {
			return nil, errors.Wrap(err, "load board")
		}
		if outcome, err = g.AskQuestion(memberID, question, members, now); err != nil {
			return nil, err
		}
		move := newMove(g, memberID, models.MoveQuestion, now)
		move.QuestionID = &question.ID
		move.Answer = &outcome.Answer
		move.EliminatedCount = len(outcome.Eliminated)
		return []models.Move{move}, nil
	})
	if err != nil {
		return game.QuestionOutcome{}, err
	}
	return outcome, nil
}

// Guess names the board member memberID believes to be the opponent's target. A correct guess wins the game.
func (s *Service) Guess(ctx context.Context, memberID, gameID, suspectID string) (bool, error) {
	var correct bool
	_, err := s.mutate(ctx, memberID, gameID, func(g *game.Game, now time.Time) ([]models.Move, error) {
		var err error
		if correct, err = g.Guess(memberID, suspectID, now); err != nil {
			return nil, err
		}
		move := newMove(g, memberID, models.MoveGuess, now)
		move.SubjectID = &suspectID
		move.Answer = &correct
		return []models.Move{move}, nil
	})
	if err != nil {
		return false, err
	}
	return correct, nil
}

// Forfeit gives up the game. It ends without a winner.
func (s *Service) Forfeit(ctx context.Context, memberID, gameID string) error {
	_, err := s.mutate(ctx, memberID, gameID, func(g *game.Game, now time.Time) ([]models.Move, error) {
		if err := g.Forfeit(memberID, now); err != nil {
			return nil, err
		}
		return []models.Move{newMove(g, memberID, models.MoveForfeit, now)}, nil
	})
	return err
}
