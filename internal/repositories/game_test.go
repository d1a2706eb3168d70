package repositories_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/repositories"
	"github.com/myrjola/guesswho/internal/sqlite"
	"github.com/myrjola/guesswho/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// seedGame creates players A and B, board members m1 to m4 and a waiting game between A and B.
func seedGame(t *testing.T, db *sqlite.Database) *game.Game {
	t.Helper()
	for i, id := range []string{"A", "B", "m1", "m2", "m3", "m4"} {
		createMember(t, db, id, i)
	}
	g, err := game.New("g1", "A", "B", []string{"m1", "m2", "m3", "m4"}, epoch)
	require.NoError(t, err)
	repo := repositories.NewGameRepository(db, testhelpers.NewLogger(io.Discard))
	require.NoError(t, repo.Create(context.Background(), g))
	return g
}

func TestGameRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := repositories.NewGameRepository(db, testhelpers.NewLogger(io.Discard))
	g := seedGame(t, db)

	loaded, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, [2]string{"A", "B"}, loaded.Players)
	require.Equal(t, []string{"m1", "m2", "m3", "m4"}, loaded.Board)
	require.Equal(t, game.StatusWaiting, loaded.Status)
	require.Empty(t, loaded.Targets)
	require.Nil(t, loaded.EndedAt)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)

	// Both players pick their targets.
	version, turn := g.Version, g.CurrentTurn
	require.NoError(t, g.SelectTarget("A", "m1", epoch))
	require.NoError(t, g.SelectTarget("B", "m4", epoch))
	require.NoError(t, repo.Update(ctx, g, version, turn, models.Move{ //nolint:exhaustruct // no question
		GameID: "g1", MemberID: "A", Kind: models.MoveSelectTarget, CreatedAt: epoch,
	}))

	loaded, err = repo.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, game.StatusActive, loaded.Status)
	require.Equal(t, "A", loaded.CurrentTurn)
	require.Equal(t, map[string]string{"A": "m1", "B": "m4"}, loaded.Targets)
	require.Equal(t, g.Version, loaded.Version)

	// Eliminations survive a round trip in the order they were made.
	loaded.Eliminated["B"] = []string{"m3", "m1"}
	prevVersion := loaded.Version
	loaded.Version++
	loaded.CurrentTurn = "B"
	require.NoError(t, repo.Update(ctx, loaded, prevVersion, "A"))
	reloaded, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, []string{"m3", "m1"}, reloaded.Eliminated["B"])
	require.Empty(t, reloaded.Eliminated["A"])
	require.Equal(t, "B", reloaded.CurrentTurn)
}

func TestGameRepository_compareAndSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := repositories.NewGameRepository(db, testhelpers.NewLogger(io.Discard))
	seedGame(t, db)

	first, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	second, err := repo.Get(ctx, "g1")
	require.NoError(t, err)

	// Two concurrent requests load the same version; only the first write wins.
	require.NoError(t, first.SelectTarget("A", "m1", epoch))
	require.NoError(t, repo.Update(ctx, first, 0, ""))

	require.NoError(t, second.SelectTarget("A", "m2", epoch))
	err = repo.Update(ctx, second, 0, "")
	require.ErrorIs(t, err, repositories.ErrStaleGame)
	require.ErrorIs(t, err, errors.ErrConflict)

	loaded, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, "m1", loaded.Targets["A"])

	// The expected turn holder is part of the guard.
	require.NoError(t, loaded.SelectTarget("B", "m2", epoch))
	require.Equal(t, "A", loaded.CurrentTurn)
	require.NoError(t, repo.Update(ctx, loaded, 1, ""))
	stale, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	_, err = stale.Guess("A", "m3", epoch)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Update(ctx, stale, stale.Version-1, "B"), repositories.ErrStaleGame)
	require.NoError(t, repo.Update(ctx, stale, stale.Version-1, "A"))
}

func TestGameRepository_moves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := repositories.NewGameRepository(db, testhelpers.NewLogger(io.Discard))
	questions := repositories.NewQuestionRepository(db, testhelpers.NewLogger(io.Discard))
	seedGame(t, db)

	require.NoError(t, questions.UpsertCategory(ctx, models.QuestionCategory{
		ID: "skills", Name: "Skills", Position: 0, Questions: nil,
	}))
	value := "go"
	require.NoError(t, questions.UpsertQuestion(ctx, models.Question{
		ID: "q1", CategoryID: "skills", Prompt: "Do they write Go?", AttributePath: "skills", AttributeValue: &value,
		Position: 0,
	}))

	g, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	require.NoError(t, g.SelectTarget("A", "m1", epoch))
	questionID, answer := "q1", true
	subject := "m2"
	require.NoError(t, repo.Update(ctx, g, 0, "",
		models.Move{ //nolint:exhaustruct // prompt is joined
			GameID: "g1", MemberID: "A", Kind: models.MoveQuestion, QuestionID: &questionID, Answer: &answer,
			EliminatedCount: 2, CreatedAt: epoch,
		},
		models.Move{ //nolint:exhaustruct // no question
			GameID: "g1", MemberID: "B", Kind: models.MoveGuess, SubjectID: &subject, CreatedAt: epoch,
		},
	))

	// A lost compare-and-set writes no moves.
	require.ErrorIs(t, repo.Update(ctx, g, 0, "", models.Move{ //nolint:exhaustruct // forfeit has no details
		GameID: "g1", MemberID: "B", Kind: models.MoveForfeit, CreatedAt: epoch,
	}), repositories.ErrStaleGame)

	moves, err := repo.ListMoves(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, moves, 2)
	require.Equal(t, models.MoveQuestion, moves[0].Kind)
	require.Equal(t, "Do they write Go?", *moves[0].Prompt)
	require.True(t, *moves[0].Answer)
	require.Equal(t, 2, moves[0].EliminatedCount)
	require.Equal(t, models.MoveGuess, moves[1].Kind)
	require.Nil(t, moves[1].Prompt)
	require.Nil(t, moves[1].Answer)
	require.Equal(t, "m2", *moves[1].SubjectID)
}

func TestGameRepository_activeAndIdle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := repositories.NewGameRepository(db, testhelpers.NewLogger(io.Discard))
	seedGame(t, db)

	summaries, err := repo.ListActiveForMember(ctx, "B")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "A", summaries[0].OpponentID)
	require.Equal(t, "Member A", summaries[0].OpponentName)
	require.Equal(t, string(game.StatusWaiting), summaries[0].Status)

	summaries, err = repo.ListActiveForMember(ctx, "m1")
	require.NoError(t, err)
	require.Empty(t, summaries)

	abandoned, err := repo.AbandonIdle(ctx, epoch.Add(10*time.Minute), 30*time.Minute)
	require.NoError(t, err)
	require.Empty(t, abandoned)

	now := epoch.Add(31 * time.Minute)
	abandoned, err = repo.AbandonIdle(ctx, now, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"g1"}, abandoned)

	g, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, game.StatusAbandoned, g.Status)
	require.Empty(t, g.AbandonedBy)
	require.NotNil(t, g.EndedAt)
	require.True(t, now.Equal(*g.EndedAt))

	moves, err := repo.ListMoves(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, moves, 1)
	require.Equal(t, models.MoveAbandon, moves[0].Kind)
	require.Empty(t, moves[0].MemberID)

	summaries, err = repo.ListActiveForMember(ctx, "A")
	require.NoError(t, err)
	require.Empty(t, summaries)
}
