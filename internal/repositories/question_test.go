package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/repositories"
	"github.com/myrjola/guesswho/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestQuestionRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := repositories.NewQuestionRepository(db, testhelpers.NewLogger(io.Discard))

	remote := "remote"
	require.NoError(t, repo.UpsertCategory(ctx, models.QuestionCategory{ID: "work", Name: "Work", Position: 1}))
	require.NoError(t, repo.UpsertCategory(ctx, models.QuestionCategory{ID: "play", Name: "Play", Position: 0}))
	require.NoError(t, repo.UpsertCategory(ctx, models.QuestionCategory{ID: "empty", Name: "Empty", Position: 2}))
	require.NoError(t, repo.UpsertQuestion(ctx, models.Question{
		ID: "remote", CategoryID: "work", Prompt: "Remote?", AttributePath: "workspacePreference",
		AttributeValue: &remote, Position: 1,
	}))
	require.NoError(t, repo.UpsertQuestion(ctx, models.Question{
		ID: "plays", CategoryID: "play", Prompt: "Plays games?", AttributePath: "gameParticipation",
		AttributeValue: nil, Position: 0,
	}))
	require.NoError(t, repo.UpsertQuestion(ctx, models.Question{
		ID: "profession", CategoryID: "work", Prompt: "Engineer?", AttributePath: "profession",
		AttributeValue: nil, Position: 0,
	}))

	// Upserting again updates in place.
	require.NoError(t, repo.UpsertQuestion(ctx, models.Question{
		ID: "profession", CategoryID: "work", Prompt: "Is an engineer?", AttributePath: "profession",
		AttributeValue: nil, Position: 0,
	}))

	catalog, err := repo.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 3)
	require.Equal(t, "play", catalog[0].ID)
	require.Len(t, catalog[0].Questions, 1)
	require.Equal(t, "work", catalog[1].ID)
	require.Equal(t, "profession", catalog[1].Questions[0].ID)
	require.Equal(t, "Is an engineer?", catalog[1].Questions[0].Prompt)
	require.Equal(t, "remote", catalog[1].Questions[1].ID)
	require.Equal(t, "remote", *catalog[1].Questions[1].AttributeValue)
	require.Empty(t, catalog[2].Questions)

	q, err := repo.Get(ctx, "plays")
	require.NoError(t, err)
	require.Nil(t, q.AttributeValue)
	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)

	err = repo.UpsertQuestion(ctx, models.Question{
		ID: "orphan", CategoryID: "missing", Prompt: "?", AttributePath: "bio", AttributeValue: nil, Position: 0,
	})
	require.ErrorIs(t, err, errors.ErrValidation)
}
