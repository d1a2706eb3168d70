package gameplay_test

import (
	"context"
	"strings"
	"testing"

	"github.com/myrjola/guesswho/internal/catalog"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/gameplay"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	require.Equal(t, []string{"go", "board games"}, gameplay.ParseTags(" Go, board   Games,,go "))
	require.Empty(t, gameplay.ParseTags(" , "))
}

func TestService_SaveProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.join(t, "alice", "go, Python")
	require.Equal(t, []string{"go", "python"}, alice.Skills)

	valid := gameplay.ProfileInput{
		DisplayName:         " Alice A. ",
		Profession:          "Designer",
		Bio:                 "Draws things",
		Skills:              "design",
		Interests:           "climbing",
		WorkspacePreference: "hybrid",
		GameParticipation:   true,
	}
	updated, err := e.svc.SaveProfile(ctx, alice.UserID, valid)
	require.NoError(t, err)
	require.Equal(t, alice.ID, updated.ID, "saving again updates the existing member")

	stored, err := e.svc.Profile(ctx, alice.UserID)
	require.NoError(t, err)
	require.Equal(t, "Alice A.", stored.DisplayName)
	require.Equal(t, []string{"design"}, stored.Skills)
	require.Equal(t, "hybrid", stored.WorkspacePreference)

	_, err = e.svc.Profile(ctx, []byte("nobody"))
	require.ErrorIs(t, err, errors.ErrNotFound)

	tests := []struct {
		name   string
		modify func(in *gameplay.ProfileInput)
	}{
		{name: "empty display name", modify: func(in *gameplay.ProfileInput) { in.DisplayName = "  " }},
		{name: "long display name", modify: func(in *gameplay.ProfileInput) { in.DisplayName = strings.Repeat("a", 81) }},
		{name: "unknown workspace", modify: func(in *gameplay.ProfileInput) { in.WorkspacePreference = "beach" }},
		{name: "long bio", modify: func(in *gameplay.ProfileInput) { in.Bio = strings.Repeat("a", 501) }},
		{name: "long tag", modify: func(in *gameplay.ProfileInput) { in.Skills = strings.Repeat("a", 41) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.modify(&in)
			_, err := e.svc.SaveProfile(ctx, alice.UserID, in)
			require.ErrorIs(t, err, gameplay.ErrInvalidProfile)
			require.ErrorIs(t, err, errors.ErrValidation)
		})
	}
}

func TestService_Professions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.join(t, "alice", "go")

	professions, err := e.svc.Professions(ctx)
	require.NoError(t, err)
	require.Contains(t, professions, "Software Engineer")
	require.Contains(t, professions, "Designer")

	saved, err := e.svc.SaveProfile(ctx, alice.UserID, gameplay.ProfileInput{ //nolint:exhaustruct // profession only
		DisplayName: "Alice",
		Profession:  "  software ENGINEER ",
	})
	require.NoError(t, err)
	require.Equal(t, "Software Engineer", saved.Profession, "catalog spelling is used")

	categories, err := catalog.Default()
	require.NoError(t, err)
	var engineer models.Question
	for _, c := range categories {
		for _, q := range c.Questions {
			if q.ID == "profession-software-engineer" {
				engineer = q
			}
		}
	}
	require.NotEmpty(t, engineer.ID)
	require.True(t, game.Resolve(engineer, saved))

	saved, err = e.svc.SaveProfile(ctx, alice.UserID, gameplay.ProfileInput{ //nolint:exhaustruct // profession only
		DisplayName: "Alice",
		Profession:  "Lighthouse keeper",
	})
	require.NoError(t, err)
	require.Equal(t, "Lighthouse keeper", saved.Profession, "other professions are kept as typed")
}
