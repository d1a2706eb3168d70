package repositories_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/repositories"
	"github.com/myrjola/guesswho/internal/sqlite"
	"github.com/myrjola/guesswho/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		require.NoError(t, db.Close())
	})
	return db
}

// createMember stores a user and its member profile. The member is active at epoch plus the given minutes.
func createMember(t *testing.T, db *sqlite.Database, id string, activeMinute int, skills ...string) models.Member {
	t.Helper()
	ctx := context.Background()
	userID := []byte("user-" + id)
	_, err := db.ReadWrite.ExecContext(ctx, `INSERT INTO users (id, display_name) VALUES (?, ?)`, userID, id)
	require.NoError(t, err)

	member := models.Member{
		ID:                  id,
		UserID:              userID,
		DisplayName:         fmt.Sprintf("Member %s", id),
		Profession:          "Engineer",
		Bio:                 "",
		Skills:              skills,
		Interests:           []string{"climbing"},
		WorkspacePreference: "remote",
		GameParticipation:   true,
		Status:              models.PresenceOnline,
		LastActiveAt:        epoch.Add(time.Duration(activeMinute) * time.Minute),
		CreatedAt:           epoch,
	}
	logger := testhelpers.NewLogger(io.Discard)
	require.NoError(t, repositories.NewMemberRepository(db, logger).Create(ctx, member))
	return member
}
