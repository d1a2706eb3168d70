package gameplay_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/myrjola/guesswho/internal/broker"
	"github.com/myrjola/guesswho/internal/catalog"
	"github.com/myrjola/guesswho/internal/gameplay"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/repositories"
	"github.com/myrjola/guesswho/internal/sqlite"
	"github.com/myrjola/guesswho/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type env struct {
	svc   *gameplay.Service
	db    *sqlite.Database
	clock *clock
}

// newEnv sets up the service on an in-memory database seeded with the default question catalog.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := testhelpers.NewLogger(io.Discard)
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	require.NoError(t, err)

	categories, err := catalog.Default()
	require.NoError(t, err)
	_, err = catalog.Import(ctx, repositories.NewQuestionRepository(db, logger), categories)
	require.NoError(t, err)

	hub := broker.NewHub[string, gameplay.Event](8)
	go hub.Start()
	t.Cleanup(func() {
		hub.Stop()
		cancel()
		require.NoError(t, db.Close())
	})

	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := gameplay.New(db, hub, logger, gameplay.Options{BoardSize: 0, Now: c.Now})
	return &env{svc: svc, db: db, clock: c}
}

// join registers a user and saves a participating profile for it. Each member joins a minute after the previous one
// so that the most recently joined member is the most recently active.
func (e *env) join(t *testing.T, name, skills string) models.Member {
	t.Helper()
	ctx := context.Background()
	userID := []byte("user-" + name)
	_, err := e.db.ReadWrite.ExecContext(ctx, `INSERT INTO users (id, display_name) VALUES (?, ?)`, userID, name)
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	m, err := e.svc.SaveProfile(ctx, userID, gameplay.ProfileInput{
		DisplayName:         name,
		Profession:          "Engineer",
		Bio:                 "",
		Skills:              skills,
		Interests:           "",
		WorkspacePreference: "",
		GameParticipation:   true,
	})
	require.NoError(t, err)
	return m
}

// receive waits for the next event on events.
func receive(t *testing.T, events <-chan gameplay.Event) gameplay.Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for event")
	}
	return gameplay.Event{}
}
