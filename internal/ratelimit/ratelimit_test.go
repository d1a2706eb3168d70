package ratelimit_test

import (
	"testing"
	"time"

	"github.com/myrjola/guesswho/internal/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := ratelimit.New(30, 3)
	l.SetClock(func() time.Time { return now })

	for range 3 {
		ok, _ := l.Allow("alice")
		require.True(t, ok)
	}
	ok, retryAfter := l.Allow("alice")
	require.False(t, ok)
	require.Equal(t, 2*time.Second, retryAfter)

	// Other members have their own budget.
	ok, _ = l.Allow("bob")
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, _ = l.Allow("alice")
	require.True(t, ok)
	ok, _ = l.Allow("alice")
	require.False(t, ok)

	// Idle keys are forgotten.
	now = now.Add(time.Hour)
	ok, _ = l.Allow("carol")
	require.True(t, ok)
	require.Equal(t, 1, l.Len())
}

func TestLimiter_disabled(t *testing.T) {
	l := ratelimit.New(0, 1)
	for range 100 {
		ok, _ := l.Allow("alice")
		require.True(t, ok)
	}
}
