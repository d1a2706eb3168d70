package ids_test

import (
	"slices"
	"testing"
	"time"

	"github.com/myrjola/guesswho/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestNewIsMonotonic(t *testing.T) {
	now := time.Now()
	generated := make([]string, 0, 100)
	for range 100 {
		generated = append(generated, ids.NewAt(now))
	}
	require.True(t, slices.IsSorted(generated), "ids created in the same millisecond must sort in creation order")
	for _, id := range generated {
		require.True(t, ids.Valid(id))
	}
}

func TestValid(t *testing.T) {
	require.False(t, ids.Valid(""))
	require.False(t, ids.Valid("not-a-ulid"))
	require.True(t, ids.Valid(ids.NewAt(time.Now())))
}
