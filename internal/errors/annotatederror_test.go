package errors

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := Wrap(sentinel, "context", slog.Int("attempt", 2))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "context: test error", wrapped.Error())

	// Ensure log values are coming through.
	var annotated *AnnotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.GreaterOrEqual(t, sourceIdx, 0)
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "nothing to see"))
}

func TestSlogError(t *testing.T) {
	err := Wrap(fmt.Errorf("plain cause"), "outer", slog.String("game_id", "g1"))
	attr := SlogError(err)
	require.Equal(t, "error", attr.Key)
	require.Contains(t, attr.Value.String(), "outer: plain cause")
	require.Contains(t, attr.Value.String(), "game_id=g1")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "unauthorized", err: Wrap(ErrUnauthorized, "no session"), want: http.StatusUnauthorized},
		{name: "not found", err: Wrap(ErrNotFound, "member"), want: http.StatusNotFound},
		{name: "conflict", err: Wrap(Wrap(ErrConflict, "pending invitation"), "invite"), want: http.StatusConflict},
		{name: "validation", err: Wrap(ErrValidation, "display name"), want: http.StatusUnprocessableEntity},
		{name: "upstream", err: Wrap(ErrUpstream, "db"), want: http.StatusInternalServerError},
		{name: "unknown", err: New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
