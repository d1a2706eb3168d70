package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/justinas/nosurf"
	"github.com/myrjola/guesswho/internal/housekeeping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_application_cleanup(t *testing.T) {
	server := startTestServer(t, nil)
	ctx := context.Background()
	client := server.Client()

	for _, header := range []http.Header{nil, bearer("wrong"), bearer(testCronSecret + "x")} {
		resp, err := client.Do(ctx, http.MethodPost, "/api/cron/cleanup", header)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, err := client.Do(ctx, http.MethodPost, "/api/cron/cleanup", bearer(testCronSecret))
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result housekeeping.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Empty(t, result.AbandonedGames)
}

func Test_application_cleanupDisabled(t *testing.T) {
	server := startTestServer(t, map[string]string{"GUESSWHO_CRON_SECRET": ""})
	resp, err := server.Client().Do(context.Background(), http.MethodPost, "/api/cron/cleanup", bearer(""))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func Test_application_presence(t *testing.T) {
	server := startTestServer(t, nil)
	ctx := context.Background()
	client := server.Client()
	join(t, client, "Ada", "go")

	token, err := client.CSRFToken(ctx, "/members", "/api/logout")
	require.NoError(t, err)

	resp, err := client.Do(ctx, http.MethodPost, "/api/presence", http.Header{nosurf.HeaderName: {token}})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Do(ctx, http.MethodPost, "/api/presence", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "heartbeats need the CSRF token")
}
