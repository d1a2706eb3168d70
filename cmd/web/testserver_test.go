package main

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/guesswho/internal/e2etest"
	"github.com/stretchr/testify/require"
)

const testCronSecret = "test-cron-secret"

// startTestServer runs the application on a random port with an in-memory database. overrides replace the test
// defaults of the environment.
func startTestServer(t *testing.T, overrides map[string]string) *e2etest.Server {
	t.Helper()
	env := map[string]string{
		"GUESSWHO_ADDR":                  "localhost:0",
		"GUESSWHO_SQLITE_URL":            ":memory:",
		"GUESSWHO_CRON_SECRET":           testCronSecret,
		"GUESSWHO_HOUSEKEEPING_INTERVAL": "0s",
	}
	for key, value := range overrides {
		env[key] = value
	}
	lookupEnv := func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, lookupEnv, run)
	require.NoError(t, err)
	return server
}

// newClient returns a client that isn't signed in yet.
func newClient(t *testing.T, server *e2etest.Server) *e2etest.Client {
	t.Helper()
	client, err := server.NewClient()
	require.NoError(t, err)
	return client
}

// join registers a passkey and creates a participating profile. It returns the lobby document.
func join(t *testing.T, client *e2etest.Client, name, skills string) *goquery.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := client.Register(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("form[action='/profile']").Length(), "new users create a profile first")

	doc, err = client.SubmitForm(ctx, "/profile", "/profile", url.Values{
		"display_name":       {name},
		"profession":         {"Engineer"},
		"skills":             {skills},
		"game_participation": {"true"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("#lobby").Length(), "saving the profile leads to the lobby")
	return doc
}

// memberID finds the id of the member called name in the lobby document.
func memberID(t *testing.T, doc *goquery.Document, name string) string {
	t.Helper()
	id, ok := doc.Find("#lobby li[data-member-name='" + name + "']").Attr("data-member-id")
	require.True(t, ok, "member %s not listed", name)
	return id
}

// status fetches urlPath and returns the response status code.
func status(t *testing.T, client *e2etest.Client, urlPath string) int {
	t.Helper()
	resp, err := client.Get(context.Background(), urlPath)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp.StatusCode
}

// postStatus submits the form with action formActionURLPath found at formURLPath and returns the final status code.
func postStatus(t *testing.T, client *e2etest.Client, formURLPath, formActionURLPath string, fields url.Values) int {
	t.Helper()
	resp, err := client.PostForm(context.Background(), formURLPath, formActionURLPath, fields)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp.StatusCode
}

func bearer(secret string) http.Header {
	return http.Header{"Authorization": {"Bearer " + secret}}
}
