package main

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_application_invitations(t *testing.T) {
	server := startTestServer(t, map[string]string{"GUESSWHO_INVITE_RATE_PER_MINUTE": "2"})
	ctx := context.Background()
	alice, bob := server.Client(), newClient(t, server)
	join(t, bob, "Bob", "go")
	join(t, newClient(t, server), "Carol", "go")
	lobby := join(t, alice, "Alice", "go")
	bobID, carolID := memberID(t, lobby, "Bob"), memberID(t, lobby, "Carol")

	assert.Equal(t, http.StatusOK, postStatus(t, alice, "/members", "/invitations", url.Values{"member_id": {bobID}}))

	// A second invitation within the same second is over the limit.
	resp, err := alice.PostForm(ctx, "/members", "/invitations", url.Values{"member_id": {carolID}})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	doc, err := alice.GetDoc(ctx, "/members")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("li[data-invitation-id]").Length(), "Alice waits for Bob")

	doc, err = bob.GetDoc(ctx, "/members")
	require.NoError(t, err)
	invitationID, ok := doc.Find("li[data-invitation-id]").Attr("data-invitation-id")
	require.True(t, ok)

	// Alice can't answer her own invitation.
	token, err := alice.CSRFToken(ctx, "/members", "/api/logout")
	require.NoError(t, err)
	resp, err = alice.Post(ctx, "/invitations/"+invitationID+"/accept", nil, token)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	doc, err = bob.SubmitForm(ctx, "/members", "/invitations/"+invitationID+"/decline", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find("li[data-invitation-id]").Length())
	assert.Equal(t, 0, doc.Find("li[data-game-id]").Length())
}
