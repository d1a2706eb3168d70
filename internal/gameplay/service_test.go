package gameplay_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/gameplay"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/stretchr/testify/require"
)

func questionIDs(categories []game.CategoryQuestions) []string {
	var questionIDs []string
	for _, c := range categories {
		for _, q := range c.Questions {
			questionIDs = append(questionIDs, q.ID)
		}
	}
	return questionIDs
}

func TestService_fullGame(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.join(t, "alice", "go")
	bob := e.join(t, "bob", "python")
	c1 := e.join(t, "c1", "go")
	c2 := e.join(t, "c2", "go")
	c3 := e.join(t, "c3", "python")
	c4 := e.join(t, "c4", "python")

	bobEvents, cancelBob := e.svc.SubscribeMember(bob.ID)
	defer cancelBob()

	inv, err := e.svc.Invite(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, gameplay.EventInvitation, receive(t, bobEvents).Kind)

	_, err = e.svc.Invite(ctx, bob.ID, alice.ID)
	require.ErrorIs(t, err, errors.ErrConflict, "a pending invitation blocks the reverse direction")

	lobby, err := e.svc.Lobby(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, lobby.Received(), 1)
	require.Empty(t, lobby.Sent())
	require.Len(t, lobby.Members, 5)

	_, err = e.svc.RespondToInvitation(ctx, alice.ID, inv.ID, true)
	require.ErrorIs(t, err, errors.ErrNotFound, "only the invitee may respond")

	gameID, err := e.svc.RespondToInvitation(ctx, bob.ID, inv.ID, true)
	require.NoError(t, err)
	require.NotEmpty(t, gameID)
	event := receive(t, bobEvents)
	require.Equal(t, gameID, event.GameID)

	v, err := e.svc.View(ctx, alice.ID, gameID)
	require.NoError(t, err)
	require.True(t, v.NeedsTarget())
	require.Nil(t, v.Questions)
	require.Len(t, v.Board, 4)
	require.Equal(t, c4.ID, v.Board[0].Member.ID, "most recently active member comes first")
	require.Equal(t, c1.ID, v.Board[3].Member.ID)

	_, err = e.svc.View(ctx, c1.ID, gameID)
	require.ErrorIs(t, err, errors.ErrNotFound, "outsiders can't see the game")

	gameEvents, cancelGame, err := e.svc.SubscribeGame(ctx, bob.ID, gameID)
	require.NoError(t, err)
	defer cancelGame()

	require.NoError(t, e.svc.SelectTarget(ctx, alice.ID, gameID, c1.ID))
	require.Equal(t, gameplay.Event{Kind: gameplay.EventGameUpdated, GameID: gameID, Version: 1}, receive(t, gameEvents))
	require.ErrorIs(t, e.svc.SelectTarget(ctx, alice.ID, gameID, c2.ID), errors.ErrConflict)
	require.ErrorIs(t, e.svc.SelectTarget(ctx, bob.ID, gameID, alice.ID), errors.ErrValidation)
	require.NoError(t, e.svc.SelectTarget(ctx, bob.ID, gameID, c3.ID))

	v, err = e.svc.View(ctx, alice.ID, gameID)
	require.NoError(t, err)
	require.True(t, v.MyTurn())
	require.Equal(t, c1.ID, v.MyTarget.ID)
	require.Nil(t, v.OpponentTarget, "the opponent's target stays hidden while playing")
	require.ElementsMatch(t, []string{"skills-go", "skills-python"}, questionIDs(v.Questions))

	_, err = e.svc.AskQuestion(ctx, bob.ID, gameID, "skills-go")
	require.ErrorIs(t, err, game.ErrNotYourTurn)
	_, err = e.svc.AskQuestion(ctx, alice.ID, gameID, "no-such-question")
	require.ErrorIs(t, err, errors.ErrNotFound)

	outcome, err := e.svc.AskQuestion(ctx, alice.ID, gameID, "skills-go")
	require.NoError(t, err)
	require.False(t, outcome.Answer)
	require.Equal(t, []string{c2.ID, c1.ID}, outcome.Eliminated)

	v, err = e.svc.View(ctx, alice.ID, gameID)
	require.NoError(t, err)
	require.False(t, v.MyTurn())
	require.Equal(t, 2, v.Remaining)
	require.Equal(t, 4, v.OpponentRemaining)
	require.Len(t, v.Moves, 3)
	last := v.Moves[2]
	require.Equal(t, models.MoveQuestion, last.Kind)
	require.Equal(t, 2, last.EliminatedCount)
	require.NotNil(t, last.Prompt)

	correct, err := e.svc.Guess(ctx, bob.ID, gameID, c2.ID)
	require.NoError(t, err)
	require.False(t, correct)

	correct, err = e.svc.Guess(ctx, alice.ID, gameID, c3.ID)
	require.NoError(t, err)
	require.True(t, correct)

	v, err = e.svc.View(ctx, bob.ID, gameID)
	require.NoError(t, err)
	require.True(t, v.Lost())
	require.Equal(t, c1.ID, v.OpponentTarget.ID, "the target is revealed after the game")
	require.ErrorIs(t, e.svc.Forfeit(ctx, bob.ID, gameID), game.ErrGameOver)

	msg, err := e.svc.SendChat(ctx, bob.ID, gameID, "  good game  ")
	require.NoError(t, err)
	require.Equal(t, "good game", msg.Body)
	require.Equal(t, "bob", msg.SenderName)

	v, err = e.svc.View(ctx, alice.ID, gameID)
	require.NoError(t, err)
	require.True(t, v.Won())
	require.Len(t, v.Chat, 1)
	require.Equal(t, "bob", v.Names[bob.ID])
}

func TestService_Invite(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.join(t, "alice", "")
	bob := e.join(t, "bob", "")

	_, err := e.svc.Invite(ctx, alice.ID, alice.ID)
	require.ErrorIs(t, err, errors.ErrValidation)

	_, err = e.svc.Invite(ctx, alice.ID, "nobody")
	require.ErrorIs(t, err, errors.ErrNotFound)

	_, err = e.svc.SaveProfile(ctx, bob.UserID, gameplay.ProfileInput{
		DisplayName:         "bob",
		Profession:          "",
		Bio:                 "",
		Skills:              "",
		Interests:           "",
		WorkspacePreference: "",
		GameParticipation:   false,
	})
	require.NoError(t, err)
	_, err = e.svc.Invite(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, gameplay.ErrNotParticipating)
}

func TestService_RespondToInvitation(t *testing.T) {
	ctx := context.Background()

	t.Run("board too small", func(t *testing.T) {
		e := newEnv(t)
		alice := e.join(t, "alice", "")
		bob := e.join(t, "bob", "")
		e.join(t, "carol", "")

		inv, err := e.svc.Invite(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		_, err = e.svc.RespondToInvitation(ctx, bob.ID, inv.ID, true)
		require.ErrorIs(t, err, gameplay.ErrBoardTooSmall)
		require.ErrorIs(t, err, errors.ErrValidation)

		invitations, err := e.svc.ListInvitations(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, invitations, 1, "the invitation stays open")
	})

	t.Run("declined", func(t *testing.T) {
		e := newEnv(t)
		alice := e.join(t, "alice", "")
		bob := e.join(t, "bob", "")

		inv, err := e.svc.Invite(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		gameID, err := e.svc.RespondToInvitation(ctx, bob.ID, inv.ID, false)
		require.NoError(t, err)
		require.Empty(t, gameID)

		invitations, err := e.svc.ListInvitations(ctx, alice.ID)
		require.NoError(t, err)
		require.Empty(t, invitations)

		_, err = e.svc.RespondToInvitation(ctx, bob.ID, inv.ID, true)
		require.ErrorIs(t, err, errors.ErrConflict)

		_, err = e.svc.Invite(ctx, bob.ID, alice.ID)
		require.NoError(t, err, "a declined invitation doesn't block new ones")
	})

	t.Run("expired", func(t *testing.T) {
		e := newEnv(t)
		alice := e.join(t, "alice", "")
		bob := e.join(t, "bob", "")
		e.join(t, "carol", "")
		e.join(t, "dave", "")

		inv, err := e.svc.Invite(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		e.clock.Advance(models.InvitationTTL + time.Second)
		_, err = e.svc.RespondToInvitation(ctx, bob.ID, inv.ID, true)
		require.ErrorIs(t, err, errors.ErrConflict)

		_, err = e.svc.Invite(ctx, alice.ID, bob.ID)
		require.NoError(t, err, "an expired invitation doesn't block new ones")
	})
}

func TestService_Forfeit(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.join(t, "alice", "")
	bob := e.join(t, "bob", "")
	e.join(t, "carol", "")
	e.join(t, "dave", "")

	inv, err := e.svc.Invite(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	gameID, err := e.svc.RespondToInvitation(ctx, bob.ID, inv.ID, true)
	require.NoError(t, err)

	require.NoError(t, e.svc.Forfeit(ctx, bob.ID, gameID))
	v, err := e.svc.View(ctx, alice.ID, gameID)
	require.NoError(t, err)
	require.Equal(t, game.StatusAbandoned, v.Game.Status)
	require.Equal(t, bob.ID, v.Game.AbandonedBy)
	require.False(t, v.Won())
	require.False(t, v.Lost())

	lobby, err := e.svc.Lobby(ctx, alice.ID)
	require.NoError(t, err)
	require.Empty(t, lobby.Games)
}

func TestService_SendChat(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.join(t, "alice", "")
	bob := e.join(t, "bob", "")
	carol := e.join(t, "carol", "")
	e.join(t, "dave", "")

	inv, err := e.svc.Invite(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	gameID, err := e.svc.RespondToInvitation(ctx, bob.ID, inv.ID, true)
	require.NoError(t, err)

	_, err = e.svc.SendChat(ctx, alice.ID, gameID, "   ")
	require.ErrorIs(t, err, errors.ErrValidation)
	_, err = e.svc.SendChat(ctx, alice.ID, gameID, strings.Repeat("ä", gameplay.MaxChatLength+1))
	require.ErrorIs(t, err, errors.ErrValidation)
	require.Contains(t, errors.SlogError(err).Value.String(), "length=501", "length is counted in characters")
	_, err = e.svc.SendChat(ctx, carol.ID, gameID, "hi")
	require.ErrorIs(t, err, errors.ErrNotFound)

	_, err = e.svc.SendChat(ctx, alice.ID, gameID, strings.Repeat("ä", gameplay.MaxChatLength))
	require.NoError(t, err)
	_, err = e.svc.SendChat(ctx, bob.ID, gameID, "second")
	require.NoError(t, err)

	v, err := e.svc.View(ctx, bob.ID, gameID)
	require.NoError(t, err)
	require.Len(t, v.Chat, 2)
	require.Equal(t, "second", v.Chat[1].Body)
}

func TestService_malformedIDs(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.join(t, "alice", "go")

	_, err := e.svc.View(ctx, alice.ID, "../etc/passwd")
	require.ErrorIs(t, err, errors.ErrNotFound)
	_, err = e.svc.SendChat(ctx, alice.ID, "not-a-game", "hi")
	require.ErrorIs(t, err, errors.ErrNotFound)
	_, err = e.svc.RespondToInvitation(ctx, alice.ID, "", true)
	require.ErrorIs(t, err, errors.ErrNotFound)
}
