package gameplay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/ids"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/repositories"
)

var (
	ErrSelfInvitation   = fmt.Errorf("cannot invite yourself: %w", errors.ErrValidation)
	ErrNotParticipating = fmt.Errorf("member does not take part in games: %w", errors.ErrValidation)
	ErrBoardTooSmall    = fmt.Errorf("not enough participating members for a board: %w", errors.ErrValidation)
)

// Invite asks toID to play against fromID. Both members have to take part in games.
//
// Only one invitation can be pending between two members regardless of direction.
func (s *Service) Invite(ctx context.Context, fromID, toID string) (models.GameInvitation, error) {
	attrs := []slog.Attr{slog.String("from_member_id", fromID), slog.String("to_member_id", toID)}
	if fromID == toID {
		return models.GameInvitation{}, errors.Wrap(ErrSelfInvitation, "invite", attrs...)
	}
	for _, memberID := range []string{fromID, toID} {
		member, err := s.members.Get(ctx, memberID)
		if err != nil {
			return models.GameInvitation{}, errors.Wrap(err, "invite", attrs...)
		}
		if !member.GameParticipation {
			return models.GameInvitation{}, errors.Wrap(ErrNotParticipating, "invite",
				slog.String("member_id", memberID))
		}
	}

	now := s.now()
	inv := models.GameInvitation{
		ID:              ids.NewAt(now),
		FromMemberID:    fromID,
		ToMemberID:      toID,
		Status:          models.InvitationPending,
		GameID:          nil,
		CreatedAt:       now,
		ExpiresAt:       now.Add(models.InvitationTTL),
		FromDisplayName: "",
		ToDisplayName:   "",
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return models.GameInvitation{}, errors.Wrap(err, "invite", attrs...)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "invitation sent", append(attrs, slog.String("invitation_id", inv.ID))...)
	s.publishMembers("", fromID, toID)
	return inv, nil
}

// ListInvitations returns the open invitations sent to or by the member.
func (s *Service) ListInvitations(ctx context.Context, memberID string) ([]models.GameInvitation, error) {
	invitations, err := s.invitations.ListForMember(ctx, memberID, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "list invitations")
	}
	return invitations, nil
}

// RespondToInvitation accepts or declines the invitation on behalf of memberID, who must be the invitee.
//
// Accepting starts a game on a board of the most recently active participating members other than the two players.
// The inviter takes the first turn once both players have picked a target. The id of the new game is returned, or
// an empty string when declining.
func (s *Service) RespondToInvitation(ctx context.Context, memberID, invitationID string, accept bool) (string, error) {
	attrs := []slog.Attr{slog.String("invitation_id", invitationID), slog.String("member_id", memberID)}
	if !ids.Valid(invitationID) {
		return "", errors.Wrap(errors.ErrNotFound, "malformed invitation id", attrs...)
	}
	inv, err := s.invitations.Get(ctx, invitationID)
	if err != nil {
		return "", errors.Wrap(err, "respond to invitation", attrs...)
	}
	if inv.ToMemberID != memberID {
		return "", errors.Wrap(errors.ErrNotFound, "only the invitee can respond", attrs...)
	}

	now := s.now()
	if !accept {
		if err = s.invitations.Decline(ctx, invitationID, memberID, now); err != nil {
			return "", errors.Wrap(err, "decline invitation", attrs...)
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "invitation declined", attrs...)
		s.publishMembers("", inv.FromMemberID, inv.ToMemberID)
		return "", nil
	}

	if !inv.IsOpen(now) {
		return "", errors.Wrap(repositories.ErrInvitationClosed, "accept invitation", attrs...)
	}
	participants, err := s.members.ListParticipants(ctx, []string{inv.FromMemberID, inv.ToMemberID}, s.boardSize)
	if err != nil {
		return "", errors.Wrap(err, "list board members", attrs...)
	}
	if len(participants) < game.MinBoardSize {
		return "", errors.Wrap(ErrBoardTooSmall, "accept invitation",
			append(attrs, slog.Int("participants", len(participants)))...)
	}
	board := make([]string, len(participants))
	for i, m := range participants {
		board[i] = m.ID
	}

	g, err := game.New(ids.NewAt(now), inv.FromMemberID, inv.ToMemberID, board, now)
	if err != nil {
		return "", errors.Wrap(err, "new game", attrs...)
	}
	if err = s.invitations.Accept(ctx, invitationID, memberID, g, now); err != nil {
		return "", errors.Wrap(err, "accept invitation", attrs...)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "game started",
		append(attrs, slog.String("game_id", g.ID), slog.Int("board_size", len(board)))...)
	s.publishMembers(g.ID, inv.FromMemberID, inv.ToMemberID)
	return g.ID, nil
}
