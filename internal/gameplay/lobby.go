package gameplay

import (
	"context"
	"slices"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/models"
)

// Lobby is what a member sees before picking a game: the other members, open invitations and running games.
type Lobby struct {
	Me          models.Member
	Members     []models.Member
	Invitations []models.GameInvitation
	Games       []models.GameSummary
}

// Received lists the invitations waiting for the member's answer.
func (l Lobby) Received() []models.GameInvitation {
	return slices.DeleteFunc(slices.Clone(l.Invitations), func(inv models.GameInvitation) bool {
		return inv.ToMemberID != l.Me.ID
	})
}

// Sent lists the invitations the member is waiting an answer for.
func (l Lobby) Sent() []models.GameInvitation {
	return slices.DeleteFunc(slices.Clone(l.Invitations), func(inv models.GameInvitation) bool {
		return inv.FromMemberID != l.Me.ID
	})
}

func (s *Service) Lobby(ctx context.Context, memberID string) (Lobby, error) {
	me, err := s.members.Get(ctx, memberID)
	if err != nil {
		return Lobby{}, errors.Wrap(err, "load member")
	}
	members, err := s.members.List(ctx)
	if err != nil {
		return Lobby{}, errors.Wrap(err, "list members")
	}
	members = slices.DeleteFunc(members, func(m models.Member) bool { return m.ID == memberID })
	invitations, err := s.ListInvitations(ctx, memberID)
	if err != nil {
		return Lobby{}, err
	}
	games, err := s.games.ListActiveForMember(ctx, memberID)
	if err != nil {
		return Lobby{}, errors.Wrap(err, "list games")
	}
	return Lobby{Me: me, Members: members, Invitations: invitations, Games: games}, nil
}

// SubscribeGame streams the events of a game to one of its players. cancel must be called when done.
func (s *Service) SubscribeGame(ctx context.Context, memberID, gameID string) (<-chan Event, func(), error) {
	if _, err := s.loadAsPlayer(ctx, memberID, gameID); err != nil {
		return nil, nil, err
	}
	events, cancel := s.hub.Subscribe(GameTopic(gameID))
	return events, cancel, nil
}

// SubscribeMember streams the invitation events of a member. cancel must be called when done.
func (s *Service) SubscribeMember(memberID string) (<-chan Event, func()) {
	return s.hub.Subscribe(MemberTopic(memberID))
}
