// Package gameplay runs the Guess Who matches between members: invitations, turns, chat and the per-player view of
// a game. Every change is persisted with a compare-and-set on the game version and announced on the event hub.
package gameplay

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/guesswho/internal/broker"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/ids"
	"github.com/myrjola/guesswho/internal/logging"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/repositories"
	"github.com/myrjola/guesswho/internal/sqlite"
)

// DefaultBoardSize is the number of members put on a new board when there are enough participants.
const DefaultBoardSize = 24

type EventKind string

const (
	EventGameUpdated EventKind = "game-updated"
	EventChat        EventKind = "chat"
	EventInvitation  EventKind = "invitation"
)

// Event notifies subscribers that something they display has changed. Subscribers reload the state themselves.
type Event struct {
	Kind    EventKind `json:"kind"`
	GameID  string    `json:"gameId,omitempty"`
	Version int       `json:"version"`
}

// Hub carries events. Topics are built with [GameTopic] and [MemberTopic].
type Hub = broker.Hub[string, Event]

// GameTopic is the topic of the events about a game.
func GameTopic(gameID string) string {
	return "game:" + gameID
}

// MemberTopic is the topic of the events addressed to a member, such as new invitations.
func MemberTopic(memberID string) string {
	return "member:" + memberID
}

type Options struct {
	// BoardSize limits the number of members on a new board. Defaults to [DefaultBoardSize].
	BoardSize int
	// Now is the clock. Defaults to [time.Now].
	Now func() time.Time
}

type Service struct {
	members     *repositories.MemberRepository
	questions   *repositories.QuestionRepository
	invitations *repositories.InvitationRepository
	games       *repositories.GameRepository
	chat        *repositories.ChatRepository
	hub         *Hub
	boardSize   int
	now         func() time.Time
	logger      *slog.Logger
}

func New(db *sqlite.Database, hub *Hub, logger *slog.Logger, opts Options) *Service {
	if opts.BoardSize <= 0 {
		opts.BoardSize = DefaultBoardSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		members:     repositories.NewMemberRepository(db, logger),
		questions:   repositories.NewQuestionRepository(db, logger),
		invitations: repositories.NewInvitationRepository(db, logger),
		games:       repositories.NewGameRepository(db, logger),
		chat:        repositories.NewChatRepository(db, logger),
		hub:         hub,
		boardSize:   opts.BoardSize,
		now:         func() time.Time { return opts.Now().UTC() },
		logger:      logger.With("source", "gameplay"),
	}
}

func (s *Service) publishGame(g *game.Game, kind EventKind) {
	s.hub.Publish(GameTopic(g.ID), Event{Kind: kind, GameID: g.ID, Version: g.Version})
}

func (s *Service) publishMembers(gameID string, memberIDs ...string) {
	for _, memberID := range memberIDs {
		s.hub.Publish(MemberTopic(memberID), Event{Kind: EventInvitation, GameID: gameID, Version: 0})
	}
}

// loadAsPlayer loads the game and checks that memberID plays in it. Other members get a not found error so that the
// existence of the game isn't leaked.
func (s *Service) loadAsPlayer(ctx context.Context, memberID, gameID string) (*game.Game, error) {
	if !ids.Valid(gameID) {
		return nil, errors.Wrap(errors.ErrNotFound, "malformed game id", slog.String("game_id", gameID))
	}
	g, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, errors.Wrap(err, "load game")
	}
	if !g.IsPlayer(memberID) {
		return nil, errors.Wrap(game.ErrNotPlayer, "load game", slog.String("member_id", memberID))
	}
	return g, nil
}

// mutate applies a transition to the stored game and persists it if nobody changed the game in the meantime.
func (s *Service) mutate(
	ctx context.Context,
	memberID, gameID string,
	apply func(g *game.Game, now time.Time) ([]models.Move, error),
) (*game.Game, error) {
	ctx = logging.WithAttrs(ctx, slog.String("game_id", gameID))
	g, err := s.loadAsPlayer(ctx, memberID, gameID)
	if err != nil {
		return nil, err
	}
	expectedVersion, expectedTurn := g.Version, g.CurrentTurn

	moves, err := apply(g, s.now())
	if err != nil {
		return nil, err
	}
	if err = s.games.Update(ctx, g, expectedVersion, expectedTurn, moves...); err != nil {
		return nil, errors.Wrap(err, "persist game")
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "game updated",
		slog.String("status", string(g.Status)), slog.Int("version", g.Version))
	s.publishGame(g, EventGameUpdated)
	return g, nil
}
