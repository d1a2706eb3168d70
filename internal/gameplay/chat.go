package gameplay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/ids"
	"github.com/myrjola/guesswho/internal/models"
)

// MaxChatLength is the maximum number of characters in a chat message.
const MaxChatLength = 500

var ErrInvalidChat = fmt.Errorf("chat message must be 1-%d characters: %w", MaxChatLength, errors.ErrValidation)

// SendChat appends a message from a player to the game's chat. Chatting is allowed also after the game has ended.
func (s *Service) SendChat(ctx context.Context, memberID, gameID, body string) (models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if length := utf8.RuneCountInString(body); length == 0 || length > MaxChatLength {
		return models.ChatMessage{}, errors.Wrap(ErrInvalidChat, "send chat", slog.Int("length", length))
	}
	g, err := s.loadAsPlayer(ctx, memberID, gameID)
	if err != nil {
		return models.ChatMessage{}, err
	}
	sender, err := s.members.Get(ctx, memberID)
	if err != nil {
		return models.ChatMessage{}, errors.Wrap(err, "load sender")
	}

	now := s.now()
	msg := models.ChatMessage{
		ID:         ids.NewAt(now),
		GameID:     g.ID,
		SenderID:   memberID,
		SenderName: sender.DisplayName,
		Body:       body,
		CreatedAt:  now,
	}
	if err = s.chat.Append(ctx, msg); err != nil {
		return models.ChatMessage{}, errors.Wrap(err, "send chat", slog.String("game_id", gameID))
	}
	s.publishGame(g, EventChat)
	return msg, nil
}
