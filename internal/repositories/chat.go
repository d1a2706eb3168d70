package repositories

import (
	"context"
	"log/slog"

	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/sqlite"
)

type ChatRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewChatRepository(db *sqlite.Database, logger *slog.Logger) *ChatRepository {
	return &ChatRepository{
		db:     db,
		logger: logger.With("source", "ChatRepository"),
	}
}

// Append adds the message to the game's chat log. Messages are never edited.
func (r *ChatRepository) Append(ctx context.Context, msg models.ChatMessage) error {
	msg.CreatedAt = msg.CreatedAt.UTC()
	stmt := `INSERT INTO chat_messages (id, game_id, sender_id, sender_name, body, created_at)
VALUES (:id, :game_id, :sender_id, :sender_name, :body, :created_at)`
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, msg); err != nil {
		return classify(err, "insert chat message", slog.String("game_id", msg.GameID))
	}
	return nil
}

// List returns the chat log of the game in the order the messages were appended.
func (r *ChatRepository) List(ctx context.Context, gameID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	stmt := `SELECT id, game_id, sender_id, sender_name, body, created_at
FROM chat_messages
WHERE game_id = ?
ORDER BY rowid`
	if err := r.db.ReadOnly.SelectContext(ctx, &messages, stmt, gameID); err != nil {
		return nil, classify(err, "list chat messages", slog.String("game_id", gameID))
	}
	return messages, nil
}
