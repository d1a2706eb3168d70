package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/ids"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/sqlite"
)

// ErrStaleGame is returned when a game was changed by somebody else since it was loaded.
var ErrStaleGame = errors.Wrap(errors.ErrConflict, "game changed concurrently")

type GameRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewGameRepository(db *sqlite.Database, logger *slog.Logger) *GameRepository {
	return &GameRepository{
		db:     db,
		logger: logger.With("source", "GameRepository"),
	}
}

type gameRow struct {
	ID                string         `db:"id"`
	PlayerOneID       string         `db:"player_one_id"`
	PlayerTwoID       string         `db:"player_two_id"`
	PlayerOneTargetID sql.NullString `db:"player_one_target_id"`
	PlayerTwoTargetID sql.NullString `db:"player_two_target_id"`
	Status            string         `db:"status"`
	CurrentTurn       sql.NullString `db:"current_turn"`
	WinnerID          sql.NullString `db:"winner_id"`
	AbandonedBy       sql.NullString `db:"abandoned_by"`
	Version           int            `db:"version"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
	EndedAt           *time.Time     `db:"ended_at"`
}

const gameColumns = `id, player_one_id, player_two_id, player_one_target_id, player_two_target_id, status,
       current_turn, winner_id, abandoned_by, version, created_at, updated_at, ended_at`

func targetOf(g *game.Game, player string) sql.NullString {
	return nullIfEmpty(g.Targets[player])
}

// Create stores a new game together with its board.
func (r *GameRepository) Create(ctx context.Context, g *game.Game) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return insertGame(ctx, tx, g)
	})
}

func insertGame(ctx context.Context, tx *sqlx.Tx, g *game.Game) error {
	stmt := `INSERT INTO games (` + gameColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, stmt,
		g.ID, g.Players[0], g.Players[1], targetOf(g, g.Players[0]), targetOf(g, g.Players[1]), g.Status,
		nullIfEmpty(g.CurrentTurn), nullIfEmpty(g.Winner), nullIfEmpty(g.AbandonedBy), g.Version,
		g.CreatedAt.UTC(), g.UpdatedAt.UTC(), utcOrNil(g.EndedAt),
	); err != nil {
		return classify(err, "insert game", slog.String("game_id", g.ID))
	}
	for position, memberID := range g.Board {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_board (game_id, member_id, position) VALUES (?, ?, ?)`,
			g.ID, memberID, position,
		); err != nil {
			return classify(err, "insert board member", slog.String("game_id", g.ID), slog.String("member_id", memberID))
		}
	}
	return insertEliminations(ctx, tx, g)
}

func insertEliminations(ctx context.Context, tx *sqlx.Tx, g *game.Game) error {
	for owner, eliminated := range g.Eliminated {
		for seq, memberID := range eliminated {
			if _, err := tx.ExecContext(ctx, `INSERT INTO game_eliminations (game_id, owner_id, member_id, seq)
VALUES (?, ?, ?, ?)
ON CONFLICT DO NOTHING`, g.ID, owner, memberID, seq); err != nil {
				return classify(err, "insert elimination", slog.String("game_id", g.ID))
			}
		}
	}
	return nil
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Get loads the game with its board and elimination sets.
func (r *GameRepository) Get(ctx context.Context, id string) (*game.Game, error) {
	var row gameRow
	if err := r.db.ReadOnly.GetContext(ctx, &row, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id); err != nil {
		return nil, classify(err, "get game", slog.String("game_id", id))
	}

	g := &game.Game{
		ID:          row.ID,
		Players:     [2]string{row.PlayerOneID, row.PlayerTwoID},
		Board:       nil,
		Targets:     map[string]string{},
		Eliminated:  map[string][]string{},
		Status:      game.Status(row.Status),
		CurrentTurn: row.CurrentTurn.String,
		Winner:      row.WinnerID.String,
		AbandonedBy: row.AbandonedBy.String,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		EndedAt:     row.EndedAt,
	}
	if row.PlayerOneTargetID.Valid {
		g.Targets[row.PlayerOneID] = row.PlayerOneTargetID.String
	}
	if row.PlayerTwoTargetID.Valid {
		g.Targets[row.PlayerTwoID] = row.PlayerTwoTargetID.String
	}

	if err := r.db.ReadOnly.SelectContext(ctx, &g.Board,
		`SELECT member_id FROM game_board WHERE game_id = ? ORDER BY position`, id); err != nil {
		return nil, classify(err, "get board", slog.String("game_id", id))
	}

	var eliminations []struct {
		OwnerID  string `db:"owner_id"`
		MemberID string `db:"member_id"`
	}
	if err := r.db.ReadOnly.SelectContext(ctx, &eliminations,
		`SELECT owner_id, member_id FROM game_eliminations WHERE game_id = ? ORDER BY owner_id, seq`, id); err != nil {
		return nil, classify(err, "get eliminations", slog.String("game_id", id))
	}
	for _, e := range eliminations {
		g.Eliminated[e.OwnerID] = append(g.Eliminated[e.OwnerID], e.MemberID)
	}
	return g, nil
}

// Update persists g if the stored game still has expectedVersion and expectedTurn. Otherwise, [ErrStaleGame] is
// returned and nothing is written. The moves are appended in the same transaction.
func (r *GameRepository) Update(
	ctx context.Context,
	g *game.Game,
	expectedVersion int,
	expectedTurn string,
	moves ...models.Move,
) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return updateGame(ctx, tx, g, expectedVersion, expectedTurn, moves...)
	})
}

func updateGame(
	ctx context.Context,
	tx *sqlx.Tx,
	g *game.Game,
	expectedVersion int,
	expectedTurn string,
	moves ...models.Move,
) error {
	stmt := `UPDATE games
SET player_one_target_id = ?,
    player_two_target_id = ?,
    status               = ?,
    current_turn         = ?,
    winner_id            = ?,
    abandoned_by         = ?,
    version              = ?,
    updated_at           = ?,
    ended_at             = ?
WHERE id = ?
  AND version = ?
  AND current_turn IS ?`
	res, err := tx.ExecContext(ctx, stmt,
		targetOf(g, g.Players[0]), targetOf(g, g.Players[1]), g.Status, nullIfEmpty(g.CurrentTurn),
		nullIfEmpty(g.Winner), nullIfEmpty(g.AbandonedBy), g.Version, g.UpdatedAt.UTC(), utcOrNil(g.EndedAt),
		g.ID, expectedVersion, nullIfEmpty(expectedTurn),
	)
	if err != nil {
		return classify(err, "update game", slog.String("game_id", g.ID))
	}
	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrap(ErrStaleGame, "update game",
			slog.String("game_id", g.ID), slog.Int("expected_version", expectedVersion))
	}
	if err = insertEliminations(ctx, tx, g); err != nil {
		return err
	}
	for _, move := range moves {
		if err = insertMove(ctx, tx, move); err != nil {
			return err
		}
	}
	return nil
}

func insertMove(ctx context.Context, tx *sqlx.Tx, move models.Move) error {
	if move.ID == "" {
		move.ID = ids.NewAt(move.CreatedAt)
	}
	stmt := `INSERT INTO game_moves (id, game_id, member_id, kind, question_id, subject_id, answer, eliminated_count,
                        created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, stmt, move.ID, move.GameID, nullIfEmpty(move.MemberID), move.Kind,
		move.QuestionID, move.SubjectID, move.Answer, move.EliminatedCount, move.CreatedAt.UTC()); err != nil {
		return classify(err, "insert move", slog.String("game_id", move.GameID))
	}
	return nil
}

// ListMoves returns the history of the game, oldest first.
func (r *GameRepository) ListMoves(ctx context.Context, gameID string) ([]models.Move, error) {
	var moves []models.Move
	stmt := `SELECT m.id,
       m.game_id,
       COALESCE(m.member_id, '') AS member_id,
       m.kind,
       m.question_id,
       m.subject_id,
       m.answer,
       m.eliminated_count,
       m.created_at,
       q.prompt
FROM game_moves m
         LEFT JOIN questions q ON q.id = m.question_id
WHERE m.game_id = ?
ORDER BY m.rowid`
	if err := r.db.ReadOnly.SelectContext(ctx, &moves, stmt, gameID); err != nil {
		return nil, classify(err, "list moves", slog.String("game_id", gameID))
	}
	return moves, nil
}

// ListActiveForMember lists the waiting and active games the member plays in, the most recently updated first.
func (r *GameRepository) ListActiveForMember(ctx context.Context, memberID string) ([]models.GameSummary, error) {
	var games []models.GameSummary
	stmt := `SELECT g.id,
       o.id                         AS opponent_id,
       o.display_name               AS opponent_name,
       g.status,
       COALESCE(g.current_turn, '') AS current_turn,
       g.updated_at
FROM games g
         JOIN members o ON o.id = IIF(g.player_one_id = :member_id, g.player_two_id, g.player_one_id)
WHERE (g.player_one_id = :member_id OR g.player_two_id = :member_id)
  AND g.status IN ('waiting', 'active')
ORDER BY g.updated_at DESC, g.id`
	query, args, err := sqlx.Named(stmt, map[string]any{"member_id": memberID})
	if err != nil {
		return nil, errors.Wrap(err, "bind named query")
	}
	if err = r.db.ReadOnly.SelectContext(ctx, &games, r.db.ReadOnly.Rebind(query), args...); err != nil {
		return nil, classify(err, "list active games", slog.String("member_id", memberID))
	}
	return games, nil
}

// AbandonIdle abandons the waiting and active games not updated since idleTimeout before now and returns their
// ids.
func (r *GameRepository) AbandonIdle(ctx context.Context, now time.Time, idleTimeout time.Duration) ([]string, error) {
	var idle []string
	if err := r.db.ReadOnly.SelectContext(ctx, &idle,
		`SELECT id FROM games WHERE status IN ('waiting', 'active') AND updated_at < ? ORDER BY id`,
		now.Add(-idleTimeout).UTC()); err != nil {
		return nil, classify(err, "list idle games")
	}

	var abandoned []string
	for _, id := range idle {
		g, err := r.Get(ctx, id)
		if err != nil {
			return abandoned, err
		}
		expectedVersion, expectedTurn := g.Version, g.CurrentTurn
		if err = g.Abandon(now); err != nil {
			// Ended since listing.
			continue
		}
		move := models.Move{ //nolint:exhaustruct // housekeeping moves have no actor
			GameID:    id,
			Kind:      models.MoveAbandon,
			CreatedAt: now,
		}
		err = r.Update(ctx, g, expectedVersion, expectedTurn, move)
		if errors.Is(err, ErrStaleGame) {
			r.logger.LogAttrs(ctx, slog.LevelInfo, "idle game changed while abandoning", slog.String("game_id", id))
			continue
		}
		if err != nil {
			return abandoned, err
		}
		abandoned = append(abandoned, id)
	}
	return abandoned, nil
}
