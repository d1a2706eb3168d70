package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/sqlite"
)

var (
	// ErrPendingInvitation means the two members already have an open invitation in either direction.
	ErrPendingInvitation = errors.Wrap(errors.ErrConflict, "invitation already pending")
	// ErrInvitationClosed means the invitation was already answered or has expired.
	ErrInvitationClosed = errors.Wrap(errors.ErrConflict, "invitation no longer open")
)

type InvitationRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewInvitationRepository(db *sqlite.Database, logger *slog.Logger) *InvitationRepository {
	return &InvitationRepository{
		db:     db,
		logger: logger.With("source", "InvitationRepository"),
	}
}

const invitationSelect = `SELECT i.id,
       i.from_member_id,
       i.to_member_id,
       i.status,
       i.game_id,
       i.created_at,
       i.expires_at,
       f.display_name AS from_display_name,
       t.display_name AS to_display_name
FROM game_invitations i
         JOIN members f ON f.id = i.from_member_id
         JOIN members t ON t.id = i.to_member_id`

// Create stores a pending invitation. Pending invitations of the pair that have expired by inv.CreatedAt are
// expired first. Returns [ErrPendingInvitation] when the pair still has an open invitation.
func (r *InvitationRepository) Create(ctx context.Context, inv models.GameInvitation) error {
	attrs := []slog.Attr{
		slog.String("invitation_id", inv.ID),
		slog.String("from_member_id", inv.FromMemberID),
		slog.String("to_member_id", inv.ToMemberID),
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE game_invitations
SET status = 'expired'
WHERE status = 'pending'
  AND expires_at <= ?
  AND MIN(from_member_id, to_member_id) = MIN(?, ?)
  AND MAX(from_member_id, to_member_id) = MAX(?, ?)`,
			inv.CreatedAt.UTC(), inv.FromMemberID, inv.ToMemberID, inv.FromMemberID, inv.ToMemberID,
		); err != nil {
			return classify(err, "expire stale pair invitations", attrs...)
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO game_invitations (id, from_member_id, to_member_id, status, game_id,
                              created_at, expires_at)
VALUES (?, ?, ?, ?, NULL, ?, ?)`,
			inv.ID, inv.FromMemberID, inv.ToMemberID, models.InvitationPending, inv.CreatedAt.UTC(), inv.ExpiresAt.UTC())
		if err != nil {
			err = classify(err, "insert invitation", attrs...)
			if errors.Is(err, errors.ErrConflict) {
				return errors.Wrap(ErrPendingInvitation, "insert invitation", attrs...)
			}
			return err
		}
		return nil
	})
}

func (r *InvitationRepository) Get(ctx context.Context, id string) (models.GameInvitation, error) {
	var inv models.GameInvitation
	if err := r.db.ReadOnly.GetContext(ctx, &inv, invitationSelect+` WHERE i.id = ?`, id); err != nil {
		return models.GameInvitation{}, classify(err, "get invitation", slog.String("invitation_id", id))
	}
	return inv, nil
}

// ListForMember returns the pending, unexpired invitations sent to or by the member, the newest first.
func (r *InvitationRepository) ListForMember(
	ctx context.Context,
	memberID string,
	now time.Time,
) ([]models.GameInvitation, error) {
	var invitations []models.GameInvitation
	stmt := invitationSelect + `
WHERE (i.to_member_id = ? OR i.from_member_id = ?)
  AND i.status = 'pending'
  AND i.expires_at > ?
ORDER BY i.created_at DESC, i.id DESC`
	if err := r.db.ReadOnly.SelectContext(ctx, &invitations, stmt, memberID, memberID, now.UTC()); err != nil {
		return nil, classify(err, "list invitations", slog.String("member_id", memberID))
	}
	return invitations, nil
}

// Accept marks the invitation accepted by the invitee and stores the game created for it, atomically.
//
// Returns [ErrInvitationClosed] when the invitation is no longer pending or has expired by now, and a not found
// error when memberID isn't the invitee.
func (r *InvitationRepository) Accept(
	ctx context.Context,
	invitationID, memberID string,
	g *game.Game,
	now time.Time,
) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// The game is inserted first so that the invitation can reference it.
		if err := insertGame(ctx, tx, g); err != nil {
			return err
		}
		return respond(ctx, tx, invitationID, memberID, models.InvitationAccepted, &g.ID, now)
	})
}

// Decline marks the invitation declined by the invitee.
func (r *InvitationRepository) Decline(ctx context.Context, invitationID, memberID string, now time.Time) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return respond(ctx, tx, invitationID, memberID, models.InvitationDeclined, nil, now)
	})
}

func respond(
	ctx context.Context,
	tx *sqlx.Tx,
	invitationID, memberID string,
	status models.InvitationStatus,
	gameID *string,
	now time.Time,
) error {
	attrs := []slog.Attr{
		slog.String("invitation_id", invitationID),
		slog.String("member_id", memberID),
		slog.String("status", string(status)),
	}
	res, err := tx.ExecContext(ctx, `UPDATE game_invitations
SET status = ?, game_id = ?
WHERE id = ?
  AND to_member_id = ?
  AND status = 'pending'
  AND expires_at > ?`, status, gameID, invitationID, memberID, now.UTC())
	if err != nil {
		return classify(err, "respond to invitation", attrs...)
	}
	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 1 {
		return nil
	}

	// Tell apart a missing invitation from one that can no longer be answered.
	var toMemberID string
	if err = tx.GetContext(ctx, &toMemberID,
		`SELECT to_member_id FROM game_invitations WHERE id = ?`, invitationID); err != nil {
		return classify(err, "get invitation", attrs...)
	}
	if toMemberID != memberID {
		return errors.Wrap(errors.ErrNotFound, "only the invitee can respond", attrs...)
	}
	return errors.Wrap(ErrInvitationClosed, "respond to invitation", attrs...)
}

// ExpireStale expires the pending invitations whose expiry time has passed at now.
func (r *InvitationRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ReadWrite.ExecContext(ctx,
		`UPDATE game_invitations SET status = 'expired' WHERE status = 'pending' AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, classify(err, "expire invitations")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}
