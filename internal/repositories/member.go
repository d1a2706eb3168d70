package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/sqlite"
)

type MemberRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewMemberRepository(db *sqlite.Database, logger *slog.Logger) *MemberRepository {
	return &MemberRepository{
		db:     db,
		logger: logger.With("source", "MemberRepository"),
	}
}

const memberColumns = `id, user_id, display_name, profession, bio, skills, interests, workspace_preference,
       game_participation, status, last_active_at, created_at`

// memberRow carries the JSON encoded sequence columns of a member.
type memberRow struct {
	models.Member
	SkillsJSON    string `db:"skills"`
	InterestsJSON string `db:"interests"`
}

func (row memberRow) toMember() (models.Member, error) {
	var err error
	m := row.Member
	if m.Skills, err = decodeStrings(row.SkillsJSON); err != nil {
		return models.Member{}, errors.Wrap(err, "decode skills", slog.String("member_id", m.ID))
	}
	if m.Interests, err = decodeStrings(row.InterestsJSON); err != nil {
		return models.Member{}, errors.Wrap(err, "decode interests", slog.String("member_id", m.ID))
	}
	return m, nil
}

func toMembers(rows []memberRow) ([]models.Member, error) {
	members := make([]models.Member, 0, len(rows))
	for _, row := range rows {
		m, err := row.toMember()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// Create stores a new member profile. The times are taken from the member.
func (r *MemberRepository) Create(ctx context.Context, m models.Member) error {
	skills, err := encodeStrings(m.Skills)
	if err != nil {
		return err
	}
	interests, err := encodeStrings(m.Interests)
	if err != nil {
		return err
	}
	stmt := `INSERT INTO members (` + memberColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err = r.db.ReadWrite.ExecContext(ctx, stmt,
		m.ID, m.UserID, m.DisplayName, m.Profession, m.Bio, skills, interests, m.WorkspacePreference,
		m.GameParticipation, m.Status, m.LastActiveAt.UTC(), m.CreatedAt.UTC(),
	); err != nil {
		return classify(err, "insert member", slog.String("member_id", m.ID))
	}
	return nil
}

// Update stores the editable profile fields of the member.
func (r *MemberRepository) Update(ctx context.Context, m models.Member) error {
	skills, err := encodeStrings(m.Skills)
	if err != nil {
		return err
	}
	interests, err := encodeStrings(m.Interests)
	if err != nil {
		return err
	}
	stmt := `UPDATE members
SET display_name         = ?,
    profession           = ?,
    bio                  = ?,
    skills               = ?,
    interests            = ?,
    workspace_preference = ?,
    game_participation   = ?
WHERE id = ?`
	res, err := r.db.ReadWrite.ExecContext(ctx, stmt, m.DisplayName, m.Profession, m.Bio, skills, interests,
		m.WorkspacePreference, m.GameParticipation, m.ID)
	if err != nil {
		return classify(err, "update member", slog.String("member_id", m.ID))
	}
	return expectAffected(res, "update member", slog.String("member_id", m.ID))
}

func (r *MemberRepository) Get(ctx context.Context, id string) (models.Member, error) {
	var row memberRow
	stmt := `SELECT ` + memberColumns + ` FROM members WHERE id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &row, stmt, id); err != nil {
		return models.Member{}, classify(err, "get member", slog.String("member_id", id))
	}
	return row.toMember()
}

// GetByUserID returns the member profile owned by the authenticated user.
func (r *MemberRepository) GetByUserID(ctx context.Context, userID []byte) (models.Member, error) {
	var row memberRow
	stmt := `SELECT ` + memberColumns + ` FROM members WHERE user_id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &row, stmt, userID); err != nil {
		return models.Member{}, classify(err, "get member by user")
	}
	return row.toMember()
}

// List returns every member, the most recently active first.
func (r *MemberRepository) List(ctx context.Context) ([]models.Member, error) {
	var rows []memberRow
	stmt := `SELECT ` + memberColumns + ` FROM members ORDER BY last_active_at DESC, id`
	if err := r.db.ReadOnly.SelectContext(ctx, &rows, stmt); err != nil {
		return nil, classify(err, "list members")
	}
	return toMembers(rows)
}

// ListByIDs returns the members with the given ids keyed by id. Unknown ids are left out.
func (r *MemberRepository) ListByIDs(ctx context.Context, ids []string) (map[string]models.Member, error) {
	members := make(map[string]models.Member, len(ids))
	if len(ids) == 0 {
		return members, nil
	}
	query, args, err := sqlx.In(`SELECT `+memberColumns+` FROM members WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "expand member ids")
	}
	var rows []memberRow
	if err = r.db.ReadOnly.SelectContext(ctx, &rows, r.db.ReadOnly.Rebind(query), args...); err != nil {
		return nil, classify(err, "list members by id")
	}
	for _, row := range rows {
		m, decodeErr := row.toMember()
		if decodeErr != nil {
			return nil, decodeErr
		}
		members[m.ID] = m
	}
	return members, nil
}

// ListParticipants returns up to limit members who take part in games, the most recently active first. The
// excluded members are left out.
func (r *MemberRepository) ListParticipants(ctx context.Context, exclude []string, limit int) ([]models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE game_participation = 1`
	args := []any{}
	if len(exclude) > 0 {
		query += ` AND id NOT IN (?)`
		args = append(args, exclude)
	}
	query += ` ORDER BY last_active_at DESC, id LIMIT ?`
	args = append(args, limit)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "expand excluded ids")
	}
	var rows []memberRow
	if err = r.db.ReadOnly.SelectContext(ctx, &rows, r.db.ReadOnly.Rebind(query), args...); err != nil {
		return nil, classify(err, "list participants")
	}
	return toMembers(rows)
}

// Touch records activity of the member at now and marks it online.
func (r *MemberRepository) Touch(ctx context.Context, id string, now time.Time) error {
	stmt := `UPDATE members SET status = ?, last_active_at = ? WHERE id = ?`
	res, err := r.db.ReadWrite.ExecContext(ctx, stmt, models.PresenceOnline, now.UTC(), id)
	if err != nil {
		return classify(err, "touch member", slog.String("member_id", id))
	}
	return expectAffected(res, "touch member", slog.String("member_id", id))
}

// SweepPresence marks online members idle for awayAfter as away and members idle for offlineAfter as offline.
func (r *MemberRepository) SweepPresence(
	ctx context.Context,
	now time.Time,
	awayAfter, offlineAfter time.Duration,
) (int64, int64, error) {
	var away, offline int64
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE members SET status = ? WHERE status <> ? AND last_active_at < ?`,
			models.PresenceOffline, models.PresenceOffline, now.Add(-offlineAfter).UTC())
		if err != nil {
			return classify(err, "mark offline")
		}
		if offline, err = res.RowsAffected(); err != nil {
			return errors.Wrap(err, "rows affected")
		}
		res, err = tx.ExecContext(ctx, `UPDATE members SET status = ? WHERE status = ? AND last_active_at < ?`,
			models.PresenceAway, models.PresenceOnline, now.Add(-awayAfter).UTC())
		if err != nil {
			return classify(err, "mark away")
		}
		if away, err = res.RowsAffected(); err != nil {
			return errors.Wrap(err, "rows affected")
		}
		return nil
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, "sweep presence")
	}
	return away, offline, nil
}
