package webauthnhandler

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/guesswho/internal/errors"
)

type credentialRow struct {
	ID                        []byte `db:"id"`
	UserID                    []byte `db:"user_id"`
	PublicKey                 []byte `db:"public_key"`
	AttestationType           string `db:"attestation_type"`
	Transport                 string `db:"transport"`
	FlagUserPresent           bool   `db:"flag_user_present"`
	FlagUserVerified          bool   `db:"flag_user_verified"`
	FlagBackupEligible        bool   `db:"flag_backup_eligible"`
	FlagBackupState           bool   `db:"flag_backup_state"`
	AuthenticatorAAGUID       []byte `db:"authenticator_aaguid"`
	AuthenticatorSignCount    uint32 `db:"authenticator_sign_count"`
	AuthenticatorCloneWarning bool   `db:"authenticator_clone_warning"`
	AuthenticatorAttachment   string `db:"authenticator_attachment"`
}

func newCredentialRow(userID []byte, c *webauthn.Credential) (credentialRow, error) {
	transport, err := json.Marshal(c.Transport)
	if err != nil {
		return credentialRow{}, errors.Wrap(err, "JSON encode transport")
	}
	return credentialRow{
		ID:                        c.ID,
		UserID:                    userID,
		PublicKey:                 c.PublicKey,
		AttestationType:           c.AttestationType,
		Transport:                 string(transport),
		FlagUserPresent:           c.Flags.UserPresent,
		FlagUserVerified:          c.Flags.UserVerified,
		FlagBackupEligible:        c.Flags.BackupEligible,
		FlagBackupState:           c.Flags.BackupState,
		AuthenticatorAAGUID:       c.Authenticator.AAGUID,
		AuthenticatorSignCount:    c.Authenticator.SignCount,
		AuthenticatorCloneWarning: c.Authenticator.CloneWarning,
		AuthenticatorAttachment:   string(c.Authenticator.Attachment),
	}, nil
}

func (row credentialRow) credential() (webauthn.Credential, error) {
	var c webauthn.Credential
	if err := json.Unmarshal([]byte(row.Transport), &c.Transport); err != nil {
		return webauthn.Credential{}, errors.Wrap(err, "JSON decode transport")
	}
	c.ID = row.ID
	c.PublicKey = row.PublicKey
	c.AttestationType = row.AttestationType
	c.Flags.UserPresent = row.FlagUserPresent
	c.Flags.UserVerified = row.FlagUserVerified
	c.Flags.BackupEligible = row.FlagBackupEligible
	c.Flags.BackupState = row.FlagBackupState
	c.Authenticator.AAGUID = row.AuthenticatorAAGUID
	c.Authenticator.SignCount = row.AuthenticatorSignCount
	c.Authenticator.CloneWarning = row.AuthenticatorCloneWarning
	c.Authenticator.Attachment = protocol.AuthenticatorAttachment(row.AuthenticatorAttachment)
	return c, nil
}

func (h *WebAuthnHandler) upsertUser(ctx context.Context, u *user) error {
	stmt := `INSERT INTO users (id, display_name)
VALUES (?, ?)
ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name`
	if _, err := h.db.ReadWrite.ExecContext(ctx, stmt, u.id, u.displayName); err != nil {
		return errors.Wrap(err, "db upsert", slog.String("user_id", hex.EncodeToString(u.id)))
	}
	return nil
}

func (h *WebAuthnHandler) getUser(ctx context.Context, id []byte) (*user, error) {
	u := user{id: nil, displayName: "", credentials: nil}
	row := h.db.ReadOnly.QueryRowxContext(ctx, `SELECT id, display_name FROM users WHERE id = ?`, id)
	if err := row.Scan(&u.id, &u.displayName); err != nil {
		return nil, errors.Wrap(err, "read user", slog.String("user_id", hex.EncodeToString(id)))
	}

	var rows []credentialRow
	stmt := `SELECT id,
       user_id,
       public_key,
       attestation_type,
       transport,
       flag_user_present,
       flag_user_verified,
       flag_backup_eligible,
       flag_backup_state,
       authenticator_aaguid,
       authenticator_sign_count,
       authenticator_clone_warning,
       authenticator_attachment
FROM credentials
WHERE user_id = ?`
	if err := h.db.ReadOnly.SelectContext(ctx, &rows, stmt, id); err != nil {
		return nil, errors.Wrap(err, "query credentials")
	}
	u.credentials = make([]webauthn.Credential, 0, len(rows))
	for _, row := range rows {
		c, err := row.credential()
		if err != nil {
			return nil, err
		}
		u.credentials = append(u.credentials, c)
	}
	return &u, nil
}

func (h *WebAuthnHandler) upsertCredential(ctx context.Context, userID []byte, c *webauthn.Credential) error {
	row, err := newCredentialRow(userID, c)
	if err != nil {
		return err
	}
	stmt := `INSERT INTO credentials (id, user_id, public_key, attestation_type, transport, flag_user_present,
                         flag_user_verified, flag_backup_eligible, flag_backup_state, authenticator_aaguid,
                         authenticator_sign_count, authenticator_clone_warning, authenticator_attachment)
VALUES (:id, :user_id, :public_key, :attestation_type, :transport, :flag_user_present, :flag_user_verified,
        :flag_backup_eligible, :flag_backup_state, :authenticator_aaguid, :authenticator_sign_count,
        :authenticator_clone_warning, :authenticator_attachment)
ON CONFLICT (id) DO UPDATE SET attestation_type            = excluded.attestation_type,
                               transport                   = excluded.transport,
                               flag_user_present           = excluded.flag_user_present,
                               flag_user_verified          = excluded.flag_user_verified,
                               flag_backup_eligible        = excluded.flag_backup_eligible,
                               flag_backup_state           = excluded.flag_backup_state,
                               authenticator_aaguid        = excluded.authenticator_aaguid,
                               authenticator_sign_count    = excluded.authenticator_sign_count,
                               authenticator_clone_warning = excluded.authenticator_clone_warning,
                               authenticator_attachment    = excluded.authenticator_attachment`
	if _, err = h.db.ReadWrite.NamedExecContext(ctx, stmt, row); err != nil {
		return errors.Wrap(err, "db upsert credential",
			slog.String("user_id", hex.EncodeToString(userID)),
			slog.String("credential_id", hex.EncodeToString(c.ID)),
		)
	}
	return nil
}

// lookupMember reports whether the user exists and returns the id of its member profile, empty when the user hasn't
// saved a profile yet.
func (h *WebAuthnHandler) lookupMember(ctx context.Context, userID []byte) (bool, string, error) {
	var memberID string
	err := h.db.ReadOnly.GetContext(ctx, &memberID, `SELECT COALESCE(m.id, '')
FROM users u
         LEFT JOIN members m ON m.user_id = u.id
WHERE u.id = ?`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, "", nil
	case err != nil:
		return false, "", errors.Wrap(err, "query member of user")
	}
	return true, memberID, nil
}
