package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/guesswho/internal/errors"
)

// classify wraps err with the taxonomy error matching the SQLite failure so that handlers can map it to a status.
func classify(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(fmt.Errorf("%w: %w", errors.ErrNotFound, err), msg, attrs...)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode { //nolint:exhaustive // other codes are upstream failures
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errors.Wrap(fmt.Errorf("%w: %w", errors.ErrConflict, err), msg, attrs...)
		case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintForeignKey:
			return errors.Wrap(fmt.Errorf("%w: %w", errors.ErrValidation, err), msg, attrs...)
		}
	}
	return errors.Wrap(fmt.Errorf("%w: %w", errors.ErrUpstream, err), msg, attrs...)
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", errors.Wrap(err, "JSON encode")
	}
	return string(b), nil
}

func decodeStrings(encoded string) ([]string, error) {
	var values []string
	if err := json.Unmarshal([]byte(encoded), &values); err != nil {
		return nil, errors.Wrap(err, "JSON decode")
	}
	return values, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// expectAffected turns an update that matched no row into a not found error.
func expectAffected(res sql.Result, msg string, attrs ...slog.Attr) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrap(errors.ErrNotFound, msg, attrs...)
	}
	return nil
}
