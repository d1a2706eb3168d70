// Package sqlite opens the application database and keeps its schema in sync with schema.sql.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/random"

	_ "embed"

	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
)

//go:embed schema.sql
var schemaDefinition string

type Database struct {
	ReadWrite *sqlx.DB
	ReadOnly  *sqlx.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database and synchronizes the schema.
//
// It establishes two connection pools: a single connection for writes and a pool for read-only queries, following
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995. The optimizer runs until ctx is done.
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Wrap(err, "synchronize schema")
	}

	go db.startDatabaseOptimizer(ctx)

	return db, nil
}

func connect(url string, logger *slog.Logger) (*Database, error) {
	var (
		err         error
		readWriteDB *sqlx.DB
		readDB      *sqlx.DB
	)

	// In-memory databases need shared cache mode so that both pools see the same data. Each database gets a random
	// name so that parallel tests stay isolated. See https://www.sqlite.org/inmemorydb.html.
	readMode, readWriteMode := "mode=ro", "mode=rwc"
	if strings.Contains(url, ":memory:") {
		var (
			randomID     string
			dbNameLength uint = 20
		)
		if randomID, err = random.Letters(dbNameLength); err != nil {
			return nil, errors.Wrap(err, "generate random ID")
		}
		url = randomID
		readMode = "mode=memory&cache=shared"
		readWriteMode = readMode
	}
	commonConfig := strings.Join([]string{
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
		"_temp_store=memory",
		"_mmap_size=30000000000",
		// Litestream takes care of checkpoints.
		"_wal_autocheckpoint=0",
	}, "&")

	// Options prefixed with '_' are pragmas (https://www.sqlite.org/pragma.html), the rest are URI parameters
	// (https://www.sqlite.org/uri.html).
	readConfig := fmt.Sprintf("file:%s?%s&_txlock=deferred&_query_only=true&%s", url, readMode, commonConfig)
	readWriteConfig := fmt.Sprintf("file:%s?%s&_txlock=immediate&%s", url, readWriteMode, commonConfig)

	if readWriteDB, err = sqlx.Open("sqlite3", readWriteConfig); err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}
	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(0)
	readWriteDB.SetConnMaxIdleTime(0)

	if readDB, err = sqlx.Open("sqlite3", readConfig); err != nil {
		return nil, errors.Wrap(err, "open read database")
	}
	maxReadConns := 10
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger,
	}, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(
		errors.Wrap(db.ReadOnly.Close(), "close read-only pool"),
		errors.Wrap(db.ReadWrite.Close(), "close read-write pool"),
	)
}

// WithTx runs fn inside a write transaction. The transaction is committed when fn returns nil and rolled back
// otherwise.
func (db *Database) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err = fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to roll back transaction",
				errors.SlogError(errors.Wrap(rollbackErr, "rollback")))
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}
