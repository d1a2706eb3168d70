package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/random"
)

// migrateTo ensures that the db schema matches schemaDefinition.
//
// The migration is declarative. The target schema is created in a scratch in-memory database and compared with the
// current one:
//
//  1. Deleted tables are dropped.
//  2. New tables are created.
//  3. Changed tables are rebuilt with the 12-step procedure from https://www.sqlite.org/lang_altertable.html#otheralter
//     keeping the columns both versions have in common.
//  4. Indexes and triggers are dropped and recreated where their definition differs.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) error {
	var (
		randomID     string
		dbNameLength uint = 20
		err          error
	)
	if randomID, err = random.Letters(dbNameLength); err != nil {
		return errors.Wrap(err, "generate random ID")
	}
	targetDSN := fmt.Sprintf("file:%s?mode=memory&cache=shared", randomID)
	target, err := sql.Open("sqlite3", targetDSN)
	if err != nil {
		return errors.Wrap(err, "open schema target database")
	}
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target database",
				errors.SlogError(errors.Wrap(closeErr, "close")))
		}
	}()
	// Keep the in-memory target alive until the migration is done.
	target.SetMaxIdleConns(1)
	target.SetConnMaxLifetime(0)
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return errors.Wrap(err, "create schema target database")
	}

	// ATTACH and the foreign_keys pragma don't work inside a transaction, so a single connection is pinned for the
	// whole migration.
	conn, err := db.ReadWrite.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "pin connection")
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to release connection",
				errors.SlogError(errors.Wrap(closeErr, "close")))
		}
	}()

	// Step 1: Disable foreign key validation temporarily.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", targetDSN); err != nil {
		return errors.Wrap(err, "attach schema target database")
	}

	migrateErr := db.migrateInTx(ctx, conn)

	if _, err = conn.ExecContext(ctx, "DETACH DATABASE schemaTarget"); err != nil {
		migrateErr = errors.Join(migrateErr, errors.Wrap(err, "detach schema target database"))
	}
	// Step 12: Re-enable foreign key validation.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		migrateErr = errors.Join(migrateErr, errors.Wrap(err, "re-enable foreign key validation"))
	}
	return migrateErr
}

func (db *Database) migrateInTx(ctx context.Context, conn *sql.Conn) error {
	// Step 2: Start transaction.
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to roll back migration",
				errors.SlogError(errors.Wrap(rollbackErr, "rollback")))
		}
	}()

	// Steps 3-7.
	if err = db.migrateTables(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Step 8: Recreate indexes and triggers. Step 9 would recreate views, which the schema doesn't use.
	if err = db.migrateIndexesAndTriggers(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate indexes and triggers")
	}

	// Step 10: Check foreign key constraints.
	if err = checkForeignKeys(ctx, tx); err != nil {
		return err
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	committed = true
	return nil
}

// migrateTables ensures table schema is synchronized between databases.
func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	var err error

	var deletedTables []string
	if deletedTables, err = db.queryDeletedTables(ctx, tx); err != nil {
		return errors.Wrap(err, "query deleted tables")
	}
	for _, table := range deletedTables {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q;", table)); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", table))
		}
	}

	var newTableSQLs []string
	if newTableSQLs, err = db.queryNewTableSQLs(ctx, tx); err != nil {
		return errors.Wrap(err, "query new table SQLs")
	}
	for _, newTableSQL := range newTableSQLs {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", newTableSQL))
		if _, err = tx.ExecContext(ctx, newTableSQL); err != nil {
			return errors.Wrap(err, "create table")
		}
	}

	var changedTables []changedTable
	if changedTables, err = db.queryChangedTables(ctx, tx); err != nil {
		return errors.Wrap(err, "query changed tables")
	}
	for _, table := range changedTables {
		if err = db.rebuildTable(ctx, tx, table); err != nil {
			return errors.Wrap(err, "rebuild table", slog.String("table", table.name))
		}
	}
	return nil
}

func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, table changedTable) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
		slog.String("table", table.name),
		slog.String("current_sql", table.currentSQL),
		slog.String("new_sql", table.newSQL))

	// Step 4: Create the new table under a temporary name.
	tempName := table.name + "_migration_temp"
	tempNameSQL := strings.Replace(table.newSQL, table.name, tempName, 1)
	if _, err := tx.ExecContext(ctx, tempNameSQL); err != nil {
		return errors.Wrap(err, "create new table to temporary name", slog.String("query", tempNameSQL))
	}

	// Step 5: Copy common columns between tables.
	commonColumns, err := db.queryCommonColumns(ctx, tx, table.name)
	if err != nil {
		return errors.Wrap(err, "query common columns")
	}
	if len(commonColumns) > 0 {
		common := strings.Join(commonColumns, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q;", //nolint:gosec // identifiers come from schema.
			tempName, common, common, table.name)
		db.logger.LogAttrs(ctx, slog.LevelInfo, "copying data", slog.String("query", copySQL))
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data")
		}
	}

	// Step 6: Drop the old table.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q;", table.name)); err != nil {
		return errors.Wrap(err, "drop old table")
	}

	// Step 7: Rename new table to old table's name.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %q RENAME TO %q;", tempName, table.name)); err != nil {
		return errors.Wrap(err, "rename new table")
	}
	return nil
}

type schemaObject struct {
	kind string
	name string
	sql  string
}

// migrateIndexesAndTriggers drops indexes and triggers that are gone or changed and creates the ones that are new
// or changed. Automatic indexes have no SQL and are managed by SQLite.
func (db *Database) migrateIndexesAndTriggers(ctx context.Context, tx *sql.Tx) error {
	stale, err := querySchemaObjects(ctx, tx, `SELECT current.type, current.name, current.sql
FROM sqlite_schema AS current
LEFT JOIN schemaTarget.sqlite_schema AS target
       ON current.name = target.name AND current.type = target.type AND current.sql = target.sql
WHERE current.type IN ('index', 'trigger') AND current.sql IS NOT NULL AND target.name IS NULL;`)
	if err != nil {
		return errors.Wrap(err, "query stale objects")
	}
	for _, object := range stale {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping "+object.kind, slog.String("name", object.name))
		stmt := fmt.Sprintf("DROP %s IF EXISTS %q;", strings.ToUpper(object.kind), object.name)
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "drop "+object.kind, slog.String("name", object.name))
		}
	}

	missing, err := querySchemaObjects(ctx, tx, `SELECT target.type, target.name, target.sql
FROM schemaTarget.sqlite_schema AS target
LEFT JOIN sqlite_schema AS current
       ON current.name = target.name AND current.type = target.type AND current.sql = target.sql
WHERE target.type IN ('index', 'trigger') AND target.sql IS NOT NULL AND current.name IS NULL;`)
	if err != nil {
		return errors.Wrap(err, "query missing objects")
	}
	for _, object := range missing {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating "+object.kind, slog.String("query", object.sql))
		if _, err = tx.ExecContext(ctx, object.sql); err != nil {
			return errors.Wrap(err, "create "+object.kind, slog.String("name", object.name))
		}
	}
	return nil
}

func querySchemaObjects(ctx context.Context, tx *sql.Tx, query string) ([]schemaObject, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()
	var objects []schemaObject
	for rows.Next() {
		var object schemaObject
		if err = rows.Scan(&object.kind, &object.name, &object.sql); err != nil {
			return nil, errors.Wrap(err, "scan schema object")
		}
		objects = append(objects, object)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return objects, nil
}

func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	defer rows.Close()
	if rows.Next() {
		var (
			table  string
			rowID  sql.NullInt64
			parent string
			fkID   int
		)
		if err = rows.Scan(&table, &rowID, &parent, &fkID); err != nil {
			return errors.Wrap(err, "scan foreign key violation")
		}
		return errors.New("foreign key violation",
			slog.String("table", table), slog.String("parent", parent), slog.Int64("rowid", rowID.Int64))
	}
	return errors.Wrap(rows.Err(), "foreign key check rows")
}

// queryDeletedTables returns the tables present in the current schema but not in the target schema.
func (db *Database) queryDeletedTables(ctx context.Context, tx *sql.Tx) ([]string, error) {
	deletedTables, err := queryStringSlice(ctx, tx, `SELECT current.name AS deleted_table
FROM sqlite_schema AS current
LEFT JOIN schemaTarget.sqlite_schema AS target ON current.name=target.name AND current.type=target.type
WHERE current.type = 'table' AND target.type IS NULL AND current.name NOT LIKE 'sqlite_%';`)
	if err != nil {
		return nil, errors.Wrap(err, "query string slice")
	}
	return deletedTables, nil
}

// queryNewTableSQLs returns the statements creating tables present in the target schema but not in the current
// schema.
func (db *Database) queryNewTableSQLs(ctx context.Context, tx *sql.Tx) ([]string, error) {
	newTableSQLs, err := queryStringSlice(ctx, tx, `SELECT target.sql AS sql
FROM schemaTarget.sqlite_schema AS target
LEFT JOIN sqlite_schema AS current ON current.name=target.name AND current.type=target.type
WHERE target.type = 'table' AND current.type IS NULL AND target.name NOT LIKE 'sqlite_%';`)
	if err != nil {
		return nil, errors.Wrap(err, "query string slice")
	}
	return newTableSQLs, nil
}

func (db *Database) queryCommonColumns(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	// Column names are quoted because some of them may be SQLite keywords.
	commonColumns, err := queryStringSlice(ctx, tx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name) AS current
JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = current.name;`,
		sql.Named("table_name", table))
	if err != nil {
		return nil, errors.Wrap(err, "query string slice")
	}
	return commonColumns, nil
}

// queryStringSlice returns the single column of a query as a slice.
func queryStringSlice(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()
	var results []string
	for rows.Next() {
		var result string
		if err = rows.Scan(&result); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return results, nil
}

type changedTable struct {
	name       string
	currentSQL string
	newSQL     string
}

// queryChangedTables returns the tables whose definition differs between the current and the target schema.
func (db *Database) queryChangedTables(ctx context.Context, tx *sql.Tx) ([]changedTable, error) {
	rows, err := tx.QueryContext(ctx, `SELECT
    current.name AS changed_table,
    current.sql AS current_sql,
    target.sql AS new_sql
FROM sqlite_schema AS current
         JOIN schemaTarget.sqlite_schema AS target ON current.name=target.name AND current.type=target.type
WHERE current.type = 'table' AND current.name NOT LIKE 'sqlite_%' AND current.sql <> target.sql;
`)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()
	var changedTables []changedTable
	for rows.Next() {
		var result changedTable
		if err = rows.Scan(&result.name, &result.currentSQL, &result.newSQL); err != nil {
			return nil, errors.Wrap(err, "scan table")
		}
		changedTables = append(changedTables, result)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return changedTables, nil
}
