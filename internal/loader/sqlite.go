package loader

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/reke592/rdbdiff/internal/config"
	"github.com/reke592/rdbdiff/internal/errors"
	"github.com/reke592/rdbdiff/internal/logging"
	"github.com/reke592/rdbdiff/internal/schema"
)

// sqliteLoader introspects a SQLite database file through sqlite_master and
// the table_info/index_list/index_info pragmas. SQLite has no stored
// routines, so Procedures and Functions stay empty.
type sqliteLoader struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
	log          *logging.Logger
}

func newSQLiteLoader(target Target, cfg *config.Config, log *logging.Logger) (*sqliteLoader, error) {
	// The driver would create a missing file and report an empty schema.
	if _, err := os.Stat(target.DSN); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConnection, "sqlite database %s is not accessible", target.DSN)
	}

	db, err := openDB("sqlite3", target.DSN, DialectSQLite, cfg)
	if err != nil {
		return nil, err
	}

	return &sqliteLoader{
		db:           db,
		path:         target.DSN,
		queryTimeout: cfg.Database.QueryTimeoutDuration(),
		log:          log.WithField("dialect", DialectSQLite),
	}, nil
}

func (l *sqliteLoader) Dialect() string { return DialectSQLite }

func (l *sqliteLoader) Close() error { return l.db.Close() }

func (l *sqliteLoader) Load(ctx context.Context) (*schema.Document, error) {
	doc := schema.NewDocument()

	tables, err := l.listTables(ctx)
	if err != nil {
		return nil, err
	}

	for _, table := range tables {
		doc.Tables[table] = schema.TableEntry{
			Columns: make(map[string]schema.ColumnEntry),
		}

		if err := l.loadColumns(ctx, doc, table); err != nil {
			return nil, err
		}

		if err := l.loadIndexes(ctx, doc, table); err != nil {
			return nil, err
		}
	}

	doc.Normalize()
	l.log.Debugf("loaded %d tables from %s", doc.TableCount(), l.path)

	return doc, nil
}

func (l *sqliteLoader) listTables(ctx context.Context) ([]string, error) {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeQuery, "failed to list tables")
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeQuery, "failed to scan table row")
		}

		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeQuery, "failed to read table rows")
	}

	return tables, nil
}

func (l *sqliteLoader) loadColumns(ctx context.Context, doc *schema.Document, table string) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, "PRAGMA table_info("+quoteSQLite(table)+")")
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeQuery, "failed to read columns of %s", table)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			colDefault       sql.NullString
		)

		if err := rows.Scan(&cid, &name, &colType, &notNull, &colDefault, &pk); err != nil {
			return errors.Wrapf(err, errors.ErrTypeQuery, "failed to scan column row of %s", table)
		}

		nullable := "YES"
		if notNull != 0 {
			nullable = "NO"
		}

		key := ""
		if pk > 0 {
			key = "PRI"
		}

		doc.Tables[table].Columns[name] = schema.ColumnEntry{
			Type:            colType,
			Default:         colDefault.String,
			Nullable:        nullable,
			Key:             key,
			OrdinalPosition: cid + 1,
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, errors.ErrTypeQuery, "failed to read column rows of %s", table)
	}

	return nil
}

func (l *sqliteLoader) loadIndexes(ctx context.Context, doc *schema.Document, table string) error {
	indexes, err := l.listIndexes(ctx, table)
	if err != nil {
		return err
	}

	for name, unique := range indexes {
		if err := l.loadIndexColumns(ctx, doc, table, name, unique); err != nil {
			return err
		}
	}

	return nil
}

func (l *sqliteLoader) listIndexes(ctx context.Context, table string) (map[string]bool, error) {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, "PRAGMA index_list("+quoteSQLite(table)+")")
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeQuery, "failed to list indexes of %s", table)
	}
	defer rows.Close()

	indexes := make(map[string]bool)

	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeQuery, "failed to scan index row of %s", table)
		}

		indexes[name] = unique != 0
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeQuery, "failed to read index rows of %s", table)
	}

	return indexes, nil
}

func (l *sqliteLoader) loadIndexColumns(ctx context.Context, doc *schema.Document, table, index string, unique bool) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, "PRAGMA index_info("+quoteSQLite(index)+")")
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeQuery, "failed to read columns of index %s", index)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seqno, cid int
			column     sql.NullString
		)

		if err := rows.Scan(&seqno, &cid, &column); err != nil {
			return errors.Wrapf(err, errors.ErrTypeQuery, "failed to scan column row of index %s", index)
		}

		// Expression index members have no column name.
		if !column.Valid {
			continue
		}

		addIndexColumn(doc, table, index, schema.IndexColumnEntry{
			IsUnique:       unique,
			Column:         column.String,
			SequenceNumber: seqno + 1,
		})
	}

	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, errors.ErrTypeQuery, "failed to read column rows of index %s", index)
	}

	return nil
}

// CreateStatement returns the original CREATE TABLE text stored in
// sqlite_master. Routine kinds are rejected because SQLite has none.
func (l *sqliteLoader) CreateStatement(ctx context.Context, kind, name string) (string, error) {
	if kind != KindTable {
		return "", errors.Newf(errors.ErrTypeExport, "sqlite has no %s objects", kind)
	}

	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	var createSQL sql.NullString

	err := l.db.QueryRowContext(qctx, `
		SELECT sql FROM sqlite_master
		WHERE type = 'table' AND name = ?`, name).Scan(&createSQL)
	if err == sql.ErrNoRows {
		return "", errors.Newf(errors.ErrTypeExport, "table %s not found", name)
	}

	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeExport, "failed to fetch create statement for table %s", name)
	}

	return createSQL.String, nil
}

// quoteSQLite wraps an identifier in double quotes, doubling embedded ones.
func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
