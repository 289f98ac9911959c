package loader

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/reke592/rdbdiff/internal/config"
	"github.com/reke592/rdbdiff/internal/errors"
	"github.com/reke592/rdbdiff/internal/logging"
	"github.com/reke592/rdbdiff/internal/schema"
)

// duckdbLoader introspects the main schema of a DuckDB database file.
// DuckDB has no stored procedures, so Procedures and Functions stay empty.
type duckdbLoader struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
	log          *logging.Logger
}

func newDuckDBLoader(target Target, cfg *config.Config, log *logging.Logger) (*duckdbLoader, error) {
	// The driver would create a missing file and report an empty schema.
	if _, err := os.Stat(target.DSN); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConnection, "duckdb database %s is not accessible", target.DSN)
	}

	db, err := openDB("duckdb", target.DSN, DialectDuckDB, cfg)
	if err != nil {
		return nil, err
	}

	return &duckdbLoader{
		db:           db,
		path:         target.DSN,
		queryTimeout: cfg.Database.QueryTimeoutDuration(),
		log:          log.WithField("dialect", DialectDuckDB),
	}, nil
}

func (l *duckdbLoader) Dialect() string { return DialectDuckDB }

func (l *duckdbLoader) Close() error { return l.db.Close() }

func (l *duckdbLoader) Load(ctx context.Context) (*schema.Document, error) {
	doc := schema.NewDocument()

	if err := l.loadTables(ctx, doc); err != nil {
		return nil, err
	}

	if err := l.loadColumns(ctx, doc); err != nil {
		return nil, err
	}

	if err := l.loadIndexes(ctx, doc); err != nil {
		return nil, err
	}

	doc.Normalize()
	l.log.Debugf("loaded %d tables from %s", doc.TableCount(), l.path)

	return doc, nil
}

func (l *duckdbLoader) loadTables(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'main' AND table_type = 'BASE TABLE'`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to list tables")
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return errors.Wrap(err, errors.ErrTypeQuery, "failed to scan table row")
		}

		doc.Tables[name] = schema.TableEntry{
			Columns: make(map[string]schema.ColumnEntry),
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to read table rows")
	}

	return nil
}

func (l *duckdbLoader) loadColumns(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT table_name, column_name, data_type, COALESCE(column_default, ''),
		       is_nullable, COALESCE(character_maximum_length, 0), ordinal_position
		FROM information_schema.columns
		WHERE table_schema = 'main'`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to list columns")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, name, colType, colDefault, nullable string
			maxLength                                  int64
			position                                   int
		)

		if err := rows.Scan(&table, &name, &colType, &colDefault, &nullable, &maxLength, &position); err != nil {
			return errors.Wrap(err, errors.ErrTypeQuery, "failed to scan column row")
		}

		if _, ok := doc.Tables[table]; !ok {
			continue
		}

		doc.Tables[table].Columns[name] = schema.ColumnEntry{
			Type:            colType,
			Default:         colDefault,
			Nullable:        nullable,
			CharMaxLength:   maxLength,
			OrdinalPosition: position,
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to read column rows")
	}

	return nil
}

func (l *duckdbLoader) loadIndexes(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	// expressions is a list value; cast once and split here instead of
	// depending on driver-side list scanning.
	rows, err := l.db.QueryContext(qctx, `
		SELECT table_name, index_name, is_unique, CAST(expressions AS VARCHAR)
		FROM duckdb_indexes()
		WHERE schema_name = 'main'`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to list indexes")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, index, expressions string
			isUnique                  bool
		)

		if err := rows.Scan(&table, &index, &isUnique, &expressions); err != nil {
			return errors.Wrap(err, errors.ErrTypeQuery, "failed to scan index row")
		}

		for i, column := range parseIndexExpressions(expressions) {
			addIndexColumn(doc, table, index, schema.IndexColumnEntry{
				IsUnique:       isUnique,
				Column:         column,
				SequenceNumber: i + 1,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to read index rows")
	}

	return nil
}

// parseIndexExpressions splits the textual form of a duckdb expressions
// list, e.g. [c1, c2], into column names.
func parseIndexExpressions(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	columns := make([]string, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `'"`)

		if part != "" {
			columns = append(columns, part)
		}
	}

	return columns
}

// CreateStatement returns the CREATE TABLE text recorded by duckdb_tables().
func (l *duckdbLoader) CreateStatement(ctx context.Context, kind, name string) (string, error) {
	if kind != KindTable {
		return "", errors.Newf(errors.ErrTypeExport, "duckdb has no %s objects", kind)
	}

	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	var createSQL sql.NullString

	err := l.db.QueryRowContext(qctx, `
		SELECT sql FROM duckdb_tables()
		WHERE schema_name = 'main' AND table_name = ?`, name).Scan(&createSQL)
	if err == sql.ErrNoRows {
		return "", errors.Newf(errors.ErrTypeExport, "table %s not found", name)
	}

	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeExport, "failed to fetch create statement for table %s", name)
	}

	return createSQL.String, nil
}
