package loader

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver

	"github.com/reke592/rdbdiff/internal/config"
	"github.com/reke592/rdbdiff/internal/errors"
	"github.com/reke592/rdbdiff/internal/logging"
	"github.com/reke592/rdbdiff/internal/schema"
)

// parseSQLServerTarget normalizes mssql:// aliases to the sqlserver://
// form the driver accepts directly.
func parseSQLServerTarget(u *url.URL) (Target, error) {
	v := *u
	v.Scheme = "sqlserver"

	return Target{
		Dialect:  DialectSQLServer,
		DSN:      v.String(),
		Redacted: v.Redacted(),
		Database: v.Query().Get("database"),
	}, nil
}

// sqlserverLoader introspects the dbo schema of a SQL Server database.
// Like postgres, column key markers stay empty; primary keys surface
// through sys.indexes.
type sqlserverLoader struct {
	db             *sql.DB
	connectTimeout time.Duration
	queryTimeout   time.Duration
	log            *logging.Logger
}

func newSQLServerLoader(target Target, cfg *config.Config, log *logging.Logger) (*sqlserverLoader, error) {
	db, err := openDB("sqlserver", target.DSN, DialectSQLServer, cfg)
	if err != nil {
		return nil, err
	}

	return &sqlserverLoader{
		db:             db,
		connectTimeout: cfg.Database.ConnectTimeoutDuration(),
		queryTimeout:   cfg.Database.QueryTimeoutDuration(),
		log:            log.WithField("dialect", DialectSQLServer),
	}, nil
}

func (l *sqlserverLoader) Dialect() string { return DialectSQLServer }

func (l *sqlserverLoader) Close() error { return l.db.Close() }

func (l *sqlserverLoader) Load(ctx context.Context) (*schema.Document, error) {
	if err := ping(ctx, l.db, l.connectTimeout, DialectSQLServer); err != nil {
		return nil, err
	}

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

	if err := l.loadRoutines(ctx, doc); err != nil {
		return nil, err
	}

	if err := l.loadParameters(ctx, doc); err != nil {
		return nil, err
	}

	doc.Normalize()
	l.log.Debugf("loaded %d tables and %d routines", doc.TableCount(), doc.RoutineCount())

	return doc, nil
}

func (l *sqlserverLoader) loadTables(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = 'dbo' AND TABLE_TYPE = 'BASE TABLE'`)
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

func (l *sqlserverLoader) loadColumns(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COALESCE(COLUMN_DEFAULT, ''),
		       IS_NULLABLE, COALESCE(CHARACTER_MAXIMUM_LENGTH, 0), ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = 'dbo'`)
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

func (l *sqlserverLoader) loadIndexes(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT t.name, i.name, c.name, i.is_unique, ic.key_ordinal
		FROM sys.indexes i
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE s.name = 'dbo' AND i.name IS NOT NULL AND ic.key_ordinal > 0`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to list indexes")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, index, column string
			isUnique             bool
			sequence             int
		)

		if err := rows.Scan(&table, &index, &column, &isUnique, &sequence); err != nil {
			return errors.Wrap(err, errors.ErrTypeQuery, "failed to scan index row")
		}

		addIndexColumn(doc, table, index, schema.IndexColumnEntry{
			IsUnique:       isUnique,
			Column:         column,
			SequenceNumber: sequence,
		})
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to read index rows")
	}

	return nil
}

func (l *sqlserverLoader) loadRoutines(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	// OBJECT_DEFINITION returns the full text; the ROUTINE_DEFINITION
	// column truncates at 4000 characters.
	rows, err := l.db.QueryContext(qctx, `
		SELECT r.ROUTINE_NAME, r.ROUTINE_TYPE,
		       COALESCE(OBJECT_DEFINITION(OBJECT_ID(r.ROUTINE_SCHEMA + '.' + r.ROUTINE_NAME)), '')
		FROM INFORMATION_SCHEMA.ROUTINES r
		WHERE r.ROUTINE_SCHEMA = 'dbo'`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to list routines")
	}
	defer rows.Close()

	for rows.Next() {
		var name, routineType, definition string
		if err := rows.Scan(&name, &routineType, &definition); err != nil {
			return errors.Wrap(err, errors.ErrTypeQuery, "failed to scan routine row")
		}

		entry := schema.RoutineEntry{
			Definition: definition,
			Parameters: make(map[string]schema.ParamEntry),
		}

		switch routineType {
		case "PROCEDURE":
			doc.Procedures[name] = entry
		case "FUNCTION":
			doc.Functions[name] = entry
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to read routine rows")
	}

	return nil
}

func (l *sqlserverLoader) loadParameters(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT r.ROUTINE_NAME, r.ROUTINE_TYPE, COALESCE(p.PARAMETER_NAME, ''), p.ORDINAL_POSITION,
		       COALESCE(p.DATA_TYPE, ''), COALESCE(p.CHARACTER_MAXIMUM_LENGTH, 0), COALESCE(p.PARAMETER_MODE, '')
		FROM INFORMATION_SCHEMA.PARAMETERS p
		JOIN INFORMATION_SCHEMA.ROUTINES r
		  ON r.SPECIFIC_NAME = p.SPECIFIC_NAME AND r.SPECIFIC_SCHEMA = p.SPECIFIC_SCHEMA
		WHERE p.SPECIFIC_SCHEMA = 'dbo'`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to list routine parameters")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			routine, routineType, name, dataType, mode string
			position                                   int
			maxLength                                  int64
		)

		if err := rows.Scan(&routine, &routineType, &name, &position, &dataType, &maxLength, &mode); err != nil {
			return errors.Wrap(err, errors.ErrTypeQuery, "failed to scan parameter row")
		}

		// Position 0 is the unnamed return value of a function.
		if name == "" {
			continue
		}

		addRoutineParameter(doc, routineType, routine, name, schema.ParamEntry{
			OrdinalPosition: position,
			Type:            dataType,
			CharMaxLength:   maxLength,
			Mode:            mode,
		})
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTypeQuery, "failed to read parameter rows")
	}

	return nil
}

// CreateStatement returns OBJECT_DEFINITION output for routines. SQL Server
// has no server-side CREATE TABLE rendering, so table export is unsupported.
func (l *sqlserverLoader) CreateStatement(ctx context.Context, kind, name string) (string, error) {
	switch kind {
	case KindProcedure, KindFunction:
	case KindTable:
		return "", errors.New(errors.ErrTypeExport, "create statements for tables are not supported on sqlserver")
	default:
		return "", errors.Newf(errors.ErrTypeExport, "unsupported object kind %q", kind)
	}

	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	var definition sql.NullString

	err := l.db.QueryRowContext(qctx,
		"SELECT OBJECT_DEFINITION(OBJECT_ID(@name))",
		sql.Named("name", "dbo."+name)).Scan(&definition)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeExport, "failed to fetch create statement for %s %s", kind, name)
	}

	if !definition.Valid {
		return "", errors.Newf(errors.ErrTypeExport, "%s %s not found", kind, name)
	}

	return definition.String, nil
}
