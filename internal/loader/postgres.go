package loader

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/reke592/rdbdiff/internal/config"
	"github.com/reke592/rdbdiff/internal/errors"
	"github.com/reke592/rdbdiff/internal/logging"
	"github.com/reke592/rdbdiff/internal/schema"
)

// postgresLoader introspects the public schema of a PostgreSQL database.
// Column key markers are not populated; primary keys surface through the
// index pass because pg_index covers them.
type postgresLoader struct {
	db             *sql.DB
	connectTimeout time.Duration
	queryTimeout   time.Duration
	log            *logging.Logger
}

func newPostgresLoader(target Target, cfg *config.Config, log *logging.Logger) (*postgresLoader, error) {
	db, err := openDB("postgres", target.DSN, DialectPostgres, cfg)
	if err != nil {
		return nil, err
	}

	return &postgresLoader{
		db:             db,
		connectTimeout: cfg.Database.ConnectTimeoutDuration(),
		queryTimeout:   cfg.Database.QueryTimeoutDuration(),
		log:            log.WithField("dialect", DialectPostgres),
	}, nil
}

func (l *postgresLoader) Dialect() string { return DialectPostgres }

func (l *postgresLoader) Close() error { return l.db.Close() }

func (l *postgresLoader) Load(ctx context.Context) (*schema.Document, error) {
	if err := ping(ctx, l.db, l.connectTimeout, DialectPostgres); err != nil {
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

func (l *postgresLoader) loadTables(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`)
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

func (l *postgresLoader) loadColumns(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT table_name, column_name, data_type, COALESCE(column_default, ''),
		       is_nullable, COALESCE(character_maximum_length, 0), ordinal_position
		FROM information_schema.columns
		WHERE table_schema = 'public'`)
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

func (l *postgresLoader) loadIndexes(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT t.relname AS table_name,
		       i.relname AS index_name,
		       a.attname AS column_name,
		       ix.indisunique,
		       k.ord
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = 'public'
		ORDER BY t.relname, i.relname, k.ord`)
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

func (l *postgresLoader) loadRoutines(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT routine_name, routine_type, COALESCE(routine_definition, '')
		FROM information_schema.routines
		WHERE routine_schema = 'public'`)
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

func (l *postgresLoader) loadParameters(ctx context.Context, doc *schema.Document) error {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(qctx, `
		SELECT r.routine_name, r.routine_type, COALESCE(p.parameter_name, ''), p.ordinal_position,
		       COALESCE(p.data_type, ''), COALESCE(p.character_maximum_length, 0), COALESCE(p.parameter_mode, '')
		FROM information_schema.parameters p
		JOIN information_schema.routines r ON r.specific_name = p.specific_name
		WHERE p.specific_schema = 'public'`)
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

// CreateStatement returns pg_get_functiondef output for routines. There is
// no server-side CREATE TABLE rendering, so table export is unsupported.
func (l *postgresLoader) CreateStatement(ctx context.Context, kind, name string) (string, error) {
	switch kind {
	case KindProcedure, KindFunction:
	case KindTable:
		return "", errors.New(errors.ErrTypeExport, "create statements for tables are not supported on postgres")
	default:
		return "", errors.Newf(errors.ErrTypeExport, "unsupported object kind %q", kind)
	}

	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	var definition string

	err := l.db.QueryRowContext(qctx, `
		SELECT pg_get_functiondef(p.oid)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = 'public' AND p.proname = $1`, name).Scan(&definition)
	if err == sql.ErrNoRows {
		return "", errors.Newf(errors.ErrTypeExport, "%s %s not found", kind, name)
	}

	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeExport, "failed to fetch create statement for %s %s", kind, name)
	}

	return definition, nil
}
