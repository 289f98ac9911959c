package compare

import (
	"sort"

	"github.com/reke592/rdbdiff/internal/schema"
)

// Options configure an Engine run.
type Options struct {
	// Eager reports every difference inside a table or routine instead of
	// stopping at the first class of issue found.
	Eager bool

	// CheckWhitespace compares routine definitions byte for byte. When false,
	// runs of whitespace in the definitions are collapsed before comparison so
	// formatting-only drift is ignored.
	CheckWhitespace bool
}

// Logger is the narrow logging surface the engine needs. The CLI injects the
// application logger; tests run with Nop.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// Engine compares two fully loaded schema documents. It assumes both documents
// were normalized by their loaders, never mutates them, and keeps no state
// across Compare calls.
type Engine struct {
	a, b *schema.Document
	opts Options
	log  Logger
}

// NewEngine builds an engine over two loaded documents.
func NewEngine(a, b *schema.Document, opts Options, log Logger) *Engine {
	if log == nil {
		log = Nop()
	}

	return &Engine{a: a, b: b, opts: opts, log: log}
}

// Compare walks both documents and returns every detected difference. The
// result is the concatenation of four passes in fixed order: tables, indexes,
// procedures, functions. The order is part of the contract; callers may rely
// on it.
func (e *Engine) Compare() []Comparison {
	result := make([]Comparison, 0)

	result = append(result, e.compareTables()...)
	result = append(result, e.compareIndexes()...)
	result = append(result, e.compareRoutines(ObjectProcedure, ObjectProcedureParam, e.a.Procedures, e.b.Procedures)...)
	result = append(result, e.compareRoutines(ObjectFunction, ObjectFunctionParam, e.a.Functions, e.b.Functions)...)

	e.log.Debugf("comparison finished with %d difference(s)", len(result))

	return result
}

// compareTables reports missing tables, then walks the columns of every table
// present on both sides. Without Eager, a table reports only its first class
// of issue: missing columns suppress the per-column field checks, and the
// first mismatching column stops the rest.
func (e *Engine) compareTables() []Comparison {
	e.log.Debugf("comparing %d and %d table(s)", len(e.a.Tables), len(e.b.Tables))

	diffs, shared := CompareObjects(ObjectTable, asObjectMap(e.a.Tables), asObjectMap(e.b.Tables), ObjectOptions{})

	for _, table := range shared {
		e.log.Debugf("comparing table %s", table)

		columnsA := e.a.Tables[table].Columns
		columnsB := e.b.Tables[table].Columns

		missing, sharedColumns := CompareObjects(ObjectTableColumn,
			asObjectMap(columnsA), asObjectMap(columnsB),
			ObjectOptions{Owner: table, StopAtFirstDiff: !e.opts.Eager})
		diffs = append(diffs, missing...)

		if len(missing) > 0 && !e.opts.Eager {
			continue
		}

		for _, column := range sharedColumns {
			fieldDiffs, _ := CompareObjects(ObjectTableColumn,
				columnFields(columnsA[column]), columnFields(columnsB[column]),
				ObjectOptions{Owner: table, Name: column})
			diffs = append(diffs, fieldDiffs...)

			if len(fieldDiffs) > 0 && !e.opts.Eager {
				break
			}
		}
	}

	return diffs
}

// compareIndexes walks the indexes of tables present in both documents. A
// table missing on either side was already reported by the table pass, so its
// index rows are skipped entirely. Index reporting is deliberately coarser
// than table reporting: any missing index suppresses the column-level checks
// for that table, and the first column-level difference stops further checks
// of that index. Neither short-circuit consults the Eager flag.
func (e *Engine) compareIndexes() []Comparison {
	var diffs []Comparison

	for _, table := range sharedTableNames(e.a.Tables, e.b.Tables) {
		indexesA := e.a.Indexes[table]
		indexesB := e.b.Indexes[table]

		if len(indexesA) == 0 && len(indexesB) == 0 {
			continue
		}

		e.log.Debugf("comparing indexes of table %s", table)

		missing, shared := CompareObjects(ObjectIndex,
			asObjectMap(indexesA), asObjectMap(indexesB),
			ObjectOptions{Owner: table})
		diffs = append(diffs, missing...)

		if len(missing) > 0 {
			continue
		}

		for _, index := range shared {
			presence, sharedColumns := CompareObjects(ObjectIndex,
				asObjectMap(indexesA[index]), asObjectMap(indexesB[index]),
				ObjectOptions{Owner: table, Name: index})
			diffs = append(diffs, presence...)

			if len(presence) > 0 {
				continue
			}

			for _, column := range sharedColumns {
				fieldDiffs, _ := CompareObjects(ObjectIndex,
					indexColumnFields(indexesA[index][column]), indexColumnFields(indexesB[index][column]),
					ObjectOptions{Owner: table, Name: index})
				diffs = append(diffs, fieldDiffs...)

				if len(fieldDiffs) > 0 {
					break
				}
			}
		}
	}

	return diffs
}

// compareRoutines handles the procedure and function passes, which differ only
// in their object type tags. Each shared routine gets one whitespace-aware
// definition comparison, then a parameter presence pass, then per-parameter
// field checks gated by Eager the same way table columns are.
func (e *Engine) compareRoutines(objectType, paramType ObjectType, routinesA, routinesB map[string]schema.RoutineEntry) []Comparison {
	e.log.Debugf("comparing %d and %d %s(s)", len(routinesA), len(routinesB), objectType)

	diffs, shared := CompareObjects(objectType, asObjectMap(routinesA), asObjectMap(routinesB), ObjectOptions{})

	for _, routine := range shared {
		a := routinesA[routine]
		b := routinesB[routine]

		defDiffs, _ := CompareObjects(objectType,
			map[string]interface{}{routine: a.Definition},
			map[string]interface{}{routine: b.Definition},
			ObjectOptions{
				Owner:               OwnerDefinition,
				Name:                routine,
				NormalizeWhitespace: !e.opts.CheckWhitespace,
			})
		diffs = append(diffs, defDiffs...)

		missing, sharedParams := CompareObjects(paramType,
			asObjectMap(a.Parameters), asObjectMap(b.Parameters),
			ObjectOptions{Owner: routine, StopAtFirstDiff: !e.opts.Eager})
		diffs = append(diffs, missing...)

		if len(missing) > 0 && !e.opts.Eager {
			continue
		}

		for _, param := range sharedParams {
			fieldDiffs, _ := CompareObjects(paramType,
				paramFields(a.Parameters[param]), paramFields(b.Parameters[param]),
				ObjectOptions{Owner: routine, Name: param})
			diffs = append(diffs, fieldDiffs...)

			if len(fieldDiffs) > 0 && !e.opts.Eager {
				break
			}
		}
	}

	return diffs
}

// asObjectMap widens a typed schema mapping for the comparator. Entry values
// are structs or nested maps, so presence passes defer them as nested objects.
func asObjectMap[T any](m map[string]T) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for key, value := range m {
		out[key] = value
	}

	return out
}

func sharedTableNames(a, b map[string]schema.TableEntry) []string {
	names := make([]string, 0, len(a))

	for name := range a {
		if _, ok := b[name]; ok {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

func columnFields(c schema.ColumnEntry) map[string]interface{} {
	return map[string]interface{}{
		"type":             c.Type,
		"default":          c.Default,
		"nullable":         c.Nullable,
		"key":              c.Key,
		"char_max_length":  c.CharMaxLength,
		"ordinal_position": c.OrdinalPosition,
	}
}

func indexColumnFields(c schema.IndexColumnEntry) map[string]interface{} {
	return map[string]interface{}{
		"is_unique":       c.IsUnique,
		"column":          c.Column,
		"sequence_number": c.SequenceNumber,
	}
}

func paramFields(p schema.ParamEntry) map[string]interface{} {
	return map[string]interface{}{
		"ordinal_position": p.OrdinalPosition,
		"type":             p.Type,
		"char_max_length":  p.CharMaxLength,
		"mode":             p.Mode,
	}
}
