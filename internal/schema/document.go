// Package schema defines the database schema snapshot types consumed by the
// comparison engine. A Document is built once by a loader, normalized, and
// treated as read-only from then on.
package schema

// Document is the full schema snapshot of one database.
type Document struct {
	// Tables maps table name to its definition.
	Tables map[string]TableEntry `json:"tables"`

	// Indexes maps table name -> index name -> column name -> entry. The key
	// set is recorded independently of Tables: an index may reference a table
	// that does not exist on the other side, and such rows are skipped (never
	// compared) during index comparison.
	Indexes map[string]map[string]map[string]IndexColumnEntry `json:"indexes"`

	// Procedures and Functions map routine name to its definition.
	Procedures map[string]RoutineEntry `json:"procedures"`
	Functions  map[string]RoutineEntry `json:"functions"`
}

// TableEntry describes a single table.
type TableEntry struct {
	Engine  string                 `json:"engine,omitempty"`
	Columns map[string]ColumnEntry `json:"columns"`
}

// ColumnEntry describes a single column. All fields are scalars; column
// comparison is a field-by-field equality check.
type ColumnEntry struct {
	Type            string `json:"type"`
	Default         string `json:"default"`
	Nullable        string `json:"nullable"`
	Key             string `json:"key"`
	CharMaxLength   int64  `json:"char_max_length"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// IndexColumnEntry describes one column of an index. SequenceNumber is the
// column's ordinal within a composite index, so two indexes over the same
// column set but in a different order do not compare equal.
type IndexColumnEntry struct {
	IsUnique       bool   `json:"is_unique"`
	Column         string `json:"column"`
	SequenceNumber int    `json:"sequence_number"`
}

// RoutineEntry describes a stored procedure or function.
type RoutineEntry struct {
	// Definition is the routine body as reported by the catalog. It is
	// compared as a single string, optionally whitespace-normalized.
	Definition string                `json:"definition"`
	Parameters map[string]ParamEntry `json:"parameters"`
}

// ParamEntry describes a single routine parameter.
type ParamEntry struct {
	OrdinalPosition int    `json:"ordinal_position"`
	Type            string `json:"type"`
	CharMaxLength   int64  `json:"char_max_length"`
	Mode            string `json:"mode"`
}

// NewDocument returns an empty document with all maps allocated.
func NewDocument() *Document {
	return &Document{
		Tables:     make(map[string]TableEntry),
		Indexes:    make(map[string]map[string]map[string]IndexColumnEntry),
		Procedures: make(map[string]RoutineEntry),
		Functions:  make(map[string]RoutineEntry),
	}
}

// Normalize replaces nil maps with empty ones, including nested column and
// parameter maps. The comparison engine treats absent mappings as empty and
// performs no validation of its own, so every loader must hand over a
// normalized document.
func (d *Document) Normalize() {
	if d.Tables == nil {
		d.Tables = make(map[string]TableEntry)
	}

	if d.Indexes == nil {
		d.Indexes = make(map[string]map[string]map[string]IndexColumnEntry)
	}

	if d.Procedures == nil {
		d.Procedures = make(map[string]RoutineEntry)
	}

	if d.Functions == nil {
		d.Functions = make(map[string]RoutineEntry)
	}

	for name, table := range d.Tables {
		if table.Columns == nil {
			table.Columns = make(map[string]ColumnEntry)
			d.Tables[name] = table
		}
	}

	for table, indexes := range d.Indexes {
		if indexes == nil {
			d.Indexes[table] = make(map[string]map[string]IndexColumnEntry)
			continue
		}

		for index, columns := range indexes {
			if columns == nil {
				indexes[index] = make(map[string]IndexColumnEntry)
			}
		}
	}

	normalizeRoutines(d.Procedures)
	normalizeRoutines(d.Functions)
}

func normalizeRoutines(routines map[string]RoutineEntry) {
	for name, routine := range routines {
		if routine.Parameters == nil {
			routine.Parameters = make(map[string]ParamEntry)
			routines[name] = routine
		}
	}
}

// TableCount reports the number of tables in the document.
func (d *Document) TableCount() int {
	return len(d.Tables)
}

// RoutineCount reports the combined number of procedures and functions.
func (d *Document) RoutineCount() int {
	return len(d.Procedures) + len(d.Functions)
}
