// Package testutil provides builders for schema documents used across the
// comparison and reporting tests.
package testutil

import (
	"github.com/reke592/rdbdiff/internal/schema"
)

// DocumentOption is a functional option for configuring test documents
type DocumentOption func(*schema.Document)

// WithTable adds a table with the given engine and columns
func WithTable(name, engine string, columns map[string]schema.ColumnEntry) DocumentOption {
	return func(d *schema.Document) {
		if columns == nil {
			columns = make(map[string]schema.ColumnEntry)
		}

		d.Tables[name] = schema.TableEntry{Engine: engine, Columns: columns}
	}
}

// WithIndex records an index on a table. Column order follows the given
// sequence of column names; set unique for unique indexes.
func WithIndex(table, index string, unique bool, columns ...string) DocumentOption {
	return func(d *schema.Document) {
		if d.Indexes[table] == nil {
			d.Indexes[table] = make(map[string]map[string]schema.IndexColumnEntry)
		}

		entries := make(map[string]schema.IndexColumnEntry, len(columns))
		for i, column := range columns {
			entries[column] = schema.IndexColumnEntry{
				IsUnique:       unique,
				Column:         column,
				SequenceNumber: i + 1,
			}
		}

		d.Indexes[table][index] = entries
	}
}

// WithProcedure adds a stored procedure
func WithProcedure(name, definition string, params map[string]schema.ParamEntry) DocumentOption {
	return func(d *schema.Document) {
		if params == nil {
			params = make(map[string]schema.ParamEntry)
		}

		d.Procedures[name] = schema.RoutineEntry{Definition: definition, Parameters: params}
	}
}

// WithFunction adds a function
func WithFunction(name, definition string, params map[string]schema.ParamEntry) DocumentOption {
	return func(d *schema.Document) {
		if params == nil {
			params = make(map[string]schema.ParamEntry)
		}

		d.Functions[name] = schema.RoutineEntry{Definition: definition, Parameters: params}
	}
}

// NewTestDocument creates an empty document and applies the provided options.
func NewTestDocument(opts ...DocumentOption) *schema.Document {
	doc := schema.NewDocument()

	for _, opt := range opts {
		opt(doc)
	}

	return doc
}

// IntColumn returns a plain integer column at the given ordinal position.
func IntColumn(position int) schema.ColumnEntry {
	return schema.ColumnEntry{
		Type:            "int",
		Nullable:        "NO",
		OrdinalPosition: position,
	}
}

// VarcharColumn returns a nullable varchar column with a length limit.
func VarcharColumn(position int, maxLength int64) schema.ColumnEntry {
	return schema.ColumnEntry{
		Type:            "varchar",
		Nullable:        "YES",
		CharMaxLength:   maxLength,
		OrdinalPosition: position,
	}
}

// PrimaryKeyColumn returns an integer primary key column.
func PrimaryKeyColumn(position int) schema.ColumnEntry {
	entry := IntColumn(position)
	entry.Key = "PRI"

	return entry
}

// Param returns a routine parameter.
func Param(position int, typ, mode string) schema.ParamEntry {
	return schema.ParamEntry{
		OrdinalPosition: position,
		Type:            typ,
		Mode:            mode,
	}
}
