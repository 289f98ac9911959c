// Package compare implements the schema comparison core: a depth-one object
// comparator and the four-level engine that walks tables, indexes, procedures,
// and functions across two schema documents. The package is pure computation;
// it never touches a database connection, formats output, or decides process
// exit status.
package compare

import "strings"

// ObjectType tags a Comparison with the kind of schema object it describes.
type ObjectType string

const (
	ObjectTable          ObjectType = "table"
	ObjectTableColumn    ObjectType = "table.column"
	ObjectIndex          ObjectType = "index"
	ObjectProcedure      ObjectType = "procedure"
	ObjectProcedureParam ObjectType = "procedure.parameter"
	ObjectFunction       ObjectType = "function"
	ObjectFunctionParam  ObjectType = "function.parameter"
)

// Root returns the top-level object kind, e.g. "table" for "table.column".
func (t ObjectType) Root() string {
	root, _, _ := strings.Cut(string(t), ".")
	return root
}

// IsIndex reports whether the object type belongs to the index pass. Index
// differences have no creation statement of their own in the export flow.
func (t ObjectType) IsIndex() bool {
	return t.Root() == string(ObjectIndex)
}

// OwnerDefinition is the Owner value carried by routine definition mismatch
// rows. Name holds the routine itself on those rows, not a child object.
const OwnerDefinition = "definition"

// Remark classifies one side of a comparison.
type Remark string

const (
	RemarkExist    Remark = "exist"
	RemarkMissing  Remark = "missing"
	RemarkMismatch Remark = "mismatch"
)

// Comparison is a single reported difference between the two documents. It is
// immutable once emitted; the engine only appends to its result list.
type Comparison struct {
	ObjectType ObjectType `json:"object_type" yaml:"object_type"`
	Name       string     `json:"name" yaml:"name"`

	// Owner is the enclosing object's name: the table for a column or index
	// difference, the routine for a parameter difference. Routine definition
	// mismatches carry the literal owner "definition".
	Owner string `json:"owner,omitempty" yaml:"owner,omitempty"`

	SideA Remark `json:"side_a,omitempty" yaml:"side_a,omitempty"`
	SideB Remark `json:"side_b,omitempty" yaml:"side_b,omitempty"`
}
