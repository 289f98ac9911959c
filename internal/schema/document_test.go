package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentAllocatesMaps(t *testing.T) {
	doc := NewDocument()

	assert.NotNil(t, doc.Tables)
	assert.NotNil(t, doc.Indexes)
	assert.NotNil(t, doc.Procedures)
	assert.NotNil(t, doc.Functions)
}

func TestNormalizeFillsNilMaps(t *testing.T) {
	doc := &Document{
		Tables: map[string]TableEntry{
			"bare": {Engine: "InnoDB"},
		},
		Indexes: map[string]map[string]map[string]IndexColumnEntry{
			"bare":  nil,
			"other": {"ix": nil},
		},
		Procedures: map[string]RoutineEntry{
			"sp": {Definition: "BODY"},
		},
	}

	doc.Normalize()

	assert.NotNil(t, doc.Functions)
	assert.NotNil(t, doc.Tables["bare"].Columns)
	assert.NotNil(t, doc.Indexes["bare"])
	assert.NotNil(t, doc.Indexes["other"]["ix"])
	assert.NotNil(t, doc.Procedures["sp"].Parameters)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	doc := NewDocument()
	doc.Tables["t"] = TableEntry{Columns: map[string]ColumnEntry{"c": {Type: "int"}}}

	doc.Normalize()
	doc.Normalize()

	assert.Equal(t, "int", doc.Tables["t"].Columns["c"].Type)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := NewDocument()
	doc.Tables["users"] = TableEntry{
		Engine: "InnoDB",
		Columns: map[string]ColumnEntry{
			"id": {Type: "int", Nullable: "NO", Key: "PRI", OrdinalPosition: 1},
		},
	}
	doc.Indexes["users"] = map[string]map[string]IndexColumnEntry{
		"ux_email": {"email": {IsUnique: true, Column: "email", SequenceNumber: 1}},
	}
	doc.Procedures["sp_x"] = RoutineEntry{
		Definition: "SELECT 1",
		Parameters: map[string]ParamEntry{"p": {OrdinalPosition: 1, Type: "int", Mode: "IN"}},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, *doc, decoded)
}

func TestCounts(t *testing.T) {
	doc := NewDocument()
	doc.Tables["a"] = TableEntry{}
	doc.Tables["b"] = TableEntry{}
	doc.Procedures["sp"] = RoutineEntry{}
	doc.Functions["fn"] = RoutineEntry{}

	assert.Equal(t, 2, doc.TableCount())
	assert.Equal(t, 2, doc.RoutineCount())
}
