package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareObjectsMissingKeys(t *testing.T) {
	a := map[string]interface{}{
		"shared": "v",
		"only_a": "v",
	}
	b := map[string]interface{}{
		"shared": "v",
		"only_b": "v",
	}

	diffs, equal := CompareObjects(ObjectTable, a, b, ObjectOptions{})

	require.Len(t, diffs, 2)

	// Union keys are visited in sorted order: only_a before only_b.
	assert.Equal(t, Comparison{
		ObjectType: ObjectTable,
		Name:       "only_a",
		SideA:      RemarkExist,
		SideB:      RemarkMissing,
	}, diffs[0])
	assert.Equal(t, Comparison{
		ObjectType: ObjectTable,
		Name:       "only_b",
		SideA:      RemarkMissing,
		SideB:      RemarkExist,
	}, diffs[1])

	assert.Equal(t, []string{"shared"}, equal)
}

func TestCompareObjectsScalarMismatch(t *testing.T) {
	a := map[string]interface{}{"type": "int", "default": "0"}
	b := map[string]interface{}{"type": "int", "default": "1"}

	diffs, equal := CompareObjects(ObjectTableColumn, a, b, ObjectOptions{Owner: "users"})

	require.Len(t, diffs, 1)
	assert.Equal(t, Comparison{
		ObjectType: ObjectTableColumn,
		Name:       "default",
		Owner:      "users",
		SideA:      RemarkMismatch,
		SideB:      RemarkMismatch,
	}, diffs[0])
	assert.Equal(t, []string{"type"}, equal)
}

func TestCompareObjectsDefersNestedValues(t *testing.T) {
	type entry struct{ v string }

	a := map[string]interface{}{
		"nested_map":    map[string]interface{}{"x": 1},
		"nested_struct": entry{v: "a"},
	}
	b := map[string]interface{}{
		"nested_map":    map[string]interface{}{"x": 2},
		"nested_struct": entry{v: "b"},
	}

	diffs, equal := CompareObjects(ObjectTable, a, b, ObjectOptions{})

	// Nested values are never inspected here; descent belongs to the caller.
	assert.Empty(t, diffs)
	assert.Equal(t, []string{"nested_map", "nested_struct"}, equal)
}

func TestCompareObjectsSingleObjectMode(t *testing.T) {
	a := map[string]interface{}{"type": "int", "default": "0", "key": "PRI"}
	b := map[string]interface{}{"type": "text", "default": "1", "key": ""}

	diffs, _ := CompareObjects(ObjectTableColumn, a, b, ObjectOptions{Owner: "users", Name: "id"})

	// Three properties differ but the object is reported exactly once, under
	// its own name rather than the property key.
	require.Len(t, diffs, 1)
	assert.Equal(t, "id", diffs[0].Name)
	assert.Equal(t, "users", diffs[0].Owner)
	assert.Equal(t, RemarkMismatch, diffs[0].SideA)
	assert.Equal(t, RemarkMismatch, diffs[0].SideB)
}

func TestCompareObjectsSingleObjectModeMissingKey(t *testing.T) {
	a := map[string]interface{}{"mode": "IN", "type": "int"}
	b := map[string]interface{}{"type": "bigint"}

	diffs, _ := CompareObjects(ObjectProcedureParam, a, b, ObjectOptions{Name: "p_id"})

	require.Len(t, diffs, 1)
	assert.Equal(t, "p_id", diffs[0].Name)
	assert.Equal(t, RemarkExist, diffs[0].SideA)
	assert.Equal(t, RemarkMissing, diffs[0].SideB)
}

func TestCompareObjectsStaticRemarks(t *testing.T) {
	a := map[string]interface{}{"only_a": "v"}
	b := map[string]interface{}{}

	diffs, _ := CompareObjects(ObjectTable, a, b, ObjectOptions{
		StaticRemarkA: RemarkMismatch,
		StaticRemarkB: RemarkMismatch,
	})

	require.Len(t, diffs, 1)
	assert.Equal(t, RemarkMismatch, diffs[0].SideA)
	assert.Equal(t, RemarkMismatch, diffs[0].SideB)
}

func TestCompareObjectsWhitespaceNormalization(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		normalize bool
		wantDiff  bool
	}{
		{
			name:      "runs collapse when normalizing",
			a:         "select  *\n\tfrom t",
			b:         "select * from t",
			normalize: true,
			wantDiff:  false,
		},
		{
			name:      "runs differ when not normalizing",
			a:         "select  * from t",
			b:         "select * from t",
			normalize: false,
			wantDiff:  true,
		},
		{
			name:      "single tab survives normalization",
			a:         "a\tb",
			b:         "a b",
			normalize: true,
			wantDiff:  true,
		},
		{
			name:      "real change is still a mismatch",
			a:         "select 1",
			b:         "select 2",
			normalize: true,
			wantDiff:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diffs, _ := CompareObjects(ObjectProcedure,
				map[string]interface{}{"proc": tt.a},
				map[string]interface{}{"proc": tt.b},
				ObjectOptions{NormalizeWhitespace: tt.normalize})

			if tt.wantDiff {
				assert.Len(t, diffs, 1)
			} else {
				assert.Empty(t, diffs)
			}
		})
	}
}

func TestCompareObjectsNilMapsTreatedAsEmpty(t *testing.T) {
	diffs, equal := CompareObjects(ObjectTable, nil, nil, ObjectOptions{})
	assert.Empty(t, diffs)
	assert.Empty(t, equal)

	diffs, equal = CompareObjects(ObjectTable, map[string]interface{}{"t": "v"}, nil, ObjectOptions{})
	require.Len(t, diffs, 1)
	assert.Equal(t, RemarkExist, diffs[0].SideA)
	assert.Equal(t, RemarkMissing, diffs[0].SideB)
	assert.Empty(t, equal)
}

func TestCompareObjectsDoesNotMutateInputs(t *testing.T) {
	a := map[string]interface{}{"x": "1", "y": "2"}
	b := map[string]interface{}{"x": "9"}

	CompareObjects(ObjectTable, a, b, ObjectOptions{})

	assert.Equal(t, map[string]interface{}{"x": "1", "y": "2"}, a)
	assert.Equal(t, map[string]interface{}{"x": "9"}, b)
}

func TestCompareObjectsDeterministicOrder(t *testing.T) {
	a := map[string]interface{}{"c": 1, "a": 1, "b": 1}
	b := map[string]interface{}{}

	for i := 0; i < 20; i++ {
		diffs, _ := CompareObjects(ObjectTable, a, b, ObjectOptions{})

		require.Len(t, diffs, 3)
		assert.Equal(t, "a", diffs[0].Name)
		assert.Equal(t, "b", diffs[1].Name)
		assert.Equal(t, "c", diffs[2].Name)
	}
}

func TestObjectTypeRoot(t *testing.T) {
	assert.Equal(t, "table", ObjectTable.Root())
	assert.Equal(t, "table", ObjectTableColumn.Root())
	assert.Equal(t, "procedure", ObjectProcedureParam.Root())
	assert.Equal(t, "function", ObjectFunctionParam.Root())
	assert.True(t, ObjectIndex.IsIndex())
	assert.False(t, ObjectTableColumn.IsIndex())
}
