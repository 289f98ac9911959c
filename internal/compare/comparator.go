package compare

import (
	"regexp"
	"sort"
)

// whitespaceRuns matches runs of two or more whitespace characters. Single
// spaces, tabs, or newlines are left untouched by normalization.
var whitespaceRuns = regexp.MustCompile(`\s{2,}`)

// ObjectOptions control a single CompareObjects call.
type ObjectOptions struct {
	// Owner is propagated into every emitted Comparison.
	Owner string

	// Name marks the call as evaluating one already-identified object (for
	// example, the scalar fields of a single column) instead of a set of
	// candidate names. Emitted comparisons carry Name instead of the map key,
	// and the call stops after the first difference so the same object is
	// never reported twice.
	Name string

	// StopAtFirstDiff is the per-pass reporting policy: stop visiting keys as
	// soon as one difference has been emitted. Top-level presence passes
	// (tables, routines) always run exhaustively; nested presence passes set
	// this from the engine's eager flag. Name mode implies it.
	StopAtFirstDiff bool

	// StaticRemarkA and StaticRemarkB override the remarks derived from key
	// presence.
	StaticRemarkA Remark
	StaticRemarkB Remark

	// NormalizeWhitespace collapses runs of two or more whitespace characters
	// in string values to a single space before equality comparison, so
	// formatting-only differences are invisible.
	NormalizeWhitespace bool
}

// CompareObjects diffs two property mappings one level deep. Keys absent from
// one side are reported as missing there and existing on the other; keys whose
// scalar values differ are reported as a mismatch on both sides; keys that are
// equal, or whose values are nested objects left for the caller to descend
// into, are returned as the equal set in sorted order.
//
// The comparator never inspects nested mapping contents: it is the depth-one
// primitive reused at every level of the schema tree, and descent is the
// engine's responsibility. Nil maps are treated as empty. Inputs are never
// mutated.
func CompareObjects(objectType ObjectType, a, b map[string]interface{}, opts ObjectOptions) ([]Comparison, []string) {
	keys := unionKeys(a, b)

	var diffs []Comparison

	var equal []string

	for _, key := range keys {
		av, inA := a[key]
		bv, inB := b[key]

		switch {
		case !inA:
			diffs = append(diffs, newComparison(objectType, key, opts, RemarkMissing, RemarkExist))
		case !inB:
			diffs = append(diffs, newComparison(objectType, key, opts, RemarkExist, RemarkMissing))
		case isScalar(av) && isScalar(bv) &&
			normalizeValue(av, opts.NormalizeWhitespace) != normalizeValue(bv, opts.NormalizeWhitespace):
			diffs = append(diffs, newComparison(objectType, key, opts, RemarkMismatch, RemarkMismatch))
		default:
			// Equal scalars, or nested objects deferred to a later pass.
			equal = append(equal, key)
		}

		// Single-object mode: one difference fully describes the object, so
		// stop before a second property check can report it again. The same
		// early return implements the stop-at-first-diff pass policy.
		if (opts.Name != "" || opts.StopAtFirstDiff) && len(diffs) > 0 {
			break
		}
	}

	return diffs, equal
}

func newComparison(objectType ObjectType, key string, opts ObjectOptions, remarkA, remarkB Remark) Comparison {
	name := key
	if opts.Name != "" {
		name = opts.Name
	}

	if opts.StaticRemarkA != "" {
		remarkA = opts.StaticRemarkA
	}

	if opts.StaticRemarkB != "" {
		remarkB = opts.StaticRemarkB
	}

	return Comparison{
		ObjectType: objectType,
		Name:       name,
		Owner:      opts.Owner,
		SideA:      remarkA,
		SideB:      remarkB,
	}
}

// unionKeys returns the union of both key sets, sorted so that emission order
// is deterministic for any map iteration order.
func unionKeys(a, b map[string]interface{}) []string {
	keys := make([]string, 0, len(a)+len(b))

	for key := range a {
		keys = append(keys, key)
	}

	for key := range b {
		if _, seen := a[key]; !seen {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys
}

// isScalar reports whether a value participates in direct equality checks.
// Maps and struct entries are nested objects handled by a later pass.
func isScalar(v interface{}) bool {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

func normalizeValue(v interface{}, normalize bool) interface{} {
	if !normalize {
		return v
	}

	s, ok := v.(string)
	if !ok {
		return v
	}

	return whitespaceRuns.ReplaceAllString(s, " ")
}
