// Package report assembles engine output into a run report and renders it as
// an aligned table, JSON, or YAML. It also exports per-object create
// statements for the differences found.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/reke592/rdbdiff/internal/compare"
)

// Side identifies one of the two compared schemas. URL holds the redacted
// connection string; raw credentials never enter a report.
type Side struct {
	Label   string `json:"label" yaml:"label"`
	Dialect string `json:"dialect" yaml:"dialect"`
	URL     string `json:"url" yaml:"url"`
}

// Options records the comparison settings the report was produced under.
type Options struct {
	Eager           bool `json:"eager" yaml:"eager"`
	CheckWhitespace bool `json:"check_whitespace" yaml:"check_whitespace"`
}

// Report is the complete result of one comparison run.
type Report struct {
	RunID       string               `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time            `json:"generated_at" yaml:"generated_at"`
	SideA       Side                 `json:"side_a" yaml:"side_a"`
	SideB       Side                 `json:"side_b" yaml:"side_b"`
	Options     Options              `json:"options" yaml:"options"`
	Differences []compare.Comparison `json:"differences" yaml:"differences"`

	// Summary counts differences per object type.
	Summary map[string]int `json:"summary" yaml:"summary"`
}

// New builds a report around the engine's difference list, preserving its
// order.
func New(sideA, sideB Side, opts Options, diffs []compare.Comparison) *Report {
	summary := make(map[string]int)
	for _, diff := range diffs {
		summary[string(diff.ObjectType)]++
	}

	return &Report{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		SideA:       sideA,
		SideB:       sideB,
		Options:     opts,
		Differences: diffs,
		Summary:     summary,
	}
}

// HasDifferences reports whether the run found any differences. The CLI maps
// this to the process exit code; the report itself carries no exit semantics.
func (r *Report) HasDifferences() bool {
	return len(r.Differences) > 0
}

// Count returns the total number of differences.
func (r *Report) Count() int {
	return len(r.Differences)
}
