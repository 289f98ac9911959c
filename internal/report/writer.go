package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/reke592/rdbdiff/internal/compare"
	"github.com/reke592/rdbdiff/internal/errors"
)

// Supported output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Writer renders reports in one of the supported output formats.
type Writer struct {
	format  string
	noColor bool
}

// NewWriter returns a writer for the given format. Unknown formats are
// rejected here so render calls cannot fail on a typo later.
func NewWriter(format string, noColor bool) (*Writer, error) {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return nil, errors.Newf(errors.ErrTypeConfig,
			"invalid output format %q: must be table, json, or yaml", format)
	}

	return &Writer{format: format, noColor: noColor}, nil
}

// Write renders the report to w.
func (wr *Writer) Write(w io.Writer, r *Report) error {
	switch wr.format {
	case FormatJSON:
		return wr.writeJSON(w, r)
	case FormatYAML:
		return wr.writeYAML(w, r)
	default:
		return wr.writeTable(w, r)
	}
}

// WriteFile renders the report into path, creating or truncating the file.
func (wr *Writer) WriteFile(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeExport, "failed to create report file %s", path)
	}
	defer f.Close()

	return wr.Write(f, r)
}

func (wr *Writer) writeJSON(w io.Writer, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode report as JSON")
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

func (wr *Writer) writeYAML(w io.Writer, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode report as YAML")
	}

	_, err = w.Write(data)

	return err
}

func (wr *Writer) writeTable(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "rdbdiff run %s\n", r.RunID)
	fmt.Fprintf(w, "%s: %s %s\n", r.SideA.Label, r.SideA.Dialect, r.SideA.URL)
	fmt.Fprintf(w, "%s: %s %s\n", r.SideB.Label, r.SideB.Dialect, r.SideB.URL)
	fmt.Fprintf(w, "Options: eager=%t check_whitespace=%t\n\n",
		r.Options.Eager, r.Options.CheckWhitespace)

	if !r.HasDifferences() {
		fmt.Fprintln(w, "No differences found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Object Type\tName\tOwner\tSide A\tSide B")
	fmt.Fprintln(tw, "-----------\t----\t-----\t------\t------")

	for _, diff := range r.Differences {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			diff.ObjectType, diff.Name, diff.Owner,
			wr.remark(diff.SideA), wr.remark(diff.SideB))
	}

	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to render report table")
	}

	fmt.Fprintf(w, "\n%d difference(s) found\n", r.Count())

	types := make([]string, 0, len(r.Summary))
	for objectType := range r.Summary {
		types = append(types, objectType)
	}

	sort.Strings(types)

	for _, objectType := range types {
		fmt.Fprintf(w, "  %s: %d\n", objectType, r.Summary[objectType])
	}

	return nil
}

// remark renders one remark cell, color-coded unless colors are disabled. The
// color package also honors the NO_COLOR convention on its own.
func (wr *Writer) remark(remark compare.Remark) string {
	if wr.noColor || remark == "" {
		return string(remark)
	}

	switch remark {
	case compare.RemarkMissing:
		return color.RedString(string(remark))
	case compare.RemarkMismatch:
		return color.YellowString(string(remark))
	default:
		return color.GreenString(string(remark))
	}
}
