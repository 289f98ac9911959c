package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reke592/rdbdiff/internal/compare"
	"github.com/reke592/rdbdiff/internal/errors"
	"github.com/reke592/rdbdiff/internal/loader"
	"github.com/reke592/rdbdiff/internal/logging"
)

// Exporter writes the create statements behind a report's differences, one
// file per object and side, into a directory.
type Exporter struct {
	dir string
	log *logging.Logger
}

// NewExporter returns an exporter writing into dir.
func NewExporter(dir string, log *logging.Logger) *Exporter {
	if log == nil {
		log = logging.Nop()
	}

	return &Exporter{dir: dir, log: log}
}

// Export writes <kind>_<name>.<side>.sql files for every non-index difference
// in the report. Objects are deduplicated first, so a table with five column
// differences exports once per side. A side that cannot produce a statement
// for an object is skipped with a warning; only filesystem failures abort.
// Returns the number of files written.
func (e *Exporter) Export(ctx context.Context, r *Report, sideA, sideB loader.Loader) (int, error) {
	objects := exportObjects(r.Differences)
	if len(objects) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return 0, errors.Wrapf(err, errors.ErrTypeExport, "failed to create export directory %s", e.dir)
	}

	sides := []struct {
		label string
		src   loader.Loader
	}{
		{label: r.SideA.Label, src: sideA},
		{label: r.SideB.Label, src: sideB},
	}

	written := 0

	for _, side := range sides {
		provider, ok := side.src.(loader.CreateStatementProvider)
		if !ok {
			e.log.Warnf("side %s (%s) does not support create statement export, skipping",
				side.label, side.src.Dialect())
			continue
		}

		for _, obj := range objects {
			statement, err := provider.CreateStatement(ctx, obj.kind, obj.name)
			if err != nil {
				e.log.WithError(err).Warnf("skipping %s %s on side %s", obj.kind, obj.name, side.label)
				continue
			}

			if !strings.HasSuffix(statement, "\n") {
				statement += "\n"
			}

			name := fmt.Sprintf("%s_%s.%s.sql", obj.kind, sanitizeName(obj.name), side.label)
			path := filepath.Join(e.dir, name)

			if err := os.WriteFile(path, []byte(statement), 0644); err != nil {
				return written, errors.Wrapf(err, errors.ErrTypeExport, "failed to write %s", path)
			}

			written++
		}
	}

	return written, nil
}

type exportObject struct {
	kind string
	name string
}

// exportObjects collects the distinct exportable objects behind a difference
// list, in first-seen order. Index differences are dropped; an index has no
// create statement of its own in the export flow.
func exportObjects(diffs []compare.Comparison) []exportObject {
	seen := make(map[exportObject]bool)

	var objects []exportObject

	for _, diff := range diffs {
		if diff.ObjectType.IsIndex() {
			continue
		}

		obj := exportObject{kind: diff.ObjectType.Root(), name: exportObjectName(diff)}
		if seen[obj] {
			continue
		}

		seen[obj] = true

		objects = append(objects, obj)
	}

	return objects
}

// exportObjectName resolves which top-level object a difference belongs to.
// Column and parameter rows point at their owner; presence rows and routine
// definition mismatches name the object directly.
func exportObjectName(diff compare.Comparison) string {
	if diff.Owner == "" || diff.Owner == compare.OwnerDefinition {
		return diff.Name
	}

	return diff.Owner
}

// sanitizeName keeps object names safe to embed in a file name.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
