package loader

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/reke592/rdbdiff/internal/errors"
	"github.com/reke592/rdbdiff/internal/logging"
	"github.com/reke592/rdbdiff/internal/schema"
)

// SnapshotVersion is the current snapshot file format version.
const SnapshotVersion = 1

// Snapshot is the on-disk capture of one database's schema. The dialect is
// recorded so a snapshot side still participates in protocol mismatch
// checks as its origin.
type Snapshot struct {
	Version    int              `json:"version"`
	Dialect    string           `json:"dialect"`
	Source     string           `json:"source,omitempty"`
	CapturedAt time.Time        `json:"captured_at"`
	Document   *schema.Document `json:"document"`
}

// NewSnapshot wraps a loaded document for saving. Source should be the
// redacted connection URL, never the raw one.
func NewSnapshot(dialect, source string, doc *schema.Document) *Snapshot {
	return &Snapshot{
		Version:    SnapshotVersion,
		Dialect:    dialect,
		Source:     source,
		CapturedAt: time.Now().UTC(),
		Document:   doc,
	}
}

// SaveSnapshot writes a snapshot as indented JSON, creating parent
// directories as needed.
func SaveSnapshot(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeSnapshot, "failed to encode snapshot")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, errors.ErrTypeSnapshot, "failed to create snapshot directory %s", dir)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrTypeSnapshot, "failed to write snapshot %s", path)
	}

	return nil
}

// ReadSnapshot loads and validates a snapshot file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeSnapshot, "failed to read snapshot %s", path)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeSnapshot, "failed to parse snapshot %s", path)
	}

	if snap.Version != SnapshotVersion {
		return nil, errors.Newf(errors.ErrTypeSnapshot,
			"unsupported snapshot version %d in %s (expected %d)", snap.Version, path, SnapshotVersion)
	}

	if snap.Dialect == "" {
		return nil, errors.Newf(errors.ErrTypeSnapshot, "snapshot %s does not record a dialect", path)
	}

	if snap.Document == nil {
		return nil, errors.Newf(errors.ErrTypeSnapshot, "snapshot %s has no schema document", path)
	}

	snap.Document.Normalize()

	return &snap, nil
}

// snapshotLoader serves a schema captured earlier by the snapshot command.
// The file is read at construction time so dialect checks can run before
// the other side starts loading.
type snapshotLoader struct {
	path string
	snap *Snapshot
	log  *logging.Logger
}

func newSnapshotLoader(target Target, log *logging.Logger) (*snapshotLoader, error) {
	snap, err := ReadSnapshot(target.DSN)
	if err != nil {
		return nil, err
	}

	return &snapshotLoader{
		path: target.DSN,
		snap: snap,
		log:  log.WithField("dialect", DialectSnapshot),
	}, nil
}

// Dialect reports the dialect recorded at capture time, not "snapshot".
func (l *snapshotLoader) Dialect() string { return l.snap.Dialect }

func (l *snapshotLoader) Load(_ context.Context) (*schema.Document, error) {
	l.log.Debugf("using snapshot %s of %s captured %s",
		l.path, l.snap.Dialect, l.snap.CapturedAt.Format(time.RFC3339))

	return l.snap.Document, nil
}

func (l *snapshotLoader) Close() error { return nil }
