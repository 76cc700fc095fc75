// Package tables implements versioned CSV tables with an append-only
// audit log.
//
// Every table lives in its own directory:
//
//	{root}/tables/{name}/
//	├── current.csv        active snapshot
//	├── {timestamp}.bsdiff full content of each version
//	├── checksums.csv      blake2b-256 digest per version
//	└── version.log        append-only audit trail
//
// A table is either absent (no current.csv) or present. Writes replace
// the snapshot atomically via a temp file and rename, so concurrent
// readers always see a complete file. One Table value serializes its
// writers with a mutex; coordination across processes is the caller's
// responsibility.
package tables

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/reedcms/reedbase/internal/flatcsv"
	"github.com/reedcms/reedbase/internal/reed"
	"github.com/reedcms/reedbase/internal/registry"
)

// Registry resolves audit codes for the version log.
type Registry interface {
	UserCode(username string) (uint32, error)
	ActionName(code uint8) (string, error)
	Username(code uint32) (string, error)
}

// WriteResult describes one committed version.
type WriteResult struct {
	// Timestamp is the version's identity, nanoseconds since the Unix
	// epoch. It doubles as the delta filename.
	Timestamp uint64
	// DeltaSize is the size of the version's delta file in bytes.
	DeltaSize uint64
	// CurrentSize is the size of the new snapshot in bytes.
	CurrentSize uint64
}

// Table is a reference to one versioned table. Creating the reference
// does not touch the disk.
type Table struct {
	root string
	name string
	reg  Registry

	// mu serializes Init, Write, and Delete. Reads do not take it;
	// the atomic snapshot rename keeps them safe.
	mu sync.Mutex
}

// New returns a reference to the table called name under root.
func New(root, name string, reg Registry) *Table {
	return &Table{root: root, name: name, reg: reg}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) dir() string {
	return filepath.Join(t.root, "tables", t.name)
}

// CurrentPath returns the path of the active snapshot.
func (t *Table) CurrentPath() string {
	return filepath.Join(t.dir(), "current.csv")
}

func (t *Table) deltaPath(timestamp uint64) string {
	return filepath.Join(t.dir(), fmt.Sprintf("%d.bsdiff", timestamp))
}

func (t *Table) logPath() string {
	return filepath.Join(t.dir(), "version.log")
}

func (t *Table) checksumPath() string {
	return filepath.Join(t.dir(), "checksums.csv")
}

// Exists reports whether the table is present on disk.
func (t *Table) Exists() bool {
	_, err := os.Stat(t.CurrentPath())
	return err == nil
}

// Init creates the table with its first version. The table must not
// exist yet.
func (t *Table) Init(content []byte, user string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Exists() {
		return fmt.Errorf("table %q: %w", t.name, reed.ErrTableExists)
	}
	if err := os.MkdirAll(t.dir(), 0o755); err != nil { //nolint:gosec // G301: table data is not secret.
		return &reed.IoError{Op: "create_table_dir", Path: t.dir(), Err: err}
	}
	_, err := t.commit(content, user, registry.ActionInit)
	return err
}

// Write commits a new version. The table must exist; use Init first.
func (t *Table) Write(content []byte, user string) (WriteResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Exists() {
		return WriteResult{}, fmt.Errorf("table %q: %w", t.name, reed.ErrTableNotFound)
	}
	return t.commit(content, user, registry.ActionUpdate)
}

// commit writes the delta, its checksum, the snapshot, and the log line
// for one new version, in that order. The delta exists before the
// snapshot rename claims it, and the log line lands last; a crash can
// leave a delta without a log line but never a logged version without
// its delta. Callers hold t.mu.
func (t *Table) commit(content []byte, user string, action uint8) (WriteResult, error) {
	timestamp := nowNanos()

	deltaPath := t.deltaPath(timestamp)
	if err := os.WriteFile(deltaPath, content, 0o644); err != nil { //nolint:gosec // G306: matches the snapshot mode.
		return WriteResult{}, &reed.IoError{Op: "write_delta", Path: deltaPath, Err: err}
	}
	fi, err := os.Stat(deltaPath)
	if err != nil {
		return WriteResult{}, &reed.IoError{Op: "stat_delta", Path: deltaPath, Err: err}
	}
	deltaSize := uint64(fi.Size())

	if err := t.appendChecksum(timestamp, content); err != nil {
		return WriteResult{}, err
	}

	current := t.CurrentPath()
	tmp := current + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil { //nolint:gosec // G306: CSV tables are world-readable.
		return WriteResult{}, &reed.IoError{Op: "write_current", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, current); err != nil {
		_ = os.Remove(tmp)
		return WriteResult{}, &reed.IoError{Op: "rename_current", Path: current, Err: err}
	}

	userCode, err := t.reg.UserCode(user)
	if err != nil {
		return WriteResult{}, err
	}
	logPath := t.logPath()
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302,G304: audit log next to the table data.
	if err != nil {
		return WriteResult{}, &reed.IoError{Op: "open_log", Path: logPath, Err: err}
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d|%d|%d|%d\n", timestamp, action, userCode, deltaSize); err != nil {
		return WriteResult{}, &reed.IoError{Op: "append_log", Path: logPath, Err: err}
	}

	return WriteResult{
		Timestamp:   timestamp,
		DeltaSize:   deltaSize,
		CurrentSize: uint64(len(content)),
	}, nil
}

// ReadCurrent returns the active snapshot's raw bytes.
func (t *Table) ReadCurrent() ([]byte, error) {
	if !t.Exists() {
		return nil, fmt.Errorf("table %q: %w", t.name, reed.ErrTableNotFound)
	}
	data, err := os.ReadFile(t.CurrentPath()) //nolint:gosec // G304: path is derived from the table name.
	if err != nil {
		return nil, &reed.IoError{Op: "read_current", Path: t.CurrentPath(), Err: err}
	}
	return data, nil
}

// ReadCurrentRows parses the active snapshot through the flat codec.
func (t *Table) ReadCurrentRows() ([]flatcsv.Record, error) {
	if !t.Exists() {
		return nil, fmt.Errorf("table %q: %w", t.name, reed.ErrTableNotFound)
	}
	return flatcsv.Read(t.CurrentPath())
}

// Delete removes the table and its whole history. confirm must be true.
// Deleting an absent table succeeds.
func (t *Table) Delete(confirm bool) error {
	if !confirm {
		return fmt.Errorf("delete table %q: %w", t.name, reed.ErrNotConfirmed)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.RemoveAll(t.dir()); err != nil {
		return &reed.IoError{Op: "delete_table", Path: t.dir(), Err: err}
	}
	return nil
}

func nowNanos() uint64 {
	return uint64(reed.Now().UnixNano())
}
