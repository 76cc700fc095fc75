// Package backup keeps compressed point-in-time copies of CSV files.
//
// Every copy is a zstd-compressed snapshot named
// {basename}.{YYYYMMDD_HHMMSS}.zst inside the manager's directory. The
// newest 32 snapshots per file are retained; older ones are pruned after
// each create.
package backup

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/reedcms/reedbase/internal/reed"
)

const (
	// timeLayout is the sortable timestamp embedded in backup filenames.
	timeLayout = "20060102_150405"

	ext = ".zst"

	defaultKeep = 32
)

// encoder and decoder are reused across calls to avoid repeated
// initialization overhead. Both are safe for concurrent use.
var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("backup: zstd encoder initialization failed: " + err.Error())
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("backup: zstd decoder initialization failed: " + err.Error())
	}
}

// Info describes one backup snapshot on disk.
type Info struct {
	// Path is the full path to the compressed snapshot.
	Path string
	// Original is the basename of the file the snapshot was taken from.
	Original string
	// Timestamp is when the snapshot was created, at second resolution.
	Timestamp time.Time
	// Size is the compressed size in bytes.
	Size int64
}

// Manager creates, lists, restores, and prunes backups in one directory.
type Manager struct {
	dir  string
	keep int
}

// New returns a Manager writing into dir. The directory is created
// lazily on the first Create.
func New(dir string) *Manager {
	return &Manager{dir: dir, keep: defaultKeep}
}

// Create snapshots path into the backup directory, then prunes snapshots
// of the same file beyond the retention count. A missing source file is
// not an error; there is nothing to preserve yet. Two creates within the
// same second coalesce into one snapshot.
func (m *Manager) Create(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the caller.
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &reed.IoError{Op: "read", Path: path, Err: err}
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil { //nolint:gosec // G301: backups are not secrets.
		return &reed.IoError{Op: "mkdir", Path: m.dir, Err: err}
	}

	base := filepath.Base(path)
	target := filepath.Join(m.dir, base+"."+reed.Now().Format(timeLayout)+ext)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, encoder.EncodeAll(data, nil), 0o644); err != nil { //nolint:gosec // G306: backups are world-readable like the source CSV.
		return &reed.IoError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return &reed.IoError{Op: "rename", Path: target, Err: err}
	}
	return m.prune(base)
}

// List returns the snapshots of basename, newest first. A missing backup
// directory yields an empty list.
func (m *Manager) List(basename string) ([]Info, error) {
	all, err := m.ListAll()
	if err != nil {
		return nil, err
	}
	var backups []Info
	for _, info := range all {
		if info.Original == basename {
			backups = append(backups, info)
		}
	}
	return backups, nil
}

// ListAll returns every backup in the directory, newest first, whatever
// file it protects.
func (m *Manager) ListAll() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &reed.IoError{Op: "readdir", Path: m.dir, Err: err}
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		trimmed := name[:len(name)-len(ext)]
		dot := strings.LastIndexByte(trimmed, '.')
		if dot < 1 {
			continue
		}
		ts, err := time.Parse(timeLayout, trimmed[dot+1:])
		if err != nil {
			// Not one of ours, or a mangled name. Leave it alone.
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.dir, name),
			Original:  trimmed[:dot],
			Timestamp: ts.UTC(),
			Size:      fi.Size(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// Restore decompresses backupPath over destPath. The destination is
// replaced atomically via a temp file and rename.
func (m *Manager) Restore(backupPath, destPath string) error {
	compressed, err := os.ReadFile(backupPath) //nolint:gosec // G304: path is chosen by the caller.
	if err != nil {
		return &reed.IoError{Op: "read", Path: backupPath, Err: err}
	}
	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return &reed.IoError{Op: "decompress", Path: backupPath, Err: err}
	}

	tmp := destPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // G306: restored files match the source CSV mode.
		return &reed.IoError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, destPath); err != nil {
		_ = os.Remove(tmp)
		return &reed.IoError{Op: "rename", Path: destPath, Err: err}
	}
	return nil
}

// prune deletes snapshots of basename beyond the retention count,
// oldest first. Deletion keeps going past individual failures and the
// last failure is reported once all candidates were attempted.
func (m *Manager) prune(basename string) error {
	backups, err := m.List(basename)
	if err != nil {
		return err
	}
	if len(backups) <= m.keep {
		return nil
	}
	var lastErr error
	for _, b := range backups[m.keep:] {
		if err := os.Remove(b.Path); err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return &reed.IoError{Op: "cleanup", Path: m.dir, Err: lastErr}
	}
	return nil
}
