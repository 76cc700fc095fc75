package tables

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/reedcms/reedbase/internal/reed"
)

// VersionInfo describes one committed version, with audit codes
// resolved to names.
type VersionInfo struct {
	Timestamp uint64
	Action    string
	User      string
	DeltaSize uint64
}

// ListVersions parses version.log and returns the history newest first.
// A table without a log has no versions. Codes missing from the
// registry resolve to an "unknown(N)" label rather than an error; the
// history must stay listable even when the registry has moved on.
func (t *Table) ListVersions() ([]VersionInfo, error) {
	if !t.Exists() {
		return nil, fmt.Errorf("table %q: %w", t.name, reed.ErrTableNotFound)
	}

	logPath := t.logPath()
	data, err := os.ReadFile(logPath) //nolint:gosec // G304: path is derived from the table name.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &reed.IoError{Op: "open_log", Path: logPath, Err: err}
	}

	var versions []VersionInfo
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, err := t.parseLogLine(logPath, i+1, line)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	slices.Reverse(versions)
	return versions, nil
}

func (t *Table) parseLogLine(path string, lineNum int, line string) (VersionInfo, error) {
	corrupt := func(reason string) error {
		return &reed.LogCorruptedError{Path: path, Line: lineNum, Reason: reason}
	}

	parts := strings.Split(line, "|")
	if len(parts) < 4 {
		return VersionInfo{}, corrupt("invalid format")
	}
	timestamp, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return VersionInfo{}, corrupt("invalid timestamp")
	}
	actionCode, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return VersionInfo{}, corrupt("invalid action code")
	}
	userCode, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return VersionInfo{}, corrupt("invalid user code")
	}
	deltaSize, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return VersionInfo{}, corrupt("invalid delta size")
	}

	action, err := t.reg.ActionName(uint8(actionCode))
	if err != nil {
		action = fmt.Sprintf("unknown(%d)", actionCode)
	}
	user, err := t.reg.Username(uint32(userCode))
	if err != nil {
		user = fmt.Sprintf("unknown(%d)", userCode)
	}

	return VersionInfo{
		Timestamp: timestamp,
		Action:    action,
		User:      user,
		DeltaSize: deltaSize,
	}, nil
}

// Rollback restores the content of an earlier version by committing it
// as a new version. History is append-only: nothing is rewound, the old
// content moves forward under a fresh timestamp, logged as an update.
func (t *Table) Rollback(timestamp uint64, user string) error {
	versions, err := t.ListVersions()
	if err != nil {
		return err
	}
	known := false
	for _, v := range versions {
		if v.Timestamp == timestamp {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("version %d: %w", timestamp, reed.ErrVersionNotFound)
	}

	deltaPath := t.deltaPath(timestamp)
	content, err := os.ReadFile(deltaPath) //nolint:gosec // G304: path is derived from the table name.
	if err != nil {
		return &reed.DeltaCorruptedError{Timestamp: timestamp, Reason: err.Error()}
	}

	sums, err := t.loadChecksums()
	if err != nil {
		return err
	}
	if want, ok := sums[strconv.FormatUint(timestamp, 10)]; ok && digest(content) != want {
		return &reed.DeltaCorruptedError{Timestamp: timestamp, Reason: "checksum mismatch"}
	}

	_, err = t.Write(content, user)
	return err
}
