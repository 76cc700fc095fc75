package flatcsv

import (
	"errors"
	"os"
	"strings"

	"github.com/reedcms/reedbase/internal/reed"
)

// Read loads every record from path. Blank lines and '#' comments are
// skipped; the first malformed row aborts the read with a ParseError
// carrying the path and 1-based line number.
func Read(path string) ([]Record, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: paths come from the operator's root flag, not user input
	if err != nil {
		return nil, &reed.IoError{Op: "read", Path: path, Err: err}
	}

	var records []Record
	for i, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		rec, err := ParseRow(trimmed)
		if err != nil {
			var pe *reed.ParseError
			if errors.As(err, &pe) {
				pe.Path = path
				pe.Line = i + 1
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Write replaces path with the serialized records. The content is written
// to "{path}.tmp" and renamed onto path; on rename failure the temp file is
// removed and an IoError surfaces. Readers never see a partial file.
func Write(path string, records []Record) error {
	tmp := path + ".tmp"

	var b strings.Builder
	for _, r := range records {
		b.WriteString(FormatRow(r))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil { //nolint:gosec // G306: CSV data files are world-readable
		return &reed.IoError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &reed.IoError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
