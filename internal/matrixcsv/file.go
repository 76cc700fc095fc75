package matrixcsv

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/reedcms/reedbase/internal/reed"
)

// Read loads a Matrix CSV file from disk.
func Read(path string) ([]*Record, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: paths come from the operator's root flag, not user input
	if err != nil {
		return nil, &reed.IoError{Op: "read", Path: path, Err: err}
	}
	return Parse(content, path)
}

// Parse decodes Matrix CSV content. The first non-blank, non-comment line
// is the header declaring the field order; when its last name is "desc" or
// "description" that column carries untyped free text. Data rows must
// supply at least the declared number of typed fields. path only labels
// parse errors.
func Parse(content []byte, path string) ([]*Record, error) {
	lines := strings.Split(string(content), "\n")

	fieldNames, headerLine := headerFields(lines)
	if fieldNames == nil {
		return nil, &reed.ParseError{Path: path, Reason: "no header found in matrix CSV file"}
	}

	hasDescription := false
	if last := fieldNames[len(fieldNames)-1]; last == "desc" || last == "description" {
		hasDescription = true
	}
	dataFieldCount := len(fieldNames)
	if hasDescription {
		dataFieldCount--
	}

	var records []*Record
	for i := headerLine + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		parts := strings.Split(trimmed, "|")
		if len(parts) < dataFieldCount {
			return nil, &reed.ParseError{
				Path:   path,
				Line:   i + 1,
				Input:  trimmed,
				Reason: fmt.Sprintf("expected at least %d fields, found %d", dataFieldCount, len(parts)),
			}
		}

		record := NewRecord()
		for j := 0; j < dataFieldCount; j++ {
			record.AddField(fieldNames[j], ParseValue(parts[j]))
		}

		// The description cell is consumed only when the row actually
		// covers that column; trailing surplus cells are ignored.
		if hasDescription && len(parts) >= len(fieldNames) {
			record.Description = strings.TrimSpace(parts[len(fieldNames)-1])
		}

		records = append(records, record)
	}
	return records, nil
}

// headerFields finds the header line and returns its trimmed field names
// together with the line index, or nil when the file holds no header.
func headerFields(lines []string) ([]string, int) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		parts := strings.Split(trimmed, "|")
		names := make([]string, len(parts))
		for j, p := range parts {
			names[j] = strings.TrimSpace(p)
		}
		return names, i
	}
	return nil, -1
}

// Write replaces path with the serialized records. When fields is empty the
// field list is inferred from the first record's FieldOrder. A "desc"
// column is appended when any record carries a description. The write is
// atomic: temp file then rename, with the temp removed on rename failure.
func Write(path string, records []*Record, fields []string) error {
	if len(fields) == 0 && len(records) > 0 {
		fields = records[0].FieldOrder
		if len(fields) == 0 {
			return &reed.IoError{
				Op:   "write",
				Path: path,
				Err:  errors.New("no field names provided and no records to infer from"),
			}
		}
	}

	hasDescription := false
	for _, r := range records {
		if r.Description != "" {
			hasDescription = true
			break
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(fields, "|"))
	if hasDescription {
		b.WriteString("|desc")
	}
	b.WriteByte('\n')

	for _, r := range records {
		parts := make([]string, 0, len(fields)+1)
		for _, name := range fields {
			if v, ok := r.Fields[name]; ok {
				parts = append(parts, v.String())
			} else {
				parts = append(parts, "")
			}
		}
		if hasDescription {
			parts = append(parts, r.Description)
		}
		b.WriteString(strings.Join(parts, "|"))
		b.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil { //nolint:gosec // G306: CSV data files are world-readable
		return &reed.IoError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &reed.IoError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
