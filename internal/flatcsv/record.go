package flatcsv

import (
	"fmt"
	"strings"

	"github.com/reedcms/reedbase/internal/reed"
)

// Record is one pipe-delimited row. Description is optional; the empty
// string means absent.
type Record struct {
	Key         string
	Value       string
	Description string
}

// ParseRow parses a single pipe-delimited row. All fields are trimmed; an
// empty description column reads the same as a missing one. Columns past
// the third are ignored.
func ParseRow(line string) (Record, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return Record{}, &reed.ParseError{
			Input:  line,
			Reason: fmt.Sprintf("expected at least 2 fields, found %d", len(parts)),
		}
	}

	key := strings.TrimSpace(parts[0])
	if key == "" {
		return Record{}, &reed.ParseError{Input: line, Reason: "key cannot be empty"}
	}

	r := Record{Key: key, Value: strings.TrimSpace(parts[1])}
	if len(parts) >= 3 {
		r.Description = strings.TrimSpace(parts[2])
	}
	return r, nil
}

// FormatRow renders a record back to its pipe-delimited form.
func FormatRow(r Record) string {
	if r.Description != "" {
		return r.Key + "|" + r.Value + "|" + r.Description
	}
	return r.Key + "|" + r.Value
}
