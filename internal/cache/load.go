package cache

import (
	"log/slog"
	"os"
	"strings"

	"github.com/reedcms/reedbase/internal/reed"
)

// The cache loaders are deliberately lenient: a malformed row must not
// take the whole domain down at startup, it is skipped and logged. The
// strict codec in flatcsv guards the write path instead.

func loadLanguageCSV(path string) (languageTable, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the caller.
	if err != nil {
		return nil, &reed.IoError{Op: "open", Path: path, Err: err}
	}

	table := languageTable{}
	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := splitRow(trimmed)
		if !ok {
			slog.Debug("skipping malformed cache row", "path", path, "line", i+1)
			continue
		}

		language := "default"
		if at := strings.LastIndexByte(key, '@'); at >= 0 {
			key, language = key[:at], key[at+1:]
		}
		entries, ok := table[language]
		if !ok {
			entries = map[string]string{}
			table[language] = entries
		}
		entries[key] = value
	}
	return table, nil
}

func loadFlatCSV(path string) (flatTable, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the caller.
	if err != nil {
		return nil, &reed.IoError{Op: "open", Path: path, Err: err}
	}

	table := flatTable{}
	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := splitRow(trimmed)
		if !ok {
			slog.Debug("skipping malformed cache row", "path", path, "line", i+1)
			continue
		}
		table[key] = value
	}
	return table, nil
}

// splitRow extracts the key and value of one data row. ok is false when
// the row does not carry a non-empty key and a value field.
func splitRow(row string) (key, value string, ok bool) {
	parts := strings.Split(row, "|")
	if len(parts) < 2 {
		return "", "", false
	}
	key = strings.TrimSpace(parts[0])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(parts[1]), true
}
