package store

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/reedcms/reedbase/internal/flatcsv"
	"github.com/reedcms/reedbase/internal/reed"
)

// AggregateText collects every *.text.csv file under srcDir into one
// sorted CSV at outPath. Files are visited in lexical path order and
// later files win on key collisions, so a component deeper in the tree
// can override a shared fragment. Unreadable fragments are logged and
// skipped rather than failing the whole aggregation. Returns the number
// of aggregated rows.
func AggregateText(srcDir, outPath string) (int, error) {
	merged := Records{}
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &reed.IoError{Op: "walk", Path: path, Err: err}
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".text.csv") {
			return nil
		}
		rows, err := flatcsv.Read(path)
		if err != nil {
			slog.Warn("skipping unreadable text fragment", "path", path, "err", err)
			return nil
		}
		for _, row := range rows {
			merged[row.Key] = Entry{Value: row.Value, Description: row.Description}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	rows := make([]flatcsv.Record, 0, len(merged))
	for key, e := range merged {
		rows = append(rows, flatcsv.Record{Key: key, Value: e.Value, Description: e.Description})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	if err := flatcsv.Write(outPath, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
