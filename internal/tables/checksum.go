package tables

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"github.com/reedcms/reedbase/internal/flatcsv"
	"github.com/reedcms/reedbase/internal/reed"
)

// digest returns the blake2b-256 digest of content as lowercase hex.
func digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// appendChecksum records the digest of one version in checksums.csv.
func (t *Table) appendChecksum(timestamp uint64, content []byte) error {
	path := t.checksumPath()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302,G304: sidecar next to the table data.
	if err != nil {
		return &reed.IoError{Op: "open_checksums", Path: path, Err: err}
	}
	defer f.Close()

	row := flatcsv.Record{Key: strconv.FormatUint(timestamp, 10), Value: digest(content)}
	if _, err := f.WriteString(flatcsv.FormatRow(row) + "\n"); err != nil {
		return &reed.IoError{Op: "append_checksums", Path: path, Err: err}
	}
	return nil
}

// loadChecksums returns the recorded digests keyed by timestamp string.
// A missing sidecar yields an empty map; tables predating the sidecar
// simply have no entries to verify against.
func (t *Table) loadChecksums() (map[string]string, error) {
	records, err := flatcsv.Read(t.checksumPath())
	if err != nil {
		var ioErr *reed.IoError
		if errors.As(err, &ioErr) && errors.Is(ioErr.Err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	sums := make(map[string]string, len(records))
	for _, rec := range records {
		sums[rec.Key] = rec.Value
	}
	return sums, nil
}
