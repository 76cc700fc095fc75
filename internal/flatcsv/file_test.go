package flatcsv

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reedcms/reedbase/internal/reed"
)

func TestRead(t *testing.T) {
	t.Run("SkipsCommentsAndBlanks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "text.csv")
		content := "# ReedBase text table\n\npage.title@en|Welcome|Homepage title\n\n# trailing comment\npage.title@de|Willkommen\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		records, err := Read(path)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Key != "page.title@en" || records[0].Description != "Homepage title" {
			t.Errorf("unexpected first record: %+v", records[0])
		}
		if records[1].Key != "page.title@de" || records[1].Value != "Willkommen" {
			t.Errorf("unexpected second record: %+v", records[1])
		}
	})

	t.Run("ParseErrorCarriesLocation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.csv")
		if err := os.WriteFile(path, []byte("good|row\norphan\n"), 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		_, err := Read(path)
		var pe *reed.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %v", err)
		}
		if pe.Path != path {
			t.Errorf("expected path %q in error, got %q", path, pe.Path)
		}
		if pe.Line != 2 {
			t.Errorf("expected line 2, got %d", pe.Line)
		}
		if !strings.Contains(err.Error(), ":2:") {
			t.Errorf("error text should name the line: %v", err)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Read(filepath.Join(t.TempDir(), "absent.csv"))
		var ioe *reed.IoError
		if !errors.As(err, &ioe) {
			t.Fatalf("expected IoError, got %v", err)
		}
	})
}

func TestWrite(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "text.csv")
		records := []Record{
			{Key: "page.title@de", Value: "Willkommen"},
			{Key: "page.title@en", Value: "Welcome", Description: "Homepage title"},
		}
		if err := Write(path, records); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		got, err := Read(path)
		if err != nil {
			t.Fatalf("Read back failed: %v", err)
		}
		if len(got) != len(records) {
			t.Fatalf("expected %d records, got %d", len(records), len(got))
		}
		for i := range records {
			if got[i] != records[i] {
				t.Errorf("record %d = %+v, want %+v", i, got[i], records[i])
			}
		}
	})

	t.Run("NoTempFileLeftBehind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "text.csv")
		if err := Write(path, []Record{{Key: "a", Value: "b"}}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Error("temp file should be gone after a successful write")
		}
	})

	t.Run("OverwriteKeepsFileReadable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "text.csv")
		if err := Write(path, []Record{{Key: "a", Value: "1"}}); err != nil {
			t.Fatalf("first Write failed: %v", err)
		}
		if err := Write(path, []Record{{Key: "a", Value: "2"}, {Key: "b", Value: "3"}}); err != nil {
			t.Fatalf("second Write failed: %v", err)
		}
		got, err := Read(path)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(got) != 2 || got[0].Value != "2" {
			t.Errorf("overwrite not visible: %+v", got)
		}
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "no", "such", "dir", "text.csv")
		err := Write(path, []Record{{Key: "a", Value: "b"}})
		var ioe *reed.IoError
		if !errors.As(err, &ioe) {
			t.Fatalf("expected IoError, got %v", err)
		}
	})
}
