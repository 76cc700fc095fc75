package tables

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/reedcms/reedbase/internal/reed"
)

func TestListVersions(t *testing.T) {
	t.Run("MissingLogMeansNoHistory", func(t *testing.T) {
		tbl := newTestTable(t, "text")
		if err := tbl.Init([]byte("a|1\n"), "admin"); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		if err := os.Remove(tbl.logPath()); err != nil {
			t.Fatalf("failed to remove log: %v", err)
		}

		versions, err := tbl.ListVersions()
		if err != nil {
			t.Fatalf("ListVersions failed: %v", err)
		}
		if len(versions) != 0 {
			t.Errorf("expected no versions, got %d", len(versions))
		}
	})

	t.Run("UnknownCodesGetFallbackLabels", func(t *testing.T) {
		tbl := newTestTable(t, "text")
		if err := tbl.Init([]byte("a|1\n"), "admin"); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		log := "100|5|1|10\n200|99|1|10\n300|2|9999|10\n"
		if err := os.WriteFile(tbl.logPath(), []byte(log), 0o644); err != nil {
			t.Fatalf("failed to write log: %v", err)
		}

		versions, err := tbl.ListVersions()
		if err != nil {
			t.Fatalf("ListVersions failed: %v", err)
		}
		if len(versions) != 3 {
			t.Fatalf("expected 3 versions, got %d", len(versions))
		}
		if versions[0].User != "unknown(9999)" {
			t.Errorf("unknown user label = %q", versions[0].User)
		}
		if versions[0].Action != "update" {
			t.Errorf("action = %q, want update", versions[0].Action)
		}
		if versions[1].Action != "unknown(99)" {
			t.Errorf("unknown action label = %q", versions[1].Action)
		}
		if versions[1].User != "admin" {
			t.Errorf("user = %q, want admin", versions[1].User)
		}
		if versions[2].Action != "init" {
			t.Errorf("action = %q, want init", versions[2].Action)
		}
	})

	t.Run("CorruptLog", func(t *testing.T) {
		tests := []struct {
			name     string
			log      string
			wantLine int
			reason   string
		}{
			{"TruncatedLine", "123|2\n", 1, "invalid format"},
			{"BadTimestamp", "abc|2|1|10\n", 1, "invalid timestamp"},
			{"ActionCodeOverflow", "123|256|1|10\n", 1, "invalid action code"},
			{"BadUserCode", "123|2|x|10\n", 1, "invalid user code"},
			{"NegativeDeltaSize", "123|2|1|-1\n", 1, "invalid delta size"},
			{"BlankLinesStillCounted", "\n123|2|1|10\nbroken\n", 3, "invalid format"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tbl := newTestTable(t, "text")
				if err := tbl.Init([]byte("a|1\n"), "admin"); err != nil {
					t.Fatalf("Init failed: %v", err)
				}
				if err := os.WriteFile(tbl.logPath(), []byte(tt.log), 0o644); err != nil {
					t.Fatalf("failed to write log: %v", err)
				}

				_, err := tbl.ListVersions()
				var lce *reed.LogCorruptedError
				if !errors.As(err, &lce) {
					t.Fatalf("expected LogCorruptedError, got %v", err)
				}
				if lce.Line != tt.wantLine {
					t.Errorf("Line = %d, want %d", lce.Line, tt.wantLine)
				}
				if lce.Reason != tt.reason {
					t.Errorf("Reason = %q, want %q", lce.Reason, tt.reason)
				}
			})
		}
	})
}

func TestRollback(t *testing.T) {
	v1 := []byte("greeting|Hello\n")
	v2 := []byte("greeting|Hello there\n")

	setup := func(t *testing.T) (*Table, uint64, WriteResult) {
		t.Helper()
		tbl := newTestTable(t, "text")
		if err := tbl.Init(v1, "admin"); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		versions, err := tbl.ListVersions()
		if err != nil {
			t.Fatalf("ListVersions failed: %v", err)
		}
		initTS := versions[0].Timestamp
		res, err := tbl.Write(v2, "admin")
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		return tbl, initTS, res
	}

	t.Run("RestoresOldContentAsNewVersion", func(t *testing.T) {
		tbl, initTS, _ := setup(t)

		if err := tbl.Rollback(initTS, "admin"); err != nil {
			t.Fatalf("Rollback failed: %v", err)
		}
		got, err := tbl.ReadCurrent()
		if err != nil {
			t.Fatalf("ReadCurrent failed: %v", err)
		}
		if !bytes.Equal(got, v1) {
			t.Errorf("ReadCurrent = %q, want %q", got, v1)
		}

		// History grew forward; nothing was rewound.
		versions, err := tbl.ListVersions()
		if err != nil {
			t.Fatalf("ListVersions failed: %v", err)
		}
		if len(versions) != 3 {
			t.Fatalf("expected 3 versions, got %d", len(versions))
		}
		if versions[0].Action != "update" {
			t.Errorf("rollback logged as %q, want update", versions[0].Action)
		}
		if versions[0].Timestamp == initTS {
			t.Error("rollback must commit under a fresh timestamp")
		}
	})

	t.Run("UnknownTimestamp", func(t *testing.T) {
		tbl, _, _ := setup(t)
		err := tbl.Rollback(42, "admin")
		if !errors.Is(err, reed.ErrVersionNotFound) {
			t.Errorf("expected ErrVersionNotFound, got %v", err)
		}
	})

	t.Run("MissingDelta", func(t *testing.T) {
		tbl, _, res := setup(t)
		if err := os.Remove(tbl.deltaPath(res.Timestamp)); err != nil {
			t.Fatalf("failed to remove delta: %v", err)
		}

		err := tbl.Rollback(res.Timestamp, "admin")
		var dce *reed.DeltaCorruptedError
		if !errors.As(err, &dce) {
			t.Fatalf("expected DeltaCorruptedError, got %v", err)
		}
		if dce.Timestamp != res.Timestamp {
			t.Errorf("Timestamp = %d, want %d", dce.Timestamp, res.Timestamp)
		}
	})

	t.Run("TamperedDelta", func(t *testing.T) {
		tbl, _, res := setup(t)
		if err := os.WriteFile(tbl.deltaPath(res.Timestamp), []byte("tampered"), 0o644); err != nil {
			t.Fatalf("failed to tamper with delta: %v", err)
		}

		err := tbl.Rollback(res.Timestamp, "admin")
		var dce *reed.DeltaCorruptedError
		if !errors.As(err, &dce) {
			t.Fatalf("expected DeltaCorruptedError, got %v", err)
		}
		if dce.Reason != "checksum mismatch" {
			t.Errorf("Reason = %q, want checksum mismatch", dce.Reason)
		}
	})
}
