package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/stepwise/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates a passing authoritative entry.
func createTestEntry(path ir.SeqPath, seq int64, in string) ir.TraceEntry {
	return ir.TraceEntry{
		Seq:      seq,
		Path:     path,
		Source:   ir.Source{Path: "test.feature", Line: int(seq)},
		In:       in,
		Stepper:  "test",
		Action:   "passes",
		Intent:   ir.Authoritative(),
		Result:   ir.OK(nil),
		Duration: time.Millisecond,
	}
}
