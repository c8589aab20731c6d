package ir

import (
	"fmt"
	"slices"
	"time"
)

// TraceEntry records one executed step.
type TraceEntry struct {
	Seq       int64         `json:"seq"`
	Path      SeqPath       `json:"path"`
	Source    Source        `json:"source"`
	In        string        `json:"in"`
	Stepper   string        `json:"stepper"`
	Action    string        `json:"action"`
	Intent    Intent        `json:"intent"`
	Synthetic bool          `json:"synthetic,omitempty"`
	Injected  bool          `json:"injected,omitempty"`
	Result    Result        `json:"result"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
}

// Key returns the "stepper.action" identifier of the entry.
func (e TraceEntry) Key() string {
	return e.Stepper + "." + e.Action
}

// DuplicatePathError is returned when a second entry is appended at a path
// already present in the trace.
type DuplicatePathError struct {
	Path SeqPath
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("sequence path %s already recorded", e.Path)
}

// Trace is the append-only, per-run record of executed steps.
// It is owned by a single run and is not safe for concurrent use.
type Trace struct {
	entries []TraceEntry
	paths   map[string]int
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{paths: make(map[string]int)}
}

// Append records an entry. Paths are unique within a trace.
func (t *Trace) Append(e TraceEntry) error {
	key := e.Path.String()
	if _, ok := t.paths[key]; ok {
		return &DuplicatePathError{Path: e.Path}
	}
	t.paths[key] = len(t.entries)
	t.entries = append(t.entries, e)
	return nil
}

// Has reports whether an entry exists at path p.
func (t *Trace) Has(p SeqPath) bool {
	_, ok := t.paths[p.String()]
	return ok
}

// At returns the entry recorded at path p.
func (t *Trace) At(p SeqPath) (TraceEntry, bool) {
	i, ok := t.paths[p.String()]
	if !ok {
		return TraceEntry{}, false
	}
	return t.entries[i], true
}

// Len returns the number of recorded entries.
func (t *Trace) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries in recording order.
func (t *Trace) Entries() []TraceEntry {
	return slices.Clone(t.entries)
}

// Ordered returns a copy of the entries in sequence path order.
func (t *Trace) Ordered() []TraceEntry {
	out := slices.Clone(t.entries)
	slices.SortStableFunc(out, func(a, b TraceEntry) int {
		return a.Path.Compare(b.Path)
	})
	return out
}

// Count returns how many entries executed the "stepper.action" key.
func (t *Trace) Count(key string) int {
	n := 0
	for _, e := range t.entries {
		if e.Key() == key {
			n++
		}
	}
	return n
}
