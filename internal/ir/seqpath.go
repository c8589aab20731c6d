package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// SeqPath is the hierarchical coordinate of a step in a run's execution tree.
//
// The first coordinate enumerates top-level statements (1, 2, 3, ...).
// Each nested evaluation appends one coordinate: positive for a consequence
// (action) branch, negative for a condition (speculative) branch.
type SeqPath []int

// Child returns a copy of p extended by c. p is never modified.
func (p SeqPath) Child(c int) SeqPath {
	out := make(SeqPath, len(p)+1)
	copy(out, p)
	out[len(p)] = c
	return out
}

// Clone returns an independent copy of p.
func (p SeqPath) Clone() SeqPath {
	if p == nil {
		return nil
	}
	out := make(SeqPath, len(p))
	copy(out, p)
	return out
}

// Depth returns the nesting depth (0 for a top-level statement).
func (p SeqPath) Depth() int {
	return len(p) - 1
}

// Speculative reports whether the last coordinate marks a condition branch.
func (p SeqPath) Speculative() bool {
	return len(p) > 0 && p[len(p)-1] < 0
}

// Compare orders paths lexicographically; a proper prefix sorts first.
func (p SeqPath) Compare(q SeqPath) int {
	for i := 0; i < len(p) && i < len(q); i++ {
		if p[i] != q[i] {
			if p[i] < q[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(p) < len(q):
		return -1
	case len(p) > len(q):
		return 1
	}
	return 0
}

// Equal reports whether p and q are the same coordinate.
func (p SeqPath) Equal(q SeqPath) bool {
	return p.Compare(q) == 0
}

// HasPrefix reports whether q is an ancestor of (or equal to) p.
func (p SeqPath) HasPrefix(q SeqPath) bool {
	if len(q) > len(p) {
		return false
	}
	return p[:len(q)].Equal(q)
}

// String renders the path as dot-joined integers, e.g. "1.-1.2".
func (p SeqPath) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

// ParseSeqPath parses the String form of a path.
func ParseSeqPath(s string) (SeqPath, error) {
	if s == "" {
		return nil, fmt.Errorf("empty sequence path")
	}
	parts := strings.Split(s, ".")
	p := make(SeqPath, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("sequence path %q: coordinate %d: %w", s, i, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("sequence path %q: coordinate %d is zero", s, i)
		}
		p[i] = n
	}
	return p, nil
}
