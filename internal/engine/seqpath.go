package engine

import "github.com/roach88/stepwise/internal/ir"

// PathLookup reports whether a sequence path is already used.
// *ir.Trace implements it.
type PathLookup interface {
	Has(p ir.SeqPath) bool
}

// DerivePath returns the first unused child path of parent.
//
// Forward (consequence) branches start at [..parent, 1] and count up;
// speculative (condition) branches start at [..parent, -1] and count down.
// Collision with an existing path moves further in the same direction, so a
// loop body run twice never reuses a path.
func DerivePath(parent ir.SeqPath, speculative bool, used PathLookup) ir.SeqPath {
	step := 1
	if speculative {
		step = -1
	}
	child := parent.Child(step)
	last := len(child) - 1
	for used.Has(child) {
		child[last] += step
	}
	return child
}
