package stepper

import "sync/atomic"

// Clock is the monotonic logical clock that stamps trace entries.
//
// Seq numbers give the actual completion order of steps; sequence paths give
// the structural order. Both are deterministic for a given feature.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
