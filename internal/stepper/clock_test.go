package stepper

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestClock_Next tests that seq numbers start at 1 and increase by one.
func TestClock_Next(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

// TestClock_Concurrent tests that concurrent callers never share a seq.
func TestClock_Concurrent(t *testing.T) {
	c := NewClock()
	const workers, calls = 8, 250

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[int64]struct{}, workers*calls)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls), c.Current())
}

// TestNewWorld_ClockStartsAtZero tests that each world gets its own clock.
func TestNewWorld_ClockStartsAtZero(t *testing.T) {
	a := NewWorld("run-a", "a.feature", Options{})
	a.Clock.Next()
	b := NewWorld("run-b", "b.feature", Options{})
	assert.Equal(t, int64(0), b.Clock.Current())
}
