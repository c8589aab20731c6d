package stepper

import (
	"slices"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/stepwise/internal/ir"
)

// Proof records how an outcome was established.
type Proof struct {
	Path ir.SeqPath
	Seq  int64
}

// OutcomeCache is the per-run satisfaction cache keyed by interpolated
// outcome text. Entries never expire; they are removed by Forget or Clear.
type OutcomeCache struct {
	c *gocache.Cache
}

// NewOutcomeCache creates an empty cache without a janitor goroutine.
func NewOutcomeCache() *OutcomeCache {
	return &OutcomeCache{c: gocache.New(gocache.NoExpiration, 0)}
}

// Satisfied reports whether key has been proven.
func (o *OutcomeCache) Satisfied(key string) bool {
	_, ok := o.c.Get(key)
	return ok
}

// Proof returns the proof record of key.
func (o *OutcomeCache) Proof(key string) (Proof, bool) {
	v, ok := o.c.Get(key)
	if !ok {
		return Proof{}, false
	}
	p, ok := v.(Proof)
	return p, ok
}

// Satisfy marks key as proven.
func (o *OutcomeCache) Satisfy(key string, p Proof) {
	o.c.Set(key, p, gocache.NoExpiration)
}

// Forget removes key. Removing an absent key is not an error.
func (o *OutcomeCache) Forget(key string) {
	o.c.Delete(key)
}

// Clear removes every key.
func (o *OutcomeCache) Clear() {
	o.c.Flush()
}

// Keys returns the proven keys in sorted order.
func (o *OutcomeCache) Keys() []string {
	items := o.c.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
