package stepper

import (
	"maps"
	"slices"
)

// Vars holds the run's variable bindings.
type Vars struct {
	values map[string]string
}

// NewVars creates an empty binding set.
func NewVars() *Vars {
	return &Vars{values: make(map[string]string)}
}

func (v *Vars) Get(name string) (string, bool) {
	val, ok := v.values[name]
	return val, ok
}

func (v *Vars) Set(name, value string) {
	v.values[name] = value
}

func (v *Vars) Delete(name string) {
	delete(v.values, name)
}

// Names returns bound names in sorted order.
func (v *Vars) Names() []string {
	return slices.Sorted(maps.Keys(v.values))
}

// Snapshot returns a copy of all bindings.
func (v *Vars) Snapshot() map[string]string {
	return maps.Clone(v.values)
}

func (v *Vars) Clear() {
	clear(v.values)
}
