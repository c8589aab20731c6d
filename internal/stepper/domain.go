package stepper

import (
	"context"
	"slices"

	"github.com/roach88/stepwise/internal/ir"
)

// Domain is a named, typed set of values usable for argument coercion and
// for quantification.
type Domain struct {
	Name string

	// Values enumerates members. Empty for open domains such as number.
	Values []string

	// Coerce converts a raw term. When nil and Values is set, membership is
	// checked and the term is kept as a string.
	Coerce func(term string) (ir.ArgValue, error)

	Description string
}

// Enumerated reports whether the domain lists its members. A non-nil empty
// list is an enumerated domain with no members.
func (d Domain) Enumerated() bool {
	return d.Values != nil
}

// Has reports whether term is a member of an enumerated domain.
func (d Domain) Has(term string) bool {
	return slices.Contains(d.Values, term)
}

// DomainProvider is implemented by steppers contributing domains.
type DomainProvider interface {
	Domains() []Domain
}

// Observation is one value yielded by a domain or observation source.
type Observation struct {
	Value   string
	Metrics map[string]string
}

// ObservationSource is a live, queryable value feed offered to quantifiers.
type ObservationSource interface {
	Observe(ctx context.Context, w *World) ([]Observation, error)
}

// ObservationFunc adapts a function to ObservationSource.
type ObservationFunc func(ctx context.Context, w *World) ([]Observation, error)

// Observe implements ObservationSource.
func (f ObservationFunc) Observe(ctx context.Context, w *World) ([]Observation, error) {
	return f(ctx, w)
}

// ObservationProvider is implemented by steppers offering observation sources.
type ObservationProvider interface {
	Observations() map[string]ObservationSource
}

// Sources looks up quantifier sources by name: enumerated domains first,
// then observation sources. ok is false when name is unknown.
type Sources interface {
	Observe(ctx context.Context, w *World, name string) (values []Observation, ok bool, err error)
}
