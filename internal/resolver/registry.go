package resolver

import (
	"errors"
	"fmt"

	"github.com/roach88/stepwise/internal/stepper"
)

// Pattern kinds reported by Describe.
const (
	KindExact    = "exact"
	KindRegex    = "regex"
	KindTemplate = "template"
)

// Entry is one registered definition with its compiled pattern.
type Entry struct {
	Stepper string
	Def     stepper.Definition
	Order   int

	pattern *Pattern
}

// Key returns the "stepper.action" identifier.
func (e *Entry) Key() string {
	return e.Stepper + "." + e.Def.Name
}

// Kind returns the pattern kind.
func (e *Entry) Kind() string {
	switch {
	case e.Def.Exact != "":
		return KindExact
	case e.Def.Match != nil:
		return KindRegex
	default:
		return KindTemplate
	}
}

// Display returns a human-readable form of the pattern.
func (e *Entry) Display() string {
	switch e.Kind() {
	case KindExact:
		return e.Def.Exact
	case KindRegex:
		return e.Def.Match.String()
	default:
		return e.pattern.Stripped
	}
}

// Registry is the immutable table of step definitions and domains.
type Registry struct {
	entries     []*Entry
	byKey       map[string]*Entry
	domains     map[string]stepper.Domain
	domainOrder []string
}

// New builds a registry from steppers in registration order. Domains come
// from the built-ins, then DomainProvider steppers, then extra.
func New(steppers []stepper.Stepper, extra ...stepper.Domain) (*Registry, error) {
	r := &Registry{
		byKey:   make(map[string]*Entry),
		domains: make(map[string]stepper.Domain),
	}

	domains := BuiltinDomains()
	for _, s := range steppers {
		if dp, ok := s.(stepper.DomainProvider); ok {
			domains = append(domains, dp.Domains()...)
		}
	}
	domains = append(domains, extra...)
	for _, d := range domains {
		if _, dup := r.domains[d.Name]; dup {
			return nil, &ConfigError{Code: ErrCodeDuplicateDomain, Key: d.Name, Message: "domain registered twice"}
		}
		r.domains[d.Name] = d
		r.domainOrder = append(r.domainOrder, d.Name)
	}

	for _, s := range steppers {
		for _, def := range s.Steps() {
			if err := r.add(s.Name(), def); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (r *Registry) add(stepperName string, def stepper.Definition) error {
	e := &Entry{Stepper: stepperName, Def: def, Order: len(r.entries)}
	key := e.Key()

	if def.Name == "" {
		return &ConfigError{Code: ErrCodeInvalidDefinition, Key: key, Message: "definition has no name"}
	}
	if def.Action == nil {
		return &ConfigError{Code: ErrCodeInvalidDefinition, Key: key, Message: "definition has no action"}
	}
	kinds := 0
	for _, set := range []bool{def.Exact != "", def.Match != nil, def.Template != ""} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return &ConfigError{Code: ErrCodeInvalidDefinition, Key: key, Message: "exactly one of Exact, Match or Template must be set"}
	}
	if _, dup := r.byKey[key]; dup {
		return &ConfigError{Code: ErrCodeDuplicateDefinition, Key: key, Message: "definition registered twice"}
	}

	if def.Template != "" {
		p, err := CompileTemplate(def.Template)
		if err != nil {
			var ce *ConfigError
			if errors.As(err, &ce) {
				ce.Key = key
			}
			return err
		}
		for _, s := range p.Slots() {
			if s.Domain != "" {
				if _, ok := r.domains[s.Domain]; !ok {
					return &ConfigError{Code: ErrCodeUnknownDomain, Key: key, Message: fmt.Sprintf("placeholder {%s} uses unknown domain %q", s.Name, s.Domain)}
				}
			}
		}
		e.pattern = p
	}

	r.entries = append(r.entries, e)
	r.byKey[key] = e
	return nil
}

// Lookup returns the definition registered under stepper and action.
func (r *Registry) Lookup(stepperName, action string) (stepper.Definition, bool) {
	e, ok := r.byKey[stepperName+"."+action]
	if !ok {
		return stepper.Definition{}, false
	}
	return e.Def, true
}

// Domain returns the named domain.
func (r *Registry) Domain(name string) (stepper.Domain, bool) {
	d, ok := r.domains[name]
	return d, ok
}

// Domains returns all domains in registration order.
func (r *Registry) Domains() []stepper.Domain {
	out := make([]stepper.Domain, 0, len(r.domainOrder))
	for _, n := range r.domainOrder {
		out = append(out, r.domains[n])
	}
	return out
}

// Description summarizes one registered definition.
type Description struct {
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	Pattern     string `json:"pattern"`
	Unique      bool   `json:"unique,omitempty"`
	Description string `json:"description,omitempty"`
}

// Describe lists every definition in registration order.
func (r *Registry) Describe() []Description {
	out := make([]Description, len(r.entries))
	for i, e := range r.entries {
		out[i] = Description{
			Key:         e.Key(),
			Kind:        e.Kind(),
			Pattern:     e.Display(),
			Unique:      e.Def.Unique,
			Description: e.Def.Description,
		}
	}
	return out
}
