package resolver

import (
	"fmt"
	"strconv"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
)

// Built-in domain names.
const (
	DomainString    = "string"
	DomainNumber    = "number"
	DomainBoolean   = "boolean"
	DomainStatement = "statement"
)

// BuiltinDomains returns the domains every registry starts with.
// The statement domain has no coercer: the registry resolves it recursively.
func BuiltinDomains() []stepper.Domain {
	return []stepper.Domain{
		{
			Name: DomainString,
			Coerce: func(term string) (ir.ArgValue, error) {
				return ir.StringArg(term), nil
			},
			Description: "any text",
		},
		{
			Name: DomainNumber,
			Coerce: func(term string) (ir.ArgValue, error) {
				n, err := strconv.ParseInt(term, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("%q is not a number", term)
				}
				return ir.IntArg(n), nil
			},
			Description: "a whole number",
		},
		{
			Name:   DomainBoolean,
			Values: []string{"true", "false"},
			Coerce: func(term string) (ir.ArgValue, error) {
				switch term {
				case "true":
					return ir.BoolArg(true), nil
				case "false":
					return ir.BoolArg(false), nil
				}
				return nil, fmt.Errorf("%q is not true or false", term)
			},
			Description: "true or false",
		},
		{
			Name:        DomainStatement,
			Description: "a nested statement",
		},
	}
}

// Coerce converts term with domain d.
func Coerce(d stepper.Domain, term string) (ir.ArgValue, error) {
	if d.Coerce != nil {
		return d.Coerce(term)
	}
	if d.Enumerated() && !d.Has(term) {
		return nil, fmt.Errorf("%q is not a member of %s", term, d.Name)
	}
	return ir.StringArg(term), nil
}
