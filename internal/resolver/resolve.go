package resolver

import (
	"fmt"
	"log/slog"

	"github.com/roach88/stepwise/internal/ir"
)

// maxNesting bounds statement-domain recursion.
const maxNesting = 32

type match struct {
	entry *Entry
	args  ir.Args
}

// Resolve matches text against every definition and returns the chosen
// step. The returned step has no path and authoritative intent; callers
// place it. Errors are *ResolveError.
func (r *Registry) Resolve(text string, src ir.Source) (ir.FeatureStep, error) {
	return r.resolve(text, src, 0)
}

func (r *Registry) resolve(text string, src ir.Source, depth int) (ir.FeatureStep, error) {
	in := Normalize(text)
	if depth > maxNesting {
		return ir.FeatureStep{}, &ResolveError{Code: ErrCodeNestingTooDeep, Statement: in}
	}

	var matches []match
	var rejections []string
	for _, e := range r.entries {
		args, ok, rejection := r.matchEntry(e, in, src, depth)
		if rejection != "" {
			rejections = append(rejections, rejection)
		}
		if ok {
			matches = append(matches, match{entry: e, args: args})
		}
	}

	if len(matches) == 0 {
		return ir.FeatureStep{}, &ResolveError{
			Code:        ErrCodeNoStepFound,
			Statement:   in,
			Rejections:  rejections,
			Suggestions: r.Suggest(in),
		}
	}

	chosen := choose(in, matches)
	return ir.FeatureStep{
		Source:  src,
		In:      in,
		Stepper: chosen.entry.Stepper,
		Action:  chosen.entry.Def.Name,
		Args:    chosen.args,
		Intent:  ir.Authoritative(),
	}, nil
}

// matchEntry tests one definition. A non-empty rejection means the text
// matched but an argument could not be coerced or resolved.
func (r *Registry) matchEntry(e *Entry, in string, src ir.Source, depth int) (ir.Args, bool, string) {
	switch e.Kind() {
	case KindExact:
		return nil, Normalize(e.Def.Exact) == in, ""

	case KindRegex:
		m := e.Def.Match.FindStringSubmatch(in)
		if m == nil {
			return nil, false, ""
		}
		args := ir.Args{}
		for i, name := range e.Def.Match.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			term := Unquote(m[i])
			args[name] = ir.StepArg{Name: name, Term: term, Original: m[i], Value: ir.StringArg(term)}
		}
		return args, true, ""
	}

	caps, ok := e.pattern.Match(in)
	if !ok {
		return nil, false, ""
	}
	args, rejection, statement := r.bind(e, caps, src, depth)
	if rejection == "" {
		return args, true, ""
	}
	if !statement {
		return nil, false, rejection
	}

	// A statement slot that does not resolve may need a longer capture:
	// "where any of fails, passes, passes" splits after the second comma.
	e.pattern.Splits(in, func(alt []Capture) bool {
		if sameSplit(caps, alt) {
			return true
		}
		a, rej, _ := r.bind(e, alt, src, depth)
		if rej != "" {
			return true
		}
		args, rejection = a, ""
		return false
	})
	if rejection != "" {
		return nil, false, rejection
	}
	return args, true, ""
}

// bind coerces or resolves each capture. statement reports whether the
// rejection came from a statement-domain slot.
func (r *Registry) bind(e *Entry, caps []Capture, src ir.Source, depth int) (ir.Args, string, bool) {
	args := make(ir.Args, len(caps))
	for _, c := range caps {
		arg := ir.StepArg{Name: c.Slot.Name, Term: c.Term, Domain: c.Slot.Domain, Original: c.Original}

		if c.Slot.Domain == DomainStatement {
			child, err := r.resolve(c.Term, src, depth+1)
			if err != nil {
				return nil, fmt.Sprintf("%s: {%s}: %v", e.Key(), c.Slot.Name, err), true
			}
			child.Synthetic = true
			arg.Value = ir.StatementArg{child}
			args[c.Slot.Name] = arg
			continue
		}

		domain := DomainString
		if c.Slot.Domain != "" {
			domain = c.Slot.Domain
		}
		v, err := Coerce(r.domains[domain], c.Term)
		if err != nil {
			return nil, fmt.Sprintf("%s: {%s}: %v", e.Key(), c.Slot.Name, err), false
		}
		arg.Value = v
		args[c.Slot.Name] = arg
	}
	return args, "", false
}

func sameSplit(a, b []Capture) bool {
	for i := range a {
		if a[i].Original != b[i].Original {
			return false
		}
	}
	return true
}

// choose applies the tie-break rule to matches, which are in registration order.
func choose(in string, matches []match) match {
	if len(matches) == 1 {
		return matches[0]
	}

	var unique []match
	for _, m := range matches {
		if m.entry.Def.Unique {
			unique = append(unique, m)
		}
	}
	if len(unique) > 0 {
		matches = unique
	}

	precluded := make(map[string]bool)
	for _, m := range matches {
		for _, key := range m.entry.Def.Precludes {
			precluded[key] = true
		}
	}
	var kept []match
	for _, m := range matches {
		if !precluded[m.entry.Key()] {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		// Mutual preclusion cancels out.
		kept = matches
	}

	if len(kept) > 1 {
		keys := make([]string, len(kept))
		for i, m := range kept {
			keys[i] = m.entry.Key()
		}
		slog.Warn("ambiguous statement",
			"statement", in,
			"chosen", keys[0],
			"candidates", keys)
	}
	return kept[0]
}
