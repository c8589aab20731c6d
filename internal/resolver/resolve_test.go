package resolver

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
)

type fakeStepper struct {
	name    string
	defs    []stepper.Definition
	domains []stepper.Domain
}

func (f *fakeStepper) Name() string { return f.name }
func (f *fakeStepper) Steps() []stepper.Definition { return f.defs }
func (f *fakeStepper) Domains() []stepper.Domain { return f.domains }

func okAction(context.Context, *stepper.World, *ir.FeatureStep) (ir.Result, error) {
	return ir.OK(nil), nil
}

func def(name, tmpl string) stepper.Definition {
	return stepper.Definition{Name: name, Template: tmpl, Action: okAction}
}

func newTestRegistry(t *testing.T, steppers ...stepper.Stepper) *Registry {
	t.Helper()
	r, err := New(steppers)
	require.NoError(t, err)
	return r
}

// TestResolve_Kinds tests exact, regex and template matching.
func TestResolve_Kinds(t *testing.T) {
	s := &fakeStepper{name: "test", defs: []stepper.Definition{
		{Name: "passes", Exact: "passes", Action: okAction},
		{Name: "goto", Match: regexp.MustCompile(`^go to (?P<where>\S+)$`), Action: okAction},
		def("wait", "wait( for)? {ms:number} ms"),
	}}
	r := newTestRegistry(t, s)

	step, err := r.Resolve("passes ;; comment", ir.Source{Path: "a.feature", Line: 3})
	require.NoError(t, err)
	assert.Equal(t, "test.passes", step.Key())
	assert.Equal(t, "passes", step.In)
	assert.Equal(t, ir.Source{Path: "a.feature", Line: 3}, step.Source)
	assert.Equal(t, ir.ModeAuthoritative, step.Intent.Mode)

	step, err = r.Resolve(`go to "home"`, ir.Source{})
	require.NoError(t, err)
	assert.Equal(t, "goto", step.Action)
	assert.Equal(t, "home", step.Args.Term("where"))

	step, err = r.Resolve("wait for 250 ms", ir.Source{})
	require.NoError(t, err)
	ms, ok := step.Args.Int("ms")
	require.True(t, ok)
	assert.Equal(t, int64(250), ms)
	assert.Equal(t, "number", step.Args["ms"].Domain)
	assert.Equal(t, "250", step.Args["ms"].Original)
}

// TestResolve_NoStepFound tests the unmatched error and suggestions.
func TestResolve_NoStepFound(t *testing.T) {
	s := &fakeStepper{name: "test", defs: []stepper.Definition{
		def("set", "set {what} to {value}"),
		{Name: "passes", Exact: "passes", Action: okAction},
	}}
	r := newTestRegistry(t, s)

	_, err := r.Resolve("sett x", ir.Source{})
	require.Error(t, err)
	assert.True(t, IsNoStepFound(err))
	assert.Contains(t, err.Error(), "no step found for sett x")

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeNoStepFound, re.Code)
	assert.Contains(t, re.Suggestions, "set {what} to {value}")
}

// TestResolve_CoercionRejects tests that failed coercion rejects the candidate.
func TestResolve_CoercionRejects(t *testing.T) {
	s := &fakeStepper{
		name:    "test",
		domains: []stepper.Domain{{Name: "color", Values: []string{"red", "green"}}},
		defs: []stepper.Definition{
			def("wait", "wait {ms:number} ms"),
			def("paint", "paint it {c:color}"),
		},
	}
	r := newTestRegistry(t, s)

	_, err := r.Resolve("wait soon ms", ir.Source{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")

	step, err := r.Resolve(`paint it "red"`, ir.Source{})
	require.NoError(t, err)
	assert.Equal(t, ir.StringArg("red"), step.Args["c"].Value)

	_, err = r.Resolve("paint it blue", ir.Source{})
	assert.Error(t, err)
}

// TestResolve_StatementDomain tests recursive resolution of nested statements.
func TestResolve_StatementDomain(t *testing.T) {
	s := &fakeStepper{name: "logic", defs: []stepper.Definition{
		{Name: "passes", Exact: "passes", Action: okAction},
		{Name: "not", Template: "not {statement:statement}", Unique: true, Action: okAction},
	}}
	r := newTestRegistry(t, s)

	step, err := r.Resolve("not not passes", ir.Source{Path: "f", Line: 7})
	require.NoError(t, err)
	assert.Equal(t, "not", step.Action)

	inner, ok := step.Args.Statement("statement")
	require.True(t, ok)
	require.Len(t, inner, 1)
	assert.Equal(t, "not", inner[0].Action)
	assert.True(t, inner[0].Synthetic)
	assert.Equal(t, 7, inner[0].Source.Line)

	innermost, ok := inner[0].Args.Statement("statement")
	require.True(t, ok)
	assert.Equal(t, "passes", innermost[0].Action)

	_, err = r.Resolve("not bogus", ir.Source{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no step found for bogus")
}

// TestResolve_StatementSplits tests that a statement slot takes a longer
// capture when the shortest one does not resolve.
func TestResolve_StatementSplits(t *testing.T) {
	s := &fakeStepper{name: "logic", defs: []stepper.Definition{
		{Name: "passes", Exact: "passes", Action: okAction},
		{Name: "fails", Exact: "fails", Action: okAction},
		{Name: "where", Template: "where {condition:statement}, {action:statement}", Unique: true, Action: okAction},
		{Name: "anyOf", Template: "any of {statements}", Unique: true, Action: okAction},
	}}
	r := newTestRegistry(t, s)

	step, err := r.Resolve("where any of fails, passes, passes", ir.Source{})
	require.NoError(t, err)
	assert.Equal(t, "where", step.Action)
	assert.Equal(t, "any of fails, passes", step.Args.Term("condition"))
	assert.Equal(t, "passes", step.Args.Term("action"))

	cond, ok := step.Args.Statement("condition")
	require.True(t, ok)
	assert.Equal(t, "anyOf", cond[0].Action)
	assert.Equal(t, "fails, passes", cond[0].Args.Term("statements"))

	step, err = r.Resolve("where passes, any of fails, passes", ir.Source{})
	require.NoError(t, err)
	assert.Equal(t, "passes", step.Args.Term("condition"))
	assert.Equal(t, "any of fails, passes", step.Args.Term("action"))

	_, err = r.Resolve("where passes, bogus, passes", ir.Source{})
	require.Error(t, err)
	assert.True(t, IsNoStepFound(err))
}

// TestResolve_TieBreak tests uniqueness, preclusion and registration order.
func TestResolve_TieBreak(t *testing.T) {
	t.Run("unique wins", func(t *testing.T) {
		a := &fakeStepper{name: "vars", defs: []stepper.Definition{def("is", "{what} is {value}")}}
		b := &fakeStepper{name: "logic", defs: []stepper.Definition{
			{Name: "every", Template: "every {v} in {src} is {stmt}", Unique: true, Action: okAction},
		}}
		r := newTestRegistry(t, a, b)

		step, err := r.Resolve("every c in colors is x is 1", ir.Source{})
		require.NoError(t, err)
		assert.Equal(t, "logic.every", step.Key())
	})

	t.Run("preclusion removes", func(t *testing.T) {
		s := &fakeStepper{name: "vars", defs: []stepper.Definition{
			def("is", "{what} is {value}"),
			{Name: "isLessThan", Template: "{what} is less than {value:number}", Precludes: []string{"vars.is"}, Action: okAction},
		}}
		r := newTestRegistry(t, s)

		step, err := r.Resolve("n is less than 3", ir.Source{})
		require.NoError(t, err)
		assert.Equal(t, "isLessThan", step.Action)

		step, err = r.Resolve("n is 3", ir.Source{})
		require.NoError(t, err)
		assert.Equal(t, "is", step.Action)
	})

	t.Run("first registered wins", func(t *testing.T) {
		a := &fakeStepper{name: "first", defs: []stepper.Definition{def("say", "say {x}")}}
		b := &fakeStepper{name: "second", defs: []stepper.Definition{def("say", "say {y}")}}

		for i := 0; i < 5; i++ {
			r := newTestRegistry(t, a, b)
			step, err := r.Resolve("say hello", ir.Source{})
			require.NoError(t, err)
			assert.Equal(t, "first.say", step.Key())
		}
	})
}

// TestNew_ConfigErrors tests registration-time validation.
func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		defs []stepper.Definition
		code ErrorCode
	}{
		{"no action", []stepper.Definition{{Name: "a", Exact: "a"}}, ErrCodeInvalidDefinition},
		{"no name", []stepper.Definition{{Exact: "a", Action: okAction}}, ErrCodeInvalidDefinition},
		{"two kinds", []stepper.Definition{{Name: "a", Exact: "a", Template: "a", Action: okAction}}, ErrCodeInvalidDefinition},
		{"duplicate", []stepper.Definition{def("a", "a"), def("a", "b")}, ErrCodeDuplicateDefinition},
		{"unknown domain", []stepper.Definition{def("a", "wait {n:seconds}")}, ErrCodeUnknownDomain},
		{"malformed", []stepper.Definition{def("a", "wait {n")}, ErrCodeMalformedTemplate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]stepper.Stepper{&fakeStepper{name: "s", defs: tt.defs}})
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
			assert.True(t, IsConfigError(err))
		})
	}

	_, err := New(nil, stepper.Domain{Name: "number"})
	assert.True(t, IsConfigError(err))
}

// TestRegistry_Describe tests the listing used by the steps command.
func TestRegistry_Describe(t *testing.T) {
	s := &fakeStepper{name: "test", defs: []stepper.Definition{
		{Name: "passes", Exact: "passes", Action: okAction, Description: "always passes"},
		def("wait", "wait( for)? {ms:number} ms"),
	}}
	r := newTestRegistry(t, s)

	d := r.Describe()
	require.Len(t, d, 2)
	assert.Equal(t, Description{Key: "test.passes", Kind: KindExact, Pattern: "passes", Description: "always passes"}, d[0])
	assert.Equal(t, "wait {ms:number} ms", d[1].Pattern)

	_, ok := r.Lookup("test", "wait")
	assert.True(t, ok)
	_, ok = r.Domain("boolean")
	assert.True(t, ok)
}
