package activities

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/feature"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/logic"
	"github.com/roach88/stepwise/internal/stepper"
	"github.com/roach88/stepwise/internal/testutil"
	"github.com/roach88/stepwise/internal/variables"
)

const loginActivity = `Activity: Is logged in as {user}
    set "loggedIn" to "true"
    set "user" to "{user}"
`

func newEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *Stepper) {
	t.Helper()
	acts := New()
	e, err := engine.New([]stepper.Stepper{testutil.NewFixture(), variables.New(), logic.New(), acts}, opts...)
	require.NoError(t, err)
	return e, acts
}

func runFeature(t *testing.T, e *engine.Engine, path string, lines ...string) (*engine.FeatureResult, *stepper.World, error) {
	t.Helper()
	f, err := feature.Parse(strings.Join(lines, "\n"), path)
	require.NoError(t, err)
	w := e.NewWorld(path)
	res, err := e.RunFeature(context.Background(), w, f)
	return res, w, err
}

// TestEnsure_Memoizes tests that proofs run once until forgotten.
func TestEnsure_Memoizes(t *testing.T) {
	e, _ := newEngine(t)

	res, w, err := runFeature(t, e, "login.feature",
		loginActivity,
		`ensure Is logged in as "Admin"`,
		`ensure Is logged in as "Admin"`,
		`forget Is logged in as "Admin"`,
		`ensure Is logged in as "Admin"`,
		`user is Admin`,
	)
	require.NoError(t, err)
	require.True(t, res.OK, res.Message)

	assert.Equal(t, 4, w.Trace.Count("variables.set"), "two proof runs of two statements")
	var paths []string
	for _, entry := range res.Trace {
		if entry.Key() == "variables.set" {
			paths = append(paths, entry.Path.String())
		}
	}
	assert.Equal(t, []string{"1.1", "1.2", "4.1", "4.2"}, paths)

	second, _ := w.Trace.At(ir.SeqPath{2})
	assert.Equal(t, ir.Bool(true), second.Result.Topics["cached"])
}

// TestEnsure_DistinctKeys tests that different terms are cached separately.
func TestEnsure_DistinctKeys(t *testing.T) {
	e, _ := newEngine(t)

	res, w, err := runFeature(t, e, "login.feature",
		loginActivity,
		`ensure Is logged in as "Admin"`,
		`ensure Is logged in as "Guest"`,
		`user is Guest`,
	)
	require.NoError(t, err)
	require.True(t, res.OK, res.Message)
	assert.Equal(t, []string{"Is logged in as Admin", "Is logged in as Guest"}, w.Outcomes.Keys())
}

// TestEnsure_ProofFailure tests that a failed proof leaves the cache unset.
func TestEnsure_ProofFailure(t *testing.T) {
	e, _ := newEngine(t)

	res, w, err := runFeature(t, e, "cart.feature",
		"Activity: Has cart",
		"    passes",
		"    fails",
		"ensure Has cart",
	)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "ensure Has cart: fixture failed", res.Message)
	assert.False(t, w.Outcomes.Satisfied("Has cart"))
}

// TestWaypointed tests the query-only check.
func TestWaypointed(t *testing.T) {
	e, _ := newEngine(t)

	res, w, err := runFeature(t, e, "login.feature",
		loginActivity,
		`not waypointed Is logged in as "Admin"`,
		`ensure Is logged in as "Admin"`,
		`waypointed Is logged in as "Admin"`,
		`waypointed Is logged in as "Guest"`,
	)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "4", res.FailedAt.String())
	assert.Equal(t, "outcome not established: Is logged in as Guest", res.Message)
	assert.Equal(t, 2, w.Trace.Count("variables.set"), "waypointed never proves")
}

// TestForget_Absent tests that forgetting an unknown or unproven outcome passes.
func TestForget_Absent(t *testing.T) {
	e, _ := newEngine(t)

	res, _, err := runFeature(t, e, "f.feature",
		loginActivity,
		`forget Is logged in as "Nobody"`,
		`forget Something never registered`,
	)
	require.NoError(t, err)
	assert.True(t, res.OK, res.Message)
}

// TestEnsure_Unknown tests ensuring an unregistered outcome.
func TestEnsure_Unknown(t *testing.T) {
	e, _ := newEngine(t)

	res, _, err := runFeature(t, e, "f.feature", "ensure Has cart")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "no outcome registered for Has cart", res.Message)
}

// TestRegister_Duplicate tests that a phrase can be registered once.
func TestRegister_Duplicate(t *testing.T) {
	acts := New()
	require.NoError(t, acts.Register(Outcome{Phrase: "Has cart", Proofs: []string{"passes"}, Source: ir.Source{Path: "a.feature", Line: 1}}))

	err := acts.Register(Outcome{Phrase: "Has cart ", Proofs: []string{"passes"}})
	var dup *DuplicateOutcomeError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a.feature:1", dup.First.String())

	assert.Error(t, acts.Register(Outcome{Phrase: "Has {broken"}))
}

// TestLoadFeature_DuplicateIsFatal tests duplicate activity blocks in a feature.
func TestLoadFeature_DuplicateIsFatal(t *testing.T) {
	e, _ := newEngine(t)

	_, _, err := runFeature(t, e, "dup.feature",
		"Activity: Has cart",
		"    passes",
		"Activity: Has cart",
		"    passes",
		"ensure Has cart",
	)
	var dup *DuplicateOutcomeError
	assert.ErrorAs(t, err, &dup)
}

// TestBackgrounds tests definition scope across features.
func TestBackgrounds(t *testing.T) {
	e, acts := newEngine(t)
	bg, err := feature.Parse(loginActivity, "bg.feature")
	require.NoError(t, err)
	require.NoError(t, e.AddBackground(bg))

	res, w, err := runFeature(t, e, "a.feature",
		"Activity: Has cart",
		"    passes",
		`ensure Is logged in as "Admin"`,
		"ensure Has cart",
	)
	require.NoError(t, err)
	require.True(t, res.OK, res.Message)
	assert.Len(t, w.Outcomes.Keys(), 2)
	require.Len(t, acts.Outcomes(), 1, "feature definitions are dropped at feature end")
	assert.True(t, acts.Outcomes()[0].Background)

	res, w, err = runFeature(t, e, "b.feature",
		`waypointed Is logged in as "Admin"`,
	)
	require.NoError(t, err)
	assert.False(t, res.OK, "satisfaction does not cross features")

	res, _, err = runFeature(t, e, "c.feature",
		`ensure Is logged in as "Admin"`,
		"ensure Has cart",
	)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "no outcome registered for Has cart", res.Message)
	assert.Empty(t, w.Outcomes.Keys())
}

// TestOutcomeEvents tests outcome graph linkage records.
func TestOutcomeEvents(t *testing.T) {
	sink := &stepper.RecordingSink{}
	e, _ := newEngine(t, engine.WithSink(sink), engine.WithRunIDGenerator(engine.NewFixedGenerator("run-1")))

	_, _, err := runFeature(t, e, "login.feature",
		loginActivity,
		`ensure Is logged in as "Admin"`,
		`ensure Is logged in as "Admin"`,
		`forget Is logged in as "Admin"`,
	)
	require.NoError(t, err)

	require.Len(t, sink.Outcomes, 3)
	reg, ensured, forgotten := sink.Outcomes[0], sink.Outcomes[1], sink.Outcomes[2]

	assert.Equal(t, stepper.OutcomeRegistered, reg.Kind)
	assert.Equal(t, "Is logged in as {user}", reg.Phrase)
	assert.Equal(t, "login.feature:1", reg.Source)
	assert.Equal(t, []string{`set "loggedIn" to "true"`, `set "user" to "{user}"`}, reg.Proofs)

	assert.Equal(t, stepper.OutcomeEnsured, ensured.Kind)
	assert.Equal(t, "Is logged in as Admin", ensured.Key)
	assert.Equal(t, "run-1", ensured.RunID)
	assert.Equal(t, "1", ensured.Path.String())

	assert.Equal(t, stepper.OutcomeForgotten, forgotten.Kind)
	assert.Equal(t, "3", forgotten.Path.String())
}

// TestRunFeature_Concurrent tests that features sharing one engine keep
// their outcome definitions apart and share backgrounds.
func TestRunFeature_Concurrent(t *testing.T) {
	e, acts := newEngine(t)
	bg, err := feature.Parse("Activity: Has cart\n    passes\n", "bg.feature")
	require.NoError(t, err)
	require.NoError(t, e.AddBackground(bg))

	f, err := feature.Parse(strings.Join([]string{
		loginActivity,
		`set "n" to "0"`,
		`whenever n is less than 3, increment n`,
		`ensure Is logged in as "Admin"`,
		`ensure Has cart`,
		`user is Admin`,
	}, "\n"), "login.feature")
	require.NoError(t, err)

	const runs = 16
	results := make([]*engine.FeatureResult, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := e.NewWorld(f.Path)
			results[i], errs[i] = e.RunFeature(context.Background(), w, f)
		}(i)
	}
	wg.Wait()

	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].OK, results[i].Message)
	}
	require.Len(t, acts.Outcomes(), 1, "background registered once")
	assert.Error(t, e.AddBackground(bg), "backgrounds are closed after the first feature")
}

// TestFeatureOutcomes tests that feature definitions live in the World.
func TestFeatureOutcomes(t *testing.T) {
	e, acts := newEngine(t)
	f, err := feature.Parse(loginActivity, "login.feature")
	require.NoError(t, err)

	w := e.NewWorld(f.Path)
	require.NoError(t, acts.LoadFeature(context.Background(), w, f))
	require.Len(t, acts.FeatureOutcomes(w), 1)
	assert.False(t, acts.FeatureOutcomes(w)[0].Background)
	assert.Empty(t, acts.Outcomes())

	other := e.NewWorld("other.feature")
	assert.Empty(t, acts.FeatureOutcomes(other))
	require.NoError(t, acts.LoadFeature(context.Background(), other, f), "same phrase in another run")

	require.NoError(t, acts.EndFeature(context.Background(), w))
	assert.Empty(t, acts.FeatureOutcomes(w))
	assert.Len(t, acts.FeatureOutcomes(other), 1)
}
