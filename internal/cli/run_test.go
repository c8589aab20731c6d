package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/store"
)

// TestRunPassingFeature tests the text report of a passing feature.
func TestRunPassingFeature(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "counter.feature", "set x to 1\nincrement x\nx is 2\n")

	stdout, _, err := executeCommand(t, testRootOptions(), "run", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ "+path+" (3 steps)")
	assert.Contains(t, stdout, "1 passed, 0 failed")
}

// TestRunFailingFeature tests the failure report and exit code.
func TestRunFailingFeature(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.feature", "passes\nfails\npasses\n")

	stdout, _, err := executeCommand(t, testRootOptions(), "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 1 features failed")
	assert.Contains(t, stdout, "✗ "+path+": failed at 2: fixture failed")
	assert.Contains(t, stdout, "0 passed, 1 failed")
}

// TestRunUnresolvedStatement tests that a resolution error fails the feature
// at the statement and later features still run.
func TestRunUnresolvedStatement(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.feature", "passes\nfrobnicate the widget\n")
	good := writeFile(t, dir, "good.feature", "passes\n")

	stdout, _, err := executeCommand(t, testRootOptions(), "run", bad, good)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "no step found for frobnicate the widget")
	assert.Contains(t, stdout, "✓ "+good)
	assert.Contains(t, stdout, "1 passed, 1 failed")
}

// TestRunVerboseProgress tests that --verbose streams finished steps to
// stderr while the trace is also recorded.
func TestRunVerboseProgress(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "progress.feature", "passes\nnot fails\n")
	db := filepath.Join(dir, "trace.db")

	stdout, stderr, err := executeCommand(t, testRootOptions("run-v"), "--verbose", "run", "--db", db, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 passed, 0 failed")
	assert.Contains(t, stderr, "1 ok test.passes passes\n")
	assert.Contains(t, stderr, "\n  2.-1 fail test.fails fails => fixture failed\n")
	assert.Contains(t, stderr, "2 ok logic.not not fails\n")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	entries, err := st.ReadTrace(context.Background(), "run-v")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

// TestRunJSON tests the JSON summary of several features.
func TestRunJSON(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.feature", "passes\nannounce hello\n")
	second := writeFile(t, dir, "b.feature", "fails\n")

	stdout, _, err := executeCommand(t, testRootOptions("run-a", "run-b"), "--format", "json", "run", first, second)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Features, 2)

	assert.Equal(t, "run-a", resp.Data.Features[0].RunID)
	assert.True(t, resp.Data.Features[0].OK)
	assert.Equal(t, 3, resp.Data.Features[0].Steps, "announce injects a passing step")

	assert.Equal(t, "run-b", resp.Data.Features[1].RunID)
	assert.False(t, resp.Data.Features[1].OK)
	assert.Equal(t, "1", resp.Data.Features[1].FailedAt)
	assert.Equal(t, "fixture failed", resp.Data.Features[1].Message)
}

// TestRunRecordsTrace tests that --db stores the run and its entries.
func TestRunRecordsTrace(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "trace.db")
	path := writeFile(t, dir, "f.feature", "Activity: Has cart\n    set cart to open\nensure Has cart\ncart is open\n")

	_, _, err := executeCommand(t, testRootOptions("run-1"), "run", "--db", dbPath, path)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, path, run.Feature)
	assert.True(t, run.Finished)
	assert.True(t, run.OK)

	entries, err := st.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path.String()
	}
	assert.ElementsMatch(t, []string{"1", "1.1", "2"}, paths)

	links, err := st.ReadOutcomeLinks(ctx, "run-1")
	require.NoError(t, err)
	assert.NotEmpty(t, links)
}

// TestRunBackground tests that background activities are defined for the feature.
func TestRunBackground(t *testing.T) {
	dir := t.TempDir()
	bg := writeFile(t, dir, "common.background", "Activity: Has cart\n    set cart to open\n")
	path := writeFile(t, dir, "f.feature", "ensure Has cart\ncart is open\n")

	stdout, _, err := executeCommand(t, testRootOptions(), "run", "--background", bg, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 passed, 0 failed")
}

// TestRunBackgroundFromConfig tests backgrounds listed in the config file.
func TestRunBackgroundFromConfig(t *testing.T) {
	dir := t.TempDir()
	bg := writeFile(t, dir, "common.background", "Activity: Has cart\n    set cart to open\n")
	cfg := writeFile(t, dir, "stepwise.cue", "backgrounds: ["+quote(bg)+"]\n")
	path := writeFile(t, dir, "f.feature", "ensure Has cart\n")

	_, _, err := executeCommand(t, testRootOptions(), "run", "--config", cfg, path)
	require.NoError(t, err)
}

// TestRunCommandErrors tests inputs rejected before any feature runs.
func TestRunCommandErrors(t *testing.T) {
	dir := t.TempDir()
	feature := writeFile(t, dir, "f.feature", "passes\n")
	badBg := writeFile(t, dir, "bad.background", "passes\n")
	badCfg := writeFile(t, dir, "bad.cue", "maxLoops: 3\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing feature", []string{"run", filepath.Join(dir, "missing.feature")}, "failed to parse feature"},
		{"background with statements", []string{"run", "--background", badBg, feature}, "backgrounds may only define activities"},
		{"invalid config", []string{"run", "--config", badCfg, feature}, "failed to load config"},
		{"missing config", []string{"run", "--config", filepath.Join(dir, "none.cue"), feature}, "failed to load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, testRootOptions(), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunMissingArgs(t *testing.T) {
	_, _, err := executeCommand(t, testRootOptions(), "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

// TestRunMaxLoopIterations tests the loop ceiling override.
func TestRunMaxLoopIterations(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "loop.feature", "whenever passes, passes\n")

	stdout, _, err := executeCommand(t, testRootOptions(), "run", "--max-loop-iterations", "2", path)
	require.Error(t, err)
	assert.Contains(t, stdout, "whenever exceeded 2 iterations")
}

// TestRunCanceled tests that a canceled context stops before the next feature.
func TestRunCanceled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f.feature", "passes\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := newRootCommand(testRootOptions())
	cmd.SetArgs([]string{"run", path})
	cmd.SetOut(&discard{})
	cmd.SetErr(&discard{})
	err := cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "interrupted")
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
