package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/stepper"
	"github.com/roach88/stepwise/internal/testutil"
)

// testRootOptions registers the built-in steppers plus the "test" fixture
// and hands out run IDs from ids.
func testRootOptions(ids ...string) *RootOptions {
	opts := &RootOptions{
		Steppers: func() []stepper.Stepper {
			return append(DefaultSteppers(), testutil.NewFixture())
		},
	}
	if len(ids) > 0 {
		opts.RunIDs = engine.NewFixedGenerator(ids...)
	}
	return opts
}

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, opts *RootOptions, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := newRootCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeFile writes content to name under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
