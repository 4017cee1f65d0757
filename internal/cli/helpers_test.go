package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/padsynth/internal/config"
	"github.com/roach88/padsynth/internal/testutil"
)

// testRootOptions returns root options as PersistentPreRunE would leave
// them, with the engine forced headless.
func testRootOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Headless = true
	cfg.DBPath = ""
	return &RootOptions{Format: format, Config: cfg}
}

func scenarioPath(name string) string {
	return filepath.Join("..", "harness", "testdata", "scenarios", name+".yaml")
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// recordScenario plays a scenario into dbPath under id.
func recordScenario(t *testing.T, dbPath, name, id string) {
	t.Helper()
	opts := testRootOptions(t, "text")
	cmd := NewPlayCommand(opts)
	cmd.SetContext(t.Context())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	popts := &PlayOptions{RootOptions: opts, Database: dbPath, Headless: true, Sessions: testutil.NewFixedSessionGenerator(id)}
	require.NoError(t, runPlay(popts, scenarioPath(name), cmd))
}
