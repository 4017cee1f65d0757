package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/padsynth/internal/harness"
	"github.com/roach88/padsynth/internal/store"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Database string
	Headless bool

	// Sessions overrides the session id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Sessions store.SessionGenerator
}

// PlayResult is the outcome of one scenario run.
type PlayResult struct {
	Scenario  string               `json:"scenario"`
	Pass      bool                 `json:"pass"`
	SessionID string               `json:"session_id,omitempty"`
	Calls     int                  `json:"calls"`
	Outcomes  []string             `json:"outcomes"`
	Final     harness.FinalState   `json:"final"`
	Errors    []string             `json:"errors,omitempty"`
	Trace     []harness.TraceEvent `json:"trace,omitempty"`
}

func (r PlayResult) String() string {
	var b strings.Builder
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "%s %s (%d engine calls)\n", status, r.Scenario, r.Calls)
	if r.SessionID != "" {
		fmt.Fprintf(&b, "  session: %s\n", r.SessionID)
	}
	if len(r.Outcomes) > 0 {
		fmt.Fprintf(&b, "  toggles: %s\n", strings.Join(r.Outcomes, ", "))
	}
	fmt.Fprintf(&b, "  final: %s\n", r.Final)
	if len(r.Trace) > 0 {
		b.WriteString(harness.FormatTrace(r.Trace))
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(strings.TrimSpace(e), "\n", "\n  "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <scenario.yaml>",
		Short: "Run a gesture scenario against the reference synth",
		Long: `Run a gesture scenario against the built-in wavetable synth.

Each step is delivered to a live session and the scenario's assertions are
checked against the engine calls it produced. With --db the calls are
recorded so they can be traced and replayed later.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (invalid scenario, database error, etc.)

Examples:
  padsynth play testdata/scenarios/three_finger_cancel.yaml --headless
  padsynth play cancel.yaml --db ./padsynth.db
  padsynth play cancel.yaml --headless --format json -v`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database (default $PADSYNTH_DB)")
	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "do not open an audio device")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(cmd, opts.RootOptions)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	s, err := newSynth(opts.RootOptions, opts.Headless)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	hopts := []harness.Option{
		harness.WithNative(s),
		harness.WithLogger(slog.Default()),
		harness.WithTeardown(),
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.DBPath
	}
	var rec *store.Recorder
	if dbPath != "" {
		permission := scenario.Permission
		if permission == "" {
			permission = "unknown"
		}
		st, r, err := openRecording(ctx, dbPath, store.Session{Name: scenario.Name, Permission: permission}, opts.Sessions, opts.RootOptions)
		if err != nil {
			return err
		}
		defer st.Close()
		rec = r
		hopts = append(hopts, harness.WithObserver(rec.Observe))
		formatter.VerboseLog("recording session %s to %s", rec.SessionID(), dbPath)
	}

	result, err := harness.Run(ctx, scenario, hopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario could not run", err)
	}

	out := PlayResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Calls:    len(result.Trace),
		Outcomes: result.Outcomes,
		Final:    result.Final,
		Errors:   result.Errors,
	}
	if opts.Verbose {
		out.Trace = result.Trace
	}
	if rec != nil {
		out.SessionID = rec.SessionID()
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitCommandError, "recording failed", err)
		}
	}

	if err := formatter.Success(out); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}
