package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/padsynth/internal/app"
	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/playback"
	"github.com/roach88/padsynth/internal/store"
)

// shutdownTimeout bounds the stop and destroy calls made after a signal.
const shutdownTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Headless bool
	Duration time.Duration

	// Sessions overrides the session id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Sessions store.SessionGenerator
}

// RunResult summarizes a live session.
type RunResult struct {
	SessionID  string   `json:"session_id,omitempty"`
	Outcomes   []string `json:"outcomes"`
	Calls      int64    `json:"calls"`
	Generation uint64   `json:"generation"`
	Faults     []string `json:"faults,omitempty"`
}

func (r RunResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session stopped after %d engine calls (generation %d)\n", r.Calls, r.Generation)
	if r.SessionID != "" {
		fmt.Fprintf(&b, "  session: %s\n", r.SessionID)
	}
	fmt.Fprintf(&b, "  toggles: %s", strings.Join(r.Outcomes, ", "))
	for _, f := range r.Faults {
		fmt.Fprintf(&b, "\n  fault: %s", f)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play the synth until interrupted",
		Long: `Start a live session: create the engine, apply the configured sliders,
start playback and hold it until the duration elapses or the process is
interrupted. Playback is then stopped and the engine destroyed.

The terminal has no permission dialog. Requests are answered from
PADSYNTH_PERMISSION: anything but "denied" grants.

Example:
  padsynth run
  padsynth run --duration 10s --db ./padsynth.db
  padsynth run --headless --duration 100ms -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the session to this SQLite database (default $PADSYNTH_DB)")
	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "do not open an audio device")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (default $PADSYNTH_DURATION, 0 waits for a signal)")

	return cmd
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	formatter := newFormatter(cmd, opts.RootOptions)

	permission, err := cfg.InitialPermission()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	freq, err := cfg.FrequencyRange()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	duration := opts.Duration
	if duration == 0 {
		duration = cfg.Duration
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	// Stopping and destroying must still work after a signal.
	base := context.WithoutCancel(parent)
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSynth(opts.RootOptions, opts.Headless)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	var calls atomic.Int64
	observe := func(engine.Call) { calls.Add(1) }

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	var rec *store.Recorder
	if dbPath != "" {
		st, r, err := openRecording(base, dbPath, store.Session{Name: "live", Permission: permission.String()}, opts.Sessions, opts.RootOptions)
		if err != nil {
			return err
		}
		defer st.Close()
		rec = r
		observe = func(c engine.Call) {
			calls.Add(1)
			rec.Observe(c)
		}
		formatter.VerboseLog("recording session %s to %s", rec.SessionID(), dbPath)
	}

	grant := permission != playback.PermissionDenied
	var sess *app.Session
	provider := playback.ProviderFunc(func() {
		slog.Info("permission requested", "granted", grant)
		sess.PermissionResult(grant)
	})
	sess = app.New(s, provider,
		app.WithLogger(slog.Default()),
		app.WithObserver(observe),
		app.WithPermission(permission),
		app.WithFrequencyRange(freq),
		app.WithScreenSize(cfg.ScreenW, cfg.ScreenH),
		app.WithErrorHook(func(op engine.Op, err error) {
			slog.Warn("engine call failed", "op", op.String(), "error", err)
		}),
	)

	g, gctx := errgroup.WithContext(base)
	g.Go(func() error {
		return sess.Run(gctx)
	})

	result := RunResult{Outcomes: []string{}}
	g.Go(func() error {
		defer sess.Close()
		return drive(ctx, base, sess, duration, &result)
	})

	err = g.Wait()
	result.Calls = calls.Load()
	result.Generation = sess.Handle().Generation()
	if rec != nil {
		result.SessionID = rec.SessionID()
		if recErr := rec.Err(); recErr != nil {
			return WrapExitError(ExitCommandError, "recording failed", recErr)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if len(result.Faults) > 0 {
		return NewExitError(ExitFailure, "session ended with engine faults")
	}
	return nil
}

// drive runs the session lifecycle: resume, start, hold, stop, destroy.
// Signals cancel ctx and end the hold; base carries the shutdown calls.
func drive(ctx, base context.Context, sess *app.Session, hold time.Duration, result *RunResult) error {
	toggle := func(c context.Context) {
		outcome, err := sess.Toggle(c)
		result.Outcomes = append(result.Outcomes, outcome.String())
		if err != nil {
			result.Faults = append(result.Faults, err.Error())
		}
	}

	if err := sess.Resume(ctx); err != nil {
		if engine.IsFault(err) {
			result.Faults = append(result.Faults, err.Error())
			return nil
		}
		return err
	}
	toggle(ctx)
	slog.Info("playing", "playing", sess.Coordinator().Playing(), "hold", hold)

	if hold > 0 {
		timer := time.NewTimer(hold)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}
	if ctx.Err() != nil {
		slog.Info("received signal, shutting down")
	}

	sctx, cancel := context.WithTimeout(base, shutdownTimeout)
	defer cancel()
	if sess.Coordinator().Playing() {
		toggle(sctx)
	}
	if err := sess.Destroy(sctx); err != nil && !engine.IsFault(err) {
		return err
	}
	slog.Info("session stopped")
	return nil
}
