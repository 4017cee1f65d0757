package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/store"
	"github.com/roach88/padsynth/internal/synth"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayMismatch is one call whose replayed outcome differs.
type ReplayMismatch struct {
	Seq    int64  `json:"seq"`
	Call   string `json:"call"`
	Reason string `json:"reason"`
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID     string           `json:"session_id"`
	Name          string           `json:"name"`
	Replayed      int              `json:"replayed"`
	Skipped       int              `json:"skipped"`
	Deterministic bool             `json:"deterministic"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

func (r ReplayResult) String() string {
	if r.TotalSessions == 0 {
		return "No sessions found in database."
	}
	var b strings.Builder
	for _, s := range r.Sessions {
		status := "OK"
		if !s.Deterministic {
			status = "DIVERGED"
		}
		fmt.Fprintf(&b, "%-8s %s %s (%d replayed, %d skipped)\n", status, s.SessionID, s.Name, s.Replayed, s.Skipped)
		for _, m := range s.Mismatches {
			fmt.Fprintf(&b, "  %4d  %s: %s\n", m.Seq, m.Call, m.Reason)
		}
	}
	if r.AllDeterministic {
		fmt.Fprintf(&b, "All %d sessions replayed deterministically.", r.TotalSessions)
	} else {
		b.WriteString("Replay diverged from the recording.")
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [session-id]",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Replay recorded engine calls against a fresh headless synth and compare
every outcome with the recording.

Without a session id every session in the database is replayed.

Exit codes:
  0 - All sessions are deterministic
  1 - A replayed outcome differs from the recording
  2 - Command error (database not found, unknown session, etc.)

Examples:
  padsynth replay --db ./padsynth.db
  padsynth replay 0190b6d2-7c1e-7a3b-9f00-3c2d1e0a9b88 --db ./padsynth.db
  padsynth replay --db ./padsynth.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(cmd, opts.RootOptions)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.Session
	if len(args) == 1 {
		sess, err := st.ReadSession(ctx, args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}
	for _, sess := range sessions {
		formatter.VerboseLog("replaying %s (%d calls)", sess.ID, sess.Calls)
		res, err := replaySession(ctx, st, sess)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		result.Sessions = append(result.Sessions, res)
		if !res.Deterministic {
			result.AllDeterministic = false
		}
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from the recording")
	}
	return nil
}

// replaySession drives a fresh headless synth with one recording.
func replaySession(ctx context.Context, st *store.Store, sess store.Session) (ReplaySessionResult, error) {
	var sopts []synth.Option
	if sess.SampleRate > 0 {
		sopts = append(sopts, synth.WithSampleRate(sess.SampleRate))
	}
	sopts = append(sopts, synth.WithLogger(slog.Default()))
	target := engine.NewHandle(synth.New(synth.Discard, sopts...),
		engine.WithParameterNames(synth.ParameterNames),
		engine.WithLogger(slog.Default()),
	)
	defer target.Destroy(context.WithoutCancel(ctx))

	res, err := st.Replay(ctx, sess.ID, target)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	out := ReplaySessionResult{
		SessionID:     sess.ID,
		Name:          sess.Name,
		Replayed:      res.Replayed,
		Skipped:       res.Skipped,
		Deterministic: res.Deterministic(),
	}
	for _, m := range res.Mismatches {
		out.Mismatches = append(out.Mismatches, ReplayMismatch{Seq: m.Seq, Call: m.Op.String(), Reason: m.Reason})
	}
	return out, nil
}
