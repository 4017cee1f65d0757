package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/padsynth/internal/harness"
	"github.com/roach88/padsynth/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Op       string // optional - filter to one op kind
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	EngineVersion string `json:"engine_version"`
	SampleRate    int    `json:"sample_rate"`
	Permission    string `json:"permission"`
	Calls         int    `json:"calls"`
}

// SessionList is the trace output when no session is named.
type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
}

func (l SessionList) String() string {
	if len(l.Sessions) == 0 {
		return "No sessions found in database."
	}
	var b strings.Builder
	for _, s := range l.Sessions {
		fmt.Fprintf(&b, "%s  %-24s %5d calls  %s\n", s.ID, s.Name, s.Calls, s.Permission)
	}
	return strings.TrimRight(b.String(), "\n")
}

// TraceResult holds the complete trace of one session.
type TraceResult struct {
	Session SessionSummary       `json:"session"`
	Calls   []harness.TraceEvent `json:"calls"`
	Stats   TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalCalls  int            `json:"total_calls"`
	Faults      int            `json:"faults"`
	Generations uint64         `json:"generations"`
	ByOp        map[string]int `json:"by_op"`
}

func (r TraceResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trace for Session: %s (%s)\n", r.Session.ID, r.Session.Name)
	fmt.Fprintf(&b, "Engine: %s @ %d Hz, permission %s\n\n", r.Session.EngineVersion, r.Session.SampleRate, r.Session.Permission)

	b.WriteString("=== Calls ===\n")
	if len(r.Calls) == 0 {
		b.WriteString("  (no calls)\n")
	} else {
		b.WriteString(harness.FormatTrace(r.Calls))
	}
	b.WriteByte('\n')

	b.WriteString("=== Stats ===\n")
	fmt.Fprintf(&b, "  Total Calls: %d\n", r.Stats.TotalCalls)
	fmt.Fprintf(&b, "  Faults:      %d\n", r.Stats.Faults)
	fmt.Fprintf(&b, "  Generations: %d\n", r.Stats.Generations)
	writeCounts(&b, r.Stats.ByOp)
	return strings.TrimRight(b.String(), "\n")
}

// writeCounts prints op counts in name order.
func writeCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-14s %d\n", k+":", counts[k])
	}
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [session-id]",
		Short: "Show recorded sessions and their engine calls",
		Long: `Show what a recorded session sent to the engine.

Without a session id, list the sessions in the database. With one, print
every engine call in order followed by per-op counts.

Examples:
  padsynth trace --db ./padsynth.db
  padsynth trace 0190b6d2-7c1e-7a3b-9f00-3c2d1e0a9b88 --db ./padsynth.db
  padsynth trace 0190b6d2-7c1e-7a3b-9f00-3c2d1e0a9b88 --db ./padsynth.db --op touch_clear`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Op, "op", "", "show only calls of this op kind")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
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

	if len(args) == 0 {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		list := SessionList{Sessions: make([]SessionSummary, 0, len(sessions))}
		for _, s := range sessions {
			list.Sessions = append(list.Sessions, summarize(s))
		}
		return formatter.Success(list)
	}

	sess, err := st.ReadSession(ctx, args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	calls, err := st.ReadCalls(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}
	counts, err := st.CountCalls(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count calls", err)
	}

	result := TraceResult{
		Session: summarize(sess),
		Calls:   buildTimeline(calls, opts.Op),
		Stats:   TraceStats{TotalCalls: len(calls), ByOp: counts},
	}
	for _, c := range calls {
		if c.Err != "" {
			result.Stats.Faults++
		}
		result.Stats.Generations = max(result.Stats.Generations, c.Generation)
	}
	formatter.VerboseLog("read %d calls for %s", len(calls), sess.ID)
	return formatter.Success(result)
}

// buildTimeline converts stored calls to trace events, keeping only kind
// when it is set.
func buildTimeline(calls []store.CallRecord, kind string) []harness.TraceEvent {
	events := make([]harness.TraceEvent, 0, len(calls))
	for _, c := range calls {
		if kind != "" && c.Op.Kind.String() != kind {
			continue
		}
		events = append(events, harness.TraceEvent{
			Seq:        c.Seq,
			Generation: c.Generation,
			Op:         c.Op.Kind.String(),
			Call:       c.Op.String(),
			Playing:    c.Playing,
			Error:      c.Err,
		})
	}
	return events
}

func summarize(s store.Session) SessionSummary {
	return SessionSummary{
		ID:            s.ID,
		Name:          s.Name,
		EngineVersion: s.EngineVersion,
		SampleRate:    s.SampleRate,
		Permission:    s.Permission,
		Calls:         s.Calls,
	}
}
