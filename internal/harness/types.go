package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/padsynth/internal/engine"
)

// TraceEvent is one engine call observed while a scenario ran.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Generation uint64 `json:"generation"`
	Op         string `json:"op"`
	Call       string `json:"call"`
	Playing    bool   `json:"playing,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewTraceEvent converts an observed engine call.
func NewTraceEvent(c engine.Call) TraceEvent {
	ev := TraceEvent{
		Seq:        c.Seq,
		Generation: c.Generation,
		Op:         c.Op.Kind.String(),
		Call:       c.Op.String(),
		Playing:    c.Result.Playing,
	}
	if c.Err != nil {
		ev.Error = c.Err.Error()
	}
	return ev
}

// String renders the event as one trace line.
func (e TraceEvent) String() string {
	line := fmt.Sprintf("%4d  g%d  %s", e.Seq, e.Generation, e.Call)
	switch {
	case e.Error != "":
		line += "  !! " + e.Error
	case e.Op == engine.KindIsPlaying.String():
		line += fmt.Sprintf("  -> playing=%t", e.Playing)
	}
	return line
}

// FinalState is the session state after the last step.
type FinalState struct {
	Playing    bool   `json:"playing"`
	Permission string `json:"permission"`
	AnyTouch   bool   `json:"any_touch"`
	Active     []int  `json:"active"`
	Dropped    int    `json:"dropped"`
	Generation uint64 `json:"generation"`
	Live       bool   `json:"live"`
}

// fields exposes the state to final_state assertions, keyed like the YAML.
func (s FinalState) fields() map[string]any {
	return map[string]any{
		"playing":    s.Playing,
		"permission": s.Permission,
		"any_touch":  s.AnyTouch,
		"active":     len(s.Active),
		"dropped":    s.Dropped,
		"generation": int(s.Generation),
		"live":       s.Live,
	}
}

func (s FinalState) String() string {
	return fmt.Sprintf("playing=%t permission=%s any_touch=%t active=%v dropped=%d generation=%d live=%t",
		s.Playing, s.Permission, s.AnyTouch, s.Active, s.Dropped, s.Generation, s.Live)
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every toggle expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Outcomes lists the outcome of each toggle step, in step order.
	Outcomes []string `json:"outcomes"`

	Final FinalState `json:"final"`

	// Errors is empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Outcomes: []string{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FormatTrace renders a trace one call per line.
func FormatTrace(trace []TraceEvent) string {
	var b strings.Builder
	for _, ev := range trace {
		b.WriteString(ev.String())
		b.WriteByte('\n')
	}
	return b.String()
}
