package store

import (
	"context"
	"fmt"

	"github.com/roach88/padsynth/internal/engine"
)

// Target is what a recording is replayed into. *engine.Handle implements it.
type Target interface {
	Invoke(ctx context.Context, op engine.Op) (engine.Result, error)
	Destroy(ctx context.Context) error
}

// Mismatch is a replayed call whose outcome differs from the recording.
type Mismatch struct {
	Seq    int64
	Op     engine.Op
	Reason string
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	SessionID string
	// Replayed counts calls re-issued to the target.
	Replayed int
	// Skipped counts creation records; the target creates instances lazily.
	Skipped    int
	Mismatches []Mismatch
}

// Deterministic reports whether the replay reproduced every outcome.
func (r ReplayResult) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// Replay re-drives target with the calls recorded for sessionID, in seq order.
//
// Creation records are skipped because the target creates on first use.
// Destruction records call Destroy. Playing-state answers and failures are
// compared with the recording; differences are reported, not returned as
// errors. Replay stops only when ctx is cancelled or the recording cannot be
// read.
func (s *Store) Replay(ctx context.Context, sessionID string, target Target) (ReplayResult, error) {
	if _, err := s.ReadSession(ctx, sessionID); err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	calls, err := s.ReadCalls(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	res := ReplayResult{SessionID: sessionID}
	for i, rec := range calls {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch {
		case rec.Op.Kind == engine.KindCreate:
			res.Skipped++

		case rec.Op.Kind == engine.KindDestroy && i > 0 && calls[i-1].Err != "":
			// The handle discards a faulted instance itself; the replayed
			// fault already did the same.
			res.Skipped++

		case rec.Op.Kind == engine.KindDestroy:
			res.Replayed++
			if err := target.Destroy(ctx); err != nil {
				res.Mismatches = append(res.Mismatches, Mismatch{Seq: rec.Seq, Op: rec.Op, Reason: err.Error()})
			}

		case rec.Op.Kind.Invokable():
			res.Replayed++
			got, err := target.Invoke(ctx, rec.Op)
			if m, ok := compare(rec, got, err); !ok {
				res.Mismatches = append(res.Mismatches, m)
			}

		default:
			return res, fmt.Errorf("replay: call %d has unreplayable op %s", rec.Seq, rec.Op.Kind)
		}
	}
	return res, nil
}

func compare(rec CallRecord, got engine.Result, err error) (Mismatch, bool) {
	m := Mismatch{Seq: rec.Seq, Op: rec.Op}
	switch {
	case rec.Err == "" && err != nil:
		m.Reason = fmt.Sprintf("recorded success, replay failed: %v", err)
	case rec.Err != "" && err == nil:
		m.Reason = fmt.Sprintf("recorded failure %q, replay succeeded", rec.Err)
	case rec.Op.Kind == engine.KindIsPlaying && err == nil && got.Playing != rec.Playing:
		m.Reason = fmt.Sprintf("playing: recorded %t, replayed %t", rec.Playing, got.Playing)
	default:
		return Mismatch{}, true
	}
	return m, false
}
