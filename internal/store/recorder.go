package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/padsynth/internal/engine"
)

// SessionGenerator produces session ids.
type SessionGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Recorder appends the calls a handle observes to one session.
//
// Observe is meant for engine.WithObserver. It runs under the handle lock,
// so rows are written in seq order. Write failures do not interrupt the
// engine; the first one is kept and reported by Err.
type Recorder struct {
	store     *Store
	sessionID string
	logger    *slog.Logger

	mu  sync.Mutex
	n   int
	err error
}

// NewRecorder creates the session record and returns a recorder for it.
func NewRecorder(ctx context.Context, s *Store, sess Session, logger *slog.Logger) (*Recorder, error) {
	if err := s.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, sessionID: sess.ID, logger: logger}, nil
}

// SessionID returns the id calls are recorded under.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Observe records c.
func (r *Recorder) Observe(c engine.Call) {
	err := r.store.AppendCall(context.Background(), r.sessionID, c)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		r.logger.Warn("recording failed", "session", r.sessionID, "seq", c.Seq, "error", err)
		return
	}
	r.n++
}

// Recorded returns how many calls were written.
func (r *Recorder) Recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Err returns the first write failure, or nil.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
