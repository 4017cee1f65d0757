package store

import (
	"context"
	"fmt"

	"github.com/roach88/padsynth/internal/engine"
)

// Session describes one recorded engine session.
type Session struct {
	ID            string
	Name          string
	EngineVersion string
	SampleRate    int
	Permission    string

	// Calls is the number of recorded calls. Filled in by reads only.
	Calls int
}

// CallRecord is one stored engine call.
type CallRecord struct {
	SessionID  string
	Seq        int64
	Generation uint64
	Op         engine.Op
	Playing    bool
	// Err is the native error text, empty on success.
	Err string
}

// CreateSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-creating a session
// with the same id is silently ignored.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("create session: empty id")
	}
	permission := sess.Permission
	if permission == "" {
		permission = "unknown"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, engine_version, sample_rate, permission)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Name, sess.EngineVersion, sess.SampleRate, permission)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// AppendCall inserts one observed call.
// Duplicate (session, seq) pairs are silently ignored.
//
// Note: The session must exist (foreign key constraint).
func (s *Store) AppendCall(ctx context.Context, sessionID string, c engine.Call) error {
	args, err := marshalOp(c.Op)
	if err != nil {
		return fmt.Errorf("append call: %w", err)
	}
	errText := ""
	if c.Err != nil {
		errText = c.Err.Error()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls (session_id, seq, generation, op, args, playing, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, sessionID, c.Seq, int64(c.Generation), c.Op.Kind.String(), args, c.Result.Playing, errText)
	if err != nil {
		return fmt.Errorf("append call: %w", err)
	}
	return nil
}
