package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session id has no record.
var ErrSessionNotFound = errors.New("session not found")

// ReadSession returns one session with its call count.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.engine_version, s.sample_rate, s.permission,
		       (SELECT COUNT(*) FROM calls c WHERE c.session_id = s.id)
		FROM sessions s
		WHERE s.id = ?
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessions returns every session ordered by id. UUIDv7 ids sort by
// creation time.
//
// Returns an empty slice (not nil) if there are no sessions.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.engine_version, s.sample_rate, s.permission,
		       (SELECT COUNT(*) FROM calls c WHERE c.session_id = s.id)
		FROM sessions s
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadCalls returns the calls of a session ordered by seq.
//
// Returns an empty slice (not nil) if the session recorded nothing.
func (s *Store) ReadCalls(ctx context.Context, sessionID string) ([]CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, generation, op, args, playing, error
		FROM calls
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []CallRecord{}
	for rows.Next() {
		var (
			rec        CallRecord
			generation int64
			kind, args string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &generation, &kind, &args, &rec.Playing, &rec.Err); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		rec.Generation = uint64(generation)
		rec.Op, err = unmarshalOp(kind, args)
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", rec.Seq, err)
		}
		calls = append(calls, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

// CountCalls returns how many calls of each op kind a session recorded.
func (s *Store) CountCalls(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT op, COUNT(*) FROM calls
		WHERE session_id = ?
		GROUP BY op
		ORDER BY op COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count calls: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var op string
		var n int
		if err := rows.Scan(&op, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[op] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.Name, &sess.EngineVersion, &sess.SampleRate, &sess.Permission, &sess.Calls)
	return sess, err
}
