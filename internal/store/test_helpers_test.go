package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "padsynth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestSession(t *testing.T, s *Store, id string) Session {
	t.Helper()
	sess := Session{ID: id, Name: "test", EngineVersion: "test", SampleRate: 48000, Permission: "granted"}
	require.NoError(t, s.CreateSession(t.Context(), sess))
	return sess
}
