package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	older := &Session{
		ID:         "s-older",
		Mode:       ModeBackup,
		Root:       "2025-01-01",
		StartedAt:  time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 1, 1, 10, 5, 0, 0, time.UTC),
		Copied:     12,
		Skipped:    3,
		Failed:     1,
	}
	newer := &Session{
		ID:         "s-newer",
		Mode:       ModeRestore,
		Root:       "2025-02-01",
		StartedAt:  time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 2, 1, 9, 1, 0, 0, time.UTC),
		Copied:     4,
	}
	require.NoError(t, store.Record(older))
	require.NoError(t, store.Record(newer))

	sessions, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "s-newer", sessions[0].ID)
	assert.Equal(t, ModeRestore, sessions[0].Mode)
	assert.Equal(t, "2025-02-01", sessions[0].Root)
	assert.Equal(t, 4, sessions[0].Copied)

	assert.Equal(t, "s-older", sessions[1].ID)
	assert.Equal(t, ModeBackup, sessions[1].Mode)
	assert.True(t, sessions[1].StartedAt.Equal(older.StartedAt))
	assert.True(t, sessions[1].FinishedAt.Equal(older.FinishedAt))
	assert.Equal(t, 12, sessions[1].Copied)
	assert.Equal(t, 3, sessions[1].Skipped)
	assert.Equal(t, 1, sessions[1].Failed)
}

func TestStore_RecordFillsDefaults(t *testing.T) {
	store := openTestStore(t)

	session := &Session{Mode: ModeBackup, Root: "2025-03-01"}
	require.NoError(t, store.Record(session))

	assert.NotEmpty(t, session.ID)
	assert.False(t, session.StartedAt.IsZero())
	assert.False(t, session.FinishedAt.IsZero())

	sessions, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)
}

func TestStore_RecentLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(&Session{
			Mode:       ModeBackup,
			Root:       "2025-04-01",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
		}))
	}

	sessions, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].StartedAt.After(sessions[1].StartedAt))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store := NewStore(dbPath)
	require.NoError(t, store.Open())
	require.NoError(t, store.Record(&Session{Mode: ModeBackup, Root: "2025-05-01"}))
	require.NoError(t, store.Close())

	reopened := NewStore(dbPath)
	require.NoError(t, reopened.Open())
	defer reopened.Close()

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_OpenCloseLifecycle(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "history.db"))

	require.NoError(t, store.Open())
	assert.Error(t, store.Open(), "double open must fail")

	require.NoError(t, store.Close())
	assert.Error(t, store.Close(), "double close must fail")
}

func TestStore_RecordNilSession(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.Record(nil))
}
