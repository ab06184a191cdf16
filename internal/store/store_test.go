package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a Store backed by a temporary database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := os.Stat(dbPath)
	require.True(t, os.IsNotExist(err), "database file should not exist before creating store")

	s, err := New(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.Equal(t, dbPath, s.Path())
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", "sessions").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "sessions", name)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Sessions().Create(&Session{ID: "keep", Name: "morning"}))
	require.NoError(t, s.Close())

	s, err = New(dbPath)
	require.NoError(t, err)
	defer s.Close()

	sess, err := s.Sessions().GetByID("keep")
	require.NoError(t, err)
	assert.Equal(t, "morning", sess.Name)
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, s.Close())

	_, err = s.DB().Exec("SELECT 1")
	assert.Error(t, err, "DB operations should fail after close")
}

func TestSessionRepository_Create(t *testing.T) {
	repo := newTestStore(t).Sessions()

	sess := &Session{Name: "warmup"}
	require.NoError(t, repo.Create(sess))

	assert.NotEmpty(t, sess.ID, "an ID is generated")
	assert.Equal(t, SessionActive, sess.Status)
	assert.False(t, sess.StartedAt.IsZero())

	got, err := repo.GetByID(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "warmup", got.Name)
	assert.Equal(t, SessionActive, got.Status)
	assert.Zero(t, got.Reps)
	assert.Nil(t, got.EndedAt)
	assert.WithinDuration(t, sess.StartedAt, got.StartedAt, time.Second)

	t.Run("duplicate id", func(t *testing.T) {
		assert.Error(t, repo.Create(&Session{ID: sess.ID}))
	})
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	repo := newTestStore(t).Sessions()

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepository_Counters(t *testing.T) {
	repo := newTestStore(t).Sessions()
	sess := &Session{ID: "s1"}
	require.NoError(t, repo.Create(sess))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementReps("s1"))
	}
	require.NoError(t, repo.AddFrames("s1", 40, 2))
	require.NoError(t, repo.AddFrames("s1", 10, 0))

	got, err := repo.GetByID("s1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Reps)
	assert.Equal(t, 50, got.Frames)
	assert.Equal(t, 2, got.Rejected)

	assert.ErrorIs(t, repo.IncrementReps("missing"), ErrNotFound)
	assert.ErrorIs(t, repo.AddFrames("missing", 1, 0), ErrNotFound)
}

func TestSessionRepository_Finish(t *testing.T) {
	repo := newTestStore(t).Sessions()
	start := time.Now().UTC().Add(-10 * time.Minute)
	require.NoError(t, repo.Create(&Session{ID: "s1", StartedAt: start}))
	require.NoError(t, repo.IncrementReps("s1"))

	end := start.Add(10 * time.Minute)
	require.NoError(t, repo.Finish("s1", end))

	got, err := repo.GetByID("s1")
	require.NoError(t, err)
	assert.Equal(t, SessionFinished, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.WithinDuration(t, end, *got.EndedAt, time.Second)
	assert.InDelta(t, (10 * time.Minute).Seconds(), got.Duration().Seconds(), 1)

	t.Run("finished sessions are frozen", func(t *testing.T) {
		assert.ErrorIs(t, repo.Finish("s1", end), ErrNotFound)
		assert.ErrorIs(t, repo.IncrementReps("s1"), ErrNotFound)

		got, err := repo.GetByID("s1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Reps)
	})
}

func TestSessionRepository_ListAndDelete(t *testing.T) {
	repo := newTestStore(t).Sessions()

	sessions, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, sessions)

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, repo.Create(&Session{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	sessions, err = repo.List()
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "newest", sessions[0].ID)
	assert.Equal(t, "oldest", sessions[2].ID)

	require.NoError(t, repo.Delete("middle"))
	assert.ErrorIs(t, repo.Delete("middle"), ErrNotFound)

	sessions, err = repo.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
