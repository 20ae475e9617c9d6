package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrsdek/MedMate-App/internal/config"
	"github.com/amrsdek/MedMate-App/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "sess-1", model.ModeAI, 3)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "sess-1", got.SessionID)
		assert.Equal(t, model.ModeAI, got.Mode)
		assert.Equal(t, 3, got.Items)
		assert.Equal(t, model.RunStatusRunning, got.Status)
		assert.Nil(t, got.FinishedAt)
	})

	t.Run("FinishRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "sess-1", model.ModeAI, 2)
		require.NoError(t, err)

		err = s.FinishRun(ctx, run.ID, model.RunOutcome{
			Units:     2,
			Completed: 1,
			Status:    model.RunStatusRecoverable,
			Error:     "transcribe: quota_exceeded: scan.pdf: 429",
		})
		require.NoError(t, err)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusRecoverable, got.Status)
		assert.Equal(t, 2, got.Units)
		assert.Equal(t, 1, got.Completed)
		assert.Contains(t, got.Error, "quota_exceeded")
		require.NotNil(t, got.FinishedAt)
		assert.WithinDuration(t, time.Now(), *got.FinishedAt, time.Minute)
	})

	t.Run("FinishRunNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.FinishRun(context.Background(), "missing", model.RunOutcome{Status: model.RunStatusComplete})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListRunsFilter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, "sess-a", model.ModeAI, 1)
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, "sess-b", model.ModeLocalFallback, 1)
		require.NoError(t, err)
		require.NoError(t, s.FinishRun(ctx, a.ID, model.RunOutcome{Units: 1, Completed: 1, Status: model.RunStatusComplete}))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		done, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, a.ID, done[0].ID)

		bySession, err := s.ListRuns(ctx, RunFilter{SessionID: "sess-b"})
		require.NoError(t, err)
		require.Len(t, bySession, 1)
		assert.Equal(t, model.ModeLocalFallback, bySession[0].Mode)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("Feedback", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := &model.Comment{SessionID: "sess-1", Text: "tables came out great", Rating: 5}
		require.NoError(t, s.SaveFeedback(ctx, c))
		assert.NotEmpty(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())

		list, err := s.ListFeedback(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "tables came out great", list[0].Text)
		assert.Equal(t, 5, list[0].Rating)
		assert.Equal(t, c.ID, list[0].ID)
	})

	t.Run("MigrateIdempotent", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Migrate(context.Background()))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	assert.IsType(t, &SQLiteStore{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestPoolConfig_FromStoreConfig(t *testing.T) {
	pc := poolConfig(config.StoreConfig{Driver: "postgres", MaxConns: 12, MinConns: 3})
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
}

func TestOpen_UnknownDriver(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Driver: "mongo"})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_PostgresBadURL(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", DatabaseURL: "::not a url::"})
	require.Error(t, err)
	assert.Nil(t, s)
}
