package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun(task, subject, outcome string) Run {
	return Run{
		ID:        uuid.NewString(),
		Task:      task,
		Subject:   subject,
		Outcome:   outcome,
		StartedAt: time.Now().Truncate(time.Millisecond),
		Duration:  1500 * time.Millisecond,
	}
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	first := newRun("ant", "deploy", "success")
	second := newRun("ant", "deployCI", "failed")
	second.Failure = "apex_test"
	second.ExitCode = 1
	second.Metadata = map[string]string{"run_id": "abc"}
	third := newRun("release-notes", "release/1.0", "success")

	for _, r := range []Run{first, second, third} {
		require.NoError(t, store.Record(ctx, r))
	}

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID, "most recent first")
	assert.Equal(t, first.ID, all[2].ID)

	ant, err := store.List(ctx, "ant", 0)
	require.NoError(t, err)
	require.Len(t, ant, 2)
	got := ant[0]
	assert.Equal(t, "deployCI", got.Subject)
	assert.Equal(t, "failed", got.Outcome)
	assert.Equal(t, "apex_test", got.Failure)
	assert.Equal(t, 1, got.ExitCode)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.True(t, second.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, "abc", got.Metadata["run_id"])
	assert.False(t, got.RecordedAt.IsZero())
}

func TestSQLiteStore_ListLimit(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for range 5 {
		require.NoError(t, store.Record(ctx, newRun("ant", "deploy", "success")))
	}

	runs, err := store.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	run := newRun("ant", "deploy", "success")
	require.NoError(t, store.Record(context.Background(), run))
	assert.Error(t, store.Record(context.Background(), run))
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), newRun("ant", "deploy", "success")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.List(context.Background(), "ant", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestNoopStore(t *testing.T) {
	var s Store = NoopStore{}
	require.NoError(t, s.Record(context.Background(), Run{}))
	runs, err := s.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, s.Close())
}
