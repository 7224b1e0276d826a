package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id string, start time.Time) Run {
	return Run{
		ID: id, Start: start, End: start.Add(90 * time.Second), Outcome: "warning",
		Desired: 2, Added: 1, Registered: 2, Workspaces: 2, Documented: 3, Missing: 1,
	}
}

func TestRecordAndQuery(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := time.UnixMilli(time.Now().UnixMilli())

	err := s.Record(ctx, sampleRun("run-1", start), []ComponentRecord{
		{Repository: "alice/foo", Workspace: "alice/foo/ws", Component: "foo-core", URL: "https://d/alice/foo/ws/foo_core", Present: true},
		{Repository: "alice/foo", Workspace: "alice/foo/ws", Component: "foo-cli"},
	})
	require.NoError(t, err)

	run, err := s.Run(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "warning", run.Outcome)
	assert.Equal(t, 3, run.Documented)
	assert.Equal(t, 90*time.Second, run.Duration())
	assert.True(t, run.Start.Equal(start))

	comps, err := s.Components(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "foo-cli", comps[0].Component)
	assert.False(t, comps[0].Present)
	assert.Empty(t, comps[0].URL)
	assert.Equal(t, "https://d/alice/foo/ws/foo_core", comps[1].URL)
}

func TestRecentNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute)), nil))
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestRunNotFound(t *testing.T) {
	_, err := openStore(t).Run(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestDuplicateRunIsHistoryError(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, sampleRun("dup", time.Now()), nil))
	err := s.Record(ctx, sampleRun("dup", time.Now()), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryHistory))
}

func TestLastDocumented(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	t1 := time.UnixMilli(time.Now().Add(-2 * time.Hour).UnixMilli())
	t2 := t1.Add(time.Hour)

	require.NoError(t, s.Record(ctx, sampleRun("r1", t1), []ComponentRecord{
		{Repository: "alice/foo", Component: "foo-cli", URL: "u", Present: true},
	}))
	require.NoError(t, s.Record(ctx, sampleRun("r2", t2), []ComponentRecord{
		{Repository: "alice/foo", Component: "foo-cli"},
	}))

	at, ok, err := s.LastDocumented(ctx, "alice/foo", "foo-cli")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(t1))

	_, ok, err = s.LastDocumented(ctx, "alice/foo", "never")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrune(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.Record(ctx, sampleRun("old", now.Add(-48*time.Hour)), []ComponentRecord{{Repository: "a/b", Component: "c"}}))
	require.NoError(t, s.Record(ctx, sampleRun("new", now), nil))

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].ID)
	comps, err := s.Components(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, comps)
}

func TestOpenFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), sampleRun("x", time.Now()), nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
