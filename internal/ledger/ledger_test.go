package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmonitor-engine/internal/domain"
)

func posting(id, title string) domain.Posting {
	return domain.Posting{ID: id, Title: title, URL: "https://jobs.example/" + id}
}

func TestDiffRecordsFilteredOut(t *testing.T) {
	a1 := posting("a1", "React Developer")
	b2 := posting("b2", "Accountant")
	all := []domain.Posting{a1, b2}
	matched := []domain.Posting{a1}

	newPostings, updated := Diff(all, matched, New())
	require.Len(t, newPostings, 1)
	assert.Equal(t, "a1", newPostings[0].ID)
	assert.Equal(t, []string{"a1", "b2"}, updated.IDs())

	// second run over the same data emits nothing
	newPostings, again := Diff(all, matched, updated)
	assert.Empty(t, newPostings)
	assert.Equal(t, updated.IDs(), again.IDs())
}

func TestDiffEmitsEachIDOnce(t *testing.T) {
	p := posting("x", "Go Engineer")
	newPostings, updated := Diff([]domain.Posting{p, p}, []domain.Posting{p, p}, New("old"))
	assert.Len(t, newPostings, 1)
	assert.Equal(t, []string{"old", "x"}, updated.IDs())
}

func TestDiffDoesNotMutateInput(t *testing.T) {
	l := New("a")
	_, updated := Diff([]domain.Posting{posting("b", "t")}, nil, l)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 2, updated.Len())
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "seen_jobs.json")
	s := NewFileStore(path)
	defer s.Close()

	l, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())

	require.NoError(t, s.Save(ctx, New("b", "a")))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(b))

	l, err = s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, l.Has("a"))
	assert.True(t, l.Has("b"))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileStoreReadsPlainArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen_jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(`["adzuna:1", "deadbeef"]`), 0o644))

	l, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"adzuna:1", "deadbeef"}, l.IDs())
}

func TestFileStoreCorruptIsLedgerIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen_jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"`), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLedgerIO))
}

func TestFileStoreSaveCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen_jobs.json")
	s := NewFileStore(path)
	defer s.Close()

	// hold the lock from a second handle so Save has to wait
	other := NewFileStore(path)
	defer other.Close()
	ok, err := other.lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Save(ctx, New("a"))
	assert.True(t, errors.Is(err, domain.ErrLedgerIO))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer s.Close()

	l, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())

	require.NoError(t, s.Save(ctx, New("a1", "b2")))
	require.NoError(t, s.Save(ctx, New("a1", "b2", "c3")))

	l, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b2", "c3"}, l.IDs())

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Count)
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(ctx, "json", filepath.Join(dir, "seen.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, st)

	st, err = Open(ctx, "sqlite", filepath.Join(dir, "seen.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, st)
	require.NoError(t, st.Close())

	_, err = Open(ctx, "redis", "x")
	assert.True(t, errors.Is(err, domain.ErrConfig))
}
