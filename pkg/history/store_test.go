package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/scoper/pkg/evaluator"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := Run{
		ID:       "run-1",
		File:     "a.scope",
		Started:  base,
		Duration: 3 * time.Millisecond,
		OK:       true,
		Commands: 4,
		MaxDepth: 1,
		Records: []evaluator.Record{
			{Kind: evaluator.RecordAssigned, Name: "x", Value: 1, Depth: 1},
			{Kind: evaluator.RecordValue, Name: "x", Value: 1, Depth: 1},
		},
	}
	second := Run{
		ID:        "run-2",
		File:      "b.scope",
		Started:   base.Add(time.Minute),
		OK:        false,
		ErrorCode: "E_SCOPE_UNDERFLOW",
	}
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID, "newest first")
	assert.False(t, runs[0].OK)
	assert.Equal(t, "E_SCOPE_UNDERFLOW", runs[0].ErrorCode)
	assert.Empty(t, runs[0].Records)

	assert.Equal(t, first.Started, runs[1].Started)
	assert.Equal(t, first.Duration, runs[1].Duration)
	assert.True(t, runs[1].OK)
	assert.Equal(t, first.Records, runs[1].Records)
}

func TestListLimit(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(ctx, Run{ID: string(rune('a' + i)), File: "f", Started: base.Add(time.Duration(i) * time.Second), OK: true}))
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "e", runs[0].ID)
	assert.Equal(t, "d", runs[1].ID)

	runs, err = s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestSaveReplacesSameID(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, Run{ID: "r", File: "old", OK: false}))
	require.NoError(t, s.Save(ctx, Run{ID: "r", File: "new", OK: true}))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].File)
	assert.True(t, runs[0].OK)
}

func TestSaveRejectsEmptyID(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.Save(context.Background(), Run{File: "x"}))
}

func TestOpenRejectsDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
	_, err = Open("  ")
	assert.Error(t, err)
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), Run{ID: "keep", File: "f", OK: true}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, path, s.Path())
}

func TestEnsureSchemaRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db, err := sql.Open(driverName, "file:"+path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, EnsureSchema(db))
	_, err = db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	require.NoError(t, err)
	assert.Error(t, EnsureSchema(db))

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}
