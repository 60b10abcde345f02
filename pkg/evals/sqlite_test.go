package evals

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "nested", "evals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Empty(t *testing.T) {
	store := openTestStore(t)

	records, err := store.ReadRecords(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_InsertAndRead(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	cost := 12.5

	inserted, err := store.Insert(ctx, []Record{
		{ModelID: "model-a", Score: 0.9, TimeSeconds: 30, InterventionCount: 1, OriginalPrompt: "fix the bug", WorkflowCost: &cost, SourceRepo: "org/repo"},
		{ModelID: "", Score: 0.5},
		{ModelID: "model-b", Score: 2},
		{ModelID: "model-b", Score: 0.4, TimeSeconds: 10, OriginalPrompt: "add a feature"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := store.ReadRecords(ctx, "ignored")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "model-a", records[0].ModelID)
	assert.Equal(t, 1, records[0].InterventionCount)
	assert.Equal(t, "org/repo", records[0].SourceRepo)
	require.NotNil(t, records[0].WorkflowCost)
	assert.InDelta(t, 12.5, *records[0].WorkflowCost, 1e-9)

	assert.Equal(t, "model-b", records[1].ModelID)
	assert.Nil(t, records[1].WorkflowCost)
	assert.Empty(t, records[1].SourceRepo)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evals.db")
	ctx := context.Background()

	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	_, err = store.Insert(ctx, []Record{{ModelID: "m", Score: 0.7, OriginalPrompt: "x"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, path, reopened.Path())

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
