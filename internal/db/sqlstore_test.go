package db

import (
	"context"
	"path/filepath"
	"testing"

	"slds/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *SQLDatasetStore {
	t.Helper()
	sqlDB, err := OpenSQL("sqlite:"+filepath.Join(t.TempDir(), "slds.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	store, err := NewSQLDatasetStore(context.Background(), sqlDB, "participants_slo")
	require.NoError(t, err)
	return store
}

func sampleTable(t *testing.T) *dataset.Table {
	tb := dataset.NewTable("gameId", "participantId", "player")
	require.NoError(t, tb.AppendRow([]string{"101", "1", "Caps"}))
	require.NoError(t, tb.AppendRow([]string{"101", "2", `quote "x", comma`}))
	return tb
}

func TestSQLDatasetStore_LoadBeforeSave(t *testing.T) {
	_, err := openSQLite(t).Load(context.Background())
	assert.ErrorIs(t, err, dataset.ErrNotFound)
}

func TestSQLDatasetStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	require.NoError(t, store.Save(ctx, sampleTable(t)))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(t).Columns, got.Columns)
	assert.Equal(t, sampleTable(t).Rows, got.Rows)
}

func TestSQLDatasetStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	require.NoError(t, store.Save(ctx, sampleTable(t)))

	smaller := dataset.NewTable("gameId", "week")
	require.NoError(t, smaller.AppendRow([]string{"102", "W2"}))
	require.NoError(t, store.Save(ctx, smaller))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gameId", "week"}, got.Columns)
	assert.Equal(t, [][]string{{"102", "W2"}}, got.Rows)
}

func TestValidTable(t *testing.T) {
	assert.NoError(t, validTable("participants_slo"))
	for _, bad := range []string{"", "Participants", "x; DROP TABLE y", "1abc"} {
		assert.Error(t, validTable(bad), bad)
	}
}
