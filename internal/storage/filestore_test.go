package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"slds/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-03-12T18:00:00Z
const creationMillis = 1710266400000

func matchDoc(gameID int64) Document {
	return Document{"gameId": float64(gameID), "gameCreation": float64(creationMillis), "platformId": "EUW1"}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestCreationDate(t *testing.T) {
	date, err := CreationDate(matchDoc(1))
	require.NoError(t, err)
	assert.Equal(t, "12-03-24", date)

	v5 := Document{"info": map[string]any{"gameCreation": float64(creationMillis)}}
	date, err = CreationDate(v5)
	require.NoError(t, err)
	assert.Equal(t, "12-03-24", date)

	_, err = CreationDate(Document{"gameId": 1.0})
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = CreationDate(Document{"gameCreation": "yesterday"})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestParseStem(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		key      string
		timeline bool
		ok       bool
	}{
		{"12-03-24_4567.json", "12-03-24", "4567", false, true},
		{"12-03-24_4567_tl.json", "12-03-24", "4567", true, true},
		{"12-03-24_10#ESPORTSTMNT01#abc_tl", "12-03-24", "10#ESPORTSTMNT01#abc", true, true},
		{"notes.json", "", "", false, false},
		{"a_b_c.json", "", "", false, false},
		{"_4567.json", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, key, timeline, ok := ParseStem(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.date, date)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.timeline, timeline)
		})
	}
}

func TestFileStore_PutIndexLoad(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), false)
	require.NoError(t, err)

	names, err := store.Put(ctx, ids.NewSimple(4567), matchDoc(4567), Document{"frames": []any{}})
	require.NoError(t, err)
	assert.Equal(t, Names{Match: "12-03-24_4567", Timeline: "12-03-24_4567_tl"}, names)
	assert.Equal(t, []string{"12-03-24_4567.json", "12-03-24_4567_tl.json"}, listDir(t, store.Dir()))

	ix, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.True(t, ix.Has(ids.NewSimple(4567).Key()))

	rec, err := store.LoadRecord(ctx, ids.NewSimple(4567).Key())
	require.NoError(t, err)
	assert.Equal(t, ids.NewSimple(4567), rec.ID)
	assert.Equal(t, float64(4567), rec.Match["gameId"])
	assert.Contains(t, rec.Timeline, "frames")
}

func TestFileStore_WithLocationNamesLocalDate(t *testing.T) {
	ctx := context.Background()
	// 18:00 UTC is already the next day at UTC+8
	store, err := NewFileStore(t.TempDir(), false, WithLocation(time.FixedZone("UTC+8", 8*3600)))
	require.NoError(t, err)

	names, err := store.Put(ctx, ids.NewSimple(77), matchDoc(77), Document{})
	require.NoError(t, err)
	assert.Equal(t, "13-03-24_77", names.Match)

	rec, err := store.LoadRecord(ctx, ids.NewSimple(77).Key())
	require.NoError(t, err)
	assert.Equal(t, names, rec.Names)

	date, err := CreationDateIn(matchDoc(77), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "12-03-24", date)
}

func TestFileStore_OfficialKeyEmbedsTournamentAndHash(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), true)
	require.NoError(t, err)

	id := ids.NewComposite("1002", "ESPORTSTMNT01", "deadbeef")
	names, err := store.Put(ctx, id, matchDoc(1002), Document{})
	require.NoError(t, err)
	assert.Equal(t, "12-03-24_1002#ESPORTSTMNT01#deadbeef", names.Match)

	// identity ignores a rotated hash
	ix, err := store.Index(ctx)
	require.NoError(t, err)
	assert.True(t, ix.Has(ids.NewComposite("1002", "ESPORTSTMNT01", "other").Key()))
	assert.Equal(t, []ids.GameID{id}, ix.IDs())
}

func TestFileStore_TypeMismatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), false)
	require.NoError(t, err)

	_, err = store.Put(ctx, ids.NewSimple(1), []any{"not", "a", "doc"}, Document{})
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = store.Put(ctx, ids.NewSimple(1), matchDoc(1), "timeline")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = store.Put(ctx, ids.NewSimple(1), Document{"gameId": 1.0}, Document{})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	assert.Empty(t, listDir(t, store.Dir()))
}

func TestFileStore_PartialPairIsNotFound(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, false)
	require.NoError(t, err)

	require.NoError(t, WriteJSON(matchDoc(9), dir, "12-03-24_9"))
	require.NoError(t, WriteJSON(Document{}, dir, "12-03-24_8_tl"))

	ix, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())

	for _, id := range []int64{9, 8} {
		_, err = store.Resolve(ctx, ids.NewSimple(id).Key())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrAmbiguousLocalIndex)

		_, err = store.LoadRecord(ctx, ids.NewSimple(id).Key())
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestFileStore_DuplicateTimelineIsAmbiguous(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, false)
	require.NoError(t, err)

	require.NoError(t, WriteJSON(matchDoc(6), dir, "12-03-24_6"))
	require.NoError(t, WriteJSON(Document{}, dir, "12-03-24_6_tl"))
	require.NoError(t, WriteJSON(Document{}, dir, "13-03-24_6_tl"))

	_, err = store.Resolve(ctx, ids.NewSimple(6).Key())
	assert.ErrorIs(t, err, ErrAmbiguousLocalIndex)
}

func TestFileStore_ResolveErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, false)
	require.NoError(t, err)

	_, err = store.Resolve(ctx, ids.NewSimple(1).Key())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAmbiguousLocalIndex)

	// same match stored under two creation dates
	for _, date := range []string{"12-03-24", "13-03-24"} {
		require.NoError(t, WriteJSON(matchDoc(5), dir, date+"_5"))
		require.NoError(t, WriteJSON(Document{}, dir, date+"_5_tl"))
	}
	_, err = store.Resolve(ctx, ids.NewSimple(5).Key())
	assert.ErrorIs(t, err, ErrAmbiguousLocalIndex)
}

func TestFileStore_ResolveDoesNotConfuseSubstrings(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), false)
	require.NoError(t, err)

	for _, id := range []int64{101, 1010, 11010} {
		_, err := store.Put(ctx, ids.NewSimple(id), matchDoc(id), Document{})
		require.NoError(t, err)
	}
	names, err := store.Resolve(ctx, ids.NewSimple(101).Key())
	require.NoError(t, err)
	assert.Equal(t, "12-03-24_101", names.Match)
}

func TestFileStore_IgnoresForeignAndTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "12-03-24_7.json.tmp"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "12-03-24_abc.json"), []byte("{}"), 0o644))

	ix, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestReadJSON_Missing(t *testing.T) {
	_, err := ReadJSON(t.TempDir(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndex_IDsSortedNumerically(t *testing.T) {
	ix := NewIndex([]ids.GameID{ids.NewSimple(100), ids.NewSimple(9), ids.NewSimple(20), ids.NewSimple(9)})
	assert.Equal(t, []ids.GameID{ids.NewSimple(9), ids.NewSimple(20), ids.NewSimple(100)}, ix.IDs())
}
