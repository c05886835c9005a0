package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(t *testing.T, columns []string, rows ...[]string) *Table {
	t.Helper()
	tb := NewTable(columns...)
	for _, r := range rows {
		require.NoError(t, tb.AppendRow(r))
	}
	return tb
}

func TestConcat_AlignsColumnsByName(t *testing.T) {
	a := table(t, []string{"gameId", "kills"}, []string{"1", "3"})
	b := table(t, []string{"kills", "gameId", "week"}, []string{"5", "2", "W1"})

	got := Concat(a, nil, b)
	assert.Equal(t, []string{"gameId", "kills", "week"}, got.Columns)
	assert.Equal(t, [][]string{{"1", "3", ""}, {"2", "5", "W1"}}, got.Rows)
}

func TestDedup_KeepsFirstOccurrence(t *testing.T) {
	tb := table(t, []string{"gameId", "participantId", "kills"},
		[]string{"1", "1", "old"},
		[]string{"1", "2", "x"},
		[]string{"1.0", "1", "new"},
	)
	got, err := Dedup(tb, []string{"gameId", "participantId"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, "old", got.Value(0, "kills"))
	assert.Equal(t, 3, tb.Len(), "input untouched")
}

func TestDedup_MissingIdentityColumn(t *testing.T) {
	tb := table(t, []string{"kills"}, []string{"1"})
	_, err := Dedup(tb, []string{"gameId"})
	assert.ErrorIs(t, err, ErrMissingColumn)

	empty, err := Dedup(NewTable(), []string{"gameId"})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestMerge_ExistingWinsAndIsIdempotent(t *testing.T) {
	identity := []string{"gameId", "participantId"}
	existing := table(t, []string{"gameId", "participantId", "kills"},
		[]string{"101", "1", "2"},
		[]string{"102", "1", "4"},
	)
	added := table(t, []string{"gameId", "participantId", "kills"},
		[]string{"102", "1", "9"},
		[]string{"103", "1", "7"},
	)

	merged, err := Merge(existing, added, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "102", "103"}, merged.Column("gameId"))
	assert.Equal(t, "4", merged.Value(1, "kills"))

	again, err := Merge(merged, added, identity)
	require.NoError(t, err)
	assert.Equal(t, merged.Rows, again.Rows)
}

func TestKeys(t *testing.T) {
	tb := table(t, []string{"gameId", "realm"},
		[]string{"1", "T1"}, []string{"1", "T1"}, []string{"1", "T2"})
	keys, err := Keys(tb, []string{"gameId", "realm"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "T1"}, {"1", "T2"}}, keys)

	keys, err = Keys(NewTable(), []string{"gameId"})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "123", Canonical("123.0"))
	assert.Equal(t, "123", Canonical(" 123 "))
	assert.Equal(t, "123", Canonical("0123"))
	assert.Equal(t, "123", Canonical("+123"))
	assert.Equal(t, "0", Canonical("-0"))
	assert.Equal(t, "0.5", Canonical("0.5"))
	assert.Equal(t, "ESPORTSTMNT01", Canonical("ESPORTSTMNT01"))
}

func TestTable_AppendMapAndClone(t *testing.T) {
	tb := NewTable("gameId")
	tb.AppendMap(map[string]string{"gameId": "1", "kills": "2"}, []string{"gameId", "kills"})
	assert.Equal(t, []string{"gameId", "kills"}, tb.Columns)
	assert.Equal(t, map[string]string{"gameId": "1", "kills": "2"}, tb.Record(0))

	cp := tb.Clone()
	cp.Rows[0][0] = "9"
	assert.Equal(t, "1", tb.Value(0, "gameId"))
	assert.Equal(t, -1, tb.ColumnIndex("deaths"))
	assert.Error(t, tb.AppendRow([]string{"only-one"}))
}
