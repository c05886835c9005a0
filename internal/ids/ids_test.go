package ids

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simple(t *testing.T, raws ...string) []GameID {
	t.Helper()
	out, err := NormalizeAll(raws, false)
	require.NoError(t, err)
	return out
}

func TestNormalize_NonOfficialCollapsesSpellings(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"123", "123"},
		{" 123 ", "123"},
		{"123.0", "123"},
		{"4567890123", "4567890123"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, err := Normalize(tt.raw, false)
			require.NoError(t, err)
			assert.Equal(t, Simple, id.Kind)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "12.5", "1#T1#h"} {
		_, err := Normalize(raw, false)
		assert.ErrorIs(t, err, ErrInvalidID, raw)
	}
	_, err := Normalize("", true)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = Normalize("1#", true)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestParseComposite(t *testing.T) {
	id, err := ParseComposite("1002440062#ESPORTSTMNT02#a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, Composite, id.Kind)
	assert.Equal(t, "1002440062", id.Match)
	assert.Equal(t, "ESPORTSTMNT02", id.Tournament)
	assert.Equal(t, "a1b2c3", id.Hash)
	assert.Equal(t, "1002440062#ESPORTSTMNT02#a1b2c3", id.String())

	noHash, err := ParseComposite("10#T1")
	require.NoError(t, err)
	assert.Equal(t, "", noHash.Hash)
}

func TestKey_ExcludesHash(t *testing.T) {
	a := NewComposite("10", "T1", "hash-a")
	b := NewComposite("10", "T1", "hash-b")
	assert.Equal(t, a.Key(), b.Key())
	assert.Empty(t, Reconcile([]GameID{a}, []GameID{b}))
	assert.Equal(t, "10#T1", a.Key().String())
}

func TestReconcile_SetDifference(t *testing.T) {
	a := simple(t, "1", "2", "3")
	b := simple(t, "2", "3", "4", "5")

	assert.Equal(t, simple(t, "4", "5"), Reconcile(a, b))
	assert.Empty(t, Reconcile(a, a))
	assert.Equal(t, b, Reconcile(nil, b))
	assert.Empty(t, Reconcile(b, nil))
}

func TestReconcile_CollapsesDuplicateReference(t *testing.T) {
	got := Reconcile(nil, simple(t, "7", "7.0", "8", "7"))
	assert.Equal(t, simple(t, "7", "8"), got)
}

func TestReconcile_OrderIndependentAsSet(t *testing.T) {
	known := simple(t, "1", "3", "5", "7")
	reference := simple(t, "1", "2", "3", "4", "5", "6")
	want := KeySet(Reconcile(known, reference))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		k := append([]GameID(nil), known...)
		r := append([]GameID(nil), reference...)
		rng.Shuffle(len(k), func(i, j int) { k[i], k[j] = k[j], k[i] })
		rng.Shuffle(len(r), func(i, j int) { r[i], r[j] = r[j], r[i] })
		assert.Equal(t, want, KeySet(Reconcile(k, r)))
	}
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	known := simple(t, "1")
	reference := simple(t, "2", "1")
	Reconcile(known, reference)
	assert.Equal(t, simple(t, "1"), known)
	assert.Equal(t, simple(t, "2", "1"), reference)
}

func TestReconcile_NormalizationPolicy(t *testing.T) {
	// Non-official: "123" and 123 are the same match
	known, err := NormalizeAll([]string{"123"}, false)
	require.NoError(t, err)
	reference := []GameID{NewSimple(123)}
	assert.Empty(t, Reconcile(known, reference))

	// Official: string identity includes the tournament suffix
	known, err = NormalizeAll([]string{"123"}, true)
	require.NoError(t, err)
	reference, err = NormalizeAll([]string{"123#T1#h1"}, true)
	require.NoError(t, err)
	assert.Equal(t, reference, Reconcile(known, reference))
}

func TestStrings_Sorted(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, Strings(simple(t, "3", "1", "2")))
}
