package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"slds/internal/config"
	"slds/internal/ids"
	"slds/internal/riot"
	"slds/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves synthetic payloads and records every call
type fakeFetcher struct {
	mu       sync.Mutex
	calls    []string
	failing  map[string]error
	timeline map[string]error
}

func (f *fakeFetcher) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func payload(gameID string) map[string]any {
	return map[string]any{"gameId": gameID, "gameCreation": 1710266400000.0}
}

func (f *fakeFetcher) GetMatch(ctx context.Context, platform string, gameID int64) (map[string]any, error) {
	key := fmt.Sprint(gameID)
	f.record("match " + platform + " " + key)
	if err := f.failing[key]; err != nil {
		return nil, err
	}
	return payload(key), nil
}

func (f *fakeFetcher) GetTimeline(ctx context.Context, platform string, gameID int64) (map[string]any, error) {
	key := fmt.Sprint(gameID)
	f.record("timeline " + platform + " " + key)
	if err := f.timeline[key]; err != nil {
		return nil, err
	}
	return map[string]any{"frames": []any{}}, nil
}

func (f *fakeFetcher) GetTournamentMatch(ctx context.Context, realm, gameID, hash string) (map[string]any, error) {
	f.record("acs " + realm + " " + gameID + " " + hash)
	return payload(gameID), nil
}

func (f *fakeFetcher) GetTournamentTimeline(ctx context.Context, realm, gameID, hash string) (map[string]any, error) {
	f.record("acs-tl " + realm + " " + gameID + " " + hash)
	return map[string]any{"frames": []any{}}, nil
}

func newAcquirer(t *testing.T, f Fetcher, official bool) (*Acquirer, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), official)
	require.NoError(t, err)
	return NewAcquirer(f, store, AcquirerConfig{Workers: 3, Out: &bytes.Buffer{}}), store
}

func simpleIDs(n ...int64) []ids.GameID {
	out := make([]ids.GameID, 0, len(n))
	for _, v := range n {
		out = append(out, ids.NewSimple(v))
	}
	return out
}

func TestAcquire_FetchesOnlyMissing(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{}
	acq, store := newAcquirer(t, f, false)
	league := &config.League{Key: "SLO", Region: "EUW1"}

	_, err := store.Put(ctx, ids.NewSimple(1), payload("1"), map[string]any{})
	require.NoError(t, err)

	res, err := acq.Acquire(ctx, league, simpleIDs(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, simpleIDs(2, 3), res.Requested)
	assert.Equal(t, simpleIDs(2, 3), res.Succeeded)
	assert.Empty(t, res.Skipped)
	assert.Len(t, f.Calls(), 4)
	assert.ElementsMatch(t, []string{"match EUW1 2", "timeline EUW1 2", "match EUW1 3", "timeline EUW1 3"}, f.Calls())

	ix, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
}

func TestAcquire_UpToDateMakesNoCalls(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{}
	acq, store := newAcquirer(t, f, false)
	for _, id := range simpleIDs(1, 2) {
		_, err := store.Put(ctx, id, payload(id.Match), map[string]any{})
		require.NoError(t, err)
	}

	res, err := acq.Acquire(ctx, &config.League{Key: "SLO", Region: "EUW1"}, simpleIDs(2, 1, 2))
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
	assert.Empty(t, res.Requested)
	assert.Empty(t, f.Calls())
}

func TestAcquire_SkipsFailuresWithoutPartialFiles(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{
		failing:  map[string]error{"3": &riot.StatusError{StatusCode: 404, URL: "x"}},
		timeline: map[string]error{"4": errors.New("connection reset")},
	}
	acq, store := newAcquirer(t, f, false)
	reference := simpleIDs(1, 2, 3, 4, 5)

	res, err := acq.Acquire(ctx, &config.League{Key: "SLO", Region: "EUW1"}, reference)
	require.NoError(t, err)
	assert.Equal(t, simpleIDs(1, 2, 5), res.Succeeded)
	require.Len(t, res.Skipped, 2)
	skipped := map[string]error{}
	for _, s := range res.Skipped {
		skipped[s.ID.String()] = s.Err
	}
	assert.ErrorIs(t, skipped["3"], riot.ErrNotFound)
	assert.Contains(t, skipped, "4")

	ix, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 6, "three complete pairs, no partial files")

	// the next run retries only the skipped games
	f.failing, f.timeline = nil, nil
	res, err = acq.Acquire(ctx, &config.League{Key: "SLO", Region: "EUW1"}, reference)
	require.NoError(t, err)
	assert.Equal(t, simpleIDs(3, 4), res.Succeeded)
}

func TestAcquire_OfficialUsesTournamentAddressing(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{}
	acq, store := newAcquirer(t, f, true)
	id := ids.NewComposite("1002", "ESPORTSTMNT01", "abc")

	res, err := acq.Acquire(ctx, &config.League{Key: "LCK", Official: true, Region: "KR"}, []ids.GameID{id})
	require.NoError(t, err)
	assert.Equal(t, []ids.GameID{id}, res.Succeeded)
	assert.ElementsMatch(t, []string{"acs ESPORTSTMNT01 1002 abc", "acs-tl ESPORTSTMNT01 1002 abc"}, f.Calls())

	names, err := store.Resolve(ctx, id.Key())
	require.NoError(t, err)
	assert.Equal(t, "12-03-24_1002#ESPORTSTMNT01#abc", names.Match)
}

func TestAcquire_OfficialRejectsBareID(t *testing.T) {
	f := &fakeFetcher{}
	acq, _ := newAcquirer(t, f, true)
	res, err := acq.Acquire(context.Background(), &config.League{Key: "LCK", Official: true}, []ids.GameID{{Kind: ids.Simple, Match: "1002"}})
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Skipped[0].Err, ids.ErrInvalidID)
	assert.Empty(t, f.Calls())
}

func TestAcquire_CancelledLeavesPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFetcher{}
	acq, _ := newAcquirer(t, f, false)

	res, err := acq.Acquire(ctx, &config.League{Key: "SLO", Region: "EUW1"}, simpleIDs(1, 2))
	assert.ErrorIs(t, err, context.Canceled)
	if res != nil {
		assert.Empty(t, res.Succeeded)
	}
}
