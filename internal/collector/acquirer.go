package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"slds/internal/config"
	"slds/internal/ids"
	"slds/internal/storage"

	"golang.org/x/time/rate"
)

const (
	// Worker pool configuration
	DefaultWorkerCount = 4
	jobChannelBuffer   = 100
)

// Fetcher is the provider surface the acquirer needs. *riot.Client implements it.
type Fetcher interface {
	GetMatch(ctx context.Context, platform string, gameID int64) (map[string]any, error)
	GetTimeline(ctx context.Context, platform string, gameID int64) (map[string]any, error)
	GetTournamentMatch(ctx context.Context, realm, gameID, hash string) (map[string]any, error)
	GetTournamentTimeline(ctx context.Context, realm, gameID, hash string) (map[string]any, error)
}

// AcquirerConfig holds configuration for the acquirer
type AcquirerConfig struct {
	Workers int
	// Rate caps dispatched games per second, 0 means unlimited
	Rate float64
	// Out receives progress lines, os.Stdout when nil
	Out io.Writer
}

// Skip records a game that could not be acquired and why
type Skip struct {
	ID  ids.GameID
	Err error
}

// Result reports one acquisition pass
type Result struct {
	Requested []ids.GameID // games missing from the store when the pass started
	Succeeded []ids.GameID // persisted, in reference order
	Skipped   []Skip       // fetch or persist failures, nothing stored for them
	Pending   []ids.GameID // never attempted because the context was cancelled
	UpToDate  bool
}

// Acquirer fills the raw record store with the games it is missing
type Acquirer struct {
	fetcher Fetcher
	store   storage.RecordStore
	workers int
	limiter *rate.Limiter
	out     io.Writer
}

type job struct {
	pos int
	id  ids.GameID
}

type fetched struct {
	job
	match    map[string]any
	timeline map[string]any
	err      error
}

// NewAcquirer creates an acquirer writing into store
func NewAcquirer(fetcher Fetcher, store storage.RecordStore, cfg AcquirerConfig) *Acquirer {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkerCount
	}
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Acquirer{
		fetcher: fetcher,
		store:   store,
		workers: cfg.Workers,
		limiter: rate.NewLimiter(limit, 1),
		out:     cfg.Out,
	}
}

// Acquire fetches every reference game the store does not hold yet. A
// failure on one game is recorded in Result.Skipped and never aborts the
// others. Only a failure to read the store index is returned as an error,
// besides context cancellation.
func (a *Acquirer) Acquire(ctx context.Context, league *config.League, reference []ids.GameID) (*Result, error) {
	index, err := a.store.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to index raw records: %w", err)
	}

	missing := ids.Reconcile(index.IDs(), reference)
	result := &Result{Requested: missing}
	if len(missing) == 0 {
		log.Printf("[Acquirer] %s: all games already up to date (%d cached)", league.Key, index.Len())
		result.UpToDate = true
		return result, nil
	}
	log.Printf("[Acquirer] %s: %d new games to download with %d workers", league.Key, len(missing), a.workers)

	jobs := make(chan job, jobChannelBuffer)
	results := make(chan fetched, jobChannelBuffer)

	var wg sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				match, timeline, err := a.fetch(ctx, league, j.id)
				results <- fetched{job: j, match: match, timeline: timeline, err: err}
			}
		}()
	}

	// Producer: rate-limited dispatch, stops on cancellation
	go func() {
		defer close(jobs)
		for i, id := range missing {
			if err := a.limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case jobs <- job{pos: i, id: id}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Persist sequentially: a single writer per storage directory
	done := make([]bool, len(missing))
	var succeeded []job
	n := 0
	start := time.Now()
	for r := range results {
		n++
		done[r.pos] = true
		err := r.err
		if err == nil {
			_, err = a.store.Put(ctx, r.id, r.match, r.timeline)
		}
		switch {
		case err == nil:
			succeeded = append(succeeded, r.job)
			fmt.Fprintf(a.out, "  [%d/%d] %s stored\n", n, len(missing), r.id)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			done[r.pos] = false
		default:
			result.Skipped = append(result.Skipped, Skip{ID: r.id, Err: err})
			log.Printf("  [%d/%d] Skipping %s: %v", n, len(missing), r.id, err)
		}
	}

	sort.Slice(succeeded, func(i, j int) bool { return succeeded[i].pos < succeeded[j].pos })
	for _, j := range succeeded {
		result.Succeeded = append(result.Succeeded, j.id)
	}
	for i, ok := range done {
		if !ok {
			result.Pending = append(result.Pending, missing[i])
		}
	}

	log.Printf("[Acquirer] %s: %d stored, %d skipped, %d pending in %s",
		league.Key, len(result.Succeeded), len(result.Skipped), len(result.Pending), formatDuration(time.Since(start)))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// fetch downloads the match and timeline payloads of one game. Official
// leagues are addressed through the tournament realm with the access hash;
// every other league goes through its regional platform.
func (a *Acquirer) fetch(ctx context.Context, league *config.League, id ids.GameID) (map[string]any, map[string]any, error) {
	if league.Official {
		if id.Kind != ids.Composite {
			return nil, nil, fmt.Errorf("%w: official game %s has no tournament realm", ids.ErrInvalidID, id)
		}
		match, err := a.fetcher.GetTournamentMatch(ctx, id.Tournament, id.Match, id.Hash)
		if err != nil {
			return nil, nil, err
		}
		timeline, err := a.fetcher.GetTournamentTimeline(ctx, id.Tournament, id.Match, id.Hash)
		if err != nil {
			return nil, nil, err
		}
		return match, timeline, nil
	}

	gameID, err := id.Int()
	if err != nil {
		return nil, nil, err
	}
	match, err := a.fetcher.GetMatch(ctx, league.Region, gameID)
	if err != nil {
		return nil, nil, err
	}
	timeline, err := a.fetcher.GetTimeline(ctx, league.Region, gameID)
	if err != nil {
		return nil, nil, err
	}
	return match, timeline, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
