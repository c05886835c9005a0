package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"slds/internal/config"
	"slds/internal/convert"
	"slds/internal/dataset"
	"slds/internal/ids"
	"slds/internal/reference"
	"slds/internal/storage"

	"github.com/google/uuid"
)

// Status tells automation what a sync did
type Status string

const (
	StatusNoChange Status = "no-change"
	StatusAppended Status = "appended"
	StatusRebuilt  Status = "rebuilt"
)

// Outcome reports one synchronization
type Outcome struct {
	RunID        string
	League       string
	Status       Status
	NewIDs       []ids.GameID // reference games absent from the previous dataset
	Missing      []ids.GameID // games without a raw record, left for a later run
	Rows         int
	Added        int
	Bootstrapped bool
	Table        *dataset.Table
}

// Notifier is told about every persisted sync
type Notifier interface {
	NotifySync(ctx context.Context, out *Outcome) error
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithNotifier reports outcomes of Sync
func WithNotifier(n Notifier) Option {
	return func(s *Synchronizer) {
		s.notifier = n
	}
}

// Synchronizer keeps a league dataset in step with its reference file
type Synchronizer struct {
	league    *config.League
	records   storage.RecordStore
	datasets  dataset.Store
	converter convert.Converter
	notifier  Notifier
}

// New creates a synchronizer for one league
func New(league *config.League, records storage.RecordStore, datasets dataset.Store, converter convert.Converter, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		league:    league,
		records:   records,
		datasets:  datasets,
		converter: converter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run computes the next dataset without persisting it. force rebuilds from
// every reference game; a dataset that was never saved forces a rebuild.
func (s *Synchronizer) Run(ctx context.Context, force bool) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString(), League: s.league.Key}

	matches, err := s.loadReference(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.datasets.Load(ctx)
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		log.Printf("[Sync] %s: no dataset yet, building from scratch", s.league.Key)
		existing = nil
		out.Bootstrapped = true
		force = true
	case err != nil:
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	known, err := s.datasetIDs(existing)
	if err != nil {
		return nil, err
	}
	refIDs := make([]ids.GameID, 0, len(matches))
	for _, m := range matches {
		refIDs = append(refIDs, m.ID)
	}
	out.NewIDs = ids.Reconcile(known, refIDs)

	if !force && len(out.NewIDs) == 0 {
		log.Printf("[Sync] %s: dataset already holds every reference game", s.league.Key)
		out.Status = StatusNoChange
		out.Table = existing
		out.Rows = existing.Len()
		return out, nil
	}

	selected := matches
	if !force {
		log.Printf("[Sync] %s: %d new games %v, merging with existing data", s.league.Key, len(out.NewIDs), ids.Strings(out.NewIDs))
		wanted := ids.KeySet(out.NewIDs)
		selected = make([]reference.Match, 0, len(out.NewIDs))
		for _, m := range matches {
			if _, ok := wanted[m.ID.Key()]; ok {
				selected = append(selected, m)
			}
		}
	} else if len(out.NewIDs) > 0 {
		log.Printf("[Sync] %s: rebuilding, %d new games found", s.league.Key, len(out.NewIDs))
	} else {
		log.Printf("[Sync] %s: forcing a rebuild without new games", s.league.Key)
	}

	converted, missing, err := s.convertAll(ctx, selected)
	if err != nil {
		return nil, err
	}
	out.Missing = missing

	var table *dataset.Table
	if force {
		table, err = dataset.Dedup(converted, s.league.IdentityColumns)
		out.Status = StatusRebuilt
	} else {
		table, err = dataset.Merge(existing, converted, s.league.IdentityColumns)
		out.Status = StatusAppended
	}
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s dataset: %w", s.league.Key, err)
	}

	out.Rows = table.Len()
	if delta := table.Len() - existing.Len(); delta > 0 {
		out.Added = delta
	}
	out.Table = table
	if out.Status == StatusAppended && out.Added == 0 {
		// every new game lacked a raw record
		out.Status = StatusNoChange
		out.Table = existing
	}
	return out, nil
}

// Sync runs and persists the result, then notifies
func (s *Synchronizer) Sync(ctx context.Context, force bool) (*Outcome, error) {
	out, err := s.Run(ctx, force)
	if err != nil {
		return nil, err
	}
	if out.Status != StatusNoChange {
		if err := s.datasets.Save(ctx, out.Table); err != nil {
			return nil, fmt.Errorf("failed to save %s dataset: %w", s.league.Key, err)
		}
	}
	log.Printf("[Sync] %s run %s: %s, %d rows (+%d), %d games without raw data",
		out.League, out.RunID[:8], out.Status, out.Rows, out.Added, len(out.Missing))

	if s.notifier != nil && out.Status != StatusNoChange {
		if err := s.notifier.NotifySync(ctx, out); err != nil {
			log.Printf("[Sync] Failed to send notification: %v", err)
		}
	}
	return out, nil
}

// loadReference returns the ordered reference games. Leagues listing
// accounts use every cached raw record as their reference.
func (s *Synchronizer) loadReference(ctx context.Context) ([]reference.Match, error) {
	if s.league.IDSource == config.SourceAccounts {
		ix, err := s.records.Index(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to index raw records: %w", err)
		}
		list := ix.IDs()
		matches := make([]reference.Match, 0, len(list))
		for _, id := range list {
			matches = append(matches, reference.Match{ID: id, Row: map[string]string{}})
		}
		return matches, nil
	}

	ref, err := reference.Load(s.league.ReferenceFile, s.league)
	if err != nil {
		return nil, err
	}
	return ref.Matches, nil
}

// datasetIDs extracts the games already present in a dataset
func (s *Synchronizer) datasetIDs(t *dataset.Table) ([]ids.GameID, error) {
	if t.Len() == 0 {
		return nil, nil
	}
	keys, err := dataset.Keys(t, s.league.DatasetIDColumns())
	if err != nil {
		return nil, fmt.Errorf("dataset of %s: %w", s.league.Key, err)
	}
	out := make([]ids.GameID, 0, len(keys))
	for _, k := range keys {
		if s.league.Official {
			out = append(out, ids.NewComposite(dataset.Canonical(k[0]), k[1], ""))
			continue
		}
		id, err := ids.Normalize(k[0], false)
		if err != nil {
			log.Printf("[Sync] %s: ignoring dataset row with game id %q", s.league.Key, k[0])
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// convertAll converts games in order. A game without a raw record is
// reported and skipped; any other failure aborts the sync.
func (s *Synchronizer) convertAll(ctx context.Context, matches []reference.Match) (*dataset.Table, []ids.GameID, error) {
	parts := make([]*dataset.Table, 0, len(matches))
	var missing []ids.GameID
	for _, m := range matches {
		rec, err := s.records.LoadRecord(ctx, m.ID.Key())
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("[Sync] %s: no raw record for %s, skipping", s.league.Key, m.ID)
			missing = append(missing, m.ID)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("game %s: %w", m.ID, err)
		}
		t, err := s.converter.Convert(ctx, convert.InputFor(s.league, rec, m.Row))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to convert game %s: %w", m.ID, err)
		}
		parts = append(parts, t)
	}
	return dataset.Concat(parts...), missing, nil
}
