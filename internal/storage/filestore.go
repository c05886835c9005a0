package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slds/internal/ids"
)

// FileStore keeps raw records as two JSON files per match in one directory:
// {DD-MM-YY}_{key}.json and {DD-MM-YY}_{key}_tl.json
type FileStore struct {
	dir      string
	official bool
	location *time.Location
}

// FileStoreOption configures a FileStore
type FileStoreOption func(*FileStore)

// WithLocation renders creation dates in loc instead of UTC, to keep
// naming a cache that was written with local dates
func WithLocation(loc *time.Location) FileStoreOption {
	return func(s *FileStore) {
		if loc != nil {
			s.location = loc
		}
	}
}

// candidates groups the files found for one key
type candidates struct {
	id        ids.GameID
	matches   []string
	timelines []string
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, official bool, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	s := &FileStore{dir: dir, official: official, location: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store directory
func (s *FileStore) Dir() string {
	return s.dir
}

// scan groups every well-formed file name in the directory by key
func (s *FileStore) scan() (map[ids.Key]*candidates, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	found := make(map[ids.Key]*candidates)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, jsonExt) {
			continue
		}
		_, key, timeline, ok := ParseStem(name)
		if !ok {
			continue
		}
		id, err := ids.Normalize(key, s.official)
		if err != nil {
			log.Printf("[Storage] Ignoring %s: %v", name, err)
			continue
		}
		c, exists := found[id.Key()]
		if !exists {
			c = &candidates{id: id}
			found[id.Key()] = c
		}
		stem := strings.TrimSuffix(name, jsonExt)
		if timeline {
			c.timelines = append(c.timelines, stem)
		} else {
			c.matches = append(c.matches, stem)
		}
	}
	return found, nil
}

// Index lists the ids that have both a match and a timeline file
func (s *FileStore) Index(ctx context.Context) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := s.scan()
	if err != nil {
		return nil, err
	}
	list := make([]ids.GameID, 0, len(found))
	for _, c := range found {
		if len(c.matches) > 0 && len(c.timelines) > 0 {
			list = append(list, c.id)
		}
	}
	return NewIndex(list), nil
}

// Resolve finds exactly one match file and one timeline file for key. A
// half pair, as an interrupted Put leaves behind, is not found; more than
// one candidate for either file is ambiguous.
func (s *FileStore) Resolve(ctx context.Context, key ids.Key) (Names, error) {
	if err := ctx.Err(); err != nil {
		return Names{}, err
	}
	found, err := s.scan()
	if err != nil {
		return Names{}, err
	}
	c, ok := found[key]
	if !ok {
		return Names{}, fmt.Errorf("%w: %s in %s", ErrNotFound, key, s.dir)
	}
	if len(c.matches) > 1 || len(c.timelines) > 1 {
		return Names{}, fmt.Errorf("%w: %s has %d match and %d timeline files in %s",
			ErrAmbiguousLocalIndex, key, len(c.matches), len(c.timelines), s.dir)
	}
	if len(c.matches) == 0 || len(c.timelines) == 0 {
		return Names{}, fmt.Errorf("%w: %s has %d match and %d timeline files in %s",
			ErrNotFound, key, len(c.matches), len(c.timelines), s.dir)
	}
	return Names{Match: c.matches[0], Timeline: c.timelines[0]}, nil
}

// Put writes the match and timeline payloads of id. Both files are staged
// as temp files first; on any failure nothing of the pair is left behind.
func (s *FileStore) Put(ctx context.Context, id ids.GameID, match, timeline any) (Names, error) {
	if err := ctx.Err(); err != nil {
		return Names{}, err
	}
	matchDoc, err := AsDocument(match)
	if err != nil {
		return Names{}, fmt.Errorf("match %s: %w", id, err)
	}
	timelineDoc, err := AsDocument(timeline)
	if err != nil {
		return Names{}, fmt.Errorf("timeline %s: %w", id, err)
	}
	date, err := CreationDateIn(matchDoc, s.location)
	if err != nil {
		return Names{}, fmt.Errorf("match %s: %w", id, err)
	}
	names := StemsFor(date, id)

	tmpTimeline, err := writeTemp(timelineDoc, s.dir, names.Timeline)
	if err != nil {
		return Names{}, err
	}
	tmpMatch, err := writeTemp(matchDoc, s.dir, names.Match)
	if err != nil {
		os.Remove(tmpTimeline)
		return Names{}, err
	}

	finalTimeline := filepath.Join(s.dir, names.Timeline+jsonExt)
	finalMatch := filepath.Join(s.dir, names.Match+jsonExt)
	if err := os.Rename(tmpTimeline, finalTimeline); err != nil {
		os.Remove(tmpTimeline)
		os.Remove(tmpMatch)
		return Names{}, fmt.Errorf("failed to store timeline %s: %w", id, err)
	}
	if err := os.Rename(tmpMatch, finalMatch); err != nil {
		os.Remove(tmpMatch)
		os.Remove(finalTimeline)
		return Names{}, fmt.Errorf("failed to store match %s: %w", id, err)
	}
	return names, nil
}

// Load reads one stored document by stem
func (s *FileStore) Load(ctx context.Context, name string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadJSON(s.dir, name)
}

// LoadRecord resolves key and reads both documents
func (s *FileStore) LoadRecord(ctx context.Context, key ids.Key) (*Record, error) {
	names, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	match, err := s.Load(ctx, names.Match)
	if err != nil {
		return nil, err
	}
	timeline, err := s.Load(ctx, names.Timeline)
	if err != nil {
		return nil, err
	}
	_, rawKey, _, _ := ParseStem(names.Match)
	id, err := ids.Normalize(rawKey, s.official)
	if err != nil {
		return nil, err
	}
	return &Record{ID: id, Names: names, Match: match, Timeline: timeline}, nil
}
