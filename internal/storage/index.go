package storage

import (
	"sort"

	"slds/internal/ids"
)

// Index is the set of game ids with a complete raw record
type Index struct {
	keys map[ids.Key]ids.GameID
}

// NewIndex builds an index from ids, first occurrence per key wins
func NewIndex(list []ids.GameID) *Index {
	ix := &Index{keys: make(map[ids.Key]ids.GameID, len(list))}
	for _, id := range list {
		if _, ok := ix.keys[id.Key()]; !ok {
			ix.keys[id.Key()] = id
		}
	}
	return ix
}

// Has reports whether a complete record exists for key
func (ix *Index) Has(key ids.Key) bool {
	_, ok := ix.keys[key]
	return ok
}

// Len returns the number of indexed matches
func (ix *Index) Len() int {
	return len(ix.keys)
}

// IDs returns the indexed ids sorted by key
func (ix *Index) IDs() []ids.GameID {
	out := make([]ids.GameID, 0, len(ix.keys))
	for _, id := range ix.keys {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessKey(out[i].Key(), out[j].Key())
	})
	return out
}

// lessKey orders numeric match ids numerically, falling back to string order
func lessKey(a, b ids.Key) bool {
	if len(a.Match) != len(b.Match) && isDigits(a.Match) && isDigits(b.Match) {
		return len(a.Match) < len(b.Match)
	}
	if a.Match != b.Match {
		return a.Match < b.Match
	}
	return a.Tournament < b.Tournament
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
