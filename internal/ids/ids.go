package ids

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tells which variant a GameID holds
type Kind uint8

const (
	// Simple is a plain integer match id (regional matches, Solo Queue)
	Simple Kind = iota
	// Composite is a tournament match addressed by (matchId, tournament, hash)
	Composite
)

const separator = "#"

var ErrInvalidID = errors.New("invalid game id")

// GameID identifies one match. The access hash of a composite id only
// authorizes the tournament endpoint and is not part of its identity.
type GameID struct {
	Kind       Kind
	Match      string
	Tournament string
	Hash       string
}

// Key is the identity of a GameID, used for equality and deduplication
type Key struct {
	Match      string
	Tournament string
}

// NewSimple creates a simple id from an integer match id
func NewSimple(id int64) GameID {
	return GameID{Kind: Simple, Match: strconv.FormatInt(id, 10)}
}

// NewComposite creates a tournament id
func NewComposite(match, tournament, hash string) GameID {
	return GameID{
		Kind:       Composite,
		Match:      strings.TrimSpace(match),
		Tournament: strings.TrimSpace(tournament),
		Hash:       strings.TrimSpace(hash),
	}
}

// Key returns the identity of the id (hash excluded)
func (g GameID) Key() Key {
	return Key{Match: g.Match, Tournament: g.Tournament}
}

// String serializes the id as "id" or "id#tournament#hash"
func (g GameID) String() string {
	if g.Kind == Simple {
		return g.Match
	}
	return g.Match + separator + g.Tournament + separator + g.Hash
}

// Int returns the numeric match id
func (g GameID) Int() (int64, error) {
	return NormalizeInt(g.Match)
}

// IsZero reports whether the id is unset
func (g GameID) IsZero() bool {
	return g.Match == ""
}

func (k Key) String() string {
	if k.Tournament == "" {
		return k.Match
	}
	return k.Match + separator + k.Tournament
}

// ParseComposite parses "id#tournament#hash". A missing hash is allowed.
func ParseComposite(s string) (GameID, error) {
	parts := strings.Split(strings.TrimSpace(s), separator)
	if len(parts) < 2 || len(parts) > 3 {
		return GameID{}, fmt.Errorf("%w: %q is not id#tournament#hash", ErrInvalidID, s)
	}
	if parts[0] == "" || parts[1] == "" {
		return GameID{}, fmt.Errorf("%w: %q has an empty id or tournament", ErrInvalidID, s)
	}
	hash := ""
	if len(parts) == 3 {
		hash = parts[2]
	}
	return NewComposite(parts[0], parts[1], hash), nil
}

// NormalizeInt parses an integer id, accepting the float artifacts
// ("123.0") that tabular files tend to produce
func NormalizeInt(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidID, raw)
	}
	return int64(f), nil
}

// Normalize converts a raw id into a GameID following the league's policy.
// Official leagues keep string identity (a bare id never equals a composite
// one); every other league collapses string/float/int spellings to an integer.
func Normalize(raw string, official bool) (GameID, error) {
	s := strings.TrimSpace(raw)
	if official {
		if s == "" {
			return GameID{}, fmt.Errorf("%w: empty", ErrInvalidID)
		}
		if strings.Contains(s, separator) {
			return ParseComposite(s)
		}
		return GameID{Kind: Simple, Match: s}, nil
	}
	n, err := NormalizeInt(s)
	if err != nil {
		return GameID{}, err
	}
	return NewSimple(n), nil
}

// NormalizeAll normalizes every raw id, failing on the first invalid one
func NormalizeAll(raws []string, official bool) ([]GameID, error) {
	out := make([]GameID, 0, len(raws))
	for _, raw := range raws {
		id, err := Normalize(raw, official)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
