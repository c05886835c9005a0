package reference

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"slds/internal/config"
	"slds/internal/dataset"
	"slds/internal/ids"
)

const (
	GameIDColumn     = "game_id"
	TournamentColumn = "tournament"
	HashColumn       = "hash"
)

var (
	// ErrNotFound means the league's reference file is absent. Fatal for a sync.
	ErrNotFound      = errors.New("reference file not found")
	ErrMissingColumn = errors.New("reference column missing")
	ErrBadValue      = errors.New("reference value does not match its column type")
)

// Match is one reference row with its normalized id. Row carries the
// sideband columns (names, teams, week) the converter may need.
type Match struct {
	ID  ids.GameID
	Row map[string]string
}

// Reference is the parsed source-of-truth file of a league
type Reference struct {
	Table   *dataset.Table
	Matches []Match
}

// Load reads and types a league's reference CSV. Leagues listing accounts
// carry no game ids; their Matches stay empty.
func Load(path string, league *config.League) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer f.Close()

	t, err := dataset.DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", path, err)
	}
	if err := applyTypes(t, league.ColumnTypes); err != nil {
		return nil, fmt.Errorf("reference %s: %w", path, err)
	}

	ref := &Reference{Table: t}
	if league.IDSource == config.SourceAccounts {
		if !t.HasColumns(league.AccountColumn) {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, league.AccountColumn, path)
		}
		return ref, nil
	}

	required := []string{GameIDColumn}
	if league.Official {
		required = append(required, TournamentColumn, HashColumn)
	}
	for _, c := range required {
		if !t.HasColumns(c) {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, c, path)
		}
	}

	seen := make(map[ids.Key]bool, t.Len())
	duplicates := 0
	for i := range t.Rows {
		row := t.Record(i)
		id, err := rowID(row, league.Official)
		if err != nil {
			return nil, fmt.Errorf("reference %s line %d: %w", path, i+2, err)
		}
		if seen[id.Key()] {
			duplicates++
			continue
		}
		seen[id.Key()] = true
		ref.Matches = append(ref.Matches, Match{ID: id, Row: row})
	}
	if duplicates > 0 {
		log.Printf("[Reference] %s lists %d duplicate games, keeping first occurrences", path, duplicates)
	}
	return ref, nil
}

func rowID(row map[string]string, official bool) (ids.GameID, error) {
	if !official {
		return ids.Normalize(row[GameIDColumn], false)
	}
	id := ids.NewComposite(row[GameIDColumn], row[TournamentColumn], row[HashColumn])
	if id.Match == "" || id.Tournament == "" {
		return ids.GameID{}, fmt.Errorf("%w: empty game_id or tournament", ids.ErrInvalidID)
	}
	return id, nil
}

// IDs returns the reference game ids in file order
func (r *Reference) IDs() []ids.GameID {
	out := make([]ids.GameID, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.ID)
	}
	return out
}

// Accounts returns the distinct non-empty values of column in file order
func (r *Reference) Accounts(column string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range r.Table.Column(column) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// applyTypes validates and canonicalizes typed columns. Empty cells are
// left empty.
func applyTypes(t *dataset.Table, types map[string]config.ColumnType) error {
	for col, typ := range types {
		c := t.ColumnIndex(col)
		if c < 0 {
			continue
		}
		for i, row := range t.Rows {
			v := strings.TrimSpace(row[c])
			if v == "" {
				row[c] = v
				continue
			}
			typed, err := convert(v, typ)
			if err != nil {
				return fmt.Errorf("%w: line %d column %s: %v", ErrBadValue, i+2, col, err)
			}
			row[c] = typed
		}
	}
	return nil
}

func convert(v string, typ config.ColumnType) (string, error) {
	switch typ {
	case config.TypeInt:
		n, err := ids.NormalizeInt(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case config.TypeFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case config.TypeBool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return "", err
		}
		if b {
			return "True", nil
		}
		return "False", nil
	default:
		return v, nil
	}
}
