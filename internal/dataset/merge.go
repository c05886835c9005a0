package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrMissingColumn = errors.New("identity column missing")

// Concat stacks tables. Columns are aligned by name; the result holds the
// union of all columns in first-seen order, absent cells are empty.
func Concat(tables ...*Table) *Table {
	out := NewTable()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			out.AddColumn(c)
		}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		positions := make([]int, len(t.Columns))
		for i, c := range t.Columns {
			positions[i] = out.ColumnIndex(c)
		}
		for _, r := range t.Rows {
			row := make([]string, len(out.Columns))
			for i, v := range r {
				if i < len(positions) {
					row[positions[i]] = v
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Dedup drops rows whose identity was already seen, keeping the first
// occurrence. Rows come back densely indexed in their original order.
func Dedup(t *Table, identity []string) (*Table, error) {
	if t.Len() == 0 {
		return t.Clone(), nil
	}
	cols := make([]int, len(identity))
	for i, name := range identity {
		cols[i] = t.ColumnIndex(name)
		if cols[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	out := NewTable(t.Columns...)
	seen := make(map[string]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		k := rowKey(r, cols)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		row := make([]string, len(t.Columns))
		copy(row, r)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Merge appends added to existing and drops duplicate identities; existing
// rows win over added ones
func Merge(existing, added *Table, identity []string) (*Table, error) {
	return Dedup(Concat(existing, added), identity)
}

// Keys returns the distinct identity keys of t in first-seen order
func Keys(t *Table, columns []string) ([][]string, error) {
	cols := make([]int, len(columns))
	for i, name := range columns {
		cols[i] = t.ColumnIndex(name)
		if cols[i] < 0 {
			if t.Len() == 0 {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	seen := make(map[string]struct{})
	var out [][]string
	for _, r := range t.Rows {
		k := rowKey(r, cols)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = cell(r, c)
		}
		out = append(out, vals)
	}
	return out, nil
}

func rowKey(r []string, cols []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = Canonical(cell(r, c))
	}
	return strings.Join(parts, "\x1f")
}

func cell(r []string, c int) string {
	if c < len(r) {
		return r[c]
	}
	return ""
}

// Canonical folds numeric spellings of one value together ("123.0",
// "0123" and "123" are the same identity)
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return v
}
