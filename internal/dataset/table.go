package dataset

import "fmt"

// Table is an ordered set of named columns holding string cells. Cells are
// kept as text so a dataset round-trips through CSV, XLSX and SQL unchanged.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable creates an empty table with the given columns
func NewTable(columns ...string) *Table {
	t := &Table{Columns: append([]string(nil), columns...), Rows: make([][]string, 0)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, -1 when absent
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok && i < len(t.Columns) && t.Columns[i] == name {
		return i
	}
	// Columns may have been assigned directly
	t.reindex()
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumns reports whether every name is a column of t
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if t.ColumnIndex(n) < 0 {
			return false
		}
	}
	return true
}

// AddColumn appends a column if missing and returns its position
func (t *Table) AddColumn(name string) int {
	if i := t.ColumnIndex(name); i >= 0 {
		return i
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	return len(t.Columns) - 1
}

// AppendRow appends values in column order
func (t *Table) AppendRow(values []string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]string(nil), values...))
	return nil
}

// AppendMap appends a row addressed by column name, adding unknown columns
func (t *Table) AppendMap(row map[string]string, order []string) {
	for _, c := range order {
		t.AddColumn(c)
	}
	for c := range row {
		t.AddColumn(c)
	}
	values := make([]string, len(t.Columns))
	for c, v := range row {
		values[t.ColumnIndex(c)] = v
	}
	t.Rows = append(t.Rows, values)
}

// Value returns the cell at row i, column name; missing cells read as ""
func (t *Table) Value(i int, name string) string {
	c := t.ColumnIndex(name)
	if c < 0 || i < 0 || i >= len(t.Rows) || c >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][c]
}

// Column returns every value of a column in row order
func (t *Table) Column(name string) []string {
	out := make([]string, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, t.Value(i, name))
	}
	return out
}

// Record returns row i as a column→value map
func (t *Table) Record(i int) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		rec[c] = t.Value(i, c)
	}
	return rec
}

// Clone deep-copies the table
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(t.Columns))
		copy(row, r)
		out.Rows = append(out.Rows, row)
	}
	return out
}
