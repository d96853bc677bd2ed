// Package table defines the in-memory tabular data model shared by the loaders,
// the union/join stages, the profiler and the storage sinks.
//
// A Table is an ordered sequence of positional rows over a fixed set of uniquely
// named columns. Cells hold one of:
//   - nil      (null / missing)
//   - int64
//   - float64
//   - bool
//   - string
//
// Tables are treated as values: every transformation in this module returns a
// new Table and never mutates its inputs.
package table

import (
	"fmt"
	"strings"
)

// Table is a named, rectangular set of rows.
type Table struct {
	// Name identifies the table in logs and errors (usually the source path).
	Name string

	// Columns holds the column names in output order. Names are unique.
	Columns []string

	// Rows holds positional rows aligned to Columns.
	Rows [][]any
}

// New constructs an empty table with the given columns.
//
// Errors:
//   - Returns an error if a column name is empty or appears more than once.
func New(name string, columns []string) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("table %s: empty column name", name)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, c)
		}
		seen[c] = struct{}{}
	}
	return &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}, nil
}

// MustNew is New for statically known column sets (tests, summary tables).
func MustNew(name string, columns []string) *Table {
	t, err := New(name, columns)
	if err != nil {
		panic(err)
	}
	return t
}

// Append adds a row. Short rows are padded with nulls; long rows are an error.
func (t *Table) Append(row []any) error {
	if len(row) > len(t.Columns) {
		return fmt.Errorf("table %s: row has %d values, want at most %d", t.Name, len(row), len(t.Columns))
	}
	r := make([]any, len(t.Columns))
	copy(r, row)
	t.Rows = append(t.Rows, r)
	return nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.Columns) }

// Shape renders "(rows, cols)" the way the CLIs report loaded tables.
func (t *Table) Shape() string {
	return fmt.Sprintf("(%d, %d)", t.NumRows(), t.NumColumns())
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Column returns a copy of the values of the named column.
func (t *Table) Column(name string) ([]any, error) {
	ix := t.ColumnIndex(name)
	if ix < 0 {
		return nil, &MissingColumnError{Table: t.Name, Column: name}
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[ix]
	}
	return out, nil
}

// Value returns the cell at (row, column name) and whether the column exists.
func (t *Table) Value(row int, column string) (any, bool) {
	ix := t.ColumnIndex(column)
	if ix < 0 || row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[row][ix], true
}

// Clone returns a deep copy of the table's structure. Cell values are scalars
// and are shared.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}

// UniqueName returns name if it is not in taken, otherwise name_2, name_3, ...
func UniqueName(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	for i := 2; ; i++ {
		cand := fmt.Sprintf("%s_%d", name, i)
		if _, ok := taken[cand]; !ok {
			return cand
		}
	}
}

// String renders a short description for logs.
func (t *Table) String() string {
	return fmt.Sprintf("table %s shape=%s columns=[%s]", t.Name, t.Shape(), strings.Join(t.Columns, ","))
}
