// Package join implements an inner join of two tables on one key column each.
package join

import (
	"dataprep/internal/table"
)

// Default suffixes for non-key columns present on both sides.
const (
	DefaultLeftSuffix  = "_x"
	DefaultRightSuffix = "_y"
)

// Options tunes InnerJoin.
type Options struct {
	LeftSuffix  string // default "_x"
	RightSuffix string // default "_y"
	Name        string // output table name (default "joined")
}

// InnerJoin returns every (left row, right row) pair whose normalized keys
// are equal, left rows in order and, per left row, right rows in order.
//
// Both key columns are normalized with table.NormalizeKey, so 123, 123.0 and
// "123" match; null keys never match. The output holds the left columns
// followed by the right columns, with key columns carrying the normalized
// text. When leftKey == rightKey the key is emitted once. Any other name on
// both sides is suffixed with LeftSuffix / RightSuffix, and a suffixed name
// that still collides gets "_2", "_3", ...
//
// Errors: *table.MissingColumnError (Side "left" or "right") for a missing key.
func InnerJoin(left *table.Table, leftKey string, right *table.Table, rightKey string, opt Options) (*table.Table, error) {
	li := left.ColumnIndex(leftKey)
	if li < 0 {
		return nil, &table.MissingColumnError{Table: left.Name, Column: leftKey, Side: "left"}
	}
	ri := right.ColumnIndex(rightKey)
	if ri < 0 {
		return nil, &table.MissingColumnError{Table: right.Name, Column: rightKey, Side: "right"}
	}

	if opt.LeftSuffix == "" {
		opt.LeftSuffix = DefaultLeftSuffix
	}
	if opt.RightSuffix == "" {
		opt.RightSuffix = DefaultRightSuffix
	}
	if opt.Name == "" {
		opt.Name = "joined"
	}

	sharedKey := leftKey == rightKey

	// Right columns that make it to the output, by source position.
	rightPos := make([]int, 0, len(right.Columns))
	for i := range right.Columns {
		if sharedKey && i == ri {
			continue
		}
		rightPos = append(rightPos, i)
	}

	cols := outputColumns(left, right, rightPos, opt)
	out, err := table.New(opt.Name, cols)
	if err != nil {
		return nil, err
	}

	// Build: index right rows by normalized key.
	index := make(map[string][]int, len(right.Rows))
	rightKeys := make([]string, len(right.Rows))
	for i, r := range right.Rows {
		k, ok := table.NormalizeKey(r[ri])
		if !ok {
			continue
		}
		rightKeys[i] = k
		index[k] = append(index[k], i)
	}

	// Probe: walk left rows in order.
	riOut := -1
	for j, p := range rightPos {
		if p == ri {
			riOut = len(left.Columns) + j
		}
	}
	for _, lr := range left.Rows {
		k, ok := table.NormalizeKey(lr[li])
		if !ok {
			continue
		}
		matches := index[k]
		for _, m := range matches {
			rr := right.Rows[m]
			row := make([]any, 0, len(cols))
			row = append(row, lr...)
			row[li] = k
			for _, p := range rightPos {
				row = append(row, rr[p])
			}
			if riOut >= 0 {
				row[riOut] = rightKeys[m]
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// outputColumns names the joined columns: left columns, then the emitted
// right columns, suffixing names present on both sides.
func outputColumns(left, right *table.Table, rightPos []int, opt Options) []string {
	leftSet := make(map[string]struct{}, len(left.Columns))
	for _, c := range left.Columns {
		leftSet[c] = struct{}{}
	}
	rightSet := make(map[string]struct{}, len(rightPos))
	for _, p := range rightPos {
		rightSet[right.Columns[p]] = struct{}{}
	}

	taken := make(map[string]struct{}, len(left.Columns)+len(rightPos))
	cols := make([]string, 0, len(left.Columns)+len(rightPos))
	add := func(name string) {
		name = table.UniqueName(name, taken)
		taken[name] = struct{}{}
		cols = append(cols, name)
	}

	for _, c := range left.Columns {
		if _, overlap := rightSet[c]; overlap {
			c += opt.LeftSuffix
		}
		add(c)
	}
	for _, p := range rightPos {
		c := right.Columns[p]
		if _, overlap := leftSet[c]; overlap {
			c += opt.RightSuffix
		}
		add(c)
	}
	return cols
}
