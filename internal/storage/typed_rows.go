package storage

import (
	"strconv"

	"dataprep/internal/table"
)

// TypedRows converts every cell of t to the Go type matching its column kind,
// so database drivers receive consistent parameter types per column:
//
//   - KindInt   -> int64
//   - KindFloat -> float64
//   - KindBool  -> bool
//   - KindText / KindNull -> string
//
// Nulls stay nil. The input table is not modified.
func TypedRows(t *table.Table) ([]table.Kind, [][]any) {
	kinds := table.ColumnKinds(t)
	rows := make([][]any, len(t.Rows))
	for i, src := range t.Rows {
		row := make([]any, len(src))
		for c, v := range src {
			row[c] = typedCell(v, kinds[c])
		}
		rows[i] = row
	}
	return kinds, rows
}

func typedCell(v any, k table.Kind) any {
	if v == nil {
		return nil
	}
	switch k {
	case table.KindInt:
		switch t := v.(type) {
		case int64:
			return t
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return n
			}
		}
	case table.KindFloat:
		if f, ok := table.AsFloat(v); ok {
			return f
		}
	case table.KindBool:
		switch t := v.(type) {
		case bool:
			return t
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b
			}
		}
	}
	return table.FormatCell(v)
}

// BatchRows returns how many rows fit in one multi-row INSERT when a backend
// allows at most maxParams bound parameters per statement.
func BatchRows(columns, maxParams, maxRows int) int {
	if columns <= 0 {
		return maxRows
	}
	n := maxParams / columns
	if n < 1 {
		n = 1
	}
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	return n
}
