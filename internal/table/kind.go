package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the logical type of a column (or of a single cell).
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	default:
		return "text"
	}
}

// Numeric reports whether values of this kind are numbers.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// InferKind infers a column kind from its values.
//
// Rules (most specific wins):
//   - no non-null values        => KindNull
//   - all parse as integers     => KindInt
//   - all parse as finite floats => KindFloat
//   - all are true/false        => KindBool
//   - otherwise                 => KindText
//
// Text cells are parsed after trimming; typed cells count as their own kind.
func InferKind(values []any) Kind {
	var seen bool
	allInt, allFloat, allBool := true, true, true

	for _, v := range values {
		if v == nil {
			continue
		}
		seen = true
		switch t := v.(type) {
		case int64:
			allBool = false
		case float64:
			allInt = false
			allBool = false
			if math.IsNaN(t) || math.IsInf(t, 0) {
				allFloat = false
			}
		case bool:
			allInt = false
			allFloat = false
		case string:
			s := strings.TrimSpace(t)
			if allInt {
				if _, err := strconv.ParseInt(s, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, ok := ParseNumber(s); !ok {
					allFloat = false
				}
			}
			if allBool {
				if _, ok := parseBool(s); !ok {
					allBool = false
				}
			}
		default:
			return KindText
		}
		if !allInt && !allFloat && !allBool {
			return KindText
		}
	}

	switch {
	case !seen:
		return KindNull
	case allInt:
		return KindInt
	case allFloat:
		return KindFloat
	case allBool:
		return KindBool
	default:
		return KindText
	}
}

// ColumnKinds infers the kind of every column of t.
func ColumnKinds(t *Table) []Kind {
	out := make([]Kind, len(t.Columns))
	col := make([]any, len(t.Rows))
	for c := range t.Columns {
		for r, row := range t.Rows {
			col[r] = row[c]
		}
		out[c] = InferKind(col)
	}
	return out
}

// Coerce returns a copy of t whose text cells are converted to the inferred
// kind of their column. Columns inferred as text or null are copied unchanged.
func Coerce(t *Table) *Table {
	out := t.Clone()
	kinds := ColumnKinds(t)
	for c, k := range kinds {
		if k == KindText || k == KindNull {
			continue
		}
		for _, row := range out.Rows {
			row[c] = convert(row[c], k)
		}
	}
	return out
}

func convert(v any, k Kind) any {
	s, ok := v.(string)
	if !ok {
		if f, isFloat := v.(float64); isFloat && k == KindFloat {
			return f
		}
		if i, isInt := v.(int64); isInt && k == KindFloat {
			return float64(i)
		}
		return v
	}
	s = strings.TrimSpace(s)
	switch k {
	case KindInt:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case KindFloat:
		if f, ok := ParseNumber(s); ok {
			return f
		}
	case KindBool:
		if b, ok := parseBool(s); ok {
			return b
		}
	}
	return v
}

// ParseNumber parses s as a finite float. NaN and infinities are rejected so
// that tokens like "NaN" never make a column numeric.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AsFloat returns the numeric value of a cell, if it has one.
// Booleans are not numbers.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case string:
		return ParseNumber(t)
	default:
		return 0, false
	}
}

// IsNumber reports whether a non-null cell is numeric.
func IsNumber(v any) bool {
	_, ok := AsFloat(v)
	return ok
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
