package table

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeKey converts a join key cell to its canonical text form, so that
// numeric and textual spellings of the same identifier compare equal
// (e.g. int64(123), 123.0 and "123").
//
// The second result is false for null cells, which never match anything.
func NormalizeKey(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case []byte:
		return strings.TrimSpace(string(t)), true
	default:
		return strings.TrimSpace(fmt.Sprint(v)), true
	}
}

// FormatCell renders a cell for text outputs (CSV, reports). Nulls render as "".
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s, _ := NormalizeKey(v)
		return s
	}
}
