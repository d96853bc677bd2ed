package table

import (
	"fmt"
	"strings"
)

// MissingColumnError reports a requested column (join key, profile column)
// that does not exist in a table.
type MissingColumnError struct {
	Table  string // table name (source path)
	Column string // requested column
	Side   string // "left" / "right" for joins, empty otherwise
}

func (e *MissingColumnError) Error() string {
	var parts []string
	if e.Side != "" {
		parts = append(parts, e.Side+" table")
	} else {
		parts = append(parts, "table")
	}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("%q", e.Table))
	}
	return fmt.Sprintf("column %q not found in %s", e.Column, strings.Join(parts, " "))
}
