package profile

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"dataprep/internal/table"
)

// Render writes t as a tab-aligned text block under title. Floats are
// rounded to 6 decimals and null cells print as NaN.
func Render(w io.Writer, title string, t *table.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if title != "" {
		if _, err := fmt.Fprintln(tw, title); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(tw, strings.Join(t.Columns, "\t")); err != nil {
		return err
	}
	if t.NumRows() == 0 {
		if _, err := fmt.Fprintln(tw, "(no columns)"); err != nil {
			return err
		}
	}

	cells := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, v := range r {
			cells[i] = renderCell(v)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func renderCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "NaN"
	case float64:
		return strconv.FormatFloat(math.Round(t*1e6)/1e6, 'f', -1, 64)
	default:
		return table.FormatCell(v)
	}
}
