// Package html reads tabular data out of HTML pages.
//
// Two modes are supported:
//   - table mode (default): the element matched by "selector" (default
//     "table", first match unless "index" says otherwise) is read row by row.
//   - record mode: when "record_selector" is set, every matched element is one
//     row and "fields" maps CSS selectors to columns.
package html

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dataprep/internal/config"
	"dataprep/internal/parser/csv"
	"dataprep/internal/table"
)

// ReadTable parses r and builds a table named name.
//
// Table mode options: selector, index, has_header (default true; a leading
// row made only of th cells is always a header), header_map,
// normalize_headers. Record mode options: record_selector, fields,
// array_join_separator. Both modes honor infer_types (default true).
//
// Cell text is whitespace-collapsed and trimmed; empty cells are null.
func ReadTable(ctx context.Context, name string, r io.Reader, opt config.Options) (*table.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tb *table.Table
	if rs := strings.TrimSpace(opt.String("record_selector", "")); rs != "" {
		fields, err := FieldsFromOptions(opt)
		if err != nil {
			return nil, err
		}
		tb, err = readRecords(doc, name, rs, fields, opt.String("array_join_separator", ","))
		if err != nil {
			return nil, err
		}
	} else {
		tb, err = readHTMLTable(doc, name, opt)
		if err != nil {
			return nil, err
		}
	}

	if opt.Bool("infer_types", true) {
		return table.Coerce(tb), nil
	}
	return tb, nil
}

func readHTMLTable(doc *goquery.Document, name string, opt config.Options) (*table.Table, error) {
	selector := opt.String("selector", "table")
	index := opt.Int("index", 0)

	matches := doc.Find(selector)
	if matches.Length() == 0 {
		return nil, fmt.Errorf("html: no element matches selector %q", selector)
	}
	if index < 0 || index >= matches.Length() {
		return nil, fmt.Errorf("html: selector %q matched %d elements, index %d out of range", selector, matches.Length(), index)
	}
	tbl := matches.Eq(index)

	var (
		records   [][]string
		headerRow = -1
	)
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Rows of nested tables belong to those tables.
		if !tr.Closest("table").IsSelection(tbl) && goquery.NodeName(tbl) == "table" {
			return
		}
		cells := tr.ChildrenFiltered("th,td")
		if cells.Length() == 0 {
			return
		}
		rec := make([]string, 0, cells.Length())
		allTH := true
		cells.Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) != "th" {
				allTH = false
			}
			txt := cellText(c)
			span, _ := strconv.Atoi(strings.TrimSpace(c.AttrOr("colspan", "1")))
			if span < 1 {
				span = 1
			}
			for i := 0; i < span; i++ {
				rec = append(rec, txt)
			}
		})
		if len(records) == 0 && allTH {
			headerRow = 0
		}
		records = append(records, rec)
	})

	if len(records) == 0 {
		return table.New(name, nil)
	}
	if headerRow < 0 && opt.Bool("has_header", true) {
		headerRow = 0
	}

	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}

	var (
		cols []string
		body = records
	)
	if headerRow == 0 {
		hdr := make([]string, width)
		copy(hdr, records[0])
		cols = csv.HeaderColumns(hdr, opt.StringMap("header_map"), opt.Bool("normalize_headers", false))
		body = records[1:]
	} else {
		cols = make([]string, width)
		for i := range cols {
			cols[i] = strconv.Itoa(i)
		}
	}

	tb, err := table.New(name, cols)
	if err != nil {
		return nil, err
	}
	for _, rec := range body {
		row := make([]any, width)
		for i, v := range rec {
			if v != "" {
				row[i] = v
			}
		}
		tb.Rows = append(tb.Rows, row)
	}
	return tb, nil
}

func cellText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
