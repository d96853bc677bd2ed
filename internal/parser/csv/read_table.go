// Package csv reads delimited text into a table.Table.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dataprep/internal/config"
	"dataprep/internal/table"
)

// DefaultNullValues are the tokens read as missing when the null_values
// option is not set. The empty string is always missing.
var DefaultNullValues = []string{
	"#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// BadRowError reports a record with more fields than the header.
type BadRowError struct {
	Line     int
	Expected int
	Got      int
}

func (e *BadRowError) Error() string {
	return fmt.Sprintf("line %d: expected %d fields, saw %d", e.Line, e.Expected, e.Got)
}

// ReadTable reads all of src into a table named name.
//
// Options (config.Options keys):
//   - comma (rune, default ',')
//   - has_header (bool, default true); without a header columns are "0", "1", ...
//   - trim_space (bool, default true)
//   - lazy_quotes (bool, default false)
//   - header_map (map[string]string) renames source headers
//   - normalize_headers (bool, default false) lowercases and accent-folds
//     unmapped headers, replacing other runes with '_'
//   - null_values ([]string) replaces DefaultNullValues
//   - encoding (string) any WHATWG label, e.g. "windows-1250"; default UTF-8
//   - infer_types (bool, default true) coerces columns to int/float/bool
//   - skip_bad_rows (bool, default false) skips malformed records instead of
//     failing; onErr (optional) is told about every skipped record
//
// Short records are padded with nulls. Duplicate headers become "name.1",
// "name.2"; empty headers become "Unnamed: <i>".
func ReadTable(
	ctx context.Context,
	name string,
	src io.Reader,
	opt config.Options,
	onErr func(line int, err error),
) (*table.Table, error) {
	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", true)
	skipBad := opt.Bool("skip_bad_rows", false)
	nulls := nullSet(opt)

	r, err := decodeReader(src, opt.String("encoding", ""))
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	var tb *table.Table
	var pending []string

	first, err := readRec()
	if errors.Is(err, io.EOF) {
		return table.New(name, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(first) > 0 {
		first[0] = strings.TrimPrefix(first[0], "\uFEFF")
	}

	if hasHeader {
		cols := HeaderColumns(first, opt.StringMap("header_map"), opt.Bool("normalize_headers", false))
		if tb, err = table.New(name, cols); err != nil {
			return nil, err
		}
	} else {
		cols := make([]string, len(first))
		for i := range cols {
			cols[i] = strconv.Itoa(i)
		}
		if tb, err = table.New(name, cols); err != nil {
			return nil, err
		}
		pending = append([]string(nil), first...)
	}

	width := len(tb.Columns)
	toRow := func(rec []string) []any {
		row := make([]any, width)
		for i := 0; i < width && i < len(rec); i++ {
			v := rec[i]
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				continue
			}
			if _, isNull := nulls[v]; isNull {
				continue
			}
			row[i] = v
		}
		return row
	}

	if pending != nil {
		tb.Rows = append(tb.Rows, toRow(pending))
	}

	for {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := readRec()
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil && len(rec) > width {
			err = &BadRowError{Line: line, Expected: width, Got: len(rec)}
		}
		if err != nil {
			if !skipBad {
				return nil, fmt.Errorf("csv read: %w", err)
			}
			if onErr != nil {
				onErr(line, err)
			}
			continue
		}
		tb.Rows = append(tb.Rows, toRow(rec))
	}

	if opt.Bool("infer_types", true) {
		return table.Coerce(tb), nil
	}
	return tb, nil
}

func nullSet(opt config.Options) map[string]struct{} {
	vals := DefaultNullValues
	if opt.Any("null_values") != nil {
		vals = opt.Strings("null_values")
	}
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}

// HeaderColumns resolves the final column names of a header record.
func HeaderColumns(hdr []string, hm map[string]string, normalize bool) []string {
	cols := make([]string, len(hdr))
	taken := make(map[string]struct{}, len(hdr))
	counts := make(map[string]int, len(hdr))

	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if mapped, ok := hm[h]; ok {
			h = mapped
		} else if normalize {
			h = NormalizeHeader(h)
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}

		name := h
		if _, dup := taken[name]; dup {
			for {
				counts[h]++
				name = fmt.Sprintf("%s.%d", h, counts[h])
				if _, dup := taken[name]; !dup {
					break
				}
			}
		}
		taken[name] = struct{}{}
		cols[i] = name
	}
	return cols
}
