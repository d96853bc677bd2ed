// Package json reads JSON records into a table.Table.
package json

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataprep/internal/config"
	"dataprep/internal/table"
)

// ReadTable decodes JSON records from r into a table named name.
//
// Accepted shapes:
//   - a root array of objects
//   - a root object holding an array of objects (envelope); the first array
//     field is used unless records_key names another
//   - a single root object (one record)
//   - JSON lines: objects following the root value
//
// Columns are the union of record keys in first-seen order; records missing
// a key get null. Numbers decode as int64 when integral, float64 otherwise.
// Arrays of strings are joined with array_join_separator (default ","); other
// nested values are kept as compact JSON text.
//
// Options: header_map, records_key, array_join_separator, infer_types
// (default false; JSON values are already typed).
func ReadTable(ctx context.Context, name string, r io.Reader, opt config.Options) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	b := &builder{
		headerMap: opt.StringMap("header_map"),
		colIx:     map[string]int{},
	}
	sep := opt.String("array_join_separator", ",")
	if sep == "" {
		sep = ","
	}
	b.sep = sep
	recordsKey := opt.String("records_key", "")

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return table.New(name, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("json: read first token: %w", err)
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("json: unsupported root token %T (want object or array)", tok)
	}

	switch d {
	case '[':
		if err := readArrayOfObjects(ctx, dec, b); err != nil {
			return nil, err
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
	case '{':
		if err := readEnvelopeOrSingle(ctx, dec, b, recordsKey); err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("json: unsupported root delimiter %q", d)
	}

	if err := readTrailingObjects(ctx, dec, b); err != nil {
		return nil, err
	}

	tb, err := b.table(name)
	if err != nil {
		return nil, err
	}
	if opt.Bool("infer_types", false) {
		return table.Coerce(tb), nil
	}
	return tb, nil
}

// builder accumulates records whose key sets may differ.
type builder struct {
	headerMap map[string]string
	sep       string
	cols      []string
	colIx     map[string]int
	rows      [][]any
}

func (b *builder) add(keys []string, vals map[string]any) {
	row := make([]any, len(b.cols), len(b.cols)+len(keys))
	for _, k := range keys {
		col := k
		if mapped, ok := b.headerMap[k]; ok && mapped != "" {
			col = mapped
		}
		ix, ok := b.colIx[col]
		if !ok {
			ix = len(b.cols)
			b.cols = append(b.cols, col)
			b.colIx[col] = ix
		}
		for len(row) <= ix {
			row = append(row, nil)
		}
		row[ix] = cellValue(vals[k], b.sep)
	}
	b.rows = append(b.rows, row)
}

func (b *builder) table(name string) (*table.Table, error) {
	tb, err := table.New(name, b.cols)
	if err != nil {
		return nil, err
	}
	for _, r := range b.rows {
		if err := tb.Append(r); err != nil {
			return nil, err
		}
	}
	return tb, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: read %q: %w", want, err)
	}
	if tok != want {
		return fmt.Errorf("json: expected %q, got %v", want, tok)
	}
	return nil
}

// readArrayOfObjects reads array elements after '[' has been consumed.
// null elements are skipped; any other non-object element is an error.
func readArrayOfObjects(ctx context.Context, dec *json.Decoder, b *builder) error {
	for n := 0; dec.More(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: decode array element %d: %w", n, err)
		}
		if tok == nil {
			continue
		}
		if tok != json.Delim('{') {
			return fmt.Errorf("json: array element %d not an object (got %v)", n, tok)
		}
		keys, vals, err := readObjectBody(dec)
		if err != nil {
			return err
		}
		b.add(keys, vals)
	}
	return nil
}

// readEnvelopeOrSingle walks a root object after '{' has been consumed.
func readEnvelopeOrSingle(ctx context.Context, dec *json.Decoder, b *builder, recordsKey string) error {
	var (
		keys     []string
		vals     = map[string]any{}
		streamed bool
	)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("json: object key not a string (got %T)", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: read object value: %w", err)
		}

		isArray := valTok == json.Delim('[')
		switch {
		case streamed:
			if err := skipValue(dec, valTok); err != nil {
				return err
			}
		case isArray && (recordsKey == "" || recordsKey == key):
			if err := readArrayOfObjects(ctx, dec, b); err != nil {
				return err
			}
			if err := expectDelim(dec, ']'); err != nil {
				return err
			}
			streamed = true
		default:
			v, err := readValue(dec, valTok)
			if err != nil {
				return err
			}
			if _, seen := vals[key]; !seen {
				keys = append(keys, key)
			}
			vals[key] = v
		}
	}

	if !streamed {
		if recordsKey != "" {
			return fmt.Errorf("json: records_key %q not found or not an array", recordsKey)
		}
		b.add(keys, vals)
	}
	return nil
}

// readTrailingObjects reads JSON-lines objects following the root value.
func readTrailingObjects(ctx context.Context, dec *json.Decoder, b *builder) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("json: decode trailing object: %w", err)
		}
		if tok != json.Delim('{') {
			return fmt.Errorf("json: trailing value is not an object (got %v)", tok)
		}
		keys, vals, err := readObjectBody(dec)
		if err != nil {
			return err
		}
		b.add(keys, vals)
	}
}

// readObjectBody reads key/value pairs after '{' and consumes the closing '}'.
// Keys are returned in document order.
func readObjectBody(dec *json.Decoder) ([]string, map[string]any, error) {
	var keys []string
	vals := map[string]any{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("json: read object key: %w", err)
		}
		k, ok := kt.(string)
		if !ok {
			return nil, nil, fmt.Errorf("json: object key not a string (got %T)", kt)
		}
		vt, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("json: read value of %q: %w", k, err)
		}
		v, err := readValue(dec, vt)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := vals[k]; !seen {
			keys = append(keys, k)
		}
		vals[k] = v
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return keys, vals, nil
}

// readValue materializes the value whose first token has been read.
func readValue(dec *json.Decoder, tok any) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		_, m, err := readObjectBody(dec)
		return m, err
	case '[':
		var arr []any
		for dec.More() {
			vt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: read array value: %w", err)
			}
			v, err := readValue(dec, vt)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("json: unexpected delimiter %q", d)
	}
}

// skipValue consumes the value whose first token has been read.
func skipValue(dec *json.Decoder, tok any) error {
	_, err := readValue(dec, tok)
	return err
}

// cellValue converts a decoded JSON value into a table cell.
func cellValue(v any, sep string) any {
	switch t := v.(type) {
	case nil, string, bool:
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		ss := make([]string, 0, len(t))
		for _, it := range t {
			if it == nil {
				continue
			}
			s, ok := it.(string)
			if !ok {
				return compactJSON(t)
			}
			ss = append(ss, s)
		}
		return strings.Join(ss, sep)
	default:
		return compactJSON(t)
	}
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
