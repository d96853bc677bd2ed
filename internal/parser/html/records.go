package html

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dataprep/internal/config"
	"dataprep/internal/table"
)

// Field maps one CSS selector, evaluated relative to a record element, to a
// column.
type Field struct {
	Column   string `json:"column"`
	Selector string `json:"selector"`
	Extract  string `json:"extract,omitempty"` // "text" (default) or "attr"
	Attr     string `json:"attr,omitempty"`    // used when Extract == "attr"
	Match    string `json:"match,omitempty"`   // optional regex; group 1 wins when present
	All      bool   `json:"all,omitempty"`     // join every match instead of the first
}

// FieldsFromOptions decodes the "fields" option (a list of objects).
func FieldsFromOptions(opt config.Options) ([]Field, error) {
	raw := opt.Any("fields")
	if raw == nil {
		return nil, fmt.Errorf("html: record_selector set but fields is empty")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("html: encode fields: %w", err)
	}
	var fields []Field
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("html: decode fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("html: record_selector set but fields is empty")
	}
	for i, f := range fields {
		if strings.TrimSpace(f.Column) == "" || strings.TrimSpace(f.Selector) == "" {
			return nil, fmt.Errorf("html: fields[%d] needs column and selector", i)
		}
	}
	return fields, nil
}

// readRecords emits one row per element matched by recordSelector, in DOM
// order. Records where no field produced a value are dropped.
func readRecords(doc *goquery.Document, name, recordSelector string, fields []Field, sep string) (*table.Table, error) {
	cols := make([]string, len(fields))
	res := make([]*regexp.Regexp, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
		re, err := compileOptionalRegex(f.Match, f.Column)
		if err != nil {
			return nil, err
		}
		res[i] = re
	}

	tb, err := table.New(name, cols)
	if err != nil {
		return nil, err
	}

	doc.Find(recordSelector).Each(func(_ int, rec *goquery.Selection) {
		row := make([]any, len(fields))
		var hit bool
		for i, f := range fields {
			if v := extractField(rec, f, res[i], sep); v != "" {
				row[i] = v
				hit = true
			}
		}
		if hit {
			tb.Rows = append(tb.Rows, row)
		}
	})
	return tb, nil
}

func extractField(root *goquery.Selection, f Field, re *regexp.Regexp, sep string) string {
	one := func(sel *goquery.Selection) string {
		switch f.Extract {
		case "", "text":
			return cellText(sel)
		case "attr":
			if f.Attr == "" {
				return ""
			}
			if val, ok := sel.Attr(f.Attr); ok {
				return strings.TrimSpace(val)
			}
			return ""
		default:
			return ""
		}
	}

	if f.All {
		var vals []string
		root.Find(f.Selector).Each(func(_ int, sel *goquery.Selection) {
			if v := applyRegexFilter(one(sel), re); v != "" {
				vals = append(vals, v)
			}
		})
		return strings.Join(vals, sep)
	}

	sel := root.Find(f.Selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return applyRegexFilter(one(sel), re)
}

func compileOptionalRegex(pattern, column string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("html: invalid regex for column=%q: %w", column, err)
	}
	return re, nil
}

// applyRegexFilter returns "" when re does not match, group 1 when re has
// groups, and the full match otherwise. A nil re passes value through.
func applyRegexFilter(value string, re *regexp.Regexp) string {
	if value == "" || re == nil {
		return value
	}
	sm := re.FindStringSubmatch(value)
	if len(sm) == 0 {
		return ""
	}
	if len(sm) > 1 {
		return sm[1]
	}
	return sm[0]
}
