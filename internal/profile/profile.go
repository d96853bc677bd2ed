// Package profile computes per-column distribution summaries.
//
// Columns are classified first: a column is numeric when it has at least one
// non-null value and every non-null value is a number (int64, float64 or text
// parsing as a finite number). Everything else, including all-null columns,
// is categorical. Numeric columns get describe-style statistics plus the
// 1.5×IQR outlier count; categorical columns get count, distinct count and
// the most frequent value.
//
// Statistics that are undefined for the available data are NaN in the stats
// structs and null in the tables returned by Summary.Tables. They are never
// errors.
package profile

import (
	"math"

	"dataprep/internal/table"
)

// ColumnClass is the profiling class of a column.
type ColumnClass int

const (
	Categorical ColumnClass = iota
	Numeric
)

func (c ColumnClass) String() string {
	if c == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Options tunes Summarize.
type Options struct {
	// Columns restricts profiling to these columns (table order is kept).
	// Empty means every column.
	Columns []string
}

// NumericStats summarizes one numeric column.
type NumericStats struct {
	Column         string
	Count          int
	MissingPercent float64
	Mean           float64
	Median         float64
	Std            float64
	Min            float64
	Q1             float64
	Q3             float64
	Max            float64
	Skewness       float64
	Kurtosis       float64
	OutlierCount   int
}

// CategoricalStats summarizes one categorical column.
type CategoricalStats struct {
	Column         string
	Count          int
	MissingPercent float64
	Unique         int
	Top            any // first-seen value among the most frequent; nil when all null
	TopFreq        int
}

// Summary holds the per-column statistics of one table, in column order.
type Summary struct {
	Table       string
	Rows        int
	Numeric     []NumericStats
	Categorical []CategoricalStats
}

// Classify returns the class of every column of t.
func Classify(t *table.Table) []ColumnClass {
	out := make([]ColumnClass, len(t.Columns))
	for c := range t.Columns {
		out[c] = classify(t, c)
	}
	return out
}

func classify(t *table.Table, c int) ColumnClass {
	seen := false
	for _, r := range t.Rows {
		v := r[c]
		if v == nil {
			continue
		}
		if !table.IsNumber(v) {
			return Categorical
		}
		seen = true
	}
	if !seen {
		return Categorical
	}
	return Numeric
}

// Summarize profiles t. It fails only with *table.MissingColumnError when
// opt.Columns names a column t does not have.
func Summarize(t *table.Table, opt Options) (Summary, error) {
	idx, err := selectColumns(t, opt.Columns)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Table: t.Name, Rows: t.NumRows()}
	for _, c := range idx {
		switch classify(t, c) {
		case Numeric:
			s.Numeric = append(s.Numeric, numericStats(t, c))
		default:
			s.Categorical = append(s.Categorical, categoricalStats(t, c))
		}
	}
	return s, nil
}

func selectColumns(t *table.Table, names []string) ([]int, error) {
	if len(names) == 0 {
		idx := make([]int, len(t.Columns))
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	want := make(map[int]struct{}, len(names))
	for _, n := range names {
		ix := t.ColumnIndex(n)
		if ix < 0 {
			return nil, &table.MissingColumnError{Table: t.Name, Column: n}
		}
		want[ix] = struct{}{}
	}
	idx := make([]int, 0, len(want))
	for i := range t.Columns {
		if _, ok := want[i]; ok {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

func missingPercent(total, count int) float64 {
	if total == 0 {
		return math.NaN()
	}
	return float64(total-count) / float64(total) * 100
}

func numericStats(t *table.Table, c int) NumericStats {
	xs := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if f, ok := table.AsFloat(r[c]); ok {
			xs = append(xs, f)
		}
	}

	m := newMoments(xs)
	q1, q3 := m.quantile(0.25), m.quantile(0.75)
	return NumericStats{
		Column:         t.Columns[c],
		Count:          len(xs),
		MissingPercent: missingPercent(len(t.Rows), len(xs)),
		Mean:           m.mean,
		Median:         m.quantile(0.5),
		Std:            m.std(),
		Min:            m.min,
		Q1:             q1,
		Q3:             q3,
		Max:            m.max,
		Skewness:       m.skewness(),
		Kurtosis:       m.kurtosis(),
		OutlierCount:   outliers(m.sorted, q1, q3),
	}
}

func categoricalStats(t *table.Table, c int) CategoricalStats {
	counts := map[string]int{}
	first := map[string]any{}
	var order []string
	count := 0

	for _, r := range t.Rows {
		v := r[c]
		if v == nil {
			continue
		}
		count++
		k := table.FormatCell(v)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
			first[k] = v
		}
		counts[k]++
	}

	st := CategoricalStats{
		Column:         t.Columns[c],
		Count:          count,
		MissingPercent: missingPercent(len(t.Rows), count),
		Unique:         len(order),
	}
	// Strictly greater keeps the first-seen value on ties.
	for _, k := range order {
		if counts[k] > st.TopFreq {
			st.TopFreq = counts[k]
			st.Top = first[k]
		}
	}
	return st
}

// Column headers of the summary tables.
var (
	NumericColumns = []string{
		"column", "count", "missing_percent", "mean", "median", "std",
		"min", "25%", "75%", "max", "skewness", "kurtosis", "outlier_count",
	}
	CategoricalColumns = []string{
		"column", "count", "missing_percent", "unique", "top", "top_freq",
	}
)

// Tables renders the summary as two tables, one row per profiled column.
// NaN statistics become null cells; top is rendered as text.
func (s Summary) Tables() (numeric, categorical *table.Table) {
	numeric = table.MustNew("numeric_summary", NumericColumns)
	for _, n := range s.Numeric {
		numeric.Rows = append(numeric.Rows, []any{
			n.Column,
			int64(n.Count),
			cell(n.MissingPercent),
			cell(n.Mean),
			cell(n.Median),
			cell(n.Std),
			cell(n.Min),
			cell(n.Q1),
			cell(n.Q3),
			cell(n.Max),
			cell(n.Skewness),
			cell(n.Kurtosis),
			int64(n.OutlierCount),
		})
	}

	categorical = table.MustNew("categorical_summary", CategoricalColumns)
	for _, c := range s.Categorical {
		var top any
		if c.Top != nil {
			top = table.FormatCell(c.Top)
		}
		categorical.Rows = append(categorical.Rows, []any{
			c.Column,
			int64(c.Count),
			cell(c.MissingPercent),
			int64(c.Unique),
			top,
			int64(c.TopFreq),
		})
	}
	return numeric, categorical
}

func cell(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
