package profile

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataprep/internal/table"
)

const eps = 1e-9

func column(name string, vals ...any) *table.Table {
	tb := table.MustNew("t", []string{name})
	for _, v := range vals {
		tb.Rows = append(tb.Rows, []any{v})
	}
	return tb
}

func numericOf(t *testing.T, tb *table.Table) NumericStats {
	t.Helper()
	s, err := Summarize(tb, Options{})
	require.NoError(t, err)
	require.Len(t, s.Numeric, 1)
	return s.Numeric[0]
}

func categoricalOf(t *testing.T, tb *table.Table) CategoricalStats {
	t.Helper()
	s, err := Summarize(tb, Options{})
	require.NoError(t, err)
	require.Len(t, s.Categorical, 1)
	return s.Categorical[0]
}

func TestNumeric_QuartilesAndOutliers(t *testing.T) {
	t.Parallel()

	st := numericOf(t, column("x", int64(1), int64(2), int64(3), int64(4), int64(5), int64(100)))

	assert.Equal(t, 6, st.Count)
	assert.InDelta(t, 0.0, st.MissingPercent, eps)
	assert.InDelta(t, 19.166666666666668, st.Mean, eps)
	assert.InDelta(t, 3.5, st.Median, eps)
	assert.InDelta(t, 39.62532860010963, st.Std, eps)
	assert.InDelta(t, 1.0, st.Min, eps)
	assert.InDelta(t, 2.25, st.Q1, eps)
	assert.InDelta(t, 4.75, st.Q3, eps)
	assert.InDelta(t, 100.0, st.Max, eps)
	assert.InDelta(t, 2.442472638945116, st.Skewness, 1e-9)
	assert.InDelta(t, 5.973275097072859, st.Kurtosis, 1e-9)
	assert.Equal(t, 1, st.OutlierCount)
}

func TestNumeric_BiasAdjustedMoments(t *testing.T) {
	t.Parallel()

	st := numericOf(t, column("x", 2.0, 4.0, 4.0, 4.0, 5.0, 5.0, 7.0, 9.0))

	assert.InDelta(t, 5.0, st.Mean, eps)
	assert.InDelta(t, 2.138089935299395, st.Std, eps)
	assert.InDelta(t, 0.8184875533567997, st.Skewness, 1e-9)
	assert.InDelta(t, 0.9406249999999998, st.Kurtosis, 1e-9)
	assert.InDelta(t, 4.0, st.Q1, eps)
	assert.InDelta(t, 5.5, st.Q3, eps)
	// Upper fence is 7.75.
	assert.Equal(t, 1, st.OutlierCount)
}

func TestNumeric_TextNumbersAndNulls(t *testing.T) {
	t.Parallel()

	st := numericOf(t, column("premium", "10", nil, 20.0, int64(30), nil))

	assert.Equal(t, 3, st.Count)
	assert.InDelta(t, 40.0, st.MissingPercent, eps)
	assert.InDelta(t, 20.0, st.Mean, eps)
	assert.InDelta(t, 10.0, st.Std, eps)
	assert.True(t, math.IsNaN(st.Kurtosis), "kurtosis needs 4 values")
	assert.InDelta(t, 0.0, st.Skewness, eps)
}

func TestNumeric_DegenerateSamples(t *testing.T) {
	t.Parallel()

	one := numericOf(t, column("x", 7.5))
	assert.Equal(t, 1, one.Count)
	assert.InDelta(t, 7.5, one.Mean, eps)
	assert.InDelta(t, 7.5, one.Median, eps)
	assert.True(t, math.IsNaN(one.Std))
	assert.True(t, math.IsNaN(one.Skewness))
	assert.True(t, math.IsNaN(one.Kurtosis))
	assert.Equal(t, 0, one.OutlierCount)

	constant := numericOf(t, column("x", int64(3), int64(3), int64(3), int64(3), int64(3)))
	assert.InDelta(t, 0.0, constant.Std, eps)
	assert.InDelta(t, 0.0, constant.Skewness, eps)
	assert.InDelta(t, 0.0, constant.Kurtosis, eps)
	assert.Equal(t, 0, constant.OutlierCount)

	// IQR of zero still flags values that differ from the constant bulk.
	spike := numericOf(t, column("x", 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 9.0))
	assert.Equal(t, 1, spike.OutlierCount)
}

func TestCategorical_TieBreakAndCounts(t *testing.T) {
	t.Parallel()

	st := categoricalOf(t, column("make", "b", "a", "b", "a", nil))

	assert.Equal(t, 4, st.Count)
	assert.InDelta(t, 20.0, st.MissingPercent, eps)
	assert.Equal(t, 2, st.Unique)
	assert.Equal(t, "b", st.Top)
	assert.Equal(t, 2, st.TopFreq)
}

func TestCategorical_MixedValuesCompareAsText(t *testing.T) {
	t.Parallel()

	st := categoricalOf(t, column("code", "x", int64(1), "1", true))
	assert.Equal(t, 3, st.Unique)
	assert.Equal(t, int64(1), st.Top)
	assert.Equal(t, 2, st.TopFreq)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tb := table.MustNew("t", []string{"num", "text", "allnull", "bools", "numtext"})
	tb.Rows = [][]any{
		{int64(1), "a", nil, true, "1.5"},
		{2.5, "b", nil, false, " 2 "},
		{nil, nil, nil, nil, nil},
	}
	assert.Equal(t, []ColumnClass{Numeric, Categorical, Categorical, Categorical, Numeric}, Classify(tb))

	empty := table.MustNew("e", []string{"x"})
	assert.Equal(t, []ColumnClass{Categorical}, Classify(empty))
}

func TestSummarize_AllNullAndZeroRows(t *testing.T) {
	t.Parallel()

	st := categoricalOf(t, column("x", nil, nil))
	assert.Equal(t, 0, st.Count)
	assert.InDelta(t, 100.0, st.MissingPercent, eps)
	assert.Nil(t, st.Top)
	assert.Equal(t, 0, st.TopFreq)

	zero := categoricalOf(t, column("x"))
	assert.True(t, math.IsNaN(zero.MissingPercent))

	_, cat := Summary{Categorical: []CategoricalStats{zero}}.Tables()
	assert.Nil(t, cat.Rows[0][2], "missing_percent of a zero-row table is null")
}

func TestSummarize_ColumnsOption(t *testing.T) {
	t.Parallel()

	tb := table.MustNew("final.csv", []string{"a", "b", "c"})
	tb.Rows = [][]any{{int64(1), "x", int64(2)}}

	s, err := Summarize(tb, Options{Columns: []string{"c", "b"}})
	require.NoError(t, err)
	require.Len(t, s.Numeric, 1)
	assert.Equal(t, "c", s.Numeric[0].Column)
	require.Len(t, s.Categorical, 1)
	assert.Equal(t, "b", s.Categorical[0].Column)

	_, err = Summarize(tb, Options{Columns: []string{"nope"}})
	var mce *table.MissingColumnError
	require.True(t, errors.As(err, &mce), "err=%v", err)
	assert.Equal(t, "nope", mce.Column)
	assert.Equal(t, "final.csv", mce.Table)
}

func TestSummary_Tables(t *testing.T) {
	t.Parallel()

	tb := table.MustNew("t", []string{"n", "c"})
	tb.Rows = [][]any{{int64(5), "z"}}

	s, err := Summarize(tb, Options{})
	require.NoError(t, err)
	num, cat := s.Tables()

	assert.Equal(t, NumericColumns, num.Columns)
	assert.Equal(t, []any{
		"n", int64(1), 0.0, 5.0, 5.0, nil, 5.0, 5.0, 5.0, 5.0, nil, nil, int64(0),
	}, num.Rows[0])

	assert.Equal(t, CategoricalColumns, cat.Columns)
	assert.Equal(t, []any{"c", int64(1), 0.0, int64(1), "z", int64(1)}, cat.Rows[0])
}

func TestRender(t *testing.T) {
	t.Parallel()

	tb := table.MustNew("s", []string{"column", "std"})
	tb.Rows = [][]any{{"a", nil}, {"bb", 0.1234567}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "Numeric Summary", tb))
	assert.Equal(t, "Numeric Summary\ncolumn  std\na       NaN\nbb      0.123457\n", buf.String())

	buf.Reset()
	require.NoError(t, Render(&buf, "", table.MustNew("s", []string{"column"})))
	assert.Equal(t, "column\n(no columns)\n", buf.String())
}
