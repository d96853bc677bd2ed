package combine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataprep/internal/loader"
	"dataprep/internal/table"
)

func mk(t *testing.T, name string, cols []string, rows ...[]any) *table.Table {
	t.Helper()
	tb := table.MustNew(name, cols)
	for _, r := range rows {
		require.NoError(t, tb.Append(r))
	}
	return tb
}

func TestUnion_AlignsColumnsByName(t *testing.T) {
	t.Parallel()

	a := mk(t, "A", []string{"id", "x"}, []any{int64(1), int64(10)}, []any{int64(2), int64(20)})
	b := mk(t, "B", []string{"id", "y"}, []any{int64(3), int64(30)})

	got, err := Union(a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "x", "y"}, got.Columns)
	assert.Equal(t, [][]any{
		{int64(1), int64(10), nil},
		{int64(2), int64(20), nil},
		{int64(3), nil, int64(30)},
	}, got.Rows)

	// Inputs are untouched.
	assert.Equal(t, []string{"id", "y"}, b.Columns)
	assert.Len(t, b.Rows[0], 2)
}

func TestUnion_RowCountIsSumAndColumnOrderFirstSeen(t *testing.T) {
	t.Parallel()

	a := mk(t, "A", []string{"b", "a"}, []any{1, 2})
	b := mk(t, "B", []string{"c", "a"}, []any{3, 4}, []any{5, 6})
	c := mk(t, "C", nil)

	got, err := Union(a, b, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, got.Columns)
	assert.Equal(t, 3, got.NumRows())
	assert.Equal(t, []any{nil, 4, 3}, got.Rows[1])
}

func TestUnion_NoTables(t *testing.T) {
	t.Parallel()

	_, err := Union()
	var eie *EmptyInputError
	require.True(t, errors.As(err, &eie), "err=%v", err)
}

func fakeLoad(tables map[string]*table.Table) LoadFunc {
	return func(ctx context.Context, src loader.Source) (*table.Table, error) {
		t, ok := tables[src.Path]
		if !ok {
			return nil, &loader.SourceUnavailableError{Source: src.Path, Err: errors.New("not found")}
		}
		return t, nil
	}
}

func TestCombine_SkipsFailuresAndReportsInInputOrder(t *testing.T) {
	t.Parallel()

	tables := map[string]*table.Table{
		"a.csv": mk(t, "a.csv", []string{"id", "x"}, []any{int64(1), int64(10)}, []any{int64(2), int64(20)}),
		"b.csv": mk(t, "b.csv", []string{"id", "y"}, []any{int64(3), int64(30)}),
	}
	sources := []loader.Source{{Path: "a.csv"}, {Path: "missing.csv"}, {Path: "b.csv"}}

	got, rep, err := Combine(context.Background(), sources, fakeLoad(tables), Options{})
	require.NoError(t, err)

	assert.Equal(t, "combined", got.Name)
	assert.Equal(t, 3, got.NumRows())
	assert.Equal(t, []any{int64(3), nil, int64(30)}, got.Rows[2])

	require.Len(t, rep.Sources, 3)
	assert.Equal(t, "a.csv", rep.Sources[0].Source)
	assert.True(t, rep.Sources[0].OK)
	assert.Equal(t, 2, rep.Sources[0].Rows)
	assert.Equal(t, 2, rep.Sources[0].Columns)
	assert.False(t, rep.Sources[1].OK)
	assert.Error(t, rep.Sources[1].Err)
	assert.Equal(t, "b.csv", rep.Sources[2].Source)
	assert.Equal(t, 2, rep.Loaded())
	assert.Len(t, rep.Failed(), 1)
}

func TestCombine_ParallelLoadsKeepInputOrder(t *testing.T) {
	t.Parallel()

	const n = 12
	var sources []loader.Source
	for i := 0; i < n; i++ {
		sources = append(sources, loader.Source{Path: fmt.Sprintf("s%02d", i)})
	}

	var inFlight, maxInFlight int32
	load := func(ctx context.Context, src loader.Source) (*table.Table, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if cur <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, cur) {
				break
			}
		}
		defer atomic.AddInt32(&inFlight, -1)

		// Later sources finish first.
		var idx int
		_, _ = fmt.Sscanf(src.Path, "s%d", &idx)
		time.Sleep(time.Duration(n-idx) * time.Millisecond)
		tb := table.MustNew(src.Path, []string{"src"})
		tb.Rows = append(tb.Rows, []any{src.Path})
		return tb, nil
	}

	got, rep, err := Combine(context.Background(), sources, load, Options{Workers: 3})
	require.NoError(t, err)
	require.Equal(t, n, got.NumRows())
	for i := 0; i < n; i++ {
		want := fmt.Sprintf("s%02d", i)
		assert.Equal(t, want, got.Rows[i][0])
		assert.Equal(t, want, rep.Sources[i].Source)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(3))
}

func TestCombine_AllFail(t *testing.T) {
	t.Parallel()

	_, rep, err := Combine(context.Background(), []loader.Source{{Path: "x"}, {Path: "y"}}, fakeLoad(nil), Options{Workers: 1})
	var eie *EmptyInputError
	require.True(t, errors.As(err, &eie), "err=%v", err)
	assert.Len(t, eie.Report.Sources, 2)
	assert.Equal(t, 0, rep.Loaded())
	assert.Contains(t, err.Error(), "x, y")

	_, _, err = Combine(context.Background(), nil, fakeLoad(nil), Options{})
	require.True(t, errors.As(err, &eie))
}

func TestCombine_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Combine(ctx, []loader.Source{{Path: "a"}}, fakeLoad(nil), Options{})
	require.ErrorIs(t, err, context.Canceled)
}
