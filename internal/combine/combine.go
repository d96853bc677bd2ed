// Package combine stacks row-aligned tables into one.
//
// Union is the pure operation: columns are aligned by name in first-seen
// order and absent cells become null. Combine loads a list of sources
// (optionally in parallel), reports every source in input order, skips the
// ones that fail and unions the rest.
package combine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"dataprep/internal/loader"
	"dataprep/internal/metrics"
	"dataprep/internal/table"
)

// DefaultWorkers bounds parallel source loads when Options.Workers is 0.
const DefaultWorkers = 4

// EmptyInputError means no table was available to combine.
type EmptyInputError struct {
	// Report holds the per-source outcomes when the error comes from Combine.
	Report Report
}

func (e *EmptyInputError) Error() string {
	if len(e.Report.Sources) == 0 {
		return "no input tables"
	}
	var failed []string
	for _, s := range e.Report.Sources {
		if !s.OK {
			failed = append(failed, s.Source)
		}
	}
	return fmt.Sprintf("no input tables: all %d sources failed (%s)", len(e.Report.Sources), strings.Join(failed, ", "))
}

// SourceResult is the outcome of loading one source.
type SourceResult struct {
	Source  string
	OK      bool
	Rows    int
	Columns int
	Err     error
	Elapsed time.Duration
}

// Report lists SourceResults in input order.
type Report struct {
	Sources []SourceResult
}

// Loaded returns the number of sources that loaded.
func (r Report) Loaded() int {
	n := 0
	for _, s := range r.Sources {
		if s.OK {
			n++
		}
	}
	return n
}

// Failed returns the results of the sources that did not load.
func (r Report) Failed() []SourceResult {
	var out []SourceResult
	for _, s := range r.Sources {
		if !s.OK {
			out = append(out, s)
		}
	}
	return out
}

// LoadFunc reads one source.
type LoadFunc func(ctx context.Context, src loader.Source) (*table.Table, error)

// Options tunes Combine.
type Options struct {
	// Workers bounds parallel loads; 0 means DefaultWorkers, 1 loads serially.
	Workers int

	// Name is the name of the combined table (default "combined").
	Name string
}

// Union concatenates tables in order. Output columns are the union of the
// input columns in first-seen order; a row gets null for every column its
// table lacks. Inputs are not modified.
func Union(tables ...*table.Table) (*table.Table, error) {
	return union("combined", tables)
}

func union(name string, tables []*table.Table) (*table.Table, error) {
	if len(tables) == 0 {
		return nil, &EmptyInputError{}
	}

	var cols []string
	colIx := map[string]int{}
	total := 0
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := colIx[c]; !ok {
				colIx[c] = len(cols)
				cols = append(cols, c)
			}
		}
		total += t.NumRows()
	}

	out, err := table.New(name, cols)
	if err != nil {
		return nil, err
	}
	out.Rows = make([][]any, 0, total)

	for _, t := range tables {
		pos := make([]int, len(t.Columns))
		for i, c := range t.Columns {
			pos[i] = colIx[c]
		}
		for _, r := range t.Rows {
			row := make([]any, len(cols))
			for i, v := range r {
				row[pos[i]] = v
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// Combine loads every source with load and unions the ones that succeed.
//
// Loads run on at most opt.Workers goroutines. The report and the row order
// of the result follow the order of sources regardless of completion order.
// A failed load is recorded in the report and skipped. When nothing loads the
// error is an *EmptyInputError carrying the report. Cancellation of ctx
// aborts with ctx.Err().
func Combine(ctx context.Context, sources []loader.Source, load LoadFunc, opt Options) (*table.Table, Report, error) {
	if load == nil {
		load = loader.Load
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	name := opt.Name
	if name == "" {
		name = "combined"
	}

	tables := make([]*table.Table, len(sources))
	results := make([]SourceResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			t, err := load(gctx, src)
			res := SourceResult{Source: src.Path, Err: err, Elapsed: time.Since(start)}
			if err == nil && t == nil {
				res.Err = &loader.SourceUnavailableError{Source: src.Path, Err: fmt.Errorf("loader returned no table")}
			}
			if res.Err == nil {
				res.OK = true
				res.Rows = t.NumRows()
				res.Columns = t.NumColumns()
				tables[i] = t
			}
			metrics.RecordSource(res.Err)
			results[i] = res
			// Per-source failures are recovered; only cancellation stops the group.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Report{}, err
	}

	report := Report{Sources: results}
	loaded := make([]*table.Table, 0, len(tables))
	for _, t := range tables {
		if t != nil {
			loaded = append(loaded, t)
		}
	}
	if len(loaded) == 0 {
		return nil, report, &EmptyInputError{Report: report}
	}

	out, err := union(name, loaded)
	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}
