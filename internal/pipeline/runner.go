// Package pipeline wires loading, the core table operations and the storage
// sinks into the two jobs of the tool: Merge and Profile.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"dataprep/internal/combine"
	"dataprep/internal/config"
	"dataprep/internal/join"
	"dataprep/internal/loader"
	"dataprep/internal/metrics"
	"dataprep/internal/profile"
	"dataprep/internal/storage"
	"dataprep/internal/table"
)

// Logger is the minimal logging interface used by the runner.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Runner executes jobs. The zero value logs nothing, loads with
// loader.Loader and writes through storage.New.
type Runner struct {
	Logger Logger

	// Load reads one source. Nil uses a loader.Loader that logs skipped rows.
	Load combine.LoadFunc

	// NewRepository opens a sink. Nil uses storage.New, which needs the
	// backends registered (see internal/storage/all).
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
}

// Written describes one persisted table.
type Written struct {
	Target string // storage.Config.Describe()
	Rows   int64
}

// MergeResult is the outcome of Runner.Merge.
type MergeResult struct {
	Report   combine.Report
	Combined *table.Table
	Joined   *table.Table // nil when no vehicle stage is configured
	Written  []Written
}

// ProfileResult is the outcome of Runner.Profile.
type ProfileResult struct {
	Input       *table.Table
	Summary     profile.Summary
	Numeric     *table.Table
	Categorical *table.Table
	Written     []Written
}

func (r *Runner) logf(format string, v ...any) {
	if r.Logger == nil {
		return
	}
	r.Logger.Printf(format, v...)
}

func (r *Runner) load() combine.LoadFunc {
	if r.Load != nil {
		return r.Load
	}
	l := &loader.Loader{
		OnBadRow: func(source string, line int, err error) {
			r.logf("stage=load source=%s skipped_line=%d err=%v", source, line, err)
		},
	}
	return l.Load
}

func (r *Runner) newRepository(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	if r.NewRepository != nil {
		return r.NewRepository(ctx, cfg)
	}
	return storage.New(ctx, cfg)
}

// step runs fn as a named stage, logging and recording its outcome.
func (r *Runner) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := durMS(start)
	metrics.RecordStep(name, err, d)
	if err != nil {
		r.logf("stage=%s error=%q duration=%s", name, err.Error(), d)
		return err
	}
	r.logf("stage=%s ok duration=%s", name, d)
	return nil
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

func (r *Runner) warn(issues []config.Issue) {
	for _, is := range issues {
		if is.Severity == config.SeverityWarning {
			r.logf("config warning path=%s msg=%q", is.Path, is.Message)
		}
	}
}

// Merge unions the quote sources, writes the combined table when an output
// is configured and, when a vehicle stage is configured, joins the reference
// table onto it and writes the result.
//
// A quote source that fails to load is logged, reported and skipped. The
// vehicle table failing to load is fatal.
func (r *Runner) Merge(ctx context.Context, cfg config.Merge) (MergeResult, error) {
	var res MergeResult

	issues := config.ValidateMerge(cfg)
	if config.HasErrors(issues) {
		return res, config.IssuesError(issues)
	}
	r.warn(issues)

	sources := make([]loader.Source, 0, len(cfg.Quotes.Files))
	for _, f := range cfg.Quotes.Files {
		sources = append(sources, loader.Source{Path: f, Format: cfg.Quotes.Format, Options: cfg.Quotes.Parser})
	}

	err := r.step("union", func() error {
		t, rep, err := combine.Combine(ctx, sources, r.load(), combine.Options{Workers: cfg.Runtime.ReaderWorkers})
		res.Report = rep
		for _, s := range rep.Sources {
			if s.OK {
				r.logf("stage=load source=%s ok rows=%d cols=%d duration=%s", s.Source, s.Rows, s.Columns, s.Elapsed.Truncate(time.Millisecond))
			} else {
				r.logf("stage=load source=%s failed err=%q", s.Source, s.Err.Error())
			}
		}
		if err != nil {
			return err
		}
		res.Combined = t
		return nil
	})
	if err != nil {
		return res, err
	}
	metrics.RecordRows("combined", res.Combined.NumRows())
	r.logf("stage=union rows=%d cols=%d", res.Combined.NumRows(), res.Combined.NumColumns())

	if !cfg.Quotes.Output.IsZero() {
		w, err := r.write(ctx, "write_combined", cfg.Quotes.Output, res.Combined)
		if err != nil {
			return res, err
		}
		res.Written = append(res.Written, w)
	}

	v := cfg.Vehicle
	if v == nil {
		return res, nil
	}

	var vehicle *table.Table
	err = r.step("load_vehicle", func() error {
		var err error
		vehicle, err = r.load()(ctx, loader.Source{Path: v.File, Format: v.Format, Options: v.Parser})
		return err
	})
	if err != nil {
		return res, fmt.Errorf("vehicle: %w", err)
	}
	r.logf("stage=load source=%s ok rows=%d cols=%d", v.File, vehicle.NumRows(), vehicle.NumColumns())

	opt := join.Options{}
	if len(v.Suffixes) == 2 {
		opt.LeftSuffix, opt.RightSuffix = v.Suffixes[0], v.Suffixes[1]
	}
	err = r.step("join", func() error {
		t, err := join.InnerJoin(res.Combined, v.ABIQuoteCol, vehicle, v.ABIVehicleCol, opt)
		if err != nil {
			return err
		}
		res.Joined = t
		return nil
	})
	if err != nil {
		return res, err
	}
	metrics.RecordRows("joined", res.Joined.NumRows())
	r.logf("stage=join rows=%d cols=%d", res.Joined.NumRows(), res.Joined.NumColumns())

	if !v.Output.IsZero() {
		w, err := r.write(ctx, "write_joined", v.Output, res.Joined)
		if err != nil {
			return res, err
		}
		res.Written = append(res.Written, w)
	}
	return res, nil
}

// Profile loads the input table, summarizes it and writes both summaries.
func (r *Runner) Profile(ctx context.Context, cfg config.Profile) (ProfileResult, error) {
	var res ProfileResult

	cfg.ApplyDefaults()
	issues := config.ValidateProfile(cfg)
	if config.HasErrors(issues) {
		return res, config.IssuesError(issues)
	}
	r.warn(issues)

	err := r.step("load", func() error {
		t, err := r.load()(ctx, loader.Source{Path: cfg.Input, Format: cfg.Format, Options: cfg.Parser})
		if err != nil {
			return err
		}
		res.Input = t
		return nil
	})
	if err != nil {
		return res, err
	}
	r.logf("stage=load source=%s ok shape=%s", cfg.Input, res.Input.Shape())

	err = r.step("profile", func() error {
		s, err := profile.Summarize(res.Input, profile.Options{Columns: cfg.Columns})
		if err != nil {
			return err
		}
		res.Summary = s
		res.Numeric, res.Categorical = s.Tables()
		return nil
	})
	if err != nil {
		return res, err
	}
	r.logf("stage=profile numeric=%d categorical=%d", len(res.Summary.Numeric), len(res.Summary.Categorical))

	for _, o := range []struct {
		step string
		out  config.Output
		t    *table.Table
	}{
		{"write_numeric", cfg.NumericOutput, res.Numeric},
		{"write_categorical", cfg.CategoricalOutput, res.Categorical},
	} {
		w, err := r.write(ctx, o.step, o.out, o.t)
		if err != nil {
			return res, err
		}
		res.Written = append(res.Written, w)
	}
	return res, nil
}

func (r *Runner) write(ctx context.Context, step string, out config.Output, t *table.Table) (Written, error) {
	cfg := out.Storage()
	w := Written{Target: cfg.Describe()}

	err := r.step(step, func() error {
		repo, err := r.newRepository(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open %s: %w", w.Target, err)
		}
		defer repo.Close()

		n, err := repo.WriteTable(ctx, t)
		if err != nil {
			return fmt.Errorf("write %s: %w", w.Target, err)
		}
		w.Rows = n
		return nil
	})
	if err != nil {
		return w, err
	}
	metrics.RecordRows("written", int(w.Rows))
	r.logf("stage=%s target=%s rows=%d", step, w.Target, w.Rows)
	return w, nil
}
