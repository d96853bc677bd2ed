// Command dataprep combines row-aligned quote tables and optionally joins a
// vehicle reference table onto the result.
//
// A job is described by a JSON or YAML file (-config) or entirely by flags.
// Flags override the matching config fields:
//
//	dataprep -config configs/merge.yaml
//	dataprep -quotes a.csv,b.json -quotes-out merged.csv \
//	    -vehicle vehicle.csv -vehicle-out final.csv -quote-key ABI -vehicle-key abi_code
//
// Exit codes: 0 on success, 1 on runtime errors, 2 on usage errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"dataprep/internal/config"
	"dataprep/internal/metrics/setup"
	"dataprep/internal/pipeline"

	// config names the sink kinds; all of them are linked in.
	_ "dataprep/internal/storage/all"
)

// Key column names used when the vehicle stage is configured by flags alone.
const (
	defaultQuoteKey   = "ABI"
	defaultVehicleKey = "abi_code"
)

const usage = "usage: dataprep -config path | -quotes a.csv,b.csv [-quotes-out out.csv] [-vehicle v.csv -vehicle-out final.csv]"

type runner interface {
	Merge(ctx context.Context, cfg config.Merge) (pipeline.MergeResult, error)
}

// appDeps are the side-effecting collaborators of runMain.
type appDeps struct {
	loadConfig  func(path string) (config.Merge, error)
	initMetrics func(ctx context.Context, jobName, backendName string) (func(), error)
	newRunner   func(logger pipeline.Logger) runner
}

func defaultDeps() appDeps {
	return appDeps{
		loadConfig:  config.LoadMerge,
		initMetrics: setup.Init,
		newRunner:   func(l pipeline.Logger) runner { return &pipeline.Runner{Logger: l} },
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

type flags struct {
	cfgPath    string
	quotes     string
	quotesOut  string
	vehicle    string
	vehicleOut string
	quoteKey   string
	vehicleKey string
	workers    int
	metrics    string
	verbose    bool
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	var f flags
	fs := flag.NewFlagSet("dataprep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.cfgPath, "config", "", "merge config (.json, .yaml or .yml)")
	fs.StringVar(&f.quotes, "quotes", "", "comma-separated quote sources (paths or URLs)")
	fs.StringVar(&f.quotesOut, "quotes-out", "", "CSV path for the combined table")
	fs.StringVar(&f.vehicle, "vehicle", "", "vehicle reference source")
	fs.StringVar(&f.vehicleOut, "vehicle-out", "", "CSV path for the joined table")
	fs.StringVar(&f.quoteKey, "quote-key", "", "key column of the combined table (default "+defaultQuoteKey+")")
	fs.StringVar(&f.vehicleKey, "vehicle-key", "", "key column of the vehicle table (default "+defaultVehicleKey+")")
	fs.IntVar(&f.workers, "workers", 0, "sources loaded in parallel (0 = default)")
	fs.StringVar(&f.metrics, "metrics-backend", "none", "metrics backend: none|datadog")
	fs.BoolVar(&f.verbose, "v", false, "log stages to stderr")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n%s\n", strings.Join(fs.Args(), " "), usage)
		return 2
	}
	if strings.TrimSpace(f.cfgPath) == "" && strings.TrimSpace(f.quotes) == "" {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var cfg config.Merge
	if p := strings.TrimSpace(f.cfgPath); p != "" {
		var err error
		if cfg, err = deps.loadConfig(p); err != nil {
			fmt.Fprintf(stderr, "config: %v\n", err)
			return 1
		}
	}
	if err := f.apply(&cfg); err != nil {
		fmt.Fprintf(stderr, "%v\n%s\n", err, usage)
		return 2
	}

	job := cfg.Job
	if job == "" {
		job = "dataprep"
	}
	cleanup, err := deps.initMetrics(ctx, job, f.metrics)
	defer cleanup()
	if err != nil {
		fmt.Fprintf(stderr, "metrics: %v\n", err)
		return 1
	}

	var logger pipeline.Logger
	if f.verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	res, err := deps.newRunner(logger).Merge(ctx, cfg)
	printReport(stdout, res)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	return 0
}

// apply overlays the flags that were given onto cfg.
func (f flags) apply(cfg *config.Merge) error {
	if s := strings.TrimSpace(f.quotes); s != "" {
		cfg.Quotes.Files = config.SplitList(s)
	}
	if f.quotesOut != "" {
		cfg.Quotes.Output = config.Output{Path: f.quotesOut}
	}
	if f.workers > 0 {
		cfg.Runtime.ReaderWorkers = f.workers
	}

	if f.vehicle != "" && cfg.Vehicle == nil {
		cfg.Vehicle = &config.VehicleConfig{ABIQuoteCol: defaultQuoteKey, ABIVehicleCol: defaultVehicleKey}
	}
	v := cfg.Vehicle
	if v == nil {
		if f.vehicleOut != "" || f.quoteKey != "" || f.vehicleKey != "" {
			return errors.New("-vehicle-out, -quote-key and -vehicle-key need a vehicle stage; pass -vehicle")
		}
		return nil
	}
	if f.vehicle != "" {
		v.File = f.vehicle
	}
	if f.vehicleOut != "" {
		v.Output = config.Output{Path: f.vehicleOut}
	}
	if f.quoteKey != "" {
		v.ABIQuoteCol = f.quoteKey
	}
	if f.vehicleKey != "" {
		v.ABIVehicleCol = f.vehicleKey
	}
	return nil
}

func printReport(w io.Writer, res pipeline.MergeResult) {
	for _, s := range res.Report.Sources {
		if s.OK {
			fmt.Fprintf(w, "loaded source=%s rows=%d cols=%d\n", s.Source, s.Rows, s.Columns)
		} else {
			fmt.Fprintf(w, "failed source=%s err=%v\n", s.Source, s.Err)
		}
	}
	if res.Combined != nil {
		fmt.Fprintf(w, "combined shape=%s\n", res.Combined.Shape())
	}
	if res.Joined != nil {
		fmt.Fprintf(w, "joined shape=%s\n", res.Joined.Shape())
	}
	for _, o := range res.Written {
		fmt.Fprintf(w, "wrote target=%s rows=%d\n", o.Target, o.Rows)
	}
}
