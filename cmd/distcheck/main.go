// Command distcheck profiles the distribution of every column of a table.
//
// Numeric columns get count, missing share, mean, std, quartiles, skewness,
// kurtosis and an IQR outlier count; the rest get count, missing share,
// distinct values and the most frequent value. Both summaries are printed and
// written to CSV (or a database sink named in the config).
//
//	distcheck -input final.csv
//	distcheck configs/profile.yaml
//	distcheck -config configs/profile.json -columns premium,make
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
	"dataprep/internal/profile"

	_ "dataprep/internal/storage/all"
)

const usage = "usage: distcheck -config path | -input data.csv [-numeric-out n.csv] [-categorical-out c.csv] [-columns a,b]"

type runner interface {
	Profile(ctx context.Context, cfg config.Profile) (pipeline.ProfileResult, error)
}

type appDeps struct {
	loadConfig  func(path string) (config.Profile, error)
	initMetrics func(ctx context.Context, jobName, backendName string) (func(), error)
	newRunner   func(logger pipeline.Logger) runner
}

func defaultDeps() appDeps {
	return appDeps{
		loadConfig:  config.LoadProfile,
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

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("distcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "profile config (.json, .yaml or .yml)")
	input := fs.String("input", "", "dataset to profile (path or URL)")
	numericOut := fs.String("numeric-out", "", "CSV path of the numeric summary (default "+config.DefaultNumericOutput+")")
	categoricalOut := fs.String("categorical-out", "", "CSV path of the categorical summary (default "+config.DefaultCategoricalOutput+")")
	columns := fs.String("columns", "", "comma-separated columns to profile (default all)")
	metricsBackend := fs.String("metrics-backend", "none", "metrics backend: none|datadog")
	verbose := fs.Bool("v", false, "log stages to stderr")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	path := strings.TrimSpace(*cfgPath)
	switch {
	case fs.NArg() == 1 && path == "" && config.IsConfigPath(fs.Arg(0)):
		path = fs.Arg(0)
	case fs.NArg() > 0:
		fmt.Fprintf(stderr, "unexpected arguments: %s\n%s\n", strings.Join(fs.Args(), " "), usage)
		return 2
	}
	if path == "" && strings.TrimSpace(*input) == "" {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var cfg config.Profile
	if path != "" {
		var err error
		if cfg, err = deps.loadConfig(path); err != nil {
			fmt.Fprintf(stderr, "config: %v\n", err)
			return 1
		}
	}
	if s := strings.TrimSpace(*input); s != "" {
		cfg.Input = s
	}
	if *numericOut != "" {
		cfg.NumericOutput = config.Output{Path: *numericOut}
	}
	if *categoricalOut != "" {
		cfg.CategoricalOutput = config.Output{Path: *categoricalOut}
	}
	if cols := config.SplitList(*columns); len(cols) > 0 {
		cfg.Columns = cols
	}

	cleanup, err := deps.initMetrics(ctx, "distcheck", *metricsBackend)
	defer cleanup()
	if err != nil {
		fmt.Fprintf(stderr, "metrics: %v\n", err)
		return 1
	}

	var logger pipeline.Logger
	if *verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	res, err := deps.newRunner(logger).Profile(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	if err := printReport(stdout, res); err != nil {
		fmt.Fprintf(stderr, "print: %v\n", err)
		return 1
	}
	return 0
}

func printReport(w io.Writer, res pipeline.ProfileResult) error {
	if res.Numeric != nil {
		if err := profile.Render(w, "Numeric Summary:", res.Numeric); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if res.Categorical != nil {
		if err := profile.Render(w, "Categorical Summary:", res.Categorical); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if len(res.Written) == 0 {
		return nil
	}
	fmt.Fprintln(w, "Summary files written:")
	for _, o := range res.Written {
		fmt.Fprintf(w, "  %s\n", o.Target)
	}
	return nil
}
