package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"dataprep/internal/combine"
	"dataprep/internal/config"
	"dataprep/internal/pipeline"
	"dataprep/internal/table"
)

// fakeRunner records the config it received and returns a canned result.
type fakeRunner struct {
	res   pipeline.MergeResult
	err   error
	calls atomic.Int64

	mu      sync.Mutex
	lastCfg config.Merge
}

func (r *fakeRunner) Merge(ctx context.Context, cfg config.Merge) (pipeline.MergeResult, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.lastCfg = cfg
	r.mu.Unlock()
	return r.res, r.err
}

func noMetrics(context.Context, string, string) (func(), error) { return func() {}, nil }

func TestRunMain_UsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		args          []string
		wantCode      int
		wantStderrSub string
	}{
		{name: "no_sources", args: nil, wantCode: 2, wantStderrSub: "usage: dataprep -config"},
		{name: "blank_config", args: []string{"-config", "  "}, wantCode: 2, wantStderrSub: "usage: dataprep -config"},
		{name: "unknown_flag", args: []string{"-nope"}, wantCode: 2, wantStderrSub: "flag provided but not defined"},
		{name: "positional", args: []string{"-quotes", "a.csv", "extra"}, wantCode: 2, wantStderrSub: "unexpected arguments: extra"},
		{name: "vehicle_flags_without_vehicle", args: []string{"-quotes", "a.csv", "-quote-key", "ABI"}, wantCode: 2, wantStderrSub: "pass -vehicle"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			code := runMain(context.Background(), tc.args, &stdout, &stderr, appDeps{
				loadConfig: func(string) (config.Merge, error) {
					t.Fatalf("loadConfig must not be called on usage errors")
					return config.Merge{}, nil
				},
				initMetrics: func(context.Context, string, string) (func(), error) {
					t.Fatalf("initMetrics must not be called on usage errors")
					return func() {}, nil
				},
				newRunner: func(pipeline.Logger) runner {
					t.Fatalf("newRunner must not be called on usage errors")
					return &fakeRunner{}
				},
			})

			if code != tc.wantCode {
				t.Fatalf("exit code=%d, want %d; stderr=%q", code, tc.wantCode, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.wantStderrSub) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.wantStderrSub)
			}
			if stdout.Len() != 0 {
				t.Fatalf("stdout=%q, want empty", stdout.String())
			}
		})
	}
}

func TestRunMain_FlagsBuildConfig(t *testing.T) {
	t.Parallel()

	fr := &fakeRunner{}
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(),
		[]string{"-quotes", "a.csv, b.json", "-quotes-out", "m.csv", "-vehicle", "v.csv", "-vehicle-key", "code", "-workers", "2"},
		&stdout, &stderr, appDeps{
			loadConfig: func(string) (config.Merge, error) {
				t.Fatalf("loadConfig must not be called without -config")
				return config.Merge{}, nil
			},
			initMetrics: noMetrics,
			newRunner:   func(pipeline.Logger) runner { return fr },
		})
	if code != 0 {
		t.Fatalf("exit code=%d, stderr=%q", code, stderr.String())
	}

	got := fr.lastCfg
	if strings.Join(got.Quotes.Files, "|") != "a.csv|b.json" {
		t.Fatalf("files=%q", got.Quotes.Files)
	}
	if got.Quotes.Output.Path != "m.csv" || got.Runtime.ReaderWorkers != 2 {
		t.Fatalf("quotes output=%+v workers=%d", got.Quotes.Output, got.Runtime.ReaderWorkers)
	}
	if got.Vehicle == nil {
		t.Fatalf("vehicle stage missing")
	}
	if got.Vehicle.File != "v.csv" || got.Vehicle.ABIQuoteCol != "ABI" || got.Vehicle.ABIVehicleCol != "code" {
		t.Fatalf("vehicle=%+v", *got.Vehicle)
	}
}

func TestRunMain_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	fr := &fakeRunner{}
	var gotJob string
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(),
		[]string{"-config", "merge.yaml", "-vehicle-out", "final.csv"},
		&stdout, &stderr, appDeps{
			loadConfig: func(path string) (config.Merge, error) {
				if path != "merge.yaml" {
					t.Fatalf("path=%q", path)
				}
				return config.Merge{
					Job:     "quotes",
					Quotes:  config.QuotesConfig{Files: []string{"x.csv"}},
					Vehicle: &config.VehicleConfig{File: "v.csv", ABIQuoteCol: "ABI", ABIVehicleCol: "abi_code"},
				}, nil
			},
			initMetrics: func(ctx context.Context, job, backend string) (func(), error) {
				gotJob = job
				if backend != "none" {
					t.Fatalf("backend=%q, want none", backend)
				}
				return func() {}, nil
			},
			newRunner: func(pipeline.Logger) runner { return fr },
		})
	if code != 0 {
		t.Fatalf("exit code=%d, stderr=%q", code, stderr.String())
	}
	if gotJob != "quotes" {
		t.Fatalf("job=%q, want quotes", gotJob)
	}
	if fr.lastCfg.Vehicle.Output.Path != "final.csv" || fr.lastCfg.Vehicle.File != "v.csv" {
		t.Fatalf("vehicle=%+v", *fr.lastCfg.Vehicle)
	}
}

func TestRunMain_ConfigMetricsRunFlow(t *testing.T) {
	t.Parallel()

	combined := table.MustNew("combined", []string{"ABI", "premium"})
	combined.Rows = [][]any{{"1", int64(2)}}
	okResult := pipeline.MergeResult{
		Report: combine.Report{Sources: []combine.SourceResult{
			{Source: "a.csv", OK: true, Rows: 1, Columns: 2},
			{Source: "b.csv", Err: errors.New("no such file")},
		}},
		Combined: combined,
		Written:  []pipeline.Written{{Target: "csv:m.csv", Rows: 1}},
	}

	tests := []struct {
		name             string
		loadErr          error
		metricsErr       error
		runErr           error
		wantCode         int
		wantStderrSub    string
		wantStdout       string
		wantRunnerCalls  int64
		wantCleanupCalls int64
	}{
		{
			name:          "config_error",
			loadErr:       errors.New("read config merge.json: missing"),
			wantCode:      1,
			wantStderrSub: "config: read config merge.json",
		},
		{
			name:             "metrics_error",
			metricsErr:       errors.New("unknown metrics backend"),
			wantCode:         1,
			wantStderrSub:    "metrics: unknown metrics backend",
			wantCleanupCalls: 1,
		},
		{
			name:             "run_error",
			runErr:           errors.New("boom"),
			wantCode:         1,
			wantStderrSub:    "run: boom",
			wantStdout:       "loaded source=a.csv rows=1 cols=2\nfailed source=b.csv err=no such file\ncombined shape=(1, 2)\nwrote target=csv:m.csv rows=1\n",
			wantRunnerCalls:  1,
			wantCleanupCalls: 1,
		},
		{
			name:             "success",
			wantCode:         0,
			wantStdout:       "loaded source=a.csv rows=1 cols=2\nfailed source=b.csv err=no such file\ncombined shape=(1, 2)\nwrote target=csv:m.csv rows=1\n",
			wantRunnerCalls:  1,
			wantCleanupCalls: 1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fr := &fakeRunner{res: okResult, err: tc.runErr}
			var cleanupCalls atomic.Int64
			var stdout, stderr bytes.Buffer

			code := runMain(context.Background(), []string{"-config", "merge.json"}, &stdout, &stderr, appDeps{
				loadConfig: func(string) (config.Merge, error) {
					return config.Merge{Quotes: config.QuotesConfig{Files: []string{"a.csv", "b.csv"}}}, tc.loadErr
				},
				initMetrics: func(context.Context, string, string) (func(), error) {
					return func() { cleanupCalls.Add(1) }, tc.metricsErr
				},
				newRunner: func(pipeline.Logger) runner { return fr },
			})

			if code != tc.wantCode {
				t.Fatalf("exit code=%d, want %d; stderr=%q", code, tc.wantCode, stderr.String())
			}
			if tc.wantStderrSub != "" && !strings.Contains(stderr.String(), tc.wantStderrSub) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.wantStderrSub)
			}
			if got := stdout.String(); got != tc.wantStdout {
				t.Fatalf("stdout=%q, want %q", got, tc.wantStdout)
			}
			if got := fr.calls.Load(); got != tc.wantRunnerCalls {
				t.Fatalf("runner calls=%d, want %d", got, tc.wantRunnerCalls)
			}
			if got := cleanupCalls.Load(); got != tc.wantCleanupCalls {
				t.Fatalf("cleanup calls=%d, want %d", got, tc.wantCleanupCalls)
			}
		})
	}
}

func TestRunMain_VerboseLogsToStderr(t *testing.T) {
	t.Parallel()

	var gotLogger pipeline.Logger
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"-quotes", "a.csv", "-v"}, &stdout, &stderr, appDeps{
		initMetrics: noMetrics,
		newRunner: func(l pipeline.Logger) runner {
			gotLogger = l
			return &fakeRunner{}
		},
	})
	if code != 0 {
		t.Fatalf("exit code=%d, stderr=%q", code, stderr.String())
	}
	if gotLogger == nil {
		t.Fatalf("logger=nil with -v")
	}
	gotLogger.Printf("stage=%s ok", "union")
	if !strings.Contains(stderr.String(), "stage=union ok") {
		t.Fatalf("stderr=%q, want log line", stderr.String())
	}
}

// TestRunMain_EndToEnd runs the real runner against files on disk.
func TestRunMain_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	a := write("a.csv", "ABI,premium\n123,100\n")
	b := write("b.json", `[{"ABI":"456","premium":200}]`)
	v := write("vehicle.csv", "abi_code,make\n123,Ford\n456,Fiat\n")
	out := filepath.Join(dir, "final.csv")

	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(),
		[]string{"-quotes", a + "," + b, "-vehicle", v, "-vehicle-out", out},
		&stdout, &stderr, defaultDeps())
	if code != 0 {
		t.Fatalf("exit code=%d, stderr=%q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "joined shape=(2, 4)") {
		t.Fatalf("stdout=%q, want joined shape", stdout.String())
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "ABI,premium,abi_code,make\n123,100,123,Ford\n456,200,456,Fiat\n"
	if string(got) != want {
		t.Fatalf("final.csv=%q, want %q", got, want)
	}
}
