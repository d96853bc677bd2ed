// Package setup selects and installs the process-wide metrics backend for the
// command-line tools.
package setup

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"dataprep/internal/metrics"
	"dataprep/internal/metrics/datadog"
)

// metricsBackend is a backend that must be closed to submit buffered data.
type metricsBackend interface {
	metrics.Backend
	Close() error
}

// Seams for tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	setMetricsBackend = metrics.SetBackend
	logPrintf         = log.Printf
)

// Init installs the backend named by backendName ("", "none", "noop",
// "datadog" or "dd") and returns its cleanup. The cleanup is never nil and
// always safe to call, including when Init fails.
func Init(ctx context.Context, jobName, backendName string) (func(), error) {
	nop := func() {}

	switch strings.ToLower(strings.TrimSpace(backendName)) {
	case "", "none", "noop":
		return nop, nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    jobName,
			Tags:       datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			return nop, err
		}
		setMetricsBackend(b)
		return func() {
			// Close stops the flush loop and submits what is still buffered.
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
			setMetricsBackend(nil)
		}, nil

	default:
		return nop, fmt.Errorf("unknown metrics backend %q (want none|datadog)", backendName)
	}
}
