// Package metrics is a small process-wide metrics facade.
//
// Pipeline code records through the package-level helpers (RecordStep,
// RecordRows, ...). The default backend discards everything; binaries install
// a real one (see internal/metrics/datadog) with SetBackend.
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Metric families emitted by this module.
const (
	StepTotal           = "dataprep_step_total"
	StepDurationSeconds = "dataprep_step_duration_seconds"
	RowsTotal           = "dataprep_rows_total"
	SourcesTotal        = "dataprep_sources_total"
	HTTPRequestsTotal   = "dataprep_http_requests_total"
	HTTPDurationSeconds = "dataprep_http_request_duration_seconds"
)

// Labels are metric dimensions (e.g. {"step": "join", "status": "ok"}).
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

type flusher interface {
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. nil restores the nop backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush flushes the current backend if it buffers.
func Flush() error {
	if f, ok := current().(flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordStep counts one pipeline step and observes its duration.
// status is "ok" when err is nil, "error" otherwise.
func RecordStep(step string, err error, d time.Duration) {
	l := Labels{"step": step, "status": statusOf(err)}
	b := current()
	b.IncCounter(StepTotal, 1, l)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

// RecordRows counts rows by kind ("loaded", "combined", "joined", "written").
func RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(n), Labels{"kind": kind})
}

// RecordSource counts one source load attempt.
func RecordSource(err error) {
	current().IncCounter(SourcesTotal, 1, Labels{"status": statusOf(err)})
}

// RecordHTTP records one HTTP fetch. status is the response code, or 0 when
// the request failed before a response arrived.
func RecordHTTP(status int, d time.Duration) {
	l := Labels{"status": httpStatusLabel(status)}
	b := current()
	b.IncCounter(HTTPRequestsTotal, 1, l)
	b.ObserveHistogram(HTTPDurationSeconds, d.Seconds(), l)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func httpStatusLabel(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
