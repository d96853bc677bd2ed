// Package datasource opens the raw bytes behind a source location: a local
// path, a file:// URL or an http(s):// URL.
package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"dataprep/internal/metrics"
)

// Options configures remote fetches.
type Options struct {
	// Client is used for http(s) sources. Nil uses a shared client with Timeout.
	Client *http.Client

	// Timeout bounds one HTTP request when Client is nil (default 60s).
	Timeout time.Duration

	// Headers are added to every HTTP request.
	Headers map[string]string
}

// HTTPError is returned for remote sources answering with status >= 400.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// IsRemote reports whether loc is an http(s) URL.
func IsRemote(loc string) bool {
	l := strings.ToLower(loc)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// LocalPath returns the filesystem path of loc, resolving file:// URLs.
func LocalPath(loc string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(loc), "file://") {
		return loc, nil
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", loc, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file url %s: remote host %q not supported", loc, u.Host)
	}
	return u.Path, nil
}

// Open returns a reader over the bytes at loc. The caller closes it.
//
// HTTP fetches are recorded as dataprep_http_* metrics.
func Open(ctx context.Context, loc string, opt Options) (io.ReadCloser, error) {
	if IsRemote(loc) {
		return openHTTP(ctx, loc, opt)
	}
	p, err := LocalPath(loc)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func openHTTP(ctx context.Context, rawURL string, opt Options) (io.ReadCloser, error) {
	client := opt.Client
	if client == nil {
		client = newHTTPClient(opt.Timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range opt.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.RecordHTTP(0, time.Since(start))
		return nil, err
	}
	metrics.RecordHTTP(resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 4,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
