// Package loader turns a configured source into a *table.Table.
//
// A Source names a location (local path, file:// or http(s):// URL), an
// optional format and parser options. Every failure, whether the location
// cannot be opened or its content cannot be parsed, is reported as a
// *SourceUnavailableError so callers can skip the source and carry on.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"dataprep/internal/config"
	"dataprep/internal/datasource"
	csvparser "dataprep/internal/parser/csv"
	htmlparser "dataprep/internal/parser/html"
	jsonparser "dataprep/internal/parser/json"
	"dataprep/internal/table"
)

// Formats understood by Load.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatHTML = "html"
)

// Source describes one input table.
type Source struct {
	Path    string
	Format  string // csv, json, html or "" to detect
	Options config.Options
}

func (s Source) String() string { return s.Path }

// SourceUnavailableError reports a source that could not be read or parsed.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// Loader reads sources. The zero value is ready to use.
type Loader struct {
	// HTTP configures remote fetches. Per-source http_timeout_seconds and
	// http_headers options override it.
	HTTP datasource.Options

	// OnBadRow, when set, is told about every CSV record skipped because of
	// skip_bad_rows.
	OnBadRow func(source string, line int, err error)

	// open is a test seam; nil uses datasource.Open.
	open func(ctx context.Context, loc string, opt datasource.Options) (io.ReadCloser, error)
}

// Load reads src with a zero Loader.
func Load(ctx context.Context, src Source) (*table.Table, error) {
	var l Loader
	return l.Load(ctx, src)
}

// Load opens src, detects its format when unset and parses it into a table
// named after src.Path.
func (l *Loader) Load(ctx context.Context, src Source) (*table.Table, error) {
	tb, err := l.load(ctx, src)
	if err != nil {
		return nil, &SourceUnavailableError{Source: src.Path, Err: err}
	}
	return tb, nil
}

func (l *Loader) load(ctx context.Context, src Source) (*table.Table, error) {
	if strings.TrimSpace(src.Path) == "" {
		return nil, fmt.Errorf("empty path")
	}

	format, err := normalizeFormat(src.Format)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatFromPath(src.Path)
	}

	open := l.open
	if open == nil {
		open = datasource.Open
	}
	rc, err := open(ctx, src.Path, l.httpOptions(src.Options))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	if format == "" {
		format = sniffFormat(br)
	}

	opt := src.Options
	switch format {
	case FormatCSV:
		if strings.EqualFold(extension(src.Path), ".tsv") && opt.Any("comma") == nil {
			opt = withOption(opt, "comma", "\t")
		}
		var onErr func(int, error)
		if l.OnBadRow != nil {
			onErr = func(line int, err error) { l.OnBadRow(src.Path, line, err) }
		}
		return csvparser.ReadTable(ctx, src.Path, br, opt, onErr)
	case FormatJSON:
		return jsonparser.ReadTable(ctx, src.Path, br, opt)
	default:
		return htmlparser.ReadTable(ctx, src.Path, br, opt)
	}
}

func (l *Loader) httpOptions(opt config.Options) datasource.Options {
	out := l.HTTP
	if s := opt.Int("http_timeout_seconds", 0); s > 0 {
		out.Timeout = time.Duration(s) * time.Second
	}
	if h := opt.StringMap("http_headers"); len(h) > 0 {
		merged := make(map[string]string, len(out.Headers)+len(h))
		for k, v := range out.Headers {
			merged[k] = v
		}
		for k, v := range h {
			merged[k] = v
		}
		out.Headers = merged
	}
	return out
}

func normalizeFormat(f string) (string, error) {
	switch s := strings.ToLower(strings.TrimSpace(f)); s {
	case "":
		return "", nil
	case FormatCSV, "tsv":
		return FormatCSV, nil
	case FormatJSON, "jsonl", "ndjson":
		return FormatJSON, nil
	case FormatHTML, "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want csv|json|html)", f)
	}
}

// FormatFromPath returns the format implied by the extension of loc (local
// path or URL path), or "" when the extension says nothing.
func FormatFromPath(loc string) string {
	switch strings.ToLower(extension(loc)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	case ".html", ".htm":
		return FormatHTML
	default:
		return ""
	}
}

func extension(loc string) string {
	if datasource.IsRemote(loc) || strings.HasPrefix(strings.ToLower(loc), "file://") {
		if u, err := url.Parse(loc); err == nil {
			return path.Ext(u.Path)
		}
	}
	return path.Ext(strings.ReplaceAll(loc, `\`, "/"))
}

// sniffFormat looks at the first non-blank byte: '[' or '{' means JSON, '<'
// means HTML, anything else is read as CSV.
func sniffFormat(br *bufio.Reader) string {
	head, _ := br.Peek(512)
	head = bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF"))
	head = bytes.TrimLeft(head, " \t\r\n")
	if len(head) == 0 {
		return FormatCSV
	}
	switch head[0] {
	case '[', '{':
		return FormatJSON
	case '<':
		return FormatHTML
	default:
		return FormatCSV
	}
}

func withOption(opt config.Options, key string, v any) config.Options {
	out := make(config.Options, len(opt)+1)
	for k, val := range opt {
		out[k] = val
	}
	out[key] = v
	return out
}
