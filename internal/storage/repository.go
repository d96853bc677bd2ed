// Package storage persists result tables (combined, joined, summaries) to a
// configured sink: a CSV file or a database table.
//
// Backends register themselves by kind from an init() function; callers pick
// one at runtime through Config.Kind. Import internal/storage/all to link every
// backend into a binary.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dataprep/internal/table"
)

// Config identifies one output target.
//
// Edge cases:
//   - Kind "" is treated as "csv".
//   - Path is used by file backends; DSN and Table by database backends.
//   - Replace drops and recreates an existing database table (file backends
//     always overwrite).
type Config struct {
	Kind    string
	Path    string
	DSN     string
	Table   string
	Replace bool
}

// Describe renders the target for logs ("csv:out.csv", "sqlite:quotes").
func (c Config) Describe() string {
	kind := c.kind()
	if kind == "csv" {
		return kind + ":" + c.Path
	}
	return kind + ":" + c.Table
}

func (c Config) kind() string {
	k := strings.ToLower(strings.TrimSpace(c.Kind))
	if k == "" {
		return "csv"
	}
	return k
}

// Repository writes whole tables to one target.
type Repository interface {
	// WriteTable persists t and returns the number of rows written.
	WriteTable(ctx context.Context, t *table.Table) (int64, error)

	// Close releases backend resources. Call once.
	Close()
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under kind (e.g. "csv", "sqlite").
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository for cfg using the registered backend.
func New(ctx context.Context, cfg Config) (Repository, error) {
	kind := cfg.kind()

	mu.RLock()
	f := factories[kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s (registered: %s)", kind, strings.Join(Kinds(), "|"))
	}
	cfg.Kind = kind
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Write is a convenience wrapper: open the target, write t, close.
func Write(ctx context.Context, cfg Config, t *table.Table) (int64, error) {
	repo, err := New(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer repo.Close()
	return repo.WriteTable(ctx, t)
}
