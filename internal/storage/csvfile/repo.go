// Package csvfile writes result tables as CSV files.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dataprep/internal/storage"
	"dataprep/internal/table"
)

// Repo implements storage.Repository for a single CSV file.
//
// The file is written to a temporary sibling and renamed into place, so a
// failed write never leaves a truncated output behind. Nulls are written as
// empty cells and floats in shortest form.
type Repo struct {
	path  string
	comma rune
}

func init() {
	storage.Register("csv", New)
}

// New returns a Repo writing to cfg.Path.
func New(_ context.Context, cfg storage.Config) (storage.Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("csv: path is required")
	}
	return &Repo{path: cfg.Path, comma: ','}, nil
}

func (r *Repo) Close() {}

// WriteTable writes the header and every row of t.
func (r *Repo) WriteTable(ctx context.Context, t *table.Table) (int64, error) {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("csv: mkdir %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("csv: create temp: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	n, err := writeCSV(ctx, f, r.comma, t)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("csv: write %s: %w", r.path, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return 0, fmt.Errorf("csv: rename %s: %w", r.path, err)
	}
	return n, nil
}

func writeCSV(ctx context.Context, f *os.File, comma rune, t *table.Table) (int64, error) {
	w := csv.NewWriter(f)
	w.Comma = comma

	if err := w.Write(t.Columns); err != nil {
		return 0, err
	}

	rec := make([]string, len(t.Columns))
	var n int64
	for i, row := range t.Rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		for c := range rec {
			rec[c] = table.FormatCell(row[c])
		}
		if err := w.Write(rec); err != nil {
			return n, err
		}
		n++
	}
	w.Flush()
	return n, w.Error()
}
