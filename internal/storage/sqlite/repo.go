package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"dataprep/internal/storage"
	"dataprep/internal/table"
)

// SQLite caps bound parameters per statement (SQLITE_MAX_VARIABLE_NUMBER,
// 32766 on modern builds). Stay well below it.
const (
	maxParams    = 30000
	maxBatchRows = 500
)

// Repo implements storage.Repository for SQLite.
//
// The target table is created on first write with column affinities derived
// from the inferred column kinds. Booleans are stored as INTEGER 0/1.
type Repo struct {
	db      *sql.DB
	table   string
	replace bool
}

func init() {
	storage.Register("sqlite", New)
}

// New opens cfg.DSN (a file path or "file::memory:?cache=shared").
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.New("sqlite: table is required")
	}
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Path
	}
	if dsn == "" {
		return nil, errors.New("sqlite: dsn (or path) is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, table: cfg.Table, replace: cfg.Replace}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// WriteTable creates the target table if needed and inserts every row of t
// in a single transaction.
func (r *Repo) WriteTable(ctx context.Context, t *table.Table) (int64, error) {
	kinds, rows := storage.TypedRows(t)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if r.replace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(r.table)); err != nil {
			return 0, fmt.Errorf("drop table %s: %w", r.table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, buildCreateTableSQL(r.table, t.Columns, kinds)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", r.table, err)
	}

	batch := storage.BatchRows(len(t.Columns), maxParams, maxBatchRows)
	var total int64
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		n, err := insertPlain(ctx, tx, r.table, t.Columns, rows[start:end])
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", r.table, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func sqliteType(k table.Kind) string {
	switch k {
	case table.KindInt, table.KindBool:
		return "INTEGER"
	case table.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func buildCreateTableSQL(name string, columns []string, kinds []table.Kind) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(sqlIdent(name))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
		b.WriteString(" ")
		b.WriteString(sqliteType(kinds[i]))
	}
	b.WriteString(")")
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertPlain performs a SQLite multi-row insert.
func insertPlain(ctx context.Context, db execer, name string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(name))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}

	res, err := db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
