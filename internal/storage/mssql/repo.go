package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"dataprep/internal/storage"
	"dataprep/internal/table"
)

// SQL Server allows 2100 parameters per request and 1000 rows per VALUES list.
const (
	maxParams    = 2000
	maxBatchRows = 1000
)

// Repo implements storage.Repository for Microsoft SQL Server.
//
// Rows are written with multi-row INSERT ... VALUES statements inside one
// transaction. Table names may be schema-qualified ("dbo.final").
type Repo struct {
	db      dbConn
	table   string
	replace bool
}

func init() {
	storage.Register("mssql", New)
}

// New constructs a Repo using database/sql and the "sqlserver" driver.
//
// This method validates connectivity via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.New("mssql: table is required")
	}
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Repo{db: &sqlDB{db: raw}, table: cfg.Table, replace: cfg.Replace}, nil
}

// Close releases database resources held by this repository.
func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// WriteTable creates the target table if missing and inserts every row of t.
func (r *Repo) WriteTable(ctx context.Context, t *table.Table) (int64, error) {
	kinds, rows := storage.TypedRows(t)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if r.replace {
		if _, err := tx.ExecContext(ctx, buildDropSQL(r.table)); err != nil {
			return 0, fmt.Errorf("drop table %s: %w", r.table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, buildCreateSQL(r.table, t.Columns, kinds)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", r.table, err)
	}

	batch := storage.BatchRows(len(t.Columns), maxParams, maxBatchRows)
	var total int64
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildBulkInsertSQL(r.table, t.Columns, rows[start:end])
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", r.table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func mssqlType(k table.Kind) string {
	switch k {
	case table.KindInt:
		return "BIGINT"
	case table.KindFloat:
		return "FLOAT"
	case table.KindBool:
		return "BIT"
	default:
		return "NVARCHAR(MAX)"
	}
}

func buildCreateSQL(name string, columns []string, kinds []table.Kind) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = mssqlIdent(c) + " " + mssqlType(kinds[i]) + " NULL"
	}
	return wrapCreateIfMissing(name, strings.Join(defs, ", "))
}

func wrapCreateIfMissing(tableName string, innerDefs string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		strings.ReplaceAll(tableName, "'", "''"),
		mssqlTableIdent(tableName),
		innerDefs,
	)
}

func buildDropSQL(name string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;",
		strings.ReplaceAll(name, "'", "''"), mssqlTableIdent(name))
}

// buildBulkInsertSQL constructs one INSERT ... VALUES statement with @pN
// placeholders numbered from 1.
func buildBulkInsertSQL(name string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(name))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	return b.String(), args
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// ---- database/sql seam types ----

// dbConn is a small interface over *sql.DB used to make this package testable.
type dbConn interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error)
	Close() error
}

// txConn is a small interface over *sql.Tx.
type txConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *sqlDB) Close() error { return s.db.Close() }

var (
	_ dbConn = (*sqlDB)(nil)
	_ txConn = (*sql.Tx)(nil)
)
