package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dataprep/internal/storage"
	"dataprep/internal/table"
)

/*
Repo implements storage.Repository for Postgres.

Rows are loaded with COPY FROM STDIN (pgx CopyFrom) inside one transaction
together with the DDL, so a failed load leaves no partial table behind.
Table names may be schema-qualified ("staging.final"); the schema is created
if missing.
*/
type Repo struct {
	pool    *pgxpool.Pool
	table   string
	replace bool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a Postgres-backed Repo.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.New("postgres: table is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool, table: cfg.Table, replace: cfg.Replace}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// WriteTable creates the target table if needed and copies every row of t.
func (r *Repo) WriteTable(ctx context.Context, t *table.Table) (int64, error) {
	kinds, rows := storage.TypedRows(t)

	schemaSQL, dropSQL, createSQL := buildCreateSQL(r.table, t.Columns, kinds)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmts := []string{schemaSQL}
	if r.replace {
		stmts = append(stmts, dropSQL)
	}
	stmts = append(stmts, createSQL)
	for _, s := range stmts {
		if s == "" {
			continue
		}
		if _, err := tx.Exec(ctx, s); err != nil {
			return 0, fmt.Errorf("ddl %s: %w", r.table, err)
		}
	}

	n, err := tx.CopyFrom(ctx, copyIdent(r.table), t.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", r.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func splitQualifiedName(name string) (schema string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func qualifiedIdent(name string) string {
	schema, tbl := splitQualifiedName(name)
	if schema == "" {
		return pgIdent(tbl)
	}
	return pgIdent(schema) + "." + pgIdent(tbl)
}

func copyIdent(name string) pgx.Identifier {
	schema, tbl := splitQualifiedName(name)
	if schema == "" {
		return pgx.Identifier{tbl}
	}
	return pgx.Identifier{schema, tbl}
}

func pgType(k table.Kind) string {
	switch k {
	case table.KindInt:
		return "BIGINT"
	case table.KindFloat:
		return "DOUBLE PRECISION"
	case table.KindBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// buildCreateSQL builds the DDL for one result table.
func buildCreateSQL(name string, columns []string, kinds []table.Kind) (schemaSQL, dropSQL, createSQL string) {
	if schema, _ := splitQualifiedName(name); schema != "" {
		schemaSQL = fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, pgIdent(schema))
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgIdent(c) + " " + pgType(kinds[i])
	}

	ident := qualifiedIdent(name)
	dropSQL = fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, ident)
	createSQL = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s);`, ident, strings.Join(defs, ", "))
	return
}
