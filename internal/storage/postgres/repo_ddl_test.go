package postgres

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"dataprep/internal/table"
)

func TestBuildCreateSQL_SchemaQualified(t *testing.T) {
	t.Parallel()

	schemaSQL, dropSQL, createSQL := buildCreateSQL("staging.final",
		[]string{"abi", "premium", "active", "make"},
		[]table.Kind{table.KindInt, table.KindFloat, table.KindBool, table.KindText})

	if schemaSQL != `CREATE SCHEMA IF NOT EXISTS "staging";` {
		t.Fatalf("schemaSQL=%q", schemaSQL)
	}
	if dropSQL != `DROP TABLE IF EXISTS "staging"."final";` {
		t.Fatalf("dropSQL=%q", dropSQL)
	}
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "staging"."final"`,
		`"abi" BIGINT`,
		`"premium" DOUBLE PRECISION`,
		`"active" BOOLEAN`,
		`"make" TEXT`,
	} {
		if !strings.Contains(createSQL, want) {
			t.Fatalf("createSQL missing %q: %s", want, createSQL)
		}
	}
}

func TestBuildCreateSQL_UnqualifiedHasNoSchema(t *testing.T) {
	t.Parallel()

	schemaSQL, _, createSQL := buildCreateSQL("final", []string{"x"}, []table.Kind{table.KindNull})
	if schemaSQL != "" {
		t.Fatalf("schemaSQL=%q, want empty", schemaSQL)
	}
	if createSQL != `CREATE TABLE IF NOT EXISTS "final" ("x" TEXT);` {
		t.Fatalf("createSQL=%q", createSQL)
	}
}

func TestCopyIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want pgx.Identifier
	}{
		{"final", pgx.Identifier{"final"}},
		{"staging.final", pgx.Identifier{"staging", "final"}},
		{" a . b ", pgx.Identifier{"a", "b"}},
	}
	for _, tt := range tests {
		got := copyIdent(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("copyIdent(%q)=%v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("copyIdent(%q)=%v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
