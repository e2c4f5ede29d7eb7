package postgres

import (
	"strings"
	"testing"

	"ventasdwh/internal/sink"
)

func TestBuildInsertSQL_PlaceholderNumbering(t *testing.T) {
	rows := [][]any{
		{int64(1), "a"},
		{int64(2), "b"},
	}

	q, args := buildInsertSQL("dim_bodega", []string{"bodega_id", "codigo_bodega"}, rows, nil)

	want := `INSERT INTO "dim_bodega" ("bodega_id", "codigo_bodega") VALUES ($1, $2), ($3, $4);`
	if q != want {
		t.Fatalf("sql=%q, want %q", q, want)
	}
	if len(args) != 4 {
		t.Fatalf("args=%d, want 4", len(args))
	}
	if args[0] != int64(1) || args[1] != "a" || args[2] != int64(2) || args[3] != "b" {
		t.Fatalf("args order wrong: %v", args)
	}
}

func TestBuildInsertSQL_ConflictClause(t *testing.T) {
	rows := [][]any{{int64(1), "B01", "CA1"}}

	q, _ := buildInsertSQL("fact_ventas", []string{"venta_id", "codigo_bodega", "codigo_caja"},
		rows, []string{"codigo_bodega", "codigo_caja"})

	if !strings.HasSuffix(q, ` ON CONFLICT ("codigo_bodega", "codigo_caja") DO NOTHING;`) {
		t.Fatalf("missing conflict clause: %q", q)
	}
}

func TestBuildInsertSQL_NoConflictClauseWhenEmpty(t *testing.T) {
	q, _ := buildInsertSQL("dim_bodega", []string{"bodega_id"}, [][]any{{int64(1)}}, nil)
	if strings.Contains(q, "ON CONFLICT") {
		t.Fatalf("unexpected conflict clause: %q", q)
	}
}

func TestBuildCreateSQL(t *testing.T) {
	def, ok := sink.FindTable("fact_ventas")
	if !ok {
		t.Fatalf("fact_ventas definition missing")
	}

	q := buildCreateSQL(def)

	if !strings.HasPrefix(q, `CREATE TABLE IF NOT EXISTS "fact_ventas"`) {
		t.Fatalf("bad prefix: %q", q)
	}
	if !strings.Contains(q, `"venta_id" bigint PRIMARY KEY`) {
		t.Fatalf("missing primary key: %q", q)
	}
	// Nullable FK columns must not carry NOT NULL.
	if strings.Contains(q, `"tiempo_id" bigint NOT NULL`) {
		t.Fatalf("tiempo_id must be nullable: %q", q)
	}
	if !strings.Contains(q, `"codigo_bodega" text NOT NULL`) {
		t.Fatalf("natural key columns must be NOT NULL: %q", q)
	}
	if !strings.Contains(q, `UNIQUE ("codigo_bodega", "codigo_caja", "codigo_evento", "numero_ticket", "numero_consecutivo")`) {
		t.Fatalf("missing natural-key unique constraint: %q", q)
	}
}

func TestPgType_CoversAllKinds(t *testing.T) {
	kinds := map[sink.Kind]string{
		sink.KindBigInt:  "bigint",
		sink.KindInt:     "integer",
		sink.KindText:    "text",
		sink.KindDate:    "date",
		sink.KindBool:    "boolean",
		sink.KindNumeric: "numeric",
	}
	for k, want := range kinds {
		if got := pgType(k); got != want {
			t.Fatalf("pgType(%s)=%q, want %q", k, got, want)
		}
	}
}

func TestPgIdent_EscapesQuotes(t *testing.T) {
	if got := pgIdent(`a"b`); got != `"a""b"` {
		t.Fatalf("pgIdent=%q", got)
	}
}
