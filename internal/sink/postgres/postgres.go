// Package postgres implements sink.Sink on top of pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"ventasdwh/internal/sink"
)

func init() {
	sink.Register("postgres", New)
}

// maxParams keeps multi-row INSERTs under the postgres protocol limit of
// 65535 bind parameters per statement.
const maxParams = 60000

type Sink struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Sink{pool: pool}, nil
}

func (s *Sink) Close() { s.pool.Close() }

// EnsureTables creates the warehouse tables if they do not exist, so startup
// stays idempotent.
func (s *Sink) EnsureTables(ctx context.Context) error {
	for _, t := range sink.Tables() {
		if _, err := s.pool.Exec(ctx, buildCreateSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (s *Sink) Write(ctx context.Context, table string, columns []string, rows [][]any, mode sink.WriteMode) (int64, error) {
	def, ok := sink.FindTable(table)
	if !ok {
		return 0, fmt.Errorf("postgres sink: unknown table %s", table)
	}

	switch mode {
	case sink.Replace:
		return s.writeReplace(ctx, def, columns, rows)
	case sink.Append:
		return s.writeAppend(ctx, def, columns, rows)
	default:
		return 0, fmt.Errorf("postgres sink: unknown write mode %q", mode)
	}
}

// writeReplace truncates and reloads the table inside one transaction, so a
// failed load never leaves the table half-replaced.
func (s *Sink) writeReplace(ctx context.Context, def sink.TableDef, columns []string, rows [][]any) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+pgIdent(def.Name)); err != nil {
		return 0, err
	}

	var total int64
	for _, part := range sink.BatchRows(rows, maxParams/max(1, len(columns))) {
		q, args := buildInsertSQL(def.Name, columns, part, nil)
		cmd, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return total, err
		}
		total += cmd.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return total, err
	}
	return total, nil
}

// writeAppend inserts rows with ON CONFLICT DO NOTHING over the table's
// natural-key constraint, making appends idempotent against rows a prior run
// already loaded.
func (s *Sink) writeAppend(ctx context.Context, def sink.TableDef, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var total int64
	for _, part := range sink.BatchRows(rows, maxParams/max(1, len(columns))) {
		q, args := buildInsertSQL(def.Name, columns, part, def.Unique)
		cmd, err := s.pool.Exec(ctx, q, args...)
		if err != nil {
			return total, err
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// buildInsertSQL constructs one multi-row INSERT and its args. Pure and
// deterministic so placeholder numbering and ON CONFLICT behavior are unit
// testable without a database.
func buildInsertSQL(table string, columns []string, rows [][]any, conflictColumns []string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
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
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	if len(conflictColumns) > 0 {
		b.WriteString(" ON CONFLICT (")
		for i, c := range conflictColumns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pgIdent(c))
		}
		b.WriteString(") DO NOTHING")
	}

	b.WriteString(";")
	return b.String(), args
}

// buildCreateSQL renders CREATE TABLE IF NOT EXISTS for one table definition.
func buildCreateSQL(t sink.TableDef) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(pgIdent(t.Name))
	b.WriteString(" (\n")

	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(pgIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(pgType(c.Kind))
		if c.Name == t.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		} else if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}

	if len(t.Unique) > 0 {
		b.WriteString(",\n  UNIQUE (")
		for i, c := range t.Unique {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pgIdent(c))
		}
		b.WriteString(")")
	}

	b.WriteString("\n);")
	return b.String()
}

func pgType(k sink.Kind) string {
	switch k {
	case sink.KindBigInt:
		return "bigint"
	case sink.KindInt:
		return "integer"
	case sink.KindText:
		return "text"
	case sink.KindDate:
		return "date"
	case sink.KindBool:
		return "boolean"
	case sink.KindNumeric:
		return "numeric"
	default:
		return "text"
	}
}

func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
