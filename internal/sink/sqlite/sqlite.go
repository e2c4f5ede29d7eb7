// Package sqlite implements sink.Sink on modernc.org/sqlite (pure Go, no cgo).
//
// Key differences vs the Postgres backend:
//   - SQLite has no TRUNCATE; replace mode uses DELETE FROM inside the
//     load transaction, which is equivalent for our purposes.
//   - Append idempotence uses INSERT OR IGNORE, which relies on the UNIQUE
//     constraints created by EnsureTables.
//   - Dates are stored with TEXT affinity; the driver binds time.Time values
//     as RFC3339 strings, which round-trip and sort correctly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"ventasdwh/internal/sink"
)

func init() {
	sink.Register("sqlite", New)
}

// SQLITE_MAX_VARIABLE_NUMBER defaults to 32766 on modern SQLite; stay well
// under it.
const maxParams = 30000

type Sink struct {
	db *sql.DB
}

func New(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sink{db: db}, nil
}

func (s *Sink) Close() { _ = s.db.Close() }

func (s *Sink) EnsureTables(ctx context.Context) error {
	for _, t := range sink.Tables() {
		if _, err := s.db.ExecContext(ctx, buildCreateSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (s *Sink) Write(ctx context.Context, table string, columns []string, rows [][]any, mode sink.WriteMode) (int64, error) {
	if _, ok := sink.FindTable(table); !ok {
		return 0, fmt.Errorf("sqlite sink: unknown table %s", table)
	}

	switch mode {
	case sink.Replace:
		return s.writeReplace(ctx, table, columns, rows)
	case sink.Append:
		return s.writeAppend(ctx, table, columns, rows)
	default:
		return 0, fmt.Errorf("sqlite sink: unknown write mode %q", mode)
	}
}

func (s *Sink) writeReplace(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+sqlIdent(table)); err != nil {
		return 0, err
	}

	var total int64
	for _, part := range sink.BatchRows(rows, maxParams/max(1, len(columns))) {
		q, args := buildInsertSQL(table, columns, part, false)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return total, err
	}
	return total, nil
}

func (s *Sink) writeAppend(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var total int64
	for _, part := range sink.BatchRows(rows, maxParams/max(1, len(columns))) {
		// OR IGNORE makes the append idempotent via the table's UNIQUE
		// constraint, mirroring ON CONFLICT DO NOTHING on Postgres.
		q, args := buildInsertSQL(table, columns, part, true)
		res, err := s.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func buildInsertSQL(table string, columns []string, rows [][]any, orIgnore bool) (string, []any) {
	var b strings.Builder
	if orIgnore {
		b.WriteString("INSERT OR IGNORE INTO ")
	} else {
		b.WriteString("INSERT INTO ")
	}
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, row[j])
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

func buildCreateSQL(t sink.TableDef) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(sqlIdent(t.Name))
	b.WriteString(" (\n")

	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(sqlIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(sqliteType(c.Kind))
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
			b.WriteString(sqlIdent(c))
		}
		b.WriteString(")")
	}

	b.WriteString("\n);")
	return b.String()
}

func sqliteType(k sink.Kind) string {
	switch k {
	case sink.KindBigInt, sink.KindInt, sink.KindBool:
		return "INTEGER"
	case sink.KindText:
		return "TEXT"
	case sink.KindDate:
		return "TEXT"
	case sink.KindNumeric:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

func sqlIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

