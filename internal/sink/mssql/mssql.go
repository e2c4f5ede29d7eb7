// Package mssql implements sink.Sink for SQL Server.
//
// Notes:
//   - SQL Server caps a statement at 2100 bind parameters; batches are sized
//     accordingly.
//   - Append idempotence avoids MERGE (locking and surprise semantics) and
//     uses per-batch INSERT ... SELECT ... WHERE NOT EXISTS instead, keyed on
//     the table's natural-key constraint.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"ventasdwh/internal/sink"
)

func init() {
	sink.Register("mssql", New)
}

const maxParams = 2000

type Sink struct {
	db *sql.DB
}

func New(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	def, ok := sink.FindTable(table)
	if !ok {
		return 0, fmt.Errorf("mssql sink: unknown table %s", table)
	}

	switch mode {
	case sink.Replace:
		return s.writeReplace(ctx, def, columns, rows)
	case sink.Append:
		return s.writeAppend(ctx, def, columns, rows)
	default:
		return 0, fmt.Errorf("mssql sink: unknown write mode %q", mode)
	}
}

func (s *Sink) writeReplace(ctx context.Context, def sink.TableDef, columns []string, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+msIdent(def.Name)); err != nil {
		return 0, err
	}

	var total int64
	for _, part := range sink.BatchRows(rows, maxParams/max(1, len(columns))) {
		q, args := buildInsertSQL(def.Name, columns, part)
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

func (s *Sink) writeAppend(ctx context.Context, def sink.TableDef, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(def.Unique) == 0 {
		return 0, fmt.Errorf("mssql sink: table %s has no natural-key constraint for append", def.Name)
	}

	colPos := make(map[string]int, len(columns))
	for i, c := range columns {
		colPos[c] = i
	}
	for _, uc := range def.Unique {
		if _, ok := colPos[uc]; !ok {
			return 0, fmt.Errorf("mssql sink: append key column %q not present in write columns", uc)
		}
	}

	var total int64
	for _, part := range sink.BatchRows(rows, maxParams/max(1, len(columns))) {
		q, args := buildInsertNotExistsSQL(def.Name, columns, part, def.Unique)
		res, err := s.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
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
	b.WriteString(";")
	return b.String(), args
}

// buildInsertNotExistsSQL emits one INSERT ... SELECT per row, guarded by
// NOT EXISTS on the natural-key columns, joined into a single batch statement.
func buildInsertNotExistsSQL(table string, columns []string, rows [][]any, keyColumns []string) (string, []any) {
	colPos := make(map[string]int, len(columns))
	for i, c := range columns {
		colPos[c] = i
	}

	var b strings.Builder
	args := make([]any, 0, len(rows)*len(columns))
	p := 1

	for _, row := range rows {
		b.WriteString("INSERT INTO ")
		b.WriteString(msIdent(table))
		b.WriteString(" (")
		for i, c := range columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(msIdent(c))
		}
		b.WriteString(") SELECT ")

		rowParams := make([]string, len(columns))
		for j := range columns {
			rowParams[j] = fmt.Sprintf("@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(strings.Join(rowParams, ", "))

		b.WriteString(" WHERE NOT EXISTS (SELECT 1 FROM ")
		b.WriteString(msIdent(table))
		b.WriteString(" WHERE ")
		for i, kc := range keyColumns {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString(msIdent(kc))
			b.WriteString(" = ")
			b.WriteString(rowParams[colPos[kc]])
		}
		b.WriteString(");\n")
	}

	return b.String(), args
}

func buildCreateSQL(t sink.TableDef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n", t.Name, msIdent(t.Name))

	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(msIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(msType(c.Kind))
		if c.Name == t.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		} else if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}

	if len(t.Unique) > 0 {
		idents := make([]string, len(t.Unique))
		for i, c := range t.Unique {
			idents[i] = msIdent(c)
		}
		fmt.Fprintf(&b, ",\n  CONSTRAINT %s UNIQUE (%s)",
			msIdent("uq_"+t.Name), strings.Join(idents, ", "))
	}

	b.WriteString("\n);")
	return b.String()
}

func msType(k sink.Kind) string {
	switch k {
	case sink.KindBigInt:
		return "bigint"
	case sink.KindInt:
		return "int"
	case sink.KindText:
		return "nvarchar(255)"
	case sink.KindDate:
		return "date"
	case sink.KindBool:
		return "bit"
	case sink.KindNumeric:
		return "decimal(18,4)"
	default:
		return "nvarchar(255)"
	}
}

func msIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

