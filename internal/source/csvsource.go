package source

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"ventasdwh/internal/model"
)

// File names the CSV source expects inside its directory. ventas.csv carries
// the already-joined line-level extract (same columns the SQL source produces
// with its three-way join); the other four are the reference extracts.
const (
	fileSaleHeaders = "enc_vent.csv"
	fileCustomers   = "pos_clte.csv"
	fileWarehouses  = "mae_bode.csv"
	fileProducts    = "art_vent.csv"
	fileSaleLines   = "ventas.csv"
)

// CSVConfig configures the CSV source. Dir must contain the five extract
// files. Latin1 decodes each file from ISO 8859-1, for extracts produced by
// legacy POS exports that never learned UTF-8.
type CSVConfig struct {
	Dir    string
	Latin1 bool
}

// CSVSource reads POS extracts from flat files. Reference files are loaded
// whole; the sale-line file is streamed so arbitrarily large extracts never
// need to fit in memory.
type CSVSource struct {
	cfg CSVConfig
}

func NewCSV(cfg CSVConfig) (*CSVSource, error) {
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("csv source: %s is not a directory", cfg.Dir)
	}
	return &CSVSource{cfg: cfg}, nil
}

func (s *CSVSource) Close() error { return nil }

func (s *CSVSource) FetchSaleHeaders(ctx context.Context) ([]model.SaleHeader, error) {
	var out []model.SaleHeader
	err := s.readAll(ctx, fileSaleHeaders, func(rec record) error {
		h := model.SaleHeader{
			CodigoBodega:   rec.str("codigo_bodega"),
			CodigoCaja:     rec.str("codigo_caja"),
			CodigoEvento:   rec.str("codigo_evento"),
			NumeroTicket:   rec.int64("numero_ticket"),
			FechaOperacion: rec.date("fecha_operacion"),
			CodigoCliente:  rec.str("codigo_cliente"),
		}
		out = append(out, h)
		return rec.err()
	})
	return out, err
}

func (s *CSVSource) FetchCustomers(ctx context.Context) ([]model.Customer, error) {
	var out []model.Customer
	err := s.readAll(ctx, fileCustomers, func(rec record) error {
		c := model.Customer{
			CodigoCliente:   rec.str("codigo_cliente"),
			Nombre:          rec.str("nombre_cliente"),
			Apellido:        rec.str("apellido_cliente"),
			Direccion:       rec.str("direccion_cliente"),
			Telefono:        rec.str("telefono_cliente"),
			FechaNacimiento: rec.date("fecha_nacimiento_cliente"),
			Email:           rec.str("email_cliente"),
			Sexo:            rec.str("sexo_cliente"),
		}
		out = append(out, c)
		return rec.err()
	})
	return out, err
}

func (s *CSVSource) FetchWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	var out []model.Warehouse
	err := s.readAll(ctx, fileWarehouses, func(rec record) error {
		w := model.Warehouse{
			CodigoBodega: rec.str("codigo_bodega"),
			Descripcion:  rec.str("descripcion_bodega"),
			Direccion:    rec.str("direccion_bodega"),
		}
		out = append(out, w)
		return rec.err()
	})
	return out, err
}

func (s *CSVSource) FetchProducts(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := s.readAll(ctx, fileProducts, func(rec record) error {
		p := model.Product{
			CodigoProducto: rec.str("codigo_producto"),
			Descripcion:    rec.str("descripcion_producto"),
			Tipo:           rec.str("tipo_producto"),
			Estado:         rec.str("estado_producto"),
			Referencia:     rec.str("referencia_producto"),
			ValorCurva:     rec.dec("valor_curva"),
		}
		out = append(out, p)
		return rec.err()
	})
	return out, err
}

func (s *CSVSource) FetchSaleLineChunks(ctx context.Context, chunkSize int, fn func(chunk []model.SaleCandidate) error) error {
	if chunkSize <= 0 {
		return fmt.Errorf("csv source: chunk size must be positive, got %d", chunkSize)
	}

	chunk := make([]model.SaleCandidate, 0, chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := fn(chunk); err != nil {
			return err
		}
		chunk = chunk[:0]
		return nil
	}

	err := s.readAll(ctx, fileSaleLines, func(rec record) error {
		c := model.SaleCandidate{
			CodigoBodega:      rec.str("codigo_bodega"),
			CodigoCaja:        rec.str("codigo_caja"),
			CodigoEvento:      rec.str("codigo_evento"),
			NumeroTicket:      rec.int64("numero_ticket"),
			NumeroConsecutivo: rec.int64("numero_consecutivo"),
			FechaOperacion:    rec.date("fecha_operacion"),
			CodigoCliente:     rec.str("codigo_cliente"),
			CodigoProducto:    rec.str("codigo_producto"),
			Cantidad:          rec.dec("cantidad"),
			ValorUnitario:     rec.dec("valor_unitario"),
			ValorDescuento:    rec.dec("valor_descuento"),
			ValorVenta:        rec.dec("valor_venta"),
			IvaPorcentaje:     rec.dec("iva_porcentaje"),
		}
		if err := rec.err(); err != nil {
			return err
		}
		chunk = append(chunk, c)
		if len(chunk) >= chunkSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// readAll streams one file record by record. The callback receives a record
// bound to the file's header row; field access is by column name.
func (s *CSVSource) readAll(ctx context.Context, name string, fn func(rec record) error) error {
	path := filepath.Join(s.cfg.Dir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("csv source: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if s.cfg.Latin1 {
		reader = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}

	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("csv source: %s is empty", name)
		}
		return fmt.Errorf("csv source: read %s header: %w", name, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("csv source: read %s: %w", name, err)
		}
		line++

		rec := record{file: name, line: line, cols: cols, fields: fields}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// record is one data row with header-based field access. Parse failures are
// collected on the record and surfaced once via err, so a row with several bad
// fields reports the first with its file and line.
type record struct {
	file   string
	line   int
	cols   map[string]int
	fields []string

	firstErr error
}

func (r *record) fail(col string, cause error) {
	if r.firstErr == nil {
		r.firstErr = fmt.Errorf("%s line %d, column %s: %w", r.file, r.line, col, cause)
	}
}

func (r *record) err() error { return r.firstErr }

func (r *record) raw(col string) (string, bool) {
	i, ok := r.cols[col]
	if !ok || i >= len(r.fields) {
		return "", false
	}
	v := strings.TrimSpace(r.fields[i])
	if v == "" {
		return "", false
	}
	return v, true
}

func (r *record) str(col string) sql.NullString {
	v, ok := r.raw(col)
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func (r *record) int64(col string) sql.NullInt64 {
	v, ok := r.raw(col)
	if !ok {
		return sql.NullInt64{}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(col, err)
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

func (r *record) date(col string) sql.NullTime {
	v, ok := r.raw(col)
	if !ok {
		return sql.NullTime{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	r.fail(col, fmt.Errorf("unrecognized date %q", v))
	return sql.NullTime{}
}

func (r *record) dec(col string) decimal.NullDecimal {
	v, ok := r.raw(col)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(col, err)
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

var _ Source = (*CSVSource)(nil)
