package star

import (
	"sort"
	"time"

	"ventasdwh/internal/model"
)

// Spanish calendar names, matching what the reporting layer expects in
// nombre_dia / nombre_mes. Indexed by time.Weekday and time.Month.
var (
	nombresDia = [7]string{
		"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado",
	}
	nombresMes = [13]string{
		"", // time.Month is 1-based
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
)

// Dimensions bundles the four built dimension tables. Once built they are
// read-only inputs to the fact assembler.
type Dimensions struct {
	Tiempo   *DimTiempo
	Cliente  *DimCliente
	Bodega   *DimBodega
	Producto *DimProducto
}

// DimTiempo is the time dimension: one row per distinct calendar date seen in
// the sales headers, surrogate ids assigned ascending by date.
type DimTiempo struct {
	Rows   []model.TiempoRow
	lookup *Lookup
}

// ByFecha resolves a date value to its surrogate id (normalized-date match).
func (d *DimTiempo) ByFecha(t time.Time) (int64, bool) {
	return d.lookup.Get(dateKey(normalizeDate(t)))
}

type DimCliente struct {
	Rows   []model.ClienteRow
	lookup *Lookup
}

func (d *DimCliente) ByCodigo(code string) (int64, bool) { return d.lookup.Get(code) }

type DimBodega struct {
	Rows   []model.BodegaRow
	lookup *Lookup
}

func (d *DimBodega) ByCodigo(code string) (int64, bool) { return d.lookup.Get(code) }

type DimProducto struct {
	Rows   []model.ProductoRow
	lookup *Lookup
}

func (d *DimProducto) ByCodigo(code string) (int64, bool) { return d.lookup.Get(code) }

// normalizeDate strips the time-of-day component. All date keys in the time
// dimension and all fact-side date lookups go through this, so a header
// timestamp and a midnight date compare equal.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// BuildDimTiempo derives the time dimension from the sales headers.
//
// Null operation dates are dropped, not errored: dates are expected to be
// sparse only at the margins of the extract. Surrogate ids are assigned after
// sorting ascending by calendar date, so tiempo_id order follows the calendar;
// like all dimensions here, ids are not stable across runs unless the input
// date set is unchanged.
func BuildDimTiempo(headers []model.SaleHeader) *DimTiempo {
	seen := NewSeenSet()
	rows := make([]model.TiempoRow, 0, 64)

	for _, h := range headers {
		if !h.FechaOperacion.Valid {
			continue
		}
		fecha := normalizeDate(h.FechaOperacion.Time)
		if !seen.Add(dateKey(fecha)) {
			continue
		}

		wd := fecha.Weekday()
		mes := int(fecha.Month())
		rows = append(rows, model.TiempoRow{
			FechaCompleta: fecha,
			Dia:           fecha.Day(),
			Mes:           mes,
			Anio:          fecha.Year(),
			Trimestre:     (mes + 2) / 3,
			NombreDia:     nombresDia[wd],
			NombreMes:     nombresMes[mes],
			EsFinDeSemana: wd == time.Saturday || wd == time.Sunday,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].FechaCompleta.Before(rows[j].FechaCompleta)
	})
	Number(rows, func(r *model.TiempoRow, id int64) { r.TiempoID = id })

	lk := NewLookup(len(rows))
	for _, r := range rows {
		lk.Put(dateKey(r.FechaCompleta), r.TiempoID)
	}
	return &DimTiempo{Rows: rows, lookup: lk}
}

// BuildDimCliente derives the customer dimension, de-duplicated by customer
// code (first occurrence wins), surrogate ids in input order.
func BuildDimCliente(customers []model.Customer, strict bool) (*DimCliente, DedupeStats, error) {
	kept, st, err := Dedupe(customers, func(c model.Customer) (string, error) {
		return keyPart("codigo_cliente", c.CodigoCliente.String)
	}, nil, strict)
	if err != nil {
		return nil, st, err
	}

	rows := make([]model.ClienteRow, len(kept))
	for i, c := range kept {
		code, _ := keyPart("codigo_cliente", c.CodigoCliente.String)
		rows[i] = model.ClienteRow{
			CodigoCliente:   code,
			Nombre:          c.Nombre,
			Apellido:        c.Apellido,
			Direccion:       c.Direccion,
			Telefono:        c.Telefono,
			FechaNacimiento: c.FechaNacimiento,
			Email:           c.Email,
			Sexo:            c.Sexo,
		}
	}
	Number(rows, func(r *model.ClienteRow, id int64) { r.ClienteID = id })

	lk := NewLookup(len(rows))
	for _, r := range rows {
		lk.Put(r.CodigoCliente, r.ClienteID)
	}
	return &DimCliente{Rows: rows, lookup: lk}, st, nil
}

// BuildDimBodega derives the warehouse dimension, de-duplicated by warehouse
// code, surrogate ids in input order.
func BuildDimBodega(warehouses []model.Warehouse, strict bool) (*DimBodega, DedupeStats, error) {
	kept, st, err := Dedupe(warehouses, func(w model.Warehouse) (string, error) {
		return keyPart("codigo_bodega", w.CodigoBodega.String)
	}, nil, strict)
	if err != nil {
		return nil, st, err
	}

	rows := make([]model.BodegaRow, len(kept))
	for i, w := range kept {
		code, _ := keyPart("codigo_bodega", w.CodigoBodega.String)
		rows[i] = model.BodegaRow{
			CodigoBodega: code,
			Descripcion:  w.Descripcion,
			Direccion:    w.Direccion,
		}
	}
	Number(rows, func(r *model.BodegaRow, id int64) { r.BodegaID = id })

	lk := NewLookup(len(rows))
	for _, r := range rows {
		lk.Put(r.CodigoBodega, r.BodegaID)
	}
	return &DimBodega{Rows: rows, lookup: lk}, st, nil
}

// BuildDimProducto derives the product dimension, de-duplicated by product
// code, surrogate ids in input order. Reference attributes arrive already
// joined by the source query.
func BuildDimProducto(products []model.Product, strict bool) (*DimProducto, DedupeStats, error) {
	kept, st, err := Dedupe(products, func(p model.Product) (string, error) {
		return keyPart("codigo_producto", p.CodigoProducto.String)
	}, nil, strict)
	if err != nil {
		return nil, st, err
	}

	rows := make([]model.ProductoRow, len(kept))
	for i, p := range kept {
		code, _ := keyPart("codigo_producto", p.CodigoProducto.String)
		rows[i] = model.ProductoRow{
			CodigoProducto: code,
			Descripcion:    p.Descripcion,
			Tipo:           p.Tipo,
			Estado:         p.Estado,
			Referencia:     p.Referencia,
			ValorCurva:     p.ValorCurva,
		}
	}
	Number(rows, func(r *model.ProductoRow, id int64) { r.ProductoID = id })

	lk := NewLookup(len(rows))
	for _, r := range rows {
		lk.Put(r.CodigoProducto, r.ProductoID)
	}
	return &DimProducto{Rows: rows, lookup: lk}, st, nil
}
