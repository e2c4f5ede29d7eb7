package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Warehouse table names. The sinks create and load exactly these five tables.
const (
	TableDimTiempo   = "dim_tiempo"
	TableDimCliente  = "dim_cliente"
	TableDimBodega   = "dim_bodega"
	TableDimProducto = "dim_producto"
	TableFactVentas  = "fact_ventas"
)

// TiempoRow is one row of dim_tiempo. Calendar attributes are derived from
// FechaCompleta; day and month names are the Spanish locale names the
// downstream reports expect.
type TiempoRow struct {
	TiempoID      int64
	FechaCompleta time.Time
	Dia           int
	Mes           int
	Anio          int
	Trimestre     int
	NombreDia     string
	NombreMes     string
	EsFinDeSemana bool
}

// ClienteRow is one row of dim_cliente.
type ClienteRow struct {
	ClienteID       int64
	CodigoCliente   string
	Nombre          sql.NullString
	Apellido        sql.NullString
	Direccion       sql.NullString
	Telefono        sql.NullString
	FechaNacimiento sql.NullTime
	Email           sql.NullString
	Sexo            sql.NullString
}

// BodegaRow is one row of dim_bodega.
type BodegaRow struct {
	BodegaID     int64
	CodigoBodega string
	Descripcion  sql.NullString
	Direccion    sql.NullString
}

// ProductoRow is one row of dim_producto.
type ProductoRow struct {
	ProductoID     int64
	CodigoProducto string
	Descripcion    sql.NullString
	Tipo           sql.NullString
	Estado         sql.NullString
	Referencia     sql.NullString
	ValorCurva     decimal.NullDecimal
}

// FactVenta is one row of fact_ventas. The four dimension foreign keys are
// nullable on purpose: an unmatched lookup loads a null key, it never drops
// the row. The transactional natural key columns are kept for traceability.
type FactVenta struct {
	VentaID int64

	TiempoID   sql.NullInt64
	ClienteID  sql.NullInt64
	BodegaID   sql.NullInt64
	ProductoID sql.NullInt64

	CodigoBodega      string
	CodigoCaja        string
	CodigoEvento      string
	NumeroTicket      int64
	NumeroConsecutivo int64

	Cantidad       decimal.NullDecimal
	ValorUnitario  decimal.NullDecimal
	ValorDescuento decimal.NullDecimal
	ValorVenta     decimal.NullDecimal
	IvaPorcentaje  decimal.NullDecimal
}

// ---- positional projections consumed by the sinks ----
//
// Each XxxColumns/XxxValues pair must stay in lockstep; the sinks build their
// INSERT statements from the column slice and bind the value rows by position.

func TiempoColumns() []string {
	return []string{
		"tiempo_id", "fecha_completa", "dia", "mes", "anio", "trimestre",
		"nombre_dia", "nombre_mes", "es_fin_de_semana",
	}
}

func TiempoValues(rows []TiempoRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.TiempoID, r.FechaCompleta, r.Dia, r.Mes, r.Anio, r.Trimestre,
			r.NombreDia, r.NombreMes, r.EsFinDeSemana,
		}
	}
	return out
}

func ClienteColumns() []string {
	return []string{
		"cliente_id", "codigo_cliente", "nombre_cliente", "apellido_cliente",
		"direccion_cliente", "telefono_cliente", "fecha_nacimiento_cliente",
		"email_cliente", "sexo_cliente",
	}
}

func ClienteValues(rows []ClienteRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.ClienteID, r.CodigoCliente, r.Nombre, r.Apellido,
			r.Direccion, r.Telefono, r.FechaNacimiento, r.Email, r.Sexo,
		}
	}
	return out
}

func BodegaColumns() []string {
	return []string{"bodega_id", "codigo_bodega", "descripcion_bodega", "direccion_bodega"}
}

func BodegaValues(rows []BodegaRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.BodegaID, r.CodigoBodega, r.Descripcion, r.Direccion}
	}
	return out
}

func ProductoColumns() []string {
	return []string{
		"producto_id", "codigo_producto", "descripcion_producto",
		"tipo_producto", "estado_producto", "referencia_producto", "valor_curva",
	}
}

func ProductoValues(rows []ProductoRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.ProductoID, r.CodigoProducto, r.Descripcion,
			r.Tipo, r.Estado, r.Referencia, r.ValorCurva,
		}
	}
	return out
}

func FactColumns() []string {
	return []string{
		"venta_id", "tiempo_id", "cliente_id", "bodega_id", "producto_id",
		"codigo_bodega", "codigo_caja", "codigo_evento", "numero_ticket",
		"numero_consecutivo", "cantidad", "valor_unitario", "valor_descuento",
		"valor_venta", "iva_porcentaje",
	}
}

func FactValues(rows []FactVenta) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.VentaID, r.TiempoID, r.ClienteID, r.BodegaID, r.ProductoID,
			r.CodigoBodega, r.CodigoCaja, r.CodigoEvento, r.NumeroTicket,
			r.NumeroConsecutivo, r.Cantidad, r.ValorUnitario, r.ValorDescuento,
			r.ValorVenta, r.IvaPorcentaje,
		}
	}
	return out
}
