// Package model defines the typed records flowing through the warehouse
// pipeline: raw source records on the way in, dimension and fact rows on the
// way out. Column names follow the warehouse schema (Spanish, matching the
// upstream POS system), so the sink can write tables without a mapping layer.
package model

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// SaleHeader is one row of the sales header source (ENC_VENT): a ticket-level
// event carrying the operation date and the customer who bought.
type SaleHeader struct {
	CodigoBodega   sql.NullString `db:"codigo_bodega"`
	CodigoCaja     sql.NullString `db:"codigo_caja"`
	CodigoEvento   sql.NullString `db:"codigo_evento"`
	NumeroTicket   sql.NullInt64  `db:"numero_ticket"`
	FechaOperacion sql.NullTime   `db:"fecha_operacion"`
	CodigoCliente  sql.NullString `db:"codigo_cliente"`
}

// SaleCandidate is one line-level transactional event, produced by the source
// by joining sale headers with sale lines (and lines with the product catalog
// to resolve barcodes into product codes). It carries every natural key needed
// to join the four dimensions plus the line measures.
type SaleCandidate struct {
	CodigoBodega      sql.NullString `db:"codigo_bodega"`
	CodigoCaja        sql.NullString `db:"codigo_caja"`
	CodigoEvento      sql.NullString `db:"codigo_evento"`
	NumeroTicket      sql.NullInt64  `db:"numero_ticket"`
	NumeroConsecutivo sql.NullInt64  `db:"numero_consecutivo"`

	FechaOperacion sql.NullTime   `db:"fecha_operacion"`
	CodigoCliente  sql.NullString `db:"codigo_cliente"`
	CodigoProducto sql.NullString `db:"codigo_producto"`

	// Measures are passed through to the fact table unmodified. Decimal, not
	// float: unit values and tax fractions must round-trip at source precision.
	Cantidad       decimal.NullDecimal `db:"cantidad"`
	ValorUnitario  decimal.NullDecimal `db:"valor_unitario"`
	ValorDescuento decimal.NullDecimal `db:"valor_descuento"`
	ValorVenta     decimal.NullDecimal `db:"valor_venta"`
	IvaPorcentaje  decimal.NullDecimal `db:"iva_porcentaje"`
}

// Customer is one row of the customer reference source (POS_CLTE).
type Customer struct {
	CodigoCliente   sql.NullString `db:"codigo_cliente"`
	Nombre          sql.NullString `db:"nombre_cliente"`
	Apellido        sql.NullString `db:"apellido_cliente"`
	Direccion       sql.NullString `db:"direccion_cliente"`
	Telefono        sql.NullString `db:"telefono_cliente"`
	FechaNacimiento sql.NullTime   `db:"fecha_nacimiento_cliente"`
	Email           sql.NullString `db:"email_cliente"`
	Sexo            sql.NullString `db:"sexo_cliente"`
}

// Warehouse is one row of the warehouse reference source (MAE_BODE).
type Warehouse struct {
	CodigoBodega sql.NullString `db:"codigo_bodega"`
	Descripcion  sql.NullString `db:"descripcion_bodega"`
	Direccion    sql.NullString `db:"direccion_bodega"`
}

// Product is one row of the product reference source. The source query joins
// the sold-articles table (ART_VENT) with the article master (MAE_ARTI) so the
// reference and curve attributes arrive already merged; that join is the
// source's concern, not the dimension builder's.
type Product struct {
	CodigoProducto sql.NullString      `db:"codigo_producto"`
	Descripcion    sql.NullString      `db:"descripcion_producto"`
	Tipo           sql.NullString      `db:"tipo_producto"`
	Estado         sql.NullString      `db:"estado_producto"`
	Referencia     sql.NullString      `db:"referencia_producto"`
	ValorCurva     decimal.NullDecimal `db:"valor_curva"`
}
