package sink

import "ventasdwh/internal/model"

// Kind is a backend-neutral column type. Each backend maps kinds to its own
// SQL types (postgres "numeric", mssql "decimal(18,4)", sqlite affinity).
type Kind string

const (
	KindBigInt  Kind = "bigint"
	KindInt     Kind = "int"
	KindText    Kind = "text"
	KindDate    Kind = "date"
	KindBool    Kind = "bool"
	KindNumeric Kind = "numeric"
)

type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// TableDef describes one warehouse table: its columns, primary key, and the
// optional unique constraint backends use for idempotent appends.
type TableDef struct {
	Name       string
	PrimaryKey string
	Columns    []Column

	// Unique is the natural-key constraint. For fact_ventas it is the
	// composite transactional key, which makes append mode safe to re-run:
	// conflict-ignore semantics skip rows already loaded by a prior run.
	Unique []string
}

// Tables returns the five warehouse table definitions in load order. The
// schema is fixed, so the definitions live here as data the backends render
// into their own DDL dialects, instead of a per-deployment config file.
func Tables() []TableDef {
	return []TableDef{
		{
			Name:       model.TableDimTiempo,
			PrimaryKey: "tiempo_id",
			Columns: []Column{
				{Name: "tiempo_id", Kind: KindBigInt},
				{Name: "fecha_completa", Kind: KindDate},
				{Name: "dia", Kind: KindInt},
				{Name: "mes", Kind: KindInt},
				{Name: "anio", Kind: KindInt},
				{Name: "trimestre", Kind: KindInt},
				{Name: "nombre_dia", Kind: KindText},
				{Name: "nombre_mes", Kind: KindText},
				{Name: "es_fin_de_semana", Kind: KindBool},
			},
			Unique: []string{"fecha_completa"},
		},
		{
			Name:       model.TableDimCliente,
			PrimaryKey: "cliente_id",
			Columns: []Column{
				{Name: "cliente_id", Kind: KindBigInt},
				{Name: "codigo_cliente", Kind: KindText},
				{Name: "nombre_cliente", Kind: KindText, Nullable: true},
				{Name: "apellido_cliente", Kind: KindText, Nullable: true},
				{Name: "direccion_cliente", Kind: KindText, Nullable: true},
				{Name: "telefono_cliente", Kind: KindText, Nullable: true},
				{Name: "fecha_nacimiento_cliente", Kind: KindDate, Nullable: true},
				{Name: "email_cliente", Kind: KindText, Nullable: true},
				{Name: "sexo_cliente", Kind: KindText, Nullable: true},
			},
			Unique: []string{"codigo_cliente"},
		},
		{
			Name:       model.TableDimBodega,
			PrimaryKey: "bodega_id",
			Columns: []Column{
				{Name: "bodega_id", Kind: KindBigInt},
				{Name: "codigo_bodega", Kind: KindText},
				{Name: "descripcion_bodega", Kind: KindText, Nullable: true},
				{Name: "direccion_bodega", Kind: KindText, Nullable: true},
			},
			Unique: []string{"codigo_bodega"},
		},
		{
			Name:       model.TableDimProducto,
			PrimaryKey: "producto_id",
			Columns: []Column{
				{Name: "producto_id", Kind: KindBigInt},
				{Name: "codigo_producto", Kind: KindText},
				{Name: "descripcion_producto", Kind: KindText, Nullable: true},
				{Name: "tipo_producto", Kind: KindText, Nullable: true},
				{Name: "estado_producto", Kind: KindText, Nullable: true},
				{Name: "referencia_producto", Kind: KindText, Nullable: true},
				{Name: "valor_curva", Kind: KindNumeric, Nullable: true},
			},
			Unique: []string{"codigo_producto"},
		},
		{
			Name:       model.TableFactVentas,
			PrimaryKey: "venta_id",
			Columns: []Column{
				{Name: "venta_id", Kind: KindBigInt},
				{Name: "tiempo_id", Kind: KindBigInt, Nullable: true},
				{Name: "cliente_id", Kind: KindBigInt, Nullable: true},
				{Name: "bodega_id", Kind: KindBigInt, Nullable: true},
				{Name: "producto_id", Kind: KindBigInt, Nullable: true},
				{Name: "codigo_bodega", Kind: KindText},
				{Name: "codigo_caja", Kind: KindText},
				{Name: "codigo_evento", Kind: KindText},
				{Name: "numero_ticket", Kind: KindBigInt},
				{Name: "numero_consecutivo", Kind: KindBigInt},
				{Name: "cantidad", Kind: KindNumeric, Nullable: true},
				{Name: "valor_unitario", Kind: KindNumeric, Nullable: true},
				{Name: "valor_descuento", Kind: KindNumeric, Nullable: true},
				{Name: "valor_venta", Kind: KindNumeric, Nullable: true},
				{Name: "iva_porcentaje", Kind: KindNumeric, Nullable: true},
			},
			Unique: []string{
				"codigo_bodega", "codigo_caja", "codigo_evento",
				"numero_ticket", "numero_consecutivo",
			},
		},
	}
}

// FindTable returns the definition for a table name.
func FindTable(name string) (TableDef, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return TableDef{}, false
}
