package source

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ventasdwh/internal/model"
)

// SQLConfig configures the SQL source. Driver is any registered database/sql
// driver name; the POS extraction schema defaults to DEMO_DWH.
type SQLConfig struct {
	Driver string
	DSN    string
	Schema string
}

// SQLSource extracts the five record sets from the upstream POS database.
// The extraction queries own the upstream joins: sale lines arrive already
// joined to their header (for date and customer) and to the product catalog
// (to resolve barcodes into product codes), and products arrive joined to the
// article master for reference attributes.
type SQLSource struct {
	db     *sqlx.DB
	schema string
}

func NewSQL(ctx context.Context, cfg SQLConfig) (*SQLSource, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("sql source: driver is required")
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := cfg.Schema
	if schema == "" {
		schema = "DEMO_DWH"
	}
	return &SQLSource{db: db, schema: schema}, nil
}

func (s *SQLSource) Close() error { return s.db.Close() }

func (s *SQLSource) FetchSaleHeaders(ctx context.Context) ([]model.SaleHeader, error) {
	q := fmt.Sprintf(`
SELECT
    BOD_CODI        AS codigo_bodega,
    CAJ_CODI        AS codigo_caja,
    EVE_CODI        AS codigo_evento,
    TKT_NMRO        AS numero_ticket,
    FEC_OPER        AS fecha_operacion,
    COD_CLTE        AS codigo_cliente
FROM %s.ENC_VENT`, s.schema)

	var out []model.SaleHeader
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("fetch sale headers: %w", err)
	}
	return out, nil
}

func (s *SQLSource) FetchCustomers(ctx context.Context) ([]model.Customer, error) {
	q := fmt.Sprintf(`
SELECT
    COD_CLTE        AS codigo_cliente,
    NOM_CLTE        AS nombre_cliente,
    APE_CLTE        AS apellido_cliente,
    DIR_CLTE        AS direccion_cliente,
    TEL_CLTE        AS telefono_cliente,
    FEC_NACI        AS fecha_nacimiento_cliente,
    CLT_MAIL        AS email_cliente,
    SEX_CLTE        AS sexo_cliente
FROM %s.POS_CLTE`, s.schema)

	var out []model.Customer
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	return out, nil
}

func (s *SQLSource) FetchWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	q := fmt.Sprintf(`
SELECT
    BOD_CODI        AS codigo_bodega,
    BOD_DESC        AS descripcion_bodega,
    DIR_BODE        AS direccion_bodega
FROM %s.MAE_BODE`, s.schema)

	var out []model.Warehouse
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("fetch warehouses: %w", err)
	}
	return out, nil
}

func (s *SQLSource) FetchProducts(ctx context.Context) ([]model.Product, error) {
	q := fmt.Sprintf(`
SELECT
    V.ART_CODI      AS codigo_producto,
    V.ART_DESC      AS descripcion_producto,
    V.ART_TIPO      AS tipo_producto,
    V.EST_ARTI      AS estado_producto,
    A.ART_REFE      AS referencia_producto,
    A.VAL_CURV      AS valor_curva
FROM %s.ART_VENT V
LEFT JOIN %s.MAE_ARTI A
    ON V.ART_CODI = A.ART_CODI`, s.schema, s.schema)

	var out []model.Product
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return out, nil
}

// FetchSaleLineChunks streams the header⋈line join in chunks of up to
// chunkSize records. The cursor stays open for the duration of the callback
// loop; fn errors stop iteration and propagate unchanged.
func (s *SQLSource) FetchSaleLineChunks(ctx context.Context, chunkSize int, fn func(chunk []model.SaleCandidate) error) error {
	if chunkSize <= 0 {
		return fmt.Errorf("sql source: chunk size must be positive, got %d", chunkSize)
	}

	q := fmt.Sprintf(`
SELECT
    D.BOD_CODI      AS codigo_bodega,
    D.CAJ_CODI      AS codigo_caja,
    D.EVE_CODI      AS codigo_evento,
    D.TKT_NMRO      AS numero_ticket,
    D.TKT_CONS      AS numero_consecutivo,
    E.FEC_OPER      AS fecha_operacion,
    E.COD_CLTE      AS codigo_cliente,
    V.ART_CODI      AS codigo_producto,
    D.CAN_ARTI      AS cantidad,
    D.VAL_UNIT      AS valor_unitario,
    D.VAL_DCTO      AS valor_descuento,
    D.VAL_VENT      AS valor_venta,
    D.IVA_PORC      AS iva_porcentaje
FROM %[1]s.DET_VENT D
INNER JOIN %[1]s.ENC_VENT E
    ON D.BOD_CODI = E.BOD_CODI
   AND D.CAJ_CODI = E.CAJ_CODI
   AND D.EVE_CODI = E.EVE_CODI
   AND D.TKT_NMRO = E.TKT_NMRO
INNER JOIN %[1]s.ART_VENT V
    ON D.COD_BARR = V.COD_BARR`, s.schema)

	rows, err := s.db.QueryxContext(ctx, q)
	if err != nil {
		return fmt.Errorf("fetch sale lines: %w", err)
	}
	defer rows.Close()

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

	for rows.Next() {
		var c model.SaleCandidate
		if err := rows.StructScan(&c); err != nil {
			return fmt.Errorf("scan sale line: %w", err)
		}
		chunk = append(chunk, c)
		if len(chunk) >= chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("fetch sale lines: %w", err)
	}
	return flush()
}

var _ Source = (*SQLSource)(nil)
