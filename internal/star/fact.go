package star

import (
	"database/sql"
	"strings"

	"ventasdwh/internal/model"
)

// AssemblyState is the mutable state shared across chunk invocations of
// Assemble: the global venta_id counter and the composite-key set used for
// cross-chunk de-duplication. Single-writer: only the pipeline controller
// advances it, one chunk at a time. Chunks must not be processed concurrently
// against the same state without external synchronization.
type AssemblyState struct {
	nextID int64
	seen   *SeenSet
}

func NewAssemblyState() *AssemblyState {
	return &AssemblyState{seen: NewSeenSet()}
}

// UnresolvedCounts tallies left-outer lookup misses per dimension. Misses load
// a null foreign key; these counts exist so operators can spot data-quality
// regressions without the run failing.
type UnresolvedCounts struct {
	Tiempo   int
	Cliente  int
	Bodega   int
	Producto int
}

func (u UnresolvedCounts) Total() int {
	return u.Tiempo + u.Cliente + u.Bodega + u.Producto
}

func (u *UnresolvedCounts) add(o UnresolvedCounts) {
	u.Tiempo += o.Tiempo
	u.Cliente += o.Cliente
	u.Bodega += o.Bodega
	u.Producto += o.Producto
}

// ChunkStats summarizes one Assemble call.
type ChunkStats struct {
	Dedupe     DedupeStats
	Facts      int
	Unresolved UnresolvedCounts
}

// candidateKey builds the composite transactional natural key
// (bodega, caja, evento, ticket, consecutivo) of a sale line.
func candidateKey(c model.SaleCandidate) (string, error) {
	bod, err := keyPart("codigo_bodega", c.CodigoBodega.String)
	if err != nil {
		return "", err
	}
	caja, err := keyPart("codigo_caja", c.CodigoCaja.String)
	if err != nil {
		return "", err
	}
	eve, err := keyPart("codigo_evento", c.CodigoEvento.String)
	if err != nil {
		return "", err
	}
	if !c.NumeroTicket.Valid {
		return "", keyErr("numero_ticket")
	}
	if !c.NumeroConsecutivo.Valid {
		return "", keyErr("numero_consecutivo")
	}
	return compositeKey(
		bod, caja, eve,
		formatInt(c.NumeroTicket.Int64),
		formatInt(c.NumeroConsecutivo.Int64),
	), nil
}

func keyErr(field string) error {
	_, err := keyPart(field, "")
	return err
}

// Assemble turns one batch of sale-line candidates into fact rows.
//
// Candidates are de-duplicated by composite transactional key against the
// state's retained key set, then each survivor is resolved against the four
// dimensions. Every resolution is an independent left-outer lookup: a miss
// produces a null foreign key on that row and bumps the unresolved count, it
// never discards the row. venta_id continues from the state's counter so ids
// stay dense and globally unique across chunks.
//
// Measures pass through unmodified.
func Assemble(cands []model.SaleCandidate, dims *Dimensions, st *AssemblyState, strict bool) ([]model.FactVenta, ChunkStats, error) {
	var stats ChunkStats

	kept, ds, err := Dedupe(cands, candidateKey, st.seen, strict)
	if err != nil {
		return nil, stats, err
	}
	stats.Dedupe = ds

	facts := make([]model.FactVenta, 0, len(kept))
	for _, c := range kept {
		st.nextID++
		f := model.FactVenta{
			VentaID:           st.nextID,
			CodigoBodega:      strings.TrimSpace(c.CodigoBodega.String),
			CodigoCaja:        strings.TrimSpace(c.CodigoCaja.String),
			CodigoEvento:      strings.TrimSpace(c.CodigoEvento.String),
			NumeroTicket:      c.NumeroTicket.Int64,
			NumeroConsecutivo: c.NumeroConsecutivo.Int64,
			Cantidad:          c.Cantidad,
			ValorUnitario:     c.ValorUnitario,
			ValorDescuento:    c.ValorDescuento,
			ValorVenta:        c.ValorVenta,
			IvaPorcentaje:     c.IvaPorcentaje,
		}

		if c.FechaOperacion.Valid {
			if id, ok := dims.Tiempo.ByFecha(c.FechaOperacion.Time); ok {
				f.TiempoID = sql.NullInt64{Int64: id, Valid: true}
			}
		}
		if !f.TiempoID.Valid {
			stats.Unresolved.Tiempo++
		}

		if code := strings.TrimSpace(c.CodigoCliente.String); c.CodigoCliente.Valid && code != "" {
			if id, ok := dims.Cliente.ByCodigo(code); ok {
				f.ClienteID = sql.NullInt64{Int64: id, Valid: true}
			}
		}
		if !f.ClienteID.Valid {
			stats.Unresolved.Cliente++
		}

		if id, ok := dims.Bodega.ByCodigo(f.CodigoBodega); ok {
			f.BodegaID = sql.NullInt64{Int64: id, Valid: true}
		} else {
			stats.Unresolved.Bodega++
		}

		if code := strings.TrimSpace(c.CodigoProducto.String); c.CodigoProducto.Valid && code != "" {
			if id, ok := dims.Producto.ByCodigo(code); ok {
				f.ProductoID = sql.NullInt64{Int64: id, Valid: true}
			}
		}
		if !f.ProductoID.Valid {
			stats.Unresolved.Producto++
		}

		facts = append(facts, f)
	}

	stats.Facts = len(facts)
	return facts, stats, nil
}
