package star

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ventasdwh/internal/metrics"
	"ventasdwh/internal/model"
	"ventasdwh/internal/sink"
	"ventasdwh/internal/source"
)

// DefaultChunkSize matches the upstream extraction default.
const DefaultChunkSize = 10000

// Pipeline drives one warehouse load: build the four dimensions from their
// full reference sets, write them with replace semantics, then stream the
// sale lines in bounded chunks through the fact assembler and append each
// chunk's fact rows before releasing the chunk.
//
// Execution is single-threaded and synchronous. The assembly state (global
// venta_id counter, cross-chunk key set) is owned here and advanced one chunk
// at a time; a failure inside one chunk aborts the run and leaves dimension
// tables and previously appended fact batches untouched (append is monotonic,
// there is no in-band rollback).
type Pipeline struct {
	Source source.Source
	Sink   sink.Sink
	Logger *slog.Logger

	// ChunkSize bounds how many sale lines are resident at once.
	// Defaults to DefaultChunkSize.
	ChunkSize int

	// FactMode selects how fact_ventas is written. Append (the default)
	// leaves prior runs' rows in place; Replace truncates on the first chunk
	// and appends the rest of the run.
	FactMode sink.WriteMode

	// StrictKeys aborts the run on the first record with a malformed natural
	// key instead of counting and skipping it.
	StrictKeys bool
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(discardHandler{})
}

// Run executes the load and returns the per-stage row counts. The returned
// stats are valid (for what completed) even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}

	if p.Source == nil {
		return stats, fmt.Errorf("pipeline: Source is required")
	}
	if p.Sink == nil {
		return stats, fmt.Errorf("pipeline: Sink is required")
	}

	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	factMode := p.FactMode
	if factMode == "" {
		factMode = sink.Append
	}

	log := p.logger()

	ddlStart := time.Now()
	if err := p.Sink.EnsureTables(ctx); err != nil {
		return stats, p.failStep("ddl", err)
	}
	log.Info("stage ok", "stage", "ddl", "duration", durMS(ddlStart))

	dims, err := p.buildDimensions(ctx, stats)
	if err != nil {
		return stats, err
	}

	if err := p.writeDimensions(ctx, dims); err != nil {
		return stats, err
	}

	if err := p.loadFacts(ctx, dims, stats, chunkSize, factMode); err != nil {
		return stats, err
	}

	log.Info("run complete", "stats", stats)
	return stats, nil
}

// buildDimensions fetches the reference sets and builds all four dimension
// tables. Dimensions need their full sources resident; they are bounded
// reference data, unlike the sale lines.
func (p *Pipeline) buildDimensions(ctx context.Context, stats *RunStats) (*Dimensions, error) {
	log := p.logger()
	start := time.Now()

	headers, err := p.Source.FetchSaleHeaders(ctx)
	if err != nil {
		return nil, p.failStep("fetch_sale_headers", err)
	}
	customers, err := p.Source.FetchCustomers(ctx)
	if err != nil {
		return nil, p.failStep("fetch_customers", err)
	}
	warehouses, err := p.Source.FetchWarehouses(ctx)
	if err != nil {
		return nil, p.failStep("fetch_warehouses", err)
	}
	products, err := p.Source.FetchProducts(ctx)
	if err != nil {
		return nil, p.failStep("fetch_products", err)
	}

	dims := &Dimensions{}
	dims.Tiempo = BuildDimTiempo(headers)

	var st DedupeStats
	if dims.Cliente, st, err = BuildDimCliente(customers, p.StrictKeys); err != nil {
		return nil, p.failStep("build_dim_cliente", err)
	}
	stats.DimMalformed += st.Malformed

	if dims.Bodega, st, err = BuildDimBodega(warehouses, p.StrictKeys); err != nil {
		return nil, p.failStep("build_dim_bodega", err)
	}
	stats.DimMalformed += st.Malformed

	if dims.Producto, st, err = BuildDimProducto(products, p.StrictKeys); err != nil {
		return nil, p.failStep("build_dim_producto", err)
	}
	stats.DimMalformed += st.Malformed

	stats.DimTiempo = len(dims.Tiempo.Rows)
	stats.DimCliente = len(dims.Cliente.Rows)
	stats.DimBodega = len(dims.Bodega.Rows)
	stats.DimProducto = len(dims.Producto.Rows)

	p.okStep("build_dimensions", start)
	log.Info("stage ok", "stage", "build_dimensions", "duration", durMS(start),
		"dim_tiempo", stats.DimTiempo, "dim_cliente", stats.DimCliente,
		"dim_bodega", stats.DimBodega, "dim_producto", stats.DimProducto,
		"malformed", stats.DimMalformed)
	return dims, nil
}

// writeDimensions persists the four dimensions with replace semantics: every
// run is a full snapshot, surrogate ids carry no identity across runs.
func (p *Pipeline) writeDimensions(ctx context.Context, dims *Dimensions) error {
	log := p.logger()
	start := time.Now()

	writes := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{model.TableDimTiempo, model.TiempoColumns(), model.TiempoValues(dims.Tiempo.Rows)},
		{model.TableDimCliente, model.ClienteColumns(), model.ClienteValues(dims.Cliente.Rows)},
		{model.TableDimBodega, model.BodegaColumns(), model.BodegaValues(dims.Bodega.Rows)},
		{model.TableDimProducto, model.ProductoColumns(), model.ProductoValues(dims.Producto.Rows)},
	}

	for _, w := range writes {
		n, err := p.Sink.Write(ctx, w.table, w.columns, w.rows, sink.Replace)
		if err != nil {
			return p.failStep("write_"+w.table, fmt.Errorf("write %s: %w", w.table, err))
		}
		metrics.IncCounter("etl_records_total", float64(n), metrics.Labels{"kind": w.table})
	}

	p.okStep("write_dimensions", start)
	log.Info("stage ok", "stage", "write_dimensions", "duration", durMS(start))
	return nil
}

// loadFacts streams the sale lines chunk by chunk. The assembly state lives
// here for the whole loop: the venta_id counter keeps fact ids dense across
// chunks and the retained key set de-duplicates across chunk boundaries.
func (p *Pipeline) loadFacts(ctx context.Context, dims *Dimensions, stats *RunStats, chunkSize int, factMode sink.WriteMode) error {
	log := p.logger()
	start := time.Now()

	state := NewAssemblyState()
	factCols := model.FactColumns()

	err := p.Source.FetchSaleLineChunks(ctx, chunkSize, func(chunk []model.SaleCandidate) error {
		chunkStart := time.Now()

		facts, cs, err := Assemble(chunk, dims, state, p.StrictKeys)
		if err != nil {
			return err
		}

		// Replace mode only truncates once; every later chunk of the same
		// run must append or it would wipe its predecessors.
		mode := factMode
		if mode == sink.Replace && stats.Chunks > 0 {
			mode = sink.Append
		}

		written, err := p.Sink.Write(ctx, model.TableFactVentas, factCols, model.FactValues(facts), mode)
		if err != nil {
			return fmt.Errorf("write %s: %w", model.TableFactVentas, err)
		}

		stats.addChunk(cs, written)
		metrics.IncCounter("etl_batches_total", 1, nil)
		metrics.IncCounter("etl_records_total", float64(cs.Facts), metrics.Labels{"kind": model.TableFactVentas})

		log.Debug("chunk ok", "chunk", stats.Chunks, "candidates", cs.Dedupe.Input,
			"facts", cs.Facts, "duplicates", cs.Dedupe.Duplicates,
			"malformed", cs.Dedupe.Malformed, "unresolved", cs.Unresolved.Total(),
			"duration", durMS(chunkStart))
		return nil
	})
	if err != nil {
		return p.failStep("load_facts", err)
	}

	// Sources skip the callback entirely on an empty extract. Replace mode
	// must still supersede prior contents: the dimensions were just rebuilt,
	// so fact rows from an earlier run reference stale surrogate ids.
	if factMode == sink.Replace && stats.Chunks == 0 {
		if _, err := p.Sink.Write(ctx, model.TableFactVentas, factCols, nil, sink.Replace); err != nil {
			return p.failStep("load_facts", fmt.Errorf("write %s: %w", model.TableFactVentas, err))
		}
	}

	p.okStep("load_facts", start)
	log.Info("stage ok", "stage", "load_facts", "duration", durMS(start),
		"chunks", stats.Chunks, "candidates_seen", stats.CandidatesSeen,
		"facts_emitted", stats.FactsEmitted,
		"unresolved_total", stats.Unresolved.Total())
	return nil
}

func (p *Pipeline) okStep(step string, start time.Time) {
	metrics.IncCounter("etl_step_total", 1, metrics.Labels{"step": step, "status": "ok"})
	metrics.ObserveHistogram("etl_step_duration_seconds", time.Since(start).Seconds(),
		metrics.Labels{"step": step, "status": "ok"})
}

func (p *Pipeline) failStep(step string, err error) error {
	metrics.IncCounter("etl_step_total", 1, metrics.Labels{"step": step, "status": "error"})
	p.logger().Error("stage failed", "stage", step, "err", err)
	return err
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

// discardHandler drops all records; used when no Logger is wired.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
