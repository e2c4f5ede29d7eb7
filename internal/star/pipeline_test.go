package star

import (
	"context"
	"errors"
	"testing"
	"time"

	"ventasdwh/internal/model"
	"ventasdwh/internal/sink"
)

// fakeSource serves fixed record sets and chunks the sale lines in memory.
type fakeSource struct {
	headers    []model.SaleHeader
	customers  []model.Customer
	warehouses []model.Warehouse
	products   []model.Product
	lines      []model.SaleCandidate

	linesErr error
}

func (f *fakeSource) FetchSaleHeaders(context.Context) ([]model.SaleHeader, error) {
	return f.headers, nil
}
func (f *fakeSource) FetchCustomers(context.Context) ([]model.Customer, error) {
	return f.customers, nil
}
func (f *fakeSource) FetchWarehouses(context.Context) ([]model.Warehouse, error) {
	return f.warehouses, nil
}
func (f *fakeSource) FetchProducts(context.Context) ([]model.Product, error) {
	return f.products, nil
}

func (f *fakeSource) FetchSaleLineChunks(ctx context.Context, chunkSize int, fn func([]model.SaleCandidate) error) error {
	if f.linesErr != nil {
		return f.linesErr
	}
	for start := 0; start < len(f.lines); start += chunkSize {
		end := start + chunkSize
		if end > len(f.lines) {
			end = len(f.lines)
		}
		if err := fn(f.lines[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) Close() error { return nil }

type sinkWrite struct {
	table   string
	columns []string
	rows    [][]any
	mode    sink.WriteMode
}

// fakeSink records every write in call order.
type fakeSink struct {
	writes      []sinkWrite
	ensureCalls int

	writeErr map[string]error
}

func (f *fakeSink) EnsureTables(context.Context) error {
	f.ensureCalls++
	return nil
}

func (f *fakeSink) Write(_ context.Context, table string, columns []string, rows [][]any, mode sink.WriteMode) (int64, error) {
	if err := f.writeErr[table]; err != nil {
		return 0, err
	}
	f.writes = append(f.writes, sinkWrite{table: table, columns: columns, rows: rows, mode: mode})
	return int64(len(rows)), nil
}

func (f *fakeSink) Close() {}

func (f *fakeSink) writesFor(table string) []sinkWrite {
	var out []sinkWrite
	for _, w := range f.writes {
		if w.table == table {
			out = append(out, w)
		}
	}
	return out
}

func pipelineFixtureSource() *fakeSource {
	return &fakeSource{
		headers: []model.SaleHeader{
			{FechaOperacion: nt(date(2024, time.March, 1))},
			{FechaOperacion: nt(date(2024, time.March, 2))},
		},
		customers:  []model.Customer{{CodigoCliente: ns("C001")}},
		warehouses: []model.Warehouse{{CodigoBodega: ns("B01")}},
		products:   []model.Product{{CodigoProducto: ns("P100")}},
		lines: []model.SaleCandidate{
			candidate(1001, 1),
			candidate(1001, 2),
			candidate(1001, 2), // duplicate
			candidate(1002, 1),
		},
	}
}

func TestPipelineRun_FullLoad(t *testing.T) {
	src := pipelineFixtureSource()
	snk := &fakeSink{}

	p := &Pipeline{Source: src, Sink: snk, ChunkSize: 2, FactMode: sink.Append}

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	if snk.ensureCalls != 1 {
		t.Fatalf("EnsureTables calls=%d, want 1", snk.ensureCalls)
	}

	// Dimensions first, each written once with replace semantics.
	for _, table := range []string{
		model.TableDimTiempo, model.TableDimCliente, model.TableDimBodega, model.TableDimProducto,
	} {
		ws := snk.writesFor(table)
		if len(ws) != 1 {
			t.Fatalf("%s writes=%d, want 1", table, len(ws))
		}
		if ws[0].mode != sink.Replace {
			t.Fatalf("%s mode=%q, want replace", table, ws[0].mode)
		}
	}
	if len(snk.writesFor(model.TableDimTiempo)[0].rows) != 2 {
		t.Fatalf("dim_tiempo rows=%d, want 2", len(snk.writesFor(model.TableDimTiempo)[0].rows))
	}

	// Facts: 4 candidates in chunks of 2, one duplicate removed.
	factWrites := snk.writesFor(model.TableFactVentas)
	if len(factWrites) != 2 {
		t.Fatalf("fact writes=%d, want 2", len(factWrites))
	}
	total := 0
	for _, w := range factWrites {
		total += len(w.rows)
	}
	if total != 3 {
		t.Fatalf("fact rows=%d, want 3", total)
	}

	if stats.Chunks != 2 || stats.CandidatesSeen != 4 || stats.FactsEmitted != 3 || stats.CandidatesDuplicate != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if stats.FactsWritten != 3 {
		t.Fatalf("facts_written=%d, want 3", stats.FactsWritten)
	}
	if stats.DimTiempo != 2 || stats.DimCliente != 1 || stats.DimBodega != 1 || stats.DimProducto != 1 {
		t.Fatalf("dimension counts=%+v", stats)
	}
}

// Replace mode must truncate exactly once: the first chunk replaces, every
// later chunk appends.
func TestPipelineRun_ReplaceModeTruncatesOnce(t *testing.T) {
	src := pipelineFixtureSource()
	snk := &fakeSink{}

	p := &Pipeline{Source: src, Sink: snk, ChunkSize: 2, FactMode: sink.Replace}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	factWrites := snk.writesFor(model.TableFactVentas)
	if len(factWrites) != 2 {
		t.Fatalf("fact writes=%d, want 2", len(factWrites))
	}
	if factWrites[0].mode != sink.Replace {
		t.Fatalf("first chunk mode=%q, want replace", factWrites[0].mode)
	}
	if factWrites[1].mode != sink.Append {
		t.Fatalf("second chunk mode=%q, want append", factWrites[1].mode)
	}
}

// An empty transactional extract never invokes the chunk callback, but a
// replace run must still supersede fact_ventas: the dimensions were just
// rebuilt, so rows from a prior run point at stale surrogate ids.
func TestPipelineRun_ReplaceModeSupersedesEmptyExtract(t *testing.T) {
	src := pipelineFixtureSource()
	src.lines = nil
	snk := &fakeSink{}

	p := &Pipeline{Source: src, Sink: snk, FactMode: sink.Replace}
	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	factWrites := snk.writesFor(model.TableFactVentas)
	if len(factWrites) != 1 {
		t.Fatalf("fact writes=%d, want 1", len(factWrites))
	}
	if factWrites[0].mode != sink.Replace {
		t.Fatalf("mode=%q, want replace", factWrites[0].mode)
	}
	if len(factWrites[0].rows) != 0 {
		t.Fatalf("rows=%d, want 0", len(factWrites[0].rows))
	}
	if stats.Chunks != 0 || stats.FactsEmitted != 0 {
		t.Fatalf("stats=%+v", stats)
	}
}

// Append mode has nothing to supersede, so an empty extract writes nothing.
func TestPipelineRun_AppendModeSkipsEmptyExtract(t *testing.T) {
	src := pipelineFixtureSource()
	src.lines = nil
	snk := &fakeSink{}

	p := &Pipeline{Source: src, Sink: snk, FactMode: sink.Append}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if ws := snk.writesFor(model.TableFactVentas); len(ws) != 0 {
		t.Fatalf("fact writes=%d, want 0", len(ws))
	}
}

func TestPipelineRun_VentaIDsDenseAcrossChunks(t *testing.T) {
	src := pipelineFixtureSource()
	snk := &fakeSink{}

	p := &Pipeline{Source: src, Sink: snk, ChunkSize: 1}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	var ids []int64
	for _, w := range snk.writesFor(model.TableFactVentas) {
		for _, row := range w.rows {
			// venta_id is the first fact column.
			ids = append(ids, row[0].(int64))
		}
	}
	if len(ids) != 3 {
		t.Fatalf("ids=%v, want 3 rows", ids)
	}
	for i, id := range ids {
		if id != int64(i+1) {
			t.Fatalf("ids=%v, want dense 1..3", ids)
		}
	}
}

func TestPipelineRun_SourceErrorAborts(t *testing.T) {
	src := pipelineFixtureSource()
	src.linesErr = errors.New("connection reset")
	snk := &fakeSink{}

	p := &Pipeline{Source: src, Sink: snk}
	_, err := p.Run(context.Background())
	if err == nil || !errors.Is(err, src.linesErr) {
		t.Fatalf("Run() err=%v, want wrapped source error", err)
	}
}

func TestPipelineRun_SinkErrorAborts(t *testing.T) {
	src := pipelineFixtureSource()
	snk := &fakeSink{writeErr: map[string]error{model.TableDimCliente: errors.New("disk full")}}

	p := &Pipeline{Source: src, Sink: snk}
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("Run() err=nil, want dimension write error")
	}
}

func TestPipelineRun_RequiresCollaborators(t *testing.T) {
	if _, err := (&Pipeline{Sink: &fakeSink{}}).Run(context.Background()); err == nil {
		t.Fatalf("Run() without Source should fail")
	}
	if _, err := (&Pipeline{Source: &fakeSource{}}).Run(context.Background()); err == nil {
		t.Fatalf("Run() without Sink should fail")
	}
}

func TestPipelineRun_StrictKeyFailureAborts(t *testing.T) {
	src := pipelineFixtureSource()
	bad := candidate(2000, 1)
	bad.CodigoEvento = ns("")
	src.lines = append(src.lines, bad)
	snk := &fakeSink{}

	p := &Pipeline{Source: src, Sink: snk, StrictKeys: true}
	_, err := p.Run(context.Background())
	if !errors.Is(err, ErrMalformedKey) {
		t.Fatalf("Run() err=%v, want ErrMalformedKey", err)
	}
}
