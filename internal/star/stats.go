package star

import "log/slog"

// RunStats is the per-run report the pipeline exposes so operators can detect
// silent data-quality regressions (shrinking dimensions, growing unresolved
// counts) without the run failing outright.
type RunStats struct {
	DimTiempo   int
	DimCliente  int
	DimBodega   int
	DimProducto int

	// DimMalformed counts reference rows rejected for null/empty natural keys
	// across the customer, warehouse and product builders.
	DimMalformed int

	Chunks              int
	CandidatesSeen      int
	CandidatesKept      int
	CandidatesDuplicate int
	CandidatesMalformed int
	FactsEmitted        int
	FactsWritten        int64

	Unresolved UnresolvedCounts
}

func (s *RunStats) addChunk(cs ChunkStats, written int64) {
	s.Chunks++
	s.CandidatesSeen += cs.Dedupe.Input
	s.CandidatesKept += cs.Dedupe.Kept
	s.CandidatesDuplicate += cs.Dedupe.Duplicates
	s.CandidatesMalformed += cs.Dedupe.Malformed
	s.FactsEmitted += cs.Facts
	s.FactsWritten += written
	s.Unresolved.add(cs.Unresolved)
}

// LogValue implements slog.LogValuer so the whole report logs as one group.
func (s *RunStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("dim_tiempo", s.DimTiempo),
		slog.Int("dim_cliente", s.DimCliente),
		slog.Int("dim_bodega", s.DimBodega),
		slog.Int("dim_producto", s.DimProducto),
		slog.Int("dim_malformed", s.DimMalformed),
		slog.Int("chunks", s.Chunks),
		slog.Int("candidates_seen", s.CandidatesSeen),
		slog.Int("candidates_kept", s.CandidatesKept),
		slog.Int("candidates_duplicate", s.CandidatesDuplicate),
		slog.Int("candidates_malformed", s.CandidatesMalformed),
		slog.Int("facts_emitted", s.FactsEmitted),
		slog.Int64("facts_written", s.FactsWritten),
		slog.Int("unresolved_tiempo", s.Unresolved.Tiempo),
		slog.Int("unresolved_cliente", s.Unresolved.Cliente),
		slog.Int("unresolved_bodega", s.Unresolved.Bodega),
		slog.Int("unresolved_producto", s.Unresolved.Producto),
	)
}
