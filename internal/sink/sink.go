// Package sink persists warehouse tables. Backends register themselves by
// kind from an init() and are constructed through New; Write supports replace
// and append modes.
package sink

import (
	"context"
	"fmt"
	"sync"
)

// WriteMode selects how Write treats existing table contents.
type WriteMode string

const (
	// Replace supersedes prior contents of the table in one transaction.
	Replace WriteMode = "replace"
	// Append adds rows without touching prior contents. When the table
	// carries a unique constraint, backends use their native conflict-ignore
	// so re-loading already-present keys does not duplicate rows.
	Append WriteMode = "append"
)

// Config is the minimal configuration needed to construct a Sink.
type Config struct {
	Kind string
	DSN  string
}

// Sink is the backend-agnostic destination for warehouse tables.
//
// IMPORTANT: the interface is intentionally minimal, exactly the operations
// the pipeline needs. Each backend implements the semantics in its own
// idiomatic way (Postgres ON CONFLICT, SQLite OR IGNORE, MSSQL NOT EXISTS).
type Sink interface {
	// EnsureTables creates the five warehouse tables if they do not exist.
	EnsureTables(ctx context.Context) error

	// Write persists rows into table. columns and each row are positional.
	// Returns the number of rows the backend reports as affected; with
	// conflict-ignore appends this can be lower than len(rows).
	Write(ctx context.Context, table string, columns []string, rows [][]any, mode WriteMode) (int64, error)

	// Close releases backend resources. Call once at shutdown.
	Close()
}

// ---- backend factories ----

type factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a sink backend under a kind (e.g. "postgres", "sqlite").
// Call from an init() in the backend package. Registering the same kind twice
// panics: fail fast rather than allow ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("sink: Register called with empty kind")
	}
	if f == nil {
		panic("sink: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("sink: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// BatchRows splits rows into batches of at most size rows. Backends use it to
// respect their driver's bind-parameter limits.
func BatchRows(rows [][]any, size int) [][][]any {
	if size < 1 {
		size = 1
	}
	if len(rows) == 0 {
		return nil
	}
	out := make([][][]any, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// New constructs a Sink using the registered backend factory for cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("sink: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported sink.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
