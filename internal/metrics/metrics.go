// Package metrics is the thin seam between the pipeline and whatever metrics
// system a deployment uses. The core only ever calls the package-level
// helpers; backends (Datadog, or the default nop) are installed at startup.
//
// Design goals (intentionally opinionated):
//   - Keep the core ETL code depending only on metrics.Backend.
//   - A process with no backend configured pays near-zero cost.
//   - Backends own their buffering/flush policy; the core never blocks on I/O.
package metrics

import "sync/atomic"

// Labels are free-form metric tags (e.g. {"step": "load_facts"}).
type Labels map[string]string

// Backend receives metric updates. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is optionally implemented by backends that buffer and submit.
type Flusher interface {
	Flush() error
}

type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}

// holder wraps the interface so every Store into the atomic.Value uses the
// same concrete type regardless of which backend is installed.
type holder struct{ b Backend }

var backend atomic.Value // holder

func init() {
	backend.Store(holder{b: nop{}})
}

// SetBackend installs the process-wide backend. Call once at startup, before
// the pipeline runs.
func SetBackend(b Backend) {
	if b == nil {
		b = nop{}
	}
	backend.Store(holder{b: b})
}

func current() Backend { return backend.Load().(holder).b }

// IncCounter increments a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend if it buffers; a nop otherwise.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}
