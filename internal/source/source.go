// Package source defines the extraction side of the pipeline: reference data
// is fetched whole, the transactional sale lines are streamed in bounded
// chunks. Implementations live in this package (SQL, CSV); the transformation
// core only sees the Source interface.
package source

import (
	"context"

	"ventasdwh/internal/model"
)

// Source is the upstream collaborator. Fetch* methods return a full reference
// record set; FetchSaleLineChunks pushes the (potentially large) transactional
// set through fn in chunks of at most chunkSize records.
//
// The chunk sequence is lazy, finite and non-restartable. Any error from fn
// stops iteration and is returned unchanged; I/O faults from the underlying
// reader propagate unretried. Retry policy belongs to the orchestration
// layer, not here.
type Source interface {
	FetchSaleHeaders(ctx context.Context) ([]model.SaleHeader, error)
	FetchCustomers(ctx context.Context) ([]model.Customer, error)
	FetchWarehouses(ctx context.Context) ([]model.Warehouse, error)
	FetchProducts(ctx context.Context) ([]model.Product, error)

	FetchSaleLineChunks(ctx context.Context, chunkSize int, fn func(chunk []model.SaleCandidate) error) error

	Close() error
}
