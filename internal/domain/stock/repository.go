package stock

import (
	"context"

	"carat/internal/core/id"
)

// Repository defines persistence operations for stock rows.
// The *ForUpdate variants take a row-level write lock and must be called
// inside a transaction; a plain read-then-write is a correctness bug for
// concurrent mutations (lost update).
type Repository interface {
	GetByID(ctx context.Context, stockID id.ID) (*Stock, error)
	GetByBarcode(ctx context.Context, barcode string) (*Stock, error)

	// GetByIDForUpdate re-reads the row with a write-intent lock.
	GetByIDForUpdate(ctx context.Context, stockID id.ID) (*Stock, error)

	// GetByBarcodeForUpdate locks by barcode (purchase path).
	GetByBarcodeForUpdate(ctx context.Context, barcode string) (*Stock, error)

	Create(ctx context.Context, s *Stock) error

	// SetQuantity persists the new quantity for a row previously locked via a
	// *ForUpdate read within the same transaction.
	SetQuantity(ctx context.Context, stockID id.ID, quantity int64) error

	ListByBranch(ctx context.Context, branchID id.ID, filter ListFilter) ([]Stock, error)

	// IsReferenced reports whether any ledger line or lifecycle event points
	// at the row. Referenced rows are never deleted.
	IsReferenced(ctx context.Context, stockID id.ID) (bool, error)

	Delete(ctx context.Context, stockID id.ID) error
}

// ListFilter for branch stock listings.
type ListFilter struct {
	Barcode     string
	ExcludeZero bool
	Limit       int
	Offset      int
}
