package branch

import (
	"context"

	"carat/internal/core/id"
)

// Repository defines branch catalog access. Every method filters deleted rows
// except the explicit ListIncludingDeleted variant.
type Repository interface {
	GetByID(ctx context.Context, branchID id.ID) (*Branch, error)

	// ListActive returns all non-deleted branches system-wide.
	ListActive(ctx context.Context) ([]Branch, error)

	// ListActiveByStore returns all non-deleted branches of one store.
	ListActiveByStore(ctx context.Context, storeID id.ID) ([]Branch, error)

	// ListIncludingDeleted is the explicit opt-in for administrative views.
	ListIncludingDeleted(ctx context.Context) ([]Branch, error)

	Create(ctx context.Context, b *Branch) error

	// SetDeleted flips the explicit soft-delete column.
	SetDeleted(ctx context.Context, branchID id.ID, deleted bool) error
}
