package ledger

import (
	"context"

	"carat/internal/core/id"
)

// Repository defines write operations for ledger records. All write methods
// are called inside the coordinator's transaction; partial rows never survive
// a rollback.
type Repository interface {
	InsertSaleHeader(ctx context.Context, h *SaleHeader) error
	InsertSaleLines(ctx context.Context, lines []SaleLine) error

	InsertPurchaseHeader(ctx context.Context, h *PurchaseHeader) error
	InsertPurchaseLines(ctx context.Context, lines []PurchaseLine) error

	// AppendEvents appends lifecycle events. Events are never updated or
	// deleted afterwards.
	AppendEvents(ctx context.Context, events []LifecycleEvent) error

	InsertBankTransaction(ctx context.Context, bt *BankTransaction) error

	// ListEventsByStock reads the append-only history for one stock row,
	// newest first.
	ListEventsByStock(ctx context.Context, stockID id.ID, limit, offset int) ([]LifecycleEvent, error)
}

// AuditRecorder records a snapshot of a committed ledger request. Implemented
// by the postgres audit store; recorded inside the same transaction as the
// ledger write so the trail is exactly as atomic as the ledger itself.
type AuditRecorder interface {
	Record(ctx context.Context, kind string, refID id.ID, actorID string, payload any) error
}
