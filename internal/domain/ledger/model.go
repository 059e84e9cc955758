// Package ledger provides the transaction coordinator and the append-only
// event log: sale/purchase headers, their lines, and the lifecycle events that
// pair every stock mutation with an actor, action kind and timestamp.
package ledger

import (
	"time"

	"carat/internal/core/id"
	"carat/internal/core/types"
)

// Action is the lifecycle action kind. The vocabulary is open: these
// constants cover the known kinds, but free-text values are stored as-is.
type Action string

const (
	ActionPurchase   Action = "Purchase"
	ActionSale       Action = "Sale"
	ActionTransfer   Action = "Transfer"
	ActionCount      Action = "Count"
	ActionAdjustment Action = "Adjustment"
	ActionDamage     Action = "Damage"
	ActionLost       Action = "Lost"
)

// SaleHeader is immutable once committed; only append-only related records
// (bank transaction, payments) may reference it afterwards.
type SaleHeader struct {
	ID              id.ID      `db:"id" json:"id"`
	ActorID         id.ID      `db:"actor_id" json:"actorId"`
	BranchID        id.ID      `db:"branch_id" json:"branchId"`
	CustomerID      *id.ID     `db:"customer_id" json:"customerId,omitempty"`
	PaymentMethodID *id.ID     `db:"payment_method_id" json:"paymentMethodId,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// SaleLine freezes quantity and unit price at transaction time. The price is
// never recalculated from current stock attributes.
type SaleLine struct {
	ID        id.ID       `db:"id" json:"id"`
	SaleID    id.ID       `db:"sale_id" json:"saleId"`
	StockID   id.ID       `db:"stock_id" json:"stockId"`
	Quantity  int64       `db:"quantity" json:"quantity"`
	SoldPrice types.Money `db:"sold_price" json:"soldPrice"`
}

// PurchaseHeader mirrors SaleHeader for the receiving side.
type PurchaseHeader struct {
	ID              id.ID      `db:"id" json:"id"`
	ActorID         id.ID      `db:"actor_id" json:"actorId"`
	BranchID        id.ID      `db:"branch_id" json:"branchId"`
	CustomerID      *id.ID     `db:"customer_id" json:"customerId,omitempty"`
	PaymentMethodID *id.ID     `db:"payment_method_id" json:"paymentMethodId,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// PurchaseLine pins the purchase price for audit and cost reporting; the
// aggregation engine reads this stored price as "cost".
type PurchaseLine struct {
	ID            id.ID       `db:"id" json:"id"`
	PurchaseID    id.ID       `db:"purchase_id" json:"purchaseId"`
	StockID       id.ID       `db:"stock_id" json:"stockId"`
	Quantity      int64       `db:"quantity" json:"quantity"`
	PurchasePrice types.Money `db:"purchase_price" json:"purchasePrice"`
}

// LifecycleEvent is the append-only audit record tying one stock mutation to
// an actor, action kind and timestamp. Never updated or deleted.
type LifecycleEvent struct {
	ID        id.ID     `db:"id" json:"id"`
	StockID   id.ID     `db:"stock_id" json:"stockId"`
	ActorID   *id.ID    `db:"actor_id" json:"actorId,omitempty"` // nullable: system actions permitted
	Action    Action    `db:"action" json:"action"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewLifecycleEvent creates an event for one stock mutation.
func NewLifecycleEvent(stockID id.ID, actorID *id.ID, action Action, note string, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		ID:        id.New(),
		StockID:   stockID,
		ActorID:   actorID,
		Action:    action,
		Note:      note,
		CreatedAt: at,
	}
}

// BankTransaction is an auxiliary record referencing a committed header.
// Not part of the ledger invariant; inserted in status "pending" when a
// bank/POS commission context is supplied.
type BankTransaction struct {
	ID             id.ID       `db:"id" json:"id"`
	SaleID         *id.ID      `db:"sale_id" json:"saleId,omitempty"`
	PurchaseID     *id.ID      `db:"purchase_id" json:"purchaseId,omitempty"`
	BankID         id.ID       `db:"bank_id" json:"bankId"`
	Amount         types.Money `db:"amount" json:"amount"`
	CommissionRate types.Money `db:"commission_rate" json:"commissionRate"`
	Status         string      `db:"status" json:"status"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
}

const BankStatusPending = "pending"

// TransactionResult is returned by the coordinator after a successful commit.
type TransactionResult struct {
	ID        id.ID     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	StockIDs  []id.ID   `json:"stockIds"`
}
