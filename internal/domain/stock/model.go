// Package stock provides the quantity-bearing stock aggregate.
// A stock row is identified by a unique barcode, belongs to one branch and one
// product variant, and its quantity never goes negative after a committed
// transaction.
package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
)

// Stock is the mutable quantity-bearing aggregate.
type Stock struct {
	ID        id.ID  `db:"id" json:"id"`
	Barcode   string `db:"barcode" json:"barcode"`
	BranchID  id.ID  `db:"branch_id" json:"branchId"`
	VariantID id.ID  `db:"variant_id" json:"variantId"`

	// Quantity in whole pieces. Invariant: >= 0 after any committed transaction.
	Quantity int64 `db:"quantity" json:"quantity"`

	// Optional physical attributes (jewelry retail)
	Weight *decimal.Decimal `db:"weight" json:"weight,omitempty"`
	Purity *string          `db:"purity" json:"purity,omitempty"`
	Color  *string          `db:"color" json:"color,omitempty"`

	Deleted   bool      `db:"deleted" json:"deleted"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a stock row with zero quantity for the given barcode pairing.
func New(barcode string, branchID, variantID id.ID) *Stock {
	now := time.Now().UTC()
	return &Stock{
		ID:        id.New(),
		Barcode:   barcode,
		BranchID:  branchID,
		VariantID: variantID,
		Quantity:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks stock invariants that hold without database access.
func (s *Stock) Validate(ctx context.Context) error {
	if s.Barcode == "" {
		return apperror.NewValidation("barcode is required").
			WithDetail("field", "barcode")
	}
	if id.IsNil(s.BranchID) {
		return apperror.NewValidation("branch is required").
			WithDetail("field", "branchId")
	}
	if id.IsNil(s.VariantID) {
		return apperror.NewValidation("variant is required").
			WithDetail("field", "variantId")
	}
	if s.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative").
			WithDetail("field", "quantity")
	}
	return nil
}

// Matches reports whether the row belongs to the expected branch/variant
// pairing. A barcode reused across a different pairing signals data
// corruption and is rejected upstream.
func (s *Stock) Matches(branchID, variantID id.ID) bool {
	return s.BranchID == branchID && s.VariantID == variantID
}
