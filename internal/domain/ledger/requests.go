package ledger

import (
	"carat/internal/core/apperror"
	"carat/internal/core/appctx"
	"carat/internal/core/id"
	"carat/internal/core/types"
)

// BankContext carries an optional bank/POS commission reference for a
// transaction. When present, one pending bank-transaction record is written
// alongside the header.
type BankContext struct {
	BankID         id.ID
	Amount         types.Money
	CommissionRate types.Money
}

// SaleItem targets an existing stock row by id.
type SaleItem struct {
	StockID   id.ID
	Quantity  int64
	SoldPrice types.Money
}

// CreateSaleRequest describes a sale. Optional fields are filled from the
// authenticated actor in one explicit defaulting step before any transaction
// opens, never scattered through the business logic.
type CreateSaleRequest struct {
	BranchID        id.ID
	CustomerID      *id.ID
	PaymentMethodID *id.ID
	Bank            *BankContext
	Items           []SaleItem
}

// ApplyDefaults fills absent fields from the caller context. Runs once at the
// start of the operation.
func (r *CreateSaleRequest) ApplyDefaults(user *appctx.UserContext) {
	if id.IsNil(r.BranchID) && user != nil && user.BranchID != "" {
		if branchID, err := id.Parse(user.BranchID); err == nil {
			r.BranchID = branchID
		}
	}
}

// Validate rejects malformed requests before any transaction opens.
func (r *CreateSaleRequest) Validate() error {
	if len(r.Items) == 0 {
		return apperror.NewEmptyTransaction()
	}
	if id.IsNil(r.BranchID) {
		return apperror.NewValidation("branch is required").
			WithDetail("field", "branchId")
	}
	for i, item := range r.Items {
		if id.IsNil(item.StockID) {
			return apperror.NewValidation("stock is required").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
		if item.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
		if item.SoldPrice.IsNegative() {
			return apperror.NewValidation("sold price cannot be negative").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
	}
	return nil
}

// PurchaseItem targets a barcode; a new stock row is created when the barcode
// is unknown.
type PurchaseItem struct {
	VariantID     id.ID
	BranchID      id.ID
	Barcode       string
	Quantity      int64
	PurchasePrice types.Money
}

// CreatePurchaseRequest describes a purchase, structurally symmetric to
// CreateSaleRequest.
type CreatePurchaseRequest struct {
	BranchID        id.ID
	CustomerID      *id.ID
	PaymentMethodID *id.ID
	Bank            *BankContext
	Items           []PurchaseItem
}

// ApplyDefaults fills absent fields from the caller context, including
// per-item branches.
func (r *CreatePurchaseRequest) ApplyDefaults(user *appctx.UserContext) {
	var home id.ID
	if user != nil && user.BranchID != "" {
		if branchID, err := id.Parse(user.BranchID); err == nil {
			home = branchID
		}
	}
	if id.IsNil(r.BranchID) {
		r.BranchID = home
	}
	for i := range r.Items {
		if id.IsNil(r.Items[i].BranchID) {
			r.Items[i].BranchID = r.BranchID
		}
	}
}

// Validate rejects malformed requests before any transaction opens.
func (r *CreatePurchaseRequest) Validate() error {
	if len(r.Items) == 0 {
		return apperror.NewEmptyTransaction()
	}
	if id.IsNil(r.BranchID) {
		return apperror.NewValidation("branch is required").
			WithDetail("field", "branchId")
	}
	for i, item := range r.Items {
		if item.Barcode == "" {
			return apperror.NewValidation("barcode is required").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
		if id.IsNil(item.VariantID) {
			return apperror.NewValidation("variant is required").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
		if id.IsNil(item.BranchID) {
			return apperror.NewValidation("branch is required").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
		if item.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
		if item.PurchasePrice.IsNegative() {
			return apperror.NewValidation("purchase price cannot be negative").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
	}
	return nil
}

// AdjustRequest describes a manual quantity change on one stock row.
type AdjustRequest struct {
	StockID id.ID
	Action  Action
	Delta   int64
	Note    string
}

// Validate rejects malformed adjustments before any transaction opens.
func (r *AdjustRequest) Validate() error {
	if id.IsNil(r.StockID) {
		return apperror.NewValidation("stock is required").
			WithDetail("field", "stockId")
	}
	if r.Delta == 0 {
		return apperror.NewValidation("delta cannot be zero").
			WithDetail("field", "delta")
	}
	if r.Action == "" {
		r.Action = ActionAdjustment
	}
	return nil
}
