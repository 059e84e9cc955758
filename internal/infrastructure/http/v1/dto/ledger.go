package dto

import (
	"time"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/core/types"
	"carat/internal/domain/ledger"
)

// --- Bank context ---

// BankContextRequest carries an optional bank/POS commission reference.
type BankContextRequest struct {
	BankID         string      `json:"bankId" binding:"required"`
	Amount         types.Money `json:"amount"`
	CommissionRate types.Money `json:"commissionRate"`
}

func (r *BankContextRequest) toDomain() (*ledger.BankContext, error) {
	bankID, err := id.Parse(r.BankID)
	if err != nil {
		return nil, apperror.NewValidation("invalid bank id").
			WithDetail("field", "bankId")
	}
	return &ledger.BankContext{
		BankID:         bankID,
		Amount:         r.Amount,
		CommissionRate: r.CommissionRate,
	}, nil
}

// --- Sale ---

// SaleItemRequest is one line of a sale request.
type SaleItemRequest struct {
	StockID   string      `json:"stockId" binding:"required"`
	Quantity  int64       `json:"quantity" binding:"required,gt=0"`
	SoldPrice types.Money `json:"soldPrice"`
}

// CreateSaleRequest for recording a sale transaction.
type CreateSaleRequest struct {
	BranchID        *string             `json:"branchId,omitempty"`
	CustomerID      *string             `json:"customerId,omitempty"`
	PaymentMethodID *string             `json:"paymentMethodId,omitempty"`
	Bank            *BankContextRequest `json:"bank,omitempty"`
	Items           []SaleItemRequest   `json:"items" binding:"required"`
}

// ToDomain converts into a domain request, validating id formats only.
// Business validation happens in the domain layer.
func (r *CreateSaleRequest) ToDomain() (ledger.CreateSaleRequest, error) {
	var req ledger.CreateSaleRequest

	if r.BranchID != nil && *r.BranchID != "" {
		branchID, err := id.Parse(*r.BranchID)
		if err != nil {
			return req, apperror.NewValidation("invalid branch id").
				WithDetail("field", "branchId")
		}
		req.BranchID = branchID
	}

	customerID, err := parseOptionalID(r.CustomerID)
	if err != nil {
		return req, apperror.NewValidation("invalid customer id").
			WithDetail("field", "customerId")
	}
	req.CustomerID = customerID

	paymentMethodID, err := parseOptionalID(r.PaymentMethodID)
	if err != nil {
		return req, apperror.NewValidation("invalid payment method id").
			WithDetail("field", "paymentMethodId")
	}
	req.PaymentMethodID = paymentMethodID

	if r.Bank != nil {
		bank, err := r.Bank.toDomain()
		if err != nil {
			return req, err
		}
		req.Bank = bank
	}

	req.Items = make([]ledger.SaleItem, 0, len(r.Items))
	for i, item := range r.Items {
		stockID, err := id.Parse(item.StockID)
		if err != nil {
			return req, apperror.NewValidation("invalid stock id").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
		req.Items = append(req.Items, ledger.SaleItem{
			StockID:   stockID,
			Quantity:  item.Quantity,
			SoldPrice: item.SoldPrice,
		})
	}
	return req, nil
}

// --- Purchase ---

// PurchaseItemRequest is one line of a purchase request.
type PurchaseItemRequest struct {
	VariantID     string      `json:"variantId" binding:"required"`
	BranchID      *string     `json:"branchId,omitempty"`
	Barcode       string      `json:"barcode" binding:"required"`
	Quantity      int64       `json:"quantity" binding:"required,gt=0"`
	PurchasePrice types.Money `json:"purchasePrice"`
}

// CreatePurchaseRequest for recording a purchase transaction.
type CreatePurchaseRequest struct {
	BranchID        *string               `json:"branchId,omitempty"`
	CustomerID      *string               `json:"customerId,omitempty"`
	PaymentMethodID *string               `json:"paymentMethodId,omitempty"`
	Bank            *BankContextRequest   `json:"bank,omitempty"`
	Items           []PurchaseItemRequest `json:"items" binding:"required"`
}

// ToDomain converts into a domain request.
func (r *CreatePurchaseRequest) ToDomain() (ledger.CreatePurchaseRequest, error) {
	var req ledger.CreatePurchaseRequest

	if r.BranchID != nil && *r.BranchID != "" {
		branchID, err := id.Parse(*r.BranchID)
		if err != nil {
			return req, apperror.NewValidation("invalid branch id").
				WithDetail("field", "branchId")
		}
		req.BranchID = branchID
	}

	customerID, err := parseOptionalID(r.CustomerID)
	if err != nil {
		return req, apperror.NewValidation("invalid customer id").
			WithDetail("field", "customerId")
	}
	req.CustomerID = customerID

	paymentMethodID, err := parseOptionalID(r.PaymentMethodID)
	if err != nil {
		return req, apperror.NewValidation("invalid payment method id").
			WithDetail("field", "paymentMethodId")
	}
	req.PaymentMethodID = paymentMethodID

	if r.Bank != nil {
		bank, err := r.Bank.toDomain()
		if err != nil {
			return req, err
		}
		req.Bank = bank
	}

	req.Items = make([]ledger.PurchaseItem, 0, len(r.Items))
	for i, item := range r.Items {
		variantID, err := id.Parse(item.VariantID)
		if err != nil {
			return req, apperror.NewValidation("invalid variant id").
				WithDetail("field", "items").
				WithDetail("index", i)
		}
		var branchID id.ID
		if item.BranchID != nil && *item.BranchID != "" {
			branchID, err = id.Parse(*item.BranchID)
			if err != nil {
				return req, apperror.NewValidation("invalid branch id").
					WithDetail("field", "items").
					WithDetail("index", i)
			}
		}
		req.Items = append(req.Items, ledger.PurchaseItem{
			VariantID:     variantID,
			BranchID:      branchID,
			Barcode:       item.Barcode,
			Quantity:      item.Quantity,
			PurchasePrice: item.PurchasePrice,
		})
	}
	return req, nil
}

// --- Adjustment ---

// AdjustRequest for a manual quantity change on one stock row.
type AdjustRequest struct {
	Action string `json:"action,omitempty"`
	Delta  int64  `json:"delta" binding:"required"`
	Note   string `json:"note,omitempty"`
}

// ToDomain converts into a domain request for the given stock id.
func (r *AdjustRequest) ToDomain(stockID id.ID) ledger.AdjustRequest {
	return ledger.AdjustRequest{
		StockID: stockID,
		Action:  ledger.Action(r.Action),
		Delta:   r.Delta,
		Note:    r.Note,
	}
}

// --- Responses ---

// TransactionResponse is returned after a committed ledger transaction.
type TransactionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	StockIDs  []string  `json:"stockIds"`
}

// FromTransactionResult creates a response from the coordinator result.
func FromTransactionResult(res *ledger.TransactionResult) *TransactionResponse {
	stockIDs := make([]string, len(res.StockIDs))
	for i, sid := range res.StockIDs {
		stockIDs[i] = sid.String()
	}
	return &TransactionResponse{
		ID:        res.ID.String(),
		CreatedAt: res.CreatedAt,
		StockIDs:  stockIDs,
	}
}

// LifecycleEventResponse is one history entry for a stock row.
type LifecycleEventResponse struct {
	ID        string    `json:"id"`
	StockID   string    `json:"stockId"`
	ActorID   *string   `json:"actorId,omitempty"`
	Action    string    `json:"action"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromLifecycleEvent creates a response from a domain event.
func FromLifecycleEvent(e ledger.LifecycleEvent) LifecycleEventResponse {
	resp := LifecycleEventResponse{
		ID:        e.ID.String(),
		StockID:   e.StockID.String(),
		Action:    string(e.Action),
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
	if e.ActorID != nil {
		s := e.ActorID.String()
		resp.ActorID = &s
	}
	return resp
}
