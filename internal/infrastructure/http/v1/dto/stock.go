package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/domain/stock"
)

// CreateStockRequest for manual registration of a stock row.
type CreateStockRequest struct {
	Barcode   string           `json:"barcode" binding:"required"`
	BranchID  string           `json:"branchId" binding:"required"`
	VariantID string           `json:"variantId" binding:"required"`
	Quantity  int64            `json:"quantity" binding:"gte=0"`
	Weight    *decimal.Decimal `json:"weight,omitempty"`
	Purity    *string          `json:"purity,omitempty"`
	Color     *string          `json:"color,omitempty"`
	Note      string           `json:"note,omitempty"`
}

// ToDomain converts into a domain stock row.
func (r *CreateStockRequest) ToDomain() (*stock.Stock, error) {
	branchID, err := id.Parse(r.BranchID)
	if err != nil {
		return nil, apperror.NewValidation("invalid branch id").
			WithDetail("field", "branchId")
	}
	variantID, err := id.Parse(r.VariantID)
	if err != nil {
		return nil, apperror.NewValidation("invalid variant id").
			WithDetail("field", "variantId")
	}

	row := stock.New(r.Barcode, branchID, variantID)
	row.Quantity = r.Quantity
	row.Weight = r.Weight
	row.Purity = r.Purity
	row.Color = r.Color
	return row, nil
}

// StockResponse represents a stock row in API responses.
type StockResponse struct {
	ID        string           `json:"id"`
	Barcode   string           `json:"barcode"`
	BranchID  string           `json:"branchId"`
	VariantID string           `json:"variantId"`
	Quantity  int64            `json:"quantity"`
	Weight    *decimal.Decimal `json:"weight,omitempty"`
	Purity    *string          `json:"purity,omitempty"`
	Color     *string          `json:"color,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// FromStock creates response from a domain stock row.
func FromStock(s *stock.Stock) *StockResponse {
	return &StockResponse{
		ID:        s.ID.String(),
		Barcode:   s.Barcode,
		BranchID:  s.BranchID.String(),
		VariantID: s.VariantID.String(),
		Quantity:  s.Quantity,
		Weight:    s.Weight,
		Purity:    s.Purity,
		Color:     s.Color,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ListStockRequest filters a branch stock listing.
type ListStockRequest struct {
	Barcode     string `form:"barcode"`
	ExcludeZero bool   `form:"excludeZero"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// ToFilter converts query parameters into a domain filter.
func (r *ListStockRequest) ToFilter() stock.ListFilter {
	return stock.ListFilter{
		Barcode:     r.Barcode,
		ExcludeZero: r.ExcludeZero,
		Limit:       r.Limit,
		Offset:      r.Offset,
	}
}
