package stock

import (
	"context"
	"fmt"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/pkg/logger"
)

// Expect constrains which branch/variant pairing a delta may touch.
// Zero value means no constraint (sale path: the stock id is authoritative).
type Expect struct {
	BranchID  id.ID
	VariantID id.ID
}

func (e Expect) isSet() bool {
	return !id.IsNil(e.BranchID) || !id.IsNil(e.VariantID)
}

// Service owns the non-negativity invariant of stock quantities.
// ApplyDelta and EnsureForPurchase must run inside the ledger coordinator's
// transaction; the caller is responsible for emitting the paired lifecycle
// event.
type Service struct {
	repo Repository
}

// NewService creates a new stock service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindByID returns a stock row or NotFound.
func (s *Service) FindByID(ctx context.Context, stockID id.ID) (*Stock, error) {
	return s.repo.GetByID(ctx, stockID)
}

// FindByBarcode returns a stock row or NotFound.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Stock, error) {
	return s.repo.GetByBarcode(ctx, barcode)
}

// ListByBranch returns stock rows for one branch.
func (s *Service) ListByBranch(ctx context.Context, branchID id.ID, filter ListFilter) ([]Stock, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.ListByBranch(ctx, branchID, filter)
}

// ApplyDelta mutates one stock quantity under a row lock.
// It re-reads the row with a write-intent lock so two concurrent mutations
// against the same stock id are serialized, never lost. A negative result
// fails with InsufficientStock; a branch/variant mismatch against expect
// fails with BranchMismatch. Returns the row with its new quantity.
func (s *Service) ApplyDelta(ctx context.Context, stockID id.ID, delta int64, expect Expect) (*Stock, error) {
	row, err := s.repo.GetByIDForUpdate(ctx, stockID)
	if err != nil {
		return nil, err
	}

	if expect.isSet() && !row.Matches(expect.BranchID, expect.VariantID) {
		return nil, apperror.NewBranchMismatch(stockID)
	}

	newQty := row.Quantity + delta
	if newQty < 0 {
		return nil, apperror.NewInsufficientStock(stockID, -delta, row.Quantity)
	}

	if err := s.repo.SetQuantity(ctx, stockID, newQty); err != nil {
		return nil, fmt.Errorf("set quantity: %w", err)
	}
	row.Quantity = newQty

	return row, nil
}

// EnsureForPurchase returns a locked stock row for the barcode, creating one
// with zero quantity when the barcode is new. An existing row whose
// branch/variant pairing differs fails the whole transaction with
// BarcodeConflict.
func (s *Service) EnsureForPurchase(ctx context.Context, barcode string, branchID, variantID id.ID) (*Stock, error) {
	row, err := s.repo.GetByBarcodeForUpdate(ctx, barcode)
	if err == nil {
		if !row.Matches(branchID, variantID) {
			return nil, apperror.NewBarcodeConflict(barcode)
		}
		return row, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	row = New(barcode, branchID, variantID)
	if err := row.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("create stock: %w", err)
	}

	logger.Info(ctx, "stock created for new barcode",
		"stock_id", row.ID,
		"barcode", barcode,
		"branch_id", branchID,
	)

	return row, nil
}

// CreateManual creates a stock row outside the purchase path.
// The caller (ledger coordinator) pairs it with a lifecycle event in the
// same transaction.
func (s *Service) CreateManual(ctx context.Context, row *Stock) error {
	if err := row.Validate(ctx); err != nil {
		return err
	}

	existing, err := s.repo.GetByBarcode(ctx, row.Barcode)
	if err == nil && existing != nil {
		return apperror.NewBarcodeConflict(row.Barcode)
	}
	if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	return s.repo.Create(ctx, row)
}

// Delete removes an unreferenced stock row. Rows referenced by ledger lines
// or lifecycle events are refused, not cascaded.
func (s *Service) Delete(ctx context.Context, stockID id.ID) error {
	referenced, err := s.repo.IsReferenced(ctx, stockID)
	if err != nil {
		return fmt.Errorf("check references: %w", err)
	}
	if referenced {
		return apperror.NewStockReferenced(stockID)
	}
	return s.repo.Delete(ctx, stockID)
}
