package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/domain/stock"
)

const stocksTable = "stocks"

var stockColumns = []string{
	"id", "barcode", "branch_id", "variant_id", "quantity",
	"weight", "purity", "color",
	"deleted", "created_at", "updated_at",
}

// Compile-time check that StockRepo implements stock.Repository.
var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(txManager *TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a stock row by id.
func (r *StockRepo) GetByID(ctx context.Context, stockID id.ID) (*stock.Stock, error) {
	q := r.builder.Select(stockColumns...).
		From(stocksTable).
		Where(squirrel.Eq{"id": stockID, "deleted": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row stock.Stock
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock", stockID)
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}

	return &row, nil
}

// GetByBarcode retrieves a stock row by barcode.
func (r *StockRepo) GetByBarcode(ctx context.Context, barcode string) (*stock.Stock, error) {
	q := r.builder.Select(stockColumns...).
		From(stocksTable).
		Where(squirrel.Eq{"barcode": barcode, "deleted": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row stock.Stock
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock", barcode)
		}
		return nil, fmt.Errorf("get stock by barcode: %w", err)
	}

	return &row, nil
}

// GetByIDForUpdate retrieves a stock row with a pessimistic lock.
func (r *StockRepo) GetByIDForUpdate(ctx context.Context, stockID id.ID) (*stock.Stock, error) {
	sql := `
		SELECT id, barcode, branch_id, variant_id, quantity,
		       weight, purity, color,
		       deleted, created_at, updated_at
		FROM stocks
		WHERE id = $1 AND deleted = false
		FOR UPDATE
	`

	var row stock.Stock
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, stockID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock", stockID)
		}
		return nil, fmt.Errorf("get stock for update: %w", err)
	}

	return &row, nil
}

// GetByBarcodeForUpdate locks by barcode (purchase path).
func (r *StockRepo) GetByBarcodeForUpdate(ctx context.Context, barcode string) (*stock.Stock, error) {
	sql := `
		SELECT id, barcode, branch_id, variant_id, quantity,
		       weight, purity, color,
		       deleted, created_at, updated_at
		FROM stocks
		WHERE barcode = $1 AND deleted = false
		FOR UPDATE
	`

	var row stock.Stock
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, barcode); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock", barcode)
		}
		return nil, fmt.Errorf("get stock by barcode for update: %w", err)
	}

	return &row, nil
}

// Create inserts a new stock row.
func (r *StockRepo) Create(ctx context.Context, s *stock.Stock) error {
	q := r.builder.Insert(stocksTable).
		Columns(stockColumns...).
		Values(
			s.ID, s.Barcode, s.BranchID, s.VariantID, s.Quantity,
			s.Weight, s.Purity, s.Color,
			s.Deleted, s.CreatedAt, s.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock: %w", err)
	}

	return nil
}

// SetQuantity persists the new quantity for a previously locked row.
func (r *StockRepo) SetQuantity(ctx context.Context, stockID id.ID, quantity int64) error {
	q := r.builder.Update(stocksTable).
		Set("quantity", quantity).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": stockID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock", stockID)
	}

	return nil
}

// ListByBranch returns stock rows for one branch.
func (r *StockRepo) ListByBranch(ctx context.Context, branchID id.ID, filter stock.ListFilter) ([]stock.Stock, error) {
	q := r.builder.Select(stockColumns...).
		From(stocksTable).
		Where(squirrel.Eq{"branch_id": branchID, "deleted": false})

	if filter.Barcode != "" {
		q = q.Where(squirrel.Eq{"barcode": filter.Barcode})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity": int64(0)})
	}

	q = q.OrderBy("barcode")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []stock.Stock
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select stocks: %w", err)
	}

	return rows, nil
}

// IsReferenced reports whether any ledger line or lifecycle event points at
// the row.
func (r *StockRepo) IsReferenced(ctx context.Context, stockID id.ID) (bool, error) {
	sql := `
		SELECT EXISTS (SELECT 1 FROM sale_lines WHERE stock_id = $1)
		    OR EXISTS (SELECT 1 FROM purchase_lines WHERE stock_id = $1)
		    OR EXISTS (SELECT 1 FROM lifecycle_events WHERE stock_id = $1)
	`

	var referenced bool
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, stockID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("check stock references: %w", err)
	}

	return referenced, nil
}

// Delete removes a stock row.
func (r *StockRepo) Delete(ctx context.Context, stockID id.ID) error {
	q := r.builder.Delete(stocksTable).Where(squirrel.Eq{"id": stockID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock", stockID)
	}

	return nil
}
