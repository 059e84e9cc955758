package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"carat/internal/core/id"
	"carat/internal/domain/ledger"
)

const (
	salesTable           = "sales"
	saleLinesTable       = "sale_lines"
	purchasesTable       = "purchases"
	purchaseLinesTable   = "purchase_lines"
	lifecycleEventsTable = "lifecycle_events"
	bankTxTable          = "bank_transactions"
)

// Compile-time check that LedgerRepo implements ledger.Repository.
var _ ledger.Repository = (*LedgerRepo)(nil)

// LedgerRepo implements ledger.Repository. Line and event inserts use the
// COPY protocol when a transaction is active, which the coordinator always
// provides.
type LedgerRepo struct {
	txManager *TxManager
	inserter  *BatchInserter
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		inserter:  NewBatchInserter(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// InsertSaleHeader inserts a sale header.
func (r *LedgerRepo) InsertSaleHeader(ctx context.Context, h *ledger.SaleHeader) error {
	q := r.builder.Insert(salesTable).
		Columns("id", "actor_id", "branch_id", "customer_id", "payment_method_id", "created_at", "updated_at").
		Values(h.ID, h.ActorID, h.BranchID, h.CustomerID, h.PaymentMethodID, h.CreatedAt, h.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale header: %w", err)
	}

	return nil
}

// InsertSaleLines batch inserts sale lines.
func (r *LedgerRepo) InsertSaleLines(ctx context.Context, lines []ledger.SaleLine) error {
	if len(lines) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		columns := []string{"id", "sale_id", "stock_id", "quantity", "sold_price"}
		rows := make([][]any, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, []any{l.ID, l.SaleID, l.StockID, l.Quantity, l.SoldPrice})
		}
		if _, err := r.inserter.CopyFromSlice(ctx, saleLinesTable, columns, rows); err != nil {
			return fmt.Errorf("copy sale lines: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(saleLinesTable).
		Columns("id", "sale_id", "stock_id", "quantity", "sold_price")
	for _, l := range lines {
		q = q.Values(l.ID, l.SaleID, l.StockID, l.Quantity, l.SoldPrice)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale lines: %w", err)
	}

	return nil
}

// InsertPurchaseHeader inserts a purchase header.
func (r *LedgerRepo) InsertPurchaseHeader(ctx context.Context, h *ledger.PurchaseHeader) error {
	q := r.builder.Insert(purchasesTable).
		Columns("id", "actor_id", "branch_id", "customer_id", "payment_method_id", "created_at", "updated_at").
		Values(h.ID, h.ActorID, h.BranchID, h.CustomerID, h.PaymentMethodID, h.CreatedAt, h.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert purchase header: %w", err)
	}

	return nil
}

// InsertPurchaseLines batch inserts purchase lines.
func (r *LedgerRepo) InsertPurchaseLines(ctx context.Context, lines []ledger.PurchaseLine) error {
	if len(lines) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		columns := []string{"id", "purchase_id", "stock_id", "quantity", "purchase_price"}
		rows := make([][]any, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, []any{l.ID, l.PurchaseID, l.StockID, l.Quantity, l.PurchasePrice})
		}
		if _, err := r.inserter.CopyFromSlice(ctx, purchaseLinesTable, columns, rows); err != nil {
			return fmt.Errorf("copy purchase lines: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(purchaseLinesTable).
		Columns("id", "purchase_id", "stock_id", "quantity", "purchase_price")
	for _, l := range lines {
		q = q.Values(l.ID, l.PurchaseID, l.StockID, l.Quantity, l.PurchasePrice)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert purchase lines: %w", err)
	}

	return nil
}

// AppendEvents appends lifecycle events. There are no update or delete
// statements for this table anywhere in the codebase.
func (r *LedgerRepo) AppendEvents(ctx context.Context, events []ledger.LifecycleEvent) error {
	if len(events) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		columns := []string{"id", "stock_id", "actor_id", "action", "note", "created_at"}
		rows := make([][]any, 0, len(events))
		for _, e := range events {
			rows = append(rows, []any{e.ID, e.StockID, e.ActorID, e.Action, e.Note, e.CreatedAt})
		}
		if _, err := r.inserter.CopyFromSlice(ctx, lifecycleEventsTable, columns, rows); err != nil {
			return fmt.Errorf("copy events: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(lifecycleEventsTable).
		Columns("id", "stock_id", "actor_id", "action", "note", "created_at")
	for _, e := range events {
		q = q.Values(e.ID, e.StockID, e.ActorID, e.Action, e.Note, e.CreatedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("append events: %w", err)
	}

	return nil
}

// InsertBankTransaction inserts a pending bank transaction record.
func (r *LedgerRepo) InsertBankTransaction(ctx context.Context, bt *ledger.BankTransaction) error {
	q := r.builder.Insert(bankTxTable).
		Columns("id", "sale_id", "purchase_id", "bank_id", "amount", "commission_rate", "status", "created_at").
		Values(bt.ID, bt.SaleID, bt.PurchaseID, bt.BankID, bt.Amount, bt.CommissionRate, bt.Status, bt.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bank transaction: %w", err)
	}

	return nil
}

// ListEventsByStock reads the history for one stock row, newest first.
func (r *LedgerRepo) ListEventsByStock(ctx context.Context, stockID id.ID, limit, offset int) ([]ledger.LifecycleEvent, error) {
	q := r.builder.Select("id", "stock_id", "actor_id", "action", "note", "created_at").
		From(lifecycleEventsTable).
		Where(squirrel.Eq{"stock_id": stockID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var events []ledger.LifecycleEvent
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &events, sql, args...); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	return events, nil
}
