package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"carat/internal/core/types"
	"carat/internal/domain/reports"
)

// effectiveTS is the timestamp that places a header in a report bucket.
// Headers created by older imports can have a null created_at with a usable
// updated_at; rows with neither are excluded and surfaced via CountUntimed.
const effectiveTS = "COALESCE(%s.created_at, %s.updated_at)"

// Compile-time check that ReportRepo implements reports.Repository.
var _ reports.Repository = (*ReportRepo)(nil)

// ReportRepo implements reports.Repository. All methods are read-only; the
// service wraps them in a read-only transaction.
type ReportRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// saleScope applies the common sale-side filter: branch set, effective
// timestamp range, optional selling user.
func (r *ReportRepo) saleScope(q squirrel.SelectBuilder, f reports.Filter) squirrel.SelectBuilder {
	ts := fmt.Sprintf(effectiveTS, "s", "s")
	q = q.Join("sales s ON s.id = l.sale_id").
		Where(squirrel.Eq{"s.branch_id": f.BranchIDs}).
		Where(squirrel.Expr(ts+" >= ?", f.From)).
		Where(squirrel.Expr(ts+" <= ?", f.To))
	if f.UserID != nil {
		q = q.Where(squirrel.Eq{"s.actor_id": *f.UserID})
	}
	return q
}

func (r *ReportRepo) purchaseScope(q squirrel.SelectBuilder, f reports.Filter) squirrel.SelectBuilder {
	ts := fmt.Sprintf(effectiveTS, "p", "p")
	q = q.Join("purchases p ON p.id = l.purchase_id").
		Where(squirrel.Eq{"p.branch_id": f.BranchIDs}).
		Where(squirrel.Expr(ts+" >= ?", f.From)).
		Where(squirrel.Expr(ts+" <= ?", f.To))
	if f.UserID != nil {
		q = q.Where(squirrel.Eq{"p.actor_id": *f.UserID})
	}
	return q
}

// SaleTotals aggregates the sale-side metrics in one query.
func (r *ReportRepo) SaleTotals(ctx context.Context, f reports.Filter) (*reports.Totals, error) {
	q := r.builder.Select(
		"COALESCE(SUM(l.quantity * l.sold_price), 0) AS revenue",
		"COALESCE(SUM(l.quantity), 0) AS quantity",
		"COUNT(DISTINCT s.id) AS sale_count",
		"COUNT(DISTINCT s.customer_id) AS customer_count",
	).From("sale_lines l")
	q = r.saleScope(q, f)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var totals reports.Totals
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &totals, sql, args...); err != nil {
		return nil, fmt.Errorf("sale totals: %w", err)
	}

	return &totals, nil
}

// PurchaseCost aggregates quantity x purchase price over purchase lines.
func (r *ReportRepo) PurchaseCost(ctx context.Context, f reports.Filter) (types.Money, error) {
	q := r.builder.Select(
		"COALESCE(SUM(l.quantity * l.purchase_price), 0) AS cost",
	).From("purchase_lines l")
	q = r.purchaseScope(q, f)

	sql, args, err := q.ToSql()
	if err != nil {
		return types.ZeroMoney(), fmt.Errorf("build query: %w", err)
	}

	var cost types.Money
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&cost); err != nil {
		return types.ZeroMoney(), fmt.Errorf("purchase cost: %w", err)
	}

	return cost, nil
}

// RevenueByBranch returns the top branches by revenue.
func (r *ReportRepo) RevenueByBranch(ctx context.Context, f reports.Filter, limit int) ([]reports.BreakdownRow, error) {
	q := r.builder.Select(
		"s.branch_id::text AS key",
		"b.name AS label",
		"COALESCE(SUM(l.quantity * l.sold_price), 0) AS revenue",
		"COALESCE(SUM(l.quantity), 0) AS quantity",
	).From("sale_lines l")
	q = r.saleScope(q, f).
		Join("branches b ON b.id = s.branch_id").
		GroupBy("s.branch_id", "b.name").
		OrderBy("revenue DESC").
		Limit(uint64(limit))

	return r.breakdown(ctx, q)
}

// RevenueByProduct returns the top product variants by revenue. The barcode
// stands in as the display label; variant names live outside this system.
func (r *ReportRepo) RevenueByProduct(ctx context.Context, f reports.Filter, limit int) ([]reports.BreakdownRow, error) {
	q := r.builder.Select(
		"st.variant_id::text AS key",
		"MIN(st.barcode) AS label",
		"COALESCE(SUM(l.quantity * l.sold_price), 0) AS revenue",
		"COALESCE(SUM(l.quantity), 0) AS quantity",
	).From("sale_lines l")
	q = r.saleScope(q, f).
		Join("stocks st ON st.id = l.stock_id").
		GroupBy("st.variant_id").
		OrderBy("revenue DESC").
		Limit(uint64(limit))

	return r.breakdown(ctx, q)
}

// RevenueByUser returns the top selling users by revenue.
func (r *ReportRepo) RevenueByUser(ctx context.Context, f reports.Filter, limit int) ([]reports.BreakdownRow, error) {
	q := r.builder.Select(
		"s.actor_id::text AS key",
		"COALESCE(NULLIF(MIN(u.name), ''), 'User ' || s.actor_id::text) AS label",
		"COALESCE(SUM(l.quantity * l.sold_price), 0) AS revenue",
		"COALESCE(SUM(l.quantity), 0) AS quantity",
	).From("sale_lines l")
	q = r.saleScope(q, f).
		LeftJoin("users u ON u.id = s.actor_id").
		GroupBy("s.actor_id").
		OrderBy("revenue DESC").
		Limit(uint64(limit))

	return r.breakdown(ctx, q)
}

func (r *ReportRepo) breakdown(ctx context.Context, q squirrel.SelectBuilder) ([]reports.BreakdownRow, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.BreakdownRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select breakdown: %w", err)
	}

	return rows, nil
}

// DailyRevenue buckets sale revenue by UTC calendar day.
func (r *ReportRepo) DailyRevenue(ctx context.Context, f reports.Filter) ([]reports.DailyAmount, error) {
	ts := fmt.Sprintf(effectiveTS, "s", "s")
	q := r.builder.Select(
		fmt.Sprintf("date_trunc('day', %s AT TIME ZONE 'UTC') AS day", ts),
		"COALESCE(SUM(l.quantity * l.sold_price), 0) AS amount",
	).From("sale_lines l")
	q = r.saleScope(q, f).
		GroupBy("day").
		OrderBy("day")

	return r.daily(ctx, q)
}

// DailyCost buckets purchase cost by UTC calendar day.
func (r *ReportRepo) DailyCost(ctx context.Context, f reports.Filter) ([]reports.DailyAmount, error) {
	ts := fmt.Sprintf(effectiveTS, "p", "p")
	q := r.builder.Select(
		fmt.Sprintf("date_trunc('day', %s AT TIME ZONE 'UTC') AS day", ts),
		"COALESCE(SUM(l.quantity * l.purchase_price), 0) AS amount",
	).From("purchase_lines l")
	q = r.purchaseScope(q, f).
		GroupBy("day").
		OrderBy("day")

	return r.daily(ctx, q)
}

func (r *ReportRepo) daily(ctx context.Context, q squirrel.SelectBuilder) ([]reports.DailyAmount, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.DailyAmount
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select daily buckets: %w", err)
	}

	return rows, nil
}

// CountUntimed counts headers with neither a creation nor an update time.
func (r *ReportRepo) CountUntimed(ctx context.Context, f reports.Filter) (int64, error) {
	sql := `
		SELECT
			(SELECT COUNT(*) FROM sales
			 WHERE branch_id = ANY($1) AND created_at IS NULL AND updated_at IS NULL)
			+
			(SELECT COUNT(*) FROM purchases
			 WHERE branch_id = ANY($1) AND created_at IS NULL AND updated_at IS NULL)
	`

	var count int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, f.BranchIDs).Scan(&count); err != nil {
		return 0, fmt.Errorf("count untimed headers: %w", err)
	}

	return count, nil
}
