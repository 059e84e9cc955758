package reports

import (
	"context"

	"carat/internal/core/types"
)

// Repository defines the read-only aggregation queries. All queries filter by
// the effective timestamp of the parent header (its creation time, falling
// back to its update time when creation is null) and by the branch set in
// the filter. Implementations never mutate data.
type Repository interface {
	// SaleTotals aggregates revenue, quantity, distinct sale count and
	// distinct non-null customer count over sale lines.
	SaleTotals(ctx context.Context, f Filter) (*Totals, error)

	// PurchaseCost aggregates quantity x purchase price over purchase lines.
	PurchaseCost(ctx context.Context, f Filter) (types.Money, error)

	// Top-N revenue breakdowns over sale lines.
	RevenueByBranch(ctx context.Context, f Filter, limit int) ([]BreakdownRow, error)
	RevenueByProduct(ctx context.Context, f Filter, limit int) ([]BreakdownRow, error)
	RevenueByUser(ctx context.Context, f Filter, limit int) ([]BreakdownRow, error)

	// Daily buckets (calendar day, UTC) of each event stream, ordered by day.
	DailyRevenue(ctx context.Context, f Filter) ([]DailyAmount, error)
	DailyCost(ctx context.Context, f Filter) ([]DailyAmount, error)

	// CountUntimed counts headers in scope whose creation and update times
	// are both null. Such rows are data-quality noise: excluded from buckets
	// and logged, never silently folded in.
	CountUntimed(ctx context.Context, f Filter) (int64, error)
}
