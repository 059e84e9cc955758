package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/core/security"
	"carat/internal/core/tx"
	"carat/internal/core/types"
	"carat/internal/domain/scope"
	"carat/pkg/logger"
)

const breakdownLimit = 10

// Service is the aggregation engine. It merges the sale and purchase event
// streams into summary metrics and time-bucketed trends, strictly read-only,
// bounded by a resolved report scope.
type Service struct {
	repo  Repository
	rotx  tx.ReadOnlyManager      // optional, wraps queries in a read-only tx
	flags security.FeatureFlagProvider // optional, gates the top-10 breakdowns
}

// NewService creates a new aggregation service.
func NewService(repo Repository, rotx tx.ReadOnlyManager, flags security.FeatureFlagProvider) *Service {
	return &Service{repo: repo, rotx: rotx, flags: flags}
}

// StoreOverview computes the summary metrics over every branch in scope.
func (s *Service) StoreOverview(ctx context.Context, sc *scope.ReportScope, from, to *time.Time) (*Overview, error) {
	if sc.IsEmpty() {
		return nil, apperror.NewForbidden("no accessible branches")
	}
	f := Filter{BranchIDs: sc.BranchIDs}
	return s.overview(ctx, f, from, to, true)
}

// BranchOverview narrows the overview to one branch. A branch outside the
// caller's accessible set fails with Forbidden.
func (s *Service) BranchOverview(ctx context.Context, sc *scope.ReportScope, branchID id.ID, from, to *time.Time) (*Overview, error) {
	if sc.IsEmpty() || !sc.CanAccessBranch(branchID) {
		return nil, apperror.NewForbidden("branch outside accessible scope").
			WithDetail("branch_id", branchID.String())
	}
	f := Filter{BranchIDs: []id.ID{branchID}}
	return s.overview(ctx, f, from, to, true)
}

// UserPerformance narrows the metric set to one user's own sale lines.
// Cost is reported as 0 because purchases are not tied to the selling user.
// Requesting another user's performance requires an owner-like role.
func (s *Service) UserPerformance(ctx context.Context, sc *scope.ReportScope, userID id.ID, from, to *time.Time) (*Overview, error) {
	if sc.IsEmpty() {
		return nil, apperror.NewForbidden("no accessible branches")
	}
	if userID != sc.ActorID && sc.Role != scope.RoleOwner {
		return nil, apperror.NewForbidden("user outside accessible scope").
			WithDetail("user_id", userID.String())
	}
	f := Filter{BranchIDs: sc.BranchIDs, UserID: &userID}

	var report *Overview
	err := s.readOnly(ctx, func(ctx context.Context) error {
		r := NormalizeRange(from, to, time.Now())
		f.From, f.To = r.From, r.To

		totals, err := s.repo.SaleTotals(ctx, f)
		if err != nil {
			return fmt.Errorf("sale totals: %w", err)
		}

		report = &Overview{
			From:          r.From,
			To:            r.To,
			Revenue:       totals.Revenue,
			Cost:          types.ZeroMoney(),
			Profit:        totals.Revenue,
			QuantitySold:  totals.Quantity,
			SaleCount:     totals.SaleCount,
			CustomerCount: totals.CustomerCount,
		}

		if s.breakdownsEnabled(ctx) {
			report.ByProduct, err = s.repo.RevenueByProduct(ctx, f, breakdownLimit)
			if err != nil {
				return fmt.Errorf("revenue by product: %w", err)
			}
		}
		return s.warnUntimed(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// SalesTrend builds daily revenue/cost/profit buckets and re-aggregates them
// to weekly or monthly buckets on request. The two streams are computed
// independently and merged by bucket key.
func (s *Service) SalesTrend(ctx context.Context, sc *scope.ReportScope, granularity Granularity, from, to *time.Time) (*Trend, error) {
	if sc.IsEmpty() {
		return nil, apperror.NewForbidden("no accessible branches")
	}

	f := Filter{BranchIDs: sc.BranchIDs}
	var trend *Trend
	err := s.readOnly(ctx, func(ctx context.Context) error {
		r := NormalizeRange(from, to, time.Now())
		f.From, f.To = r.From, r.To

		revenue, err := s.repo.DailyRevenue(ctx, f)
		if err != nil {
			return fmt.Errorf("daily revenue: %w", err)
		}
		cost, err := s.repo.DailyCost(ctx, f)
		if err != nil {
			return fmt.Errorf("daily cost: %w", err)
		}

		trend = &Trend{
			Granularity: granularity,
			From:        r.From,
			To:          r.To,
			Points:      mergeBuckets(revenue, cost, granularity),
		}
		return s.warnUntimed(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return trend, nil
}

func (s *Service) overview(ctx context.Context, f Filter, from, to *time.Time, withCost bool) (*Overview, error) {
	var report *Overview
	err := s.readOnly(ctx, func(ctx context.Context) error {
		r := NormalizeRange(from, to, time.Now())
		f.From, f.To = r.From, r.To

		totals, err := s.repo.SaleTotals(ctx, f)
		if err != nil {
			return fmt.Errorf("sale totals: %w", err)
		}

		cost := types.ZeroMoney()
		if withCost {
			cost, err = s.repo.PurchaseCost(ctx, f)
			if err != nil {
				return fmt.Errorf("purchase cost: %w", err)
			}
		}

		report = &Overview{
			From:          r.From,
			To:            r.To,
			Revenue:       totals.Revenue,
			Cost:          cost,
			Profit:        totals.Revenue.Sub(cost),
			QuantitySold:  totals.Quantity,
			SaleCount:     totals.SaleCount,
			CustomerCount: totals.CustomerCount,
		}

		if s.breakdownsEnabled(ctx) {
			if report.ByBranch, err = s.repo.RevenueByBranch(ctx, f, breakdownLimit); err != nil {
				return fmt.Errorf("revenue by branch: %w", err)
			}
			if report.ByProduct, err = s.repo.RevenueByProduct(ctx, f, breakdownLimit); err != nil {
				return fmt.Errorf("revenue by product: %w", err)
			}
			if report.ByUser, err = s.repo.RevenueByUser(ctx, f, breakdownLimit); err != nil {
				return fmt.Errorf("revenue by user: %w", err)
			}
		}

		return s.warnUntimed(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.rotx != nil {
		return s.rotx.ReadOnly(ctx, fn)
	}
	return fn(ctx)
}

func (s *Service) breakdownsEnabled(ctx context.Context) bool {
	if s.flags == nil {
		return true
	}
	return s.flags.IsEnabled(ctx, security.FlagAdvancedBreakdowns)
}

// warnUntimed logs headers whose creation and update times are both null.
// They are excluded from every bucket rather than silently folded in.
func (s *Service) warnUntimed(ctx context.Context, f Filter) error {
	n, err := s.repo.CountUntimed(ctx, f)
	if err != nil {
		return fmt.Errorf("count untimed headers: %w", err)
	}
	if n > 0 {
		logger.Warn(ctx, "headers without any timestamp excluded from report",
			"count", n,
		)
	}
	return nil
}

// --- Bucketing ---

// mergeBuckets merges the independent revenue and cost day streams into
// sorted trend points at the requested granularity.
func mergeBuckets(revenue, cost []DailyAmount, granularity Granularity) []TrendPoint {
	buckets := make(map[time.Time]*TrendPoint)

	add := func(day time.Time, amount types.Money, isRevenue bool) {
		key := bucketStart(day, granularity)
		p, ok := buckets[key]
		if !ok {
			p = &TrendPoint{
				Bucket:  key,
				Revenue: types.ZeroMoney(),
				Cost:    types.ZeroMoney(),
			}
			buckets[key] = p
		}
		if isRevenue {
			p.Revenue = p.Revenue.Add(amount)
		} else {
			p.Cost = p.Cost.Add(amount)
		}
	}

	for _, d := range revenue {
		add(d.Day, d.Amount, true)
	}
	for _, d := range cost {
		add(d.Day, d.Amount, false)
	}

	points := make([]TrendPoint, 0, len(buckets))
	for _, p := range buckets {
		p.Profit = p.Revenue.Sub(p.Cost)
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Bucket.Before(points[j].Bucket)
	})
	return points
}

// bucketStart maps a calendar day to its bucket key: the day itself, the
// Monday of its week, or the 1st of its month, all in UTC.
func bucketStart(day time.Time, granularity Granularity) time.Time {
	day = day.UTC()
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	switch granularity {
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}
