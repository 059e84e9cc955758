package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/core/security"
	"carat/internal/core/types"
	"carat/internal/domain/scope"
)

type fakeReportRepo struct {
	totals     Totals
	cost       types.Money
	byBranch   []BreakdownRow
	byProduct  []BreakdownRow
	byUser     []BreakdownRow
	revenue    []DailyAmount
	dailyCost  []DailyAmount
	untimed    int64
	lastFilter Filter
}

func (f *fakeReportRepo) SaleTotals(_ context.Context, filter Filter) (*Totals, error) {
	f.lastFilter = filter
	t := f.totals
	return &t, nil
}

func (f *fakeReportRepo) PurchaseCost(_ context.Context, filter Filter) (types.Money, error) {
	f.lastFilter = filter
	return f.cost, nil
}

func (f *fakeReportRepo) RevenueByBranch(_ context.Context, _ Filter, _ int) ([]BreakdownRow, error) {
	return f.byBranch, nil
}

func (f *fakeReportRepo) RevenueByProduct(_ context.Context, _ Filter, _ int) ([]BreakdownRow, error) {
	return f.byProduct, nil
}

func (f *fakeReportRepo) RevenueByUser(_ context.Context, _ Filter, _ int) ([]BreakdownRow, error) {
	return f.byUser, nil
}

func (f *fakeReportRepo) DailyRevenue(_ context.Context, filter Filter) ([]DailyAmount, error) {
	f.lastFilter = filter
	return f.revenue, nil
}

func (f *fakeReportRepo) DailyCost(_ context.Context, _ Filter) ([]DailyAmount, error) {
	return f.dailyCost, nil
}

func (f *fakeReportRepo) CountUntimed(_ context.Context, _ Filter) (int64, error) {
	return f.untimed, nil
}

func ownerScope(branches ...id.ID) *scope.ReportScope {
	return &scope.ReportScope{
		ActorID:   id.New(),
		Role:      scope.RoleOwner,
		BranchIDs: branches,
	}
}

func managerScope(branchID id.ID) *scope.ReportScope {
	return &scope.ReportScope{
		ActorID:   id.New(),
		BranchID:  &branchID,
		Role:      scope.RoleManager,
		BranchIDs: []id.ID{branchID},
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("defaults to last 30 days", func(t *testing.T) {
		r := NormalizeRange(nil, nil, now)
		assert.Equal(t, now, r.To)
		assert.Equal(t, now.AddDate(0, 0, -30), r.From)
	})

	t.Run("swaps inverted bounds", func(t *testing.T) {
		from := day(2025, 6, 10)
		to := day(2025, 6, 1)
		r := NormalizeRange(&from, &to, now)
		assert.Equal(t, to, r.From)
		assert.Equal(t, from, r.To)
	})

	t.Run("open end defaults to now", func(t *testing.T) {
		from := day(2025, 6, 1)
		r := NormalizeRange(&from, nil, now)
		assert.Equal(t, from, r.From)
		assert.Equal(t, now, r.To)
	})
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, Daily, g)

	g, err = ParseGranularity("Monthly")
	require.NoError(t, err)
	assert.Equal(t, Monthly, g)

	_, err = ParseGranularity("Hourly")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestBucketStart(t *testing.T) {
	// 2025-06-11 is a Wednesday.
	wed := day(2025, 6, 11)

	assert.Equal(t, wed, bucketStart(wed, Daily))
	assert.Equal(t, day(2025, 6, 9), bucketStart(wed, Weekly), "Monday of the same week")
	assert.Equal(t, day(2025, 6, 1), bucketStart(wed, Monthly))

	// Sunday folds back to the previous Monday, not forward.
	sun := day(2025, 6, 15)
	assert.Equal(t, day(2025, 6, 9), bucketStart(sun, Weekly))

	mon := day(2025, 6, 9)
	assert.Equal(t, mon, bucketStart(mon, Weekly))
}

func TestMergeBuckets(t *testing.T) {
	revenue := []DailyAmount{
		{Day: day(2025, 6, 9), Amount: types.MustMoney("100")},
		{Day: day(2025, 6, 11), Amount: types.MustMoney("50")},
		{Day: day(2025, 6, 16), Amount: types.MustMoney("30")},
	}
	cost := []DailyAmount{
		{Day: day(2025, 6, 10), Amount: types.MustMoney("40")},
		{Day: day(2025, 6, 18), Amount: types.MustMoney("10")},
	}

	t.Run("daily keeps streams independent", func(t *testing.T) {
		points := mergeBuckets(revenue, cost, Daily)
		require.Len(t, points, 5)
		// A cost-only day is a bucket with revenue 0.
		assert.Equal(t, day(2025, 6, 10), points[1].Bucket)
		assert.True(t, points[1].Revenue.IsZero())
		assert.True(t, points[1].Cost.Equal(types.MustMoney("40")))
		assert.True(t, points[1].Profit.Equal(types.MustMoney("-40")))
	})

	t.Run("weekly re-aggregates to Mondays", func(t *testing.T) {
		points := mergeBuckets(revenue, cost, Weekly)
		require.Len(t, points, 2)

		assert.Equal(t, day(2025, 6, 9), points[0].Bucket)
		assert.True(t, points[0].Revenue.Equal(types.MustMoney("150")))
		assert.True(t, points[0].Cost.Equal(types.MustMoney("40")))
		assert.True(t, points[0].Profit.Equal(types.MustMoney("110")))

		assert.Equal(t, day(2025, 6, 16), points[1].Bucket)
		assert.True(t, points[1].Revenue.Equal(types.MustMoney("30")))
		assert.True(t, points[1].Cost.Equal(types.MustMoney("10")))
	})

	t.Run("monthly totals match daily totals", func(t *testing.T) {
		points := mergeBuckets(revenue, cost, Monthly)
		require.Len(t, points, 1)
		assert.Equal(t, day(2025, 6, 1), points[0].Bucket)
		assert.True(t, points[0].Revenue.Equal(types.MustMoney("180")))
		assert.True(t, points[0].Cost.Equal(types.MustMoney("50")))
	})
}

func TestStoreOverview(t *testing.T) {
	ctx := context.Background()

	t.Run("profit is revenue minus cost", func(t *testing.T) {
		repo := &fakeReportRepo{
			totals: Totals{Revenue: types.MustMoney("500"), Quantity: 7, SaleCount: 3, CustomerCount: 2},
			cost:   types.MustMoney("120"),
		}
		svc := NewService(repo, nil, nil)

		report, err := svc.StoreOverview(ctx, ownerScope(id.New()), nil, nil)
		require.NoError(t, err)

		assert.True(t, report.Revenue.Equal(types.MustMoney("500")))
		assert.True(t, report.Cost.Equal(types.MustMoney("120")))
		assert.True(t, report.Profit.Equal(types.MustMoney("380")))
		assert.Equal(t, int64(7), report.QuantitySold)
		assert.Equal(t, int64(3), report.SaleCount)
		assert.Equal(t, int64(2), report.CustomerCount)
	})

	t.Run("empty scope is forbidden", func(t *testing.T) {
		svc := NewService(&fakeReportRepo{}, nil, nil)

		_, err := svc.StoreOverview(ctx, ownerScope(), nil, nil)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("scope branches reach the filter", func(t *testing.T) {
		branches := []id.ID{id.New(), id.New()}
		repo := &fakeReportRepo{}
		svc := NewService(repo, nil, nil)

		_, err := svc.StoreOverview(ctx, ownerScope(branches...), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, branches, repo.lastFilter.BranchIDs)
	})

	t.Run("breakdowns gated by feature flag", func(t *testing.T) {
		repo := &fakeReportRepo{
			byBranch: []BreakdownRow{{Key: "b1", Label: "Main", Revenue: types.MustMoney("10")}},
		}

		flags := security.NewInMemoryFlags()
		svc := NewService(repo, nil, flags)

		report, err := svc.StoreOverview(ctx, ownerScope(id.New()), nil, nil)
		require.NoError(t, err)
		assert.Empty(t, report.ByBranch)

		flags.SetFlag(security.FlagAdvancedBreakdowns, true)
		report, err = svc.StoreOverview(ctx, ownerScope(id.New()), nil, nil)
		require.NoError(t, err)
		assert.Len(t, report.ByBranch, 1)
	})
}

func TestBranchOverview(t *testing.T) {
	ctx := context.Background()
	mine := id.New()
	other := id.New()

	repo := &fakeReportRepo{totals: Totals{Revenue: types.MustMoney("90")}}
	svc := NewService(repo, nil, nil)

	t.Run("own branch allowed", func(t *testing.T) {
		report, err := svc.BranchOverview(ctx, managerScope(mine), mine, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []id.ID{mine}, repo.lastFilter.BranchIDs)
		assert.True(t, report.Revenue.Equal(types.MustMoney("90")))
	})

	t.Run("foreign branch forbidden", func(t *testing.T) {
		_, err := svc.BranchOverview(ctx, managerScope(mine), other, nil, nil)
		assert.True(t, apperror.IsForbidden(err))
	})
}

func TestUserPerformance(t *testing.T) {
	ctx := context.Background()
	branchID := id.New()

	repo := &fakeReportRepo{
		totals: Totals{Revenue: types.MustMoney("250"), Quantity: 4, SaleCount: 2},
		cost:   types.MustMoney("999"), // must never reach the report
	}
	svc := NewService(repo, nil, nil)

	t.Run("own performance, cost pinned to zero", func(t *testing.T) {
		sc := managerScope(branchID)
		report, err := svc.UserPerformance(ctx, sc, sc.ActorID, nil, nil)
		require.NoError(t, err)

		assert.True(t, report.Cost.IsZero())
		assert.True(t, report.Profit.Equal(report.Revenue))
		require.NotNil(t, repo.lastFilter.UserID)
		assert.Equal(t, sc.ActorID, *repo.lastFilter.UserID)
	})

	t.Run("manager cannot read another user", func(t *testing.T) {
		_, err := svc.UserPerformance(ctx, managerScope(branchID), id.New(), nil, nil)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("owner can read any user", func(t *testing.T) {
		_, err := svc.UserPerformance(ctx, ownerScope(branchID), id.New(), nil, nil)
		assert.NoError(t, err)
	})
}

func TestSalesTrend(t *testing.T) {
	ctx := context.Background()

	repo := &fakeReportRepo{
		revenue: []DailyAmount{
			{Day: day(2025, 6, 2), Amount: types.MustMoney("20")},
			{Day: day(2025, 6, 3), Amount: types.MustMoney("30")},
		},
		dailyCost: []DailyAmount{
			{Day: day(2025, 6, 2), Amount: types.MustMoney("5")},
		},
	}
	svc := NewService(repo, nil, nil)

	trend, err := svc.SalesTrend(ctx, ownerScope(id.New()), Weekly, nil, nil)
	require.NoError(t, err)

	require.Len(t, trend.Points, 1)
	assert.Equal(t, Weekly, trend.Granularity)
	assert.Equal(t, day(2025, 6, 2), trend.Points[0].Bucket)
	assert.True(t, trend.Points[0].Revenue.Equal(types.MustMoney("50")))
	assert.True(t, trend.Points[0].Profit.Equal(types.MustMoney("45")))

	_, err = svc.SalesTrend(ctx, ownerScope(), Daily, nil, nil)
	assert.True(t, apperror.IsForbidden(err))
}
