// Package reports provides the scoped, read-only aggregation engine over the
// sale and purchase ledger.
package reports

import (
	"time"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/core/types"
)

// Granularity of trend buckets.
type Granularity string

const (
	Daily   Granularity = "Daily"
	Weekly  Granularity = "Weekly"
	Monthly Granularity = "Monthly"
)

// ParseGranularity validates a query-string granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Daily, Weekly, Monthly:
		return Granularity(s), nil
	case "":
		return Daily, nil
	}
	return "", apperror.NewValidation("unknown granularity").
		WithDetail("granularity", s)
}

// Range is a normalized UTC date range.
type Range struct {
	From time.Time
	To   time.Time
}

// NormalizeRange applies the defaulting rules: an unspecified range means
// "last 30 days ending now"; an inverted range is swapped rather than
// rejected.
func NormalizeRange(from, to *time.Time, now time.Time) Range {
	now = now.UTC()
	r := Range{From: now.AddDate(0, 0, -30), To: now}
	if from != nil {
		r.From = from.UTC()
	}
	if to != nil {
		r.To = to.UTC()
	}
	if r.From.After(r.To) {
		r.From, r.To = r.To, r.From
	}
	return r
}

// Filter narrows aggregation queries to a branch set, range, and optionally
// one user.
type Filter struct {
	BranchIDs []id.ID
	UserID    *id.ID
	From      time.Time
	To        time.Time
}

// BreakdownRow is one entry of a top-N breakdown.
type BreakdownRow struct {
	Key      string      `db:"key" json:"key"`
	Label    string      `db:"label" json:"label"`
	Revenue  types.Money `db:"revenue" json:"revenue"`
	Quantity int64       `db:"quantity" json:"quantity"`
}

// Totals holds the sale-side aggregate metrics for a filter.
type Totals struct {
	Revenue       types.Money `db:"revenue"`
	Quantity      int64       `db:"quantity"`
	SaleCount     int64       `db:"sale_count"`
	CustomerCount int64       `db:"customer_count"`
}

// DailyAmount is one calendar-day bucket (UTC) of a single event stream.
type DailyAmount struct {
	Day    time.Time   `db:"day"`
	Amount types.Money `db:"amount"`
}

// Overview is the summary report for a scope and range.
type Overview struct {
	From time.Time `json:"fromUtc"`
	To   time.Time `json:"toUtc"`

	Revenue      types.Money `json:"revenue"`
	Cost         types.Money `json:"cost"`
	Profit       types.Money `json:"profit"`
	QuantitySold int64       `json:"quantitySold"`
	// Distinct sale headers and distinct non-null customers.
	SaleCount     int64 `json:"saleCount"`
	CustomerCount int64 `json:"customerCount"`

	ByBranch  []BreakdownRow `json:"byBranch,omitempty"`
	ByProduct []BreakdownRow `json:"byProduct,omitempty"`
	ByUser    []BreakdownRow `json:"byUser,omitempty"`
}

// TrendPoint is one merged revenue/cost bucket. A bucket with sales but no
// purchases has cost 0, and vice versa.
type TrendPoint struct {
	Bucket  time.Time   `json:"bucket"`
	Revenue types.Money `json:"revenue"`
	Cost    types.Money `json:"cost"`
	Profit  types.Money `json:"profit"`
}

// Trend is the time-bucketed report for a scope and range.
type Trend struct {
	Granularity Granularity  `json:"granularity"`
	From        time.Time    `json:"fromUtc"`
	To          time.Time    `json:"toUtc"`
	Points      []TrendPoint `json:"points"`
}
