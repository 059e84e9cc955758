package dto

import (
	"time"

	"carat/internal/core/types"
	"carat/internal/domain/reports"
)

// ReportRangeRequest carries the optional UTC date range shared by all
// report endpoints.
type ReportRangeRequest struct {
	From *time.Time `form:"fromUtc" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"toUtc" time_format:"2006-01-02T15:04:05Z07:00"`
}

// TrendRequest adds granularity to the shared range.
type TrendRequest struct {
	ReportRangeRequest
	Granularity string `form:"granularity"`
}

// BreakdownRowResponse is one entry of a top-N breakdown.
type BreakdownRowResponse struct {
	Key      string      `json:"key"`
	Label    string      `json:"label"`
	Revenue  types.Money `json:"revenue"`
	Quantity int64       `json:"quantity"`
}

// OverviewResponse is the summary report payload.
type OverviewResponse struct {
	From time.Time `json:"fromUtc"`
	To   time.Time `json:"toUtc"`

	Revenue       types.Money `json:"revenue"`
	Cost          types.Money `json:"cost"`
	Profit        types.Money `json:"profit"`
	QuantitySold  int64       `json:"quantitySold"`
	SaleCount     int64       `json:"saleCount"`
	CustomerCount int64       `json:"customerCount"`

	ByBranch  []BreakdownRowResponse `json:"byBranch,omitempty"`
	ByProduct []BreakdownRowResponse `json:"byProduct,omitempty"`
	ByUser    []BreakdownRowResponse `json:"byUser,omitempty"`
}

// FromOverview creates a response from the domain overview.
func FromOverview(o *reports.Overview) *OverviewResponse {
	return &OverviewResponse{
		From:          o.From,
		To:            o.To,
		Revenue:       o.Revenue,
		Cost:          o.Cost,
		Profit:        o.Profit,
		QuantitySold:  o.QuantitySold,
		SaleCount:     o.SaleCount,
		CustomerCount: o.CustomerCount,
		ByBranch:      fromBreakdown(o.ByBranch),
		ByProduct:     fromBreakdown(o.ByProduct),
		ByUser:        fromBreakdown(o.ByUser),
	}
}

func fromBreakdown(rows []reports.BreakdownRow) []BreakdownRowResponse {
	if rows == nil {
		return nil
	}
	out := make([]BreakdownRowResponse, len(rows))
	for i, r := range rows {
		out[i] = BreakdownRowResponse{
			Key:      r.Key,
			Label:    r.Label,
			Revenue:  r.Revenue,
			Quantity: r.Quantity,
		}
	}
	return out
}

// TrendPointResponse is one merged revenue/cost bucket.
type TrendPointResponse struct {
	Bucket  time.Time   `json:"bucket"`
	Revenue types.Money `json:"revenue"`
	Cost    types.Money `json:"cost"`
	Profit  types.Money `json:"profit"`
}

// TrendResponse is the time-bucketed report payload.
type TrendResponse struct {
	Granularity string               `json:"granularity"`
	From        time.Time            `json:"fromUtc"`
	To          time.Time            `json:"toUtc"`
	Points      []TrendPointResponse `json:"points"`
}

// FromTrend creates a response from the domain trend.
func FromTrend(t *reports.Trend) *TrendResponse {
	points := make([]TrendPointResponse, len(t.Points))
	for i, p := range t.Points {
		points[i] = TrendPointResponse{
			Bucket:  p.Bucket,
			Revenue: p.Revenue,
			Cost:    p.Cost,
			Profit:  p.Profit,
		}
	}
	return &TrendResponse{
		Granularity: string(t.Granularity),
		From:        t.From,
		To:          t.To,
		Points:      points,
	}
}
