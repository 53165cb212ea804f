package model

import "strconv"

// RawPeriodRecord is one reporting period as returned by GetErnMgmtRep.
// Field names match the upstream JSON exactly.
type RawPeriodRecord struct {
	ID            int      `json:"Id,omitempty"`
	Month         int      `json:"Month,omitempty"`
	Year          int      `json:"Year,omitempty"`
	MonthYear     string   `json:"MonthYear"`
	PV            float64  `json:"PV"`
	EV            float64  `json:"EV"`
	AC            float64  `json:"AC"`
	ExecutedValue float64  `json:"ExecutedValue"`
	SellingPrice  *float64 `json:"SellingPrice"`
}

// DerivedPeriodRecord is a RawPeriodRecord with cumulative-to-date EVM fields.
//
// PV, EV and AC keep the per-period values. PlannedValue, EarnedValue,
// ActualCost and ExecutedValue are running totals up to and including this
// period, and every variance and index is computed from those totals.
type DerivedPeriodRecord struct {
	Month     int    `json:"month,omitempty"`
	Year      int    `json:"year,omitempty"`
	MonthYear string `json:"month_year"`

	PV float64 `json:"pv"`
	EV float64 `json:"ev"`
	AC float64 `json:"ac"`

	PlannedValue  float64  `json:"planned_value"`
	EarnedValue   float64  `json:"earned_value"`
	ActualCost    float64  `json:"actual_cost"`
	ExecutedValue float64  `json:"executed_value"`
	SellingPrice  *float64 `json:"selling_price"`

	ScheduleVariance         float64 `json:"schedule_variance"`
	SchedulePerformanceIndex float64 `json:"schedule_performance_index"`
	CostVariance             float64 `json:"cost_variance"`
	CostPerformanceIndex     float64 `json:"cost_performance_index"`
}

// Key identifies a row for presentation (stable across re-renders).
func (r DerivedPeriodRecord) Key() string {
	if r.Month == 0 && r.Year == 0 {
		return r.MonthYear
	}
	return r.MonthYear + "/" + strconv.Itoa(r.Year) + "-" + strconv.Itoa(r.Month)
}
