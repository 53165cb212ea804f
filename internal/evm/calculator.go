package evm

import (
	"evm-report/internal/model"
)

// Report is the derived row set plus the footer computed from it.
// This is the single artifact every presenter and exporter reads.
type Report struct {
	Rows   []model.DerivedPeriodRecord `json:"rows"`
	Totals Totals                      `json:"totals"`
}

// Build derives the rows and aggregates them with agg.
// A nil agg uses the default policies.
func Build(records []model.RawPeriodRecord, agg *Aggregator) Report {
	if agg == nil {
		agg = NewAggregator(nil)
	}
	rows := Derive(records)
	return Report{Rows: rows, Totals: agg.Totals(rows)}
}

// Derive runs one forward pass over records, which must already be ordered
// by period. Variances and indices are cumulative-to-date: they are computed
// from the running totals, never from the per-period values.
func Derive(records []model.RawPeriodRecord) []model.DerivedPeriodRecord {
	out := make([]model.DerivedPeriodRecord, 0, len(records))

	var cumPV, cumEV, cumAC, cumExecuted float64
	for _, rec := range records {
		cumPV += rec.PV
		cumEV += rec.EV
		cumAC += rec.AC
		cumExecuted += rec.ExecutedValue

		out = append(out, model.DerivedPeriodRecord{
			Month:     rec.Month,
			Year:      rec.Year,
			MonthYear: rec.MonthYear,

			PV: rec.PV,
			EV: rec.EV,
			AC: rec.AC,

			PlannedValue:  cumPV,
			EarnedValue:   cumEV,
			ActualCost:    cumAC,
			ExecutedValue: cumExecuted,
			SellingPrice:  rec.SellingPrice,

			ScheduleVariance:         cumEV - cumPV,
			SchedulePerformanceIndex: ratio(cumEV, cumPV),
			CostVariance:             cumEV - cumAC,
			CostPerformanceIndex:     ratio(cumEV, cumAC),
		})
	}
	return out
}

// ratio maps an undefined index (zero denominator) to 0 so that downstream
// rendering never sees NaN or Inf.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
