package evm

import "evm-report/internal/model"

// Column names a field of DerivedPeriodRecord. The string values are the
// keys used in config files and in API responses.
type Column string

const (
	ColMonthYear     Column = "MonthYear"
	ColPV            Column = "PV"
	ColEV            Column = "EV"
	ColAC            Column = "AC"
	ColPlannedValue  Column = "PlannedValue"
	ColEarnedValue   Column = "EarnedValue"
	ColActualCost    Column = "ActualCost"
	ColExecutedValue Column = "ExecutedValue"
	ColSellingPrice  Column = "SellingPrice"
	ColSV            Column = "ScheduleVariance"
	ColSPI           Column = "SchedulePerformanceIndex"
	ColCV            Column = "CostVariance"
	ColCPI           Column = "CostPerformanceIndex"
)

// AllColumns lists every column in record order.
var AllColumns = []Column{
	ColMonthYear,
	ColPV, ColEV, ColAC,
	ColPlannedValue, ColEarnedValue, ColActualCost, ColExecutedValue, ColSellingPrice,
	ColSV, ColSPI, ColCV, ColCPI,
}

// DisplayColumns is the column set shown in the table and written to the
// workbook. The raw per-period PV/EV/AC are left out.
var DisplayColumns = []Column{
	ColMonthYear,
	ColPlannedValue,
	ColEarnedValue,
	ColActualCost,
	ColExecutedValue,
	ColSellingPrice,
	ColSV,
	ColSPI,
	ColCV,
	ColCPI,
}

var labels = map[Column]string{
	ColMonthYear:     "MonthYear",
	ColPV:            "PV",
	ColEV:            "EV",
	ColAC:            "AC",
	ColPlannedValue:  "Planned Value (PV)",
	ColEarnedValue:   "Earned Value (EV)",
	ColActualCost:    "Actual Cost (AC)",
	ColExecutedValue: "Executed Value",
	ColSellingPrice:  "Selling Price",
	ColSV:            "Schedule Variance (SV)",
	ColSPI:           "Schedule Performance Index (SPI)",
	ColCV:            "Cost Variance (CV)",
	ColCPI:           "Cost Performance Index (CPI)",
}

// Label is the human readable header for c.
func (c Column) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// Known reports whether c is one of the record columns.
func (c Column) Known() bool {
	_, ok := labels[c]
	return ok
}

// Numeric reports whether c holds a number.
func (c Column) Numeric() bool {
	return c.Known() && c != ColMonthYear
}

// Highlighted reports whether c is one of the variance/index columns that
// get emphasised in headers and cells.
func (c Column) Highlighted() bool {
	switch c {
	case ColSV, ColSPI, ColCV, ColCPI:
		return true
	}
	return false
}

// Value extracts the numeric value of c from r. ok is false for
// non-numeric columns and for a null SellingPrice.
func (c Column) Value(r model.DerivedPeriodRecord) (v float64, ok bool) {
	switch c {
	case ColPV:
		return r.PV, true
	case ColEV:
		return r.EV, true
	case ColAC:
		return r.AC, true
	case ColPlannedValue:
		return r.PlannedValue, true
	case ColEarnedValue:
		return r.EarnedValue, true
	case ColActualCost:
		return r.ActualCost, true
	case ColExecutedValue:
		return r.ExecutedValue, true
	case ColSellingPrice:
		if r.SellingPrice == nil {
			return 0, false
		}
		return *r.SellingPrice, true
	case ColSV:
		return r.ScheduleVariance, true
	case ColSPI:
		return r.SchedulePerformanceIndex, true
	case ColCV:
		return r.CostVariance, true
	case ColCPI:
		return r.CostPerformanceIndex, true
	}
	return 0, false
}

// Tone classifies a value of c for colouring. Only variance and index
// columns carry a tone; everything else is neutral.
func (c Column) Tone(v float64) Tone {
	switch c {
	case ColSPI, ColCPI:
		return IndexTone(v)
	case ColSV, ColCV:
		return VarianceTone(v)
	}
	return ToneNeutral
}
