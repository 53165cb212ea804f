package evm

import "evm-report/internal/model"

// Remark is the status label of a period. Keep these values stable; they
// are shown verbatim in the table and the workbook.
type Remark string

const (
	RemarkAheadUnderBudget  Remark = "Ahead of Schedule & Under Budget"
	RemarkAheadOverBudget   Remark = "Ahead of Schedule & Over Budget"
	RemarkBehindUnderBudget Remark = "Behind Schedule & Under Budget"
	RemarkBehindOverBudget  Remark = "Behind Schedule & Over Budget"
)

// Classify maps the two performance indices to a Remark. An index of
// exactly 1 counts as on the favourable side.
func Classify(spi, cpi float64) Remark {
	ahead := spi >= 1
	under := cpi >= 1
	switch {
	case ahead && under:
		return RemarkAheadUnderBudget
	case ahead:
		return RemarkAheadOverBudget
	case under:
		return RemarkBehindUnderBudget
	default:
		return RemarkBehindOverBudget
	}
}

// ClassifyRecord classifies a derived row by its cumulative indices.
func ClassifyRecord(r model.DerivedPeriodRecord) Remark {
	return Classify(r.SchedulePerformanceIndex, r.CostPerformanceIndex)
}

// Tone returns the colour class of the remark.
func (r Remark) Tone() Tone {
	switch r {
	case RemarkAheadUnderBudget:
		return ToneFavorable
	case RemarkBehindOverBudget:
		return ToneUnfavorable
	case RemarkAheadOverBudget, RemarkBehindUnderBudget:
		return ToneMixed
	}
	return ToneNeutral
}

// Tone is a presentation-neutral performance class.
type Tone string

const (
	ToneNeutral     Tone = ""
	ToneFavorable   Tone = "favorable"
	ToneMixed       Tone = "mixed"
	ToneUnfavorable Tone = "unfavorable"
)

// IndexTone classifies a performance index against the 1.0 threshold.
func IndexTone(v float64) Tone {
	if v >= 1 {
		return ToneFavorable
	}
	return ToneUnfavorable
}

// VarianceTone classifies a variance against zero.
func VarianceTone(v float64) Tone {
	if v >= 0 {
		return ToneFavorable
	}
	return ToneUnfavorable
}
