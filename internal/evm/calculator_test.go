package evm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-report/internal/model"
)

func ptr(v float64) *float64 { return &v }

func scenario() []model.RawPeriodRecord {
	return []model.RawPeriodRecord{
		{MonthYear: "Jan-24", PV: 100, EV: 80, AC: 90, ExecutedValue: 50, SellingPrice: ptr(200)},
		{MonthYear: "Feb-24", PV: 100, EV: 120, AC: 100, ExecutedValue: 60, SellingPrice: ptr(200)},
	}
}

func TestDeriveScenario(t *testing.T) {
	rows := Derive(scenario())
	require.Len(t, rows, 2)

	r1 := rows[0]
	assert.Equal(t, "Jan-24", r1.MonthYear)
	assert.Equal(t, 100.0, r1.PlannedValue)
	assert.Equal(t, 80.0, r1.EarnedValue)
	assert.Equal(t, 90.0, r1.ActualCost)
	assert.Equal(t, 50.0, r1.ExecutedValue)
	assert.Equal(t, -20.0, r1.ScheduleVariance)
	assert.InDelta(t, 0.8, r1.SchedulePerformanceIndex, 1e-9)
	assert.Equal(t, -10.0, r1.CostVariance)
	assert.InDelta(t, 0.889, r1.CostPerformanceIndex, 1e-3)

	r2 := rows[1]
	assert.Equal(t, 200.0, r2.PlannedValue)
	assert.Equal(t, 200.0, r2.EarnedValue)
	assert.Equal(t, 190.0, r2.ActualCost)
	assert.Equal(t, 110.0, r2.ExecutedValue)
	assert.Equal(t, 0.0, r2.ScheduleVariance)
	assert.InDelta(t, 1.0, r2.SchedulePerformanceIndex, 1e-9)
	assert.Equal(t, 10.0, r2.CostVariance)
	assert.InDelta(t, 1.053, r2.CostPerformanceIndex, 1e-3)

	// Per-period values and the selling price pass through untouched.
	assert.Equal(t, 100.0, r2.PV)
	assert.Equal(t, 120.0, r2.EV)
	assert.Equal(t, 100.0, r2.AC)
	require.NotNil(t, r2.SellingPrice)
	assert.Equal(t, 200.0, *r2.SellingPrice)
}

func TestDeriveKeepsRowCount(t *testing.T) {
	for _, n := range []int{0, 1, 7, 250} {
		in := make([]model.RawPeriodRecord, n)
		for i := range in {
			in[i] = model.RawPeriodRecord{MonthYear: "m", PV: float64(i)}
		}
		assert.Len(t, Derive(in), n)
	}
}

func TestDeriveZeroDenominators(t *testing.T) {
	rows := Derive([]model.RawPeriodRecord{
		{MonthYear: "Jan-24", PV: 0, EV: 0, AC: 0},
		{MonthYear: "Feb-24", PV: 0, EV: 50, AC: 0},
	})
	for _, r := range rows {
		assert.Equal(t, 0.0, r.SchedulePerformanceIndex, r.MonthYear)
		assert.Equal(t, 0.0, r.CostPerformanceIndex, r.MonthYear)
		assert.False(t, math.IsNaN(r.SchedulePerformanceIndex))
		assert.False(t, math.IsInf(r.CostPerformanceIndex, 0))
	}
	assert.Equal(t, 50.0, rows[1].ScheduleVariance)
}

func TestDeriveCumulativeMonotonicForNonNegativeInput(t *testing.T) {
	in := []model.RawPeriodRecord{
		{PV: 10, EV: 1, AC: 3}, {PV: 0, EV: 0, AC: 0}, {PV: 5, EV: 7, AC: 2}, {PV: 0.5, EV: 9, AC: 1},
	}
	rows := Derive(in)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i].PlannedValue, rows[i-1].PlannedValue)
		assert.GreaterOrEqual(t, rows[i].EarnedValue, rows[i-1].EarnedValue)
		assert.GreaterOrEqual(t, rows[i].ActualCost, rows[i-1].ActualCost)
	}
}

func TestDeriveAcceptsNegativeInput(t *testing.T) {
	rows := Derive([]model.RawPeriodRecord{{PV: 100}, {PV: -30}})
	require.Len(t, rows, 2)
	assert.Equal(t, 70.0, rows[1].PlannedValue)
}

func TestDeriveTrustsInputOrder(t *testing.T) {
	rows := Derive([]model.RawPeriodRecord{
		{MonthYear: "Mar-24", Month: 3, Year: 2024, PV: 1},
		{MonthYear: "Jan-24", Month: 1, Year: 2024, PV: 2},
	})
	assert.Equal(t, "Mar-24", rows[0].MonthYear)
	assert.Equal(t, 3.0, rows[1].PlannedValue)
}

func TestBuildUsesAggregator(t *testing.T) {
	rep := Build(scenario(), nil)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, 2, rep.Totals.Rows)

	pv, ok := rep.Totals.Get(ColPlannedValue)
	require.True(t, ok)
	assert.Equal(t, 200.0, pv)
}
