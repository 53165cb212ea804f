package evm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"evm-report/internal/model"
)

func TestTotalsDefaultPolicies(t *testing.T) {
	rows := Derive(scenario())
	tot := NewAggregator(nil).Totals(rows)

	tests := []struct {
		col  Column
		want float64
	}{
		{ColPV, 200},            // sum
		{ColEV, 200},            // sum
		{ColAC, 190},            // sum
		{ColSV, -20},            // sum of -20 and 0
		{ColCV, 0},              // sum of -10 and 10
		{ColPlannedValue, 200},  // last
		{ColEarnedValue, 200},   // last
		{ColActualCost, 190},    // last
		{ColExecutedValue, 110}, // last
		{ColSellingPrice, 200},  // last
	}
	for _, tt := range tests {
		got, ok := tot.Get(tt.col)
		require.True(t, ok, tt.col)
		assert.InDelta(t, tt.want, got, 1e-9, tt.col)
	}

	// Average of per-row indices, not EV/PV of the totals.
	spi, _ := tot.Get(ColSPI)
	assert.InDelta(t, (0.8+1.0)/2, spi, 1e-9)
	cpi, _ := tot.Get(ColCPI)
	assert.InDelta(t, (80.0/90.0+200.0/190.0)/2, cpi, 1e-9)

	_, ok := tot.Get(ColMonthYear)
	assert.False(t, ok)
}

func TestRawSumMatchesLastCumulative(t *testing.T) {
	rows := Derive([]model.RawPeriodRecord{{PV: 3, EV: 1, AC: 4}, {PV: 1, EV: 5, AC: 9}, {PV: 2, EV: 6, AC: 5}})
	tot := NewAggregator(nil).Totals(rows)

	pairs := [][2]Column{{ColPV, ColPlannedValue}, {ColEV, ColEarnedValue}, {ColAC, ColActualCost}}
	for _, p := range pairs {
		sum, _ := tot.Get(p[0])
		last, _ := tot.Get(p[1])
		assert.Equal(t, sum, last, p)
	}
}

func TestTotalsEmpty(t *testing.T) {
	tot := NewAggregator(nil).Totals(nil)
	assert.Equal(t, 0, tot.Rows)
	assert.Empty(t, tot.Values)
}

func TestTotalsNullSellingPrice(t *testing.T) {
	rows := Derive([]model.RawPeriodRecord{{MonthYear: "a"}, {MonthYear: "b"}})
	_, ok := NewAggregator(nil).Totals(rows).Get(ColSellingPrice)
	assert.False(t, ok)
}

func TestAggregatorOverrides(t *testing.T) {
	agg := NewAggregator(map[Column]Policy{ColSPI: PolicyLast, ColSV: PolicyNone})
	assert.Equal(t, PolicyLast, agg.PolicyFor(ColSPI))
	assert.Equal(t, PolicyAverage, agg.PolicyFor(ColCPI))

	tot := agg.Totals(Derive(scenario()))
	spi, _ := tot.Get(ColSPI)
	assert.InDelta(t, 1.0, spi, 1e-9)
	_, ok := tot.Get(ColSV)
	assert.False(t, ok)

	// Defaults are not mutated by overrides.
	assert.Equal(t, PolicyAverage, DefaultPolicies[ColSPI])
}

func TestPoliciesCoversAllColumns(t *testing.T) {
	p := NewAggregator(nil).Policies()
	assert.Len(t, p, len(AllColumns))
	assert.Equal(t, PolicyAverage, p[ColCPI])
}

func TestPolicyTextRoundTripInYAML(t *testing.T) {
	var cfg struct {
		Totals map[Column]Policy `yaml:"totals"`
	}
	err := yaml.Unmarshal([]byte("totals:\n  SchedulePerformanceIndex: last\n  CostVariance: average\n"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, PolicyLast, cfg.Totals[ColSPI])
	assert.Equal(t, PolicyAverage, cfg.Totals[ColCV])

	_, err = ParsePolicy("median")
	assert.Error(t, err)
}
