package report

import (
	"math"

	"github.com/shopspring/decimal"

	"evm-report/internal/format"
	"evm-report/internal/model"
)

const (
	ChartHeight     = 400
	chartMinWidth   = 1000
	chartPointWidth = 50
	chartXAxisLabel = "Month-Year"
	missingLabel    = "N/A"

	MsgNoData      = "No data available"
	MsgNoValidData = "No valid data to display"

	// MaxTicks caps the tick count Ticks will aim for.
	MaxTicks = 50
)

// Series is one line of the chart.
type Series struct {
	Label string    `json:"label"`
	Color string    `json:"color"`
	Data  []float64 `json:"data"`
}

// Chart is the line chart of the cumulative planned, earned and actual
// series. When Message is set there is nothing to draw.
type Chart struct {
	XLabels    []string `json:"x_labels"`
	XAxisLabel string   `json:"x_axis_label"`
	Series     []Series `json:"series"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Message    string   `json:"message,omitempty"`
}

// BuildChart builds the chart for rows. Series whose values are all zero
// are left out.
func BuildChart(rows []model.DerivedPeriodRecord) Chart {
	if len(rows) == 0 {
		return Chart{Message: MsgNoData}
	}

	labels := make([]string, len(rows))
	pv := make([]float64, len(rows))
	ev := make([]float64, len(rows))
	ac := make([]float64, len(rows))
	for i, r := range rows {
		labels[i] = r.MonthYear
		if labels[i] == "" {
			labels[i] = missingLabel
		}
		pv[i] = round2(r.PlannedValue)
		ev[i] = round2(r.EarnedValue)
		ac[i] = round2(r.ActualCost)
	}

	candidates := []Series{
		{Label: "Planned Value (PV)", Color: "blue", Data: pv},
		{Label: "Earned Value (EV)", Color: "green", Data: ev},
		{Label: "Actual Cost (AC)", Color: "red", Data: ac},
	}
	series := make([]Series, 0, len(candidates))
	for _, s := range candidates {
		if !allZero(s.Data) {
			series = append(series, s)
		}
	}
	if len(series) == 0 {
		return Chart{Message: MsgNoValidData}
	}

	return Chart{
		XLabels:    labels,
		XAxisLabel: chartXAxisLabel,
		Series:     series,
		Width:      max(chartMinWidth, len(rows)*chartPointWidth),
		Height:     ChartHeight,
	}
}

// Tick is a y-axis tick.
type Tick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

var tickFormatter = format.New("en-US")

// Ticks returns roughly n evenly spaced y-axis ticks on round numbers,
// covering zero and every series value. n is capped at MaxTicks. Labels use
// en-US grouping.
func (c Chart) Ticks(n int) []Tick {
	if len(c.Series) == 0 || n < 2 {
		return nil
	}
	n = min(n, MaxTicks)
	lo, hi := 0.0, 0.0
	for _, s := range c.Series {
		for _, v := range s.Data {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo == hi {
		hi = lo + 1
	}

	step := decimal.NewFromFloat(niceStep((hi - lo) / float64(n-1)))
	first := decimal.NewFromFloat(lo).Div(step).Floor().Mul(step)
	limit := decimal.NewFromFloat(hi)

	var ticks []Tick
	for v := first; ; v = v.Add(step) {
		f := v.InexactFloat64()
		ticks = append(ticks, Tick{Value: f, Label: tickFormatter.Compact(f)})
		if v.GreaterThanOrEqual(limit) {
			break
		}
	}
	return ticks
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / exp; {
	case f <= 1:
		return exp
	case f <= 2:
		return 2 * exp
	case f <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func allZero(data []float64) bool {
	for _, v := range data {
		if v != 0 {
			return false
		}
	}
	return true
}
