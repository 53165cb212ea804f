package evm

import (
	"fmt"
	"strings"

	"evm-report/internal/model"
)

// Policy decides how a column collapses into the footer row.
type Policy int

const (
	PolicyNone Policy = iota
	// PolicySum adds the column over all rows.
	PolicySum
	// PolicyLast takes the final row's value. Used for series that are
	// already cumulative, where a sum would double count.
	PolicyLast
	// PolicyAverage is the arithmetic mean of the per-row values.
	PolicyAverage
)

func (p Policy) String() string {
	switch p {
	case PolicySum:
		return "sum"
	case PolicyLast:
		return "last"
	case PolicyAverage:
		return "average"
	default:
		return "none"
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum":
		return PolicySum, nil
	case "last":
		return PolicyLast, nil
	case "average", "avg", "mean":
		return PolicyAverage, nil
	case "none", "":
		return PolicyNone, nil
	}
	return PolicyNone, fmt.Errorf("unknown aggregation policy %q", s)
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// DefaultPolicies is the footer policy per column.
//
// SPI and CPI use the mean of the per-row indices rather than the index of
// the totals (EV/PV over the whole series). The two differ; the mean is
// what the report has always shown, so it stays until product says otherwise.
var DefaultPolicies = map[Column]Policy{
	ColMonthYear:     PolicyNone,
	ColPV:            PolicySum,
	ColEV:            PolicySum,
	ColAC:            PolicySum,
	ColSV:            PolicySum,
	ColCV:            PolicySum,
	ColPlannedValue:  PolicyLast,
	ColEarnedValue:   PolicyLast,
	ColActualCost:    PolicyLast,
	ColExecutedValue: PolicyLast,
	ColSellingPrice:  PolicyLast,
	ColSPI:           PolicyAverage,
	ColCPI:           PolicyAverage,
}

// Aggregator reduces derived rows into a footer. The table and the
// workbook share one Aggregator so both footers agree.
type Aggregator struct {
	policies map[Column]Policy
}

// NewAggregator starts from DefaultPolicies and applies overrides.
func NewAggregator(overrides map[Column]Policy) *Aggregator {
	p := make(map[Column]Policy, len(DefaultPolicies))
	for c, v := range DefaultPolicies {
		p[c] = v
	}
	for c, v := range overrides {
		p[c] = v
	}
	return &Aggregator{policies: p}
}

// PolicyFor returns the policy for c; unknown columns are PolicyNone.
func (a *Aggregator) PolicyFor(c Column) Policy {
	if a == nil {
		return DefaultPolicies[c]
	}
	return a.policies[c]
}

// Policies returns the policy of every record column, keyed by column name.
func (a *Aggregator) Policies() map[Column]Policy {
	out := make(map[Column]Policy, len(AllColumns))
	for _, c := range AllColumns {
		out[c] = a.PolicyFor(c)
	}
	return out
}

// Totals is the aggregated footer row.
type Totals struct {
	Rows   int                `json:"rows"`
	Values map[Column]float64 `json:"values"`
}

// Get returns the footer value of c. ok is false when the column has no
// footer (PolicyNone, no rows, or every value null).
func (t Totals) Get(c Column) (float64, bool) {
	v, ok := t.Values[c]
	return v, ok
}

// Totals aggregates rows column by column.
func (a *Aggregator) Totals(rows []model.DerivedPeriodRecord) Totals {
	t := Totals{Rows: len(rows), Values: map[Column]float64{}}
	if len(rows) == 0 {
		return t
	}
	for _, c := range AllColumns {
		if v, ok := aggregate(a.PolicyFor(c), c, rows); ok {
			t.Values[c] = v
		}
	}
	return t
}

func aggregate(p Policy, c Column, rows []model.DerivedPeriodRecord) (float64, bool) {
	switch p {
	case PolicySum:
		var sum float64
		seen := false
		for _, r := range rows {
			if v, ok := c.Value(r); ok {
				sum += v
				seen = true
			}
		}
		return sum, seen
	case PolicyLast:
		return c.Value(rows[len(rows)-1])
	case PolicyAverage:
		// Divides by the row count, not by the number of non-null values.
		var sum float64
		seen := false
		for _, r := range rows {
			if v, ok := c.Value(r); ok {
				sum += v
				seen = true
			}
		}
		if !seen {
			return 0, false
		}
		return sum / float64(len(rows)), true
	}
	return 0, false
}
