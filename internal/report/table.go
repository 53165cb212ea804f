// Package report turns derived EVM rows into presentation structures: a
// table with a totals footer and a line chart. Both are plain data so the
// HTTP API, the CLI and the terminal dashboard render the same thing.
package report

import (
	"fmt"
	"sort"

	"evm-report/internal/evm"
	"evm-report/internal/format"
	"evm-report/internal/model"
)

// RemarkKey is the column key of the trailing remark column.
const RemarkKey = "Remark"

// NoDataMessage is shown in place of an empty table.
const NoDataMessage = "No Data"

const (
	columnMinWidth = 100
	columnMaxWidth = 200
)

// Align is the horizontal alignment of a cell.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Column describes one table column.
type Column struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	MinWidth  int    `json:"min_width"`
	MaxWidth  int    `json:"max_width"`
	Numeric   bool   `json:"numeric"`
	Highlight bool   `json:"highlight"`
}

// Cell is a formatted value. Value is nil for text cells and null numbers.
type Cell struct {
	Text  string   `json:"text"`
	Value *float64 `json:"value,omitempty"`
	Align Align    `json:"align"`
	Tone  evm.Tone `json:"tone,omitempty"`
}

// Row is one table line.
type Row struct {
	Key     string     `json:"key"`
	Striped bool       `json:"striped"`
	Remark  evm.Remark `json:"remark,omitempty"`
	Cells   []Cell     `json:"cells"`
}

// Table is the presentation of a report.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
	Footer  *Row     `json:"footer,omitempty"`
	Empty   bool     `json:"empty"`
	Message string   `json:"message,omitempty"`
}

// TableOptions controls row order. The zero value keeps input order.
type TableOptions struct {
	// SortBy is a column key, including RemarkKey. Empty means no sort.
	SortBy string
	Desc   bool
}

// Columns returns the table columns: every display column plus Remark.
func Columns() []Column {
	cols := make([]Column, 0, len(evm.DisplayColumns)+1)
	for _, c := range evm.DisplayColumns {
		cols = append(cols, Column{
			Key:       string(c),
			Label:     c.Label(),
			MinWidth:  columnMinWidth,
			MaxWidth:  columnMaxWidth,
			Numeric:   c.Numeric(),
			Highlight: c.Highlighted(),
		})
	}
	return append(cols, Column{
		Key:      RemarkKey,
		Label:    RemarkKey,
		MinWidth: columnMinWidth,
		MaxWidth: columnMaxWidth,
	})
}

// BuildTable formats rows for display. The footer is aggregated from rows
// in their original order, so sorting never changes it.
func BuildTable(rows []model.DerivedPeriodRecord, agg *evm.Aggregator, f *format.Formatter, opts TableOptions) (Table, error) {
	if f == nil {
		f = format.New(format.DefaultLocale)
	}
	t := Table{Columns: Columns()}
	if len(rows) == 0 {
		t.Rows = []Row{}
		t.Empty = true
		t.Message = NoDataMessage
		return t, nil
	}

	ordered := rows
	if opts.SortBy != "" {
		var err error
		if ordered, err = sortRows(rows, opts.SortBy, opts.Desc); err != nil {
			return Table{}, err
		}
	}

	t.Rows = make([]Row, 0, len(ordered))
	for i, r := range ordered {
		remark := evm.ClassifyRecord(r)
		cells := make([]Cell, 0, len(t.Columns))
		for _, c := range evm.DisplayColumns {
			cells = append(cells, valueCell(c, r, f))
		}
		cells = append(cells, Cell{Text: string(remark), Align: AlignCenter, Tone: remark.Tone()})
		t.Rows = append(t.Rows, Row{
			Key:     r.Key(),
			Striped: i%2 == 1,
			Remark:  remark,
			Cells:   cells,
		})
	}

	if agg == nil {
		agg = evm.NewAggregator(nil)
	}
	t.Footer = footerRow(agg.Totals(rows), f)
	return t, nil
}

func valueCell(c evm.Column, r model.DerivedPeriodRecord, f *format.Formatter) Cell {
	if c == evm.ColMonthYear {
		return Cell{Text: r.MonthYear, Align: AlignCenter}
	}
	v, ok := c.Value(r)
	if !ok {
		return Cell{Align: AlignRight}
	}
	return Cell{Text: f.Number(v), Value: &v, Align: AlignRight, Tone: c.Tone(v)}
}

func footerRow(totals evm.Totals, f *format.Formatter) *Row {
	cells := make([]Cell, 0, len(evm.DisplayColumns)+1)
	for _, c := range evm.DisplayColumns {
		if c == evm.ColMonthYear {
			cells = append(cells, Cell{Text: "Total", Align: AlignCenter})
			continue
		}
		v, ok := totals.Get(c)
		if !ok {
			cells = append(cells, Cell{Align: AlignRight})
			continue
		}
		cells = append(cells, Cell{Text: f.Number(v), Value: &v, Align: AlignRight, Tone: c.Tone(v)})
	}
	cells = append(cells, Cell{Align: AlignCenter})
	return &Row{Key: "total", Cells: cells}
}

// sortRows returns a stably sorted copy. Null values sort first ascending.
func sortRows(rows []model.DerivedPeriodRecord, key string, desc bool) ([]model.DerivedPeriodRecord, error) {
	var less func(a, b model.DerivedPeriodRecord) bool
	switch col := evm.Column(key); {
	case key == RemarkKey:
		less = func(a, b model.DerivedPeriodRecord) bool {
			return evm.ClassifyRecord(a) < evm.ClassifyRecord(b)
		}
	case col == evm.ColMonthYear:
		less = func(a, b model.DerivedPeriodRecord) bool { return a.MonthYear < b.MonthYear }
	case col.Numeric():
		less = func(a, b model.DerivedPeriodRecord) bool {
			av, aok := col.Value(a)
			bv, bok := col.Value(b)
			if aok != bok {
				return !aok
			}
			return av < bv
		}
	default:
		return nil, fmt.Errorf("unknown sort column %q", key)
	}

	out := make([]model.DerivedPeriodRecord, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out, nil
}
