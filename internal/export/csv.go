package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"go.uber.org/zap"

	"evm-report/internal/evm"
	"evm-report/internal/model"
)

// WriteCSV writes the workbook columns as plain CSV: a label header, one
// line per period and, when Totals is set, a "Total" line.
func (e *Exporter) WriteCSV(out io.Writer, rows []model.DerivedPeriodRecord) error {
	if len(rows) == 0 {
		e.log.Error("csv export aborted: no rows")
		return ErrNoData
	}

	w := csv.NewWriter(out)

	header := make([]string, 0, columnCount())
	for _, c := range evm.DisplayColumns {
		header = append(header, c.Label())
	}
	header = append(header, "Remark")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		line := make([]string, 0, columnCount())
		for _, c := range evm.DisplayColumns {
			if c == evm.ColMonthYear {
				line = append(line, r.MonthYear)
				continue
			}
			v, ok := c.Value(r)
			line = append(line, fmtFloat(v, ok))
		}
		line = append(line, string(evm.ClassifyRecord(r)))
		if err := w.Write(line); err != nil {
			return err
		}
	}

	if e.opts.Totals {
		t := e.agg.Totals(rows)
		line := []string{"Total"}
		for _, c := range evm.DisplayColumns[1:] {
			v, ok := t.Get(c)
			line = append(line, fmtFloat(v, ok))
		}
		line = append(line, "")
		if err := w.Write(line); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		e.log.Error("write csv", zap.Error(err))
		return err
	}
	return nil
}

func fmtFloat(x float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 2, 64)
}
