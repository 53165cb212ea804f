package dash

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"evm-report/internal/evm"
	"evm-report/internal/model"
	"evm-report/internal/report"
)

var (
	accent       = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	subtle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	toneGood     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	toneMixed    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	toneBad      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	stripeStyle  = lipgloss.NewStyle().Background(lipgloss.Color("236"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	selectedItem = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// shortLabels keeps the terminal table narrow; the long labels are used in
// files and the API.
var shortLabels = map[string]string{
	string(evm.ColMonthYear):     "Month",
	string(evm.ColPlannedValue):  "PV",
	string(evm.ColEarnedValue):   "EV",
	string(evm.ColActualCost):    "AC",
	string(evm.ColExecutedValue): "Executed",
	string(evm.ColSellingPrice):  "Selling",
	string(evm.ColSV):            "SV",
	string(evm.ColSPI):           "SPI",
	string(evm.ColCV):            "CV",
	string(evm.ColCPI):           "CPI",
	report.RemarkKey:             "Remark",
}

func shortLabel(key string) string {
	if l, ok := shortLabels[key]; ok {
		return l
	}
	return key
}

func toneStyle(t evm.Tone) lipgloss.Style {
	switch t {
	case evm.ToneFavorable:
		return toneGood
	case evm.ToneMixed:
		return toneMixed
	case evm.ToneUnfavorable:
		return toneBad
	}
	return lipgloss.NewStyle()
}

// RenderTable draws a report table for a terminal.
func RenderTable(t report.Table) string {
	if t.Empty {
		return subtle.Render(t.Message)
	}

	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = shortLabel(c.Key)
	}

	lines := make([]report.Row, 0, len(t.Rows)+1)
	lines = append(lines, t.Rows...)
	if t.Footer != nil {
		lines = append(lines, *t.Footer)
	}
	rows := make([][]string, len(lines))
	for i, r := range lines {
		rows[i] = make([]string, len(r.Cells))
		for j, c := range r.Cells {
			rows[i][j] = c.Text
		}
	}
	footer := t.Footer != nil

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(subtle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Inherit(headerStyle).Align(lipgloss.Center)
			}
			s := cellStyle
			if row < 0 || row >= len(lines) || col >= len(lines[row].Cells) {
				return s
			}
			cell := lines[row].Cells[col]
			switch cell.Align {
			case report.AlignRight:
				s = s.Align(lipgloss.Right)
			case report.AlignCenter:
				s = s.Align(lipgloss.Center)
			}
			s = s.Inherit(toneStyle(cell.Tone))
			if footer && row == len(lines)-1 {
				return s.Bold(true)
			}
			if lines[row].Striped {
				s = s.Inherit(stripeStyle)
			}
			return s
		})
	return tbl.String()
}

// RenderChart prints the chart series as a table with the y-axis ticks
// underneath.
func RenderChart(c report.Chart, ticks []report.Tick) string {
	if c.Message != "" {
		return subtle.Render(c.Message)
	}

	headers := []string{c.XAxisLabel}
	for _, s := range c.Series {
		headers = append(headers, s.Label)
	}
	rows := make([][]string, len(c.XLabels))
	for i, x := range c.XLabels {
		rows[i] = append(make([]string, 0, len(headers)), x)
		for _, s := range c.Series {
			rows[i] = append(rows[i], fmt.Sprintf("%.2f", s.Data[i]))
		}
	}
	colors := map[string]lipgloss.Color{"blue": "33", "green": "42", "red": "203"}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(subtle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cellStyle
			if col > 0 {
				s = s.Align(lipgloss.Right).Foreground(colors[c.Series[col-1].Color])
			}
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		})

	labels := make([]string, len(ticks))
	for i, t := range ticks {
		labels[i] = t.Label
	}
	axis := subtle.Render("y-axis: " + strings.Join(labels, " · "))
	return tbl.String() + "\n" + axis
}

// RenderProjects lists projects as an id, name and code table.
func RenderProjects(projects []model.Project) string {
	if len(projects) == 0 {
		return subtle.Render("No projects")
	}
	rows := make([][]string, len(projects))
	for i, p := range projects {
		rows[i] = []string{strconv.Itoa(p.ID), p.Name, p.Code}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(subtle).
		Headers("ID", "Name", "Code").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Inherit(headerStyle)
			}
			if col == 0 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		}).
		String()
}
