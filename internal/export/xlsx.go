// Package export writes derived EVM rows to spreadsheet files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"evm-report/internal/evm"
	"evm-report/internal/format"
	"evm-report/internal/model"
)

// ErrNoData is returned when there are no rows to export. Nothing is
// written in that case.
var ErrNoData = errors.New("no data to export")

const (
	// DefaultRowsPerSheet is the counted row limit of one sheet.
	DefaultRowsPerSheet = 100000

	// titleRows is the merged title block; it counts against RowsPerSheet.
	titleRows = 3
	headerRow = titleRows + 1

	maxSheetName  = 31
	minColWidth   = 10
	widthPadding  = 2
	tallRowHeight = 50

	subtitle     = "Earned Value Management Report"
	defaultTitle = "Report"
	numberFormat = "#,##0.00"
	fileTimeFmt  = "02-01-2006_15-04-05"

	colorTitle     = "FF0000"
	colorSubtitle  = "000080"
	colorText      = "311B92"
	fillHighlight  = "ADD8E6"
	fillHeader     = "D3D3D3"
	colorFavorable = "008000"
	colorMixed     = "FF8C00"
	colorAdverse   = "FF0000"
)

// Options tunes the workbook layout.
type Options struct {
	// RowsPerSheet is the counted rows per sheet: the title block, data
	// rows and the footer. The header row is not counted.
	RowsPerSheet int
	// Locale formats the values used to size columns.
	Locale string
	// Totals adds a footer row to the last sheet.
	Totals bool
	// Now stamps file names; defaults to time.Now.
	Now func() time.Time
}

// Exporter builds EVM workbooks. It shares its Aggregator with the table so
// the two footers agree.
type Exporter struct {
	opts Options
	agg  *evm.Aggregator
	num  *format.Formatter
	log  *zap.Logger
}

// New returns an Exporter. nil agg uses the default policies; nil log
// discards logs.
func New(agg *evm.Aggregator, opts Options, log *zap.Logger) *Exporter {
	if agg == nil {
		agg = evm.NewAggregator(nil)
	}
	if opts.RowsPerSheet <= titleRows {
		opts.RowsPerSheet = DefaultRowsPerSheet
	}
	if opts.Locale == "" {
		opts.Locale = format.DefaultLocale
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{opts: opts, agg: agg, num: format.New(opts.Locale), log: log}
}

// Workbook builds the whole workbook in memory. The caller must Close it.
func (e *Exporter) Workbook(rows []model.DerivedPeriodRecord, title string) (*excelize.File, error) {
	if len(rows) == 0 {
		e.log.Error("export aborted: no rows", zap.String("title", title))
		return nil, ErrNoData
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}

	f := excelize.NewFile()
	b := &builder{f: f, e: e, title: title, styles: map[styleKey]int{}}
	if err := b.build(rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write encodes the workbook to w. No byte is written unless the workbook
// was built successfully.
func (e *Exporter) Write(w io.Writer, rows []model.DerivedPeriodRecord, title string) error {
	buf, err := e.encode(rows, title)
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// WriteFile saves the workbook in dir under FileName(title) and returns the
// path. The file appears atomically.
func (e *Exporter) WriteFile(dir string, rows []model.DerivedPeriodRecord, title string) (string, error) {
	buf, err := e.encode(rows, title)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".evm-export-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := buf.WriteTo(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}

	path := filepath.Join(dir, e.FileName(title))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	e.log.Info("workbook saved", zap.String("path", path), zap.Int("rows", len(rows)))
	return path, nil
}

func (e *Exporter) encode(rows []model.DerivedPeriodRecord, title string) (*bytes.Buffer, error) {
	f, err := e.Workbook(rows, title)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		e.log.Error("encode workbook", zap.Error(err))
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf, nil
}

// FileName is "{title}_{DD-MM-YYYY}_{HH-MM-SS}.xlsx" at the current time.
func (e *Exporter) FileName(title string) string {
	return FileName(title, e.opts.Now())
}

// FileName builds the export file name for title at t. Path separators in
// the title are replaced so the name stays a single path element.
func FileName(title string, t time.Time) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	title = strings.NewReplacer("/", "_", `\`, "_").Replace(title)
	return title + "_" + t.Format(fileTimeFmt) + ".xlsx"
}

// SheetName returns the name of sheet n (1-based) for title: characters
// Excel rejects become spaces and the " - n" suffix always survives the
// 31 character limit.
func SheetName(title string, n int) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '*', '?', ':', '/', '\\', '[', ']':
			return ' '
		}
		return r
	}, title)
	suffix := fmt.Sprintf(" - %d", n)
	room := maxSheetName - utf8.RuneCountInString(suffix)
	if runes := []rune(clean); len(runes) > room {
		clean = string(runes[:room])
	}
	return clean + suffix
}

type cellKind int

const (
	kindTitle cellKind = iota
	kindHeader
	kindData
	kindFooter
)

type styleKey struct {
	kind      cellKind
	highlight bool
	numeric   bool
	align     string
	color     string
}

type builder struct {
	f      *excelize.File
	e      *Exporter
	title  string
	styles map[styleKey]int

	sheet  string
	sheets int
	row    int
	count  int
	widths []int
}

func (b *builder) build(rows []model.DerivedPeriodRecord) error {
	if err := b.newSheet(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := b.reserveRow(); err != nil {
			return err
		}
		if err := b.writeRecord(r); err != nil {
			return err
		}
	}
	if b.e.opts.Totals {
		if err := b.reserveRow(); err != nil {
			return err
		}
		if err := b.writeFooter(b.e.agg.Totals(rows)); err != nil {
			return err
		}
	}
	return b.finishSheet()
}

// reserveRow starts a new sheet when the current one is full.
func (b *builder) reserveRow() error {
	if b.count < b.e.opts.RowsPerSheet {
		return nil
	}
	if err := b.finishSheet(); err != nil {
		return err
	}
	return b.newSheet()
}

func columnCount() int {
	return len(evm.DisplayColumns) + 1
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func (b *builder) newSheet() error {
	b.sheets++
	name := SheetName(b.title, b.sheets)
	if b.sheets == 1 {
		if err := b.f.SetSheetName(b.f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	} else if _, err := b.f.NewSheet(name); err != nil {
		return fmt.Errorf("add sheet %q: %w", name, err)
	}
	b.sheet = name
	b.widths = make([]int, columnCount())
	for i := range b.widths {
		b.widths[i] = minColWidth
	}

	last := cellName(columnCount(), titleRows)
	if err := b.f.MergeCell(name, "A1", last); err != nil {
		return err
	}
	if err := b.f.SetCellRichText(name, "A1", []excelize.RichTextRun{
		{Text: b.title + "\n", Font: &excelize.Font{Bold: true, Size: 12, Color: colorTitle}},
		{Text: subtitle, Font: &excelize.Font{Bold: true, Size: 12, Color: colorSubtitle, Underline: "single"}},
	}); err != nil {
		return err
	}
	if err := b.setStyle(cellName(1, 1), last, styleKey{kind: kindTitle, align: "center"}); err != nil {
		return err
	}
	if err := b.f.SetRowHeight(name, 1, tallRowHeight); err != nil {
		return err
	}

	cols := append(append([]evm.Column{}, evm.DisplayColumns...), "")
	for i, c := range cols {
		label := "Remark"
		if c != "" {
			label = c.Label()
		}
		cell := cellName(i+1, headerRow)
		if err := b.f.SetCellValue(name, cell, label); err != nil {
			return err
		}
		if err := b.setStyle(cell, cell, styleKey{kind: kindHeader, highlight: c.Highlighted(), align: "center", color: colorText}); err != nil {
			return err
		}
	}
	if err := b.f.SetRowHeight(name, headerRow, tallRowHeight); err != nil {
		return err
	}

	b.row = headerRow + 1
	b.count = titleRows
	return nil
}

func (b *builder) writeRecord(r model.DerivedPeriodRecord) error {
	for i, c := range evm.DisplayColumns {
		cell := cellName(i+1, b.row)
		key := styleKey{kind: kindData, highlight: c.Highlighted(), color: colorText}
		if c == evm.ColMonthYear {
			key.align = "center"
			if err := b.text(cell, i, r.MonthYear, key); err != nil {
				return err
			}
			continue
		}
		key.align, key.numeric = "right", true
		v, ok := c.Value(r)
		if err := b.number(cell, i, v, ok, key); err != nil {
			return err
		}
	}

	remark := evm.ClassifyRecord(r)
	i := len(evm.DisplayColumns)
	key := styleKey{kind: kindData, align: "center", color: toneColor(remark.Tone())}
	if err := b.text(cellName(i+1, b.row), i, string(remark), key); err != nil {
		return err
	}
	b.row++
	b.count++
	return nil
}

func (b *builder) writeFooter(t evm.Totals) error {
	for i, c := range evm.DisplayColumns {
		cell := cellName(i+1, b.row)
		key := styleKey{kind: kindFooter, highlight: c.Highlighted(), color: colorText}
		if c == evm.ColMonthYear {
			key.align = "center"
			if err := b.text(cell, i, "Total", key); err != nil {
				return err
			}
			continue
		}
		key.align, key.numeric = "right", true
		v, ok := t.Get(c)
		if err := b.number(cell, i, v, ok, key); err != nil {
			return err
		}
	}
	i := len(evm.DisplayColumns)
	cell := cellName(i+1, b.row)
	if err := b.setStyle(cell, cell, styleKey{kind: kindFooter, align: "center", color: colorText}); err != nil {
		return err
	}
	b.row++
	b.count++
	return nil
}

func (b *builder) text(cell string, col int, s string, key styleKey) error {
	if err := b.f.SetCellValue(b.sheet, cell, s); err != nil {
		return err
	}
	b.measure(col, s)
	return b.setStyle(cell, cell, key)
}

// number writes v as a real number; the column is sized by its formatted
// text. A missing value leaves a styled blank cell.
func (b *builder) number(cell string, col int, v float64, ok bool, key styleKey) error {
	if ok {
		if err := b.f.SetCellValue(b.sheet, cell, v); err != nil {
			return err
		}
		b.measure(col, b.e.num.Number(v))
	}
	return b.setStyle(cell, cell, key)
}

func (b *builder) measure(col int, s string) {
	if w := utf8.RuneCountInString(s) + widthPadding; w > b.widths[col] {
		b.widths[col] = w
	}
}

func (b *builder) finishSheet() error {
	for i, w := range b.widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := b.f.SetColWidth(b.sheet, name, name, float64(w)); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) setStyle(from, to string, key styleKey) error {
	id, ok := b.styles[key]
	if !ok {
		var err error
		if id, err = b.f.NewStyle(newStyle(key)); err != nil {
			return fmt.Errorf("create style: %w", err)
		}
		b.styles[key] = id
	}
	return b.f.SetCellStyle(b.sheet, from, to, id)
}

func newStyle(k styleKey) *excelize.Style {
	s := &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: k.align, Vertical: "center"},
	}
	if k.kind == kindTitle {
		s.Alignment.WrapText = true
		return s
	}

	s.Border = []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	s.Font = &excelize.Font{Color: k.color, Bold: k.kind != kindData}

	switch {
	case k.highlight:
		s.Fill = excelize.Fill{Type: "pattern", Color: []string{fillHighlight}, Pattern: 1}
	case k.kind == kindHeader:
		s.Fill = excelize.Fill{Type: "pattern", Color: []string{fillHeader}, Pattern: 1}
	}
	if k.kind == kindHeader || k.color != colorText {
		s.Alignment.WrapText = true
	}
	if k.numeric {
		nf := numberFormat
		s.CustomNumFmt = &nf
	}
	return s
}

func toneColor(t evm.Tone) string {
	switch t {
	case evm.ToneFavorable:
		return colorFavorable
	case evm.ToneMixed:
		return colorMixed
	case evm.ToneUnfavorable:
		return colorAdverse
	}
	return colorText
}
