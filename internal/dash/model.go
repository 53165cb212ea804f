// Package dash is the interactive terminal dashboard: a project search box,
// a report date, and the report table or chart for that selection.
package dash

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"evm-report/internal/config"
	"evm-report/internal/data"
	"evm-report/internal/evm"
	"evm-report/internal/export"
	"evm-report/internal/format"
	"evm-report/internal/model"
	"evm-report/internal/report"
	"evm-report/internal/session"
)

// SearchDelay is how long typing must pause before the project search runs.
const SearchDelay = 300 * time.Millisecond

const maxSuggestions = 8

// ProjectSearcher finds projects by name or code.
type ProjectSearcher interface {
	SearchProjects(ctx context.Context, term string) ([]model.Project, error)
}

// ReportSource fetches the raw rows of one report.
type ReportSource interface {
	FetchReport(ctx context.Context, q data.ReportQuery) ([]model.RawPeriodRecord, error)
}

// Deps is everything the dashboard talks to.
type Deps struct {
	Projects   ProjectSearcher
	Reports    ReportSource
	Exporter   *export.Exporter
	Formatter  *format.Formatter
	Aggregator *evm.Aggregator
	Title      string
	ExportDir  string
	Log        *zap.Logger
	Now        func() time.Time
}

type focus int

const (
	focusProject focus = iota
	focusDate
	focusTable
	focusCount
)

type debounceMsg struct {
	seq  uint64
	term string
}

type suggestionsMsg struct {
	seq      uint64
	projects []model.Project
	err      error
}

type loadedMsg struct {
	ticket  session.Ticket
	records []model.RawPeriodRecord
	err     error
}

type exportedMsg struct {
	path string
	err  error
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx  context.Context
	deps Deps

	project textinput.Model
	date    textinput.Model
	focus   focus

	suggestions []model.Project
	cursor      int
	searchSeq   uint64
	searchErr   error

	selected model.Project
	day      time.Time
	tracker  *session.Tracker

	sortKeys  []string
	sortIdx   int
	desc      bool
	showChart bool

	status string
	width  int
	height int
}

// New builds the dashboard with the project box focused and the date set
// to today.
func New(ctx context.Context, deps Deps) Model {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Aggregator == nil {
		deps.Aggregator = evm.NewAggregator(nil)
	}
	if deps.Formatter == nil {
		deps.Formatter = format.New(format.DefaultLocale)
	}
	if deps.ExportDir == "" {
		deps.ExportDir = "."
	}

	project := textinput.New()
	project.Placeholder = "Search project"
	project.Prompt = "Project: "
	project.CharLimit = 80
	project.Focus()

	today := deps.Now()
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	date := textinput.New()
	date.Placeholder = data.DateLayout
	date.Prompt = "Date: "
	date.CharLimit = len(data.DateLayout)
	date.SetValue(day.Format(data.DateLayout))

	sortKeys := []string{""}
	for _, c := range report.Columns() {
		sortKeys = append(sortKeys, c.Key)
	}

	return Model{
		ctx:       ctx,
		deps:      deps,
		project:   project,
		date:      date,
		searchSeq: 1,
		day:       day,
		tracker:   session.NewTracker(deps.Aggregator, deps.Log, nil),
		sortKeys:  sortKeys,
	}
}

// Close cancels a report load that is still running.
func (m Model) Close() {
	m.tracker.Close()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, debounce(m.searchSeq, m.project.Value()))
}

func debounce(seq uint64, term string) tea.Cmd {
	return tea.Tick(SearchDelay, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq, term: term}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case debounceMsg:
		if msg.seq != m.searchSeq || m.focus != focusProject {
			return m, nil
		}
		return m, m.search(msg.seq, msg.term)

	case suggestionsMsg:
		if msg.seq != m.searchSeq || m.focus != focusProject {
			return m, nil
		}
		m.searchErr = msg.err
		m.suggestions = msg.projects
		if len(m.suggestions) > maxSuggestions {
			m.suggestions = m.suggestions[:maxSuggestions]
		}
		m.cursor = 0
		return m, nil

	case loadedMsg:
		if !m.tracker.Complete(msg.ticket, msg.records, msg.err) {
			return m, nil
		}
		if st := m.tracker.State(); st.Err != nil {
			m.status = "load failed: " + st.Err.Error()
		} else {
			m.status = fmt.Sprintf("%d rows", len(st.Report.Rows))
		}
		return m, nil

	case exportedMsg:
		switch {
		case errors.Is(msg.err, export.ErrNoData):
			m.status = "nothing to export"
		case msg.err != nil:
			m.status = "export failed: " + msg.err.Error()
		default:
			m.status = "exported " + msg.path
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusProject:
		m.project, cmd = m.project.Update(msg)
	case focusDate:
		m.date, cmd = m.date.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		return m, m.setFocus((m.focus + 1) % focusCount)
	case "shift+tab":
		return m, m.setFocus((m.focus + focusCount - 1) % focusCount)
	}

	switch m.focus {
	case focusProject:
		switch msg.String() {
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < len(m.suggestions)-1 {
				m.cursor++
			}
			return m, nil
		case "esc":
			m.suggestions = nil
			return m, nil
		case "enter":
			if len(m.suggestions) == 0 {
				return m, nil
			}
			m.selected = m.suggestions[m.cursor]
			m.project.SetValue(m.selected.Name)
			m.project.CursorEnd()
			m.suggestions = nil
			return m, m.reload()
		}
		before := m.project.Value()
		var cmd tea.Cmd
		m.project, cmd = m.project.Update(msg)
		if m.project.Value() == before {
			return m, cmd
		}
		m.searchSeq++
		return m, tea.Batch(cmd, debounce(m.searchSeq, m.project.Value()))

	case focusDate:
		before := m.date.Value()
		var cmd tea.Cmd
		m.date, cmd = m.date.Update(msg)
		if m.date.Value() == before {
			return m, cmd
		}
		day, err := data.ParseDate(m.date.Value())
		if err != nil || day.Equal(m.day) {
			return m, cmd
		}
		m.day = day
		return m, tea.Batch(cmd, m.reload())

	case focusTable:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "s":
			m.sortIdx = (m.sortIdx + 1) % len(m.sortKeys)
		case "d":
			m.desc = !m.desc
		case "c":
			m.showChart = !m.showChart
		case "x":
			return m, m.export()
		}
	}
	return m, nil
}

// setFocus moves focus to f. Leaving the project box with text that is not
// the selected project clears the selection.
func (m *Model) setFocus(f focus) tea.Cmd {
	if f == m.focus {
		return nil
	}
	var cmd tea.Cmd
	if m.focus == focusProject {
		m.project.Blur()
		m.suggestions = nil
		if m.project.Value() != m.selected.Name || m.selected.ID == 0 {
			hadSelection := m.selected.ID != 0
			m.selected = model.Project{}
			m.project.SetValue("")
			if hadSelection {
				cmd = m.reload()
			}
		}
	}
	if m.focus == focusDate {
		m.date.Blur()
	}

	m.focus = f
	switch f {
	case focusProject:
		m.searchSeq++
		return tea.Batch(cmd, m.project.Focus(), debounce(m.searchSeq, m.project.Value()))
	case focusDate:
		m.date.CursorEnd()
		return tea.Batch(cmd, m.date.Focus())
	}
	return cmd
}

func (m Model) search(seq uint64, term string) tea.Cmd {
	src := m.deps.Projects
	ctx := m.ctx
	return func() tea.Msg {
		projects, err := src.SearchProjects(ctx, strings.TrimSpace(term))
		return suggestionsMsg{seq: seq, projects: projects, err: err}
	}
}

func (m *Model) selection() session.Selection {
	return session.Selection{ProjectID: m.selected.ID, Date: m.day}
}

// reload starts a load for the current selection. An incomplete selection
// only supersedes whatever is in flight.
func (m *Model) reload() tea.Cmd {
	sel := m.selection()
	if !sel.Ready() {
		m.tracker.Load(m.ctx, sel, nil)
		return nil
	}
	ctx, tk := m.tracker.Begin(m.ctx, sel)
	src := m.deps.Reports
	m.status = "loading"
	return func() tea.Msg {
		records, err := src.FetchReport(ctx, data.ReportQuery{ProjectID: sel.ProjectID, Date: sel.Date})
		return loadedMsg{ticket: tk, records: records, err: err}
	}
}

func (m Model) export() tea.Cmd {
	if m.deps.Exporter == nil {
		return nil
	}
	rows := m.tracker.State().Report.Rows
	exp, dir, title := m.deps.Exporter, m.deps.ExportDir, m.deps.Title
	if title == "" && m.selected.Name != "" {
		title = m.selected.Name
	}
	return func() tea.Msg {
		path, err := exp.WriteFile(dir, rows, title)
		return exportedMsg{path: path, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder

	title := m.deps.Title
	if title == "" {
		title = config.DefaultTitle
	}
	b.WriteString(accent.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.field(m.project.View(), m.focus == focusProject))
	b.WriteString("  ")
	b.WriteString(m.field(m.date.View(), m.focus == focusDate))
	b.WriteString("\n")

	if m.focus == focusProject {
		if m.searchErr != nil {
			b.WriteString(errorStyle.Render("search failed: " + m.searchErr.Error()))
			b.WriteString("\n")
		}
		for i, p := range m.suggestions {
			line := fmt.Sprintf("  %s (%s)", p.Name, p.Code)
			if i == m.cursor {
				line = selectedItem.Render("> " + p.Name + " (" + p.Code + ")")
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	st := m.tracker.State()
	switch {
	case m.showChart:
		c := report.BuildChart(st.Report.Rows)
		b.WriteString(RenderChart(c, c.Ticks(5)))
	default:
		tbl, err := report.BuildTable(st.Report.Rows, m.deps.Aggregator, m.deps.Formatter, report.TableOptions{
			SortBy: m.sortKeys[m.sortIdx],
			Desc:   m.desc,
		})
		if err != nil {
			b.WriteString(errorStyle.Render(err.Error()))
		} else {
			b.WriteString(RenderTable(tbl))
		}
	}
	b.WriteString("\n")

	if st.Loading {
		b.WriteString(subtle.Render("loading..."))
	} else if m.status != "" {
		b.WriteString(subtle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(subtle.Render(m.help()))
	return b.String()
}

func (m Model) field(s string, focused bool) string {
	if focused {
		return focusStyle.Render(s)
	}
	return s
}

func (m Model) help() string {
	sortBy := "none"
	if key := m.sortKeys[m.sortIdx]; key != "" {
		sortBy = shortLabel(key)
		if m.desc {
			sortBy += " desc"
		}
	}
	return "tab: next field · s: sort (" + sortBy + ") · d: direction · c: chart · x: export · q: quit"
}

// Run starts the dashboard and blocks until the user quits.
func Run(ctx context.Context, deps Deps) error {
	m := New(ctx, deps)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
