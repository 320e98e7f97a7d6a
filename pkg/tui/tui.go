// Package tui is an interactive terminal viewer for bow-tie risk reports.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/render"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7C3AED")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	detailBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#888888")).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	nodesView view = iota
	summaryView
	diagnosticsView
	viewCount
)

var viewNames = [...]string{"Nodes", "Summary", "Diagnostics"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Reload   key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Reload},
		{k.Up, k.Down},
		{k.Quit},
	}
}

// Snapshot is one loaded diagram with its computed report.
type Snapshot struct {
	Title       string
	Graph       *bowtie.Graph
	Report      *risk.Report
	Diagnostics []bowtie.Diagnostic
}

// Loader produces a fresh Snapshot. It is called on start, on reload and on
// every refresh tick.
type Loader func() (Snapshot, error)

// Option configures a Model.
type Option func(*Model)

// WithRefresh reloads the diagram every interval. Zero disables it.
func WithRefresh(interval time.Duration) Option {
	return func(m *Model) {
		m.refresh = interval
	}
}

type loadedMsg struct {
	snap Snapshot
	err  error
}

type tickMsg time.Time

// Model is the bubbletea model of the viewer.
type Model struct {
	load    Loader
	refresh time.Duration

	snap   Snapshot
	loaded bool
	rows   []render.Row

	currentView view
	nodeTable   table.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	message     string
	messageErr  bool
	loadedAt    time.Time
}

// New returns a viewer that reads diagrams through load.
func New(load Loader, opts ...Option) Model {
	columns := []table.Column{
		{Title: "ID", Width: 16},
		{Title: "Kind", Width: 12},
		{Title: "Label", Width: 28},
		{Title: "Residual", Width: 10},
		{Title: "Band", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7C3AED")).
		Bold(false)
	t.SetStyles(s)

	m := Model{
		load:      load,
		nodeTable: t,
		help:      help.New(),
		keys:      keys,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) loadCmd() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		snap, err := load()
		return loadedMsg{snap: snap, err: err}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	if m.refresh > 0 {
		return tea.Batch(m.loadCmd(), m.tickCmd())
	}
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case loadedMsg:
		m.apply(msg)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadCmd(), m.tickCmd())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.currentView = (m.currentView + viewCount - 1) % viewCount
			return m, nil

		case key.Matches(msg, m.keys.Reload):
			return m, m.loadCmd()
		}
	}

	if m.currentView == nodesView {
		m.nodeTable, cmd = m.nodeTable.Update(msg)
	}
	return m, cmd
}

// apply swaps in a freshly loaded snapshot. A failed load keeps the last
// good snapshot on screen.
func (m *Model) apply(msg loadedMsg) {
	if msg.err != nil {
		m.message = fmt.Sprintf("Load error: %v", msg.err)
		m.messageErr = true
		return
	}

	m.snap = msg.snap
	m.loaded = true
	m.loadedAt = time.Now()
	m.rows = render.Rows(msg.snap.Graph, msg.snap.Report)
	m.message = fmt.Sprintf("Loaded %d nodes", len(m.rows))
	m.messageErr = false

	rows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		rows = append(rows, table.Row{r.ID, string(r.Kind), r.Label, r.Residual, string(r.Band)})
	}
	cursor := m.nodeTable.Cursor()
	m.nodeTable.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor >= 0 {
		m.nodeTable.SetCursor(cursor)
	}
}

// Selected returns the row under the cursor.
func (m Model) Selected() (render.Row, bool) {
	i := m.nodeTable.Cursor()
	if i < 0 || i >= len(m.rows) {
		return render.Row{}, false
	}
	return m.rows[i], true
}

func (m Model) View() string {
	var b strings.Builder

	title := "Bow-tie"
	if m.snap.Title != "" {
		title += " · " + m.snap.Title
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	var content string
	switch {
	case !m.loaded:
		content = "Loading..."
	case m.currentView == nodesView:
		content = m.renderNodes()
	case m.currentView == summaryView:
		content = render.Summary(m.snap.Graph, m.snap.Report)
	case m.currentView == diagnosticsView:
		content = render.Diagnostics(m.snap.Diagnostics)
	}
	b.WriteString(contentStyle.Render(content))

	if m.message != "" {
		b.WriteString("\n")
		if m.messageErr {
			b.WriteString(contentStyle.Render(errorStyle.Render(m.message)))
		} else {
			b.WriteString(contentStyle.Render(m.message))
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(viewNames))
	for i, name := range viewNames {
		if view(i) == m.currentView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.NewStyle().MarginLeft(2).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m Model) renderNodes() string {
	details := "No nodes"
	if row, ok := m.Selected(); ok {
		lines := []string{
			render.BandStyle(row.Band).Render(row.Label),
			row.Badge,
		}
		if nr, ok := m.snap.Report.Get(row.ID); ok && len(nr.Barriers) > 0 {
			lines = append(lines, "Barriers: "+strings.Join(nr.Barriers, ", "))
		}
		details = strings.Join(lines, "\n")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.nodeTable.View(),
		detailBoxStyle.Render(details),
	)
}

// Run starts the viewer on the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
