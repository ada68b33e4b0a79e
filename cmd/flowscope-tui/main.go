package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-flowscope/pkg/config"
	"github.com/dd0wney/cluso-flowscope/pkg/loader"
	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/manager"
	"github.com/dd0wney/cluso-flowscope/pkg/report"
	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	nodesView view = iota
	errorsView
)

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Errors   key.Binding
	Filter   key.Binding
	State    key.Binding
	Reload   key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next level"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev level"),
	),
	Errors: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "errors"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	State: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "cycle state"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload file"),
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
	return []key.Binding{k.Tab, k.Errors, k.Filter, k.State, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Errors},
		{k.Up, k.Down, k.Filter},
		{k.State, k.Reload, k.Quit},
	}
}

// errorItem is one structural error in the errors view.
type errorItem struct {
	level string
	node  report.NodeResult
}

func (i errorItem) Title() string {
	return fmt.Sprintf("%s %s", i.node.ID, i.node.Name)
}

func (i errorItem) Description() string {
	return fmt.Sprintf("%s in %s", i.node.Error, i.level)
}

func (i errorItem) FilterValue() string {
	return i.node.Name + " " + i.node.Error
}

type model struct {
	path    string
	cfg     config.Config
	logger  logging.Logger
	manager *manager.Manager
	reports []*report.Report

	current int
	view    view
	width   int
	height  int

	nodeTable  table.Model
	filter     textinput.Model
	errorList  list.Model
	help       help.Model
	message    string
	messageErr bool
}

var columns = []table.Column{
	{Title: "ID", Width: 10},
	{Title: "Name", Width: 18},
	{Title: "State", Width: 10},
	{Title: "Role", Width: 10},
	{Title: "Depth", Width: 5},
	{Title: "Forward", Width: 16},
	{Title: "Exec", Width: 4},
	{Title: "Reset", Width: 5},
	{Title: "Error", Width: 24},
}

func initialModel(path string, cfg config.Config, logger logging.Logger) model {
	ti := textinput.New()
	ti.Placeholder = "name, id or error"
	ti.CharLimit = 64
	ti.Width = 40

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	l := list.New(nil, list.NewDefaultDelegate(), 60, 14)
	l.Title = "Structural errors"
	l.SetShowHelp(false)

	m := model{
		path:      path,
		cfg:       cfg,
		logger:    logger,
		nodeTable: t,
		filter:    ti,
		errorList: l,
		help:      help.New(),
	}
	m.reload()
	return m
}

// reload reads the workflow file again and starts a fresh manager.
func (m *model) reload() {
	project, err := loader.Load(m.path)
	if err != nil {
		m.setError(err)
		return
	}
	m.manager = manager.New(project,
		manager.WithLogger(m.logger),
		manager.WithBudgetFactor(m.cfg.Traversal.BudgetFactor),
	)
	m.refresh()
	if !m.messageErr {
		m.message = fmt.Sprintf("loaded %s", m.path)
	}
}

// refresh rebuilds the reports from the manager and redraws both views.
func (m *model) refresh() {
	if m.manager == nil {
		return
	}
	levels, err := m.manager.Snapshot()
	if err != nil {
		m.setError(err)
		return
	}
	reports := make([]*report.Report, 0, len(levels))
	for _, lv := range levels {
		r, err := report.Build(lv.Workflow, lv.Tracker, lv.Annotator)
		if err != nil {
			m.setError(err)
			return
		}
		reports = append(reports, r)
	}
	m.reports = reports
	m.messageErr = false
	if m.current >= len(m.reports) {
		m.current = 0
	}
	m.updateTable()
	m.updateErrors()
}

func (m *model) setError(err error) {
	m.message = err.Error()
	m.messageErr = true
}

func (m model) currentReport() *report.Report {
	if m.current < 0 || m.current >= len(m.reports) {
		return nil
	}
	return m.reports[m.current]
}

func matches(n report.NodeResult, filter string) bool {
	if filter == "" {
		return true
	}
	filter = strings.ToLower(filter)
	for _, s := range []string{string(n.ID), n.Name, n.Error, n.Role} {
		if strings.Contains(strings.ToLower(s), filter) {
			return true
		}
	}
	return false
}

func stackText(ids []workflow.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, " ")
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return "·"
}

func (m *model) updateTable() {
	r := m.currentReport()
	if r == nil {
		m.nodeTable.SetRows(nil)
		return
	}
	rows := make([]table.Row, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		if !matches(n, m.filter.Value()) {
			continue
		}
		rows = append(rows, table.Row{
			string(n.ID),
			n.Name,
			n.State,
			n.Role,
			strconv.Itoa(n.Depth),
			stackText(n.ForwardStack),
			mark(n.CanExecute),
			mark(n.CanReset),
			n.Error,
		})
	}
	m.nodeTable.SetRows(rows)
	if m.nodeTable.Cursor() >= len(rows) {
		m.nodeTable.SetCursor(max(len(rows)-1, 0))
	}
}

func (m *model) updateErrors() {
	var items []list.Item
	for _, r := range m.reports {
		for _, n := range r.Errors() {
			items = append(items, errorItem{level: r.Name, node: n})
		}
	}
	m.errorList.SetItems(items)
}

// cycleState advances the selected node to the next state and lets the
// manager recompute its flags.
func (m *model) cycleState() {
	row := m.nodeTable.SelectedRow()
	if row == nil || m.manager == nil {
		return
	}
	id := workflow.NodeID(row[0])
	current, err := workflow.ParseNodeState(row[2])
	if err != nil {
		m.setError(err)
		return
	}
	next := (current + 1) % (workflow.Executed + 1)
	if err := m.manager.SetState(id, next); err != nil {
		m.setError(err)
		return
	}
	m.refresh()
	m.message = fmt.Sprintf("%s is now %s", id, next)
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.nodeTable.SetHeight(max(msg.Height-14, 5))
		m.errorList.SetSize(msg.Width-4, max(msg.Height-10, 5))
		return m, nil

	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
				m.nodeTable.Focus()
				return m, nil
			}
			m.filter, cmd = m.filter.Update(msg)
			m.updateTable()
			return m, cmd
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Tab):
			if len(m.reports) > 0 {
				m.current = (m.current + 1) % len(m.reports)
				m.view = nodesView
				m.updateTable()
			}
			return m, nil

		case key.Matches(msg, keys.ShiftTab):
			if len(m.reports) > 0 {
				m.current = (m.current - 1 + len(m.reports)) % len(m.reports)
				m.view = nodesView
				m.updateTable()
			}
			return m, nil

		case key.Matches(msg, keys.Errors):
			if m.view == errorsView {
				m.view = nodesView
			} else {
				m.view = errorsView
			}
			return m, nil

		case key.Matches(msg, keys.Filter) && m.view == nodesView:
			m.nodeTable.Blur()
			return m, m.filter.Focus()

		case key.Matches(msg, keys.State) && m.view == nodesView:
			m.cycleState()
			return m, nil

		case key.Matches(msg, keys.Reload):
			m.reload()
			return m, nil
		}
	}

	switch m.view {
	case errorsView:
		m.errorList, cmd = m.errorList.Update(msg)
	default:
		m.nodeTable, cmd = m.nodeTable.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("flowscope"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n")

	switch m.view {
	case errorsView:
		s.WriteString(contentStyle.Render(m.errorList.View()))
	default:
		s.WriteString(m.renderNodes())
	}

	if m.message != "" {
		s.WriteString("\n")
		if m.messageErr {
			s.WriteString(contentStyle.Render(errorStyle.Render(m.message)))
		} else {
			s.WriteString(contentStyle.Render(m.message))
		}
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	tabs := make([]string, 0, len(m.reports))
	for i, r := range m.reports {
		label := r.Name
		if label == "" {
			label = string(r.Workflow)
		}
		if r.HasErrors() {
			label += fmt.Sprintf(" (%d)", r.ErrorCount)
		}
		if i == m.current && m.view == nodesView {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m model) renderNodes() string {
	var s strings.Builder

	r := m.currentReport()
	if r == nil {
		return contentStyle.Render("No workflow loaded")
	}

	s.WriteString(headerStyle.Render(fmt.Sprintf("%s %s (%s)", r.Workflow, r.Name, r.Container)))
	s.WriteString("\n\n")
	s.WriteString("Filter: ")
	s.WriteString(m.filter.View())
	s.WriteString("\n\n")
	s.WriteString(m.nodeTable.View())
	s.WriteString("\n\n")
	if r.HasErrors() {
		s.WriteString(errorStyle.Render(fmt.Sprintf("%d structural error(s)", r.ErrorCount)))
	} else {
		s.WriteString(successStyle.Render("no structural errors"))
	}

	return contentStyle.Render(s.String())
}

func main() {
	path := flag.String("workflow", "", "Workflow definition (YAML)")
	configFile := flag.String("config", "", "Configuration file (YAML)")
	logFile := flag.String("log", "", "Write logs to this file")
	flag.Parse()

	if *path == "" && flag.NArg() > 0 {
		*path = flag.Arg(0)
	}
	if *path == "" {
		log.Fatalf("usage: flowscope-tui -workflow FILE")
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	logger := logging.NewNopLogger()
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logger = cfg.Logger(f)
	}

	p := tea.NewProgram(initialModel(*path, cfg, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
