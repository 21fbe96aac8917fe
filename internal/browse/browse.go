// Package browse is an interactive terminal view of the quarantined tests of
// the head build.
package browse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dkoosis/quarantine/pkg/quarantine"
)

// ReleaseFunc releases the quarantine of fullName on the browsed build.
type ReleaseFunc func(ctx context.Context, fullName string) error

// Options configures a browse session.
type Options struct {
	Build   int
	Entries []quarantine.ReportEntry
	Release ReleaseFunc // nil makes the view read-only
}

// Run starts the interactive view and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	program := tea.NewProgram(newModel(ctx, opts), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type releasedMsg struct {
	fullName string
	err      error
}

type model struct {
	ctx     context.Context
	build   int
	entries []quarantine.ReportEntry
	release ReleaseFunc

	table    table.Model
	detail   viewport.Model
	status   string
	failed   bool
	pending  string // release in flight
	ready    bool
	width    int
	height   int
	quitting bool
}

func newModel(ctx context.Context, opts Options) model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	t.SetStyles(styles)

	m := model{
		ctx:     ctx,
		build:   opts.Build,
		entries: append([]quarantine.ReportEntry(nil), opts.Entries...),
		release: opts.Release,
		table:   t,
		detail:  viewport.New(0, 0),
	}
	m.table.SetRows(m.rows())
	m.refreshDetail()
	return m
}

func columns(width int) []table.Column {
	owner, passes, latest := 12, 7, 7
	name := max(width-owner-passes-latest-8, 20)
	return []table.Column{
		{Title: "Test", Width: name},
		{Title: "Owner", Width: owner},
		{Title: "Passes", Width: passes},
		{Title: "Latest", Width: latest},
	}
}

func (m model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		latest := "yes"
		if !e.IsLatest {
			latest = "no"
		}
		rows = append(rows, table.Row{e.FullName, e.QuarantinedBy, fmt.Sprintf("%d", e.SuccessivePasses), latest})
	}
	return rows
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m.startRelease()
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(m.width))
		m.table.SetHeight(max(m.height/2-2, 3))
		m.detail.Width = max(m.width-4, 20)
		m.detail.Height = max(m.height-m.height/2-6, 3)
		m.ready = true
		m.refreshDetail()
		return m, nil
	case releasedMsg:
		m.pending = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("release %s: %v", msg.fullName, msg.err)
			m.failed = true
			return m, nil
		}
		m.remove(msg.fullName)
		m.status = "released " + msg.fullName
		m.failed = false
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.refreshDetail()
	return m, cmd
}

func (m model) startRelease() (tea.Model, tea.Cmd) {
	if m.release == nil {
		m.status = "read-only: release is not available"
		m.failed = true
		return m, nil
	}
	if m.pending != "" {
		return m, nil
	}
	e, ok := m.selected()
	if !ok {
		return m, nil
	}
	m.pending = e.FullName
	m.status = "releasing " + e.FullName + "..."
	m.failed = false
	ctx, release, name := m.ctx, m.release, e.FullName
	return m, func() tea.Msg {
		return releasedMsg{fullName: name, err: release(ctx, name)}
	}
}

func (m model) selected() (quarantine.ReportEntry, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.entries) {
		return quarantine.ReportEntry{}, false
	}
	return m.entries[i], true
}

func (m *model) remove(fullName string) {
	for i, e := range m.entries {
		if e.FullName == fullName {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	m.table.SetRows(m.rows())
	if c := m.table.Cursor(); c >= len(m.entries) && len(m.entries) > 0 {
		m.table.SetCursor(len(m.entries) - 1)
	}
	m.refreshDetail()
}

func (m *model) refreshDetail() {
	e, ok := m.selected()
	if !ok {
		m.detail.SetContent("No quarantined tests.")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", e.FullName)
	fmt.Fprintf(&sb, "Quarantined by: %s\n", e.QuarantinedBy)
	if !e.Since.IsZero() {
		fmt.Fprintf(&sb, "Since:          %s\n", e.Since.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "Last outcome:   %s\n", e.Outcome)
	fmt.Fprintf(&sb, "Passes:         %d successive\n", e.SuccessivePasses)
	if e.Reason != "" {
		fmt.Fprintf(&sb, "\n%s\n", e.Reason)
	}
	m.detail.SetContent(sb.String())
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Quarantined tests, build #%d (%d)", m.build, len(m.entries))))
	sb.WriteString("\n\n")
	sb.WriteString(m.table.View())
	sb.WriteString("\n")
	sb.WriteString(detailStyle.Render(m.detail.View()))
	sb.WriteString("\n")

	help := "↑/↓ select · q quit"
	if m.release != nil {
		help = "↑/↓ select · r release · q quit"
	}
	if m.status != "" {
		style := statusStyle
		if m.failed {
			style = errorStyle
		}
		sb.WriteString(style.Render(m.status))
		sb.WriteString("  ")
	}
	sb.WriteString(statusStyle.Render(help))
	return sb.String()
}
