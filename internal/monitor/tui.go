package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	detailStyle    = lipgloss.NewStyle().Padding(0, 1)
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Model is the BubbleTea model for the monitor TUI.
type Model struct {
	report      Report
	allResults  []pinning.ValidationResult // full sorted set
	results     []pinning.ValidationResult // current view (may be filtered)
	table       table.Model
	width       int
	height      int
	quitting    bool
	searching   bool
	searchInput textinput.Model
}

// NewModel creates a TUI model from a completed report.
func NewModel(r Report) *Model {
	results := sortResults(r.Results)

	cols := []table.Column{
		{Title: "STATUS", Width: 8},
		{Title: "HOST", Width: 30},
		{Title: "MODE", Width: 10},
		{Title: "SCORE", Width: 6},
		{Title: "MATCHES", Width: 8},
		{Title: "ERRORS", Width: 24},
	}

	rows := make([]table.Row, len(results))
	for i := range results {
		rows[i] = resultToRow(&results[i])
	}

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("57"))

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(s),
	)

	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 64

	return &Model{
		report:      r,
		table:       t,
		allResults:  results,
		results:     results,
		width:       80,
		height:      24,
		searchInput: ti,
	}
}

// Init satisfies tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles key events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.updateSearch(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(4, m.height-10))
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "/":
			m.searching = true
			m.searchInput.Focus()
			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter", "esc":
			m.searching = false
			m.searchInput.Blur()
			if key.String() == "esc" {
				m.searchInput.SetValue("")
				m.applyFilter("")
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter(m.searchInput.Value())
	return m, cmd
}

func (m *Model) applyFilter(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		m.results = m.allResults
	} else {
		var filtered []pinning.ValidationResult
		for i := range m.allResults {
			if strings.Contains(strings.ToLower(m.allResults[i].Hostname), query) {
				filtered = append(filtered, m.allResults[i])
			}
		}
		m.results = filtered
	}

	rows := make([]table.Row, len(m.results))
	for i := range m.results {
		rows[i] = resultToRow(&m.results[i])
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

// View renders the table plus a detail pane for the selected host.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("pinwatch — %d hosts validated at %s",
		len(m.allResults), m.report.At.Format("15:04:05"))))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", max(10, m.width-2))))
	b.WriteString("\n")
	b.WriteString(m.detailView())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  ↑/↓ select · / filter · q quit"))
	return b.String()
}

func (m *Model) detailView() string {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.results) {
		return detailStyle.Render("(nothing selected)")
	}
	res := &m.results[cursor]

	var b strings.Builder
	fmt.Fprintf(&b, "%s  score %d/100  %d match(es)\n", res.Hostname, res.TrustScore, len(res.Matches))
	for i := range res.Matches {
		mt := &res.Matches[i]
		tag := ""
		if mt.IsBackupPin {
			tag = " (backup)"
		}
		if mt.IsEmergencyPin {
			tag = " (emergency)"
		}
		fmt.Fprintf(&b, "  match %s at position %d%s\n", mt.Kind, mt.ChainPosition, tag)
	}
	for i := range res.Errors {
		b.WriteString("  " + failStyle.Render(res.Errors[i].Error()) + "\n")
	}
	for _, w := range res.Warnings {
		b.WriteString("  " + warnStyle.Render("warning: "+w) + "\n")
	}
	for _, w := range m.report.Posture[res.Hostname] {
		b.WriteString("  " + warnStyle.Render("posture: "+w) + "\n")
	}
	return detailStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func resultToRow(r *pinning.ValidationResult) table.Row {
	status := "VALID"
	if !r.IsValid {
		status = "INVALID"
	}
	firstErr := ""
	if len(r.Errors) > 0 {
		firstErr = string(r.Errors[0].Kind)
		if len(r.Errors) > 1 {
			firstErr += fmt.Sprintf(" +%d", len(r.Errors)-1)
		}
	}
	return table.Row{
		status,
		r.Hostname,
		string(r.Mode),
		fmt.Sprintf("%d", r.TrustScore),
		fmt.Sprintf("%d", len(r.Matches)),
		firstErr,
	}
}

func sortResults(in []pinning.ValidationResult) []pinning.ValidationResult {
	out := make([]pinning.ValidationResult, len(in))
	copy(out, in)
	sort.Slice(out, func(a, b int) bool {
		if out[a].IsValid != out[b].IsValid {
			return !out[a].IsValid // failures first
		}
		return out[a].Hostname < out[b].Hostname
	})
	return out
}

// Run starts the TUI and blocks until the user quits.
func Run(r Report) error {
	p := tea.NewProgram(NewModel(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
