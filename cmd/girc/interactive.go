package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/maqayum/grappa/delegate"
	"github.com/maqayum/grappa/ir"
	"github.com/maqayum/grappa/irtext"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0E68C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	// One style per region, cycled by region ID. Unowned
	// instructions render unstyled.
	regionStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#6BB5FF")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#00CED1")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#DA70D6")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#F08080")),
	}
)

func regionStyle(id int) lipgloss.Style {
	return regionStyles[id%len(regionStyles)]
}

type interactiveModel struct {
	err      error
	filename string
	cfg      delegate.Config
	mod      *ir.Module
	report   *delegate.Report
	funcs    []delegate.FuncSummary
	filter   textinput.Model
	visible  []int
	selected int
	region   int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateShowFunc
	stateShowRegion
)

func newInteractiveModel(filename string, cfg delegate.Config) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "filter"
	ti.Prompt = "/"
	ti.Width = 30
	return &interactiveModel{
		filename: filename,
		cfg:      cfg,
		filter:   ti,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err    error
	mod    *ir.Module
	report *delegate.Report
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

// loadModule parses and analyzes the input. The viewer never
// rewrites: regions are shown in place over the original body.
func (m *interactiveModel) loadModule() tea.Msg {
	mod, err := irtext.ParseFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	if err := mod.Verify(); err != nil {
		return loadedMsg{err: fmt.Errorf("input module: %w", err)}
	}

	cfg := m.cfg
	cfg.AnalyzeOnly = true
	report, err := delegate.Transform(mod, cfg)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{mod: mod, report: report}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateSelectFunc && m.filter.Focused() {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
			case "ctrl+c":
				return m, tea.Quit
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.applyFilter()
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "/":
			if m.state == stateSelectFunc {
				m.filter.Focus()
				return m, textinput.Blink
			}

		case "up", "k":
			switch m.state {
			case stateSelectFunc:
				if m.selected > 0 {
					m.selected--
				}
			case stateShowFunc:
				if m.region > 0 {
					m.region--
				}
			}

		case "down", "j":
			switch m.state {
			case stateSelectFunc:
				if m.selected < len(m.visible)-1 {
					m.selected++
				}
			case stateShowFunc:
				if m.region < len(m.current().Regions)-1 {
					m.region++
				}
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.visible) > 0 {
					m.region = 0
					m.state = stateShowFunc
				}
			case stateShowFunc:
				if len(m.current().Regions) > 0 {
					m.state = stateShowRegion
				}
			case stateShowRegion:
				m.state = stateShowFunc
			}

		case "esc":
			switch m.state {
			case stateSelectFunc:
				m.filter.SetValue("")
				m.applyFilter()
			case stateShowFunc:
				m.state = stateSelectFunc
			case stateShowRegion:
				m.state = stateShowFunc
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mod = msg.mod
		m.report = msg.report
		m.funcs = msg.report.Funcs
		m.applyFilter()
	}

	return m, nil
}

// applyFilter recomputes the visible function list from the filter
// text, keeping the selection in range.
func (m *interactiveModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, fs := range m.funcs {
		if needle == "" || strings.Contains(strings.ToLower(fs.Func), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = len(m.visible) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *interactiveModel) current() delegate.FuncSummary {
	return m.funcs[m.visible[m.selected]]
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.report == nil {
		return "Analyzing module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("girc"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		m.viewFuncList(&b)
	case stateShowFunc:
		m.viewFuncBody(&b)
	case stateShowRegion:
		m.viewRegion(&b)
	}
	return b.String()
}

func (m *interactiveModel) viewFuncList(b *strings.Builder) {
	b.WriteString("Analyzed functions:\n\n")
	if len(m.visible) == 0 {
		b.WriteString(helpStyle.Render("  (no matches)"))
		b.WriteString("\n")
	}
	for i, fi := range m.visible {
		fs := m.funcs[fi]
		line := m.formatFunc(fs)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.filter.Focused() || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ select • enter view • / filter • q quit"))
}

func (m *interactiveModel) formatFunc(fs delegate.FuncSummary) string {
	line := funcStyle.Render("@"+fs.Func) +
		countStyle.Render(fmt.Sprintf("  %d anchors, %d regions", fs.Anchors, len(fs.Regions)))
	if fs.StackAnchors > 0 {
		line += countStyle.Render(fmt.Sprintf(" (%d stack)", fs.StackAnchors))
	}
	return line
}

func (m *interactiveModel) viewFuncBody(b *strings.Builder) {
	fs := m.current()
	fn := m.mod.FuncByName(fs.Func)
	if fn == nil {
		b.WriteString(errorStyle.Render("function not found: @" + fs.Func))
		return
	}

	b.WriteString(funcStyle.Render("@" + fs.Func))
	b.WriteString("\n\n")
	for _, bb := range fn.Blocks {
		b.WriteString(labelStyle.Render(bb.Name() + ":"))
		b.WriteString("\n")
		for _, in := range bb.Instrs {
			line := "    " + in.String()
			if id, ok := m.report.Ownership[in]; ok {
				st := regionStyle(id)
				if len(fs.Regions) > 0 && id == fs.Regions[m.region].ID {
					st = st.Bold(true)
				}
				line = st.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	if len(fs.Regions) > 0 {
		rs := fs.Regions[m.region]
		b.WriteString(regionStyle(rs.ID).Render(fmt.Sprintf("d%d", rs.ID)))
		b.WriteString(countStyle.Render(fmt.Sprintf("  target=%s  (%d/%d)", rs.Target, m.region+1, len(fs.Regions))))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ region • enter detail • esc back • q quit"))
}

func (m *interactiveModel) viewRegion(b *strings.Builder) {
	fs := m.current()
	rs := fs.Regions[m.region]

	b.WriteString(funcStyle.Render("@" + fs.Func))
	b.WriteString(regionStyle(rs.ID).Render(fmt.Sprintf("  d%d", rs.ID)))
	b.WriteString("\n\n")
	fmt.Fprintf(b, "  target   %s\n", rs.Target)
	fmt.Fprintf(b, "  blocks   %d\n", rs.Blocks)
	fmt.Fprintf(b, "  instrs   %d\n", rs.Instrs)
	fmt.Fprintf(b, "  exits    %d\n", rs.Exits)
	fmt.Fprintf(b, "  inputs   %d\n", rs.Inputs)
	fmt.Fprintf(b, "  outputs  %d\n", rs.Outputs)
	if rs.Extracted {
		fmt.Fprintf(b, "  unit     %s\n", funcStyle.Render("@"+rs.Unit))
	} else {
		b.WriteString(helpStyle.Render("  not extracted\n"))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc back • q quit"))
}

func runInteractive(filename string, cfg delegate.Config) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}
	p := tea.NewProgram(newInteractiveModel(filename, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
