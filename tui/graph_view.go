package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/funnel/viz"
)

// openGraph renders the stage transition graph and switches to it.
func (m Model) openGraph() Model {
	dot, err := viz.NewGraphGenerator(m.svc).GenerateStageGraph(m.ctx)
	if err != nil {
		m.report("", err)
		return m
	}
	m.graphDOT = dot
	m.viewMode = ViewGraph
	return m
}

func (m Model) renderGraphView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("STAGE TRANSITIONS"))
	s.WriteString("\n\n")

	if m.graphDOT == "" {
		s.WriteString("No graph generated.\n")
	} else {
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(m.graphDOT))
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderGraphHelp())

	return s.String()
}

func (m Model) renderGraphHelp() string {
	help := []string{
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.viewMode = ViewList
		m.graphDOT = ""
	}
	return m, nil
}
