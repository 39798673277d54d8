// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Handles deletion of contacts, leads, and campaigns with confirmation dialog
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

// deleteTarget names the selected entity for the confirmation dialog.
func (m Model) deleteTarget() (kind, name string, err error) {
	tab, _ := m.currentTab()
	switch tab {
	case EntityContacts:
		c, err := m.svc.GetContact(m.ctx, m.selectedID)
		if err != nil {
			return "", "", err
		}
		return "contact", c.Name, nil
	case EntityLeads:
		l, err := m.svc.GetLead(m.ctx, m.selectedID)
		if err != nil {
			return "", "", err
		}
		return "lead", l.Name, nil
	case EntityCampaigns:
		c, err := m.svc.GetCampaign(m.ctx, m.selectedID)
		if err != nil {
			return "", "", err
		}
		return "campaign", c.Title, nil
	}
	return "", "", fmt.Errorf("nothing to delete on this tab")
}

func (m Model) renderConfirmDeleteView() string {
	kind, name, err := m.deleteTarget()
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := fmt.Sprintf("Are you sure you want to delete this %s?", kind)
	entityInfo := fmt.Sprintf("\n%s: %s\n", strings.ToUpper(kind), name)
	warning := "\nThis action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		confirmBoxStyle.Render(content),
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		kind, name, _ := m.deleteTarget()
		m.report(fmt.Sprintf("Deleted %s %s", kind, name), m.performDelete())
		m.viewMode = ViewList
		m.selectedRow = 0
		m.selectedID = 0
	case "n", "N", "esc":
		m.viewMode = ViewList
	}

	return m, nil
}

func (m Model) performDelete() error {
	tab, _ := m.currentTab()
	switch tab {
	case EntityContacts:
		return m.svc.DeleteContact(m.ctx, m.selectedID)
	case EntityLeads:
		return m.svc.DeleteLead(m.ctx, m.selectedID)
	case EntityCampaigns:
		return m.svc.DeleteCampaign(m.ctx, m.selectedID)
	}
	return fmt.Errorf("unknown entity type")
}
