// ABOUTME: Role picker shown at startup and on demand
// ABOUTME: Selecting a role reshapes the tabs and actions of the list view
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

var roleBlurb = map[models.Role]string{
	models.RoleAdmin:     "everything",
	models.RoleSales:     "contacts, stages, tasks and documents",
	models.RoleMarketing: "leads and campaigns",
	models.RoleClient:    "read-only, no menu",
}

func (m Model) renderRolePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("WHO ARE YOU?"))
	s.WriteString("\n\n")

	for i, r := range models.Roles {
		cursor := "  "
		line := fieldValueStyle.Render(string(r))
		if i == m.roleCursor {
			cursor = "> "
			line = tabActiveStyle.Render(string(r))
		}
		s.WriteString(cursor + line + "  " + helpStyle.UnsetMarginTop().Render(roleBlurb[r]) + "\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(helpStyle.Render("↑/↓: Choose • Enter: Select • q: Quit"))
	return s.String()
}

func (m Model) handleRoleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.roleCursor > 0 {
			m.roleCursor--
		}
	case "down", "j":
		if m.roleCursor < len(models.Roles)-1 {
			m.roleCursor++
		}
	case "enter":
		role, err := m.svc.ChangeRole(m.ctx, string(models.Roles[m.roleCursor]))
		if err != nil {
			m.report("", err)
			return m, nil
		}
		m.tab = 0
		m.selectedRow = 0
		m.viewMode = ViewList
		m.report(fmt.Sprintf("Signed in as %s (%d actions)", role, len(crm.PermittedOps(role))), nil)
	}
	return m, nil
}
