package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
	"github.com/harperreed/funnel/viz"
)

// visibleTabs returns the tabs the current role may browse.
func (m Model) visibleTabs() []EntityType {
	role := m.svc.Role()
	var tabs []EntityType
	if crm.Allowed(role, crm.OpCreateContact) {
		tabs = append(tabs, EntityContacts)
	}
	if crm.Allowed(role, crm.OpCreateLead) {
		tabs = append(tabs, EntityLeads)
	}
	if crm.Allowed(role, crm.OpCreateCampaign) {
		tabs = append(tabs, EntityCampaigns)
	}
	if role != models.RoleClient {
		tabs = append(tabs, EntitySummary)
	}
	return tabs
}

// currentTab returns the active tab and false when the role has none.
func (m Model) currentTab() (EntityType, bool) {
	tabs := m.visibleTabs()
	if len(tabs) == 0 {
		return 0, false
	}
	return tabs[m.tab%len(tabs)], true
}

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("FUNNEL CRM"))
	s.WriteString("  ")
	s.WriteString(helpStyle.UnsetMarginTop().Render("role: " + string(m.svc.Role())))
	s.WriteString("\n\n")

	tab, ok := m.currentTab()
	if !ok {
		s.WriteString("No menu options for this role. Press r to change role.\n")
		s.WriteString(m.renderListHelp())
		return s.String()
	}

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch tab {
	case EntityContacts:
		s.WriteString(m.renderContactsTable())
	case EntityLeads:
		s.WriteString(m.renderLeadsTable())
	case EntityCampaigns:
		s.WriteString(m.renderCampaignsTable())
	case EntitySummary:
		s.WriteString(m.renderSummary())
	}
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	current, _ := m.currentTab()
	var rendered []string
	for _, tab := range m.visibleTabs() {
		if tab == current {
			rendered = append(rendered, tabActiveStyle.Render(tab.String()))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.status != "" {
		return statusStyle.Render(m.status) + "\n"
	}
	return ""
}

func (m Model) newTable(columns []table.Column, rows []table.Row) string {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 3)),
	)
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t.View()
}

func (m Model) renderContactsTable() string {
	columns := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Name", Width: 24},
		{Title: "Email", Width: 28},
		{Title: "Company", Width: 16},
		{Title: "Stage", Width: 12},
	}

	var rows []table.Row
	for _, c := range m.svc.ListContacts(m.ctx) {
		rows = append(rows, table.Row{
			strconv.Itoa(c.ID),
			c.Name,
			c.Email,
			c.Company,
			string(c.SalesStage),
		})
	}
	return m.newTable(columns, rows)
}

func (m Model) renderLeadsTable() string {
	columns := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Name", Width: 24},
		{Title: "Email", Width: 28},
		{Title: "Source", Width: 14},
		{Title: "Score", Width: 6},
	}

	var rows []table.Row
	for _, l := range m.svc.ListLeads(m.ctx, crm.LeadFilter{}) {
		rows = append(rows, table.Row{
			strconv.Itoa(l.ID),
			l.Name,
			l.Email,
			l.Source,
			strconv.Itoa(l.Score),
		})
	}
	return m.newTable(columns, rows)
}

func (m Model) renderCampaignsTable() string {
	columns := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Title", Width: 28},
		{Title: "Target", Width: 14},
		{Title: "Sent", Width: 6},
	}

	var rows []table.Row
	for _, c := range m.svc.ListCampaigns(m.ctx) {
		rows = append(rows, table.Row{
			strconv.Itoa(c.ID),
			c.Title,
			c.TargetStage,
			strconv.Itoa(len(c.SentTo)),
		})
	}
	return m.newTable(columns, rows)
}

func (m Model) renderSummary() string {
	return viz.RenderDashboard(viz.GenerateDashboardStats(m.ctx, m.svc, time.Now()))
}

// listIDs returns the ids shown in the current table, in row order.
func (m Model) listIDs() []int {
	tab, _ := m.currentTab()
	var ids []int
	switch tab {
	case EntityContacts:
		for _, c := range m.svc.ListContacts(m.ctx) {
			ids = append(ids, c.ID)
		}
	case EntityLeads:
		for _, l := range m.svc.ListLeads(m.ctx, crm.LeadFilter{}) {
			ids = append(ids, l.ID)
		}
	case EntityCampaigns:
		for _, c := range m.svc.ListCampaigns(m.ctx) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (m Model) getSelectedID() (int, bool) {
	ids := m.listIDs()
	if m.selectedRow < len(ids) {
		return ids[m.selectedRow], true
	}
	return 0, false
}

func (m Model) renderListHelp() string {
	help := []string{"↑/↓: Navigate", "Tab: Switch tabs"}
	tab, ok := m.currentTab()
	if ok {
		switch tab {
		case EntityContacts:
			help = append(help, "Enter: Details")
			if m.svc.Permitted(crm.OpCreateContact) {
				help = append(help, "n: New")
			}
			if m.svc.Permitted(crm.OpUpdateStage) {
				help = append(help, ">: Advance stage")
			}
			if m.svc.Permitted(crm.OpAddTask) {
				help = append(help, "t: Add task")
			}
			if m.svc.Permitted(crm.OpDeleteContact) {
				help = append(help, "d: Delete")
			}
		case EntityLeads:
			if m.svc.Permitted(crm.OpCreateLead) {
				help = append(help, "n: New")
			}
			if m.svc.Permitted(crm.OpConvertLead) {
				help = append(help, "c: Convert")
			}
			if m.svc.Permitted(crm.OpDeleteLead) {
				help = append(help, "d: Delete")
			}
		case EntityCampaigns:
			if m.svc.Permitted(crm.OpCreateCampaign) {
				help = append(help, "n: New")
			}
			if m.svc.Permitted(crm.OpSendCampaign) {
				help = append(help, "s: Send")
			}
			if m.svc.Permitted(crm.OpDeleteCampaign) {
				help = append(help, "d: Delete")
			}
		}
		help = append(help, "g: Graph")
	}
	help = append(help, "r: Role", "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab, ok := m.currentTab()

	switch msg.String() {
	case "r":
		m.viewMode = ViewRolePicker
		return m, nil
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
		return m, nil
	case "down", "j":
		if m.selectedRow < len(m.listIDs())-1 {
			m.selectedRow++
		}
		return m, nil
	case "tab":
		if ok {
			m.tab = (m.tab + 1) % len(m.visibleTabs())
			m.selectedRow = 0
			m.status, m.err = "", nil
		}
		return m, nil
	}
	if !ok {
		return m, nil
	}

	switch msg.String() {
	case "g":
		return m.openGraph(), nil
	case "n":
		switch tab {
		case EntityContacts:
			return m.openForm(formContact), nil
		case EntityLeads:
			return m.openForm(formLead), nil
		case EntityCampaigns:
			return m.openForm(formCampaign), nil
		}
	}

	id, selected := m.getSelectedID()
	if !selected {
		return m, nil
	}

	switch tab {
	case EntityContacts:
		switch msg.String() {
		case "enter":
			m.selectedID = id
			m.viewMode = ViewDetail
			m.status, m.err = "", nil
		case ">":
			m.advanceStage(id)
		case "t":
			m.selectedID = id
			return m.openForm(formTask), nil
		case "d":
			m.selectedID = id
			m.viewMode = ViewConfirmDelete
		}
	case EntityLeads:
		switch msg.String() {
		case "c":
			m.selectedID = id
			return m.openForm(formConvert), nil
		case "d":
			m.selectedID = id
			m.viewMode = ViewConfirmDelete
		}
	case EntityCampaigns:
		switch msg.String() {
		case "s":
			res, err := m.svc.SendCampaign(m.ctx, id)
			m.report(fmt.Sprintf("Campaign sent to %d new contact(s)", res.RecipientsAdded), err)
		case "d":
			m.selectedID = id
			m.viewMode = ViewConfirmDelete
		}
	}

	return m, nil
}

// advanceStage moves a contact one step down the funnel.
func (m *Model) advanceStage(id int) {
	c, err := m.svc.GetContact(m.ctx, id)
	if err != nil {
		m.report("", err)
		return
	}
	next := c.SalesStage.Index() + 1
	if next <= 0 || next >= len(models.Stages) {
		m.report("", fmt.Errorf("%s cannot advance past %s", c.Name, c.SalesStage))
		return
	}
	updated, err := m.svc.UpdateStage(m.ctx, id, string(models.Stages[next]))
	if err != nil {
		m.report("", err)
		return
	}
	m.report(fmt.Sprintf("%s moved to %s", updated.Name, updated.SalesStage), nil)
}
