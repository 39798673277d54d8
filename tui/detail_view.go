package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/funnel/crm"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sectionStyle = lipgloss.NewStyle().Bold(true)
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("CONTACT"))
	s.WriteString("\n\n")
	s.WriteString(m.renderContactDetail())
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderContactDetail() string {
	contact, err := m.svc.GetContact(m.ctx, m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	var s strings.Builder

	s.WriteString(m.renderField("Name", contact.Name))
	s.WriteString(m.renderField("Email", contact.Email))
	s.WriteString(m.renderField("Phone", contact.Phone))
	s.WriteString(m.renderField("Company", contact.Company))
	s.WriteString(m.renderField("Stage", string(contact.SalesStage)))
	s.WriteString(m.renderField("Notes", contact.Notes))

	history := make([]string, len(contact.StageHistory))
	for i, st := range contact.StageHistory {
		history[i] = string(st)
	}
	s.WriteString(m.renderField("History", strings.Join(history, " → ")))

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("TASKS"))
	s.WriteString("\n")
	if len(contact.Tasks) == 0 {
		s.WriteString("  (none)\n")
	}
	for _, t := range contact.Tasks {
		mark := " "
		if t.Completed {
			mark = "✓"
		}
		fmt.Fprintf(&s, "  [%s] #%d %s (due %s)\n", mark, t.ID, t.Title, t.DueDate.Format("2006-01-02"))
	}

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("ACTIVITIES"))
	s.WriteString("\n")
	if len(contact.Activities) == 0 {
		s.WriteString("  (none)\n")
	}
	for _, a := range contact.Activities {
		fmt.Fprintf(&s, "  • [%s] %s: %s\n", a.CreatedAt.Format("2006-01-02"), a.Type, a.Description)
	}

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{"Esc: Back"}
	if m.svc.Permitted(crm.OpUpdateStage) {
		help = append(help, ">: Advance stage")
	}
	if m.svc.Permitted(crm.OpAddTask) {
		help = append(help, "t: Add task")
	}
	if m.svc.Permitted(crm.OpCompleteTask) {
		help = append(help, "c: Complete next task")
	}
	if m.svc.Permitted(crm.OpAddActivity) {
		help = append(help, "a: Log activity")
	}
	help = append(help, "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.status, m.err = "", nil
	case ">":
		m.advanceStage(m.selectedID)
	case "t":
		return m.openForm(formTask), nil
	case "a":
		return m.openForm(formActivity), nil
	case "c":
		m.completeNextTask()
	}
	return m, nil
}

// completeNextTask completes the earliest pending task of the selected contact.
func (m *Model) completeNextTask() {
	pending, err := m.svc.PendingTasks(m.ctx, m.selectedID)
	if err != nil {
		m.report("", err)
		return
	}
	if len(pending) == 0 {
		m.report("No pending tasks", nil)
		return
	}
	task, err := m.svc.CompleteTask(m.ctx, m.selectedID, pending[0].ID)
	m.report(fmt.Sprintf("Completed task #%d: %s", task.ID, task.Title), err)
}
