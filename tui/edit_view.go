package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

type formKind int

const (
	formContact formKind = iota
	formLead
	formCampaign
	formConvert
	formTask
	formActivity
)

type formField struct {
	placeholder string
	limit       int
}

type formLayout struct {
	title  string
	op     string
	fields []formField
}

var forms = map[formKind]formLayout{
	formContact: {"NEW CONTACT", crm.OpCreateContact, []formField{
		{"Name", 100}, {"Email", 100}, {"Phone", 20}, {"Company", 100}, {"Notes", 500},
	}},
	formLead: {"NEW LEAD", crm.OpCreateLead, []formField{
		{"Name", 100}, {"Email", 100}, {"Source (Website, Referral, Event, ...)", 40},
	}},
	formCampaign: {"NEW CAMPAIGN", crm.OpCreateCampaign, []formField{
		{"Title", 100}, {"Description", 500}, {"Target stage or All", 20},
	}},
	formConvert: {"CONVERT LEAD", crm.OpConvertLead, []formField{
		{"Phone", 20}, {"Company", 100},
	}},
	formTask: {"NEW TASK", crm.OpAddTask, []formField{
		{"Title", 200}, {"Due date (YYYY-MM-DD or DD/MM/YYYY)", 10},
	}},
	formActivity: {"LOG ACTIVITY", crm.OpAddActivity, []formField{
		{"Type (call, email, meeting, note)", 20}, {"Description", 500},
	}},
}

// openForm switches to the edit view for kind when the role permits it.
func (m Model) openForm(kind formKind) Model {
	layout := forms[kind]
	if !m.svc.Permitted(layout.op) {
		m.report("", fmt.Errorf("%w: %s cannot %s", models.ErrNotPermitted, m.svc.Role(), layout.op))
		return m
	}

	inputs := make([]textinput.Model, len(layout.fields))
	for i, f := range layout.fields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = f.limit
	}
	if kind == formCampaign {
		inputs[2].SetValue(models.TargetAll)
	}

	m.form = kind
	m.formInputs = inputs
	m.formReturn = m.viewMode
	m.focusIndex = 0
	m.updateFormFocus()
	m.status, m.err = "", nil
	m.viewMode = ViewEdit
	return m
}

func (m Model) renderEditView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(forms[m.form].title))
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = m.formReturn
		m.err = nil
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		note, err := m.saveForm()
		m.report(note, err)
		if err == nil {
			m.viewMode = m.formReturn
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m Model) value(i int) string {
	return strings.TrimSpace(m.formInputs[i].Value())
}

// saveForm submits the current form and returns a status message.
func (m Model) saveForm() (string, error) {
	switch m.form {
	case formContact:
		c, err := m.svc.CreateContact(m.ctx, models.ContactInput{
			Name:    m.value(0),
			Email:   m.value(1),
			Phone:   m.value(2),
			Company: m.value(3),
			Notes:   m.value(4),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Contact created: %s (ID: %d)", c.Name, c.ID), nil
	case formLead:
		l, err := m.svc.CreateLead(m.ctx, models.LeadInput{
			Name:   m.value(0),
			Email:  m.value(1),
			Source: m.value(2),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Lead created: %s (score %d)", l.Name, l.Score), nil
	case formCampaign:
		c, err := m.svc.CreateCampaign(m.ctx, models.CampaignInput{
			Title:       m.value(0),
			Description: m.value(1),
			TargetStage: m.value(2),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Campaign created: %s (target %s)", c.Title, c.TargetStage), nil
	case formConvert:
		c, err := m.svc.ConvertLead(m.ctx, m.selectedID, crm.ConvertInput{
			Phone:   m.value(0),
			Company: m.value(1),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Lead converted into contact %s (ID: %d)", c.Name, c.ID), nil
	case formTask:
		t, err := m.svc.AddTask(m.ctx, m.selectedID, models.TaskInput{
			Title:   m.value(0),
			DueDate: m.value(1),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Task #%d added: %s", t.ID, t.Title), nil
	case formActivity:
		a, err := m.svc.AddActivity(m.ctx, m.selectedID, models.ActivityInput{
			Type:        m.value(0),
			Description: m.value(1),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Logged %s", a.Type), nil
	}
	return "", fmt.Errorf("unknown form")
}
