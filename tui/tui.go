// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Role picker, role-filtered tabs over contacts, leads and campaigns, and a summary dashboard
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewRolePicker ViewMode = iota
	ViewList
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
)

// EntityType represents the type of entity being viewed
type EntityType int

const (
	EntityContacts EntityType = iota
	EntityLeads
	EntityCampaigns
	EntitySummary
)

func (e EntityType) String() string {
	switch e {
	case EntityContacts:
		return "Contacts"
	case EntityLeads:
		return "Leads"
	case EntityCampaigns:
		return "Campaigns"
	case EntitySummary:
		return "Summary"
	}
	return ""
}

// Model is the main bubbletea model
type Model struct {
	ctx      context.Context
	svc      *crm.Service
	viewMode ViewMode

	// Role picker state
	roleCursor int

	// List view state
	tab         int
	selectedRow int

	// Detail, edit and delete target
	selectedID int

	// Edit view state
	form       formKind
	formInputs []textinput.Model
	focusIndex int
	formReturn ViewMode

	// Graph view state
	graphDOT string

	// UI state
	status string
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model starting at the role picker.
func NewModel(ctx context.Context, svc *crm.Service) Model {
	m := Model{
		ctx:      ctx,
		svc:      svc,
		viewMode: ViewRolePicker,
		width:    80,
		height:   24,
	}
	for i, r := range models.Roles {
		if r == svc.Role() {
			m.roleCursor = i
		}
	}
	return m
}

// Run starts the full-screen program.
func Run(ctx context.Context, svc *crm.Service) error {
	p := tea.NewProgram(NewModel(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewRolePicker:
		return m.renderRolePicker()
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// Letters are form input while editing.
	if msg.String() == "q" && m.viewMode != ViewEdit {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewRolePicker:
		return m.handleRoleKeys(msg)
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

// report records the outcome of an action for the status line.
func (m *Model) report(ok string, err error) {
	m.err = err
	if err != nil {
		m.status = ""
		return
	}
	m.status = ok
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)
