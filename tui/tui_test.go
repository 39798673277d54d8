package tui

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/db"
	"github.com/harperreed/funnel/models"
)

func setupTestModel(t *testing.T) (Model, *crm.Service) {
	t.Helper()
	backend := db.NewJSONFileBackend(filepath.Join(t.TempDir(), "crm.json"))
	svc, err := crm.New(context.Background(), backend, crm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return NewModel(context.Background(), svc), svc
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func addContact(t *testing.T, svc *crm.Service, name, email string) *models.Contact {
	t.Helper()
	c, err := svc.CreateContact(context.Background(), models.ContactInput{Name: name, Email: email, Phone: "11987654321"})
	require.NoError(t, err)
	return c
}

func TestNewModelStartsAtRolePicker(t *testing.T) {
	m, _ := setupTestModel(t)
	assert.Equal(t, ViewRolePicker, m.viewMode)
	assert.Contains(t, m.View(), "WHO ARE YOU?")
	assert.Nil(t, m.Init())
}

func TestRolePickerShapesTabs(t *testing.T) {
	m, svc := setupTestModel(t)

	m = press(t, m, down, down, enter)
	assert.Equal(t, models.RoleMarketing, svc.Role())
	assert.Equal(t, ViewList, m.viewMode)
	assert.Equal(t, []EntityType{EntityLeads, EntityCampaigns, EntitySummary}, m.visibleTabs())

	m = press(t, m, runes("r"), down, enter)
	assert.Equal(t, models.RoleClient, svc.Role())
	assert.Empty(t, m.visibleTabs())
	assert.Contains(t, m.View(), "No menu options")

	m = press(t, m, runes("n"))
	assert.Equal(t, ViewList, m.viewMode, "clients have nothing to create")
}

func TestCreateContactThroughForm(t *testing.T) {
	m, svc := setupTestModel(t)
	m = press(t, m, enter, runes("n"))
	require.Equal(t, ViewEdit, m.viewMode)

	m = press(t, m,
		runes("Ana Souza"), tab,
		runes("ana@example.com"), tab,
		runes("11987654321"), tab,
		runes("Acme"), enter,
	)
	assert.Equal(t, ViewList, m.viewMode)
	require.NoError(t, m.err)
	assert.Contains(t, m.status, "Contact created: Ana Souza")

	contacts := svc.ListContacts(context.Background())
	require.Len(t, contacts, 1)
	assert.Equal(t, "Acme", contacts[0].Company)
	assert.Contains(t, m.View(), "ana@example.com")
}

func TestInvalidFormStaysOpen(t *testing.T) {
	m, svc := setupTestModel(t)
	m = press(t, m, enter, runes("n"), runes("X"), enter)

	assert.Equal(t, ViewEdit, m.viewMode)
	assert.ErrorIs(t, m.err, models.ErrValidation)
	assert.Empty(t, svc.ListContacts(context.Background()))

	m = press(t, m, esc)
	assert.Equal(t, ViewList, m.viewMode)
}

func TestAdvanceStageAndCompleteTask(t *testing.T) {
	m, svc := setupTestModel(t)
	c := addContact(t, svc, "Ana Souza", "ana@example.com")
	_, err := svc.AddTask(context.Background(), c.ID, models.TaskInput{Title: "Call back", DueDate: "2026-04-01"})
	require.NoError(t, err)

	m = press(t, m, enter, runes(">"))
	require.NoError(t, m.err)
	assert.Contains(t, m.status, "moved to Proposal")

	m = press(t, m, enter)
	require.Equal(t, ViewDetail, m.viewMode)
	assert.Contains(t, m.View(), "Call back")

	m = press(t, m, runes("c"))
	require.NoError(t, m.err)
	assert.Contains(t, m.status, "Completed task #1")

	pending, err := svc.PendingTasks(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	m = press(t, m, runes("c"))
	assert.Equal(t, "No pending tasks", m.status)
}

func TestConvertLeadAndSendCampaign(t *testing.T) {
	m, svc := setupTestModel(t)
	ctx := context.Background()
	_, err := svc.CreateLead(ctx, models.LeadInput{Name: "Caio Reis", Email: "caio@example.com", Source: "Referral"})
	require.NoError(t, err)
	_, err = svc.CreateCampaign(ctx, models.CampaignInput{Title: "Spring", Description: "Promo", TargetStage: "Prospect"})
	require.NoError(t, err)

	// Admin tabs: Contacts, Leads, Campaigns, Summary.
	m = press(t, m, enter, tab, runes("c"))
	require.Equal(t, ViewEdit, m.viewMode)
	m = press(t, m, runes("11987654321"), enter)
	require.NoError(t, m.err)
	assert.Contains(t, m.status, "converted into contact Caio Reis")
	assert.Len(t, svc.ListContacts(ctx), 1)

	m = press(t, m, tab, runes("s"))
	require.NoError(t, m.err)
	assert.Contains(t, m.status, "sent to 1 new contact(s)")

	m = press(t, m, tab)
	assert.Contains(t, m.View(), "FUNNEL DASHBOARD")
}

func TestSalesCannotOpenCampaignForms(t *testing.T) {
	m, svc := setupTestModel(t)
	m = press(t, m, down, enter)
	require.Equal(t, models.RoleSales, svc.Role())

	assert.Equal(t, []EntityType{EntityContacts, EntitySummary}, m.visibleTabs())
	assert.NotContains(t, m.renderListHelp(), "c: Convert")

	m = m.openForm(formCampaign)
	assert.ErrorIs(t, m.err, models.ErrNotPermitted)
	assert.Equal(t, ViewList, m.viewMode)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	m, svc := setupTestModel(t)
	addContact(t, svc, "Ana Souza", "ana@example.com")

	m = press(t, m, enter, runes("d"))
	require.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), "Ana Souza")

	m = press(t, m, runes("n"))
	assert.Equal(t, ViewList, m.viewMode)
	assert.Len(t, svc.ListContacts(context.Background()), 1)

	m = press(t, m, runes("d"), runes("y"))
	assert.Equal(t, ViewList, m.viewMode)
	assert.Empty(t, svc.ListContacts(context.Background()))
}

func TestGraphView(t *testing.T) {
	m, svc := setupTestModel(t)
	c := addContact(t, svc, "Ana Souza", "ana@example.com")
	_, err := svc.UpdateStage(context.Background(), c.ID, "Proposal")
	require.NoError(t, err)

	m = press(t, m, enter, runes("g"))
	require.Equal(t, ViewGraph, m.viewMode)
	assert.Contains(t, m.View(), "digraph")

	m = press(t, m, esc)
	assert.Equal(t, ViewList, m.viewMode)
}

func TestQuitKeys(t *testing.T) {
	m, _ := setupTestModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m = press(t, m, enter, runes("n"), runes("q"))
	assert.Equal(t, ViewEdit, m.viewMode)
	assert.Equal(t, "q", m.formInputs[0].Value(), "q is text while editing")
}

func TestWindowResize(t *testing.T) {
	m, _ := setupTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}
