// ABOUTME: Tests for pipeline MCP tool handlers
// ABOUTME: Calls handlers directly against a service backed by a temporary JSON snapshot
package handlers

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/db"
	"github.com/harperreed/funnel/models"
)

func setupTestService(t *testing.T) *crm.Service {
	t.Helper()
	backend := db.NewJSONFileBackend(filepath.Join(t.TempDir(), "crm.json"))
	svc, err := crm.New(context.Background(), backend, crm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func addContact(t *testing.T, h *ContactHandlers, name, email string) ContactOutput {
	t.Helper()
	_, out, err := h.AddContact(context.Background(), nil, AddContactInput{Name: name, Email: email, Phone: "11987654321"})
	require.NoError(t, err)
	return out
}

func TestAddContactHandler(t *testing.T) {
	h := NewContactHandlers(setupTestService(t))

	_, out, err := h.AddContact(context.Background(), nil, AddContactInput{
		Name:    "  Ana   Souza ",
		Email:   "ANA@Example.com",
		Phone:   "(11) 98765-4321",
		Company: "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.ID)
	assert.Equal(t, "Ana Souza", out.Name)
	assert.Equal(t, "ana@example.com", out.Email)
	assert.Equal(t, "Prospect", out.SalesStage)
	assert.Equal(t, []string{"Prospect"}, out.StageHistory)
	assert.NotEmpty(t, out.CreatedAt)
}

func TestAddContactHandlerRejectsInvalidInput(t *testing.T) {
	h := NewContactHandlers(setupTestService(t))

	_, _, err := h.AddContact(context.Background(), nil, AddContactInput{Name: "Ana", Email: "not-an-email", Phone: "11987654321"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestFindContactsHandler(t *testing.T) {
	svc := setupTestService(t)
	h := NewContactHandlers(svc)
	ana := addContact(t, h, "Ana Souza", "ana@example.com")
	addContact(t, h, "Bruno Lima", "bruno@example.com")

	_, _, err := h.UpdateStage(context.Background(), nil, UpdateStageInput{ContactID: ana.ID, Stage: "proposta"})
	require.NoError(t, err)

	_, all, err := h.FindContacts(context.Background(), nil, FindContactsInput{})
	require.NoError(t, err)
	assert.Len(t, all.Contacts, 2)

	_, byName, err := h.FindContacts(context.Background(), nil, FindContactsInput{Query: "bruno"})
	require.NoError(t, err)
	require.Len(t, byName.Contacts, 1)
	assert.Equal(t, "Bruno Lima", byName.Contacts[0].Name)

	_, byStage, err := h.FindContacts(context.Background(), nil, FindContactsInput{Stage: "Proposal"})
	require.NoError(t, err)
	require.Len(t, byStage.Contacts, 1)
	assert.Equal(t, ana.ID, byStage.Contacts[0].ID)

	_, _, err = h.FindContacts(context.Background(), nil, FindContactsInput{Stage: "Lost"})
	assert.ErrorIs(t, err, models.ErrInvalidStage)
}

func TestUpdateAndDeleteContactHandlers(t *testing.T) {
	h := NewContactHandlers(setupTestService(t))
	ana := addContact(t, h, "Ana Souza", "ana@example.com")

	company := "Globex"
	_, out, err := h.UpdateContact(context.Background(), nil, UpdateContactInput{ID: ana.ID, Company: &company})
	require.NoError(t, err)
	assert.Equal(t, "Globex", out.Company)
	assert.Equal(t, "Ana Souza", out.Name)

	_, del, err := h.DeleteContact(context.Background(), nil, DeleteInput{ID: ana.ID})
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, _, err = h.DeleteContact(context.Background(), nil, DeleteInput{ID: ana.ID})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStageActivityAndTaskHandlers(t *testing.T) {
	h := NewContactHandlers(setupTestService(t))
	ana := addContact(t, h, "Ana Souza", "ana@example.com")
	ctx := context.Background()

	_, staged, err := h.UpdateStage(ctx, nil, UpdateStageInput{ContactID: ana.ID, Stage: "Negociação"})
	require.NoError(t, err)
	assert.Equal(t, "Negotiation", staged.SalesStage)
	require.Len(t, staged.Activities, 1)
	assert.Equal(t, "stage_change", staged.Activities[0].Type)

	_, _, err = h.UpdateStage(ctx, nil, UpdateStageInput{ContactID: ana.ID, Stage: "Lost"})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, act, err := h.AddActivity(ctx, nil, AddActivityInput{ContactID: ana.ID, Type: "Reunião", Description: "Kickoff"})
	require.NoError(t, err)
	assert.Equal(t, "meeting", act.Type)

	_, task, err := h.AddTask(ctx, nil, AddTaskInput{ContactID: ana.ID, Title: "Send contract", DueDate: "2026-04-01"})
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01", task.DueDate)
	assert.False(t, task.Completed)

	_, dmy, err := h.AddTask(ctx, nil, AddTaskInput{ContactID: ana.ID, Title: "Day first", DueDate: "15/04/2026"})
	require.NoError(t, err)
	assert.Equal(t, "2026-04-15", dmy.DueDate)

	_, _, err = h.AddTask(ctx, nil, AddTaskInput{ContactID: ana.ID, Title: "Bad date", DueDate: "2026-13-40"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, done, err := h.CompleteTask(ctx, nil, CompleteTaskInput{ContactID: ana.ID, TaskID: task.ID})
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.NotNil(t, done.CompletedAt)

	_, _, err = h.CompleteTask(ctx, nil, CompleteTaskInput{ContactID: ana.ID, TaskID: task.ID})
	assert.ErrorIs(t, err, models.ErrAlreadyCompleted)
}

func TestLeadHandlers(t *testing.T) {
	h := NewLeadHandlers(setupTestService(t))
	ctx := context.Background()

	_, lead, err := h.AddLead(ctx, nil, AddLeadInput{Name: "Caio Reis", Email: "caio@example.com", Source: "Indicação"})
	require.NoError(t, err)
	assert.Equal(t, "Referral", lead.Source)
	assert.Equal(t, 50, lead.Score)

	_, other, err := h.AddLead(ctx, nil, AddLeadInput{Name: "Duda Alves", Email: "duda@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Website", other.Source)

	_, contact, err := h.ConvertLead(ctx, nil, ConvertLeadInput{LeadID: lead.ID, Phone: "11987654321", Company: "Initech"})
	require.NoError(t, err)
	assert.Equal(t, "Caio Reis", contact.Name)
	assert.Equal(t, "Initech", contact.Company)
	assert.Contains(t, contact.Notes, "Converted from lead")

	_, _, err = h.ConvertLead(ctx, nil, ConvertLeadInput{LeadID: lead.ID, Phone: "11987654321"})
	assert.ErrorIs(t, err, models.ErrAlreadyConverted)

	_, active, err := h.ListLeads(ctx, nil, ListLeadsInput{})
	require.NoError(t, err)
	require.Len(t, active.Leads, 1)
	assert.Equal(t, other.ID, active.Leads[0].ID)

	_, all, err := h.ListLeads(ctx, nil, ListLeadsInput{IncludeConverted: true})
	require.NoError(t, err)
	assert.Len(t, all.Leads, 2)
}

func TestCampaignHandlers(t *testing.T) {
	svc := setupTestService(t)
	contacts := NewContactHandlers(svc)
	h := NewCampaignHandlers(svc)
	ctx := context.Background()
	ana := addContact(t, contacts, "Ana Souza", "ana@example.com")

	_, camp, err := h.CreateCampaign(ctx, nil, CreateCampaignInput{Title: "Spring", Description: "Promo", TargetStage: "prospecto"})
	require.NoError(t, err)
	assert.Equal(t, "Prospect", camp.TargetStage)
	assert.Empty(t, camp.SentTo)

	_, sent, err := h.SendCampaign(ctx, nil, SendCampaignInput{CampaignID: camp.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, sent.RecipientsAdded)
	assert.Equal(t, []int{ana.ID}, sent.Recipients)

	_, again, err := h.SendCampaign(ctx, nil, SendCampaignInput{CampaignID: camp.ID})
	require.NoError(t, err)
	assert.Zero(t, again.RecipientsAdded)
	assert.NotNil(t, again.Recipients)

	_, list, err := h.ListCampaigns(ctx, nil, ListCampaignsInput{})
	require.NoError(t, err)
	require.Len(t, list.Campaigns, 1)
	assert.Equal(t, []int{ana.ID}, list.Campaigns[0].SentTo)

	_, doc, err := h.AddDocument(ctx, nil, AddDocumentInput{Title: "Proposal v1", FilePath: "/docs/p1.pdf", Type: "proposta", ContactID: &ana.ID})
	require.NoError(t, err)
	assert.Equal(t, "proposal", doc.Type)
	require.NotNil(t, doc.ContactID)
	assert.Equal(t, ana.ID, *doc.ContactID)

	missing := 99
	_, _, err = h.AddDocument(ctx, nil, AddDocumentInput{Title: "Orphan", FilePath: "/docs/x.pdf", ContactID: &missing})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSummaryReportHandler(t *testing.T) {
	svc := setupTestService(t)
	addContact(t, NewContactHandlers(svc), "Ana Souza", "ana@example.com")
	h := NewReportHandlers(svc)

	_, out, err := h.SummaryReport(context.Background(), nil, SummaryReportInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.Contacts)
	assert.Equal(t, []crm.StageCount{{Stage: "Prospect", Count: 1}}, out.Summary.ByStage)
	assert.Nil(t, out.Stages)

	_, withStages, err := h.SummaryReport(context.Background(), nil, SummaryReportInput{IncludeStages: true})
	require.NoError(t, err)
	require.Len(t, withStages.Stages, 1)
	assert.Equal(t, "Ana Souza", withStages.Stages[0].Contacts[0].Name)
}

func TestHandlersRespectRole(t *testing.T) {
	svc := setupTestService(t)
	_, err := svc.ChangeRole(context.Background(), "marketing")
	require.NoError(t, err)

	_, _, err = NewContactHandlers(svc).AddContact(context.Background(), nil, AddContactInput{Name: "Ana Souza", Email: "ana@example.com", Phone: "11987654321"})
	assert.ErrorIs(t, err, models.ErrNotPermitted)
}

func TestReadResource(t *testing.T) {
	svc := setupTestService(t)
	ana := addContact(t, NewContactHandlers(svc), "Ana Souza", "ana@example.com")
	h := NewResourceHandlers(svc)
	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read("crm://contacts")
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	assert.Contains(t, res.Contents[0].Text, "ana@example.com")

	res, err = read("crm://contacts/1")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"id": 1`)
	assert.Equal(t, 1, ana.ID)

	res, err = read("crm://pipeline")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"conversion"`)

	_, err = read("crm://contacts/42")
	assert.Error(t, err)
	_, err = read("http://contacts")
	assert.Error(t, err)
	_, err = read("crm://deals")
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	contacts := NewContactHandlers(svc)
	ana := addContact(t, contacts, "Ana Souza", "ana@example.com")
	_, _, err := contacts.AddTask(ctx, nil, AddTaskInput{ContactID: ana.ID, Title: "Send contract", DueDate: "2026-04-01"})
	require.NoError(t, err)
	h := NewPromptHandlers(svc)
	get := func(name string, args map[string]string) (*mcp.GetPromptResult, error) {
		return h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: name, Arguments: args}})
	}

	res, err := get("contact-summary", map[string]string{"contact_id": "1"})
	require.NoError(t, err)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Name: Ana Souza")
	assert.Contains(t, text, "Send contract (due 2026-04-01)")

	res, err = get("follow-up-suggestions", nil)
	require.NoError(t, err)
	assert.True(t, strings.Contains(res.Messages[0].Content.(*mcp.TextContent).Text, "Ana Souza (Prospect): Send contract"))

	_, err = get("contact-summary", nil)
	assert.Error(t, err)
	_, err = get("nope", nil)
	assert.Error(t, err)
}

func TestGenerateGraphHandler(t *testing.T) {
	svc := setupTestService(t)
	contacts := NewContactHandlers(svc)
	ana := addContact(t, contacts, "Ana Souza", "ana@example.com")
	_, _, err := contacts.UpdateStage(context.Background(), nil, UpdateStageInput{ContactID: ana.ID, Stage: "Proposal"})
	require.NoError(t, err)
	h := NewVizHandlers(svc)

	_, out, err := h.GenerateGraph(context.Background(), nil, GenerateGraphInput{Type: "stages"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.EdgeCount)
	assert.Contains(t, out.Source, "Proposal")

	_, dash, err := h.GenerateGraph(context.Background(), nil, GenerateGraphInput{Type: "dashboard"})
	require.NoError(t, err)
	assert.Contains(t, dash.Source, "FUNNEL DASHBOARD")

	_, _, err = h.GenerateGraph(context.Background(), nil, GenerateGraphInput{Type: "network"})
	assert.Error(t, err)
}
