// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements add_contact, find_contacts, update_contact, delete_contact, update_stage, add_activity, add_task and complete_task
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const dateLayout = "2006-01-02"

type ContactHandlers struct {
	svc *crm.Service
}

func NewContactHandlers(svc *crm.Service) *ContactHandlers {
	return &ContactHandlers{svc: svc}
}

type AddContactInput struct {
	Name    string `json:"name" jsonschema:"Contact full name with at least two letters (required)"`
	Email   string `json:"email" jsonschema:"Contact email address (required)"`
	Phone   string `json:"phone" jsonschema:"Phone number with 10 or 11 digits (required)"`
	Company string `json:"company,omitempty" jsonschema:"Company the contact works for"`
	Notes   string `json:"notes,omitempty" jsonschema:"Free-form notes about the contact"`
}

type ActivityOutput struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type TaskOutput struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	DueDate     string  `json:"due_date"`
	Completed   bool    `json:"completed"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

type ContactOutput struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Phone        string           `json:"phone"`
	Company      string           `json:"company,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	SalesStage   string           `json:"sales_stage"`
	StageHistory []string         `json:"stage_history"`
	Activities   []ActivityOutput `json:"activities"`
	Tasks        []TaskOutput     `json:"tasks"`
	Documents    []int            `json:"documents"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

func (h *ContactHandlers) AddContact(ctx context.Context, request *mcp.CallToolRequest, input AddContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	contact, err := h.svc.CreateContact(ctx, models.ContactInput{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Company: input.Company,
		Notes:   input.Notes,
	})
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to create contact: %w", err)
	}
	return nil, contactToOutput(contact), nil
}

type FindContactsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Text matched against name, email and company; empty lists every contact"`
	Stage string `json:"stage,omitempty" jsonschema:"Only return contacts in this sales stage"`
}

type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
}

func (h *ContactHandlers) FindContacts(ctx context.Context, request *mcp.CallToolRequest, input FindContactsInput) (*mcp.CallToolResult, FindContactsOutput, error) {
	var stage models.Stage
	if input.Stage != "" {
		st, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, FindContactsOutput{}, err
		}
		stage = st
	}

	out := FindContactsOutput{Contacts: []ContactOutput{}}
	for _, c := range h.svc.FindContacts(ctx, input.Query) {
		if stage != "" && !sameStage(c.SalesStage, stage) {
			continue
		}
		out.Contacts = append(out.Contacts, contactToOutput(c))
	}
	return nil, out, nil
}

type UpdateContactInput struct {
	ID      int     `json:"id" jsonschema:"Contact ID (required)"`
	Name    *string `json:"name,omitempty" jsonschema:"New name"`
	Email   *string `json:"email,omitempty" jsonschema:"New email address"`
	Phone   *string `json:"phone,omitempty" jsonschema:"New phone number"`
	Company *string `json:"company,omitempty" jsonschema:"New company"`
	Notes   *string `json:"notes,omitempty" jsonschema:"New notes"`
}

func (h *ContactHandlers) UpdateContact(ctx context.Context, request *mcp.CallToolRequest, input UpdateContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	contact, err := h.svc.UpdateContact(ctx, input.ID, crm.ContactPatch{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Company: input.Company,
		Notes:   input.Notes,
	})
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to update contact: %w", err)
	}
	return nil, contactToOutput(contact), nil
}

type DeleteInput struct {
	ID int `json:"id" jsonschema:"ID of the record to delete (required)"`
}

type DeleteOutput struct {
	ID      int  `json:"id"`
	Deleted bool `json:"deleted"`
}

func (h *ContactHandlers) DeleteContact(ctx context.Context, request *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := h.svc.DeleteContact(ctx, input.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete contact: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true}, nil
}

type UpdateStageInput struct {
	ContactID int    `json:"contact_id" jsonschema:"Contact ID (required)"`
	Stage     string `json:"stage" jsonschema:"Target stage: Lead, Prospect, Proposal, Negotiation or Closed-Won (required)"`
}

func (h *ContactHandlers) UpdateStage(ctx context.Context, request *mcp.CallToolRequest, input UpdateStageInput) (*mcp.CallToolResult, ContactOutput, error) {
	contact, err := h.svc.UpdateStage(ctx, input.ContactID, input.Stage)
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to update stage: %w", err)
	}
	return nil, contactToOutput(contact), nil
}

type AddActivityInput struct {
	ContactID   int    `json:"contact_id" jsonschema:"Contact ID (required)"`
	Type        string `json:"type" jsonschema:"Activity type: call, email, meeting or note (required)"`
	Description string `json:"description" jsonschema:"What happened (required)"`
}

func (h *ContactHandlers) AddActivity(ctx context.Context, request *mcp.CallToolRequest, input AddActivityInput) (*mcp.CallToolResult, ActivityOutput, error) {
	activity, err := h.svc.AddActivity(ctx, input.ContactID, models.ActivityInput{
		Type:        input.Type,
		Description: input.Description,
	})
	if err != nil {
		return nil, ActivityOutput{}, fmt.Errorf("failed to add activity: %w", err)
	}
	return nil, activityToOutput(activity), nil
}

type AddTaskInput struct {
	ContactID int    `json:"contact_id" jsonschema:"Contact ID (required)"`
	Title     string `json:"title" jsonschema:"Task title (required)"`
	DueDate   string `json:"due_date" jsonschema:"Due date as YYYY-MM-DD or DD/MM/YYYY (required)"`
}

func (h *ContactHandlers) AddTask(ctx context.Context, request *mcp.CallToolRequest, input AddTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	task, err := h.svc.AddTask(ctx, input.ContactID, models.TaskInput{
		Title:   input.Title,
		DueDate: input.DueDate,
	})
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to add task: %w", err)
	}
	return nil, taskToOutput(task), nil
}

type CompleteTaskInput struct {
	ContactID int `json:"contact_id" jsonschema:"Contact ID (required)"`
	TaskID    int `json:"task_id" jsonschema:"Task ID within the contact (required)"`
}

func (h *ContactHandlers) CompleteTask(ctx context.Context, request *mcp.CallToolRequest, input CompleteTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	task, err := h.svc.CompleteTask(ctx, input.ContactID, input.TaskID)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to complete task: %w", err)
	}
	return nil, taskToOutput(task), nil
}

func sameStage(stored, want models.Stage) bool {
	st, err := models.ParseStage(string(stored))
	return err == nil && st == want
}

func contactToOutput(c *models.Contact) ContactOutput {
	out := ContactOutput{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		Company:      c.Company,
		Notes:        c.Notes,
		SalesStage:   string(c.SalesStage),
		StageHistory: make([]string, 0, len(c.StageHistory)),
		Activities:   make([]ActivityOutput, 0, len(c.Activities)),
		Tasks:        make([]TaskOutput, 0, len(c.Tasks)),
		Documents:    append([]int{}, c.Documents...),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    c.UpdatedAt.Format(time.RFC3339),
	}
	for _, st := range c.StageHistory {
		out.StageHistory = append(out.StageHistory, string(st))
	}
	for _, a := range c.Activities {
		out.Activities = append(out.Activities, activityToOutput(a))
	}
	for _, t := range c.Tasks {
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	return out
}

func activityToOutput(a models.Activity) ActivityOutput {
	return ActivityOutput{
		Type:        a.Type,
		Description: a.Description,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func taskToOutput(t models.Task) TaskOutput {
	out := TaskOutput{
		ID:        t.ID,
		Title:     t.Title,
		DueDate:   t.DueDate.Format(dateLayout),
		Completed: t.Completed,
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format(time.RFC3339)
		out.CompletedAt = &s
	}
	return out
}
