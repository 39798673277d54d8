// ABOUTME: Lead MCP tool handlers
// ABOUTME: Implements add_lead, list_leads and convert_lead tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type LeadHandlers struct {
	svc *crm.Service
}

func NewLeadHandlers(svc *crm.Service) *LeadHandlers {
	return &LeadHandlers{svc: svc}
}

type AddLeadInput struct {
	Name   string `json:"name" jsonschema:"Lead full name (required)"`
	Email  string `json:"email" jsonschema:"Lead email address (required)"`
	Source string `json:"source,omitempty" jsonschema:"Where the lead came from: Website, Referral, Event, Social Media, Email or Other. Defaults to Website"`
}

type LeadOutput struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Source    string `json:"source"`
	Score     int    `json:"score"`
	Converted bool   `json:"converted"`
	CreatedAt string `json:"created_at"`
}

func (h *LeadHandlers) AddLead(ctx context.Context, request *mcp.CallToolRequest, input AddLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	lead, err := h.svc.CreateLead(ctx, models.LeadInput{
		Name:   input.Name,
		Email:  input.Email,
		Source: input.Source,
	})
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to create lead: %w", err)
	}
	return nil, leadToOutput(lead), nil
}

type ListLeadsInput struct {
	IncludeConverted bool `json:"include_converted,omitempty" jsonschema:"Also return leads that were already converted into contacts"`
}

type ListLeadsOutput struct {
	Leads []LeadOutput `json:"leads"`
}

func (h *LeadHandlers) ListLeads(ctx context.Context, request *mcp.CallToolRequest, input ListLeadsInput) (*mcp.CallToolResult, ListLeadsOutput, error) {
	out := ListLeadsOutput{Leads: []LeadOutput{}}
	for _, l := range h.svc.ListLeads(ctx, crm.LeadFilter{IncludeConverted: input.IncludeConverted}) {
		out.Leads = append(out.Leads, leadToOutput(l))
	}
	return nil, out, nil
}

type ConvertLeadInput struct {
	LeadID  int    `json:"lead_id" jsonschema:"Lead ID (required)"`
	Phone   string `json:"phone" jsonschema:"Phone number for the new contact (required)"`
	Company string `json:"company,omitempty" jsonschema:"Company for the new contact"`
}

func (h *LeadHandlers) ConvertLead(ctx context.Context, request *mcp.CallToolRequest, input ConvertLeadInput) (*mcp.CallToolResult, ContactOutput, error) {
	contact, err := h.svc.ConvertLead(ctx, input.LeadID, crm.ConvertInput{
		Phone:   input.Phone,
		Company: input.Company,
	})
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to convert lead: %w", err)
	}
	return nil, contactToOutput(contact), nil
}

func leadToOutput(l *models.Lead) LeadOutput {
	return LeadOutput{
		ID:        l.ID,
		Name:      l.Name,
		Email:     l.Email,
		Source:    l.Source,
		Score:     l.Score,
		Converted: l.Converted,
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
	}
}
