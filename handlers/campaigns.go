// ABOUTME: Campaign and document MCP tool handlers
// ABOUTME: Implements create_campaign, list_campaigns, send_campaign and add_document tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CampaignHandlers struct {
	svc *crm.Service
}

func NewCampaignHandlers(svc *crm.Service) *CampaignHandlers {
	return &CampaignHandlers{svc: svc}
}

type CreateCampaignInput struct {
	Title       string `json:"title" jsonschema:"Campaign title (required)"`
	Description string `json:"description" jsonschema:"Campaign body or summary (required)"`
	TargetStage string `json:"target_stage" jsonschema:"Sales stage to target, or All for every contact (required)"`
}

type CampaignOutput struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetStage string `json:"target_stage"`
	SentTo      []int  `json:"sent_to"`
	CreatedAt   string `json:"created_at"`
}

func (h *CampaignHandlers) CreateCampaign(ctx context.Context, request *mcp.CallToolRequest, input CreateCampaignInput) (*mcp.CallToolResult, CampaignOutput, error) {
	c, err := h.svc.CreateCampaign(ctx, models.CampaignInput{
		Title:       input.Title,
		Description: input.Description,
		TargetStage: input.TargetStage,
	})
	if err != nil {
		return nil, CampaignOutput{}, fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil, campaignToOutput(c), nil
}

type ListCampaignsInput struct{}

type ListCampaignsOutput struct {
	Campaigns []CampaignOutput `json:"campaigns"`
}

func (h *CampaignHandlers) ListCampaigns(ctx context.Context, request *mcp.CallToolRequest, input ListCampaignsInput) (*mcp.CallToolResult, ListCampaignsOutput, error) {
	out := ListCampaignsOutput{Campaigns: []CampaignOutput{}}
	for _, c := range h.svc.ListCampaigns(ctx) {
		out.Campaigns = append(out.Campaigns, campaignToOutput(c))
	}
	return nil, out, nil
}

type SendCampaignInput struct {
	CampaignID int `json:"campaign_id" jsonschema:"Campaign ID (required)"`
}

func (h *CampaignHandlers) SendCampaign(ctx context.Context, request *mcp.CallToolRequest, input SendCampaignInput) (*mcp.CallToolResult, crm.SendResult, error) {
	res, err := h.svc.SendCampaign(ctx, input.CampaignID)
	if err != nil {
		return nil, crm.SendResult{}, fmt.Errorf("failed to send campaign: %w", err)
	}
	if res.Recipients == nil {
		res.Recipients = []int{}
	}
	return nil, res, nil
}

type AddDocumentInput struct {
	Title     string `json:"title" jsonschema:"Document title (required)"`
	FilePath  string `json:"file_path" jsonschema:"Where the document is stored (required)"`
	Type      string `json:"type,omitempty" jsonschema:"Document type: proposal, contract or other. Defaults to other"`
	ContactID *int   `json:"contact_id,omitempty" jsonschema:"Contact the document belongs to"`
}

type DocumentOutput struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	FilePath  string `json:"file_path"`
	Type      string `json:"type"`
	ContactID *int   `json:"contact_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (h *CampaignHandlers) AddDocument(ctx context.Context, request *mcp.CallToolRequest, input AddDocumentInput) (*mcp.CallToolResult, DocumentOutput, error) {
	d, err := h.svc.AddDocument(ctx, models.DocumentInput{
		Title:     input.Title,
		FilePath:  input.FilePath,
		Type:      input.Type,
		ContactID: input.ContactID,
	})
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("failed to add document: %w", err)
	}
	return nil, DocumentOutput{
		ID:        d.ID,
		Title:     d.Title,
		FilePath:  d.FilePath,
		Type:      d.Type,
		ContactID: d.ContactID,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}, nil
}

func campaignToOutput(c *models.Campaign) CampaignOutput {
	return CampaignOutput{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		TargetStage: c.TargetStage,
		SentTo:      append([]int{}, c.SentTo...),
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}
