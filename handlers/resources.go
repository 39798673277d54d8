// ABOUTME: MCP resource handlers for exposing pipeline data
// ABOUTME: Provides read-only access to contacts, leads, campaigns and the pipeline summary via crm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/harperreed/funnel/crm"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ResourceHandlers struct {
	svc *crm.Service
}

func NewResourceHandlers(svc *crm.Service) *ResourceHandlers {
	return &ResourceHandlers{svc: svc}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")
	switch parts[0] {
	case "contacts":
		if len(parts) == 1 {
			return jsonResource(uri, h.svc.ListContacts(ctx))
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid contact ID: %w", err)
		}
		contact, err := h.svc.GetContact(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch contact: %w", err)
		}
		return jsonResource(uri, contact)

	case "leads":
		return jsonResource(uri, h.svc.ListLeads(ctx, crm.LeadFilter{IncludeConverted: true}))

	case "campaigns":
		return jsonResource(uri, h.svc.ListCampaigns(ctx))

	case "pipeline":
		return jsonResource(uri, struct {
			Summary    crm.Summary          `json:"summary"`
			Conversion crm.ConversionReport `json:"conversion"`
			Stages     []crm.StageGroup     `json:"stages"`
		}{h.svc.Summary(ctx), h.svc.ConversionReport(ctx), h.svc.StageReport(ctx)})

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
