// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph tool for agents
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	svc *crm.Service
}

func NewVizHandlers(svc *crm.Service) *VizHandlers {
	return &VizHandlers{svc: svc}
}

type GenerateGraphInput struct {
	Type string `json:"type" jsonschema:"Graph type: stages or dashboard"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	Source    string `json:"source"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	switch strings.ToLower(strings.TrimSpace(input.Type)) {
	case "", "stages":
		dot, err := viz.NewGraphGenerator(h.svc).GenerateStageGraph(ctx)
		if err != nil {
			return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
		}
		return nil, GenerateGraphOutput{
			GraphType: "stages",
			Source:    dot,
			EdgeCount: len(viz.Transitions(h.svc.ListContacts(ctx))),
		}, nil

	case "dashboard":
		stats := viz.GenerateDashboardStats(ctx, h.svc, time.Now())
		return nil, GenerateGraphOutput{GraphType: "dashboard", Source: viz.RenderDashboard(stats)}, nil

	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("invalid graph type: %s (must be stages or dashboard)", input.Type)
	}
}
