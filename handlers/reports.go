// ABOUTME: Report MCP tool handler
// ABOUTME: Implements summary_report, combining totals, stage distribution and lead conversion
package handlers

import (
	"context"

	"github.com/harperreed/funnel/crm"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ReportHandlers struct {
	svc *crm.Service
}

func NewReportHandlers(svc *crm.Service) *ReportHandlers {
	return &ReportHandlers{svc: svc}
}

type SummaryReportInput struct {
	IncludeStages bool `json:"include_stages,omitempty" jsonschema:"Also list the contacts in each stage"`
}

type SummaryReportOutput struct {
	Summary    crm.Summary          `json:"summary"`
	Conversion crm.ConversionReport `json:"conversion"`
	Stages     []crm.StageGroup     `json:"stages,omitempty"`
}

func (h *ReportHandlers) SummaryReport(ctx context.Context, request *mcp.CallToolRequest, input SummaryReportInput) (*mcp.CallToolResult, SummaryReportOutput, error) {
	out := SummaryReportOutput{
		Summary:    h.svc.Summary(ctx),
		Conversion: h.svc.ConversionReport(ctx),
	}
	if input.IncludeStages {
		out.Stages = h.svc.StageReport(ctx)
	}
	return nil, out, nil
}
