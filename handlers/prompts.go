// ABOUTME: MCP prompt handlers for reusable pipeline workflow templates
// ABOUTME: Provides contact-summary and follow-up-suggestions prompts built from live pipeline data
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/harperreed/funnel/crm"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	svc *crm.Service
}

func NewPromptHandlers(svc *crm.Service) *PromptHandlers {
	return &PromptHandlers{svc: svc}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "contact-summary":
		return h.contactSummaryPrompt(ctx, request.Params.Arguments)
	case "follow-up-suggestions":
		return h.followUpPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) contactSummaryPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	idStr, ok := args["contact_id"]
	if !ok {
		return nil, fmt.Errorf("contact_id is required")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid contact_id: %w", err)
	}
	contact, err := h.svc.GetContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}

	var b strings.Builder
	b.WriteString("Please provide a comprehensive summary of this contact:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", contact.Name)
	fmt.Fprintf(&b, "Email: %s\n", contact.Email)
	fmt.Fprintf(&b, "Phone: %s\n", contact.Phone)
	if contact.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", contact.Company)
	}
	fmt.Fprintf(&b, "Stage: %s\n", contact.SalesStage)
	if len(contact.StageHistory) > 1 {
		hist := make([]string, 0, len(contact.StageHistory))
		for _, st := range contact.StageHistory {
			hist = append(hist, string(st))
		}
		fmt.Fprintf(&b, "Stage history: %s\n", strings.Join(hist, " -> "))
	}
	if len(contact.Activities) > 0 {
		b.WriteString("\nRecent activity:\n")
		start := max(0, len(contact.Activities)-5)
		for _, a := range contact.Activities[start:] {
			fmt.Fprintf(&b, "- %s [%s] %s\n", a.CreatedAt.Format(dateLayout), a.Type, a.Description)
		}
	}
	if pending := contact.PendingTasks(); len(pending) > 0 {
		b.WriteString("\nOpen tasks:\n")
		for _, t := range pending {
			fmt.Fprintf(&b, "- %s (due %s)\n", t.Title, t.DueDate.Format(dateLayout))
		}
	}
	if contact.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", contact.Notes)
	}

	b.WriteString("\nPlease analyze this contact and provide:")
	b.WriteString("\n1. Where they stand in the sales funnel")
	b.WriteString("\n2. Recommendations for the next step to move them forward")

	return userPrompt(fmt.Sprintf("Summary for contact: %s", contact.Name), b.String()), nil
}

func (h *PromptHandlers) followUpPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	var b strings.Builder
	b.WriteString("Contacts with open tasks:\n\n")
	count := 0
	for _, c := range h.svc.ListContacts(ctx) {
		for _, t := range c.PendingTasks() {
			fmt.Fprintf(&b, "- %s (%s): %s, due %s\n", c.Name, c.SalesStage, t.Title, t.DueDate.Format(dateLayout))
			count++
		}
	}
	if count == 0 {
		b.WriteString("(none)\n")
	}
	b.WriteString("\nPlease suggest which follow-ups to prioritize and how to approach each contact.")

	return userPrompt(fmt.Sprintf("Follow-up suggestions for %d open tasks", count), b.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}
