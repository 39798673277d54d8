// ABOUTME: MCP server subcommand
// ABOUTME: Exposes pipeline tools, resources and prompts over stdio
package cli

import (
	"context"
	"log"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients and by the version command.
const Version = "0.1.0"

// NewMCPServer builds a server with every pipeline tool registered.
func NewMCPServer(svc *crm.Service) *mcp.Server {
	contactHandlers := handlers.NewContactHandlers(svc)
	leadHandlers := handlers.NewLeadHandlers(svc)
	campaignHandlers := handlers.NewCampaignHandlers(svc)
	reportHandlers := handlers.NewReportHandlers(svc)
	vizHandlers := handlers.NewVizHandlers(svc)
	resourceHandlers := handlers.NewResourceHandlers(svc)
	promptHandlers := handlers.NewPromptHandlers(svc)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "funnel",
		Version: Version,
	}, nil)

	// Contacts
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a new contact to the pipeline in the Prospect stage",
	}, contactHandlers.AddContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Search contacts by name, email or company, optionally filtered by stage",
	}, contactHandlers.FindContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_contact",
		Description: "Update an existing contact's information",
	}, contactHandlers.UpdateContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_contact",
		Description: "Delete a contact and unlink its documents",
	}, contactHandlers.DeleteContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_stage",
		Description: "Move a contact to another sales stage and record the change",
	}, contactHandlers.UpdateStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_activity",
		Description: "Log a call, email, meeting or note on a contact's timeline",
	}, contactHandlers.AddActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_task",
		Description: "Add a follow-up task with a due date to a contact",
	}, contactHandlers.AddTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a contact's task as completed",
	}, contactHandlers.CompleteTask)

	// Leads
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead",
		Description: "Capture a new lead; the score is derived from its source",
	}, leadHandlers.AddLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_leads",
		Description: "List active leads, optionally including converted ones",
	}, leadHandlers.ListLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_lead",
		Description: "Convert a lead into a contact; a lead can be converted only once",
	}, leadHandlers.ConvertLead)

	// Campaigns and documents
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_campaign",
		Description: "Create an email campaign targeting one stage or all contacts",
	}, campaignHandlers.CreateCampaign)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_campaigns",
		Description: "List every campaign and who it has reached",
	}, campaignHandlers.ListCampaigns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_campaign",
		Description: "Send a campaign to matching contacts that have not received it yet",
	}, campaignHandlers.SendCampaign)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_document",
		Description: "Register a proposal, contract or other document, optionally linked to a contact",
	}, campaignHandlers.AddDocument)

	// Reports
	mcp.AddTool(server, &mcp.Tool{
		Name:        "summary_report",
		Description: "Pipeline totals, stage distribution and lead conversion rate",
	}, reportHandlers.SummaryReport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Render the stage-transition graph (GraphViz) or the text dashboard",
	}, vizHandlers.GenerateGraph)

	for _, r := range []*mcp.Resource{
		{URI: "crm://contacts", Name: "contacts", Description: "All contacts", MIMEType: "application/json"},
		{URI: "crm://leads", Name: "leads", Description: "All leads including converted", MIMEType: "application/json"},
		{URI: "crm://campaigns", Name: "campaigns", Description: "All campaigns", MIMEType: "application/json"},
		{URI: "crm://pipeline", Name: "pipeline", Description: "Summary, conversion and stage report", MIMEType: "application/json"},
	} {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://contacts/{id}",
		Name:        "contact",
		Description: "A single contact with its timeline and tasks",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "contact-summary",
		Description: "Summarize a contact and suggest the next step",
		Arguments:   []*mcp.PromptArgument{{Name: "contact_id", Description: "Contact ID", Required: true}},
	}, promptHandlers.GetPrompt)
	server.AddPrompt(&mcp.Prompt{
		Name:        "follow-up-suggestions",
		Description: "Prioritize open follow-up tasks",
	}, promptHandlers.GetPrompt)

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, svc *crm.Service) error {
	log.Println("Starting funnel MCP server...")
	return NewMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
