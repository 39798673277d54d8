// ABOUTME: Campaign and document CLI commands
// ABOUTME: Create, edit and send campaigns; register and list documents
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

// AddCampaignCommand creates a campaign.
func AddCampaignCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("add-campaign")
	title := fs.String("title", "", "Campaign title (required)")
	desc := fs.String("description", "", "Campaign description (required)")
	target := fs.String("target", "All", "Target stage or All")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := svc.CreateCampaign(ctx, models.CampaignInput{Title: *title, Description: *desc, TargetStage: *target})
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Campaign created: %s (ID: %d, target %s)\n", c.Title, c.ID, c.TargetStage)
	return nil
}

// ListCampaignsCommand lists every campaign.
func ListCampaignsCommand(ctx context.Context, svc *crm.Service, args []string) error {
	campaigns := svc.ListCampaigns(ctx)
	if len(campaigns) == 0 {
		fmt.Fprintln(stdout, "No campaigns found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tTARGET\tSENT")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t----")
	for _, c := range campaigns {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.ID, c.Title, c.TargetStage, len(c.SentTo))
	}
	return w.Flush()
}

// UpdateCampaignCommand edits a campaign. Its recipients are kept.
func UpdateCampaignCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("update-campaign")
	id := fs.Int("id", 0, "Campaign ID (required)")
	title := fs.String("title", "", "New title")
	desc := fs.String("description", "", "New description")
	target := fs.String("target", "", "New target stage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	campaignID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	c, err := svc.UpdateCampaign(ctx, campaignID, crm.CampaignPatch{
		Title:       optional(fs, "title", title),
		Description: optional(fs, "description", desc),
		TargetStage: optional(fs, "target", target),
	})
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Campaign updated: %s (ID: %d)\n", c.Title, c.ID)
	return nil
}

// DeleteCampaignCommand removes a campaign.
func DeleteCampaignCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("delete-campaign")
	id := fs.Int("id", 0, "Campaign ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	campaignID, err := requireID("id", *id)
	if err != nil {
		return err
	}
	if err := svc.DeleteCampaign(ctx, campaignID); err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Campaign %d deleted\n", campaignID)
	return nil
}

// SendCampaignCommand sends a campaign to contacts that have not had it yet.
func SendCampaignCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("send-campaign")
	id := fs.Int("id", 0, "Campaign ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	campaignID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	res, err := svc.SendCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to send campaign: %w", err)
	}
	if res.RecipientsAdded == 0 {
		fmt.Fprintln(stdout, "No new recipients")
		return nil
	}
	fmt.Fprintf(stdout, "✓ Campaign %d sent to %d contact(s)\n", campaignID, res.RecipientsAdded)
	return nil
}

// AddDocumentCommand registers a document.
func AddDocumentCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("add-document")
	title := fs.String("title", "", "Document title (required)")
	path := fs.String("path", "", "File path (required)")
	typ := fs.String("type", "", "proposal, contract or other")
	contact := fs.Int("contact", 0, "Owning contact ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := models.DocumentInput{Title: *title, FilePath: *path, Type: *typ}
	if *contact > 0 {
		in.ContactID = contact
	}
	d, err := svc.AddDocument(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Document added: %s (ID: %d, %s)\n", d.Title, d.ID, d.Type)
	return nil
}

// ListDocumentsCommand lists every document.
func ListDocumentsCommand(ctx context.Context, svc *crm.Service, args []string) error {
	docs := svc.ListDocuments(ctx)
	if len(docs) == 0 {
		fmt.Fprintln(stdout, "No documents found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tTYPE\tPATH\tCONTACT")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t----\t-------")
	for _, d := range docs {
		owner := "-"
		if d.ContactID != nil {
			owner = itoa(*d.ContactID)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.Title, d.Type, d.FilePath, owner)
	}
	return w.Flush()
}

// DeleteDocumentCommand removes a document.
func DeleteDocumentCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("delete-document")
	id := fs.Int("id", 0, "Document ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	docID, err := requireID("id", *id)
	if err != nil {
		return err
	}
	if err := svc.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Document %d deleted\n", docID)
	return nil
}
