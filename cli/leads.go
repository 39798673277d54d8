// ABOUTME: Lead CLI commands
// ABOUTME: Capture, list, edit, convert and bulk-import leads
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/importer"
	"github.com/harperreed/funnel/models"
)

// AddLeadCommand captures a new lead.
func AddLeadCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("add-lead")
	name := fs.String("name", "", "Lead name (required)")
	email := fs.String("email", "", "Email address (required)")
	source := fs.String("source", "", "Lead source (default Website)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lead, err := svc.CreateLead(ctx, models.LeadInput{Name: *name, Email: *email, Source: *source})
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Lead created: %s (ID: %d)\n", lead.Name, lead.ID)
	fmt.Fprintf(stdout, "  Source: %s (score %d)\n", lead.Source, lead.Score)
	return nil
}

// ListLeadsCommand lists active leads.
func ListLeadsCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("list-leads")
	all := fs.Bool("all", false, "Include converted leads")
	if err := fs.Parse(args); err != nil {
		return err
	}

	leads := svc.ListLeads(ctx, crm.LeadFilter{IncludeConverted: *all})
	if len(leads) == 0 {
		fmt.Fprintln(stdout, "No leads found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tSOURCE\tSCORE\tCONVERTED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t------\t-----\t---------")
	for _, l := range leads {
		converted := "no"
		if l.Converted {
			converted = "yes"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", l.ID, l.Name, l.Email, l.Source, l.Score, converted)
	}
	_ = w.Flush()
	fmt.Fprintf(stdout, "\n%d lead(s)\n", len(leads))
	return nil
}

// UpdateLeadCommand edits an active lead.
func UpdateLeadCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("update-lead")
	id := fs.Int("id", 0, "Lead ID (required)")
	name := fs.String("name", "", "New name")
	email := fs.String("email", "", "New email")
	source := fs.String("source", "", "New source (rescores the lead)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	leadID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	lead, err := svc.UpdateLead(ctx, leadID, crm.LeadPatch{
		Name:   optional(fs, "name", name),
		Email:  optional(fs, "email", email),
		Source: optional(fs, "source", source),
	})
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Lead updated: %s (ID: %d, score %d)\n", lead.Name, lead.ID, lead.Score)
	return nil
}

// DeleteLeadCommand removes a lead.
func DeleteLeadCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("delete-lead")
	id := fs.Int("id", 0, "Lead ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	leadID, err := requireID("id", *id)
	if err != nil {
		return err
	}
	if err := svc.DeleteLead(ctx, leadID); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Lead %d deleted\n", leadID)
	return nil
}

// ConvertLeadCommand turns a lead into a contact.
func ConvertLeadCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("convert-lead")
	id := fs.Int("id", 0, "Lead ID (required)")
	phone := fs.String("phone", "", "Phone number for the contact (required)")
	company := fs.String("company", "", "Company for the contact")
	if err := fs.Parse(args); err != nil {
		return err
	}
	leadID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	contact, err := svc.ConvertLead(ctx, leadID, crm.ConvertInput{Phone: *phone, Company: *company})
	if err != nil {
		return fmt.Errorf("failed to convert lead: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Lead %d converted into contact %s (ID: %d)\n", leadID, contact.Name, contact.ID)
	return nil
}

// ImportLeadsCommand loads leads from a YAML or JSON file.
func ImportLeadsCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("import-leads")
	file := fs.String("file", "", "YAML or JSON file with full_name, contact_email, origin_platform records (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	res, err := importer.ImportFile(ctx, svc, *file)
	if err != nil {
		return fmt.Errorf("failed to import leads: %w", err)
	}

	fmt.Fprintf(stdout, "✓ Imported %d lead(s): %d duplicate(s), %d invalid\n", res.Created, res.Duplicates, res.Invalid)
	for _, o := range res.Outcomes {
		if o.Status != crm.ImportCreated {
			fmt.Fprintf(stdout, "  #%d %s: %s %s\n", o.Index+1, orDash(o.Email), o.Status, o.Error)
		}
	}
	return nil
}
