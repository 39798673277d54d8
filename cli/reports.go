// ABOUTME: Report and role CLI commands
// ABOUTME: Prints pipeline summaries and the operations each role may run
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

// ReportCommand prints the summary, conversion or stage report.
func ReportCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("report")
	kind := fs.String("type", "summary", "Report type: summary, conversion or stages")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var report any
	switch *kind {
	case "summary":
		report = svc.Summary(ctx)
	case "conversion":
		report = svc.ConversionReport(ctx)
	case "stages":
		report = svc.StageReport(ctx)
	default:
		return fmt.Errorf("unknown report type: %s (must be summary, conversion or stages)", *kind)
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	switch r := report.(type) {
	case crm.Summary:
		fmt.Fprintf(stdout, "Contacts:      %d\n", r.Contacts)
		fmt.Fprintf(stdout, "Active leads:  %d\n", r.ActiveLeads)
		fmt.Fprintf(stdout, "Campaigns:     %d\n", r.Campaigns)
		fmt.Fprintf(stdout, "Documents:     %d\n", r.Documents)
		fmt.Fprintf(stdout, "Pending tasks: %d\n", r.PendingTasks)
		if len(r.ByStage) > 0 {
			fmt.Fprintln(stdout, "\nBy stage:")
			for _, sc := range r.ByStage {
				fmt.Fprintf(stdout, "  %-13s %d\n", sc.Stage, sc.Count)
			}
		}
	case crm.ConversionReport:
		fmt.Fprintf(stdout, "Leads: %d  Converted: %d  Rate: %.2f%%\n", r.TotalLeads, r.ConvertedLeads, r.RatePercent)
	case []crm.StageGroup:
		if len(r) == 0 {
			fmt.Fprintln(stdout, "No contacts found")
			return nil
		}
		for _, g := range r {
			fmt.Fprintf(stdout, "%s (%d)\n", g.Stage, len(g.Contacts))
			for _, c := range g.Contacts {
				fmt.Fprintf(stdout, "  #%d %s <%s> %s\n", c.ID, c.Name, c.Email, c.Company)
			}
		}
	}
	return nil
}

// RolesCommand prints the operations each role may run.
func RolesCommand(ctx context.Context, svc *crm.Service, args []string) error {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROLE\tOPERATIONS")
	_, _ = fmt.Fprintln(w, "----\t----------")
	for _, r := range models.Roles {
		marker := ""
		if r == svc.Role() {
			marker = " *"
		}
		_, _ = fmt.Fprintf(w, "%s%s\t%s\n", r, marker, strings.Join(crm.PermittedOps(r), ", "))
	}
	return w.Flush()
}
