// ABOUTME: Command dispatch for the crm subcommand
// ABOUTME: Parses the global --role flag and routes to the individual pipeline commands
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

// stdout is where commands print their results.
var stdout io.Writer = os.Stdout

// Command runs one crm subcommand.
type Command func(ctx context.Context, svc *crm.Service, args []string) error

var commands = map[string]Command{
	"add-contact":     AddContactCommand,
	"list-contacts":   ListContactsCommand,
	"update-contact":  UpdateContactCommand,
	"delete-contact":  DeleteContactCommand,
	"update-stage":    UpdateStageCommand,
	"add-activity":    AddActivityCommand,
	"add-task":        AddTaskCommand,
	"list-tasks":      ListTasksCommand,
	"complete-task":   CompleteTaskCommand,
	"add-lead":        AddLeadCommand,
	"list-leads":      ListLeadsCommand,
	"update-lead":     UpdateLeadCommand,
	"delete-lead":     DeleteLeadCommand,
	"convert-lead":    ConvertLeadCommand,
	"import-leads":    ImportLeadsCommand,
	"add-campaign":    AddCampaignCommand,
	"list-campaigns":  ListCampaignsCommand,
	"update-campaign": UpdateCampaignCommand,
	"delete-campaign": DeleteCampaignCommand,
	"send-campaign":   SendCampaignCommand,
	"add-document":    AddDocumentCommand,
	"list-documents":  ListDocumentsCommand,
	"delete-document": DeleteDocumentCommand,
	"report":          ReportCommand,
	"roles":           RolesCommand,
}

// CommandNames lists the crm subcommands in alphabetical order.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run handles `funnel crm [--role R] <command> [flags]`.
func Run(ctx context.Context, svc *crm.Service, args []string) error {
	fs := flag.NewFlagSet("crm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	role := fs.String("role", "", "Act as this role (admin, sales, marketing, client)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *role != "" {
		if _, err := svc.ChangeRole(ctx, *role); err != nil {
			return err
		}
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("command required (one of: %s)", strings.Join(CommandNames(), ", "))
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", rest[0])
	}
	return cmd(ctx, svc, rest[1:])
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// requireID reads a positive integer from the named flag.
func requireID(flagName string, v int) (int, error) {
	if v <= 0 {
		return 0, fmt.Errorf("--%s is required", flagName)
	}
	return v, nil
}

// optional returns a pointer to the flag value only when the flag was set.
func optional(fs *flag.FlagSet, name string, v *string) *string {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return v
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Describe renders err for humans, naming the failure kind.
func Describe(err error) string {
	switch {
	case errors.Is(err, models.ErrNotPermitted):
		return "not permitted: " + err.Error()
	case errors.Is(err, models.ErrNotFound):
		return "not found: " + err.Error()
	default:
		return err.Error()
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
