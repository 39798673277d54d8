// ABOUTME: Contact CLI commands
// ABOUTME: Human-friendly commands for contacts, stages, activities and tasks
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

// AddContactCommand adds a new contact.
func AddContactCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("add-contact")
	name := fs.String("name", "", "Contact name (required)")
	email := fs.String("email", "", "Email address (required)")
	phone := fs.String("phone", "", "Phone number (required)")
	company := fs.String("company", "", "Company name")
	notes := fs.String("notes", "", "Notes about the contact")
	if err := fs.Parse(args); err != nil {
		return err
	}

	contact, err := svc.CreateContact(ctx, models.ContactInput{
		Name:    *name,
		Email:   *email,
		Phone:   *phone,
		Company: *company,
		Notes:   *notes,
	})
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	fmt.Fprintf(stdout, "✓ Contact created: %s (ID: %d)\n", contact.Name, contact.ID)
	fmt.Fprintf(stdout, "  Email: %s\n", contact.Email)
	fmt.Fprintf(stdout, "  Phone: %s\n", contact.Phone)
	if contact.Company != "" {
		fmt.Fprintf(stdout, "  Company: %s\n", contact.Company)
	}
	fmt.Fprintf(stdout, "  Stage: %s\n", contact.SalesStage)
	return nil
}

// ListContactsCommand lists contacts, optionally filtered.
func ListContactsCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("list-contacts")
	query := fs.String("query", "", "Search by name, email or company")
	stage := fs.String("stage", "", "Filter by sales stage")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var want models.Stage
	if *stage != "" {
		st, err := models.ParseStage(*stage)
		if err != nil {
			return err
		}
		want = st
	}

	var contacts []*models.Contact
	for _, c := range svc.FindContacts(ctx, *query) {
		if want != "" {
			if st, err := models.ParseStage(string(c.SalesStage)); err != nil || st != want {
				continue
			}
		}
		contacts = append(contacts, c)
	}

	if len(contacts) == 0 {
		fmt.Fprintln(stdout, "No contacts found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tCOMPANY\tSTAGE")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-----\t-------\t-----")
	for _, c := range contacts {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.Phone, orDash(c.Company), c.SalesStage)
	}
	_ = w.Flush()
	fmt.Fprintf(stdout, "\n%d contact(s)\n", len(contacts))
	return nil
}

// UpdateContactCommand changes the flags that were given and keeps the rest.
func UpdateContactCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("update-contact")
	id := fs.Int("id", 0, "Contact ID (required)")
	name := fs.String("name", "", "New name")
	email := fs.String("email", "", "New email")
	phone := fs.String("phone", "", "New phone")
	company := fs.String("company", "", "New company")
	notes := fs.String("notes", "", "New notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	contactID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	contact, err := svc.UpdateContact(ctx, contactID, crm.ContactPatch{
		Name:    optional(fs, "name", name),
		Email:   optional(fs, "email", email),
		Phone:   optional(fs, "phone", phone),
		Company: optional(fs, "company", company),
		Notes:   optional(fs, "notes", notes),
	})
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Contact updated: %s (ID: %d)\n", contact.Name, contact.ID)
	return nil
}

// DeleteContactCommand removes a contact.
func DeleteContactCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("delete-contact")
	id := fs.Int("id", 0, "Contact ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	contactID, err := requireID("id", *id)
	if err != nil {
		return err
	}
	if err := svc.DeleteContact(ctx, contactID); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Contact %d deleted\n", contactID)
	return nil
}

// UpdateStageCommand moves a contact to another stage.
func UpdateStageCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("update-stage")
	id := fs.Int("id", 0, "Contact ID (required)")
	stage := fs.String("stage", "", "New stage (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	contactID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	contact, err := svc.UpdateStage(ctx, contactID, *stage)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}
	fmt.Fprintf(stdout, "✓ %s is now in %s\n", contact.Name, contact.SalesStage)
	return nil
}

// AddActivityCommand logs an activity on a contact.
func AddActivityCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("add-activity")
	id := fs.Int("id", 0, "Contact ID (required)")
	typ := fs.String("type", "note", "Activity type: call, email, meeting, note")
	desc := fs.String("description", "", "What happened (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	contactID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	a, err := svc.AddActivity(ctx, contactID, models.ActivityInput{Type: *typ, Description: *desc})
	if err != nil {
		return fmt.Errorf("failed to add activity: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Logged %s: %s\n", a.Type, a.Description)
	return nil
}

// AddTaskCommand adds a task to a contact.
func AddTaskCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("add-task")
	id := fs.Int("id", 0, "Contact ID (required)")
	title := fs.String("title", "", "Task title (required)")
	due := fs.String("due", "", "Due date YYYY-MM-DD or DD/MM/YYYY (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	contactID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	task, err := svc.AddTask(ctx, contactID, models.TaskInput{Title: *title, DueDate: *due})
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Task #%d added: %s (due %s)\n", task.ID, task.Title, task.DueDate.Format("2006-01-02"))
	return nil
}

// ListTasksCommand prints a contact's pending tasks, or every task with --all.
func ListTasksCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("list-tasks")
	id := fs.Int("id", 0, "Contact ID (required)")
	all := fs.Bool("all", false, "Include completed tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	contactID, err := requireID("id", *id)
	if err != nil {
		return err
	}

	var tasks []models.Task
	if *all {
		c, err := svc.GetContact(ctx, contactID)
		if err != nil {
			return err
		}
		tasks = c.Tasks
	} else if tasks, err = svc.PendingTasks(ctx, contactID); err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Fprintln(stdout, "No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tDUE\tDONE")
	_, _ = fmt.Fprintln(w, "--\t-----\t---\t----")
	for _, t := range tasks {
		done := "no"
		if t.Completed {
			done = "yes"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Title, t.DueDate.Format("2006-01-02"), done)
	}
	return w.Flush()
}

// CompleteTaskCommand marks a task done.
func CompleteTaskCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("complete-task")
	id := fs.Int("id", 0, "Contact ID (required)")
	taskID := fs.Int("task", 0, "Task ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	contactID, err := requireID("id", *id)
	if err != nil {
		return err
	}
	tid, err := requireID("task", *taskID)
	if err != nil {
		return err
	}

	task, err := svc.CompleteTask(ctx, contactID, tid)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Task completed: %s\n", task.Title)
	return nil
}
