// ABOUTME: Contact operations: CRUD, stage progression, tasks, activities and documents
// ABOUTME: Stage changes and task completions record an activity and publish an event
package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/funnel/events"
	"github.com/harperreed/funnel/models"
	"github.com/harperreed/funnel/store"
)

// ContactPatch holds the contact fields to change. Nil fields are kept.
type ContactPatch struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Company *string `json:"company,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

func (p ContactPatch) apply(c *models.Contact) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Company != nil {
		c.Company = strings.TrimSpace(*p.Company)
	}
	if p.Notes != nil {
		c.Notes = strings.TrimSpace(*p.Notes)
	}
}

// ListContacts returns every contact.
func (s *Service) ListContacts(ctx context.Context) []*models.Contact {
	var out []*models.Contact
	s.read(func(st *store.Store) { out = st.Contacts() })
	return out
}

// GetContact returns the contact with id.
func (s *Service) GetContact(ctx context.Context, id int) (*models.Contact, error) {
	var (
		c   *models.Contact
		err error
	)
	s.read(func(st *store.Store) { c, err = st.Contact(id) })
	return c, err
}

// FindContacts returns contacts whose name, email or company contains query,
// ignoring case and accents. An empty query matches everyone.
func (s *Service) FindContacts(ctx context.Context, query string) []*models.Contact {
	needle := models.FoldKey(query)
	all := s.ListContacts(ctx)
	if needle == "" {
		return all
	}
	out := []*models.Contact{}
	for _, c := range all {
		for _, field := range []string{c.Name, c.Email, c.Company} {
			if strings.Contains(models.FoldKey(field), needle) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// CreateContact validates in and stores a new contact in the initial stage.
func (s *Service) CreateContact(ctx context.Context, in models.ContactInput) (*models.Contact, error) {
	var created *models.Contact
	err := s.run(ctx, OpCreateContact, func(t *tx) error {
		c, err := models.NewContact(in, t.now)
		if err != nil {
			return err
		}
		if created, err = t.store.AddContact(c); err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
	return created, err
}

// UpdateContact applies patch to the contact. Stage, history and children
// are not editable here.
func (s *Service) UpdateContact(ctx context.Context, id int, patch ContactPatch) (*models.Contact, error) {
	var updated *models.Contact
	err := s.run(ctx, OpUpdateContact, func(t *tx) error {
		var err error
		updated, err = t.store.UpdateContact(id, func(c *models.Contact) error {
			patch.apply(c)
			c.UpdatedAt = t.now
			return nil
		})
		if err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
	return updated, err
}

// DeleteContact removes the contact.
func (s *Service) DeleteContact(ctx context.Context, id int) error {
	return s.run(ctx, OpDeleteContact, func(t *tx) error {
		if err := t.store.DeleteContact(id); err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
}

// UpdateStage moves the contact to stage. Any stage in the vocabulary is a
// legal target; anything else fails with ErrInvalidTransition and leaves
// the contact untouched.
func (s *Service) UpdateStage(ctx context.Context, contactID int, stage string) (*models.Contact, error) {
	var updated *models.Contact
	err := s.run(ctx, OpUpdateStage, func(t *tx) error {
		target, err := models.ParseStage(stage)
		if err != nil {
			return err
		}
		var old models.Stage
		updated, err = t.store.UpdateContact(contactID, func(c *models.Contact) error {
			old = c.SetStage(target)
			c.Activities = append(c.Activities, models.Activity{
				Type:        models.ActivityStageChange,
				Description: fmt.Sprintf("Stage changed from '%s' to '%s'", old, target),
				CreatedAt:   t.now,
			})
			c.UpdatedAt = t.now
			return nil
		})
		if err != nil {
			return err
		}
		t.dirty = true
		t.publish(events.StageChanged{Contact: *updated.Clone(), OldStage: old, NewStage: target})
		return nil
	})
	return updated, err
}

// AddTask adds a pending task to the contact.
func (s *Service) AddTask(ctx context.Context, contactID int, in models.TaskInput) (models.Task, error) {
	var added models.Task
	err := s.run(ctx, OpAddTask, func(t *tx) error {
		task, err := models.NewTask(in)
		if err != nil {
			return err
		}
		_, err = t.store.UpdateContact(contactID, func(c *models.Contact) error {
			added = c.AddTask(task)
			c.UpdatedAt = t.now
			return nil
		})
		if err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
	return added, err
}

// PendingTasks returns the contact's tasks that are not yet completed.
func (s *Service) PendingTasks(ctx context.Context, contactID int) ([]models.Task, error) {
	c, err := s.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	return c.PendingTasks(), nil
}

// CompleteTask completes one of the contact's pending tasks and records a
// task_completed activity.
func (s *Service) CompleteTask(ctx context.Context, contactID, taskID int) (models.Task, error) {
	var done models.Task
	err := s.run(ctx, OpCompleteTask, func(t *tx) error {
		updated, err := t.store.UpdateContact(contactID, func(c *models.Contact) error {
			task := c.Task(taskID)
			if task == nil {
				return fmt.Errorf("contact %d: task %d: %w", contactID, taskID, models.ErrNotFound)
			}
			if task.Completed {
				return fmt.Errorf("contact %d: task %d: %w", contactID, taskID, models.ErrAlreadyCompleted)
			}
			at := t.now
			task.Completed = true
			task.CompletedAt = &at
			c.Activities = append(c.Activities, models.Activity{
				Type:        models.ActivityTaskCompleted,
				Description: "Completed task: " + task.Title,
				CreatedAt:   t.now,
			})
			c.UpdatedAt = t.now
			done = *task
			return nil
		})
		if err != nil {
			return err
		}
		t.dirty = true
		t.publish(events.TaskCompleted{Contact: *updated.Clone(), Task: done})
		return nil
	})
	return done, err
}

// AddActivity appends an activity to the contact's timeline.
func (s *Service) AddActivity(ctx context.Context, contactID int, in models.ActivityInput) (models.Activity, error) {
	var added models.Activity
	err := s.run(ctx, OpAddActivity, func(t *tx) error {
		a, err := models.NewActivity(in, t.now)
		if err != nil {
			return err
		}
		updated, err := t.store.UpdateContact(contactID, func(c *models.Contact) error {
			c.Activities = append(c.Activities, a)
			c.UpdatedAt = t.now
			return nil
		})
		if err != nil {
			return err
		}
		added = a
		t.dirty = true
		t.publish(events.ActivityAdded{Contact: *updated.Clone(), Activity: a})
		return nil
	})
	return added, err
}

// ListDocuments returns every document.
func (s *Service) ListDocuments(ctx context.Context) []*models.Document {
	var out []*models.Document
	s.read(func(st *store.Store) { out = st.Documents() })
	return out
}

// AddDocument stores a document, linking it to its contact when one is named.
func (s *Service) AddDocument(ctx context.Context, in models.DocumentInput) (*models.Document, error) {
	var added *models.Document
	err := s.run(ctx, OpAddDocument, func(t *tx) error {
		d, err := models.NewDocument(in, t.now)
		if err != nil {
			return err
		}
		if added, err = t.store.AddDocument(d); err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
	return added, err
}

// DeleteDocument removes a document and its contact reference.
func (s *Service) DeleteDocument(ctx context.Context, id int) error {
	return s.run(ctx, OpDeleteDocument, func(t *tx) error {
		if err := t.store.DeleteDocument(id); err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
}
