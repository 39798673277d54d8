// ABOUTME: Lead operations: CRUD, bulk import and one-way conversion into a contact
// ABOUTME: Converted leads are immutable and hidden from active listings
package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/funnel/events"
	"github.com/harperreed/funnel/models"
	"github.com/harperreed/funnel/store"
)

// LeadFilter narrows ListLeads.
type LeadFilter struct {
	IncludeConverted bool
}

// LeadPatch holds the lead fields to change. Changing the source rescores
// the lead.
type LeadPatch struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Source *string `json:"source,omitempty"`
}

// ConvertInput carries the fields a lead lacks to become a contact.
type ConvertInput struct {
	Phone   string `json:"phone"`
	Company string `json:"company,omitempty"`
}

// ListLeads returns active leads, or every lead when the filter asks for it.
func (s *Service) ListLeads(ctx context.Context, f LeadFilter) []*models.Lead {
	var all []*models.Lead
	s.read(func(st *store.Store) { all = st.Leads() })
	if f.IncludeConverted {
		return all
	}
	active := []*models.Lead{}
	for _, l := range all {
		if !l.Converted {
			active = append(active, l)
		}
	}
	return active
}

// GetLead returns the lead with id, converted or not.
func (s *Service) GetLead(ctx context.Context, id int) (*models.Lead, error) {
	var (
		l   *models.Lead
		err error
	)
	s.read(func(st *store.Store) { l, err = st.Lead(id) })
	return l, err
}

// CreateLead validates in and stores a scored lead.
func (s *Service) CreateLead(ctx context.Context, in models.LeadInput) (*models.Lead, error) {
	var created *models.Lead
	err := s.run(ctx, OpCreateLead, func(t *tx) error {
		l, err := models.NewLead(in, t.now)
		if err != nil {
			return err
		}
		if created, err = t.store.AddLead(l); err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
	return created, err
}

// UpdateLead applies patch to an active lead.
func (s *Service) UpdateLead(ctx context.Context, id int, patch LeadPatch) (*models.Lead, error) {
	var updated *models.Lead
	err := s.run(ctx, OpUpdateLead, func(t *tx) error {
		var err error
		updated, err = t.store.UpdateLead(id, func(l *models.Lead) error {
			if patch.Name != nil {
				l.Name = *patch.Name
			}
			if patch.Email != nil {
				l.Email = *patch.Email
			}
			if patch.Source != nil {
				source, err := models.ParseSource(*patch.Source)
				if err != nil {
					return err
				}
				l.Source = source
				l.Score = models.ScoreForSource(source)
			}
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

// DeleteLead removes the lead.
func (s *Service) DeleteLead(ctx context.Context, id int) error {
	return s.run(ctx, OpDeleteLead, func(t *tx) error {
		if err := t.store.DeleteLead(id); err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
}

// ConvertLead turns an active lead into a contact in the initial stage and
// marks the lead converted. Both changes land in a single flush.
func (s *Service) ConvertLead(ctx context.Context, leadID int, in ConvertInput) (*models.Contact, error) {
	var contact *models.Contact
	err := s.run(ctx, OpConvertLead, func(t *tx) error {
		lead, err := t.store.Lead(leadID)
		if err != nil {
			return err
		}
		if lead.Converted {
			return fmt.Errorf("lead %d: %w", leadID, models.ErrAlreadyConverted)
		}
		c, err := models.NewContact(models.ContactInput{
			Name:    lead.Name,
			Email:   lead.Email,
			Phone:   in.Phone,
			Company: in.Company,
			Notes:   fmt.Sprintf("Converted from lead #%d (source: %s)", lead.ID, lead.Source),
		}, t.now)
		if err != nil {
			return err
		}

		// The contact is already valid, so AddContact cannot fail once the
		// lead update has been accepted.
		converted, err := t.store.UpdateLead(leadID, func(l *models.Lead) error {
			l.Converted = true
			return nil
		})
		if err != nil {
			return err
		}
		if contact, err = t.store.AddContact(c); err != nil {
			return err
		}
		t.dirty = true
		t.publish(events.LeadConverted{Contact: *contact.Clone(), Lead: *converted})
		return nil
	})
	return contact, err
}

// Import outcome statuses.
const (
	ImportCreated   = "created"
	ImportDuplicate = "duplicate"
	ImportInvalid   = "invalid"
)

// ImportOutcome reports what happened to one imported record.
type ImportOutcome struct {
	Index  int    `json:"index"`
	Email  string `json:"email"`
	Status string `json:"status"`
	LeadID int    `json:"lead_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ImportResult summarizes an ImportLeads call.
type ImportResult struct {
	Created    int             `json:"created"`
	Duplicates int             `json:"duplicates"`
	Invalid    int             `json:"invalid"`
	Outcomes   []ImportOutcome `json:"outcomes"`
}

// ErrDuplicateLead marks a record whose email is already known.
var ErrDuplicateLead = errors.New("email already known")

// ImportLeads creates a lead for every valid record whose email is not yet
// used by any lead or contact. Invalid and duplicate records are reported,
// not fatal. All created leads are flushed together.
func (s *Service) ImportLeads(ctx context.Context, records []models.LeadInput) (ImportResult, error) {
	res := ImportResult{Outcomes: []ImportOutcome{}}
	err := s.run(ctx, OpImportLeads, func(t *tx) error {
		known := map[string]bool{}
		for _, l := range t.store.Leads() {
			known[l.Email] = true
		}
		for _, c := range t.store.Contacts() {
			known[c.Email] = true
		}

		for i, in := range records {
			out := ImportOutcome{Index: i, Email: in.Email}
			l, err := models.NewLead(in, t.now)
			switch {
			case err != nil:
				out.Status, out.Error = ImportInvalid, err.Error()
				res.Invalid++
			case known[l.Email]:
				out.Status, out.Error = ImportDuplicate, ErrDuplicateLead.Error()
				out.Email = l.Email
				res.Duplicates++
			default:
				added, err := t.store.AddLead(l)
				if err != nil {
					out.Status, out.Error = ImportInvalid, err.Error()
					res.Invalid++
					break
				}
				known[added.Email] = true
				out.Status, out.Email, out.LeadID = ImportCreated, added.Email, added.ID
				res.Created++
			}
			res.Outcomes = append(res.Outcomes, out)
		}
		t.dirty = res.Created > 0
		return nil
	})
	return res, err
}
