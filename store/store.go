// ABOUTME: In-memory entity store owning contacts, leads, campaigns and documents
// ABOUTME: Assigns max+1 identities and re-validates every entity it accepts
package store

import (
	"fmt"

	"github.com/harperreed/funnel/models"
)

// Store holds the canonical entity collections. It is not safe for
// concurrent use; callers serialize access.
type Store struct {
	contacts  collection[*models.Contact]
	leads     collection[*models.Lead]
	campaigns collection[*models.Campaign]
	documents collection[*models.Document]
}

// New returns an empty store.
func New() *Store {
	return &Store{
		contacts: collection[*models.Contact]{
			kind:     "contact",
			id:       func(c *models.Contact) int { return c.ID },
			setID:    func(c *models.Contact, id int) { c.ID = id },
			clone:    (*models.Contact).Clone,
			validate: (*models.Contact).Validate,
		},
		leads: collection[*models.Lead]{
			kind:     "lead",
			id:       func(l *models.Lead) int { return l.ID },
			setID:    func(l *models.Lead, id int) { l.ID = id },
			clone:    func(l *models.Lead) *models.Lead { cp := *l; return &cp },
			validate: (*models.Lead).Validate,
		},
		campaigns: collection[*models.Campaign]{
			kind:     "campaign",
			id:       func(c *models.Campaign) int { return c.ID },
			setID:    func(c *models.Campaign, id int) { c.ID = id },
			clone:    (*models.Campaign).Clone,
			validate: (*models.Campaign).Validate,
		},
		documents: collection[*models.Document]{
			kind:     "document",
			id:       func(d *models.Document) int { return d.ID },
			setID:    func(d *models.Document, id int) { d.ID = id },
			clone:    (*models.Document).Clone,
			validate: (*models.Document).Validate,
		},
	}
}

// FromSnapshot builds a store from a persisted snapshot without re-running
// field validation. Stage strings that parse to a vocabulary member are
// rewritten to their canonical label.
func FromSnapshot(snap *models.Snapshot) *Store {
	s := New()
	if snap == nil {
		return s
	}
	snap = snap.Clone()
	for i := range snap.Contacts {
		c := &snap.Contacts[i]
		canonicalize(c)
		s.contacts.items = append(s.contacts.items, c)
	}
	for i := range snap.Leads {
		s.leads.items = append(s.leads.items, &snap.Leads[i])
	}
	for i := range snap.Campaigns {
		c := &snap.Campaigns[i]
		if c.SentTo == nil {
			c.SentTo = []int{}
		}
		s.campaigns.items = append(s.campaigns.items, c)
	}
	for i := range snap.Documents {
		s.documents.items = append(s.documents.items, &snap.Documents[i])
	}
	return s
}

func canonicalize(c *models.Contact) {
	if st, err := models.ParseStage(string(c.SalesStage)); err == nil {
		c.SalesStage = st
	}
	for i, h := range c.StageHistory {
		if st, err := models.ParseStage(string(h)); err == nil {
			c.StageHistory[i] = st
		}
	}
	if len(c.StageHistory) == 0 && c.SalesStage != "" {
		c.StageHistory = []models.Stage{c.SalesStage}
	}
	if c.Activities == nil {
		c.Activities = []models.Activity{}
	}
	if c.Tasks == nil {
		c.Tasks = []models.Task{}
	}
	if c.Documents == nil {
		c.Documents = []int{}
	}
}

// Snapshot returns a deep copy of every collection.
func (s *Store) Snapshot() *models.Snapshot {
	snap := models.EmptySnapshot()
	for _, c := range s.contacts.items {
		snap.Contacts = append(snap.Contacts, *c.Clone())
	}
	for _, l := range s.leads.items {
		snap.Leads = append(snap.Leads, *l)
	}
	for _, c := range s.campaigns.items {
		snap.Campaigns = append(snap.Campaigns, *c.Clone())
	}
	for _, d := range s.documents.items {
		snap.Documents = append(snap.Documents, *d.Clone())
	}
	return snap
}

// Contacts returns copies of every contact in insertion order.
func (s *Store) Contacts() []*models.Contact { return s.contacts.list() }

// Contact returns a copy of the contact with id.
func (s *Store) Contact(id int) (*models.Contact, error) { return s.contacts.get(id) }

// AddContact validates c, assigns it an identity and stores it.
func (s *Store) AddContact(c *models.Contact) (*models.Contact, error) {
	return s.contacts.add(c)
}

// UpdateContact applies fn to a copy of the contact and commits it if the
// result is still valid.
func (s *Store) UpdateContact(id int, fn func(*models.Contact) error) (*models.Contact, error) {
	return s.contacts.update(id, fn)
}

// DeleteContact removes the contact and clears document back-references to it.
func (s *Store) DeleteContact(id int) error {
	if _, err := s.contacts.delete(id); err != nil {
		return err
	}
	for _, d := range s.documents.items {
		if d.ContactID != nil && *d.ContactID == id {
			d.ContactID = nil
		}
	}
	return nil
}

// Leads returns copies of every lead, converted or not.
func (s *Store) Leads() []*models.Lead { return s.leads.list() }

// Lead returns a copy of the lead with id.
func (s *Store) Lead(id int) (*models.Lead, error) { return s.leads.get(id) }

// AddLead validates l, assigns it an identity and stores it.
func (s *Store) AddLead(l *models.Lead) (*models.Lead, error) { return s.leads.add(l) }

// UpdateLead applies fn to a copy of the lead. Converted leads are immutable.
func (s *Store) UpdateLead(id int, fn func(*models.Lead) error) (*models.Lead, error) {
	return s.leads.update(id, func(l *models.Lead) error {
		if l.Converted {
			return fmt.Errorf("lead %d: %w", id, models.ErrAlreadyConverted)
		}
		return fn(l)
	})
}

// DeleteLead removes the lead.
func (s *Store) DeleteLead(id int) error {
	_, err := s.leads.delete(id)
	return err
}

// Campaigns returns copies of every campaign.
func (s *Store) Campaigns() []*models.Campaign { return s.campaigns.list() }

// Campaign returns a copy of the campaign with id.
func (s *Store) Campaign(id int) (*models.Campaign, error) { return s.campaigns.get(id) }

// AddCampaign validates c, assigns it an identity and stores it.
func (s *Store) AddCampaign(c *models.Campaign) (*models.Campaign, error) {
	return s.campaigns.add(c)
}

// UpdateCampaign applies fn to a copy of the campaign. The recipient set may
// only grow.
func (s *Store) UpdateCampaign(id int, fn func(*models.Campaign) error) (*models.Campaign, error) {
	return s.campaigns.update(id, func(c *models.Campaign) error {
		before := append([]int(nil), c.SentTo...)
		if err := fn(c); err != nil {
			return err
		}
		for _, rid := range before {
			if !c.WasSentTo(rid) {
				return &models.ValidationError{Field: "sent_to", Reason: "recipients cannot be removed"}
			}
		}
		return nil
	})
}

// DeleteCampaign removes the campaign.
func (s *Store) DeleteCampaign(id int) error {
	_, err := s.campaigns.delete(id)
	return err
}

// Documents returns copies of every document.
func (s *Store) Documents() []*models.Document { return s.documents.list() }

// Document returns a copy of the document with id.
func (s *Store) Document(id int) (*models.Document, error) { return s.documents.get(id) }

// AddDocument stores d and, when it names a contact, links it to that contact.
func (s *Store) AddDocument(d *models.Document) (*models.Document, error) {
	var owner int
	if d.ContactID != nil {
		owner = *d.ContactID
		if s.contacts.index(owner) < 0 {
			return nil, models.NotFoundError("contact", owner)
		}
	}
	doc, err := s.documents.add(d)
	if err != nil {
		return nil, err
	}
	if doc.ContactID != nil {
		c := s.contacts.items[s.contacts.index(owner)]
		c.LinkDocument(doc.ID)
	}
	return doc, nil
}

// DeleteDocument removes the document and its contact reference.
func (s *Store) DeleteDocument(id int) error {
	doc, err := s.documents.delete(id)
	if err != nil {
		return err
	}
	if doc.ContactID != nil {
		if i := s.contacts.index(*doc.ContactID); i >= 0 {
			s.contacts.items[i].UnlinkDocument(id)
		}
	}
	return nil
}
