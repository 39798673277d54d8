// ABOUTME: Snapshot is the full entity set exchanged with persistence backends
// ABOUTME: Four named top-level collections: contacts, campaigns, leads, documents
package models

// Snapshot is the persisted form of the whole entity store.
type Snapshot struct {
	Contacts  []Contact  `json:"contacts"`
	Campaigns []Campaign `json:"campaigns"`
	Leads     []Lead     `json:"leads"`
	Documents []Document `json:"documents"`
}

// EmptySnapshot returns a snapshot with empty, non-nil collections.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Contacts:  []Contact{},
		Campaigns: []Campaign{},
		Leads:     []Lead{},
		Documents: []Document{},
	}
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	out := EmptySnapshot()
	for i := range s.Contacts {
		out.Contacts = append(out.Contacts, *s.Contacts[i].Clone())
	}
	for i := range s.Campaigns {
		out.Campaigns = append(out.Campaigns, *s.Campaigns[i].Clone())
	}
	out.Leads = append(out.Leads, s.Leads...)
	for i := range s.Documents {
		out.Documents = append(out.Documents, *s.Documents[i].Clone())
	}
	return out
}

// Len returns the number of entities across every collection.
func (s *Snapshot) Len() int {
	return len(s.Contacts) + len(s.Campaigns) + len(s.Leads) + len(s.Documents)
}
