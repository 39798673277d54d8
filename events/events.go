// ABOUTME: Lifecycle event variants broadcast by the notification bus
// ABOUTME: One struct per event kind, each carrying copies of the affected entities
package events

import (
	"time"

	"github.com/harperreed/funnel/models"
)

// Event names.
const (
	NameLeadConverted = "lead_converted"
	NameStageChanged  = "stage_changed"
	NameTaskCompleted = "task_completed"
	NameActivityAdded = "activity_added"
	NameCampaignSent  = "campaign_sent"
)

// Event is implemented by every lifecycle event variant.
type Event interface {
	Name() string
}

// LeadConverted is published after a lead becomes a contact.
type LeadConverted struct {
	Contact models.Contact
	Lead    models.Lead
}

func (LeadConverted) Name() string { return NameLeadConverted }

// StageChanged is published after a contact moves to a new stage.
type StageChanged struct {
	Contact  models.Contact
	OldStage models.Stage
	NewStage models.Stage
}

func (StageChanged) Name() string { return NameStageChanged }

// TaskCompleted is published after a pending task is completed.
type TaskCompleted struct {
	Contact models.Contact
	Task    models.Task
}

func (TaskCompleted) Name() string { return NameTaskCompleted }

// ActivityAdded is published after an activity is recorded by hand.
type ActivityAdded struct {
	Contact  models.Contact
	Activity models.Activity
}

func (ActivityAdded) Name() string { return NameActivityAdded }

// CampaignSent is published after a campaign reaches at least one new recipient.
// Contacts holds the newly reached contacts in Recipients order.
type CampaignSent struct {
	Campaign   models.Campaign
	Recipients []int
	Contacts   []models.Contact
}

func (CampaignSent) Name() string { return NameCampaignSent }

// Envelope wraps an event with its delivery metadata.
type Envelope struct {
	ID          string
	PublishedAt time.Time
	Event       Event
}

// Name returns the wrapped event's name.
func (e Envelope) Name() string { return e.Event.Name() }
