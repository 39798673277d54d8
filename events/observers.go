// ABOUTME: Reference observers reacting to lifecycle events
// ABOUTME: Email outbox, prometheus-backed analytics and sales alerts
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harperreed/funnel/models"
)

// Message is one notification queued by EmailNotifier. Nothing is sent.
type Message struct {
	To      string
	Subject string
	Body    string
	QueueAt time.Time
}

// EmailNotifier renders customer-facing emails into an in-memory outbox.
type EmailNotifier struct {
	mu     sync.Mutex
	outbox []Message
}

// NewEmailNotifier creates a notifier with an empty outbox.
func NewEmailNotifier() *EmailNotifier { return &EmailNotifier{} }

func (n *EmailNotifier) Handles(name string) bool {
	switch name {
	case NameLeadConverted, NameStageChanged, NameTaskCompleted, NameCampaignSent:
		return true
	}
	return false
}

func (n *EmailNotifier) Notify(_ context.Context, env Envelope) error {
	var msgs []Message
	switch ev := env.Event.(type) {
	case LeadConverted:
		msgs = append(msgs, Message{
			To:      ev.Contact.Email,
			Subject: "Welcome aboard",
			Body:    fmt.Sprintf("Hi %s, thanks for your interest. We'll be in touch soon.", ev.Contact.Name),
		})
	case StageChanged:
		msgs = append(msgs, Message{
			To:      ev.Contact.Email,
			Subject: fmt.Sprintf("Your process moved to %s", ev.NewStage),
			Body:    fmt.Sprintf("Hi %s, your process moved from %s to %s.", ev.Contact.Name, ev.OldStage, ev.NewStage),
		})
	case TaskCompleted:
		msgs = append(msgs, Message{
			To:      ev.Contact.Email,
			Subject: "Task completed",
			Body:    fmt.Sprintf("Hi %s, we completed: %s.", ev.Contact.Name, ev.Task.Title),
		})
	case CampaignSent:
		if len(ev.Contacts) != len(ev.Recipients) {
			return fmt.Errorf("campaign %d: %d recipients but %d contacts", ev.Campaign.ID, len(ev.Recipients), len(ev.Contacts))
		}
		for _, c := range ev.Contacts {
			msgs = append(msgs, Message{
				To:      c.Email,
				Subject: ev.Campaign.Title,
				Body:    ev.Campaign.Description,
			})
		}
	default:
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range msgs {
		msgs[i].QueueAt = env.PublishedAt
	}
	n.outbox = append(n.outbox, msgs...)
	return nil
}

// Outbox returns a copy of every queued message.
func (n *EmailNotifier) Outbox() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.outbox...)
}

// AnalyticsUpdater counts conversions, stage entries and activities, both in
// memory and as prometheus counters.
type AnalyticsUpdater struct {
	mu          sync.Mutex
	conversions int
	stageMoves  map[models.Stage]int
	activities  map[string]int

	events       *prometheus.CounterVec
	stageEntries *prometheus.CounterVec
}

// NewAnalyticsUpdater registers its collectors with reg. A nil reg keeps the
// collectors unregistered.
func NewAnalyticsUpdater(reg prometheus.Registerer) (*AnalyticsUpdater, error) {
	a := &AnalyticsUpdater{
		stageMoves: map[models.Stage]int{},
		activities: map[string]int{},
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "funnel",
			Name:      "events_total",
			Help:      "Lifecycle events observed, by event name.",
		}, []string{"event"}),
		stageEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "funnel",
			Name:      "stage_entries_total",
			Help:      "Contacts entering each stage.",
		}, []string{"stage"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{a.events, a.stageEntries} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register analytics collector: %w", err)
			}
		}
	}
	return a, nil
}

func (a *AnalyticsUpdater) Handles(name string) bool {
	switch name {
	case NameLeadConverted, NameActivityAdded, NameStageChanged:
		return true
	}
	return false
}

func (a *AnalyticsUpdater) Notify(_ context.Context, env Envelope) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events.WithLabelValues(env.Name()).Inc()
	switch ev := env.Event.(type) {
	case LeadConverted:
		a.conversions++
		a.stageMoves[ev.Contact.SalesStage]++
		a.stageEntries.WithLabelValues(string(ev.Contact.SalesStage)).Inc()
	case StageChanged:
		a.stageMoves[ev.NewStage]++
		a.stageEntries.WithLabelValues(string(ev.NewStage)).Inc()
	case ActivityAdded:
		a.activities[ev.Activity.Type]++
	}
	return nil
}

// Tally is a point-in-time copy of the analytics counters.
type Tally struct {
	Conversions  int
	StageEntries map[models.Stage]int
	Activities   map[string]int
}

// Tally returns the current counters.
func (a *AnalyticsUpdater) Tally() Tally {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := Tally{
		Conversions:  a.conversions,
		StageEntries: make(map[models.Stage]int, len(a.stageMoves)),
		Activities:   make(map[string]int, len(a.activities)),
	}
	for k, v := range a.stageMoves {
		t.StageEntries[k] = v
	}
	for k, v := range a.activities {
		t.Activities[k] = v
	}
	return t
}

// Alert is a message for the sales team.
type Alert struct {
	ContactID int
	Text      string
	At        time.Time
}

// SalesNotifier raises alerts for new contacts and for contacts that reach
// the closing stages.
type SalesNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

// NewSalesNotifier creates an empty notifier.
func NewSalesNotifier() *SalesNotifier { return &SalesNotifier{} }

func (s *SalesNotifier) Handles(name string) bool {
	return name == NameLeadConverted || name == NameStageChanged
}

func (s *SalesNotifier) Notify(_ context.Context, env Envelope) error {
	var alert Alert
	switch ev := env.Event.(type) {
	case LeadConverted:
		alert = Alert{
			ContactID: ev.Contact.ID,
			Text:      fmt.Sprintf("New contact %s converted from lead #%d (%s)", ev.Contact.Name, ev.Lead.ID, ev.Lead.Source),
		}
	case StageChanged:
		if ev.NewStage != models.StageProposal && ev.NewStage != models.StageNegotiation {
			return nil
		}
		alert = Alert{
			ContactID: ev.Contact.ID,
			Text:      fmt.Sprintf("%s reached %s, follow up", ev.Contact.Name, ev.NewStage),
		}
	default:
		return nil
	}
	alert.At = env.PublishedAt

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

// Alerts returns a copy of every alert raised so far.
func (s *SalesNotifier) Alerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.alerts...)
}
