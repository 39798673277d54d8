// ABOUTME: Data models for pipeline entities
// ABOUTME: Defines Contact, Lead, Campaign, Activity, Task, Document and their validated constructors
package models

import (
	"strings"
	"time"
)

// Activity is an immutable timeline entry owned by a contact.
type Activity struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActivityInput carries the user-supplied fields of an activity.
type ActivityInput struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// NewActivity validates in and stamps the activity with now.
func NewActivity(in ActivityInput, now time.Time) (Activity, error) {
	typ, err := ParseActivityType(in.Type)
	if err != nil {
		return Activity{}, err
	}
	desc, err := RequireText("description", in.Description)
	if err != nil {
		return Activity{}, err
	}
	return Activity{Type: typ, Description: desc, CreatedAt: now}, nil
}

// Task is a to-do item owned by a contact. Completion is one-way.
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	DueDate     time.Time  `json:"due_date"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TaskInput carries the user-supplied fields of a task.
type TaskInput struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
}

// NewTask validates in. The id is assigned when the task joins a contact.
func NewTask(in TaskInput) (Task, error) {
	title, err := RequireText("title", in.Title)
	if err != nil {
		return Task{}, err
	}
	due, err := ValidateDate(in.DueDate)
	if err != nil {
		return Task{}, err
	}
	return Task{Title: title, DueDate: due}, nil
}

// Contact is a qualified person progressing through the funnel.
type Contact struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Company      string     `json:"company,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	SalesStage   Stage      `json:"sales_stage"`
	StageHistory []Stage    `json:"stage_history"`
	Activities   []Activity `json:"activities"`
	Tasks        []Task     `json:"tasks"`
	Documents    []int      `json:"documents"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ContactInput carries the user-supplied fields of a contact.
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// NewContact validates in and returns a contact in InitialStage.
func NewContact(in ContactInput, now time.Time) (*Contact, error) {
	c := &Contact{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Company:      strings.TrimSpace(in.Company),
		Notes:        strings.TrimSpace(in.Notes),
		SalesStage:   InitialStage,
		StageHistory: []Stage{InitialStage},
		Activities:   []Activity{},
		Tasks:        []Task{},
		Documents:    []int{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate normalizes the contact fields in place and checks its invariants.
func (c *Contact) Validate() error {
	var err error
	if c.Name, err = ValidateName(c.Name); err != nil {
		return err
	}
	if c.Email, err = ValidateEmail(c.Email); err != nil {
		return err
	}
	if c.Phone, err = ValidatePhone(c.Phone); err != nil {
		return err
	}
	if !c.SalesStage.IsValid() {
		return invalid("sales_stage", "not in stage vocabulary")
	}
	if len(c.StageHistory) == 0 || c.StageHistory[len(c.StageHistory)-1] != c.SalesStage {
		return invalid("stage_history", "must end with the current stage")
	}
	return nil
}

// SetStage moves the contact to stage, recording it in the history.
func (c *Contact) SetStage(stage Stage) (old Stage) {
	old = c.SalesStage
	c.SalesStage = stage
	c.StageHistory = append(c.StageHistory, stage)
	return old
}

// AddTask appends t with the next free per-contact id and returns it.
func (c *Contact) AddTask(t Task) Task {
	next := 1
	for _, existing := range c.Tasks {
		if existing.ID >= next {
			next = existing.ID + 1
		}
	}
	t.ID = next
	c.Tasks = append(c.Tasks, t)
	return t
}

// Task returns a pointer to the task with id, or nil.
func (c *Contact) Task(id int) *Task {
	for i := range c.Tasks {
		if c.Tasks[i].ID == id {
			return &c.Tasks[i]
		}
	}
	return nil
}

// PendingTasks returns the tasks not yet completed, in creation order.
func (c *Contact) PendingTasks() []Task {
	pending := []Task{}
	for _, t := range c.Tasks {
		if !t.Completed {
			pending = append(pending, t)
		}
	}
	return pending
}

// LinkDocument records a reference to document id once.
func (c *Contact) LinkDocument(id int) {
	for _, d := range c.Documents {
		if d == id {
			return
		}
	}
	c.Documents = append(c.Documents, id)
}

// UnlinkDocument drops the reference to document id.
func (c *Contact) UnlinkDocument(id int) {
	kept := c.Documents[:0]
	for _, d := range c.Documents {
		if d != id {
			kept = append(kept, d)
		}
	}
	c.Documents = kept
}

// Clone returns a deep copy of the contact.
func (c *Contact) Clone() *Contact {
	cp := *c
	cp.StageHistory = cloneSlice(c.StageHistory)
	cp.Activities = cloneSlice(c.Activities)
	cp.Documents = cloneSlice(c.Documents)
	if c.Tasks != nil {
		cp.Tasks = make([]Task, len(c.Tasks))
		for i, t := range c.Tasks {
			cp.Tasks[i] = t
			if t.CompletedAt != nil {
				at := *t.CompletedAt
				cp.Tasks[i].CompletedAt = &at
			}
		}
	}
	return &cp
}

// Lead is an unqualified prospect. Conversion is one-way.
type Lead struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	Score     int       `json:"score"`
	Converted bool      `json:"converted"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadInput carries the user-supplied fields of a lead.
type LeadInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Source string `json:"source,omitempty"`
}

// NewLead validates in and scores the lead from its source.
func NewLead(in LeadInput, now time.Time) (*Lead, error) {
	source, err := ParseSource(in.Source)
	if err != nil {
		return nil, err
	}
	l := &Lead{
		Name:      in.Name,
		Email:     in.Email,
		Source:    source,
		Score:     ScoreForSource(source),
		CreatedAt: now,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate normalizes the lead fields in place and checks its invariants.
func (l *Lead) Validate() error {
	var err error
	if l.Name, err = ValidateName(l.Name); err != nil {
		return err
	}
	if l.Email, err = ValidateEmail(l.Email); err != nil {
		return err
	}
	if l.Source, err = ParseSource(l.Source); err != nil {
		return err
	}
	if l.Score < 0 {
		return invalid("score", "must not be negative")
	}
	return nil
}

// Campaign is an email campaign aimed at one stage or at every contact.
type Campaign struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TargetStage string    `json:"target_stage"`
	SentTo      []int     `json:"sent_to"`
	CreatedAt   time.Time `json:"created_at"`
}

// CampaignInput carries the user-supplied fields of a campaign.
type CampaignInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetStage string `json:"target_stage"`
}

// NewCampaign validates in and returns a campaign that has reached nobody.
func NewCampaign(in CampaignInput, now time.Time) (*Campaign, error) {
	c := &Campaign{
		Title:       in.Title,
		Description: in.Description,
		TargetStage: in.TargetStage,
		SentTo:      []int{},
		CreatedAt:   now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate normalizes the campaign fields in place and checks its invariants.
func (c *Campaign) Validate() error {
	var err error
	if c.Title, err = RequireText("title", c.Title); err != nil {
		return err
	}
	if c.Description, err = RequireText("description", c.Description); err != nil {
		return err
	}
	if strings.TrimSpace(c.TargetStage) == "" {
		return invalid("target_stage", "must not be empty")
	}
	target, err := ParseTarget(c.TargetStage)
	if err != nil {
		return invalid("target_stage", err.Error())
	}
	c.TargetStage = target
	seen := make(map[int]bool, len(c.SentTo))
	for _, id := range c.SentTo {
		if seen[id] {
			return invalid("sent_to", "contains duplicates")
		}
		seen[id] = true
	}
	return nil
}

// WasSentTo reports whether contactID already received the campaign.
func (c *Campaign) WasSentTo(contactID int) bool {
	for _, id := range c.SentTo {
		if id == contactID {
			return true
		}
	}
	return false
}

// MarkSent adds contactID to SentTo unless present, reporting whether it was added.
func (c *Campaign) MarkSent(contactID int) bool {
	if c.WasSentTo(contactID) {
		return false
	}
	c.SentTo = append(c.SentTo, contactID)
	return true
}

// Clone returns a deep copy of the campaign.
func (c *Campaign) Clone() *Campaign {
	cp := *c
	cp.SentTo = cloneSlice(c.SentTo)
	return &cp
}

// Document is a file known to the system, optionally referenced by one contact.
type Document struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	FilePath  string    `json:"file_path"`
	Type      string    `json:"type"`
	ContactID *int      `json:"contact_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentInput carries the user-supplied fields of a document.
type DocumentInput struct {
	Title     string `json:"title"`
	FilePath  string `json:"file_path"`
	Type      string `json:"type,omitempty"`
	ContactID *int   `json:"contact_id,omitempty"`
}

// NewDocument validates in.
func NewDocument(in DocumentInput, now time.Time) (*Document, error) {
	d := &Document{
		Title:     in.Title,
		FilePath:  in.FilePath,
		Type:      in.Type,
		ContactID: in.ContactID,
		CreatedAt: now,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate normalizes the document fields in place.
func (d *Document) Validate() error {
	var err error
	if d.Title, err = RequireText("title", d.Title); err != nil {
		return err
	}
	if d.FilePath, err = RequireText("file_path", d.FilePath); err != nil {
		return err
	}
	if d.Type, err = ParseDocumentType(d.Type); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	cp := *d
	if d.ContactID != nil {
		id := *d.ContactID
		cp.ContactID = &id
	}
	return &cp
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
