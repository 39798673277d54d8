package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/funnel/models"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newContact(t *testing.T, name, email string) *models.Contact {
	t.Helper()
	c, err := models.NewContact(models.ContactInput{Name: name, Email: email, Phone: "11 9876-5432"}, now)
	require.NoError(t, err)
	return c
}

func TestAddContactAssignsMaxPlusOne(t *testing.T) {
	s := New()

	a, err := s.AddContact(newContact(t, "Ana", "ana@example.com"))
	require.NoError(t, err)
	b, err := s.AddContact(newContact(t, "Bia", "bia@example.com"))
	require.NoError(t, err)
	c, err := s.AddContact(newContact(t, "Caio", "caio@example.com"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int{a.ID, b.ID, c.ID})

	// Deleting from the middle must not make the next id collide with a live one.
	require.NoError(t, s.DeleteContact(2))
	d, err := s.AddContact(newContact(t, "Duda", "duda@example.com"))
	require.NoError(t, err)
	assert.Equal(t, 4, d.ID)

	require.NoError(t, s.DeleteContact(4))
	e, err := s.AddContact(newContact(t, "Edu", "edu@example.com"))
	require.NoError(t, err)
	assert.Equal(t, 4, e.ID)

	live := map[int]bool{}
	for _, c := range s.Contacts() {
		assert.False(t, live[c.ID], "duplicate id %d", c.ID)
		live[c.ID] = true
	}
}

func TestAddContactRejectsInvalid(t *testing.T) {
	s := New()
	bad := newContact(t, "Ana", "ana@example.com")
	bad.Email = "nope"

	_, err := s.AddContact(bad)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, s.Contacts())
}

func TestGetUnknownIsNotFound(t *testing.T) {
	s := New()
	_, err := s.Contact(42)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.Lead(42)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.Campaign(42)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDocument(42), models.ErrNotFound)
}

func TestUpdateContactIsAllOrNothing(t *testing.T) {
	s := New()
	c, err := s.AddContact(newContact(t, "Ana", "ana@example.com"))
	require.NoError(t, err)

	_, err = s.UpdateContact(c.ID, func(c *models.Contact) error {
		c.SetStage(models.StageProposal)
		c.Phone = "12"
		return nil
	})
	require.ErrorIs(t, err, models.ErrValidation)

	got, err := s.Contact(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageProspect, got.SalesStage)
	assert.Len(t, got.StageHistory, 1)
	assert.Equal(t, "11 9876-5432", got.Phone)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := New()
	c, err := s.AddContact(newContact(t, "Ana", "ana@example.com"))
	require.NoError(t, err)

	c.SetStage(models.StageClosedWon)
	got, err := s.Contact(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageProspect, got.SalesStage)
}

func TestConvertedLeadIsImmutable(t *testing.T) {
	s := New()
	l, err := models.NewLead(models.LeadInput{Name: "Bruno", Email: "bruno@example.com"}, now)
	require.NoError(t, err)
	l, err = s.AddLead(l)
	require.NoError(t, err)

	_, err = s.UpdateLead(l.ID, func(l *models.Lead) error {
		l.Converted = true
		return nil
	})
	require.NoError(t, err)

	_, err = s.UpdateLead(l.ID, func(l *models.Lead) error {
		l.Name = "Someone Else"
		return nil
	})
	assert.ErrorIs(t, err, models.ErrAlreadyConverted)
}

func TestCampaignRecipientsOnlyGrow(t *testing.T) {
	s := New()
	c, err := models.NewCampaign(models.CampaignInput{Title: "Promo", Description: "Spring", TargetStage: "All"}, now)
	require.NoError(t, err)
	c, err = s.AddCampaign(c)
	require.NoError(t, err)

	_, err = s.UpdateCampaign(c.ID, func(c *models.Campaign) error {
		c.MarkSent(1)
		c.MarkSent(2)
		return nil
	})
	require.NoError(t, err)

	_, err = s.UpdateCampaign(c.ID, func(c *models.Campaign) error {
		c.SentTo = []int{2}
		return nil
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	got, err := s.Campaign(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got.SentTo)
}

func TestDocumentsLinkAndUnlink(t *testing.T) {
	s := New()
	c, err := s.AddContact(newContact(t, "Ana", "ana@example.com"))
	require.NoError(t, err)

	owner := c.ID
	d, err := models.NewDocument(models.DocumentInput{Title: "Proposal", FilePath: "/docs/p.pdf", ContactID: &owner}, now)
	require.NoError(t, err)
	d, err = s.AddDocument(d)
	require.NoError(t, err)

	got, err := s.Contact(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{d.ID}, got.Documents)

	missing := 99
	orphan, err := models.NewDocument(models.DocumentInput{Title: "X", FilePath: "/x", ContactID: &missing}, now)
	require.NoError(t, err)
	_, err = s.AddDocument(orphan)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.DeleteDocument(d.ID))
	got, err = s.Contact(c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Documents)
}

func TestDeleteContactClearsDocumentOwner(t *testing.T) {
	s := New()
	c, err := s.AddContact(newContact(t, "Ana", "ana@example.com"))
	require.NoError(t, err)
	owner := c.ID
	d, err := models.NewDocument(models.DocumentInput{Title: "Contract", FilePath: "/c.pdf", ContactID: &owner}, now)
	require.NoError(t, err)
	d, err = s.AddDocument(d)
	require.NoError(t, err)

	require.NoError(t, s.DeleteContact(c.ID))
	doc, err := s.Document(d.ID)
	require.NoError(t, err)
	assert.Nil(t, doc.ContactID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	c, err := s.AddContact(newContact(t, "Ana", "ana@example.com"))
	require.NoError(t, err)
	_, err = s.UpdateContact(c.ID, func(c *models.Contact) error {
		c.SetStage(models.StageProposal)
		return nil
	})
	require.NoError(t, err)

	restored := FromSnapshot(s.Snapshot())
	assert.Equal(t, s.Snapshot(), restored.Snapshot())
}

func TestFromSnapshotCanonicalizesStages(t *testing.T) {
	snap := models.EmptySnapshot()
	snap.Contacts = append(snap.Contacts, models.Contact{
		ID:           5,
		Name:         "Ana",
		Email:        "ana@example.com",
		Phone:        "12345678",
		SalesStage:   "negociação",
		StageHistory: []models.Stage{"prospecto", "negociação"},
	})

	s := FromSnapshot(snap)
	c, err := s.Contact(5)
	require.NoError(t, err)
	assert.Equal(t, models.StageNegotiation, c.SalesStage)
	assert.Equal(t, []models.Stage{models.StageProspect, models.StageNegotiation}, c.StageHistory)
	assert.NotNil(t, c.Activities)
	assert.NoError(t, c.Validate())
}
