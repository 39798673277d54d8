package crm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/funnel/db"
	"github.com/harperreed/funnel/events"
	"github.com/harperreed/funnel/models"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder captures every envelope published on a bus.
type recorder struct {
	mu   sync.Mutex
	seen []events.Envelope
}

func (r *recorder) Handles(string) bool { return true }

func (r *recorder) Notify(_ context.Context, env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, env)
	return nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.seen))
	for i, env := range r.seen {
		out[i] = env.Name()
	}
	return out
}

type fixture struct {
	svc     *Service
	backend db.Backend
	path    string
	events  *recorder
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crm.json")
	backend := db.NewJSONFileBackend(path)
	rec := &recorder{}
	bus := events.NewBus(quietLogger())
	bus.Subscribe(rec)
	reg := prometheus.NewRegistry()

	base := []Option{
		WithBus(bus),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return fixedNow }),
		WithMetrics(reg),
	}
	svc, err := New(context.Background(), backend, append(base, opts...)...)
	require.NoError(t, err)
	return &fixture{svc: svc, backend: backend, path: path, events: rec, reg: reg}
}

func (f *fixture) contact(t *testing.T, name, email string) *models.Contact {
	t.Helper()
	c, err := f.svc.CreateContact(context.Background(), models.ContactInput{Name: name, Email: email, Phone: "(11) 98765-4321"})
	require.NoError(t, err)
	return c
}

func (f *fixture) reload(t *testing.T) *Service {
	t.Helper()
	svc, err := New(context.Background(), db.NewJSONFileBackend(f.path), WithLogger(quietLogger()))
	require.NoError(t, err)
	return svc
}

func TestUpdateStageAcceptsEveryVocabularySpelling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contact(t, "Ana", "ana@example.com")

	tests := []struct {
		in   string
		want models.Stage
	}{
		{"Lead", models.StageLead},
		{"prospect", models.StageProspect},
		{"PROPOSAL", models.StageProposal},
		{"negociação", models.StageNegotiation},
		{"Negociacao", models.StageNegotiation},
		{"venda fechada", models.StageClosedWon},
		{"closed_won", models.StageClosedWon},
		{"  proposta  ", models.StageProposal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := f.svc.UpdateStage(ctx, c.ID, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.SalesStage)
			assert.Equal(t, tt.want, got.StageHistory[len(got.StageHistory)-1])
		})
	}
}

func TestUpdateStageRejectsUnknownStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contact(t, "Ana", "ana@example.com")
	flushes := f.svc.Flushes()

	for _, bad := range []string{"", "Won Big", "Prospec", "Closed-Lost"} {
		_, err := f.svc.UpdateStage(ctx, c.ID, bad)
		assert.ErrorIs(t, err, models.ErrInvalidTransition, bad)
		assert.ErrorIs(t, err, models.ErrInvalidStage, bad)
	}

	got, err := f.svc.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageProspect, got.SalesStage)
	assert.Equal(t, []models.Stage{models.StageProspect}, got.StageHistory)
	assert.Empty(t, got.Activities)
	assert.Equal(t, flushes, f.svc.Flushes())
	assert.Empty(t, f.events.names())
}

func TestUpdateStageUnknownContact(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateStage(context.Background(), 9, "Proposal")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAnaScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.contact(t, "Ana", "ana@example.com")

	_, err := f.svc.UpdateStage(ctx, ana.ID, "Proposal")
	require.NoError(t, err)
	got, err := f.svc.UpdateStage(ctx, ana.ID, "Negotiation")
	require.NoError(t, err)

	assert.Equal(t, models.StageNegotiation, got.SalesStage)
	assert.Equal(t, []models.Stage{models.StageProspect, models.StageProposal, models.StageNegotiation}, got.StageHistory)
	require.Len(t, got.Activities, 2)
	assert.Equal(t, models.ActivityStageChange, got.Activities[1].Type)
	assert.Equal(t, "Stage changed from 'Proposal' to 'Negotiation'", got.Activities[1].Description)
	assert.Equal(t, []string{events.NameStageChanged, events.NameStageChanged}, f.events.names())

	reloaded := f.reload(t)
	persisted, err := reloaded.GetContact(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, got.StageHistory, persisted.StageHistory)
}

func TestConvertLeadTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, err := f.svc.CreateLead(ctx, models.LeadInput{Name: "Bruno Lima", Email: "Bruno@Example.com", Source: "indicação"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceReferral, lead.Source)
	assert.Equal(t, 50, lead.Score)

	contact, err := f.svc.ConvertLead(ctx, lead.ID, ConvertInput{Phone: "11 91234-5678", Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Bruno Lima", contact.Name)
	assert.Equal(t, "bruno@example.com", contact.Email)
	assert.Equal(t, models.InitialStage, contact.SalesStage)
	assert.Equal(t, []models.Stage{models.InitialStage}, contact.StageHistory)
	assert.Equal(t, "Converted from lead #1 (source: Referral)", contact.Notes)

	stored, err := f.svc.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, stored.Converted)

	leads := len(f.svc.ListLeads(ctx, LeadFilter{IncludeConverted: true}))
	contacts := len(f.svc.ListContacts(ctx))
	flushes := f.svc.Flushes()

	_, err = f.svc.ConvertLead(ctx, lead.ID, ConvertInput{Phone: "11 91234-5678"})
	assert.ErrorIs(t, err, models.ErrAlreadyConverted)
	assert.Len(t, f.svc.ListLeads(ctx, LeadFilter{IncludeConverted: true}), leads)
	assert.Len(t, f.svc.ListContacts(ctx), contacts)
	assert.Equal(t, flushes, f.svc.Flushes())
	assert.Empty(t, f.svc.ListLeads(ctx, LeadFilter{}), "converted leads are not active")
	assert.Equal(t, []string{events.NameLeadConverted}, f.events.names())
}

func TestConvertLeadFlushesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, err := f.svc.CreateLead(ctx, models.LeadInput{Name: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)

	before := f.svc.Flushes()
	_, err = f.svc.ConvertLead(ctx, lead.ID, ConvertInput{Phone: "11 91234-5678"})
	require.NoError(t, err)
	assert.Equal(t, before+1, f.svc.Flushes())

	reloaded := f.reload(t)
	l, err := reloaded.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, l.Converted)
	assert.Len(t, reloaded.ListContacts(ctx), 1)
}

func TestConvertLeadInvalidPhoneLeavesLeadActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, err := f.svc.CreateLead(ctx, models.LeadInput{Name: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)

	_, err = f.svc.ConvertLead(ctx, lead.ID, ConvertInput{Phone: "123"})
	assert.ErrorIs(t, err, models.ErrValidation)

	l, err := f.svc.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.False(t, l.Converted)
	assert.Empty(t, f.svc.ListContacts(ctx))

	_, err = f.svc.ConvertLead(ctx, 99, ConvertInput{Phone: "11 91234-5678"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateConvertedLeadFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, err := f.svc.CreateLead(ctx, models.LeadInput{Name: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)
	_, err = f.svc.ConvertLead(ctx, lead.ID, ConvertInput{Phone: "11 91234-5678"})
	require.NoError(t, err)

	name := "Other Name"
	_, err = f.svc.UpdateLead(ctx, lead.ID, LeadPatch{Name: &name})
	assert.ErrorIs(t, err, models.ErrAlreadyConverted)
}

func TestUpdateLeadRescoresOnSourceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, err := f.svc.CreateLead(ctx, models.LeadInput{Name: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 10, lead.Score)

	source := "evento"
	updated, err := f.svc.UpdateLead(ctx, lead.ID, LeadPatch{Source: &source})
	require.NoError(t, err)
	assert.Equal(t, models.SourceEvent, updated.Source)
	assert.Equal(t, 30, updated.Score)
}

func TestIdentityIsMaxPlusOneAcrossDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.contact(t, "Ana", "ana@example.com")
	b := f.contact(t, "Bia", "bia@example.com")
	require.NoError(t, f.svc.DeleteContact(ctx, a.ID))

	c := f.contact(t, "Caio", "caio@example.com")
	assert.Equal(t, b.ID+1, c.ID)

	require.NoError(t, f.svc.DeleteContact(ctx, c.ID))
	d := f.contact(t, "Duda", "duda@example.com")
	assert.Equal(t, b.ID+1, d.ID)
	assert.NotEqual(t, b.ID, d.ID)
}

func TestCompleteTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contact(t, "Ana", "ana@example.com")

	first, err := f.svc.AddTask(ctx, c.ID, models.TaskInput{Title: "Send deck", DueDate: "2026-03-10"})
	require.NoError(t, err)
	second, err := f.svc.AddTask(ctx, c.ID, models.TaskInput{Title: "Call back", DueDate: "15/03/2026"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, []int{first.ID, second.ID})

	done, err := f.svc.CompleteTask(ctx, c.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixedNow, *done.CompletedAt)

	pending, err := f.svc.PendingTasks(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Call back", pending[0].Title)

	_, err = f.svc.CompleteTask(ctx, c.ID, first.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyCompleted)
	_, err = f.svc.CompleteTask(ctx, c.ID, 42)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := f.svc.GetContact(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Activities, 1)
	assert.Equal(t, models.ActivityTaskCompleted, got.Activities[0].Type)
	assert.Equal(t, "Completed task: Send deck", got.Activities[0].Description)
	assert.Equal(t, []string{events.NameTaskCompleted}, f.events.names())
}

func TestAddActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contact(t, "Ana", "ana@example.com")

	a, err := f.svc.AddActivity(ctx, c.ID, models.ActivityInput{Type: "Ligação", Description: "Intro call"})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityCall, a.Type)
	assert.Equal(t, fixedNow, a.CreatedAt)

	_, err = f.svc.AddActivity(ctx, c.ID, models.ActivityInput{Type: "fax", Description: "x"})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.svc.AddActivity(ctx, c.ID, models.ActivityInput{Type: "note", Description: "   "})
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, []string{events.NameActivityAdded}, f.events.names())
}

func TestUpdateContactPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contact(t, "Ana", "ana@example.com")

	company := "  Acme Ltda "
	got, err := f.svc.UpdateContact(ctx, c.ID, ContactPatch{Company: &company})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltda", got.Company)
	assert.Equal(t, c.Email, got.Email)

	bad := "not-an-email"
	_, err = f.svc.UpdateContact(ctx, c.ID, ContactPatch{Email: &bad})
	assert.ErrorIs(t, err, models.ErrValidation)
	still, err := f.svc.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", still.Email)
}

func TestFindContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.contact(t, "José Álvares", "jose@example.com")
	f.contact(t, "Maria", "maria@acme.com")

	assert.Len(t, f.svc.FindContacts(ctx, "jose"), 1)
	assert.Len(t, f.svc.FindContacts(ctx, "ALVARES"), 1)
	assert.Len(t, f.svc.FindContacts(ctx, "acme"), 1)
	assert.Len(t, f.svc.FindContacts(ctx, ""), 2)
	assert.Empty(t, f.svc.FindContacts(ctx, "nobody"))
}

func TestDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contact(t, "Ana", "ana@example.com")

	owner := c.ID
	d, err := f.svc.AddDocument(ctx, models.DocumentInput{Title: "Proposal v1", FilePath: "/docs/p1.pdf", Type: "proposta", ContactID: &owner})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentProposal, d.Type)

	general, err := f.svc.AddDocument(ctx, models.DocumentInput{Title: "Price list", FilePath: "/docs/prices.pdf"})
	require.NoError(t, err)
	assert.Nil(t, general.ContactID)

	got, err := f.svc.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{d.ID}, got.Documents)
	assert.Len(t, f.svc.ListDocuments(ctx), 2)

	require.NoError(t, f.svc.DeleteDocument(ctx, d.ID))
	got, err = f.svc.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Documents)
}

func TestImportLeads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.contact(t, "Ana", "ana@example.com")

	before := f.svc.Flushes()
	res, err := f.svc.ImportLeads(ctx, []models.LeadInput{
		{Name: "Bruno", Email: "bruno@example.com", Source: "redes sociais"},
		{Name: "Ana", Email: "ANA@example.com"},
		{Name: "", Email: "nobody@example.com"},
		{Name: "Bruno Again", Email: "bruno@example.com"},
		{Name: "Carla", Email: "carla@example.com", Source: "evento"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, 1, res.Invalid)
	require.Len(t, res.Outcomes, 5)
	assert.Equal(t, ImportCreated, res.Outcomes[0].Status)
	assert.Equal(t, ImportDuplicate, res.Outcomes[1].Status)
	assert.Equal(t, ImportInvalid, res.Outcomes[2].Status)
	assert.Equal(t, ImportDuplicate, res.Outcomes[3].Status)
	assert.Equal(t, before+1, f.svc.Flushes())

	again, err := f.svc.ImportLeads(ctx, []models.LeadInput{{Name: "Bruno", Email: "bruno@example.com"}})
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, before+1, f.svc.Flushes(), "nothing created, nothing flushed")
}

// failingBackend loads empty and fails every save.
type failingBackend struct{ saves int }

func (b *failingBackend) Load(context.Context) (*models.Snapshot, error) {
	return models.EmptySnapshot(), nil
}

func (b *failingBackend) Save(context.Context, *models.Snapshot) error {
	b.saves++
	return errors.New("disk full")
}

func (b *failingBackend) Close() error { return nil }

func TestFlushFailureKeepsInMemoryState(t *testing.T) {
	backend := &failingBackend{}
	reg := prometheus.NewRegistry()
	svc, err := New(context.Background(), backend, WithLogger(quietLogger()), WithMetrics(reg))
	require.NoError(t, err)

	c, err := svc.CreateContact(context.Background(), models.ContactInput{Name: "Ana", Email: "ana@example.com", Phone: "11987654321"})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.saves)
	assert.Error(t, svc.LastFlushError())

	got, err := svc.GetContact(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, float64(1), testutil.ToFloat64(svc.metrics.flushFailures))
}

func TestCorruptSnapshotStartsDegraded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"contacts": [`), 0644))

	svc, err := New(context.Background(), db.NewJSONFileBackend(path), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, svc.Degraded())
	assert.Empty(t, svc.ListContacts(context.Background()))

	_, err = svc.CreateContact(context.Background(), models.ContactInput{Name: "Ana", Email: "ana@example.com", Phone: "11987654321"})
	require.NoError(t, err)
	assert.NoError(t, svc.LastFlushError())
}

func TestCorruptSQLiteFileStartsDegraded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.db")
	require.NoError(t, os.WriteFile(path, []byte("junk bytes where a database should be, long enough to fill a header"), 0644))

	backend, err := db.Open(db.KindSQLite, path)
	require.NoError(t, err)
	svc, err := New(context.Background(), backend, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	assert.True(t, svc.Degraded())

	_, err = svc.CreateContact(context.Background(), models.ContactInput{Name: "Ana", Email: "ana@example.com", Phone: "11987654321"})
	require.NoError(t, err)
	assert.NoError(t, svc.LastFlushError())
}

func TestRoundTripThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contact(t, "Ana", "ana@example.com")
	_, err := f.svc.UpdateStage(ctx, c.ID, "Proposta")
	require.NoError(t, err)
	_, err = f.svc.AddTask(ctx, c.ID, models.TaskInput{Title: "Send deck", DueDate: "2026-03-10"})
	require.NoError(t, err)
	camp, err := f.svc.CreateCampaign(ctx, models.CampaignInput{Title: "Promo", Description: "Spring", TargetStage: "Todos"})
	require.NoError(t, err)
	_, err = f.svc.SendCampaign(ctx, camp.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateLead(ctx, models.LeadInput{Name: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)

	reloaded := f.reload(t)
	assert.ElementsMatch(t, f.svc.ListContacts(ctx), reloaded.ListContacts(ctx))
	assert.ElementsMatch(t, f.svc.ListCampaigns(ctx), reloaded.ListCampaigns(ctx))
	assert.ElementsMatch(t, f.svc.ListLeads(ctx, LeadFilter{IncludeConverted: true}), reloaded.ListLeads(ctx, LeadFilter{IncludeConverted: true}))
}

func TestObserverFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	var after int
	f.svc.Bus().Subscribe(events.ObserverFunc(func(context.Context, events.Envelope) error {
		return errors.New("observer down")
	}))
	f.svc.Bus().Subscribe(events.ObserverFunc(func(context.Context, events.Envelope) error {
		after++
		return nil
	}))

	c := f.contact(t, "Ana", "ana@example.com")
	_, err := f.svc.UpdateStage(context.Background(), c.ID, "Proposal")
	require.NoError(t, err)
	assert.Equal(t, 1, after)
}

func TestObserverMayReadServiceDuringPublish(t *testing.T) {
	f := newFixture(t)
	var seen *models.Contact
	f.svc.Bus().Subscribe(events.ObserverFunc(func(ctx context.Context, env events.Envelope) error {
		ev := env.Event.(events.StageChanged)
		c, err := f.svc.GetContact(ctx, ev.Contact.ID)
		seen = c
		return err
	}, events.NameStageChanged))

	c := f.contact(t, "Ana", "ana@example.com")
	_, err := f.svc.UpdateStage(context.Background(), c.ID, "Proposal")
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, models.StageProposal, seen.SalesStage)
}

func TestMetricsRecordOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.contact(t, "Ana", "ana@example.com")
	_, err := f.svc.UpdateStage(ctx, 1, "bogus")
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.svc.metrics.outcomes.WithLabelValues(OpCreateContact, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.svc.metrics.outcomes.WithLabelValues(OpUpdateStage, "invalid_transition")))
}

func TestCustomMiddlewareSeesEveryMutation(t *testing.T) {
	var ops []string
	record := func(next Handler) Handler {
		return func(ctx context.Context, call Call) error {
			ops = append(ops, call.Op)
			return next(ctx, call)
		}
	}
	f := newFixture(t, WithMiddleware(record))
	ctx := context.Background()
	c := f.contact(t, "Ana", "ana@example.com")
	_, err := f.svc.UpdateStage(ctx, c.ID, "Proposal")
	require.NoError(t, err)
	f.svc.ListContacts(ctx)

	assert.Equal(t, []string{OpCreateContact, OpUpdateStage}, ops)
}
