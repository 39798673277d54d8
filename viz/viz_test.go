package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

type fakePipeline struct {
	contacts []*models.Contact
	summary  crm.Summary
	conv     crm.ConversionReport
}

func (f *fakePipeline) ListContacts(context.Context) []*models.Contact { return f.contacts }
func (f *fakePipeline) Summary(context.Context) crm.Summary { return f.summary }
func (f *fakePipeline) ConversionReport(context.Context) crm.ConversionReport { return f.conv }

func history(stages ...models.Stage) *models.Contact {
	return &models.Contact{
		Name:         "Someone",
		SalesStage:   stages[len(stages)-1],
		StageHistory: stages,
	}
}

func TestTransitionsCountsConsecutivePairs(t *testing.T) {
	contacts := []*models.Contact{
		history(models.StageProspect, models.StageProposal, models.StageNegotiation),
		history(models.StageProspect, "proposta"),
		history(models.StageProspect, models.StageProposal, models.StageProspect),
		history(models.StageProspect),
	}

	assert.Equal(t, []Transition{
		{From: "Prospect", To: "Proposal", Count: 3},
		{From: "Proposal", To: "Prospect", Count: 1},
		{From: "Proposal", To: "Negotiation", Count: 1},
	}, Transitions(contacts))
}

func TestTransitionsGroupsUnknownStages(t *testing.T) {
	got := Transitions([]*models.Contact{history(models.StageProspect, "Perdido")})
	require.Len(t, got, 1)
	assert.Equal(t, otherStage, got[0].To)
	assert.Empty(t, Transitions(nil))
}

func TestGenerateStageGraph(t *testing.T) {
	p := &fakePipeline{contacts: []*models.Contact{
		history(models.StageProspect, models.StageProposal),
		history(models.StageProspect, models.StageProposal, models.StageClosedWon),
	}}

	dot, err := NewGraphGenerator(p).GenerateStageGraph(context.Background())
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "Proposal")
	assert.Contains(t, dot, "Closed-Won")
}

func TestDashboardListsOverdueTasks(t *testing.T) {
	due := func(s string) time.Time {
		d, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return d
	}
	ana := &models.Contact{Name: "Ana", Tasks: []models.Task{
		{ID: 1, Title: "Send proposal", DueDate: due("2026-03-01")},
		{ID: 2, Title: "Call back", DueDate: due("2026-03-20")},
		{ID: 3, Title: "Done already", DueDate: due("2026-02-01"), Completed: true},
	}}
	p := &fakePipeline{
		contacts: []*models.Contact{ana},
		summary: crm.Summary{
			Contacts:     1,
			PendingTasks: 2,
			ByStage:      []crm.StageCount{{Stage: "Prospect", Count: 1}},
		},
		conv: crm.ConversionReport{TotalLeads: 4, ConvertedLeads: 1, RatePercent: 25},
	}

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	stats := GenerateDashboardStats(context.Background(), p, now)
	require.Len(t, stats.OverdueTasks, 1)
	assert.Equal(t, OverdueTask{Contact: "Ana", Title: "Send proposal", DaysLate: 9}, stats.OverdueTasks[0])

	out := RenderDashboard(stats)
	assert.Contains(t, out, "FUNNEL DASHBOARD")
	assert.Contains(t, out, "1 of 4 leads converted (25.00%)")
	assert.Contains(t, out, "Ana: Send proposal (9d late)")
	assert.True(t, strings.Contains(out, "Prospect      ██████████   1"))
}

func TestDashboardWithEmptyPipeline(t *testing.T) {
	out := RenderDashboard(GenerateDashboardStats(context.Background(), &fakePipeline{}, time.Now()))
	assert.Contains(t, out, "(no contacts)")
	assert.NotContains(t, out, "NEEDS ATTENTION")
}
