// ABOUTME: Read-only pipeline reports: totals, stage distribution and lead conversion
// ABOUTME: Stages are grouped canonically; unrecognized stages are counted under Other
package crm

import (
	"context"
	"math"

	"github.com/harperreed/funnel/models"
	"github.com/harperreed/funnel/store"
)

// OtherStage groups contacts whose stage is not in the vocabulary.
const OtherStage = "Other"

// StageCount is the number of contacts in one stage.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// Summary holds entity totals and the stage distribution.
type Summary struct {
	Contacts     int          `json:"contacts"`
	ActiveLeads  int          `json:"active_leads"`
	Campaigns    int          `json:"campaigns"`
	Documents    int          `json:"documents"`
	PendingTasks int          `json:"pending_tasks"`
	ByStage      []StageCount `json:"by_stage"`
}

// ConversionReport describes how many leads became contacts.
type ConversionReport struct {
	TotalLeads     int     `json:"total_leads"`
	ConvertedLeads int     `json:"converted_leads"`
	RatePercent    float64 `json:"rate_percent"`
}

// ContactRef is the short form of a contact used in stage reports.
type ContactRef struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email"`
}

// StageGroup lists the contacts in one stage.
type StageGroup struct {
	Stage    string       `json:"stage"`
	Contacts []ContactRef `json:"contacts"`
}

// stageKey returns the canonical label for stage, or OtherStage.
func stageKey(stage models.Stage) string {
	if st, err := models.ParseStage(string(stage)); err == nil {
		return string(st)
	}
	return OtherStage
}

// Summary counts entities and groups contacts by stage. Stages with no
// contacts are omitted; the order follows the funnel with Other last.
func (s *Service) Summary(ctx context.Context) Summary {
	var sum Summary
	s.read(func(st *store.Store) {
		contacts := st.Contacts()
		sum.Contacts = len(contacts)
		for _, l := range st.Leads() {
			if !l.Converted {
				sum.ActiveLeads++
			}
		}
		sum.Campaigns = len(st.Campaigns())
		sum.Documents = len(st.Documents())

		counts := map[string]int{}
		for _, c := range contacts {
			counts[stageKey(c.SalesStage)]++
			sum.PendingTasks += len(c.PendingTasks())
		}
		sum.ByStage = []StageCount{}
		for _, label := range stageOrder() {
			if n := counts[label]; n > 0 {
				sum.ByStage = append(sum.ByStage, StageCount{Stage: label, Count: n})
			}
		}
	})
	return sum
}

// ConversionReport computes the share of leads ever created that were
// converted, as a percentage rounded to two decimals.
func (s *Service) ConversionReport(ctx context.Context) ConversionReport {
	var r ConversionReport
	s.read(func(st *store.Store) {
		for _, l := range st.Leads() {
			r.TotalLeads++
			if l.Converted {
				r.ConvertedLeads++
			}
		}
	})
	if r.TotalLeads > 0 {
		rate := float64(r.ConvertedLeads) / float64(r.TotalLeads) * 100
		r.RatePercent = math.Round(rate*100) / 100
	}
	return r
}

// StageReport lists the contacts in each non-empty stage.
func (s *Service) StageReport(ctx context.Context) []StageGroup {
	groups := map[string][]ContactRef{}
	for _, c := range s.ListContacts(ctx) {
		key := stageKey(c.SalesStage)
		groups[key] = append(groups[key], ContactRef{ID: c.ID, Name: c.Name, Company: c.Company, Email: c.Email})
	}
	out := []StageGroup{}
	for _, label := range stageOrder() {
		if refs := groups[label]; len(refs) > 0 {
			out = append(out, StageGroup{Stage: label, Contacts: refs})
		}
	}
	return out
}

func stageOrder() []string {
	order := make([]string, 0, len(models.Stages)+1)
	for _, st := range models.Stages {
		order = append(order, string(st))
	}
	return append(order, OtherStage)
}
