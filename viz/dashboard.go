// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides ASCII dashboard for the sales funnel overview
package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/funnel/crm"
)

// Pipeline is the read side of the service the dashboard needs.
type Pipeline interface {
	ContactLister
	Summary(ctx context.Context) crm.Summary
	ConversionReport(ctx context.Context) crm.ConversionReport
}

type DashboardStats struct {
	Summary    crm.Summary
	Conversion crm.ConversionReport

	// Needs attention
	OverdueTasks []OverdueTask
}

type OverdueTask struct {
	Contact  string
	Title    string
	DaysLate int
}

// GenerateDashboardStats gathers the dashboard figures as of now.
func GenerateDashboardStats(ctx context.Context, p Pipeline, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		Summary:    p.Summary(ctx),
		Conversion: p.ConversionReport(ctx),
	}

	today := now.UTC().Truncate(24 * time.Hour)
	for _, c := range p.ListContacts(ctx) {
		for _, t := range c.PendingTasks() {
			if t.DueDate.Before(today) {
				stats.OverdueTasks = append(stats.OverdueTasks, OverdueTask{
					Contact:  c.Name,
					Title:    t.Title,
					DaysLate: int(today.Sub(t.DueDate).Hours() / 24),
				})
			}
		}
	}
	sort.SliceStable(stats.OverdueTasks, func(i, j int) bool {
		return stats.OverdueTasks[i].DaysLate > stats.OverdueTasks[j].DaysLate
	})
	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  FUNNEL DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, stats.Summary.ByStage)
	out.WriteString("\n")

	s := stats.Summary
	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  📇 %d contacts  🎯 %d active leads  📣 %d campaigns  📄 %d documents\n",
		s.Contacts, s.ActiveLeads, s.Campaigns, s.Documents))
	out.WriteString(fmt.Sprintf("  🔁 %d of %d leads converted (%.2f%%)\n\n",
		stats.Conversion.ConvertedLeads, stats.Conversion.TotalLeads, stats.Conversion.RatePercent))

	if s.PendingTasks > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		out.WriteString(fmt.Sprintf("  📝 %d pending tasks\n", s.PendingTasks))
		if len(stats.OverdueTasks) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d tasks overdue\n", len(stats.OverdueTasks)))
			for _, t := range stats.OverdueTasks {
				out.WriteString(fmt.Sprintf("     - %s: %s (%dd late)\n", t.Contact, t.Title, t.DaysLate))
			}
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, stages []crm.StageCount) {
	if len(stages) == 0 {
		out.WriteString("  (no contacts)\n")
		return
	}

	maxCount := 1
	for _, sc := range stages {
		if sc.Count > maxCount {
			maxCount = sc.Count
		}
	}

	for _, sc := range stages {
		// 0-10 blocks
		barLength := (sc.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-13s %s  %2d\n", sc.Stage, bar, sc.Count))
	}
}
