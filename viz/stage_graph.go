// ABOUTME: Stage-transition graph generation
// ABOUTME: Renders observed contact stage movements as a weighted GraphViz digraph
package viz

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/funnel/models"
)

// ContactLister is the read side of the pipeline the generators need.
type ContactLister interface {
	ListContacts(ctx context.Context) []*models.Contact
}

type GraphGenerator struct {
	contacts ContactLister
}

func NewGraphGenerator(contacts ContactLister) *GraphGenerator {
	return &GraphGenerator{contacts: contacts}
}

// Transition counts how many times contacts moved From one stage To another.
type Transition struct {
	From  string
	To    string
	Count int
}

// otherStage labels stages outside the vocabulary.
const otherStage = "Other"

func stageLabel(st models.Stage) string {
	if canon, err := models.ParseStage(string(st)); err == nil {
		return string(canon)
	}
	return otherStage
}

// Transitions walks every contact's stage history and counts consecutive
// pairs. The result is ordered by funnel position of From, then To.
func Transitions(contacts []*models.Contact) []Transition {
	counts := map[[2]string]int{}
	for _, c := range contacts {
		for i := 1; i < len(c.StageHistory); i++ {
			key := [2]string{stageLabel(c.StageHistory[i-1]), stageLabel(c.StageHistory[i])}
			counts[key]++
		}
	}

	out := make([]Transition, 0, len(counts))
	for k, n := range counts {
		out = append(out, Transition{From: k[0], To: k[1], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return stageRank(out[i].From) < stageRank(out[j].From)
		}
		return stageRank(out[i].To) < stageRank(out[j].To)
	})
	return out
}

func stageRank(label string) int {
	for i, st := range models.Stages {
		if string(st) == label {
			return i
		}
	}
	return len(models.Stages)
}

// GenerateStageGraph renders one node per stage, sized by current
// population, and one edge per observed transition labelled with its count.
func (g *GraphGenerator) GenerateStageGraph(ctx context.Context) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel("Sales Funnel Transitions")
	graph.SetRankDir(cgraph.LRRank)

	contacts := g.contacts.ListContacts(ctx)
	current := map[string]int{}
	for _, c := range contacts {
		current[stageLabel(c.SalesStage)]++
	}
	transitions := Transitions(contacts)

	labels := make([]string, 0, len(models.Stages)+1)
	for _, st := range models.Stages {
		labels = append(labels, string(st))
	}
	if current[otherStage] > 0 || hasOther(transitions) {
		labels = append(labels, otherStage)
	}

	nodes := make(map[string]*cgraph.Node, len(labels))
	for _, label := range labels {
		node, err := graph.CreateNodeByName(label)
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n(%d)", label, current[label]))
		node.SetShape("box")
		node.SetStyle("filled")
		if label == string(models.StageClosedWon) {
			node.SetFillColor("lightgreen")
		} else {
			node.SetFillColor("lightblue")
		}
		nodes[label] = node
	}

	for _, t := range transitions {
		edge, err := graph.CreateEdgeByName(fmt.Sprintf("%s->%s", t.From, t.To), nodes[t.From], nodes[t.To])
		if err != nil {
			return "", fmt.Errorf("failed to create transition edge: %w", err)
		}
		edge.SetLabel(fmt.Sprintf("%d", t.Count))
		if stageRank(t.To) < stageRank(t.From) {
			edge.SetStyle("dashed")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func hasOther(ts []Transition) bool {
	for _, t := range ts {
		if t.From == otherStage || t.To == otherStage {
			return true
		}
	}
	return false
}
