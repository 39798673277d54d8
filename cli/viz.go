// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and stage graph generation commands
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/viz"
)

// VizCommand routes `funnel viz <stages|dashboard>`.
func VizCommand(ctx context.Context, svc *crm.Service, args []string) error {
	if len(args) == 0 {
		return VizDashboardCommand(ctx, svc, nil)
	}
	switch args[0] {
	case "stages", "graph":
		return VizStagesCommand(ctx, svc, args[1:])
	case "dashboard":
		return VizDashboardCommand(ctx, svc, args[1:])
	default:
		return fmt.Errorf("unknown viz command: %s (must be stages or dashboard)", args[0])
	}
}

// VizStagesCommand generates the stage-transition graph.
func VizStagesCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("viz stages")
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dot, err := viz.NewGraphGenerator(svc).GenerateStageGraph(ctx)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	fmt.Fprintln(stdout, dot)
	return nil
}

func VizDashboardCommand(ctx context.Context, svc *crm.Service, args []string) error {
	stats := viz.GenerateDashboardStats(ctx, svc, time.Now())
	fmt.Fprint(stdout, viz.RenderDashboard(stats))
	return nil
}
