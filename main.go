// ABOUTME: Entry point for the funnel CRM: MCP server, CLI, TUI and HTTP API
// ABOUTME: Loads config, opens the backend, wires observers and routes to the requested surface
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/harperreed/funnel/cli"
	"github.com/harperreed/funnel/config"
	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/events"
	"github.com/harperreed/funnel/models"
	"github.com/harperreed/funnel/tui"
	"github.com/harperreed/funnel/web"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	dataPath := flag.String("data-path", "", "Backend location (default: under ~/.local/share/funnel)")
	backend := flag.String("backend", "", "Persistence backend: json, sqlite or badger")
	role := flag.String("role", "", "Starting role: admin, sales, marketing or client")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("funnel version %s\n", cli.Version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	if command == "version" {
		fmt.Printf("funnel version %s\n", cli.Version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *role != "" {
		cfg.Role = *role
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open CRM: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()
	if svc.Degraded() {
		logger.Warn("stored data could not be read; running in degraded mode", "path", cfg.ResolvedDataPath())
	}

	switch command {
	case "mcp":
		err = cli.MCPCommand(ctx, svc)

	case "crm":
		if len(commandArgs) == 0 {
			fmt.Println("Error: crm requires a subcommand")
			printUsage()
			os.Exit(1)
		}
		logger.Debug("crm database", "backend", cfg.Backend, "path", cfg.ResolvedDataPath())
		err = cli.Run(ctx, svc, commandArgs)

	case "viz":
		err = cli.VizCommand(ctx, svc, commandArgs)

	case "serve":
		addr := cfg.HTTPAddr
		if len(commandArgs) > 0 {
			addr = commandArgs[0]
		}
		logger.Info("serving", "addr", addr)
		err = web.NewServer(svc, logger, prometheus.DefaultGatherer).Start(ctx, addr)

	case "tui":
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			log.Fatal("Error: tui requires an interactive terminal")
		}
		err = tui.Run(ctx, svc)

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		// log.Fatalf skips deferred calls.
		stop()
		_ = svc.Close()
		log.Fatalf("Error: %s", cli.Describe(err))
	}
}

// openService opens the configured backend and wires the notification
// observers onto a fresh bus.
func openService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*crm.Service, error) {
	backend, err := cfg.OpenBackend()
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(logger)
	analytics, err := events.NewAnalyticsUpdater(prometheus.DefaultRegisterer)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	bus.Subscribe(events.NewEmailNotifier())
	bus.Subscribe(analytics)
	bus.Subscribe(events.NewSalesNotifier())

	svc, err := crm.New(ctx, backend,
		crm.WithBus(bus),
		crm.WithLogger(logger),
		crm.WithRole(models.Role(cfg.Role)),
		crm.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return svc, nil
}

func printUsage() {
	fmt.Printf(`funnel v%s - sales funnel CRM

USAGE:
  funnel [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --backend <kind>       Persistence backend: json, sqlite or badger (default: json)
  --data-path <path>     Backend location (default: ~/.local/share/funnel/crm.json)
  --role <role>          Starting role: admin, sales, marketing or client

COMMANDS:
  mcp                    Start MCP server over stdio
  crm                    CRM management commands
  viz                    Visualization commands
  serve [addr]           Start the HTTP API (default: %s)
  tui                    Interactive terminal UI
  version                Show version

CRM COMMANDS:
  %s

  Every crm command accepts --role before the command name.

VIZ COMMANDS:
  funnel viz stages          Stage transition graph (DOT)
    --output <file>            Output file (default: stdout)
  funnel viz dashboard       Text pipeline dashboard

CONFIGURATION:
  %s
  Environment overrides use the %s prefix, e.g. %sBACKEND=sqlite.

EXAMPLES:
  # Add a contact
  funnel crm add-contact --name "Ana Souza" --email ana@example.com --phone 11987654321

  # Move a contact down the funnel
  funnel crm update-stage --id 1 --stage Proposal

  # Import leads from a YAML export
  funnel crm import-leads --file leads.yaml

  # Send a campaign as marketing
  funnel crm --role marketing send-campaign --id 1

`, cli.Version, config.DefaultHTTPAddr, strings.Join(cli.CommandNames(), "\n  "),
		config.ConfigPath(), config.EnvPrefix, config.EnvPrefix)
}
