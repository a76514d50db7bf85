// Command pairup runs the coding assistant against the local workspace: it
// reads a query from the arguments or stdin, drives the agent loop to
// completion, and prints the final answer.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairuplabs/pairup/agent"
	"github.com/pairuplabs/pairup/chatwire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pairup:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		root          = flag.String("root", "", "workspace root (default: current directory)")
		maxIterations = flag.Int("max-iterations", 0, "maximum model calls per query")
		autoApprove   = flag.Bool("yes", false, "approve all tool executions without prompting")
		verbose       = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	cfg := chatwire.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprint(os.Stderr, "Query: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read query: %w", err)
		}
		query = strings.TrimSpace(line)
	}
	if query == "" {
		return fmt.Errorf("no query given")
	}

	client := chatwire.NewClient(cfg, chatwire.WithLogger(logger))
	workspace := agent.NewLocalWorkspace(*root)

	var confirm agent.ConfirmationPrompt = agent.TerminalPrompt{In: os.Stdin, Out: os.Stderr}
	if *autoApprove {
		confirm = agent.AutoApprove{}
	}

	registry := agent.NewRegistry()
	loop := agent.NewLoop(agent.LoopConfig{MaxIterations: *maxIterations}, agent.LoopDeps{
		Client:    client,
		WireCfg:   cfg,
		Workspace: workspace,
		Registry:  registry,
		Confirm:   confirm,
		Logger:    logger,
	})
	// Register against the loop's own tracker so context-file updates reach
	// the loop's event stream.
	agent.RegisterCoreTools(registry, agent.CoreToolsConfig{
		Workspace: workspace,
		Tracker:   loop.Tracker(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := loop.ExecuteAgentLoop(ctx, query)
	if err != nil {
		return err
	}

	fmt.Println(result.Response)
	if files := result.ContextFiles; len(files) > 0 {
		fmt.Println("\nFiles in context:")
		for _, f := range files {
			fmt.Println("  " + f)
		}
	}
	return nil
}
