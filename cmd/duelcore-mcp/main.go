package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/duelcore/internal/app"
	"github.com/peterkuimelis/duelcore/internal/config"
	duelmcp "github.com/peterkuimelis/duelcore/internal/mcp"
)

func main() {
	configFile := flag.String("config", "", "path to config YAML")
	agent := flag.String("agent", "agent", "player id for the agent seat")
	flag.Parse()

	if err := run(*configFile, *agent); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, agent string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	// computer turns advance through run_ai_turn, so no scheduler
	a, err := app.New(context.Background(), cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	sess := duelmcp.NewSession(a.Service, a.Feed, a.Decks, agent)
	defer sess.Close()

	s := server.NewMCPServer("duelcore", "1.0.0")
	duelmcp.RegisterTools(s, sess)
	return server.ServeStdio(s)
}
