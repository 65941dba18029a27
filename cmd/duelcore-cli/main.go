package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/app"
	"github.com/peterkuimelis/duelcore/internal/config"
	"github.com/peterkuimelis/duelcore/internal/game"
	"github.com/peterkuimelis/duelcore/internal/log"
	duelnet "github.com/peterkuimelis/duelcore/internal/net"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "simulate":
		err = runSimulate(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "play":
		err = runPlay(ctx, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  duelcore simulate [--config FILE] [--deck N] [--opponent-deck N] [--difficulty D] [--seed S]")
	fmt.Println("  duelcore serve    [--config FILE] [--addr ADDR]")
	fmt.Println("  duelcore play     [--addr ADDR] [--deck N] [--difficulty D] [--name ID]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  simulate  Play a computer-vs-computer match and print the log")
	fmt.Println("  serve     Run the duel server; each connection plays a computer opponent")
	fmt.Println("  play      Connect to a duel server and play from the terminal")
}

func load(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	configFile := fs.String("config", "", "path to config YAML")
	deck := fs.Int("deck", 1, "host deck number (from the deck file)")
	oppDeck := fs.Int("opponent-deck", 0, "opponent deck number; 0 mirrors the host")
	difficulty := fs.String("difficulty", "medium", "difficulty for both seats")
	seed := fs.Uint64("seed", 0, "shuffle seed; 0 picks one from the clock")
	maxTurns := fs.Int("max-turns", app.DefaultMaxTurns, "stop after this many turns")
	quiet := fs.Bool("quiet", false, "print only the result")
	fs.Parse(args)

	d, err := game.ParseDifficulty(*difficulty)
	if err != nil {
		return err
	}
	if *oppDeck == 0 {
		*oppDeck = *deck
	}
	cfg, logger, err := load(*configFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var sinks []log.EventSink
	if !*quiet {
		sinks = append(sinks, log.NewTextLogger(os.Stdout))
	}
	a, err := app.New(ctx, cfg, logger, app.Options{Sinks: sinks})
	if err != nil {
		return err
	}
	defer a.Close()

	gs, err := a.Simulate(ctx, app.Simulation{
		MatchID:            "simulation",
		HostDeck:           *deck,
		OpponentDeck:       *oppDeck,
		HostDifficulty:     d,
		OpponentDifficulty: d,
		Seed:               *seed,
		MaxTurns:           *maxTurns,
	})
	if err != nil {
		return err
	}
	if !gs.IsOver() {
		fmt.Printf("No result after %d turns (LP %d / %d)\n", gs.TurnNumber, gs.Host.LifePoints, gs.Opponent.LifePoints)
		return nil
	}
	fmt.Printf("%s wins on turn %d (%s)\n", gs.WinnerID, gs.TurnNumber, gs.EndReason)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "", "path to config YAML")
	addr := fs.String("addr", "", "TCP address to listen on (overrides server.addr)")
	fs.Parse(args)

	cfg, logger, err := load(*configFile)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	a, err := app.New(ctx, cfg, logger, app.Options{Scheduler: true})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &duelnet.Server{
		Service: a.Service,
		Feed:    a.Feed,
		Decks:   a.Decks,
		Logger:  logger.Named("net"),
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func runPlay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	addr := fs.String("addr", "localhost:9000", "server address to connect to")
	deck := fs.Int("deck", 1, "deck number to use (from the server's deck file)")
	difficulty := fs.String("difficulty", "", "computer difficulty")
	name := fs.String("name", "", "player id; empty picks a guest id")
	fs.Parse(args)

	join := duelnet.ClientMessage{
		Type:       duelnet.MsgJoin,
		PlayerID:   *name,
		DeckNumber: *deck,
		Difficulty: *difficulty,
	}
	return duelnet.Connect(ctx, *addr, join, os.Stdin, os.Stdout)
}
