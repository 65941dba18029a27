package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peterkuimelis/duelcore/internal/app"
	"github.com/peterkuimelis/duelcore/internal/config"
	duelnet "github.com/peterkuimelis/duelcore/internal/net"
	"github.com/peterkuimelis/duelcore/internal/web"
)

func main() {
	configFile := flag.String("config", "", "path to config YAML")
	artDir := flag.String("art", "./card_art", "path to card art directory")
	mappingFile := flag.String("mapping", "card_art_mapping.json", "path to card art mapping JSON")
	flag.Parse()

	if err := run(*configFile, *artDir, *mappingFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run serves the spectator UI and the duel server from one process so the
// UI can watch the duels being played.
func run(configFile, artDir, mappingFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{Scheduler: true})
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := web.NewServer(web.Options{
		Catalog:     a.Catalog,
		Decks:       a.Decks,
		Feed:        a.Feed,
		Service:     a.Service,
		ArtDir:      artDir,
		MappingFile: mappingFile,
		Logger:      logger.Named("web"),
	})
	if err != nil {
		return err
	}
	duel := &duelnet.Server{
		Service: a.Service,
		Feed:    a.Feed,
		Decks:   a.Decks,
		Logger:  logger.Named("net"),
	}

	logger.Info("duelcore listening",
		zap.String("web", cfg.Web.Addr),
		zap.String("duel", cfg.Server.Addr))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Web.Addr) })
	g.Go(func() error { return duel.ListenAndServe(ctx, cfg.Server.Addr) })
	return g.Wait()
}
