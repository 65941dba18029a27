// Package app wires configuration, catalog, store, engine and match service
// together for the command-line binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/ai"
	"github.com/peterkuimelis/duelcore/internal/catalog"
	"github.com/peterkuimelis/duelcore/internal/config"
	"github.com/peterkuimelis/duelcore/internal/game"
	"github.com/peterkuimelis/duelcore/internal/log"
	"github.com/peterkuimelis/duelcore/internal/match"
	"github.com/peterkuimelis/duelcore/internal/store"
)

// Options picks the optional pieces of the wiring.
type Options struct {
	// Scheduler runs computer turns in the background. Without it they
	// only advance through RunAITurn.
	Scheduler bool
	// Sinks receive every event next to the feed and the zap mirror.
	Sinks []log.EventSink
}

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Catalog *catalog.Catalog
	Decks   *catalog.Decks
	Engine  *game.Engine
	Store   match.StateStore
	Feed    *log.Feed
	Service *match.Service

	closers []func()
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Feed: log.NewFeed(256)}

	cat, err := catalog.Load(cfg.Catalog.Cards)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	decks, err := cat.LoadDecks(cfg.Catalog.Decks)
	if err != nil {
		return nil, fmt.Errorf("load decks: %w", err)
	}
	a.Catalog, a.Decks = cat, decks
	logger.Info("catalog loaded",
		zap.Int("cards", cat.Len()),
		zap.Strings("decks", decks.Names()))

	a.Engine = game.NewEngine(cat, game.WithRules(cfg.GameRules()), game.WithLogger(logger.Named("engine")))
	brain := ai.Attach(a.Engine, cfg.AI.Seed, ai.WithBrainLogger(logger.Named("ai")))
	driver := ai.NewDriver(a.Engine, brain,
		ai.WithActionCap(cfg.AI.ActionCap),
		ai.WithDriverLogger(logger.Named("ai")))

	if cfg.Database.URL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.Database.URL, logger.Named("store"))
		if err != nil {
			return nil, err
		}
		a.Store = pg
		a.closers = append(a.closers, pg.Close)
	} else {
		a.Store = store.NewMemory()
	}

	sinks := append(log.MultiSink{a.Feed, log.NewZapSink(logger.Named("events"))}, opts.Sinks...)
	svcOpts := []match.ServiceOption{
		match.WithSink(sinks),
		match.WithDriver(driver),
		match.WithLogger(logger.Named("match")),
		match.WithDelays(cfg.AI.StepDelay, cfg.AI.WatchdogDelay),
	}
	if opts.Scheduler {
		sched := match.NewTimerScheduler(ctx, logger.Named("scheduler"))
		a.closers = append(a.closers, sched.Close)
		svcOpts = append(svcOpts, match.WithScheduler(sched))
	}
	a.Service = match.NewService(a.Engine, a.Store, svcOpts...)
	return a, nil
}

// Close releases the scheduler and the database pool.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
