package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/ai"
	"github.com/peterkuimelis/duelcore/internal/game"
	"github.com/peterkuimelis/duelcore/internal/log"
)

const (
	DefaultStepDelay     = 750 * time.Millisecond
	DefaultWatchdogDelay = 20 * time.Second
	maxSyncSteps         = 8
)

// Service is the mutation boundary of every match. Each public call is one
// store mutation: it either commits completely or leaves the match as it
// was. Events produced by a committed mutation are published to the sink
// afterwards.
type Service struct {
	engine  *game.Engine
	store   StateStore
	sched   Scheduler
	sink    log.EventSink
	players PlayerDirectory
	driver  *ai.Driver
	logger  *zap.Logger

	stepDelay     time.Duration
	watchdogDelay time.Duration
}

type ServiceOption func(*Service)

func WithScheduler(s Scheduler) ServiceOption {
	return func(svc *Service) { svc.sched = s }
}

func WithSink(sink log.EventSink) ServiceOption {
	return func(svc *Service) { svc.sink = sink }
}

func WithPlayers(d PlayerDirectory) ServiceOption {
	return func(svc *Service) { svc.players = d }
}

func WithDriver(d *ai.Driver) ServiceOption {
	return func(svc *Service) { svc.driver = d }
}

func WithLogger(l *zap.Logger) ServiceOption {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithDelays sets how long the saga waits between computer steps and how
// long a computer turn may take before the watchdog ends it.
func WithDelays(step, watchdog time.Duration) ServiceOption {
	return func(svc *Service) {
		if step >= 0 {
			svc.stepDelay = step
		}
		if watchdog > 0 {
			svc.watchdogDelay = watchdog
		}
	}
}

// NewService creates a service. Without a scheduler computer turns only
// advance through RunAITurn; without a driver a brain is attached to the
// engine.
func NewService(engine *game.Engine, store StateStore, opts ...ServiceOption) *Service {
	svc := &Service{
		engine:        engine,
		store:         store,
		logger:        zap.NewNop(),
		stepDelay:     DefaultStepDelay,
		watchdogDelay: DefaultWatchdogDelay,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.driver == nil {
		svc.driver = ai.NewDriver(engine, ai.Attach(engine, 0), ai.WithDriverLogger(svc.logger))
	}
	if r, ok := svc.sched.(registrar); ok {
		r.Register(svc.HandleCallback)
	}
	return svc
}

func (s *Service) Engine() *game.Engine { return s.engine }

// StartRequest opens a new match. An empty MatchID gets a generated one.
type StartRequest struct {
	MatchID  string
	Host     game.Seat
	Opponent game.Seat
	Seed     uint64
}

func (s *Service) StartMatch(ctx context.Context, req StartRequest) (*game.GameState, error) {
	if req.MatchID == "" {
		req.MatchID = uuid.NewString()
	}
	gs, err := s.engine.NewGame(game.MatchConfig{
		MatchID:  req.MatchID,
		Host:     req.Host,
		Opponent: req.Opponent,
		Seed:     req.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("start match: %w", err)
	}
	if err := s.store.Create(ctx, gs); err != nil {
		return nil, fmt.Errorf("store match %s: %w", gs.MatchID, err)
	}
	s.logger.Info("match started",
		zap.String("match_id", gs.MatchID),
		zap.String("host", req.Host.PlayerID),
		zap.String("opponent", req.Opponent.PlayerID))
	s.publish(ctx, gs)
	s.continueAI(gs, 0)
	return gs, nil
}

// Get returns the latest snapshot.
func (s *Service) Get(ctx context.Context, matchID string) (*game.GameState, error) {
	return s.store.Read(ctx, matchID)
}

func (s *Service) LegalActions(ctx context.Context, matchID, playerID string) ([]game.Action, error) {
	gs, err := s.store.Read(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if _, err := gs.SideOf(playerID); err != nil {
		return nil, err
	}
	return s.engine.LegalActions(gs, playerID), nil
}

// Act applies one player action. Rule violations come back as
// *game.RuleError and leave the match untouched.
func (s *Service) Act(ctx context.Context, matchID string, a game.Action) (*game.GameState, error) {
	turn := 0
	gs, err := s.mutate(ctx, matchID, func(gs *game.GameState) error {
		turn = gs.TurnNumber
		return s.engine.Apply(gs, a)
	})
	if err != nil {
		return nil, err
	}
	s.continueAI(gs, turn)
	return gs, nil
}

func (s *Service) RespondTrigger(ctx context.Context, matchID, playerID, cardID string, effectIndex int, accept bool) (*game.GameState, error) {
	return s.Act(ctx, matchID, game.Action{
		Type: game.ActionRespondTrigger, PlayerID: playerID, CardID: cardID, EffectIndex: effectIndex, Accept: accept,
	})
}

func (s *Service) PassPriority(ctx context.Context, matchID, playerID string) (*game.GameState, error) {
	return s.Act(ctx, matchID, game.Action{Type: game.ActionPass, PlayerID: playerID})
}

// DisplayName resolves a player's username, falling back to the id.
func (s *Service) DisplayName(ctx context.Context, playerID string) string {
	if s.players == nil {
		return playerID
	}
	p, err := s.players.GetPlayer(ctx, playerID)
	if err != nil || p.Username == "" {
		return playerID
	}
	return p.Username
}

// mutate runs fn inside a store mutation and publishes what it produced.
func (s *Service) mutate(ctx context.Context, matchID string, fn func(gs *game.GameState) error) (*game.GameState, error) {
	gs, err := s.store.Mutate(ctx, matchID, func(gs *game.GameState) error {
		gs.Outbox = nil
		return fn(gs)
	})
	if err != nil {
		if !errors.Is(err, game.ErrIllegalMove) && !errors.Is(err, errNoop) && !errors.Is(err, ErrNotComputerTurn) {
			s.logger.Warn("mutation failed", zap.String("match_id", matchID), zap.Error(err))
		}
		return nil, err
	}
	s.publish(ctx, gs)
	return gs, nil
}

// publish drains the outbox into the sink. Sink failures are logged only.
func (s *Service) publish(ctx context.Context, gs *game.GameState) {
	events := gs.Outbox
	gs.Outbox = nil
	if s.sink == nil {
		return
	}
	for _, ev := range events {
		if err := s.sink.RecordEvent(ctx, ev); err != nil {
			s.logger.Warn("event sink failed",
				zap.String("match_id", gs.MatchID),
				zap.String("event", ev.Type.String()),
				zap.Error(err))
		}
	}
}
