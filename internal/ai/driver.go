package ai

import (
	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/game"
)

const (
	DefaultActionCap   = 5
	maxConsecutiveFail = 2
)

// StopReason says why a phase loop ended.
type StopReason string

const (
	StopPass      StopReason = "pass"
	StopCap       StopReason = "action_cap"
	StopFailures  StopReason = "failures"
	StopWaiting   StopReason = "waiting"
	StopPhaseLeft StopReason = "phase_changed"
	StopGameOver  StopReason = "game_over"
)

// PhaseReport summarizes one phase played by the driver.
type PhaseReport struct {
	Phase    game.Phase    `json:"phase"`
	Applied  []game.Action `json:"applied,omitempty"`
	Failures int           `json:"failures"`
	Stop     StopReason    `json:"stop"`
}

// StepResult is the outcome of one driver step.
type StepResult struct {
	Report *PhaseReport `json:"report,omitempty"`
	// TurnOver means the seat no longer holds the turn, or the match ended.
	TurnOver bool `json:"turnOver"`
	// Blocked means the match waits on another player's decision.
	Blocked bool `json:"blocked"`
}

// Planner proposes the next action for a seat. *Brain is the production
// planner.
type Planner interface {
	NextAction(gs *game.GameState, playerID string) (game.Action, bool)
}

// Driver plays a computer seat's turn phase by phase.
type Driver struct {
	engine    *game.Engine
	planner   Planner
	actionCap int
	logger    *zap.Logger
}

type DriverOption func(*Driver)

func WithActionCap(n int) DriverOption {
	return func(d *Driver) {
		if n > 0 {
			d.actionCap = n
		}
	}
}

func WithDriverLogger(l *zap.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDriver(engine *game.Engine, planner Planner, opts ...DriverOption) *Driver {
	d := &Driver{
		engine:    engine,
		planner:   planner,
		actionCap: DefaultActionCap,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunPhase repeatedly asks the planner for an action and applies it until the
// planner passes, the action cap is hit, two proposals in a row are rejected,
// or the phase moves on by itself.
func (d *Driver) RunPhase(gs *game.GameState, playerID string) PhaseReport {
	rep := PhaseReport{Phase: gs.CurrentPhase}
	fails := 0
	for {
		switch {
		case gs.IsOver():
			rep.Stop = StopGameOver
			return rep
		case gs.AwaitingDecision():
			rep.Stop = StopWaiting
			return rep
		case gs.CurrentPhase != rep.Phase || gs.CurrentTurnPlayerID != playerID:
			rep.Stop = StopPhaseLeft
			return rep
		case len(rep.Applied) >= d.actionCap:
			rep.Stop = StopCap
			return rep
		}
		a, ok := d.planner.NextAction(gs, playerID)
		if !ok {
			rep.Stop = StopPass
			return rep
		}
		if err := d.engine.Apply(gs, a); err != nil {
			fails++
			rep.Failures++
			d.logger.Debug("ai action rejected",
				zap.String("match_id", gs.MatchID),
				zap.String("player_id", playerID),
				zap.String("action", a.String()),
				zap.Error(err))
			if fails >= maxConsecutiveFail {
				rep.Stop = StopFailures
				return rep
			}
			continue
		}
		fails = 0
		rep.Applied = append(rep.Applied, a)
		d.logger.Debug("ai action",
			zap.String("match_id", gs.MatchID),
			zap.String("player_id", playerID),
			zap.String("phase", string(rep.Phase)),
			zap.String("action", a.String()))
	}
}

// Step plays the current phase, then moves the turn on: main 2 ends the
// turn, any other phase advances.
func (d *Driver) Step(gs *game.GameState, playerID string) StepResult {
	if gs.IsOver() || gs.CurrentTurnPlayerID != playerID {
		return StepResult{TurnOver: true}
	}
	if gs.AwaitingDecision() {
		return StepResult{Blocked: true}
	}
	phase := gs.CurrentPhase
	switch phase {
	case game.PhaseMain1, game.PhaseBattle, game.PhaseMain2:
	default:
		return StepResult{Blocked: true}
	}
	rep := d.RunPhase(gs, playerID)
	res := StepResult{Report: &rep}
	switch {
	case gs.IsOver() || gs.CurrentTurnPlayerID != playerID:
		res.TurnOver = true
		return res
	case gs.AwaitingDecision():
		res.Blocked = true
		return res
	case gs.CurrentPhase != phase:
		return res
	}
	var err error
	if phase == game.PhaseMain2 {
		err = d.engine.EndTurn(gs, playerID)
	} else {
		err = d.engine.AdvancePhase(gs, playerID)
	}
	if err != nil {
		d.logger.Warn("ai could not leave phase",
			zap.String("match_id", gs.MatchID),
			zap.String("phase", string(phase)),
			zap.Error(err))
		res.Blocked = true
		return res
	}
	res.TurnOver = gs.IsOver() || gs.CurrentTurnPlayerID != playerID
	return res
}

// PlayTurn steps until the turn passes or the match waits on someone else.
func (d *Driver) PlayTurn(gs *game.GameState, playerID string) []PhaseReport {
	var reports []PhaseReport
	// three player phases plus slack for phases left early
	for i := 0; i < 6; i++ {
		res := d.Step(gs, playerID)
		if res.Report != nil {
			reports = append(reports, *res.Report)
		}
		if res.TurnOver || res.Blocked {
			break
		}
	}
	return reports
}
