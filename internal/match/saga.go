package match

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/ai"
	"github.com/peterkuimelis/duelcore/internal/game"
)

var (
	// errNoop aborts a mutation that found nothing to do.
	errNoop = errors.New("nothing to do")

	ErrNotComputerTurn = errors.New("the turn player is not computer controlled")
)

// A computer turn runs as a chain of short mutations, one driver step each,
// linked through the scheduler. A watchdog scheduled when the turn begins
// ends the turn if the chain broke. Both callbacks carry the turn number
// they were scheduled for and do nothing once that turn is over.

// HandleCallback delivers a scheduled callback.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) {
	switch cb.Kind {
	case CallbackAIStep:
		s.aiStep(ctx, cb)
	case CallbackWatchdog:
		s.watchdog(ctx, cb)
	default:
		s.logger.Warn("unknown callback", zap.String("kind", cb.Kind), zap.String("match_id", cb.MatchID))
	}
}

// continueAI schedules whatever the committed state needs next. prevTurn
// is the turn number before the mutation, 0 for a new match.
func (s *Service) continueAI(gs *game.GameState, prevTurn int) {
	if s.sched == nil || gs.IsOver() {
		return
	}
	if !gs.Side(gs.TurnSide()).IsComputer || gs.AwaitingDecision() {
		return
	}
	cb := Callback{MatchID: gs.MatchID, PlayerID: gs.CurrentTurnPlayerID, Turn: gs.TurnNumber}
	if gs.TurnNumber != prevTurn {
		cb.Kind = CallbackWatchdog
		s.schedule(s.watchdogDelay, cb)
	}
	cb.Kind = CallbackAIStep
	s.schedule(s.stepDelay, cb)
}

func (s *Service) schedule(delay time.Duration, cb Callback) {
	if err := s.sched.ScheduleCallback(delay, cb); err != nil {
		s.logger.Warn("schedule failed",
			zap.String("match_id", cb.MatchID),
			zap.String("kind", cb.Kind),
			zap.Error(err))
	}
}

// stepDue reports whether a step callback still applies to gs.
func stepDue(gs *game.GameState, cb Callback) bool {
	return !gs.IsOver() &&
		gs.TurnNumber == cb.Turn &&
		gs.CurrentTurnPlayerID == cb.PlayerID &&
		gs.Side(gs.TurnSide()).IsComputer &&
		!gs.AwaitingDecision()
}

func (s *Service) aiStep(ctx context.Context, cb Callback) {
	var res ai.StepResult
	gs, err := s.mutate(ctx, cb.MatchID, func(gs *game.GameState) error {
		if !stepDue(gs, cb) {
			return errNoop
		}
		res = s.driver.Step(gs, cb.PlayerID)
		return nil
	})
	if err != nil {
		if errors.Is(err, errNoop) {
			s.logger.Debug("stale ai step", zap.String("match_id", cb.MatchID), zap.Int("turn", cb.Turn))
		}
		return
	}
	if res.Report != nil {
		s.logger.Debug("ai step",
			zap.String("match_id", cb.MatchID),
			zap.Int("turn", cb.Turn),
			zap.String("phase", string(res.Report.Phase)),
			zap.Int("actions", len(res.Report.Applied)),
			zap.String("stop", string(res.Report.Stop)))
	}
	s.continueAI(gs, cb.Turn)
}

func (s *Service) watchdog(ctx context.Context, cb Callback) {
	forced, parked, gs, err := s.forceEndTurn(ctx, cb.MatchID, cb.Turn, "watchdog")
	switch {
	case parked:
		// a player is still deciding; look again later
		s.schedule(s.watchdogDelay, cb)
	case err != nil || !forced:
		return
	default:
		s.logger.Warn("computer turn forced to end",
			zap.String("match_id", cb.MatchID),
			zap.String("player_id", cb.PlayerID),
			zap.Int("turn", cb.Turn))
		s.continueAI(gs, cb.Turn)
	}
}

// ForceEndTurn ends turn unless it is already over. It does not interrupt
// a pending player decision.
func (s *Service) ForceEndTurn(ctx context.Context, matchID string, turn int, reason string) (bool, *game.GameState, error) {
	forced, parked, gs, err := s.forceEndTurn(ctx, matchID, turn, reason)
	if err != nil {
		return false, nil, err
	}
	if parked || !forced {
		gs, err = s.store.Read(ctx, matchID)
		return false, gs, err
	}
	s.continueAI(gs, turn)
	return true, gs, nil
}

func (s *Service) forceEndTurn(ctx context.Context, matchID string, turn int, reason string) (forced, parked bool, gs *game.GameState, err error) {
	gs, err = s.mutate(ctx, matchID, func(gs *game.GameState) error {
		if gs.IsOver() || gs.TurnNumber != turn {
			return errNoop
		}
		if gs.AwaitingDecision() {
			parked = true
			return errNoop
		}
		if !s.engine.ForceEndTurn(gs, turn, reason) {
			return errNoop
		}
		return nil
	})
	if errors.Is(err, errNoop) {
		return false, parked, nil, nil
	}
	return err == nil, false, gs, err
}

// RunAITurn plays the current computer turn to completion synchronously,
// one mutation per step. It stops early when a player has to decide.
func (s *Service) RunAITurn(ctx context.Context, matchID string) ([]ai.PhaseReport, *game.GameState, error) {
	var (
		reports []ai.PhaseReport
		gs      *game.GameState
	)
	for i := 0; i < maxSyncSteps; i++ {
		var res ai.StepResult
		var err error
		gs, err = s.mutate(ctx, matchID, func(gs *game.GameState) error {
			if gs.IsOver() {
				return errNoop
			}
			if !gs.Side(gs.TurnSide()).IsComputer {
				return ErrNotComputerTurn
			}
			res = s.driver.Step(gs, gs.CurrentTurnPlayerID)
			return nil
		})
		if errors.Is(err, errNoop) {
			gs, err = s.store.Read(ctx, matchID)
			return reports, gs, err
		}
		if err != nil {
			return reports, nil, err
		}
		if res.Report != nil {
			reports = append(reports, *res.Report)
		}
		if res.TurnOver || res.Blocked {
			break
		}
	}
	return reports, gs, nil
}
