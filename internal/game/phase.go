package game

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/peterkuimelis/duelcore/internal/log"
)

const (
	evAdvance    = "advance"
	evSkipBattle = "skip_battle"
	evEndTurn    = "end_turn"
	evNextTurn   = "next_turn"
)

var phaseEvents = fsm.Events{
	{Name: evAdvance, Src: []string{string(PhaseDraw)}, Dst: string(PhaseStandby)},
	{Name: evAdvance, Src: []string{string(PhaseStandby)}, Dst: string(PhaseMain1)},
	{Name: evAdvance, Src: []string{string(PhaseMain1)}, Dst: string(PhaseBattle)},
	{Name: evAdvance, Src: []string{string(PhaseBattle)}, Dst: string(PhaseMain2)},
	{Name: evAdvance, Src: []string{string(PhaseMain2)}, Dst: string(PhaseEnd)},
	{Name: evSkipBattle, Src: []string{string(PhaseMain1)}, Dst: string(PhaseMain2)},
	{Name: evEndTurn, Src: []string{
		string(PhaseDraw), string(PhaseStandby), string(PhaseMain1), string(PhaseBattle), string(PhaseMain2),
	}, Dst: string(PhaseEnd)},
	{Name: evNextTurn, Src: []string{string(PhaseEnd)}, Dst: string(PhaseDraw)},
}

// transition moves the phase machine by one event and runs the new phase's
// entry step.
func (e *Engine) transition(gs *GameState, event string) error {
	machine := fsm.NewFSM(string(gs.CurrentPhase), phaseEvents, fsm.Callbacks{
		"leave_state": func(_ context.Context, ev *fsm.Event) {
			// the queue and unanswered optional triggers do not survive a phase boundary
			e.expirePendingTriggers(gs)
		},
		"enter_state": func(_ context.Context, ev *fsm.Event) {
			gs.CurrentPhase = Phase(ev.Dst)
			gs.expirePhaseModifiers(gs.CurrentPhase)
		},
	})
	if err := machine.Event(context.Background(), event); err != nil {
		return illegal(CodeWrongPhase, "cannot %s from %s: %v", event, gs.CurrentPhase, err)
	}
	e.emit(gs, log.EventPhaseChange, gs.TurnSide(), "", "%s", gs.CurrentPhase)
	e.enterPhase(gs)
	return nil
}

// enterPhase runs the automatic work of the phase just entered.
func (e *Engine) enterPhase(gs *GameState) {
	side := gs.TurnSide()
	switch gs.CurrentPhase {
	case PhaseDraw:
		p := gs.Side(side)
		if len(p.Deck) == 0 {
			p.DeckedOut = true
			e.emit(gs, log.EventDeckOut, side, "", "%s cannot draw", p.PlayerID)
		} else if e.drawCards(gs, side, 1) == 1 {
			e.fireAll(gs, TriggerOnDraw, side)
		}
	case PhaseStandby:
		e.fireAll(gs, TriggerOnStandby, side)
	case PhaseEnd:
		e.fireAll(gs, TriggerOnEnd, side)
	}
	e.settle(gs)
}

// AwaitingDecision reports whether the match is parked on a player decision.
func (gs *GameState) AwaitingDecision() bool {
	return gs.ResponseWindow != nil || gs.PendingAction != nil || len(gs.PendingOptionalTriggers) > 0
}

// progress runs the non-interactive phases until a player must act.
func (e *Engine) progress(gs *GameState) {
	for !gs.IsOver() && !gs.AwaitingDecision() {
		switch gs.CurrentPhase {
		case PhaseDraw, PhaseStandby:
			if err := e.transition(gs, evAdvance); err != nil {
				return
			}
		case PhaseEnd:
			e.finishTurn(gs)
		default:
			return
		}
	}
}

// finishTurn applies end-of-turn legality, expires turn-bound effects and
// hands the turn to the other player.
func (e *Engine) finishTurn(gs *GameState) {
	e.CheckStateBasedActions(gs, SBAOptions{EndOfTurn: true})
	if gs.IsOver() {
		return
	}
	gs.expireTurnModifiers()
	next := gs.TurnSide().Other()
	gs.TurnNumber++
	gs.CurrentTurnPlayerID = gs.PlayerID(next)
	gs.resetTurnFlags()
	e.emit(gs, log.EventTurnStart, next, "", "turn %d: %s", gs.TurnNumber, gs.CurrentTurnPlayerID)
	_ = e.transition(gs, evNextTurn)
}

// resetTurnFlags clears every per-turn flag on both sides.
func (gs *GameState) resetTurnFlags() {
	for _, side := range Sides {
		p := gs.Side(side)
		p.NormalSummonedThisTurn = false
		for i := range p.Board {
			p.Board[i].HasAttacked = false
			p.Board[i].HasChangedPosition = false
		}
	}
	gs.EffectUsage = nil
	gs.SkippedOptionalTriggers = nil
}

func (gs *GameState) expirePhaseModifiers(entered Phase) {
	kept := gs.TemporaryModifiers[:0]
	for _, m := range gs.TemporaryModifiers {
		if m.ExpiresAtPhase == entered && m.ExpiresAtTurn <= gs.TurnNumber {
			continue
		}
		kept = append(kept, m)
	}
	gs.TemporaryModifiers = kept
}

func (gs *GameState) expireTurnModifiers() {
	mods := gs.TemporaryModifiers[:0]
	for _, m := range gs.TemporaryModifiers {
		if m.ExpiresAtTurn > gs.TurnNumber {
			mods = append(mods, m)
		}
	}
	gs.TemporaryModifiers = mods
	lingering := gs.LingeringEffects[:0]
	for _, l := range gs.LingeringEffects {
		if l.ExpiresAtTurn > gs.TurnNumber {
			lingering = append(lingering, l)
		}
	}
	gs.LingeringEffects = lingering
}

// checkPlayerPhase validates that playerID may move the phase on.
func (e *Engine) checkPlayerPhase(gs *GameState, playerID string) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	if _, err := requireTurnPlayer(gs, playerID); err != nil {
		return err
	}
	if err := blocked(gs); err != nil {
		return err
	}
	switch gs.CurrentPhase {
	case PhaseMain1, PhaseBattle, PhaseMain2:
		return nil
	}
	return illegal(CodeWrongPhase, "%s advances on its own", gs.CurrentPhase)
}

// AdvancePhase moves the turn player to the next phase. The first turn of
// the match has no battle phase.
func (e *Engine) AdvancePhase(gs *GameState, playerID string) error {
	if err := e.checkPlayerPhase(gs, playerID); err != nil {
		return err
	}
	event := evAdvance
	if gs.CurrentPhase == PhaseMain1 && gs.TurnNumber == 1 {
		event = evSkipBattle
	}
	if err := e.transition(gs, event); err != nil {
		return err
	}
	e.progress(gs)
	return nil
}

// EndTurn jumps to the end phase and, once nothing is pending, passes the
// turn.
func (e *Engine) EndTurn(gs *GameState, playerID string) error {
	if err := e.checkPlayerPhase(gs, playerID); err != nil {
		return err
	}
	if err := e.transition(gs, evEndTurn); err != nil {
		return err
	}
	e.progress(gs)
	return nil
}

// ForceEndTurn ends the current turn no matter what is pending. Open
// windows, chains and attacks are dropped. It is a no-op once
// expectedTurn has already passed.
func (e *Engine) ForceEndTurn(gs *GameState, expectedTurn int, reason string) bool {
	if gs.IsOver() || gs.TurnNumber != expectedTurn {
		return false
	}
	side := gs.TurnSide()
	e.emit(gs, log.EventForcedTurnEnd, side, "", "turn %d forced to end: %s", gs.TurnNumber, reason)
	gs.ResponseWindow = nil
	gs.Chain = nil
	gs.PendingAction = nil
	if gs.CurrentPhase != PhaseEnd {
		_ = e.transition(gs, evEndTurn)
	}
	for !gs.IsOver() && gs.TurnNumber == expectedTurn {
		e.expirePendingTriggers(gs)
		gs.ResponseWindow = nil
		gs.Chain = nil
		gs.PendingAction = nil
		e.finishTurn(gs)
	}
	e.progress(gs)
	return true
}
