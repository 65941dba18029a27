package game

import (
	"fmt"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// attackGate checks the three attacker gates plus positive attack.
func (e *Engine) attackGate(gs *GameState, side PlayerSide, bc *BoardCard) error {
	name := e.cardName(gs, bc.CardID)
	switch {
	case bc.IsFaceDown:
		return illegal(CodeCannotAttack, "%s is face-down", name)
	case bc.Position != PositionAttack:
		return illegal(CodeCannotAttack, "%s is in defense position", name)
	case bc.HasAttacked:
		return illegal(CodeCannotAttack, "%s already attacked this turn", name)
	}
	if atk := e.EffectiveAttack(gs, side, bc); atk <= 0 {
		return illegal(CodeCannotAttack, "%s has %d ATK", name, atk)
	}
	return nil
}

// canAttackDirectly reports whether bc may target the player: the defender
// has no monsters, or bc's conditional direct-attack ability holds.
func (e *Engine) canAttackDirectly(gs *GameState, side PlayerSide, bc *BoardCard) bool {
	if len(gs.Side(side.Other()).Board) == 0 {
		return true
	}
	cond := e.def(gs, bc.CardID).Ability.DirectAttack
	if cond == nil {
		return false
	}
	if cond.Kind == CondAttackAtMost {
		return e.EffectiveAttack(gs, side, bc) <= cond.Value
	}
	return e.conditionMet(gs, *cond, side)
}

// DeclareAttack declares an attack on targetID, or a direct attack when
// targetID is empty, then opens the defender's response window.
func (e *Engine) DeclareAttack(gs *GameState, playerID, attackerID, targetID string) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	side, err := requireTurnPlayer(gs, playerID)
	if err != nil {
		return err
	}
	if gs.CurrentPhase != PhaseBattle {
		return illegal(CodeWrongPhase, "attacks need the battle phase, not %s", gs.CurrentPhase)
	}
	if err := blocked(gs); err != nil {
		return err
	}
	p := gs.Side(side)
	opp := gs.Side(side.Other())
	attacker := p.BoardCard(attackerID)
	if attacker == nil {
		return illegal(CodeNotInZone, "%s is not on %s's board", attackerID, playerID)
	}
	if err := e.attackGate(gs, side, attacker); err != nil {
		return err
	}
	if targetID == "" {
		if !e.canAttackDirectly(gs, side, attacker) {
			return illegal(CodeCannotAttack, "%s cannot attack directly", e.cardName(gs, attackerID))
		}
	} else if opp.BoardCard(targetID) == nil {
		return illegal(CodeBadTarget, "%s is not on the opposing board", targetID)
	}

	attacker.HasAttacked = true
	gs.PendingAction = &PendingAction{
		Type:          "attack",
		PlayerID:      playerID,
		AttackerID:    attackerID,
		TargetID:      targetID,
		DefenderCount: len(opp.Board),
		DeclaredTurn:  gs.TurnNumber,
	}
	if targetID == "" {
		e.emit(gs, log.EventAttackDeclare, side, attackerID, "%s attacks %s directly", e.cardName(gs, attackerID), opp.PlayerID)
	} else {
		e.emit(gs, log.EventAttackDeclare, side, attackerID, "%s attacks %s",
			e.cardName(gs, attackerID), e.targetName(gs, opp.BoardCard(targetID)))
	}
	e.openWindow(gs, WindowAttack, side.Other())
	e.runWindow(gs)
	e.settle(gs)
	e.progress(gs)
	return nil
}

// resolvePendingAttack continues an attack once its response window closed.
func (e *Engine) resolvePendingAttack(gs *GameState) {
	pa := gs.PendingAction
	side, err := gs.SideOf(pa.PlayerID)
	if err != nil {
		gs.PendingAction = nil
		return
	}
	p := gs.Side(side)
	opp := gs.Side(side.Other())
	attacker := p.BoardCard(pa.AttackerID)
	if attacker == nil || attacker.IsFaceDown {
		// a removed attacker ends the attack, no replay
		e.emit(gs, log.EventAttackInvalidated, side, "", "attack by %s is invalidated", e.cardName(gs, pa.AttackerID))
		gs.PendingAction = nil
		return
	}
	if pa.Negated {
		e.emit(gs, log.EventAttackInvalidated, side, pa.AttackerID, "attack by %s was negated", e.cardName(gs, pa.AttackerID))
		gs.PendingAction = nil
		return
	}
	targetGone := pa.TargetID != "" && opp.BoardCard(pa.TargetID) == nil
	if len(opp.Board) != pa.DefenderCount || targetGone {
		pa.AwaitingReplay = true
		e.emit(gs, log.EventReplay, side, pa.AttackerID, "battle replay for %s", e.cardName(gs, pa.AttackerID))
		if p.IsComputer {
			choice := e.auto.ChooseReplay(gs, side, e.replayOptions(gs, side))
			e.applyReplay(gs, side, choice.TargetID, choice.Cancel)
		}
		return
	}
	e.resolveBattle(gs)
}

// replayOptions lists the re-targets available during a battle replay,
// cancellation last.
func (e *Engine) replayOptions(gs *GameState, side PlayerSide) []Action {
	pa := gs.PendingAction
	pid := gs.PlayerID(side)
	var out []Action
	for _, t := range gs.Side(side.Other()).Board {
		out = append(out, Action{Type: ActionReplay, PlayerID: pid, CardID: pa.AttackerID, TargetID: t.CardID,
			Desc: "Attack " + e.targetName(gs, &t)})
	}
	if bc := gs.Side(side).BoardCard(pa.AttackerID); bc != nil && e.canAttackDirectly(gs, side, bc) {
		out = append(out, Action{Type: ActionReplay, PlayerID: pid, CardID: pa.AttackerID, Desc: "Attack directly"})
	}
	return append(out, Action{Type: ActionReplay, PlayerID: pid, CardID: pa.AttackerID, Cancel: true, Desc: "Cancel attack"})
}

// ChooseReplay answers a battle replay prompt.
func (e *Engine) ChooseReplay(gs *GameState, playerID, targetID string, cancel bool) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	pa := gs.PendingAction
	if pa == nil || !pa.AwaitingReplay || pa.PlayerID != playerID {
		return illegal(CodeWindowClosed, "no battle replay is pending for %s", playerID)
	}
	side, err := gs.SideOf(playerID)
	if err != nil {
		return err
	}
	if !cancel {
		attacker := gs.Side(side).BoardCard(pa.AttackerID)
		switch {
		case targetID == "" && !e.canAttackDirectly(gs, side, attacker):
			return illegal(CodeCannotAttack, "a direct attack is not possible")
		case targetID != "" && gs.Side(side.Other()).BoardCard(targetID) == nil:
			return illegal(CodeBadTarget, "%s is not on the opposing board", targetID)
		}
	}
	e.applyReplay(gs, side, targetID, cancel)
	e.settle(gs)
	e.progress(gs)
	return nil
}

func (e *Engine) applyReplay(gs *GameState, side PlayerSide, targetID string, cancel bool) {
	pa := gs.PendingAction
	if cancel {
		e.emit(gs, log.EventAttackInvalidated, side, pa.AttackerID, "%s cancels the attack", gs.PlayerID(side))
		gs.PendingAction = nil
		return
	}
	pa.TargetID = targetID
	pa.DefenderCount = len(gs.Side(side.Other()).Board)
	pa.AwaitingReplay = false
	e.resolveBattle(gs)
}

// resolveBattle performs damage calculation for the pending attack and fires
// the combat triggers around it.
func (e *Engine) resolveBattle(gs *GameState) {
	pa := gs.PendingAction
	side, _ := gs.SideOf(pa.PlayerID)
	p := gs.Side(side)
	opp := gs.Side(side.Other())
	attackerID := pa.AttackerID
	attackerName := e.cardName(gs, attackerID)

	if pa.IsDirect() {
		attacker := p.BoardCard(attackerID)
		gs.PendingAction = nil
		if attacker == nil || gs.IsOver() {
			e.emit(gs, log.EventAttackInvalidated, side, "", "attack by %s is invalidated", attackerName)
			return
		}
		atk := e.EffectiveAttack(gs, side, attacker)
		e.emit(gs, log.EventDirectAttack, side, attackerID, "%s (ATK %d) attacks %s directly", attackerName, atk, opp.PlayerID)
		if e.applyDamage(gs, side.Other(), atk, attackerName) > 0 {
			e.fireSelf(gs, attackerID, TriggerOnBattleDamage)
		}
		return
	}

	defenderID := pa.TargetID
	flipped := false
	if d := opp.BoardCard(defenderID); d.IsFaceDown {
		d.IsFaceDown = false
		flipped = true
		e.emit(gs, log.EventChangePosition, side.Other(), defenderID, "%s is flipped face-up", e.cardName(gs, defenderID))
	}
	e.fireSelf(gs, defenderID, TriggerOnBattleAttacked)

	attacker := p.BoardCard(attackerID)
	defender := opp.BoardCard(defenderID)
	if attacker == nil || defender == nil || gs.IsOver() {
		e.emit(gs, log.EventAttackInvalidated, side, "", "battle by %s ends before damage", attackerName)
		gs.PendingAction = nil
		return
	}
	gs.PendingAction = nil

	atk := e.EffectiveAttack(gs, side, attacker)
	var (
		defenderDies, attackerDies bool
		toDefender, toAttacker     int
		summary                    string
	)
	if defender.Position == PositionAttack {
		datk := e.EffectiveAttack(gs, side.Other(), defender)
		summary = fmt.Sprintf("%s (ATK %d) vs %s (ATK %d)", attackerName, atk, e.cardName(gs, defenderID), datk)
		switch {
		case atk > datk:
			defenderDies = !defender.CannotBeDestroyedByBattle
			toDefender = atk - datk
		case atk < datk:
			attackerDies = !attacker.CannotBeDestroyedByBattle
			toAttacker = datk - atk
		default:
			defenderDies = !defender.CannotBeDestroyedByBattle
			attackerDies = !attacker.CannotBeDestroyedByBattle
		}
	} else {
		ddef := e.EffectiveDefense(gs, side.Other(), defender)
		summary = fmt.Sprintf("%s (ATK %d) vs %s (DEF %d)", attackerName, atk, e.cardName(gs, defenderID), ddef)
		switch {
		case atk > ddef:
			defenderDies = !defender.CannotBeDestroyedByBattle
			if e.def(gs, attackerID).Ability.Piercing {
				toDefender = atk - ddef
			}
		case atk < ddef:
			toAttacker = ddef - atk
		}
	}
	e.emit(gs, log.EventDamageCalc, side, attackerID, "%s", summary)

	dealt := e.applyDamage(gs, side.Other(), toDefender, attackerName)
	e.applyDamage(gs, side, toAttacker, e.cardName(gs, defenderID))
	if defenderDies {
		_ = e.destroyCard(gs, defenderID, true)
	}
	if attackerDies {
		_ = e.destroyCard(gs, attackerID, true)
	}

	if defenderDies {
		e.fireSelf(gs, defenderID, TriggerOnDestroy)
		if !attackerDies {
			e.fireSelf(gs, attackerID, TriggerOnBattleDestroy)
		}
	}
	if attackerDies {
		e.fireSelf(gs, attackerID, TriggerOnDestroy)
	}
	if dealt > 0 {
		e.fireSelf(gs, attackerID, TriggerOnBattleDamage)
	}
	if flipped {
		e.fireSelf(gs, defenderID, TriggerOnFlip)
	}
	e.settle(gs)
}
