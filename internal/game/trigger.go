package game

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// triggerEvent is the moment a trigger scan happens for.
type triggerEvent struct {
	Kind    TriggerKind
	Subject string     // card the event happened to, for self triggers
	Actor   PlayerSide // side that caused the event
}

// segocOrder ranks a trigger: turn player mandatory, opponent mandatory,
// turn player optional, opponent optional.
func segocOrder(ctl, turn PlayerSide, mandatory bool) int {
	order := 1
	if ctl != turn {
		order = 2
	}
	if !mandatory {
		order += 2
	}
	return order
}

func skipKey(cardID string, trig TriggerKind, turn int) string {
	return fmt.Sprintf("%s|%s|%d", cardID, trig, turn)
}

func (gs *GameState) skipped(cardID string, trig TriggerKind) bool {
	return indexOf(gs.SkippedOptionalTriggers, skipKey(cardID, trig, gs.TurnNumber)) >= 0
}

func (gs *GameState) markSkipped(cardID string, trig TriggerKind) {
	key := skipKey(cardID, trig, gs.TurnNumber)
	if indexOf(gs.SkippedOptionalTriggers, key) < 0 {
		gs.SkippedOptionalTriggers = append(gs.SkippedOptionalTriggers, key)
	}
}

func (gs *GameState) pendingIndex(cardID string, effIdx int) int {
	for i, p := range gs.PendingOptionalTriggers {
		if p.CardID == cardID && p.EffectIndex == effIdx {
			return i
		}
	}
	return -1
}

// --- OPT / HOPT ---

func optKey(cardID string, effIdx, turn int) string {
	return fmt.Sprintf("opt|%s|%d|%d", cardID, effIdx, turn)
}

func hoptKey(defID, playerID string, turn int) string {
	return fmt.Sprintf("hopt|%s|%s|%d", defID, playerID, turn)
}

// usageBlocked reports whether a once-per-turn restriction stops eff.
func (gs *GameState) usageBlocked(eff ParsedEffect, cardID string, effIdx int, playerID string) bool {
	if eff.OncePerTurn && indexOf(gs.EffectUsage, optKey(cardID, effIdx, gs.TurnNumber)) >= 0 {
		return true
	}
	if eff.HardOncePerTurn && indexOf(gs.EffectUsage, hoptKey(gs.Instances[cardID], playerID, gs.TurnNumber)) >= 0 {
		return true
	}
	return false
}

func (gs *GameState) recordUsage(eff ParsedEffect, cardID string, effIdx int, playerID string) {
	if eff.OncePerTurn {
		gs.EffectUsage = append(gs.EffectUsage, optKey(cardID, effIdx, gs.TurnNumber))
	}
	if eff.HardOncePerTurn {
		gs.EffectUsage = append(gs.EffectUsage, hoptKey(gs.Instances[cardID], playerID, gs.TurnNumber))
	}
}

// conditionMet evaluates an effect condition from ctl's point of view.
func (e *Engine) conditionMet(gs *GameState, c Condition, ctl PlayerSide) bool {
	opp := gs.Side(ctl.Other())
	switch c.Kind {
	case CondAlways:
		return true
	case CondOpponentAttacking:
		return gs.PendingAction != nil && gs.PendingAction.PlayerID == opp.PlayerID
	case CondOpponentNoMonsters:
		return len(opp.Board) == 0
	case CondOpponentNoSpellTraps:
		return len(opp.SpellTrapZone) == 0 && opp.FieldSpell == nil
	case CondControllerLPBelow:
		return gs.Side(ctl).LifePoints < c.Value
	case CondChainActive:
		return len(gs.Chain) > 0
	case CondAttackAtMost:
		if gs.PendingAction == nil {
			return false
		}
		side, err := gs.SideOf(gs.PendingAction.PlayerID)
		if err != nil {
			return false
		}
		bc := gs.Side(side).BoardCard(gs.PendingAction.AttackerID)
		return bc != nil && e.EffectiveAttack(gs, side, bc) <= c.Value
	}
	return false
}

// --- Scanning ---

// scan collects every effect whose trigger matches ev.
func (e *Engine) scan(gs *GameState, ev triggerEvent) []SegocQueueItem {
	turn := gs.TurnSide()
	var items []SegocQueueItem
	add := func(side PlayerSide, cardID string, zone ZoneType) {
		d := e.def(gs, cardID)
		pid := gs.PlayerID(side)
		for i, eff := range d.Ability.Effects {
			if eff.Trigger != ev.Kind {
				continue
			}
			if !e.conditionMet(gs, eff.Condition, side) || gs.usageBlocked(eff, cardID, i, pid) {
				continue
			}
			optional := !eff.Mandatory()
			if optional && (gs.skipped(cardID, ev.Kind) || gs.pendingIndex(cardID, i) >= 0) {
				continue
			}
			items = append(items, SegocQueueItem{
				CardID:      cardID,
				PlayerID:    pid,
				Trigger:     ev.Kind,
				EffectIndex: i,
				IsOptional:  optional,
				SegocOrder:  segocOrder(side, turn, !optional),
				AddedAt:     gs.NextSeq(),
				Zone:        zone,
			})
		}
	}

	if ev.Kind.selfTriggered() {
		if loc, found := gs.Locate(ev.Subject); found {
			add(loc.Side, ev.Subject, loc.Zone)
		}
		return items
	}

	for _, side := range []PlayerSide{turn, turn.Other()} {
		switch ev.Kind {
		case TriggerOnOpponentSummon:
			if side == ev.Actor {
				continue
			}
		case TriggerOnDraw:
			if side != ev.Actor {
				continue
			}
		}
		p := gs.Side(side)
		for _, bc := range p.Board {
			if !bc.IsFaceDown {
				add(side, bc.CardID, ZoneBoard)
			}
		}
		for _, st := range p.SpellTrapZone {
			if !st.IsFaceDown || e.def(gs, st.CardID).CardType == CardTypeTrap && st.TurnSet < gs.TurnNumber {
				add(side, st.CardID, ZoneSpellTrap)
			}
		}
		if p.FieldSpell != nil && !p.FieldSpell.IsFaceDown {
			add(side, p.FieldSpell.CardID, ZoneFieldSpell)
		}
	}
	return items
}

// dispatch builds a fresh SEGOC queue for ev and drains it. Mandatory
// effects fire in order; optional ones are decided by the automaton for
// computer seats or parked for an explicit response.
func (e *Engine) dispatch(gs *GameState, ev triggerEvent) {
	if gs.IsOver() {
		return
	}
	if gs.triggerDepth >= e.rules.TriggerCascadeCap {
		e.logger.Warn("trigger cascade cap reached",
			zap.String("match_id", gs.MatchID),
			zap.String("card_id", ev.Subject),
			zap.String("trigger", string(ev.Kind)))
		e.emit(gs, log.EventTriggerAbandoned, ev.Actor, "", "trigger cascade stopped at depth %d", gs.triggerDepth)
		return
	}
	items := e.scan(gs, ev)
	if len(items) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SegocOrder != items[j].SegocOrder {
			return items[i].SegocOrder < items[j].SegocOrder
		}
		return items[i].AddedAt < items[j].AddedAt
	})

	gs.triggerDepth++
	outer := gs.SegocQueue
	defer func() {
		gs.triggerDepth--
		gs.SegocQueue = outer
	}()

	gs.SegocQueue = items
	for len(gs.SegocQueue) > 0 && !gs.IsOver() {
		item := gs.SegocQueue[0]
		gs.SegocQueue = gs.SegocQueue[1:]
		if !e.stillThere(gs, item.CardID, item.PlayerID, item.Zone) {
			e.abandon(gs, item.CardID, item.PlayerID, item.Trigger, "card left its zone")
			continue
		}
		if !item.IsOptional {
			e.fire(gs, item.CardID, item.PlayerID, item.EffectIndex, item.Trigger)
			continue
		}
		e.offer(gs, PendingOptionalTrigger{
			CardID:      item.CardID,
			PlayerID:    item.PlayerID,
			Trigger:     item.Trigger,
			EffectIndex: item.EffectIndex,
			Turn:        gs.TurnNumber,
			AddedAt:     item.AddedAt,
			Zone:        item.Zone,
		})
	}
}

// offer hands an optional trigger to its controller.
func (e *Engine) offer(gs *GameState, trig PendingOptionalTrigger) {
	side, err := gs.SideOf(trig.PlayerID)
	if err != nil {
		return
	}
	if gs.Side(side).IsComputer {
		if e.auto.AcceptTrigger(gs, trig) {
			e.fire(gs, trig.CardID, trig.PlayerID, trig.EffectIndex, trig.Trigger)
			return
		}
		gs.markSkipped(trig.CardID, trig.Trigger)
		e.emit(gs, log.EventTriggerSkipped, side, trig.CardID, "%s declines %s", trig.PlayerID, e.cardName(gs, trig.CardID))
		return
	}
	gs.PendingOptionalTriggers = append(gs.PendingOptionalTriggers, trig)
	e.emit(gs, log.EventTriggerQueued, side, trig.CardID, "%s may activate %s", trig.PlayerID, e.cardName(gs, trig.CardID))
}

// stillThere re-validates a queued trigger against the live state.
func (e *Engine) stillThere(gs *GameState, cardID, playerID string, zone ZoneType) bool {
	loc, found := gs.Locate(cardID)
	if !found || loc.Zone != zone || gs.PlayerID(loc.Side) != playerID {
		return false
	}
	if loc.Zone == ZoneBoard {
		return !gs.Side(loc.Side).Board[loc.Index].IsFaceDown
	}
	return true
}

func (e *Engine) abandon(gs *GameState, cardID, playerID string, trig TriggerKind, reason string) {
	e.logger.Warn("trigger abandoned",
		zap.String("match_id", gs.MatchID),
		zap.String("card_id", cardID),
		zap.String("trigger", string(trig)),
		zap.String("reason", reason))
	side, err := gs.SideOf(playerID)
	if err != nil {
		side = gs.TurnSide()
	}
	e.emit(gs, log.EventTriggerAbandoned, side, "", "%s trigger of %s abandoned: %s", trig, cardID, reason)
}

// fire executes one triggered effect without prompting. Effects that would
// need a chosen target are abandoned.
func (e *Engine) fire(gs *GameState, cardID, playerID string, effIdx int, trig TriggerKind) {
	d := e.def(gs, cardID)
	if effIdx < 0 || effIdx >= len(d.Ability.Effects) {
		e.abandon(gs, cardID, playerID, trig, "no such effect")
		return
	}
	eff := d.Ability.Effects[effIdx]
	side, err := gs.SideOf(playerID)
	if err != nil {
		return
	}
	var slot *SpellTrapSlot
	if s := gs.Side(side).SpellTrap(cardID); s != nil {
		slot = s
		if slot.IsFaceDown {
			slot.IsFaceDown = false
			slot.IsActivated = true
		}
	}
	gs.recordUsage(eff, cardID, effIdx, playerID)
	e.emit(gs, log.EventActivate, side, cardID, "%s activates %s (%s)", playerID, d.Name, trig)
	res := e.ExecuteEffect(gs, eff, playerID, cardID, nil)
	if res.RequiresSelection {
		e.abandon(gs, cardID, playerID, trig, res.Message)
	}
	if slot != nil && !d.StaysOnField() && gs.Side(side).SpellTrap(cardID) != nil {
		_ = e.sendToGraveyard(gs, cardID, "resolved")
	}
}

// fireSelf runs the single-card trigger path for an event that happened to cardID.
func (e *Engine) fireSelf(gs *GameState, cardID string, kind TriggerKind) {
	actor := gs.TurnSide()
	if loc, found := gs.Locate(cardID); found {
		actor = loc.Side
	}
	e.dispatch(gs, triggerEvent{Kind: kind, Subject: cardID, Actor: actor})
}

// fireAll runs a board-wide trigger scan.
func (e *Engine) fireAll(gs *GameState, kind TriggerKind, actor PlayerSide) {
	e.dispatch(gs, triggerEvent{Kind: kind, Actor: actor})
}

// summonTriggers fires the summoned card's own triggers, then the other
// side's reactions.
func (e *Engine) summonTriggers(gs *GameState, side PlayerSide, cardID string) {
	e.fireSelf(gs, cardID, TriggerOnSummon)
	e.fireAll(gs, TriggerOnOpponentSummon, side)
}

// RespondOptionalTrigger accepts or skips a parked optional trigger.
func (e *Engine) RespondOptionalTrigger(gs *GameState, playerID, cardID string, effectIndex int, accept bool) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	i := gs.pendingIndex(cardID, effectIndex)
	if i < 0 || gs.PendingOptionalTriggers[i].PlayerID != playerID {
		return illegal(CodeNotInZone, "no pending trigger for %s", cardID)
	}
	trig := gs.PendingOptionalTriggers[i]
	gs.PendingOptionalTriggers = append(gs.PendingOptionalTriggers[:i:i], gs.PendingOptionalTriggers[i+1:]...)
	side, _ := gs.SideOf(playerID)
	switch {
	case !accept:
		gs.markSkipped(cardID, trig.Trigger)
		e.emit(gs, log.EventTriggerSkipped, side, cardID, "%s skips %s", playerID, e.cardName(gs, cardID))
	case trig.Turn != gs.TurnNumber || !e.stillThere(gs, cardID, playerID, trig.Zone):
		e.abandon(gs, cardID, playerID, trig.Trigger, "trigger is stale")
	default:
		e.fire(gs, cardID, playerID, trig.EffectIndex, trig.Trigger)
	}
	e.settle(gs)
	e.progress(gs)
	return nil
}

// expirePendingTriggers records every unanswered optional trigger as skipped.
func (e *Engine) expirePendingTriggers(gs *GameState) {
	for _, trig := range gs.PendingOptionalTriggers {
		gs.markSkipped(trig.CardID, trig.Trigger)
		if side, err := gs.SideOf(trig.PlayerID); err == nil {
			e.emit(gs, log.EventTriggerSkipped, side, trig.CardID, "%s lets %s pass", trig.PlayerID, e.cardName(gs, trig.CardID))
		}
	}
	gs.PendingOptionalTriggers = nil
	gs.SegocQueue = nil
}
