package game

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// canChainWith checks if a new spell speed can respond to the top of the chain.
func canChainWith(top, next SpellSpeed) bool {
	if next < top {
		return false
	}
	// speed 3 can only be answered by speed 3
	if top == SpellSpeed3 && next < SpellSpeed3 {
		return false
	}
	return true
}

// topSpeed returns the spell speed of the top chain link, or 0.
func (gs *GameState) topSpeed() SpellSpeed {
	if len(gs.Chain) == 0 {
		return 0
	}
	return gs.Chain[len(gs.Chain)-1].SpellSpeed
}

// activationSpeed is the speed of activating cardID's effects.
func (e *Engine) activationSpeed(d *Definition) SpellSpeed {
	if d.CardType == CardTypeMonster {
		return SpellSpeed1
	}
	return d.SpellSpeed()
}

// activatable lists the effect indexes of d that can be started by hand;
// -1 stands for activating a card with only passive effects.
func activatable(d *Definition) []int {
	var idx []int
	for i, eff := range d.Ability.Effects {
		if eff.Trigger == TriggerManual {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 && d.CardType == CardTypeSpell && d.StaysOnField() {
		idx = append(idx, -1)
	}
	return idx
}

// activations enumerates what side could activate. inWindow restricts the
// list to fast responses that can chain to the current top link.
func (e *Engine) activations(gs *GameState, side PlayerSide, inWindow bool) []Action {
	p := gs.Side(side)
	var out []Action
	consider := func(cardID string) {
		d := e.def(gs, cardID)
		speed := e.activationSpeed(d)
		if inWindow && (speed < SpellSpeed2 || !canChainWith(gs.topSpeed(), speed)) {
			return
		}
		for _, idx := range activatable(d) {
			out = append(out, e.activationOptions(gs, side, cardID, idx, d)...)
		}
	}

	for _, id := range p.Hand {
		d := e.def(gs, id)
		if d.CardType != CardTypeSpell {
			continue
		}
		if d.SpellType != SpellField && !p.HasSpellTrapSpace() {
			continue
		}
		if inWindow && (side != gs.TurnSide() || d.SpellType != SpellQuickPlay) {
			continue
		}
		consider(id)
	}
	for _, st := range p.SpellTrapZone {
		d := e.def(gs, st.CardID)
		if st.IsFaceDown {
			if (d.CardType == CardTypeTrap || d.SpellType == SpellQuickPlay) && st.TurnSet >= gs.TurnNumber {
				continue
			}
			consider(st.CardID)
			continue
		}
		// face-up continuous cards may have repeatable manual effects
		if d.StaysOnField() && st.EquippedTo == "" {
			for _, idx := range activatable(d) {
				if idx < 0 {
					continue
				}
				speed := e.activationSpeed(d)
				if inWindow && (speed < SpellSpeed2 || !canChainWith(gs.topSpeed(), speed)) {
					continue
				}
				out = append(out, e.activationOptions(gs, side, st.CardID, idx, d)...)
			}
		}
	}
	if !inWindow {
		for _, bc := range p.Board {
			if !bc.IsFaceDown {
				consider(bc.CardID)
			}
		}
	}
	return out
}

// activationOptions expands one activatable effect into concrete actions,
// one per legal target when it needs a selection.
func (e *Engine) activationOptions(gs *GameState, side PlayerSide, cardID string, idx int, d *Definition) []Action {
	pid := gs.PlayerID(side)
	base := Action{Type: ActionActivate, PlayerID: pid, CardID: cardID, EffectIndex: idx, Desc: "Activate " + d.Name}
	if d.CardType == CardTypeSpell && d.SpellType == SpellEquip {
		if st := gs.Side(side).SpellTrap(cardID); st != nil && !st.IsFaceDown {
			return nil
		}
		var out []Action
		for _, s := range Sides {
			for _, bc := range gs.Side(s).Board {
				if bc.IsFaceDown || bc.CannotBeTargeted {
					continue
				}
				a := base
				a.Targets = []string{bc.CardID}
				a.Desc = "Equip " + d.Name + " to " + e.cardName(gs, bc.CardID)
				out = append(out, a)
			}
		}
		return out
	}
	if idx < 0 {
		return []Action{base}
	}
	eff := d.Ability.Effects[idx]
	if !e.conditionMet(gs, eff.Condition, side) || gs.usageBlocked(eff, cardID, idx, pid) {
		return nil
	}
	zone, _ := targetZone(eff)
	if !needsSelection(eff, zone) {
		return []Action{base}
	}
	var out []Action
	for _, t := range e.TargetCandidates(gs, eff, pid, cardID) {
		a := base
		a.Targets = []string{t}
		a.Desc = d.Name + " → " + e.cardName(gs, t)
		out = append(out, a)
	}
	return out
}

// Activate starts a card or effect. Outside a response window only the turn
// player may activate, in a main phase with no chain; inside one only the
// priority holder may, with a fast enough effect.
func (e *Engine) Activate(gs *GameState, playerID, cardID string, effectIndex int, targets []string) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	side, err := gs.SideOf(playerID)
	if err != nil {
		return err
	}
	if _, err := e.Definition(gs, cardID); err != nil {
		return err
	}
	w := gs.ResponseWindow
	if w != nil {
		if w.Holder != side {
			return illegal(CodeWindowClosed, "%s does not hold priority", playerID)
		}
	} else {
		if side != gs.TurnSide() {
			return illegal(CodeNotYourTurn, "only the turn player can activate now")
		}
		if !gs.CurrentPhase.IsMain() {
			return illegal(CodeWrongPhase, "cards can only be activated in a main phase, not %s", gs.CurrentPhase)
		}
		if err := blocked(gs); err != nil {
			return err
		}
	}
	var match *Action
	for _, a := range e.activations(gs, side, w != nil) {
		if a.CardID != cardID || a.EffectIndex != effectIndex {
			continue
		}
		if len(a.Targets) == 0 || (len(targets) > 0 && indexOf(a.Targets, targets[0]) >= 0) {
			a := a
			match = &a
			break
		}
	}
	if match == nil {
		return illegal(CodeCannotActivate, "%s cannot be activated now", e.cardName(gs, cardID))
	}
	if len(match.Targets) > 0 {
		if err := e.checkTargets(gs, side, cardID, effectIndex, targets); err != nil {
			return err
		}
	} else {
		targets = nil
	}

	e.pushLink(gs, side, cardID, effectIndex, targets)
	if w != nil {
		w.Passes = 0
		w.Holder = side.Other()
	} else {
		e.openWindow(gs, WindowChain, side.Other())
	}
	e.runWindow(gs)
	e.settle(gs)
	e.progress(gs)
	return nil
}

// checkTargets validates every chosen target before anything moves.
func (e *Engine) checkTargets(gs *GameState, side PlayerSide, cardID string, idx int, targets []string) error {
	d := e.def(gs, cardID)
	if d.CardType == CardTypeSpell && d.SpellType == SpellEquip {
		if len(targets) != 1 {
			return illegal(CodeBadTarget, "equip spells need exactly one monster")
		}
		bc := boardCardAnywhere(gs, targets[0])
		if bc == nil || bc.IsFaceDown || bc.CannotBeTargeted {
			return illegal(CodeBadTarget, "%s cannot be equipped", targets[0])
		}
		return nil
	}
	if idx < 0 {
		return nil
	}
	if _, res, good := e.pick(gs, d.Ability.Effects[idx], side, cardID, targets); !good {
		return illegal(CodeBadTarget, "%s", res.Message)
	}
	return nil
}

// pushLink puts the card on the field as needed and adds a chain link.
func (e *Engine) pushLink(gs *GameState, side PlayerSide, cardID string, idx int, targets []string) {
	p := gs.Side(side)
	d := e.def(gs, cardID)
	if i := p.HandIndex(cardID); i >= 0 {
		p.Hand = removeAt(p.Hand, i)
		slot := SpellTrapSlot{CardID: cardID, IsActivated: true, TurnSet: gs.TurnNumber}
		if d.SpellType == SpellField {
			if old := p.FieldSpell; old != nil {
				e.emit(gs, log.EventFieldSpellReplaced, side, old.CardID, "%s replaces %s", d.Name, e.cardName(gs, old.CardID))
				p.FieldSpell = nil
				p.Graveyard = append(p.Graveyard, old.CardID)
			}
			p.FieldSpell = &slot
		} else {
			p.SpellTrapZone = append(p.SpellTrapZone, slot)
		}
	} else if st := p.SpellTrap(cardID); st != nil {
		st.IsFaceDown = false
		st.IsActivated = true
	}
	if d.SpellType == SpellEquip && len(targets) == 1 {
		if st := p.SpellTrap(cardID); st != nil {
			st.EquippedTo = targets[0]
		}
		if bc := boardCardAnywhere(gs, targets[0]); bc != nil {
			bc.EquippedCards = append(bc.EquippedCards, cardID)
		}
		targets = nil
	}
	if idx >= 0 {
		gs.recordUsage(d.Ability.Effects[idx], cardID, idx, p.PlayerID)
	}
	gs.Chain = append(gs.Chain, ChainLink{
		CardID:      cardID,
		PlayerID:    p.PlayerID,
		EffectIndex: idx,
		Targets:     targets,
		SpellSpeed:  e.activationSpeed(d),
	})
	e.emit(gs, log.EventActivate, side, cardID, "%s activates %s", p.PlayerID, d.Name)
	e.emitMeta(gs, log.EventChainLink, side, map[string]string{"cardId": cardID, "link": strconv.Itoa(len(gs.Chain))},
		"chain link %d: %s", len(gs.Chain), d.Name)
}

// --- Response windows ---

func (e *Engine) openWindow(gs *GameState, t WindowType, holder PlayerSide) {
	gs.ResponseWindow = &ResponseWindow{Type: t, Holder: holder, OpenedBy: holder.Other()}
}

// responses lists fast effects side may chain in the current window.
func (e *Engine) responses(gs *GameState, side PlayerSide) []Action {
	return e.activations(gs, side, true)
}

// runWindow auto-passes holders without responses and lets computer
// holders decide. It returns when a human must answer or the window closed.
func (e *Engine) runWindow(gs *GameState) {
	for gs.ResponseWindow != nil && !gs.IsOver() {
		w := gs.ResponseWindow
		opts := e.responses(gs, w.Holder)
		if len(opts) == 0 {
			e.passWindow(gs)
			continue
		}
		if !gs.Side(w.Holder).IsComputer {
			return
		}
		if a, yes := e.auto.ChooseResponse(gs, w.Holder, opts); yes {
			err := e.Activate(gs, a.PlayerID, a.CardID, a.EffectIndex, a.Targets)
			if err == nil {
				return
			}
			e.logger.Debug("automaton response rejected",
				zap.String("match_id", gs.MatchID), zap.String("card_id", a.CardID), zap.Error(err))
		}
		e.passWindow(gs)
	}
	if gs.IsOver() {
		gs.ResponseWindow = nil
	}
}

// passWindow records a pass; two in a row close the window.
func (e *Engine) passWindow(gs *GameState) {
	w := gs.ResponseWindow
	w.Passes++
	if w.Passes >= 2 {
		e.closeWindow(gs)
		return
	}
	w.Holder = w.Holder.Other()
}

// closeWindow resolves the chain and resumes whatever opened the window.
func (e *Engine) closeWindow(gs *GameState) {
	t := gs.ResponseWindow.Type
	gs.ResponseWindow = nil
	e.resolveChain(gs)
	if t == WindowAttack && gs.PendingAction != nil && !gs.IsOver() {
		e.resolvePendingAttack(gs)
	}
}

// PassPriority passes on responding in the open window.
func (e *Engine) PassPriority(gs *GameState, playerID string) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	side, err := gs.SideOf(playerID)
	if err != nil {
		return err
	}
	w := gs.ResponseWindow
	if w == nil {
		return illegal(CodeWindowClosed, "no response window is open")
	}
	if w.Holder != side {
		return illegal(CodeWindowClosed, "%s does not hold priority", playerID)
	}
	e.passWindow(gs)
	e.runWindow(gs)
	e.settle(gs)
	e.progress(gs)
	return nil
}

// resolveChain resolves links last-in first-out. Negated links do nothing
// and their cards are sent to the graveyard.
func (e *Engine) resolveChain(gs *GameState) {
	for len(gs.Chain) > 0 && !gs.IsOver() {
		n := len(gs.Chain)
		link := gs.Chain[n-1]
		gs.Chain = gs.Chain[:n-1]
		side, err := gs.SideOf(link.PlayerID)
		if err != nil {
			continue
		}
		d := e.def(gs, link.CardID)
		e.emit(gs, log.EventChainResolve, side, link.CardID, "chain link %d resolves: %s", n, d.Name)
		onField := gs.Side(side).SpellTrap(link.CardID) != nil
		if link.Negated {
			if onField {
				_ = e.sendToGraveyard(gs, link.CardID, "negated")
			}
			continue
		}
		if link.EffectIndex >= 0 && link.EffectIndex < len(d.Ability.Effects) {
			res := e.ExecuteEffect(gs, d.Ability.Effects[link.EffectIndex], link.PlayerID, link.CardID, link.Targets)
			if !res.Success {
				e.logger.Info("chain link fizzled",
					zap.String("match_id", gs.MatchID),
					zap.String("card_id", link.CardID),
					zap.String("reason", res.Message))
			}
		}
		if gs.Side(side).SpellTrap(link.CardID) != nil && !d.StaysOnField() {
			_ = e.sendToGraveyard(gs, link.CardID, "resolved")
		}
		e.settle(gs)
	}
	if gs.IsOver() {
		gs.Chain = nil
	}
}
