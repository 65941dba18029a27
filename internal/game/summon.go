package game

import (
	"strings"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// placeMonster puts cardID on side's board with its printed stats and keywords.
func (e *Engine) placeMonster(gs *GameState, side PlayerSide, cardID string, pos Position, faceDown bool) {
	d := e.def(gs, cardID)
	p := gs.Side(side)
	p.Board = append(p.Board, BoardCard{
		CardID:                     cardID,
		Position:                   pos,
		Attack:                     d.Attack,
		Defense:                    d.Defense,
		IsFaceDown:                 faceDown,
		TurnSummoned:               gs.TurnNumber,
		CannotBeDestroyedByBattle:  d.Ability.CannotBeDestroyedByBattle,
		CannotBeDestroyedByEffects: d.Ability.CannotBeDestroyedByEffects,
		CannotBeTargeted:           d.Ability.CannotBeTargeted,
		IsToken:                    d.IsToken,
	})
}

// checkNormalSummon validates a normal summon or set from hand, including
// tributes. It does not mutate.
func (e *Engine) checkNormalSummon(gs *GameState, playerID, cardID string, tributes []string) (PlayerSide, *Definition, error) {
	if err := requireActive(gs); err != nil {
		return 0, nil, err
	}
	side, err := requireTurnPlayer(gs, playerID)
	if err != nil {
		return side, nil, err
	}
	if !gs.CurrentPhase.IsMain() {
		return side, nil, illegal(CodeWrongPhase, "monsters can only be summoned in a main phase, not %s", gs.CurrentPhase)
	}
	if err := blocked(gs); err != nil {
		return side, nil, err
	}
	p := gs.Side(side)
	if p.HandIndex(cardID) < 0 {
		return side, nil, illegal(CodeNotInZone, "%s is not in %s's hand", cardID, playerID)
	}
	d, err := e.Definition(gs, cardID)
	if err != nil {
		return side, nil, err
	}
	if d.CardType != CardTypeMonster {
		return side, nil, illegal(CodeCannotActivate, "%s is not a monster", d.Name)
	}
	if p.NormalSummonedThisTurn {
		return side, nil, illegal(CodeAlreadySummoned, "%s already normal summoned this turn", playerID)
	}
	need := d.TributesRequired()
	if len(tributes) != need {
		return side, nil, illegal(CodeTributeCount, "%s needs %d tribute(s), got %d", d.Name, need, len(tributes))
	}
	seen := make(map[string]bool, len(tributes))
	for _, t := range tributes {
		if seen[t] || p.BoardCard(t) == nil {
			return side, nil, illegal(CodeTributeCount, "%s is not a valid tribute", t)
		}
		seen[t] = true
	}
	if len(p.Board)-need >= BoardZoneCount {
		return side, nil, illegal(CodeZoneFull, "no free monster zone")
	}
	return side, d, nil
}

// payTributes sends the tributes to the graveyard.
func (e *Engine) payTributes(gs *GameState, tributes []string) {
	for _, t := range tributes {
		_ = e.sendToGraveyard(gs, t, "tribute")
	}
}

// NormalSummon summons a monster from hand in face-up attack position.
func (e *Engine) NormalSummon(gs *GameState, playerID, cardID string, tributes []string) error {
	side, d, err := e.checkNormalSummon(gs, playerID, cardID, tributes)
	if err != nil {
		return err
	}
	p := gs.Side(side)
	e.payTributes(gs, tributes)
	p.Hand = removeAt(p.Hand, p.HandIndex(cardID))
	e.placeMonster(gs, side, cardID, PositionAttack, false)
	p.NormalSummonedThisTurn = true
	if len(tributes) > 0 {
		e.emitMeta(gs, log.EventTributeSummon, side, map[string]string{"cardId": cardID, "tributes": strings.Join(tributes, ",")},
			"%s tribute summons %s (ATK %d)", playerID, d.Name, d.Attack)
	} else {
		e.emit(gs, log.EventNormalSummon, side, cardID, "%s summons %s (ATK %d)", playerID, d.Name, d.Attack)
	}
	e.summonTriggers(gs, side, cardID)
	e.settle(gs)
	if !gs.IsOver() {
		e.openWindow(gs, WindowSummon, side.Other())
		e.runWindow(gs)
		e.settle(gs)
	}
	e.progress(gs)
	return nil
}

// SetMonster sets a monster from hand face-down in defense position. It uses
// the turn's normal summon.
func (e *Engine) SetMonster(gs *GameState, playerID, cardID string, tributes []string) error {
	side, _, err := e.checkNormalSummon(gs, playerID, cardID, tributes)
	if err != nil {
		return err
	}
	p := gs.Side(side)
	e.payTributes(gs, tributes)
	p.Hand = removeAt(p.Hand, p.HandIndex(cardID))
	e.placeMonster(gs, side, cardID, PositionDefense, true)
	p.NormalSummonedThisTurn = true
	e.emit(gs, log.EventSetMonster, side, "", "%s sets a monster", playerID)
	e.settle(gs)
	return nil
}

// FlipSummon turns a face-down monster set on an earlier turn face-up in
// attack position.
func (e *Engine) FlipSummon(gs *GameState, playerID, cardID string) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	side, err := requireTurnPlayer(gs, playerID)
	if err != nil {
		return err
	}
	if !gs.CurrentPhase.IsMain() {
		return illegal(CodeWrongPhase, "flip summons need a main phase")
	}
	if err := blocked(gs); err != nil {
		return err
	}
	bc := gs.Side(side).BoardCard(cardID)
	switch {
	case bc == nil:
		return illegal(CodeNotInZone, "%s is not on %s's board", cardID, playerID)
	case !bc.IsFaceDown:
		return illegal(CodeCannotChange, "%s is already face-up", e.cardName(gs, cardID))
	case bc.TurnSummoned >= gs.TurnNumber:
		return illegal(CodeCannotChange, "%s was set this turn", e.cardName(gs, cardID))
	case bc.HasChangedPosition:
		return illegal(CodeCannotChange, "%s already changed position this turn", e.cardName(gs, cardID))
	}
	bc.IsFaceDown = false
	bc.Position = PositionAttack
	bc.HasChangedPosition = true
	e.emit(gs, log.EventFlipSummon, side, cardID, "%s flip summons %s", playerID, e.cardName(gs, cardID))
	e.fireSelf(gs, cardID, TriggerOnFlip)
	e.summonTriggers(gs, side, cardID)
	e.settle(gs)
	if !gs.IsOver() {
		e.openWindow(gs, WindowSummon, side.Other())
		e.runWindow(gs)
		e.settle(gs)
	}
	e.progress(gs)
	return nil
}

// canChangePosition applies the position-change gates.
func canChangePosition(gs *GameState, bc *BoardCard) bool {
	return !bc.IsFaceDown && !bc.HasChangedPosition && !bc.HasAttacked && bc.TurnSummoned < gs.TurnNumber
}

// ChangePosition toggles a face-up monster between attack and defense.
func (e *Engine) ChangePosition(gs *GameState, playerID, cardID string) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	side, err := requireTurnPlayer(gs, playerID)
	if err != nil {
		return err
	}
	if !gs.CurrentPhase.IsMain() {
		return illegal(CodeWrongPhase, "position changes need a main phase")
	}
	if err := blocked(gs); err != nil {
		return err
	}
	bc := gs.Side(side).BoardCard(cardID)
	if bc == nil {
		return illegal(CodeNotInZone, "%s is not on %s's board", cardID, playerID)
	}
	if !canChangePosition(gs, bc) {
		return illegal(CodeCannotChange, "%s cannot change position now", e.cardName(gs, cardID))
	}
	if bc.Position == PositionAttack {
		bc.Position = PositionDefense
	} else {
		bc.Position = PositionAttack
	}
	bc.HasChangedPosition = true
	e.emit(gs, log.EventChangePosition, side, cardID, "%s changes %s to %s position", playerID, e.cardName(gs, cardID), bc.Position)
	e.settle(gs)
	return nil
}

// SetSpellTrap places a spell or trap face-down in the spell/trap zone.
func (e *Engine) SetSpellTrap(gs *GameState, playerID, cardID string) error {
	if err := requireActive(gs); err != nil {
		return err
	}
	side, err := requireTurnPlayer(gs, playerID)
	if err != nil {
		return err
	}
	if !gs.CurrentPhase.IsMain() {
		return illegal(CodeWrongPhase, "cards can only be set in a main phase")
	}
	if err := blocked(gs); err != nil {
		return err
	}
	p := gs.Side(side)
	i := p.HandIndex(cardID)
	if i < 0 {
		return illegal(CodeNotInZone, "%s is not in %s's hand", cardID, playerID)
	}
	d, err := e.Definition(gs, cardID)
	if err != nil {
		return err
	}
	if d.CardType == CardTypeMonster || d.SpellType == SpellField {
		return illegal(CodeCannotActivate, "%s cannot be set in a spell/trap zone", d.Name)
	}
	if !p.HasSpellTrapSpace() {
		return illegal(CodeZoneFull, "no free spell/trap zone")
	}
	p.Hand = removeAt(p.Hand, i)
	p.SpellTrapZone = append(p.SpellTrapZone, SpellTrapSlot{CardID: cardID, IsFaceDown: true, TurnSet: gs.TurnNumber})
	e.emit(gs, log.EventSetSpellTrap, side, "", "%s sets a card", playerID)
	return nil
}
