package ai

import (
	"github.com/peterkuimelis/duelcore/internal/game"
)

// assumedFaceDownDefense is what a face-down monster is guessed to defend with.
const assumedFaceDownDefense = 1500

// NextAction proposes one action for playerID in the current phase. It
// returns false when the seat has nothing it wants to do, which ends the
// phase. Proposals are drawn from the engine's legal actions but are still
// validated again when applied.
func (b *Brain) NextAction(gs *game.GameState, playerID string) (game.Action, bool) {
	side, err := gs.SideOf(playerID)
	if err != nil || gs.IsOver() {
		return game.Action{}, false
	}
	legal := b.engine.LegalActions(gs, playerID)
	prof := b.profileOf(gs, side)
	switch {
	case gs.CurrentPhase.IsMain():
		return b.mainAction(gs, side, legal, prof)
	case gs.CurrentPhase == game.PhaseBattle:
		return b.battleAction(gs, side, legal, prof)
	}
	return game.Action{}, false
}

func (b *Brain) mainAction(gs *game.GameState, side game.PlayerSide, legal []game.Action, prof Profile) (game.Action, bool) {
	for _, a := range legal {
		if a.Type == game.ActionFlipSummon {
			return a, true
		}
	}
	if a, ok := b.summonChoice(gs, side, legal, prof); ok {
		return a, true
	}
	if a, ok := b.activationChoice(gs, side, legal, prof); ok {
		return a, true
	}
	for _, a := range legal {
		if a.Type != game.ActionSetSpellTrap {
			continue
		}
		d, err := b.engine.Definition(gs, a.CardID)
		if err != nil {
			continue
		}
		if (d.CardType == game.CardTypeTrap || d.SpellType == game.SpellQuickPlay) && b.roll(prof.ActivateChance) {
			return a, true
		}
	}
	return game.Action{}, false
}

// summonChoice picks the summon with the best attack gain over its tributes.
// A monster that would lose to the opponent's best attacker but walls it is
// set instead.
func (b *Brain) summonChoice(gs *game.GameState, side game.PlayerSide, legal []game.Action, prof Profile) (game.Action, bool) {
	oppBest, oppHas := b.engine.StrongestAttack(gs, side.Other())
	var (
		best     game.Action
		bestGain int
		found    bool
	)
	for _, a := range legal {
		if a.Type != game.ActionNormalSummon {
			continue
		}
		d, err := b.engine.Definition(gs, a.CardID)
		if err != nil {
			continue
		}
		gain := d.Attack - b.tributeCost(gs, side, a.Tributes)
		if len(a.Tributes) > 0 {
			if gain <= 0 {
				continue
			}
			if prof.TributeOverBest && oppHas && d.Attack <= oppBest {
				continue
			}
		}
		if !found || gain > bestGain {
			best, bestGain, found = a, gain, true
		}
	}
	if !found || !b.roll(prof.SummonChance) {
		return game.Action{}, false
	}
	d, _ := b.engine.Definition(gs, best.CardID)
	if oppHas && d.Attack < oppBest && d.Defense > oppBest {
		best.Type = game.ActionSetMonster
	}
	return best, true
}

func (b *Brain) tributeCost(gs *game.GameState, side game.PlayerSide, tributes []string) int {
	cost := 0
	for _, t := range tributes {
		if bc := gs.Side(side).BoardCard(t); bc != nil {
			cost += b.engine.EffectiveAttack(gs, side, bc)
		}
	}
	return cost
}

// activationChoice plays the most useful ignition activation, skipping
// removal aimed at our own cards and answers with nothing to answer.
func (b *Brain) activationChoice(gs *game.GameState, side game.PlayerSide, legal []game.Action, prof Profile) (game.Action, bool) {
	var (
		best      game.Action
		bestScore int
	)
	for _, a := range legal {
		if a.Type != game.ActionActivate {
			continue
		}
		if s := b.activationScore(gs, side, a); s > bestScore {
			best, bestScore = a, s
		}
	}
	if bestScore == 0 || !b.roll(prof.ActivateChance) {
		return game.Action{}, false
	}
	return best, true
}

func (b *Brain) activationScore(gs *game.GameState, side game.PlayerSide, a game.Action) int {
	d, err := b.engine.Definition(gs, a.CardID)
	if err != nil {
		return 0
	}
	if d.SpellType == game.SpellEquip {
		if len(a.Targets) == 1 {
			if loc, ok := gs.Locate(a.Targets[0]); ok && loc.Side == side {
				return 2
			}
		}
		return 0
	}
	if a.EffectIndex < 0 {
		return 1
	}
	eff := d.Ability.Effects[a.EffectIndex]
	if hitsOwnCard(gs, side, eff, a) {
		return 0
	}
	switch eff.Kind {
	case game.EffectNegate:
		return 0
	case game.EffectDestroy, game.EffectSummon, game.EffectDraw, game.EffectSearch, game.EffectGenerateToken:
		return 3
	case game.EffectDamage, game.EffectBreakdown, game.EffectBanish, game.EffectReturnToHand, game.EffectDiscard:
		return 2
	case game.EffectGainLP:
		if gs.Side(side).LifePoints >= b.engine.Rules().LPCeiling && b.engine.Rules().LPCeiling > 0 {
			return 0
		}
		return 1
	}
	return 1
}

// battleAction declares the attack with the best expected outcome.
func (b *Brain) battleAction(gs *game.GameState, side game.PlayerSide, legal []game.Action, prof Profile) (game.Action, bool) {
	var (
		best      game.Action
		bestScore int
	)
	for _, a := range legal {
		if a.Type != game.ActionAttack {
			continue
		}
		if s := b.attackScore(gs, side, a.CardID, a.TargetID, prof); s > bestScore {
			best, bestScore = a, s
		}
	}
	if bestScore <= 0 || !b.roll(prof.AttackChance) {
		return game.Action{}, false
	}
	return best, true
}

// attackScore rates attacking targetID (or the player when empty) with
// attackerID. Zero or less means the attack is not worth making.
func (b *Brain) attackScore(gs *game.GameState, side game.PlayerSide, attackerID, targetID string, prof Profile) int {
	attacker := gs.Side(side).BoardCard(attackerID)
	if attacker == nil {
		return 0
	}
	atk := b.engine.EffectiveAttack(gs, side, attacker)
	if targetID == "" {
		return atk
	}
	opp := side.Other()
	target := gs.Side(opp).BoardCard(targetID)
	if target == nil {
		return 0
	}
	if target.IsFaceDown {
		if atk > assumedFaceDownDefense {
			return 1
		}
		return 0
	}
	if target.Position == game.PositionAttack {
		datk := b.engine.EffectiveAttack(gs, opp, target)
		switch {
		case atk > datk && !target.CannotBeDestroyedByBattle:
			return 1000 + atk - datk
		case atk > datk:
			return atk - datk
		case atk == datk && prof.TradeEven && !target.CannotBeDestroyedByBattle:
			return 500
		}
		return 0
	}
	ddef := b.engine.EffectiveDefense(gs, opp, target)
	if atk > ddef && !target.CannotBeDestroyedByBattle {
		return 800
	}
	return 0
}
