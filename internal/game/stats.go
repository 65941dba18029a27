package game

// affectedSides resolves an explicit target owner into seats relative to the
// controller. With no owner, fallback decides.
func affectedSides(owner TargetOwner, ctl PlayerSide, fallback TargetOwner) []PlayerSide {
	if owner == OwnerUnspecified {
		owner = fallback
	}
	switch owner {
	case OwnerOpponent:
		return []PlayerSide{ctl.Other()}
	case OwnerAny:
		return []PlayerSide{ctl, ctl.Other()}
	default:
		return []PlayerSide{ctl}
	}
}

// inferredOwner picks the side a stat change lands on when the effect does
// not say: negative values hit the opponent, positive ones help the controller.
func inferredOwner(eff ParsedEffect) TargetOwner {
	if eff.TargetOwner != OwnerUnspecified {
		return eff.TargetOwner
	}
	if eff.Value < 0 {
		return OwnerOpponent
	}
	return OwnerSelf
}

// StatBonus is the sum of every modifier applying to one monster.
type StatBonus struct {
	Attack  int
	Defense int
}

// EffectiveAttack returns the monster's attack after every modifier.
func (e *Engine) EffectiveAttack(gs *GameState, side PlayerSide, bc *BoardCard) int {
	return bc.Attack + e.bonus(gs, side, bc).Attack
}

// EffectiveDefense returns the monster's defense after every modifier.
func (e *Engine) EffectiveDefense(gs *GameState, side PlayerSide, bc *BoardCard) int {
	return bc.Defense + e.bonus(gs, side, bc).Defense
}

// bonus computes temporary, lingering and continuous modifiers fresh from
// the current state.
func (e *Engine) bonus(gs *GameState, side PlayerSide, bc *BoardCard) StatBonus {
	var b StatBonus
	for _, m := range gs.TemporaryModifiers {
		if m.CardID == bc.CardID {
			b.Attack += m.AtkBonus
			b.Defense += m.DefBonus
		}
	}
	pid := gs.PlayerID(side)
	for _, l := range gs.LingeringEffects {
		if l.PlayerID == pid {
			b.Attack += l.AtkBonus
			b.Defense += l.DefBonus
		}
	}
	target := e.def(gs, bc.CardID)
	for _, src := range Sides {
		p := gs.Side(src)
		for i := range p.Board {
			m := &p.Board[i]
			if m.IsFaceDown {
				continue
			}
			e.addAura(gs, &b, e.def(gs, m.CardID), src, side, target, "")
		}
		for _, st := range p.SpellTrapZone {
			if st.IsFaceDown {
				continue
			}
			if st.EquippedTo != "" {
				if st.EquippedTo == bc.CardID {
					e.addAura(gs, &b, e.def(gs, st.CardID), src, side, target, bc.CardID)
				}
				continue
			}
			e.addAura(gs, &b, e.def(gs, st.CardID), src, side, target, "")
		}
		if p.FieldSpell != nil && !p.FieldSpell.IsFaceDown {
			e.addAura(gs, &b, e.def(gs, p.FieldSpell.CardID), src, side, target, "")
		}
	}
	return b
}

// addAura adds the continuous stat effects of source to b if they reach a
// monster on side. equippedTo short-circuits side selection for equips.
func (e *Engine) addAura(gs *GameState, b *StatBonus, source *Definition, srcSide, side PlayerSide, target *Definition, equippedTo string) {
	for _, eff := range source.Ability.Effects {
		if eff.Trigger != TriggerContinuous {
			continue
		}
		if equippedTo == "" {
			fallback := inferredOwner(eff)
			if source.CardType == CardTypeSpell && source.SpellType == SpellField && eff.TargetOwner == OwnerUnspecified {
				fallback = OwnerAny
			}
			reaches := false
			for _, s := range affectedSides(eff.TargetOwner, srcSide, fallback) {
				if s == side {
					reaches = true
				}
			}
			if !reaches || !target.Matches(eff.TargetType) {
				continue
			}
			if !e.conditionMet(gs, eff.Condition, srcSide) {
				continue
			}
		}
		switch eff.Kind {
		case EffectModifyATK:
			b.Attack += eff.Value
		case EffectModifyDEF:
			b.Defense += eff.Value
		}
	}
}

// StrongestAttack returns the highest effective attack on side's board and
// whether any monster was there.
func (e *Engine) StrongestAttack(gs *GameState, side PlayerSide) (int, bool) {
	p := gs.Side(side)
	best, found := 0, false
	for i := range p.Board {
		atk := e.EffectiveAttack(gs, side, &p.Board[i])
		if !found || atk > best {
			best, found = atk, true
		}
	}
	return best, found
}
