package game

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// SBAOptions selects the checks that only run at particular moments.
type SBAOptions struct {
	EndOfTurn bool
}

// SBAResult summarizes one run of the state-based action loop.
type SBAResult struct {
	AnyChanged     bool     `json:"anyChanged"`
	GameEnded      bool     `json:"gameEnded"`
	WinnerID       string   `json:"winnerId,omitempty"`
	DestroyedCards []string `json:"destroyedCards,omitempty"`
	Iterations     int      `json:"iterations"`
}

// CheckStateBasedActions runs the board-legality checks to a fixed point.
// Each cycle stops at the first check that changes something and starts
// over; the loop ends when a cycle changes nothing, the match ends, or the
// iteration cap is hit.
func (e *Engine) CheckStateBasedActions(gs *GameState, opts SBAOptions) SBAResult {
	var res SBAResult
	if gs.IsOver() {
		res.GameEnded = true
		res.WinnerID = gs.WinnerID
		return res
	}
	// on_destroy fires at most once per card within this invocation.
	seen := make(map[string]bool)
	limit := e.rules.SBAIterationCap
	if limit <= 0 {
		limit = 100
	}
	for res.Iterations = 0; res.Iterations < limit; res.Iterations++ {
		if e.sbaWinCheck(gs, &res) {
			res.AnyChanged = true
			return res
		}
		changed := e.sbaNegativeStats(gs, &res, seen) ||
			e.sbaFieldSpells(gs) ||
			e.sbaOrphanEquips(gs) ||
			e.sbaTokens(gs) ||
			(opts.EndOfTurn && e.sbaHandLimit(gs))
		if !changed {
			return res
		}
		res.AnyChanged = true
	}
	e.logger.Error("state-based action cap reached",
		zap.String("match_id", gs.MatchID),
		zap.Int("iterations", res.Iterations))
	e.emit(gs, log.EventSBACapReached, gs.TurnSide(), "", "state-based actions stopped after %d iterations", res.Iterations)
	return res
}

// settle runs the loop outside end of turn.
func (e *Engine) settle(gs *GameState) SBAResult {
	return e.CheckStateBasedActions(gs, SBAOptions{})
}

// sbaWinCheck covers life points, deck-out and the breakdown counter.
func (e *Engine) sbaWinCheck(gs *GameState, res *SBAResult) bool {
	host, opp := gs.Host, gs.Opponent
	hostLost := host.LifePoints <= 0 || host.DeckedOut
	oppLost := opp.LifePoints <= 0 || opp.DeckedOut
	reason := "life points"
	if host.DeckedOut || opp.DeckedOut {
		reason = "deck out"
	}
	if !hostLost && !oppLost {
		if t := e.rules.BreakdownThreshold; t > 0 {
			hostLost = host.BreakdownCount >= t
			oppLost = opp.BreakdownCount >= t
			reason = "breakdown"
		}
	}
	if !hostLost && !oppLost {
		return false
	}
	winner := ""
	switch {
	case hostLost && !oppLost:
		winner = opp.PlayerID
	case oppLost && !hostLost:
		winner = host.PlayerID
	}
	gs.endGame(winner, reason)
	res.GameEnded = true
	res.WinnerID = winner
	who := winner
	if who == "" {
		who = "nobody"
	}
	e.emitMeta(gs, log.EventGameEnd, gs.TurnSide(), map[string]string{"winnerId": winner, "reason": reason},
		"match over: %s wins by %s", who, reason)
	e.logger.Info("match ended",
		zap.String("match_id", gs.MatchID),
		zap.String("winner_id", winner),
		zap.String("reason", reason))
	return true
}

// sbaNegativeStats destroys the first monster found whose relevant stat is
// below zero.
func (e *Engine) sbaNegativeStats(gs *GameState, res *SBAResult, seen map[string]bool) bool {
	for _, side := range Sides {
		p := gs.Side(side)
		for i := range p.Board {
			bc := &p.Board[i]
			stat := e.EffectiveAttack(gs, side, bc)
			if bc.Position == PositionDefense {
				stat = e.EffectiveDefense(gs, side, bc)
			}
			if stat >= 0 {
				continue
			}
			id := bc.CardID
			if err := e.destroyCard(gs, id, false); err != nil {
				return false
			}
			res.DestroyedCards = append(res.DestroyedCards, id)
			if !seen[id] {
				seen[id] = true
				e.fireSelf(gs, id, TriggerOnDestroy)
			}
			return true
		}
	}
	return false
}

// sbaFieldSpells sends misplaced or surplus field spells to the graveyard.
func (e *Engine) sbaFieldSpells(gs *GameState) bool {
	for _, side := range Sides {
		p := gs.Side(side)
		if p.FieldSpell != nil {
			d := e.def(gs, p.FieldSpell.CardID)
			if d.CardType != CardTypeSpell || d.SpellType != SpellField {
				_ = e.sendToGraveyard(gs, p.FieldSpell.CardID, "not a field spell")
				return true
			}
		}
		for _, st := range p.SpellTrapZone {
			d := e.def(gs, st.CardID)
			if d.CardType == CardTypeSpell && d.SpellType == SpellField {
				_ = e.sendToGraveyard(gs, st.CardID, "extra field spell")
				e.emit(gs, log.EventFieldSpellReplaced, side, st.CardID, "%s removed from a spell/trap zone", d.Name)
				return true
			}
		}
	}
	return false
}

// sbaOrphanEquips detaches equips whose monster is gone or face-down.
func (e *Engine) sbaOrphanEquips(gs *GameState) bool {
	for _, side := range Sides {
		p := gs.Side(side)
		for _, st := range p.SpellTrapZone {
			if st.EquippedTo == "" {
				continue
			}
			target := boardCardAnywhere(gs, st.EquippedTo)
			if target != nil && !target.IsFaceDown {
				continue
			}
			e.emit(gs, log.EventEquipDetached, side, st.CardID, "%s lost its equip target", e.cardName(gs, st.CardID))
			_ = e.sendToGraveyard(gs, st.CardID, "equip target gone")
			return true
		}
	}
	return false
}

// sbaTokens removes tokens from every zone except the board.
func (e *Engine) sbaTokens(gs *GameState) bool {
	for _, side := range Sides {
		p := gs.Side(side)
		for _, zone := range []*[]string{&p.Hand, &p.Deck, &p.Graveyard, &p.Banished} {
			for i, id := range *zone {
				if !gs.isToken(id) {
					continue
				}
				e.emit(gs, log.EventTokenRemoved, side, id, "%s ceases to exist", e.cardName(gs, id))
				*zone = removeAt(*zone, i)
				delete(gs.Instances, id)
				return true
			}
		}
	}
	return false
}

// sbaHandLimit trims the turn player's hand to the limit. Computer hands
// lose their weakest cards first, human hands lose the tail.
func (e *Engine) sbaHandLimit(gs *GameState) bool {
	side := gs.TurnSide()
	p := gs.Side(side)
	limit := e.rules.HandLimit
	excess := len(p.Hand) - limit
	if limit <= 0 || excess <= 0 {
		return false
	}
	var discard []string
	if p.IsComputer {
		order := append([]string(nil), p.Hand...)
		sort.SliceStable(order, func(i, j int) bool {
			return e.power(gs, order[i]) < e.power(gs, order[j])
		})
		discard = order[:excess]
	} else {
		discard = append(discard, p.Hand[len(p.Hand)-excess:]...)
	}
	for _, id := range discard {
		if _, err := gs.move(id, ZoneGraveyard); err != nil {
			continue
		}
		e.emit(gs, log.EventDiscard, side, id, "%s discards %s", p.PlayerID, e.cardName(gs, id))
	}
	e.emitMeta(gs, log.EventHandLimitEnforced, side, map[string]string{"discarded": fmt.Sprint(len(discard))},
		"%s discards %d card(s) down to %d", p.PlayerID, len(discard), limit)
	return true
}

// power ranks a hand card for discarding. Non-monsters count as zero.
func (e *Engine) power(gs *GameState, cardID string) int {
	d := e.def(gs, cardID)
	if d.CardType != CardTypeMonster {
		return 0
	}
	return d.Attack
}
