package game

import "fmt"

// ActionType names one player decision.
type ActionType string

const (
	ActionNormalSummon   ActionType = "normal_summon"
	ActionSetMonster     ActionType = "set_monster"
	ActionFlipSummon     ActionType = "flip_summon"
	ActionChangePosition ActionType = "change_position"
	ActionSetSpellTrap   ActionType = "set_spell_trap"
	ActionActivate       ActionType = "activate"
	ActionAttack         ActionType = "attack"
	ActionReplay         ActionType = "replay"
	ActionPass           ActionType = "pass"
	ActionRespondTrigger ActionType = "respond_trigger"
	ActionAdvancePhase   ActionType = "advance_phase"
	ActionEndTurn        ActionType = "end_turn"
)

// Action is a fully specified player decision. Attacks and replays with an
// empty TargetID go direct.
type Action struct {
	Type        ActionType `json:"type"`
	PlayerID    string     `json:"playerId"`
	CardID      string     `json:"cardId,omitempty"`
	TargetID    string     `json:"targetId,omitempty"`
	Tributes    []string   `json:"tributes,omitempty"`
	Targets     []string   `json:"targets,omitempty"`
	EffectIndex int        `json:"effectIndex,omitempty"`
	Accept      bool       `json:"accept,omitempty"`
	Cancel      bool       `json:"cancel,omitempty"`
	Desc        string     `json:"desc,omitempty"`
}

func (a Action) String() string {
	if a.Desc != "" {
		return a.Desc
	}
	return fmt.Sprintf("%s %s", a.Type, a.CardID)
}

// Apply validates and performs one action. On error the state is unchanged.
func (e *Engine) Apply(gs *GameState, a Action) error {
	switch a.Type {
	case ActionNormalSummon:
		return e.NormalSummon(gs, a.PlayerID, a.CardID, a.Tributes)
	case ActionSetMonster:
		return e.SetMonster(gs, a.PlayerID, a.CardID, a.Tributes)
	case ActionFlipSummon:
		return e.FlipSummon(gs, a.PlayerID, a.CardID)
	case ActionChangePosition:
		return e.ChangePosition(gs, a.PlayerID, a.CardID)
	case ActionSetSpellTrap:
		return e.SetSpellTrap(gs, a.PlayerID, a.CardID)
	case ActionActivate:
		return e.Activate(gs, a.PlayerID, a.CardID, a.EffectIndex, a.Targets)
	case ActionAttack:
		return e.DeclareAttack(gs, a.PlayerID, a.CardID, a.TargetID)
	case ActionReplay:
		return e.ChooseReplay(gs, a.PlayerID, a.TargetID, a.Cancel)
	case ActionPass:
		return e.PassPriority(gs, a.PlayerID)
	case ActionRespondTrigger:
		return e.RespondOptionalTrigger(gs, a.PlayerID, a.CardID, a.EffectIndex, a.Accept)
	case ActionAdvancePhase:
		return e.AdvancePhase(gs, a.PlayerID)
	case ActionEndTurn:
		return e.EndTurn(gs, a.PlayerID)
	}
	return illegal(CodeCannotActivate, "unknown action %q", a.Type)
}

// blocked rejects ordinary actions while a response window or an attack
// replay decision is open.
func blocked(gs *GameState) error {
	if gs.ResponseWindow != nil {
		return illegal(CodeAwaitingDecision, "a response window is open")
	}
	if gs.PendingAction != nil {
		return illegal(CodeAwaitingDecision, "an attack is being resolved")
	}
	return nil
}

// LegalActions enumerates what playerID may do right now.
func (e *Engine) LegalActions(gs *GameState, playerID string) []Action {
	side, err := gs.SideOf(playerID)
	if err != nil || gs.IsOver() {
		return nil
	}
	var out []Action
	for _, t := range gs.PendingOptionalTriggers {
		if t.PlayerID != playerID {
			continue
		}
		name := e.cardName(gs, t.CardID)
		out = append(out,
			Action{Type: ActionRespondTrigger, PlayerID: playerID, CardID: t.CardID, EffectIndex: t.EffectIndex, Accept: true, Desc: "Activate " + name},
			Action{Type: ActionRespondTrigger, PlayerID: playerID, CardID: t.CardID, EffectIndex: t.EffectIndex, Desc: "Skip " + name},
		)
	}
	if w := gs.ResponseWindow; w != nil {
		if w.Holder == side {
			out = append(out, e.responses(gs, side)...)
			out = append(out, Action{Type: ActionPass, PlayerID: playerID, Desc: "Pass"})
		}
		return out
	}
	if pa := gs.PendingAction; pa != nil {
		if pa.AwaitingReplay && pa.PlayerID == playerID {
			out = append(out, e.replayOptions(gs, side)...)
		}
		return out
	}
	if side != gs.TurnSide() {
		return out
	}
	switch {
	case gs.CurrentPhase.IsMain():
		out = append(out, e.mainPhaseActions(gs, side)...)
	case gs.CurrentPhase == PhaseBattle:
		out = append(out, e.battleActions(gs, side)...)
	}
	if gs.CurrentPhase.IsMain() || gs.CurrentPhase == PhaseBattle {
		out = append(out,
			Action{Type: ActionAdvancePhase, PlayerID: playerID, Desc: "Next phase"},
			Action{Type: ActionEndTurn, PlayerID: playerID, Desc: "End turn"},
		)
	}
	return out
}

// mainPhaseActions lists summons, sets, position changes and ignition activations.
func (e *Engine) mainPhaseActions(gs *GameState, side PlayerSide) []Action {
	p := gs.Side(side)
	pid := p.PlayerID
	var out []Action
	if !p.NormalSummonedThisTurn {
		for _, id := range p.Hand {
			d := e.def(gs, id)
			if d.CardType != CardTypeMonster {
				continue
			}
			need := d.TributesRequired()
			if len(p.Board) < need || (need == 0 && !p.HasBoardSpace()) {
				continue
			}
			tributes := e.cheapestTributes(gs, side, need)
			out = append(out,
				Action{Type: ActionNormalSummon, PlayerID: pid, CardID: id, Tributes: tributes,
					Desc: fmt.Sprintf("Summon %s (ATK %d)", d.Name, d.Attack)},
				Action{Type: ActionSetMonster, PlayerID: pid, CardID: id, Tributes: tributes,
					Desc: fmt.Sprintf("Set %s", d.Name)},
			)
		}
	}
	for _, bc := range p.Board {
		name := e.cardName(gs, bc.CardID)
		if bc.IsFaceDown && bc.TurnSummoned < gs.TurnNumber && !bc.HasChangedPosition {
			out = append(out, Action{Type: ActionFlipSummon, PlayerID: pid, CardID: bc.CardID, Desc: "Flip summon " + name})
		}
		if canChangePosition(gs, &bc) {
			out = append(out, Action{Type: ActionChangePosition, PlayerID: pid, CardID: bc.CardID, Desc: "Change position of " + name})
		}
	}
	if p.HasSpellTrapSpace() {
		for _, id := range p.Hand {
			d := e.def(gs, id)
			if d.CardType == CardTypeTrap || (d.CardType == CardTypeSpell && d.SpellType != SpellField) {
				out = append(out, Action{Type: ActionSetSpellTrap, PlayerID: pid, CardID: id, Desc: "Set " + d.Name})
			}
		}
	}
	out = append(out, e.activations(gs, side, false)...)
	return out
}

// battleActions lists every legal attack declaration.
func (e *Engine) battleActions(gs *GameState, side PlayerSide) []Action {
	p := gs.Side(side)
	opp := gs.Side(side.Other())
	var out []Action
	for i := range p.Board {
		bc := &p.Board[i]
		if e.attackGate(gs, side, bc) != nil {
			continue
		}
		name := e.cardName(gs, bc.CardID)
		for _, t := range opp.Board {
			out = append(out, Action{Type: ActionAttack, PlayerID: p.PlayerID, CardID: bc.CardID, TargetID: t.CardID,
				Desc: fmt.Sprintf("Attack %s with %s", e.targetName(gs, &t), name)})
		}
		if e.canAttackDirectly(gs, side, bc) {
			out = append(out, Action{Type: ActionAttack, PlayerID: p.PlayerID, CardID: bc.CardID,
				Desc: fmt.Sprintf("Direct attack with %s", name)})
		}
	}
	return out
}

// targetName hides face-down monsters.
func (e *Engine) targetName(gs *GameState, bc *BoardCard) string {
	if bc.IsFaceDown {
		return "face-down monster"
	}
	return e.cardName(gs, bc.CardID)
}

// cheapestTributes picks the weakest monsters on side's board.
func (e *Engine) cheapestTributes(gs *GameState, side PlayerSide, n int) []string {
	if n == 0 {
		return nil
	}
	p := gs.Side(side)
	ids := make([]string, 0, len(p.Board))
	for _, bc := range p.Board {
		ids = append(ids, bc.CardID)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && e.tributeValue(gs, side, ids[j]) < e.tributeValue(gs, side, ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids[:n]
}

func (e *Engine) tributeValue(gs *GameState, side PlayerSide, id string) int {
	bc := gs.Side(side).BoardCard(id)
	if bc == nil {
		return 0
	}
	return e.EffectiveAttack(gs, side, bc)
}
