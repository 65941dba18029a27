package net

import (
	"github.com/peterkuimelis/duelcore/internal/game"
	"github.com/peterkuimelis/duelcore/internal/log"
)

// BuildStateView creates a StateView from the perspective of playerID. The
// opponent's hand and face-down cards stay hidden.
func BuildStateView(e *game.Engine, gs *game.GameState, playerID string) (*StateView, error) {
	me, err := gs.SideOf(playerID)
	if err != nil {
		return nil, err
	}
	sv := &StateView{
		MatchID:    gs.MatchID,
		Seq:        gs.Seq,
		Turn:       gs.TurnNumber,
		Phase:      gs.CurrentPhase.String(),
		IsYourTurn: gs.TurnSide() == me,
		ChainLen:   len(gs.Chain),
		Waiting:    waitingOn(gs),
		Over:       gs.IsOver(),
		Winner:     gs.WinnerID,
	}
	sv.You = playerView(e, gs, me, true)
	sv.Opponent = playerView(e, gs, me.Other(), false)
	return sv, nil
}

// BuildSpectatorView shows the match to someone in neither seat: You is the
// host, and both hands and every face-down card stay hidden.
func BuildSpectatorView(e *game.Engine, gs *game.GameState) *StateView {
	return &StateView{
		MatchID:  gs.MatchID,
		Seq:      gs.Seq,
		Turn:     gs.TurnNumber,
		Phase:    gs.CurrentPhase.String(),
		ChainLen: len(gs.Chain),
		Waiting:  waitingOn(gs),
		Over:     gs.IsOver(),
		Winner:   gs.WinnerID,
		You:      playerView(e, gs, game.SideHost, false),
		Opponent: playerView(e, gs, game.SideOpponent, false),
	}
}

func playerView(e *game.Engine, gs *game.GameState, side game.PlayerSide, isOwner bool) PlayerView {
	p := gs.Side(side)
	pv := PlayerView{
		PlayerID:       p.PlayerID,
		LP:             p.LifePoints,
		IsComputer:     p.IsComputer,
		HandCount:      len(p.Hand),
		Board:          []ZoneView{},
		SpellTraps:     []ZoneView{},
		GraveyardCount: len(p.Graveyard),
		BanishedCount:  len(p.Banished),
		DeckCount:      len(p.Deck),
	}
	if isOwner {
		for _, id := range p.Hand {
			pv.Hand = append(pv.Hand, handCard(e, gs, id))
		}
	}
	for i := range p.Board {
		pv.Board = append(pv.Board, BoardZoneView(e, gs, side, &p.Board[i], isOwner))
	}
	for i := range p.SpellTrapZone {
		pv.SpellTraps = append(pv.SpellTraps, SpellTrapZoneView(e, gs, &p.SpellTrapZone[i], isOwner))
	}
	if p.FieldSpell != nil {
		fv := SpellTrapZoneView(e, gs, p.FieldSpell, isOwner)
		pv.FieldSpell = &fv
	}
	return pv
}

func handCard(e *game.Engine, gs *game.GameState, id string) CardView {
	cv := CardView{ID: id, Name: cardName(e, gs, id)}
	if d, err := e.Definition(gs, id); err == nil && d.CardType == game.CardTypeMonster {
		cv.ATK = d.Attack
		cv.DEF = d.Defense
	}
	return cv
}

// BoardZoneView creates a ZoneView for a monster zone.
func BoardZoneView(e *game.Engine, gs *game.GameState, side game.PlayerSide, bc *game.BoardCard, isOwner bool) ZoneView {
	zv := ZoneView{
		ID:       bc.CardID,
		FaceDown: bc.IsFaceDown,
		Position: bc.Position.String(),
		Attacked: bc.HasAttacked,
	}
	if bc.IsFaceDown && !isOwner {
		return zv
	}
	zv.Name = cardName(e, gs, bc.CardID)
	zv.ATK = e.EffectiveAttack(gs, side, bc)
	zv.DEF = e.EffectiveDefense(gs, side, bc)
	return zv
}

// SpellTrapZoneView creates a ZoneView for a spell/trap zone.
func SpellTrapZoneView(e *game.Engine, gs *game.GameState, slot *game.SpellTrapSlot, isOwner bool) ZoneView {
	zv := ZoneView{ID: slot.CardID, FaceDown: slot.IsFaceDown}
	if slot.IsFaceDown && !isOwner {
		return zv
	}
	zv.Name = cardName(e, gs, slot.CardID)
	return zv
}

func cardName(e *game.Engine, gs *game.GameState, id string) string {
	d, err := e.Definition(gs, id)
	if err != nil {
		return id
	}
	return d.Name
}

func waitingOn(gs *game.GameState) string {
	switch {
	case gs.IsOver():
		return ""
	case len(gs.PendingOptionalTriggers) > 0:
		return "optional_trigger:" + gs.PendingOptionalTriggers[0].PlayerID
	case gs.ResponseWindow != nil:
		return "response:" + gs.PlayerID(gs.ResponseWindow.Holder)
	case gs.PendingAction != nil && gs.PendingAction.AwaitingReplay:
		return "replay:" + gs.PendingAction.PlayerID
	}
	return ""
}

// ActionViews numbers actions in the order LegalActions returned them.
func ActionViews(actions []game.Action) []ActionView {
	views := make([]ActionView, 0, len(actions))
	for i, a := range actions {
		views = append(views, ActionView{Index: i, Type: string(a.Type), Desc: a.String()})
	}
	return views
}

func NewEventView(ev log.GameEvent) *EventView {
	return &EventView{
		Seq:      ev.Seq,
		Turn:     ev.Turn,
		Phase:    ev.Phase,
		PlayerID: ev.PlayerID,
		Type:     ev.Type.String(),
		Card:     ev.Card,
		Details:  ev.Details,
	}
}
