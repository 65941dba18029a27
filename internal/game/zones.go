package game

import (
	"fmt"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// Location pins a card instance to one zone of one side.
type Location struct {
	Side  PlayerSide
	Zone  ZoneType
	Index int
}

// Locate finds the zone currently holding cardID.
func (gs *GameState) Locate(cardID string) (Location, bool) {
	for _, side := range Sides {
		p := gs.Side(side)
		if i := p.BoardIndex(cardID); i >= 0 {
			return Location{side, ZoneBoard, i}, true
		}
		if i := p.SpellTrapIndex(cardID); i >= 0 {
			return Location{side, ZoneSpellTrap, i}, true
		}
		if p.FieldSpell != nil && p.FieldSpell.CardID == cardID {
			return Location{side, ZoneFieldSpell, 0}, true
		}
		for zone, ids := range map[ZoneType][]string{
			ZoneHand:      p.Hand,
			ZoneDeck:      p.Deck,
			ZoneGraveyard: p.Graveyard,
			ZoneBanished:  p.Banished,
		} {
			if i := indexOf(ids, cardID); i >= 0 {
				return Location{side, zone, i}, true
			}
		}
	}
	return Location{}, false
}

// OnField reports whether cardID is on the board, in a spell/trap zone or in
// the field-spell slot.
func (gs *GameState) OnField(cardID string) bool {
	loc, ok := gs.Locate(cardID)
	return ok && loc.Zone.IsField()
}

// Census counts how many zones hold each card instance. Every value is 1 in
// a consistent state.
func (gs *GameState) Census() map[string]int {
	counts := make(map[string]int)
	for _, side := range Sides {
		p := gs.Side(side)
		for _, zone := range [][]string{p.Hand, p.Deck, p.Graveyard, p.Banished} {
			for _, id := range zone {
				counts[id]++
			}
		}
		for _, bc := range p.Board {
			counts[bc.CardID]++
		}
		for _, st := range p.SpellTrapZone {
			counts[st.CardID]++
		}
		if p.FieldSpell != nil {
			counts[p.FieldSpell.CardID]++
		}
	}
	return counts
}

// detach removes cardID from whatever zone holds it and returns where it was.
// Equip links are cut in both directions.
func (gs *GameState) detach(cardID string) (Location, error) {
	loc, ok := gs.Locate(cardID)
	if !ok {
		return loc, &IntegrityError{What: "card instance", ID: cardID}
	}
	p := gs.Side(loc.Side)
	switch loc.Zone {
	case ZoneBoard:
		p.Board = append(p.Board[:loc.Index:loc.Index], p.Board[loc.Index+1:]...)
		gs.dropModifiers(cardID)
	case ZoneSpellTrap:
		slot := p.SpellTrapZone[loc.Index]
		p.SpellTrapZone = append(p.SpellTrapZone[:loc.Index:loc.Index], p.SpellTrapZone[loc.Index+1:]...)
		if slot.EquippedTo != "" {
			gs.unlinkEquip(slot.EquippedTo, cardID)
		}
	case ZoneFieldSpell:
		p.FieldSpell = nil
	case ZoneHand:
		p.Hand = removeAt(p.Hand, loc.Index)
	case ZoneDeck:
		p.Deck = removeAt(p.Deck, loc.Index)
	case ZoneGraveyard:
		p.Graveyard = removeAt(p.Graveyard, loc.Index)
	case ZoneBanished:
		p.Banished = removeAt(p.Banished, loc.Index)
	}
	return loc, nil
}

// put appends cardID to one of the non-field zones of side.
func (gs *GameState) put(side PlayerSide, zone ZoneType, cardID string) error {
	p := gs.Side(side)
	switch zone {
	case ZoneHand:
		p.Hand = append(p.Hand, cardID)
	case ZoneDeck:
		p.Deck = append(p.Deck, cardID)
	case ZoneGraveyard:
		p.Graveyard = append(p.Graveyard, cardID)
	case ZoneBanished:
		p.Banished = append(p.Banished, cardID)
	default:
		return fmt.Errorf("put: %s is not a pile zone", zone)
	}
	return nil
}

// move detaches cardID and appends it to dest on the side it came from.
func (gs *GameState) move(cardID string, dest ZoneType) (Location, error) {
	from, err := gs.detach(cardID)
	if err != nil {
		return from, err
	}
	return from, gs.put(from.Side, dest, cardID)
}

func (gs *GameState) unlinkEquip(monsterID, equipID string) {
	for _, side := range Sides {
		if bc := gs.Side(side).BoardCard(monsterID); bc != nil {
			bc.EquippedCards, _ = removeID(bc.EquippedCards, equipID)
			return
		}
	}
}

func (gs *GameState) dropModifiers(cardID string) {
	kept := gs.TemporaryModifiers[:0]
	for _, m := range gs.TemporaryModifiers {
		if m.CardID != cardID {
			kept = append(kept, m)
		}
	}
	gs.TemporaryModifiers = kept
}

// isToken reports whether cardID is a generated token.
func (gs *GameState) isToken(cardID string) bool {
	_, ok := gs.Tokens[gs.Instances[cardID]]
	return ok
}

// --- Engine-level moves that also record events ---

// sendToGraveyard moves cardID to its side's graveyard.
func (e *Engine) sendToGraveyard(gs *GameState, cardID, reason string) error {
	from, err := gs.move(cardID, ZoneGraveyard)
	if err != nil {
		return err
	}
	e.emit(gs, log.EventSendToGraveyard, from.Side, cardID, "%s sent to the graveyard (%s)", e.cardName(gs, cardID), reason)
	return nil
}

// destroyCard removes a field card as a destruction and records it.
func (e *Engine) destroyCard(gs *GameState, cardID string, byBattle bool) error {
	from, err := gs.move(cardID, ZoneGraveyard)
	if err != nil {
		return err
	}
	t := log.EventDestroy
	if byBattle {
		t = log.EventBattleDestroy
	}
	e.emit(gs, t, from.Side, cardID, "%s was destroyed", e.cardName(gs, cardID))
	return nil
}

// drawCards moves up to n cards from the top of side's deck to hand and
// returns how many actually moved.
func (e *Engine) drawCards(gs *GameState, side PlayerSide, n int) int {
	p := gs.Side(side)
	drawn := 0
	for drawn < n && len(p.Deck) > 0 {
		top := p.Deck[len(p.Deck)-1]
		p.Deck = p.Deck[:len(p.Deck)-1]
		p.Hand = append(p.Hand, top)
		drawn++
	}
	if drawn > 0 {
		e.emit(gs, log.EventDraw, side, "", "%s draws %d card(s)", p.PlayerID, drawn)
	}
	return drawn
}
