package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/duelcore/internal/log"
)

const (
	hostID = "alice"
	oppID  = "bob"
	filler = "filler"
)

// --- Test card helpers ---

func vanillaMonster(id string, level, atk, def int) *Definition {
	return &Definition{ID: id, Name: id, CardType: CardTypeMonster, Level: level, Attack: atk, Defense: def}
}

func effectMonster(id string, level, atk, def int, effects ...ParsedEffect) *Definition {
	d := vanillaMonster(id, level, atk, def)
	d.Ability.Effects = effects
	return d
}

func spell(id string, st SpellType, effects ...ParsedEffect) *Definition {
	return &Definition{ID: id, Name: id, CardType: CardTypeSpell, SpellType: st, Ability: ParsedAbility{Effects: effects}}
}

func trap(id string, tt TrapType, effects ...ParsedEffect) *Definition {
	return &Definition{ID: id, Name: id, CardType: CardTypeTrap, TrapType: tt, Ability: ParsedAbility{Effects: effects}}
}

func testCatalog(defs ...*Definition) MapCatalog {
	cat := MapCatalog{}
	cat.Add(vanillaMonster(filler, 1, 0, 0))
	return cat.Add(defs...)
}

func newTestEngine(t *testing.T, defs ...*Definition) *Engine {
	t.Helper()
	return NewEngine(testCatalog(defs...), WithLogger(zaptest.NewLogger(t)))
}

// paddedDeck puts top first (drawn first) and pads with filler to size.
func paddedDeck(top []string, size int) []string {
	deck := append([]string(nil), top...)
	for len(deck) < size {
		deck = append(deck, filler)
	}
	return deck
}

// newTestGame starts an unshuffled match. The host opens with the first
// six cards of hostTop in hand; the opponent holds the first five of oppTop.
func newTestGame(t *testing.T, e *Engine, hostTop, oppTop []string) *GameState {
	t.Helper()
	gs, err := e.NewGame(MatchConfig{
		MatchID:   "m-test",
		Host:      Seat{PlayerID: hostID, Deck: paddedDeck(hostTop, 20)},
		Opponent:  Seat{PlayerID: oppID, Deck: paddedDeck(oppTop, 20)},
		NoShuffle: true,
	})
	require.NoError(t, err)
	return gs
}

// handCard returns the first instance of defID in side's hand.
func handCard(t *testing.T, gs *GameState, side PlayerSide, defID string) string {
	t.Helper()
	for _, id := range gs.Side(side).Hand {
		if gs.Instances[id] == defID {
			return id
		}
	}
	t.Fatalf("%s has no %s in hand: %v", gs.PlayerID(side), defID, gs.Side(side).Hand)
	return ""
}

var placed int

// placeOnBoard conjures a face-up attack position monster for side, as if
// summoned on an earlier turn.
func placeOnBoard(t *testing.T, e *Engine, gs *GameState, side PlayerSide, defID string) string {
	t.Helper()
	placed++
	id := fmt.Sprintf("x%03d", placed)
	gs.Instances[id] = defID
	e.placeMonster(gs, side, id, PositionAttack, false)
	gs.Side(side).Board[len(gs.Side(side).Board)-1].TurnSummoned = 0
	return id
}

// placeSet conjures a face-down spell or trap set on an earlier turn.
func placeSet(t *testing.T, gs *GameState, side PlayerSide, defID string) string {
	t.Helper()
	placed++
	id := fmt.Sprintf("x%03d", placed)
	gs.Instances[id] = defID
	p := gs.Side(side)
	p.SpellTrapZone = append(p.SpellTrapZone, SpellTrapSlot{CardID: id, IsFaceDown: true, TurnSet: 0})
	return id
}

// addToHand conjures a card directly into side's hand.
func addToHand(t *testing.T, gs *GameState, side PlayerSide, defID string) string {
	t.Helper()
	placed++
	id := fmt.Sprintf("x%03d", placed)
	gs.Instances[id] = defID
	gs.Side(side).Hand = append(gs.Side(side).Hand, id)
	return id
}

func eventsOfType(gs *GameState, t log.EventType) []log.GameEvent {
	var out []log.GameEvent
	for _, ev := range gs.Outbox {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// toBattle moves the host from main 1 into battle on turn 3, after both
// players pass an opening turn.
func toBattle(t *testing.T, e *Engine, gs *GameState) {
	t.Helper()
	if gs.TurnNumber == 1 {
		require.NoError(t, e.EndTurn(gs, hostID))
		require.NoError(t, e.EndTurn(gs, oppID))
	}
	require.Equal(t, PhaseMain1, gs.CurrentPhase)
	require.NoError(t, e.AdvancePhase(gs, gs.CurrentTurnPlayerID))
	require.Equal(t, PhaseBattle, gs.CurrentPhase)
}

// requireConserved asserts every card instance sits in exactly one zone.
func requireConserved(t *testing.T, gs *GameState) {
	t.Helper()
	for id, n := range gs.Census() {
		require.Equal(t, 1, n, "card %s is in %d zones", id, n)
	}
	for id := range gs.Instances {
		_, found := gs.Locate(id)
		require.True(t, found, "card %s is in no zone", id)
	}
}
