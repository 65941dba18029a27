package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/duelcore/internal/game"
)

const (
	hostID = "cpu-1"
	oppID  = "cpu-2"
	filler = "filler"
)

func monster(id string, level, atk, def int) *game.Definition {
	return &game.Definition{ID: id, Name: id, CardType: game.CardTypeMonster, Level: level, Attack: atk, Defense: def}
}

func trap(id string, tt game.TrapType, effects ...game.ParsedEffect) *game.Definition {
	return &game.Definition{ID: id, Name: id, CardType: game.CardTypeTrap, TrapType: tt,
		Ability: game.ParsedAbility{Effects: effects}}
}

func testEngine(t *testing.T) *game.Engine {
	t.Helper()
	cat := game.MapCatalog{}
	cat.Add(
		monster(filler, 1, 0, 0),
		monster("weak", 4, 1000, 1000),
		monster("strong", 4, 1800, 600),
		monster("small", 3, 1000, 1000),
		monster("big", 5, 2400, 1000),
		monster("turtle", 4, 500, 2000),
		monster("brute", 4, 1800, 0),
		monster("wall", 4, 2600, 0),
		monster("guard", 4, 0, 1200),
		trap("counter", game.TrapCounter, game.ParsedEffect{Kind: game.EffectNegate, Trigger: game.TriggerManual}),
		trap("sweeper", game.TrapNormal, game.ParsedEffect{Kind: game.EffectDestroy, Trigger: game.TriggerManual, TargetCount: 1}),
		trap("bounce", game.TrapNormal, game.ParsedEffect{Kind: game.EffectReturnToHand, Trigger: game.TriggerManual, TargetCount: 1}),
	)
	return game.NewEngine(cat, game.WithLogger(zaptest.NewLogger(t)))
}

func deck(top ...string) []string {
	d := append([]string(nil), top...)
	for len(d) < 20 {
		d = append(d, filler)
	}
	return d
}

func repeat(id string) []string {
	d := make([]string, 20)
	for i := range d {
		d[i] = id
	}
	return d
}

// newMatch starts an unshuffled match between two computer seats.
func newMatch(t *testing.T, e *game.Engine, d game.Difficulty, hostDeck, oppDeck []string) *game.GameState {
	t.Helper()
	gs, err := e.NewGame(game.MatchConfig{
		MatchID:   "ai-test",
		Host:      game.Seat{PlayerID: hostID, Deck: hostDeck, IsComputer: true, Difficulty: d},
		Opponent:  game.Seat{PlayerID: oppID, Deck: oppDeck, IsComputer: true, Difficulty: d},
		NoShuffle: true,
	})
	require.NoError(t, err)
	return gs
}

var conjured int

// conjure places a face-up monster for side as if it had been summoned on
// an earlier turn.
func conjure(t *testing.T, e *game.Engine, gs *game.GameState, side game.PlayerSide, defID string, pos game.Position) string {
	t.Helper()
	d, ok := e.Catalog().Definition(defID)
	require.True(t, ok, defID)
	conjured++
	id := fmt.Sprintf("c%03d", conjured)
	gs.Instances[id] = defID
	p := gs.Side(side)
	p.Board = append(p.Board, game.BoardCard{CardID: id, Position: pos, Attack: d.Attack, Defense: d.Defense})
	return id
}

// instance registers a card id without placing it in any zone.
func instance(gs *game.GameState, defID string) string {
	conjured++
	id := fmt.Sprintf("i%03d", conjured)
	gs.Instances[id] = defID
	return id
}

func inHand(t *testing.T, gs *game.GameState, side game.PlayerSide, defID string) string {
	t.Helper()
	for _, id := range gs.Side(side).Hand {
		if gs.Instances[id] == defID {
			return id
		}
	}
	t.Fatalf("no %s in hand", defID)
	return ""
}

// toTurnThree passes both opening turns, leaving the host in main 1.
func toTurnThree(t *testing.T, e *game.Engine, gs *game.GameState) {
	t.Helper()
	require.NoError(t, e.EndTurn(gs, hostID))
	require.NoError(t, e.EndTurn(gs, oppID))
	require.Equal(t, 3, gs.TurnNumber)
	require.Equal(t, game.PhaseMain1, gs.CurrentPhase)
}

// always is a profile that never fails a roll.
func always(d game.Difficulty) Profile {
	return Profile{Difficulty: d, SummonChance: 1, AttackChance: 1, ActivateChance: 1, ResponseChance: 1, TriggerChance: 1,
		ResponseFloor: priorityGeneric}
}
