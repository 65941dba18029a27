package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/duelcore/internal/log"
)

func TestNewGameOpening(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, nil, nil)

	assert.Equal(t, StatusActive, gs.Status)
	assert.Equal(t, 1, gs.TurnNumber)
	assert.Equal(t, hostID, gs.CurrentTurnPlayerID)
	assert.Equal(t, PhaseMain1, gs.CurrentPhase)
	// the first player draws on turn 1 too
	assert.Len(t, gs.Host.Hand, 6)
	assert.Len(t, gs.Opponent.Hand, 5)
	assert.Equal(t, StartingLP, gs.Host.LifePoints)
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)
	requireConserved(t, gs)

	phases := eventsOfType(gs, log.EventPhaseChange)
	require.Len(t, phases, 3)
	assert.Equal(t, "draw", phases[0].Phase)
	assert.Equal(t, "standby", phases[1].Phase)
	assert.Equal(t, "main1", phases[2].Phase)
}

func TestNewGameRejectsUnknownCards(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.NewGame(MatchConfig{
		MatchID:  "m",
		Host:     Seat{PlayerID: hostID, Deck: []string{"nope"}},
		Opponent: Seat{PlayerID: oppID, Deck: []string{filler}},
	})
	require.ErrorIs(t, err, ErrIntegrity)

	_, err = e.NewGame(MatchConfig{MatchID: "m", Host: Seat{PlayerID: hostID}, Opponent: Seat{PlayerID: hostID}})
	require.Error(t, err)
}

func TestShuffleIsSeeded(t *testing.T) {
	e := newTestEngine(t, vanillaMonster("a", 1, 1, 1), vanillaMonster("b", 1, 2, 2))
	deck := make([]string, 0, 20)
	for i := 0; i < 10; i++ {
		deck = append(deck, "a", "b")
	}
	start := func(seed uint64) []string {
		gs, err := e.NewGame(MatchConfig{
			MatchID:  "m",
			Host:     Seat{PlayerID: hostID, Deck: deck},
			Opponent: Seat{PlayerID: oppID, Deck: deck},
			Seed:     seed,
		})
		require.NoError(t, err)
		var defs []string
		for _, id := range gs.Host.Deck {
			defs = append(defs, gs.Instances[id])
		}
		return defs
	}
	assert.Equal(t, start(42), start(42))
}

func TestFirstTurnSkipsBattle(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, nil, nil)

	require.NoError(t, e.AdvancePhase(gs, hostID))
	assert.Equal(t, PhaseMain2, gs.CurrentPhase)

	err := e.AdvancePhase(gs, oppID)
	assert.Equal(t, CodeNotYourTurn, RuleCode(err))
}

func TestTurnCycle(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, nil, nil)

	require.NoError(t, e.EndTurn(gs, hostID))
	assert.Equal(t, 2, gs.TurnNumber)
	assert.Equal(t, oppID, gs.CurrentTurnPlayerID)
	assert.Equal(t, PhaseMain1, gs.CurrentPhase)
	assert.Len(t, gs.Opponent.Hand, 6)

	require.NoError(t, e.AdvancePhase(gs, oppID))
	assert.Equal(t, PhaseBattle, gs.CurrentPhase)
	require.NoError(t, e.AdvancePhase(gs, oppID))
	assert.Equal(t, PhaseMain2, gs.CurrentPhase)
	require.NoError(t, e.AdvancePhase(gs, oppID))

	assert.Equal(t, 3, gs.TurnNumber)
	assert.Equal(t, hostID, gs.CurrentTurnPlayerID)
	assert.Equal(t, PhaseMain1, gs.CurrentPhase)
	assert.Len(t, eventsOfType(gs, log.EventTurnStart), 3)
	requireConserved(t, gs)
}

func TestTurnFlagsReset(t *testing.T) {
	e := newTestEngine(t, vanillaMonster("m", 4, 1000, 1000))
	gs := newTestGame(t, e, []string{"m"}, nil)

	require.NoError(t, e.NormalSummon(gs, hostID, handCard(t, gs, SideHost, "m"), nil))
	assert.True(t, gs.Host.NormalSummonedThisTurn)
	require.NoError(t, e.EndTurn(gs, hostID))
	assert.False(t, gs.Host.NormalSummonedThisTurn)
}

func TestTemporaryModifierExpiresAtEndPhase(t *testing.T) {
	e := newTestEngine(t, vanillaMonster("m", 4, 1000, 1000))
	gs := newTestGame(t, e, nil, nil)
	id := placeOnBoard(t, e, gs, SideHost, "m")
	gs.TemporaryModifiers = append(gs.TemporaryModifiers,
		TemporaryModifier{CardID: id, AtkBonus: 500, ExpiresAtTurn: 1, ExpiresAtPhase: PhaseEnd},
		TemporaryModifier{CardID: id, AtkBonus: 100, ExpiresAtTurn: 2},
	)
	gs.LingeringEffects = append(gs.LingeringEffects, LingeringEffect{PlayerID: hostID, AtkBonus: 50, ExpiresAtTurn: 1})
	bc := gs.Host.BoardCard(id)
	assert.Equal(t, 1650, e.EffectiveAttack(gs, SideHost, bc))

	require.NoError(t, e.EndTurn(gs, hostID))
	bc = gs.Host.BoardCard(id)
	assert.Equal(t, 1100, e.EffectiveAttack(gs, SideHost, bc))
	assert.Empty(t, gs.LingeringEffects)
}

func TestDeckOutEndsMatch(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, nil, nil)
	gs.Opponent.Deck = nil

	require.NoError(t, e.EndTurn(gs, hostID))
	assert.True(t, gs.IsOver())
	assert.Equal(t, hostID, gs.WinnerID)
	require.Len(t, eventsOfType(gs, log.EventDeckOut), 1)
	end := eventsOfType(gs, log.EventGameEnd)
	require.Len(t, end, 1)
	assert.Equal(t, "deck out", end[0].Metadata["reason"])

	err := e.EndTurn(gs, oppID)
	assert.Equal(t, CodeGameOver, RuleCode(err))
}

func TestHandLimitHuman(t *testing.T) {
	e := newTestEngine(t, vanillaMonster("big", 4, 2000, 0))
	gs := newTestGame(t, e, nil, nil)
	var extra []string
	for i := 0; i < 3; i++ {
		extra = append(extra, addToHand(t, gs, SideHost, "big"))
	}
	require.Len(t, gs.Host.Hand, 9)

	require.NoError(t, e.EndTurn(gs, hostID))
	assert.Len(t, gs.Host.Hand, 6)
	assert.Subset(t, gs.Host.Graveyard, extra)

	enforced := eventsOfType(gs, log.EventHandLimitEnforced)
	require.Len(t, enforced, 1)
	assert.Equal(t, "3", enforced[0].Metadata["discarded"])
	assert.Equal(t, hostID, enforced[0].PlayerID)
	requireConserved(t, gs)
}

func TestHandLimitComputerDiscardsWeakest(t *testing.T) {
	e := newTestEngine(t, vanillaMonster("big", 4, 2000, 0))
	gs := newTestGame(t, e, nil, nil)
	gs.Host.IsComputer = true
	var strong []string
	for i := 0; i < 3; i++ {
		strong = append(strong, addToHand(t, gs, SideHost, "big"))
	}

	require.NoError(t, e.EndTurn(gs, hostID))
	assert.Len(t, gs.Host.Hand, 6)
	assert.Subset(t, gs.Host.Hand, strong)
	for _, id := range gs.Host.Graveyard {
		assert.Equal(t, filler, gs.Instances[id])
	}
}

func TestForceEndTurnIsIdempotent(t *testing.T) {
	e := newTestEngine(t, vanillaMonster("m", 4, 1800, 1000), trap("wall", TrapNormal,
		ParsedEffect{Kind: EffectNegate, Trigger: TriggerManual, Condition: Condition{Kind: CondOpponentAttacking}}))
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "m")
	placeSet(t, gs, SideOpponent, "wall")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, ""))
	require.NotNil(t, gs.ResponseWindow, "the defender should be asked to respond")

	assert.True(t, e.ForceEndTurn(gs, 3, "watchdog"))
	assert.Nil(t, gs.ResponseWindow)
	assert.Nil(t, gs.PendingAction)
	assert.Equal(t, 4, gs.TurnNumber)
	assert.Equal(t, oppID, gs.CurrentTurnPlayerID)
	assert.Equal(t, PhaseMain1, gs.CurrentPhase)
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)

	assert.False(t, e.ForceEndTurn(gs, 3, "watchdog"))
	assert.Equal(t, 4, gs.TurnNumber)
	assert.Len(t, eventsOfType(gs, log.EventForcedTurnEnd), 1)
	requireConserved(t, gs)
}

func TestAdvanceBlockedByOpenWindow(t *testing.T) {
	e := newTestEngine(t, vanillaMonster("m", 4, 1800, 1000), trap("wall", TrapNormal,
		ParsedEffect{Kind: EffectNegate, Trigger: TriggerManual, Condition: Condition{Kind: CondOpponentAttacking}}))
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "m")
	placeSet(t, gs, SideOpponent, "wall")
	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, ""))

	err := e.AdvancePhase(gs, hostID)
	assert.Equal(t, CodeAwaitingDecision, RuleCode(err))
}
