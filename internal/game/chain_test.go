package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/duelcore/internal/log"
)

func burnSpell() *Definition {
	return spell("burn", SpellNormal, ParsedEffect{Kind: EffectDamage, Trigger: TriggerManual, Value: 500})
}

func counterTrap() *Definition {
	return trap("counter", TrapCounter, ParsedEffect{Kind: EffectNegate, Trigger: TriggerManual})
}

func TestCanChainWith(t *testing.T) {
	tests := []struct {
		top, next SpellSpeed
		want      bool
	}{
		{SpellSpeed1, SpellSpeed1, true},
		{SpellSpeed1, SpellSpeed2, true},
		{SpellSpeed2, SpellSpeed1, false},
		{SpellSpeed2, SpellSpeed3, true},
		{SpellSpeed3, SpellSpeed2, false},
		{SpellSpeed3, SpellSpeed3, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canChainWith(tt.top, tt.next), "speed %d after %d", tt.next, tt.top)
	}
}

func TestBurnSpellResolves(t *testing.T) {
	e := newTestEngine(t, burnSpell())
	gs := newTestGame(t, e, []string{"burn"}, nil)
	burn := handCard(t, gs, SideHost, "burn")

	require.NoError(t, e.Activate(gs, hostID, burn, 0, nil))
	assert.Nil(t, gs.ResponseWindow)
	assert.Empty(t, gs.Chain)
	assert.Equal(t, StartingLP-500, gs.Opponent.LifePoints)
	assert.Contains(t, gs.Host.Graveyard, burn)
	assert.Len(t, eventsOfType(gs, log.EventChainLink), 1)
	assert.Len(t, eventsOfType(gs, log.EventChainResolve), 1)
	requireConserved(t, gs)
}

func TestCounterTrapNegates(t *testing.T) {
	e := newTestEngine(t, burnSpell(), counterTrap())
	gs := newTestGame(t, e, []string{"burn"}, nil)
	burn := handCard(t, gs, SideHost, "burn")
	counter := placeSet(t, gs, SideOpponent, "counter")

	require.NoError(t, e.Activate(gs, hostID, burn, 0, nil))
	require.NotNil(t, gs.ResponseWindow, "the opponent holds priority with a live counter trap")
	assert.Equal(t, SideOpponent, gs.ResponseWindow.Holder)

	opts := e.LegalActions(gs, oppID)
	require.Len(t, opts, 2)
	assert.Equal(t, ActionActivate, opts[0].Type)
	assert.Equal(t, ActionPass, opts[1].Type)
	assert.Empty(t, e.LegalActions(gs, hostID))

	require.NoError(t, e.Activate(gs, oppID, counter, 0, nil))
	assert.Nil(t, gs.ResponseWindow)
	assert.Empty(t, gs.Chain)
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)
	assert.Contains(t, gs.Host.Graveyard, burn)
	assert.Contains(t, gs.Opponent.Graveyard, counter)
	negates := eventsOfType(gs, log.EventNegate)
	require.Len(t, negates, 1)
	assert.Equal(t, "burn", negates[0].Card)
	requireConserved(t, gs)
}

func TestPassPriorityResolvesChain(t *testing.T) {
	e := newTestEngine(t, burnSpell(), counterTrap())
	gs := newTestGame(t, e, []string{"burn"}, nil)
	burn := handCard(t, gs, SideHost, "burn")
	placeSet(t, gs, SideOpponent, "counter")
	require.NoError(t, e.Activate(gs, hostID, burn, 0, nil))

	assert.Equal(t, CodeWindowClosed, RuleCode(e.PassPriority(gs, hostID)))
	assert.Equal(t, CodeAwaitingDecision, RuleCode(e.NormalSummon(gs, hostID, gs.Host.Hand[0], nil)))

	require.NoError(t, e.PassPriority(gs, oppID))
	assert.Nil(t, gs.ResponseWindow)
	assert.Equal(t, StartingLP-500, gs.Opponent.LifePoints)
	assert.Equal(t, CodeWindowClosed, RuleCode(e.PassPriority(gs, oppID)))
}

func TestSetTrapWaitsATurn(t *testing.T) {
	e := newTestEngine(t, burnSpell(), counterTrap())
	gs := newTestGame(t, e, []string{"counter"}, []string{"burn"})
	counter := handCard(t, gs, SideHost, "counter")
	require.NoError(t, e.SetSpellTrap(gs, hostID, counter))

	assert.Equal(t, CodeCannotActivate, RuleCode(e.Activate(gs, hostID, counter, 0, nil)))

	require.NoError(t, e.EndTurn(gs, hostID))
	burn := handCard(t, gs, SideOpponent, "burn")
	require.NoError(t, e.Activate(gs, oppID, burn, 0, nil))
	require.NotNil(t, gs.ResponseWindow)
	assert.Equal(t, SideHost, gs.ResponseWindow.Holder)
}

func TestActivationGates(t *testing.T) {
	e := newTestEngine(t, burnSpell())
	gs := newTestGame(t, e, []string{"burn"}, []string{"burn"})
	burn := handCard(t, gs, SideHost, "burn")
	other := handCard(t, gs, SideOpponent, "burn")

	assert.Equal(t, CodeNotYourTurn, RuleCode(e.Activate(gs, oppID, other, 0, nil)))
	assert.Equal(t, CodeCannotActivate, RuleCode(e.Activate(gs, hostID, burn, 3, nil)))
	assert.ErrorIs(t, e.Activate(gs, hostID, "ghost", 0, nil), ErrIntegrity)

	require.NoError(t, e.EndTurn(gs, hostID))
	require.NoError(t, e.AdvancePhase(gs, oppID))
	require.Equal(t, PhaseBattle, gs.CurrentPhase)
	assert.Equal(t, CodeWrongPhase, RuleCode(e.Activate(gs, oppID, other, 0, nil)))
}

func TestComputerRespondsThroughAutomaton(t *testing.T) {
	e := newTestEngine(t, burnSpell(), counterTrap())
	e.SetAutomaton(respondAll{})
	gs := newTestGame(t, e, []string{"burn"}, nil)
	gs.Opponent.IsComputer = true
	burn := handCard(t, gs, SideHost, "burn")
	counter := placeSet(t, gs, SideOpponent, "counter")

	require.NoError(t, e.Activate(gs, hostID, burn, 0, nil))
	assert.Nil(t, gs.ResponseWindow)
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)
	assert.Contains(t, gs.Opponent.Graveyard, counter)
}

// respondAll takes the first response offered and accepts every trigger.
type respondAll struct{}

func (respondAll) AcceptTrigger(*GameState, PendingOptionalTrigger) bool { return true }
func (respondAll) ChooseResponse(_ *GameState, _ PlayerSide, options []Action) (Action, bool) {
	return options[0], true
}
func (respondAll) ChooseReplay(_ *GameState, _ PlayerSide, options []Action) Action {
	return options[0]
}
