package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/duelcore/internal/log"
)

func battleEngine(t *testing.T, extra ...*Definition) *Engine {
	defs := append([]*Definition{
		vanillaMonster("a1800", 4, 1800, 1000),
		vanillaMonster("a1200", 4, 1200, 1500),
		vanillaMonster("wall2000", 4, 500, 2000),
	}, extra...)
	return newTestEngine(t, defs...)
}

func TestAttackPositionBattle(t *testing.T) {
	e := battleEngine(t)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	defender := placeOnBoard(t, e, gs, SideOpponent, "a1200")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))

	assert.Nil(t, gs.PendingAction)
	assert.Equal(t, StartingLP-600, gs.Opponent.LifePoints)
	assert.Equal(t, StartingLP, gs.Host.LifePoints)
	assert.Nil(t, gs.Opponent.BoardCard(defender))
	assert.Contains(t, gs.Opponent.Graveyard, defender)
	require.NotNil(t, gs.Host.BoardCard(attacker))
	assert.True(t, gs.Host.BoardCard(attacker).HasAttacked)

	destroyed := eventsOfType(gs, log.EventBattleDestroy)
	require.Len(t, destroyed, 1)
	assert.Equal(t, "a1200", destroyed[0].Card)
	requireConserved(t, gs)
}

func TestWeakerAttackerIsDestroyed(t *testing.T) {
	e := battleEngine(t)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1200")
	defender := placeOnBoard(t, e, gs, SideOpponent, "a1800")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))
	assert.Equal(t, StartingLP-600, gs.Host.LifePoints)
	assert.Nil(t, gs.Host.BoardCard(attacker))
	assert.NotNil(t, gs.Opponent.BoardCard(defender))
}

func TestEqualAttackDestroysBoth(t *testing.T) {
	e := battleEngine(t)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	defender := placeOnBoard(t, e, gs, SideOpponent, "a1800")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))
	assert.Empty(t, gs.Host.Board)
	assert.Empty(t, gs.Opponent.Board)
	assert.Equal(t, StartingLP, gs.Host.LifePoints)
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)
}

func TestAttackIntoDefense(t *testing.T) {
	tests := []struct {
		name        string
		attacker    string
		piercing    bool
		wantOppLP   int
		wantHostLP  int
		wantSurvive bool
	}{
		{name: "defense holds", attacker: "a1800", wantOppLP: StartingLP, wantHostLP: StartingLP - 200, wantSurvive: true},
		{name: "defense breaks", attacker: "a2500", wantOppLP: StartingLP, wantHostLP: StartingLP},
		{name: "piercing", attacker: "pierce", wantOppLP: StartingLP - 500, wantHostLP: StartingLP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pierce := vanillaMonster("pierce", 4, 2500, 0)
			pierce.Ability.Piercing = true
			e := battleEngine(t, vanillaMonster("a2500", 4, 2500, 0), pierce)
			gs := newTestGame(t, e, nil, nil)
			toBattle(t, e, gs)
			attacker := placeOnBoard(t, e, gs, SideHost, tt.attacker)
			defender := placeOnBoard(t, e, gs, SideOpponent, "wall2000")
			gs.Opponent.BoardCard(defender).Position = PositionDefense

			require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))
			assert.Equal(t, tt.wantOppLP, gs.Opponent.LifePoints)
			assert.Equal(t, tt.wantHostLP, gs.Host.LifePoints)
			assert.Equal(t, tt.wantSurvive, gs.Opponent.BoardCard(defender) != nil)
			require.NotNil(t, gs.Host.BoardCard(attacker))
			assert.True(t, gs.Host.BoardCard(attacker).HasAttacked)
		})
	}
}

func TestFaceDownDefenderIsFlipped(t *testing.T) {
	e := battleEngine(t)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	defender := placeOnBoard(t, e, gs, SideOpponent, "wall2000")
	bc := gs.Opponent.BoardCard(defender)
	bc.Position = PositionDefense
	bc.IsFaceDown = true

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))
	bc = gs.Opponent.BoardCard(defender)
	require.NotNil(t, bc)
	assert.False(t, bc.IsFaceDown)
}

func TestDirectAttack(t *testing.T) {
	e := battleEngine(t)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, ""))
	assert.Equal(t, StartingLP-1800, gs.Opponent.LifePoints)
	require.Len(t, eventsOfType(gs, log.EventDirectAttack), 1)

	err := e.DeclareAttack(gs, hostID, attacker, "")
	assert.Equal(t, CodeCannotAttack, RuleCode(err), "a monster attacks once per turn")
}

func TestDirectAttackWithoutAttackerIsInvalidated(t *testing.T) {
	e := battleEngine(t)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	_, err := gs.move(attacker, ZoneGraveyard)
	require.NoError(t, err)
	gs.PendingAction = &PendingAction{Type: "attack", PlayerID: hostID, AttackerID: attacker, DeclaredTurn: gs.TurnNumber}

	e.resolveBattle(gs)
	assert.Nil(t, gs.PendingAction)
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)
	assert.Empty(t, eventsOfType(gs, log.EventDirectAttack))
	assert.Len(t, eventsOfType(gs, log.EventAttackInvalidated), 1)
	requireConserved(t, gs)
}

func TestDirectAttackBlockedByDefender(t *testing.T) {
	e := battleEngine(t)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	placeOnBoard(t, e, gs, SideOpponent, "a1200")

	before, err := gs.Clone()
	require.NoError(t, err)
	err = e.DeclareAttack(gs, hostID, attacker, "")
	assert.Equal(t, CodeCannotAttack, RuleCode(err))
	assert.Equal(t, before.Host.Board, gs.Host.Board, "a rejected attack leaves the state untouched")
}

func TestConditionalDirectAttack(t *testing.T) {
	sneak := vanillaMonster("sneak", 4, 1000, 1000)
	sneak.Ability.DirectAttack = &Condition{Kind: CondAttackAtMost, Value: 1500}
	e := battleEngine(t, sneak)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "sneak")
	placeOnBoard(t, e, gs, SideOpponent, "a1800")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, ""))
	assert.Equal(t, StartingLP-1000, gs.Opponent.LifePoints)
}

func TestAttackGates(t *testing.T) {
	e := battleEngine(t, vanillaMonster("zero", 4, 0, 0))
	gs := newTestGame(t, e, nil, nil)

	first := placeOnBoard(t, e, gs, SideHost, "a1800")
	err := e.DeclareAttack(gs, hostID, first, "")
	assert.Equal(t, CodeWrongPhase, RuleCode(err))

	toBattle(t, e, gs)
	defense := placeOnBoard(t, e, gs, SideHost, "a1800")
	gs.Host.BoardCard(defense).Position = PositionDefense
	assert.Equal(t, CodeCannotAttack, RuleCode(e.DeclareAttack(gs, hostID, defense, "")))

	faceDown := placeOnBoard(t, e, gs, SideHost, "a1800")
	gs.Host.BoardCard(faceDown).IsFaceDown = true
	assert.Equal(t, CodeCannotAttack, RuleCode(e.DeclareAttack(gs, hostID, faceDown, "")))

	zero := placeOnBoard(t, e, gs, SideHost, "zero")
	assert.Equal(t, CodeCannotAttack, RuleCode(e.DeclareAttack(gs, hostID, zero, "")))

	// monsters summoned this turn may attack
	fresh := placeOnBoard(t, e, gs, SideHost, "a1200")
	gs.Host.BoardCard(fresh).TurnSummoned = gs.TurnNumber
	require.NoError(t, e.DeclareAttack(gs, hostID, fresh, ""))
}

func TestBattleReplayWhenDefendersChange(t *testing.T) {
	sheep := trap("sheep", TrapNormal, ParsedEffect{
		Kind: EffectGenerateToken, Trigger: TriggerManual,
		Token: &TokenSpec{Name: "Sheep", Attack: 0, Defense: 0, Defend: true},
	})
	e := battleEngine(t, sheep)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	defender := placeOnBoard(t, e, gs, SideOpponent, "a1200")
	trapID := placeSet(t, gs, SideOpponent, "sheep")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))
	require.NotNil(t, gs.ResponseWindow)
	assert.Equal(t, SideOpponent, gs.ResponseWindow.Holder)

	require.NoError(t, e.Activate(gs, oppID, trapID, 0, nil))
	require.NotNil(t, gs.PendingAction)
	require.True(t, gs.PendingAction.AwaitingReplay)
	require.Len(t, eventsOfType(gs, log.EventReplay), 1)
	require.Len(t, gs.Opponent.Board, 2)

	opts := e.LegalActions(gs, hostID)
	require.Len(t, opts, 3, "two targets plus cancel: %v", opts)
	assert.True(t, opts[len(opts)-1].Cancel)

	token := gs.Opponent.Board[1].CardID
	require.NoError(t, e.ChooseReplay(gs, hostID, token, false))
	assert.Nil(t, gs.PendingAction)
	assert.NotNil(t, gs.Opponent.BoardCard(defender))
	assert.Nil(t, gs.Opponent.BoardCard(token))
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)
	assert.Len(t, eventsOfType(gs, log.EventTokenRemoved), 1)
	assert.Contains(t, gs.Opponent.Graveyard, trapID)
	requireConserved(t, gs)
}

func TestReplayCancel(t *testing.T) {
	sheep := trap("sheep", TrapNormal, ParsedEffect{
		Kind: EffectGenerateToken, Trigger: TriggerManual,
		Token: &TokenSpec{Name: "Sheep", Defend: true},
	})
	e := battleEngine(t, sheep)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	defender := placeOnBoard(t, e, gs, SideOpponent, "a1200")
	trapID := placeSet(t, gs, SideOpponent, "sheep")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))
	require.NoError(t, e.Activate(gs, oppID, trapID, 0, nil))
	require.NoError(t, e.ChooseReplay(gs, hostID, "", true))

	assert.Nil(t, gs.PendingAction)
	assert.Len(t, gs.Opponent.Board, 2)
	assert.True(t, gs.Host.BoardCard(attacker).HasAttacked)

	err := e.ChooseReplay(gs, hostID, "", true)
	assert.Equal(t, CodeWindowClosed, RuleCode(err))
}

func TestNoReplayWhenAttackerLeaves(t *testing.T) {
	armor := trap("armor", TrapNormal, ParsedEffect{
		Kind: EffectDestroy, Trigger: TriggerManual, TargetOwner: OwnerOpponent,
		TargetLocation: ZoneBoard, TargetCount: 1, Condition: Condition{Kind: CondOpponentAttacking},
	})
	e := battleEngine(t, armor)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	defender := placeOnBoard(t, e, gs, SideOpponent, "a1200")
	trapID := placeSet(t, gs, SideOpponent, "armor")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))
	require.NoError(t, e.Activate(gs, oppID, trapID, 0, []string{attacker}))

	assert.Nil(t, gs.PendingAction)
	assert.Empty(t, eventsOfType(gs, log.EventReplay))
	assert.Len(t, eventsOfType(gs, log.EventAttackInvalidated), 1)
	assert.Nil(t, gs.Host.BoardCard(attacker))
	assert.NotNil(t, gs.Opponent.BoardCard(defender))
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)
}

func TestNegatedAttack(t *testing.T) {
	negate := trap("negate", TrapNormal, ParsedEffect{
		Kind: EffectNegate, Trigger: TriggerManual, Condition: Condition{Kind: CondOpponentAttacking},
	})
	e := battleEngine(t, negate)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	trapID := placeSet(t, gs, SideOpponent, "negate")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, ""))
	require.NoError(t, e.Activate(gs, oppID, trapID, 0, nil))

	assert.Nil(t, gs.PendingAction)
	assert.Equal(t, StartingLP, gs.Opponent.LifePoints)
	assert.Len(t, eventsOfType(gs, log.EventNegate), 1)
}

func TestBattleProtection(t *testing.T) {
	wall := vanillaMonster("sturdy", 3, 300, 500)
	wall.Ability.CannotBeDestroyedByBattle = true
	e := battleEngine(t, wall)
	gs := newTestGame(t, e, nil, nil)
	toBattle(t, e, gs)
	attacker := placeOnBoard(t, e, gs, SideHost, "a1800")
	defender := placeOnBoard(t, e, gs, SideOpponent, "sturdy")

	require.NoError(t, e.DeclareAttack(gs, hostID, attacker, defender))
	assert.NotNil(t, gs.Opponent.BoardCard(defender))
	assert.Equal(t, StartingLP-1500, gs.Opponent.LifePoints)
}
