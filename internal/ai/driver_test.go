package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/duelcore/internal/game"
)

// script replays fixed proposals, then passes.
type script struct {
	actions []game.Action
}

func (s *script) NextAction(*game.GameState, string) (game.Action, bool) {
	if len(s.actions) == 0 {
		return game.Action{}, false
	}
	a := s.actions[0]
	s.actions = s.actions[1:]
	return a, true
}

func TestPlayTurnEndsTurn(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1)
	d := NewDriver(e, b, WithDriverLogger(zaptest.NewLogger(t)))
	gs := newMatch(t, e, game.DifficultyBoss, deck("strong"), deck())

	reports := d.PlayTurn(gs, hostID)
	require.Len(t, reports, 2, "turn one has no battle phase")
	assert.Equal(t, game.PhaseMain1, reports[0].Phase)
	assert.Len(t, reports[0].Applied, 1)
	assert.Equal(t, StopPass, reports[0].Stop)
	assert.Equal(t, game.PhaseMain2, reports[1].Phase)

	assert.Equal(t, 2, gs.TurnNumber)
	assert.Equal(t, oppID, gs.CurrentTurnPlayerID)
	require.Len(t, gs.Host.Board, 1)
	assert.Equal(t, "strong", gs.Instances[gs.Host.Board[0].CardID])
}

func TestPlayTurnAttacks(t *testing.T) {
	e := testEngine(t)
	d := NewDriver(e, NewBrain(e, 1))
	gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())
	toTurnThree(t, e, gs)
	conjure(t, e, gs, game.SideHost, "strong", game.PositionAttack)

	reports := d.PlayTurn(gs, hostID)
	require.Len(t, reports, 3)
	assert.Equal(t, game.PhaseBattle, reports[1].Phase)
	require.Len(t, reports[1].Applied, 1)
	assert.Equal(t, game.ActionAttack, reports[1].Applied[0].Type)
	assert.Equal(t, game.StartingLP-1800, gs.Opponent.LifePoints)
	assert.Equal(t, 4, gs.TurnNumber)
}

func TestRunPhaseActionCap(t *testing.T) {
	e := testEngine(t)
	d := NewDriver(e, NewBrain(e, 1), WithActionCap(1))
	gs := newMatch(t, e, game.DifficultyBoss, deck("strong"), deck())

	rep := d.RunPhase(gs, hostID)
	assert.Equal(t, StopCap, rep.Stop)
	assert.Len(t, rep.Applied, 1)
}

func TestRunPhaseStopsOnRepeatedFailures(t *testing.T) {
	e := testEngine(t)
	gs := newMatch(t, e, game.DifficultyBoss, deck("strong"), deck())
	bad := game.Action{Type: game.ActionFlipSummon, PlayerID: hostID, CardID: "ghost"}
	good := game.Action{Type: game.ActionNormalSummon, PlayerID: hostID, CardID: inHand(t, gs, game.SideHost, "strong")}

	d := NewDriver(e, &script{actions: []game.Action{bad, good, bad, bad, bad}})
	rep := d.RunPhase(gs, hostID)
	assert.Equal(t, StopFailures, rep.Stop)
	assert.Equal(t, 3, rep.Failures, "a success resets the streak")
	assert.Len(t, rep.Applied, 1)
	assert.Len(t, gs.Host.Board, 1)
}

func TestStepOutsideTurn(t *testing.T) {
	e := testEngine(t)
	d := NewDriver(e, NewBrain(e, 1))
	gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())

	res := d.Step(gs, oppID)
	assert.True(t, res.TurnOver)
	assert.Nil(t, res.Report)

	gs.PendingOptionalTriggers = append(gs.PendingOptionalTriggers, game.PendingOptionalTrigger{PlayerID: oppID})
	res = d.Step(gs, hostID)
	assert.True(t, res.Blocked)
	assert.Equal(t, game.PhaseMain1, gs.CurrentPhase)
}

func TestStepAfterGameOver(t *testing.T) {
	e := testEngine(t)
	d := NewDriver(e, NewBrain(e, 1))
	gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())
	gs.Opponent.LifePoints = 0
	e.CheckStateBasedActions(gs, game.SBAOptions{})
	require.True(t, gs.IsOver())

	res := d.Step(gs, hostID)
	assert.True(t, res.TurnOver)
}
