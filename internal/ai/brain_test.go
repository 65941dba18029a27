package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/duelcore/internal/game"
)

func TestProfileFor(t *testing.T) {
	assert.Equal(t, game.DifficultyMedium, ProfileFor("nightmare").Difficulty)
	boss := ProfileFor(game.DifficultyBoss)
	assert.True(t, boss.TributeOverBest)
	assert.Equal(t, priorityMatched, boss.ResponseFloor)
	assert.Less(t, ProfileFor(game.DifficultyEasy).AttackChance, ProfileFor(game.DifficultyHard).AttackChance)

	b := NewBrain(testEngine(t), 1, WithProfile(always(game.DifficultyEasy)))
	assert.Equal(t, 1.0, b.Profile(game.DifficultyEasy).SummonChance)
	assert.Equal(t, ProfileFor(game.DifficultyHard), b.Profile(game.DifficultyHard))
}

func TestSummonsStrongest(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1)
	gs := newMatch(t, e, game.DifficultyBoss, deck("weak", "strong"), deck())

	a, ok := b.NextAction(gs, hostID)
	require.True(t, ok)
	assert.Equal(t, game.ActionNormalSummon, a.Type)
	assert.Equal(t, "strong", gs.Instances[a.CardID])
}

func TestTributeMustBeatOpponent(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1, WithProfile(always(game.DifficultyMedium)))

	gs := newMatch(t, e, game.DifficultyBoss, repeat("big"), deck())
	small := conjure(t, e, gs, game.SideHost, "small", game.PositionAttack)
	conjure(t, e, gs, game.SideOpponent, "wall", game.PositionAttack)

	_, ok := b.NextAction(gs, hostID)
	assert.False(t, ok, "2400 does not beat 2600")

	gs.Opponent.Board[0].Attack = 2000
	a, ok := b.NextAction(gs, hostID)
	require.True(t, ok)
	assert.Equal(t, game.ActionNormalSummon, a.Type)
	assert.Equal(t, []string{small}, a.Tributes)

	// lower tiers only want an attack gain
	gs = newMatch(t, e, game.DifficultyMedium, repeat("big"), deck())
	conjure(t, e, gs, game.SideHost, "small", game.PositionAttack)
	conjure(t, e, gs, game.SideOpponent, "wall", game.PositionAttack)
	a, ok = b.NextAction(gs, hostID)
	require.True(t, ok)
	assert.Equal(t, "big", gs.Instances[a.CardID])
}

func TestSetsWallAgainstStrongerAttacker(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1)
	gs := newMatch(t, e, game.DifficultyBoss, repeat("turtle"), deck())
	conjure(t, e, gs, game.SideOpponent, "brute", game.PositionAttack)

	a, ok := b.NextAction(gs, hostID)
	require.True(t, ok)
	assert.Equal(t, game.ActionSetMonster, a.Type)
}

func TestAttackScore(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1)
	boss, medium := ProfileFor(game.DifficultyBoss), ProfileFor(game.DifficultyMedium)

	tests := []struct {
		name   string
		target string
		pos    game.Position
		setup  func(bc *game.BoardCard)
		prof   Profile
		want   int
	}{
		{name: "direct", want: 1800, prof: boss},
		{name: "weaker attacker", target: "weak", pos: game.PositionAttack, prof: boss, want: 1800},
		{name: "stronger attacker", target: "wall", pos: game.PositionAttack, prof: boss, want: 0},
		{name: "even trade boss", target: "brute", pos: game.PositionAttack, prof: boss, want: 500},
		{name: "even trade medium", target: "brute", pos: game.PositionAttack, prof: medium, want: 0},
		{name: "indestructible", target: "weak", pos: game.PositionAttack, prof: boss, want: 800,
			setup: func(bc *game.BoardCard) { bc.CannotBeDestroyedByBattle = true }},
		{name: "breakable defense", target: "guard", pos: game.PositionDefense, prof: boss, want: 800},
		{name: "solid defense", target: "turtle", pos: game.PositionDefense, prof: boss, want: 0},
		{name: "face-down", target: "turtle", pos: game.PositionDefense, prof: boss, want: 1,
			setup: func(bc *game.BoardCard) { bc.IsFaceDown = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())
			attacker := conjure(t, e, gs, game.SideHost, "strong", game.PositionAttack)
			target := ""
			if tt.target != "" {
				target = conjure(t, e, gs, game.SideOpponent, tt.target, tt.pos)
				if tt.setup != nil {
					tt.setup(gs.Opponent.BoardCard(target))
				}
			}
			assert.Equal(t, tt.want, b.attackScore(gs, game.SideHost, attacker, target, tt.prof))
		})
	}
}

func TestBattlePicksBestAttack(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1)
	gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())
	toTurnThree(t, e, gs)
	striker := conjure(t, e, gs, game.SideHost, "strong", game.PositionAttack)
	weak := conjure(t, e, gs, game.SideOpponent, "weak", game.PositionAttack)
	conjure(t, e, gs, game.SideOpponent, "guard", game.PositionDefense)
	require.NoError(t, e.AdvancePhase(gs, hostID))
	require.Equal(t, game.PhaseBattle, gs.CurrentPhase)

	a, ok := b.NextAction(gs, hostID)
	require.True(t, ok)
	assert.Equal(t, game.ActionAttack, a.Type)
	assert.Equal(t, striker, a.CardID)
	assert.Equal(t, weak, a.TargetID)
}

func TestResponsePriority(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1)

	tests := []struct {
		name   string
		card   string
		window game.WindowType
		chain  string
		target game.PlayerSide
		want   int
	}{
		{name: "counter answers a link", card: "counter", window: game.WindowChain, chain: hostID, want: priorityCounter},
		{name: "counter never hits our own link", card: "counter", window: game.WindowChain, chain: oppID, want: priorityNone},
		{name: "negate with nothing to negate", card: "counter", window: game.WindowSummon, want: priorityNone},
		{name: "destroy attacker", card: "sweeper", window: game.WindowAttack, target: game.SideHost, want: priorityMatched},
		{name: "destroy own monster", card: "sweeper", window: game.WindowAttack, target: game.SideOpponent, want: priorityNone},
		{name: "bounce into summon", card: "bounce", window: game.WindowSummon, target: game.SideHost, want: priorityMatched},
		{name: "bounce into chain", card: "bounce", window: game.WindowChain, chain: hostID, target: game.SideHost, want: priorityGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())
			gs.ResponseWindow = &game.ResponseWindow{Type: tt.window, Holder: game.SideOpponent}
			if tt.chain != "" {
				gs.Chain = []game.ChainLink{{CardID: instance(gs, "sweeper"), PlayerID: tt.chain}}
			}
			a := game.Action{Type: game.ActionActivate, PlayerID: oppID, CardID: instance(gs, tt.card)}
			if tt.card != "counter" {
				a.Targets = []string{conjure(t, e, gs, tt.target, "weak", game.PositionAttack)}
			}
			assert.Equal(t, tt.want, b.responsePriority(gs, game.SideOpponent, a))
		})
	}
}

func TestChooseResponseFloor(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1, WithProfile(always(game.DifficultyMedium)))

	gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())
	gs.ResponseWindow = &game.ResponseWindow{Type: game.WindowChain, Holder: game.SideOpponent}
	gs.Chain = []game.ChainLink{{CardID: instance(gs, "sweeper"), PlayerID: hostID}}
	bounce := game.Action{Type: game.ActionActivate, PlayerID: oppID, CardID: instance(gs, "bounce"),
		Targets: []string{conjure(t, e, gs, game.SideHost, "weak", game.PositionAttack)}}
	counter := game.Action{Type: game.ActionActivate, PlayerID: oppID, CardID: instance(gs, "counter")}

	_, ok := b.ChooseResponse(gs, game.SideOpponent, []game.Action{bounce})
	assert.False(t, ok, "a generic answer is below the boss floor")

	got, ok := b.ChooseResponse(gs, game.SideOpponent, []game.Action{bounce, counter})
	require.True(t, ok)
	assert.Equal(t, counter.CardID, got.CardID)

	gs.Opponent.Difficulty = game.DifficultyMedium
	got, ok = b.ChooseResponse(gs, game.SideOpponent, []game.Action{bounce})
	require.True(t, ok)
	assert.Equal(t, bounce.CardID, got.CardID)
}

func TestChooseReplay(t *testing.T) {
	e := testEngine(t)
	b := NewBrain(e, 1)
	gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())
	striker := conjure(t, e, gs, game.SideHost, "strong", game.PositionAttack)
	weak := conjure(t, e, gs, game.SideOpponent, "weak", game.PositionAttack)
	wall := conjure(t, e, gs, game.SideOpponent, "wall", game.PositionAttack)
	cancel := game.Action{Type: game.ActionReplay, PlayerID: hostID, CardID: striker, Cancel: true}

	got := b.ChooseReplay(gs, game.SideHost, []game.Action{
		{Type: game.ActionReplay, PlayerID: hostID, CardID: striker, TargetID: wall},
		{Type: game.ActionReplay, PlayerID: hostID, CardID: striker, TargetID: weak},
		cancel,
	})
	assert.Equal(t, weak, got.TargetID)

	got = b.ChooseReplay(gs, game.SideHost, []game.Action{
		{Type: game.ActionReplay, PlayerID: hostID, CardID: striker, TargetID: wall},
		cancel,
	})
	assert.True(t, got.Cancel)
}

func TestAcceptTrigger(t *testing.T) {
	e := testEngine(t)
	never := always(game.DifficultyEasy)
	never.TriggerChance = 0
	b := NewBrain(e, 1, WithProfile(always(game.DifficultyHard)), WithProfile(never))
	gs := newMatch(t, e, game.DifficultyHard, deck(), deck())
	trig := game.PendingOptionalTrigger{PlayerID: hostID}

	assert.True(t, b.AcceptTrigger(gs, trig))
	gs.Host.Difficulty = game.DifficultyEasy
	assert.False(t, b.AcceptTrigger(gs, trig))
	assert.False(t, b.AcceptTrigger(gs, game.PendingOptionalTrigger{PlayerID: "stranger"}))
}

func TestAttachInstallsAutomaton(t *testing.T) {
	e := testEngine(t)
	b := Attach(e, 7)
	require.NotNil(t, b)
	gs := newMatch(t, e, game.DifficultyBoss, deck(), deck())
	_, ok := b.NextAction(gs, oppID)
	assert.False(t, ok, "not the opponent's turn")
}
