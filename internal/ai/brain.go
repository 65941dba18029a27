package ai

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/game"
)

// Response priorities. Answers below a profile's floor are never played.
const (
	priorityNone = iota
	priorityGeneric
	priorityMatched
	priorityCounter
)

// Brain makes every decision for computer seats. It implements
// game.Automaton, so the engine consults it for responses, optional
// triggers and battle replays, and it proposes turn actions for the Driver.
// A Brain is safe for concurrent use by several matches.
type Brain struct {
	engine    *game.Engine
	logger    *zap.Logger
	overrides map[game.Difficulty]Profile

	mu  sync.Mutex
	rng *rand.Rand
}

// BrainOption configures a Brain.
type BrainOption func(*Brain)

// WithProfile replaces the built-in profile for p.Difficulty.
func WithProfile(p Profile) BrainOption {
	return func(b *Brain) { b.overrides[p.Difficulty] = p }
}

func WithBrainLogger(l *zap.Logger) BrainOption {
	return func(b *Brain) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBrain creates a brain for engine. A zero seed seeds from the clock.
func NewBrain(engine *game.Engine, seed uint64, opts ...BrainOption) *Brain {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	b := &Brain{
		engine:    engine,
		logger:    zap.NewNop(),
		overrides: make(map[game.Difficulty]Profile),
		rng:       rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach creates a brain and installs it as engine's automaton.
func Attach(engine *game.Engine, seed uint64, opts ...BrainOption) *Brain {
	b := NewBrain(engine, seed, opts...)
	engine.SetAutomaton(b)
	return b
}

// Profile returns the profile used for a seat of the given difficulty.
func (b *Brain) Profile(d game.Difficulty) Profile {
	if p, ok := b.overrides[d]; ok {
		return p
	}
	return ProfileFor(d)
}

func (b *Brain) profileOf(gs *game.GameState, side game.PlayerSide) Profile {
	return b.Profile(gs.Side(side).Difficulty)
}

// roll succeeds with probability p.
func (b *Brain) roll(p float64) bool {
	if p >= 1 {
		return true
	}
	if p <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float64() < p
}

// AcceptTrigger flips a difficulty-weighted coin.
func (b *Brain) AcceptTrigger(gs *game.GameState, trig game.PendingOptionalTrigger) bool {
	side, err := gs.SideOf(trig.PlayerID)
	if err != nil {
		return false
	}
	return b.roll(b.profileOf(gs, side).TriggerChance)
}

// ChooseResponse plays the highest-priority response when it clears the
// profile's floor and the coin flip allows it.
func (b *Brain) ChooseResponse(gs *game.GameState, side game.PlayerSide, options []game.Action) (game.Action, bool) {
	prof := b.profileOf(gs, side)
	best, bestScore := game.Action{}, priorityNone
	for _, a := range options {
		if a.Type != game.ActionActivate {
			continue
		}
		if s := b.responsePriority(gs, side, a); s > bestScore {
			best, bestScore = a, s
		}
	}
	if bestScore == priorityNone || bestScore < prof.ResponseFloor {
		return game.Action{}, false
	}
	if !b.roll(prof.ResponseChance) {
		return game.Action{}, false
	}
	b.logger.Debug("ai response",
		zap.String("match_id", gs.MatchID),
		zap.String("card_id", best.CardID),
		zap.Int("priority", bestScore))
	return best, true
}

// responsePriority ranks counter traps above answers that fit the open
// window, and those above anything else.
func (b *Brain) responsePriority(gs *game.GameState, side game.PlayerSide, a game.Action) int {
	d, err := b.engine.Definition(gs, a.CardID)
	if err != nil {
		return priorityNone
	}
	if a.EffectIndex < 0 || a.EffectIndex >= len(d.Ability.Effects) {
		return priorityGeneric
	}
	eff := d.Ability.Effects[a.EffectIndex]
	if hitsOwnCard(gs, side, eff, a) {
		return priorityNone
	}
	pid := gs.PlayerID(side)
	if eff.Kind == game.EffectNegate {
		// never negate our own link
		if n := len(gs.Chain); n > 0 && gs.Chain[n-1].PlayerID == pid {
			return priorityNone
		}
		if len(gs.Chain) == 0 && (gs.PendingAction == nil || gs.PendingAction.PlayerID == pid) {
			return priorityNone
		}
	}
	if d.SpellSpeed() == game.SpellSpeed3 {
		return priorityCounter
	}
	w := gs.ResponseWindow
	if w == nil {
		return priorityGeneric
	}
	switch {
	case w.Type == game.WindowAttack && (eff.Kind == game.EffectNegate || eff.Kind == game.EffectDestroy):
		return priorityMatched
	case w.Type == game.WindowChain && eff.Kind == game.EffectNegate:
		return priorityMatched
	case w.Type == game.WindowSummon && (eff.Kind == game.EffectDestroy || eff.Kind == game.EffectReturnToHand):
		return priorityMatched
	}
	return priorityGeneric
}

// hitsOwnCard reports whether a removal effect targets the caller's own card.
func hitsOwnCard(gs *game.GameState, side game.PlayerSide, eff game.ParsedEffect, a game.Action) bool {
	switch eff.Kind {
	case game.EffectDestroy, game.EffectBanish, game.EffectReturnToHand:
	default:
		return false
	}
	for _, t := range a.Targets {
		if loc, ok := gs.Locate(t); ok && loc.Side == side {
			return true
		}
	}
	return false
}

// ChooseReplay re-targets the attack at the best remaining option, or
// cancels when nothing is worth hitting.
func (b *Brain) ChooseReplay(gs *game.GameState, side game.PlayerSide, options []game.Action) game.Action {
	prof := b.profileOf(gs, side)
	cancel := options[len(options)-1]
	best, bestScore := cancel, 0
	for _, a := range options {
		if a.Cancel {
			continue
		}
		if s := b.attackScore(gs, side, a.CardID, a.TargetID, prof); s > bestScore {
			best, bestScore = a, s
		}
	}
	return best
}
