// Package ai plays computer-controlled seats: it proposes main and battle
// phase actions, answers response windows, optional triggers and battle
// replays, and drives a whole turn one phase at a time.
package ai

import "github.com/peterkuimelis/duelcore/internal/game"

// Profile tunes how eagerly a difficulty tier plays.
type Profile struct {
	Difficulty game.Difficulty

	SummonChance   float64
	AttackChance   float64
	ActivateChance float64
	ResponseChance float64
	TriggerChance  float64

	// TributeOverBest only tributes when the new monster beats the
	// opponent's strongest attacker. Otherwise any attack gain is enough.
	TributeOverBest bool
	// TradeEven takes equal-attack battles that destroy both monsters.
	TradeEven bool
	// ResponseFloor is the lowest response priority worth answering with.
	ResponseFloor int
}

var profiles = map[game.Difficulty]Profile{
	game.DifficultyEasy: {
		Difficulty:     game.DifficultyEasy,
		SummonChance:   0.5,
		AttackChance:   0.5,
		ActivateChance: 0.4,
		ResponseChance: 0.3,
		TriggerChance:  0.5,
		ResponseFloor:  priorityGeneric,
	},
	game.DifficultyMedium: {
		Difficulty:     game.DifficultyMedium,
		SummonChance:   0.75,
		AttackChance:   0.75,
		ActivateChance: 0.6,
		ResponseChance: 0.5,
		TriggerChance:  0.7,
		ResponseFloor:  priorityGeneric,
	},
	game.DifficultyHard: {
		Difficulty:     game.DifficultyHard,
		SummonChance:   0.9,
		AttackChance:   0.9,
		ActivateChance: 0.8,
		ResponseChance: 0.75,
		TriggerChance:  0.85,
		ResponseFloor:  priorityGeneric,
	},
	game.DifficultyBoss: {
		Difficulty:      game.DifficultyBoss,
		SummonChance:    1,
		AttackChance:    1,
		ActivateChance:  1,
		ResponseChance:  1,
		TriggerChance:   1,
		TributeOverBest: true,
		TradeEven:       true,
		ResponseFloor:   priorityMatched,
	},
}

// ProfileFor returns the profile of a difficulty tier. Unknown tiers play
// like medium.
func ProfileFor(d game.Difficulty) Profile {
	if p, ok := profiles[d]; ok {
		return p
	}
	return profiles[game.DifficultyMedium]
}
