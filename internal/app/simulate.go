package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/game"
	"github.com/peterkuimelis/duelcore/internal/match"
)

// DefaultMaxTurns bounds a simulated match.
const DefaultMaxTurns = 60

// Simulation describes a headless computer-vs-computer match. Deck numbers
// are 1-indexed into the deck file.
type Simulation struct {
	MatchID            string
	HostDeck           int
	OpponentDeck       int
	HostDifficulty     game.Difficulty
	OpponentDifficulty game.Difficulty
	Seed               uint64
	MaxTurns           int
}

// Simulate plays a match between two computer seats until it ends or runs
// out of turns. A turn that makes no progress is ended by force.
func (a *App) Simulate(ctx context.Context, sim Simulation) (*game.GameState, error) {
	if sim.MaxTurns <= 0 {
		sim.MaxTurns = DefaultMaxTurns
	}
	hostName, hostDeck, err := a.Decks.ByNumber(sim.HostDeck)
	if err != nil {
		return nil, fmt.Errorf("host deck: %w", err)
	}
	oppName, oppDeck, err := a.Decks.ByNumber(sim.OpponentDeck)
	if err != nil {
		return nil, fmt.Errorf("opponent deck: %w", err)
	}
	gs, err := a.Service.StartMatch(ctx, match.StartRequest{
		MatchID:  sim.MatchID,
		Host:     game.Seat{PlayerID: "cpu-1", Deck: hostDeck, IsComputer: true, Difficulty: sim.HostDifficulty},
		Opponent: game.Seat{PlayerID: "cpu-2", Deck: oppDeck, IsComputer: true, Difficulty: sim.OpponentDifficulty},
		Seed:     sim.Seed,
	})
	if err != nil {
		return nil, err
	}
	a.Logger.Info("simulation started",
		zap.String("match_id", gs.MatchID),
		zap.String("host_deck", hostName),
		zap.String("opponent_deck", oppName))

	for !gs.IsOver() && gs.TurnNumber <= sim.MaxTurns {
		if err := ctx.Err(); err != nil {
			return gs, err
		}
		turn, seq := gs.TurnNumber, gs.Seq
		_, next, err := a.Service.RunAITurn(ctx, gs.MatchID)
		if err != nil {
			return gs, fmt.Errorf("turn %d: %w", turn, err)
		}
		if next.TurnNumber == turn && next.Seq == seq && !next.IsOver() {
			forced, after, err := a.Service.ForceEndTurn(ctx, gs.MatchID, turn, "simulation stalled")
			if err != nil {
				return gs, fmt.Errorf("force end turn %d: %w", turn, err)
			}
			if !forced {
				return after, fmt.Errorf("turn %d is stuck", turn)
			}
			next = after
		}
		gs = next
	}
	a.Logger.Info("simulation finished",
		zap.String("match_id", gs.MatchID),
		zap.Int("turns", gs.TurnNumber),
		zap.String("winner", gs.WinnerID),
		zap.String("reason", gs.EndReason))
	return gs, nil
}
