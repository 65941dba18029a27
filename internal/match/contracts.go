// Package match runs matches on top of the rules engine. It owns the
// mutation path (read, apply, persist, publish), the callbacks that play
// computer turns a step at a time, and the watchdog that keeps those turns
// moving.
package match

import (
	"context"
	"time"

	"github.com/peterkuimelis/duelcore/internal/game"
)

// StateStore persists one snapshot per match. Mutate is the only way the
// service changes a match: implementations run at most one Mutate per match
// at a time and persist nothing when fn returns an error.
type StateStore interface {
	Create(ctx context.Context, gs *game.GameState) error
	Read(ctx context.Context, matchID string) (*game.GameState, error)
	// Patch replaces the stored snapshot in one atomic write.
	Patch(ctx context.Context, gs *game.GameState) error
	// Mutate hands fn a private copy of the latest snapshot and stores the
	// result. The returned state is the one fn mutated, Outbox included.
	Mutate(ctx context.Context, matchID string, fn func(gs *game.GameState) error) (*game.GameState, error)
}

// Callback names deferred work for a match.
type Callback struct {
	Kind     string `json:"kind"`
	MatchID  string `json:"matchId"`
	PlayerID string `json:"playerId"`
	Turn     int    `json:"turn"`
}

const (
	CallbackAIStep   = "ai.step"
	CallbackWatchdog = "ai.watchdog"
)

// Handler runs a due callback.
type Handler func(ctx context.Context, cb Callback)

// Scheduler runs callbacks after a delay. Delivery is at-most-once; the
// service tolerates lost, late and duplicated callbacks.
type Scheduler interface {
	ScheduleCallback(delay time.Duration, cb Callback) error
}

// registrar is implemented by schedulers that need to be told where to
// deliver callbacks.
type registrar interface {
	Register(h Handler)
}

// Player is the display identity of a seat.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PlayerDirectory resolves display names. It is never consulted for rules.
type PlayerDirectory interface {
	GetPlayer(ctx context.Context, playerID string) (Player, error)
}

// StaticDirectory is a fixed id to username table.
type StaticDirectory map[string]string

func (d StaticDirectory) GetPlayer(_ context.Context, playerID string) (Player, error) {
	if name, ok := d[playerID]; ok {
		return Player{ID: playerID, Username: name}, nil
	}
	return Player{}, &game.IntegrityError{What: "player", ID: playerID}
}
