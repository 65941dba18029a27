package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// Seat describes one player joining a match. Deck lists definition ids,
// first entry on top.
type Seat struct {
	PlayerID   string
	Deck       []string
	IsComputer bool
	Difficulty Difficulty
}

// MatchConfig configures a new match.
type MatchConfig struct {
	MatchID   string
	Host      Seat
	Opponent  Seat
	Seed      uint64 // deck shuffle seed (0 for time-based)
	NoShuffle bool   // keep deck order as given (for deterministic tests)
}

// NewGame builds the opening state: shuffled decks, starting life points
// and opening hands. The host takes the first turn and is left in main
// phase 1 unless a trigger is waiting on a decision.
func (e *Engine) NewGame(cfg MatchConfig) (*GameState, error) {
	if cfg.MatchID == "" {
		return nil, errors.New("match id is required")
	}
	if cfg.Host.PlayerID == "" || cfg.Opponent.PlayerID == "" {
		return nil, errors.New("both seats need a player id")
	}
	if cfg.Host.PlayerID == cfg.Opponent.PlayerID {
		return nil, fmt.Errorf("player %q cannot sit on both sides", cfg.Host.PlayerID)
	}

	gs := &GameState{
		MatchID:             cfg.MatchID,
		Status:              StatusActive,
		CurrentPhase:        PhaseDraw,
		TurnNumber:          1,
		CurrentTurnPlayerID: cfg.Host.PlayerID,
		Instances:           make(map[string]string),
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var err error
	if gs.Host, err = e.seat(gs, cfg.Host, "h", rng, cfg.NoShuffle); err != nil {
		return nil, err
	}
	if gs.Opponent, err = e.seat(gs, cfg.Opponent, "o", rng, cfg.NoShuffle); err != nil {
		return nil, err
	}
	for _, side := range Sides {
		e.drawCards(gs, side, e.rules.InitialHand)
	}

	e.emit(gs, log.EventTurnStart, SideHost, "", "turn 1: %s", gs.CurrentTurnPlayerID)
	e.emit(gs, log.EventPhaseChange, SideHost, "", "%s", gs.CurrentPhase)
	e.enterPhase(gs)
	e.progress(gs)
	return gs, nil
}

func (e *Engine) seat(gs *GameState, s Seat, prefix string, rng *rand.Rand, noShuffle bool) (*PlayerZones, error) {
	p := &PlayerZones{
		PlayerID:   s.PlayerID,
		IsComputer: s.IsComputer,
		Difficulty: s.Difficulty,
		LifePoints: e.rules.StartingLP,
		Hand:       []string{},
		Board:      []BoardCard{},
		Graveyard:  []string{},
		Banished:   []string{},
	}
	if s.IsComputer && p.Difficulty == "" {
		p.Difficulty = DifficultyMedium
	}
	// stored bottom-first so that the top of the deck is the last element
	p.Deck = make([]string, 0, len(s.Deck))
	for i := len(s.Deck) - 1; i >= 0; i-- {
		defID := s.Deck[i]
		if _, ok := e.catalog.Definition(defID); !ok {
			return nil, &IntegrityError{What: "card definition", ID: defID}
		}
		id := fmt.Sprintf("%s%02d", prefix, i+1)
		gs.Instances[id] = defID
		p.Deck = append(p.Deck, id)
	}
	if !noShuffle {
		rng.Shuffle(len(p.Deck), func(i, j int) {
			p.Deck[i], p.Deck[j] = p.Deck[j], p.Deck[i]
		})
	}
	return p, nil
}
