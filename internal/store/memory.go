// Package store keeps match snapshots. Every implementation serializes
// mutations per match and stores a snapshot only when the mutation
// succeeds.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/peterkuimelis/duelcore/internal/game"
)

func notFound(matchID string) error {
	return &game.IntegrityError{What: "match", ID: matchID}
}

type memEntry struct {
	mu   sync.Mutex
	data []byte
}

// Memory keeps JSON snapshots in process memory. Callers always receive a
// private decoded copy.
type Memory struct {
	mu      sync.RWMutex
	matches map[string]*memEntry
}

func NewMemory() *Memory {
	return &Memory{matches: make(map[string]*memEntry)}
}

func (m *Memory) entry(matchID string) (*memEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.matches[matchID]
	if !ok {
		return nil, notFound(matchID)
	}
	return e, nil
}

func (m *Memory) Create(_ context.Context, gs *game.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", gs.MatchID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.matches[gs.MatchID]; dup {
		return fmt.Errorf("match %s already exists", gs.MatchID)
	}
	m.matches[gs.MatchID] = &memEntry{data: data}
	return nil
}

func (m *Memory) Read(_ context.Context, matchID string) (*game.GameState, error) {
	e, err := m.entry(matchID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	data := e.data
	e.mu.Unlock()
	return decode(matchID, data)
}

func (m *Memory) Patch(_ context.Context, gs *game.GameState) error {
	e, err := m.entry(gs.MatchID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", gs.MatchID, err)
	}
	e.mu.Lock()
	e.data = data
	e.mu.Unlock()
	return nil
}

func (m *Memory) Mutate(_ context.Context, matchID string, fn func(gs *game.GameState) error) (*game.GameState, error) {
	e, err := m.entry(matchID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	gs, err := decode(matchID, e.data)
	if err != nil {
		return nil, err
	}
	if err := fn(gs); err != nil {
		return nil, err
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("encode match %s: %w", matchID, err)
	}
	e.data = data
	return gs, nil
}

// IDs lists stored matches in lexical order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.matches))
	for id := range m.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func decode(matchID string, data []byte) (*game.GameState, error) {
	var gs game.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("%w: decode match %s: %w", game.ErrIntegrity, matchID, err)
	}
	return &gs, nil
}
