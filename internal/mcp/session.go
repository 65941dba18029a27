package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/peterkuimelis/duelcore/internal/ai"
	"github.com/peterkuimelis/duelcore/internal/game"
	"github.com/peterkuimelis/duelcore/internal/log"
	"github.com/peterkuimelis/duelcore/internal/match"
	"github.com/peterkuimelis/duelcore/internal/net"
)

// DecisionType identifies what the match is waiting for.
type DecisionType string

const (
	DecisionChooseAction    DecisionType = "choose_action"
	DecisionOptionalTrigger DecisionType = "optional_trigger"
	DecisionResponse        DecisionType = "response"
	DecisionReplay          DecisionType = "replay"
	DecisionComputerTurn    DecisionType = "computer_turn"
	DecisionGameOver        DecisionType = "game_over"
)

var (
	ErrNoMatch     = errors.New("no match is running; use start_match first")
	ErrMatchActive = errors.New("a match is already running; only one match at a time is supported")
)

// ToolResponse is the JSON envelope returned by all MCP tools.
type ToolResponse struct {
	MatchID  string           `json:"match_id"`
	Events   []net.EventView  `json:"events"`
	State    *net.StateView   `json:"state,omitempty"`
	Actions  []net.ActionView `json:"actions,omitempty"`
	Pending  *PendingView     `json:"pending,omitempty"`
	Reports  []ai.PhaseReport `json:"ai_reports,omitempty"`
	GameOver bool             `json:"game_over"`
	Winner   string           `json:"winner,omitempty"`
	Result   string           `json:"result,omitempty"`
}

// PendingView is the pending decision as presented in the tool response JSON.
type PendingView struct {
	Type      DecisionType `json:"type"`
	ForPlayer string       `json:"for_player"`
	Hint      string       `json:"hint,omitempty"`
}

// StartOptions configures start_match.
type StartOptions struct {
	Deck         int
	OpponentDeck int
	Difficulty   game.Difficulty
	GoFirst      bool
	Seed         uint64
}

// Session is the agent's seat in one match at a time against a computer
// opponent. Computer turns only advance through RunAI.
type Session struct {
	svc     *match.Service
	feed    *log.Feed
	decks   net.DeckSource
	agentID string

	mu      sync.Mutex
	matchID string
	sub     *log.Subscription
}

func NewSession(svc *match.Service, feed *log.Feed, decks net.DeckSource, agentID string) *Session {
	if agentID == "" {
		agentID = "agent"
	}
	return &Session{svc: svc, feed: feed, decks: decks, agentID: agentID}
}

// Start opens a new match. A finished match is replaced; a running one is
// an error.
func (s *Session) Start(ctx context.Context, opts StartOptions) (*ToolResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matchID != "" {
		gs, err := s.svc.Get(ctx, s.matchID)
		if err == nil && !gs.IsOver() {
			return nil, ErrMatchActive
		}
		if s.sub != nil {
			s.sub.Close()
		}
		s.matchID, s.sub = "", nil
	}

	if opts.Deck == 0 {
		opts.Deck = 1
	}
	if opts.OpponentDeck == 0 {
		opts.OpponentDeck = opts.Deck
	}
	_, agentDeck, err := s.decks.ByNumber(opts.Deck)
	if err != nil {
		return nil, fmt.Errorf("load agent deck: %w", err)
	}
	_, cpuDeck, err := s.decks.ByNumber(opts.OpponentDeck)
	if err != nil {
		return nil, fmt.Errorf("load computer deck: %w", err)
	}
	if opts.Difficulty == "" {
		opts.Difficulty = game.DifficultyMedium
	}

	agent := game.Seat{PlayerID: s.agentID, Deck: agentDeck}
	cpu := game.Seat{PlayerID: "cpu", Deck: cpuDeck, IsComputer: true, Difficulty: opts.Difficulty}
	req := match.StartRequest{Host: agent, Opponent: cpu, Seed: opts.Seed}
	if !opts.GoFirst {
		req.Host, req.Opponent = cpu, agent
	}
	// The id is fixed up front so the subscription sees the opening events.
	req.MatchID = "mcp-" + uuid.NewString()
	sub := s.feed.Subscribe(req.MatchID)
	gs, err := s.svc.StartMatch(ctx, req)
	if err != nil {
		sub.Close()
		return nil, err
	}
	s.matchID, s.sub = gs.MatchID, sub
	return s.respond(ctx, gs, nil)
}

// State reports the match without changing it.
func (s *Session) State(ctx context.Context) (*ToolResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matchID == "" {
		return nil, ErrNoMatch
	}
	gs, err := s.svc.Get(ctx, s.matchID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, gs, nil)
}

// LegalActions lists the agent's options.
func (s *Session) LegalActions(ctx context.Context) ([]net.ActionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matchID == "" {
		return nil, ErrNoMatch
	}
	actions, err := s.svc.LegalActions(ctx, s.matchID, s.agentID)
	if err != nil {
		return nil, err
	}
	return net.ActionViews(actions), nil
}

// Take applies the agent's action at index. A non-zero seq must match the
// state the index was read from.
func (s *Session) Take(ctx context.Context, index, seq int) (*ToolResponse, error) {
	return s.act(ctx, func(gs *game.GameState) (game.Action, error) {
		if seq != 0 && seq != gs.Seq {
			return game.Action{}, fmt.Errorf("stale action list: state is at seq %d, not %d", gs.Seq, seq)
		}
		actions := s.svc.Engine().LegalActions(gs, s.agentID)
		if index < 0 || index >= len(actions) {
			return game.Action{}, fmt.Errorf("invalid index %d: have %d actions", index, len(actions))
		}
		return actions[index], nil
	})
}

// RespondTrigger accepts or skips one of the agent's pending optional triggers.
func (s *Session) RespondTrigger(ctx context.Context, cardID string, accept bool) (*ToolResponse, error) {
	return s.act(ctx, func(gs *game.GameState) (game.Action, error) {
		for _, t := range gs.PendingOptionalTriggers {
			if t.PlayerID == s.agentID && t.CardID == cardID {
				return game.Action{Type: game.ActionRespondTrigger, PlayerID: s.agentID, CardID: cardID, EffectIndex: t.EffectIndex, Accept: accept}, nil
			}
		}
		return game.Action{}, fmt.Errorf("no optional trigger pending for card %s", cardID)
	})
}

// Pass gives up priority in the open response window.
func (s *Session) Pass(ctx context.Context) (*ToolResponse, error) {
	return s.act(ctx, func(*game.GameState) (game.Action, error) {
		return game.Action{Type: game.ActionPass, PlayerID: s.agentID}, nil
	})
}

func (s *Session) act(ctx context.Context, pick func(gs *game.GameState) (game.Action, error)) (*ToolResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matchID == "" {
		return nil, ErrNoMatch
	}
	gs, err := s.svc.Get(ctx, s.matchID)
	if err != nil {
		return nil, err
	}
	a, err := pick(gs)
	if err != nil {
		return nil, err
	}
	if gs, err = s.svc.Act(ctx, s.matchID, a); err != nil {
		return nil, err
	}
	return s.respond(ctx, gs, nil)
}

// RunAI plays the computer's turn until it ends or the agent has to decide.
func (s *Session) RunAI(ctx context.Context) (*ToolResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matchID == "" {
		return nil, ErrNoMatch
	}
	reports, gs, err := s.svc.RunAITurn(ctx, s.matchID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, gs, reports)
}

// respond builds the envelope from the agent's perspective. Must be called
// with mu held.
func (s *Session) respond(ctx context.Context, gs *game.GameState, reports []ai.PhaseReport) (*ToolResponse, error) {
	sv, err := net.BuildStateView(s.svc.Engine(), gs, s.agentID)
	if err != nil {
		return nil, err
	}
	resp := &ToolResponse{
		MatchID: gs.MatchID,
		Events:  s.drainEvents(),
		State:   sv,
		Reports: reports,
	}
	if gs.IsOver() {
		resp.GameOver = true
		resp.Winner = gs.WinnerID
		resp.Result = gs.EndReason
		resp.Pending = &PendingView{Type: DecisionGameOver}
		return resp, nil
	}
	resp.Actions = net.ActionViews(s.svc.Engine().LegalActions(gs, s.agentID))
	resp.Pending = s.pending(gs, len(resp.Actions) > 0)
	return resp, nil
}

func (s *Session) pending(gs *game.GameState, hasActions bool) *PendingView {
	label := func(playerID string) string {
		if playerID == s.agentID {
			return "agent"
		}
		return "computer"
	}
	switch {
	case len(gs.PendingOptionalTriggers) > 0:
		t := gs.PendingOptionalTriggers[0]
		return &PendingView{Type: DecisionOptionalTrigger, ForPlayer: label(t.PlayerID), Hint: "respond_trigger with card_id " + t.CardID}
	case gs.ResponseWindow != nil:
		return &PendingView{Type: DecisionResponse, ForPlayer: label(gs.PlayerID(gs.ResponseWindow.Holder)), Hint: "take_action to chain or pass_priority"}
	case gs.PendingAction != nil && gs.PendingAction.AwaitingReplay:
		return &PendingView{Type: DecisionReplay, ForPlayer: label(gs.PendingAction.PlayerID), Hint: "take_action to pick a new target or cancel"}
	case gs.Side(gs.TurnSide()).IsComputer:
		return &PendingView{Type: DecisionComputerTurn, ForPlayer: "computer", Hint: "call run_ai_turn"}
	case hasActions:
		return &PendingView{Type: DecisionChooseAction, ForPlayer: "agent"}
	}
	return nil
}

// drainEvents returns everything the subscription collected since the last
// call. Must be called with mu held.
func (s *Session) drainEvents() []net.EventView {
	events := []net.EventView{}
	if s.sub == nil {
		return events
	}
	for {
		select {
		case ev, ok := <-s.sub.C:
			if !ok {
				return events
			}
			events = append(events, *net.NewEventView(ev))
		default:
			return events
		}
	}
}

// Close releases the event subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
}

// respondJSON marshals a value to a JSON string.
func respondJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
