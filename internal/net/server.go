package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/game"
	"github.com/peterkuimelis/duelcore/internal/log"
	"github.com/peterkuimelis/duelcore/internal/match"
)

// DefaultSettle is how long a session waits for the event stream to go
// quiet before it sends a fresh state prompt.
const DefaultSettle = 150 * time.Millisecond

// DeckSource resolves the deck numbers clients pick on join.
type DeckSource interface {
	ByNumber(n int) (string, []string, error)
}

// Server hosts matches between TCP clients and computer opponents. Each
// connection joins with a deck choice and plays one match.
type Server struct {
	Service *match.Service
	Feed    *log.Feed
	Decks   DeckSource
	Logger  *zap.Logger
	Settle  time.Duration
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := s.logger()
	logger.Info("duel server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			if err := s.handle(ctx, conn); err != nil {
				logger.Info("session ended", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			}
		}()
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Server) handle(ctx context.Context, conn net.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dec := json.NewDecoder(conn)
	sess := &session{
		conn:   conn,
		enc:    json.NewEncoder(conn),
		svc:    s.Service,
		settle: s.Settle,
		logger: s.logger(),
	}
	if sess.settle <= 0 {
		sess.settle = DefaultSettle
	}

	var join ClientMessage
	if err := dec.Decode(&join); err != nil {
		return fmt.Errorf("read join message: %w", err)
	}
	if join.Type != MsgJoin {
		sess.sendError("", fmt.Sprintf("expected %q, got %q", MsgJoin, join.Type))
		return errors.New("missing join")
	}
	req, err := s.startRequest(join)
	if err != nil {
		sess.sendError("", err.Error())
		return err
	}
	sess.matchID = req.MatchID
	sess.playerID = req.Host.PlayerID

	// Subscribe before starting so the opening draws reach the client.
	sub := s.Feed.Subscribe(req.MatchID)
	defer sub.Close()
	if _, err := s.Service.StartMatch(ctx, req); err != nil {
		sess.sendError(game.RuleCode(err), err.Error())
		return err
	}
	sess.send(ServerMessage{Type: MsgJoined, MatchID: sess.matchID, PlayerID: sess.playerID})
	sess.logger.Info("player joined",
		zap.String("match_id", sess.matchID),
		zap.String("player_id", sess.playerID),
		zap.Int("deck", join.DeckNumber))

	kick := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.pump(ctx, sub, kick)
		// Unblock the decoder below.
		conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := dec.Decode(&msg); err != nil {
			cancel()
			<-done
			if sess.finished() {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		switch msg.Type {
		case MsgLook:
		case MsgAction:
			sess.act(ctx, msg)
		default:
			sess.sendError("", fmt.Sprintf("unknown message type %q", msg.Type))
			continue
		}
		select {
		case kick <- struct{}{}:
		default:
		}
	}
}

// startRequest seats the joining client as host against a computer playing
// the next deck in the list.
func (s *Server) startRequest(join ClientMessage) (match.StartRequest, error) {
	deckNo := join.DeckNumber
	if deckNo == 0 {
		deckNo = 1
	}
	_, hostDeck, err := s.Decks.ByNumber(deckNo)
	if err != nil {
		return match.StartRequest{}, fmt.Errorf("load deck: %w", err)
	}
	oppName, oppDeck, err := s.Decks.ByNumber(deckNo + 1)
	if err != nil {
		oppName, oppDeck, err = s.Decks.ByNumber(1)
		if err != nil {
			return match.StartRequest{}, fmt.Errorf("load computer deck: %w", err)
		}
	}
	difficulty := game.DifficultyMedium
	if join.Difficulty != "" {
		if difficulty, err = game.ParseDifficulty(join.Difficulty); err != nil {
			return match.StartRequest{}, err
		}
	}
	playerID := join.PlayerID
	if playerID == "" {
		playerID = "guest-" + uuid.NewString()[:8]
	}
	s.logger().Debug("computer deck", zap.String("deck", oppName))
	return match.StartRequest{
		MatchID:  uuid.NewString(),
		Host:     game.Seat{PlayerID: playerID, Deck: hostDeck},
		Opponent: game.Seat{PlayerID: "cpu-" + playerID, Deck: oppDeck, IsComputer: true, Difficulty: difficulty},
	}, nil
}

// session is one connected player.
type session struct {
	conn     net.Conn
	enc      *json.Encoder
	svc      *match.Service
	matchID  string
	playerID string
	settle   time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	over bool
}

// send writes one message. Safe for concurrent use.
func (ss *session) send(msg ServerMessage) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if err := ss.enc.Encode(msg); err != nil {
		ss.logger.Debug("send failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (ss *session) sendError(code, text string) {
	ss.send(ServerMessage{Type: MsgError, Code: code, Error: text})
}

func (ss *session) finished() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.over
}

// act applies the action the client picked from its last prompt. A prompt
// built from an older snapshot is refused so the index cannot drift onto a
// different action.
func (ss *session) act(ctx context.Context, msg ClientMessage) {
	gs, err := ss.svc.Get(ctx, ss.matchID)
	if err != nil {
		ss.sendError(game.RuleCode(err), err.Error())
		return
	}
	if msg.Seq != 0 && msg.Seq != gs.Seq {
		ss.sendError("stale", "the match moved on; pick again from the latest prompt")
		return
	}
	actions := ss.svc.Engine().LegalActions(gs, ss.playerID)
	if msg.Index < 0 || msg.Index >= len(actions) {
		ss.sendError("bad_index", fmt.Sprintf("action %d out of range (have %d)", msg.Index, len(actions)))
		return
	}
	if _, err := ss.svc.Act(ctx, ss.matchID, actions[msg.Index]); err != nil {
		ss.sendError(game.RuleCode(err), err.Error())
	}
}

// pump forwards match events and sends a state prompt once the stream has
// been quiet for the settle period. It returns when the match ends.
func (ss *session) pump(ctx context.Context, sub *log.Subscription, kick <-chan struct{}) {
	timer := time.NewTimer(ss.settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			ss.send(ServerMessage{Type: MsgEvent, Event: NewEventView(ev)})
			timer.Reset(ss.settle)
		case <-kick:
			timer.Reset(ss.settle)
		case <-timer.C:
			if ss.prompt(ctx) {
				return
			}
		}
	}
}

// prompt sends the current state and the player's options. It reports true
// once the match is over.
func (ss *session) prompt(ctx context.Context) bool {
	gs, err := ss.svc.Get(ctx, ss.matchID)
	if err != nil {
		ss.sendError(game.RuleCode(err), err.Error())
		return false
	}
	sv, err := BuildStateView(ss.svc.Engine(), gs, ss.playerID)
	if err != nil {
		ss.sendError(game.RuleCode(err), err.Error())
		return false
	}
	if gs.IsOver() {
		ss.send(ServerMessage{Type: MsgGameOver, State: sv, Winner: gs.WinnerID, Result: gs.EndReason})
		ss.mu.Lock()
		ss.over = true
		ss.mu.Unlock()
		return true
	}
	ss.send(ServerMessage{
		Type:    MsgState,
		State:   sv,
		Actions: ActionViews(ss.svc.Engine().LegalActions(gs, ss.playerID)),
	})
	return false
}
