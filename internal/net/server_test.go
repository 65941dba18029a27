package net

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/duelcore/internal/log"
	"github.com/peterkuimelis/duelcore/internal/match"
	"github.com/peterkuimelis/duelcore/internal/store"
)

type deckList [][]string

func (d deckList) ByNumber(n int) (string, []string, error) {
	if n < 1 || n > len(d) {
		return "", nil, fmt.Errorf("deck %d not found (have %d decks)", n, len(d))
	}
	return fmt.Sprintf("deck-%d", n), d[n-1], nil
}

type harness struct {
	sched *match.ManualScheduler
	addr  string
}

func startServer(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	feed := log.NewFeed(256)
	h := &harness{sched: match.NewManualScheduler()}
	svc := match.NewService(testEngine(), store.NewMemory(),
		match.WithScheduler(h.sched),
		match.WithSink(feed),
		match.WithLogger(logger))
	srv := &Server{
		Service: svc,
		Feed:    feed,
		Decks:   deckList{soldiers(), soldiers()},
		Logger:  logger,
		Settle:  20 * time.Millisecond,
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h.addr = ln.Addr().String()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return h
}

type conn struct {
	t   *testing.T
	c   net.Conn
	enc *json.Encoder
	dec *json.Decoder
}

func dial(t *testing.T, addr string, join ClientMessage) *conn {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	cc := &conn{t: t, c: c, enc: json.NewEncoder(c), dec: json.NewDecoder(c)}
	join.Type = MsgJoin
	cc.send(join)
	return cc
}

func (c *conn) send(msg ClientMessage) {
	require.NoError(c.t, c.enc.Encode(msg))
}

// until reads messages until one satisfies pred.
func (c *conn) until(pred func(ServerMessage) bool) ServerMessage {
	c.t.Helper()
	require.NoError(c.t, c.c.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg ServerMessage
		require.NoError(c.t, c.dec.Decode(&msg))
		if pred(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(ServerMessage) bool {
	return func(m ServerMessage) bool { return m.Type == typ }
}

func indexOf(actions []ActionView, typ string) int {
	for _, a := range actions {
		if a.Type == typ {
			return a.Index
		}
	}
	return -1
}

func TestServerPlaysAgainstComputer(t *testing.T) {
	h := startServer(t)
	c := dial(t, h.addr, ClientMessage{PlayerID: "alice", DeckNumber: 1, Difficulty: "boss"})

	joined := c.until(ofType(MsgJoined))
	assert.Equal(t, "alice", joined.PlayerID)
	assert.Len(t, joined.MatchID, 36)

	first := c.until(ofType(MsgState))
	require.NotNil(t, first.State)
	assert.Equal(t, 1, first.State.Turn)
	assert.True(t, first.State.IsYourTurn)
	assert.Equal(t, "cpu-alice", first.State.Opponent.PlayerID)
	end := indexOf(first.Actions, "end_turn")
	require.GreaterOrEqual(t, end, 0)

	c.send(ClientMessage{Type: MsgAction, Index: end, Seq: first.State.Seq})
	waiting := c.until(func(m ServerMessage) bool { return m.Type == MsgState && m.State.Turn == 2 })
	assert.False(t, waiting.State.IsYourTurn)
	assert.Empty(t, waiting.Actions)

	h.sched.Advance(context.Background(), time.Minute)
	back := c.until(func(m ServerMessage) bool { return m.Type == MsgState && m.State.Turn == 3 })
	assert.True(t, back.State.IsYourTurn)
	assert.Len(t, back.State.Opponent.Board, 1)
	assert.NotEmpty(t, back.Actions)
}

func TestServerRejectsBadActions(t *testing.T) {
	h := startServer(t)
	c := dial(t, h.addr, ClientMessage{PlayerID: "bob"})
	first := c.until(ofType(MsgState))

	c.send(ClientMessage{Type: MsgAction, Index: 0, Seq: first.State.Seq + 7})
	stale := c.until(ofType(MsgError))
	assert.Equal(t, "stale", stale.Code)

	c.send(ClientMessage{Type: MsgAction, Index: 99})
	bad := c.until(ofType(MsgError))
	assert.Equal(t, "bad_index", bad.Code)

	c.send(ClientMessage{Type: "dance"})
	unknown := c.until(ofType(MsgError))
	assert.Contains(t, unknown.Error, "dance")

	c.send(ClientMessage{Type: MsgLook})
	again := c.until(ofType(MsgState))
	assert.Equal(t, first.State.Seq, again.State.Seq)
}

func TestServerRejectsUnknownDeck(t *testing.T) {
	h := startServer(t)
	c := dial(t, h.addr, ClientMessage{PlayerID: "carol", DeckNumber: 9})
	msg := c.until(ofType(MsgError))
	assert.Contains(t, msg.Error, "deck 9")
}
