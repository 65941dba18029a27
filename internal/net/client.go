package net

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

// Client connects to a game server and provides a terminal REPL.
type Client struct {
	conn net.Conn
	in   *bufio.Reader
	out  io.Writer
}

func NewClient(conn net.Conn, in io.Reader, out io.Writer) *Client {
	return &Client{conn: conn, in: bufio.NewReader(in), out: out}
}

// Connect dials addr, sends the join message and runs the REPL on in/out.
func Connect(ctx context.Context, addr string, join ClientMessage, in io.Reader, out io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	join.Type = MsgJoin
	if err := json.NewEncoder(conn).Encode(join); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	fmt.Fprintln(out, "Connected! Waiting for game to start...")
	return NewClient(conn, in, out).RunREPL(ctx)
}

// RunREPL reads server messages and handles them interactively. It returns
// nil when the match ends.
func (c *Client) RunREPL(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()
	dec := json.NewDecoder(c.conn)
	enc := json.NewEncoder(c.conn)

	for {
		var msg ServerMessage
		if err := dec.Decode(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		switch msg.Type {
		case MsgJoined:
			fmt.Fprintf(c.out, "Match %s (you are %s)\n", msg.MatchID, msg.PlayerID)

		case MsgEvent:
			c.renderEvent(msg.Event)

		case MsgError:
			fmt.Fprintf(c.out, "! %s\n", msg.Error)

		case MsgState:
			c.renderState(msg.State)
			if len(msg.Actions) == 0 {
				fmt.Fprintln(c.out, "Waiting for opponent...")
				continue
			}
			c.renderActions(msg.Actions)
			idx, err := c.readChoice(len(msg.Actions))
			if err != nil {
				return err
			}
			if err := enc.Encode(ClientMessage{Type: MsgAction, Index: idx, Seq: msg.State.Seq}); err != nil {
				return fmt.Errorf("send action: %w", err)
			}

		case MsgGameOver:
			c.renderState(msg.State)
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			fmt.Fprintln(c.out, "          GAME OVER")
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			fmt.Fprintf(c.out, "Winner: %s (%s)\n", msg.Winner, msg.Result)
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			return nil
		}
	}
}

func (c *Client) renderEvent(ev *EventView) {
	if ev == nil {
		return
	}
	phase := ev.Phase
	for len(phase) < 8 {
		phase += " "
	}
	fmt.Fprintf(c.out, "T%-2d %s| %s\n", ev.Turn, phase, ev.Details)
}

func (c *Client) renderState(sv *StateView) {
	if sv == nil {
		return
	}
	w := c.out

	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════╗")

	opp := sv.Opponent
	fmt.Fprintf(w, "║  OPPONENT (LP: %d)  Hand: %d  Deck: %d  Graveyard: %d\n",
		opp.LP, opp.HandCount, opp.DeckCount, opp.GraveyardCount)
	fmt.Fprintf(w, "║  Monsters: %s\n", formatZones(opp.Board, formatBoardZone))
	fmt.Fprintf(w, "║  S/T:      %s\n", formatZones(opp.SpellTraps, formatSpellTrapZone))
	if opp.FieldSpell != nil {
		fmt.Fprintf(w, "║  Field:    %s\n", formatSpellTrapZone(*opp.FieldSpell))
	}

	fmt.Fprintln(w, "║──────────────────────────────────────────────────────")

	you := sv.You
	if you.FieldSpell != nil {
		fmt.Fprintf(w, "║  Field:    %s\n", formatSpellTrapZone(*you.FieldSpell))
	}
	fmt.Fprintf(w, "║  S/T:      %s\n", formatZones(you.SpellTraps, formatSpellTrapZone))
	fmt.Fprintf(w, "║  Monsters: %s\n", formatZones(you.Board, formatBoardZone))
	fmt.Fprintf(w, "║  YOU (LP: %d)  Hand: %d  Deck: %d  Graveyard: %d\n",
		you.LP, you.HandCount, you.DeckCount, you.GraveyardCount)
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════╝")

	turnInfo := fmt.Sprintf("Turn %d | %s", sv.Turn, sv.Phase)
	if sv.IsYourTurn {
		turnInfo += " | Your turn"
	} else {
		turnInfo += " | Opponent's turn"
	}
	if sv.ChainLen > 0 {
		turnInfo += fmt.Sprintf(" | Chain: %d", sv.ChainLen)
	}
	fmt.Fprintln(w, turnInfo)

	if len(you.Hand) > 0 {
		fmt.Fprintf(w, "\nHand: ")
		for i, cv := range you.Hand {
			fmt.Fprintf(w, "[%d] %s  ", i+1, cv.Name)
		}
		fmt.Fprintln(w)
	}
}

func formatZones(zones []ZoneView, format func(ZoneView) string) string {
	if len(zones) == 0 {
		return "-"
	}
	parts := make([]string, len(zones))
	for i, zv := range zones {
		parts[i] = format(zv)
	}
	return strings.Join(parts, " ")
}

func formatBoardZone(zv ZoneView) string {
	if zv.FaceDown {
		if zv.Name != "" {
			return fmt.Sprintf("[SET:%s]", zv.Name)
		}
		return "[SET]"
	}
	if zv.Position == "ATK" {
		return fmt.Sprintf("[%s ATK/%d]", zv.Name, zv.ATK)
	}
	return fmt.Sprintf("[%s DEF/%d]", zv.Name, zv.DEF)
}

func formatSpellTrapZone(zv ZoneView) string {
	if zv.FaceDown {
		if zv.Name != "" {
			return fmt.Sprintf("[SET:%s]", zv.Name)
		}
		return "[SET]"
	}
	return fmt.Sprintf("[%s]", zv.Name)
}

func (c *Client) renderActions(actions []ActionView) {
	fmt.Fprintln(c.out, "\nActions:")
	for _, a := range actions {
		fmt.Fprintf(c.out, "  %d) %s\n", a.Index+1, a.Desc)
	}
}

// readChoice returns a 0-indexed choice. io.EOF on input ends the REPL.
func (c *Client) readChoice(count int) (int, error) {
	for {
		fmt.Fprint(c.out, "> ")
		line, err := c.in.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return 0, fmt.Errorf("read input: %w", err)
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil || n < 1 || n > count {
			if err != nil {
				return 0, fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintf(c.out, "Enter a number between 1 and %d\n", count)
			continue
		}
		return n - 1, nil
	}
}
