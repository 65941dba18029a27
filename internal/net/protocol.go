package net

// Message types for the newline-delimited JSON protocol over TCP.

// --- Server → Client messages ---

const (
	MsgJoined   = "joined"
	MsgState    = "state"
	MsgEvent    = "event"
	MsgError    = "error"
	MsgGameOver = "game_over"
)

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type string `json:"type"`

	// For "joined"
	MatchID  string `json:"match_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`

	// For "event"
	Event *EventView `json:"event,omitempty"`

	// For "state"
	State   *StateView   `json:"state,omitempty"`
	Actions []ActionView `json:"actions,omitempty"`

	// For "error"
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`

	// For "game_over"
	Winner string `json:"winner,omitempty"`
	Result string `json:"result,omitempty"`
}

// EventView is a simplified game event for the client.
type EventView struct {
	Seq      int    `json:"seq"`
	Turn     int    `json:"turn"`
	Phase    string `json:"phase"`
	PlayerID string `json:"player_id,omitempty"`
	Type     string `json:"type"`
	Card     string `json:"card,omitempty"`
	Details  string `json:"details"`
}

// ActionView is a numbered action choice.
type ActionView struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Desc  string `json:"desc"`
}

// CardView describes a card in hand.
type CardView struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	ATK  int    `json:"atk,omitempty"`
	DEF  int    `json:"def,omitempty"`
}

// StateView is the match from one player's perspective.
type StateView struct {
	MatchID    string     `json:"match_id"`
	Seq        int        `json:"seq"`
	You        PlayerView `json:"you"`
	Opponent   PlayerView `json:"opponent"`
	Turn       int        `json:"turn"`
	Phase      string     `json:"phase"`
	IsYourTurn bool       `json:"is_your_turn"`
	ChainLen   int        `json:"chain_len,omitempty"`
	Waiting    string     `json:"waiting,omitempty"` // what the match is blocked on
	Over       bool       `json:"over,omitempty"`
	Winner     string     `json:"winner,omitempty"`
}

// PlayerView shows one side of the board.
type PlayerView struct {
	PlayerID       string     `json:"player_id"`
	Name           string     `json:"name,omitempty"`
	LP             int        `json:"lp"`
	IsComputer     bool       `json:"is_computer,omitempty"`
	HandCount      int        `json:"hand_count"`
	Hand           []CardView `json:"hand,omitempty"` // only for "you"
	Board          []ZoneView `json:"board"`
	SpellTraps     []ZoneView `json:"spell_traps"`
	FieldSpell     *ZoneView  `json:"field_spell,omitempty"`
	GraveyardCount int        `json:"graveyard_count"`
	BanishedCount  int        `json:"banished_count"`
	DeckCount      int        `json:"deck_count"`
}

// ZoneView describes a single occupied zone on the field.
type ZoneView struct {
	ID       string `json:"id,omitempty"`
	FaceDown bool   `json:"face_down,omitempty"`
	Name     string `json:"name,omitempty"`
	ATK      int    `json:"atk,omitempty"`
	DEF      int    `json:"def,omitempty"`
	Position string `json:"position,omitempty"` // "ATK" or "DEF"
	Attacked bool   `json:"attacked,omitempty"`
}

// --- Client → Server messages ---

const (
	MsgJoin   = "join"
	MsgAction = "action"
	MsgLook   = "look"
)

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string `json:"type"`

	// For "action". Seq echoes the prompt's state.seq; zero skips the check.
	Index int `json:"index,omitempty"`
	Seq   int `json:"seq,omitempty"`

	// For "join" (initial handshake)
	PlayerID   string `json:"player_id,omitempty"`
	DeckNumber int    `json:"deck_number,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}
