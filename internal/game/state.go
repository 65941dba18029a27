package game

import (
	"encoding/json"
	"fmt"

	"github.com/peterkuimelis/duelcore/internal/log"
)

const (
	StartingLP      = 8000
	InitialHandSize = 5
	MaxHandSize     = 6
	BoardZoneCount  = 5
	SpellTrapCount  = 5
)

// BoardCard is a monster occupying one of a player's board slots.
type BoardCard struct {
	CardID                     string   `json:"cardId"`
	Position                   Position `json:"position"`
	Attack                     int      `json:"attack"`
	Defense                    int      `json:"defense"`
	IsFaceDown                 bool     `json:"isFaceDown"`
	HasAttacked                bool     `json:"hasAttacked"`
	HasChangedPosition         bool     `json:"hasChangedPosition"`
	TurnSummoned               int      `json:"turnSummoned"`
	CannotBeDestroyedByBattle  bool     `json:"cannotBeDestroyedByBattle,omitempty"`
	CannotBeDestroyedByEffects bool     `json:"cannotBeDestroyedByEffects,omitempty"`
	CannotBeTargeted           bool     `json:"cannotBeTargeted,omitempty"`
	EquippedCards              []string `json:"equippedCards,omitempty"`
	IsToken                    bool     `json:"isToken,omitempty"`
}

// SpellTrapSlot is a spell or trap occupying a spell/trap zone or the field-spell slot.
type SpellTrapSlot struct {
	CardID      string `json:"cardId"`
	IsFaceDown  bool   `json:"isFaceDown"`
	IsActivated bool   `json:"isActivated"`
	TurnSet     int    `json:"turnSet"`
	EquippedTo  string `json:"equippedTo,omitempty"`
}

// PlayerZones is one player's entire side of the match.
type PlayerZones struct {
	PlayerID               string          `json:"playerId"`
	IsComputer             bool            `json:"isComputer,omitempty"`
	Difficulty             Difficulty      `json:"difficulty,omitempty"`
	Hand                   []string        `json:"hand"`
	Deck                   []string        `json:"deck"` // top of deck is the last element
	Board                  []BoardCard     `json:"board"`
	Graveyard              []string        `json:"graveyard"`
	Banished               []string        `json:"banished"`
	SpellTrapZone          []SpellTrapSlot `json:"spellTrapZone"`
	FieldSpell             *SpellTrapSlot  `json:"fieldSpell,omitempty"`
	LifePoints             int             `json:"lifePoints"`
	NormalSummonedThisTurn bool            `json:"normalSummonedThisTurn"`
	BreakdownCount         int             `json:"breakdownCount,omitempty"`
	DeckedOut              bool            `json:"deckedOut,omitempty"`
}

// BoardIndex returns the board slot index of cardID, or -1.
func (p *PlayerZones) BoardIndex(cardID string) int {
	for i := range p.Board {
		if p.Board[i].CardID == cardID {
			return i
		}
	}
	return -1
}

// BoardCard returns the board card with the given id, or nil.
func (p *PlayerZones) BoardCard(cardID string) *BoardCard {
	if i := p.BoardIndex(cardID); i >= 0 {
		return &p.Board[i]
	}
	return nil
}

// SpellTrapIndex returns the spell/trap slot index of cardID, or -1.
func (p *PlayerZones) SpellTrapIndex(cardID string) int {
	for i := range p.SpellTrapZone {
		if p.SpellTrapZone[i].CardID == cardID {
			return i
		}
	}
	return -1
}

// SpellTrap returns the spell/trap slot holding cardID (including the field-spell slot), or nil.
func (p *PlayerZones) SpellTrap(cardID string) *SpellTrapSlot {
	if i := p.SpellTrapIndex(cardID); i >= 0 {
		return &p.SpellTrapZone[i]
	}
	if p.FieldSpell != nil && p.FieldSpell.CardID == cardID {
		return p.FieldSpell
	}
	return nil
}

// HasBoardSpace reports whether another monster fits on the board.
func (p *PlayerZones) HasBoardSpace() bool {
	return len(p.Board) < BoardZoneCount
}

// HasSpellTrapSpace reports whether another spell/trap fits in the zone.
func (p *PlayerZones) HasSpellTrapSpace() bool {
	return len(p.SpellTrapZone) < SpellTrapCount
}

// HandIndex returns the position of cardID in hand, or -1.
func (p *PlayerZones) HandIndex(cardID string) int {
	return indexOf(p.Hand, cardID)
}

// SegocQueueItem is one trigger waiting in the simultaneous-effects queue.
type SegocQueueItem struct {
	CardID      string      `json:"cardId"`
	PlayerID    string      `json:"playerId"`
	Trigger     TriggerKind `json:"trigger"`
	EffectIndex int         `json:"effectIndex"`
	IsOptional  bool        `json:"isOptional"`
	SegocOrder  int         `json:"segocOrder"`
	AddedAt     int         `json:"addedAt"`
	Zone        ZoneType    `json:"zone"`
}

// PendingOptionalTrigger awaits an accept/skip decision from its controller.
type PendingOptionalTrigger struct {
	CardID      string      `json:"cardId"`
	PlayerID    string      `json:"playerId"`
	Trigger     TriggerKind `json:"trigger"`
	EffectIndex int         `json:"effectIndex"`
	Turn        int         `json:"turn"`
	AddedAt     int         `json:"addedAt"`
	Zone        ZoneType    `json:"zone"`
}

// PendingAction is a declared attack that has not reached damage calculation.
type PendingAction struct {
	Type           string `json:"type"`
	PlayerID       string `json:"playerId"`
	AttackerID     string `json:"attackerId"`
	TargetID       string `json:"targetId,omitempty"`
	DefenderCount  int    `json:"defenderCount"`
	AwaitingReplay bool   `json:"awaitingReplay,omitempty"`
	Negated        bool   `json:"negated,omitempty"`
	DeclaredTurn   int    `json:"declaredTurn"`
}

// IsDirect reports whether the pending attack targets the player.
func (a *PendingAction) IsDirect() bool {
	return a.TargetID == ""
}

// ResponseWindow records who currently holds priority to respond.
type ResponseWindow struct {
	Type     WindowType `json:"type"`
	Holder   PlayerSide `json:"holder"`
	Passes   int        `json:"passes"`
	OpenedBy PlayerSide `json:"openedBy"`
}

// ChainLink is one activated effect awaiting resolution.
type ChainLink struct {
	CardID      string     `json:"cardId"`
	PlayerID    string     `json:"playerId"`
	EffectIndex int        `json:"effectIndex"`
	Targets     []string   `json:"targets,omitempty"`
	SpellSpeed  SpellSpeed `json:"spellSpeed"`
	Negated     bool       `json:"negated,omitempty"`
}

// TemporaryModifier is a per-card stat change that expires with the turn.
type TemporaryModifier struct {
	CardID         string `json:"cardId"`
	AtkBonus       int    `json:"atkBonus"`
	DefBonus       int    `json:"defBonus"`
	ExpiresAtTurn  int    `json:"expiresAtTurn"`
	ExpiresAtPhase Phase  `json:"expiresAtPhase,omitempty"`
}

// LingeringEffect is a side-wide stat change that also applies to monsters
// arriving after it was created.
type LingeringEffect struct {
	SourceCardID  string `json:"sourceCardId"`
	PlayerID      string `json:"playerId"`
	AtkBonus      int    `json:"atkBonus"`
	DefBonus      int    `json:"defBonus"`
	ExpiresAtTurn int    `json:"expiresAtTurn"`
}

// --- GameState ---

// GameState is the authoritative snapshot of one match.
type GameState struct {
	MatchID             string                 `json:"matchId"`
	Status              GameStatus             `json:"status"`
	WinnerID            string                 `json:"winnerId,omitempty"`
	EndReason           string                 `json:"endReason,omitempty"`
	Host                *PlayerZones           `json:"host"`
	Opponent            *PlayerZones           `json:"opponent"`
	CurrentPhase        Phase                  `json:"currentPhase"`
	TurnNumber          int                    `json:"turnNumber"`
	CurrentTurnPlayerID string                 `json:"currentTurnPlayerId"`
	Instances           map[string]string      `json:"instances"` // instance id -> definition id
	Tokens              map[string]*Definition `json:"tokens,omitempty"`

	SegocQueue              []SegocQueueItem         `json:"segocQueue,omitempty"`
	PendingAction           *PendingAction           `json:"pendingAction,omitempty"`
	ResponseWindow          *ResponseWindow          `json:"responseWindow,omitempty"`
	Chain                   []ChainLink              `json:"chain,omitempty"`
	PendingOptionalTriggers []PendingOptionalTrigger `json:"pendingOptionalTriggers,omitempty"`
	SkippedOptionalTriggers []string                 `json:"skippedOptionalTriggers,omitempty"`
	TemporaryModifiers      []TemporaryModifier      `json:"temporaryModifiers,omitempty"`
	LingeringEffects        []LingeringEffect        `json:"lingeringEffects,omitempty"`
	EffectUsage             []string                 `json:"effectUsage,omitempty"`

	Seq      int `json:"seq"`
	EventSeq int `json:"eventSeq"`

	triggerDepth int

	// Outbox collects events produced by the current mutation. It is never
	// persisted; the caller flushes it after a successful commit.
	Outbox []log.GameEvent `json:"-"`
}

// Side returns the zones for the given seat.
func (gs *GameState) Side(side PlayerSide) *PlayerZones {
	if side == SideHost {
		return gs.Host
	}
	return gs.Opponent
}

// SideOf maps a player id to its seat.
func (gs *GameState) SideOf(playerID string) (PlayerSide, error) {
	switch playerID {
	case gs.Host.PlayerID:
		return SideHost, nil
	case gs.Opponent.PlayerID:
		return SideOpponent, nil
	}
	return SideHost, &IntegrityError{What: "player", ID: playerID}
}

// PlayerID returns the id of the player in the given seat.
func (gs *GameState) PlayerID(side PlayerSide) string {
	return gs.Side(side).PlayerID
}

// TurnSide returns the seat of the turn player.
func (gs *GameState) TurnSide() PlayerSide {
	if gs.CurrentTurnPlayerID == gs.Opponent.PlayerID {
		return SideOpponent
	}
	return SideHost
}

// IsOver reports whether the match has ended.
func (gs *GameState) IsOver() bool {
	return gs.Status == StatusCompleted
}

// NextSeq returns a fresh monotonic sequence number.
func (gs *GameState) NextSeq() int {
	gs.Seq++
	return gs.Seq
}

// DefinitionID returns the definition id behind an instance id.
func (gs *GameState) DefinitionID(cardID string) (string, bool) {
	id, ok := gs.Instances[cardID]
	return id, ok
}

// Clone returns a deep copy of the state without the outbox.
func (gs *GameState) Clone() (*GameState, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("clone state: %w", err)
	}
	var out GameState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone state: %w", err)
	}
	return &out, nil
}

// endGame marks the match completed.
func (gs *GameState) endGame(winner string, reason string) {
	gs.Status = StatusCompleted
	gs.WinnerID = winner
	gs.EndReason = reason
	gs.ResponseWindow = nil
	gs.PendingAction = nil
	gs.SegocQueue = nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeAt(ids []string, i int) []string {
	return append(ids[:i:i], ids[i+1:]...)
}

func removeID(ids []string, id string) ([]string, bool) {
	if i := indexOf(ids, id); i >= 0 {
		return removeAt(ids, i), true
	}
	return ids, false
}
