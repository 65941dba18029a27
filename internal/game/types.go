package game

import "fmt"

// --- Enums ---

// PlayerSide names one of the two seats of a match.
type PlayerSide int

const (
	SideHost PlayerSide = iota
	SideOpponent
)

// Other returns the opposite side.
func (s PlayerSide) Other() PlayerSide {
	if s == SideHost {
		return SideOpponent
	}
	return SideHost
}

func (s PlayerSide) String() string {
	if s == SideHost {
		return "host"
	}
	return "opponent"
}

// Sides lists both seats, host first.
var Sides = [2]PlayerSide{SideHost, SideOpponent}

type Phase string

const (
	PhaseDraw    Phase = "draw"
	PhaseStandby Phase = "standby"
	PhaseMain1   Phase = "main1"
	PhaseBattle  Phase = "battle"
	PhaseMain2   Phase = "main2"
	PhaseEnd     Phase = "end"
)

// IsMain reports whether p is one of the two main phases.
func (p Phase) IsMain() bool {
	return p == PhaseMain1 || p == PhaseMain2
}

func (p Phase) String() string {
	switch p {
	case PhaseDraw:
		return "Draw Phase"
	case PhaseStandby:
		return "Standby Phase"
	case PhaseMain1:
		return "Main Phase 1"
	case PhaseBattle:
		return "Battle Phase"
	case PhaseMain2:
		return "Main Phase 2"
	case PhaseEnd:
		return "End Phase"
	default:
		return "None"
	}
}

type Position int

const (
	PositionAttack  Position = 1
	PositionDefense Position = -1
)

func (p Position) String() string {
	if p == PositionAttack {
		return "ATK"
	}
	return "DEF"
}

type CardType string

const (
	CardTypeMonster CardType = "monster"
	CardTypeSpell   CardType = "spell"
	CardTypeTrap    CardType = "trap"
)

type SpellType string

const (
	SpellNormal     SpellType = "normal"
	SpellQuickPlay  SpellType = "quick_play"
	SpellContinuous SpellType = "continuous"
	SpellEquip      SpellType = "equip"
	SpellField      SpellType = "field"
)

type TrapType string

const (
	TrapNormal     TrapType = "normal"
	TrapContinuous TrapType = "continuous"
	TrapCounter    TrapType = "counter"
)

// SpellSpeed orders chain responses.
type SpellSpeed int

const (
	SpellSpeed1 SpellSpeed = 1
	SpellSpeed2 SpellSpeed = 2
	SpellSpeed3 SpellSpeed = 3
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyBoss   Difficulty = "boss"
)

// ParseDifficulty validates a difficulty tier name.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyBoss:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// --- Zone types ---

type ZoneType string

const (
	ZoneNone       ZoneType = ""
	ZoneDeck       ZoneType = "deck"
	ZoneHand       ZoneType = "hand"
	ZoneBoard      ZoneType = "board"
	ZoneSpellTrap  ZoneType = "spellTrapZone"
	ZoneFieldSpell ZoneType = "fieldSpell"
	ZoneGraveyard  ZoneType = "graveyard"
	ZoneBanished   ZoneType = "banished"
)

// IsField reports whether the zone is on the field.
func (z ZoneType) IsField() bool {
	return z == ZoneBoard || z == ZoneSpellTrap || z == ZoneFieldSpell
}

// --- Windows and pending decisions ---

type WindowType string

const (
	WindowChain  WindowType = "chain"
	WindowAttack WindowType = "attack_declaration"
	WindowSummon WindowType = "summon"
)

type GameStatus string

const (
	StatusActive    GameStatus = "active"
	StatusCompleted GameStatus = "completed"
)
