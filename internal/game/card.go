package game

import (
	"errors"
	"fmt"
	"strings"
)

// EffectKind is the closed vocabulary of effect types the executor knows.
type EffectKind int

const (
	EffectUnknown EffectKind = iota
	EffectDraw
	EffectMill
	EffectDiscard
	EffectBanish
	EffectDestroy
	EffectDamage
	EffectGainLP
	EffectModifyATK
	EffectModifyDEF
	EffectSummon
	EffectGenerateToken
	EffectSearch
	EffectReturnToHand
	EffectNegate
	EffectBreakdown
)

var effectKindNames = map[EffectKind]string{
	EffectDraw:          "draw",
	EffectMill:          "mill",
	EffectDiscard:       "discard",
	EffectBanish:        "banish",
	EffectDestroy:       "destroy",
	EffectDamage:        "damage",
	EffectGainLP:        "gainLP",
	EffectModifyATK:     "modifyATK",
	EffectModifyDEF:     "modifyDEF",
	EffectSummon:        "summon",
	EffectGenerateToken: "generateToken",
	EffectSearch:        "search",
	EffectReturnToHand:  "returnToHand",
	EffectNegate:        "negate",
	EffectBreakdown:     "breakdown",
}

// AllEffectKinds lists every known kind in declaration order.
func AllEffectKinds() []EffectKind {
	kinds := make([]EffectKind, 0, len(effectKindNames))
	for k := EffectDraw; k <= EffectBreakdown; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k EffectKind) String() string {
	if name, ok := effectKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// ParseEffectKind maps a card-data type name to its kind. Unknown names are
// configuration errors.
func ParseEffectKind(s string) (EffectKind, error) {
	for k, name := range effectKindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return EffectUnknown, fmt.Errorf("%w: unknown effect type %q", ErrIntegrity, s)
}

func (k EffectKind) MarshalText() ([]byte, error) {
	if k == EffectUnknown {
		return nil, fmt.Errorf("cannot marshal unknown effect kind")
	}
	return []byte(k.String()), nil
}

func (k *EffectKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEffectKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TriggerKind says when an effect fires.
type TriggerKind string

const (
	TriggerManual           TriggerKind = "manual"
	TriggerContinuous       TriggerKind = "continuous"
	TriggerOnSummon         TriggerKind = "on_summon"
	TriggerOnFlip           TriggerKind = "on_flip"
	TriggerOnDestroy        TriggerKind = "on_destroy"
	TriggerOnBattleAttacked TriggerKind = "on_battle_attacked"
	TriggerOnBattleDestroy  TriggerKind = "on_battle_destroy"
	TriggerOnBattleDamage   TriggerKind = "on_battle_damage"
	TriggerOnOpponentSummon TriggerKind = "on_opponent_summon"
	TriggerOnDraw           TriggerKind = "on_draw"
	TriggerOnStandby        TriggerKind = "on_standby"
	TriggerOnEnd            TriggerKind = "on_end"
)

func (t TriggerKind) valid() bool {
	switch t {
	case TriggerManual, TriggerContinuous, TriggerOnSummon, TriggerOnFlip, TriggerOnDestroy,
		TriggerOnBattleAttacked, TriggerOnBattleDestroy, TriggerOnBattleDamage,
		TriggerOnOpponentSummon, TriggerOnDraw, TriggerOnStandby, TriggerOnEnd:
		return true
	}
	return false
}

// selfTriggered triggers only fire for the card the event happened to.
func (t TriggerKind) selfTriggered() bool {
	switch t {
	case TriggerOnSummon, TriggerOnFlip, TriggerOnDestroy,
		TriggerOnBattleAttacked, TriggerOnBattleDestroy, TriggerOnBattleDamage:
		return true
	}
	return false
}

type TargetOwner string

const (
	OwnerUnspecified TargetOwner = ""
	OwnerSelf        TargetOwner = "self"
	OwnerOpponent    TargetOwner = "opponent"
	OwnerAny         TargetOwner = "any"
)

type ConditionKind string

const (
	CondAlways               ConditionKind = ""
	CondOpponentAttacking    ConditionKind = "opponent_attacking"
	CondOpponentNoMonsters   ConditionKind = "opponent_no_monsters"
	CondOpponentNoSpellTraps ConditionKind = "opponent_no_spell_traps"
	CondControllerLPBelow    ConditionKind = "controller_lp_below"
	CondChainActive          ConditionKind = "chain_active"
	CondAttackAtMost         ConditionKind = "attack_at_most"
)

// Condition gates an effect or a keyword.
type Condition struct {
	Kind  ConditionKind `yaml:"kind" json:"kind,omitempty"`
	Value int           `yaml:"value" json:"value,omitempty"`
}

// Duration turns a stat change into a temporary or lingering modifier.
type Duration struct {
	Turns     int   `yaml:"turns" json:"turns,omitempty"`
	Phase     Phase `yaml:"phase" json:"phase,omitempty"`
	Lingering bool  `yaml:"lingering" json:"lingering,omitempty"`
}

// TokenSpec describes the monster an effect generates.
type TokenSpec struct {
	Name    string `yaml:"name" json:"name"`
	Attack  int    `yaml:"attack" json:"attack"`
	Defense int    `yaml:"defense" json:"defense"`
	Defend  bool   `yaml:"defensePosition" json:"defensePosition,omitempty"`
}

// ParsedEffect is one already-parsed effect of a card. Immutable once loaded.
type ParsedEffect struct {
	Kind            EffectKind  `yaml:"type" json:"type"`
	Trigger         TriggerKind `yaml:"trigger" json:"trigger"`
	Value           int         `yaml:"value" json:"value,omitempty"`
	TargetCount     int         `yaml:"targetCount" json:"targetCount,omitempty"`
	TargetOwner     TargetOwner `yaml:"targetOwner" json:"targetOwner,omitempty"`
	TargetLocation  ZoneType    `yaml:"targetLocation" json:"targetLocation,omitempty"`
	TargetType      string      `yaml:"targetType" json:"targetType,omitempty"`
	All             bool        `yaml:"all" json:"all,omitempty"`
	Condition       Condition   `yaml:"condition" json:"condition,omitempty"`
	Duration        *Duration   `yaml:"duration" json:"duration,omitempty"`
	Token           *TokenSpec  `yaml:"token" json:"token,omitempty"`
	IsOptional      bool        `yaml:"isOptional" json:"isOptional,omitempty"`
	IsMandatory     bool        `yaml:"isMandatory" json:"isMandatory,omitempty"`
	OncePerTurn     bool        `yaml:"oncePerTurn" json:"oncePerTurn,omitempty"`
	HardOncePerTurn bool        `yaml:"hardOncePerTurn" json:"hardOncePerTurn,omitempty"`
}

// Mandatory reports whether the effect must fire when triggered.
func (e ParsedEffect) Mandatory() bool {
	if e.IsMandatory {
		return true
	}
	return !e.IsOptional
}

// ParsedAbility groups a card's effects and passive keywords.
type ParsedAbility struct {
	Name                       string         `yaml:"name" json:"name,omitempty"`
	Effects                    []ParsedEffect `yaml:"effects" json:"effects,omitempty"`
	Piercing                   bool           `yaml:"piercing" json:"piercing,omitempty"`
	DirectAttack               *Condition     `yaml:"directAttack" json:"directAttack,omitempty"`
	CannotBeDestroyedByBattle  bool           `yaml:"cannotBeDestroyedByBattle" json:"cannotBeDestroyedByBattle,omitempty"`
	CannotBeDestroyedByEffects bool           `yaml:"cannotBeDestroyedByEffects" json:"cannotBeDestroyedByEffects,omitempty"`
	CannotBeTargeted           bool           `yaml:"cannotBeTargeted" json:"cannotBeTargeted,omitempty"`
}

// Definition is the static, catalog-side description of a card.
type Definition struct {
	ID        string        `yaml:"id" json:"id"`
	Name      string        `yaml:"name" json:"name"`
	CardType  CardType      `yaml:"cardType" json:"cardType"`
	SpellType SpellType     `yaml:"spellType" json:"spellType,omitempty"`
	TrapType  TrapType      `yaml:"trapType" json:"trapType,omitempty"`
	Archetype string        `yaml:"archetype" json:"archetype,omitempty"`
	Attack    int           `yaml:"attack" json:"attack,omitempty"`
	Defense   int           `yaml:"defense" json:"defense,omitempty"`
	Level     int           `yaml:"level" json:"level,omitempty"`
	Cost      int           `yaml:"cost" json:"cost,omitempty"`
	IsToken   bool          `yaml:"isToken" json:"isToken,omitempty"`
	Ability   ParsedAbility `yaml:"ability" json:"ability"`
}

func (d *Definition) String() string {
	return d.Name
}

// TributesRequired returns the number of tributes needed to normal summon or set this monster.
func (d *Definition) TributesRequired() int {
	level := d.Level
	if level == 0 {
		level = d.Cost
	}
	if level <= 4 {
		return 0
	}
	if level <= 6 {
		return 1
	}
	return 2
}

// SpellSpeed derives the speed of this card's activations.
func (d *Definition) SpellSpeed() SpellSpeed {
	switch d.CardType {
	case CardTypeSpell:
		if d.SpellType == SpellQuickPlay {
			return SpellSpeed2
		}
		return SpellSpeed1
	case CardTypeTrap:
		if d.TrapType == TrapCounter {
			return SpellSpeed3
		}
		return SpellSpeed2
	default:
		return SpellSpeed1
	}
}

// StaysOnField reports whether a resolved spell/trap remains in its zone.
func (d *Definition) StaysOnField() bool {
	switch d.CardType {
	case CardTypeSpell:
		return d.SpellType == SpellContinuous || d.SpellType == SpellEquip || d.SpellType == SpellField
	case CardTypeTrap:
		return d.TrapType == TrapContinuous
	}
	return false
}

// Matches reports whether the definition satisfies a targetType filter. The
// filter is a card type, an archetype, or a name fragment.
func (d *Definition) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	switch CardType(filter) {
	case CardTypeMonster, CardTypeSpell, CardTypeTrap:
		return d.CardType == CardType(filter)
	}
	if strings.EqualFold(d.Archetype, filter) {
		return true
	}
	return strings.Contains(strings.ToLower(d.Name), strings.ToLower(filter))
}

// Validate checks the definition for malformed data.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("missing name"))
	}
	switch d.CardType {
	case CardTypeMonster:
		if d.Level < 1 && d.Cost < 1 && !d.IsToken {
			errs = append(errs, errors.New("monster needs a level"))
		}
	case CardTypeSpell:
		switch d.SpellType {
		case SpellNormal, SpellQuickPlay, SpellContinuous, SpellEquip, SpellField:
		default:
			errs = append(errs, fmt.Errorf("bad spellType %q", d.SpellType))
		}
	case CardTypeTrap:
		switch d.TrapType {
		case TrapNormal, TrapContinuous, TrapCounter:
		default:
			errs = append(errs, fmt.Errorf("bad trapType %q", d.TrapType))
		}
	default:
		errs = append(errs, fmt.Errorf("bad cardType %q", d.CardType))
	}
	for i, eff := range d.Ability.Effects {
		if _, ok := effectKindNames[eff.Kind]; !ok {
			errs = append(errs, fmt.Errorf("effect %d: unknown type", i))
		}
		if !eff.Trigger.valid() {
			errs = append(errs, fmt.Errorf("effect %d: unknown trigger %q", i, eff.Trigger))
		}
		if eff.Trigger == TriggerContinuous && eff.Kind != EffectModifyATK && eff.Kind != EffectModifyDEF {
			errs = append(errs, fmt.Errorf("effect %d: continuous effects must modify stats", i))
		}
		if eff.Kind == EffectGenerateToken && eff.Token == nil {
			errs = append(errs, fmt.Errorf("effect %d: generateToken needs a token", i))
		}
		if eff.IsOptional && eff.IsMandatory {
			errs = append(errs, fmt.Errorf("effect %d: both optional and mandatory", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("card %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// Catalog resolves definition ids to immutable card definitions.
type Catalog interface {
	Definition(id string) (*Definition, bool)
}

// MapCatalog is a Catalog backed by a map.
type MapCatalog map[string]*Definition

func (m MapCatalog) Definition(id string) (*Definition, bool) {
	d, ok := m[id]
	return d, ok
}

// Add registers definitions by id.
func (m MapCatalog) Add(defs ...*Definition) MapCatalog {
	for _, d := range defs {
		m[d.ID] = d
	}
	return m
}
