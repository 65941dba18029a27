package log

// EventType enumerates all spectator-visible game events.
type EventType int

const (
	EventTurnStart EventType = iota
	EventPhaseChange
	EventDraw
	EventNormalSummon
	EventTributeSummon
	EventFlipSummon
	EventSpecialSummon
	EventSetMonster
	EventSetSpellTrap
	EventChangePosition
	EventAttackDeclare
	EventDirectAttack
	EventDamageCalc
	EventBattleDestroy
	EventReplay
	EventAttackInvalidated
	EventActivate
	EventChainLink
	EventChainResolve
	EventNegate
	EventDestroy
	EventSendToGraveyard
	EventBanish
	EventAddToHand
	EventDiscard
	EventMill
	EventLPChange
	EventStatChange
	EventTokenCreated
	EventTokenRemoved
	EventEquipDetached
	EventFieldSpellReplaced
	EventTriggerQueued
	EventTriggerSkipped
	EventTriggerAbandoned
	EventHandLimitEnforced
	EventBreakdown
	EventSBACapReached
	EventDeckOut
	EventGameEnd
	EventForcedTurnEnd
)

func (e EventType) String() string {
	switch e {
	case EventTurnStart:
		return "turn_start"
	case EventPhaseChange:
		return "phase_change"
	case EventDraw:
		return "draw"
	case EventNormalSummon:
		return "normal_summon"
	case EventTributeSummon:
		return "tribute_summon"
	case EventFlipSummon:
		return "flip_summon"
	case EventSpecialSummon:
		return "special_summon"
	case EventSetMonster:
		return "set_monster"
	case EventSetSpellTrap:
		return "set_spell_trap"
	case EventChangePosition:
		return "change_position"
	case EventAttackDeclare:
		return "attack_declared"
	case EventDirectAttack:
		return "direct_attack"
	case EventDamageCalc:
		return "damage_calculation"
	case EventBattleDestroy:
		return "battle_destroy"
	case EventReplay:
		return "battle_replay"
	case EventAttackInvalidated:
		return "attack_invalidated"
	case EventActivate:
		return "activate"
	case EventChainLink:
		return "chain_link"
	case EventChainResolve:
		return "chain_resolve"
	case EventNegate:
		return "negate"
	case EventDestroy:
		return "destroy"
	case EventSendToGraveyard:
		return "send_to_graveyard"
	case EventBanish:
		return "banish"
	case EventAddToHand:
		return "add_to_hand"
	case EventDiscard:
		return "discard"
	case EventMill:
		return "mill"
	case EventLPChange:
		return "lp_change"
	case EventStatChange:
		return "stat_change"
	case EventTokenCreated:
		return "token_created"
	case EventTokenRemoved:
		return "token_removed"
	case EventEquipDetached:
		return "equip_detached"
	case EventFieldSpellReplaced:
		return "field_spell_replaced"
	case EventTriggerQueued:
		return "trigger_queued"
	case EventTriggerSkipped:
		return "trigger_skipped"
	case EventTriggerAbandoned:
		return "trigger_abandoned"
	case EventHandLimitEnforced:
		return "hand_limit_enforced"
	case EventBreakdown:
		return "breakdown"
	case EventSBACapReached:
		return "sba_cap_reached"
	case EventDeckOut:
		return "deck_out"
	case EventGameEnd:
		return "game_end"
	case EventForcedTurnEnd:
		return "forced_turn_end"
	default:
		return "unknown"
	}
}

// MarshalText lets events serialize their type by name.
func (e EventType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// GameEvent represents a single spectator-visible event in a match.
type GameEvent struct {
	ID       string            `json:"id,omitempty"`
	Seq      int               `json:"seq"`
	MatchID  string            `json:"matchId"`
	Turn     int               `json:"turnNumber"`
	Phase    string            `json:"phase,omitempty"`
	PlayerID string            `json:"playerId,omitempty"`
	Type     EventType         `json:"eventType"`
	Card     string            `json:"card,omitempty"`
	Details  string            `json:"description"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
