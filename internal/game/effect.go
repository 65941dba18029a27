package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// EffectResult is the outcome of applying one effect.
type EffectResult struct {
	Success           bool     `json:"success"`
	Message           string   `json:"message"`
	RequiresSelection bool     `json:"requiresSelection,omitempty"`
	Moved             int      `json:"moved,omitempty"`
	Destroyed         []string `json:"destroyed,omitempty"`
}

func succeeded(format string, args ...any) EffectResult {
	return EffectResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func failed(format string, args ...any) EffectResult {
	return EffectResult{Message: fmt.Sprintf(format, args...)}
}

func selection(kind EffectKind) EffectResult {
	return EffectResult{RequiresSelection: true, Message: fmt.Sprintf("%s needs a target", kind)}
}

// count returns the number of cards an effect handles, at least one.
func count(eff ParsedEffect) int {
	if eff.Value > 0 {
		return eff.Value
	}
	return 1
}

// ExecuteEffect applies exactly one effect for controllerID, sourced from
// sourceID. Targets are instance ids chosen by the controller. Effects that
// need a target and were given none return RequiresSelection without
// changing the state.
func (e *Engine) ExecuteEffect(gs *GameState, eff ParsedEffect, controllerID, sourceID string, targets []string) EffectResult {
	ctl, err := gs.SideOf(controllerID)
	if err != nil {
		return failed("%v", err)
	}
	switch eff.Kind {
	case EffectDraw:
		return e.execDraw(gs, eff, ctl)
	case EffectMill:
		return e.execMill(gs, eff, ctl)
	case EffectDiscard:
		return e.execPileMove(gs, eff, ctl, sourceID, targets, ZoneHand, ZoneGraveyard, log.EventDiscard)
	case EffectBanish:
		return e.execBanish(gs, eff, ctl, sourceID, targets)
	case EffectDestroy:
		return e.execDestroy(gs, eff, ctl, sourceID, targets)
	case EffectDamage:
		side := affectedSides(eff.TargetOwner, ctl, OwnerOpponent)[0]
		dealt := e.applyDamage(gs, side, eff.Value, e.cardName(gs, sourceID))
		return succeeded("dealt %d damage", dealt)
	case EffectGainLP:
		side := affectedSides(eff.TargetOwner, ctl, OwnerSelf)[0]
		gained := e.gainLP(gs, side, eff.Value, e.cardName(gs, sourceID))
		return succeeded("gained %d LP", gained)
	case EffectModifyATK, EffectModifyDEF:
		return e.execModify(gs, eff, ctl, sourceID, targets)
	case EffectSummon:
		return e.execSummon(gs, eff, ctl, sourceID, targets)
	case EffectGenerateToken:
		return e.execToken(gs, eff, ctl)
	case EffectSearch:
		return e.execPileMove(gs, eff, ctl, sourceID, targets, ZoneDeck, ZoneHand, log.EventAddToHand)
	case EffectReturnToHand:
		return e.execReturn(gs, eff, ctl, sourceID, targets)
	case EffectNegate:
		return e.execNegate(gs, ctl)
	case EffectBreakdown:
		side := affectedSides(eff.TargetOwner, ctl, OwnerOpponent)[0]
		p := gs.Side(side)
		p.BreakdownCount += count(eff)
		e.emit(gs, log.EventBreakdown, side, sourceID, "%s breakdown counter is now %d", p.PlayerID, p.BreakdownCount)
		return succeeded("breakdown %d", p.BreakdownCount)
	case EffectUnknown:
	}
	e.logger.Warn("unhandled effect kind",
		zap.String("match_id", gs.MatchID),
		zap.String("card_id", sourceID),
		zap.Stringer("kind", eff.Kind))
	return failed("unhandled effect kind %s", eff.Kind)
}

func (e *Engine) execDraw(gs *GameState, eff ParsedEffect, ctl PlayerSide) EffectResult {
	side := affectedSides(eff.TargetOwner, ctl, OwnerSelf)[0]
	n := e.drawCards(gs, side, count(eff))
	res := succeeded("drew %d of %d", n, count(eff))
	res.Moved = n
	return res
}

func (e *Engine) execMill(gs *GameState, eff ParsedEffect, ctl PlayerSide) EffectResult {
	side := affectedSides(eff.TargetOwner, ctl, OwnerOpponent)[0]
	p := gs.Side(side)
	milled := 0
	for milled < count(eff) && len(p.Deck) > 0 {
		top := p.Deck[len(p.Deck)-1]
		p.Deck = p.Deck[:len(p.Deck)-1]
		p.Graveyard = append(p.Graveyard, top)
		milled++
	}
	if milled > 0 {
		e.emit(gs, log.EventMill, side, "", "%s mills %d card(s)", p.PlayerID, milled)
	}
	res := succeeded("milled %d of %d", milled, count(eff))
	res.Moved = milled
	return res
}

// candidates lists the instance ids an effect may touch in zone on the sides
// selected by the effect's owner, most accessible first.
func (e *Engine) candidates(gs *GameState, eff ParsedEffect, ctl PlayerSide, zone ZoneType, fallback TargetOwner, sourceID string) []string {
	var ids []string
	for _, side := range affectedSides(eff.TargetOwner, ctl, fallback) {
		p := gs.Side(side)
		var pool []string
		switch zone {
		case ZoneBoard:
			for _, bc := range p.Board {
				pool = append(pool, bc.CardID)
			}
		case ZoneSpellTrap, ZoneFieldSpell:
			for _, st := range p.SpellTrapZone {
				pool = append(pool, st.CardID)
			}
			if p.FieldSpell != nil {
				pool = append(pool, p.FieldSpell.CardID)
			}
		case ZoneHand:
			pool = reversed(p.Hand)
		case ZoneDeck:
			pool = reversed(p.Deck)
		case ZoneGraveyard:
			pool = reversed(p.Graveyard)
		case ZoneBanished:
			pool = reversed(p.Banished)
		}
		for _, id := range pool {
			if id == sourceID {
				continue
			}
			if e.def(gs, id).Matches(eff.TargetType) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// TargetCandidates lists the legal choices for an effect that needs a
// selection, as used by players and the AI.
func (e *Engine) TargetCandidates(gs *GameState, eff ParsedEffect, controllerID, sourceID string) []string {
	ctl, err := gs.SideOf(controllerID)
	if err != nil {
		return nil
	}
	zone, fallback := targetZone(eff)
	var out []string
	for _, id := range e.candidates(gs, eff, ctl, zone, fallback, sourceID) {
		if e.targetable(gs, id) {
			out = append(out, id)
		}
	}
	return out
}

// targetZone gives the default zone and owner each kind works on.
func targetZone(eff ParsedEffect) (ZoneType, TargetOwner) {
	zone := eff.TargetLocation
	switch eff.Kind {
	case EffectDestroy, EffectReturnToHand:
		if zone == ZoneNone {
			zone = ZoneBoard
		}
		return zone, OwnerOpponent
	case EffectBanish:
		if zone == ZoneNone {
			zone = ZoneGraveyard
		}
		return zone, OwnerOpponent
	case EffectModifyATK, EffectModifyDEF:
		return ZoneBoard, inferredOwner(eff)
	case EffectSummon:
		if zone == ZoneNone {
			zone = ZoneHand
		}
		return zone, OwnerSelf
	case EffectSearch:
		return ZoneDeck, OwnerSelf
	case EffectDiscard:
		return ZoneHand, OwnerOpponent
	}
	return zone, OwnerSelf
}

// needsSelection reports whether the effect picks specific field cards.
func needsSelection(eff ParsedEffect, zone ZoneType) bool {
	if eff.All || !zone.IsField() {
		return false
	}
	if eff.Kind == EffectModifyATK || eff.Kind == EffectModifyDEF {
		return eff.TargetCount > 0
	}
	return true
}

func (e *Engine) targetable(gs *GameState, cardID string) bool {
	for _, side := range Sides {
		if bc := gs.Side(side).BoardCard(cardID); bc != nil {
			return !bc.CannotBeTargeted
		}
	}
	return true
}

// pick resolves the concrete cards an effect applies to. It never mutates.
func (e *Engine) pick(gs *GameState, eff ParsedEffect, ctl PlayerSide, sourceID string, targets []string) ([]string, EffectResult, bool) {
	zone, fallback := targetZone(eff)
	pool := e.candidates(gs, eff, ctl, zone, fallback, sourceID)
	if len(targets) > 0 {
		limit := eff.TargetCount
		if limit == 0 {
			limit = count(eff)
		}
		if len(targets) > limit {
			return nil, failed("too many targets: %d > %d", len(targets), limit), false
		}
		for _, t := range targets {
			if indexOf(pool, t) < 0 {
				return nil, failed("%s is not a legal target", t), false
			}
			if !e.targetable(gs, t) {
				return nil, failed("%s cannot be targeted", e.cardName(gs, t)), false
			}
		}
		return targets, EffectResult{}, true
	}
	if needsSelection(eff, zone) {
		return nil, selection(eff.Kind), false
	}
	if !eff.All && !zone.IsField() && len(pool) > count(eff) {
		pool = pool[:count(eff)]
	}
	return pool, EffectResult{}, true
}

func (e *Engine) execPileMove(gs *GameState, eff ParsedEffect, ctl PlayerSide, sourceID string, targets []string, from, to ZoneType, t log.EventType) EffectResult {
	eff.TargetLocation = from
	ids, res, good := e.pick(gs, eff, ctl, sourceID, targets)
	if !good {
		return res
	}
	moved := 0
	for _, id := range ids {
		loc, found := gs.Locate(id)
		if !found || loc.Zone != from {
			continue
		}
		if _, err := gs.move(id, to); err != nil {
			return failed("%v", err)
		}
		e.emit(gs, t, loc.Side, id, "%s moved from %s to %s", e.cardName(gs, id), from, to)
		moved++
	}
	res = succeeded("moved %d card(s) to %s", moved, to)
	res.Moved = moved
	return res
}

func (e *Engine) execBanish(gs *GameState, eff ParsedEffect, ctl PlayerSide, sourceID string, targets []string) EffectResult {
	ids, res, good := e.pick(gs, eff, ctl, sourceID, targets)
	if !good {
		return res
	}
	moved := 0
	for _, id := range ids {
		from, err := gs.move(id, ZoneBanished)
		if err != nil {
			return failed("%v", err)
		}
		e.emit(gs, log.EventBanish, from.Side, id, "%s was banished", e.cardName(gs, id))
		moved++
	}
	res = succeeded("banished %d card(s)", moved)
	res.Moved = moved
	return res
}

func (e *Engine) execDestroy(gs *GameState, eff ParsedEffect, ctl PlayerSide, sourceID string, targets []string) EffectResult {
	ids, res, good := e.pick(gs, eff, ctl, sourceID, targets)
	if !good {
		return res
	}
	var destroyed []string
	for _, id := range ids {
		if bc := boardCardAnywhere(gs, id); bc != nil && (bc.CannotBeDestroyedByEffects || bc.CannotBeTargeted) {
			continue
		}
		if err := e.destroyCard(gs, id, false); err != nil {
			return failed("%v", err)
		}
		destroyed = append(destroyed, id)
	}
	for _, id := range destroyed {
		e.fireSelf(gs, id, TriggerOnDestroy)
	}
	res = succeeded("destroyed %d card(s)", len(destroyed))
	res.Destroyed = destroyed
	return res
}

func (e *Engine) execReturn(gs *GameState, eff ParsedEffect, ctl PlayerSide, sourceID string, targets []string) EffectResult {
	ids, res, good := e.pick(gs, eff, ctl, sourceID, targets)
	if !good {
		return res
	}
	for _, id := range ids {
		from, err := gs.move(id, ZoneHand)
		if err != nil {
			return failed("%v", err)
		}
		e.emit(gs, log.EventAddToHand, from.Side, id, "%s returned to hand", e.cardName(gs, id))
	}
	res = succeeded("returned %d card(s)", len(ids))
	res.Moved = len(ids)
	return res
}

func (e *Engine) execModify(gs *GameState, eff ParsedEffect, ctl PlayerSide, sourceID string, targets []string) EffectResult {
	atk, def := eff.Value, 0
	if eff.Kind == EffectModifyDEF {
		atk, def = 0, eff.Value
	}
	if eff.Duration != nil && eff.Duration.Lingering {
		until := gs.TurnNumber + max(eff.Duration.Turns, 1) - 1
		for _, side := range affectedSides(eff.TargetOwner, ctl, inferredOwner(eff)) {
			gs.LingeringEffects = append(gs.LingeringEffects, LingeringEffect{
				SourceCardID:  sourceID,
				PlayerID:      gs.PlayerID(side),
				AtkBonus:      atk,
				DefBonus:      def,
				ExpiresAtTurn: until,
			})
			e.emit(gs, log.EventStatChange, side, sourceID, "%s monsters get %+d/%+d until turn %d", gs.PlayerID(side), atk, def, until)
		}
		return succeeded("lingering %+d/%+d", atk, def)
	}
	ids, res, good := e.pick(gs, eff, ctl, sourceID, targets)
	if !good {
		return res
	}
	for _, id := range ids {
		bc := boardCardAnywhere(gs, id)
		if bc == nil {
			continue
		}
		loc, _ := gs.Locate(id)
		if eff.Duration == nil {
			bc.Attack += atk
			bc.Defense += def
		} else {
			gs.TemporaryModifiers = append(gs.TemporaryModifiers, TemporaryModifier{
				CardID:         id,
				AtkBonus:       atk,
				DefBonus:       def,
				ExpiresAtTurn:  gs.TurnNumber + max(eff.Duration.Turns, 1) - 1,
				ExpiresAtPhase: eff.Duration.Phase,
			})
		}
		e.emit(gs, log.EventStatChange, loc.Side, id, "%s gets %+d ATK / %+d DEF", e.cardName(gs, id), atk, def)
	}
	return succeeded("modified %d monster(s)", len(ids))
}

func (e *Engine) execSummon(gs *GameState, eff ParsedEffect, ctl PlayerSide, sourceID string, targets []string) EffectResult {
	eff.TargetType = monsterFilter(eff.TargetType)
	ids, res, good := e.pick(gs, eff, ctl, sourceID, targets)
	if !good {
		return res
	}
	summoned := 0
	for _, id := range ids {
		loc, found := gs.Locate(id)
		if !found || loc.Zone.IsField() {
			continue
		}
		p := gs.Side(loc.Side)
		if !p.HasBoardSpace() {
			break
		}
		if _, err := gs.detach(id); err != nil {
			return failed("%v", err)
		}
		e.placeMonster(gs, loc.Side, id, PositionAttack, false)
		e.emit(gs, log.EventSpecialSummon, loc.Side, id, "%s special summons %s", p.PlayerID, e.cardName(gs, id))
		summoned++
		e.summonTriggers(gs, loc.Side, id)
	}
	if summoned == 0 {
		return failed("nothing could be summoned")
	}
	res = succeeded("summoned %d monster(s)", summoned)
	res.Moved = summoned
	return res
}

func monsterFilter(filter string) string {
	if filter == "" {
		return string(CardTypeMonster)
	}
	return filter
}

func (e *Engine) execToken(gs *GameState, eff ParsedEffect, ctl PlayerSide) EffectResult {
	if eff.Token == nil {
		return failed("generateToken without a token")
	}
	side := affectedSides(eff.TargetOwner, ctl, OwnerSelf)[0]
	p := gs.Side(side)
	defID := "token:" + eff.Token.Name
	if gs.Tokens == nil {
		gs.Tokens = make(map[string]*Definition)
	}
	gs.Tokens[defID] = &Definition{
		ID:       defID,
		Name:     eff.Token.Name,
		CardType: CardTypeMonster,
		Attack:   eff.Token.Attack,
		Defense:  eff.Token.Defense,
		Level:    1,
		IsToken:  true,
	}
	made := 0
	for made < count(eff) && p.HasBoardSpace() {
		id := fmt.Sprintf("token-%d", gs.NextSeq())
		gs.Instances[id] = defID
		pos := PositionAttack
		if eff.Token.Defend {
			pos = PositionDefense
		}
		e.placeMonster(gs, side, id, pos, false)
		e.emit(gs, log.EventTokenCreated, side, id, "%s creates %s", p.PlayerID, eff.Token.Name)
		made++
	}
	if made == 0 {
		return failed("no board space for tokens")
	}
	res := succeeded("created %d token(s)", made)
	res.Moved = made
	return res
}

// execNegate negates the chain link below the one resolving, or the pending
// attack if the chain is otherwise empty.
func (e *Engine) execNegate(gs *GameState, ctl PlayerSide) EffectResult {
	if n := len(gs.Chain); n > 0 {
		link := &gs.Chain[n-1]
		link.Negated = true
		e.emit(gs, log.EventNegate, ctl, link.CardID, "%s is negated", e.cardName(gs, link.CardID))
		return succeeded("negated %s", link.CardID)
	}
	if gs.PendingAction != nil {
		gs.PendingAction.Negated = true
		e.emit(gs, log.EventNegate, ctl, gs.PendingAction.AttackerID, "attack by %s is negated", e.cardName(gs, gs.PendingAction.AttackerID))
		return succeeded("negated attack")
	}
	return failed("nothing to negate")
}

// applyDamage lowers side's LP by amount, flooring at zero, and returns the
// LP actually lost.
func (e *Engine) applyDamage(gs *GameState, side PlayerSide, amount int, reason string) int {
	if amount <= 0 {
		return 0
	}
	p := gs.Side(side)
	before := p.LifePoints
	p.LifePoints = max(p.LifePoints-amount, 0)
	lost := before - p.LifePoints
	e.emitMeta(gs, log.EventLPChange, side, map[string]string{"delta": fmt.Sprint(-lost)},
		"%s takes %d damage from %s (LP %d → %d)", p.PlayerID, amount, reason, before, p.LifePoints)
	return lost
}

// gainLP raises side's LP, capped at the configured ceiling when set.
func (e *Engine) gainLP(gs *GameState, side PlayerSide, amount int, reason string) int {
	if amount <= 0 {
		return 0
	}
	p := gs.Side(side)
	before := p.LifePoints
	p.LifePoints += amount
	if c := e.rules.LPCeiling; c > 0 && p.LifePoints > c {
		p.LifePoints = max(c, before)
	}
	gained := p.LifePoints - before
	e.emitMeta(gs, log.EventLPChange, side, map[string]string{"delta": fmt.Sprint(gained)},
		"%s gains %d LP from %s (LP %d → %d)", p.PlayerID, gained, reason, before, p.LifePoints)
	return gained
}

func boardCardAnywhere(gs *GameState, cardID string) *BoardCard {
	for _, side := range Sides {
		if bc := gs.Side(side).BoardCard(cardID); bc != nil {
			return bc
		}
	}
	return nil
}

func reversed(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
