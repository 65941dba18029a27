package game

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/log"
)

// Rules holds the tunable constants of a match.
type Rules struct {
	StartingLP         int
	LPCeiling          int
	HandLimit          int
	InitialHand        int
	SBAIterationCap    int
	TriggerCascadeCap  int
	BreakdownThreshold int
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		StartingLP:         StartingLP,
		LPCeiling:          StartingLP,
		HandLimit:          MaxHandSize,
		InitialHand:        InitialHandSize,
		SBAIterationCap:    100,
		TriggerCascadeCap:  32,
		BreakdownThreshold: 3,
	}
}

// Automaton answers the decisions the engine cannot wait for when a seat is
// computer controlled.
type Automaton interface {
	// AcceptTrigger decides whether an optional trigger fires.
	AcceptTrigger(gs *GameState, trig PendingOptionalTrigger) bool
	// ChooseResponse picks one of the offered responses in a response
	// window, or returns false to pass.
	ChooseResponse(gs *GameState, side PlayerSide, options []Action) (Action, bool)
	// ChooseReplay picks a new target, a direct attack or cancellation.
	ChooseReplay(gs *GameState, side PlayerSide, options []Action) Action
}

// passiveAutomaton declines everything. Used when no automaton is set.
type passiveAutomaton struct{}

func (passiveAutomaton) AcceptTrigger(*GameState, PendingOptionalTrigger) bool { return false }
func (passiveAutomaton) ChooseResponse(*GameState, PlayerSide, []Action) (Action, bool) {
	return Action{}, false
}
func (passiveAutomaton) ChooseReplay(_ *GameState, _ PlayerSide, options []Action) Action {
	return options[len(options)-1]
}

// Engine applies game actions to a GameState. An Engine holds no per-match
// state and is safe to share between matches.
type Engine struct {
	catalog Catalog
	rules   Rules
	logger  *zap.Logger
	auto    Automaton
}

// Option configures an Engine.
type Option func(*Engine)

func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithAutomaton(a Automaton) Option {
	return func(e *Engine) {
		if a != nil {
			e.auto = a
		}
	}
}

// NewEngine creates an engine reading card data from cat.
func NewEngine(cat Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: cat,
		rules:   DefaultRules(),
		logger:  zap.NewNop(),
		auto:    passiveAutomaton{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetAutomaton replaces the decision hook for computer seats.
func (e *Engine) SetAutomaton(a Automaton) {
	if a != nil {
		e.auto = a
	}
}

func (e *Engine) Rules() Rules        { return e.rules }
func (e *Engine) Catalog() Catalog    { return e.catalog }
func (e *Engine) Logger() *zap.Logger { return e.logger }

// Definition resolves an instance id to its card definition.
func (e *Engine) Definition(gs *GameState, cardID string) (*Definition, error) {
	defID, ok := gs.Instances[cardID]
	if !ok {
		return nil, &IntegrityError{What: "card instance", ID: cardID}
	}
	if d, ok := gs.Tokens[defID]; ok {
		return d, nil
	}
	d, ok := e.catalog.Definition(defID)
	if !ok {
		return nil, &IntegrityError{What: "card definition", ID: defID}
	}
	return d, nil
}

// def is Definition for callers that already know the instance is valid.
func (e *Engine) def(gs *GameState, cardID string) *Definition {
	d, err := e.Definition(gs, cardID)
	if err != nil {
		e.logger.Warn("missing definition",
			zap.String("match_id", gs.MatchID), zap.String("card_id", cardID), zap.Error(err))
		return &Definition{ID: cardID, Name: cardID}
	}
	return d
}

// cardName returns a display name for an instance.
func (e *Engine) cardName(gs *GameState, cardID string) string {
	return e.def(gs, cardID).Name
}

// emit appends a spectator event to the state's outbox.
func (e *Engine) emit(gs *GameState, t log.EventType, side PlayerSide, cardID string, format string, args ...any) {
	gs.EventSeq++
	ev := log.GameEvent{
		ID:       uuid.NewString(),
		Seq:      gs.EventSeq,
		MatchID:  gs.MatchID,
		Turn:     gs.TurnNumber,
		Phase:    string(gs.CurrentPhase),
		PlayerID: gs.PlayerID(side),
		Type:     t,
		Details:  fmt.Sprintf(format, args...),
	}
	if cardID != "" {
		ev.Card = e.cardName(gs, cardID)
		ev.Metadata = map[string]string{"cardId": cardID}
	}
	gs.Outbox = append(gs.Outbox, ev)
}

// emitMeta is emit with extra metadata.
func (e *Engine) emitMeta(gs *GameState, t log.EventType, side PlayerSide, meta map[string]string, format string, args ...any) {
	e.emit(gs, t, side, "", format, args...)
	ev := &gs.Outbox[len(gs.Outbox)-1]
	ev.Metadata = meta
}

// requireActive rejects actions on a finished match.
func requireActive(gs *GameState) error {
	if gs.IsOver() {
		return illegal(CodeGameOver, "match has ended")
	}
	return nil
}

// requireTurnPlayer resolves playerID and checks it is the turn player.
func requireTurnPlayer(gs *GameState, playerID string) (PlayerSide, error) {
	side, err := gs.SideOf(playerID)
	if err != nil {
		return side, err
	}
	if side != gs.TurnSide() {
		return side, illegal(CodeNotYourTurn, "it is not %s's turn", playerID)
	}
	return side, nil
}
