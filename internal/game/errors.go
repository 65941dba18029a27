package game

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalMove is the category of every rule violation.
	ErrIllegalMove = errors.New("illegal move")
	// ErrIntegrity marks missing or inconsistent data, not a rule violation.
	ErrIntegrity = errors.New("data integrity")
)

// Rule violation codes.
const (
	CodeWrongPhase       = "wrong_phase"
	CodeNotYourTurn      = "not_your_turn"
	CodeZoneFull         = "zone_full"
	CodeTributeCount     = "tribute_count"
	CodeNotInZone        = "card_not_found_in_zone"
	CodeAlreadySummoned  = "already_summoned"
	CodeCannotAttack     = "cannot_attack"
	CodeCannotActivate   = "cannot_activate"
	CodeCannotChange     = "cannot_change_position"
	CodeWindowClosed     = "window_closed"
	CodeGameOver         = "game_over"
	CodeAwaitingDecision = "awaiting_decision"
	CodeBadTarget        = "bad_target"
)

// RuleError is a structured rejection of an illegal action.
type RuleError struct {
	Code   string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *RuleError) Is(target error) bool {
	return target == ErrIllegalMove
}

func illegal(code, format string, args ...any) error {
	return &RuleError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// IntegrityError reports a reference to state or data that does not exist.
type IntegrityError struct {
	What string
	ID   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s %q not found", e.What, e.ID)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// RuleCode extracts the violation code from err, or "" if err is not a RuleError.
func RuleCode(err error) string {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
