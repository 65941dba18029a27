package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// EventSink receives spectator-visible events. Delivery is fire-and-forget:
// callers log a returned error and carry on.
type EventSink interface {
	RecordEvent(ctx context.Context, event GameEvent) error
}

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	mu     sync.Mutex
	events []GameEvent
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) RecordEvent(_ context.Context, event GameEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Events returns a copy of every recorded event.
func (l *MemoryLogger) Events() []GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]GameEvent, len(l.events))
	copy(out, l.events)
	return out
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var result []GameEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return GameEvent{}
	}
	return l.events[len(l.events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) RecordEvent(ctx context.Context, event GameEvent) error {
	_ = l.MemoryLogger.RecordEvent(ctx, event)
	_, err := fmt.Fprintln(l.w, FormatEvent(event))
	return err
}

// --- ZapSink: mirrors events into the structured log ---

type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) RecordEvent(_ context.Context, event GameEvent) error {
	s.logger.Debug("game event",
		zap.String("match_id", event.MatchID),
		zap.Int("turn", event.Turn),
		zap.String("type", event.Type.String()),
		zap.String("player_id", event.PlayerID),
		zap.String("details", event.Details),
	)
	return nil
}

// MultiSink fans an event out to several sinks. Every sink is tried; the
// first error is returned.
type MultiSink []EventSink

func (m MultiSink) RecordEvent(ctx context.Context, event GameEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.RecordEvent(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// --- Formatting ---

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e GameEvent) string {
	phase := e.Phase
	for len(phase) < 8 {
		phase += " "
	}
	return fmt.Sprintf("T%-2d %s| %s", e.Turn, phase, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []GameEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}
