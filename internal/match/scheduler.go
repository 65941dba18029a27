package match

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrSchedulerClosed = errors.New("scheduler closed")

// TimerScheduler delivers callbacks on their own goroutines after the delay
// elapses.
type TimerScheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu      sync.Mutex
	handler Handler
	timers  map[*time.Timer]struct{}
	closed  bool
}

func NewTimerScheduler(ctx context.Context, logger *zap.Logger) *TimerScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &TimerScheduler{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		timers: make(map[*time.Timer]struct{}),
	}
}

func (s *TimerScheduler) Register(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *TimerScheduler) ScheduleCallback(delay time.Duration, cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, t)
		h := s.handler
		s.mu.Unlock()
		if h == nil || s.ctx.Err() != nil {
			return
		}
		h(s.ctx, cb)
	})
	s.timers[t] = struct{}{}
	return nil
}

// Close stops every pending timer. Callbacks already running finish.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	for t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.logger.Debug("scheduler closed")
}

type scheduled struct {
	due time.Duration
	seq int
	cb  Callback
}

// ManualScheduler queues callbacks against a virtual clock that only moves
// when told to. Tests use it to run sagas deterministically.
type ManualScheduler struct {
	mu      sync.Mutex
	handler Handler
	now     time.Duration
	seq     int
	queue   []scheduled
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Register(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *ManualScheduler) ScheduleCallback(delay time.Duration, cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.queue = append(s.queue, scheduled{due: s.now + delay, seq: s.seq, cb: cb})
	sort.Slice(s.queue, func(i, j int) bool {
		if s.queue[i].due != s.queue[j].due {
			return s.queue[i].due < s.queue[j].due
		}
		return s.queue[i].seq < s.queue[j].seq
	})
	return nil
}

// Pending returns the queued callbacks in delivery order.
func (s *ManualScheduler) Pending() []Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Callback, len(s.queue))
	for i, q := range s.queue {
		out[i] = q.cb
	}
	return out
}

// Drop removes every queued callback of the given kind and returns how many
// were removed.
func (s *ManualScheduler) Drop(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.queue[:0]
	for _, q := range s.queue {
		if q.cb.Kind != kind {
			kept = append(kept, q)
		}
	}
	n := len(s.queue) - len(kept)
	s.queue = kept
	return n
}

// RunNext jumps the clock to the earliest callback and delivers it. It
// reports false when nothing is queued.
func (s *ManualScheduler) RunNext(ctx context.Context) (Callback, bool) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return Callback{}, false
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	if next.due > s.now {
		s.now = next.due
	}
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(ctx, next.cb)
	}
	return next.cb, true
}

// Advance moves the clock forward by d, delivering everything that falls
// due on the way, including callbacks scheduled by those callbacks.
func (s *ManualScheduler) Advance(ctx context.Context, d time.Duration) int {
	s.mu.Lock()
	until := s.now + d
	s.mu.Unlock()
	ran := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].due > until {
			s.now = until
			s.mu.Unlock()
			return ran
		}
		s.mu.Unlock()
		s.RunNext(ctx)
		ran++
	}
}
