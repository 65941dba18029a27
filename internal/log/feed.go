package log

import (
	"context"
	"sync"
	"sync/atomic"
)

// Feed is an EventSink that fans events out to live subscribers. A
// subscriber that falls behind loses events instead of stalling the match.
type Feed struct {
	mu     sync.Mutex
	buffer int
	subs   map[*Subscription]struct{}
}

// Subscription receives the events of one match, or of every match when
// MatchID is empty.
type Subscription struct {
	C       <-chan GameEvent
	MatchID string

	ch      chan GameEvent
	feed    *Feed
	dropped atomic.Int64
	closed  bool
}

func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{buffer: buffer, subs: make(map[*Subscription]struct{})}
}

func (f *Feed) Subscribe(matchID string) *Subscription {
	ch := make(chan GameEvent, f.buffer)
	sub := &Subscription{C: ch, MatchID: matchID, ch: ch, feed: f}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

// Subscribers returns the number of open subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) RecordEvent(_ context.Context, event GameEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		if sub.MatchID != "" && sub.MatchID != event.MatchID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
		}
	}
	return nil
}

// Dropped reports how many events were discarded because C was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(s.feed.subs, s)
	close(s.ch)
}
