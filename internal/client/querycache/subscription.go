package querycache

import "sync"

// Subscription is a live view onto one cache entry. Updates conflate: the
// channel always carries the most recent Result, so a slow consumer sees the
// latest state rather than a backlog.
type Subscription struct {
	mu      sync.Mutex
	current Result
	ch      chan Result
	closed  bool

	detach func(*Subscription)
}

func newSubscription(detach func(*Subscription)) *Subscription {
	return &Subscription{ch: make(chan Result, 1), detach: detach}
}

// newSettledSubscription returns a subscription that will only ever report r.
// Used for skipped (unauthenticated) queries, which create no cache entry.
func newSettledSubscription(r Result) *Subscription {
	s := newSubscription(nil)
	s.publish(r)
	return s
}

// Updates delivers Results as the entry changes.
func (s *Subscription) Updates() <-chan Result {
	return s.ch
}

// Current returns the most recently published Result.
func (s *Subscription) Current() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close detaches from the entry. Entries without subscribers stay cached
// (they are eviction-eligible, and still seed a returning screen) but no
// longer refetch.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	if s.detach != nil {
		s.detach(s)
	}
}

func (s *Subscription) publish(r Result) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.current = r
	s.mu.Unlock()

	// Conflate: drop the unread value, keep the newest.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- r:
	default:
	}
}
