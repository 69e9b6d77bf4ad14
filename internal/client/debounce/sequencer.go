// Package debounce coalesces rapid repeated actions on one target into the
// last call. It handles re-taps before a request is even sent; collisions
// with requests already in flight are the interaction controller's job, and
// both guards hold at once.
package debounce

import (
	"sync"
	"time"

	"github.com/parlaysocial/feedcore/internal/common"
)

type call struct {
	timer *time.Timer
	done  chan error
}

// Sequencer delays each per-target action by the window and keeps only the
// most recent one. Superseded callers settle with common.ErrSuperseded.
type Sequencer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*call
}

// New builds a Sequencer; window <= 0 falls back to the default.
func New(window time.Duration) *Sequencer {
	if window <= 0 {
		window = common.DefaultDebounceWindow
	}
	return &Sequencer{window: window, pending: make(map[string]*call)}
}

// Guard schedules fn to run after the window unless a newer Guard for the
// same target replaces it first. The returned channel settles exactly once:
// with fn's error, or with common.ErrSuperseded if a later call won.
func (s *Sequencer) Guard(targetID string, fn func() error) <-chan error {
	s.mu.Lock()
	if prev, ok := s.pending[targetID]; ok {
		prev.timer.Stop()
		prev.done <- common.ErrSuperseded
		delete(s.pending, targetID)
	}

	c := &call{done: make(chan error, 1)}
	c.timer = time.AfterFunc(s.window, func() {
		s.mu.Lock()
		if s.pending[targetID] != c {
			// A newer call replaced this one between firing and running.
			s.mu.Unlock()
			return
		}
		delete(s.pending, targetID)
		s.mu.Unlock()
		c.done <- fn()
	})
	s.pending[targetID] = c
	s.mu.Unlock()

	return c.done
}

// Window reports the configured coalescing window.
func (s *Sequencer) Window() time.Duration {
	return s.window
}
