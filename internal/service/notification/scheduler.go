package notification

import (
	"sync"
	"time"
)

// DismissScheduler owns one auto-dismiss timer per notification id.
// Cancelling an id that already fired or was never scheduled is a no-op.
type DismissScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewDismissScheduler() *DismissScheduler {
	return &DismissScheduler{
		timers: make(map[string]*time.Timer),
	}
}

// Schedule starts a one-shot timer for id. A previous timer for the same id is
// stopped and replaced. Non-positive durations schedule nothing.
func (s *DismissScheduler) Schedule(id string, d time.Duration, onFire func(id string)) {
	if d <= 0 || onFire == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[id]; ok {
		prev.Stop()
	}

	var handle *time.Timer
	handle = time.AfterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.timers[id]
		if !ok || current != handle {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()

		onFire(id)
	})
	s.timers[id] = handle
}

// Cancel stops and forgets the timer for id. It reports whether one was pending.
func (s *DismissScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, id)
	return true
}

// CancelAll stops every outstanding timer and returns how many were pending.
func (s *DismissScheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.timers)
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	return n
}

// Pending returns the number of scheduled timers.
func (s *DismissScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Has reports whether a timer is scheduled for id.
func (s *DismissScheduler) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}
