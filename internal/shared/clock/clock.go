package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time to the auction core
type Clock interface {
	Now() time.Time
}

// System reads the wall clock, always in UTC
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Manual is a Clock that only moves when told to, used by tests and replays
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t, backwards jumps included.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}
