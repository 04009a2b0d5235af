package clock

import (
	"sync"
	"time"
)

// Clock abstracts the wall clock so the lifecycle sweep can be driven with a
// simulated date progression in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by time.Now in UTC.
func System() Clock { return systemClock{} }

// Manual is a controllable clock for tests.
type Manual struct {
	mu      sync.Mutex
	current time.Time
}

// NewManual returns a clock pinned to the supplied instant.
func NewManual(start time.Time) *Manual {
	return &Manual{current: start}
}

// Now returns the current instant tracked by the clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set pins the clock to the provided instant.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d and returns the updated instant.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	m.current = m.current.Add(d)
	updated := m.current
	m.mu.Unlock()
	return updated
}
