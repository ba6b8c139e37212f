// Package timeutil provides a clock abstraction so durations measured by
// sessions can be controlled in tests.
package timeutil

import (
	"sync"
	"time"
)

// Provider reports the current time.
type Provider interface {
	Now() time.Time
}

// RealProvider reads the system clock.
type RealProvider struct{}

// Now returns the current time in UTC.
func (RealProvider) Now() time.Time { return time.Now().UTC() }

// Default returns a Provider implementation that uses the real system time.
func Default() Provider { return RealProvider{} }

// Since returns the time elapsed on p since t.
func Since(p Provider, t time.Time) time.Duration { return p.Now().Sub(t) }

// Mock is a manually driven Provider. It is safe for concurrent use since
// sessions read the clock from their own goroutine.
type Mock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewMock creates a mock clock set to t.
func NewMock(t time.Time) *Mock { return &Mock{current: t} }

// Now returns the mock time, then advances it by the configured step.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.current
	m.current = m.current.Add(m.step)
	return now
}

// SetNow directly sets the current time to the provided time.
func (m *Mock) SetNow(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance moves the mock time forward by the specified duration.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}

// SetStep makes every Now call advance the clock by d afterwards.
func (m *Mock) SetStep(d time.Duration) {
	m.mu.Lock()
	m.step = d
	m.mu.Unlock()
}
