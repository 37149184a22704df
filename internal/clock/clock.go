// Package clock provides the time sources the simulation reads "now" from.
package clock

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Clock is the time source of the simulation loop. Movement progress is
// measured against it, so tests swap in a Manual clock.
type Clock interface {
	Now() time.Time
}

// Mode describes how the driver advances time between ticks.
type Mode int

const (
	// RealTime ticks on the wall clock.
	RealTime Mode = iota
	// Accelerated steps a simulated clock by one tick as fast as the loop runs.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// ParseMode converts a config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "realtime", "real-time":
		return RealTime, nil
	case "accelerated", "fast":
		return Accelerated, nil
	}
	return RealTime, fmt.Errorf("unknown clock mode: %q", s)
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Manual is a clock that only moves when told to.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual returns a Manual clock set to start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
