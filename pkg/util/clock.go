package util

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ManualClock returns a fixed time that advances by Step after every call.
// Useful for deterministic order timestamps in tests and simulations.
type ManualClock struct {
	mu   sync.Mutex
	t    time.Time
	Step time.Duration
}

func NewManualClock(start time.Time, step time.Duration) *ManualClock {
	return &ManualClock{t: start, Step: step}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.Step)
	return now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}
