// Package clock wraps time to allow granular management for testing.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type clock struct{}

// New returns a Clock backed by the system time.
func New() Clock {
	return clock{}
}

func (clock) Now() time.Time {
	return time.Now()
}

// ManagedClock is a hand managed clock. Intended for tests.
type ManagedClock struct {
	startTime time.Time
	offset    time.Duration
}

// NewManaged returns a ManagedClock starting at startTime.
func NewManaged(startTime time.Time) *ManagedClock {
	return &ManagedClock{startTime: startTime}
}

// Now returns the current managed time.
func (c *ManagedClock) Now() time.Time {
	return c.startTime.Add(c.offset)
}

// WarpForward moves time forward by offset and returns the new time.
func (c *ManagedClock) WarpForward(offset time.Duration) time.Time {
	c.offset += offset
	return c.startTime.Add(c.offset)
}
