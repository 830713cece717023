package actor

import "time"

// Clock is the time source used by runtimes. Reducers never read it; runtimes
// stamp events with it instead.
type Clock interface {
	Now() time.Time
}

// RealClock is backed by time.Now.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now() }
