package domain

import "github.com/jonboulle/clockwork"

// ClockOrReal returns c, or the real wall clock when c is nil. Components take
// a clock so tests can freeze "now" with a fake.
func ClockOrReal(c clockwork.Clock) clockwork.Clock {
	if c == nil {
		return clockwork.NewRealClock()
	}
	return c
}
