package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock swaps the time source used to stamp heatmaps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}
