package collector

import "time"

// Clock abstracts the wall-clock source so that timing logic is testable
// with a fake clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall-clock source.
func SystemClock() Clock {
	return systemClock{}
}
