// Package clock abstracts timer scheduling so that run timing can be driven
// by the real clock in production and advanced by hand in tests.
package clock

import "time"

// Timer is a scheduled callback that can be stopped before it fires.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or the timer was already stopped.
	Stop() bool
}

// Clock schedules callbacks and reports the current time.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// System is the Clock backed by the standard library timers.
// Times returned by Now carry a monotonic reading.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (systemClock) Now() time.Time {
	return time.Now()
}
