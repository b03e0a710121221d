// Package reaction implements the reaction-timer game: a single Run that
// races a player's input against a randomized stimulus and a reaction window,
// the bounded History of finished runs, and the Game that orchestrates both.
//
// The package never draws anything. Everything the player sees goes through
// the Port interface, which the platform layer implements.
package reaction

import "time"

// Status names the kind of a finished run.
type Status int

const (
	StatusSuccess Status = iota // reacted inside the window
	StatusError                 // reacted before the stimulus
	StatusTimeout               // did not react in time
)

// String returns the status name used in logs and the session journal.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "success":
		return StatusSuccess, true
	case "error":
		return StatusError, true
	case "timeout":
		return StatusTimeout, true
	default:
		return 0, false
	}
}

// Outcome is the terminal result of a Run. It is a closed set:
// Success, TooSoon and TimedOut are the only implementations, and
// consumers are expected to switch over all three.
type Outcome interface {
	RunID() string
	Status() Status
	outcome()
}

// Success is a reaction that arrived after the stimulus and inside the
// reaction window.
type Success struct {
	ID           string
	ReactionTime time.Duration // reactedAt - displayedAt, never negative
}

// TooSoon is a reaction that arrived before the stimulus was shown.
// ReactionTime is measured against the time the stimulus was scheduled to
// appear (startedAt + delay) and is usually negative.
type TooSoon struct {
	ID           string
	ReactionTime time.Duration
}

// TimedOut is a run where no reaction arrived inside the reaction window.
type TimedOut struct {
	ID string
}

func (o Success) RunID() string  { return o.ID }
func (o TooSoon) RunID() string  { return o.ID }
func (o TimedOut) RunID() string { return o.ID }

func (Success) Status() Status  { return StatusSuccess }
func (TooSoon) Status() Status  { return StatusError }
func (TimedOut) Status() Status { return StatusTimeout }

func (Success) outcome()  {}
func (TooSoon) outcome()  {}
func (TimedOut) outcome() {}

// ReactionTime extracts the measured time of an outcome.
// The second result is false for TimedOut, which has none.
func ReactionTime(o Outcome) (time.Duration, bool) {
	switch o := o.(type) {
	case Success:
		return o.ReactionTime, true
	case TooSoon:
		return o.ReactionTime, true
	case TimedOut:
		return 0, false
	default:
		return 0, false
	}
}
