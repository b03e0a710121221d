package reaction

import (
	"context"
	"time"
)

// Port is the presentation side of the game. The Run and Game call it at
// each phase; they never implement it.
//
// Phase methods that return a timestamp report when the phase actually
// became visible to the player. Port methods may be called from timer
// goroutines and must be safe for concurrent use.
//
// Every ctx handed to a port carries the calling run's id (see
// RunIDFromContext). A run's phases can still be in flight after the next
// run has been prepared; ports use the id to ignore them.
type Port interface {
	// Init performs one-time layout setup.
	Init()

	// Prepare shows the "get ready" screen and arms the input listener.
	// ctx is the listener's cancellation token: once it is done the port
	// must stop delivering on Prepared.Reaction.
	Prepare(ctx context.Context) (Prepared, error)

	// Start shows the stimulus.
	Start(ctx context.Context) (time.Time, error)

	// Error shows the "too soon" screen.
	Error(ctx context.Context) (time.Time, error)

	// Timeout shows the "too slow" screen.
	Timeout(ctx context.Context) (time.Time, error)

	// Finish shows a successful reaction time.
	Finish(ctx context.Context, reactionTime time.Duration)

	// Cancel is called when a live run is abandoned.
	Cancel(ctx context.Context)

	// HistoryUpdate is called after every finished run.
	HistoryUpdate(h HistoryView)
}

// Prepared is returned by Port.Prepare.
type Prepared struct {
	// At is when the player became eligible to react.
	At time.Time

	// Reaction receives the timestamp of the first qualifying input.
	Reaction <-chan time.Time
}

// HistoryView is an immutable copy of the History handed to the Port.
type HistoryView struct {
	Outcomes   []Outcome     // oldest first
	Average    time.Duration // mean successful reaction time
	HasAverage bool          // false when no Success is in Outcomes
}

type runIDKey struct{}

// ContextWithRunID returns a copy of ctx carrying the given run id.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the id of the run a port call belongs to.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}
