package reaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/tui-reaction/internal/clock"
)

// State is the lifecycle position of a Run.
type State int

const (
	StateCreated          State = iota
	StatePreparing              // waiting for the delay to expire
	StateAwaitingReaction       // stimulus shown, reaction window open
	StateSuccess
	StateTooSoon
	StateTimedOut
	StateCanceled // abandoned before a terminal state, no outcome
	StateFaulted  // a port phase failed, no outcome
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePreparing:
		return "preparing"
	case StateAwaitingReaction:
		return "awaiting-reaction"
	case StateSuccess:
		return "success"
	case StateTooSoon:
		return "too-soon"
	case StateTimedOut:
		return "timed-out"
	case StateCanceled:
		return "canceled"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state carries an outcome.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateTooSoon || s == StateTimedOut
}

// live reports whether the run may still change state.
func (s State) live() bool {
	return s == StateCreated || s == StatePreparing || s == StateAwaitingReaction
}

var (
	// ErrAlreadyStarted is returned by Start when called more than once.
	ErrAlreadyStarted = errors.New("reaction: run already started")

	// ErrCanceled is returned by Wait for a run that was abandoned, and by
	// Start for a run canceled before it started.
	ErrCanceled = errors.New("reaction: run canceled")
)

// RunParams configures a Run.
type RunParams struct {
	Delay   time.Duration // wait between Prepare and the stimulus
	Timeout time.Duration // reaction window after the stimulus
	Port    Port

	// Clock schedules the delay and timeout. Defaults to clock.System.
	Clock clock.Clock

	// Logger receives one line per phase. Defaults to a discarding logger.
	Logger *log.Logger

	// OnComplete is called exactly once, when the run reaches Success,
	// TooSoon or TimedOut. It is never called for a canceled or faulted run.
	OnComplete func(*Run)
}

// Run is a single attempt at the game. The reaction listener and the
// delay/timeout timers race each other; every transition claims its target
// state under mu before doing anything visible, so exactly one of them wins.
type Run struct {
	id         string
	delay      time.Duration
	timeout    time.Duration
	port       Port
	clock      clock.Clock
	logger     *log.Logger
	onComplete func(*Run)

	// phaseCtx is handed to port phases and carries the run id. It is
	// detached from cancellation: in-flight phases are never interrupted,
	// only ignored.
	phaseCtx context.Context

	done      chan struct{}
	closeDone func()

	mu          sync.Mutex
	state       State
	displaying  bool // Port.Start in flight
	completed   bool // onComplete delivered
	timer       clock.Timer
	abort       context.CancelFunc
	startedAt   time.Time
	displayedAt time.Time
	reactedAt   time.Time
	timedOutAt  time.Time
	outcome     Outcome
	err         error
}

// NewRun creates a run in the Created state.
func NewRun(p RunParams) *Run {
	if p.Clock == nil {
		p.Clock = clock.System
	}
	if p.Logger == nil {
		p.Logger = log.New(io.Discard)
	}

	done := make(chan struct{})
	return &Run{
		id:         uuid.NewString(),
		delay:      p.Delay,
		timeout:    p.Timeout,
		port:       p.Port,
		clock:      p.Clock,
		logger:     p.Logger,
		onComplete: p.OnComplete,
		phaseCtx:   context.Background(),
		done:       done,
		closeDone:  sync.OnceFunc(func() { close(done) }),
	}
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// Delay returns the wait before the stimulus.
func (r *Run) Delay() time.Duration { return r.delay }

// Timeout returns the reaction window.
func (r *Run) Timeout() time.Duration { return r.timeout }

// Start prepares the run: it asks the port to arm the input listener,
// starts listening for the reaction and schedules the stimulus.
// A port failure is returned and moves the run to StateFaulted.
func (r *Run) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateCreated {
		state := r.state
		r.mu.Unlock()
		if state == StateCanceled {
			return ErrCanceled
		}
		return ErrAlreadyStarted
	}
	r.state = StatePreparing
	r.phaseCtx = ContextWithRunID(context.WithoutCancel(ctx), r.id)
	// Armed before Prepare so a Cancel during Prepare aborts the signal.
	signal, abort := context.WithCancel(r.phaseCtx)
	r.abort = abort
	r.mu.Unlock()

	r.logger.Info("starting run", "run", r.id, "delay", r.delay)

	stop := context.AfterFunc(ctx, abort)
	prep, err := r.port.Prepare(signal)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		abort()
		return r.fail(fmt.Errorf("reaction: prepare: %w", err))
	}

	r.mu.Lock()
	if r.state != StatePreparing {
		// Canceled while the port was preparing.
		r.mu.Unlock()
		abort()
		return nil
	}
	r.startedAt = prep.At
	r.timer = r.clock.AfterFunc(r.delay, r.onDelay)
	r.mu.Unlock()

	go r.listen(signal, prep.Reaction)
	return nil
}

// listen forwards the first reaction to React. Anything delivered after the
// signal was aborted is dropped.
func (r *Run) listen(signal context.Context, reaction <-chan time.Time) {
	select {
	case at, ok := <-reaction:
		if !ok || signal.Err() != nil {
			r.logger.Debug("reaction aborted", "run", r.id)
			return
		}
		r.React(at)
	case <-signal.Done():
		r.logger.Debug("reaction aborted", "run", r.id)
	}
}

// onDelay shows the stimulus and opens the reaction window.
func (r *Run) onDelay() {
	r.mu.Lock()
	if r.state != StatePreparing || r.displaying {
		r.mu.Unlock()
		return
	}
	r.stopTimer()
	r.displaying = true
	r.mu.Unlock()

	at, err := r.port.Start(r.phaseCtx)

	r.mu.Lock()
	r.displaying = false
	if r.state != StatePreparing {
		// A premature reaction or a cancel won while the stimulus was shown.
		r.mu.Unlock()
		return
	}
	if err != nil {
		// Faulted under mu so a reaction cannot claim the run in between.
		err = fmt.Errorf("reaction: show stimulus: %w", err)
		r.faultLocked(err)
		r.mu.Unlock()

		r.logger.Error("run faulted", "run", r.id, "error", err)
		r.closeDone()
		return
	}
	r.displayedAt = at
	r.state = StateAwaitingReaction
	r.timer = r.clock.AfterFunc(r.timeout, r.onTimeout)
	startedAt := r.startedAt
	r.mu.Unlock()

	r.logger.Info("stimulus displayed", "run", r.id, "after", at.Sub(startedAt), "delay", r.delay)
}

// React records a player input observed at the given time. Inputs while the
// reaction window is open succeed; inputs before the stimulus fail the run.
// Inputs after the run has finished are ignored.
func (r *Run) React(at time.Time) {
	r.mu.Lock()
	switch {
	case r.acceptingLocked() && !at.Before(r.displayedAt):
		r.stopTimer()
		r.abortSignal()
		r.reactedAt = at
		rt := at.Sub(r.displayedAt)
		r.state = StateSuccess
		r.outcome = Success{ID: r.id, ReactionTime: rt}
		r.mu.Unlock()

		r.logger.Info("reacted", "run", r.id, "reaction", rt)
		r.port.Finish(r.phaseCtx, rt)
		r.complete()

	case r.state.live() && !r.startedAt.IsZero():
		r.stopTimer()
		r.abortSignal()
		r.reactedAt = at
		expected := r.startedAt.Add(r.delay)
		rt := at.Sub(expected)
		r.state = StateTooSoon
		r.outcome = TooSoon{ID: r.id, ReactionTime: rt}
		r.mu.Unlock()

		shownAt, err := r.port.Error(r.phaseCtx)
		if err != nil {
			r.fail(fmt.Errorf("reaction: show error: %w", err))
			return
		}
		r.logger.Info("reacted too soon", "run", r.id, "early", -rt, "shown", shownAt.Sub(expected))
		r.complete()

	default:
		state := r.state
		r.mu.Unlock()
		r.logger.Debug("reaction ignored", "run", r.id, "state", state)
	}
}

// onTimeout closes the reaction window without a reaction.
func (r *Run) onTimeout() {
	r.mu.Lock()
	if r.state != StateAwaitingReaction {
		r.mu.Unlock()
		return
	}
	r.state = StateTimedOut
	r.stopTimer()
	r.abortSignal()
	r.outcome = TimedOut{ID: r.id}
	displayedAt := r.displayedAt
	r.mu.Unlock()

	at, err := r.port.Timeout(r.phaseCtx)
	if err != nil {
		r.fail(fmt.Errorf("reaction: show timeout: %w", err))
		return
	}

	r.mu.Lock()
	r.timedOutAt = at
	r.mu.Unlock()

	r.logger.Info("timed out", "run", r.id, "after", at.Sub(displayedAt))
	r.complete()
}

// Cancel abandons a live run. It returns false if the run had already
// finished. A canceled run never reports an outcome.
func (r *Run) Cancel() bool {
	r.mu.Lock()
	if !r.state.live() {
		r.mu.Unlock()
		return false
	}
	prev := r.state
	r.state = StateCanceled
	r.stopTimer()
	r.abortSignal()
	startedAt := r.startedAt
	phaseCtx := r.phaseCtx
	r.mu.Unlock()

	if prev != StateCreated {
		r.logger.Info("canceling run", "run", r.id, "after", r.clock.Now().Sub(startedAt))
		r.port.Cancel(phaseCtx)
	}
	r.closeDone()
	return true
}

// complete delivers the outcome claimed by the winning transition. A run
// that faulted meanwhile delivers nothing.
func (r *Run) complete() {
	r.mu.Lock()
	if !r.state.Terminal() || r.outcome == nil || r.completed {
		r.mu.Unlock()
		return
	}
	r.completed = true
	r.mu.Unlock()

	if r.onComplete != nil {
		r.onComplete(r)
	}
	r.closeDone()
}

// fail moves the run to StateFaulted unless it was already canceled.
func (r *Run) fail(err error) error {
	r.mu.Lock()
	if r.state == StateCanceled {
		r.mu.Unlock()
		return nil
	}
	r.faultLocked(err)
	r.mu.Unlock()

	r.logger.Error("run faulted", "run", r.id, "error", err)
	r.closeDone()
	return err
}

// faultLocked moves the run to StateFaulted. Caller holds mu.
func (r *Run) faultLocked(err error) {
	r.state = StateFaulted
	r.err = err
	r.outcome = nil
	r.stopTimer()
	r.abortSignal()
}

// stopTimer cancels the pending delay or timeout. Caller holds mu.
func (r *Run) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// abortSignal cancels the reaction listener. Caller holds mu.
func (r *Run) abortSignal() {
	if r.abort != nil {
		r.abort()
	}
}

func (r *Run) acceptingLocked() bool {
	return r.state == StateAwaitingReaction
}

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsRunning reports whether the run has started and not yet finished.
func (r *Run) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StatePreparing || r.state == StateAwaitingReaction
}

// IsAcceptingReactions reports whether the stimulus is shown and the
// reaction window is still open.
func (r *Run) IsAcceptingReactions() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptingLocked()
}

// StartedAt returns when the player became eligible to react,
// or the zero time if the run has not been prepared.
func (r *Run) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// DisplayedAt returns when the stimulus was shown, or the zero time.
func (r *Run) DisplayedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.displayedAt
}

// ReactedAt returns when the accepted or premature input happened, or the zero time.
func (r *Run) ReactedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reactedAt
}

// TimedOutAt returns when the timeout screen was shown, or the zero time.
func (r *Run) TimedOutAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timedOutAt
}

// Outcome returns the run's result once it has been delivered.
func (r *Run) Outcome() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.completed {
		return nil, false
	}
	return r.outcome, true
}

// Err returns the port failure that faulted the run, if any.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Done is closed when the run completes, is canceled or faults.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is over and returns its outcome.
// It returns ErrCanceled for an abandoned run and the port error for a
// faulted one.
func (r *Run) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.completed:
		return r.outcome, nil
	case r.state == StateFaulted:
		return nil, r.err
	default:
		return nil, ErrCanceled
	}
}
