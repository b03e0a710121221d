package reaction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/tui-reaction/internal/clock"
)

const (
	testDelay   = 2000 * time.Millisecond
	testTimeout = 1500 * time.Millisecond
)

type runFixture struct {
	clock     *clock.Manual
	port      *fakePort
	run       *Run
	completed atomic.Int32
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	f := &runFixture{clock: clock.NewManual(time.Unix(1000, 0))}
	f.port = newFakePort(f.clock)
	f.run = NewRun(RunParams{
		Delay:      testDelay,
		Timeout:    testTimeout,
		Port:       f.port,
		Clock:      f.clock,
		OnComplete: func(*Run) { f.completed.Add(1) },
	})
	return f
}

func (f *runFixture) start(t *testing.T) {
	t.Helper()
	if err := f.run.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
}

func waitDone(t *testing.T, r *Run) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("run %s did not finish, state %v", r.ID(), r.State())
	}
}

func TestRunSuccess(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)

	if !f.run.IsRunning() {
		t.Error("run should be running after Start")
	}
	if f.run.IsAcceptingReactions() {
		t.Error("run should not accept reactions before the stimulus")
	}

	f.clock.Advance(testDelay)
	if f.run.State() != StateAwaitingReaction {
		t.Fatalf("State() = %v after delay, expected awaiting-reaction", f.run.State())
	}
	if !f.run.IsAcceptingReactions() {
		t.Error("run should accept reactions once the stimulus is shown")
	}
	if got := f.run.DisplayedAt().Sub(f.run.StartedAt()); got != testDelay {
		t.Errorf("stimulus shown %v after start, expected %v", got, testDelay)
	}

	f.clock.Advance(50 * time.Millisecond)
	f.run.React(f.clock.Now())

	o, ok := f.run.Outcome()
	if !ok {
		t.Fatal("Outcome() not available after reaction")
	}
	s, isSuccess := o.(Success)
	if !isSuccess {
		t.Fatalf("outcome = %T, expected Success", o)
	}
	if s.ReactionTime != 50*time.Millisecond {
		t.Errorf("ReactionTime = %v, expected 50ms", s.ReactionTime)
	}
	if s.ID != f.run.ID() {
		t.Errorf("outcome ID = %q, expected %q", s.ID, f.run.ID())
	}

	want := []string{"prepare", "start", "finish"}
	if got := f.port.Calls(); !equalCalls(got, want) {
		t.Errorf("port calls = %v, expected %v", got, want)
	}
	if f.run.IsRunning() || f.run.IsAcceptingReactions() {
		t.Error("finished run should be neither running nor accepting reactions")
	}
	if f.clock.Pending() != 0 {
		t.Errorf("%d timers still pending after success", f.clock.Pending())
	}
	if f.port.Signal().Err() == nil {
		t.Error("reaction signal should be aborted after success")
	}

	// The timeout must not fire any more.
	f.clock.Advance(time.Minute)
	if f.completed.Load() != 1 {
		t.Errorf("OnComplete called %d times, expected 1", f.completed.Load())
	}
	waitDone(t, f.run)
}

func TestRunTooSoonBeforeStimulus(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)

	f.clock.Advance(500 * time.Millisecond)
	f.run.React(f.clock.Now())

	o, ok := f.run.Outcome()
	if !ok {
		t.Fatal("Outcome() not available after premature reaction")
	}
	ts, isTooSoon := o.(TooSoon)
	if !isTooSoon {
		t.Fatalf("outcome = %T, expected TooSoon", o)
	}
	// 500ms into a 2000ms delay: 1500ms early.
	if ts.ReactionTime != -1500*time.Millisecond {
		t.Errorf("ReactionTime = %v, expected -1.5s", ts.ReactionTime)
	}

	f.clock.Advance(time.Minute)
	want := []string{"prepare", "error"}
	if got := f.port.Calls(); !equalCalls(got, want) {
		t.Errorf("port calls = %v, expected %v", got, want)
	}
	if f.completed.Load() != 1 {
		t.Errorf("OnComplete called %d times, expected 1", f.completed.Load())
	}
	if !f.run.ReactedAt().Equal(f.run.StartedAt().Add(500 * time.Millisecond)) {
		t.Errorf("ReactedAt() = %v, expected start+500ms", f.run.ReactedAt())
	}
}

func TestRunReactionWhileStimulusIsShown(t *testing.T) {
	f := newRunFixture(t)
	f.port.onStart = func() {
		// Input resolves before Port.Start returns: still too soon.
		f.run.React(f.clock.Now())
	}
	f.start(t)

	f.clock.Advance(testDelay)

	if f.run.State() != StateTooSoon {
		t.Fatalf("State() = %v, expected too-soon", f.run.State())
	}
	o, _ := f.run.Outcome()
	if ts, ok := o.(TooSoon); !ok || ts.ReactionTime != 0 {
		t.Errorf("outcome = %#v, expected TooSoon with 0 reaction time", o)
	}
	if !f.run.DisplayedAt().IsZero() {
		t.Error("DisplayedAt() should stay unset when the reaction won")
	}
	if f.clock.Pending() != 0 {
		t.Errorf("timeout scheduled after a premature reaction: %d pending", f.clock.Pending())
	}

	f.clock.Advance(time.Minute)
	want := []string{"prepare", "start", "error"}
	if got := f.port.Calls(); !equalCalls(got, want) {
		t.Errorf("port calls = %v, expected %v", got, want)
	}
	if f.completed.Load() != 1 {
		t.Errorf("OnComplete called %d times, expected 1", f.completed.Load())
	}
}

func TestRunInputStampedBeforeStimulus(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)
	f.clock.Advance(testDelay)

	// Input captured 10ms before the stimulus but delivered afterwards.
	f.run.React(f.run.DisplayedAt().Add(-10 * time.Millisecond))

	o, _ := f.run.Outcome()
	if _, ok := o.(TooSoon); !ok {
		t.Fatalf("outcome = %T, expected TooSoon", o)
	}
}

func TestRunTimeout(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)

	f.clock.Advance(testDelay)
	f.clock.Advance(testTimeout)

	if f.run.State() != StateTimedOut {
		t.Fatalf("State() = %v, expected timed-out", f.run.State())
	}
	o, ok := f.run.Outcome()
	if !ok {
		t.Fatal("Outcome() not available after timeout")
	}
	if _, isTimeout := o.(TimedOut); !isTimeout {
		t.Fatalf("outcome = %T, expected TimedOut", o)
	}
	if got := f.run.TimedOutAt().Sub(f.run.DisplayedAt()); got != testTimeout {
		t.Errorf("timed out %v after display, expected %v", got, testTimeout)
	}
	if f.port.Signal().Err() == nil {
		t.Error("reaction signal should be aborted on timeout")
	}

	// A late input has no effect.
	f.run.React(f.clock.Now())

	want := []string{"prepare", "start", "timeout"}
	if got := f.port.Calls(); !equalCalls(got, want) {
		t.Errorf("port calls = %v, expected %v", got, want)
	}
	if f.completed.Load() != 1 {
		t.Errorf("OnComplete called %d times, expected 1", f.completed.Load())
	}
	if f.run.IsRunning() {
		t.Error("timed out run should not be running")
	}
}

func TestRunReactionThroughSignal(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)
	f.clock.Advance(testDelay)
	f.clock.Advance(120 * time.Millisecond)

	f.port.Reaction() <- f.clock.Now()

	o, err := f.run.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	s, ok := o.(Success)
	if !ok {
		t.Fatalf("outcome = %T, expected Success", o)
	}
	if s.ReactionTime != 120*time.Millisecond {
		t.Errorf("ReactionTime = %v, expected 120ms", s.ReactionTime)
	}
}

func TestRunCancel(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)

	if !f.run.Cancel() {
		t.Fatal("Cancel() on live run should return true")
	}
	if f.run.Cancel() {
		t.Error("second Cancel() should return false")
	}
	if f.run.IsRunning() {
		t.Error("canceled run should not be running")
	}
	if f.port.Signal().Err() == nil {
		t.Error("reaction signal should be aborted on cancel")
	}

	f.clock.Advance(time.Minute)
	f.run.React(f.clock.Now())

	want := []string{"prepare", "cancel"}
	if got := f.port.Calls(); !equalCalls(got, want) {
		t.Errorf("port calls = %v, expected %v", got, want)
	}
	if f.completed.Load() != 0 {
		t.Errorf("OnComplete called %d times for canceled run, expected 0", f.completed.Load())
	}
	if _, ok := f.run.Outcome(); ok {
		t.Error("canceled run should have no outcome")
	}
	if _, err := f.run.Wait(context.Background()); !errors.Is(err, ErrCanceled) {
		t.Errorf("Wait() error = %v, expected ErrCanceled", err)
	}
}

func TestRunCancelAfterStimulus(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)
	f.clock.Advance(testDelay)

	f.run.Cancel()
	f.clock.Advance(testTimeout)

	if f.run.State() != StateCanceled {
		t.Errorf("State() = %v, expected canceled", f.run.State())
	}
	if f.completed.Load() != 0 {
		t.Errorf("OnComplete called %d times, expected 0", f.completed.Load())
	}
}

func TestRunCancelAfterFinish(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)
	f.clock.Advance(testDelay)
	f.run.React(f.clock.Now())

	if f.run.Cancel() {
		t.Error("Cancel() after a terminal state should return false")
	}
	for _, c := range f.port.Calls() {
		if c == "cancel" {
			t.Error("Port.Cancel called for a finished run")
		}
	}
}

func TestRunStartTwice(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)

	if err := f.run.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, expected ErrAlreadyStarted", err)
	}
}

func TestRunStartAfterCancel(t *testing.T) {
	f := newRunFixture(t)
	f.run.Cancel()

	if err := f.run.Start(context.Background()); !errors.Is(err, ErrCanceled) {
		t.Errorf("Start() after Cancel error = %v, expected ErrCanceled", err)
	}
	if len(f.port.Calls()) != 0 {
		t.Errorf("port touched by a run canceled before start: %v", f.port.Calls())
	}
}

func TestRunPortFaults(t *testing.T) {
	boom := errors.New("boom")

	t.Run("prepare", func(t *testing.T) {
		f := newRunFixture(t)
		f.port.prepareErr = boom

		err := f.run.Start(context.Background())
		if !errors.Is(err, boom) {
			t.Fatalf("Start() error = %v, expected boom", err)
		}
		if f.run.State() != StateFaulted {
			t.Errorf("State() = %v, expected faulted", f.run.State())
		}
		if _, werr := f.run.Wait(context.Background()); !errors.Is(werr, boom) {
			t.Errorf("Wait() error = %v, expected boom", werr)
		}
	})

	t.Run("start", func(t *testing.T) {
		f := newRunFixture(t)
		f.port.startErr = boom
		f.start(t)
		f.clock.Advance(testDelay)

		if f.run.State() != StateFaulted {
			t.Fatalf("State() = %v, expected faulted", f.run.State())
		}
		if !errors.Is(f.run.Err(), boom) {
			t.Errorf("Err() = %v, expected boom", f.run.Err())
		}
		if f.clock.Pending() != 0 {
			t.Errorf("%d timers pending after fault", f.clock.Pending())
		}
	})

	t.Run("error phase", func(t *testing.T) {
		f := newRunFixture(t)
		f.port.errorErr = boom
		f.start(t)
		f.run.React(f.clock.Now())

		if f.run.State() != StateFaulted {
			t.Fatalf("State() = %v, expected faulted", f.run.State())
		}
		if f.completed.Load() != 0 {
			t.Errorf("OnComplete called %d times for faulted run, expected 0", f.completed.Load())
		}
	})
}

func TestRunStartContextCanceled(t *testing.T) {
	f := newRunFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.run.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, expected context.Canceled", err)
	}
}

func TestRunExactlyOnceUnderRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newRunFixture(t)
		f.start(t)
		f.clock.Advance(testDelay)

		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.run.React(f.clock.Now())
			}()
		}
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.clock.Advance(testTimeout)
		}()
		go func() {
			defer wg.Done()
			f.run.Cancel()
		}()
		wg.Wait()

		n := f.completed.Load()
		switch f.run.State() {
		case StateSuccess, StateTimedOut:
			if n != 1 {
				t.Fatalf("state %v completed %d times, expected 1", f.run.State(), n)
			}
		case StateCanceled:
			if n != 0 {
				t.Fatalf("canceled run completed %d times, expected 0", n)
			}
		default:
			t.Fatalf("unexpected state %v", f.run.State())
		}
	}
}

func TestRunFaultAfterClaimDeliversNothing(t *testing.T) {
	boom := errors.New("boom")
	f := newRunFixture(t)
	f.start(t)

	// A too-soon reaction claims the run, then a concurrent phase faults it
	// before the reaction delivers.
	f.run.mu.Lock()
	f.run.state = StateTooSoon
	f.run.outcome = TooSoon{ID: f.run.id, ReactionTime: -testDelay}
	f.run.mu.Unlock()
	f.run.fail(boom)
	f.run.complete()

	if f.completed.Load() != 0 {
		t.Errorf("OnComplete called %d times for faulted run, expected 0", f.completed.Load())
	}
	if o, ok := f.run.Outcome(); ok {
		t.Errorf("Outcome() = %#v, expected none", o)
	}
	if _, err := f.run.Wait(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, expected boom", err)
	}
}

func TestRunStimulusFaultRacesReaction(t *testing.T) {
	boom := errors.New("boom")

	for i := range 200 {
		f := newRunFixture(t)
		f.port.startErr = boom
		f.port.onStart = func() {
			go f.run.React(f.clock.Now())
		}
		f.start(t)
		f.clock.Advance(testDelay)
		waitDone(t, f.run)

		o, ok := f.run.Outcome()
		switch state := f.run.State(); state {
		case StateTooSoon:
			if !ok || o == nil {
				t.Fatalf("iteration %d: too-soon run has no outcome", i)
			}
			if f.completed.Load() != 1 {
				t.Fatalf("iteration %d: OnComplete called %d times, expected 1", i, f.completed.Load())
			}
		case StateFaulted:
			if ok {
				t.Fatalf("iteration %d: faulted run reported %#v", i, o)
			}
			if f.completed.Load() != 0 {
				t.Fatalf("iteration %d: OnComplete called for faulted run", i)
			}
		default:
			t.Fatalf("iteration %d: State() = %v, expected too-soon or faulted", i, state)
		}
	}
}

func TestRunCancelDuringPrepareAbortsSignal(t *testing.T) {
	f := newRunFixture(t)
	var aborted bool
	f.port.onPrepare = func(ctx context.Context) {
		f.run.Cancel()
		aborted = ctx.Err() != nil
	}

	if err := f.run.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !aborted {
		t.Error("Cancel during Prepare left the reaction signal live")
	}
	if f.run.State() != StateCanceled {
		t.Errorf("State() = %v, expected canceled", f.run.State())
	}
	waitDone(t, f.run)
}

func TestRunPortCallsCarryRunID(t *testing.T) {
	f := newRunFixture(t)
	f.start(t)
	f.clock.Advance(testDelay)
	f.run.React(f.clock.Now())

	other := newRunFixture(t)
	other.start(t)
	other.run.Cancel()

	for _, fx := range []*runFixture{f, other} {
		ids := fx.port.RunIDs()
		if len(ids) == 0 {
			t.Fatal("no port calls recorded")
		}
		for i, id := range ids {
			if id != fx.run.ID() {
				t.Errorf("port call %d carried run id %q, expected %q", i, id, fx.run.ID())
			}
		}
	}
}
