package reaction

import (
	"context"
	"sync"
	"time"

	"github.com/vovakirdan/tui-reaction/internal/clock"
)

// fakePort records every phase call and timestamps phases with a manual clock.
type fakePort struct {
	clock *clock.Manual

	// Optional hooks and failures, set before the run starts.
	onPrepare  func(ctx context.Context)
	onStart    func()
	prepareErr error
	startErr   error
	errorErr   error

	mu        sync.Mutex
	calls     []string
	runIDs    []string
	reaction  chan time.Time
	signal    context.Context
	finished  []time.Duration
	histories []HistoryView
}

func newFakePort(c *clock.Manual) *fakePort {
	return &fakePort{clock: c}
}

func (p *fakePort) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakePort) Init() { p.record("init") }

func (p *fakePort) Prepare(ctx context.Context) (Prepared, error) {
	p.checkRunID(ctx)
	p.record("prepare")
	if p.onPrepare != nil {
		p.onPrepare(ctx)
	}
	if p.prepareErr != nil {
		return Prepared{}, p.prepareErr
	}
	ch := make(chan time.Time, 1)
	p.mu.Lock()
	p.reaction = ch
	p.signal = ctx
	p.mu.Unlock()
	return Prepared{At: p.clock.Now(), Reaction: ch}, nil
}

func (p *fakePort) Start(ctx context.Context) (time.Time, error) {
	p.checkRunID(ctx)
	p.record("start")
	if p.onStart != nil {
		p.onStart()
	}
	return p.clock.Now(), p.startErr
}

func (p *fakePort) Error(ctx context.Context) (time.Time, error) {
	p.checkRunID(ctx)
	p.record("error")
	return p.clock.Now(), p.errorErr
}

func (p *fakePort) Timeout(ctx context.Context) (time.Time, error) {
	p.checkRunID(ctx)
	p.record("timeout")
	return p.clock.Now(), nil
}

func (p *fakePort) Finish(ctx context.Context, rt time.Duration) {
	p.checkRunID(ctx)
	p.record("finish")
	p.mu.Lock()
	p.finished = append(p.finished, rt)
	p.mu.Unlock()
}

func (p *fakePort) Cancel(ctx context.Context) {
	p.checkRunID(ctx)
	p.record("cancel")
}

func (p *fakePort) HistoryUpdate(h HistoryView) {
	p.record("history")
	p.mu.Lock()
	p.histories = append(p.histories, h)
	p.mu.Unlock()
}

// checkRunID records the run id carried by a phase context, or "" if none.
func (p *fakePort) checkRunID(ctx context.Context) {
	id, _ := RunIDFromContext(ctx)
	p.mu.Lock()
	p.runIDs = append(p.runIDs, id)
	p.mu.Unlock()
}

func (p *fakePort) RunIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.runIDs...)
}

func (p *fakePort) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePort) Signal() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signal
}

func (p *fakePort) Reaction() chan time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reaction
}

func (p *fakePort) Histories() []HistoryView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]HistoryView(nil), p.histories...)
}

func equalCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
