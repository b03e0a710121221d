package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-reaction/internal/reaction"
)

// ErrClosed is returned by phase calls made after the program has exited.
var ErrClosed = errors.New("tui: program closed")

// Sender delivers messages to a running Bubble Tea program.
// *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Port implements reaction.Port on top of a Bubble Tea program. Phase calls
// are turned into messages; phases that report a timestamp block until the
// model acknowledges the message.
type Port struct {
	mu      sync.Mutex
	sender  Sender
	pending []tea.Msg

	closed    chan struct{}
	closeOnce sync.Once
}

var _ reaction.Port = (*Port)(nil)

// NewPort creates a port with no program attached. Messages posted before
// Attach are delivered once the program starts.
func NewPort() *Port {
	return &Port{closed: make(chan struct{})}
}

// Attach connects the port to a program. It must be called before the
// program runs.
func (p *Port) Attach(s Sender) {
	p.mu.Lock()
	p.sender = s
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(pending) > 0 {
		// Send blocks until the program's event loop is running.
		go func() {
			for _, msg := range pending {
				s.Send(msg)
			}
		}()
	}
}

// Close unblocks every pending and future phase call with ErrClosed.
func (p *Port) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

func (p *Port) post(msg tea.Msg) {
	p.mu.Lock()
	s := p.sender
	if s == nil {
		p.pending = append(p.pending, msg)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	select {
	case <-p.closed:
		return
	default:
	}
	s.Send(msg)
}

// request posts a message carrying an ack channel and waits for the model
// to report when the phase was shown.
func (p *Port) request(ctx context.Context, msg func(ack chan<- time.Time) tea.Msg) (time.Time, error) {
	ack := make(chan time.Time, 1)
	p.post(msg(ack))

	select {
	case at := <-ack:
		return at, nil
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case <-p.closed:
		return time.Time{}, ErrClosed
	}
}

// Init shows the welcome screen.
func (p *Port) Init() {
	p.post(initMsg{})
}

// Prepare shows the "wait for green" screen and arms the model's input
// listener. The listener stops delivering once ctx is done.
func (p *Port) Prepare(ctx context.Context) (reaction.Prepared, error) {
	l := &listener{ctx: ctx, ch: make(chan time.Time, 1)}
	at, err := p.request(ctx, func(ack chan<- time.Time) tea.Msg {
		return prepareMsg{run: runOf(ctx), ack: ack, listener: l}
	})
	if err != nil {
		return reaction.Prepared{}, err
	}
	return reaction.Prepared{At: at, Reaction: l.ch}, nil
}

// Start shows the stimulus.
func (p *Port) Start(ctx context.Context) (time.Time, error) {
	return p.request(ctx, func(ack chan<- time.Time) tea.Msg {
		return phaseMsg{run: runOf(ctx), screen: screenStimulus, ack: ack}
	})
}

// Error shows the "too soon" screen.
func (p *Port) Error(ctx context.Context) (time.Time, error) {
	return p.request(ctx, func(ack chan<- time.Time) tea.Msg {
		return phaseMsg{run: runOf(ctx), screen: screenTooSoon, ack: ack}
	})
}

// Timeout shows the "too slow" screen.
func (p *Port) Timeout(ctx context.Context) (time.Time, error) {
	return p.request(ctx, func(ack chan<- time.Time) tea.Msg {
		return phaseMsg{run: runOf(ctx), screen: screenTooSlow, ack: ack}
	})
}

// Finish shows the measured reaction time.
func (p *Port) Finish(ctx context.Context, reactionTime time.Duration) {
	p.post(finishMsg{run: runOf(ctx), reactionTime: reactionTime})
}

// Cancel disarms the listener of an abandoned run.
func (p *Port) Cancel(ctx context.Context) {
	p.post(cancelMsg{run: runOf(ctx)})
}

// HistoryUpdate refreshes the history table.
func (p *Port) HistoryUpdate(h reaction.HistoryView) {
	p.post(historyMsg{view: h})
}

// listener forwards the first qualifying input to a run.
type listener struct {
	ctx context.Context
	ch  chan time.Time
}

// deliver reports whether the input was handed to the run.
func (l *listener) deliver(at time.Time) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.ch <- at:
		return true
	default:
		return false
	}
}

// runOf returns the run id carried by a port call's context, or "".
func runOf(ctx context.Context) string {
	id, _ := reaction.RunIDFromContext(ctx)
	return id
}

type initMsg struct{}

// Messages carry the id of the run that sent them; the model drops the
// effects of any run other than the one it last prepared.

type prepareMsg struct {
	run      string
	ack      chan<- time.Time
	listener *listener
}

type phaseMsg struct {
	run    string
	screen screen
	ack    chan<- time.Time
}

type finishMsg struct {
	run          string
	reactionTime time.Duration
}

type cancelMsg struct {
	run string
}

type historyMsg struct {
	view reaction.HistoryView
}

type startErrMsg struct {
	err error
}
