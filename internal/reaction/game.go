package reaction

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-reaction/internal/clock"
)

// Recorder receives every finished outcome after History has been updated.
// The session journal implements it.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Game owns the configuration, the single live Run and the History.
type Game struct {
	cfg      Config
	port     Port
	clock    clock.Clock
	logger   *log.Logger
	recorder Recorder

	mu      sync.Mutex
	rng     *rand.Rand
	current *Run
	history *History
}

// Option customizes a Game.
type Option func(*Game)

// WithClock sets the clock used to schedule runs.
func WithClock(c clock.Clock) Option {
	return func(g *Game) { g.clock = c }
}

// WithSeed seeds the delay generator. Zero means seed from the current time.
func WithSeed(seed int64) Option {
	return func(g *Game) {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		g.rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	}
}

// WithRand sets the delay generator directly.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithLogger sets the logger shared by the game and its runs.
func WithLogger(l *log.Logger) Option {
	return func(g *Game) { g.logger = l }
}

// WithRecorder sets a sink for finished outcomes.
func WithRecorder(r Recorder) Option {
	return func(g *Game) { g.recorder = r }
}

// NewGame validates cfg and creates a game that drives port.
// It calls port.Init before returning.
func NewGame(cfg Config, port Port, opts ...Option) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if port == nil {
		return nil, errors.New("reaction: nil port")
	}

	g := &Game{
		cfg:     cfg,
		port:    port,
		clock:   clock.System,
		logger:  log.New(io.Discard),
		history: NewHistory(cfg.MaxHistorySize),
	}
	WithSeed(0)(g)
	for _, opt := range opts {
		opt(g)
	}

	port.Init()
	return g, nil
}

// Config returns the game configuration.
func (g *Game) Config() Config {
	return g.cfg
}

// Start cancels the live run, if any, and starts a new one with a random
// delay. The returned run's Done/Wait report its completion.
func (g *Game) Start(ctx context.Context) (*Run, error) {
	g.mu.Lock()
	prev := g.current
	run := NewRun(RunParams{
		Delay:      g.randomDelay(),
		Timeout:    g.cfg.Timeout,
		Port:       g.port,
		Clock:      g.clock,
		Logger:     g.logger,
		OnComplete: g.complete,
	})
	g.current = run
	g.mu.Unlock()

	if prev != nil && prev.IsRunning() {
		prev.Cancel()
	}

	if err := run.Start(ctx); err != nil {
		return run, err
	}
	return run, nil
}

// Current returns the most recently started run, or nil.
func (g *Game) Current() *Run {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// History returns a copy of the recorded outcomes and their average.
func (g *Game) History() HistoryView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.history.View()
}

// Close cancels the live run, if any.
func (g *Game) Close() {
	if run := g.Current(); run != nil && run.IsRunning() {
		run.Cancel()
	}
}

// complete is every run's OnComplete: record the outcome, then tell the port.
func (g *Game) complete(run *Run) {
	o, ok := run.Outcome()
	if !ok {
		return
	}

	g.mu.Lock()
	g.history.Add(o)
	view := g.history.View()
	g.mu.Unlock()

	g.logger.Debug("history updated", "run", o.RunID(), "status", o.Status(), "size", len(view.Outcomes))
	g.port.HistoryUpdate(view)

	if g.recorder != nil {
		if err := g.recorder.Record(context.Background(), o); err != nil {
			g.logger.Warn("could not record outcome", "run", o.RunID(), "error", err)
		}
	}
}

// randomDelay draws a whole number of milliseconds uniformly from
// [MinDelay, MaxDelay]. Caller holds mu.
func (g *Game) randomDelay() time.Duration {
	minMs := g.cfg.MinDelay.Milliseconds()
	if time.Duration(minMs)*time.Millisecond < g.cfg.MinDelay {
		minMs++
	}
	maxMs := g.cfg.MaxDelay.Milliseconds()
	if minMs > maxMs {
		return g.cfg.MinDelay
	}
	return time.Duration(minMs+g.rng.Int64N(maxMs-minMs+1)) * time.Millisecond
}
