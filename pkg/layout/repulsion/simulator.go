package repulsion

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// RunStats reports how a live run ended.
type RunStats struct {
	Token     uint64
	Steps     int
	Converged bool
	Cancelled bool
	Duration  time.Duration
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger used for run lifecycle messages.
func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers a callback invoked once per finished run, from the
// run's goroutine.
func WithObserver(fn func(RunStats)) Option {
	return func(s *Simulator) { s.observer = fn }
}

// WithStartObserver registers a callback invoked when a run begins, from the
// run's goroutine, with the run token and the number of entities.
func WithStartObserver(fn func(token uint64, entities int)) Option {
	return func(s *Simulator) { s.onStart = fn }
}

// Simulator runs at most one repulsion simulation at a time against a Board.
// Iterations are cooperative: one is computed per frame and cancellation is
// observed only between iterations, so an iteration in progress always
// completes.
type Simulator struct {
	cfg      Config
	frames   Frames
	logger   *log.Logger
	observer func(RunStats)
	onStart  func(uint64, int)

	token atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulator creates a simulator. A nil frames source uses ticker frames at
// DefaultFPS.
func NewSimulator(cfg Config, frames Frames, opts ...Option) *Simulator {
	if frames == nil {
		frames = NewTickerFrames(DefaultFPS)
	}
	s := &Simulator{
		cfg:    cfg.WithDefaults(),
		frames: frames,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the simulation parameters in use.
func (s *Simulator) Config() Config { return s.cfg }

// Start cancels any run in flight, waits for it to finish its current
// iteration, and starts a new run from iteration 0 against b. It returns the
// new run's token. The run ends on convergence, budget exhaustion, Stop,
// another Start, ctx cancellation, or an ID-set change on b.
func (s *Simulator) Start(ctx context.Context, b *Board) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	token := s.token.Add(1)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(runCtx, b, token, done)
	return token
}

// Stop cancels the run in flight, if any, and waits for it to end.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Wait blocks until the current run, if any, ends on its own.
func (s *Simulator) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a run is in flight.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Token returns the token of the most recently started run.
func (s *Simulator) Token() uint64 { return s.token.Load() }

// stopLocked must be called with s.mu held.
func (s *Simulator) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.token.Add(1)
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Simulator) run(ctx context.Context, b *Board, token uint64, done chan struct{}) {
	defer close(done)

	start := time.Now()
	stats := RunStats{Token: token}
	defer func() {
		stats.Duration = time.Since(start)
		s.logger.Debug("simulation finished",
			"token", token,
			"steps", stats.Steps,
			"converged", stats.Converged,
			"cancelled", stats.Cancelled,
			"duration", stats.Duration)
		if s.observer != nil {
			s.observer(stats)
		}
	}()

	n := b.Len()
	s.logger.Debug("simulation started", "token", token, "entities", n)
	if s.onStart != nil {
		s.onStart(token, n)
	}

	for step := 0; step < s.cfg.MaxSteps; step++ {
		if err := s.frames.Wait(ctx); err != nil {
			stats.Cancelled = true
			return
		}
		if s.token.Load() != token {
			stats.Cancelled = true
			return
		}

		snapshot, generation := b.Snapshot()
		deltas, overlapped := Displacements(snapshot, step, s.cfg)
		if !overlapped {
			stats.Converged = true
			return
		}
		if !b.apply(generation, snapshot, deltas) {
			stats.Cancelled = true
			return
		}
		stats.Steps++
	}
}

// Watch starts s on b and restarts it from iteration 0 every time b's ID
// set changes. Drags and same-set replacements never restart it. When ctx
// is done the simulator is stopped and Watch returns.
func Watch(ctx context.Context, b *Board, s *Simulator) {
	s.Start(ctx, b)
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-b.Changes():
			s.Start(ctx, b)
		}
	}
}
