// Package playback gates the engine's start/stop toggle behind the audio
// capture permission.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/padsynth/internal/engine"
)

// refreshTimeout bounds the indicator read after a cancelled toggle.
const refreshTimeout = 2 * time.Second

// State is the coordinator's position in the toggle protocol.
type State int32

const (
	Idle State = iota
	AwaitingPermission
	Toggling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingPermission:
		return "awaiting_permission"
	case Toggling:
		return "toggling"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Outcome says how a toggle request ended.
type Outcome int

const (
	// OutcomeToggled: the engine was started or stopped.
	OutcomeToggled Outcome = iota + 1
	// OutcomeDenied: permission was refused; the engine was not called.
	OutcomeDenied
	// OutcomeDropped: another toggle was in flight; this one did nothing.
	OutcomeDropped
	// OutcomeFailed: the engine faulted or the wait was cancelled.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeToggled:
		return "toggled"
	case OutcomeDenied:
		return "denied"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Engine is the part of the engine a toggle needs. *engine.Handle and
// *engine.Dispatcher implement it.
type Engine interface {
	IsPlaying(ctx context.Context) (bool, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Result is the completion of one toggle request.
type Result struct {
	Outcome Outcome
	// Playing is the indicator value after the request.
	Playing bool
	Err     error
}

// Coordinator runs the permission-gated toggle protocol.
//
// At most one toggle is in flight. A request arriving while another is
// awaiting permission or toggling returns OutcomeDropped immediately.
//
// Thread-safety: all methods are safe for concurrent use.
type Coordinator struct {
	engine   Engine
	provider PermissionProvider
	logger   *slog.Logger

	state      atomic.Int32
	permission atomic.Int32
	playing    atomic.Bool

	mu        sync.Mutex
	waiter    grant // registered while AwaitingPermission, nil otherwise
	lastFault error
	onPlaying func(bool)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPermission sets the initial permission state.
func WithPermission(p PermissionState) Option {
	return func(c *Coordinator) {
		c.permission.Store(int32(p))
	}
}

// WithPlayingObserver registers fn to receive every refresh of the playing
// indicator.
func WithPlayingObserver(fn func(playing bool)) Option {
	return func(c *Coordinator) {
		c.onPlaying = fn
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(e Engine, provider PermissionProvider, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine:   e,
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Toggle starts the engine if it is stopped and stops it if it is playing,
// asking for permission first when it has not been granted.
//
// The returned error is non-nil only with OutcomeFailed: an *engine.Fault or
// the context error. When ctx ends during the engine call, the indicator is
// re-read so it follows whatever the engine ended up doing.
func (c *Coordinator) Toggle(ctx context.Context) (Outcome, error) {
	if !c.state.CompareAndSwap(int32(Idle), int32(AwaitingPermission)) {
		c.logger.Debug("toggle dropped: request in flight", "state", c.State().String())
		return OutcomeDropped, nil
	}
	defer c.state.Store(int32(Idle))

	if c.Permission() != PermissionGranted {
		granted, err := c.awaitPermission(ctx)
		if err != nil {
			return OutcomeFailed, err
		}
		if !granted {
			c.logger.Info("toggle abandoned: permission denied")
			return OutcomeDenied, nil
		}
	}

	c.state.Store(int32(Toggling))
	if err := c.flip(ctx); err != nil {
		if ctx.Err() != nil {
			// A queued start or stop still runs after the caller gives up.
			// Read back what it did instead of trusting the old indicator.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
			c.Refresh(rctx)
			cancel()
			return OutcomeFailed, err
		}
		// The faulted instance was discarded, so nothing is playing.
		c.recordFault(err)
		c.setPlaying(false)
		return OutcomeFailed, err
	}
	c.Refresh(ctx)
	return OutcomeToggled, nil
}

// ToggleAsync runs Toggle on its own goroutine. The channel receives exactly
// one Result and is then closed.
func (c *Coordinator) ToggleAsync(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		outcome, err := c.Toggle(ctx)
		out <- Result{Outcome: outcome, Playing: c.Playing(), Err: err}
	}()
	return out
}

// PermissionResult records the platform's answer and wakes a waiting toggle.
// Answers that arrive when no toggle is waiting only update the state.
func (c *Coordinator) PermissionResult(granted bool) {
	if granted {
		c.permission.Store(int32(PermissionGranted))
	} else {
		c.permission.Store(int32(PermissionDenied))
	}

	c.mu.Lock()
	w := c.waiter
	c.waiter = nil
	c.mu.Unlock()

	if w != nil {
		w.resolve(granted)
	}
}

// Refresh re-reads the engine's playing state into the indicator. A query
// failure leaves the indicator off, since the faulted instance is gone.
func (c *Coordinator) Refresh(ctx context.Context) bool {
	playing, err := c.engine.IsPlaying(ctx)
	if err != nil {
		c.recordFault(err)
		playing = false
	}
	c.setPlaying(playing)
	return playing
}

// State returns the current protocol state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Permission returns the last known permission answer.
func (c *Coordinator) Permission() PermissionState {
	return PermissionState(c.permission.Load())
}

// Playing returns the playing indicator.
func (c *Coordinator) Playing() bool {
	return c.playing.Load()
}

// LastFault returns the most recent engine fault seen by a toggle, or nil.
func (c *Coordinator) LastFault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFault
}

func (c *Coordinator) awaitPermission(ctx context.Context) (bool, error) {
	g := newGrant()
	c.mu.Lock()
	c.waiter = g
	c.mu.Unlock()

	c.logger.Debug("requesting permission", "permission", c.Permission().String())
	c.provider.RequestCapability()

	select {
	case granted := <-g:
		return granted, nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.waiter == g {
			c.waiter = nil
		}
		c.mu.Unlock()
		return false, ctx.Err()
	}
}

func (c *Coordinator) flip(ctx context.Context) error {
	playing, err := c.engine.IsPlaying(ctx)
	if err != nil {
		return err
	}
	if playing {
		c.logger.Info("stopping playback")
		return c.engine.Stop(ctx)
	}
	c.logger.Info("starting playback")
	return c.engine.Start(ctx)
}

func (c *Coordinator) recordFault(err error) {
	if !engine.IsFault(err) && !errors.Is(err, engine.ErrDispatcherClosed) {
		return
	}
	c.mu.Lock()
	c.lastFault = err
	c.mu.Unlock()
}

func (c *Coordinator) setPlaying(v bool) {
	c.playing.Store(v)
	if c.onPlaying != nil {
		c.onPlaying(v)
	}
}
