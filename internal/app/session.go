// Package app wires the engine handle, touch routing, playback and the
// control panel into one session with a host lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/padsynth/internal/controls"
	"github.com/roach88/padsynth/internal/curve"
	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/playback"
	"github.com/roach88/padsynth/internal/synth"
	"github.com/roach88/padsynth/internal/touch"
)

// Session owns one engine handle and everything that drives it.
//
// Every engine call goes through a single Dispatcher, so touch updates,
// slider changes and playback toggles reach the engine in the order they
// were issued. Run must be running for any call to complete.
//
// Thread-safety model:
//   - Touch: one goroutine at a time (the router keeps unsynchronized slot state)
//   - everything else: safe from any goroutine
type Session struct {
	handle      *engine.Handle
	dispatcher  *engine.Dispatcher
	router      *touch.Router
	coordinator *playback.Coordinator
	panel       *controls.Panel

	mu            sync.Mutex
	width, height float32

	logger *slog.Logger
}

type options struct {
	logger     *slog.Logger
	observer   func(engine.Call)
	clock      *engine.Clock
	permission playback.PermissionState
	freq       curve.Range
	positions  *[controls.SliderCount]float64
	width      float32
	height     float32
	onPlaying  func(bool)
	onError    func(engine.Op, error)
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver receives every native call, including create and destroy.
func WithObserver(fn func(engine.Call)) Option {
	return func(o *options) { o.observer = fn }
}

// WithClock stamps observed calls from c.
func WithClock(c *engine.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithPermission sets the permission state known at startup.
func WithPermission(p playback.PermissionState) Option {
	return func(o *options) { o.permission = p }
}

// WithFrequencyRange sets the range of the frequency slider.
func WithFrequencyRange(r curve.Range) Option {
	return func(o *options) { o.freq = r }
}

// WithSliders sets the initial slider positions.
func WithSliders(pos [controls.SliderCount]float64) Option {
	return func(o *options) { o.positions = &pos }
}

// WithScreenSize sets the input surface size reported on Resume.
func WithScreenSize(width, height float32) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithPlayingObserver is called whenever the playing indicator changes.
func WithPlayingObserver(fn func(playing bool)) Option {
	return func(o *options) { o.onPlaying = fn }
}

// WithErrorHook receives failures of fire-and-forget engine calls.
func WithErrorHook(fn func(engine.Op, error)) Option {
	return func(o *options) { o.onError = fn }
}

// New builds a session over native. No engine instance exists until Resume
// or the first call that needs one.
func New(native engine.Native, provider playback.PermissionProvider, opts ...Option) *Session {
	o := options{
		logger: slog.Default(),
		freq:   curve.Frequency,
		width:  synth.DefaultWidth,
		height: synth.DefaultHeight,
	}
	for _, opt := range opts {
		opt(&o)
	}

	hopts := []engine.HandleOption{
		engine.WithParameterNames(synth.ParameterNames),
		engine.WithLogger(o.logger),
	}
	if o.observer != nil {
		hopts = append(hopts, engine.WithObserver(o.observer))
	}
	if o.clock != nil {
		hopts = append(hopts, engine.WithClock(o.clock))
	}
	handle := engine.NewHandle(native, hopts...)

	dopts := []engine.DispatcherOption{engine.WithDispatcherLogger(o.logger)}
	if o.onError != nil {
		dopts = append(dopts, engine.WithErrorHook(o.onError))
	}
	d := engine.NewDispatcher(handle, dopts...)

	copts := []playback.Option{
		playback.WithPermission(o.permission),
		playback.WithLogger(o.logger),
	}
	if o.onPlaying != nil {
		copts = append(copts, playback.WithPlayingObserver(o.onPlaying))
	}

	popts := []controls.Option{controls.WithFrequencyRange(o.freq)}
	if o.positions != nil {
		popts = append(popts, controls.WithPositions(*o.positions))
	}

	return &Session{
		handle:      handle,
		dispatcher:  d,
		router:      touch.NewRouter(d, touch.WithLogger(o.logger)),
		coordinator: playback.NewCoordinator(d, provider, copts...),
		panel:       controls.NewPanel(d, popts...),
		width:       o.width,
		height:      o.height,
		logger:      o.logger,
	}
}

// Run executes engine calls until ctx is cancelled or Close is called.
func (s *Session) Run(ctx context.Context) error {
	return s.dispatcher.Run(ctx)
}

// Close stops accepting engine calls. Run returns once queued calls finish.
func (s *Session) Close() {
	s.dispatcher.Close()
}

// Resume brings the session back to the foreground: it ensures an engine
// exists, reports the surface size, re-applies every slider and refreshes
// the playing indicator. Calls queued before Resume run first.
func (s *Session) Resume(ctx context.Context) error {
	if err := s.dispatcher.Flush(ctx); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if err := s.handle.EnsureCreated(ctx); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	s.mu.Lock()
	width, height := s.width, s.height
	s.mu.Unlock()

	s.router.Resize(width, height)
	s.panel.Apply()
	playing := s.coordinator.Refresh(ctx)
	s.logger.Debug("session resumed", "generation", s.handle.Generation(), "playing", playing)
	return nil
}

// Destroy releases the engine after every queued call has run. The playing
// indicator keeps its last value until the next Resume or toggle.
func (s *Session) Destroy(ctx context.Context) error {
	if err := s.dispatcher.Flush(ctx); err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	return s.handle.Destroy(ctx)
}

// Touch routes one touch event.
func (s *Session) Touch(ev touch.Event) error {
	return s.router.Handle(ev)
}

// Resize records and reports a new surface size.
func (s *Session) Resize(width, height float32) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
	s.router.Resize(width, height)
}

// SetSlider moves one control slider.
func (s *Session) SetSlider(i int, pos float64) error {
	return s.panel.SetSlider(i, pos)
}

// Toggle flips playback, asking for permission if needed.
func (s *Session) Toggle(ctx context.Context) (playback.Outcome, error) {
	return s.coordinator.Toggle(ctx)
}

// ToggleAsync runs Toggle in the background.
func (s *Session) ToggleAsync(ctx context.Context) <-chan playback.Result {
	return s.coordinator.ToggleAsync(ctx)
}

// PermissionResult delivers the platform's permission answer.
func (s *Session) PermissionResult(granted bool) {
	s.coordinator.PermissionResult(granted)
}

// Flush waits until every queued engine call has run.
func (s *Session) Flush(ctx context.Context) error {
	return s.dispatcher.Flush(ctx)
}

func (s *Session) Handle() *engine.Handle             { return s.handle }
func (s *Session) Router() *touch.Router              { return s.router }
func (s *Session) Coordinator() *playback.Coordinator { return s.coordinator }
func (s *Session) Panel() *controls.Panel             { return s.panel }
