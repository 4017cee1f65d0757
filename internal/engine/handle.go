package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Call describes one completed interaction with the native engine.
// Handles report calls to an observer for tracing and recording.
type Call struct {
	Seq        int64
	Generation uint64
	Op         Op
	Result     Result
	Err        error
}

// Handle owns one native engine identity and serializes every call into it.
//
// The zero value is not usable; create handles with NewHandle. A Handle is
// safe for concurrent use.
type Handle struct {
	native Native

	// lock is a one-slot semaphore; waiting on it honours context cancellation.
	lock chan struct{}

	// guarded by lock
	id   ID
	live bool

	generation atomic.Uint64
	alive      atomic.Bool

	params   map[string]int
	clock    *Clock
	observer func(Call)
	logger   *slog.Logger
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithParameterNames registers names accepted by SetNamedParameter ops.
func WithParameterNames(names map[string]int) HandleOption {
	return func(h *Handle) {
		for name, idx := range names {
			h.params[name] = idx
		}
	}
}

// WithObserver registers fn to be called, under the handle lock, after every
// native call including create and destroy.
func WithObserver(fn func(Call)) HandleOption {
	return func(h *Handle) {
		h.observer = fn
	}
}

// WithClock sets the clock used to stamp observed calls.
func WithClock(c *Clock) HandleOption {
	return func(h *Handle) {
		h.clock = c
	}
}

// WithLogger sets the handle's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) HandleOption {
	return func(h *Handle) {
		h.logger = l
	}
}

// NewHandle returns a handle over native. No instance is created until the
// first EnsureCreated or Invoke.
func NewHandle(native Native, opts ...HandleOption) *Handle {
	h := &Handle{
		native: native,
		lock:   make(chan struct{}, 1),
		params: make(map[string]int),
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handle) acquire(ctx context.Context) error {
	select {
	case h.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) release() {
	<-h.lock
}

// EnsureCreated allocates a native instance if none is live.
func (h *Handle) EnsureCreated(ctx context.Context) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()
	return h.ensureCreatedLocked()
}

// Destroy releases the live instance, if any. Calling it again is a no-op.
// The instance identity is discarded even when the native release fails.
func (h *Handle) Destroy(ctx context.Context) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()

	if !h.live {
		return nil
	}
	gen := h.generation.Load()
	err := h.native.Destroy(h.id)
	h.forgetLocked()
	h.observe(Call{Generation: gen, Op: Op{Kind: KindDestroy}, Err: err})
	if err != nil {
		return &Fault{Code: FaultDestroy, Op: KindDestroy, Generation: gen, Err: err}
	}
	h.logger.Debug("engine destroyed", "generation", gen)
	return nil
}

// Invoke performs op against the live instance, creating one first if needed.
func (h *Handle) Invoke(ctx context.Context, op Op) (Result, error) {
	if err := op.validate(); err != nil {
		return Result{}, err
	}
	if err := h.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer h.release()

	if op.Kind == KindSetParameter && op.Param != "" {
		idx, ok := h.params[op.Param]
		if !ok {
			return Result{}, fmt.Errorf("%w: %q", ErrUnknownParameter, op.Param)
		}
		op.Index = idx
	}

	if err := h.ensureCreatedLocked(); err != nil {
		return Result{}, err
	}

	gen := h.generation.Load()
	res, err := h.apply(op)
	h.observe(Call{Generation: gen, Op: op, Result: res, Err: err})
	if err != nil {
		fault := &Fault{Code: FaultCall, Op: op.Kind, Generation: gen, Err: err}
		h.discardLocked(fault)
		return Result{}, fault
	}
	return res, nil
}

// Live reports whether an instance currently exists.
func (h *Handle) Live() bool {
	return h.alive.Load()
}

// Generation returns how many instances this handle has created.
func (h *Handle) Generation() uint64 {
	return h.generation.Load()
}

// Start starts audio playback.
func (h *Handle) Start(ctx context.Context) error {
	_, err := h.Invoke(ctx, Start())
	return err
}

// Stop stops audio playback.
func (h *Handle) Stop(ctx context.Context) error {
	_, err := h.Invoke(ctx, Stop())
	return err
}

// IsPlaying reports whether the engine is producing audio.
func (h *Handle) IsPlaying(ctx context.Context) (bool, error) {
	res, err := h.Invoke(ctx, QueryPlaying())
	return res.Playing, err
}

// SetParameter sets parameter index to value.
func (h *Handle) SetParameter(ctx context.Context, index int, value float32) error {
	_, err := h.Invoke(ctx, SetParameter(index, value))
	return err
}

func (h *Handle) ensureCreatedLocked() error {
	if h.live {
		return nil
	}
	id, err := h.native.Create()
	gen := h.generation.Load() + 1
	if err != nil {
		h.observe(Call{Generation: gen, Op: Op{Kind: KindCreate}, Err: err})
		return &Fault{Code: FaultCreate, Op: KindCreate, Generation: gen, Err: err}
	}
	h.id = id
	h.live = true
	h.generation.Store(gen)
	h.alive.Store(true)
	h.observe(Call{Generation: gen, Op: Op{Kind: KindCreate}})
	h.logger.Debug("engine created", "generation", gen, "id", uint64(id))
	return nil
}

// discardLocked drops a faulted instance so the next call starts fresh.
func (h *Handle) discardLocked(fault *Fault) {
	h.logger.Error("engine fault", "code", fault.Code, "op", fault.Op.String(),
		"generation", fault.Generation, "error", fault.Err)
	if err := h.native.Destroy(h.id); err != nil {
		h.logger.Warn("release of faulted engine failed", "generation", fault.Generation, "error", err)
	}
	h.forgetLocked()
	h.observe(Call{Generation: fault.Generation, Op: Op{Kind: KindDestroy}})
}

func (h *Handle) forgetLocked() {
	h.id = 0
	h.live = false
	h.alive.Store(false)
}

func (h *Handle) apply(op Op) (Result, error) {
	n, id := h.native, h.id
	switch op.Kind {
	case KindStart:
		return Result{}, n.Start(id)
	case KindStop:
		return Result{}, n.Stop(id)
	case KindIsPlaying:
		playing, err := n.IsPlaying(id)
		return Result{Playing: playing}, err
	case KindSetParameter:
		return Result{}, n.SetParameter(id, op.Index, op.Value)
	case KindTouchUpdate:
		return Result{}, n.TouchUpdate(id, *op.Touch)
	case KindTouchClear:
		return Result{}, n.TouchClear(id, op.Slot)
	case KindHover:
		return Result{}, n.Hover(id, op.Slot, op.X, op.Y)
	case KindSetScreenSize:
		return Result{}, n.SetScreenSize(id, op.X, op.Y)
	case KindSetAnyTouch:
		return Result{}, n.SetAnyTouch(id, op.Touching)
	}
	return Result{}, fmt.Errorf("%w: %s", ErrInvalidOp, op.Kind)
}

func (h *Handle) observe(c Call) {
	if h.observer == nil {
		return
	}
	c.Seq = h.clock.Next()
	h.observer(c)
}
