package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/padsynth/internal/app"
	"github.com/roach88/padsynth/internal/controls"
	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/playback"
	"github.com/roach88/padsynth/internal/testutil"
)

// faultInjector is implemented by engines that can fail on demand, such as
// testutil.FakeNative.
type faultInjector interface {
	FailNext(kind engine.Kind, err error)
}

type config struct {
	native   engine.Native
	observer func(engine.Call)
	logger   *slog.Logger
	teardown bool
}

// Option configures a scenario run.
type Option func(*config)

// WithNative runs the scenario against n instead of a fresh FakeNative.
func WithNative(n engine.Native) Option {
	return func(c *config) { c.native = n }
}

// WithObserver receives every engine call, for example to record the run.
func WithObserver(fn func(engine.Call)) Option {
	return func(c *config) { c.observer = fn }
}

// WithLogger sets the session logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithTeardown destroys the engine after the assertions ran. The destroy is
// passed to the observer but is not part of the trace.
func WithTeardown() Option {
	return func(c *config) { c.teardown = true }
}

// Harness executes the steps of one scenario.
type Harness struct {
	session *app.Session
	native  engine.Native
	logger  *slog.Logger

	// asked receives a signal each time the coordinator asks for permission.
	asked   chan struct{}
	pending *pendingToggle

	mu       sync.Mutex
	result   *Result
	tracing  bool
	observer func(engine.Call)
}

type pendingToggle struct {
	step   int
	expect string
	done   <-chan playback.Result
}

// Run executes a scenario and returns the result.
//
// The returned error reports a run that could not be carried out (an
// unsupported step, a cancelled context). Failed expectations and
// assertions are reported in Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.native == nil {
		cfg.native = testutil.NewFakeNative()
	}

	perm, err := playback.ParsePermission(scenario.Permission)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		native:   cfg.native,
		logger:   cfg.logger,
		asked:    make(chan struct{}, 1),
		result:   NewResult(),
		tracing:  true,
		observer: cfg.observer,
	}

	sopts := []app.Option{
		app.WithLogger(cfg.logger),
		app.WithPermission(perm),
		app.WithClock(engine.NewClock()),
		app.WithObserver(h.observe),
	}
	if len(scenario.Sliders) > 0 {
		var pos [controls.SliderCount]float64
		copy(pos[:], scenario.Sliders)
		sopts = append(sopts, app.WithSliders(pos))
	}
	h.session = app.New(cfg.native, playback.ProviderFunc(h.request), sopts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.session.Run(gctx)
	})

	// Toggles waiting for permission are released when the steps end.
	toggleCtx, cancelToggles := context.WithCancel(gctx)
	stepErr := h.execute(gctx, toggleCtx, scenario.Steps)
	if h.pending != nil {
		h.result.AddError(fmt.Sprintf("steps[%d]: toggle still waiting for permission", h.pending.step))
	}
	cancelToggles()
	if h.pending != nil {
		<-h.pending.done
	}

	if stepErr == nil {
		h.finish(scenario.Assertions)
	}
	if stepErr == nil && cfg.teardown {
		h.mu.Lock()
		h.tracing = false
		h.mu.Unlock()
		if err := h.session.Destroy(gctx); err != nil {
			h.logger.Warn("teardown failed", "error", err)
		}
	}

	h.session.Close()
	if err := g.Wait(); err != nil && stepErr == nil {
		stepErr = err
	}
	if stepErr != nil {
		return nil, stepErr
	}
	return h.result, nil
}

func (h *Harness) execute(ctx, toggleCtx context.Context, steps []Step) error {
	for i, st := range steps {
		if err := h.step(ctx, toggleCtx, i, st); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if err := h.session.Flush(ctx); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func (h *Harness) step(ctx, toggleCtx context.Context, i int, st Step) error {
	switch {
	case st.Touch != nil:
		ev, err := st.Touch.event()
		if err != nil {
			return err
		}
		return h.session.Touch(ev)

	case st.Toggle != nil:
		done := h.session.ToggleAsync(toggleCtx)
		select {
		case r := <-done:
			h.record(i, st.Toggle.Expect, r)
		case <-h.asked:
			if h.pending != nil {
				return fmt.Errorf("toggle asked for permission while another toggle waits")
			}
			h.pending = &pendingToggle{step: i, expect: st.Toggle.Expect, done: done}
		case <-ctx.Done():
			return ctx.Err()
		}

	case st.Permission != "":
		granted, err := answer(st.Permission)
		if err != nil {
			return err
		}
		h.session.PermissionResult(granted)
		if p := h.pending; p != nil {
			h.pending = nil
			select {
			case r := <-p.done:
				h.record(p.step, p.expect, r)
			case <-ctx.Done():
				return ctx.Err()
			}
		}

	case st.Slider != nil:
		return h.session.SetSlider(st.Slider.Index, st.Slider.Position)

	case st.Resize != nil:
		h.session.Resize(st.Resize.Width, st.Resize.Height)

	case st.Resume != nil:
		// A failed create is part of the trace, not a harness error.
		if err := h.session.Resume(ctx); err != nil && !engine.IsFault(err) {
			return err
		}

	case st.Destroy != nil:
		if err := h.session.Destroy(ctx); err != nil && !engine.IsFault(err) {
			return err
		}

	case st.Fail != nil:
		inj, ok := h.native.(faultInjector)
		if !ok {
			return fmt.Errorf("engine %T does not support fault injection", h.native)
		}
		kind, err := engine.ParseKind(st.Fail.Op)
		if err != nil {
			return err
		}
		msg := st.Fail.Error
		if msg == "" {
			msg = "injected fault"
		}
		inj.FailNext(kind, errors.New(msg))

	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

// request is the permission provider: it only notes that a request was made.
func (h *Harness) request() {
	select {
	case h.asked <- struct{}{}:
	default:
	}
}

func (h *Harness) record(step int, expect string, r playback.Result) {
	got := r.Outcome.String()
	h.result.Outcomes = append(h.result.Outcomes, got)
	if expect != "" && expect != got {
		h.result.AddError(fmt.Sprintf("steps[%d]: toggle outcome %s, expected %s", step, got, expect))
	}
}

func (h *Harness) observe(c engine.Call) {
	h.mu.Lock()
	if h.tracing {
		h.result.Trace = append(h.result.Trace, NewTraceEvent(c))
	}
	h.mu.Unlock()

	if h.observer != nil {
		h.observer(c)
	}
}

func (h *Harness) finish(assertions []Assertion) {
	coord := h.session.Coordinator()
	router := h.session.Router()
	handle := h.session.Handle()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.result.Final = FinalState{
		Playing:    coord.Playing(),
		Permission: coord.Permission().String(),
		AnyTouch:   router.AnyTouch(),
		Active:     router.Active(),
		Dropped:    router.Dropped(),
		Generation: handle.Generation(),
		Live:       handle.Live(),
	}
	for _, msg := range EvaluateAssertions(h.result, assertions) {
		h.result.AddError(msg)
	}
}
