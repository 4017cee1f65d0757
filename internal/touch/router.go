package touch

import (
	"fmt"
	"log/slog"

	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/slots"
)

// HoverSlot is the slot hover positions are reported on.
const HoverSlot = 0

// Sink receives engine calls produced by the router. *engine.Dispatcher
// implements it; its FIFO delivery keeps per-slot updates in order.
type Sink interface {
	Post(op engine.Op)
}

// Router maps touch events onto engine slots and forwards per-slot updates.
//
// Router owns its AnyTouch flag and slot table. It is not safe for
// concurrent use: deliver events from one goroutine, or serialize a
// multi-producer source before it reaches Handle.
type Router struct {
	sink     Sink
	slots    *slots.Allocator
	anyTouch bool
	dropped  int
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithAllocator replaces the default MaxSlots allocator.
func WithAllocator(a *slots.Allocator) Option {
	return func(r *Router) {
		r.slots = a
	}
}

// WithLogger sets the router's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// NewRouter creates a router posting to sink.
func NewRouter(sink Sink, opts ...Option) *Router {
	r := &Router{
		sink:   sink,
		slots:  slots.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle routes one event. It returns an error only for unknown event kinds;
// dropped touches and releases of unknown pointers are not errors.
func (r *Router) Handle(ev Event) error {
	switch ev.Kind {
	case FirstContact:
		r.setAnyTouch(true)
		r.routeActing(ev)

	case AdditionalContact:
		r.routeActing(ev)

	case Move:
		for _, s := range ev.Samples {
			r.route(s, ev.Axes)
		}

	case SecondaryRelease:
		r.releaseActing(ev)

	case LastRelease:
		r.setAnyTouch(false)
		r.releaseActing(ev)

	case Hover:
		s, ok := ev.acting()
		if !ok {
			r.logger.Debug("hover event without position", "action", ev.Action)
			return nil
		}
		r.sink.Post(engine.Hover(HoverSlot, s.X, s.Y))

	case Cancel:
		r.setAnyTouch(false)
		// The table, not the event, is authoritative: a cancel may omit pointers.
		for _, slot := range r.slots.InUse() {
			r.sink.Post(engine.ClearTouch(slot))
		}
		r.slots.ReleaseAll()

	default:
		return fmt.Errorf("unknown touch event kind %d", int(ev.Kind))
	}
	return nil
}

// Resize reports a new input surface size. It is independent of touch state.
func (r *Router) Resize(width, height float32) {
	r.sink.Post(engine.SetScreenSize(width, height))
}

// AnyTouch reports whether at least one finger is down.
func (r *Router) AnyTouch() bool { return r.anyTouch }

// Active returns the slots currently holding a finger, ascending.
func (r *Router) Active() []int { return r.slots.InUse() }

// SlotOf returns the slot held by pointer id.
func (r *Router) SlotOf(id int) (int, bool) { return r.slots.Lookup(id) }

// Dropped returns how many samples were dropped because every slot was taken.
func (r *Router) Dropped() int { return r.dropped }

func (r *Router) setAnyTouch(v bool) {
	r.anyTouch = v
	r.sink.Post(engine.SetAnyTouch(v))
}

func (r *Router) routeActing(ev Event) {
	s, ok := ev.acting()
	if !ok {
		r.logger.Debug("contact event without acting pointer", "kind", ev.Kind.String(), "action", ev.Action)
		return
	}
	r.route(s, ev.Axes)
}

func (r *Router) route(s Sample, axes Axis) {
	slot, ok := r.slots.Acquire(s.ID)
	if !ok {
		r.dropped++
		r.logger.Debug("touch dropped: no free slot", "pointer", s.ID, "capacity", r.slots.Cap())
		return
	}
	r.sink.Post(engine.UpdateTouch(toTouchData(slot, s, axes)))
}

func (r *Router) releaseActing(ev Event) {
	s, ok := ev.acting()
	if !ok {
		r.logger.Debug("release event without acting pointer", "kind", ev.Kind.String(), "action", ev.Action)
		return
	}
	slot, ok := r.slots.Lookup(s.ID)
	if !ok {
		// Reordered or dropped at the source; nothing to clear.
		r.logger.Debug("release of pointer without slot", "pointer", s.ID)
		return
	}
	r.sink.Post(engine.ClearTouch(slot))
	r.slots.Release(s.ID)
}

func toTouchData(slot int, s Sample, axes Axis) engine.TouchData {
	td := engine.TouchData{
		Slot:     slot,
		ID:       s.ID,
		X:        s.X,
		Y:        s.Y,
		Pressure: s.Pressure,
	}
	if axes.Has(AxisMajor) {
		td.MajorAxis = s.MajorAxis
	}
	if axes.Has(AxisMinor) {
		td.MinorAxis = s.MinorAxis
	}
	if axes.Has(AxisOrientation) {
		td.Orientation = s.Orientation
	}
	if axes.Has(AxisToolMajor) {
		td.MajorWidth = s.MajorWidth
	}
	if axes.Has(AxisToolMinor) {
		td.MinorWidth = s.MinorWidth
	}
	return td
}
