// Package testutil provides deterministic collaborators for tests and for the
// scenario harness.
package testutil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/padsynth/internal/engine"
)

// ErrNotLive is recorded when a call reaches an id that is not live.
var ErrNotLive = errors.New("call on a destroyed or unknown engine")

// NativeCall is one call received by FakeNative.
type NativeCall struct {
	Kind engine.Kind
	ID   engine.ID
	Op   engine.Op
}

// FakeNative is an in-memory engine.Native that records every call.
//
// Ids start at 1 and are never reused. Calls against an id that is not live
// fail with ErrNotLive and are counted as violations.
//
// Thread-safety: FakeNative is safe for concurrent use.
type FakeNative struct {
	mu         sync.Mutex
	nextID     engine.ID
	instances  map[engine.ID]*FakeInstance
	calls      []NativeCall
	violations int
	failNext   map[engine.Kind]error
	failCreate error
}

// FakeInstance is the observable state of one fake engine.
type FakeInstance struct {
	Playing  bool
	AnyTouch bool
	Width    float32
	Height   float32
	Params   map[int]float32
	Touches  map[int]engine.TouchData
	Hover    map[int][2]float32
}

// NewFakeNative returns an empty fake engine.
func NewFakeNative() *FakeNative {
	return &FakeNative{
		instances: make(map[engine.ID]*FakeInstance),
		failNext:  make(map[engine.Kind]error),
	}
}

// FailNext makes the next call of kind return err.
func (f *FakeNative) FailNext(kind engine.Kind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext[kind] = err
}

// FailCreate makes every Create return err until cleared with nil.
func (f *FakeNative) FailCreate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCreate = err
}

func (f *FakeNative) Create() (engine.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate != nil {
		return 0, f.failCreate
	}
	f.nextID++
	id := f.nextID
	f.instances[id] = &FakeInstance{
		Params:  make(map[int]float32),
		Touches: make(map[int]engine.TouchData),
		Hover:   make(map[int][2]float32),
	}
	f.calls = append(f.calls, NativeCall{Kind: engine.KindCreate, ID: id})
	return id, nil
}

func (f *FakeNative) Destroy(id engine.ID) error {
	return f.with(id, engine.Op{Kind: engine.KindDestroy}, func(*FakeInstance) error {
		delete(f.instances, id)
		return nil
	})
}

func (f *FakeNative) Start(id engine.ID) error {
	return f.with(id, engine.Start(), func(in *FakeInstance) error {
		in.Playing = true
		return nil
	})
}

func (f *FakeNative) Stop(id engine.ID) error {
	return f.with(id, engine.Stop(), func(in *FakeInstance) error {
		in.Playing = false
		return nil
	})
}

func (f *FakeNative) IsPlaying(id engine.ID) (bool, error) {
	var playing bool
	err := f.with(id, engine.QueryPlaying(), func(in *FakeInstance) error {
		playing = in.Playing
		return nil
	})
	return playing, err
}

func (f *FakeNative) SetParameter(id engine.ID, index int, value float32) error {
	return f.with(id, engine.SetParameter(index, value), func(in *FakeInstance) error {
		in.Params[index] = value
		return nil
	})
}

func (f *FakeNative) TouchUpdate(id engine.ID, t engine.TouchData) error {
	return f.with(id, engine.UpdateTouch(t), func(in *FakeInstance) error {
		in.Touches[t.Slot] = t
		return nil
	})
}

func (f *FakeNative) TouchClear(id engine.ID, slot int) error {
	return f.with(id, engine.ClearTouch(slot), func(in *FakeInstance) error {
		delete(in.Touches, slot)
		return nil
	})
}

func (f *FakeNative) Hover(id engine.ID, slot int, x, y float32) error {
	return f.with(id, engine.Hover(slot, x, y), func(in *FakeInstance) error {
		in.Hover[slot] = [2]float32{x, y}
		return nil
	})
}

func (f *FakeNative) SetScreenSize(id engine.ID, width, height float32) error {
	return f.with(id, engine.SetScreenSize(width, height), func(in *FakeInstance) error {
		in.Width, in.Height = width, height
		return nil
	})
}

func (f *FakeNative) SetAnyTouch(id engine.ID, touching bool) error {
	return f.with(id, engine.SetAnyTouch(touching), func(in *FakeInstance) error {
		in.AnyTouch = touching
		return nil
	})
}

func (f *FakeNative) with(id engine.ID, op engine.Op, fn func(*FakeInstance) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, NativeCall{Kind: op.Kind, ID: id, Op: op})

	in, ok := f.instances[id]
	if !ok {
		f.violations++
		return fmt.Errorf("%w: %s on id %d", ErrNotLive, op.Kind, id)
	}
	if err, ok := f.failNext[op.Kind]; ok {
		delete(f.failNext, op.Kind)
		return err
	}
	return fn(in)
}

// Calls returns a copy of every call received so far.
func (f *FakeNative) Calls() []NativeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]NativeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// Kinds returns the kinds of every call received so far, in order.
func (f *FakeNative) Kinds() []engine.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]engine.Kind, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Kind
	}
	return out
}

// Count returns how many calls of kind were received.
func (f *FakeNative) Count(kind engine.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Violations returns how many calls reached an id that was not live.
func (f *FakeNative) Violations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.violations
}

// Live returns the number of live instances.
func (f *FakeNative) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instances)
}

// Instance returns a snapshot of instance id.
func (f *FakeNative) Instance(id engine.ID) (FakeInstance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.instances[id]
	if !ok {
		return FakeInstance{}, false
	}
	snap := *in
	snap.Params = cloneMap(in.Params)
	snap.Touches = cloneMap(in.Touches)
	snap.Hover = cloneMap(in.Hover)
	return snap, true
}

// Current returns the most recently created instance that is still live.
func (f *FakeNative) Current() (engine.ID, FakeInstance, bool) {
	f.mu.Lock()
	id := f.nextID
	f.mu.Unlock()
	in, ok := f.Instance(id)
	return id, in, ok
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
