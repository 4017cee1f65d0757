// Package synth is an in-process wavetable engine implementing engine.Native.
//
// It stands in for the device DSP engine: each instance owns an oscillator,
// a touch table and four parameters, and streams audio to an Output while
// started. Instance ids are never reused.
package synth

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/slots"
)

// Parameter indices accepted by SetParameter.
const (
	ParamFrequency = iota
	ParamAmplitude
	ParamWavetable
	ParamModulation

	ParamCount
)

// ParameterNames maps parameter names to indices, for engine.WithParameterNames.
var ParameterNames = map[string]int{
	"frequency":  ParamFrequency,
	"amplitude":  ParamAmplitude,
	"wavetable":  ParamWavetable,
	"modulation": ParamModulation,
}

// Defaults for a fresh instance.
const (
	DefaultSampleRate = 48000
	DefaultFrequency  = 440
	DefaultAmplitude  = 0.2
	DefaultWidth      = 1920
	DefaultHeight     = 1080

	// tremolo rate at full modulation, in Hz
	lfoRate = 5.0
)

var (
	// ErrNoInstance is returned for calls on an id that is not live.
	ErrNoInstance = errors.New("no such synth instance")

	// ErrParameterIndex is returned for an index outside [0, ParamCount).
	ErrParameterIndex = errors.New("parameter index out of range")
)

// Synth is a registry of wavetable engine instances.
//
// Thread-safety: Synth is safe for concurrent use. Instances render on the
// output's goroutine while engine calls mutate them.
type Synth struct {
	mu        sync.Mutex
	nextID    engine.ID
	instances map[engine.ID]*Instance

	output     Output
	sampleRate int
	logger     *slog.Logger
}

// Option configures a Synth.
type Option func(*Synth)

// WithSampleRate sets the render rate for new instances.
func WithSampleRate(rate int) Option {
	return func(s *Synth) {
		s.sampleRate = rate
	}
}

// WithLogger sets the synth's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synth) {
		s.logger = l
	}
}

// New creates a synth streaming started instances to out.
func New(out Output, opts ...Option) *Synth {
	s := &Synth{
		instances:  make(map[engine.ID]*Instance),
		output:     out,
		sampleRate: DefaultSampleRate,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new stopped instance and returns its id.
func (s *Synth) Create() (engine.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.instances[id] = newInstance(float64(s.sampleRate))
	s.logger.Debug("synth instance created", "id", uint64(id))
	return id, nil
}

// Destroy stops and forgets instance id.
func (s *Synth) Destroy(id engine.ID) error {
	s.mu.Lock()
	in, ok := s.instances[id]
	delete(s.instances, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoInstance, id)
	}
	return in.stop()
}

// Start opens an output stream for id. Starting a playing instance is a no-op.
func (s *Synth) Start(id engine.ID) error {
	in, err := s.get(id)
	if err != nil {
		return err
	}
	return in.start(s.output)
}

// Stop closes id's output stream.
func (s *Synth) Stop(id engine.ID) error {
	in, err := s.get(id)
	if err != nil {
		return err
	}
	return in.stop()
}

// IsPlaying reports whether id is streaming.
func (s *Synth) IsPlaying(id engine.ID) (bool, error) {
	in, err := s.get(id)
	if err != nil {
		return false, err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.playing, nil
}

// SetParameter stores value, clamped to the parameter's range.
func (s *Synth) SetParameter(id engine.ID, index int, value float32) error {
	if index < 0 || index >= ParamCount {
		return fmt.Errorf("%w: %d", ErrParameterIndex, index)
	}
	in, err := s.get(id)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.params[index] = clampParam(index, value)
	return nil
}

// TouchUpdate replaces the touch in t.Slot. Out-of-range slots are ignored.
func (s *Synth) TouchUpdate(id engine.ID, t engine.TouchData) error {
	in, err := s.get(id)
	if err != nil {
		return err
	}
	if t.Slot < 0 || t.Slot >= slots.MaxSlots {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.touches[t.Slot] = t
	return nil
}

// TouchClear marks slot as lifted.
func (s *Synth) TouchClear(id engine.ID, slot int) error {
	in, err := s.get(id)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= slots.MaxSlots {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.touches[slot].ID = -1
	return nil
}

// Hover records a non-contact position for slot.
func (s *Synth) Hover(id engine.ID, slot int, x, y float32) error {
	in, err := s.get(id)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= slots.MaxSlots {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.hover[slot] = [2]float32{x, y}
	return nil
}

// SetScreenSize sets the surface size that maps touch x to pitch.
func (s *Synth) SetScreenSize(id engine.ID, width, height float32) error {
	in, err := s.get(id)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.width, in.height = width, height
	return nil
}

// SetAnyTouch switches between the base tone and touch voices.
func (s *Synth) SetAnyTouch(id engine.ID, touching bool) error {
	in, err := s.get(id)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.anyTouch = touching
	return nil
}

// Live returns the number of live instances.
func (s *Synth) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

// Instance returns live instance id.
func (s *Synth) Instance(id engine.ID) (*Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.instances[id]
	return in, ok
}

func (s *Synth) get(id engine.ID) (*Instance, error) {
	in, ok := s.Instance(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoInstance, id)
	}
	return in, nil
}

func clampParam(index int, v float32) float32 {
	if math.IsNaN(float64(v)) {
		v = 0
	}
	switch index {
	case ParamFrequency:
		return max(v, 0)
	case ParamWavetable:
		return float32(wavetableFromValue(v))
	default:
		return min(max(v, 0), 1)
	}
}
