// Package controls holds the slider panel that drives engine parameters.
package controls

import (
	"fmt"
	"math"
	"sync"

	"github.com/roach88/padsynth/internal/curve"
	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/synth"
)

// SliderCount is the number of sliders on the panel.
const SliderCount = synth.ParamCount

// Slider indices. Each slider drives the engine parameter of the same index.
const (
	SliderFrequency  = synth.ParamFrequency
	SliderVolume     = synth.ParamAmplitude
	SliderWavetable  = synth.ParamWavetable
	SliderModulation = synth.ParamModulation
)

// Sink receives the parameter ops the panel produces.
type Sink interface {
	Post(op engine.Op)
}

// Mapping converts a slider position in [0,1] to a parameter value.
type Mapping func(pos float64) float32

// Perceptual maps positions onto r along the exponential curve.
func Perceptual(r curve.Range) Mapping {
	return func(pos float64) float32 { return float32(r.ToPhysical(pos)) }
}

// LinearMapping maps positions onto r proportionally.
func LinearMapping(r curve.Range) Mapping {
	return func(pos float64) float32 { return float32(r.ValueAt(pos)) }
}

// Stepped maps positions onto the integers 0..n-1.
func Stepped(n int) Mapping {
	return func(pos float64) float32 {
		return float32(math.Round(pos * float64(n-1)))
	}
}

// Panel stores slider positions and pushes their mapped values to the engine.
//
// Positions are kept even while no engine exists so Apply can restore them
// on a fresh instance.
//
// Thread-safety: Panel is safe for concurrent use.
type Panel struct {
	sink Sink

	mu        sync.Mutex
	positions [SliderCount]float64
	mappings  [SliderCount]Mapping
	freq      curve.Range
}

// Option configures a Panel.
type Option func(*Panel)

// WithFrequencyRange sets the range of the frequency slider.
func WithFrequencyRange(r curve.Range) Option {
	return func(p *Panel) {
		p.freq = r
	}
}

// WithPositions sets initial slider positions.
func WithPositions(pos [SliderCount]float64) Option {
	return func(p *Panel) {
		for i, v := range pos {
			p.positions[i] = clampUnit(v)
		}
	}
}

// NewPanel creates a panel posting to sink. Every slider starts at 0.
func NewPanel(sink Sink, opts ...Option) *Panel {
	p := &Panel{
		sink: sink,
		freq: curve.Frequency,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.mappings = [SliderCount]Mapping{
		SliderFrequency:  Perceptual(p.freq),
		SliderVolume:     LinearMapping(curve.Unit),
		SliderWavetable:  Stepped(int(synth.WavetableCount)),
		SliderModulation: LinearMapping(curve.Unit),
	}
	return p
}

// SetSlider moves slider i to pos (clamped to [0,1]) and pushes the mapped
// value.
func (p *Panel) SetSlider(i int, pos float64) error {
	if i < 0 || i >= SliderCount {
		return fmt.Errorf("slider %d out of range [0,%d)", i, SliderCount)
	}
	p.mu.Lock()
	p.positions[i] = clampUnit(pos)
	op := p.opLocked(i)
	p.mu.Unlock()

	p.sink.Post(op)
	return nil
}

// Slider returns the position of slider i.
func (p *Panel) Slider(i int) float64 {
	if i < 0 || i >= SliderCount {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[i]
}

// Value returns the parameter value slider i currently maps to.
func (p *Panel) Value(i int) float32 {
	if i < 0 || i >= SliderCount {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mappings[i](p.positions[i])
}

// SetFrequency moves the frequency slider to the position of hz.
func (p *Panel) SetFrequency(hz float64) error {
	return p.SetSlider(SliderFrequency, p.freq.ToControlPos(hz))
}

// Frequency returns the frequency in Hz the slider currently selects.
func (p *Panel) Frequency() float64 {
	return p.freq.ToPhysical(p.Slider(SliderFrequency))
}

// SetVolume sets the amplitude slider.
func (p *Panel) SetVolume(v float64) error {
	return p.SetSlider(SliderVolume, v)
}

// SetWavetable selects waveform w.
func (p *Panel) SetWavetable(w synth.Wavetable) error {
	return p.SetSlider(SliderWavetable, float64(w)/float64(synth.WavetableCount-1))
}

// Apply re-pushes every slider, in index order.
func (p *Panel) Apply() {
	p.mu.Lock()
	ops := make([]engine.Op, SliderCount)
	for i := range ops {
		ops[i] = p.opLocked(i)
	}
	p.mu.Unlock()

	for _, op := range ops {
		p.sink.Post(op)
	}
}

func (p *Panel) opLocked(i int) engine.Op {
	return engine.SetParameter(i, p.mappings[i](p.positions[i]))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
