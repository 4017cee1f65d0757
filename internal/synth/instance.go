package synth

import (
	"fmt"
	"math"
	"sync"

	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/slots"
)

// Instance is one engine instance.
type Instance struct {
	mu sync.Mutex

	playing bool
	player  Player

	params   [ParamCount]float32
	touches  [slots.MaxSlots]engine.TouchData
	hover    [slots.MaxSlots][2]float32
	width    float32
	height   float32
	anyTouch bool

	sampleRate float64
	base       oscillator
	voices     [slots.MaxSlots]oscillator
	lfo        oscillator
}

func newInstance(sampleRate float64) *Instance {
	in := &Instance{
		width:      DefaultWidth,
		height:     DefaultHeight,
		sampleRate: sampleRate,
	}
	in.params[ParamFrequency] = DefaultFrequency
	in.params[ParamAmplitude] = DefaultAmplitude
	for i := range in.touches {
		in.touches[i] = engine.TouchData{Slot: i, ID: -1}
	}
	return in
}

// start claims the instance under the lock and opens the stream without it:
// an Output may pull the first buffer through Render before Play returns.
func (in *Instance) start(out Output) error {
	in.mu.Lock()
	if in.playing {
		in.mu.Unlock()
		return nil
	}
	in.playing = true
	in.mu.Unlock()

	p, err := out.Play(in)

	in.mu.Lock()
	if err != nil {
		in.playing = false
		in.mu.Unlock()
		return fmt.Errorf("start playback: %w", err)
	}
	if !in.playing {
		// Stopped while the stream was opening.
		in.mu.Unlock()
		return p.Close()
	}
	in.player = p
	in.mu.Unlock()
	return nil
}

func (in *Instance) stop() error {
	in.mu.Lock()
	p := in.player
	in.player = nil
	in.playing = false
	in.mu.Unlock()

	// Closing may wait for the device to stop pulling from Render.
	if p == nil {
		return nil
	}
	return p.Close()
}

// Render fills buf with the instance's output.
//
// With no finger down the base oscillator plays at the frequency parameter.
// Otherwise each touched slot drives a voice: x spans one octave either side
// of the frequency parameter and pressure scales its level.
func (in *Instance) Render(buf []float32) {
	in.mu.Lock()
	defer in.mu.Unlock()

	freq := float64(in.params[ParamFrequency])
	amp := in.params[ParamAmplitude]
	mod := in.params[ParamModulation]
	table := wavetableFromValue(in.params[ParamWavetable])

	var active []int
	if in.anyTouch {
		for i := range in.touches {
			if in.touches[i].ID >= 0 {
				active = append(active, i)
			}
		}
	}

	for n := range buf {
		var s float32
		if len(active) == 0 {
			s = in.base.next(table, freq, in.sampleRate)
		} else {
			for _, slot := range active {
				t := in.touches[slot]
				f := freq * math.Exp2(2*float64(t.X)/float64(max(in.width, 1))-1)
				level := min(max(t.Pressure, 0), 1)
				if level == 0 {
					level = 1
				}
				s += level * in.voices[slot].next(table, f, in.sampleRate)
			}
			s /= float32(len(active))
		}
		trem := 1 - mod*0.5*(1+Sine.lookup(in.lfo.phase))
		in.lfo.next(Sine, lfoRate, in.sampleRate)
		buf[n] = amp * s * trem
	}
}

// State is a snapshot of an instance.
type State struct {
	Playing  bool
	AnyTouch bool
	Width    float32
	Height   float32
	Params   [ParamCount]float32
	// Touches holds every slot; cleared slots have ID -1.
	Touches [slots.MaxSlots]engine.TouchData
	Hover   [slots.MaxSlots][2]float32
}

// Snapshot returns the instance's current state.
func (in *Instance) Snapshot() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return State{
		Playing:  in.playing,
		AnyTouch: in.anyTouch,
		Width:    in.width,
		Height:   in.height,
		Params:   in.params,
		Touches:  in.touches,
		Hover:    in.hover,
	}
}
