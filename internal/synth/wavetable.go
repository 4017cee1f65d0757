package synth

import (
	"fmt"
	"math"
)

// Wavetable selects the oscillator waveform.
type Wavetable int

const (
	Sine Wavetable = iota
	Triangle
	Square
	Sawtooth

	WavetableCount
)

const tableSize = 2048

var tables [WavetableCount][tableSize]float32

func init() {
	for i := 0; i < tableSize; i++ {
		p := float64(i) / tableSize
		tables[Sine][i] = float32(math.Sin(2 * math.Pi * p))
		tables[Triangle][i] = float32(1 - 4*math.Abs(p-0.5))
		if p < 0.5 {
			tables[Square][i] = 1
		} else {
			tables[Square][i] = -1
		}
		tables[Sawtooth][i] = float32(2*p - 1)
	}
}

func (w Wavetable) String() string {
	switch w {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	}
	return fmt.Sprintf("wavetable(%d)", int(w))
}

// wavetableFromValue rounds a parameter value to the nearest table.
func wavetableFromValue(v float32) Wavetable {
	w := Wavetable(math.Round(float64(v)))
	if w < Sine {
		return Sine
	}
	if w >= WavetableCount {
		return WavetableCount - 1
	}
	return w
}

// lookup reads table w at phase in [0,1) with linear interpolation.
func (w Wavetable) lookup(phase float64) float32 {
	t := &tables[w]
	pos := phase * tableSize
	i := int(pos)
	frac := float32(pos - float64(i))
	a := t[i%tableSize]
	b := t[(i+1)%tableSize]
	return a + (b-a)*frac
}

// oscillator is a phase accumulator over a wavetable.
type oscillator struct {
	phase float64
}

// next returns one sample and advances by freq/sampleRate cycles.
func (o *oscillator) next(w Wavetable, freq, sampleRate float64) float32 {
	s := w.lookup(o.phase)
	o.phase += freq / sampleRate
	o.phase -= math.Floor(o.phase)
	return s
}
