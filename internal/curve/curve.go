// Package curve maps linear control positions to physical parameter values
// along an exponential curve, so a slider moving at constant speed sweeps a
// logarithmically perceived quantity (pitch, loudness) at constant perceived
// speed.
//
// Control positions live in [0, 1]. Positions below MinimumValue form a dead
// zone that maps to the bottom of the range; the round trip
// ToControlPos(ToPhysical(p)) == p only holds for p in [MinimumValue, 1].
package curve

import (
	"fmt"
	"math"
)

// MinimumValue is the smallest control position with a distinct physical value.
const MinimumValue = 0.001

var lnMin = math.Log(MinimumValue)

// Exponential maps a control position onto the unit interval exponentially.
// Positions below MinimumValue map to 0.
func Exponential(pos float64) float64 {
	pos = clampUnit(pos)
	if pos < MinimumValue {
		return 0
	}
	return math.Exp(lnMin - lnMin*pos)
}

// Linear is the inverse of Exponential. Values below MinimumValue are
// returned unchanged.
func Linear(r float64) float64 {
	r = clampUnit(r)
	if r < MinimumValue {
		return r
	}
	return (math.Log(r) - lnMin) / -lnMin
}

// Range is a closed physical interval [Lo, Hi].
type Range struct {
	Lo float64
	Hi float64
}

// Unit is the identity range [0, 1].
var Unit = Range{Lo: 0, Hi: 1}

// Frequency is the pitch range of the reference synth's frequency slider, in Hz.
var Frequency = Range{Lo: 40, Hi: 3000}

// NewRange returns the range [lo, hi]. lo must be strictly less than hi.
func NewRange(lo, hi float64) (Range, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo >= hi {
		return Range{}, fmt.Errorf("invalid range [%g, %g]", lo, hi)
	}
	return Range{Lo: lo, Hi: hi}, nil
}

// ValueAt maps a position in [0, 1] linearly into the range.
func (r Range) ValueAt(pos float64) float64 {
	return r.Lo + (r.Hi-r.Lo)*clampUnit(pos)
}

// PositionOf maps a value in the range linearly back into [0, 1].
func (r Range) PositionOf(value float64) float64 {
	if r.Hi == r.Lo {
		return 0
	}
	return clampUnit((value - r.Lo) / (r.Hi - r.Lo))
}

// Contains reports whether value lies inside the range.
func (r Range) Contains(value float64) bool {
	return value >= r.Lo && value <= r.Hi
}

// ToPhysical converts a control position into a physical value.
func (r Range) ToPhysical(pos float64) float64 {
	return r.ValueAt(Exponential(pos))
}

// ToControlPos converts a physical value into a control position.
func (r Range) ToControlPos(value float64) float64 {
	return Linear(r.PositionOf(value))
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
