// Package touch turns raw multi-touch events into per-slot engine calls.
package touch

import (
	"fmt"
	"strings"
)

// Kind classifies a touch event.
type Kind int

const (
	// FirstContact: the first finger goes down (pointer count 0→1).
	FirstContact Kind = iota + 1
	// AdditionalContact: another finger goes down while others are down.
	AdditionalContact
	// Move: one or more live pointers moved.
	Move
	// SecondaryRelease: one finger lifts while others remain.
	SecondaryRelease
	// LastRelease: the last finger lifts (pointer count 1→0).
	LastRelease
	// Hover: a non-contact pointer (stylus proximity) moved.
	Hover
	// Cancel: the system invalidated every active touch.
	Cancel
)

var kindNames = map[Kind]string{
	FirstContact:      "first_contact",
	AdditionalContact: "additional_contact",
	Move:              "move",
	SecondaryRelease:  "secondary_release",
	LastRelease:       "last_release",
	Hover:             "hover",
	Cancel:            "cancel",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("touch_kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown touch event kind %q", s)
}

// Axis is a bit set of optional shape axes an input device reports.
type Axis uint8

const (
	AxisMajor Axis = 1 << iota
	AxisMinor
	AxisOrientation
	AxisToolMajor
	AxisToolMinor

	AxisNone Axis = 0
	AxisAll       = AxisMajor | AxisMinor | AxisOrientation | AxisToolMajor | AxisToolMinor
)

// Has reports whether every axis in b is set.
func (a Axis) Has(b Axis) bool { return a&b == b }

// Sample is one pointer reported by an event.
type Sample struct {
	ID          int
	X           float32
	Y           float32
	Pressure    float32
	MajorAxis   float32
	MinorAxis   float32
	Orientation float32
	MajorWidth  float32
	MinorWidth  float32
}

// Event is one event from the touch source.
type Event struct {
	Kind Kind

	// Samples holds every pointer the source reported. Move events carry all
	// live pointers; contact and release events carry at least the acting one.
	Samples []Sample

	// Action indexes the sample that went down or up for contact and release
	// events, and the hover position for Hover events.
	Action int

	// Axes lists the shape axes the input device reports. Unreported axes are
	// forced to zero before reaching the engine.
	Axes Axis
}

func (e Event) acting() (Sample, bool) {
	if e.Action < 0 || e.Action >= len(e.Samples) {
		return Sample{}, false
	}
	return e.Samples[e.Action], true
}
