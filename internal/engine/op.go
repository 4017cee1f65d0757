package engine

import (
	"fmt"
	"strings"
)

// Kind names an engine operation.
type Kind int

// Invokable kinds, one per native entry point.
const (
	KindStart Kind = iota + 1
	KindStop
	KindIsPlaying
	KindSetParameter
	KindTouchUpdate
	KindTouchClear
	KindHover
	KindSetScreenSize
	KindSetAnyTouch

	// Lifecycle kinds appear in call traces only; they cannot be invoked.
	KindCreate
	KindDestroy
)

var kindNames = map[Kind]string{
	KindStart:         "start",
	KindStop:          "stop",
	KindIsPlaying:     "is_playing",
	KindSetParameter:  "set_parameter",
	KindTouchUpdate:   "touch_update",
	KindTouchClear:    "touch_clear",
	KindHover:         "hover",
	KindSetScreenSize: "set_screen_size",
	KindSetAnyTouch:   "set_any_touch",
	KindCreate:        "create",
	KindDestroy:       "destroy",
}

// String returns the kind's wire name, as stored in recordings.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown engine op %q", s)
}

// Invokable reports whether ops of this kind can be passed to Invoke.
func (k Kind) Invokable() bool {
	return k >= KindStart && k <= KindSetAnyTouch
}

// Op is one engine call. Only the fields relevant to Kind are used.
type Op struct {
	Kind Kind `json:"-"`

	// SetParameter: Param, when set, is resolved to Index by the Handle.
	Param string  `json:"param,omitempty"`
	Index int     `json:"index,omitempty"`
	Value float32 `json:"value,omitempty"`

	// TouchUpdate
	Touch *TouchData `json:"touch,omitempty"`

	// TouchClear, Hover
	Slot int `json:"slot,omitempty"`

	// Hover position, or SetScreenSize width (X) and height (Y).
	X float32 `json:"x,omitempty"`
	Y float32 `json:"y,omitempty"`

	// SetAnyTouch
	Touching bool `json:"touching,omitempty"`
}

// Result carries the return value of an op.
type Result struct {
	Playing bool
}

// Start begins audio output.
func Start() Op { return Op{Kind: KindStart} }

// Stop ends audio output.
func Stop() Op { return Op{Kind: KindStop} }

// QueryPlaying asks whether audio is running; the answer is Result.Playing.
func QueryPlaying() Op { return Op{Kind: KindIsPlaying} }

// SetParameter sets parameter index to value.
func SetParameter(index int, value float32) Op {
	return Op{Kind: KindSetParameter, Index: index, Value: value}
}

// SetNamedParameter sets a parameter by name; the Handle resolves the index.
func SetNamedParameter(name string, value float32) Op {
	return Op{Kind: KindSetParameter, Param: name, Value: value}
}

// UpdateTouch pushes a full touch sample for t.Slot.
func UpdateTouch(t TouchData) Op {
	return Op{Kind: KindTouchUpdate, Touch: &t, Slot: t.Slot}
}

// ClearTouch tells the engine slot no longer has a finger on it.
func ClearTouch(slot int) Op {
	return Op{Kind: KindTouchClear, Slot: slot}
}

// Hover reports a non-contact pointer position.
func Hover(slot int, x, y float32) Op {
	return Op{Kind: KindHover, Slot: slot, X: x, Y: y}
}

// SetScreenSize reports the size of the input surface.
func SetScreenSize(width, height float32) Op {
	return Op{Kind: KindSetScreenSize, X: width, Y: height}
}

// SetAnyTouch reports whether at least one finger is down.
func SetAnyTouch(touching bool) Op {
	return Op{Kind: KindSetAnyTouch, Touching: touching}
}

// String renders the op for logs and traces, e.g. "touch_clear slot=3".
func (o Op) String() string {
	switch o.Kind {
	case KindSetParameter:
		if o.Param != "" {
			return fmt.Sprintf("%s name=%s index=%d value=%g", o.Kind, o.Param, o.Index, o.Value)
		}
		return fmt.Sprintf("%s index=%d value=%g", o.Kind, o.Index, o.Value)
	case KindTouchUpdate:
		if o.Touch == nil {
			return o.Kind.String()
		}
		t := o.Touch
		return fmt.Sprintf("%s slot=%d id=%d x=%g y=%g pressure=%g", o.Kind, t.Slot, t.ID, t.X, t.Y, t.Pressure)
	case KindTouchClear:
		return fmt.Sprintf("%s slot=%d", o.Kind, o.Slot)
	case KindHover:
		return fmt.Sprintf("%s slot=%d x=%g y=%g", o.Kind, o.Slot, o.X, o.Y)
	case KindSetScreenSize:
		return fmt.Sprintf("%s width=%g height=%g", o.Kind, o.X, o.Y)
	case KindSetAnyTouch:
		return fmt.Sprintf("%s touching=%t", o.Kind, o.Touching)
	}
	return o.Kind.String()
}

func (o Op) validate() error {
	if !o.Kind.Invokable() {
		return fmt.Errorf("%w: %s", ErrInvalidOp, o.Kind)
	}
	if o.Kind == KindTouchUpdate && o.Touch == nil {
		return fmt.Errorf("%w: touch_update without touch data", ErrInvalidOp)
	}
	return nil
}
