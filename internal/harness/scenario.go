package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/padsynth/internal/controls"
	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/playback"
	"github.com/roach88/padsynth/internal/touch"
)

// Scenario is a scripted sequence of host and user events.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Permission is the permission state known at startup: unknown,
	// granted or denied. Defaults to unknown.
	Permission string `yaml:"permission,omitempty"`

	// Sliders holds initial slider positions, index order.
	Sliders []float64 `yaml:"sliders,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario event. Exactly one field must be set.
type Step struct {
	Touch      *TouchStep  `yaml:"touch,omitempty"`
	Toggle     *ToggleStep `yaml:"toggle,omitempty"`
	Permission string      `yaml:"permission,omitempty"`
	Slider     *SliderStep `yaml:"slider,omitempty"`
	Resize     *SizeStep   `yaml:"resize,omitempty"`
	Resume     *struct{}   `yaml:"resume,omitempty"`
	Destroy    *struct{}   `yaml:"destroy,omitempty"`
	Fail       *FailStep   `yaml:"fail,omitempty"`
}

// TouchStep is one touch event.
type TouchStep struct {
	Kind    string       `yaml:"kind"`
	Action  int          `yaml:"action,omitempty"`
	Axes    []string     `yaml:"axes,omitempty"`
	Samples []SampleSpec `yaml:"samples,omitempty"`
}

// SampleSpec is one pointer of a touch event.
type SampleSpec struct {
	ID          int     `yaml:"id"`
	X           float32 `yaml:"x"`
	Y           float32 `yaml:"y"`
	Pressure    float32 `yaml:"pressure,omitempty"`
	MajorAxis   float32 `yaml:"major_axis,omitempty"`
	MinorAxis   float32 `yaml:"minor_axis,omitempty"`
	Orientation float32 `yaml:"orientation,omitempty"`
	MajorWidth  float32 `yaml:"major_width,omitempty"`
	MinorWidth  float32 `yaml:"minor_width,omitempty"`
}

// ToggleStep presses the play button.
type ToggleStep struct {
	// Expect is the expected outcome: toggled, denied, dropped or failed.
	// Empty skips the check.
	Expect string `yaml:"expect,omitempty"`
}

// SliderStep moves one control slider.
type SliderStep struct {
	Index    int     `yaml:"index"`
	Position float64 `yaml:"position"`
}

// SizeStep reports a new surface size.
type SizeStep struct {
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

// FailStep makes the next engine call of Op fail.
type FailStep struct {
	Op    string `yaml:"op"`
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of call_count, call_order, slots_free, final_state.
	Type string `yaml:"type"`

	// Op is the engine op name (used by call_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number of calls (used by call_count).
	Count int `yaml:"count,omitempty"`

	// Ops is the expected op order (used by call_order).
	Ops []string `yaml:"ops,omitempty"`

	// Expect is a subset of the final state (used by final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertCallCount  = "call_count"
	AssertCallOrder  = "call_order"
	AssertSlotsFree  = "slots_free"
	AssertFinalState = "final_state"
)

var outcomeNames = map[string]playback.Outcome{
	playback.OutcomeToggled.String(): playback.OutcomeToggled,
	playback.OutcomeDenied.String():  playback.OutcomeDenied,
	playback.OutcomeDropped.String(): playback.OutcomeDropped,
	playback.OutcomeFailed.String():  playback.OutcomeFailed,
}

var axisNames = map[string]touch.Axis{
	"major":       touch.AxisMajor,
	"minor":       touch.AxisMinor,
	"orientation": touch.AxisOrientation,
	"tool_major":  touch.AxisToolMajor,
	"tool_minor":  touch.AxisToolMinor,
	"all":         touch.AxisAll,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := playback.ParsePermission(s.Permission); err != nil {
		return err
	}
	if len(s.Sliders) > controls.SliderCount {
		return fmt.Errorf("sliders: at most %d positions, got %d", controls.SliderCount, len(s.Sliders))
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st Step) error {
	set := 0
	for _, present := range []bool{
		st.Touch != nil, st.Toggle != nil, st.Permission != "", st.Slider != nil,
		st.Resize != nil, st.Resume != nil, st.Destroy != nil, st.Fail != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one event is required, got %d", index, set)
	}

	switch {
	case st.Touch != nil:
		if _, err := st.Touch.event(); err != nil {
			return fmt.Errorf("steps[%d].touch: %w", index, err)
		}
	case st.Toggle != nil:
		if st.Toggle.Expect != "" {
			if _, ok := outcomeNames[st.Toggle.Expect]; !ok {
				return fmt.Errorf("steps[%d].toggle: unknown outcome %q", index, st.Toggle.Expect)
			}
		}
	case st.Permission != "":
		if _, err := answer(st.Permission); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case st.Slider != nil:
		if st.Slider.Index < 0 || st.Slider.Index >= controls.SliderCount {
			return fmt.Errorf("steps[%d].slider: index %d out of range [0,%d)", index, st.Slider.Index, controls.SliderCount)
		}
	case st.Resize != nil:
		if st.Resize.Width <= 0 || st.Resize.Height <= 0 {
			return fmt.Errorf("steps[%d].resize: width and height must be positive", index)
		}
	case st.Fail != nil:
		kind, err := engine.ParseKind(st.Fail.Op)
		if err != nil {
			return fmt.Errorf("steps[%d].fail: %w", index, err)
		}
		if !kind.Invokable() {
			return fmt.Errorf("steps[%d].fail: %s cannot fail on demand", index, kind)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallCount:
		if _, err := engine.ParseKind(a.Op); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertCallOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for call_order", index)
		}
		for _, op := range a.Ops {
			if _, err := engine.ParseKind(op); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertSlotsFree:
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		known := FinalState{}.fields()
		for key := range a.Expect {
			if _, ok := known[key]; !ok {
				return fmt.Errorf("assertions[%d]: unknown final_state field %q", index, key)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// event converts the step into a touch event.
func (t *TouchStep) event() (touch.Event, error) {
	kind, err := touch.ParseKind(t.Kind)
	if err != nil {
		return touch.Event{}, err
	}
	ev := touch.Event{Kind: kind, Action: t.Action}
	for _, name := range t.Axes {
		axis, ok := axisNames[name]
		if !ok {
			return touch.Event{}, fmt.Errorf("unknown axis %q", name)
		}
		ev.Axes |= axis
	}
	for _, s := range t.Samples {
		ev.Samples = append(ev.Samples, touch.Sample{
			ID:          s.ID,
			X:           s.X,
			Y:           s.Y,
			Pressure:    s.Pressure,
			MajorAxis:   s.MajorAxis,
			MinorAxis:   s.MinorAxis,
			Orientation: s.Orientation,
			MajorWidth:  s.MajorWidth,
			MinorWidth:  s.MinorWidth,
		})
	}
	return ev, nil
}

// answer parses a permission step. Only definite answers are allowed.
func answer(s string) (bool, error) {
	p, err := playback.ParsePermission(s)
	if err != nil {
		return false, err
	}
	if p == playback.PermissionUnknown {
		return false, fmt.Errorf("permission step must be granted or denied")
	}
	return p == playback.PermissionGranted, nil
}
