package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/padsynth/internal/touch"
)

func TestParseScenario_Full(t *testing.T) {
	data := []byte(`
name: full
permission: denied
sliders: [0.5, 0.2]
steps:
  - touch:
      kind: move
      axes: [major, orientation]
      samples: [{id: 1, x: 2, y: 3, pressure: 0.5, major_axis: 4, orientation: 1.5}]
  - toggle: {}
  - permission: granted
  - slider: {index: 3, position: 1}
  - resize: {width: 1280, height: 720}
  - resume: {}
  - destroy: {}
  - fail: {op: hover}
assertions:
  - {type: slots_free}
`)
	s, err := ParseScenario(data)
	require.NoError(t, err)

	assert.Equal(t, "full", s.Name)
	assert.Equal(t, []float64{0.5, 0.2}, s.Sliders)
	require.Len(t, s.Steps, 8)
	assert.NotNil(t, s.Steps[1].Toggle)
	assert.Equal(t, "granted", s.Steps[2].Permission)
	assert.NotNil(t, s.Steps[5].Resume)
	assert.NotNil(t, s.Steps[6].Destroy)
	assert.Equal(t, "hover", s.Steps[7].Fail.Op)

	ev, err := s.Steps[0].Touch.event()
	require.NoError(t, err)
	assert.Equal(t, touch.Move, ev.Kind)
	assert.Equal(t, touch.AxisMajor|touch.AxisOrientation, ev.Axes)
	require.Len(t, ev.Samples, 1)
	assert.Equal(t, float32(4), ev.Samples[0].MajorAxis)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "steps: [{resume: {}}]", "name is required"},
		{"no steps", "name: x", "steps list is required"},
		{"unknown field", "name: x\nstep: []", "failed to parse YAML"},
		{"two events", "name: x\nsteps: [{resume: {}, destroy: {}}]", "exactly one event"},
		{"empty step", "name: x\nsteps: [{}]", "exactly one event"},
		{"bad touch kind", "name: x\nsteps: [{touch: {kind: pinch}}]", "unknown touch event kind"},
		{"bad axis", "name: x\nsteps: [{touch: {kind: move, axes: [tilt]}}]", "unknown axis"},
		{"bad outcome", "name: x\nsteps: [{toggle: {expect: maybe}}]", "unknown outcome"},
		{"unknown answer", "name: x\nsteps: [{permission: unknown}]", "granted or denied"},
		{"bad permission", "name: x\npermission: maybe\nsteps: [{resume: {}}]", "unknown permission state"},
		{"slider range", "name: x\nsteps: [{slider: {index: 4, position: 0}}]", "out of range"},
		{"too many sliders", "name: x\nsliders: [0, 0, 0, 0, 0]\nsteps: [{resume: {}}]", "at most 4"},
		{"bad resize", "name: x\nsteps: [{resize: {width: 0, height: 10}}]", "must be positive"},
		{"fail lifecycle", "name: x\nsteps: [{fail: {op: create}}]", "cannot fail on demand"},
		{"bad assertion", "name: x\nsteps: [{resume: {}}]\nassertions: [{type: trace_magic}]", "unknown assertion type"},
		{"count op", "name: x\nsteps: [{resume: {}}]\nassertions: [{type: call_count, op: explode}]", "unknown engine op"},
		{"order ops", "name: x\nsteps: [{resume: {}}]\nassertions: [{type: call_order}]", "ops list is required"},
		{"state field", "name: x\nsteps: [{resume: {}}]\nassertions: [{type: final_state, expect: {volume: 1}}]", "unknown final_state field"},
		{"state expect", "name: x\nsteps: [{resume: {}}]\nassertions: [{type: final_state}]", "expect is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: disk\nsteps: [{resume: {}}]\n"), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "disk", s.Name)
}
