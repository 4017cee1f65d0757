package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/synth"
	"github.com/roach88/padsynth/internal/testutil"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenarios(t *testing.T) {
	for _, name := range []string{
		"three_finger_cancel",
		"permission_then_resume",
		"fault_recovery",
		"denied_then_granted",
	} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGolden(t *testing.T) {
	for _, name := range []string{"three_finger_cancel", "permission_then_resume"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_DeniedOutcomes(t *testing.T) {
	result, err := Run(context.Background(), loadTestScenario(t, "denied_then_granted"))
	require.NoError(t, err)
	assert.Equal(t, []string{"denied", "toggled"}, result.Outcomes)
}

func TestRun_ElevenFingers(t *testing.T) {
	var steps []Step
	var samples []SampleSpec
	for i := 0; i < 11; i++ {
		samples = append(samples, SampleSpec{ID: 100 + i, X: float32(i), Y: 1, Pressure: 0.5})
		kind := "additional_contact"
		if i == 0 {
			kind = "first_contact"
		}
		steps = append(steps, Step{Touch: &TouchStep{
			Kind:    kind,
			Action:  i,
			Samples: append([]SampleSpec(nil), samples...),
		}})
	}
	steps = append(steps, Step{Touch: &TouchStep{Kind: "cancel"}})

	scenario := &Scenario{
		Name:  "eleven_fingers",
		Steps: steps,
		Assertions: []Assertion{
			{Type: AssertCallCount, Op: "touch_update", Count: 10},
			{Type: AssertCallCount, Op: "touch_clear", Count: 10},
			{Type: AssertSlotsFree},
			{Type: AssertFinalState, Expect: map[string]any{"dropped": 1}},
		},
	}
	require.NoError(t, validateScenario(scenario))

	native := testutil.NewFakeNative()
	result, err := Run(context.Background(), scenario, WithNative(native))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Zero(t, native.Violations())
}

func TestRun_FailedAssertion(t *testing.T) {
	scenario := &Scenario{
		Name:  "wrong_count",
		Steps: []Step{{Touch: &TouchStep{Kind: "cancel"}}},
		Assertions: []Assertion{
			{Type: AssertCallCount, Op: "touch_clear", Count: 2},
		},
	}
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "2 calls of touch_clear")
}

func TestRun_WrongToggleExpectation(t *testing.T) {
	scenario := &Scenario{
		Name:       "wrong_outcome",
		Permission: "granted",
		Steps:      []Step{{Toggle: &ToggleStep{Expect: "denied"}}},
	}
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, strings.Join(result.Errors, "\n"), "toggle outcome toggled, expected denied")
}

func TestRun_UnansweredToggle(t *testing.T) {
	scenario := &Scenario{
		Name:  "unanswered",
		Steps: []Step{{Toggle: &ToggleStep{}}},
	}
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "still waiting for permission")
	assert.Empty(t, result.Trace, "no engine call before permission")
}

func TestRun_FailNeedsInjector(t *testing.T) {
	scenario := &Scenario{
		Name:  "inject",
		Steps: []Step{{Fail: &FailStep{Op: "start"}}},
	}
	_, err := Run(context.Background(), scenario, WithNative(synth.New(synth.Discard)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fault injection")
}

func TestRun_ReferenceSynthWithTeardown(t *testing.T) {
	var observed []engine.Kind
	s := synth.New(synth.Discard)

	scenario := loadTestScenario(t, "permission_then_resume")
	result, err := Run(context.Background(), scenario,
		WithNative(s),
		WithObserver(func(c engine.Call) { observed = append(observed, c.Op.Kind) }),
		WithTeardown())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Len(t, result.Trace, 19)
	require.Len(t, observed, 20)
	assert.Equal(t, engine.KindDestroy, observed[19], "teardown is observed but not traced")
	assert.Zero(t, s.Live())
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, loadTestScenario(t, "three_finger_cancel"))
	assert.Error(t, err)
}

func TestTraceEvent_String(t *testing.T) {
	tests := []struct {
		ev   TraceEvent
		want string
	}{
		{TraceEvent{Seq: 1, Generation: 1, Op: "create", Call: "create"}, "   1  g1  create"},
		{TraceEvent{Seq: 12, Generation: 2, Op: "is_playing", Call: "is_playing", Playing: true}, "  12  g2  is_playing  -> playing=true"},
		{TraceEvent{Seq: 3, Generation: 1, Op: "start", Call: "start", Error: "device lost"}, "   3  g1  start  !! device lost"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.ev.Seq), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.String())
		})
	}
}
