package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trace(ops ...string) []TraceEvent {
	out := make([]TraceEvent, len(ops))
	for i, op := range ops {
		out[i] = TraceEvent{Seq: int64(i + 1), Generation: 1, Op: op, Call: op}
	}
	return out
}

func TestAssertCallCount(t *testing.T) {
	tr := trace("create", "touch_clear", "touch_clear")

	assert.NoError(t, assertCallCount(tr, Assertion{Op: "touch_clear", Count: 2}))
	assert.NoError(t, assertCallCount(tr, Assertion{Op: "start", Count: 0}))

	err := assertCallCount(tr, Assertion{Op: "touch_clear", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Full trace")
}

func TestAssertCallOrder(t *testing.T) {
	tr := trace("create", "set_any_touch", "touch_update", "set_any_touch", "touch_clear")

	assert.NoError(t, assertCallOrder(tr, Assertion{Ops: []string{"create", "touch_update", "touch_clear"}}))
	assert.NoError(t, assertCallOrder(tr, Assertion{Ops: []string{"set_any_touch", "touch_clear"}}))

	err := assertCallOrder(tr, Assertion{Ops: []string{"touch_clear", "touch_update"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertCallOrder(tr, Assertion{Ops: []string{"start"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing op: start")
}

func TestAssertSlotsFree(t *testing.T) {
	assert.NoError(t, assertSlotsFree(FinalState{}))
	assert.Error(t, assertSlotsFree(FinalState{Active: []int{0, 3}}))
}

func TestAssertFinalState(t *testing.T) {
	final := FinalState{Playing: true, Permission: "granted", Active: []int{1}, Generation: 2, Live: true}

	assert.NoError(t, assertFinalState(final, Assertion{Expect: map[string]any{
		"playing": true, "permission": "granted", "active": 1, "generation": 2,
	}}))

	err := assertFinalState(final, Assertion{Expect: map[string]any{"generation": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation = 1")

	assert.Error(t, assertFinalState(final, Assertion{Expect: map[string]any{"playing": "yes"}}))
}

func TestEvaluateAssertions(t *testing.T) {
	r := NewResult()
	r.Trace = trace("create", "start")

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertCallCount, Op: "start", Count: 1},
		{Type: AssertCallCount, Op: "stop", Count: 1},
		{Type: "bogus"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[1], "unknown assertion type")
}
