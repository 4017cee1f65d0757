// Package harness runs gesture scenarios against a padsynth session.
//
// A scenario drives a real Session (touch routing, playback, sliders and
// lifecycle) over a fake or reference engine and checks the engine calls
// that result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: three_finger_cancel
//	description: "Cancel clears every held slot"
//	permission: granted
//	steps:
//	  - touch: {kind: first_contact, samples: [{id: 7, x: 10, y: 20, pressure: 0.5}]}
//	  - touch: {kind: cancel}
//	  - toggle: {expect: toggled}
//	  - permission: granted
//	  - slider: {index: 1, position: 0.5}
//	  - resize: {width: 1280, height: 720}
//	  - resume: {}
//	  - destroy: {}
//	  - fail: {op: start, error: "device lost"}
//	assertions:
//	  - type: call_count
//	    op: touch_clear
//	    count: 1
//	  - type: call_order
//	    ops: [set_any_touch, touch_update]
//	  - type: slots_free
//	  - type: final_state
//	    expect: {playing: false, permission: granted}
//
// A toggle that needs permission stays pending until the next permission
// step answers it. Fail steps need an engine that supports fault injection.
//
// # Assertion Types
//
//   - call_count: an op appears exactly N times
//   - call_order: ops appear in the given order (first occurrences)
//   - slots_free: no slot holds a finger at the end
//   - final_state: subset match against the final session state
//
// # Deterministic Testing
//
// Calls are stamped by a fresh logical clock and every step waits for the
// engine calls it queued, so the same scenario always yields the same
// trace. RunWithGolden compares that trace with testdata/golden.
package harness
