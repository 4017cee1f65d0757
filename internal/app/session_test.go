package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/padsynth/internal/app"
	"github.com/roach88/padsynth/internal/controls"
	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/playback"
	"github.com/roach88/padsynth/internal/testutil"
	"github.com/roach88/padsynth/internal/touch"
)

func startSession(t *testing.T, s *app.Session) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	t.Cleanup(func() {
		s.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("session did not stop")
		}
	})
}

// autoGrant answers every permission request with granted.
func autoGrant(s **app.Session) playback.PermissionProvider {
	return playback.ProviderFunc(func() { (*s).PermissionResult(true) })
}

func TestSession_Resume(t *testing.T) {
	native := testutil.NewFakeNative()
	s := app.New(native, playback.ProviderFunc(func() {}),
		app.WithSliders([controls.SliderCount]float64{1, 0.5, 1, 0.25}))
	startSession(t, s)

	require.NoError(t, s.Resume(context.Background()))

	assert.Equal(t, []engine.Kind{
		engine.KindCreate,
		engine.KindSetScreenSize,
		engine.KindSetParameter, engine.KindSetParameter, engine.KindSetParameter, engine.KindSetParameter,
		engine.KindIsPlaying,
	}, native.Kinds())

	_, in, ok := native.Current()
	require.True(t, ok)
	assert.Equal(t, float32(1920), in.Width)
	assert.Equal(t, float32(1080), in.Height)
	assert.InDelta(t, 3000, in.Params[controls.SliderFrequency], 1e-3)
	assert.InDelta(t, 0.5, in.Params[controls.SliderVolume], 1e-6)
	assert.Equal(t, float32(3), in.Params[controls.SliderWavetable])
	assert.InDelta(t, 0.25, in.Params[controls.SliderModulation], 1e-6)
	assert.False(t, s.Coordinator().Playing())
}

func TestSession_ResumeCreateFailure(t *testing.T) {
	native := testutil.NewFakeNative()
	native.FailCreate(errors.New("no audio device"))
	s := app.New(native, playback.ProviderFunc(func() {}))
	startSession(t, s)

	err := s.Resume(context.Background())
	require.Error(t, err)
	assert.True(t, engine.IsFault(err))
	assert.Zero(t, native.Violations())
}

func TestSession_ToggleAsksOnce(t *testing.T) {
	native := testutil.NewFakeNative()
	var s *app.Session
	asked := 0
	s = app.New(native, playback.ProviderFunc(func() {
		asked++
		s.PermissionResult(true)
	}))
	startSession(t, s)
	ctx := context.Background()

	outcome, err := s.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.OutcomeToggled, outcome)
	assert.True(t, s.Coordinator().Playing())

	outcome, err = s.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.OutcomeToggled, outcome)
	assert.False(t, s.Coordinator().Playing())
	assert.Equal(t, 1, asked, "a granted permission is remembered")
}

func TestSession_DestroyThenResumeRestoresSliders(t *testing.T) {
	native := testutil.NewFakeNative()
	var s *app.Session
	s = app.New(native, autoGrant(&s), app.WithPermission(playback.PermissionGranted))
	startSession(t, s)
	ctx := context.Background()

	require.NoError(t, s.Resume(ctx))
	require.NoError(t, s.SetSlider(controls.SliderVolume, 0.8))
	s.Resize(1280, 720)
	require.NoError(t, s.Destroy(ctx))
	assert.False(t, s.Handle().Live())
	assert.Zero(t, native.Live())

	require.NoError(t, s.Resume(ctx))
	assert.Equal(t, uint64(2), s.Handle().Generation())

	_, in, ok := native.Current()
	require.True(t, ok)
	assert.InDelta(t, 0.8, in.Params[controls.SliderVolume], 1e-6)
	assert.Equal(t, float32(1280), in.Width)
	assert.Zero(t, native.Violations())
}

func TestSession_TouchCancelClearsEverySlot(t *testing.T) {
	native := testutil.NewFakeNative()

	var mu sync.Mutex
	var observed []engine.Kind
	s := app.New(native, playback.ProviderFunc(func() {}),
		app.WithObserver(func(c engine.Call) {
			mu.Lock()
			observed = append(observed, c.Op.Kind)
			mu.Unlock()
		}))
	startSession(t, s)

	samples := []touch.Sample{
		{ID: 10, X: 100, Y: 100, Pressure: 0.5},
		{ID: 11, X: 200, Y: 200, Pressure: 0.5},
		{ID: 12, X: 300, Y: 300, Pressure: 0.5},
	}
	require.NoError(t, s.Touch(touch.Event{Kind: touch.FirstContact, Samples: samples[:1]}))
	require.NoError(t, s.Touch(touch.Event{Kind: touch.AdditionalContact, Samples: samples[:2], Action: 1}))
	require.NoError(t, s.Touch(touch.Event{Kind: touch.AdditionalContact, Samples: samples, Action: 2}))
	assert.Equal(t, []int{0, 1, 2}, s.Router().Active())

	require.NoError(t, s.Touch(touch.Event{Kind: touch.Cancel}))
	require.NoError(t, s.Flush(context.Background()))

	assert.Equal(t, 3, native.Count(engine.KindTouchClear))
	assert.Empty(t, s.Router().Active())
	assert.False(t, s.Router().AnyTouch())

	_, in, ok := native.Current()
	require.True(t, ok)
	assert.False(t, in.AnyTouch)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, native.Kinds(), observed)
}

func TestSession_ErrorHook(t *testing.T) {
	native := testutil.NewFakeNative()
	native.FailNext(engine.KindHover, errors.New("bad slot"))

	var mu sync.Mutex
	var failed []engine.Kind
	s := app.New(native, playback.ProviderFunc(func() {}),
		app.WithErrorHook(func(op engine.Op, err error) {
			mu.Lock()
			failed = append(failed, op.Kind)
			mu.Unlock()
		}))
	startSession(t, s)

	require.NoError(t, s.Touch(touch.Event{Kind: touch.Hover, Samples: []touch.Sample{{X: 1, Y: 2}}}))
	require.NoError(t, s.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []engine.Kind{engine.KindHover}, failed)
	assert.Equal(t, uint64(1), s.Handle().Generation())
	assert.False(t, s.Handle().Live(), "a faulted instance is discarded")
}
