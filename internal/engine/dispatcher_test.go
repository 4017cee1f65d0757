package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/padsynth/internal/engine"
	"github.com/roach88/padsynth/internal/testutil"
)

func startDispatcher(t *testing.T, inv engine.Invoker, opts ...engine.DispatcherOption) (*engine.Dispatcher, <-chan error) {
	t.Helper()
	d := engine.NewDispatcher(inv, opts...)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	t.Cleanup(func() {
		d.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("dispatcher did not stop")
		}
	})
	return d, done
}

func TestDispatcher_FIFO(t *testing.T) {
	native := testutil.NewFakeNative()
	d, _ := startDispatcher(t, engine.NewHandle(native))

	for i := 0; i < 50; i++ {
		d.Post(engine.UpdateTouch(engine.TouchData{Slot: 0, ID: 1, X: float32(i)}))
	}
	_, err := d.Submit(engine.QueryPlaying()).Wait(context.Background())
	require.NoError(t, err)

	var xs []float32
	for _, c := range native.Calls() {
		if c.Kind == engine.KindTouchUpdate {
			xs = append(xs, c.Op.Touch.X)
		}
	}
	require.Len(t, xs, 50)
	for i, x := range xs {
		assert.Equal(t, float32(i), x, "update %d delivered out of order", i)
	}
}

func TestDispatcher_SubmitResult(t *testing.T) {
	native := testutil.NewFakeNative()
	d, _ := startDispatcher(t, engine.NewHandle(native))
	ctx := context.Background()

	_, err := d.Submit(engine.Start()).Wait(ctx)
	require.NoError(t, err)

	res, err := d.Submit(engine.QueryPlaying()).Wait(ctx)
	require.NoError(t, err)
	assert.True(t, res.Playing)
}

func TestDispatcher_ErrorHook(t *testing.T) {
	native := testutil.NewFakeNative()
	native.FailCreate(errors.New("no device"))

	var mu sync.Mutex
	var failed []engine.Kind
	d, _ := startDispatcher(t, engine.NewHandle(native), engine.WithErrorHook(func(op engine.Op, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.True(t, engine.IsFault(err))
		failed = append(failed, op.Kind)
	}))

	d.Post(engine.Start())
	_, err := d.Submit(engine.QueryPlaying()).Wait(context.Background())
	require.True(t, engine.IsFault(err), "submitted calls get their own error")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []engine.Kind{engine.KindStart}, failed)
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	native := testutil.NewFakeNative()
	d := engine.NewDispatcher(engine.NewHandle(native))

	for i := 0; i < 5; i++ {
		d.Post(engine.ClearTouch(i))
	}
	last := d.Submit(engine.QueryPlaying())
	d.Close()

	require.NoError(t, d.Run(context.Background()))
	_, err := last.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, native.Count(engine.KindTouchClear))
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d := engine.NewDispatcher(engine.NewHandle(testutil.NewFakeNative()))
	d.Close()

	_, err := d.Submit(engine.Start()).Wait(context.Background())
	assert.ErrorIs(t, err, engine.ErrDispatcherClosed)
}

func TestDispatcher_CancelAbandonsQueued(t *testing.T) {
	d := engine.NewDispatcher(engine.NewHandle(testutil.NewFakeNative()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := d.Submit(engine.Start())
	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// depending on scheduling the job either ran before cancellation was
	// observed or was abandoned; it must resolve either way
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("pending never resolved")
	}
}

func TestPending_WaitHonoursContext(t *testing.T) {
	d := engine.NewDispatcher(engine.NewHandle(testutil.NewFakeNative()))
	p := d.Submit(engine.Start()) // never runs: Run not started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, d.Len())
}

func TestDispatcher_BlockingCalls(t *testing.T) {
	native := testutil.NewFakeNative()
	d, _ := startDispatcher(t, engine.NewHandle(native))
	ctx := context.Background()

	d.Post(engine.ClearTouch(4))
	require.NoError(t, d.Start(ctx))

	playing, err := d.IsPlaying(ctx)
	require.NoError(t, err)
	assert.True(t, playing)

	require.NoError(t, d.Stop(ctx))
	playing, err = d.IsPlaying(ctx)
	require.NoError(t, err)
	assert.False(t, playing)

	assert.Equal(t, []engine.Kind{
		engine.KindCreate,
		engine.KindTouchClear,
		engine.KindStart,
		engine.KindIsPlaying,
		engine.KindStop,
		engine.KindIsPlaying,
	}, native.Kinds())
}

func TestDispatcher_Flush(t *testing.T) {
	native := testutil.NewFakeNative()
	d, _ := startDispatcher(t, engine.NewHandle(native))

	for slot := 0; slot < 5; slot++ {
		d.Post(engine.ClearTouch(slot))
	}
	require.NoError(t, d.Flush(context.Background()))

	assert.Equal(t, 5, native.Count(engine.KindTouchClear))
	assert.Len(t, native.Calls(), 6, "flush itself must not reach the engine")
}

func TestDispatcher_FlushAfterClose(t *testing.T) {
	d := engine.NewDispatcher(engine.NewHandle(testutil.NewFakeNative()))
	d.Close()
	assert.ErrorIs(t, d.Flush(context.Background()), engine.ErrDispatcherClosed)
}
