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

func TestHandle_LazyCreation(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native)

	assert.False(t, h.Live())
	assert.Equal(t, 0, native.Count(engine.KindCreate), "no engine before first use")

	playing, err := h.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.False(t, playing)
	assert.True(t, h.Live())
	assert.Equal(t, uint64(1), h.Generation())
	assert.Equal(t, []engine.Kind{engine.KindCreate, engine.KindIsPlaying}, native.Kinds())
}

func TestHandle_EnsureCreatedIdempotent(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native)
	ctx := context.Background()

	require.NoError(t, h.EnsureCreated(ctx))
	require.NoError(t, h.EnsureCreated(ctx))
	require.NoError(t, h.EnsureCreated(ctx))

	assert.Equal(t, 1, native.Count(engine.KindCreate))
	assert.Equal(t, 1, native.Live())
}

func TestHandle_DestroyIdempotent(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native)
	ctx := context.Background()

	require.NoError(t, h.Destroy(ctx), "destroy before create is a no-op")
	assert.Equal(t, 0, native.Count(engine.KindDestroy))

	require.NoError(t, h.EnsureCreated(ctx))
	require.NoError(t, h.Destroy(ctx))
	require.NoError(t, h.Destroy(ctx))

	assert.Equal(t, 1, native.Count(engine.KindDestroy))
	assert.False(t, h.Live())
	assert.Equal(t, 0, native.Live())
}

func TestHandle_NoResurrectionAfterDestroy(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native)
	ctx := context.Background()

	require.NoError(t, h.Start(ctx))
	firstID, _, ok := native.Current()
	require.True(t, ok)

	require.NoError(t, h.Destroy(ctx))

	playing, err := h.IsPlaying(ctx)
	require.NoError(t, err, "a call after destroy recreates transparently")
	assert.False(t, playing, "fresh instance does not inherit the old state")

	secondID, _, ok := native.Current()
	require.True(t, ok)
	assert.NotEqual(t, firstID, secondID)
	assert.Equal(t, uint64(2), h.Generation())
	assert.Equal(t, 0, native.Violations())
}

func TestHandle_NamedParameters(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native, engine.WithParameterNames(map[string]int{"frequency": 0, "amplitude": 1}))
	ctx := context.Background()

	_, err := h.Invoke(ctx, engine.SetNamedParameter("amplitude", 0.25))
	require.NoError(t, err)

	_, in, _ := native.Current()
	assert.Equal(t, float32(0.25), in.Params[1])

	_, err = h.Invoke(ctx, engine.SetNamedParameter("cutoff", 1))
	assert.ErrorIs(t, err, engine.ErrUnknownParameter)
	assert.False(t, engine.IsFault(err))
}

func TestHandle_UnknownParameterDoesNotCreate(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native)

	_, err := h.Invoke(context.Background(), engine.SetNamedParameter("nope", 1))
	require.ErrorIs(t, err, engine.ErrUnknownParameter)
	assert.Equal(t, 0, native.Count(engine.KindCreate))
}

func TestHandle_InvalidOps(t *testing.T) {
	h := engine.NewHandle(testutil.NewFakeNative())
	ctx := context.Background()

	_, err := h.Invoke(ctx, engine.Op{Kind: engine.KindCreate})
	assert.ErrorIs(t, err, engine.ErrInvalidOp)

	_, err = h.Invoke(ctx, engine.Op{Kind: engine.KindTouchUpdate})
	assert.ErrorIs(t, err, engine.ErrInvalidOp)
}

func TestHandle_CreateFault(t *testing.T) {
	native := testutil.NewFakeNative()
	boom := errors.New("no audio device")
	native.FailCreate(boom)
	h := engine.NewHandle(native)

	err := h.Start(context.Background())
	require.Error(t, err)
	assert.True(t, engine.IsFault(err))
	assert.ErrorIs(t, err, boom)

	var fault *engine.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, engine.FaultCreate, fault.Code)
	assert.False(t, h.Live())

	// not retried automatically; the next call tries again
	native.FailCreate(nil)
	require.NoError(t, h.Start(context.Background()))
	assert.Equal(t, uint64(1), h.Generation())
}

func TestHandle_CallFaultDiscardsInstance(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native)
	ctx := context.Background()

	require.NoError(t, h.Start(ctx))
	native.FailNext(engine.KindStop, errors.New("stream disconnected"))

	err := h.Stop(ctx)
	var fault *engine.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, engine.FaultCall, fault.Code)
	assert.Equal(t, engine.KindStop, fault.Op)
	assert.Equal(t, uint64(1), fault.Generation)
	assert.Contains(t, err.Error(), "CALL_FAILED")

	assert.False(t, h.Live(), "faulted instance is discarded")
	assert.Equal(t, 0, native.Live())

	playing, err := h.IsPlaying(ctx)
	require.NoError(t, err)
	assert.False(t, playing)
	assert.Equal(t, uint64(2), h.Generation())
	assert.Equal(t, 0, native.Violations())
}

func TestHandle_DestroyFaultStillForgetsIdentity(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native)
	ctx := context.Background()

	require.NoError(t, h.EnsureCreated(ctx))
	native.FailNext(engine.KindDestroy, errors.New("busy"))

	err := h.Destroy(ctx)
	require.True(t, engine.IsFault(err))
	assert.False(t, h.Live())
	require.NoError(t, h.Destroy(ctx), "second destroy is a no-op")
}

func TestHandle_Observer(t *testing.T) {
	native := testutil.NewFakeNative()
	var calls []engine.Call
	h := engine.NewHandle(native, engine.WithObserver(func(c engine.Call) {
		calls = append(calls, c)
	}))
	ctx := context.Background()

	require.NoError(t, h.Start(ctx))
	require.NoError(t, h.Destroy(ctx))

	require.Len(t, calls, 3)
	assert.Equal(t, engine.KindCreate, calls[0].Op.Kind)
	assert.Equal(t, engine.KindStart, calls[1].Op.Kind)
	assert.Equal(t, engine.KindDestroy, calls[2].Op.Kind)
	for i, c := range calls {
		assert.Equal(t, int64(i+1), c.Seq)
		assert.Equal(t, uint64(1), c.Generation)
	}
}

func TestHandle_LockHonoursContext(t *testing.T) {
	block := make(chan struct{})
	native := &blockingNative{FakeNative: testutil.NewFakeNative(), block: block}
	h := engine.NewHandle(native)

	started := make(chan struct{})
	go func() {
		close(started)
		_ = h.Start(context.Background())
	}()
	<-started
	require.Eventually(t, func() bool { return native.Count(engine.KindStart) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.IsPlaying(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
}

// TestHandle_ConcurrentLifecycle hammers the handle from many goroutines
// while another goroutine keeps destroying it. No call may ever reach a
// destroyed instance.
func TestHandle_ConcurrentLifecycle(t *testing.T) {
	native := testutil.NewFakeNative()
	h := engine.NewHandle(native)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := h.Invoke(ctx, engine.ClearTouch(i))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			assert.NoError(t, h.Destroy(ctx))
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, native.Violations())
	assert.LessOrEqual(t, native.Live(), 1)
}

// blockingNative holds Start until block is closed.
type blockingNative struct {
	*testutil.FakeNative
	block chan struct{}
}

func (b *blockingNative) Start(id engine.ID) error {
	err := b.FakeNative.Start(id)
	<-b.block
	return err
}
