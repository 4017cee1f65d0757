package slots

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_LowestFreeFirst(t *testing.T) {
	a := New()

	for i := 0; i < MaxSlots; i++ {
		slot, ok := a.Acquire(100 + i)
		require.True(t, ok)
		assert.Equal(t, i, slot)
	}

	// free a slot in the middle; the next id takes it
	slot, ok := a.Release(103)
	require.True(t, ok)
	assert.Equal(t, 3, slot)

	slot, ok = a.Acquire(500)
	require.True(t, ok)
	assert.Equal(t, 3, slot)
}

func TestAcquire_Idempotent(t *testing.T) {
	a := New()

	first, ok := a.Acquire(42)
	require.True(t, ok)
	_, _ = a.Acquire(7)

	for i := 0; i < 5; i++ {
		again, ok := a.Acquire(42)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 2, a.Len())
}

func TestAcquire_CapacityExceeded(t *testing.T) {
	a := New()
	for i := 0; i < MaxSlots; i++ {
		_, ok := a.Acquire(i)
		require.True(t, ok)
	}

	slot, ok := a.Acquire(99)
	assert.False(t, ok)
	assert.Equal(t, -1, slot)
	assert.Equal(t, MaxSlots, a.Len())

	_, mapped := a.Lookup(99)
	assert.False(t, mapped, "dropped id must not be recorded")
}

func TestRelease_Unmapped(t *testing.T) {
	a := New()
	_, _ = a.Acquire(1)

	_, ok := a.Release(2)
	assert.False(t, ok)
	assert.Equal(t, 1, a.Len())

	_, ok = a.Release(1)
	assert.True(t, ok)
	_, ok = a.Release(1)
	assert.False(t, ok, "second release is a no-op")
}

func TestReleaseAll(t *testing.T) {
	a := New()
	for i := 0; i < 4; i++ {
		_, _ = a.Acquire(i * 10)
	}

	a.ReleaseAll()

	for s := 0; s < a.Cap(); s++ {
		assert.True(t, a.IsFree(s), "slot %d", s)
	}
	for i := 0; i < 4; i++ {
		_, ok := a.Lookup(i * 10)
		assert.False(t, ok)
	}
	assert.Empty(t, a.InUse())
}

func TestInUse_Sorted(t *testing.T) {
	a := New()
	for _, id := range []int{9, 8, 7, 6} {
		_, _ = a.Acquire(id)
	}
	_, _ = a.Release(8)

	assert.Equal(t, []int{0, 2, 3}, a.InUse())
}

func TestOwner(t *testing.T) {
	a := New()
	_, _ = a.Acquire(31)
	slot, _ := a.Acquire(32)

	id, ok := a.Owner(slot)
	require.True(t, ok)
	assert.Equal(t, 32, id)

	_, ok = a.Owner(5)
	assert.False(t, ok)
	_, ok = a.Owner(-1)
	assert.False(t, ok)
}

func TestNewWithCapacity(t *testing.T) {
	a := NewWithCapacity(2)
	assert.Equal(t, 2, a.Cap())
	_, _ = a.Acquire(1)
	_, _ = a.Acquire(2)
	_, ok := a.Acquire(3)
	assert.False(t, ok)

	assert.Equal(t, 1, NewWithCapacity(0).Cap())
	assert.False(t, a.IsFree(7), "out of range slot")
}

// TestInvariant_RandomSequences drives random acquire/release traffic and
// checks the table stays injective after every step.
func TestInvariant_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := New()

	for step := 0; step < 5000; step++ {
		id := rng.Intn(25)
		switch rng.Intn(10) {
		case 0:
			a.ReleaseAll()
		case 1, 2, 3, 4:
			_, _ = a.Release(id)
		default:
			_, _ = a.Acquire(id)
		}
		checkInvariant(t, a)
	}
}

func checkInvariant(t *testing.T, a *Allocator) {
	t.Helper()

	owners := make(map[int]int)
	for id, slot := range a.owner {
		prev, dup := owners[slot]
		require.False(t, dup, "slot %d owned by %d and %d", slot, prev, id)
		owners[slot] = id
		require.True(t, a.inUse[slot], "mapped slot %d not marked in use", slot)
	}
	for slot, used := range a.inUse {
		if used {
			_, ok := owners[slot]
			require.True(t, ok, "slot %d in use without an owner", slot)
		}
	}
}
