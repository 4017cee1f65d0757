// Package slots maps OS touch-point ids onto a small fixed set of engine slots.
package slots

import "sort"

// MaxSlots is the number of concurrent touches the engine tracks.
const MaxSlots = 10

// Allocator assigns slots lowest-index-first and keeps the id→slot mapping
// injective: a slot is in use if and only if exactly one live id maps to it.
//
// Allocator is not safe for concurrent use. It is owned by whichever goroutine
// delivers touch events; a multi-producer touch source needs external locking.
type Allocator struct {
	inUse []bool
	owner map[int]int // system id -> slot
}

// New returns an allocator with MaxSlots slots.
func New() *Allocator {
	return NewWithCapacity(MaxSlots)
}

// NewWithCapacity returns an allocator with n slots. n < 1 is treated as 1.
func NewWithCapacity(n int) *Allocator {
	if n < 1 {
		n = 1
	}
	return &Allocator{
		inUse: make([]bool, n),
		owner: make(map[int]int, n),
	}
}

// Acquire returns the slot for id, allocating the lowest free slot if id has
// none yet. Re-acquiring a mapped id returns its current slot unchanged.
// ok is false when every slot is taken.
func (a *Allocator) Acquire(id int) (slot int, ok bool) {
	if s, found := a.owner[id]; found {
		return s, true
	}
	for i, used := range a.inUse {
		if !used {
			a.inUse[i] = true
			a.owner[id] = i
			return i, true
		}
	}
	return -1, false
}

// Release frees the slot mapped to id. It reports the freed slot, or ok=false
// when id was not mapped.
func (a *Allocator) Release(id int) (slot int, ok bool) {
	s, found := a.owner[id]
	if !found {
		return -1, false
	}
	a.inUse[s] = false
	delete(a.owner, id)
	return s, true
}

// ReleaseAll frees every slot and forgets every id.
func (a *Allocator) ReleaseAll() {
	for i := range a.inUse {
		a.inUse[i] = false
	}
	clear(a.owner)
}

// Lookup returns the slot mapped to id without allocating.
func (a *Allocator) Lookup(id int) (slot int, ok bool) {
	s, found := a.owner[id]
	if !found {
		return -1, false
	}
	return s, true
}

// Owner returns the id that holds slot.
func (a *Allocator) Owner(slot int) (id int, ok bool) {
	if slot < 0 || slot >= len(a.inUse) || !a.inUse[slot] {
		return 0, false
	}
	for id, s := range a.owner {
		if s == slot {
			return id, true
		}
	}
	return 0, false
}

// IsFree reports whether slot is unallocated. Out-of-range slots are never free.
func (a *Allocator) IsFree(slot int) bool {
	if slot < 0 || slot >= len(a.inUse) {
		return false
	}
	return !a.inUse[slot]
}

// InUse returns the allocated slots in ascending order.
func (a *Allocator) InUse() []int {
	out := make([]int, 0, len(a.owner))
	for _, s := range a.owner {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of allocated slots.
func (a *Allocator) Len() int { return len(a.owner) }

// Cap returns the total number of slots.
func (a *Allocator) Cap() int { return len(a.inUse) }
