// Package engine owns the lifecycle of a native synthesis engine and
// serializes every call into it.
//
// The native engine is an external collaborator reached through the Native
// capability and an opaque ID. Handle is the single owner of that ID:
//
//   - EnsureCreated allocates an instance when none is live (no-op otherwise).
//   - Destroy releases the live instance and forgets its ID (no-op otherwise).
//   - Invoke always ensures an instance exists, then performs one Op.
//
// All three run under one exclusive lock per Handle, so no call can reach an
// instance that is being destroyed or has not been created yet. A destroyed ID
// is never reused: the next call creates a fresh instance.
//
// Native failures are returned as *Fault. A fault is fatal to the instance
// that produced it; the handle discards it and the next call starts over.
//
// # Dispatching
//
// Dispatcher moves engine calls off the caller's goroutine. It owns a FIFO
// queue drained by a single worker, so calls are delivered to the engine in
// the order they were posted. Touch streams depend on this: updates for one
// slot must never overtake each other.
//
// Ops are plain values and can be recorded and replayed (see the store
// package).
package engine
