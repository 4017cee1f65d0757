// Package store records engine sessions in SQLite so they can be traced and
// replayed.
//
// A session is one run of an engine handle. Every native call the handle
// makes, including instance creation and destruction, is appended as a call
// row keyed by (session_id, seq).
//
// # Ordering
//
// Seq comes from the handle's logical clock. All reads order by seq; wall
// time is never stored, so two recordings of the same input are identical.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads while a session records
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: calls must belong to a session
//
// Parameter names are NFC-normalized before they are stored.
package store
