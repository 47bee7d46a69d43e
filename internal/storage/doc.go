// Package storage persists module refresh state across restarts.
//
// Drivers:
//   - file: one JSON object, replaced atomically on every write
//   - sqlite: one row per module (modernc.org/sqlite, no cgo)
//
// Writes are decimated by Persister so the disk sees one snapshot every
// buffer_size ticks.
package storage
