// Package store persists function documentation snapshots in SQLite.
//
// A snapshot is the flattened content of a registry: one row per
// (key, variant) pair, in registration order, with the argument types
// accepted at each position, the variant's scopes and its per-backend
// templates. Snapshots are identified by an opaque ID and addressed by the
// content hash of their entries, so exporting an unchanged catalog twice can
// be detected with LatestSnapshotForHash.
//
// # Layout
//
//   - catalog_snapshots: one row per export
//   - catalog_entries: one row per registered variant, keyed by
//     (snapshot_id, position)
//
// Writes are idempotent on the snapshot ID. Reads order entries by position
// and return empty slices rather than nil.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Entry and catalog hashes are computed with package ir (canonical JSON and
// SHA-256 with domain separation).
package store
