/*
store.go - Persistence interface for catalog snapshots

PURPOSE:
  Defines the interface between the in-memory catalog and durable storage.
  The catalog is mirrored as one JSON document per entity-type key
  ("ingredients", "skus", "remitos", ...), the same shape the browser
  storage used, so each collection can be loaded and healed independently.

CONTRACT:
  - SaveCollections() writes every given key atomically: either all keys are
    replaced or none are.
  - LoadCollections() returns whatever keys exist. Missing keys are simply
    absent from the map; decoding and healing is the caller's job.
  - Persistence is fire-and-forget from the engine's point of view: the
    in-memory snapshot is authoritative for the session and never waits for
    a write to finish.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Durable SQLite key store
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - bakery/persist.go: Catalog <-> collections encoding
  - api/scheduler.go: Debounced writer
*/
package generic

import "context"

// =============================================================================
// SNAPSHOT STORE - Key-per-collection persistence
// =============================================================================

// SnapshotStore persists catalog collections keyed by entity type.
type SnapshotStore interface {
	// SaveCollections atomically replaces the stored snapshot. Keys absent
	// from collections are removed.
	SaveCollections(ctx context.Context, collections map[string][]byte) error

	// LoadCollections returns all stored keys.
	LoadCollections(ctx context.Context) (map[string][]byte, error)
}
