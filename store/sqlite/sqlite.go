/*
Package sqlite provides a SQLite-backed SnapshotStore.

PURPOSE:
  Durable storage for the catalog. Each collection key ("ingredients",
  "skus", "remitos", ...) is one row holding that collection's JSON, the
  same key-per-entity-type layout the browser storage used. Keys the engine
  doesn't model are stored the same way and survive untouched.

KEY TABLES:
  collections: key -> JSON payload, with the time it was last written

ATOMICITY:
  SaveCollections writes every key inside one SQL transaction, so a crash
  mid-save leaves the previous snapshot intact rather than a mix. Rows
  whose key is not part of the saved snapshot are deleted in the same
  transaction: a save is a full replacement.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection because every new connection would see an empty
  database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/bakery.db")
  if err != nil {
      log.Fatal().Err(err).Msg("open store")
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: SnapshotStore contract
  - generic/store/memory.go: In-memory implementation for testing
  - bakery/persist.go: What the payloads contain
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/bakery-engine/generic"
)

var _ generic.SnapshotStore = (*Store)(nil)

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// SaveCollections replaces the stored snapshot with collections in one
// transaction: every key is upserted and keys not in collections are removed.
func (s *Store) SaveCollections(ctx context.Context, collections map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO collections (key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	keys := make([]any, 0, len(collections))
	for key, payload := range collections {
		if _, err := stmt.ExecContext(ctx, key, string(payload), now); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
		keys = append(keys, key)
	}

	prune := "DELETE FROM collections"
	if len(keys) > 0 {
		prune += " WHERE key NOT IN (?" + strings.Repeat(", ?", len(keys)-1) + ")"
	}
	if _, err := sqlTx.ExecContext(ctx, prune, keys...); err != nil {
		return fmt.Errorf("failed to prune stale collections: %w", err)
	}
	return sqlTx.Commit()
}

func (s *Store) LoadCollections(ctx context.Context) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, payload FROM collections`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, err
		}
		out[key] = []byte(payload)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// CollectionInfo describes one stored key (for the admin view).
type CollectionInfo struct {
	Key       string    `json:"key"`
	Bytes     int       `json:"bytes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Info lists stored keys sorted by name.
func (s *Store) Info(ctx context.Context) ([]CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, length(payload), updated_at FROM collections`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CollectionInfo
	for rows.Next() {
		var (
			info      CollectionInfo
			updatedAt string
		)
		if err := rows.Scan(&info.Key, &info.Bytes, &updatedAt); err != nil {
			return nil, err
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM collections")
	return err
}
