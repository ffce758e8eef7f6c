/*
writer.go - Debounced snapshot writer

PURPOSE:
  Coalesces bursts of commits into a single SaveCollections call. Every
  Schedule restarts the delay; when it expires only the most recent source
  is encoded and written.

CONTRACT:
  - Fire-and-forget: Schedule never blocks on storage. Write failures are
    logged and reported to OnSave; the caller's in-memory state stays
    authoritative.
  - Ordered: writes are serialized and a later Schedule is never
    overwritten by an earlier one.
  - Flush writes whatever is pending right away. Call it on shutdown.

SEE ALSO:
  - generic/store.go: SnapshotStore
  - api/scheduler.go: Feeds committed catalogs into a Writer
*/
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/bakery-engine/generic"
)

// DefaultDelay is how long the writer waits after the last Schedule.
const DefaultDelay = 500 * time.Millisecond

// Source is anything that can encode itself as storage collections.
type Source interface {
	Collections() (map[string][]byte, error)
}

type Writer struct {
	store generic.SnapshotStore
	delay time.Duration
	log   zerolog.Logger

	// OnSave, if set, is called after every write attempt.
	OnSave func(keys int, err error)

	mu      sync.Mutex
	pending Source
	timer   *time.Timer

	writing sync.Mutex
}

func NewWriter(store generic.SnapshotStore, delay time.Duration, log zerolog.Logger) *Writer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Writer{store: store, delay: delay, log: log}
}

// Schedule replaces the pending source and restarts the delay.
func (w *Writer) Schedule(src Source) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = src
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		_ = w.Flush(context.Background())
	})
}

// Pending reports whether a write is waiting for its delay.
func (w *Writer) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// Flush writes the pending source now. It is a no-op when nothing is pending.
func (w *Writer) Flush(ctx context.Context) error {
	w.writing.Lock()
	defer w.writing.Unlock()

	w.mu.Lock()
	src := w.pending
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if src == nil {
		return nil
	}

	collections, err := src.Collections()
	if err != nil {
		err = fmt.Errorf("encode snapshot: %w", err)
	} else {
		err = w.store.SaveCollections(ctx, collections)
	}
	if w.OnSave != nil {
		w.OnSave(len(collections), err)
	}
	if err != nil {
		w.log.Error().Err(err).Msg("snapshot write failed")
		return err
	}
	w.log.Debug().Int("keys", len(collections)).Msg("snapshot written")
	return nil
}
