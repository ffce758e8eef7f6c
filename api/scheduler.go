/*
scheduler.go - Debounced persistence of committed catalogs

PURPOSE:
  Mirrors the live catalog into durable storage without making any
  mutation wait on disk. The scheduler observes the Service: every commit
  hands it the new (immutable) catalog, and a store.Writer saves the latest
  one after a quiet period. A burst of edits costs one write.

DESIGN:
  - Committed(): schedules the catalog; the previous pending one is dropped
  - Rejected(): nothing to persist
  - Stop(): flushes whatever is pending so a shutdown loses no edits
  - After Stop, commits are still accepted but never written

USAGE:
  scheduler := NewPersistenceScheduler(writer, log)
  svc.AddObserver(scheduler)
  scheduler.Start()
  // ... later
  scheduler.Stop(ctx)

SEE ALSO:
  - generic/store/writer.go: Debounce and write
  - bakery/service.go: Observer contract
*/
package api

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic/store"
)

var _ bakery.Observer = (*PersistenceScheduler)(nil)

// PersistenceScheduler feeds committed catalogs to a Writer.
type PersistenceScheduler struct {
	Writer *store.Writer

	log     zerolog.Logger
	mu      sync.Mutex
	running bool
}

func NewPersistenceScheduler(w *store.Writer, log zerolog.Logger) *PersistenceScheduler {
	return &PersistenceScheduler{Writer: w, log: log}
}

// Start begins accepting commits.
func (ps *PersistenceScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.running = true
	ps.log.Info().Msg("persistence scheduler started")
}

// Stop flushes the pending write and stops scheduling new ones.
func (ps *PersistenceScheduler) Stop(ctx context.Context) error {
	ps.mu.Lock()
	wasRunning := ps.running
	ps.running = false
	ps.mu.Unlock()

	if !wasRunning {
		return nil
	}
	err := ps.Writer.Flush(ctx)
	ps.log.Info().Err(err).Msg("persistence scheduler stopped")
	return err
}

func (ps *PersistenceScheduler) Committed(op string, c *bakery.Catalog, _ bakery.CostReport) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !ps.running {
		return
	}
	ps.Writer.Schedule(c)
	ps.log.Trace().Str("op", op).Msg("snapshot scheduled")
}

func (ps *PersistenceScheduler) Rejected(string, error) {}

// Pending reports whether a write is waiting.
func (ps *PersistenceScheduler) Pending() bool {
	return ps.Writer.Pending()
}
