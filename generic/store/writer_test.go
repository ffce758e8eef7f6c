package store_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/generic/store"
)

type source map[string][]byte

func (s source) Collections() (map[string][]byte, error) { return s, nil }

type brokenSource struct{}

func (brokenSource) Collections() (map[string][]byte, error) { return nil, errors.New("boom") }

func TestWriter_CoalescesBursts(t *testing.T) {
	// GIVEN: A writer with a short delay
	// WHEN: Three snapshots are scheduled back to back
	// THEN: Exactly one write happens, with the last snapshot

	mem := store.NewMemory()
	w := store.NewWriter(mem, 20*time.Millisecond, zerolog.Nop())

	w.Schedule(source{"skus": []byte(`[1]`)})
	w.Schedule(source{"skus": []byte(`[1,2]`)})
	w.Schedule(source{"skus": []byte(`[1,2,3]`)})

	assert.Eventually(t, func() bool { return mem.Saves() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, w.Pending())

	stored, err := mem.LoadCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(stored["skus"]))
}

func TestWriter_FlushWritesImmediately(t *testing.T) {
	mem := store.NewMemory()
	w := store.NewWriter(mem, time.Hour, zerolog.Nop())

	w.Schedule(source{"ingredients": []byte(`[]`)})
	assert.True(t, w.Pending())

	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 1, mem.Saves())
	assert.False(t, w.Pending())

	// Nothing pending: no second write.
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 1, mem.Saves())
}

func TestWriter_ReportsFailures(t *testing.T) {
	mem := store.NewMemory()
	w := store.NewWriter(mem, time.Hour, zerolog.Nop())
	var failures atomic.Int32
	w.OnSave = func(_ int, err error) {
		if err != nil {
			failures.Add(1)
		}
	}

	w.Schedule(brokenSource{})
	err := w.Flush(context.Background())

	assert.Error(t, err)
	assert.Equal(t, int32(1), failures.Load())
	assert.Zero(t, mem.Saves())
}

func TestWriter_DefaultDelay(t *testing.T) {
	w := store.NewWriter(store.NewMemory(), 0, zerolog.Nop())

	w.Schedule(source{})
	assert.True(t, w.Pending())
	require.NoError(t, w.Flush(context.Background()))
}
