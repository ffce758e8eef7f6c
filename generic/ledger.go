/*
ledger.go - Append-only price history

PURPOSE:
  A PriceHistory is the immutable record of cost observations for one
  ingredient or purchased SKU. The "current cost" of an entity is always
  derived from it - there's no separate cost field that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Append returns a new slice; the receiver is never modified
  3. NON-NEGATIVE: entries with cost < 0 are rejected with InvalidCostError

LATEST COST:
  The latest entry is the one with the maximum Date, regardless of the order
  entries were appended in. When several entries share the maximum date the
  one appended last wins, so the result is deterministic.

EXAMPLE FLOW:
  1. Flour bought 2024-07-20 at 1.20
  2. Late invoice entered for 2024-06-15 at 1.15
  History: [1.20 @07-20, 1.15 @06-15] -> LatestCost = 1.20

SEE ALSO:
  - bakery/cost.go: Reads latest costs during recomputation
  - bakery/purchase.go: The only writer of new entries
*/
package generic

import "github.com/shopspring/decimal"

// =============================================================================
// PRICE ENTRY
// =============================================================================

// PriceEntry is one cost observation. Immutable once created.
type PriceEntry struct {
	ID         string          `json:"id"`
	Date       Date            `json:"date"`
	Cost       decimal.Decimal `json:"cost"`
	SupplierID string          `json:"supplierId"`
}

// =============================================================================
// PRICE HISTORY - Append-only cost log
// =============================================================================

// PriceHistory holds entries in insertion order.
type PriceHistory []PriceEntry

// Latest returns the entry with the greatest date. Ties go to the entry
// appended last.
func (h PriceHistory) Latest() (PriceEntry, bool) {
	if len(h) == 0 {
		return PriceEntry{}, false
	}
	best := h[0]
	for _, e := range h[1:] {
		if !e.Date.Before(best.Date) {
			best = e
		}
	}
	return best, true
}

// LatestCost returns the latest entry's cost, or fallback if the history is empty.
func (h PriceHistory) LatestCost(fallback decimal.Decimal) decimal.Decimal {
	if e, ok := h.Latest(); ok {
		return e.Cost
	}
	return fallback
}

// Append returns a new history with entry added at the end.
// This is the ONLY write operation.
func (h PriceHistory) Append(owner StockKey, entry PriceEntry) (PriceHistory, error) {
	if err := ValidateCost(owner, entry.Cost); err != nil {
		return h, err
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	out := make(PriceHistory, len(h), len(h)+1)
	copy(out, h)
	return append(out, entry), nil
}

// Clone returns an independent copy of the history.
func (h PriceHistory) Clone() PriceHistory {
	if h == nil {
		return PriceHistory{}
	}
	out := make(PriceHistory, len(h))
	copy(out, h)
	return out
}

// ValidateCost rejects negative costs.
func ValidateCost(owner StockKey, cost decimal.Decimal) error {
	if cost.IsNegative() {
		return &InvalidCostError{Key: owner, Cost: cost}
	}
	return nil
}
