/*
stock.go - Stock ledger with two-phase batch adjustments

PURPOSE:
  The StockLedger is the sole authority for changing on-hand quantities.
  Every purchase receipt, production batch and remito fulfillment flows
  through BatchAdjust, which either applies every adjustment or none.

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: no entity's on-hand quantity is ever observed negative
  2. ALL-OR-NOTHING: a batch is validated completely before anything is
     applied; one shortage rejects the whole batch
  3. JOURNALED: every applied change produces an immutable Movement

TWO PHASES:
  Phase 1 (validate): deltas are netted per entity (two lines consuming
    flour are checked against flour's balance together), then every
    resulting balance is checked. All shortages are collected so the caller
    can report every offending entity at once.
  Phase 2 (apply): only reached when phase 1 found nothing wrong.

MISSING ENTITIES:
  A decrement against an entity that isn't in the catalog is a shortage with
  zero available. An increment against one is a NotFoundError.

SEE ALSO:
  - bakery/catalog.go: Implements Balances over ingredients and SKUs
  - bakery/production.go, bakery/fulfillment.go: Batch callers
*/
package generic

// =============================================================================
// BALANCES - What the ledger adjusts
// =============================================================================

// Balances exposes on-hand quantities to the StockLedger.
type Balances interface {
	// OnHand returns the current quantity, a display name, and whether the
	// entity exists.
	OnHand(key StockKey) (qty Quantity, name string, ok bool)

	// SetOnHand overwrites the quantity. Only StockLedger calls this.
	SetOnHand(key StockKey, qty Quantity)
}

// Adjustment is a signed change to one entity's on-hand quantity.
type Adjustment struct {
	Key    StockKey
	Delta  Quantity
	Reason MovementReason
}

// =============================================================================
// STOCK LEDGER
// =============================================================================

type StockLedger struct {
	// Today stamps movements. Defaults to generic.Today.
	Today func() Date
}

// NewStockLedger stamps movements with today; nil means the wall clock.
func NewStockLedger(today func() Date) *StockLedger {
	if today == nil {
		today = Today
	}
	return &StockLedger{Today: today}
}

type netAdjustment struct {
	key    StockKey
	delta  Quantity
	before Quantity
	reason MovementReason
}

// Validate runs phase 1 only. It never mutates balances.
func (l *StockLedger) Validate(b Balances, adjustments []Adjustment) error {
	_, err := l.plan(b, adjustments)
	return err
}

// Adjust applies a single delta.
func (l *StockLedger) Adjust(b Balances, key StockKey, delta Quantity, reason MovementReason, ref string) ([]Movement, error) {
	return l.BatchAdjust(b, []Adjustment{{Key: key, Delta: delta, Reason: reason}}, ref)
}

// BatchAdjust validates every adjustment, then applies them all.
// On error nothing has been applied.
// Deltas for the same key are netted; the first adjustment's reason is kept.
func (l *StockLedger) BatchAdjust(b Balances, adjustments []Adjustment, ref string) ([]Movement, error) {
	planned, err := l.plan(b, adjustments)
	if err != nil {
		return nil, err
	}

	today := l.CurrentDate()
	movements := make([]Movement, 0, len(planned))
	for _, p := range planned {
		after := p.before.Add(p.delta)
		b.SetOnHand(p.key, after)
		movements = append(movements, Movement{
			ID:        NewID(),
			Date:      today,
			Key:       p.key,
			Delta:     p.delta,
			Balance:   after,
			Reason:    p.reason,
			Reference: ref,
		})
	}
	return movements, nil
}

func (l *StockLedger) plan(b Balances, adjustments []Adjustment) ([]netAdjustment, error) {
	// Net deltas per key, keeping first-seen order for stable journals.
	order := make([]StockKey, 0, len(adjustments))
	net := make(map[StockKey]Quantity, len(adjustments))
	reasons := make(map[StockKey]MovementReason, len(adjustments))
	for _, a := range adjustments {
		if _, seen := net[a.Key]; !seen {
			order = append(order, a.Key)
			net[a.Key] = ZeroQuantity()
			reasons[a.Key] = a.Reason
		}
		net[a.Key] = net[a.Key].Add(a.Delta)
	}

	var (
		planned   = make([]netAdjustment, 0, len(order))
		shortages []Shortage
	)
	for _, key := range order {
		delta := net[key]
		if delta.IsZero() {
			continue
		}
		current, name, ok := b.OnHand(key)
		if !ok {
			if delta.IsPositive() {
				return nil, &NotFoundError{Kind: string(key.Kind), ID: string(key.ID)}
			}
			shortages = append(shortages, Shortage{
				Key:       key,
				Name:      string(key.ID),
				Required:  delta.Neg(),
				Available: ZeroQuantity(),
				Shortfall: delta.Neg(),
				Missing:   true,
			})
			continue
		}
		// Increments are always allowed so legacy negative balances can recover.
		after := current.Add(delta)
		if delta.IsNegative() && after.IsNegative() {
			shortages = append(shortages, Shortage{
				Key:       key,
				Name:      name,
				Required:  delta.Neg(),
				Available: current,
				Shortfall: after.Neg(),
			})
			continue
		}
		planned = append(planned, netAdjustment{key: key, delta: delta, before: current, reason: reasons[key]})
	}

	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}
	return planned, nil
}

// CurrentDate is the date stamped on movements.
func (l *StockLedger) CurrentDate() Date {
	if l.Today == nil {
		return Today()
	}
	return l.Today()
}
