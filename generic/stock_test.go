package generic_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// mapBalances is a minimal Balances over a map.
type mapBalances struct {
	qty   map[generic.StockKey]generic.Quantity
	names map[generic.StockKey]string
}

func newBalances() *mapBalances {
	return &mapBalances{
		qty:   map[generic.StockKey]generic.Quantity{},
		names: map[generic.StockKey]string{},
	}
}

func (m *mapBalances) with(key generic.StockKey, name string, qty float64) *mapBalances {
	m.qty[key] = generic.NewQuantity(qty)
	m.names[key] = name
	return m
}

func (m *mapBalances) OnHand(key generic.StockKey) (generic.Quantity, string, bool) {
	q, ok := m.qty[key]
	return q, m.names[key], ok
}

func (m *mapBalances) SetOnHand(key generic.StockKey, qty generic.Quantity) {
	m.qty[key] = qty
}

func qty(v float64) generic.Quantity { return generic.NewQuantity(v) }

var (
	flour  = generic.IngredientKey("ing-1")
	butter = generic.IngredientKey("ing-2")
	bread  = generic.SKUKey("sku-1")
)

func fixedLedger() *generic.StockLedger {
	return generic.NewStockLedger(func() generic.Date { return generic.MustParseDate("2024-07-20") })
}

// =============================================================================
// NON-NEGATIVITY
// =============================================================================

func TestBatchAdjust_AppliesAllWhenEveryBalanceCovers(t *testing.T) {
	// GIVEN: 10kg flour, 2kg butter
	// WHEN: Consuming 4kg flour and 1kg butter, producing 5 loaves
	// THEN: All three balances change and three movements are journaled

	b := newBalances().with(flour, "Harina", 10).with(butter, "Manteca", 2).with(bread, "Pan", 0)
	ledger := fixedLedger()

	movements, err := ledger.BatchAdjust(b, []generic.Adjustment{
		{Key: flour, Delta: qty(-4), Reason: generic.MovementProductionConsume},
		{Key: butter, Delta: qty(-1), Reason: generic.MovementProductionConsume},
		{Key: bread, Delta: qty(5), Reason: generic.MovementProductionOutput},
	}, "batch-1")

	require.NoError(t, err)
	require.Len(t, movements, 3)
	assert.True(t, b.qty[flour].Equal(qty(6)))
	assert.True(t, b.qty[butter].Equal(qty(1)))
	assert.True(t, b.qty[bread].Equal(qty(5)))

	assert.Equal(t, generic.MovementProductionOutput, movements[2].Reason)
	assert.Equal(t, "batch-1", movements[2].Reference)
	assert.Equal(t, "2024-07-20", movements[0].Date.String())
	assert.True(t, movements[0].Balance.Equal(qty(6)))
}

func TestBatchAdjust_OneShortageRejectsWholeBatch(t *testing.T) {
	// GIVEN: Enough flour but not enough butter
	// WHEN: Batch consumes both
	// THEN: InsufficientStockError names butter, and flour is untouched

	b := newBalances().with(flour, "Harina", 10).with(butter, "Manteca", 0.5)
	ledger := fixedLedger()

	movements, err := ledger.BatchAdjust(b, []generic.Adjustment{
		{Key: flour, Delta: qty(-4)},
		{Key: butter, Delta: qty(-1)},
	}, "batch-2")

	require.Error(t, err)
	assert.Nil(t, movements)
	assert.True(t, errors.Is(err, generic.ErrInsufficientStock))

	var stockErr *generic.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Shortages, 1)
	s := stockErr.Shortages[0]
	assert.Equal(t, "Manteca", s.Name)
	assert.True(t, s.Required.Equal(qty(1)))
	assert.True(t, s.Available.Equal(qty(0.5)))
	assert.True(t, s.Shortfall.Equal(qty(0.5)))

	assert.True(t, b.qty[flour].Equal(qty(10)), "flour must not change")
	assert.True(t, b.qty[butter].Equal(qty(0.5)), "butter must not change")
}

func TestBatchAdjust_ReportsEveryShortage(t *testing.T) {
	b := newBalances().with(flour, "Harina", 1).with(butter, "Manteca", 0)

	_, err := fixedLedger().BatchAdjust(b, []generic.Adjustment{
		{Key: flour, Delta: qty(-2)},
		{Key: butter, Delta: qty(-3)},
	}, "")

	var stockErr *generic.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Len(t, stockErr.Shortages, 2)
}

func TestBatchAdjust_NetsDeltasForSameKey(t *testing.T) {
	// GIVEN: 5kg flour
	// WHEN: Two recipes each consume 3kg
	// THEN: The combined 6kg is checked and rejected

	b := newBalances().with(flour, "Harina", 5)

	_, err := fixedLedger().BatchAdjust(b, []generic.Adjustment{
		{Key: flour, Delta: qty(-3)},
		{Key: flour, Delta: qty(-3)},
	}, "")

	assert.ErrorIs(t, err, generic.ErrInsufficientStock)
	assert.True(t, b.qty[flour].Equal(qty(5)))
}

func TestBatchAdjust_ExactBalanceReachesZero(t *testing.T) {
	b := newBalances().with(flour, "Harina", 5)

	movements, err := fixedLedger().BatchAdjust(b, []generic.Adjustment{{Key: flour, Delta: qty(-5)}}, "")

	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.True(t, b.qty[flour].IsZero())
}

func TestBatchAdjust_ZeroNetIsSkipped(t *testing.T) {
	b := newBalances().with(flour, "Harina", 5)

	movements, err := fixedLedger().BatchAdjust(b, []generic.Adjustment{
		{Key: flour, Delta: qty(2)},
		{Key: flour, Delta: qty(-2)},
	}, "")

	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestBatchAdjust_IncrementRecoversNegativeBalance(t *testing.T) {
	// GIVEN: Legacy data with -2 on hand
	// WHEN: Receiving 1 unit
	// THEN: Accepted; the balance moves toward zero

	b := newBalances().with(flour, "Harina", -2)

	_, err := fixedLedger().Adjust(b, flour, qty(1), generic.MovementPurchase, "inv-1")

	require.NoError(t, err)
	assert.True(t, b.qty[flour].Equal(qty(-1)))
}

// =============================================================================
// MISSING ENTITIES
// =============================================================================

func TestBatchAdjust_DecrementOfMissingEntityIsShortage(t *testing.T) {
	b := newBalances().with(flour, "Harina", 10)
	ghost := generic.IngredientKey("ing-gone")

	_, err := fixedLedger().BatchAdjust(b, []generic.Adjustment{
		{Key: flour, Delta: qty(-1)},
		{Key: ghost, Delta: qty(-2)},
	}, "")

	var stockErr *generic.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Shortages, 1)
	assert.True(t, stockErr.Shortages[0].Missing)
	assert.True(t, stockErr.Shortages[0].Available.IsZero())
	assert.True(t, b.qty[flour].Equal(qty(10)))
}

func TestBatchAdjust_IncrementOfMissingEntityIsNotFound(t *testing.T) {
	b := newBalances()

	_, err := fixedLedger().Adjust(b, bread, qty(3), generic.MovementProductionOutput, "")

	assert.True(t, generic.IsNotFound(err))
}

func TestValidate_NeverMutates(t *testing.T) {
	b := newBalances().with(flour, "Harina", 10)

	err := fixedLedger().Validate(b, []generic.Adjustment{{Key: flour, Delta: qty(-4)}})

	require.NoError(t, err)
	assert.True(t, b.qty[flour].Equal(qty(10)))
}

func TestNewStockLedger_DefaultsToWallClock(t *testing.T) {
	assert.Equal(t, generic.Today(), generic.NewStockLedger(nil).CurrentDate())

	fixed := generic.MustParseDate("2024-07-20")
	l := generic.NewStockLedger(func() generic.Date { return fixed })
	assert.Equal(t, fixed, l.CurrentDate())
}
