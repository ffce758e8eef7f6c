package generic_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/generic"
)

func entry(date string, cost float64) generic.PriceEntry {
	return generic.PriceEntry{Date: generic.MustParseDate(date), Cost: decimal.NewFromFloat(cost)}
}

func TestPriceHistory_LatestIsMaxDateNotLastAppended(t *testing.T) {
	// GIVEN: 1.20 on 2024-07-20 appended before 1.15 on 2024-06-15
	// WHEN: Reading the latest cost
	// THEN: 1.20 (the later date), not 1.15 (the later append)

	var h generic.PriceHistory
	h, err := h.Append(flour, entry("2024-07-20", 1.20))
	require.NoError(t, err)
	h, err = h.Append(flour, entry("2024-06-15", 1.15))
	require.NoError(t, err)

	assert.True(t, h.LatestCost(decimal.Zero).Equal(decimal.NewFromFloat(1.20)))
}

func TestPriceHistory_SameDateLastAppendedWins(t *testing.T) {
	h := generic.PriceHistory{
		entry("2024-07-20", 1.00),
		entry("2024-07-20", 1.10),
		entry("2024-07-01", 9.99),
	}

	latest, ok := h.Latest()

	require.True(t, ok)
	assert.True(t, latest.Cost.Equal(decimal.NewFromFloat(1.10)))
}

func TestPriceHistory_EmptyUsesFallback(t *testing.T) {
	var h generic.PriceHistory

	_, ok := h.Latest()
	assert.False(t, ok)
	assert.True(t, h.LatestCost(decimal.NewFromInt(7)).Equal(decimal.NewFromInt(7)))
}

func TestPriceHistory_AppendRejectsNegativeCost(t *testing.T) {
	h := generic.PriceHistory{entry("2024-07-20", 1.20)}

	out, err := h.Append(flour, entry("2024-07-21", -0.5))

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrInvalidCost))
	var costErr *generic.InvalidCostError
	require.True(t, errors.As(err, &costErr))
	assert.Equal(t, flour, costErr.Key)
	assert.Len(t, out, 1)
}

func TestPriceHistory_AppendDoesNotAliasReceiver(t *testing.T) {
	base := make(generic.PriceHistory, 1, 4)
	base[0] = entry("2024-07-20", 1.20)

	a, err := base.Append(flour, entry("2024-07-21", 2))
	require.NoError(t, err)
	b, err := base.Append(flour, entry("2024-07-22", 3))
	require.NoError(t, err)

	assert.Len(t, base, 1)
	assert.True(t, a[1].Cost.Equal(decimal.NewFromInt(2)))
	assert.True(t, b[1].Cost.Equal(decimal.NewFromInt(3)))
	assert.NotEmpty(t, a[1].ID)
}

func TestPriceHistory_ZeroCostAllowed(t *testing.T) {
	var h generic.PriceHistory
	_, err := h.Append(flour, entry("2024-07-20", 0))
	assert.NoError(t, err)
}
