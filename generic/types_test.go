package generic_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/generic"
)

func TestPackageSize_ConvertsPackagesToBaseUnits(t *testing.T) {
	// GIVEN: A box of 6 bottles
	// WHEN: Buying 2 boxes at $30 each
	// THEN: Unit cost is $5 and 12 units enter stock

	pkg := generic.PackageSize{UnitsPerPackage: decimal.NewFromInt(6)}

	unitCost, err := pkg.UnitCost(decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.True(t, unitCost.Equal(decimal.NewFromInt(5)))
	assert.True(t, pkg.ToBase(decimal.NewFromInt(2)).Equal(generic.NewQuantityFromInt(12)))
}

func TestPackageSize_ZeroUnitsIsInvalid(t *testing.T) {
	pkg := generic.PackageSize{}

	_, err := pkg.UnitCost(decimal.NewFromInt(30))

	assert.ErrorIs(t, err, generic.ErrInvalidQuantity)
}

func TestQuantity_JSONAcceptsNumbersAndStrings(t *testing.T) {
	var v struct {
		A generic.Quantity `json:"a"`
		B generic.Quantity `json:"b"`
		C generic.Quantity `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 2.5, "b": "3", "c": null}`), &v))

	assert.True(t, v.A.Equal(generic.NewQuantity(2.5)))
	assert.True(t, v.B.Equal(generic.NewQuantityFromInt(3)))
	assert.True(t, v.C.IsZero())
}

func TestDate_ParseIsStrict(t *testing.T) {
	_, err := generic.ParseDate("2024-02-31")
	assert.ErrorIs(t, err, generic.ErrInvalidDate)

	_, err = generic.ParseDate("20-07-2024")
	assert.ErrorIs(t, err, generic.ErrInvalidDate)

	d, err := generic.ParseDate("2024-07-20")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-20", d.String())
}

func TestDate_UnmarshalIsLenient(t *testing.T) {
	var v struct {
		Stamp   generic.Date `json:"stamp"`
		Garbage generic.Date `json:"garbage"`
		Number  generic.Date `json:"number"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"stamp":"2024-07-20T10:11:12.000Z","garbage":"soon","number":5}`), &v))

	assert.Equal(t, "2024-07-20", v.Stamp.String())
	assert.True(t, v.Garbage.IsZero())
	assert.True(t, v.Number.IsZero())

	today := generic.MustParseDate("2025-01-01")
	assert.Equal(t, today, v.Garbage.OrToday(today))
}

func TestMustParse_PanicsOnMalformedLiterals(t *testing.T) {
	assert.True(t, generic.MustParseQuantity("2.5").Equal(generic.NewQuantity(2.5)))
	assert.Equal(t, "2024-07-20", generic.MustParseDate("2024-07-20").String())

	assert.Panics(t, func() { generic.MustParseQuantity("two") })
	assert.Panics(t, func() { generic.MustParseDate("2024-02-31") })
}
