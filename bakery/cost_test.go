package bakery_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

func TestRecomputeAll_ManufacturedCostFormula(t *testing.T) {
	// GIVEN: Bread = 0.3kg flour @1.20, labor 0.5, overhead 0.2, franchise 0.1, wastage 5%
	// WHEN: Recomputing
	// THEN: (0.36 + 0.8) / 0.95 ≈ 1.2211

	c := testCatalog()

	report := bakery.CostEngine{}.RecomputeAll(c)

	assert.Empty(t, report.Faults)
	assert.Equal(t, "1.2211", sku(c, "bread").Cost().StringFixed(4))
}

func TestRecomputeAll_UsesLatestDatedPrice(t *testing.T) {
	// GIVEN: Flour history appended out of order
	// WHEN: Recomputing
	// THEN: The 2024-07-20 price drives the bread cost

	c := testCatalog()
	ing, _ := c.Ingredient("flour")
	ing.PriceHistory = generic.PriceHistory{price("2024-06-15", "1.15"), price("2024-07-20", "1.20")}

	bakery.CostEngine{}.RecomputeAll(c)

	assert.Equal(t, "1.2211", sku(c, "bread").Cost().StringFixed(4))
}

func TestRecomputeAll_IsIdempotent(t *testing.T) {
	c := testCatalog()
	engine := bakery.CostEngine{}

	engine.RecomputeAll(c)
	first := map[generic.EntityID]string{}
	for _, s := range c.SKUs {
		first[s.ID] = s.Cost().String()
	}
	engine.RecomputeAll(c)

	for _, s := range c.SKUs {
		assert.Equal(t, first[s.ID], s.Cost().String(), s.Name)
	}
}

func TestRecomputeAll_PurchasedUsesOwnHistory(t *testing.T) {
	c := testCatalog()

	bakery.CostEngine{}.RecomputeAll(c)

	assert.True(t, sku(c, "soda").Cost().Equal(dec("0.80")))
}

func TestRecomputeAll_PurchasedWithoutHistoryKeepsPriorCost(t *testing.T) {
	c := testCatalog()
	s, _ := c.SKU("soda")
	s.PriceHistory = generic.PriceHistory{}
	s.CalculatedCost = decPtr("0.75")

	bakery.CostEngine{}.RecomputeAll(c)

	assert.True(t, sku(c, "soda").Cost().Equal(dec("0.75")))
}

func TestRecomputeAll_MissingIngredientContributesZero(t *testing.T) {
	// GIVEN: Butter deleted while croissants still use it
	// WHEN: Recomputing
	// THEN: Croissant cost counts only flour, and a warning names butter

	c := testCatalog()
	_, err := c.DeleteIngredient("butter")
	require.NoError(t, err)

	report := bakery.CostEngine{}.RecomputeAll(c)

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, generic.EntityID("croissant"), report.Warnings[0].SKUID)
	assert.Equal(t, generic.EntityID("butter"), report.Warnings[0].IngredientID)
	// (0.1*1.20 + 0.3 + 0.1) / 0.9
	assert.Equal(t, "0.5778", sku(c, "croissant").Cost().StringFixed(4))
}

func TestRecomputeAll_InvalidWastageDegradesOnlyThatSKU(t *testing.T) {
	// GIVEN: Bread with wastage factor 1 (division by zero)
	// WHEN: Recomputing
	// THEN: Bread keeps its prior cost and is flagged; croissant is still repriced

	c := testCatalog()
	prior := sku(c, "bread").Cost()
	b, _ := c.SKU("bread")
	b.WastageFactor = dec("1")
	ing, _ := c.Ingredient("butter")
	ing.PriceHistory = generic.PriceHistory{price("2024-07-20", "10")}

	report := bakery.CostEngine{}.RecomputeAll(c)

	require.Len(t, report.Faults, 1)
	assert.True(t, errors.Is(report.Faults[0].Err, generic.ErrInvalidWastageFactor))
	assert.True(t, sku(c, "bread").Cost().Equal(prior))
	assert.Equal(t, bakery.CostFaultInvalidWastage, sku(c, "bread").CostFault)
	// (0.1*1.20 + 0.05*10 + 0.4) / 0.9
	assert.Equal(t, "1.1333", sku(c, "croissant").Cost().StringFixed(4))
}

func TestOnCatalogChanged_DoesNotModifyInput(t *testing.T) {
	c := testCatalog()
	ing, _ := c.Ingredient("flour")
	ing.PriceHistory = generic.PriceHistory{price("2024-07-21", "2")}
	before := sku(c, "bread").Cost()

	next, _ := bakery.OnCatalogChanged(c)

	assert.True(t, sku(c, "bread").Cost().Equal(before))
	assert.False(t, sku(next, "bread").Cost().Equal(before))
}

func TestValidateSKU(t *testing.T) {
	base := sku(testCatalog(), "bread")

	bad := base
	bad.WastageFactor = dec("1.2")
	assert.ErrorIs(t, bakery.ValidateSKU(bad), generic.ErrInvalidWastageFactor)

	bad = base
	bad.LaborCost = dec("-1")
	assert.ErrorIs(t, bakery.ValidateSKU(bad), generic.ErrInvalidCost)

	bad = base
	bad.Recipe = []bakery.RecipeItem{{IngredientID: "flour", Quantity: qty("0")}}
	assert.ErrorIs(t, bakery.ValidateSKU(bad), generic.ErrInvalidQuantity)

	assert.NoError(t, bakery.ValidateSKU(base))
}

func TestCostBasis_SelectsVariant(t *testing.T) {
	c := testCatalog()

	_, manufactured := sku(c, "bread").CostBasis().(bakery.ManufacturedBasis)
	_, purchased := sku(c, "soda").CostBasis().(bakery.PurchasedBasis)

	assert.True(t, manufactured)
	assert.True(t, purchased)
}

func TestMargin(t *testing.T) {
	c := testCatalog()
	s, _ := c.SKU("soda")

	assert.True(t, s.Margin().Equal(dec("0.7")))
	assert.Equal(t, "46.67", s.MarginPercent().StringFixed(2))
}
