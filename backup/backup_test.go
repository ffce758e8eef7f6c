package backup_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/backup"
	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

var (
	today = generic.MustParseDate("2024-07-20")
	now   = time.Date(2024, 7, 20, 10, 0, 0, 0, time.UTC)
)

func sampleCatalog(t *testing.T) *bakery.Catalog {
	t.Helper()
	c := bakery.NewCatalog()
	c.Ingredients = []bakery.Ingredient{{
		ID: "flour", Name: "Harina", Unit: "kg",
		QuantityInStock: generic.MustParseQuantity("50"),
		PriceHistory: generic.PriceHistory{{
			ID: "p1", Date: today, Cost: decimal.RequireFromString("1.2"), SupplierID: "sup-1",
		}},
	}}
	c.SKUs = []bakery.SKU{{
		ID: "bread", Name: "Pan", Category: "Panadería",
		Recipe:        []bakery.RecipeItem{{IngredientID: "flour", Quantity: generic.MustParseQuantity("0.3")}},
		WastageFactor: decimal.RequireFromString("0.05"),
		SalePrice:     decimal.RequireFromString("3"),
		PriceHistory:  generic.PriceHistory{},
	}}
	c.Suppliers = []bakery.Supplier{{ID: "sup-1", Name: "Molino", MappingHistory: map[string]bakery.Mapping{}}}
	c.Passthrough["payrolls"] = json.RawMessage(`[{"id":"pay-1"}]`)
	bakery.Heal(c, today)
	bakery.CostEngine{}.RecomputeAll(c)
	return c
}

func TestExport_Format(t *testing.T) {
	data, err := backup.Export(sampleCatalog(t), now)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, `"1.4"`, string(doc["version"]))
	assert.JSONEq(t, `"2024-07-20T10:00:00Z"`, string(doc["createdAt"]))
	assert.Contains(t, doc, "expenseCategories")
	assert.NotContains(t, doc, "expense_categories")
	assert.Contains(t, doc, "sku_categories")
	assert.JSONEq(t, `[{"id":"pay-1"}]`, string(doc["payrolls"]))

	assert.Equal(t, "cvb_erp_backup_2024-07-20.json", backup.FileName(now))
}

func TestImport_RoundTripIsByteIdentical(t *testing.T) {
	// GIVEN: A healed catalog exported to a backup
	// WHEN: The backup is imported and exported again
	// THEN: Both files are byte-for-byte equal

	first, err := backup.Export(sampleCatalog(t), now)
	require.NoError(t, err)

	restored, header, err := backup.Import(first, today)
	require.NoError(t, err)
	assert.Equal(t, backup.Version, header.Version)
	assert.Equal(t, now, header.CreatedAt)

	second, err := backup.Export(restored, now)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestImport_Validation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"version":`},
		{"not an object", `[1,2,3]`},
		{"missing version", `{"skus":[],"suppliers":[]}`},
		{"empty version", `{"version":" ","skus":[],"suppliers":[]}`},
		{"skus not array", `{"version":"1.4","skus":{},"suppliers":[]}`},
		{"missing suppliers", `{"version":"1.4","skus":[]}`},
		{"corrupt collection", `{"version":"1.4","skus":[],"suppliers":[],"remitos":{"x":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := backup.Import([]byte(tt.data), today)
			assert.ErrorIs(t, err, generic.ErrInvalidBackup)
		})
	}
}

func TestImport_MinimalBackupIsHealed(t *testing.T) {
	c, header, err := backup.Import([]byte(`{"version":"1.2","skus":[],"suppliers":[{"id":"s","name":"S"}]}`), today)
	require.NoError(t, err)

	assert.True(t, header.CreatedAt.IsZero())
	assert.Equal(t, []string{"skus", "suppliers"}, header.Keys)
	assert.Equal(t, bakery.DefaultExpenseCategories, c.ExpenseCategories)
	assert.NotNil(t, c.Suppliers[0].Documents)
	assert.NotNil(t, c.Ingredients)
}

func TestImport_AcceptsStorageSpellingOfExpenseCategories(t *testing.T) {
	c, _, err := backup.Import([]byte(`{"version":"1.4","skus":[],"suppliers":[],"expense_categories":["Luz"]}`), today)
	require.NoError(t, err)
	assert.Equal(t, []string{"Luz"}, c.ExpenseCategories)

	c, _, err = backup.Import([]byte(`{"version":"1.4","skus":[],"suppliers":[],"expense_categories":["Luz"],"expenseCategories":["Gas"]}`), today)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gas"}, c.ExpenseCategories)
}
