package bakery_test

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const today = "2024-07-20"

func date(s string) generic.Date        { return generic.MustParseDate(s) }
func dec(s string) decimal.Decimal      { return decimal.RequireFromString(s) }
func qty(s string) generic.Quantity     { return generic.MustParseQuantity(s) }
func fixedToday() generic.Date          { return date(today) }
func fixedLedger() *generic.StockLedger { return generic.NewStockLedger(fixedToday) }

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func price(d, cost string) generic.PriceEntry {
	return generic.PriceEntry{ID: "ph-" + d + "-" + cost, Date: date(d), Cost: dec(cost), SupplierID: "sup-1"}
}

// testCatalog is a small bakery:
//
//	flour  50kg  @1.20 (latest of two entries)
//	butter  2kg  @8.00
//	milk    0l   no price, sold in boxes of 6
//
//	bread      0.3 flour                     wastage 5%
//	croissant  0.1 flour + 0.05 butter       wastage 10%
//	soda       purchased @0.80, 24 in stock, boxes of 6
func testCatalog() *bakery.Catalog {
	c := bakery.NewCatalog()
	c.Ingredients = []bakery.Ingredient{
		{
			ID: "flour", Name: "Harina", Unit: "kg",
			QuantityInStock: qty("50"),
			PriceHistory:    generic.PriceHistory{price("2024-07-20", "1.20"), price("2024-06-15", "1.15")},
		},
		{
			ID: "butter", Name: "Manteca", Unit: "kg",
			QuantityInStock: qty("2"),
			PriceHistory:    generic.PriceHistory{price("2024-07-01", "8")},
		},
		{
			ID: "milk", Name: "Leche", Unit: "l", PurchaseUnit: "Caja",
			UnitsPerPackage: decPtr("6"),
			QuantityInStock: qty("0"),
			PriceHistory:    generic.PriceHistory{},
		},
	}
	c.SKUs = []bakery.SKU{
		{
			ID: "bread", Name: "Pan", Category: "Panadería",
			Recipe:        []bakery.RecipeItem{{IngredientID: "flour", Quantity: qty("0.3")}},
			WastageFactor: dec("0.05"), LaborCost: dec("0.5"), OverheadCost: dec("0.2"), FranchiseFee: dec("0.1"),
			SalePrice: dec("3"), QuantityInStock: qty("0"), PriceHistory: generic.PriceHistory{},
		},
		{
			ID: "croissant", Name: "Croissant", Category: "Viennoiserie",
			Recipe: []bakery.RecipeItem{
				{IngredientID: "flour", Quantity: qty("0.1")},
				{IngredientID: "butter", Quantity: qty("0.05")},
			},
			WastageFactor: dec("0.1"), LaborCost: dec("0.3"), OverheadCost: dec("0.1"), FranchiseFee: dec("0"),
			SalePrice: dec("2.5"), QuantityInStock: qty("0"), PriceHistory: generic.PriceHistory{},
		},
		{
			ID: "soda", Name: "Gaseosa", Category: "Bebidas",
			Recipe:          []bakery.RecipeItem{},
			SalePrice:       dec("1.5"),
			QuantityInStock: qty("24"),
			UnitsPerPackage: decPtr("6"),
			PriceHistory:    generic.PriceHistory{price("2024-07-01", "0.80")},
		},
	}
	c.Suppliers = []bakery.Supplier{{
		ID: "sup-1", Name: "Molino del Sur",
		Documents: []bakery.SupplierDocument{{
			ID: "doc-1", FileName: "factura-001.pdf", FileType: "application/pdf",
			UploadDate: date(today), DueDate: date(today),
			Status: bakery.DocPendingReview, ExpenseCategory: bakery.DefaultExpenseCategory,
		}},
		MappingHistory: map[string]bakery.Mapping{},
	}}
	c.Shops = []bakery.Shop{{ID: "shop-1", Name: "Café Centro", PaymentTerms: 30}}
	bakery.CostEngine{}.RecomputeAll(c)
	return c
}

func newTestService(c *bakery.Catalog, observers ...bakery.Observer) *bakery.Service {
	return bakery.NewService(c, bakery.Options{
		Logger:    zerolog.Nop(),
		Observers: observers,
		Today:     fixedToday,
	})
}

func ingredient(c *bakery.Catalog, id generic.EntityID) bakery.Ingredient {
	ing, ok := c.Ingredient(id)
	if !ok {
		panic("missing ingredient " + id)
	}
	return *ing
}

func sku(c *bakery.Catalog, id generic.EntityID) bakery.SKU {
	s, ok := c.SKU(id)
	if !ok {
		panic("missing sku " + id)
	}
	return *s
}
