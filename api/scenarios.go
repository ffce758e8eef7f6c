/*
scenarios.go - Demo catalogs for trying the engine out

PURPOSE:
  Replaces the live catalog with a pre-built bakery so the UI has something
  to show on a fresh install. Dates are relative to the day the scenario is
  loaded.

AVAILABLE SCENARIOS:
  empty:          Nothing but the default categories
  bakery:         Ingredients, recipes, a resale SKU, suppliers and shops
  wholesale-week: bakery + this week's remitos for two shops, one paid

HOW SCENARIOS WORK:
 1. Build the catalog in memory
 2. Run remitos and payments through a scratch Service so statuses and
    journals come out exactly as a live session would produce them
 3. Service.Replace the live catalog; persistence picks it up like any commit

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "wholesale-week"}

NOTE:
  Loading a scenario discards the current catalog.

SEE ALSO:
  - handlers.go: Handler context
  - cmd/server/main.go: SEED_DEMO loads "bakery" into an empty store
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "Fresh catalog with default expense categories",
	},
	{
		ID:          "bakery",
		Name:        "Neighbourhood Bakery",
		Description: "Five ingredients, three recipes, one resale product, two suppliers, two shops",
	},
	{
		ID:          "wholesale-week",
		Name:        "Wholesale Week",
		Description: "Bakery plus this week's remitos for two shops, one partially collected",
	},
}

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := BuildScenario(req.ScenarioID, h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown scenario", err)
		return
	}
	h.Service.Replace(c)
	h.log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// BuildScenario returns the catalog for id.
func BuildScenario(id string, today generic.Date) (*bakery.Catalog, error) {
	switch id {
	case "empty":
		return bakery.NewCatalog(), nil
	case "bakery":
		return demoBakery(today), nil
	case "wholesale-week":
		return demoWholesaleWeek(today)
	default:
		return nil, fmt.Errorf("%w: scenario %q", generic.ErrInvalidInput, id)
	}
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func demoBakery(today generic.Date) *bakery.Catalog {
	lastMonth := today.AddDays(-30)
	entry := func(d generic.Date, cost, supplier string) generic.PriceEntry {
		return generic.PriceEntry{ID: generic.NewID(), Date: d, Cost: decimal.RequireFromString(cost), SupplierID: supplier}
	}
	pkg := func(n int64) *decimal.Decimal {
		d := decimal.NewFromInt(n)
		return &d
	}
	level := func(s string) *generic.Quantity {
		q := generic.MustParseQuantity(s)
		return &q
	}
	q := generic.MustParseQuantity
	dec := decimal.RequireFromString

	c := bakery.NewCatalog()
	c.Ingredients = []bakery.Ingredient{
		{
			ID: "harina", Name: "Harina 000", Unit: "kg", PurchaseUnit: "Bolsa",
			UnitsPerPackage: pkg(25), MinStock: level("50"),
			QuantityInStock: q("100"),
			PriceHistory:    generic.PriceHistory{entry(lastMonth, "1.10", "molino"), entry(today, "1.20", "molino")},
		},
		{
			ID: "manteca", Name: "Manteca", Unit: "kg", MinStock: level("5"),
			QuantityInStock: q("10"),
			PriceHistory:    generic.PriceHistory{entry(lastMonth, "8.00", "granja")},
		},
		{
			ID: "azucar", Name: "Azúcar", Unit: "kg",
			QuantityInStock: q("20"),
			PriceHistory:    generic.PriceHistory{entry(lastMonth, "1.10", "molino")},
		},
		{
			ID: "levadura", Name: "Levadura", Unit: "kg", MinStock: level("1"),
			QuantityInStock: q("2"),
			PriceHistory:    generic.PriceHistory{entry(lastMonth, "6.50", "molino")},
		},
		{
			ID: "leche", Name: "Leche", Unit: "l", PurchaseUnit: "Caja",
			UnitsPerPackage: pkg(12),
			QuantityInStock: q("12"),
			PriceHistory:    generic.PriceHistory{entry(lastMonth, "0.95", "granja")},
		},
	}
	c.SKUs = []bakery.SKU{
		{
			ID: "pan", Name: "Pan francés", Category: "Panadería",
			Recipe: []bakery.RecipeItem{
				{IngredientID: "harina", Quantity: q("0.3")},
				{IngredientID: "levadura", Quantity: q("0.01")},
			},
			WastageFactor: dec("0.05"), LaborCost: dec("0.5"), OverheadCost: dec("0.2"),
			SalePrice: dec("3"), QuantityInStock: q("0"), PriceHistory: generic.PriceHistory{},
		},
		{
			ID: "medialuna", Name: "Medialuna", Category: "Facturas",
			Recipe: []bakery.RecipeItem{
				{IngredientID: "harina", Quantity: q("0.05")},
				{IngredientID: "manteca", Quantity: q("0.02")},
				{IngredientID: "azucar", Quantity: q("0.01")},
				{IngredientID: "leche", Quantity: q("0.01")},
			},
			WastageFactor: dec("0.1"), LaborCost: dec("0.15"), OverheadCost: dec("0.05"), FranchiseFee: dec("0.02"),
			SalePrice: dec("1.2"), QuantityInStock: q("0"), PriceHistory: generic.PriceHistory{},
		},
		{
			ID: "budin", Name: "Budín", Category: "Pastelería",
			Recipe: []bakery.RecipeItem{
				{IngredientID: "harina", Quantity: q("0.2")},
				{IngredientID: "manteca", Quantity: q("0.1")},
				{IngredientID: "azucar", Quantity: q("0.15")},
			},
			WastageFactor: dec("0.08"), LaborCost: dec("0.8"), OverheadCost: dec("0.3"),
			SalePrice: dec("6"), QuantityInStock: q("4"), PriceHistory: generic.PriceHistory{},
		},
		{
			ID: "gaseosa", Name: "Gaseosa", Category: "Bebidas", Recipe: []bakery.RecipeItem{},
			UnitsPerPackage: pkg(6), PurchaseUnit: "Pack",
			SalePrice: dec("1.5"), QuantityInStock: q("48"),
			PriceHistory: generic.PriceHistory{entry(lastMonth, "0.80", "granja")},
		},
	}
	c.SKUCategories = []string{"Panadería", "Facturas", "Pastelería", "Bebidas"}
	c.Suppliers = []bakery.Supplier{
		{
			ID: "molino", Name: "Molino del Sur", ContactPerson: "Rosa", PaymentTerms: "30 días",
			Documents: []bakery.SupplierDocument{},
			MappingHistory: map[string]bakery.Mapping{
				"Harina 000 x 25kg": {MatchType: bakery.MatchIngredient, MatchedID: "harina"},
			},
		},
		{
			ID: "granja", Name: "Lácteos La Granja", PaymentTerms: "contado",
			Documents: []bakery.SupplierDocument{},
			MappingHistory: map[string]bakery.Mapping{
				"Leche Entera x12": {MatchType: bakery.MatchIngredient, MatchedID: "leche"},
			},
		},
	}
	c.Shops = []bakery.Shop{
		{ID: "centro", Name: "Café Centro", Address: "Av. Mitre 120", PaymentTerms: 30},
		{ID: "plaza", Name: "Kiosco Plaza", Address: "Plaza San Martín", PaymentTerms: 15},
	}
	return c
}

func demoWholesaleWeek(today generic.Date) (*bakery.Catalog, error) {
	svc := bakery.NewService(demoBakery(today), bakery.Options{
		Logger: zerolog.Nop(),
		Today:  func() generic.Date { return today },
	})

	line := func(id generic.EntityID, name, qty, price string) bakery.RemitoItem {
		return bakery.RemitoItem{
			SKUID: id, SKUName: name,
			Quantity:  generic.MustParseQuantity(qty),
			UnitPrice: decimal.RequireFromString(price),
			IVARate:   bakery.DefaultIVARate,
		}
	}
	added, err := svc.AddRemitos([]bakery.Remito{
		{StoreName: "Café Centro", Date: today, Items: []bakery.RemitoItem{
			line("pan", "Pan francés", "20", "3"),
			line("medialuna", "Medialuna", "48", "1.2"),
		}},
		{StoreName: "Café Centro", Date: today.AddDays(1), Items: []bakery.RemitoItem{
			line("pan", "Pan francés", "20", "3"),
		}},
		{StoreName: "Kiosco Plaza", Date: today.AddDays(2), Items: []bakery.RemitoItem{
			line("gaseosa", "Gaseosa", "12", "1.5"),
			line("budin", "Budín", "2", "6"),
		}},
	})
	if err != nil {
		return nil, err
	}

	first := added[0]
	half := bakery.RemitoTotal(first).Div(decimal.NewFromInt(2)).Round(2)
	if _, err := svc.AddPayment(bakery.Payment{
		StoreID: "centro", Amount: half, Method: "transferencia",
		Allocations: []bakery.PaymentAllocation{{RemitoID: first.ID, Amount: half}},
	}); err != nil {
		return nil, err
	}
	return svc.Snapshot(), nil
}
