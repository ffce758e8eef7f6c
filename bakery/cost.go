/*
cost.go - CostEngine: derives every SKU's unit cost

PURPOSE:
  Recomputes CalculatedCost for the whole catalog from recipes, the latest
  ingredient prices and each SKU's fixed per-unit costs.

FORMULA (manufactured):
  unitCost = (Σ latestCost(ingredient) * qty + labor + overhead + franchise)
             / (1 - wastageFactor)

  Purchased SKUs take the latest entry of their own price history, falling
  back to the prior CalculatedCost.

CRITICAL INVARIANTS:
  1. TOTAL: every run reprices the whole catalog, never a subset
  2. PURE: same catalog in, same costs out (recompute is idempotent)
  3. PER-ENTITY FAULTS: a SKU with wastageFactor >= 1 keeps its prior cost and
     is flagged; the rest of the catalog is still repriced
  4. MISSING INGREDIENTS contribute zero and yield a MissingReferenceWarning

SEE ALSO:
  - generic/ledger.go: LatestCost
  - diagnostics.go: Surfaces the warnings and faults collected here
*/
package bakery

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/generic"
)

// CostFaultInvalidWastage marks a SKU whose wastage factor makes cost undefined.
const CostFaultInvalidWastage = "invalid_wastage_factor"

// CostReport summarizes one recompute pass.
type CostReport struct {
	Repriced int                               `json:"repriced"`
	Faults   []CostFault                       `json:"faults,omitempty"`
	Warnings []generic.MissingReferenceWarning `json:"warnings,omitempty"`
}

// CostFault is one SKU that could not be priced.
type CostFault struct {
	SKUID generic.EntityID `json:"skuId"`
	Err   error            `json:"-"`
	Cause string           `json:"cause"`
}

// =============================================================================
// COST ENGINE
// =============================================================================

type CostEngine struct{}

// UnitCost prices one SKU against the given ingredients.
func (CostEngine) UnitCost(sku SKU, ingredients map[generic.EntityID]*Ingredient) (decimal.Decimal, []generic.MissingReferenceWarning, error) {
	switch basis := sku.CostBasis().(type) {
	case ManufacturedBasis:
		return manufacturedCost(sku, basis, ingredients)
	case PurchasedBasis:
		return basis.History.LatestCost(basis.Fallback), nil, nil
	}
	return decimal.Zero, nil, nil
}

func manufacturedCost(sku SKU, b ManufacturedBasis, ingredients map[generic.EntityID]*Ingredient) (decimal.Decimal, []generic.MissingReferenceWarning, error) {
	if err := validateWastage(sku.ID, b.WastageFactor); err != nil {
		return decimal.Zero, nil, err
	}

	var warnings []generic.MissingReferenceWarning
	materials := decimal.Zero
	for _, item := range b.Recipe {
		ing, ok := ingredients[item.IngredientID]
		if !ok {
			warnings = append(warnings, generic.MissingReferenceWarning{
				SKUID:        sku.ID,
				SKUName:      sku.Name,
				IngredientID: item.IngredientID,
			})
			continue
		}
		materials = materials.Add(ing.LatestCost().Mul(item.Quantity.BaseUnits()))
	}

	total := materials.Add(b.LaborCost).Add(b.OverheadCost).Add(b.FranchiseFee)
	return total.Div(decimal.NewFromInt(1).Sub(b.WastageFactor)), warnings, nil
}

// RecomputeAll reprices every SKU in c in place.
func (e CostEngine) RecomputeAll(c *Catalog) CostReport {
	var report CostReport
	ingredients := c.ingredientIndex()

	for i := range c.SKUs {
		sku := &c.SKUs[i]
		cost, warnings, err := e.UnitCost(*sku, ingredients)
		report.Warnings = append(report.Warnings, warnings...)
		if err != nil {
			sku.CostFault = CostFaultInvalidWastage
			report.Faults = append(report.Faults, CostFault{SKUID: sku.ID, Err: err, Cause: err.Error()})
			continue
		}
		sku.CalculatedCost = &cost
		sku.CostFault = ""
		report.Repriced++
	}
	return report
}

// OnCatalogChanged returns a repriced copy of c. c itself is not modified.
func OnCatalogChanged(c *Catalog) (*Catalog, CostReport) {
	next := c.Clone()
	report := CostEngine{}.RecomputeAll(next)
	return next, report
}

// =============================================================================
// VALIDATION & DERIVED FIGURES
// =============================================================================

func validateWastage(id generic.EntityID, factor decimal.Decimal) error {
	if factor.IsNegative() || factor.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return &generic.InvalidWastageFactorError{SKUID: id, Factor: factor}
	}
	return nil
}

// ValidateSKU checks the cost-affecting fields before a SKU is saved.
func ValidateSKU(s SKU) error {
	if err := validateWastage(s.ID, s.WastageFactor); err != nil {
		return err
	}
	key := s.Key()
	for _, v := range []decimal.Decimal{s.LaborCost, s.OverheadCost, s.FranchiseFee, s.SalePrice} {
		if err := generic.ValidateCost(key, v); err != nil {
			return err
		}
	}
	for _, item := range s.Recipe {
		if !item.Quantity.IsPositive() {
			return fmt.Errorf("%w: recipe of %s uses %v of %s", generic.ErrInvalidQuantity, s.Name, item.Quantity, item.IngredientID)
		}
	}
	return nil
}

// Margin is sale price minus unit cost.
func (s SKU) Margin() decimal.Decimal {
	return s.SalePrice.Sub(s.Cost())
}

// MarginPercent is margin over sale price, in percent. Zero when unpriced.
func (s SKU) MarginPercent() decimal.Decimal {
	if !s.SalePrice.IsPositive() {
		return decimal.Zero
	}
	return s.Margin().Div(s.SalePrice).Mul(decimal.NewFromInt(100))
}
