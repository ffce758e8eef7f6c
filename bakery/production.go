/*
production.go - ProductionBatchProcessor

PURPOSE:
  Expands production plans into ingredient demand and commits production
  batches against stock.

CONFIRM BATCH:
  1. demand = Σ recipe(sku) * quantity over every produced item
  2. One StockLedger batch: -demand per ingredient, +surplus per SKU, where
     surplus = produced - originally planned (positive part only)
  3. Overwrite the ProductionLog entry for the date with status Producido

  Step 2 is the only step that can fail and it applies nothing on failure,
  so a rejected batch leaves every ingredient untouched, including ones only
  the satisfiable SKUs needed.

SURPLUS ONLY:
  Planned quantities were already promised to orders, so only production
  beyond the plan becomes finished-goods stock. Producing less than planned
  does not take stock away.

SEE ALSO:
  - generic/stock.go: BatchAdjust
  - fulfillment.go: The other batch caller
*/
package bakery

import (
	"fmt"
	"sort"

	"github.com/warp/bakery-engine/generic"
)

type ProductionBatchProcessor struct {
	Stock *generic.StockLedger
}

// =============================================================================
// DEMAND
// =============================================================================

// PlanDemand totals the ingredient quantities needed for items. SKUs without
// a recipe, and unknown SKUs, contribute nothing.
func PlanDemand(c *Catalog, items []ProductionPlanItem) map[generic.EntityID]generic.Quantity {
	demand := make(map[generic.EntityID]generic.Quantity)
	for _, item := range items {
		sku, ok := c.SKU(item.SKUID)
		if !ok {
			continue
		}
		for _, r := range sku.Recipe {
			need := r.Quantity.Mul(item.TotalQuantity.BaseUnits())
			demand[r.IngredientID] = demand[r.IngredientID].Add(need)
		}
	}
	return demand
}

type ShoppingListItem struct {
	IngredientID generic.EntityID `json:"ingredientId"`
	Name         string           `json:"name"`
	Unit         string           `json:"unit"`
	Required     generic.Quantity `json:"required"`
	InStock      generic.Quantity `json:"inStock"`
	ToBuy        generic.Quantity `json:"toBuy"`
}

// ShoppingList is PlanDemand joined with ingredient details, sorted by name.
// Ingredients no longer in the catalog are left out.
func ShoppingList(c *Catalog, items []ProductionPlanItem) []ShoppingListItem {
	demand := PlanDemand(c, items)
	list := make([]ShoppingListItem, 0, len(demand))
	for id, qty := range demand {
		ing, ok := c.Ingredient(id)
		if !ok {
			continue
		}
		toBuy := qty.Sub(ing.QuantityInStock).Max(generic.ZeroQuantity())
		list = append(list, ShoppingListItem{
			IngredientID: id,
			Name:         ing.Name,
			Unit:         ing.Unit,
			Required:     qty,
			InStock:      ing.QuantityInStock,
			ToBuy:        toBuy,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// DailyPlan is the aggregated demand for one delivery date.
type DailyPlan struct {
	Date  generic.Date         `json:"date"`
	Items []ProductionPlanItem `json:"items"`
}

// PlanFromRemitos aggregates remito demand per date within [from, to].
// Items whose SKU is not in the catalog are ignored.
func PlanFromRemitos(c *Catalog, from, to generic.Date) []DailyPlan {
	type dayKey = string
	byDay := map[dayKey]map[generic.EntityID]*ProductionPlanItem{}
	dates := map[dayKey]generic.Date{}

	for _, r := range c.Remitos {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		day := r.Date.String()
		if byDay[day] == nil {
			byDay[day] = map[generic.EntityID]*ProductionPlanItem{}
			dates[day] = r.Date
		}
		for _, item := range r.Items {
			sku, ok := c.SKU(item.SKUID)
			if !ok {
				continue
			}
			p, ok := byDay[day][sku.ID]
			if !ok {
				p = &ProductionPlanItem{SKUID: sku.ID, SKUName: sku.Name, Category: sku.Category}
				byDay[day][sku.ID] = p
			}
			p.TotalQuantity = p.TotalQuantity.Add(item.Quantity)
		}
	}

	plans := make([]DailyPlan, 0, len(byDay))
	for day, items := range byDay {
		plan := DailyPlan{Date: dates[day], Items: make([]ProductionPlanItem, 0, len(items))}
		for _, p := range items {
			plan.Items = append(plan.Items, *p)
		}
		sort.Slice(plan.Items, func(i, j int) bool { return plan.Items[i].SKUName < plan.Items[j].SKUName })
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Date.Before(plans[j].Date) })
	return plans
}

// =============================================================================
// PRODUCTION LOG
// =============================================================================

// TouchPlan creates a Pendiente entry for date if none exists.
func (c *Catalog) TouchPlan(date generic.Date) (*ProductionLog, error) {
	if date.IsZero() {
		return nil, generic.ErrInvalidDate
	}
	if entry, ok := c.ProductionEntry(date); ok {
		return entry, nil
	}
	c.ProductionLog = append(c.ProductionLog, ProductionLog{
		Date:          date,
		Status:        ProductionPending,
		ProducedItems: []ProducedItem{},
	})
	return &c.ProductionLog[len(c.ProductionLog)-1], nil
}

// =============================================================================
// BATCHES
// =============================================================================

type BatchResult struct {
	Consumed  map[generic.EntityID]generic.Quantity `json:"consumed"`
	Restocked map[generic.EntityID]generic.Quantity `json:"restocked"`
	Movements []generic.Movement                    `json:"movements"`
}

// ConfirmBatch commits the production for date. original is the plan the
// produced quantities are compared against to find the surplus.
func (p ProductionBatchProcessor) ConfirmBatch(c *Catalog, date generic.Date, produced, original []ProductionPlanItem) (*BatchResult, error) {
	if date.IsZero() {
		return nil, generic.ErrInvalidDate
	}
	if err := checkPlanItems(c, produced); err != nil {
		return nil, err
	}

	planned := make(map[generic.EntityID]generic.Quantity, len(original))
	for _, o := range original {
		planned[o.SKUID] = planned[o.SKUID].Add(o.TotalQuantity)
	}
	surplus := make(map[generic.EntityID]generic.Quantity)
	for _, item := range produced {
		if extra := item.TotalQuantity.Sub(planned[item.SKUID]); extra.IsPositive() {
			surplus[item.SKUID] = extra
		}
	}

	result, err := p.apply(c, produced, surplus, "production:"+date.String())
	if err != nil {
		return nil, err
	}

	items := make([]ProducedItem, 0, len(produced))
	for _, item := range produced {
		items = append(items, ProducedItem{SKUID: item.SKUID, Quantity: item.TotalQuantity})
	}
	entry := ProductionLog{Date: date, Status: ProductionProduced, ProducedItems: items}
	if existing, ok := c.ProductionEntry(date); ok {
		*existing = entry
	} else {
		c.ProductionLog = append(c.ProductionLog, entry)
	}
	return result, nil
}

// ProduceForStock commits discretionary production: every unit produced
// becomes finished-goods stock.
func (p ProductionBatchProcessor) ProduceForStock(c *Catalog, items []ProducedItem) (*BatchResult, error) {
	plan := make([]ProductionPlanItem, 0, len(items))
	surplus := make(map[generic.EntityID]generic.Quantity, len(items))
	for _, item := range items {
		plan = append(plan, ProductionPlanItem{SKUID: item.SKUID, TotalQuantity: item.Quantity})
		surplus[item.SKUID] = surplus[item.SKUID].Add(item.Quantity)
	}
	if err := checkPlanItems(c, plan); err != nil {
		return nil, err
	}
	return p.apply(c, plan, surplus, "stock-production")
}

func (p ProductionBatchProcessor) apply(c *Catalog, produced []ProductionPlanItem, surplus map[generic.EntityID]generic.Quantity, ref string) (*BatchResult, error) {
	demand := PlanDemand(c, produced)

	adjustments := make([]generic.Adjustment, 0, len(demand)+len(surplus))
	for _, id := range sortedIDs(demand) {
		adjustments = append(adjustments, generic.Adjustment{
			Key:    generic.IngredientKey(id),
			Delta:  demand[id].Neg(),
			Reason: generic.MovementProductionConsume,
		})
	}
	for _, id := range sortedIDs(surplus) {
		if !surplus[id].IsPositive() {
			continue
		}
		adjustments = append(adjustments, generic.Adjustment{
			Key:    generic.SKUKey(id),
			Delta:  surplus[id],
			Reason: generic.MovementProductionOutput,
		})
	}

	movements, err := p.Stock.BatchAdjust(c, adjustments, ref)
	if err != nil {
		return nil, err
	}
	c.recordMovements(movements)
	return &BatchResult{Consumed: demand, Restocked: surplus, Movements: movements}, nil
}

func checkPlanItems(c *Catalog, items []ProductionPlanItem) error {
	for _, item := range items {
		if _, ok := c.SKU(item.SKUID); !ok {
			return &generic.NotFoundError{Kind: "sku", ID: string(item.SKUID)}
		}
		if item.TotalQuantity.IsNegative() {
			return fmt.Errorf("%w: production of %v for sku %s", generic.ErrInvalidQuantity, item.TotalQuantity, item.SKUID)
		}
	}
	return nil
}

func sortedIDs(m map[generic.EntityID]generic.Quantity) []generic.EntityID {
	ids := make([]generic.EntityID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
