/*
catalog.go - The Catalog aggregate

PURPOSE:
  Catalog is the whole in-memory state the engine operates on. Every
  component takes a *Catalog and mutates it in place after validating; the
  Service clones the live catalog before each commit and swaps the clone in
  only when the operation succeeds.

CRITICAL INVARIANTS:
  1. Clone is deep: no slice, map or nested slice is shared with the source
  2. Catalog implements generic.Balances, so StockLedger is the only code
     that writes QuantityInStock
  3. Passthrough holds collections the engine does not interpret (payroll,
     budgets, ...). They are stored and exported byte-for-byte.

SEE ALSO:
  - persist.go: Catalog <-> storage collections
  - service.go: Copy-on-write commit path
*/
package bakery

import (
	"encoding/json"
	"strings"

	"github.com/warp/bakery-engine/generic"
)

type Catalog struct {
	Ingredients       []Ingredient
	SKUs              []SKU
	Suppliers         []Supplier
	Expenses          []ExpenseItem
	ExpenseCategories []string
	SKUCategories     []string
	Shops             []Shop
	Remitos           []Remito
	Payments          []Payment
	PaymentOrders     []PaymentOrder
	ProductionLog     []ProductionLog
	StockMovements    []generic.Movement

	Passthrough map[string]json.RawMessage
}

// NewCatalog returns an empty catalog with every collection initialized.
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.fillDefaults()
	return c
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (c *Catalog) Ingredient(id generic.EntityID) (*Ingredient, bool) {
	for i := range c.Ingredients {
		if c.Ingredients[i].ID == id {
			return &c.Ingredients[i], true
		}
	}
	return nil, false
}

func (c *Catalog) SKU(id generic.EntityID) (*SKU, bool) {
	for i := range c.SKUs {
		if c.SKUs[i].ID == id {
			return &c.SKUs[i], true
		}
	}
	return nil, false
}

// SKUByName matches case-insensitively after trimming.
func (c *Catalog) SKUByName(name string) (*SKU, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i := range c.SKUs {
		if strings.ToLower(strings.TrimSpace(c.SKUs[i].Name)) == want {
			return &c.SKUs[i], true
		}
	}
	return nil, false
}

func (c *Catalog) Supplier(id string) (*Supplier, bool) {
	for i := range c.Suppliers {
		if c.Suppliers[i].ID == id {
			return &c.Suppliers[i], true
		}
	}
	return nil, false
}

func (s *Supplier) Document(id string) (*SupplierDocument, bool) {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return &s.Documents[i], true
		}
	}
	return nil, false
}

func (c *Catalog) Remito(id string) (*Remito, bool) {
	for i := range c.Remitos {
		if c.Remitos[i].ID == id {
			return &c.Remitos[i], true
		}
	}
	return nil, false
}

func (c *Catalog) ProductionEntry(date generic.Date) (*ProductionLog, bool) {
	for i := range c.ProductionLog {
		if c.ProductionLog[i].Date.Equal(date) {
			return &c.ProductionLog[i], true
		}
	}
	return nil, false
}

// ingredientIndex maps ids to ingredients for the cost engine's inner loop.
func (c *Catalog) ingredientIndex() map[generic.EntityID]*Ingredient {
	idx := make(map[generic.EntityID]*Ingredient, len(c.Ingredients))
	for i := range c.Ingredients {
		idx[c.Ingredients[i].ID] = &c.Ingredients[i]
	}
	return idx
}

// =============================================================================
// BALANCES - generic.Balances over ingredients and SKUs
// =============================================================================

func (c *Catalog) OnHand(key generic.StockKey) (generic.Quantity, string, bool) {
	switch key.Kind {
	case generic.KindIngredient:
		if ing, ok := c.Ingredient(key.ID); ok {
			return ing.QuantityInStock, ing.Name, true
		}
	case generic.KindSKU:
		if sku, ok := c.SKU(key.ID); ok {
			return sku.QuantityInStock, sku.Name, true
		}
	}
	return generic.ZeroQuantity(), "", false
}

func (c *Catalog) SetOnHand(key generic.StockKey, qty generic.Quantity) {
	switch key.Kind {
	case generic.KindIngredient:
		if ing, ok := c.Ingredient(key.ID); ok {
			ing.QuantityInStock = qty
		}
	case generic.KindSKU:
		if sku, ok := c.SKU(key.ID); ok {
			sku.QuantityInStock = qty
		}
	}
}

// recordMovements appends to the stock journal.
func (c *Catalog) recordMovements(m []generic.Movement) {
	c.StockMovements = append(c.StockMovements, m...)
}

// =============================================================================
// CLONE
// =============================================================================

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		Ingredients:       make([]Ingredient, len(c.Ingredients)),
		SKUs:              make([]SKU, len(c.SKUs)),
		Suppliers:         make([]Supplier, len(c.Suppliers)),
		Expenses:          append([]ExpenseItem{}, c.Expenses...),
		ExpenseCategories: append([]string{}, c.ExpenseCategories...),
		SKUCategories:     append([]string{}, c.SKUCategories...),
		Shops:             append([]Shop{}, c.Shops...),
		Remitos:           make([]Remito, len(c.Remitos)),
		Payments:          make([]Payment, len(c.Payments)),
		PaymentOrders:     make([]PaymentOrder, len(c.PaymentOrders)),
		ProductionLog:     make([]ProductionLog, len(c.ProductionLog)),
		StockMovements:    append([]generic.Movement{}, c.StockMovements...),
		Passthrough:       make(map[string]json.RawMessage, len(c.Passthrough)),
	}

	for i, ing := range c.Ingredients {
		out.Ingredients[i] = ing.clone()
	}
	for i, sku := range c.SKUs {
		out.SKUs[i] = sku.clone()
	}
	for i, sup := range c.Suppliers {
		out.Suppliers[i] = sup.clone()
	}
	for i, r := range c.Remitos {
		out.Remitos[i] = r.clone()
	}
	for i, p := range c.Payments {
		out.Payments[i] = p.clone()
	}
	for i, po := range c.PaymentOrders {
		out.PaymentOrders[i] = po.clone()
	}
	for i, l := range c.ProductionLog {
		out.ProductionLog[i] = l.clone()
	}
	for k, v := range c.Passthrough {
		out.Passthrough[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// The clone methods below copy every slice, map and pointer an entity
// holds, so a copy handed out of the Service never shares memory with the
// live catalog.

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (i Ingredient) clone() Ingredient {
	i.UnitsPerPackage = clonePtr(i.UnitsPerPackage)
	i.MinStock = clonePtr(i.MinStock)
	i.MaxStock = clonePtr(i.MaxStock)
	i.PriceHistory = i.PriceHistory.Clone()
	return i
}

func (s SKU) clone() SKU {
	s.Recipe = append([]RecipeItem{}, s.Recipe...)
	s.CalculatedCost = clonePtr(s.CalculatedCost)
	s.UnitsPerPackage = clonePtr(s.UnitsPerPackage)
	s.MinStock = clonePtr(s.MinStock)
	s.MaxStock = clonePtr(s.MaxStock)
	s.PriceHistory = s.PriceHistory.Clone()
	return s
}

func (r Remito) clone() Remito {
	r.Items = append([]RemitoItem{}, r.Items...)
	return r
}

func (p Payment) clone() Payment {
	p.Allocations = append([]PaymentAllocation{}, p.Allocations...)
	return p
}

func (po PaymentOrder) clone() PaymentOrder {
	po.Documents = append([]PaymentOrderLine{}, po.Documents...)
	return po
}

func (l ProductionLog) clone() ProductionLog {
	l.ProducedItems = append([]ProducedItem{}, l.ProducedItems...)
	return l
}

func (a AnalyzedItem) clone() AnalyzedItem {
	a.PackageQuantity = clonePtr(a.PackageQuantity)
	a.PackagePrice = clonePtr(a.PackagePrice)
	return a
}

func (d SupplierDocument) clone() SupplierDocument {
	if d.ExtractedItems != nil {
		items := make([]AnalyzedItem, len(d.ExtractedItems))
		for i, item := range d.ExtractedItems {
			items[i] = item.clone()
		}
		d.ExtractedItems = items
	}
	d.TotalAmount = clonePtr(d.TotalAmount)
	return d
}

func (s Supplier) clone() Supplier {
	if s.Contacts != nil {
		s.Contacts = append([]SupplierContact{}, s.Contacts...)
	}
	docs := make([]SupplierDocument, len(s.Documents))
	for i, d := range s.Documents {
		docs[i] = d.clone()
	}
	s.Documents = docs
	mapping := make(map[string]Mapping, len(s.MappingHistory))
	for k, v := range s.MappingHistory {
		mapping[k] = v
	}
	s.MappingHistory = mapping
	return s
}
