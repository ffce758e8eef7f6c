/*
heal.go - Repair pass for loaded catalogs

PURPOSE:
  Storage and backups may hold records written by older versions or
  partially corrupted by hand edits. Heal makes such a catalog safe for the
  engine without dropping records:

  - missing arrays (priceHistory, recipe, documents, items, ...) -> empty
  - missing or invalid dates -> today
  - missing statuses -> their initial state
  - documents stuck in processing (extraction interrupted) -> error, so they
    can be retried

  Heal never touches quantities or costs. Negative stock left by older
  versions is reported by Diagnose instead.
*/
package bakery

import (
	"encoding/json"
	"strings"

	"github.com/warp/bakery-engine/generic"
)

// DefaultExpenseCategories seeds an empty category list.
var DefaultExpenseCategories = []string{"Salarios", "Impuestos", "Costos Operativos", "Mantenimiento", DefaultExpenseCategory}

// Heal repairs c in place and returns how many fields it changed.
func Heal(c *Catalog, today generic.Date) int {
	h := healer{today: today}
	c.fillDefaults()

	for i := range c.Ingredients {
		ing := &c.Ingredients[i]
		ing.PriceHistory = h.history(ing.PriceHistory)
	}
	for i := range c.SKUs {
		sku := &c.SKUs[i]
		if sku.Recipe == nil {
			sku.Recipe = []RecipeItem{}
			h.fixed++
		}
		sku.PriceHistory = h.history(sku.PriceHistory)
	}
	for i := range c.Suppliers {
		h.supplier(&c.Suppliers[i])
	}
	for i := range c.Expenses {
		c.Expenses[i].Date = h.date(c.Expenses[i].Date)
	}
	for i := range c.Remitos {
		r := &c.Remitos[i]
		r.Date = h.date(r.Date)
		if r.Items == nil {
			r.Items = []RemitoItem{}
			h.fixed++
		}
		if r.Status == "" {
			r.Status = paymentStatus(r.PaidAmount, RemitoTotal(*r))
			h.fixed++
		}
	}
	for i := range c.Payments {
		p := &c.Payments[i]
		p.Date = h.date(p.Date)
		if p.Allocations == nil {
			p.Allocations = []PaymentAllocation{}
			h.fixed++
		}
	}
	for i := range c.PaymentOrders {
		po := &c.PaymentOrders[i]
		po.CreationDate = h.date(po.CreationDate)
		po.PaymentDate = h.date(po.PaymentDate)
		if po.Documents == nil {
			po.Documents = []PaymentOrderLine{}
			h.fixed++
		}
	}
	for i := range c.ProductionLog {
		l := &c.ProductionLog[i]
		l.Date = h.date(l.Date)
		if l.ProducedItems == nil {
			l.ProducedItems = []ProducedItem{}
			h.fixed++
		}
		if l.Status == "" {
			l.Status = ProductionPending
			h.fixed++
		}
	}

	if len(c.ExpenseCategories) == 0 {
		c.ExpenseCategories = append([]string{}, DefaultExpenseCategories...)
		h.fixed++
	}
	if len(c.SKUCategories) == 0 && len(c.SKUs) > 0 {
		for _, sku := range c.SKUs {
			c.addSKUCategory(sku.Category)
		}
		h.fixed++
	}
	return h.fixed
}

type healer struct {
	today generic.Date
	fixed int
}

func (h *healer) date(d generic.Date) generic.Date {
	if d.IsZero() {
		h.fixed++
		return h.today
	}
	return d
}

func (h *healer) history(ph generic.PriceHistory) generic.PriceHistory {
	if ph == nil {
		h.fixed++
		return generic.PriceHistory{}
	}
	for i := range ph {
		ph[i].Date = h.date(ph[i].Date)
		if ph[i].ID == "" {
			ph[i].ID = generic.NewID()
			h.fixed++
		}
	}
	return ph
}

func (h *healer) supplier(s *Supplier) {
	if s.Documents == nil {
		s.Documents = []SupplierDocument{}
		h.fixed++
	}
	if s.MappingHistory == nil {
		s.MappingHistory = map[string]Mapping{}
		h.fixed++
	}
	for i := range s.Documents {
		d := &s.Documents[i]
		d.UploadDate = h.date(d.UploadDate)
		d.DueDate = h.date(d.DueDate)
		switch d.Status {
		case "":
			d.Status = DocPendingReview
			h.fixed++
		case DocProcessing:
			d.Status = DocError
			h.fixed++
		}
		if strings.TrimSpace(d.ExpenseCategory) == "" {
			d.ExpenseCategory = DefaultExpenseCategory
			h.fixed++
		}
	}
}

// fillDefaults replaces nil collections with empty ones.
func (c *Catalog) fillDefaults() {
	if c.Ingredients == nil {
		c.Ingredients = []Ingredient{}
	}
	if c.SKUs == nil {
		c.SKUs = []SKU{}
	}
	if c.Suppliers == nil {
		c.Suppliers = []Supplier{}
	}
	if c.Expenses == nil {
		c.Expenses = []ExpenseItem{}
	}
	if c.ExpenseCategories == nil {
		c.ExpenseCategories = []string{}
	}
	if c.SKUCategories == nil {
		c.SKUCategories = []string{}
	}
	if c.Shops == nil {
		c.Shops = []Shop{}
	}
	if c.Remitos == nil {
		c.Remitos = []Remito{}
	}
	if c.Payments == nil {
		c.Payments = []Payment{}
	}
	if c.PaymentOrders == nil {
		c.PaymentOrders = []PaymentOrder{}
	}
	if c.ProductionLog == nil {
		c.ProductionLog = []ProductionLog{}
	}
	if c.StockMovements == nil {
		c.StockMovements = []generic.Movement{}
	}
	if c.Passthrough == nil {
		c.Passthrough = map[string]json.RawMessage{}
	}
}
