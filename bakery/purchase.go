/*
purchase.go - PurchaseIntake: invoices and manual purchases

PURPOSE:
  Turns confirmed supplier invoice lines and manual purchases into price
  history entries and stock increments.

CONFIRM FLOW:
  1. Resolve package-aware lines to base-unit quantity and price
  2. Validate every line (negative prices reject the whole invoice)
  3. One StockLedger batch for every matched line with quantity > 0
  4. Append a price entry for every matched line with unitPrice > 0
  5. Remember productName -> entity in the supplier's mapping history
  6. Record the invoice total as an expense line tied to the document
  7. Document -> approved

  Unmatched lines have no cost or stock effect. Lines matched to an entity
  that has since been deleted are skipped and reported as stale.

SEE ALSO:
  - documents.go: Status transitions for supplier documents
  - cost.go: Caller reprices the catalog after every commit
*/
package bakery

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/generic"
)

// DefaultExpenseCategory is used when an invoice is confirmed without one.
const DefaultExpenseCategory = "Proveedores"

// priceChangeEpsilon is the smallest cost difference worth surfacing.
var priceChangeEpsilon = decimal.NewFromFloat(0.001)

type PurchaseIntake struct {
	Stock *generic.StockLedger
}

// =============================================================================
// CONFIRM INVOICE
// =============================================================================

type ConfirmInvoiceInput struct {
	SupplierID      string         `json:"supplierId"`
	DocumentID      string         `json:"documentId"`
	Items           []AnalyzedItem `json:"items"`
	ExpenseCategory string         `json:"expenseCategory"`
	DueDate         generic.Date   `json:"dueDate"`
}

type InvoiceResult struct {
	Applied   []AnalyzedItem     `json:"applied"`
	Unmatched []AnalyzedItem     `json:"unmatched"`
	Stale     []AnalyzedItem     `json:"stale"`
	Total     decimal.Decimal    `json:"total"`
	Expense   ExpenseItem        `json:"expense"`
	Movements []generic.Movement `json:"movements"`
}

func (p PurchaseIntake) ConfirmInvoice(c *Catalog, in ConfirmInvoiceInput) (*InvoiceResult, error) {
	supplier, ok := c.Supplier(in.SupplierID)
	if !ok {
		return nil, &generic.NotFoundError{Kind: "supplier", ID: in.SupplierID}
	}
	doc, ok := supplier.Document(in.DocumentID)
	if !ok {
		return nil, &generic.NotFoundError{Kind: "document", ID: in.DocumentID}
	}
	if err := checkTransition(doc.Status, DocApproved); err != nil {
		return nil, err
	}

	// Phase 1: resolve and validate every line.
	result := &InvoiceResult{Total: decimal.Zero}
	items := make([]AnalyzedItem, len(in.Items))
	var adjustments []generic.Adjustment
	for i, raw := range in.Items {
		item, err := c.resolveLine(raw)
		if err != nil {
			return nil, err
		}
		if item.ID == "" {
			item.ID = generic.NewID()
		}
		items[i] = item
		result.Total = result.Total.Add(item.UnitPrice.Mul(item.Quantity.BaseUnits()))

		switch {
		case !item.Matched():
			result.Unmatched = append(result.Unmatched, item)
			continue
		case !c.exists(item.Key()):
			result.Stale = append(result.Stale, item)
			continue
		}
		if err := generic.ValidateCost(item.Key(), item.UnitPrice); err != nil {
			return nil, err
		}
		result.Applied = append(result.Applied, item)
		if item.Quantity.IsPositive() {
			adjustments = append(adjustments, generic.Adjustment{
				Key:    item.Key(),
				Delta:  item.Quantity,
				Reason: generic.MovementPurchase,
			})
		}
	}

	// Phase 2: apply.
	movements, err := p.Stock.BatchAdjust(c, adjustments, doc.ID)
	if err != nil {
		return nil, err
	}
	c.recordMovements(movements)
	result.Movements = movements

	today := p.Stock.CurrentDate()
	if supplier.MappingHistory == nil {
		supplier.MappingHistory = map[string]Mapping{}
	}
	for _, item := range result.Applied {
		if item.UnitPrice.IsPositive() {
			if err := c.appendPrice(item.Key(), today, item.UnitPrice, supplier.ID); err != nil {
				return nil, err
			}
		}
		supplier.MappingHistory[item.ProductName] = Mapping{MatchType: item.MatchType, MatchedID: item.MatchedID}
	}

	category := in.ExpenseCategory
	if category == "" {
		category = DefaultExpenseCategory
	}
	c.ensureExpenseCategory(category)
	result.Expense = ExpenseItem{
		ID:               generic.NewID(),
		Category:         category,
		Description:      fmt.Sprintf("Factura %s - %s", doc.FileName, supplier.Name),
		Amount:           result.Total,
		Date:             today,
		Type:             ExpenseVariable,
		SourceDocumentID: doc.ID,
		SupplierID:       supplier.ID,
		SupplierName:     supplier.Name,
	}
	c.Expenses = append(c.Expenses, result.Expense)

	total := result.Total
	doc.Status = DocApproved
	doc.ExtractedItems = items
	doc.TotalAmount = &total
	doc.ExpenseCategory = category
	doc.DueDate = in.DueDate.OrToday(today)
	return result, nil
}

// =============================================================================
// MANUAL PURCHASES
// =============================================================================

type ManualPurchase struct {
	ItemType   MatchType        `json:"itemType"`
	ItemID     generic.EntityID `json:"itemId"`
	Quantity   generic.Quantity `json:"quantity"`
	UnitCost   decimal.Decimal  `json:"unitCost"`
	SupplierID string           `json:"supplierId"`
}

func (m ManualPurchase) key() generic.StockKey {
	return AnalyzedItem{MatchType: m.ItemType, MatchedID: m.ItemID}.Key()
}

// AddManualPurchase records one purchase outside any invoice.
func (p PurchaseIntake) AddManualPurchase(c *Catalog, m ManualPurchase) ([]generic.Movement, error) {
	if m.ItemType != MatchIngredient && m.ItemType != MatchSKU {
		return nil, fmt.Errorf("%w: item type %q", generic.ErrInvalidInput, m.ItemType)
	}
	key := m.key()
	if !c.exists(key) {
		return nil, &generic.NotFoundError{Kind: string(key.Kind), ID: string(key.ID)}
	}
	if !m.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: purchase quantity %v", generic.ErrInvalidQuantity, m.Quantity)
	}
	if err := generic.ValidateCost(key, m.UnitCost); err != nil {
		return nil, err
	}

	movements, err := p.Stock.Adjust(c, key, m.Quantity, generic.MovementPurchase, "manual")
	if err != nil {
		return nil, err
	}
	c.recordMovements(movements)
	if m.UnitCost.IsPositive() {
		if err := c.appendPrice(key, p.Stock.CurrentDate(), m.UnitCost, m.SupplierID); err != nil {
			return nil, err
		}
	}
	return movements, nil
}

// PackagePurchase is a manual purchase expressed in packages.
type PackagePurchase struct {
	ItemType     MatchType        `json:"itemType"`
	ItemID       generic.EntityID `json:"itemId"`
	Packages     decimal.Decimal  `json:"packages"`
	PackagePrice decimal.Decimal  `json:"packagePrice"`
	SupplierID   string           `json:"supplierId"`

	// UnitsPerPackage overrides the entity's configured package size.
	UnitsPerPackage *decimal.Decimal `json:"unitsPerPackage,omitempty"`
}

// AddPackagePurchase divides the package price down to a unit cost and
// multiplies the package count up to base units before recording.
func (p PurchaseIntake) AddPackagePurchase(c *Catalog, pp PackagePurchase) ([]generic.Movement, error) {
	key := AnalyzedItem{MatchType: pp.ItemType, MatchedID: pp.ItemID}.Key()
	pkg, ok := packageOf(pp.UnitsPerPackage)
	if !ok {
		pkg, ok = c.packageFor(key)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no package size for %s", generic.ErrInvalidQuantity, key)
	}
	unitCost, err := pkg.UnitCost(pp.PackagePrice)
	if err != nil {
		return nil, err
	}
	return p.AddManualPurchase(c, ManualPurchase{
		ItemType:   pp.ItemType,
		ItemID:     pp.ItemID,
		Quantity:   pkg.ToBase(pp.Packages),
		UnitCost:   unitCost,
		SupplierID: pp.SupplierID,
	})
}

// =============================================================================
// PRICE CHANGE ADVISORY
// =============================================================================

type PriceChange struct {
	IngredientID generic.EntityID `json:"ingredientId"`
	Name         string           `json:"name"`
	OldCost      decimal.Decimal  `json:"oldCost"`
	NewCost      decimal.Decimal  `json:"newCost"`
}

// DetectPriceChanges lists ingredients whose proposed cost differs from their
// latest known cost. It never mutates c.
func DetectPriceChanges(c *Catalog, items []AnalyzedItem) []PriceChange {
	var changes []PriceChange
	for _, raw := range items {
		if raw.MatchType != MatchIngredient || raw.MatchedID == "" {
			continue
		}
		item, err := c.resolveLine(raw)
		if err != nil {
			continue
		}
		ing, ok := c.Ingredient(item.MatchedID)
		if !ok {
			continue
		}
		old := ing.LatestCost()
		if old.IsPositive() && old.Sub(item.UnitPrice).Abs().GreaterThan(priceChangeEpsilon) {
			changes = append(changes, PriceChange{
				IngredientID: ing.ID,
				Name:         ing.Name,
				OldCost:      old,
				NewCost:      item.UnitPrice,
			})
		}
	}
	return changes
}

// =============================================================================
// HELPERS
// =============================================================================

// resolveLine converts package quantities to base units when the matched
// entity has a package size and the line carries package figures.
func (c *Catalog) resolveLine(item AnalyzedItem) (AnalyzedItem, error) {
	if item.PackageQuantity == nil || item.PackagePrice == nil || !item.Matched() {
		return item, nil
	}
	pkg, ok := c.packageFor(item.Key())
	if !ok {
		return item, nil
	}
	unitCost, err := pkg.UnitCost(*item.PackagePrice)
	if err != nil {
		return item, err
	}
	item.Quantity = pkg.ToBase(*item.PackageQuantity)
	item.UnitPrice = unitCost
	return item, nil
}

func (c *Catalog) packageFor(key generic.StockKey) (generic.PackageSize, bool) {
	switch key.Kind {
	case generic.KindIngredient:
		if ing, ok := c.Ingredient(key.ID); ok {
			return ing.Package()
		}
	case generic.KindSKU:
		if sku, ok := c.SKU(key.ID); ok {
			return sku.Package()
		}
	}
	return generic.PackageSize{}, false
}

func (c *Catalog) exists(key generic.StockKey) bool {
	_, _, ok := c.OnHand(key)
	return ok
}

func (c *Catalog) appendPrice(key generic.StockKey, date generic.Date, cost decimal.Decimal, supplierID string) error {
	entry := generic.PriceEntry{Date: date, Cost: cost, SupplierID: supplierID}
	switch key.Kind {
	case generic.KindIngredient:
		ing, ok := c.Ingredient(key.ID)
		if !ok {
			return &generic.NotFoundError{Kind: string(key.Kind), ID: string(key.ID)}
		}
		h, err := ing.PriceHistory.Append(key, entry)
		if err != nil {
			return err
		}
		ing.PriceHistory = h
	case generic.KindSKU:
		sku, ok := c.SKU(key.ID)
		if !ok {
			return &generic.NotFoundError{Kind: string(key.Kind), ID: string(key.ID)}
		}
		h, err := sku.PriceHistory.Append(key, entry)
		if err != nil {
			return err
		}
		sku.PriceHistory = h
	}
	return nil
}
