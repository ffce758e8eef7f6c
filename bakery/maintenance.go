package bakery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warp/bakery-engine/generic"
)

// =============================================================================
// INGREDIENTS
// =============================================================================

// AddIngredient registers a new ingredient with empty stock and history.
func (c *Catalog) AddIngredient(in Ingredient) (*Ingredient, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: ingredient name is required", generic.ErrInvalidInput)
	}
	in.ID = generic.EntityID(generic.NewID())
	in.QuantityInStock = generic.ZeroQuantity()
	in.PriceHistory = generic.PriceHistory{}
	c.Ingredients = append(c.Ingredients, in)
	return &c.Ingredients[len(c.Ingredients)-1], nil
}

// UpdateIngredient replaces an ingredient's metadata. Price history is kept
// as stored; a new stock quantity, when given, is applied as a manual stock
// adjustment.
func (c *Catalog) UpdateIngredient(stock *generic.StockLedger, in IngredientUpdate) (*Ingredient, []generic.Movement, error) {
	ing, ok := c.Ingredient(in.ID)
	if !ok {
		return nil, nil, &generic.NotFoundError{Kind: "ingredient", ID: string(in.ID)}
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, nil, fmt.Errorf("%w: ingredient name is required", generic.ErrInvalidInput)
	}

	var movements []generic.Movement
	if in.QuantityInStock != nil {
		if in.QuantityInStock.IsNegative() {
			return nil, nil, fmt.Errorf("%w: stock of %s cannot be %v", generic.ErrInvalidQuantity, ing.Name, *in.QuantityInStock)
		}
		delta := in.QuantityInStock.Sub(ing.QuantityInStock)
		var err error
		movements, err = stock.Adjust(c, ing.Key(), delta, generic.MovementManualAdjustment, "ingredient-edit")
		if err != nil {
			return nil, nil, err
		}
		c.recordMovements(movements)
	}

	next := in.Ingredient
	next.QuantityInStock = ing.QuantityInStock
	next.PriceHistory = ing.PriceHistory
	*ing = next
	return ing, movements, nil
}

// DeleteIngredient removes an ingredient and returns the SKUs whose recipes
// still reference it. Those lines cost zero until the recipe is fixed.
func (c *Catalog) DeleteIngredient(id generic.EntityID) ([]generic.EntityID, error) {
	idx := -1
	for i := range c.Ingredients {
		if c.Ingredients[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &generic.NotFoundError{Kind: "ingredient", ID: string(id)}
	}
	c.Ingredients = append(c.Ingredients[:idx], c.Ingredients[idx+1:]...)

	var orphaned []generic.EntityID
	for _, sku := range c.SKUs {
		for _, r := range sku.Recipe {
			if r.IngredientID == id {
				orphaned = append(orphaned, sku.ID)
				break
			}
		}
	}
	return orphaned, nil
}

// =============================================================================
// SKUS
// =============================================================================

func (c *Catalog) AddSKU(in SKU) (*SKU, error) {
	if err := ValidateSKU(in); err != nil {
		return nil, err
	}
	in.ID = generic.EntityID(generic.NewID())
	in.Recipe = append([]RecipeItem{}, in.Recipe...)
	in.QuantityInStock = generic.ZeroQuantity()
	in.PriceHistory = generic.PriceHistory{}
	in.CalculatedCost = nil
	in.CostFault = ""
	c.addSKUCategory(in.Category)
	c.SKUs = append(c.SKUs, in)
	return &c.SKUs[len(c.SKUs)-1], nil
}

// UpdateSKU replaces a SKU's recipe and cost fields. Stock, price history
// and the calculated cost stay engine-owned.
func (c *Catalog) UpdateSKU(in SKU) (*SKU, error) {
	sku, ok := c.SKU(in.ID)
	if !ok {
		return nil, &generic.NotFoundError{Kind: "sku", ID: string(in.ID)}
	}
	if err := ValidateSKU(in); err != nil {
		return nil, err
	}
	in.Recipe = append([]RecipeItem{}, in.Recipe...)
	in.QuantityInStock = sku.QuantityInStock
	in.PriceHistory = sku.PriceHistory
	in.CalculatedCost = sku.CalculatedCost
	in.CostFault = sku.CostFault
	c.addSKUCategory(in.Category)
	*sku = in
	return sku, nil
}

// addSKUCategory keeps SKUCategories sorted and free of case-insensitive duplicates.
func (c *Catalog) addSKUCategory(category string) {
	category = strings.TrimSpace(category)
	if category == "" || containsFold(c.SKUCategories, category) {
		return
	}
	c.SKUCategories = append(c.SKUCategories, category)
	sort.Strings(c.SKUCategories)
}

func (c *Catalog) ensureExpenseCategory(category string) {
	if category == "" || containsFold(c.ExpenseCategories, category) {
		return
	}
	c.ExpenseCategories = append(c.ExpenseCategories, category)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// SUPPLIERS & SHOPS
// =============================================================================

func (c *Catalog) AddSupplier(in Supplier) (*Supplier, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: supplier name is required", generic.ErrInvalidInput)
	}
	in.ID = generic.NewID()
	in.Documents = []SupplierDocument{}
	in.MappingHistory = map[string]Mapping{}
	c.Suppliers = append(c.Suppliers, in)
	return &c.Suppliers[len(c.Suppliers)-1], nil
}

// UpdateSupplier replaces contact details. Documents and mapping history are
// kept as stored.
func (c *Catalog) UpdateSupplier(in Supplier) (*Supplier, error) {
	sup, ok := c.Supplier(in.ID)
	if !ok {
		return nil, &generic.NotFoundError{Kind: "supplier", ID: in.ID}
	}
	in.Documents = sup.Documents
	in.MappingHistory = sup.MappingHistory
	*sup = in
	return sup, nil
}

func (c *Catalog) DeleteSupplier(id string) error {
	for i := range c.Suppliers {
		if c.Suppliers[i].ID == id {
			c.Suppliers = append(c.Suppliers[:i], c.Suppliers[i+1:]...)
			return nil
		}
	}
	return &generic.NotFoundError{Kind: "supplier", ID: id}
}

func (c *Catalog) AddShop(in Shop) (*Shop, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: shop name is required", generic.ErrInvalidInput)
	}
	in.ID = generic.NewID()
	c.Shops = append(c.Shops, in)
	return &c.Shops[len(c.Shops)-1], nil
}
