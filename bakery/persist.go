/*
persist.go - Catalog <-> storage collections

PURPOSE:
  The catalog is stored as one JSON document per entity type, keyed the same
  way browser storage always keyed it. Each key is decoded independently so
  one corrupt collection falls back to empty instead of losing the rest.

  Keys the engine does not model (payroll, budgets, maintenance, ...) are kept
  as raw JSON in Catalog.Passthrough and written back unchanged.

SEE ALSO:
  - generic/store.go: SnapshotStore contract
  - backup/backup.go: Same collections wrapped in a versioned file
*/
package bakery

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/warp/bakery-engine/generic"
)

const (
	KeyIngredients       = "ingredients"
	KeySKUs              = "skus"
	KeySuppliers         = "suppliers"
	KeyExpenses          = "expenses"
	KeyExpenseCategories = "expense_categories"
	KeySKUCategories     = "sku_categories"
	KeyShops             = "stores"
	KeyRemitos           = "remitos"
	KeyPayments          = "payments"
	KeyPaymentOrders     = "paymentOrders"
	KeyProductionLog     = "productionLog"
	KeyStockMovements    = "stockMovements"
)

type collection struct {
	key    string
	value  any
	decode func([]byte) error
}

func bind[T any](key string, dst *T) collection {
	return collection{
		key:   key,
		value: dst,
		decode: func(data []byte) error {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return err
			}
			*dst = v
			return nil
		},
	}
}

func (c *Catalog) collections() []collection {
	return []collection{
		bind(KeyIngredients, &c.Ingredients),
		bind(KeySKUs, &c.SKUs),
		bind(KeySuppliers, &c.Suppliers),
		bind(KeyExpenses, &c.Expenses),
		bind(KeyExpenseCategories, &c.ExpenseCategories),
		bind(KeySKUCategories, &c.SKUCategories),
		bind(KeyShops, &c.Shops),
		bind(KeyRemitos, &c.Remitos),
		bind(KeyPayments, &c.Payments),
		bind(KeyPaymentOrders, &c.PaymentOrders),
		bind(KeyProductionLog, &c.ProductionLog),
		bind(KeyStockMovements, &c.StockMovements),
	}
}

// CollectionKeys lists the keys the engine models, in storage order.
func CollectionKeys() []string {
	cols := (&Catalog{}).collections()
	keys := make([]string, len(cols))
	for i, col := range cols {
		keys[i] = col.key
	}
	return keys
}

// Collections encodes every collection, pass-through keys included.
func (c *Catalog) Collections() (map[string][]byte, error) {
	out := make(map[string][]byte, 16)
	for _, col := range c.collections() {
		data, err := json.Marshal(col.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", col.key, err)
		}
		out[col.key] = data
	}
	for key, raw := range c.Passthrough {
		out[key] = append([]byte(nil), raw...)
	}
	return out, nil
}

// KeyError reports a collection that could not be decoded.
type KeyError struct {
	Key string
	Err error
}

func (e KeyError) Error() string { return fmt.Sprintf("collection %s: %v", e.Key, e.Err) }

// LoadCatalog decodes stored collections and heals the result. Corrupt keys
// are left empty and reported; they never stop the load.
func LoadCatalog(stored map[string][]byte, today generic.Date) (*Catalog, []KeyError) {
	c := &Catalog{Passthrough: map[string]json.RawMessage{}}
	var errs []KeyError

	known := make(map[string]bool)
	for _, col := range c.collections() {
		known[col.key] = true
		data, ok := stored[col.key]
		if !ok {
			continue
		}
		if err := col.decode(data); err != nil {
			errs = append(errs, KeyError{Key: col.key, Err: err})
		}
	}

	extra := make([]string, 0)
	for key := range stored {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		if !json.Valid(stored[key]) {
			errs = append(errs, KeyError{Key: key, Err: fmt.Errorf("not valid JSON")})
			continue
		}
		c.Passthrough[key] = append(json.RawMessage(nil), stored[key]...)
	}

	Heal(c, today)
	return c, errs
}
