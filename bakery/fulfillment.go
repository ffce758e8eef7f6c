/*
fulfillment.go - FulfillmentLedger: remitos and collections

PURPOSE:
  Remitos are delivery notes to shops. Raising a line's quantity on an
  existing remito ships more finished goods, so the increase is taken from
  SKU stock through one StockLedger batch. Lowering a quantity does not
  return stock: the goods are assumed already shipped.

COLLECTIONS:
  total       = Σ qty * unitPrice * (1 - discount%/100) - remito.discount
  outstanding = total - paidAmount
  A remito is paid once paidAmount is within 0.01 of its total.

SEE ALSO:
  - production.go: PlanFromRemitos turns remito demand into production plans
*/
package bakery

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/generic"
)

// DefaultIVARate is applied to remito lines built from wholesale orders.
var DefaultIVARate = decimal.NewFromInt(21)

// UnknownSKUID marks remito lines whose product name matched no SKU.
const UnknownSKUID generic.EntityID = "not-found"

var hundred = decimal.NewFromInt(100)

type FulfillmentLedger struct {
	Stock *generic.StockLedger
}

// =============================================================================
// TOTALS
// =============================================================================

func RemitoTotal(r Remito) decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		factor := decimal.NewFromInt(1).Sub(item.DiscountPercentage.Div(hundred))
		total = total.Add(item.Quantity.BaseUnits().Mul(item.UnitPrice).Mul(factor))
	}
	return total.Sub(r.Discount)
}

func Outstanding(r Remito) decimal.Decimal {
	return RemitoTotal(r).Sub(r.PaidAmount)
}

// ShopBalance sums what a shop still owes across its remitos.
func ShopBalance(c *Catalog, storeName string) decimal.Decimal {
	balance := decimal.Zero
	for _, r := range c.Remitos {
		if strings.EqualFold(r.StoreName, storeName) {
			balance = balance.Add(Outstanding(r))
		}
	}
	return balance
}

func paymentStatus(paid, total decimal.Decimal) RemitoStatus {
	switch {
	case !paid.IsPositive():
		return RemitoUnpaid
	case paid.GreaterThanOrEqual(total.Sub(paymentTolerance)):
		return RemitoPaid
	default:
		return RemitoPartiallyPaid
	}
}

// =============================================================================
// REMITOS
// =============================================================================

// RemitosFromOrders builds unpaid remitos from extracted wholesale orders.
// Products are matched to SKUs by name, case-insensitively, and priced at the
// SKU's sale price.
func RemitosFromOrders(c *Catalog, orders []WholesaleOrder) []Remito {
	remitos := make([]Remito, 0, len(orders))
	for _, o := range orders {
		r := Remito{
			ID:         fmt.Sprintf("%s-%s", o.StoreName, o.Date),
			StoreName:  o.StoreName,
			Date:       o.Date,
			Items:      make([]RemitoItem, 0, len(o.Items)),
			Status:     RemitoUnpaid,
			PaidAmount: decimal.Zero,
			Discount:   decimal.Zero,
		}
		for _, item := range o.Items {
			line := RemitoItem{
				SKUID:              UnknownSKUID,
				SKUName:            item.SKUName,
				Quantity:           item.Quantity,
				UnitPrice:          decimal.Zero,
				IVARate:            DefaultIVARate,
				DiscountPercentage: decimal.Zero,
			}
			if sku, ok := c.SKUByName(item.SKUName); ok {
				line.SKUID = sku.ID
				line.SKUName = sku.Name
				line.UnitPrice = sku.SalePrice
			}
			r.Items = append(r.Items, line)
		}
		remitos = append(remitos, r)
	}
	return remitos
}

// AddRemitos appends new remitos. Creating a remito does not move stock.
func (f FulfillmentLedger) AddRemitos(c *Catalog, remitos []Remito) ([]Remito, error) {
	added := make([]Remito, 0, len(remitos))
	for _, r := range remitos {
		if r.ID == "" {
			r.ID = generic.NewID()
		}
		if _, exists := c.Remito(r.ID); exists {
			r.ID = r.ID + "-" + generic.NewID()[:8]
		}
		if r.Date.IsZero() {
			return nil, fmt.Errorf("remito for %s: %w", r.StoreName, generic.ErrInvalidDate)
		}
		for _, item := range r.Items {
			if item.Quantity.IsNegative() {
				return nil, fmt.Errorf("%w: remito %s line %s", generic.ErrInvalidQuantity, r.ID, item.SKUName)
			}
		}
		r = r.clone()
		r.Status = paymentStatus(r.PaidAmount, RemitoTotal(r))
		added = append(added, r)
	}
	for _, r := range added {
		c.Remitos = append(c.Remitos, r.clone())
	}
	return added, nil
}

// UpdateRemito replaces a remito's lines. Quantity increases relative to the
// stored remito are taken from SKU stock; if any SKU cannot cover its
// increase nothing changes.
func (f FulfillmentLedger) UpdateRemito(c *Catalog, updated Remito) (*Remito, []generic.Movement, error) {
	stored, ok := c.Remito(updated.ID)
	if !ok {
		return nil, nil, &generic.NotFoundError{Kind: "remito", ID: updated.ID}
	}

	previous := make(map[generic.EntityID]generic.Quantity, len(stored.Items))
	for _, item := range stored.Items {
		previous[item.SKUID] = previous[item.SKUID].Add(item.Quantity)
	}
	current := make(map[generic.EntityID]generic.Quantity, len(updated.Items))
	var order []generic.EntityID
	for _, item := range updated.Items {
		if item.Quantity.IsNegative() {
			return nil, nil, fmt.Errorf("%w: remito %s line %s", generic.ErrInvalidQuantity, updated.ID, item.SKUName)
		}
		if _, seen := current[item.SKUID]; !seen {
			order = append(order, item.SKUID)
		}
		current[item.SKUID] = current[item.SKUID].Add(item.Quantity)
	}

	var adjustments []generic.Adjustment
	for _, id := range order {
		increase := current[id].Sub(previous[id])
		if !increase.IsPositive() || id == UnknownSKUID {
			continue
		}
		adjustments = append(adjustments, generic.Adjustment{
			Key:    generic.SKUKey(id),
			Delta:  increase.Neg(),
			Reason: generic.MovementFulfillment,
		})
	}

	movements, err := f.Stock.BatchAdjust(c, adjustments, "remito:"+updated.ID)
	if err != nil {
		return nil, nil, err
	}
	c.recordMovements(movements)

	next := updated.clone()
	next.PaidAmount = stored.PaidAmount
	next.Date = updated.Date.OrToday(stored.Date)
	next.Status = paymentStatus(next.PaidAmount, RemitoTotal(next))
	*stored = next
	return stored, movements, nil
}

// DeleteRemito removes a remito. Stock is not returned.
func (f FulfillmentLedger) DeleteRemito(c *Catalog, id string) error {
	for i := range c.Remitos {
		if c.Remitos[i].ID == id {
			c.Remitos = append(c.Remitos[:i], c.Remitos[i+1:]...)
			return nil
		}
	}
	return &generic.NotFoundError{Kind: "remito", ID: id}
}

// =============================================================================
// PAYMENTS
// =============================================================================

// AddPayment records a shop payment and applies its allocations. Every
// allocated remito must exist or nothing is recorded.
func (f FulfillmentLedger) AddPayment(c *Catalog, p Payment, today generic.Date) (*Payment, error) {
	if p.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: payment amount %v", generic.ErrInvalidQuantity, p.Amount)
	}
	for _, a := range p.Allocations {
		if _, ok := c.Remito(a.RemitoID); !ok {
			return nil, &generic.NotFoundError{Kind: "remito", ID: a.RemitoID}
		}
		if a.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: allocation %v to remito %s", generic.ErrInvalidQuantity, a.Amount, a.RemitoID)
		}
	}

	p.ID = generic.NewID()
	p.Date = p.Date.OrToday(today)
	p = p.clone()
	for _, a := range p.Allocations {
		r, _ := c.Remito(a.RemitoID)
		r.PaidAmount = r.PaidAmount.Add(a.Amount)
		r.Status = paymentStatus(r.PaidAmount, RemitoTotal(*r))
	}
	c.Payments = append(c.Payments, p)
	return &c.Payments[len(c.Payments)-1], nil
}

// RemitosForStore returns a shop's remitos, matching the name case-insensitively.
func RemitosForStore(c *Catalog, storeName string) []Remito {
	var out []Remito
	for _, r := range c.Remitos {
		if strings.EqualFold(r.StoreName, storeName) {
			out = append(out, r)
		}
	}
	return out
}
