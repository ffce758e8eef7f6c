package bakery_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

func fulfillment() bakery.FulfillmentLedger {
	return bakery.FulfillmentLedger{Stock: fixedLedger()}
}

func line(id generic.EntityID, name, q, unitPrice string) bakery.RemitoItem {
	return bakery.RemitoItem{
		SKUID: id, SKUName: name, Quantity: qty(q), UnitPrice: dec(unitPrice),
		IVARate: bakery.DefaultIVARate, DiscountPercentage: decimal.Zero,
	}
}

func sodaRemito(t *testing.T, c *bakery.Catalog, q string) bakery.Remito {
	t.Helper()
	added, err := fulfillment().AddRemitos(c, []bakery.Remito{{
		ID: "r-1", StoreName: "Café Centro", Date: date(today),
		Items: []bakery.RemitoItem{line("soda", "Gaseosa", q, "1.5")},
	}})
	require.NoError(t, err)
	return added[0]
}

func TestRemitoTotal(t *testing.T) {
	r := bakery.Remito{
		Items: []bakery.RemitoItem{
			line("bread", "Pan", "10", "3"),
			line("croissant", "Croissant", "4", "2.5"),
		},
		Discount: dec("2"),
	}
	r.Items[0].DiscountPercentage = dec("10")

	assert.Equal(t, "35", bakery.RemitoTotal(r).String())

	r.PaidAmount = dec("5")
	assert.Equal(t, "30", bakery.Outstanding(r).String())
}

func TestAddRemitos_DoesNotMoveStock(t *testing.T) {
	c := testCatalog()

	r := sodaRemito(t, c, "6")

	assert.Equal(t, bakery.RemitoUnpaid, r.Status)
	assert.True(t, sku(c, "soda").QuantityInStock.Equal(qty("24")))
	assert.Empty(t, c.StockMovements)
}

func TestAddRemitos_RequiresDate(t *testing.T) {
	c := testCatalog()

	_, err := fulfillment().AddRemitos(c, []bakery.Remito{{StoreName: "Café Centro"}})

	assert.ErrorIs(t, err, generic.ErrInvalidDate)
	assert.Empty(t, c.Remitos)
}

func TestAddRemitos_ReturnedRemitoDoesNotShareItems(t *testing.T) {
	c := testCatalog()
	r := sodaRemito(t, c, "6")

	r.Items[0].Quantity = qty("10")

	stored, ok := c.Remito("r-1")
	require.True(t, ok)
	assert.True(t, stored.Items[0].Quantity.Equal(qty("6")))
}

func TestUpdateRemito_IncreaseTakesStock(t *testing.T) {
	// GIVEN: A remito for 6 sodas, 24 in stock
	// WHEN: The line is raised to 10
	// THEN: Only the 4 extra units leave stock

	c := testCatalog()
	r := sodaRemito(t, c, "6")
	r.Items[0].Quantity = qty("10")

	updated, movements, err := fulfillment().UpdateRemito(c, r)
	require.NoError(t, err)

	assert.True(t, sku(c, "soda").QuantityInStock.Equal(qty("20")))
	require.Len(t, movements, 1)
	assert.Equal(t, generic.MovementFulfillment, movements[0].Reason)
	assert.Equal(t, "remito:r-1", movements[0].Reference)
	assert.Equal(t, "15", bakery.RemitoTotal(*updated).String())
}

func TestUpdateRemito_InsufficientStockChangesNothing(t *testing.T) {
	c := testCatalog()
	r := sodaRemito(t, c, "6")
	r.Items[0].Quantity = qty("40")

	_, _, err := fulfillment().UpdateRemito(c, r)

	assert.ErrorIs(t, err, generic.ErrInsufficientStock)
	assert.True(t, sku(c, "soda").QuantityInStock.Equal(qty("24")))
	stored, _ := c.Remito("r-1")
	assert.True(t, stored.Items[0].Quantity.Equal(qty("6")))
}

func TestUpdateRemito_DecreaseDoesNotReturnStock(t *testing.T) {
	c := testCatalog()
	r := sodaRemito(t, c, "6")
	r.Items[0].Quantity = qty("2")

	_, movements, err := fulfillment().UpdateRemito(c, r)
	require.NoError(t, err)

	assert.Empty(t, movements)
	assert.True(t, sku(c, "soda").QuantityInStock.Equal(qty("24")))
}

func TestUpdateRemito_KeepsPaidAmount(t *testing.T) {
	c := testCatalog()
	r := sodaRemito(t, c, "6")
	_, err := fulfillment().AddPayment(c, bakery.Payment{
		Amount:      dec("9"),
		Allocations: []bakery.PaymentAllocation{{RemitoID: "r-1", Amount: dec("9")}},
	}, date(today))
	require.NoError(t, err)

	r.PaidAmount = decimal.Zero
	r.Items[0].Quantity = qty("8")
	updated, _, err := fulfillment().UpdateRemito(c, r)
	require.NoError(t, err)

	assert.Equal(t, "9", updated.PaidAmount.String())
	assert.Equal(t, bakery.RemitoPartiallyPaid, updated.Status)
}

func TestUpdateRemito_Unknown(t *testing.T) {
	c := testCatalog()

	_, _, err := fulfillment().UpdateRemito(c, bakery.Remito{ID: "ghost"})

	assert.True(t, generic.IsNotFound(err))
}

func TestAddPayment_StatusWithinTolerance(t *testing.T) {
	c := testCatalog()
	sodaRemito(t, c, "10") // total 15

	_, err := fulfillment().AddPayment(c, bakery.Payment{
		Amount:      dec("10"),
		Allocations: []bakery.PaymentAllocation{{RemitoID: "r-1", Amount: dec("10")}},
	}, date(today))
	require.NoError(t, err)
	r, _ := c.Remito("r-1")
	assert.Equal(t, bakery.RemitoPartiallyPaid, r.Status)

	p, err := fulfillment().AddPayment(c, bakery.Payment{
		Amount:      dec("4.995"),
		Allocations: []bakery.PaymentAllocation{{RemitoID: "r-1", Amount: dec("4.995")}},
	}, date(today))
	require.NoError(t, err)
	assert.Equal(t, today, p.Date.String())
	assert.NotEmpty(t, p.ID)

	r, _ = c.Remito("r-1")
	assert.Equal(t, bakery.RemitoPaid, r.Status)
	assert.Len(t, c.Payments, 2)
}

func TestAddPayment_UnknownRemitoRecordsNothing(t *testing.T) {
	c := testCatalog()
	sodaRemito(t, c, "10")

	_, err := fulfillment().AddPayment(c, bakery.Payment{
		Amount: dec("20"),
		Allocations: []bakery.PaymentAllocation{
			{RemitoID: "r-1", Amount: dec("10")},
			{RemitoID: "ghost", Amount: dec("10")},
		},
	}, date(today))

	assert.True(t, generic.IsNotFound(err))
	assert.Empty(t, c.Payments)
	r, _ := c.Remito("r-1")
	assert.True(t, r.PaidAmount.IsZero())
}

func TestShopBalance_MatchesNameCaseInsensitively(t *testing.T) {
	c := testCatalog()
	sodaRemito(t, c, "10")
	_, err := fulfillment().AddRemitos(c, []bakery.Remito{{
		ID: "r-2", StoreName: "CAFÉ CENTRO", Date: date(today),
		Items: []bakery.RemitoItem{line("bread", "Pan", "2", "3")},
	}})
	require.NoError(t, err)

	assert.Equal(t, "21", bakery.ShopBalance(c, "café centro").String())
	assert.Len(t, bakery.RemitosForStore(c, "Café Centro"), 2)
}

func TestRemitosFromOrders_MatchesByName(t *testing.T) {
	c := testCatalog()

	remitos := bakery.RemitosFromOrders(c, []bakery.WholesaleOrder{{
		StoreName: "Kiosco",
		Date:      date("2024-07-22"),
		Items: []bakery.WholesaleOrderItem{
			{SKUName: "pan", Quantity: qty("12")},
			{SKUName: "Budín", Quantity: qty("3")},
		},
	}})

	require.Len(t, remitos, 1)
	r := remitos[0]
	assert.Equal(t, "Kiosco-2024-07-22", r.ID)
	assert.Equal(t, bakery.RemitoUnpaid, r.Status)

	require.Len(t, r.Items, 2)
	assert.Equal(t, generic.EntityID("bread"), r.Items[0].SKUID)
	assert.Equal(t, "Pan", r.Items[0].SKUName)
	assert.Equal(t, "3", r.Items[0].UnitPrice.String())
	assert.Equal(t, "21", r.Items[0].IVARate.String())

	assert.Equal(t, bakery.UnknownSKUID, r.Items[1].SKUID)
	assert.True(t, r.Items[1].UnitPrice.IsZero())
}

func TestDeleteRemito(t *testing.T) {
	c := testCatalog()
	sodaRemito(t, c, "1")

	require.NoError(t, fulfillment().DeleteRemito(c, "r-1"))
	assert.Empty(t, c.Remitos)
	assert.True(t, generic.IsNotFound(fulfillment().DeleteRemito(c, "r-1")))
}
