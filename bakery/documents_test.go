package bakery_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

func uploaded(t *testing.T, c *bakery.Catalog) *bakery.SupplierDocument {
	t.Helper()
	doc, err := c.RegisterDocument("sup-1", bakery.NewDocument{
		FileName: "factura-002.pdf", FileType: "application/pdf", Content: []byte("%PDF-1.4"),
	}, date(today))
	require.NoError(t, err)
	return doc
}

func TestRegisterDocument(t *testing.T) {
	c := testCatalog()

	doc := uploaded(t, c)

	assert.Equal(t, bakery.DocProcessing, doc.Status)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), doc.Content)
	assert.Equal(t, bakery.DefaultExpenseCategory, doc.ExpenseCategory)
	assert.Equal(t, today, doc.UploadDate.String())

	_, err := c.RegisterDocument("ghost", bakery.NewDocument{}, date(today))
	assert.True(t, generic.IsNotFound(err))
}

func TestRecordExtraction_PrematchesFromMappingHistory(t *testing.T) {
	// GIVEN: The supplier has sold "Leche x6" (milk, boxes of 6) and "Harina 000"
	// WHEN: An invoice lists 2 boxes of milk at 30 and 25kg flour at 1.25
	// THEN: Milk is converted to 12 liters at 5, flour is matched as-is,
	//       unknown products stay unmatched

	c := testCatalog()
	supplier, _ := c.Supplier("sup-1")
	supplier.MappingHistory["Leche x6"] = bakery.Mapping{MatchType: bakery.MatchIngredient, MatchedID: "milk"}
	supplier.MappingHistory["Harina 000"] = bakery.Mapping{MatchType: bakery.MatchIngredient, MatchedID: "flour"}
	doc := uploaded(t, c)

	doc, err := c.RecordExtraction("sup-1", doc.ID, []bakery.ExtractedLine{
		{ProductName: "Leche x6", Quantity: qty("2"), UnitPrice: dec("30")},
		{ProductName: "Harina 000", Quantity: qty("25"), UnitPrice: dec("1.25")},
		{ProductName: "Levadura", Quantity: qty("1"), UnitPrice: dec("4")},
	})
	require.NoError(t, err)

	assert.Equal(t, bakery.DocPendingReview, doc.Status)
	require.Len(t, doc.ExtractedItems, 3)

	milk := doc.ExtractedItems[0]
	assert.Equal(t, generic.EntityID("milk"), milk.MatchedID)
	assert.True(t, milk.Quantity.Equal(qty("12")))
	assert.Equal(t, "5", milk.UnitPrice.String())
	require.NotNil(t, milk.PackageQuantity)
	assert.Equal(t, "2", milk.PackageQuantity.String())
	assert.Equal(t, "30", milk.PackagePrice.String())

	flour := doc.ExtractedItems[1]
	assert.Equal(t, generic.EntityID("flour"), flour.MatchedID)
	assert.True(t, flour.Quantity.Equal(qty("25")))
	assert.Nil(t, flour.PackageQuantity)

	assert.False(t, doc.ExtractedItems[2].Matched())
}

func TestRecordExtraction_IgnoresMappingsToDeletedEntities(t *testing.T) {
	c := testCatalog()
	supplier, _ := c.Supplier("sup-1")
	supplier.MappingHistory["Crema"] = bakery.Mapping{MatchType: bakery.MatchIngredient, MatchedID: "cream"}
	doc := uploaded(t, c)

	doc, err := c.RecordExtraction("sup-1", doc.ID, []bakery.ExtractedLine{
		{ProductName: "Crema", Quantity: qty("1"), UnitPrice: dec("3")},
	})
	require.NoError(t, err)

	assert.False(t, doc.ExtractedItems[0].Matched())
}

func TestExtractionFailureAndRetry(t *testing.T) {
	c := testCatalog()
	doc := uploaded(t, c)

	require.NoError(t, c.RecordExtractionFailure("sup-1", doc.ID))
	stored, _ := c.Supplier("sup-1")
	failed, _ := stored.Document(doc.ID)
	assert.Equal(t, bakery.DocError, failed.Status)

	content, mime, err := c.RetryExtraction("sup-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)
	assert.Equal(t, "application/pdf", mime)
	assert.Equal(t, bakery.DocProcessing, failed.Status)
}

func TestRecordExtraction_RejectedOnceApproved(t *testing.T) {
	c := testCatalog()
	_, err := intake().ConfirmInvoice(c, invoice())
	require.NoError(t, err)

	_, err = c.RecordExtraction("sup-1", "doc-1", nil)

	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestSaveReview_KeepsDocumentPending(t *testing.T) {
	c := testCatalog()

	doc, err := c.SaveReview("sup-1", "doc-1", []bakery.AnalyzedItem{
		{ID: "l1", ProductName: "Harina", Quantity: qty("5"), UnitPrice: dec("1"), MatchType: bakery.MatchIngredient, MatchedID: "flour"},
	}, "Insumos", date("2024-08-01"))
	require.NoError(t, err)

	assert.Equal(t, bakery.DocPendingReview, doc.Status)
	assert.Equal(t, "Insumos", doc.ExpenseCategory)
	assert.Equal(t, "2024-08-01", doc.DueDate.String())
	assert.True(t, ingredient(c, "flour").QuantityInStock.Equal(qty("50")))
}

func TestDeleteDocument(t *testing.T) {
	c := testCatalog()

	require.NoError(t, c.DeleteDocument("sup-1", "doc-1"))
	assert.True(t, generic.IsNotFound(c.DeleteDocument("sup-1", "doc-1")))
}

func approvedDocument(t *testing.T, c *bakery.Catalog) {
	t.Helper()
	_, err := intake().ConfirmInvoice(c, invoice(
		bakery.AnalyzedItem{ID: "l1", ProductName: "Harina", Quantity: qty("50"), UnitPrice: dec("2"), MatchType: bakery.MatchIngredient, MatchedID: "flour"},
	))
	require.NoError(t, err)
}

func TestProcessPaymentOrder_PartialThenPaid(t *testing.T) {
	c := testCatalog()
	approvedDocument(t, c) // total 100

	order, err := c.ProcessPaymentOrder(bakery.PaymentOrder{
		PaymentMethod: "transfer",
		Documents:     []bakery.PaymentOrderLine{{SupplierID: "sup-1", DocumentID: "doc-1", Amount: dec("60")}},
	}, date(today))
	require.NoError(t, err)
	assert.Equal(t, "60", order.TotalAmount.String())
	assert.Equal(t, today, order.PaymentDate.String())

	supplier, _ := c.Supplier("sup-1")
	doc, _ := supplier.Document("doc-1")
	assert.Equal(t, bakery.DocPartiallyPaid, doc.Status)
	assert.Equal(t, order.ID, doc.PaymentOrderID)

	_, err = c.ProcessPaymentOrder(bakery.PaymentOrder{
		Documents: []bakery.PaymentOrderLine{{SupplierID: "sup-1", DocumentID: "doc-1", Amount: dec("39.995")}},
	}, date(today))
	require.NoError(t, err)
	assert.Equal(t, bakery.DocPaid, doc.Status)
	assert.Len(t, c.PaymentOrders, 2)
}

func TestProcessPaymentOrder_UnapprovedDocumentRejectsAll(t *testing.T) {
	c := testCatalog()
	approvedDocument(t, c)
	pending := uploaded(t, c)

	_, err := c.ProcessPaymentOrder(bakery.PaymentOrder{
		Documents: []bakery.PaymentOrderLine{
			{SupplierID: "sup-1", DocumentID: "doc-1", Amount: dec("100")},
			{SupplierID: "sup-1", DocumentID: pending.ID, Amount: dec("10")},
		},
	}, date(today))

	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	assert.Empty(t, c.PaymentOrders)
	supplier, _ := c.Supplier("sup-1")
	doc, _ := supplier.Document("doc-1")
	assert.Equal(t, bakery.DocApproved, doc.Status)
	assert.True(t, doc.PaidAmount.IsZero())
}
