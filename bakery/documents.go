/*
documents.go - Supplier document lifecycle

STATE MACHINE:

  processing ──> pending_review ──> approved ──> in_payment_order
      │  ^            │   ^            │                │
      v  │            │   │            v                v
     error ───────────┴───┘        partially_paid ──> paid

  - processing:     uploaded, extraction running
  - pending_review: extraction finished, lines waiting for matching
  - error:          extraction failed; may be retried or reviewed by hand
  - approved:       confirmed through ConfirmInvoice; stock and prices applied
  - in_payment_order / partially_paid / paid: payment progress

  Only ConfirmInvoice moves a document to approved, since that is where the
  stock and price effects happen.

SEE ALSO:
  - purchase.go: ConfirmInvoice
  - service.go: IngestInvoice drives processing -> pending_review | error
*/
package bakery

import (
	"encoding/base64"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/generic"
)

// paymentTolerance absorbs rounding when deciding whether something is paid.
var paymentTolerance = decimal.NewFromFloat(0.01)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocProcessing:     {DocPendingReview, DocError},
	DocPendingReview:  {DocPendingReview, DocProcessing, DocApproved},
	DocError:          {DocProcessing, DocPendingReview, DocApproved},
	DocApproved:       {DocInPaymentOrder, DocPartiallyPaid, DocPaid},
	DocInPaymentOrder: {DocPartiallyPaid, DocPaid},
	DocPartiallyPaid:  {DocPartiallyPaid, DocPaid},
}

func checkTransition(from, to DocumentStatus) error {
	for _, allowed := range documentTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &generic.TransitionError{Entity: "document", From: string(from), To: string(to)}
}

// =============================================================================
// UPLOAD & EXTRACTION
// =============================================================================

type NewDocument struct {
	FileName string
	FileType string
	Content  []byte
}

// RegisterDocument stores an uploaded file in the processing state.
func (c *Catalog) RegisterDocument(supplierID string, in NewDocument, today generic.Date) (*SupplierDocument, error) {
	supplier, ok := c.Supplier(supplierID)
	if !ok {
		return nil, &generic.NotFoundError{Kind: "supplier", ID: supplierID}
	}
	doc := SupplierDocument{
		ID:              generic.NewID(),
		FileName:        in.FileName,
		FileType:        in.FileType,
		UploadDate:      today,
		DueDate:         today,
		Status:          DocProcessing,
		Content:         base64.StdEncoding.EncodeToString(in.Content),
		PaidAmount:      decimal.Zero,
		ExpenseCategory: DefaultExpenseCategory,
	}
	supplier.Documents = append(supplier.Documents, doc)
	return &supplier.Documents[len(supplier.Documents)-1], nil
}

// RecordExtraction attaches extracted lines and moves the document to
// pending_review. Lines whose product name the supplier has used before are
// pre-matched; when the match has a package size the extracted figures are
// taken as package figures.
func (c *Catalog) RecordExtraction(supplierID, documentID string, lines []ExtractedLine) (*SupplierDocument, error) {
	supplier, doc, err := c.document(supplierID, documentID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(doc.Status, DocPendingReview); err != nil {
		return nil, err
	}

	items := make([]AnalyzedItem, 0, len(lines))
	for _, line := range lines {
		item := AnalyzedItem{
			ID:          generic.NewID(),
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		}
		if m, ok := supplier.MappingHistory[line.ProductName]; ok && c.exists(AnalyzedItem{MatchType: m.MatchType, MatchedID: m.MatchedID}.Key()) {
			item.MatchType = m.MatchType
			item.MatchedID = m.MatchedID
			if pkg, ok := c.packageFor(item.Key()); ok && pkg.UnitsPerPackage.GreaterThan(decimal.NewFromInt(1)) {
				pq, pp := line.Quantity.BaseUnits(), line.UnitPrice
				item.PackageQuantity = &pq
				item.PackagePrice = &pp
				if item, err = c.resolveLine(item); err != nil {
					return nil, err
				}
			}
		}
		items = append(items, item)
	}
	doc.ExtractedItems = items
	doc.Status = DocPendingReview
	return doc, nil
}

// RecordExtractionFailure moves a processing document to error.
func (c *Catalog) RecordExtractionFailure(supplierID, documentID string) error {
	_, doc, err := c.document(supplierID, documentID)
	if err != nil {
		return err
	}
	if err := checkTransition(doc.Status, DocError); err != nil {
		return err
	}
	doc.Status = DocError
	return nil
}

// RetryExtraction puts a document back into processing and returns its
// decoded content.
func (c *Catalog) RetryExtraction(supplierID, documentID string) ([]byte, string, error) {
	_, doc, err := c.document(supplierID, documentID)
	if err != nil {
		return nil, "", err
	}
	if err := checkTransition(doc.Status, DocProcessing); err != nil {
		return nil, "", err
	}
	content, err := doc.File()
	if err != nil {
		return nil, "", err
	}
	doc.Status = DocProcessing
	return content, doc.FileType, nil
}

// File returns the stored upload.
func (d SupplierDocument) File() ([]byte, error) {
	content, err := base64.StdEncoding.DecodeString(d.Content)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return content, nil
}

// SaveReview stores partially matched lines without applying them.
func (c *Catalog) SaveReview(supplierID, documentID string, items []AnalyzedItem, expenseCategory string, dueDate generic.Date) (*SupplierDocument, error) {
	_, doc, err := c.document(supplierID, documentID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(doc.Status, DocPendingReview); err != nil {
		return nil, err
	}
	doc.ExtractedItems = append([]AnalyzedItem{}, items...)
	if expenseCategory != "" {
		doc.ExpenseCategory = expenseCategory
	}
	if !dueDate.IsZero() {
		doc.DueDate = dueDate
	}
	doc.Status = DocPendingReview
	return doc, nil
}

func (c *Catalog) DeleteDocument(supplierID, documentID string) error {
	supplier, ok := c.Supplier(supplierID)
	if !ok {
		return &generic.NotFoundError{Kind: "supplier", ID: supplierID}
	}
	for i := range supplier.Documents {
		if supplier.Documents[i].ID == documentID {
			supplier.Documents = append(supplier.Documents[:i], supplier.Documents[i+1:]...)
			return nil
		}
	}
	return &generic.NotFoundError{Kind: "document", ID: documentID}
}

func (c *Catalog) document(supplierID, documentID string) (*Supplier, *SupplierDocument, error) {
	supplier, ok := c.Supplier(supplierID)
	if !ok {
		return nil, nil, &generic.NotFoundError{Kind: "supplier", ID: supplierID}
	}
	doc, ok := supplier.Document(documentID)
	if !ok {
		return nil, nil, &generic.NotFoundError{Kind: "document", ID: documentID}
	}
	return supplier, doc, nil
}

// =============================================================================
// PAYMENT ORDERS
// =============================================================================

// ProcessPaymentOrder records a payment against approved documents. Every
// referenced document must exist and accept payment, or nothing is applied.
func (c *Catalog) ProcessPaymentOrder(order PaymentOrder, today generic.Date) (*PaymentOrder, error) {
	for _, line := range order.Documents {
		_, doc, err := c.document(line.SupplierID, line.DocumentID)
		if err != nil {
			return nil, err
		}
		if err := checkTransition(doc.Status, DocPaid); err != nil {
			return nil, err
		}
		if line.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: payment of %v for document %s", generic.ErrInvalidQuantity, line.Amount, doc.ID)
		}
	}

	order.ID = generic.NewID()
	order.Status = string(DocPaid)
	order.CreationDate = order.CreationDate.OrToday(today)
	order.PaymentDate = order.PaymentDate.OrToday(today)
	order.Documents = append([]PaymentOrderLine{}, order.Documents...)
	if order.TotalAmount.IsZero() {
		for _, line := range order.Documents {
			order.TotalAmount = order.TotalAmount.Add(line.Amount)
		}
	}

	for _, line := range order.Documents {
		_, doc, _ := c.document(line.SupplierID, line.DocumentID)
		doc.PaidAmount = doc.PaidAmount.Add(line.Amount)
		doc.PaymentOrderID = order.ID
		if doc.PaidAmount.GreaterThanOrEqual(doc.Total().Sub(paymentTolerance)) {
			doc.Status = DocPaid
		} else {
			doc.Status = DocPartiallyPaid
		}
	}
	c.PaymentOrders = append(c.PaymentOrders, order)
	return &c.PaymentOrders[len(c.PaymentOrders)-1], nil
}
