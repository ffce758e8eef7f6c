/*
service.go - Single commit path for every catalog mutation

PURPOSE:
  Service owns the live Catalog. Every mutation runs the same way:

    1. Clone the live catalog (copy-on-write)
    2. Run the operation against the clone
    3. On error: drop the clone, nothing changed
    4. Reprice the clone (CostEngine.RecomputeAll)
    5. Swap the clone in and notify observers (persistence, metrics)

  Commits are serialized by a mutex, so each operation is a standalone
  transaction applied in full or not at all.

COMMITTED CATALOGS ARE IMMUTABLE:
  Once swapped in, a catalog is never written again; the next commit works
  on a fresh clone. Observers may therefore keep the pointer and encode it
  later from another goroutine.

EXTRACTION:
  Calls to the Extractor happen outside the lock. The document is
  registered in one commit, extracted, and the outcome applied in a second
  commit.

SEE ALSO:
  - catalog.go: The aggregate
  - generic/store/writer.go: Debounced persistence observer
  - metrics/metrics.go: Prometheus observer
*/
package bakery

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/generic"
)

// ErrExtractionUnavailable is returned when no Extractor is configured.
var ErrExtractionUnavailable = errors.New("extraction service not configured")

// Extractor reads structured data out of uploaded documents. Results are
// untrusted proposals that still need human matching.
type Extractor interface {
	ExtractInvoice(ctx context.Context, content []byte, mimeType string) ([]ExtractedLine, error)
	ExtractWholesaleOrders(ctx context.Context, fileContent string, skuNames []string, storeName string, weekStart generic.Date) ([]WholesaleOrder, error)
}

// Observer is notified after every commit attempt.
type Observer interface {
	Committed(op string, c *Catalog, report CostReport)
	Rejected(op string, err error)
}

type Options struct {
	Logger    zerolog.Logger
	Extractor Extractor
	Observers []Observer
	Today     func() generic.Date
}

type Service struct {
	mu      sync.Mutex
	catalog *Catalog
	report  CostReport

	stock       *generic.StockLedger
	purchases   PurchaseIntake
	production  ProductionBatchProcessor
	fulfillment FulfillmentLedger

	extractor Extractor
	observers []Observer
	log       zerolog.Logger
	today     func() generic.Date
}

// NewService takes ownership of c and reprices it.
func NewService(c *Catalog, opts Options) *Service {
	stock := generic.NewStockLedger(opts.Today)
	today := stock.Today
	s := &Service{
		stock:       stock,
		purchases:   PurchaseIntake{Stock: stock},
		production:  ProductionBatchProcessor{Stock: stock},
		fulfillment: FulfillmentLedger{Stock: stock},
		extractor:   opts.Extractor,
		observers:   opts.Observers,
		log:         opts.Logger,
		today:       today,
	}
	if c == nil {
		c = NewCatalog()
	}
	s.catalog, s.report = OnCatalogChanged(c)
	s.logReport("load", s.report)
	return s
}

// AddObserver registers o for future commits.
func (s *Service) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Snapshot returns a deep copy of the live catalog.
func (s *Service) Snapshot() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Clone()
}

// CostReport returns the report of the last recompute.
func (s *Service) CostReport() CostReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Replace swaps in a whole catalog, e.g. after a backup import or a change
// written by another session. Last writer wins.
func (s *Service) Replace(c *Catalog) {
	next, report := OnCatalogChanged(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog, s.report = next, report
	s.logReport("replace", report)
	for _, o := range s.observers {
		o.Committed("replace", next, report)
	}
}

func (s *Service) commit(op string, fn func(c *Catalog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.catalog.Clone()
	if err := fn(draft); err != nil {
		s.log.Warn().Str("op", op).Err(err).Bool("client_error", generic.IsClientError(err)).Msg("mutation rejected")
		for _, o := range s.observers {
			o.Rejected(op, err)
		}
		return err
	}

	report := CostEngine{}.RecomputeAll(draft)
	s.catalog, s.report = draft, report
	s.log.Debug().Str("op", op).Int("skus", len(draft.SKUs)).Int("movements", len(draft.StockMovements)).Msg("committed")
	s.logReport(op, report)
	for _, o := range s.observers {
		o.Committed(op, draft, report)
	}
	return nil
}

// view runs fn against the live catalog. fn must not modify it.
func (s *Service) view(fn func(c *Catalog)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.catalog)
}

func (s *Service) logReport(op string, r CostReport) {
	for _, f := range r.Faults {
		s.log.Warn().Str("op", op).Str("sku", string(f.SKUID)).Str("cause", f.Cause).Msg("sku kept its previous cost")
	}
	if len(r.Warnings) > 0 {
		s.log.Warn().Str("op", op).Int("count", len(r.Warnings)).Msg("recipes reference missing ingredients")
	}
}

// =============================================================================
// CATALOG MAINTENANCE
// =============================================================================

func (s *Service) AddIngredient(in Ingredient) (Ingredient, error) {
	var out *Ingredient
	err := s.commit("add_ingredient", func(c *Catalog) (err error) {
		out, err = c.AddIngredient(in)
		return err
	})
	if err != nil {
		return Ingredient{}, err
	}
	return out.clone(), nil
}

func (s *Service) UpdateIngredient(in IngredientUpdate) (Ingredient, error) {
	var out *Ingredient
	err := s.commit("update_ingredient", func(c *Catalog) (err error) {
		out, _, err = c.UpdateIngredient(s.stock, in)
		return err
	})
	if err != nil {
		return Ingredient{}, err
	}
	return out.clone(), nil
}

// DeleteIngredient returns the SKUs left referencing the deleted ingredient.
func (s *Service) DeleteIngredient(id generic.EntityID) ([]generic.EntityID, error) {
	var orphaned []generic.EntityID
	err := s.commit("delete_ingredient", func(c *Catalog) (err error) {
		orphaned, err = c.DeleteIngredient(id)
		return err
	})
	return orphaned, err
}

func (s *Service) AddSKU(in SKU) (SKU, error) {
	var out *SKU
	err := s.commit("add_sku", func(c *Catalog) (err error) {
		out, err = c.AddSKU(in)
		return err
	})
	if err != nil {
		return SKU{}, err
	}
	return out.clone(), nil
}

func (s *Service) UpdateSKU(in SKU) (SKU, error) {
	var out *SKU
	err := s.commit("update_sku", func(c *Catalog) (err error) {
		out, err = c.UpdateSKU(in)
		return err
	})
	if err != nil {
		return SKU{}, err
	}
	return out.clone(), nil
}

// AdjustStock applies a manual correction to any stock-holding entity.
func (s *Service) AdjustStock(key generic.StockKey, delta generic.Quantity) ([]generic.Movement, error) {
	var movements []generic.Movement
	err := s.commit("adjust_stock", func(c *Catalog) (err error) {
		movements, err = s.stock.Adjust(c, key, delta, generic.MovementManualAdjustment, "manual")
		c.recordMovements(movements)
		return err
	})
	return movements, err
}

func (s *Service) AddSupplier(in Supplier) (Supplier, error) {
	var out *Supplier
	err := s.commit("add_supplier", func(c *Catalog) (err error) {
		out, err = c.AddSupplier(in)
		return err
	})
	if err != nil {
		return Supplier{}, err
	}
	return out.clone(), nil
}

func (s *Service) UpdateSupplier(in Supplier) (Supplier, error) {
	var out *Supplier
	err := s.commit("update_supplier", func(c *Catalog) (err error) {
		out, err = c.UpdateSupplier(in)
		return err
	})
	if err != nil {
		return Supplier{}, err
	}
	return out.clone(), nil
}

func (s *Service) DeleteSupplier(id string) error {
	return s.commit("delete_supplier", func(c *Catalog) error { return c.DeleteSupplier(id) })
}

func (s *Service) AddShop(in Shop) (Shop, error) {
	var out *Shop
	err := s.commit("add_shop", func(c *Catalog) (err error) {
		out, err = c.AddShop(in)
		return err
	})
	if err != nil {
		return Shop{}, err
	}
	return *out, nil
}

// =============================================================================
// PURCHASES & DOCUMENTS
// =============================================================================

func (s *Service) ConfirmInvoice(in ConfirmInvoiceInput) (*InvoiceResult, error) {
	var result *InvoiceResult
	err := s.commit("confirm_invoice", func(c *Catalog) (err error) {
		result, err = s.purchases.ConfirmInvoice(c, in)
		return err
	})
	return result, err
}

func (s *Service) AddManualPurchase(m ManualPurchase) ([]generic.Movement, error) {
	var movements []generic.Movement
	err := s.commit("manual_purchase", func(c *Catalog) (err error) {
		movements, err = s.purchases.AddManualPurchase(c, m)
		return err
	})
	return movements, err
}

func (s *Service) AddPackagePurchase(p PackagePurchase) ([]generic.Movement, error) {
	var movements []generic.Movement
	err := s.commit("package_purchase", func(c *Catalog) (err error) {
		movements, err = s.purchases.AddPackagePurchase(c, p)
		return err
	})
	return movements, err
}

func (s *Service) DetectPriceChanges(items []AnalyzedItem) []PriceChange {
	var changes []PriceChange
	s.view(func(c *Catalog) { changes = DetectPriceChanges(c, items) })
	return changes
}

func (s *Service) SaveReview(supplierID, documentID string, items []AnalyzedItem, expenseCategory string, dueDate generic.Date) (SupplierDocument, error) {
	var doc *SupplierDocument
	err := s.commit("save_review", func(c *Catalog) (err error) {
		doc, err = c.SaveReview(supplierID, documentID, items, expenseCategory, dueDate)
		return err
	})
	if err != nil {
		return SupplierDocument{}, err
	}
	return doc.clone(), nil
}

func (s *Service) DeleteDocument(supplierID, documentID string) error {
	return s.commit("delete_document", func(c *Catalog) error { return c.DeleteDocument(supplierID, documentID) })
}

func (s *Service) ProcessPaymentOrder(order PaymentOrder) (PaymentOrder, error) {
	var out *PaymentOrder
	err := s.commit("payment_order", func(c *Catalog) (err error) {
		out, err = c.ProcessPaymentOrder(order, s.today())
		return err
	})
	if err != nil {
		return PaymentOrder{}, err
	}
	return out.clone(), nil
}

// IngestInvoice registers an uploaded invoice and runs extraction on it.
// Extraction failures leave the document in the error state; they are
// reported through the returned document, not as an error.
func (s *Service) IngestInvoice(ctx context.Context, supplierID string, in NewDocument) (SupplierDocument, error) {
	var docID string
	err := s.commit("register_document", func(c *Catalog) error {
		doc, err := c.RegisterDocument(supplierID, in, s.today())
		if err == nil {
			docID = doc.ID
		}
		return err
	})
	if err != nil {
		return SupplierDocument{}, err
	}
	return s.extractInto(ctx, supplierID, docID, in.Content, in.FileType)
}

// RetryExtraction re-runs extraction on a stored document.
func (s *Service) RetryExtraction(ctx context.Context, supplierID, documentID string) (SupplierDocument, error) {
	var (
		content  []byte
		mimeType string
	)
	err := s.commit("retry_extraction", func(c *Catalog) (err error) {
		content, mimeType, err = c.RetryExtraction(supplierID, documentID)
		return err
	})
	if err != nil {
		return SupplierDocument{}, err
	}
	return s.extractInto(ctx, supplierID, documentID, content, mimeType)
}

func (s *Service) extractInto(ctx context.Context, supplierID, documentID string, content []byte, mimeType string) (SupplierDocument, error) {
	lines, extractErr := s.extract(ctx, content, mimeType)

	var doc SupplierDocument
	err := s.commit("record_extraction", func(c *Catalog) error {
		if extractErr != nil {
			if err := c.RecordExtractionFailure(supplierID, documentID); err != nil {
				return err
			}
			_, d, err := c.document(supplierID, documentID)
			if err == nil {
				doc = d.clone()
			}
			return err
		}
		d, err := c.RecordExtraction(supplierID, documentID, lines)
		if err == nil {
			doc = d.clone()
		}
		return err
	})
	if extractErr != nil {
		s.log.Warn().Str("supplier", supplierID).Str("document", documentID).Err(extractErr).Msg("invoice extraction failed")
	}
	return doc, err
}

func (s *Service) extract(ctx context.Context, content []byte, mimeType string) ([]ExtractedLine, error) {
	if s.extractor == nil {
		return nil, ErrExtractionUnavailable
	}
	return s.extractor.ExtractInvoice(ctx, content, mimeType)
}

// IngestWholesaleOrders extracts a week of shop orders and stores them as
// remitos in one commit.
func (s *Service) IngestWholesaleOrders(ctx context.Context, fileContent, storeName string, weekStart generic.Date) ([]Remito, error) {
	if s.extractor == nil {
		return nil, ErrExtractionUnavailable
	}
	var names []string
	s.view(func(c *Catalog) {
		for _, sku := range c.SKUs {
			names = append(names, sku.Name)
		}
	})

	orders, err := s.extractor.ExtractWholesaleOrders(ctx, fileContent, names, storeName, weekStart)
	if err != nil {
		return nil, err
	}

	var added []Remito
	err = s.commit("ingest_orders", func(c *Catalog) (err error) {
		added, err = s.fulfillment.AddRemitos(c, RemitosFromOrders(c, orders))
		return err
	})
	return added, err
}

// =============================================================================
// PRODUCTION
// =============================================================================

func (s *Service) PlanDemand(items []ProductionPlanItem) map[generic.EntityID]generic.Quantity {
	var demand map[generic.EntityID]generic.Quantity
	s.view(func(c *Catalog) { demand = PlanDemand(c, items) })
	return demand
}

func (s *Service) ShoppingList(items []ProductionPlanItem) []ShoppingListItem {
	var list []ShoppingListItem
	s.view(func(c *Catalog) { list = ShoppingList(c, items) })
	return list
}

func (s *Service) PlanFromRemitos(from, to generic.Date) []DailyPlan {
	var plans []DailyPlan
	s.view(func(c *Catalog) { plans = PlanFromRemitos(c, from, to) })
	return plans
}

func (s *Service) TouchPlan(date generic.Date) (ProductionLog, error) {
	var out *ProductionLog
	err := s.commit("touch_plan", func(c *Catalog) (err error) {
		out, err = c.TouchPlan(date)
		return err
	})
	if err != nil {
		return ProductionLog{}, err
	}
	return out.clone(), nil
}

func (s *Service) ConfirmBatch(date generic.Date, produced, original []ProductionPlanItem) (*BatchResult, error) {
	var result *BatchResult
	err := s.commit("confirm_batch", func(c *Catalog) (err error) {
		result, err = s.production.ConfirmBatch(c, date, produced, original)
		return err
	})
	return result, err
}

func (s *Service) ProduceForStock(items []ProducedItem) (*BatchResult, error) {
	var result *BatchResult
	err := s.commit("produce_for_stock", func(c *Catalog) (err error) {
		result, err = s.production.ProduceForStock(c, items)
		return err
	})
	return result, err
}

// =============================================================================
// REMITOS & COLLECTIONS
// =============================================================================

func (s *Service) AddRemitos(remitos []Remito) ([]Remito, error) {
	var added []Remito
	err := s.commit("add_remitos", func(c *Catalog) (err error) {
		added, err = s.fulfillment.AddRemitos(c, remitos)
		return err
	})
	return added, err
}

func (s *Service) UpdateRemito(r Remito) (Remito, error) {
	var out *Remito
	err := s.commit("update_remito", func(c *Catalog) (err error) {
		out, _, err = s.fulfillment.UpdateRemito(c, r)
		return err
	})
	if err != nil {
		return Remito{}, err
	}
	return out.clone(), nil
}

func (s *Service) DeleteRemito(id string) error {
	return s.commit("delete_remito", func(c *Catalog) error { return s.fulfillment.DeleteRemito(c, id) })
}

func (s *Service) AddPayment(p Payment) (Payment, error) {
	var out *Payment
	err := s.commit("add_payment", func(c *Catalog) (err error) {
		out, err = s.fulfillment.AddPayment(c, p, s.today())
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	return out.clone(), nil
}

func (s *Service) ShopBalance(storeName string) decimal.Decimal {
	var balance decimal.Decimal
	s.view(func(c *Catalog) { balance = ShopBalance(c, storeName) })
	return balance
}

func (s *Service) Diagnose() []Finding {
	var findings []Finding
	s.view(func(c *Catalog) { findings = Diagnose(c) })
	return findings
}
