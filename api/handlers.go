/*
handlers.go - HTTP API handlers for the bakery engine

PURPOSE:
  Exposes bakery.Service over REST. Handlers decode the request, call one
  Service operation and encode the result. They hold no state of their own:
  the Service owns the catalog and every mutation goes through its commit
  path.

ENDPOINTS:
  Catalog:
    GET    /api/ingredients                 List ingredients with current cost
    POST   /api/ingredients                 Create ingredient
    PUT    /api/ingredients/{id}            Update ingredient (stock via ledger)
    DELETE /api/ingredients/{id}            Delete, returns orphaned recipes
    GET    /api/skus                        List SKUs with margin
    POST   /api/skus                        Create SKU
    PUT    /api/skus/{id}                   Update SKU
    POST   /api/stock/adjustments           Manual stock correction
    GET    /api/stock/movements             Movement journal (?kind=&id=)

  Suppliers & purchases:
    GET/POST      /api/suppliers
    PUT/DELETE    /api/suppliers/{id}
    POST   /api/suppliers/{id}/documents              Upload invoice, extract
    GET    /api/suppliers/{id}/documents/{docId}/file Download stored upload
    POST   /api/suppliers/{id}/documents/{docId}/retry
    PUT    /api/suppliers/{id}/documents/{docId}/review
    POST   /api/suppliers/{id}/documents/{docId}/confirm
    DELETE /api/suppliers/{id}/documents/{docId}
    POST   /api/purchases/manual | /package | /price-changes
    GET/POST /api/payment-orders
    GET    /api/expenses

  Production:
    POST   /api/production/demand | /shopping-list
    GET    /api/production/plans?from=&to=
    GET    /api/production/log
    POST   /api/production/log/{date}/touch
    POST   /api/production/confirm
    POST   /api/production/stock

  Shops & collections:
    GET/POST   /api/shops
    GET        /api/shops/{name}/balance
    GET/POST   /api/remitos        (?store=)
    POST       /api/remitos/import Wholesale order extraction
    PUT/DELETE /api/remitos/{id}
    GET/POST   /api/payments

  Admin:
    GET  /api/diagnostics
    GET  /api/backup      Download backup file
    POST /api/backup      Import backup, replaces the catalog
    GET  /api/storage     Stored collections
    POST /api/storage/reset

ERROR HANDLING:
  Engine errors map to statuses in writeEngineError:
  - 400: Body could not be decoded
  - 404: Entity not found
  - 409: Insufficient stock (with shortages), invalid status transition
  - 422: Any other validation error
  - 503: Extraction not configured
  - 500: Everything else

SECURITY NOTE:
  No authentication. The server is meant for a single bakery on a trusted
  network.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo catalogs
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/warp/bakery-engine/backup"
	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
	"github.com/warp/bakery-engine/store/sqlite"
)

const (
	maxBodyBytes   = 8 << 20
	maxUploadBytes = 20 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// StorageAdmin is the administrative view of the durable store.
type StorageAdmin interface {
	Info(ctx context.Context) ([]sqlite.CollectionInfo, error)
	Reset(ctx context.Context) error
}

// ExtractionStatus reports the health of the extraction client.
type ExtractionStatus interface {
	State() string
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *bakery.Service

	// Optional. Admin endpoints answer 503 without them.
	Storage    StorageAdmin
	Scheduler  *PersistenceScheduler
	Extraction ExtractionStatus

	log zerolog.Logger
	now func() time.Time
}

func NewHandler(svc *bakery.Service, log zerolog.Logger) *Handler {
	return &Handler{Service: svc, log: log, now: time.Now}
}

func (h *Handler) today() generic.Date { return generic.DateOf(h.now()) }

// Health reports liveness and the extraction breaker state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dto := HealthDTO{Status: "ok", Extraction: "disabled"}
	if h.Extraction != nil {
		dto.Extraction = h.Extraction.State()
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// CATALOG
// =============================================================================

func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	c := h.Service.Snapshot()
	dtos := make([]IngredientDTO, len(c.Ingredients))
	for i, ing := range c.Ingredients {
		dtos[i] = toIngredientDTO(ing)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	var in bakery.Ingredient
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.Service.AddIngredient(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIngredientDTO(out))
}

// UpdateIngredient edits metadata. quantityInStock is optional; when absent
// stock is left alone.
func (h *Handler) UpdateIngredient(w http.ResponseWriter, r *http.Request) {
	var in bakery.IngredientUpdate
	if !decodeBody(w, r, &in) {
		return
	}
	in.ID = generic.EntityID(chi.URLParam(r, "id"))
	out, err := h.Service.UpdateIngredient(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientDTO(out))
}

func (h *Handler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	orphaned, err := h.Service.DeleteIngredient(generic.EntityID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if orphaned == nil {
		orphaned = []generic.EntityID{}
	}
	writeJSON(w, http.StatusOK, DeleteIngredientDTO{Orphaned: orphaned})
}

func (h *Handler) ListSKUs(w http.ResponseWriter, r *http.Request) {
	c := h.Service.Snapshot()
	dtos := make([]SKUDTO, len(c.SKUs))
	for i, s := range c.SKUs {
		dtos[i] = toSKUDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSKU(w http.ResponseWriter, r *http.Request) {
	var in bakery.SKU
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.Service.AddSKU(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSKUDTO(out))
}

func (h *Handler) UpdateSKU(w http.ResponseWriter, r *http.Request) {
	var in bakery.SKU
	if !decodeBody(w, r, &in) {
		return
	}
	in.ID = generic.EntityID(chi.URLParam(r, "id"))
	out, err := h.Service.UpdateSKU(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSKUDTO(out))
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	movements, err := h.Service.AdjustStock(generic.StockKey{Kind: req.Kind, ID: req.ID}, req.Delta)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(movements))
}

// ListMovements filters the journal by entity when kind and id are given.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	kind := generic.EntityKind(r.URL.Query().Get("kind"))
	id := generic.EntityID(r.URL.Query().Get("id"))

	c := h.Service.Snapshot()
	out := make([]generic.Movement, 0, len(c.StockMovements))
	for _, m := range c.StockMovements {
		if kind != "" && m.Key.Kind != kind {
			continue
		}
		if id != "" && m.Key.ID != id {
			continue
		}
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// SUPPLIERS, SHOPS & EXPENSES
// =============================================================================

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	c := h.Service.Snapshot()
	dtos := make([]SupplierDTO, len(c.Suppliers))
	for i, s := range c.Suppliers {
		dtos[i] = toSupplierDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var in bakery.Supplier
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.Service.AddSupplier(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSupplierDTO(out))
}

func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var in bakery.Supplier
	if !decodeBody(w, r, &in) {
		return
	}
	in.ID = chi.URLParam(r, "id")
	out, err := h.Service.UpdateSupplier(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTO(out))
}

func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteSupplier(chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Service.Snapshot().Shops))
}

func (h *Handler) CreateShop(w http.ResponseWriter, r *http.Request) {
	var in bakery.Shop
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.Service.AddShop(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) ShopBalance(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shop name", err)
		return
	}
	c := h.Service.Snapshot()
	writeJSON(w, http.StatusOK, ShopBalanceDTO{
		StoreName: name,
		Balance:   bakery.ShopBalance(c, name),
		Remitos:   toRemitoDTOs(bakery.RemitosForStore(c, name)),
	})
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Service.Snapshot().Expenses))
}

// =============================================================================
// DOCUMENTS & PURCHASES
// =============================================================================

// UploadDocument takes a multipart "file" field and runs extraction on it.
// A failed extraction still answers 201: the document exists, in error state.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file upload", err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}
	fileType := header.Header.Get("Content-Type")
	if fileType == "" || fileType == "application/octet-stream" {
		fileType = http.DetectContentType(content)
	}

	doc, err := h.Service.IngestInvoice(r.Context(), chi.URLParam(r, "id"), bakery.NewDocument{
		FileName: header.Filename,
		FileType: fileType,
		Content:  content,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(doc))
}

func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	c := h.Service.Snapshot()
	supplier, ok := c.Supplier(chi.URLParam(r, "id"))
	if !ok {
		h.writeEngineError(w, r, &generic.NotFoundError{Kind: "supplier", ID: chi.URLParam(r, "id")})
		return
	}
	doc, ok := supplier.Document(chi.URLParam(r, "docId"))
	if !ok {
		h.writeEngineError(w, r, &generic.NotFoundError{Kind: "document", ID: chi.URLParam(r, "docId")})
		return
	}
	content, err := doc.File()
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", doc.FileType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func (h *Handler) RetryExtraction(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.RetryExtraction(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "docId"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (h *Handler) SaveReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := h.Service.SaveReview(chi.URLParam(r, "id"), chi.URLParam(r, "docId"), req.Items, req.ExpenseCategory, req.DueDate)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (h *Handler) ConfirmInvoice(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.Service.ConfirmInvoice(bakery.ConfirmInvoiceInput{
		SupplierID:      chi.URLParam(r, "id"),
		DocumentID:      chi.URLParam(r, "docId"),
		Items:           req.Items,
		ExpenseCategory: req.ExpenseCategory,
		DueDate:         req.DueDate,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDocument(chi.URLParam(r, "id"), chi.URLParam(r, "docId")); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ManualPurchase(w http.ResponseWriter, r *http.Request) {
	var in bakery.ManualPurchase
	if !decodeBody(w, r, &in) {
		return
	}
	movements, err := h.Service.AddManualPurchase(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, nonNil(movements))
}

func (h *Handler) PackagePurchase(w http.ResponseWriter, r *http.Request) {
	var in bakery.PackagePurchase
	if !decodeBody(w, r, &in) {
		return
	}
	movements, err := h.Service.AddPackagePurchase(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, nonNil(movements))
}

func (h *Handler) PriceChanges(w http.ResponseWriter, r *http.Request) {
	var req PriceChangesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.Service.DetectPriceChanges(req.Items)))
}

func (h *Handler) ListPaymentOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Service.Snapshot().PaymentOrders))
}

func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var in bakery.PaymentOrder
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.Service.ProcessPaymentOrder(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// =============================================================================
// PRODUCTION
// =============================================================================

func (h *Handler) PlanDemand(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	demand := h.Service.PlanDemand(req.Items)

	// Report in ingredient catalog order for a stable response.
	c := h.Service.Snapshot()
	out := make([]DemandDTO, 0, len(demand))
	for _, ing := range c.Ingredients {
		if q, ok := demand[ing.ID]; ok {
			out = append(out, DemandDTO{IngredientID: ing.ID, Quantity: q})
			delete(demand, ing.ID)
		}
	}
	for id, q := range demand {
		out = append(out, DemandDTO{IngredientID: id, Quantity: q})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ShoppingList(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.Service.ShoppingList(req.Items)))
}

// PlansFromRemitos defaults to the current week when no range is given.
func (h *Handler) PlansFromRemitos(w http.ResponseWriter, r *http.Request) {
	from, ok := queryDate(w, r, "from", h.today())
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to", from.AddDays(6))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.Service.PlanFromRemitos(from, to)))
}

func (h *Handler) ProductionLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Service.Snapshot().ProductionLog))
}

func (h *Handler) TouchPlan(w http.ResponseWriter, r *http.Request) {
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	entry, err := h.Service.TouchPlan(date)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) ConfirmBatch(w http.ResponseWriter, r *http.Request) {
	var req ConfirmBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.Service.ConfirmBatch(req.Date, req.Produced, req.Original)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ProduceForStock(w http.ResponseWriter, r *http.Request) {
	var req ProduceForStockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.Service.ProduceForStock(req.Items)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// REMITOS & PAYMENTS
// =============================================================================

func (h *Handler) ListRemitos(w http.ResponseWriter, r *http.Request) {
	c := h.Service.Snapshot()
	remitos := c.Remitos
	if store := r.URL.Query().Get("store"); store != "" {
		remitos = bakery.RemitosForStore(c, store)
	}
	writeJSON(w, http.StatusOK, toRemitoDTOs(remitos))
}

// CreateRemitos accepts an array so a week of orders lands in one commit.
func (h *Handler) CreateRemitos(w http.ResponseWriter, r *http.Request) {
	var in []bakery.Remito
	if !decodeBody(w, r, &in) {
		return
	}
	added, err := h.Service.AddRemitos(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRemitoDTOs(added))
}

func (h *Handler) ImportWholesaleOrders(w http.ResponseWriter, r *http.Request) {
	var req WholesaleOrdersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	added, err := h.Service.IngestWholesaleOrders(r.Context(), req.FileContent, req.StoreName, req.WeekStart)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRemitoDTOs(added))
}

func (h *Handler) UpdateRemito(w http.ResponseWriter, r *http.Request) {
	var in bakery.Remito
	if !decodeBody(w, r, &in) {
		return
	}
	in.ID = chi.URLParam(r, "id")
	out, err := h.Service.UpdateRemito(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRemitoDTO(out))
}

func (h *Handler) DeleteRemito(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteRemito(chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Service.Snapshot().Payments))
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var in bakery.Payment
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.Service.AddPayment(in)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// =============================================================================
// ADMIN
// =============================================================================

func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DiagnosticsDTO{
		Findings: h.Service.Diagnose(),
		Report:   h.Service.CostReport(),
	})
}

func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	data, err := backup.Export(h.Service.Snapshot(), now)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.FileName(now)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportBackup replaces the whole catalog. A rejected file changes nothing.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read backup", err)
		return
	}
	c, header, err := backup.Import(data, h.today())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.Service.Replace(c)
	h.log.Info().Str("version", header.Version).Int("keys", len(header.Keys)).Msg("backup imported")
	writeJSON(w, http.StatusOK, header)
}

func (h *Handler) StorageInfo(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, "Storage not configured", nil)
		return
	}
	info, err := h.Storage.Info(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	dto := StorageDTO{Collections: nonNil(info)}
	if h.Scheduler != nil {
		dto.PendingWrite = h.Scheduler.Pending()
	}
	writeJSON(w, http.StatusOK, dto)
}

// ResetStorage wipes the store and starts from an empty catalog.
func (h *Handler) ResetStorage(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, "Storage not configured", nil)
		return
	}
	if err := h.Storage.Reset(r.Context()); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.Service.Replace(bakery.NewCatalog())
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps an engine error onto a status code.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var shortage *generic.InsufficientStockError
	switch {
	case errors.As(err, &shortage):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   err.Error(),
			Code:    "insufficient_stock",
			Details: toShortageDTOs(shortage.Shortages),
		})
	case generic.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, generic.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "invalid_transition"})
	case errors.Is(err, bakery.ErrExtractionUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "extraction_unavailable"})
	case generic.IsClientError(err):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "validation"})
	default:
		h.log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// decodeBody writes a 400 and returns false when the body is not valid JSON
// for v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func queryDate(w http.ResponseWriter, r *http.Request, name string, fallback generic.Date) (generic.Date, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, true
	}
	d, err := generic.ParseDate(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name+" date", err)
		return generic.Date{}, false
	}
	return d, true
}

// nonNil keeps empty lists encoding as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
