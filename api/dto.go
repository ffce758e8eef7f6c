/*
dto.go - Request and response shapes of the HTTP API

PURPOSE:
  Most domain types already carry their JSON contract and are returned
  as-is. The types here either wrap a domain type with derived read-only
  fields (current cost, remito totals) or describe request bodies that have
  no domain counterpart.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done by the engine, not in DTOs. Handlers only reject
  bodies that cannot be decoded.

SEE ALSO:
  - handlers.go: Uses these types
  - bakery/types.go: Domain JSON contract
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
	"github.com/warp/bakery-engine/store/sqlite"
)

// =============================================================================
// CATALOG
// =============================================================================

type IngredientDTO struct {
	bakery.Ingredient
	CurrentCost decimal.Decimal `json:"currentCost"`
	LowStock    bool            `json:"lowStock"`
}

func toIngredientDTO(i bakery.Ingredient) IngredientDTO {
	return IngredientDTO{
		Ingredient:  i,
		CurrentCost: i.LatestCost(),
		LowStock:    i.MinStock != nil && i.QuantityInStock.LessThan(*i.MinStock),
	}
}

// SKUDTO adds the unit margin when both a cost and a sale price exist.
type SKUDTO struct {
	bakery.SKU
	Margin *decimal.Decimal `json:"margin,omitempty"`
}

func toSKUDTO(s bakery.SKU) SKUDTO {
	dto := SKUDTO{SKU: s}
	if s.CalculatedCost != nil && s.SalePrice.IsPositive() {
		m := s.SalePrice.Sub(*s.CalculatedCost)
		dto.Margin = &m
	}
	return dto
}

type AdjustStockRequest struct {
	Kind  generic.EntityKind `json:"kind"`
	ID    generic.EntityID   `json:"id"`
	Delta generic.Quantity   `json:"delta"`
}

// DeleteIngredientDTO lists recipes left pointing at the deleted ingredient.
type DeleteIngredientDTO struct {
	Orphaned []generic.EntityID `json:"orphaned"`
}

// =============================================================================
// SUPPLIERS & DOCUMENTS
// =============================================================================

// DocumentDTO omits the stored file; it is fetched separately.
type DocumentDTO struct {
	bakery.SupplierDocument
	Content string `json:"content,omitempty"`
}

type SupplierDTO struct {
	bakery.Supplier
	Documents []DocumentDTO `json:"documents"`
}

func toDocumentDTO(d bakery.SupplierDocument) DocumentDTO {
	return DocumentDTO{SupplierDocument: d}
}

func toSupplierDTO(s bakery.Supplier) SupplierDTO {
	docs := make([]DocumentDTO, len(s.Documents))
	for i, d := range s.Documents {
		docs[i] = toDocumentDTO(d)
	}
	return SupplierDTO{Supplier: s, Documents: docs}
}

// ReviewRequest is the reviewed line set of a document, used both to save
// progress and to confirm the invoice.
type ReviewRequest struct {
	Items           []bakery.AnalyzedItem `json:"items"`
	ExpenseCategory string                `json:"expenseCategory"`
	DueDate         generic.Date          `json:"dueDate"`
}

type PriceChangesRequest struct {
	Items []bakery.AnalyzedItem `json:"items"`
}

// =============================================================================
// PRODUCTION
// =============================================================================

type PlanRequest struct {
	Items []bakery.ProductionPlanItem `json:"items"`
}

type ConfirmBatchRequest struct {
	Date     generic.Date                `json:"date"`
	Produced []bakery.ProductionPlanItem `json:"produced"`
	Original []bakery.ProductionPlanItem `json:"original"`
}

type ProduceForStockRequest struct {
	Items []bakery.ProducedItem `json:"items"`
}

// DemandDTO is one ingredient of an aggregated plan demand.
type DemandDTO struct {
	IngredientID generic.EntityID `json:"ingredientId"`
	Quantity     generic.Quantity `json:"quantity"`
}

// =============================================================================
// REMITOS & PAYMENTS
// =============================================================================

type RemitoDTO struct {
	bakery.Remito
	Total       decimal.Decimal `json:"total"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func toRemitoDTO(r bakery.Remito) RemitoDTO {
	return RemitoDTO{Remito: r, Total: bakery.RemitoTotal(r), Outstanding: bakery.Outstanding(r)}
}

func toRemitoDTOs(rs []bakery.Remito) []RemitoDTO {
	out := make([]RemitoDTO, len(rs))
	for i, r := range rs {
		out[i] = toRemitoDTO(r)
	}
	return out
}

type WholesaleOrdersRequest struct {
	FileContent string       `json:"fileContent"`
	StoreName   string       `json:"storeName"`
	WeekStart   generic.Date `json:"weekStart"`
}

type ShopBalanceDTO struct {
	StoreName string          `json:"storeName"`
	Balance   decimal.Decimal `json:"balance"`
	Remitos   []RemitoDTO     `json:"remitos"`
}

// =============================================================================
// ADMIN
// =============================================================================

type DiagnosticsDTO struct {
	Findings []bakery.Finding  `json:"findings"`
	Report   bakery.CostReport `json:"costReport"`
}

type StorageDTO struct {
	Collections  []sqlite.CollectionInfo `json:"collections"`
	PendingWrite bool                    `json:"pendingWrite"`
}

type HealthDTO struct {
	Status     string `json:"status"`
	Extraction string `json:"extraction"`
}

// ScenarioDTO describes a loadable demo catalog.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ShortageDTO struct {
	Kind      generic.EntityKind `json:"kind"`
	ID        generic.EntityID   `json:"id"`
	Name      string             `json:"name"`
	Required  generic.Quantity   `json:"required"`
	Available generic.Quantity   `json:"available"`
	Shortfall generic.Quantity   `json:"shortfall"`
	Missing   bool               `json:"missing,omitempty"`
}

func toShortageDTOs(shortages []generic.Shortage) []ShortageDTO {
	out := make([]ShortageDTO, len(shortages))
	for i, s := range shortages {
		out[i] = ShortageDTO{
			Kind: s.Key.Kind, ID: s.Key.ID, Name: s.Name,
			Required: s.Required, Available: s.Available, Shortfall: s.Shortfall,
			Missing: s.Missing,
		}
	}
	return out
}
