/*
types.go - Bakery domain entities

PURPOSE:
  Catalog entities for the cost-and-inventory engine: ingredients, SKUs,
  suppliers and their documents, remitos and collections, production logs.
  JSON tags follow the storage keys the catalog has always been persisted
  with, so old snapshots and backups decode unchanged.

OWNERSHIP:
  - QuantityInStock: written only through generic.StockLedger
  - PriceHistory:    written only through generic.PriceHistory.Append
  - CalculatedCost:  written only by the CostEngine

SEE ALSO:
  - catalog.go: The aggregate holding these collections
  - cost.go: Reads CostBasis to price each SKU
*/
package bakery

import (
	"github.com/shopspring/decimal"

	"github.com/warp/bakery-engine/generic"
)

// =============================================================================
// INGREDIENT
// =============================================================================

type Ingredient struct {
	ID              generic.EntityID     `json:"id"`
	Name            string               `json:"name"`
	Unit            string               `json:"unit"`
	PurchaseUnit    string               `json:"purchaseUnit,omitempty"`
	UnitsPerPackage *decimal.Decimal     `json:"unitsPerPackage,omitempty"`
	MinStock        *generic.Quantity    `json:"minStock,omitempty"`
	MaxStock        *generic.Quantity    `json:"maxStock,omitempty"`
	QuantityInStock generic.Quantity     `json:"quantityInStock"`
	PriceHistory    generic.PriceHistory `json:"priceHistory"`
}

func (i Ingredient) Key() generic.StockKey { return generic.IngredientKey(i.ID) }

// LatestCost is the cost of the most recent price entry, or zero.
func (i Ingredient) LatestCost() decimal.Decimal {
	return i.PriceHistory.LatestCost(decimal.Zero)
}

// Package returns the purchase package size when one is configured.
func (i Ingredient) Package() (generic.PackageSize, bool) {
	return packageOf(i.UnitsPerPackage)
}

// IngredientUpdate is an edit of an ingredient's metadata. A nil
// QuantityInStock leaves stock as it is.
type IngredientUpdate struct {
	Ingredient
	QuantityInStock *generic.Quantity `json:"quantityInStock,omitempty"`
}

// =============================================================================
// SKU - Manufactured or purchased product
// =============================================================================

type RecipeItem struct {
	IngredientID generic.EntityID `json:"ingredientId"`
	Quantity     generic.Quantity `json:"quantity"`
}

type SKU struct {
	ID            generic.EntityID `json:"id"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Recipe        []RecipeItem     `json:"recipe"`
	WastageFactor decimal.Decimal  `json:"wastageFactor"`
	LaborCost     decimal.Decimal  `json:"laborCost"`
	OverheadCost  decimal.Decimal  `json:"overheadCost"`
	FranchiseFee  decimal.Decimal  `json:"franchiseFee"`
	SalePrice     decimal.Decimal  `json:"salePrice"`

	// CalculatedCost is CostEngine output. Never treat it as input for a
	// manufactured SKU.
	CalculatedCost *decimal.Decimal `json:"calculatedCost,omitempty"`

	// CostFault is set when the last recompute could not price this SKU and
	// CalculatedCost was left at its prior value.
	CostFault string `json:"costFault,omitempty"`

	QuantityInStock generic.Quantity     `json:"quantityInStock"`
	PurchaseUnit    string               `json:"purchaseUnit,omitempty"`
	UnitsPerPackage *decimal.Decimal     `json:"unitsPerPackage,omitempty"`
	MinStock        *generic.Quantity    `json:"minStock,omitempty"`
	MaxStock        *generic.Quantity    `json:"maxStock,omitempty"`
	PriceHistory    generic.PriceHistory `json:"priceHistory"`
}

func (s SKU) Key() generic.StockKey { return generic.SKUKey(s.ID) }

func (s SKU) Package() (generic.PackageSize, bool) {
	return packageOf(s.UnitsPerPackage)
}

// IsManufactured reports whether the SKU is produced from a recipe.
func (s SKU) IsManufactured() bool { return len(s.Recipe) > 0 }

// Cost returns the calculated cost, or zero when it has never been computed.
func (s SKU) Cost() decimal.Decimal {
	if s.CalculatedCost == nil {
		return decimal.Zero
	}
	return *s.CalculatedCost
}

// CostBasis is the tagged view of how a SKU is priced. The only
// implementations are ManufacturedBasis and PurchasedBasis.
type CostBasis interface {
	costBasis()
}

// ManufacturedBasis prices a SKU from its recipe. Recipe is never empty.
type ManufacturedBasis struct {
	Recipe        []RecipeItem
	WastageFactor decimal.Decimal
	LaborCost     decimal.Decimal
	OverheadCost  decimal.Decimal
	FranchiseFee  decimal.Decimal
}

// PurchasedBasis prices a resold SKU from its own price history.
type PurchasedBasis struct {
	History  generic.PriceHistory
	Fallback decimal.Decimal
}

func (ManufacturedBasis) costBasis() {}
func (PurchasedBasis) costBasis()    {}

// CostBasis selects the pricing variant for s.
func (s SKU) CostBasis() CostBasis {
	if s.IsManufactured() {
		return ManufacturedBasis{
			Recipe:        s.Recipe,
			WastageFactor: s.WastageFactor,
			LaborCost:     s.LaborCost,
			OverheadCost:  s.OverheadCost,
			FranchiseFee:  s.FranchiseFee,
		}
	}
	return PurchasedBasis{History: s.PriceHistory, Fallback: s.Cost()}
}

func packageOf(units *decimal.Decimal) (generic.PackageSize, bool) {
	if units == nil {
		return generic.PackageSize{}, false
	}
	p := generic.PackageSize{UnitsPerPackage: *units}
	return p, p.Valid()
}

// =============================================================================
// PRODUCTION
// =============================================================================

type ProductionPlanItem struct {
	SKUID         generic.EntityID `json:"skuId"`
	SKUName       string           `json:"skuName,omitempty"`
	Category      string           `json:"category,omitempty"`
	TotalQuantity generic.Quantity `json:"totalQuantity"`
}

type ProducedItem struct {
	SKUID    generic.EntityID `json:"skuId"`
	Quantity generic.Quantity `json:"quantity"`
}

type ProductionStatus string

const (
	ProductionPending  ProductionStatus = "Pendiente"
	ProductionProduced ProductionStatus = "Producido"
)

// ProductionLog is the single entry for one calendar date.
type ProductionLog struct {
	Date          generic.Date     `json:"date"`
	Status        ProductionStatus `json:"status"`
	ProducedItems []ProducedItem   `json:"producedItems"`
}

// =============================================================================
// SUPPLIERS & DOCUMENTS
// =============================================================================

type MatchType string

const (
	MatchNone       MatchType = ""
	MatchIngredient MatchType = "ingredient"
	MatchSKU        MatchType = "sku"
)

// Mapping remembers which catalog entity a supplier's product name refers to.
type Mapping struct {
	MatchType MatchType        `json:"matchType"`
	MatchedID generic.EntityID `json:"matchedId"`
}

type SupplierContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Supplier struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	ContactPerson  string             `json:"contactPerson,omitempty"`
	Phone          string             `json:"phone,omitempty"`
	Contacts       []SupplierContact  `json:"contacts,omitempty"`
	TaxID          string             `json:"taxId,omitempty"`
	PaymentTerms   string             `json:"paymentTerms,omitempty"`
	DeliveryInfo   string             `json:"deliveryInfo,omitempty"`
	Documents      []SupplierDocument `json:"documents"`
	MappingHistory map[string]Mapping `json:"mappingHistory"`
	Rating         int                `json:"rating,omitempty"`
	Notes          string             `json:"notes,omitempty"`
}

// AnalyzedItem is one invoice line. Quantity and UnitPrice are always in
// base units; PackageQuantity and PackagePrice keep what the invoice said.
type AnalyzedItem struct {
	ID              string           `json:"id"`
	ProductName     string           `json:"productName"`
	Quantity        generic.Quantity `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unitPrice"`
	PackageQuantity *decimal.Decimal `json:"packageQuantity,omitempty"`
	PackagePrice    *decimal.Decimal `json:"packagePrice,omitempty"`
	MatchType       MatchType        `json:"matchType"`
	MatchedID       generic.EntityID `json:"matchedId"`
}

// Matched reports whether the line has been linked to a catalog entity.
func (a AnalyzedItem) Matched() bool {
	return a.MatchType != MatchNone && a.MatchedID != ""
}

func (a AnalyzedItem) Key() generic.StockKey {
	if a.MatchType == MatchSKU {
		return generic.SKUKey(a.MatchedID)
	}
	return generic.IngredientKey(a.MatchedID)
}

type DocumentStatus string

const (
	DocProcessing     DocumentStatus = "processing"
	DocPendingReview  DocumentStatus = "pending_review"
	DocApproved       DocumentStatus = "approved"
	DocInPaymentOrder DocumentStatus = "in_payment_order"
	DocPartiallyPaid  DocumentStatus = "partially_paid"
	DocPaid           DocumentStatus = "paid"
	DocError          DocumentStatus = "error"
)

type SupplierDocument struct {
	ID              string           `json:"id"`
	FileName        string           `json:"fileName"`
	FileType        string           `json:"fileType"`
	UploadDate      generic.Date     `json:"uploadDate"`
	DueDate         generic.Date     `json:"dueDate"`
	Status          DocumentStatus   `json:"status"`
	Content         string           `json:"content"` // base64
	ExtractedItems  []AnalyzedItem   `json:"extractedItems,omitempty"`
	TotalAmount     *decimal.Decimal `json:"totalAmount,omitempty"`
	PaidAmount      decimal.Decimal  `json:"paidAmount"`
	ExpenseCategory string           `json:"expenseCategory"`
	PaymentOrderID  string           `json:"paymentOrderId,omitempty"`
}

func (d SupplierDocument) Total() decimal.Decimal {
	if d.TotalAmount == nil {
		return decimal.Zero
	}
	return *d.TotalAmount
}

type PaymentOrderLine struct {
	SupplierID string          `json:"supplierId"`
	DocumentID string          `json:"documentId"`
	Amount     decimal.Decimal `json:"amount"`
}

type PaymentOrder struct {
	ID            string             `json:"id"`
	CreationDate  generic.Date       `json:"creationDate"`
	PaymentDate   generic.Date       `json:"paymentDate"`
	Status        string             `json:"status"`
	Documents     []PaymentOrderLine `json:"documents"`
	TotalAmount   decimal.Decimal    `json:"totalAmount"`
	PaymentMethod string             `json:"paymentMethod"`
	Reference     string             `json:"reference,omitempty"`
}

// =============================================================================
// EXPENSES
// =============================================================================

type ExpenseType string

const (
	ExpenseFixed    ExpenseType = "fixed"
	ExpenseVariable ExpenseType = "variable"
)

type ExpenseItem struct {
	ID               string          `json:"id"`
	Category         string          `json:"category"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Date             generic.Date    `json:"date"`
	Type             ExpenseType     `json:"type"`
	SourceDocumentID string          `json:"sourceDocumentId,omitempty"`
	SupplierID       string          `json:"supplierId,omitempty"`
	SupplierName     string          `json:"supplierName,omitempty"`
}

// =============================================================================
// SHOPS, REMITOS & COLLECTIONS
// =============================================================================

type Shop struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	PaymentTerms int    `json:"paymentTerms"` // net days
}

type RemitoItem struct {
	SKUID              generic.EntityID `json:"skuId"`
	SKUName            string           `json:"skuName"`
	Quantity           generic.Quantity `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unitPrice"`
	IVARate            decimal.Decimal  `json:"ivaRate"`
	DiscountPercentage decimal.Decimal  `json:"discountPercentage"`
}

type RemitoStatus string

const (
	RemitoUnpaid        RemitoStatus = "unpaid"
	RemitoPartiallyPaid RemitoStatus = "partially_paid"
	RemitoPaid          RemitoStatus = "paid"
)

// Remito is a delivery note for one shop on one day.
type Remito struct {
	ID         string          `json:"id"`
	StoreName  string          `json:"storeName"`
	Date       generic.Date    `json:"date"`
	Items      []RemitoItem    `json:"items"`
	Status     RemitoStatus    `json:"status"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
	Discount   decimal.Decimal `json:"discount"`
}

type PaymentAllocation struct {
	RemitoID string          `json:"remitoId"`
	Amount   decimal.Decimal `json:"amount"`
}

type Payment struct {
	ID          string              `json:"id"`
	StoreID     string              `json:"storeId"`
	Date        generic.Date        `json:"date"`
	Amount      decimal.Decimal     `json:"amount"`
	Method      string              `json:"method"`
	Allocations []PaymentAllocation `json:"allocations"`
}

// =============================================================================
// EXTRACTION RESULTS - Untrusted proposals from the extraction collaborator
// =============================================================================

// ExtractedLine is one invoice line as read from a document.
type ExtractedLine struct {
	ProductName string           `json:"productName"`
	Quantity    generic.Quantity `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
}

type WholesaleOrderItem struct {
	SKUName  string           `json:"skuName"`
	Quantity generic.Quantity `json:"quantity"`
}

// WholesaleOrder is one shop's order for one day.
type WholesaleOrder struct {
	StoreName string               `json:"storeName"`
	Date      generic.Date         `json:"date"`
	Items     []WholesaleOrderItem `json:"items"`
}
