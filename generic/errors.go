/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every structured error carries enough context (entity, amounts) for the
  HTTP layer to render an actionable message, and unwraps to a sentinel so
  callers can branch with errors.Is.

ERROR CATEGORIES:
  1. Stock errors - a decrement would drive inventory negative
  2. Cost errors - negative prices, undefined wastage configuration
  3. Lookup errors - referenced entity does not exist
  4. Lifecycle errors - illegal document status transition

USAGE:
  if errors.Is(err, generic.ErrInsufficientStock) {
      var stockErr *generic.InsufficientStockError
      errors.As(err, &stockErr)
      for _, s := range stockErr.Shortages { ... }
  }

SEE ALSO:
  - stock.go: Produces InsufficientStockError
  - ledger.go: Produces InvalidCostError
  - bakery/cost.go: Produces InvalidWastageFactorError
*/
package generic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientStock is returned when a decrement would make stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidCost is returned when a price entry has a negative cost.
	ErrInvalidCost = errors.New("invalid cost")

	// ErrInvalidWastageFactor is returned when a wastage factor is outside [0, 1).
	ErrInvalidWastageFactor = errors.New("invalid wastage factor")

	// ErrInvalidQuantity is returned for non-positive quantities where a positive one is required.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrEntityNotFound is returned when a referenced entity doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidTransition is returned when a document status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidBackup is returned when a backup document is malformed.
	ErrInvalidBackup = errors.New("invalid backup")

	// ErrInvalidDate is returned when a date is not a valid YYYY-MM-DD string.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidInput is returned for missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Shortage describes one entity that cannot cover its requested decrement.
type Shortage struct {
	Key       StockKey
	Name      string
	Required  Quantity
	Available Quantity
	Shortfall Quantity
	Missing   bool // entity is not in the catalog at all
}

// InsufficientStockError lists every entity that would go negative.
// The whole batch that produced it was rejected with no partial mutation.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		name := s.Name
		if name == "" {
			name = s.Key.String()
		}
		parts = append(parts, fmt.Sprintf("%s: required %v, available %v, shortfall %v",
			name, s.Required, s.Available, s.Shortfall))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InvalidCostError reports a rejected negative cost.
type InvalidCostError struct {
	Key  StockKey
	Cost decimal.Decimal
}

func (e *InvalidCostError) Error() string {
	return fmt.Sprintf("invalid cost %v for %s: cost must not be negative", e.Cost, e.Key)
}

func (e *InvalidCostError) Unwrap() error {
	return ErrInvalidCost
}

// InvalidWastageFactorError reports a wastage factor that makes unit cost undefined.
type InvalidWastageFactorError struct {
	SKUID  EntityID
	Factor decimal.Decimal
}

func (e *InvalidWastageFactorError) Error() string {
	return fmt.Sprintf("invalid wastage factor %v for sku %s: must be in [0, 1)", e.Factor, e.SKUID)
}

func (e *InvalidWastageFactorError) Unwrap() error {
	return ErrInvalidWastageFactor
}

// NotFoundError identifies a missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEntityNotFound
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// =============================================================================
// WARNINGS - Non-fatal diagnostics
// =============================================================================

// MissingReferenceWarning flags a recipe line whose ingredient no longer exists.
// The line contributes zero cost; the warning is surfaced by diagnostics.
type MissingReferenceWarning struct {
	SKUID        EntityID `json:"skuId"`
	SKUName      string   `json:"skuName"`
	IngredientID EntityID `json:"ingredientId"`
}

func (w MissingReferenceWarning) String() string {
	return fmt.Sprintf("sku %s (%s) references missing ingredient %s", w.SKUID, w.SKUName, w.IngredientID)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidCost) ||
		errors.Is(err, ErrInvalidWastageFactor) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidBackup) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
