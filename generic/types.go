/*
Package generic provides the domain-agnostic cost and inventory engine.

PURPOSE:
  This package contains the building blocks that the bakery domain composes:
  quantities in base units, append-only price histories, a stock ledger that
  enforces non-negative balances with all-or-nothing batches, and the
  persistence interface used to mirror the catalog to durable storage.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quantity: an amount expressed in an item's base unit (kg, unidad, litro)
  - PackageSize: conversion between purchase packages and base units
  - StockKey: identifies one stock-holding entity (ingredient or SKU)
  - Movement: an immutable journal entry for every committed stock change

DESIGN PRINCIPLES:
  1. Precision: all quantities and costs use decimal.Decimal
  2. Immutability: price entries and movements are never edited, only appended
  3. Type Safety: StockKey carries the entity kind so ingredient and SKU ids
     cannot be confused
  4. Atomicity: multi-entity stock changes validate everything before applying

USAGE:
  q := generic.NewQuantity(12)
  pkg := generic.PackageSize{UnitsPerPackage: decimal.NewFromInt(6)}
  units := pkg.ToBase(decimal.NewFromInt(2)) // 12 base units

SEE ALSO:
  - ledger.go: PriceHistory (append-only cost observations)
  - stock.go: StockLedger (two-phase batch adjustments)
  - errors.go: structured error taxonomy
*/
package generic

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITY - Amount in base units
// =============================================================================

// Quantity is an amount of stock in the owning item's base unit.
// Package conversions happen at the boundary through PackageSize so the rest
// of the engine only ever sees base units.
type Quantity struct {
	base decimal.Decimal
}

func NewQuantity(value float64) Quantity      { return Quantity{base: decimal.NewFromFloat(value)} }
func NewQuantityFromInt(value int64) Quantity { return Quantity{base: decimal.NewFromInt(value)} }
func ZeroQuantity() Quantity                  { return Quantity{base: decimal.Zero} }

// MustParseQuantity parses a decimal literal and panics if it is malformed.
func MustParseQuantity(s string) Quantity {
	return Quantity{base: decimal.RequireFromString(s)}
}

func (q Quantity) BaseUnits() decimal.Decimal     { return q.base }
func (q Quantity) Add(o Quantity) Quantity        { return Quantity{base: q.base.Add(o.base)} }
func (q Quantity) Sub(o Quantity) Quantity        { return Quantity{base: q.base.Sub(o.base)} }
func (q Quantity) Mul(f decimal.Decimal) Quantity { return Quantity{base: q.base.Mul(f)} }
func (q Quantity) Neg() Quantity                  { return Quantity{base: q.base.Neg()} }
func (q Quantity) IsNegative() bool               { return q.base.IsNegative() }
func (q Quantity) IsZero() bool                   { return q.base.IsZero() }
func (q Quantity) IsPositive() bool               { return q.base.IsPositive() }
func (q Quantity) Equal(o Quantity) bool          { return q.base.Equal(o.base) }
func (q Quantity) LessThan(o Quantity) bool       { return q.base.LessThan(o.base) }
func (q Quantity) GreaterThan(o Quantity) bool    { return q.base.GreaterThan(o.base) }
func (q Quantity) String() string                 { return q.base.String() }

// Max returns the larger of q and o.
func (q Quantity) Max(o Quantity) Quantity {
	if q.LessThan(o) {
		return o
	}
	return q
}

// MarshalJSON encodes the quantity exactly like decimal.Decimal.
func (q Quantity) MarshalJSON() ([]byte, error) { return q.base.MarshalJSON() }

// UnmarshalJSON accepts numbers, quoted numbers and null (zero).
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	q.base = d
	return nil
}

// =============================================================================
// PACKAGE SIZE - Purchase unit <-> base unit conversion
// =============================================================================

// PackageSize describes how many base units one purchase package holds
// (e.g. a box of 6 bottles).
type PackageSize struct {
	UnitsPerPackage decimal.Decimal
}

// Valid reports whether the package holds a positive number of base units.
func (p PackageSize) Valid() bool { return p.UnitsPerPackage.IsPositive() }

// ToBase converts a count of packages into base units.
func (p PackageSize) ToBase(packages decimal.Decimal) Quantity {
	return Quantity{base: packages.Mul(p.UnitsPerPackage)}
}

// UnitCost divides a package price down to the cost of one base unit.
func (p PackageSize) UnitCost(packagePrice decimal.Decimal) (decimal.Decimal, error) {
	if !p.Valid() {
		return decimal.Zero, ErrInvalidQuantity
	}
	return packagePrice.Div(p.UnitsPerPackage), nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string

// EntityKind distinguishes the two stock-holding entity types.
type EntityKind string

const (
	KindIngredient EntityKind = "ingredient"
	KindSKU        EntityKind = "sku"
)

// StockKey identifies one stock-holding entity.
type StockKey struct {
	Kind EntityKind `json:"kind"`
	ID   EntityID   `json:"id"`
}

func IngredientKey(id EntityID) StockKey { return StockKey{Kind: KindIngredient, ID: id} }
func SKUKey(id EntityID) StockKey        { return StockKey{Kind: KindSKU, ID: id} }

func (k StockKey) String() string { return string(k.Kind) + ":" + string(k.ID) }

// NewID returns a random identifier for ledger entries.
func NewID() string { return uuid.NewString() }

// =============================================================================
// MOVEMENT - Immutable stock journal entry
// =============================================================================

type MovementReason string

const (
	MovementPurchase          MovementReason = "purchase"
	MovementProductionConsume MovementReason = "production_consume"
	MovementProductionOutput  MovementReason = "production_output"
	MovementFulfillment       MovementReason = "fulfillment"
	MovementManualAdjustment  MovementReason = "manual_adjustment"
)

// Movement records one committed change to an entity's on-hand quantity.
// Movements are appended by StockLedger and never modified.
type Movement struct {
	ID        string         `json:"id"`
	Date      Date           `json:"date"`
	Key       StockKey       `json:"key"`
	Delta     Quantity       `json:"delta"`
	Balance   Quantity       `json:"balance"`
	Reason    MovementReason `json:"reason"`
	Reference string         `json:"reference,omitempty"`
}
