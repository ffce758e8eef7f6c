package bakery

import (
	"fmt"

	"github.com/warp/bakery-engine/generic"
)

// =============================================================================
// DIAGNOSTICS - Read-only audit of catalog consistency
// =============================================================================

type FindingStatus string

const (
	FindingOK      FindingStatus = "success"
	FindingWarning FindingStatus = "warning"
	FindingError   FindingStatus = "error"
)

type Finding struct {
	ID       string        `json:"id"`
	Category string        `json:"category"`
	Status   FindingStatus `json:"status"`
	Message  string        `json:"message"`
	Details  []string      `json:"details,omitempty"`
}

const (
	categoryIntegrity = "Integridad de Datos"
	categoryBusiness  = "Lógica de Negocio"
)

// Diagnose inspects c without modifying it.
func Diagnose(c *Catalog) []Finding {
	report := CostEngine{}.RecomputeAll(c.Clone())
	return []Finding{
		orphanedRecipes(report),
		unknownRemitoSKUs(c),
		unpricedSKUs(c),
		invalidWastage(c),
		negativeStock(c),
	}
}

func finding(id, category string, details []string, ok, problem string, status FindingStatus) Finding {
	if len(details) == 0 {
		return Finding{ID: id, Category: category, Status: FindingOK, Message: ok}
	}
	return Finding{ID: id, Category: category, Status: status, Message: fmt.Sprintf(problem, len(details)), Details: details}
}

func orphanedRecipes(report CostReport) Finding {
	details := make([]string, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		details = append(details, w.String())
	}
	return finding("orphaned-recipe-items", categoryIntegrity, details,
		"Todas las recetas referencian insumos existentes.",
		"%d líneas de receta referencian insumos eliminados.", FindingWarning)
}

func unknownRemitoSKUs(c *Catalog) Finding {
	var details []string
	for _, r := range c.Remitos {
		for _, item := range r.Items {
			if _, ok := c.SKU(item.SKUID); !ok {
				details = append(details, fmt.Sprintf("remito %s: %s (%s)", r.ID, item.SKUName, item.SKUID))
			}
		}
	}
	return finding("remito-unknown-sku", categoryIntegrity, details,
		"Todos los remitos referencian SKUs existentes.",
		"%d líneas de remito referencian SKUs inexistentes.", FindingWarning)
}

func unpricedSKUs(c *Catalog) Finding {
	var details []string
	for _, sku := range c.SKUs {
		if sku.IsManufactured() && !sku.Cost().IsPositive() {
			details = append(details, fmt.Sprintf("%s (%s)", sku.Name, sku.ID))
		}
	}
	return finding("zero-cost-sku", categoryBusiness, details,
		"Todos los productos elaborados tienen costo.",
		"%d productos elaborados tienen costo cero.", FindingWarning)
}

func invalidWastage(c *Catalog) Finding {
	var details []string
	for _, sku := range c.SKUs {
		if err := validateWastage(sku.ID, sku.WastageFactor); err != nil && sku.IsManufactured() {
			details = append(details, fmt.Sprintf("%s: %v", sku.Name, err))
		}
	}
	return finding("invalid-wastage", categoryBusiness, details,
		"Todos los factores de merma son válidos.",
		"%d productos tienen un factor de merma inválido.", FindingError)
}

func negativeStock(c *Catalog) Finding {
	var details []string
	for _, ing := range c.Ingredients {
		if ing.QuantityInStock.IsNegative() {
			details = append(details, fmt.Sprintf("%s: %v", generic.IngredientKey(ing.ID), ing.QuantityInStock))
		}
	}
	for _, sku := range c.SKUs {
		if sku.QuantityInStock.IsNegative() {
			details = append(details, fmt.Sprintf("%s: %v", generic.SKUKey(sku.ID), sku.QuantityInStock))
		}
	}
	return finding("negative-stock", categoryIntegrity, details,
		"Ningún stock es negativo.",
		"%d entidades tienen stock negativo.", FindingError)
}
