package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrderLine is a suggested order for one ingredient.
type PurchaseOrderLine struct {
	IngredientID   string
	IngredientName string
	VendorID       string
	OrderQuantity  float64
	Unit           string
	Reason         string
	OnHand         float64
	ProjectedUsage float64
	ReorderPoint   float64
	EstimatedCost  decimal.Decimal
}

// PurchaseOrderDraft is a transient set of suggested orders for approval.
type PurchaseOrderDraft struct {
	ID     string
	SiteID string
	AsOf   time.Time
	Lines  []PurchaseOrderLine
}

// EstimatedTotal sums line cost estimates.
func (d *PurchaseOrderDraft) EstimatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.EstimatedCost)
	}
	return total
}
