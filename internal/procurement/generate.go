// Package procurement drafts purchase orders from projected shortages.
package procurement

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/inventory"
	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

// DaysPerYear annualizes daily usage for EOQ.
const DaysPerYear = 365

type options struct {
	annualDemand map[string]float64
}

// Option customizes Generate.
type Option func(*options)

// WithAnnualDemand supplies annual demand per ingredient so orders can be
// raised to the economic order quantity.
func WithAnnualDemand(demand map[string]float64) Option {
	return func(o *options) { o.annualDemand = demand }
}

// Generate drafts an order line for every ingredient whose stock after
// projected usage is at or below its reorder point. Lines order up to par,
// at least the EOQ when it can be computed, rounded up to the pack size.
func Generate(siteID string, asOf time.Time, ingredients []models.Ingredient, onHand, projectedUsage map[string]float64, opts ...Option) *models.PurchaseOrderDraft {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	draft := &models.PurchaseOrderDraft{
		ID:     util.NewID(),
		SiteID: siteID,
		AsOf:   util.StartOfDay(asOf),
	}

	sorted := make([]models.Ingredient, len(ingredients))
	copy(sorted, ingredients)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := range sorted {
		ing := &sorted[i]
		have := onHand[ing.ID]
		use := projectedUsage[ing.ID]
		after := have - use
		if after > ing.ReorderPoint {
			continue
		}

		target := ing.ParLevel
		if target <= 0 {
			target = ing.ReorderPoint
		}
		qty := target - after
		reason := fmt.Sprintf("%.2f %s after projected usage is at or below reorder point %.2f; ordering up to %.2f",
			after, ing.Unit, ing.ReorderPoint, target)
		if after < 0 {
			reason = fmt.Sprintf("projected shortfall of %.2f %s; ordering up to %.2f", -after, ing.Unit, target)
		}

		if demand, ok := o.annualDemand[ing.ID]; ok {
			if eoq, err := inventory.EOQForIngredient(ing, demand); err == nil && eoq.OrderQuantity > qty {
				qty = eoq.OrderQuantity
				reason += fmt.Sprintf("; raised to EOQ %.2f", eoq.OrderQuantity)
			}
		}

		qty = roundToPack(qty, ing.PackSize)
		if qty <= 0 {
			continue
		}

		draft.Lines = append(draft.Lines, models.PurchaseOrderLine{
			IngredientID:   ing.ID,
			IngredientName: ing.Name,
			VendorID:       ing.VendorID,
			OrderQuantity:  qty,
			Unit:           ing.Unit,
			Reason:         reason,
			OnHand:         have,
			ProjectedUsage: use,
			ReorderPoint:   ing.ReorderPoint,
			EstimatedCost:  ing.UnitCost.Mul(decimal.NewFromFloat(qty)).Round(2),
		})
	}
	return draft
}

// AnnualDemand scales average daily usage to a year.
func AnnualDemand(dailyUsage []float64) float64 {
	if len(dailyUsage) == 0 {
		return 0
	}
	var sum float64
	for _, u := range dailyUsage {
		sum += u
	}
	return sum / float64(len(dailyUsage)) * DaysPerYear
}

func roundToPack(qty, pack float64) float64 {
	if qty <= 0 {
		return 0
	}
	if pack <= 0 {
		return math.Ceil(qty*100) / 100
	}
	// Tolerate float noise so 2.0000000001 packs stays 2.
	packs := math.Ceil(qty/pack - 1e-9)
	return packs * pack
}
