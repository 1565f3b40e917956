package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/forecast"
	"github.com/galleyops/galley/internal/inventory"
	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/production"
	"github.com/galleyops/galley/internal/recipes"
)

// DayPlan is everything the pipeline produced for one site on one day.
type DayPlan struct {
	Date   time.Time
	SiteID string

	Menu      *models.ResolvedMenu
	Census    []forecast.CensusForecast
	Items     map[string][]forecast.ItemForecast // by meal period
	Forecasts []models.Forecast

	Schedules    []*models.ProductionSchedule
	Requirements []production.Requirement
	ItemCosts    map[string]*recipes.RecipeCost // by recipe, menu items only

	// Issues is empty unless issuance was applied by this run. IssuedEarlier
	// is set instead when an earlier run already issued for the day.
	Issues        []*models.IssueResult
	IssuedEarlier bool
	Alerts        []models.ExpirationAlert
	PurchaseOrder *models.PurchaseOrderDraft
	ParLevels     map[string]*inventory.ParLevelCalculation // suggestions, by ingredient

	CreatedAt time.Time
}

// Conflicts returns the conflicts of every schedule.
func (p *DayPlan) Conflicts() []models.ResourceConflict {
	var out []models.ResourceConflict
	for _, s := range p.Schedules {
		out = append(out, s.Conflicts...)
	}
	return out
}

// TaskCount counts tasks across schedules.
func (p *DayPlan) TaskCount() int {
	n := 0
	for _, s := range p.Schedules {
		n += len(s.Tasks)
	}
	return n
}

// TotalCensus sums the census forecasts of every meal period.
func (p *DayPlan) TotalCensus() int {
	n := 0
	for _, c := range p.Census {
		n += c.Count
	}
	return n
}

// Shortfalls returns the issuances that could not be filled.
func (p *DayPlan) Shortfalls() []*models.IssueResult {
	var out []*models.IssueResult
	for _, r := range p.Issues {
		if !r.Fulfilled {
			out = append(out, r)
		}
	}
	return out
}

// EstimatedFoodCost prices the forecast portions of each menu item.
func (p *DayPlan) EstimatedFoodCost() decimal.Decimal {
	total := decimal.Zero
	for _, items := range p.Items {
		for _, it := range items {
			if c, ok := p.ItemCosts[it.RecipeID]; ok {
				total = total.Add(c.PerPortion.Mul(decimal.NewFromInt(int64(it.Portions))))
			}
		}
	}
	return total.Round(2)
}
