package recipes

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/units"
)

// CostLine is the cost of one ingredient line at stock unit prices.
type CostLine struct {
	IngredientID  string
	StockQuantity float64
	StockUnit     string
	Cost          decimal.Decimal
}

// RecipeCost is the ingredient cost of one batch of a recipe.
type RecipeCost struct {
	RecipeID   string
	Yield      float64
	Total      decimal.Decimal
	PerPortion decimal.Decimal
	Lines      []CostLine
	Missing    []string // ingredient IDs with no ingredient record
}

// Cost prices a recipe batch. Recipe quantities are converted to each
// ingredient's stock unit before multiplying by its unit cost.
func Cost(recipe *models.Recipe, ingredients map[string]*models.Ingredient, conv *units.Converter) (*RecipeCost, error) {
	rc := &RecipeCost{
		RecipeID:   recipe.ID,
		Yield:      recipe.YieldQuantity,
		Total:      decimal.Zero,
		PerPortion: decimal.Zero,
	}

	for _, line := range recipe.Ingredients {
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			rc.Missing = append(rc.Missing, line.IngredientID)
			continue
		}
		qty, err := ToStockUnit(conv, line.Quantity, line.Unit, ing)
		if err != nil {
			return nil, fmt.Errorf("costing recipe %s: %w", recipe.ID, err)
		}
		cost := ing.UnitCost.Mul(decimal.NewFromFloat(qty)).Round(4)
		rc.Lines = append(rc.Lines, CostLine{
			IngredientID:  ing.ID,
			StockQuantity: qty,
			StockUnit:     ing.Unit,
			Cost:          cost,
		})
		rc.Total = rc.Total.Add(cost)
	}

	if recipe.YieldQuantity > 0 {
		rc.PerPortion = rc.Total.Div(decimal.NewFromFloat(recipe.YieldQuantity)).Round(4)
	}
	return rc, nil
}

// ToStockUnit converts a recipe quantity into the ingredient's stock unit.
func ToStockUnit(conv *units.Converter, qty float64, unit string, ing *models.Ingredient) (float64, error) {
	if ing.Unit == "" || unit == "" {
		return qty, nil
	}
	converted, err := conv.Convert(qty, unit, ing.Unit)
	if err != nil {
		return 0, fmt.Errorf("ingredient %s: %w", ing.ID, err)
	}
	return converted, nil
}
