// Package recipes scales standardized recipes and computes their cost.
package recipes

import (
	"errors"
	"fmt"
	"math"

	"github.com/galleyops/galley/internal/models"
)

// ErrInvalidYield is returned when a recipe yield or target yield cannot be scaled.
var ErrInvalidYield = errors.New("invalid yield")

// SeasoningWarnFactor is the scale factor above which seasonings are flagged.
const SeasoningWarnFactor = 4.0

// practicalFractions are the kitchen measures the fractional part snaps to.
var practicalFractions = []float64{0, 1.0 / 4, 1.0 / 3, 1.0 / 2, 2.0 / 3, 3.0 / 4}

var fractionLabels = map[float64]string{
	1.0 / 4: "1/4",
	1.0 / 3: "1/3",
	1.0 / 2: "1/2",
	2.0 / 3: "2/3",
	3.0 / 4: "3/4",
}

// ScaledIngredient is one ingredient line after scaling.
type ScaledIngredient struct {
	IngredientID      string
	Name              string
	OriginalQuantity  float64
	Quantity          float64 // exact scaled amount
	PracticalQuantity float64
	Unit              string
	IsSeasoning       bool
}

// Display renders the practical quantity as a kitchen measure, e.g. "2 1/3 cup".
func (s ScaledIngredient) Display() string {
	return FormatQuantity(s.PracticalQuantity) + " " + s.Unit
}

// ScaledRecipe is a recipe resized to a target yield.
type ScaledRecipe struct {
	RecipeID      string
	Name          string
	OriginalYield float64
	TargetYield   float64
	ScaleFactor   float64
	Ingredients   []ScaledIngredient
	Warnings      []string
}

// Scale resizes every ingredient of recipe by targetYield / recipe.YieldQuantity.
// Seasonings are flagged, never adjusted, when the factor exceeds SeasoningWarnFactor.
func Scale(recipe *models.Recipe, targetYield float64) (*ScaledRecipe, error) {
	if recipe.YieldQuantity <= 0 {
		return nil, fmt.Errorf("%w: recipe %s yields %v", ErrInvalidYield, recipe.ID, recipe.YieldQuantity)
	}
	if targetYield < 0 {
		return nil, fmt.Errorf("%w: target %v", ErrInvalidYield, targetYield)
	}

	factor := targetYield / recipe.YieldQuantity
	scaled := &ScaledRecipe{
		RecipeID:      recipe.ID,
		Name:          recipe.Name,
		OriginalYield: recipe.YieldQuantity,
		TargetYield:   targetYield,
		ScaleFactor:   factor,
		Ingredients:   make([]ScaledIngredient, 0, len(recipe.Ingredients)),
	}

	for _, ing := range recipe.Ingredients {
		exact := ing.Quantity * factor
		scaled.Ingredients = append(scaled.Ingredients, ScaledIngredient{
			IngredientID:      ing.IngredientID,
			Name:              ing.Name,
			OriginalQuantity:  ing.Quantity,
			Quantity:          exact,
			PracticalQuantity: PracticalRound(exact),
			Unit:              ing.Unit,
			IsSeasoning:       ing.IsSeasoning,
		})
		if ing.IsSeasoning && factor > SeasoningWarnFactor {
			scaled.Warnings = append(scaled.Warnings, fmt.Sprintf(
				"%s scaled %.2fx: seasoning does not scale linearly, adjust to taste", ingredientLabel(ing), factor))
		}
	}

	return scaled, nil
}

// PracticalRound keeps the integer part of q and snaps the fractional part to
// the nearest of 0, 1/4, 1/3, 1/2, 2/3, 3/4.
func PracticalRound(q float64) float64 {
	if q <= 0 {
		return 0
	}
	// Float noise such as 4.9999999999 must not read as 4 and 0.99.
	q = math.Round(q*1e9) / 1e9
	whole, frac := math.Modf(q)
	return whole + nearestFraction(frac)
}

func nearestFraction(frac float64) float64 {
	best := practicalFractions[0]
	bestDiff := math.Abs(frac - best)
	for _, f := range practicalFractions[1:] {
		if d := math.Abs(frac - f); d < bestDiff {
			best, bestDiff = f, d
		}
	}
	return best
}

// FormatQuantity renders a practically rounded quantity, e.g. 2.5 as "2 1/2".
func FormatQuantity(q float64) string {
	whole, frac := math.Modf(q)
	label := ""
	for f, l := range fractionLabels {
		if math.Abs(frac-f) < 1e-9 {
			label = l
			break
		}
	}
	switch {
	case label == "" && math.Abs(frac) < 1e-9:
		return fmt.Sprintf("%d", int64(whole))
	case label == "":
		return fmt.Sprintf("%.2f", q)
	case whole == 0:
		return label
	default:
		return fmt.Sprintf("%d %s", int64(whole), label)
	}
}

func ingredientLabel(ing models.RecipeIngredient) string {
	if ing.Name != "" {
		return ing.Name
	}
	return ing.IngredientID
}
