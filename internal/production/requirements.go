package production

import (
	"fmt"
	"sort"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/recipes"
	"github.com/galleyops/galley/internal/units"
)

// Requirement is the total quantity of one ingredient a schedule consumes,
// in the ingredient's stock unit.
type Requirement struct {
	IngredientID string
	Quantity     float64
	Unit         string
	RecipeIDs    []string
}

// Requirements scales every task's recipe to the batches it produces and sums
// the ingredient quantities. Ingredients without a record keep the recipe unit.
func Requirements(schedule *models.ProductionSchedule, book map[string]*models.Recipe, ingredients map[string]*models.Ingredient, conv *units.Converter) ([]Requirement, error) {
	totals := make(map[string]*Requirement)
	var order []string

	for _, t := range schedule.Tasks {
		r, ok := book[t.RecipeID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRecipe, t.RecipeID)
		}
		scaled, err := recipes.Scale(r, float64(t.BatchCount)*r.YieldQuantity)
		if err != nil {
			return nil, err
		}

		for _, line := range scaled.Ingredients {
			qty, unit := line.Quantity, line.Unit
			if ing, ok := ingredients[line.IngredientID]; ok {
				qty, err = recipes.ToStockUnit(conv, line.Quantity, line.Unit, ing)
				if err != nil {
					return nil, fmt.Errorf("recipe %s: %w", r.ID, err)
				}
				if ing.Unit != "" {
					unit = ing.Unit
				}
			}

			req, ok := totals[line.IngredientID]
			if !ok {
				req = &Requirement{IngredientID: line.IngredientID, Unit: unit}
				totals[line.IngredientID] = req
				order = append(order, line.IngredientID)
			}
			if req.Unit != unit {
				converted, err := conv.Convert(qty, unit, req.Unit)
				if err != nil {
					return nil, fmt.Errorf("recipe %s: %w", r.ID, err)
				}
				qty = converted
			}
			req.Quantity += qty
			if !containsString(req.RecipeIDs, r.ID) {
				req.RecipeIDs = append(req.RecipeIDs, r.ID)
			}
		}
	}

	out := make([]Requirement, 0, len(order))
	for _, id := range order {
		out = append(out, *totals[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IngredientID < out[j].IngredientID })
	return out, nil
}

// MergeRequirements sums requirement lists that share stock units.
func MergeRequirements(lists ...[]Requirement) []Requirement {
	totals := make(map[string]*Requirement)
	var order []string
	for _, list := range lists {
		for _, r := range list {
			cur, ok := totals[r.IngredientID]
			if !ok {
				c := r
				c.RecipeIDs = append([]string(nil), r.RecipeIDs...)
				totals[r.IngredientID] = &c
				order = append(order, r.IngredientID)
				continue
			}
			cur.Quantity += r.Quantity
			for _, id := range r.RecipeIDs {
				if !containsString(cur.RecipeIDs, id) {
					cur.RecipeIDs = append(cur.RecipeIDs, id)
				}
			}
		}
	}
	out := make([]Requirement, 0, len(order))
	for _, id := range order {
		out = append(out, *totals[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IngredientID < out[j].IngredientID })
	return out
}
