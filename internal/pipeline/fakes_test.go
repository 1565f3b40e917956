package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/galleyops/galley/internal/inventory"
	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

// memStore implements every source the planner reads from.
type memStore struct {
	mu sync.Mutex

	cycles      map[string]*models.CycleMenu
	overrides   []models.SingleUseMenu
	periods     map[string][]models.MealPeriod
	recipes     map[string]*models.Recipe
	equipment   []models.Equipment
	employees   []models.Employee
	ingredients map[string]models.Ingredient
	lots        map[string]models.InventoryLot
	census      []models.CensusObservation
	selections  []models.SelectionObservation
	usage       []models.UsageObservation

	saved []*DayPlan
}

func (s *memStore) sources() Sources {
	return Sources{
		Menus:       s,
		Sites:       s,
		History:     s,
		Recipes:     s,
		Roster:      s,
		Ingredients: s,
		Lots:        s,
		Output:      s,
	}
}

func (s *memStore) ActiveCycle(_ context.Context, siteID string) (*models.CycleMenu, error) {
	return s.cycles[siteID], nil
}

func (s *memStore) Overrides(_ context.Context, siteID string, date time.Time) ([]models.SingleUseMenu, error) {
	var out []models.SingleUseMenu
	for _, o := range s.overrides {
		if o.SiteID == siteID && util.IsSameDay(o.ServiceDate, date) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) ListMealPeriods(_ context.Context, siteID string) ([]models.MealPeriod, error) {
	return append([]models.MealPeriod(nil), s.periods[siteID]...), nil
}

func (s *memStore) GetRecipe(_ context.Context, id string) (*models.Recipe, error) {
	r, ok := s.recipes[id]
	if !ok {
		return nil, fmt.Errorf("recipe %s not found", id)
	}
	return r, nil
}

func (s *memStore) ListEquipment(_ context.Context, _ string) ([]models.Equipment, error) {
	return s.equipment, nil
}

func (s *memStore) ListEmployees(_ context.Context, _ string) ([]models.Employee, error) {
	return s.employees, nil
}

func (s *memStore) GetIngredient(_ context.Context, id string) (*models.Ingredient, error) {
	ing, ok := s.ingredients[id]
	if !ok {
		return nil, fmt.Errorf("ingredient %s not found", id)
	}
	return &ing, nil
}

func (s *memStore) ListIngredients(_ context.Context) ([]models.Ingredient, error) {
	out := make([]models.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListLots(_ context.Context, ingredientID, siteID string) ([]models.InventoryLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.InventoryLot
	for _, l := range s.lots {
		if l.IngredientID == ingredientID && l.SiteID == siteID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ApplyLotChanges(_ context.Context, changes []inventory.LotChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changes {
		if c.Quantity <= 0 {
			delete(s.lots, c.LotID)
			continue
		}
		l := s.lots[c.LotID]
		l.Quantity = c.Quantity
		s.lots[c.LotID] = l
	}
	return nil
}

func (s *memStore) InsertLot(_ context.Context, lot *models.InventoryLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[lot.ID] = *lot
	return nil
}

func (s *memStore) CensusHistory(_ context.Context, siteID, mealPeriodID string, before time.Time, days int) ([]models.CensusObservation, error) {
	from := util.AddDays(before, -days)
	var out []models.CensusObservation
	for _, o := range s.census {
		if o.SiteID == siteID && o.MealPeriodID == mealPeriodID && !o.Date.Before(from) && o.Date.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) SelectionHistory(_ context.Context, siteID, recipeID string, before time.Time, days int) ([]models.SelectionObservation, error) {
	from := util.AddDays(before, -days)
	var out []models.SelectionObservation
	for _, o := range s.selections {
		if o.SiteID == siteID && o.RecipeID == recipeID && !o.Date.Before(from) && o.Date.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) UsageHistory(_ context.Context, siteID, ingredientID string, before time.Time, days int) ([]models.UsageObservation, error) {
	from := util.AddDays(before, -days)
	var out []models.UsageObservation
	for _, o := range s.usage {
		if o.SiteID == siteID && o.IngredientID == ingredientID && !o.Date.Before(from) && o.Date.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) SavePlan(_ context.Context, plan *DayPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, plan)
	return nil
}

func (s *memStore) HasIssued(_ context.Context, siteID string, date time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.saved {
		if p.SiteID == siteID && util.IsSameDay(p.Date, date) && (len(p.Issues) > 0 || p.IssuedEarlier) {
			return true, nil
		}
	}
	return false, nil
}
