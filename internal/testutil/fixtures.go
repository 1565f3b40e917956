package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/models"
)

// FixtureDate is the Monday most fixtures are anchored to.
var FixtureDate = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func shortID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

// FixtureSite creates a test site.
func FixtureSite(overrides ...func(*models.Site)) *models.Site {
	id := shortID("site")
	site := &models.Site{
		ID:       id,
		Code:     id,
		Name:     "Test Kitchen",
		Timezone: "UTC",
	}
	for _, override := range overrides {
		override(site)
	}
	return site
}

// FixtureMealPeriod creates a lunch period at siteID.
func FixtureMealPeriod(siteID string, overrides ...func(*models.MealPeriod)) *models.MealPeriod {
	mp := &models.MealPeriod{
		ID:           shortID("lunch"),
		SiteID:       siteID,
		Name:         "Lunch",
		ServiceStart: "11:30",
		ServiceEnd:   "13:30",
		SortOrder:    2,
	}
	for _, override := range overrides {
		override(mp)
	}
	return mp
}

// FixtureIngredient creates a dry-stored ingredient stocked in pounds.
func FixtureIngredient(overrides ...func(*models.Ingredient)) *models.Ingredient {
	ing := &models.Ingredient{
		ID:                    shortID("ing"),
		Name:                  "Rice",
		Unit:                  "lb",
		UnitCost:              decimal.RequireFromString("0.80"),
		StorageType:           models.StorageDry,
		ParLevel:              50,
		ReorderPoint:          20,
		LeadTimeDays:          2,
		DeliveryFrequencyDays: 7,
		OrderingCost:          decimal.NewFromInt(15),
		HoldingCostPercent:    0.2,
		PackSize:              25,
		VendorID:              "sysco",
	}
	for _, override := range overrides {
		override(ing)
	}
	return ing
}

// FixtureRecipe creates a hot entree using one pound of ingredientID per
// batch of ten.
func FixtureRecipe(ingredientID string, overrides ...func(*models.Recipe)) *models.Recipe {
	r := &models.Recipe{
		ID:              shortID("recipe"),
		Name:            "Rice Pilaf",
		Category:        "entree",
		YieldQuantity:   10,
		YieldUnit:       "portion",
		PrepTimeMinutes: 10,
		CookTimeMinutes: 30,
		EquipmentTypes:  []string{"kettle"},
		StationID:       "hot",
		Ingredients: []models.RecipeIngredient{
			{IngredientID: ingredientID, Quantity: 1, Unit: "lb"},
		},
	}
	for _, override := range overrides {
		override(r)
	}
	return r
}

// FixtureLot creates a lot of ingredientID received on FixtureDate.
func FixtureLot(ingredientID, siteID string, overrides ...func(*models.InventoryLot)) *models.InventoryLot {
	lot := &models.InventoryLot{
		ID:           shortID("lot"),
		IngredientID: ingredientID,
		SiteID:       siteID,
		Quantity:     10,
		Unit:         "lb",
		UnitCost:     decimal.RequireFromString("0.80"),
		ReceivedDate: FixtureDate,
	}
	for _, override := range overrides {
		override(lot)
	}
	return lot
}

// ExpiringOn sets a lot's expiration date.
func ExpiringOn(d time.Time) func(*models.InventoryLot) {
	return func(l *models.InventoryLot) {
		l.ExpirationDate = &d
	}
}

// FixtureCycleMenu creates an active one-week cycle starting FixtureDate
// that serves recipeID at mealPeriodID every Monday.
func FixtureCycleMenu(siteID, mealPeriodID, recipeID string, overrides ...func(*models.CycleMenu)) *models.CycleMenu {
	cm := &models.CycleMenu{
		ID:          shortID("cycle"),
		SiteID:      siteID,
		Name:        "Test Cycle",
		StartDate:   FixtureDate,
		LengthWeeks: 1,
		Status:      models.CycleMenuStatusActive,
		Version:     1,
		CreatedAt:   FixtureDate,
		Items: []models.MenuItem{{
			WeekNumber:   1,
			DayOfWeek:    time.Monday,
			MealPeriodID: mealPeriodID,
			RecipeID:     recipeID,
			Category:     "entree",
			SortOrder:    1,
		}},
	}
	for _, override := range overrides {
		override(cm)
	}
	return cm
}

// FixtureOverride creates a single-use supplement for one meal period.
func FixtureOverride(siteID, mealPeriodID, recipeID string, date time.Time, overrides ...func(*models.SingleUseMenu)) *models.SingleUseMenu {
	m := &models.SingleUseMenu{
		ID:           shortID("event"),
		SiteID:       siteID,
		Name:         "Special",
		ServiceDate:  date,
		Scope:        models.OverrideScopeMealPeriod,
		MealPeriodID: mealPeriodID,
		Mode:         models.OverrideModeSupplement,
		Items: []models.SingleUseItem{{
			MealPeriodID: mealPeriodID,
			RecipeID:     recipeID,
			Category:     "entree",
		}},
	}
	for _, override := range overrides {
		override(m)
	}
	return m
}
