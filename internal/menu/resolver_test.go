package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

// twoWeekCycle starts on Monday 2026-01-05 with lunch entrees on every Monday
// and a breakfast item on week 1 Monday.
func twoWeekCycle() *models.CycleMenu {
	return &models.CycleMenu{
		ID:          "spring",
		SiteID:      "main",
		StartDate:   util.MustParseDate("2026-01-05"),
		LengthWeeks: 2,
		Status:      models.CycleMenuStatusActive,
		Items: []models.MenuItem{
			{ID: "w1-mon-oats", WeekNumber: 1, DayOfWeek: time.Monday, MealPeriodID: "breakfast", RecipeID: "oatmeal", Category: "entree", SortOrder: 1},
			{ID: "w1-mon-chili", WeekNumber: 1, DayOfWeek: time.Monday, MealPeriodID: "lunch", RecipeID: "chili", Category: "entree", SortOrder: 2},
			{ID: "w1-mon-tacos", WeekNumber: 1, DayOfWeek: time.Monday, MealPeriodID: "lunch", RecipeID: "tacos", Category: "entree", SortOrder: 1},
			{ID: "w1-tue-soup", WeekNumber: 1, DayOfWeek: time.Tuesday, MealPeriodID: "lunch", RecipeID: "soup", Category: "entree"},
			{ID: "w2-mon-pasta", WeekNumber: 2, DayOfWeek: time.Monday, MealPeriodID: "lunch", RecipeID: "pasta", Category: "entree"},
		},
	}
}

func recipeIDs(m *models.ResolvedMenu) []string {
	ids := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		ids = append(ids, it.RecipeID)
	}
	return ids
}

func TestPosition(t *testing.T) {
	cycle := twoWeekCycle()

	tests := []struct {
		date    string
		week    int
		weekday time.Weekday
	}{
		{"2026-01-05", 1, time.Monday},
		{"2026-01-06", 1, time.Tuesday},
		{"2026-01-12", 2, time.Monday},
		{"2026-01-18", 2, time.Sunday},
		{"2026-01-19", 1, time.Monday},
		{"2026-01-04", 2, time.Sunday}, // day before the cycle starts wraps backwards
		{"2025-12-22", 1, time.Monday},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			week, weekday, err := Position(cycle, util.MustParseDate(tt.date))
			require.NoError(t, err)
			assert.Equal(t, tt.week, week)
			assert.Equal(t, tt.weekday, weekday)
		})
	}
}

func TestPosition_InvalidLength(t *testing.T) {
	for _, weeks := range []int{0, -2} {
		cycle := twoWeekCycle()
		cycle.LengthWeeks = weeks
		_, _, err := Position(cycle, util.MustParseDate("2026-01-05"))
		require.ErrorIs(t, err, ErrInvalidCycleConfiguration)

		_, err = ResolveMenu(cycle, nil, util.MustParseDate("2026-01-05"), "main")
		require.ErrorIs(t, err, ErrInvalidCycleConfiguration)
	}
}

func TestResolveMenu_CyclePeriodicity(t *testing.T) {
	cycle := twoWeekCycle()
	start := util.MustParseDate("2026-01-05")

	first, err := ResolveMenu(cycle, nil, start, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"oatmeal", "tacos", "chili"}, recipeIDs(first))

	again, err := ResolveMenu(cycle, nil, util.MustParseDate("2026-01-19"), "main")
	require.NoError(t, err)
	assert.Equal(t, first.Items, again.Items)

	for lengthWeeks := 1; lengthWeeks <= 6; lengthWeeks++ {
		c := twoWeekCycle()
		c.LengthWeeks = lengthWeeks
		for offset := -30; offset < 30; offset++ {
			d := util.AddDays(start, offset)
			a, err := ResolveMenu(c, nil, d, "main")
			require.NoError(t, err)
			b, err := ResolveMenu(c, nil, util.AddDays(d, lengthWeeks*7), "main")
			require.NoError(t, err)
			require.Equal(t, a.Items, b.Items, "length %d offset %d", lengthWeeks, offset)
		}
	}
}

func TestResolveMenu_ReplaceThenSupplement(t *testing.T) {
	date := util.MustParseDate("2026-01-05")
	replace := models.SingleUseMenu{
		ID:          "holiday",
		ServiceDate: date,
		Scope:       models.OverrideScopeDay,
		Mode:        models.OverrideModeReplace,
	}
	supplement := models.SingleUseMenu{
		ID:           "cake",
		ServiceDate:  date,
		Scope:        models.OverrideScopeMealPeriod,
		MealPeriodID: "lunch",
		Mode:         models.OverrideModeSupplement,
		Items:        []models.SingleUseItem{{ID: "cake-1", RecipeID: "sheet-cake", Category: "dessert"}},
	}

	orders := map[string][]models.SingleUseMenu{
		"replace first":    {replace, supplement},
		"supplement first": {supplement, replace},
	}

	for name, overrides := range orders {
		t.Run(name, func(t *testing.T) {
			menu, err := ResolveMenu(twoWeekCycle(), overrides, date, "main")
			require.NoError(t, err)
			require.Len(t, menu.Items, 1)
			assert.Equal(t, "sheet-cake", menu.Items[0].RecipeID)
			assert.Equal(t, "lunch", menu.Items[0].MealPeriodID)
			for _, it := range menu.Items {
				assert.False(t, it.Source.FromCycle(), "cycle item %s survived a day replace", it.RecipeID)
			}
		})
	}
}

func TestResolveMenu_MealPeriodReplace(t *testing.T) {
	date := util.MustParseDate("2026-01-05")
	overrides := []models.SingleUseMenu{{
		ID:           "bbq",
		ServiceDate:  date,
		Scope:        models.OverrideScopeMealPeriod,
		MealPeriodID: "lunch",
		Mode:         models.OverrideModeReplace,
		Items: []models.SingleUseItem{
			{ID: "bbq-1", RecipeID: "brisket", Category: "entree"},
			{ID: "bbq-2", MealPeriodID: "dinner", RecipeID: "ribs", Category: "entree"},
		},
	}}

	menu, err := ResolveMenu(twoWeekCycle(), overrides, date, "main")
	require.NoError(t, err)

	// Breakfast survives; lunch is swapped; the out-of-scope dinner item is dropped.
	assert.Equal(t, []string{"oatmeal", "brisket"}, recipeIDs(menu))
	assert.Equal(t, "bbq-1", menu.Items[1].Source.SingleUseItemID)
}

func TestResolveMenu_OverrideFiltering(t *testing.T) {
	date := util.MustParseDate("2026-01-05")
	overrides := []models.SingleUseMenu{
		{ID: "other-site", SiteID: "annex", ServiceDate: date, Scope: models.OverrideScopeDay, Mode: models.OverrideModeReplace},
		{ID: "other-day", ServiceDate: util.AddDays(date, 1), Scope: models.OverrideScopeDay, Mode: models.OverrideModeReplace},
		{ID: "all-sites", ServiceDate: date, Scope: models.OverrideScopeDay, Mode: models.OverrideModeSupplement,
			Items: []models.SingleUseItem{{ID: "fruit", MealPeriodID: "breakfast", RecipeID: "fruit-cup", Category: "side"}}},
	}

	menu, err := ResolveMenu(twoWeekCycle(), overrides, date, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"oatmeal", "tacos", "chili", "fruit-cup"}, recipeIDs(menu))
}

func TestResolveMenu_InvalidOverride(t *testing.T) {
	date := util.MustParseDate("2026-01-05")
	overrides := []models.SingleUseMenu{{ID: "bad", ServiceDate: date, Scope: models.OverrideScopeMealPeriod, Mode: models.OverrideModeReplace}}

	_, err := ResolveMenu(twoWeekCycle(), overrides, date, "main")
	require.Error(t, err)
}

func TestResolveMenu_DayItemWithoutMealPeriod(t *testing.T) {
	date := util.MustParseDate("2026-01-05")
	overrides := []models.SingleUseMenu{{
		ID: "holiday", ServiceDate: date, Scope: models.OverrideScopeDay, Mode: models.OverrideModeReplace,
		Items: []models.SingleUseItem{{ID: "r1", RecipeID: "roast"}},
	}}

	_, err := ResolveMenu(twoWeekCycle(), overrides, date, "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "override holiday")
}

func TestResolveMenu_NoCycle(t *testing.T) {
	date := util.MustParseDate("2026-01-05")
	overrides := []models.SingleUseMenu{{
		ID: "popup", ServiceDate: date, Scope: models.OverrideScopeDay, Mode: models.OverrideModeSupplement,
		Items: []models.SingleUseItem{{ID: "p1", MealPeriodID: "lunch", RecipeID: "ramen", Category: "entree"}},
	}}

	menu, err := ResolveMenu(nil, overrides, date, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"ramen"}, recipeIDs(menu))
}

func TestResolveMenu_PositionsAndProvenance(t *testing.T) {
	menu, err := ResolveMenu(twoWeekCycle(), nil, util.MustParseDate("2026-01-05"), "main")
	require.NoError(t, err)

	positions := map[string]int{}
	for _, it := range menu.Items {
		positions[it.RecipeID] = it.Position
		require.NoError(t, it.Source.Validate())
	}
	assert.Equal(t, map[string]int{"oatmeal": 0, "tacos": 0, "chili": 1}, positions)
}

type fakeSource struct {
	cycle     *models.CycleMenu
	overrides []models.SingleUseMenu
	err       error
}

func (f *fakeSource) ActiveCycle(_ context.Context, _ string) (*models.CycleMenu, error) {
	return f.cycle, f.err
}

func (f *fakeSource) Overrides(_ context.Context, _ string, _ time.Time) ([]models.SingleUseMenu, error) {
	return f.overrides, nil
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(&fakeSource{cycle: twoWeekCycle()}, nil)

	menu, err := r.Resolve(context.Background(), util.MustParseDate("2026-01-20"), "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"soup"}, recipeIDs(menu))
	assert.Equal(t, "main", menu.SiteID)

	empty, err := r.Resolve(context.Background(), util.MustParseDate("2026-01-13"), "main")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	boom := errors.New("db down")
	_, err = NewResolver(&fakeSource{err: boom}, nil).Resolve(context.Background(), time.Now(), "main")
	require.ErrorIs(t, err, boom)
}
