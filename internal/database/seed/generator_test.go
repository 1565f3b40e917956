package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleyops/galley/internal/refdata"
	"github.com/galleyops/galley/internal/util"
)

func loadKitchen(t *testing.T) *refdata.Dataset {
	t.Helper()
	ds, err := refdata.LoadFile("../../refdata/testdata/kitchen.yaml")
	require.NoError(t, err)
	return ds
}

func TestGenerate_Shape(t *testing.T) {
	ds := loadKitchen(t)
	cfg := DefaultConfig(util.MustParseDate("2026-01-19"))
	cfg.Days = 14

	g, err := NewGenerator(ds, cfg, nil)
	require.NoError(t, err)
	h, err := g.Generate(context.Background())
	require.NoError(t, err)

	// One site, two meal periods.
	require.Len(t, h.Census, 28)
	first := h.Census[0]
	assert.Equal(t, "2026-01-05", util.FormatDate(first.Date))
	assert.Equal(t, "breakfast", first.MealPeriodID)
	last := h.Census[len(h.Census)-1]
	assert.Equal(t, "2026-01-18", util.FormatDate(last.Date))

	for _, c := range h.Census {
		assert.GreaterOrEqual(t, c.Count, 0)
	}
	for _, s := range h.Selections {
		assert.LessOrEqual(t, s.Selected, s.Census, "%s on %s", s.RecipeID, util.FormatDate(s.Date))
		assert.GreaterOrEqual(t, s.Selected, 0)
	}
	for _, u := range h.Usage {
		assert.Greater(t, u.Quantity, 0.0)
	}
}

func TestGenerate_FollowsTheCycle(t *testing.T) {
	ds := loadKitchen(t)
	cfg := DefaultConfig(util.MustParseDate("2026-01-19"))
	cfg.Days = 14

	g, err := NewGenerator(ds, cfg, nil)
	require.NoError(t, err)
	h, err := g.Generate(context.Background())
	require.NoError(t, err)

	byRecipe := make(map[string][]string)
	for _, s := range h.Selections {
		byRecipe[s.RecipeID] = append(byRecipe[s.RecipeID], util.FormatDate(s.Date))
	}
	// Week 1 Monday serves oatmeal, chili and salad. Week 2 Monday serves wings.
	assert.Equal(t, []string{"2026-01-05"}, byRecipe["oatmeal"])
	assert.Equal(t, []string{"2026-01-05"}, byRecipe["chili"])
	assert.Equal(t, []string{"2026-01-05"}, byRecipe["salad"])
	assert.Equal(t, []string{"2026-01-12"}, byRecipe["wings"])

	used := make(map[string]bool)
	for _, u := range h.Usage {
		if util.FormatDate(u.Date) == "2026-01-05" {
			used[u.IngredientID] = true
		}
	}
	// Chili pulls in its stock component, so bones are consumed too.
	for _, id := range []string{"oats", "milk", "turkey", "beans", "cumin", "romaine", "bones"} {
		assert.True(t, used[id], "expected usage of %s", id)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	ds := loadKitchen(t)
	cfg := DefaultConfig(util.MustParseDate("2026-01-19"))

	run := func() *History {
		g, err := NewGenerator(ds, cfg, nil)
		require.NoError(t, err)
		h, err := g.Generate(context.Background())
		require.NoError(t, err)
		return h
	}
	assert.Equal(t, run(), run())

	cfg.RandomSeed++
	g, err := NewGenerator(ds, cfg, nil)
	require.NoError(t, err)
	other, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, run().Census, other.Census)
}

func TestGenerate_Cancelled(t *testing.T) {
	g, err := NewGenerator(loadKitchen(t), DefaultConfig(util.MustParseDate("2026-01-19")), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGenerator_RejectsBadConfig(t *testing.T) {
	ds := loadKitchen(t)
	cfg := DefaultConfig(util.MustParseDate("2026-01-19"))
	cfg.Days = 0
	_, err := NewGenerator(ds, cfg, nil)
	assert.Error(t, err)
}
