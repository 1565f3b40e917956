package recipes

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/units"
)

func chiliRecipe() *models.Recipe {
	return &models.Recipe{
		ID:            "chili",
		Name:          "Turkey Chili",
		YieldQuantity: 10,
		Ingredients: []models.RecipeIngredient{
			{IngredientID: "beans", Name: "Kidney beans", Quantity: 2, Unit: "cup"},
			{IngredientID: "turkey", Name: "Ground turkey", Quantity: 1.5, Unit: "lb"},
			{IngredientID: "cumin", Name: "Cumin", Quantity: 1, Unit: "tsp", IsSeasoning: true},
		},
	}
}

func TestScale_TwoCupsToYield25(t *testing.T) {
	scaled, err := Scale(chiliRecipe(), 25)
	require.NoError(t, err)

	assert.Equal(t, 2.5, scaled.ScaleFactor)
	beans := scaled.Ingredients[0]
	assert.Equal(t, 5.0, beans.Quantity)
	assert.Equal(t, 5.0, beans.PracticalQuantity)
	assert.Equal(t, "5 cup", beans.Display())
	assert.Empty(t, scaled.Warnings)
}

func TestScale_SeasoningWarning(t *testing.T) {
	tests := []struct {
		name      string
		target    float64
		wantWarns int
	}{
		{"factor exactly 4 is not flagged", 40, 0},
		{"factor above 4 is flagged", 50, 1},
		{"scaling down is never flagged", 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaled, err := Scale(chiliRecipe(), tt.target)
			require.NoError(t, err)
			assert.Len(t, scaled.Warnings, tt.wantWarns)

			// Warnings never change the quantity.
			cumin := scaled.Ingredients[2]
			assert.InDelta(t, scaled.ScaleFactor, cumin.Quantity, 1e-9)
		})
	}
}

func TestScale_InvalidYield(t *testing.T) {
	r := chiliRecipe()
	r.YieldQuantity = 0
	_, err := Scale(r, 10)
	require.ErrorIs(t, err, ErrInvalidYield)

	_, err = Scale(chiliRecipe(), -1)
	require.ErrorIs(t, err, ErrInvalidYield)
}

func TestPracticalRound(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{5, 5},
		{2.1, 2},
		{2.2, 2.25},
		{2.3, 2 + 1.0/3},
		{2.45, 2.5},
		{2.6, 2 + 2.0/3},
		{2.8, 2.75},
		{2.95, 2.75}, // the integer part is preserved
		{0.12, 0},
		{4.9999999999, 5},
		{-1, 0},
	}

	for _, tt := range tests {
		t.Run(FormatQuantity(tt.want), func(t *testing.T) {
			assert.InDelta(t, tt.want, PracticalRound(tt.in), 1e-9)
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "3", FormatQuantity(3))
	assert.Equal(t, "1/2", FormatQuantity(0.5))
	assert.Equal(t, "2 2/3", FormatQuantity(2+2.0/3))
	assert.Equal(t, "1.10", FormatQuantity(1.1))
}

func TestCost(t *testing.T) {
	conv := units.NewConverter()
	ingredients := map[string]*models.Ingredient{
		"beans":  {ID: "beans", Unit: "cup", UnitCost: decimal.RequireFromString("0.80")},
		"turkey": {ID: "turkey", Unit: "oz", UnitCost: decimal.RequireFromString("0.25")},
	}

	rc, err := Cost(chiliRecipe(), ingredients, conv)
	require.NoError(t, err)

	// 2 cup * 0.80 + 24 oz * 0.25
	assert.True(t, decimal.RequireFromString("7.6").Equal(rc.Total), "total %s", rc.Total)
	assert.True(t, decimal.RequireFromString("0.76").Equal(rc.PerPortion), "per portion %s", rc.PerPortion)
	assert.Equal(t, []string{"cumin"}, rc.Missing)
	require.Len(t, rc.Lines, 2)
	assert.InDelta(t, 24, rc.Lines[1].StockQuantity, 1e-9)
}

func TestCost_Unconvertible(t *testing.T) {
	ingredients := map[string]*models.Ingredient{
		"beans": {ID: "beans", Unit: "kg", UnitCost: decimal.RequireFromString("3")},
	}
	_, err := Cost(chiliRecipe(), ingredients, units.NewConverter())
	require.ErrorIs(t, err, units.ErrUnconvertibleUnits)
}
