package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

func pantry() []models.Ingredient {
	return []models.Ingredient{
		{ID: "rice", Name: "Rice", Unit: "lb", ParLevel: 100, ReorderPoint: 40, PackSize: 25, UnitCost: decimal.RequireFromString("0.80"), VendorID: "sysco"},
		{ID: "eggs", Name: "Eggs", Unit: "each", ParLevel: 360, ReorderPoint: 120, UnitCost: decimal.RequireFromString("0.15")},
		{ID: "salt", Name: "Salt", Unit: "lb", ParLevel: 20, ReorderPoint: 5, PackSize: 10, UnitCost: decimal.RequireFromString("0.50")},
	}
}

func TestGenerate(t *testing.T) {
	asOf := util.MustParseDate("2026-01-05")
	onHand := map[string]float64{"rice": 60, "eggs": 100, "salt": 18}
	projected := map[string]float64{"rice": 30, "eggs": 150, "salt": 2}

	draft := Generate("main", asOf, pantry(), onHand, projected)

	assert.Equal(t, "main", draft.SiteID)
	assert.Equal(t, asOf, draft.AsOf)
	require.Len(t, draft.Lines, 2)

	eggs := draft.Lines[0]
	assert.Equal(t, "eggs", eggs.IngredientID)
	// Shortfall of 50, so 360 - (-50).
	assert.Equal(t, 410.0, eggs.OrderQuantity)
	assert.Contains(t, eggs.Reason, "shortfall")
	assert.True(t, decimal.RequireFromString("61.5").Equal(eggs.EstimatedCost))

	rice := draft.Lines[1]
	assert.Equal(t, "rice", rice.IngredientID)
	// 30 left is under the reorder point; 70 to par rounds up to 3 sacks.
	assert.Equal(t, 75.0, rice.OrderQuantity)
	assert.Equal(t, 60.0, rice.OnHand)
	assert.Equal(t, 30.0, rice.ProjectedUsage)
	assert.Equal(t, "sysco", rice.VendorID)
	assert.True(t, decimal.RequireFromString("60").Equal(rice.EstimatedCost))

	assert.True(t, decimal.RequireFromString("121.5").Equal(draft.EstimatedTotal()))
}

func TestGenerate_AtReorderPointOrders(t *testing.T) {
	ing := []models.Ingredient{{ID: "oil", Unit: "l", ParLevel: 30, ReorderPoint: 10}}
	draft := Generate("main", util.MustParseDate("2026-01-05"), ing,
		map[string]float64{"oil": 15}, map[string]float64{"oil": 5})

	require.Len(t, draft.Lines, 1)
	assert.Equal(t, 20.0, draft.Lines[0].OrderQuantity)
}

func TestGenerate_NoParUsesReorderPoint(t *testing.T) {
	ing := []models.Ingredient{{ID: "flour", Unit: "lb", ReorderPoint: 50}}
	draft := Generate("main", util.MustParseDate("2026-01-05"), ing,
		map[string]float64{"flour": 20}, nil)

	require.Len(t, draft.Lines, 1)
	assert.Equal(t, 30.0, draft.Lines[0].OrderQuantity)
}

func TestGenerate_RaisedToEOQ(t *testing.T) {
	ing := []models.Ingredient{{
		ID: "beef", Unit: "lb", ParLevel: 100, ReorderPoint: 60,
		OrderingCost: decimal.RequireFromString("50"), HoldingCostPercent: 0.2, UnitCost: decimal.RequireFromString("10"),
	}}
	onHand := map[string]float64{"beef": 50}

	plain := Generate("main", util.MustParseDate("2026-01-05"), ing, onHand, nil)
	require.Len(t, plain.Lines, 1)
	assert.Equal(t, 50.0, plain.Lines[0].OrderQuantity)

	withEOQ := Generate("main", util.MustParseDate("2026-01-05"), ing, onHand, nil,
		WithAnnualDemand(map[string]float64{"beef": 1200}))
	require.Len(t, withEOQ.Lines, 1)
	assert.Equal(t, 244.95, withEOQ.Lines[0].OrderQuantity)
	assert.Contains(t, withEOQ.Lines[0].Reason, "EOQ")

	// EOQ that cannot be computed leaves the par quantity alone.
	ing[0].UnitCost = decimal.Zero
	noEOQ := Generate("main", util.MustParseDate("2026-01-05"), ing, onHand, nil,
		WithAnnualDemand(map[string]float64{"beef": 1200}))
	assert.Equal(t, 50.0, noEOQ.Lines[0].OrderQuantity)
}

func TestAnnualDemand(t *testing.T) {
	assert.Equal(t, 0.0, AnnualDemand(nil))
	assert.InDelta(t, 3650, AnnualDemand([]float64{8, 12}), 1e-9)
}

func TestRoundToPack(t *testing.T) {
	tests := []struct {
		qty, pack, want float64
	}{
		{70, 25, 75},
		{50, 25, 50},
		{50.0000000001, 25, 50},
		{0.1, 12, 12},
		{12.345, 0, 12.35},
		{-3, 10, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, roundToPack(tt.qty, tt.pack), 1e-9, "qty %v pack %v", tt.qty, tt.pack)
	}
}
