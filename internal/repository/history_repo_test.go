package repository

import (
	"context"
	"testing"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/testutil"
)

func TestHistoryRepository_CensusWindow(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()
	day := testutil.FixtureDate

	for i := 0; i < 10; i++ {
		err := k.store.History.RecordCensus(ctx, nil, models.CensusObservation{
			Date: day.AddDate(0, 0, i), SiteID: k.site.ID, MealPeriodID: k.lunch.ID, Count: 100 + i,
		})
		if err != nil {
			t.Fatalf("RecordCensus: %v", err)
		}
	}

	// [day+3, day+8)
	got, err := k.store.History.CensusHistory(ctx, k.site.ID, k.lunch.ID, day.AddDate(0, 0, 8), 5)
	if err != nil {
		t.Fatalf("CensusHistory: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 observations, got %d", len(got))
	}
	if got[0].Count != 103 || got[4].Count != 107 {
		t.Errorf("window = %d..%d, want 103..107", got[0].Count, got[4].Count)
	}
	if got[0].SiteID != k.site.ID || got[0].MealPeriodID != k.lunch.ID {
		t.Errorf("observation keys not filled: %+v", got[0])
	}
}

func TestHistoryRepository_RecordReplaces(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()
	obs := models.CensusObservation{Date: testutil.FixtureDate, SiteID: k.site.ID, MealPeriodID: k.lunch.ID, Count: 80}

	if err := k.store.History.RecordCensus(ctx, nil, obs); err != nil {
		t.Fatalf("RecordCensus: %v", err)
	}
	obs.Count = 95
	if err := k.store.History.RecordCensus(ctx, nil, obs); err != nil {
		t.Fatalf("RecordCensus: %v", err)
	}

	got, err := k.store.History.CensusHistory(ctx, k.site.ID, k.lunch.ID, testutil.FixtureDate.AddDate(0, 0, 1), 7)
	if err != nil {
		t.Fatalf("CensusHistory: %v", err)
	}
	if len(got) != 1 || got[0].Count != 95 {
		t.Errorf("expected the later count to win, got %+v", got)
	}
}

func TestHistoryRepository_SelectionsAndUsage(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()
	before := testutil.FixtureDate.AddDate(0, 0, 7)

	n, err := k.store.RecordHistory(ctx, nil,
		[]models.SelectionObservation{
			{Date: testutil.FixtureDate, SiteID: k.site.ID, MealPeriodID: k.lunch.ID, RecipeID: k.pilaf.ID, Selected: 30, Census: 100},
			{Date: before, SiteID: k.site.ID, MealPeriodID: k.lunch.ID, RecipeID: k.pilaf.ID, Selected: 99, Census: 100},
		},
		[]models.UsageObservation{
			{Date: testutil.FixtureDate, SiteID: k.site.ID, IngredientID: k.rice.ID, Quantity: 3.5},
		},
	)
	if err != nil {
		t.Fatalf("RecordHistory: %v", err)
	}
	if n != 3 {
		t.Errorf("recorded %d observations, want 3", n)
	}

	sel, err := k.store.History.SelectionHistory(ctx, k.site.ID, k.pilaf.ID, before, 7)
	if err != nil {
		t.Fatalf("SelectionHistory: %v", err)
	}
	if len(sel) != 1 || sel[0].Fraction() != 0.3 {
		t.Errorf("selections = %+v, want only the in-window 30%%", sel)
	}

	usage, err := k.store.History.UsageHistory(ctx, k.site.ID, k.rice.ID, before, 7)
	if err != nil {
		t.Fatalf("UsageHistory: %v", err)
	}
	if len(usage) != 1 || usage[0].Quantity != 3.5 {
		t.Errorf("usage = %+v", usage)
	}
}
