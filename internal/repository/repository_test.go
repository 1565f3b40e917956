package repository

import (
	"context"
	"testing"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/testutil"
)

// kitchen is a migrated store with one site, one lunch period, one
// ingredient and one recipe.
type kitchen struct {
	db    *testutil.TestDB
	store *Store
	site  *models.Site
	lunch *models.MealPeriod
	rice  *models.Ingredient
	pilaf *models.Recipe
}

func newKitchen(t *testing.T) *kitchen {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewMigratedDB(t)
	k := &kitchen{db: db, store: NewStore(db.DB.DB)}

	k.site = testutil.FixtureSite()
	k.lunch = testutil.FixtureMealPeriod(k.site.ID)
	k.rice = testutil.FixtureIngredient()
	k.pilaf = testutil.FixtureRecipe(k.rice.ID)

	if err := k.store.Sites.CreateSite(ctx, nil, k.site); err != nil {
		t.Fatalf("CreateSite: %v", err)
	}
	if err := k.store.Sites.CreateMealPeriod(ctx, nil, k.lunch); err != nil {
		t.Fatalf("CreateMealPeriod: %v", err)
	}
	if err := k.store.Recipes.CreateIngredient(ctx, nil, k.rice); err != nil {
		t.Fatalf("CreateIngredient: %v", err)
	}
	if err := k.store.Recipes.CreateRecipe(ctx, nil, k.pilaf); err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	return k
}
