package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/testutil"
)

func TestMenuRepository_ActiveCycleNoneIsNil(t *testing.T) {
	k := newKitchen(t)

	cm, err := k.store.Menus.ActiveCycle(context.Background(), k.site.ID)
	if err != nil {
		t.Fatalf("ActiveCycle: %v", err)
	}
	if cm != nil {
		t.Errorf("expected no active cycle, got %s", cm.ID)
	}
}

func TestMenuRepository_CreateAndGetCycle(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()

	cm := testutil.FixtureCycleMenu(k.site.ID, k.lunch.ID, k.pilaf.ID)
	if err := k.store.Menus.CreateCycleMenu(ctx, nil, cm); err != nil {
		t.Fatalf("CreateCycleMenu: %v", err)
	}
	if cm.Items[0].ID == "" {
		t.Error("item ID not assigned")
	}

	got, err := k.store.Menus.ActiveCycle(ctx, k.site.ID)
	if err != nil {
		t.Fatalf("ActiveCycle: %v", err)
	}
	if got == nil || got.ID != cm.ID {
		t.Fatalf("active cycle = %v, want %s", got, cm.ID)
	}
	if !got.StartDate.Equal(testutil.FixtureDate) {
		t.Errorf("start date = %v", got.StartDate)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got.Items))
	}
	it := got.Items[0]
	if it.DayOfWeek != time.Monday || it.RecipeID != k.pilaf.ID || it.Category != "entree" {
		t.Errorf("unexpected item %+v", it)
	}
}

func TestMenuRepository_ActivatingArchivesPrevious(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()

	first := testutil.FixtureCycleMenu(k.site.ID, k.lunch.ID, k.pilaf.ID)
	if err := k.store.Menus.CreateCycleMenu(ctx, nil, first); err != nil {
		t.Fatalf("CreateCycleMenu: %v", err)
	}
	second := testutil.FixtureCycleMenu(k.site.ID, k.lunch.ID, k.pilaf.ID, func(cm *models.CycleMenu) {
		cm.Status = models.CycleMenuStatusDraft
		cm.Version = 2
	})
	if err := k.store.Menus.CreateCycleMenu(ctx, nil, second); err != nil {
		t.Fatalf("CreateCycleMenu: %v", err)
	}

	if err := k.store.Menus.SetStatus(ctx, nil, second.ID, models.CycleMenuStatusActive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	active, err := k.store.Menus.ActiveCycle(ctx, k.site.ID)
	if err != nil {
		t.Fatalf("ActiveCycle: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active = %s, want %s", active.ID, second.ID)
	}
	old, err := k.store.Menus.GetCycleMenu(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetCycleMenu: %v", err)
	}
	if old.Status != models.CycleMenuStatusArchived {
		t.Errorf("previous cycle status = %s, want ARCHIVED", old.Status)
	}
}

func TestMenuRepository_SetStatusUnknownCycle(t *testing.T) {
	k := newKitchen(t)

	err := k.store.Menus.SetStatus(context.Background(), nil, "missing", models.CycleMenuStatusActive)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMenuRepository_AddCycleItem(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()

	draft := testutil.FixtureCycleMenu(k.site.ID, k.lunch.ID, k.pilaf.ID, func(cm *models.CycleMenu) {
		cm.Status = models.CycleMenuStatusDraft
		cm.LengthWeeks = 2
	})
	if err := k.store.Menus.CreateCycleMenu(ctx, nil, draft); err != nil {
		t.Fatalf("CreateCycleMenu: %v", err)
	}

	item := &models.MenuItem{WeekNumber: 2, DayOfWeek: time.Friday, MealPeriodID: k.lunch.ID, RecipeID: k.pilaf.ID}
	if err := k.store.Menus.AddCycleItem(ctx, draft.ID, item); err != nil {
		t.Fatalf("AddCycleItem: %v", err)
	}
	if err := k.store.Menus.AddCycleItem(ctx, draft.ID, &models.MenuItem{
		WeekNumber: 3, DayOfWeek: time.Friday, MealPeriodID: k.lunch.ID, RecipeID: k.pilaf.ID,
	}); err == nil {
		t.Error("expected week outside the cycle to be rejected")
	}

	if err := k.store.Menus.SetStatus(ctx, nil, draft.ID, models.CycleMenuStatusActive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	err := k.store.Menus.AddCycleItem(ctx, draft.ID, &models.MenuItem{
		WeekNumber: 1, DayOfWeek: time.Tuesday, MealPeriodID: k.lunch.ID, RecipeID: k.pilaf.ID,
	})
	if !errors.Is(err, ErrCycleNotEditable) {
		t.Errorf("expected ErrCycleNotEditable, got %v", err)
	}

	got, err := k.store.Menus.GetCycleMenu(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetCycleMenu: %v", err)
	}
	if len(got.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(got.Items))
	}
}

func TestMenuRepository_Overrides(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()
	date := testutil.FixtureDate.AddDate(0, 0, 14)

	local := testutil.FixtureOverride(k.site.ID, k.lunch.ID, k.pilaf.ID, date)
	global := testutil.FixtureOverride("", k.lunch.ID, k.pilaf.ID, date, func(m *models.SingleUseMenu) {
		m.Scope = models.OverrideScopeDay
		m.MealPeriodID = ""
		m.Mode = models.OverrideModeReplace
		m.Items = nil
	})
	other := testutil.FixtureOverride(k.site.ID, k.lunch.ID, k.pilaf.ID, date.AddDate(0, 0, 1))

	for _, m := range []*models.SingleUseMenu{local, global, other} {
		if err := k.store.Menus.CreateSingleUseMenu(ctx, nil, m); err != nil {
			t.Fatalf("CreateSingleUseMenu(%s): %v", m.ID, err)
		}
	}

	got, err := k.store.Menus.Overrides(ctx, k.site.ID, date)
	if err != nil {
		t.Fatalf("Overrides: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(got))
	}
	byID := map[string]models.SingleUseMenu{}
	for _, m := range got {
		byID[m.ID] = m
	}
	if m := byID[local.ID]; len(m.Items) != 1 || m.Mode != models.OverrideModeSupplement || m.MealPeriodID != k.lunch.ID {
		t.Errorf("local override = %+v", m)
	}
	if m := byID[global.ID]; m.SiteID != "" || len(m.Items) != 0 || m.Scope != models.OverrideScopeDay {
		t.Errorf("global override = %+v", m)
	}
}

func TestMenuRepository_OverrideValidation(t *testing.T) {
	k := newKitchen(t)

	bad := testutil.FixtureOverride(k.site.ID, "", k.pilaf.ID, testutil.FixtureDate)
	if err := k.store.Menus.CreateSingleUseMenu(context.Background(), nil, bad); err == nil {
		t.Error("expected meal period scope without a meal period to fail")
	}
}
