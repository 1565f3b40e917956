// Package menu resolves cycle menus and single-use overrides into the concrete
// menu served on a calendar date.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

// ErrInvalidCycleConfiguration is returned for a cycle with a non-positive length.
var ErrInvalidCycleConfiguration = errors.New("invalid cycle configuration")

// MenuSource provides the menus the resolver merges.
type MenuSource interface {
	// ActiveCycle returns the site's active cycle menu, or nil if there is none.
	ActiveCycle(ctx context.Context, siteID string) (*models.CycleMenu, error)
	// Overrides returns single-use menus for the date that apply to the site.
	Overrides(ctx context.Context, siteID string, date time.Time) ([]models.SingleUseMenu, error)
}

// Resolver reads menus through a MenuSource and resolves them for a date.
type Resolver struct {
	source MenuSource
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil logger uses slog.Default().
func NewResolver(source MenuSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, logger: logger}
}

// Resolve returns the menu served at siteID on date.
func (r *Resolver) Resolve(ctx context.Context, date time.Time, siteID string) (*models.ResolvedMenu, error) {
	cycle, err := r.source.ActiveCycle(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("loading active cycle: %w", err)
	}
	overrides, err := r.source.Overrides(ctx, siteID, date)
	if err != nil {
		return nil, fmt.Errorf("loading overrides: %w", err)
	}

	menu, err := ResolveMenu(cycle, overrides, date, siteID)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("menu resolved",
		"site", siteID,
		"date", util.FormatDate(date),
		"items", len(menu.Items),
		"overrides", len(overrides),
	)
	return menu, nil
}

// Position returns the cycle week (1-based) and weekday for date. Dates before
// the cycle start wrap backwards. The weekday is the calendar weekday of date,
// which matches the cycle's own weekday only when cycles start on a fixed day.
func Position(cycle *models.CycleMenu, date time.Time) (int, time.Weekday, error) {
	if cycle.LengthWeeks <= 0 {
		return 0, 0, fmt.Errorf("%w: cycle %s has length %d weeks",
			ErrInvalidCycleConfiguration, cycle.ID, cycle.LengthWeeks)
	}
	total := cycle.LengthWeeks * 7
	days := util.DaysBetween(cycle.StartDate, date)
	position := ((days % total) + total) % total
	return position/7 + 1, date.Weekday(), nil
}

// ResolveMenu merges a cycle menu (nil for none) with the date's overrides.
// All REPLACE overrides are applied before any SUPPLEMENT, whatever their order
// in overrides.
func ResolveMenu(cycle *models.CycleMenu, overrides []models.SingleUseMenu, date time.Time, siteID string) (*models.ResolvedMenu, error) {
	menu := &models.ResolvedMenu{Date: util.StartOfDay(date), SiteID: siteID}

	if cycle != nil {
		week, weekday, err := Position(cycle, date)
		if err != nil {
			return nil, err
		}
		base := make([]models.MenuItem, 0)
		for _, item := range cycle.Items {
			if item.WeekNumber == week && item.DayOfWeek == weekday {
				base = append(base, item)
			}
		}
		sort.SliceStable(base, func(i, j int) bool { return base[i].SortOrder < base[j].SortOrder })
		for _, item := range base {
			menu.Items = append(menu.Items, models.ResolvedItem{
				RecipeID:     item.RecipeID,
				MealPeriodID: item.MealPeriodID,
				Category:     item.Category,
				Source:       models.SourceRef{CycleItemID: item.ID},
			})
		}
	}

	applicable := make([]models.SingleUseMenu, 0, len(overrides))
	for _, o := range overrides {
		if !util.IsSameDay(o.ServiceDate, date) || !o.AppliesToSite(siteID) {
			continue
		}
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("override %s: %w", o.ID, err)
		}
		applicable = append(applicable, o)
	}

	// Replacements only ever discard cycle items, so two replacements on one
	// date keep each other's items.
	var replacements []models.ResolvedItem
	for _, o := range applicable {
		if o.Mode == models.OverrideModeReplace {
			menu.Items = discardReplaced(menu.Items, o)
			replacements = append(replacements, overrideItems(o)...)
		}
	}
	menu.Items = append(menu.Items, replacements...)
	for _, o := range applicable {
		if o.Mode == models.OverrideModeSupplement {
			menu.Items = append(menu.Items, overrideItems(o)...)
		}
	}

	assignPositions(menu.Items)
	return menu, nil
}

// discardReplaced removes the base items covered by a replace override.
func discardReplaced(items []models.ResolvedItem, o models.SingleUseMenu) []models.ResolvedItem {
	kept := items[:0:0]
	if o.Scope == models.OverrideScopeMealPeriod {
		for _, it := range items {
			if it.MealPeriodID != o.MealPeriodID {
				kept = append(kept, it)
			}
		}
	}
	return kept
}

// overrideItems converts override items, restricted to the override's scope.
func overrideItems(o models.SingleUseMenu) []models.ResolvedItem {
	src := make([]models.SingleUseItem, len(o.Items))
	copy(src, o.Items)
	sort.SliceStable(src, func(i, j int) bool { return src[i].SortOrder < src[j].SortOrder })

	out := make([]models.ResolvedItem, 0, len(src))
	for _, item := range src {
		mp := item.MealPeriodID
		if o.Scope == models.OverrideScopeMealPeriod {
			if mp == "" {
				mp = o.MealPeriodID
			}
			if mp != o.MealPeriodID {
				continue
			}
		}
		out = append(out, models.ResolvedItem{
			RecipeID:     item.RecipeID,
			MealPeriodID: mp,
			Category:     item.Category,
			Source:       models.SourceRef{SingleUseItemID: item.ID},
		})
	}
	return out
}

func assignPositions(items []models.ResolvedItem) {
	next := make(map[[2]string]int)
	for i := range items {
		key := [2]string{items[i].MealPeriodID, items[i].Category}
		items[i].Position = next[key]
		next[key]++
	}
}
