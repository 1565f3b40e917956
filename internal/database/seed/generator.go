package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/galleyops/galley/internal/menu"
	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/recipes"
	"github.com/galleyops/galley/internal/refdata"
	"github.com/galleyops/galley/internal/units"
	"github.com/galleyops/galley/internal/util"
)

// Config configures the history generator.
type Config struct {
	End        time.Time // first day NOT generated
	Days       int
	BaseCensus int
	Noise      float64 // relative standard deviation of census and shares
	RandomSeed int64
}

// DefaultConfig returns eight weeks of history ending the day before end.
func DefaultConfig(end time.Time) Config {
	return Config{
		End:        util.StartOfDay(end),
		Days:       56,
		BaseCensus: 120,
		Noise:      0.08,
		RandomSeed: 2026,
	}
}

// History is the generated observation set.
type History struct {
	Census     []models.CensusObservation
	Selections []models.SelectionObservation
	Usage      []models.UsageObservation
}

// Generator synthesizes census, selection and usage history that is
// consistent with a dataset's menus and recipes.
type Generator struct {
	ds     *refdata.Dataset
	cfg    Config
	rng    *rand.Rand
	conv   *units.Converter
	logger *slog.Logger

	recipes     map[string]*models.Recipe
	ingredients map[string]*models.Ingredient
}

// NewGenerator prepares a generator for ds.
func NewGenerator(ds *refdata.Dataset, cfg Config, logger *slog.Logger) (*Generator, error) {
	if cfg.Days <= 0 {
		return nil, errors.New("days must be positive")
	}
	if cfg.BaseCensus < 0 {
		return nil, errors.New("base census must be non-negative")
	}
	if logger == nil {
		logger = slog.Default()
	}

	conv := units.NewConverter()
	if err := ds.Register(conv); err != nil {
		return nil, err
	}

	g := &Generator{
		ds:          ds,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(cfg.RandomSeed)),
		conv:        conv,
		logger:      logger,
		recipes:     make(map[string]*models.Recipe, len(ds.Recipes)),
		ingredients: make(map[string]*models.Ingredient, len(ds.Ingredients)),
	}
	for i := range ds.Recipes {
		g.recipes[ds.Recipes[i].ID] = &ds.Recipes[i]
	}
	for i := range ds.Ingredients {
		g.ingredients[ds.Ingredients[i].ID] = &ds.Ingredients[i]
	}
	return g, nil
}

// Generate produces the history. The same dataset and seed always yield the
// same observations.
func (g *Generator) Generate(ctx context.Context) (*History, error) {
	h := &History{}
	start := util.AddDays(util.StartOfDay(g.cfg.End), -g.cfg.Days)

	for _, date := range util.DateRange(start, g.cfg.Days) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, site := range g.ds.Sites {
			if err := g.generateDay(h, site.ID, date); err != nil {
				return nil, fmt.Errorf("generating %s for %s: %w", util.FormatDate(date), site.ID, err)
			}
		}
	}

	g.logger.Info("history synthesized",
		"days", g.cfg.Days,
		"census", len(h.Census),
		"selections", len(h.Selections),
		"usage", len(h.Usage),
	)
	return h, nil
}

func (g *Generator) generateDay(h *History, siteID string, date time.Time) error {
	var resolved *models.ResolvedMenu
	cycle := g.activeCycle(siteID)
	overrides := g.overridesOn(siteID, date)
	if cycle != nil || len(overrides) > 0 {
		m, err := menu.ResolveMenu(cycle, overrides, date, siteID)
		if err != nil {
			return err
		}
		resolved = m
	}

	usage := make(map[string]float64)
	for _, mp := range g.mealPeriods(siteID) {
		census := g.census(date, mp)
		h.Census = append(h.Census, models.CensusObservation{
			Date: date, SiteID: siteID, MealPeriodID: mp.ID, Count: census,
		})
		if resolved == nil {
			continue
		}
		for _, item := range resolved.ForMealPeriod(mp.ID) {
			selected := g.selected(census, item, resolved.AlternativesIn(mp.ID, item.Category))
			h.Selections = append(h.Selections, models.SelectionObservation{
				Date: date, SiteID: siteID, MealPeriodID: mp.ID,
				RecipeID: item.RecipeID, Selected: selected, Census: census,
			})
			if err := g.consume(usage, item.RecipeID, float64(selected), map[string]bool{}); err != nil {
				return err
			}
		}
	}

	ids := make([]string, 0, len(usage))
	for id := range usage {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if q := math.Round(usage[id]*1000) / 1000; q > 0 {
			h.Usage = append(h.Usage, models.UsageObservation{
				Date: date, SiteID: siteID, IngredientID: id, Quantity: q,
			})
		}
	}
	return nil
}

func (g *Generator) census(date time.Time, mp models.MealPeriod) int {
	mean := float64(g.cfg.BaseCensus) * weekdayFactor(date.Weekday()) * mealPeriodFactor(mp.Name)
	return int(math.Max(0, math.Round(mean*g.jitter())))
}

func (g *Generator) selected(census int, item models.ResolvedItem, alternatives int) int {
	if alternatives < 1 {
		alternatives = 1
	}
	share := categoryShare(item.Category) / float64(alternatives)
	if item.Position == 0 && alternatives > 1 {
		share *= 1.1
	}
	n := math.Round(float64(census) * share * g.jitter())
	return int(math.Min(float64(census), math.Max(0, n)))
}

func (g *Generator) jitter() float64 {
	return 1 + g.cfg.Noise*g.rng.NormFloat64()
}

// consume adds the stock-unit ingredient usage of producing portions of a
// recipe. Components are made one batch per parent batch.
func (g *Generator) consume(usage map[string]float64, recipeID string, portions float64, path map[string]bool) error {
	r, ok := g.recipes[recipeID]
	if !ok || r.YieldQuantity <= 0 || portions <= 0 || path[recipeID] {
		return nil
	}
	path[recipeID] = true
	defer delete(path, recipeID)

	scale := portions / r.YieldQuantity
	for _, line := range r.Ingredients {
		ing, ok := g.ingredients[line.IngredientID]
		if !ok {
			continue
		}
		qty, err := recipes.ToStockUnit(g.conv, line.Quantity*scale, line.Unit, ing)
		if err != nil {
			return err
		}
		usage[ing.ID] += qty
	}

	batches := math.Ceil(scale)
	for _, compID := range r.Components {
		comp, ok := g.recipes[compID]
		if !ok {
			continue
		}
		if err := g.consume(usage, compID, batches*comp.YieldQuantity, path); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) activeCycle(siteID string) *models.CycleMenu {
	for i := range g.ds.CycleMenus {
		c := &g.ds.CycleMenus[i]
		if c.SiteID == siteID && c.Status == models.CycleMenuStatusActive {
			return c
		}
	}
	return nil
}

func (g *Generator) overridesOn(siteID string, date time.Time) []models.SingleUseMenu {
	var out []models.SingleUseMenu
	for _, o := range g.ds.Overrides {
		if o.AppliesToSite(siteID) && util.IsSameDay(o.ServiceDate, date) {
			out = append(out, o)
		}
	}
	return out
}

func (g *Generator) mealPeriods(siteID string) []models.MealPeriod {
	var out []models.MealPeriod
	for _, mp := range g.ds.MealPeriods {
		if mp.SiteID == siteID {
			out = append(out, mp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}
