// Package pipeline runs the planning chain for a site and day: resolve the
// menu, forecast demand, schedule production, issue stock, check expirations
// and draft a purchase order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/galleyops/galley/internal/forecast"
	"github.com/galleyops/galley/internal/inventory"
	"github.com/galleyops/galley/internal/menu"
	"github.com/galleyops/galley/internal/metrics"
	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/procurement"
	"github.com/galleyops/galley/internal/production"
	"github.com/galleyops/galley/internal/recipes"
	"github.com/galleyops/galley/internal/units"
	"github.com/galleyops/galley/internal/util"
)

// Defaults for Options fields left at zero.
const (
	DefaultHistoryDays     = 56
	DefaultUsageWindowDays = 28
	DefaultWorkers         = 4
	DefaultServiceLevel    = 0.95
)

// ErrNoMealPeriods is returned for a site with nothing to serve.
var ErrNoMealPeriods = errors.New("site has no meal periods")

// SiteSource supplies site reference data.
type SiteSource interface {
	ListMealPeriods(ctx context.Context, siteID string) ([]models.MealPeriod, error)
}

// HistorySource supplies observations from the days before a date.
type HistorySource interface {
	CensusHistory(ctx context.Context, siteID, mealPeriodID string, before time.Time, days int) ([]models.CensusObservation, error)
	SelectionHistory(ctx context.Context, siteID, recipeID string, before time.Time, days int) ([]models.SelectionObservation, error)
	UsageHistory(ctx context.Context, siteID, ingredientID string, before time.Time, days int) ([]models.UsageObservation, error)
}

// Catalog looks up ingredients.
type Catalog interface {
	inventory.IngredientSource
	ListIngredients(ctx context.Context) ([]models.Ingredient, error)
}

// OutputStore persists finished plans.
type OutputStore interface {
	SavePlan(ctx context.Context, plan *DayPlan) error
	// HasIssued reports whether a stored plan for the day already issued stock.
	HasIssued(ctx context.Context, siteID string, date time.Time) (bool, error)
}

// Sources groups the data the planner reads and writes. Output may be nil.
type Sources struct {
	Menus       menu.MenuSource
	Sites       SiteSource
	History     HistorySource
	Recipes     production.RecipeSource
	Roster      production.RosterSource
	Ingredients Catalog
	Lots        inventory.LotStore
	Output      OutputStore
}

// Options tunes the planner.
type Options struct {
	Forecast        forecast.Config
	BufferMinutes   int
	HistoryDays     int
	UsageWindowDays int
	AlertWindowDays int
	ServiceLevel    float64 // for suggested par levels, in (0, 1)
	ApplyIssuance   bool
	Workers         int

	Converter *units.Converter
	Metrics   *metrics.Collector
	Logger    *slog.Logger
	Now       func() time.Time
}

// Planner runs the pipeline.
type Planner struct {
	src        Sources
	opts       Options
	resolver   *menu.Resolver
	forecaster *forecast.Forecaster
	scheduler  *production.Scheduler
	engine     *inventory.Engine
	logger     *slog.Logger
}

// NewPlanner wires the pipeline stages over src.
func NewPlanner(src Sources, opts Options) *Planner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Converter == nil {
		opts.Converter = units.NewConverter()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = DefaultHistoryDays
	}
	if opts.UsageWindowDays <= 0 {
		opts.UsageWindowDays = DefaultUsageWindowDays
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.ServiceLevel <= 0 || opts.ServiceLevel >= 1 {
		opts.ServiceLevel = DefaultServiceLevel
	}
	if opts.Forecast == (forecast.Config{}) {
		opts.Forecast = forecast.DefaultConfig()
	}

	return &Planner{
		src:        src,
		opts:       opts,
		resolver:   menu.NewResolver(src.Menus, opts.Logger),
		forecaster: forecast.New(opts.Forecast),
		scheduler:  production.NewScheduler(src.Recipes, src.Roster, opts.BufferMinutes, opts.Logger),
		engine:     inventory.NewEngine(src.Lots, src.Ingredients, opts.Logger),
		logger:     opts.Logger,
	}
}

// Engine exposes the inventory engine the planner issues through.
func (p *Planner) Engine() *inventory.Engine {
	return p.engine
}

// PlanRange plans every (day, site) pair from start for days days. Pairs run
// concurrently on at most Options.Workers goroutines; the first error cancels
// the rest. Plans are returned in date order, then site order.
func (p *Planner) PlanRange(ctx context.Context, start time.Time, days int, siteIDs []string) ([]*DayPlan, error) {
	if days <= 0 || len(siteIDs) == 0 {
		return nil, nil
	}
	dates := util.DateRange(util.StartOfDay(start), days)
	plans := make([]*DayPlan, len(dates)*len(siteIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, d := range dates {
		for j, site := range siteIDs {
			slot := i*len(siteIDs) + j
			g.Go(func() error {
				plan, err := p.RunDay(gctx, d, site)
				if err != nil {
					return fmt.Errorf("planning %s for %s: %w", site, util.FormatDate(d), err)
				}
				plans[slot] = plan
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// RunDay plans one site for one day.
func (p *Planner) RunDay(ctx context.Context, date time.Time, siteID string) (*DayPlan, error) {
	started := time.Now()
	plan, err := p.runDay(ctx, util.StartOfDay(date), siteID)
	if p.opts.Metrics != nil {
		p.opts.Metrics.PlanCompleted(siteID, time.Since(started), err)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("day planned",
		"site", siteID,
		"date", util.FormatDate(plan.Date),
		"menu_items", len(plan.Menu.Items),
		"census", plan.TotalCensus(),
		"tasks", plan.TaskCount(),
		"conflicts", len(plan.Conflicts()),
		"shortfalls", len(plan.Shortfalls()),
		"alerts", len(plan.Alerts),
		"po_lines", len(plan.PurchaseOrder.Lines),
	)
	return plan, nil
}

func (p *Planner) runDay(ctx context.Context, date time.Time, siteID string) (*DayPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	periods, err := p.src.Sites.ListMealPeriods(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing meal periods: %w", err)
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMealPeriods, siteID)
	}
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].SortOrder < periods[j].SortOrder })

	resolved, err := p.resolver.Resolve(ctx, date, siteID)
	if err != nil {
		return nil, fmt.Errorf("resolving menu: %w", err)
	}

	plan := &DayPlan{
		Date:      date,
		SiteID:    siteID,
		Menu:      resolved,
		Items:     make(map[string][]forecast.ItemForecast),
		ItemCosts: make(map[string]*recipes.RecipeCost),
		ParLevels: make(map[string]*inventory.ParLevelCalculation),
		CreatedAt: p.opts.Now(),
	}

	catalog, err := p.src.Ingredients.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing ingredients: %w", err)
	}
	ingredients := make(map[string]*models.Ingredient, len(catalog))
	for i := range catalog {
		ingredients[catalog[i].ID] = &catalog[i]
	}

	book := make(map[string]*models.Recipe)
	var requirements [][]production.Requirement

	for _, mp := range periods {
		menuItems := resolved.ForMealPeriod(mp.ID)
		if len(menuItems) == 0 {
			continue
		}

		planned, err := p.forecastMealPeriod(ctx, plan, mp, menuItems)
		if err != nil {
			return nil, err
		}
		if len(planned) == 0 {
			continue
		}

		schedule, err := p.scheduler.GenerateSchedule(ctx, date, siteID, mp, planned)
		if err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", mp.ID, err)
		}
		if p.opts.Metrics != nil {
			p.opts.Metrics.ScheduleBuilt(siteID, schedule)
		}
		plan.Schedules = append(plan.Schedules, schedule)

		if err := p.loadBook(ctx, book, schedule); err != nil {
			return nil, err
		}
		reqs, err := production.Requirements(schedule, book, ingredients, p.opts.Converter)
		if err != nil {
			return nil, fmt.Errorf("computing requirements for %s: %w", mp.ID, err)
		}
		requirements = append(requirements, reqs)
	}
	plan.Requirements = production.MergeRequirements(requirements...)

	for _, item := range resolved.Items {
		if _, done := plan.ItemCosts[item.RecipeID]; done {
			continue
		}
		r, ok := book[item.RecipeID]
		if !ok {
			continue
		}
		cost, err := recipes.Cost(r, ingredients, p.opts.Converter)
		if err != nil {
			p.logger.Warn("recipe not costed", "recipe", r.ID, "error", err)
			continue
		}
		plan.ItemCosts[r.ID] = cost
	}

	if p.opts.ApplyIssuance {
		if err := p.issue(ctx, plan, ingredients); err != nil {
			return nil, err
		}
	}

	if err := p.replenish(ctx, plan, catalog); err != nil {
		return nil, err
	}

	if p.src.Output != nil {
		if err := p.src.Output.SavePlan(ctx, plan); err != nil {
			return nil, fmt.Errorf("saving plan: %w", err)
		}
	}
	return plan, nil
}

// issue draws the day's requirements from stock. A day whose stored plan
// already issued is not issued again; its earlier issue records stand.
func (p *Planner) issue(ctx context.Context, plan *DayPlan, ingredients map[string]*models.Ingredient) error {
	if p.src.Output != nil {
		issued, err := p.src.Output.HasIssued(ctx, plan.SiteID, plan.Date)
		if err != nil {
			return fmt.Errorf("checking earlier issuance: %w", err)
		}
		if issued {
			p.logger.Warn("stock already issued for this day, not issuing again",
				"site", plan.SiteID,
				"date", util.FormatDate(plan.Date),
			)
			plan.IssuedEarlier = true
			return nil
		}
	}

	for _, req := range plan.Requirements {
		if _, known := ingredients[req.IngredientID]; !known {
			continue
		}
		result, err := p.engine.Issue(ctx, req.IngredientID, plan.SiteID, req.Quantity, plan.Date)
		if err != nil {
			return fmt.Errorf("issuing %s: %w", req.IngredientID, err)
		}
		if p.opts.Metrics != nil {
			p.opts.Metrics.Issued(result)
		}
		plan.Issues = append(plan.Issues, result)
	}
	return nil
}

// forecastMealPeriod forecasts the census and each item's portions, and
// returns the items worth producing.
func (p *Planner) forecastMealPeriod(ctx context.Context, plan *DayPlan, mp models.MealPeriod, items []models.ResolvedItem) ([]production.PlannedItem, error) {
	history, err := p.src.History.CensusHistory(ctx, plan.SiteID, mp.ID, plan.Date, p.opts.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("loading census history: %w", err)
	}
	census := p.forecaster.ForecastCensus(history, plan.Date, mp.ID, plan.SiteID)
	plan.Census = append(plan.Census, census)
	plan.Forecasts = append(plan.Forecasts, census.Record(plan.CreatedAt))

	var planned []production.PlannedItem
	for _, item := range items {
		selections, err := p.src.History.SelectionHistory(ctx, plan.SiteID, item.RecipeID, plan.Date, p.opts.HistoryDays)
		if err != nil {
			return nil, fmt.Errorf("loading selection history: %w", err)
		}
		position := forecast.MenuPosition{
			Index:        item.Position,
			Alternatives: plan.Menu.AlternativesIn(mp.ID, item.Category),
		}
		f := p.forecaster.ForecastItem(item.RecipeID, census.Count, position, forecast.ItemHistory{
			Observations: selections,
			AsOf:         plan.Date,
		})
		plan.Items[mp.ID] = append(plan.Items[mp.ID], f)
		plan.Forecasts = append(plan.Forecasts, f.Record(census, plan.CreatedAt))

		if f.Portions > 0 {
			planned = append(planned, production.PlannedItem{RecipeID: f.RecipeID, Portions: f.Portions})
		}
	}
	return planned, nil
}

// loadBook adds every recipe a schedule produces to book.
func (p *Planner) loadBook(ctx context.Context, book map[string]*models.Recipe, schedule *models.ProductionSchedule) error {
	for _, t := range schedule.Tasks {
		if _, ok := book[t.RecipeID]; ok {
			continue
		}
		r, err := p.src.Recipes.GetRecipe(ctx, t.RecipeID)
		if err != nil {
			return fmt.Errorf("loading recipe %s: %w", t.RecipeID, err)
		}
		book[t.RecipeID] = r
	}
	return nil
}

// replenish raises expiration alerts, suggests par levels from recent usage
// and drafts the purchase order. When
// issuance was applied the stock already reflects today's usage; otherwise
// the requirements count as projected usage.
func (p *Planner) replenish(ctx context.Context, plan *DayPlan, catalog []models.Ingredient) error {
	projected := make(map[string]float64)
	if !p.opts.ApplyIssuance {
		for _, r := range plan.Requirements {
			projected[r.IngredientID] += r.Quantity
		}
	}

	onHand := make(map[string]float64, len(catalog))
	demand := make(map[string]float64)
	var lots []models.InventoryLot

	for _, ing := range catalog {
		l, err := p.src.Lots.ListLots(ctx, ing.ID, plan.SiteID)
		if err != nil {
			return fmt.Errorf("listing lots for %s: %w", ing.ID, err)
		}
		lots = append(lots, l...)
		onHand[ing.ID] = inventory.Summarize(l, plan.Date).Usable

		usage, err := p.src.History.UsageHistory(ctx, plan.SiteID, ing.ID, plan.Date, p.opts.UsageWindowDays)
		if err != nil {
			return fmt.Errorf("loading usage for %s: %w", ing.ID, err)
		}
		if len(usage) == 0 {
			continue
		}
		daily := dailyUsage(usage, plan.Date, p.opts.UsageWindowDays)
		demand[ing.ID] = procurement.AnnualDemand(daily)
		par, err := inventory.ParLevel(daily, ing.LeadTimeDays, ing.DeliveryFrequencyDays, p.opts.ServiceLevel)
		if err != nil {
			p.logger.Debug("no par suggestion", "ingredient", ing.ID, "error", err)
			continue
		}
		plan.ParLevels[ing.ID] = par
	}

	plan.Alerts = inventory.CheckExpirations(lots, plan.Date, p.opts.AlertWindowDays)
	plan.PurchaseOrder = procurement.Generate(plan.SiteID, plan.Date, catalog, onHand, projected,
		procurement.WithAnnualDemand(demand))

	if p.opts.Metrics != nil {
		p.opts.Metrics.AlertsRaised(plan.SiteID, plan.Alerts)
		p.opts.Metrics.PurchaseOrderDrafted(plan.PurchaseOrder)
	}
	return nil
}

// dailyUsage spreads observations over the window before date, one slot per
// day, so days without usage count as zero.
func dailyUsage(obs []models.UsageObservation, before time.Time, window int) []float64 {
	days := make([]float64, window)
	start := util.AddDays(before, -window)
	for _, o := range obs {
		i := util.DaysBetween(start, o.Date)
		if i >= 0 && i < window {
			days[i] += o.Quantity
		}
	}
	return days
}
