package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/config"
	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/pipeline"
	"github.com/galleyops/galley/internal/refdata"
	"github.com/galleyops/galley/internal/repository"
	"github.com/galleyops/galley/internal/testutil"
	"github.com/galleyops/galley/internal/units"
	"github.com/galleyops/galley/internal/util"
)

var (
	testDate = util.MustParseDate("2026-01-19")
	testNow  = time.Date(2026, 1, 19, 6, 30, 0, 0, time.UTC)
)

// fakeSource serves plans from memory, keyed by date.
type fakeSource struct {
	plans  map[string]*repository.PlanSummary
	tasks  map[string][]models.ProductionTask
	alerts map[string][]models.ExpirationAlert
	orders map[string]*models.PurchaseOrderDraft
	err    error
	calls  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		plans:  make(map[string]*repository.PlanSummary),
		tasks:  make(map[string][]models.ProductionTask),
		alerts: make(map[string][]models.ExpirationAlert),
		orders: make(map[string]*models.PurchaseOrderDraft),
	}
}

// addPlan stores a small plan for date and returns its ID.
func (f *fakeSource) addPlan(date time.Time, conflicts int, discards int) string {
	id := repository.PlanID("main", date)
	f.plans[util.FormatDate(date)] = &repository.PlanSummary{
		ID: id, SiteID: "main", Date: date, TotalCensus: 265, TaskCount: 3,
		ConflictCount: conflicts, FoodCost: decimal.RequireFromString("412.35"), CreatedAt: testNow,
	}
	f.tasks[id] = []models.ProductionTask{
		{ID: "t1", RecipeName: "Steel Pot Oatmeal", MealPeriodID: "breakfast", PortionsNeeded: 90, BatchCount: 2,
			PrepStart: date.Add(5 * time.Hour), CookStart: date.Add(5*time.Hour + 30*time.Minute), ReadyTime: date.Add(6*time.Hour + 45*time.Minute)},
		{ID: "t2", RecipeName: "Turkey Chili", MealPeriodID: "lunch", PortionsNeeded: 95, BatchCount: 2,
			PrepStart: date.Add(8 * time.Hour), CookStart: date.Add(9 * time.Hour), ReadyTime: date.Add(11 * time.Hour)},
		{ID: "t3", RecipeName: "Caesar Salad", MealPeriodID: "lunch", PortionsNeeded: 40, BatchCount: 1,
			PrepStart: date.Add(10 * time.Hour), CookStart: date.Add(10 * time.Hour), ReadyTime: date.Add(11 * time.Hour)},
	}
	for i := 0; i < discards; i++ {
		f.alerts[id] = append(f.alerts[id], models.ExpirationAlert{
			LotID: fmt.Sprintf("turkey-%d", i), IngredientID: "turkey", Quantity: 10,
			ExpirationDate: date.AddDate(0, 0, -1), DaysUntilExpiry: -1, Action: models.ExpirationDiscard,
		})
	}
	f.orders[id] = &models.PurchaseOrderDraft{ID: "po-" + id, SiteID: "main", AsOf: date, Lines: []models.PurchaseOrderLine{
		{IngredientID: "beans", IngredientName: "Kidney Beans", OrderQuantity: 6, Unit: "#10 can",
			Reason: "below reorder point", EstimatedCost: decimal.RequireFromString("39.00")},
	}}
	return id
}

func (f *fakeSource) GetPlanSummary(_ context.Context, _ string, date time.Time) (*repository.PlanSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.plans[util.FormatDate(date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeSource) ListTasks(_ context.Context, planID string) ([]models.ProductionTask, error) {
	return f.tasks[planID], nil
}

func (f *fakeSource) ListAlerts(_ context.Context, planID string) ([]models.ExpirationAlert, error) {
	return f.alerts[planID], nil
}

func (f *fakeSource) GetPurchaseOrder(_ context.Context, planID string) (*models.PurchaseOrderDraft, error) {
	po, ok := f.orders[planID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return po, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApp creates an App over src at testDate. The window is set to
// 120x40 and marked ready; the plan is not loaded yet.
func newTestApp(t *testing.T, src PlanSource) *App {
	t.Helper()

	app := New(src, config.Default(), "main", testDate,
		WithClock(func() time.Time { return testNow }),
		WithLogger(discardLogger()))
	app.width = 120
	app.height = 40
	app.ready = true
	return app
}

// load runs the app's pending plan load synchronously.
func load(t *testing.T, app *App) {
	t.Helper()
	app.Update(app.loadPlan(app.date)())
}

// plannedSource imports the sample kitchen into SQLite and plans testDate.
func plannedSource(t *testing.T) *repository.PlanRepository {
	t.Helper()

	ds, err := refdata.LoadFile("../refdata/testdata/kitchen.yaml")
	if err != nil {
		t.Fatalf("loading kitchen: %v", err)
	}
	db := testutil.NewMigratedDB(t)
	store := repository.NewStore(db.DB.DB)
	ctx := context.Background()
	if _, err := store.Import(ctx, ds); err != nil {
		t.Fatalf("importing kitchen: %v", err)
	}

	conv := units.NewConverter()
	if _, err := store.Recipes.RegisterConversions(ctx, conv); err != nil {
		t.Fatalf("registering conversions: %v", err)
	}
	planner := pipeline.NewPlanner(store.Sources(), pipeline.Options{
		ApplyIssuance: true,
		Converter:     conv,
		Logger:        discardLogger(),
		Now:           func() time.Time { return testNow.Add(-12 * time.Hour) },
	})
	if _, err := planner.RunDay(ctx, testDate, "main"); err != nil {
		t.Fatalf("planning %s: %v", util.FormatDate(testDate), err)
	}
	return store.Plans
}

// keyMsg creates a tea.KeyMsg for a regular character key.
func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// specialKeyMsg creates a tea.KeyMsg for a special key type.
func specialKeyMsg(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}
