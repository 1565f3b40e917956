package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/forecast"
	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/pipeline"
	"github.com/galleyops/galley/internal/util"
)

// PlanSummary is the header row of a persisted plan.
type PlanSummary struct {
	ID            string
	SiteID        string
	Date          time.Time
	TotalCensus   int
	TaskCount     int
	ConflictCount int
	FoodCost      decimal.Decimal
	CreatedAt     time.Time
}

// PlanRepository persists finished day plans.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// PlanID returns the stable ID of a site's plan for a date.
func PlanID(siteID string, date time.Time) string {
	return util.DeterministicID("plan", siteID, formatDate(date))
}

// ============================================================================
// SAVE
// ============================================================================

// SavePlan replaces the site's plan for the day in one transaction. Forecast
// rows of the replaced plan are kept and detached.
func (r *PlanRepository) SavePlan(ctx context.Context, plan *pipeline.DayPlan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.savePlan(ctx, tx, plan); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) savePlan(ctx context.Context, tx *sql.Tx, plan *pipeline.DayPlan) error {
	id := PlanID(plan.SiteID, plan.Date)

	// Stock issued by an earlier run stays issued, so its records outlive
	// the plan row they hang off.
	var carried []issueRecord
	if plan.IssuedEarlier {
		var err error
		if carried, err = loadIssueRecords(ctx, tx, id); err != nil {
			return fmt.Errorf("loading earlier issues: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM plans WHERE site_id = ? AND date = ?",
		plan.SiteID, formatDate(plan.Date)); err != nil {
		return fmt.Errorf("removing previous plan: %w", err)
	}

	created := plan.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO plans (id, site_id, date, total_census, task_count, conflict_count, food_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, plan.SiteID, formatDate(plan.Date), plan.TotalCensus(), plan.TaskCount(),
		len(plan.Conflicts()), plan.EstimatedFoodCost().String(), formatTimestamp(created),
	)
	if err != nil {
		return fmt.Errorf("inserting plan %s: %w", id, err)
	}

	steps := []struct {
		name string
		fn   func(context.Context, *sql.Tx, string, *pipeline.DayPlan) error
	}{
		{"menu", saveMenu},
		{"forecasts", saveForecasts},
		{"tasks", saveTasks},
		{"conflicts", saveConflicts},
		{"issues", saveIssues},
		{"alerts", saveAlerts},
		{"purchase order", savePurchaseOrder},
	}
	for _, s := range steps {
		if err := s.fn(ctx, tx, id, plan); err != nil {
			return fmt.Errorf("saving %s: %w", s.name, err)
		}
	}
	for _, rec := range carried {
		if err := insertIssueRecord(ctx, tx, id, rec); err != nil {
			return fmt.Errorf("restoring earlier issues: %w", err)
		}
	}
	return nil
}

// HasIssued reports whether the site's stored plan for date issued stock.
func (r *PlanRepository) HasIssued(ctx context.Context, siteID string, date time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM issue_records WHERE plan_id = ?", PlanID(siteID, date),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("counting issue records: %w", err)
	}
	return n > 0, nil
}

func saveMenu(ctx context.Context, tx *sql.Tx, planID string, plan *pipeline.DayPlan) error {
	if plan.Menu == nil {
		return nil
	}
	for i, it := range plan.Menu.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resolved_menu_items (plan_id, line_no, meal_period_id, recipe_id, category, position, cycle_item_id, single_use_item_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			planID, i, it.MealPeriodID, it.RecipeID, nullableString(it.Category), it.Position,
			nullableString(it.Source.CycleItemID), nullableString(it.Source.SingleUseItemID),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func saveForecasts(ctx context.Context, tx *sql.Tx, planID string, plan *pipeline.DayPlan) error {
	for i := range plan.Forecasts {
		if err := insertForecast(ctx, tx, planID, &plan.Forecasts[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertForecast(ctx context.Context, c execer, planID string, f *models.Forecast) error {
	var actual sql.NullInt64
	if f.ActualCount != nil {
		actual = sql.NullInt64{Int64: int64(*f.ActualCount), Valid: true}
	}
	_, err := c.ExecContext(ctx, `
		INSERT INTO forecasts (id, plan_id, date, site_id, meal_period_id, recipe_id, forecasted_count,
			interval_low, interval_high, confidence, method, actual_count, supersedes_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, nullableString(planID), formatDate(f.Date), f.SiteID, f.MealPeriodID,
		nullableString(f.RecipeID), f.ForecastedCount, f.Interval.Low, f.Interval.High,
		f.Confidence, string(f.Method), actual, nullableString(f.SupersedesID),
		formatTimestamp(f.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting forecast %s: %w", f.ID, err)
	}
	return nil
}

func saveTasks(ctx context.Context, tx *sql.Tx, planID string, plan *pipeline.DayPlan) error {
	for _, s := range plan.Schedules {
		rank := make(map[string]int, len(s.CriticalPath))
		for i, id := range s.CriticalPath {
			rank[id] = i
		}
		for _, t := range s.Tasks {
			var critical sql.NullInt64
			if i, ok := rank[t.ID]; ok {
				critical = sql.NullInt64{Int64: int64(i), Valid: true}
			}
			status := t.Status
			if status == "" {
				status = models.TaskStatusPlanned
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO production_tasks (id, plan_id, recipe_id, recipe_name, meal_period_id, portions_needed,
					batch_count, prep_start, cook_start, ready_time, employee_id, station_id, status, critical_rank)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, planID, t.RecipeID, t.RecipeName, t.MealPeriodID, t.PortionsNeeded, t.BatchCount,
				formatTimestamp(t.PrepStart), formatTimestamp(t.CookStart), formatTimestamp(t.ReadyTime),
				nullableString(t.AssignedEmployeeID), nullableString(t.AssignedStationID),
				string(status), critical,
			)
			if err != nil {
				return fmt.Errorf("inserting task %s: %w", t.ID, err)
			}
			for _, eq := range t.AssignedEquipmentIDs {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO task_equipment (task_id, equipment_id) VALUES (?, ?)", t.ID, eq); err != nil {
					return fmt.Errorf("inserting equipment of %s: %w", t.ID, err)
				}
			}
		}
	}
	// Dependencies go in after every task exists.
	for _, s := range plan.Schedules {
		for _, t := range s.Tasks {
			for _, dep := range t.Dependencies {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO task_dependencies (task_id, depends_on_id) VALUES (?, ?)", t.ID, dep); err != nil {
					return fmt.Errorf("inserting dependency %s of %s: %w", dep, t.ID, err)
				}
			}
		}
	}
	return nil
}

func saveConflicts(ctx context.Context, tx *sql.Tx, planID string, plan *pipeline.DayPlan) error {
	line := 0
	for _, s := range plan.Schedules {
		for _, c := range s.Conflicts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO resource_conflicts (plan_id, line_no, meal_period_id, kind, task_id, recipe_id,
					resource_type, window_start, window_end, message)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				planID, line, s.MealPeriodID, string(c.Kind), nullableString(c.TaskID),
				nullableString(c.RecipeID), nullableString(c.ResourceType),
				nullableTimestamp(c.WindowStart), nullableTimestamp(c.WindowEnd), c.Message,
			)
			if err != nil {
				return err
			}
			line++
		}
	}
	return nil
}

type issueRecord struct {
	ingredientID string
	requested    float64
	issued       float64
	shortfall    float64
	remaining    float64
	belowPar     int
	cost         string
}

func saveIssues(ctx context.Context, tx *sql.Tx, planID string, plan *pipeline.DayPlan) error {
	for _, is := range plan.Issues {
		rec := issueRecord{
			ingredientID: is.IngredientID,
			requested:    is.Requested,
			issued:       is.Issued,
			shortfall:    is.Shortfall,
			remaining:    is.RemainingOnHand,
			belowPar:     boolToInt(is.BelowPar),
			cost:         is.Cost().String(),
		}
		if err := insertIssueRecord(ctx, tx, planID, rec); err != nil {
			return err
		}
	}
	return nil
}

func insertIssueRecord(ctx context.Context, tx *sql.Tx, planID string, rec issueRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO issue_records (plan_id, ingredient_id, requested, issued, shortfall,
			remaining_on_hand, below_par, cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		planID, rec.ingredientID, rec.requested, rec.issued, rec.shortfall,
		rec.remaining, rec.belowPar, rec.cost,
	)
	return err
}

func loadIssueRecords(ctx context.Context, tx *sql.Tx, planID string) ([]issueRecord, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ingredient_id, requested, issued, shortfall, remaining_on_hand, below_par, cost
		FROM issue_records WHERE plan_id = ? ORDER BY ingredient_id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []issueRecord
	for rows.Next() {
		var rec issueRecord
		if err := rows.Scan(&rec.ingredientID, &rec.requested, &rec.issued, &rec.shortfall,
			&rec.remaining, &rec.belowPar, &rec.cost); err != nil {
			return nil, fmt.Errorf("scanning issue record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func saveAlerts(ctx context.Context, tx *sql.Tx, planID string, plan *pipeline.DayPlan) error {
	for _, a := range plan.Alerts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expiration_alerts (plan_id, lot_id, ingredient_id, quantity, expiration_date,
				days_until_expiry, action)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			planID, a.LotID, a.IngredientID, a.Quantity, formatDate(a.ExpirationDate),
			a.DaysUntilExpiry, string(a.Action),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func savePurchaseOrder(ctx context.Context, tx *sql.Tx, planID string, plan *pipeline.DayPlan) error {
	po := plan.PurchaseOrder
	if po == nil || len(po.Lines) == 0 {
		return nil
	}
	if po.ID == "" {
		po.ID = util.NewID()
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO purchase_orders (id, plan_id, site_id, as_of) VALUES (?, ?, ?, ?)",
		po.ID, planID, po.SiteID, formatDate(po.AsOf))
	if err != nil {
		return err
	}
	for i, l := range po.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_order_lines (purchase_order_id, line_no, ingredient_id, ingredient_name,
				vendor_id, order_quantity, unit, reason, on_hand, projected_usage, reorder_point, estimated_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			po.ID, i, l.IngredientID, l.IngredientName, nullableString(l.VendorID), l.OrderQuantity,
			l.Unit, l.Reason, l.OnHand, l.ProjectedUsage, l.ReorderPoint, l.EstimatedCost.String(),
		)
		if err != nil {
			return fmt.Errorf("inserting line %d: %w", i, err)
		}
	}
	return nil
}

func nullableTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(t), Valid: true}
}

// ============================================================================
// READ
// ============================================================================

// GetPlanSummary returns the header of a site's plan for a date.
func (r *PlanRepository) GetPlanSummary(ctx context.Context, siteID string, date time.Time) (*PlanSummary, error) {
	var p PlanSummary
	var d, cost, created string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, site_id, date, total_census, task_count, conflict_count, food_cost, created_at
		FROM plans WHERE site_id = ? AND date = ?`, siteID, formatDate(date),
	).Scan(&p.ID, &p.SiteID, &d, &p.TotalCensus, &p.TaskCount, &p.ConflictCount, &cost, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan for %s on %s: %w", siteID, formatDate(date), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning plan: %w", err)
	}
	p.Date = parseDate(d)
	p.FoodCost = parseDecimal(cost)
	p.CreatedAt = parseTimestamp(created)
	return &p, nil
}

// ListPlans returns the plan headers of a site in date order.
func (r *PlanRepository) ListPlans(ctx context.Context, siteID string) ([]PlanSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, site_id, date, total_census, task_count, conflict_count, food_cost, created_at
		FROM plans WHERE site_id = ? ORDER BY date`, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var out []PlanSummary
	for rows.Next() {
		var p PlanSummary
		var d, cost, created string
		if err := rows.Scan(&p.ID, &p.SiteID, &d, &p.TotalCensus, &p.TaskCount, &p.ConflictCount, &cost, &created); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		p.Date = parseDate(d)
		p.FoodCost = parseDecimal(cost)
		p.CreatedAt = parseTimestamp(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

const forecastColumns = `id, date, site_id, meal_period_id, recipe_id, forecasted_count,
	interval_low, interval_high, confidence, method, actual_count, supersedes_id, created_at`

func scanForecast(s scanner) (*models.Forecast, error) {
	var f models.Forecast
	var date, method, created string
	var recipe, supersedes sql.NullString
	var actual sql.NullInt64
	if err := s.Scan(&f.ID, &date, &f.SiteID, &f.MealPeriodID, &recipe, &f.ForecastedCount,
		&f.Interval.Low, &f.Interval.High, &f.Confidence, &method, &actual, &supersedes, &created); err != nil {
		return nil, fmt.Errorf("scanning forecast: %w", err)
	}
	f.Date = parseDate(date)
	f.RecipeID = recipe.String
	f.Method = models.ForecastMethod(method)
	f.SupersedesID = supersedes.String
	f.CreatedAt = parseTimestamp(created)
	if actual.Valid {
		a := int(actual.Int64)
		f.ActualCount = &a
	}
	return &f, nil
}

// ListForecasts returns every forecast row for a site and date, including
// superseded and detached ones, oldest first.
func (r *PlanRepository) ListForecasts(ctx context.Context, siteID string, date time.Time) ([]models.Forecast, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+forecastColumns+` FROM forecasts
		WHERE site_id = ? AND date = ?
		ORDER BY created_at, meal_period_id, recipe_id, id`, siteID, formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("querying forecasts: %w", err)
	}
	defer rows.Close()

	var out []models.Forecast
	for rows.Next() {
		f, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// GetForecast retrieves one forecast row.
func (r *PlanRepository) GetForecast(ctx context.Context, id string) (*models.Forecast, error) {
	f, err := scanForecast(r.db.QueryRowContext(ctx,
		"SELECT "+forecastColumns+" FROM forecasts WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("forecast %s: %w", id, ErrNotFound)
	}
	return f, err
}

// RecordActual stores the observed count against a forecast by inserting a
// superseding row. The original row is never updated.
func (r *PlanRepository) RecordActual(ctx context.Context, forecastID string, actual int, now time.Time) (*models.Forecast, error) {
	if actual < 0 {
		return nil, fmt.Errorf("actual count %d is negative", actual)
	}
	if !util.IsValidID(forecastID) {
		return nil, fmt.Errorf("forecast %q: %w", forecastID, ErrNotFound)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var planID sql.NullString
	row := tx.QueryRowContext(ctx,
		"SELECT "+forecastColumns+", plan_id FROM forecasts WHERE id = ?", forecastID)
	orig, err := scanForecast(scanFunc(func(dest ...any) error {
		return row.Scan(append(dest, &planID)...)
	}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("forecast %s: %w", forecastID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	next := forecast.Supersede(*orig, actual, now)
	if err := insertForecast(ctx, tx, planID.String, &next); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing actual: %w", err)
	}
	return &next, nil
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// ListTasks returns a plan's production tasks in prep order.
func (r *PlanRepository) ListTasks(ctx context.Context, planID string) ([]models.ProductionTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.recipe_id, t.recipe_name, t.meal_period_id, t.portions_needed, t.batch_count,
			t.prep_start, t.cook_start, t.ready_time, t.employee_id, t.station_id, t.status,
			p.site_id, p.date
		FROM production_tasks t
		JOIN plans p ON p.id = t.plan_id
		WHERE t.plan_id = ?
		ORDER BY t.prep_start, t.id`, planID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	var tasks []models.ProductionTask
	index := make(map[string]int)
	for rows.Next() {
		var t models.ProductionTask
		var prep, cook, ready, status, date string
		var emp, station sql.NullString
		if err := rows.Scan(&t.ID, &t.RecipeID, &t.RecipeName, &t.MealPeriodID, &t.PortionsNeeded,
			&t.BatchCount, &prep, &cook, &ready, &emp, &station, &status, &t.SiteID, &date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		t.PrepStart = parseTimestamp(prep)
		t.CookStart = parseTimestamp(cook)
		t.ReadyTime = parseTimestamp(ready)
		t.AssignedEmployeeID = emp.String
		t.AssignedStationID = station.String
		t.Status = models.TaskStatus(status)
		t.Date = parseDate(date)
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.eachPair(ctx, `
		SELECT e.task_id, e.equipment_id FROM task_equipment e
		JOIN production_tasks t ON t.id = e.task_id
		WHERE t.plan_id = ? ORDER BY e.task_id, e.equipment_id`, planID,
		func(task, eq string) {
			if i, ok := index[task]; ok {
				tasks[i].AssignedEquipmentIDs = append(tasks[i].AssignedEquipmentIDs, eq)
			}
		})
	if err != nil {
		return nil, err
	}
	err = r.eachPair(ctx, `
		SELECT d.task_id, d.depends_on_id FROM task_dependencies d
		JOIN production_tasks t ON t.id = d.task_id
		WHERE t.plan_id = ? ORDER BY d.task_id, d.depends_on_id`, planID,
		func(task, dep string) {
			if i, ok := index[task]; ok {
				tasks[i].Dependencies = append(tasks[i].Dependencies, dep)
			}
		})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *PlanRepository) eachPair(ctx context.Context, query, arg string, fn func(a, b string)) error {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("querying task links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return fmt.Errorf("scanning task link: %w", err)
		}
		fn(a, b)
	}
	return rows.Err()
}

// ListAlerts returns a plan's expiration alerts, soonest first.
func (r *PlanRepository) ListAlerts(ctx context.Context, planID string) ([]models.ExpirationAlert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.lot_id, a.ingredient_id, p.site_id, a.quantity, a.expiration_date, a.days_until_expiry, a.action
		FROM expiration_alerts a
		JOIN plans p ON p.id = a.plan_id
		WHERE a.plan_id = ?
		ORDER BY a.days_until_expiry, a.lot_id`, planID)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var out []models.ExpirationAlert
	for rows.Next() {
		var a models.ExpirationAlert
		var exp, action string
		if err := rows.Scan(&a.LotID, &a.IngredientID, &a.SiteID, &a.Quantity, &exp, &a.DaysUntilExpiry, &action); err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		a.ExpirationDate = parseDate(exp)
		a.Action = models.ExpirationAction(action)
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetPurchaseOrder returns the draft order attached to a plan.
func (r *PlanRepository) GetPurchaseOrder(ctx context.Context, planID string) (*models.PurchaseOrderDraft, error) {
	var po models.PurchaseOrderDraft
	var asOf string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, site_id, as_of FROM purchase_orders WHERE plan_id = ?", planID,
	).Scan(&po.ID, &po.SiteID, &asOf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("purchase order of %s: %w", planID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning purchase order: %w", err)
	}
	po.AsOf = parseDate(asOf)

	rows, err := r.db.QueryContext(ctx, `
		SELECT ingredient_id, ingredient_name, vendor_id, order_quantity, unit, reason,
			on_hand, projected_usage, reorder_point, estimated_cost
		FROM purchase_order_lines WHERE purchase_order_id = ? ORDER BY line_no`, po.ID)
	if err != nil {
		return nil, fmt.Errorf("querying order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l models.PurchaseOrderLine
		var vendor sql.NullString
		var cost string
		if err := rows.Scan(&l.IngredientID, &l.IngredientName, &vendor, &l.OrderQuantity, &l.Unit,
			&l.Reason, &l.OnHand, &l.ProjectedUsage, &l.ReorderPoint, &cost); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		l.VendorID = vendor.String
		l.EstimatedCost = parseDecimal(cost)
		po.Lines = append(po.Lines, l)
	}
	return &po, rows.Err()
}
