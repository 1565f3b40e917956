package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/galleyops/galley/internal/models"
)

// HistoryRepository stores census, selection and usage observations.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// window returns the date bounds of [before-days, before).
func window(before time.Time, days int) (string, string) {
	return formatDate(before.AddDate(0, 0, -days)), formatDate(before)
}

// ============================================================================
// RECORDING
// ============================================================================

// RecordCensus stores a census count, replacing an earlier count for the
// same day and meal period.
func (r *HistoryRepository) RecordCensus(ctx context.Context, tx *sql.Tx, o models.CensusObservation) error {
	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO census_observations (date, site_id, meal_period_id, count) VALUES (?, ?, ?, ?)
		ON CONFLICT (date, site_id, meal_period_id) DO UPDATE SET count = excluded.count`,
		formatDate(o.Date), o.SiteID, o.MealPeriodID, o.Count,
	)
	if err != nil {
		return fmt.Errorf("recording census for %s: %w", formatDate(o.Date), err)
	}
	return nil
}

// RecordSelection stores how many diners chose a recipe.
func (r *HistoryRepository) RecordSelection(ctx context.Context, tx *sql.Tx, o models.SelectionObservation) error {
	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO selection_observations (date, site_id, meal_period_id, recipe_id, selected, census)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, site_id, meal_period_id, recipe_id)
		DO UPDATE SET selected = excluded.selected, census = excluded.census`,
		formatDate(o.Date), o.SiteID, o.MealPeriodID, o.RecipeID, o.Selected, o.Census,
	)
	if err != nil {
		return fmt.Errorf("recording selection of %s: %w", o.RecipeID, err)
	}
	return nil
}

// RecordUsage stores the quantity of an ingredient consumed on a day.
func (r *HistoryRepository) RecordUsage(ctx context.Context, tx *sql.Tx, o models.UsageObservation) error {
	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO usage_observations (date, site_id, ingredient_id, quantity) VALUES (?, ?, ?, ?)
		ON CONFLICT (date, site_id, ingredient_id) DO UPDATE SET quantity = excluded.quantity`,
		formatDate(o.Date), o.SiteID, o.IngredientID, o.Quantity,
	)
	if err != nil {
		return fmt.Errorf("recording usage of %s: %w", o.IngredientID, err)
	}
	return nil
}

// ============================================================================
// QUERIES
// ============================================================================

// CensusHistory returns a meal period's counts in the days before a date,
// oldest first.
func (r *HistoryRepository) CensusHistory(ctx context.Context, siteID, mealPeriodID string, before time.Time, days int) ([]models.CensusObservation, error) {
	from, to := window(before, days)
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, count FROM census_observations
		WHERE site_id = ? AND meal_period_id = ? AND date >= ? AND date < ?
		ORDER BY date`, siteID, mealPeriodID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying census history: %w", err)
	}
	defer rows.Close()

	var out []models.CensusObservation
	for rows.Next() {
		o := models.CensusObservation{SiteID: siteID, MealPeriodID: mealPeriodID}
		var date string
		if err := rows.Scan(&date, &o.Count); err != nil {
			return nil, fmt.Errorf("scanning census row: %w", err)
		}
		o.Date = parseDate(date)
		out = append(out, o)
	}
	return out, rows.Err()
}

// SelectionHistory returns a recipe's selections in the days before a date.
func (r *HistoryRepository) SelectionHistory(ctx context.Context, siteID, recipeID string, before time.Time, days int) ([]models.SelectionObservation, error) {
	from, to := window(before, days)
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, meal_period_id, selected, census FROM selection_observations
		WHERE site_id = ? AND recipe_id = ? AND date >= ? AND date < ?
		ORDER BY date, meal_period_id`, siteID, recipeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying selection history: %w", err)
	}
	defer rows.Close()

	var out []models.SelectionObservation
	for rows.Next() {
		o := models.SelectionObservation{SiteID: siteID, RecipeID: recipeID}
		var date string
		if err := rows.Scan(&date, &o.MealPeriodID, &o.Selected, &o.Census); err != nil {
			return nil, fmt.Errorf("scanning selection row: %w", err)
		}
		o.Date = parseDate(date)
		out = append(out, o)
	}
	return out, rows.Err()
}

// UsageHistory returns an ingredient's daily usage in the days before a date.
func (r *HistoryRepository) UsageHistory(ctx context.Context, siteID, ingredientID string, before time.Time, days int) ([]models.UsageObservation, error) {
	from, to := window(before, days)
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, quantity FROM usage_observations
		WHERE site_id = ? AND ingredient_id = ? AND date >= ? AND date < ?
		ORDER BY date`, siteID, ingredientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying usage history: %w", err)
	}
	defer rows.Close()

	var out []models.UsageObservation
	for rows.Next() {
		o := models.UsageObservation{SiteID: siteID, IngredientID: ingredientID}
		var date string
		if err := rows.Scan(&date, &o.Quantity); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		o.Date = parseDate(date)
		out = append(out, o)
	}
	return out, rows.Err()
}
