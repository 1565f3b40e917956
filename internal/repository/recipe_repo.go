package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/units"
)

// RecipeRepository stores ingredients, unit conversions and recipes.
type RecipeRepository struct {
	db *sql.DB
}

// NewRecipeRepository creates a new recipe repository.
func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// ============================================================================
// INGREDIENTS
// ============================================================================

const ingredientColumns = `id, name, unit, unit_cost, is_seasoning, storage_type,
	par_level, reorder_point, lead_time_days, delivery_frequency_days,
	ordering_cost, holding_cost_percent, pack_size, vendor_id`

// CreateIngredient inserts or replaces an ingredient.
func (r *RecipeRepository) CreateIngredient(ctx context.Context, tx *sql.Tx, ing *models.Ingredient) error {
	storage := ing.StorageType
	if storage == "" {
		storage = models.StorageDry
	}
	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO ingredients (`+ingredientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, unit = excluded.unit, unit_cost = excluded.unit_cost,
			is_seasoning = excluded.is_seasoning, storage_type = excluded.storage_type,
			par_level = excluded.par_level, reorder_point = excluded.reorder_point,
			lead_time_days = excluded.lead_time_days, delivery_frequency_days = excluded.delivery_frequency_days,
			ordering_cost = excluded.ordering_cost, holding_cost_percent = excluded.holding_cost_percent,
			pack_size = excluded.pack_size, vendor_id = excluded.vendor_id`,
		ing.ID, ing.Name, ing.Unit, ing.UnitCost.String(), boolToInt(ing.IsSeasoning), string(storage),
		ing.ParLevel, ing.ReorderPoint, ing.LeadTimeDays, ing.DeliveryFrequencyDays,
		ing.OrderingCost.String(), ing.HoldingCostPercent, ing.PackSize, nullableString(ing.VendorID),
	)
	if err != nil {
		return fmt.Errorf("inserting ingredient %s: %w", ing.ID, err)
	}
	return nil
}

// GetIngredient retrieves an ingredient by ID.
func (r *RecipeRepository) GetIngredient(ctx context.Context, id string) (*models.Ingredient, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+ingredientColumns+" FROM ingredients WHERE id = ?", id)
	ing, err := scanIngredient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingredient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return ing, nil
}

// ListIngredients returns every ingredient ordered by ID.
func (r *RecipeRepository) ListIngredients(ctx context.Context) ([]models.Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+ingredientColumns+" FROM ingredients ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying ingredients: %w", err)
	}
	defer rows.Close()

	var out []models.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ing)
	}
	return out, rows.Err()
}

// UpdateParLevels sets an ingredient's par level and reorder point.
func (r *RecipeRepository) UpdateParLevels(ctx context.Context, id string, parLevel, reorderPoint float64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE ingredients SET par_level = ?, reorder_point = ? WHERE id = ?", parLevel, reorderPoint, id)
	if err != nil {
		return fmt.Errorf("updating par levels of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ingredient %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanIngredient(s scanner) (*models.Ingredient, error) {
	var ing models.Ingredient
	var unitCost, orderingCost, storage string
	var seasoning int
	var vendor sql.NullString
	err := s.Scan(
		&ing.ID, &ing.Name, &ing.Unit, &unitCost, &seasoning, &storage,
		&ing.ParLevel, &ing.ReorderPoint, &ing.LeadTimeDays, &ing.DeliveryFrequencyDays,
		&orderingCost, &ing.HoldingCostPercent, &ing.PackSize, &vendor,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning ingredient: %w", err)
	}
	ing.UnitCost = parseDecimal(unitCost)
	ing.OrderingCost = parseDecimal(orderingCost)
	ing.IsSeasoning = seasoning == 1
	ing.StorageType = models.StorageType(storage)
	ing.VendorID = vendor.String
	return &ing, nil
}

// ============================================================================
// UNIT CONVERSIONS
// ============================================================================

// SaveConversion records an ingredient-independent unit conversion.
func (r *RecipeRepository) SaveConversion(ctx context.Context, tx *sql.Tx, from, to string, factor float64) error {
	_, err := conn(r.db, tx).ExecContext(ctx,
		"INSERT OR REPLACE INTO unit_conversions (from_unit, to_unit, factor) VALUES (?, ?, ?)",
		units.Normalize(from), units.Normalize(to), factor,
	)
	if err != nil {
		return fmt.Errorf("saving conversion %s->%s: %w", from, to, err)
	}
	return nil
}

// RegisterConversions loads every stored conversion into conv.
func (r *RecipeRepository) RegisterConversions(ctx context.Context, conv *units.Converter) (int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT from_unit, to_unit, factor FROM unit_conversions ORDER BY from_unit, to_unit")
	if err != nil {
		return 0, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var from, to string
		var factor float64
		if err := rows.Scan(&from, &to, &factor); err != nil {
			return n, fmt.Errorf("scanning conversion row: %w", err)
		}
		if err := conv.Register(from, to, factor); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

// ============================================================================
// RECIPES
// ============================================================================

// CreateRecipe inserts or replaces a recipe with its lines, components and
// equipment needs.
func (r *RecipeRepository) CreateRecipe(ctx context.Context, tx *sql.Tx, rec *models.Recipe) error {
	if rec.YieldQuantity <= 0 {
		return fmt.Errorf("recipe %s: yield must be positive", rec.ID)
	}
	c := conn(r.db, tx)
	_, err := c.ExecContext(ctx, `
		INSERT INTO recipes (id, name, category, yield_quantity, yield_unit, prep_time_minutes, cook_time_minutes, station_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, category = excluded.category,
			yield_quantity = excluded.yield_quantity, yield_unit = excluded.yield_unit,
			prep_time_minutes = excluded.prep_time_minutes, cook_time_minutes = excluded.cook_time_minutes,
			station_id = excluded.station_id`,
		rec.ID, rec.Name, nullableString(rec.Category), rec.YieldQuantity, nullableString(rec.YieldUnit),
		rec.PrepTimeMinutes, rec.CookTimeMinutes, nullableString(rec.StationID),
	)
	if err != nil {
		return fmt.Errorf("inserting recipe %s: %w", rec.ID, err)
	}

	for _, table := range []string{"recipe_ingredients", "recipe_components", "recipe_equipment"} {
		if _, err := c.ExecContext(ctx, "DELETE FROM "+table+" WHERE recipe_id = ?", rec.ID); err != nil {
			return fmt.Errorf("clearing %s of %s: %w", table, rec.ID, err)
		}
	}
	for i, line := range rec.Ingredients {
		if _, err := c.ExecContext(ctx,
			"INSERT INTO recipe_ingredients (recipe_id, line_no, ingredient_id, quantity, unit) VALUES (?, ?, ?, ?, ?)",
			rec.ID, i, line.IngredientID, line.Quantity, line.Unit,
		); err != nil {
			return fmt.Errorf("inserting line %d of %s: %w", i, rec.ID, err)
		}
	}
	for i, comp := range rec.Components {
		if _, err := c.ExecContext(ctx,
			"INSERT INTO recipe_components (recipe_id, component_id, line_no) VALUES (?, ?, ?)", rec.ID, comp, i,
		); err != nil {
			return fmt.Errorf("inserting component %s of %s: %w", comp, rec.ID, err)
		}
	}
	for i, eq := range rec.EquipmentTypes {
		if _, err := c.ExecContext(ctx,
			"INSERT INTO recipe_equipment (recipe_id, equipment_type, line_no) VALUES (?, ?, ?)", rec.ID, eq, i,
		); err != nil {
			return fmt.Errorf("inserting equipment %s of %s: %w", eq, rec.ID, err)
		}
	}
	return nil
}

// GetRecipe retrieves a recipe with its lines. Line names and seasoning
// flags come from the ingredient records.
func (r *RecipeRepository) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	var rec models.Recipe
	var category, yieldUnit, station sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, yield_quantity, yield_unit, prep_time_minutes, cook_time_minutes, station_id
		FROM recipes WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &category, &rec.YieldQuantity, &yieldUnit,
		&rec.PrepTimeMinutes, &rec.CookTimeMinutes, &station)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning recipe: %w", err)
	}
	rec.Category, rec.YieldUnit, rec.StationID = category.String, yieldUnit.String, station.String

	if rec.Ingredients, err = r.recipeLines(ctx, id); err != nil {
		return nil, err
	}
	if rec.Components, err = r.stringColumn(ctx,
		"SELECT component_id FROM recipe_components WHERE recipe_id = ? ORDER BY line_no", id); err != nil {
		return nil, err
	}
	if rec.EquipmentTypes, err = r.stringColumn(ctx,
		"SELECT equipment_type FROM recipe_equipment WHERE recipe_id = ? ORDER BY line_no", id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecipeIDs returns every recipe ID in order.
func (r *RecipeRepository) ListRecipeIDs(ctx context.Context) ([]string, error) {
	return r.stringColumn(ctx, "SELECT id FROM recipes ORDER BY id")
}

func (r *RecipeRepository) recipeLines(ctx context.Context, id string) ([]models.RecipeIngredient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.ingredient_id, i.name, l.quantity, l.unit, i.is_seasoning
		FROM recipe_ingredients l
		JOIN ingredients i ON i.id = l.ingredient_id
		WHERE l.recipe_id = ?
		ORDER BY l.line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("querying lines of %s: %w", id, err)
	}
	defer rows.Close()

	var out []models.RecipeIngredient
	for rows.Next() {
		var line models.RecipeIngredient
		var seasoning int
		if err := rows.Scan(&line.IngredientID, &line.Name, &line.Quantity, &line.Unit, &seasoning); err != nil {
			return nil, fmt.Errorf("scanning recipe line: %w", err)
		}
		line.IsSeasoning = seasoning == 1
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *RecipeRepository) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", strings.Fields(query)[1], err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
