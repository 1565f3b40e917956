package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

// ErrCycleNotEditable is returned when items are written to a cycle that is
// no longer a draft.
var ErrCycleNotEditable = errors.New("cycle menu is not editable")

// MenuRepository stores cycle menus and single-use overrides.
type MenuRepository struct {
	db *sql.DB
}

// NewMenuRepository creates a new menu repository.
func NewMenuRepository(db *sql.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// ============================================================================
// CYCLE MENUS
// ============================================================================

// CreateCycleMenu inserts a cycle menu and its items. A missing ID is
// generated. An ACTIVE cycle archives the site's previous active cycle in
// the same statement batch, so there is never more than one.
func (r *MenuRepository) CreateCycleMenu(ctx context.Context, tx *sql.Tx, cm *models.CycleMenu) error {
	if cm.ID == "" {
		cm.ID = util.NewID()
	}
	if cm.Version == 0 {
		cm.Version = 1
	}
	if cm.Status == "" {
		cm.Status = models.CycleMenuStatusDraft
	}
	if cm.CreatedAt.IsZero() {
		cm.CreatedAt = time.Now().UTC()
	}

	c := conn(r.db, tx)
	if cm.Status == models.CycleMenuStatusActive {
		if err := archiveActive(ctx, c, cm.SiteID, cm.ID); err != nil {
			return err
		}
	}

	_, err := c.ExecContext(ctx, `
		INSERT INTO cycle_menus (id, site_id, name, start_date, length_weeks, status, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cm.ID, cm.SiteID, cm.Name, formatDate(cm.StartDate), cm.LengthWeeks,
		string(cm.Status), cm.Version, formatTimestamp(cm.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting cycle menu %s: %w", cm.ID, err)
	}

	for i := range cm.Items {
		it := &cm.Items[i]
		if it.ID == "" {
			it.ID = util.DeterministicID(cm.ID, fmt.Sprint(it.WeekNumber), it.DayOfWeek.String(), it.MealPeriodID, it.RecipeID)
		}
		_, err := c.ExecContext(ctx, `
			INSERT INTO cycle_menu_items (id, cycle_menu_id, week_number, day_of_week, meal_period_id, recipe_id, category, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, cm.ID, it.WeekNumber, int(it.DayOfWeek), it.MealPeriodID, it.RecipeID,
			nullableString(it.Category), it.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("inserting item %s of cycle %s: %w", it.ID, cm.ID, err)
		}
	}
	return nil
}

func archiveActive(ctx context.Context, c execer, siteID, exceptID string) error {
	_, err := c.ExecContext(ctx,
		"UPDATE cycle_menus SET status = 'ARCHIVED' WHERE site_id = ? AND status = 'ACTIVE' AND id <> ?",
		siteID, exceptID)
	if err != nil {
		return fmt.Errorf("archiving active cycle of %s: %w", siteID, err)
	}
	return nil
}

// SetStatus moves a cycle through DRAFT, ACTIVE and ARCHIVED. Activating a
// cycle archives the one it replaces.
func (r *MenuRepository) SetStatus(ctx context.Context, tx *sql.Tx, id string, status models.CycleMenuStatus) error {
	c := conn(r.db, tx)
	var siteID string
	err := c.QueryRowContext(ctx, "SELECT site_id FROM cycle_menus WHERE id = ?", id).Scan(&siteID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("cycle menu %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("looking up cycle menu %s: %w", id, err)
	}

	if status == models.CycleMenuStatusActive {
		if err := archiveActive(ctx, c, siteID, id); err != nil {
			return err
		}
	}
	if _, err := c.ExecContext(ctx, "UPDATE cycle_menus SET status = ? WHERE id = ?", string(status), id); err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	return nil
}

// DeleteCycleMenu removes a cycle menu and its items.
func (r *MenuRepository) DeleteCycleMenu(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := conn(r.db, tx).ExecContext(ctx, "DELETE FROM cycle_menus WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting cycle menu %s: %w", id, err)
	}
	return nil
}

// AddCycleItem appends an item to a draft cycle.
func (r *MenuRepository) AddCycleItem(ctx context.Context, cycleID string, it *models.MenuItem) error {
	cm, err := r.GetCycleMenu(ctx, cycleID)
	if err != nil {
		return err
	}
	if !cm.IsEditable() {
		return fmt.Errorf("%w: %s is %s", ErrCycleNotEditable, cycleID, cm.Status)
	}
	if it.WeekNumber < 1 || it.WeekNumber > cm.LengthWeeks {
		return fmt.Errorf("week %d outside cycle of %d weeks", it.WeekNumber, cm.LengthWeeks)
	}
	if it.ID == "" {
		it.ID = util.NewID()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cycle_menu_items (id, cycle_menu_id, week_number, day_of_week, meal_period_id, recipe_id, category, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, cycleID, it.WeekNumber, int(it.DayOfWeek), it.MealPeriodID, it.RecipeID,
		nullableString(it.Category), it.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("inserting cycle item: %w", err)
	}
	return nil
}

// GetCycleMenu retrieves a cycle menu with its items.
func (r *MenuRepository) GetCycleMenu(ctx context.Context, id string) (*models.CycleMenu, error) {
	return r.cycleWhere(ctx, "id = ?", id)
}

// ActiveCycle returns the site's active cycle menu, or nil if there is none.
func (r *MenuRepository) ActiveCycle(ctx context.Context, siteID string) (*models.CycleMenu, error) {
	cm, err := r.cycleWhere(ctx, "site_id = ? AND status = 'ACTIVE'", siteID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return cm, err
}

func (r *MenuRepository) cycleWhere(ctx context.Context, where string, arg any) (*models.CycleMenu, error) {
	var cm models.CycleMenu
	var start, created, status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, site_id, name, start_date, length_weeks, status, version, created_at
		FROM cycle_menus WHERE `+where, arg,
	).Scan(&cm.ID, &cm.SiteID, &cm.Name, &start, &cm.LengthWeeks, &status, &cm.Version, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cycle menu: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning cycle menu: %w", err)
	}
	cm.StartDate = parseDate(start)
	cm.Status = models.CycleMenuStatus(status)
	cm.CreatedAt = parseTimestamp(created)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, week_number, day_of_week, meal_period_id, recipe_id, category, sort_order
		FROM cycle_menu_items
		WHERE cycle_menu_id = ?
		ORDER BY week_number, day_of_week, meal_period_id, sort_order, id`, cm.ID)
	if err != nil {
		return nil, fmt.Errorf("querying items of %s: %w", cm.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var it models.MenuItem
		var dow int
		var category sql.NullString
		if err := rows.Scan(&it.ID, &it.WeekNumber, &dow, &it.MealPeriodID, &it.RecipeID, &category, &it.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning cycle item: %w", err)
		}
		it.DayOfWeek = time.Weekday(dow)
		it.Category = category.String
		cm.Items = append(cm.Items, it)
	}
	return &cm, rows.Err()
}

// ============================================================================
// SINGLE-USE MENUS
// ============================================================================

// CreateSingleUseMenu validates and inserts an override with its items.
func (r *MenuRepository) CreateSingleUseMenu(ctx context.Context, tx *sql.Tx, m *models.SingleUseMenu) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if m.ID == "" {
		m.ID = util.NewID()
	}
	c := conn(r.db, tx)
	_, err := c.ExecContext(ctx, `
		INSERT INTO single_use_menus (id, site_id, name, service_date, scope, meal_period_id, mode)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, nullableString(m.SiteID), m.Name, formatDate(m.ServiceDate),
		string(m.Scope), nullableString(m.MealPeriodID), string(m.Mode),
	)
	if err != nil {
		return fmt.Errorf("inserting single-use menu %s: %w", m.ID, err)
	}
	for i := range m.Items {
		it := &m.Items[i]
		if it.ID == "" {
			it.ID = util.DeterministicID(m.ID, it.MealPeriodID, it.RecipeID, fmt.Sprint(i))
		}
		_, err := c.ExecContext(ctx, `
			INSERT INTO single_use_items (id, single_use_menu_id, meal_period_id, recipe_id, category, sort_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			it.ID, m.ID, it.MealPeriodID, it.RecipeID, nullableString(it.Category), it.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("inserting item %s of %s: %w", it.ID, m.ID, err)
		}
	}
	return nil
}

// DeleteSingleUseMenu removes an override and its items.
func (r *MenuRepository) DeleteSingleUseMenu(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := conn(r.db, tx).ExecContext(ctx, "DELETE FROM single_use_menus WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting single-use menu %s: %w", id, err)
	}
	return nil
}

// Overrides returns the single-use menus on date that apply to the site,
// including those without a site.
func (r *MenuRepository) Overrides(ctx context.Context, siteID string, date time.Time) ([]models.SingleUseMenu, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.site_id, m.name, m.service_date, m.scope, m.meal_period_id, m.mode,
			i.id, i.meal_period_id, i.recipe_id, i.category, i.sort_order
		FROM single_use_menus m
		LEFT JOIN single_use_items i ON i.single_use_menu_id = m.id
		WHERE m.service_date = ? AND (m.site_id = ? OR m.site_id IS NULL)
		ORDER BY m.id, i.sort_order, i.id`, formatDate(date), siteID)
	if err != nil {
		return nil, fmt.Errorf("querying overrides: %w", err)
	}
	defer rows.Close()

	var out []models.SingleUseMenu
	for rows.Next() {
		var m models.SingleUseMenu
		var site, mp sql.NullString
		var serviceDate, scope, mode string
		var itemID, itemMP, itemRecipe, itemCategory sql.NullString
		var itemSort sql.NullInt64
		if err := rows.Scan(&m.ID, &site, &m.Name, &serviceDate, &scope, &mp, &mode,
			&itemID, &itemMP, &itemRecipe, &itemCategory, &itemSort); err != nil {
			return nil, fmt.Errorf("scanning override row: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != m.ID {
			m.SiteID = site.String
			m.ServiceDate = parseDate(serviceDate)
			m.Scope = models.OverrideScope(scope)
			m.MealPeriodID = mp.String
			m.Mode = models.OverrideMode(mode)
			out = append(out, m)
		}
		if itemID.Valid {
			last := &out[len(out)-1]
			last.Items = append(last.Items, models.SingleUseItem{
				ID:           itemID.String,
				MealPeriodID: itemMP.String,
				RecipeID:     itemRecipe.String,
				Category:     itemCategory.String,
				SortOrder:    int(itemSort.Int64),
			})
		}
	}
	return out, rows.Err()
}
