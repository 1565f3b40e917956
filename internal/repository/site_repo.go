package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/galleyops/galley/internal/models"
)

// SiteRepository stores sites with their meal periods, equipment and staff.
type SiteRepository struct {
	db *sql.DB
}

// NewSiteRepository creates a new site repository.
func NewSiteRepository(db *sql.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// ============================================================================
// SITES
// ============================================================================

// CreateSite inserts a site, replacing one with the same ID.
func (r *SiteRepository) CreateSite(ctx context.Context, tx *sql.Tx, site *models.Site) error {
	tz := site.Timezone
	if tz == "" {
		tz = "UTC"
	}
	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO sites (id, code, name, timezone) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET code = excluded.code, name = excluded.name, timezone = excluded.timezone`,
		site.ID, site.Code, site.Name, tz,
	)
	if err != nil {
		return fmt.Errorf("inserting site %s: %w", site.ID, err)
	}
	return nil
}

// GetSite retrieves a site by ID.
func (r *SiteRepository) GetSite(ctx context.Context, id string) (*models.Site, error) {
	var s models.Site
	err := r.db.QueryRowContext(ctx,
		"SELECT id, code, name, timezone FROM sites WHERE id = ?", id,
	).Scan(&s.ID, &s.Code, &s.Name, &s.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning site: %w", err)
	}
	return &s, nil
}

// ListSites returns every site ordered by code.
func (r *SiteRepository) ListSites(ctx context.Context) ([]models.Site, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, code, name, timezone FROM sites ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("querying sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		var s models.Site
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Timezone); err != nil {
			return nil, fmt.Errorf("scanning site row: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// ============================================================================
// MEAL PERIODS
// ============================================================================

// CreateMealPeriod inserts or replaces a meal period.
func (r *SiteRepository) CreateMealPeriod(ctx context.Context, tx *sql.Tx, mp *models.MealPeriod) error {
	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO meal_periods (id, site_id, name, service_start, service_end, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			site_id = excluded.site_id, name = excluded.name,
			service_start = excluded.service_start, service_end = excluded.service_end,
			sort_order = excluded.sort_order`,
		mp.ID, mp.SiteID, mp.Name, mp.ServiceStart, nullableString(mp.ServiceEnd), mp.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("inserting meal period %s: %w", mp.ID, err)
	}
	return nil
}

// ListMealPeriods returns a site's meal periods in service order.
func (r *SiteRepository) ListMealPeriods(ctx context.Context, siteID string) ([]models.MealPeriod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, site_id, name, service_start, service_end, sort_order
		FROM meal_periods
		WHERE site_id = ?
		ORDER BY sort_order, service_start`, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying meal periods: %w", err)
	}
	defer rows.Close()

	var out []models.MealPeriod
	for rows.Next() {
		var mp models.MealPeriod
		var end sql.NullString
		if err := rows.Scan(&mp.ID, &mp.SiteID, &mp.Name, &mp.ServiceStart, &end, &mp.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning meal period row: %w", err)
		}
		mp.ServiceEnd = end.String
		out = append(out, mp)
	}
	return out, rows.Err()
}

// ============================================================================
// EQUIPMENT AND STAFF
// ============================================================================

// CreateEquipment inserts or replaces an equipment unit.
func (r *SiteRepository) CreateEquipment(ctx context.Context, tx *sql.Tx, eq *models.Equipment) error {
	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO equipment (id, site_id, equipment_type, name) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			site_id = excluded.site_id, equipment_type = excluded.equipment_type, name = excluded.name`,
		eq.ID, eq.SiteID, eq.Type, eq.Name,
	)
	if err != nil {
		return fmt.Errorf("inserting equipment %s: %w", eq.ID, err)
	}
	return nil
}

// ListEquipment returns a site's equipment ordered by ID.
func (r *SiteRepository) ListEquipment(ctx context.Context, siteID string) ([]models.Equipment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, site_id, equipment_type, name FROM equipment WHERE site_id = ? ORDER BY id", siteID)
	if err != nil {
		return nil, fmt.Errorf("querying equipment: %w", err)
	}
	defer rows.Close()

	var out []models.Equipment
	for rows.Next() {
		var eq models.Equipment
		if err := rows.Scan(&eq.ID, &eq.SiteID, &eq.Type, &eq.Name); err != nil {
			return nil, fmt.Errorf("scanning equipment row: %w", err)
		}
		out = append(out, eq)
	}
	return out, rows.Err()
}

// CreateEmployee inserts or replaces an employee and their station list.
func (r *SiteRepository) CreateEmployee(ctx context.Context, tx *sql.Tx, e *models.Employee) error {
	c := conn(r.db, tx)
	_, err := c.ExecContext(ctx, `
		INSERT INTO employees (id, site_id, name, shift_start, shift_end) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			site_id = excluded.site_id, name = excluded.name,
			shift_start = excluded.shift_start, shift_end = excluded.shift_end`,
		e.ID, e.SiteID, e.Name, nullableString(e.ShiftStart), nullableString(e.ShiftEnd),
	)
	if err != nil {
		return fmt.Errorf("inserting employee %s: %w", e.ID, err)
	}
	if _, err := c.ExecContext(ctx, "DELETE FROM employee_stations WHERE employee_id = ?", e.ID); err != nil {
		return fmt.Errorf("clearing stations of %s: %w", e.ID, err)
	}
	for _, st := range e.StationIDs {
		if _, err := c.ExecContext(ctx,
			"INSERT INTO employee_stations (employee_id, station_id) VALUES (?, ?)", e.ID, st,
		); err != nil {
			return fmt.Errorf("inserting station %s of %s: %w", st, e.ID, err)
		}
	}
	return nil
}

// ListEmployees returns a site's staff ordered by ID, with stations.
func (r *SiteRepository) ListEmployees(ctx context.Context, siteID string) ([]models.Employee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.site_id, e.name, e.shift_start, e.shift_end, s.station_id
		FROM employees e
		LEFT JOIN employee_stations s ON s.employee_id = e.id
		WHERE e.site_id = ?
		ORDER BY e.id, s.station_id`, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying employees: %w", err)
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		var e models.Employee
		var start, end, station sql.NullString
		if err := rows.Scan(&e.ID, &e.SiteID, &e.Name, &start, &end, &station); err != nil {
			return nil, fmt.Errorf("scanning employee row: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].ID == e.ID {
			out[n-1].StationIDs = append(out[n-1].StationIDs, station.String)
			continue
		}
		e.ShiftStart, e.ShiftEnd = start.String, end.String
		if station.Valid {
			e.StationIDs = []string{station.String}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
