package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/galleyops/galley/internal/inventory"
	"github.com/galleyops/galley/internal/models"
)

// LotRepository stores inventory lots.
type LotRepository struct {
	db *sql.DB
}

// NewLotRepository creates a new lot repository.
func NewLotRepository(db *sql.DB) *LotRepository {
	return &LotRepository{db: db}
}

const lotColumns = `id, ingredient_id, site_id, quantity, unit, unit_cost, received_date, expiration_date`

// ListLots returns the lots of one ingredient at one site, oldest first.
func (r *LotRepository) ListLots(ctx context.Context, ingredientID, siteID string) ([]models.InventoryLot, error) {
	return r.queryLots(ctx, `
		SELECT `+lotColumns+` FROM inventory_lots
		WHERE ingredient_id = ? AND site_id = ?
		ORDER BY received_date, id`, ingredientID, siteID)
}

// ListSiteLots returns every lot at a site grouped by ingredient.
func (r *LotRepository) ListSiteLots(ctx context.Context, siteID string) ([]models.InventoryLot, error) {
	return r.queryLots(ctx, `
		SELECT `+lotColumns+` FROM inventory_lots
		WHERE site_id = ?
		ORDER BY ingredient_id, received_date, id`, siteID)
}

func (r *LotRepository) queryLots(ctx context.Context, query string, args ...any) ([]models.InventoryLot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lots: %w", err)
	}
	defer rows.Close()

	var out []models.InventoryLot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanLot(s scanner) (*models.InventoryLot, error) {
	var l models.InventoryLot
	var cost, received string
	var expires sql.NullString
	if err := s.Scan(&l.ID, &l.IngredientID, &l.SiteID, &l.Quantity, &l.Unit, &cost, &received, &expires); err != nil {
		return nil, fmt.Errorf("scanning lot: %w", err)
	}
	l.UnitCost = parseDecimal(cost)
	l.ReceivedDate = parseDate(received)
	if expires.Valid {
		t := parseDate(expires.String)
		l.ExpirationDate = &t
	}
	return &l, nil
}

// InsertLot inserts a lot, or overwrites the lot with the same ID.
func (r *LotRepository) InsertLot(ctx context.Context, lot *models.InventoryLot) error {
	return r.insertLot(ctx, r.db, lot)
}

// CreateLot inserts a lot inside an optional transaction.
func (r *LotRepository) CreateLot(ctx context.Context, tx *sql.Tx, lot *models.InventoryLot) error {
	return r.insertLot(ctx, conn(r.db, tx), lot)
}

func (r *LotRepository) insertLot(ctx context.Context, c execer, lot *models.InventoryLot) error {
	received := lot.ReceivedDate
	if received.IsZero() {
		received = time.Now()
	}
	_, err := c.ExecContext(ctx, `
		INSERT INTO inventory_lots (`+lotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			quantity = excluded.quantity, unit = excluded.unit, unit_cost = excluded.unit_cost,
			received_date = excluded.received_date, expiration_date = excluded.expiration_date`,
		lot.ID, lot.IngredientID, lot.SiteID, lot.Quantity, lot.Unit,
		lot.UnitCost.String(), formatDate(received), nullableDate(lot.ExpirationDate),
	)
	if err != nil {
		return fmt.Errorf("inserting lot %s: %w", lot.ID, err)
	}
	return nil
}

// ApplyLotChanges sets lot quantities in one transaction. A quantity at or
// below zero deletes the lot.
func (r *LotRepository) ApplyLotChanges(ctx context.Context, changes []inventory.LotChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ch := range changes {
		var res sql.Result
		if ch.Quantity <= 0 {
			res, err = tx.ExecContext(ctx, "DELETE FROM inventory_lots WHERE id = ?", ch.LotID)
		} else {
			res, err = tx.ExecContext(ctx, "UPDATE inventory_lots SET quantity = ? WHERE id = ?", ch.Quantity, ch.LotID)
		}
		if err != nil {
			return fmt.Errorf("updating lot %s: %w", ch.LotID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("lot %s: %w", ch.LotID, ErrNotFound)
		}
	}
	return tx.Commit()
}
