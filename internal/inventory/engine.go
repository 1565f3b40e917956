// Package inventory issues stock first-expiring-first-out and computes
// replenishment targets.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

// ErrInvalidParameters is returned when inventory math would divide by zero
// or receives out-of-range inputs.
var ErrInvalidParameters = errors.New("invalid parameters")

// quantityEpsilon absorbs float noise when lots are drawn to zero.
const quantityEpsilon = 1e-9

// LotChange sets a lot's remaining quantity. Zero removes the lot.
type LotChange struct {
	LotID    string
	Quantity float64
}

// LotStore persists inventory lots.
type LotStore interface {
	ListLots(ctx context.Context, ingredientID, siteID string) ([]models.InventoryLot, error)
	// ApplyLotChanges applies all changes atomically.
	ApplyLotChanges(ctx context.Context, changes []LotChange) error
	InsertLot(ctx context.Context, lot *models.InventoryLot) error
}

// IngredientSource looks up ingredient records.
type IngredientSource interface {
	GetIngredient(ctx context.Context, id string) (*models.Ingredient, error)
}

// StockLevel summarizes the lots of one ingredient at one site.
type StockLevel struct {
	Total   float64
	Usable  float64 // excludes lots at or past expiration
	Expired float64
	Lots    int
}

// Engine performs lot mutations. Issue and Receive are serialized per
// (ingredient, site) so concurrent callers never allocate the same stock twice.
type Engine struct {
	lots        LotStore
	ingredients IngredientSource
	locks       *keyedMutex
	logger      *slog.Logger
}

// NewEngine creates an inventory engine. A nil logger uses slog.Default().
func NewEngine(lots LotStore, ingredients IngredientSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		lots:        lots,
		ingredients: ingredients,
		locks:       newKeyedMutex(),
		logger:      logger,
	}
}

// Issue draws quantity from the ingredient's usable lots, soonest expiration
// first. A shortage is reported in the result, never as an error.
func (e *Engine) Issue(ctx context.Context, ingredientID, siteID string, quantity float64, asOf time.Time) (*models.IssueResult, error) {
	if quantity < 0 || math.IsNaN(quantity) {
		return nil, fmt.Errorf("%w: issue quantity %v", ErrInvalidParameters, quantity)
	}

	unlock := e.locks.Lock(lotKey(ingredientID, siteID))
	defer unlock()

	ing, err := e.ingredients.GetIngredient(ctx, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("loading ingredient: %w", err)
	}
	lots, err := e.lots.ListLots(ctx, ingredientID, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}

	result, changes := AllocateFIFO(lots, quantity, asOf)
	result.IngredientID = ingredientID
	result.SiteID = siteID

	if len(changes) > 0 {
		if err := e.lots.ApplyLotChanges(ctx, changes); err != nil {
			return nil, fmt.Errorf("applying issuance: %w", err)
		}
	}

	result.BelowPar = IsBelowPar(result.RemainingOnHand, ing)

	if !result.Fulfilled {
		e.logger.Warn("partial issuance",
			"ingredient", ingredientID,
			"site", siteID,
			"requested", quantity,
			"issued", result.Issued,
			"shortfall", result.Shortfall,
		)
	}
	return result, nil
}

// Receive records a delivery. A lot whose ID matches an existing lot of the
// same ingredient and site is incremented; anything else becomes a new lot.
func (e *Engine) Receive(ctx context.Context, lot models.InventoryLot) (*models.InventoryLot, error) {
	if lot.Quantity <= 0 {
		return nil, fmt.Errorf("%w: received quantity %v", ErrInvalidParameters, lot.Quantity)
	}

	unlock := e.locks.Lock(lotKey(lot.IngredientID, lot.SiteID))
	defer unlock()

	if lot.ID != "" {
		existing, err := e.lots.ListLots(ctx, lot.IngredientID, lot.SiteID)
		if err != nil {
			return nil, fmt.Errorf("listing lots: %w", err)
		}
		for _, l := range existing {
			if l.ID != lot.ID {
				continue
			}
			l.Quantity += lot.Quantity
			if err := e.lots.ApplyLotChanges(ctx, []LotChange{{LotID: l.ID, Quantity: l.Quantity}}); err != nil {
				return nil, fmt.Errorf("incrementing lot: %w", err)
			}
			e.logger.Debug("lot incremented", "lot", l.ID, "quantity", l.Quantity)
			return &l, nil
		}
	} else {
		lot.ID = util.NewID()
	}

	if lot.ReceivedDate.IsZero() {
		lot.ReceivedDate = util.StartOfDay(time.Now())
	}
	if err := e.lots.InsertLot(ctx, &lot); err != nil {
		return nil, fmt.Errorf("inserting lot: %w", err)
	}
	e.logger.Debug("lot received", "lot", lot.ID, "ingredient", lot.IngredientID, "quantity", lot.Quantity)
	return &lot, nil
}

// OnHand totals the ingredient's lots at a site.
func (e *Engine) OnHand(ctx context.Context, ingredientID, siteID string, asOf time.Time) (StockLevel, error) {
	lots, err := e.lots.ListLots(ctx, ingredientID, siteID)
	if err != nil {
		return StockLevel{}, fmt.Errorf("listing lots: %w", err)
	}
	return Summarize(lots, asOf), nil
}

// Summarize totals lots into a StockLevel.
func Summarize(lots []models.InventoryLot, asOf time.Time) StockLevel {
	var s StockLevel
	for _, l := range lots {
		if l.Quantity <= 0 {
			continue
		}
		s.Lots++
		s.Total += l.Quantity
		if l.IsExpired(asOf) {
			s.Expired += l.Quantity
		} else {
			s.Usable += l.Quantity
		}
	}
	return s
}

// IsBelowPar compares remaining quantity with the ingredient's par level.
// Ingredients without a par level are never below it.
func IsBelowPar(remaining float64, ing *models.Ingredient) bool {
	return ing != nil && ing.ParLevel > 0 && remaining < ing.ParLevel
}

// AllocateFIFO plans an issuance without side effects. It returns the result
// and the lot changes that would apply it.
func AllocateFIFO(lots []models.InventoryLot, quantity float64, asOf time.Time) (*models.IssueResult, []LotChange) {
	usable := make([]models.InventoryLot, 0, len(lots))
	for _, l := range lots {
		if l.Quantity > 0 && !l.IsExpired(asOf) {
			usable = append(usable, l)
		}
	}
	sortFIFO(usable)

	result := &models.IssueResult{Requested: quantity}
	var changes []LotChange
	remaining := quantity
	var onHand float64

	for _, l := range usable {
		if remaining <= quantityEpsilon {
			onHand += l.Quantity
			continue
		}
		take := math.Min(l.Quantity, remaining)
		left := l.Quantity - take
		if left < quantityEpsilon {
			left = 0
		}
		remaining -= take
		onHand += left
		result.Lots = append(result.Lots, models.LotIssue{LotID: l.ID, Quantity: take, UnitCost: l.UnitCost})
		changes = append(changes, LotChange{LotID: l.ID, Quantity: left})
	}

	if remaining < quantityEpsilon {
		remaining = 0
	}
	result.Issued = quantity - remaining
	result.Shortfall = remaining
	result.Fulfilled = remaining <= 0
	result.RemainingOnHand = onHand
	return result, changes
}

// sortFIFO orders lots by expiration (non-perishables last), then receipt date.
func sortFIFO(lots []models.InventoryLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpirationDate == nil && b.ExpirationDate != nil:
			return false
		case a.ExpirationDate != nil && b.ExpirationDate == nil:
			return true
		case a.ExpirationDate != nil && !a.ExpirationDate.Equal(*b.ExpirationDate):
			return a.ExpirationDate.Before(*b.ExpirationDate)
		}
		return a.ReceivedDate.Before(b.ReceivedDate)
	})
}

func lotKey(ingredientID, siteID string) string {
	return ingredientID + "\x1f" + siteID
}
