package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/util"
)

// InventoryLot is a received quantity of one ingredient at one site.
type InventoryLot struct {
	ID             string
	IngredientID   string
	SiteID         string
	Quantity       float64
	Unit           string
	UnitCost       decimal.Decimal
	ReceivedDate   time.Time
	ExpirationDate *time.Time // nil for non-perishables
}

// DaysUntilExpiry returns calendar days from asOf to expiration, and false for
// non-perishable lots.
func (l *InventoryLot) DaysUntilExpiry(asOf time.Time) (int, bool) {
	if l.ExpirationDate == nil {
		return 0, false
	}
	return util.DaysBetween(asOf, *l.ExpirationDate), true
}

// IsExpired reports whether the lot is at or past its expiration date on asOf.
func (l *InventoryLot) IsExpired(asOf time.Time) bool {
	days, ok := l.DaysUntilExpiry(asOf)
	return ok && days <= 0
}

// Value returns quantity times unit cost.
func (l *InventoryLot) Value() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromFloat(l.Quantity))
}

// LotIssue is the quantity drawn from one lot by an issuance.
type LotIssue struct {
	LotID    string
	Quantity float64
	UnitCost decimal.Decimal
}

// IssueResult is the outcome of a FIFO issuance. A shortfall is data, not an error.
type IssueResult struct {
	IngredientID    string
	SiteID          string
	Requested       float64
	Issued          float64
	Shortfall       float64
	Lots            []LotIssue
	Fulfilled       bool
	RemainingOnHand float64
	BelowPar        bool
}

// Cost returns the value of the stock issued.
func (r *IssueResult) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lots {
		total = total.Add(l.UnitCost.Mul(decimal.NewFromFloat(l.Quantity)))
	}
	return total
}

// ExpirationAction is the recommended handling for an expiring lot.
type ExpirationAction string

const (
	ExpirationDiscard  ExpirationAction = "DISCARD"
	ExpirationUseFirst ExpirationAction = "USE_FIRST"
	ExpirationUseSoon  ExpirationAction = "USE_SOON"
)

// ExpirationAlert flags a lot nearing or past expiration.
type ExpirationAlert struct {
	LotID           string
	IngredientID    string
	SiteID          string
	Quantity        float64
	ExpirationDate  time.Time
	DaysUntilExpiry int
	Action          ExpirationAction
}
