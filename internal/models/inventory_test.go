package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestInventoryLot_DaysUntilExpiry(t *testing.T) {
	asOf := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expiration *time.Time
		asOf       time.Time
		wantDays   int
		wantOK     bool
	}{
		{"Expires in 5 days", datePtr(2026, 3, 15), asOf, 5, true},
		{"Expires today", datePtr(2026, 3, 10), asOf, 0, true},
		{"Expired yesterday", datePtr(2026, 3, 9), asOf, -1, true},
		{"Time of day ignored", datePtr(2026, 3, 11), asOf.Add(23 * time.Hour), 1, true},
		{"Non-perishable", nil, asOf, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := &InventoryLot{ExpirationDate: tt.expiration}
			days, ok := lot.DaysUntilExpiry(tt.asOf)
			if days != tt.wantDays || ok != tt.wantOK {
				t.Errorf("DaysUntilExpiry() = (%d, %v), want (%d, %v)", days, ok, tt.wantDays, tt.wantOK)
			}
		})
	}
}

func TestInventoryLot_IsExpired(t *testing.T) {
	asOf := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expiration *time.Time
		want       bool
	}{
		{"Future", datePtr(2026, 3, 11), false},
		{"Today counts as expired", datePtr(2026, 3, 10), true},
		{"Past", datePtr(2026, 2, 1), true},
		{"Non-perishable never expires", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := &InventoryLot{ExpirationDate: tt.expiration}
			if got := lot.IsExpired(asOf); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInventoryLot_Value(t *testing.T) {
	lot := &InventoryLot{Quantity: 12.5, UnitCost: decimal.RequireFromString("2.40")}
	want := decimal.RequireFromString("30")
	if got := lot.Value(); !got.Equal(want) {
		t.Errorf("Value() = %s, want %s", got, want)
	}
}

func TestIssueResult_Cost(t *testing.T) {
	result := &IssueResult{
		Lots: []LotIssue{
			{LotID: "a", Quantity: 2, UnitCost: decimal.RequireFromString("1.25")},
			{LotID: "b", Quantity: 3, UnitCost: decimal.RequireFromString("1.50")},
		},
	}
	want := decimal.RequireFromString("7")
	if got := result.Cost(); !got.Equal(want) {
		t.Errorf("Cost() = %s, want %s", got, want)
	}
}
