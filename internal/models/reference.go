package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Site is a kitchen or serving location.
type Site struct {
	ID       string
	Code     string
	Name     string
	Timezone string
}

// MealPeriod is a service window at a site.
type MealPeriod struct {
	ID           string
	SiteID       string
	Name         string // "Breakfast", "Lunch", "Dinner"
	ServiceStart string // HH:MM
	ServiceEnd   string // HH:MM
	SortOrder    int
}

// StorageType identifies where an ingredient is kept.
type StorageType string

const (
	StorageDry     StorageType = "DRY"
	StorageCooler  StorageType = "COOLER"
	StorageFreezer StorageType = "FREEZER"
)

// Ingredient is a purchasable, stocked item.
type Ingredient struct {
	ID                    string
	Name                  string
	Unit                  string          // stock unit; lots and par levels use it
	UnitCost              decimal.Decimal // per stock unit
	IsSeasoning           bool
	StorageType           StorageType
	ParLevel              float64
	ReorderPoint          float64
	LeadTimeDays          int
	DeliveryFrequencyDays int
	OrderingCost          decimal.Decimal // per purchase order
	HoldingCostPercent    float64         // annual, as a fraction of unit cost
	PackSize              float64         // order multiple in stock units, 0 = any
	VendorID              string
}

// RecipeIngredient is one line of a recipe.
type RecipeIngredient struct {
	IngredientID string
	Name         string
	Quantity     float64
	Unit         string
	IsSeasoning  bool
}

// Recipe is a standardized production recipe.
type Recipe struct {
	ID              string
	Name            string
	Category        string
	YieldQuantity   float64 // portions per batch
	YieldUnit       string
	PrepTimeMinutes int
	CookTimeMinutes int
	EquipmentTypes  []string
	StationID       string
	Components      []string // sub-recipe IDs that must be ready before cooking
	Ingredients     []RecipeIngredient
}

// Equipment is a schedulable unit of kitchen equipment.
type Equipment struct {
	ID     string
	SiteID string
	Type   string // "oven", "kettle", "griddle"
	Name   string
}

// Employee is a member of production staff.
type Employee struct {
	ID         string
	SiteID     string
	Name       string
	StationIDs []string // empty means any station
	ShiftStart string   // HH:MM, empty means all day
	ShiftEnd   string
}

// CanWorkStation reports whether the employee may be assigned to stationID.
func (e *Employee) CanWorkStation(stationID string) bool {
	if stationID == "" || len(e.StationIDs) == 0 {
		return true
	}
	for _, s := range e.StationIDs {
		if s == stationID {
			return true
		}
	}
	return false
}

// CensusObservation is a recorded diner count for a meal period.
type CensusObservation struct {
	Date         time.Time
	SiteID       string
	MealPeriodID string
	Count        int
}

// SelectionObservation records how many diners chose a recipe on a day.
type SelectionObservation struct {
	Date         time.Time
	SiteID       string
	MealPeriodID string
	RecipeID     string
	Selected     int
	Census       int
}

// Fraction returns the share of diners that chose the recipe.
func (o SelectionObservation) Fraction() float64 {
	if o.Census <= 0 {
		return 0
	}
	return float64(o.Selected) / float64(o.Census)
}

// UsageObservation is the quantity of an ingredient consumed on a day.
type UsageObservation struct {
	Date         time.Time
	SiteID       string
	IngredientID string
	Quantity     float64
}
