// Package seed synthesizes demand history for a reference dataset so a
// fresh kitchen has something to forecast from.
package seed

import (
	"strings"
	"time"
)

// WeekdayFactors scales base census by day of week, Sunday first.
var WeekdayFactors = [7]float64{0.78, 1.04, 1.00, 1.02, 1.06, 0.96, 0.82}

// MealPeriodFactors scales base census by meal period name. Unknown names
// use 1.
var MealPeriodFactors = map[string]float64{
	"breakfast": 0.65,
	"brunch":    0.80,
	"lunch":     1.00,
	"dinner":    0.90,
	"supper":    0.85,
}

// CategoryShares is the fraction of diners taking anything from a category.
// The share is split across the items competing in the slot.
var CategoryShares = map[string]float64{
	"entree":  0.62,
	"main":    0.62,
	"side":    0.45,
	"soup":    0.28,
	"salad":   0.30,
	"dessert": 0.35,
	"drink":   0.50,
}

const defaultCategoryShare = 0.40

func weekdayFactor(d time.Weekday) float64 {
	return WeekdayFactors[d]
}

func mealPeriodFactor(name string) float64 {
	if f, ok := MealPeriodFactors[strings.ToLower(name)]; ok {
		return f
	}
	return 1
}

func categoryShare(category string) float64 {
	if s, ok := CategoryShares[strings.ToLower(category)]; ok {
		return s
	}
	return defaultCategoryShare
}
