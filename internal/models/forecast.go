package models

import "time"

// ForecastMethod names the algorithm that produced a forecast.
type ForecastMethod string

const (
	ForecastMethodExponentialSmoothing ForecastMethod = "exponential_smoothing"
	ForecastMethodSelectionRate        ForecastMethod = "selection_rate"
	ForecastMethodInsufficientHistory  ForecastMethod = "insufficient_history"
)

func (m ForecastMethod) String() string {
	return string(m)
}

// Interval is a closed numeric range.
type Interval struct {
	Low  float64
	High float64
}

// Contains reports whether v lies within the interval.
func (i Interval) Contains(v float64) bool {
	return i.Low <= v && v <= i.High
}

// Forecast is an immutable census-level or item-level prediction.
type Forecast struct {
	ID              string
	Date            time.Time
	SiteID          string
	MealPeriodID    string
	RecipeID        string // empty for census-level forecasts
	ForecastedCount int
	Interval        Interval
	Confidence      float64
	Method          ForecastMethod
	ActualCount     *int
	SupersedesID    string
	CreatedAt       time.Time
}

// IsCensus reports whether this is a total-diner forecast.
func (f *Forecast) IsCensus() bool {
	return f.RecipeID == ""
}

// Variance returns actual minus forecast, or nil if actuals are unknown.
func (f *Forecast) Variance() *int {
	if f.ActualCount == nil {
		return nil
	}
	v := *f.ActualCount - f.ForecastedCount
	return &v
}
