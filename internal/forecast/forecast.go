// Package forecast predicts diner counts per meal period and portions per menu item.
//
// Census intervals use a Gaussian approximation, point ± z·σ with σ the sample
// standard deviation of the history. They describe typical spread, not a
// guaranteed coverage probability.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

// Method aliases kept close to the algorithms that produce them.
const (
	MethodExponentialSmoothing = models.ForecastMethodExponentialSmoothing
	MethodSelectionRate        = models.ForecastMethodSelectionRate
	MethodInsufficientHistory  = models.ForecastMethodInsufficientHistory
)

// MinObservations is the smallest history that yields a confident forecast.
const MinObservations = 2

// Config tunes the forecaster.
type Config struct {
	Alpha                   float64 // smoothing weight of the newest observation
	FirstPositionMultiplier float64 // boost for the first-listed item in a category
	CooldownDays            int     // items served this recently are discounted
	RecencyPenalty          float64
	ZScore                  float64 // interval half-width in standard deviations
	DefaultBaseRate         float64 // selection rate assumed without history
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Alpha:                   0.3,
		FirstPositionMultiplier: 1.15,
		CooldownDays:            7,
		RecencyPenalty:          0.85,
		ZScore:                  1.96,
		DefaultBaseRate:         1.0,
	}
}

// Factor is an external adjustment such as weather, a holiday or an event.
type Factor struct {
	Name       string
	Multiplier float64
	Confidence float64 // in (0, 1]; other values count as 1
}

// CensusForecast is the predicted diner count for one meal period.
type CensusForecast struct {
	Date           time.Time
	SiteID         string
	MealPeriodID   string
	Point          float64
	Count          int
	Interval       models.Interval
	Confidence     float64
	Method         models.ForecastMethod
	Smoothed       float64
	DayOfWeekIndex float64
	StdDev         float64
	Observations   int
}

// Record converts the forecast to a persistable row.
func (c CensusForecast) Record(createdAt time.Time) models.Forecast {
	return models.Forecast{
		ID:              util.NewID(),
		Date:            c.Date,
		SiteID:          c.SiteID,
		MealPeriodID:    c.MealPeriodID,
		ForecastedCount: c.Count,
		Interval:        c.Interval,
		Confidence:      c.Confidence,
		Method:          c.Method,
		CreatedAt:       createdAt,
	}
}

// MenuPosition locates an item among its competitors.
type MenuPosition struct {
	Index        int // 0 is first listed in its category
	Alternatives int // items competing in the same slot, including this one
}

// ItemHistory is the selection record for one recipe.
type ItemHistory struct {
	Observations []models.SelectionObservation
	AsOf         time.Time // the service date being forecast
}

// ItemForecast is the predicted portions for one menu item.
type ItemForecast struct {
	RecipeID           string
	Portions           int
	Rate               float64
	BaseRate           float64
	PositionMultiplier float64
	RecencyPenalty     float64
	Confidence         float64
	Method             models.ForecastMethod
}

// Record converts the item forecast to a persistable row tied to its census.
func (i ItemForecast) Record(census CensusForecast, createdAt time.Time) models.Forecast {
	return models.Forecast{
		ID:              util.NewID(),
		Date:            census.Date,
		SiteID:          census.SiteID,
		MealPeriodID:    census.MealPeriodID,
		RecipeID:        i.RecipeID,
		ForecastedCount: i.Portions,
		Interval:        models.Interval{Low: float64(i.Portions), High: float64(i.Portions)},
		Confidence:      i.Confidence,
		Method:          i.Method,
		CreatedAt:       createdAt,
	}
}

// Forecaster applies a Config to census and item forecasts.
type Forecaster struct {
	cfg Config
}

// New creates a forecaster. Out-of-range fields fall back to DefaultConfig;
// a zero CooldownDays disables the recency penalty.
func New(cfg Config) *Forecaster {
	def := DefaultConfig()
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = def.Alpha
	}
	if cfg.FirstPositionMultiplier <= 0 {
		cfg.FirstPositionMultiplier = def.FirstPositionMultiplier
	}
	if cfg.CooldownDays < 0 {
		cfg.CooldownDays = def.CooldownDays
	}
	if cfg.RecencyPenalty <= 0 {
		cfg.RecencyPenalty = def.RecencyPenalty
	}
	if cfg.ZScore <= 0 {
		cfg.ZScore = def.ZScore
	}
	if cfg.DefaultBaseRate <= 0 {
		cfg.DefaultBaseRate = def.DefaultBaseRate
	}
	return &Forecaster{cfg: cfg}
}

// Config returns the effective tuning.
func (f *Forecaster) Config() Config {
	return f.cfg
}

// ForecastCensus forecasts with DefaultConfig.
func ForecastCensus(history []models.CensusObservation, target time.Time, mealPeriodID, siteID string, factors ...Factor) CensusForecast {
	return New(DefaultConfig()).ForecastCensus(history, target, mealPeriodID, siteID, factors...)
}

// ForecastItem forecasts with DefaultConfig.
func ForecastItem(recipeID string, totalCensus int, position MenuPosition, history ItemHistory) ItemForecast {
	return New(DefaultConfig()).ForecastItem(recipeID, totalCensus, position, history)
}

// ForecastCensus smooths the meal period's history, scales it by the target
// weekday's index and each factor, and brackets the result. Observations on or
// after target, or for another site or meal period, are ignored.
func (f *Forecaster) ForecastCensus(history []models.CensusObservation, target time.Time, mealPeriodID, siteID string, factors ...Factor) CensusForecast {
	target = util.StartOfDay(target)
	series := relevantCensus(history, target, mealPeriodID, siteID)

	cf := CensusForecast{
		Date:           target,
		SiteID:         siteID,
		MealPeriodID:   mealPeriodID,
		DayOfWeekIndex: 1,
		Observations:   len(series),
	}

	values := make([]float64, len(series))
	for i, obs := range series {
		values[i] = float64(obs.Count)
	}

	factorMult, factorConf := combineFactors(factors)

	if len(series) < MinObservations {
		if len(series) == 1 {
			cf.Smoothed = values[0]
		}
		cf.Point = math.Max(0, cf.Smoothed*factorMult)
		cf.Count = int(math.Round(cf.Point))
		cf.Interval = models.Interval{Low: float64(cf.Count), High: float64(cf.Count)}
		cf.Method = MethodInsufficientHistory
		return cf
	}

	cf.Smoothed = smooth(values, f.cfg.Alpha)
	cf.DayOfWeekIndex = dayOfWeekIndex(series, values, target.Weekday())
	cf.Point = math.Max(0, cf.Smoothed*cf.DayOfWeekIndex*factorMult)
	cf.Count = int(math.Round(cf.Point))

	m := mean(values)
	cf.StdDev = sampleStdDev(values, m)
	half := f.cfg.ZScore * cf.StdDev
	cf.Interval = bracket(cf.Point-half, cf.Point+half, float64(cf.Count))

	conf := 0.0
	if m > 0 {
		conf = clamp01(1 - cf.StdDev/m)
	}
	cf.Confidence = conf * factorConf
	cf.Method = MethodExponentialSmoothing
	return cf
}

// ForecastItem predicts portions as
// round(census × baseRate × positionMultiplier × 1/alternatives × recencyPenalty).
func (f *Forecaster) ForecastItem(recipeID string, totalCensus int, position MenuPosition, history ItemHistory) ItemForecast {
	fractions := make([]float64, 0, len(history.Observations))
	var lastServed time.Time
	asOf := util.StartOfDay(history.AsOf)
	for _, obs := range history.Observations {
		if obs.RecipeID != "" && obs.RecipeID != recipeID {
			continue
		}
		if !history.AsOf.IsZero() && !util.StartOfDay(obs.Date).Before(asOf) {
			continue
		}
		if obs.Census > 0 {
			fractions = append(fractions, obs.Fraction())
		}
		if obs.Date.After(lastServed) {
			lastServed = obs.Date
		}
	}

	item := ItemForecast{
		RecipeID:           recipeID,
		PositionMultiplier: 1,
		RecencyPenalty:     1,
		Method:             MethodSelectionRate,
	}

	if len(fractions) < MinObservations {
		item.BaseRate = f.cfg.DefaultBaseRate
		item.Method = MethodInsufficientHistory
	} else {
		item.BaseRate = mean(fractions)
		if item.BaseRate > 0 {
			item.Confidence = clamp01(1 - sampleStdDev(fractions, item.BaseRate)/item.BaseRate)
		}
	}

	if position.Index == 0 {
		item.PositionMultiplier = f.cfg.FirstPositionMultiplier
	}
	alternatives := position.Alternatives
	if alternatives <= 0 {
		alternatives = 1
	}
	if !lastServed.IsZero() && !history.AsOf.IsZero() {
		days := util.DaysBetween(lastServed, asOf)
		if days > 0 && days <= f.cfg.CooldownDays {
			item.RecencyPenalty = f.cfg.RecencyPenalty
		}
	}

	item.Rate = math.Max(0, item.BaseRate*item.PositionMultiplier/float64(alternatives)*item.RecencyPenalty)
	item.Portions = int(math.Round(math.Max(0, float64(totalCensus)*item.Rate)))
	return item
}

// Supersede returns a new forecast row that records the actual count against f.
// f itself is never modified.
func Supersede(f models.Forecast, actual int, now time.Time) models.Forecast {
	next := f
	next.ID = util.NewID()
	next.SupersedesID = f.ID
	a := actual
	next.ActualCount = &a
	next.CreatedAt = now
	return next
}

func relevantCensus(history []models.CensusObservation, target time.Time, mealPeriodID, siteID string) []models.CensusObservation {
	out := make([]models.CensusObservation, 0, len(history))
	for _, obs := range history {
		if obs.MealPeriodID != "" && obs.MealPeriodID != mealPeriodID {
			continue
		}
		if obs.SiteID != "" && obs.SiteID != siteID {
			continue
		}
		if !util.StartOfDay(obs.Date).Before(target) {
			continue
		}
		out = append(out, obs)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func smooth(values []float64, alpha float64) float64 {
	level := values[0]
	for _, v := range values[1:] {
		level = alpha*v + (1-alpha)*level
	}
	return level
}

// dayOfWeekIndex is the target weekday's mean over the overall mean, or 1
// when the weekday has no history.
func dayOfWeekIndex(series []models.CensusObservation, values []float64, weekday time.Weekday) float64 {
	overall := mean(values)
	if overall <= 0 {
		return 1
	}
	var sum float64
	var n int
	for i, obs := range series {
		if obs.Date.Weekday() == weekday {
			sum += values[i]
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return (sum / float64(n)) / overall
}

func combineFactors(factors []Factor) (float64, float64) {
	mult, conf := 1.0, 1.0
	for _, f := range factors {
		mult *= f.Multiplier
		if f.Confidence > 0 && f.Confidence <= 1 {
			conf *= f.Confidence
		}
	}
	return mult, conf
}

// bracket clamps the interval at zero and widens it to contain count.
func bracket(low, high, count float64) models.Interval {
	low = math.Max(0, low)
	return models.Interval{Low: math.Min(low, count), High: math.Max(high, count)}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
