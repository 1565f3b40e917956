package inventory

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/models"
)

// HighVariabilityCV is the coefficient of variation above which usage is flagged.
const HighVariabilityCV = 0.3

// DefaultAlertWindowDays is the expiration look-ahead used when none is given.
const DefaultAlertWindowDays = 7

// ParLevelCalculation is the safety stock, reorder point and par level for one
// ingredient.
type ParLevelCalculation struct {
	AvgDailyUsage          float64
	StdDev                 float64
	CoefficientOfVariation float64
	HighVariability        bool
	ServiceLevel           float64
	ZScore                 float64
	LeadTimeDays           int
	DeliveryFrequencyDays  int
	SafetyStock            float64
	ReorderPoint           float64
	ParLevel               float64
}

// ParLevel computes replenishment targets from a daily usage window:
//
//	safetyStock  = z(serviceLevel) × σ × √leadTime
//	reorderPoint = avg × leadTime + safetyStock
//	parLevel     = reorderPoint + avg × deliveryFrequency
func ParLevel(usage []float64, leadTimeDays, deliveryFrequencyDays int, serviceLevel float64) (*ParLevelCalculation, error) {
	if len(usage) == 0 {
		return nil, fmt.Errorf("%w: empty usage history", ErrInvalidParameters)
	}
	if leadTimeDays < 0 || deliveryFrequencyDays < 0 {
		return nil, fmt.Errorf("%w: negative lead time or delivery frequency", ErrInvalidParameters)
	}
	if serviceLevel <= 0 || serviceLevel >= 1 {
		return nil, fmt.Errorf("%w: service level %v outside (0, 1)", ErrInvalidParameters, serviceLevel)
	}

	var sum float64
	for _, u := range usage {
		sum += u
	}
	avg := sum / float64(len(usage))
	if avg <= 0 {
		return nil, fmt.Errorf("%w: average daily usage is %v", ErrInvalidParameters, avg)
	}

	var ss float64
	for _, u := range usage {
		ss += (u - avg) * (u - avg)
	}
	var sd float64
	if len(usage) > 1 {
		sd = math.Sqrt(ss / float64(len(usage)-1))
	}

	z := ZScore(serviceLevel)
	safety := z * sd * math.Sqrt(float64(leadTimeDays))
	reorder := avg*float64(leadTimeDays) + safety
	cv := sd / avg

	return &ParLevelCalculation{
		AvgDailyUsage:          avg,
		StdDev:                 sd,
		CoefficientOfVariation: cv,
		HighVariability:        cv > HighVariabilityCV,
		ServiceLevel:           serviceLevel,
		ZScore:                 z,
		LeadTimeDays:           leadTimeDays,
		DeliveryFrequencyDays:  deliveryFrequencyDays,
		SafetyStock:            safety,
		ReorderPoint:           reorder,
		ParLevel:               reorder + avg*float64(deliveryFrequencyDays),
	}, nil
}

// ZScore returns the standard normal quantile for a one-sided service level.
func ZScore(serviceLevel float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*serviceLevel-1)
}

// EOQResult is the economic order quantity and its annual costs.
type EOQResult struct {
	OrderQuantity      float64
	OrdersPerYear      float64
	AverageInventory   float64
	HoldingCostPerUnit decimal.Decimal
	AnnualOrderingCost decimal.Decimal
	AnnualHoldingCost  decimal.Decimal
	TotalAnnualCost    decimal.Decimal
}

// EOQ computes sqrt(2 × annualDemand × orderingCost / (holdingCostPercent × unitCost)).
func EOQ(annualDemand, orderingCost, holdingCostPercent, unitCost float64) (*EOQResult, error) {
	if annualDemand <= 0 {
		return nil, fmt.Errorf("%w: annual demand %v", ErrInvalidParameters, annualDemand)
	}
	if orderingCost < 0 {
		return nil, fmt.Errorf("%w: ordering cost %v", ErrInvalidParameters, orderingCost)
	}
	holding := holdingCostPercent * unitCost
	if holding <= 0 {
		return nil, fmt.Errorf("%w: holding cost per unit %v", ErrInvalidParameters, holding)
	}

	q := math.Sqrt(2 * annualDemand * orderingCost / holding)
	if q <= 0 {
		return nil, fmt.Errorf("%w: zero order quantity", ErrInvalidParameters)
	}

	orders := annualDemand / q
	avgInv := q / 2
	ordering := decimal.NewFromFloat(orders * orderingCost).Round(2)
	holdingCost := decimal.NewFromFloat(avgInv * holding).Round(2)

	return &EOQResult{
		OrderQuantity:      q,
		OrdersPerYear:      orders,
		AverageInventory:   avgInv,
		HoldingCostPerUnit: decimal.NewFromFloat(holding).Round(4),
		AnnualOrderingCost: ordering,
		AnnualHoldingCost:  holdingCost,
		TotalAnnualCost:    ordering.Add(holdingCost),
	}, nil
}

// EOQForIngredient applies EOQ to an ingredient's cost fields.
func EOQForIngredient(ing *models.Ingredient, annualDemand float64) (*EOQResult, error) {
	return EOQ(annualDemand, ing.OrderingCost.InexactFloat64(), ing.HoldingCostPercent, ing.UnitCost.InexactFloat64())
}

// CheckExpirations flags lots expiring within windowDays of asOf, soonest
// first. A non-positive window uses DefaultAlertWindowDays.
func CheckExpirations(lots []models.InventoryLot, asOf time.Time, windowDays int) []models.ExpirationAlert {
	if windowDays <= 0 {
		windowDays = DefaultAlertWindowDays
	}

	var alerts []models.ExpirationAlert
	for _, l := range lots {
		if l.Quantity <= 0 {
			continue
		}
		days, ok := l.DaysUntilExpiry(asOf)
		if !ok || days > windowDays {
			continue
		}
		alerts = append(alerts, models.ExpirationAlert{
			LotID:           l.ID,
			IngredientID:    l.IngredientID,
			SiteID:          l.SiteID,
			Quantity:        l.Quantity,
			ExpirationDate:  *l.ExpirationDate,
			DaysUntilExpiry: days,
			Action:          expirationAction(days),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].DaysUntilExpiry != alerts[j].DaysUntilExpiry {
			return alerts[i].DaysUntilExpiry < alerts[j].DaysUntilExpiry
		}
		return alerts[i].LotID < alerts[j].LotID
	})
	return alerts
}

func expirationAction(days int) models.ExpirationAction {
	switch {
	case days <= 0:
		return models.ExpirationDiscard
	case days <= 2:
		return models.ExpirationUseFirst
	default:
		return models.ExpirationUseSoon
	}
}
