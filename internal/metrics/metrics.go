// Package metrics exposes planning pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/galleyops/galley/internal/models"
)

// Collector holds the pipeline collectors on a private registry.
type Collector struct {
	registry *prometheus.Registry

	plans        *prometheus.CounterVec
	planDuration *prometheus.HistogramVec
	tasks        *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	issues       *prometheus.CounterVec
	shortfall    *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	poLines      *prometheus.CounterVec
}

// NewCollector creates and registers the pipeline collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "galley",
			Name:      "plans_total",
			Help:      "Day plans produced, by site and outcome.",
		}, []string{"site", "outcome"}),
		planDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "galley",
			Name:      "plan_duration_seconds",
			Help:      "Time taken to plan one site for one day.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"site"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "galley",
			Name:      "production_tasks_total",
			Help:      "Production tasks scheduled.",
		}, []string{"site"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "galley",
			Name:      "resource_conflicts_total",
			Help:      "Scheduling conflicts, by kind.",
		}, []string{"site", "kind"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "galley",
			Name:      "inventory_issues_total",
			Help:      "FIFO issuances, by whether they were fully filled.",
		}, []string{"site", "fulfilled"}),
		shortfall: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "galley",
			Name:      "inventory_shortfall_quantity_total",
			Help:      "Quantity requested but not issued, in stock units.",
		}, []string{"site", "ingredient"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "galley",
			Name:      "expiration_alerts_total",
			Help:      "Expiration alerts raised, by action.",
		}, []string{"site", "action"}),
		poLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "galley",
			Name:      "purchase_order_lines_total",
			Help:      "Purchase order lines drafted.",
		}, []string{"site"}),
	}

	c.registry.MustRegister(
		c.plans, c.planDuration, c.tasks, c.conflicts,
		c.issues, c.shortfall, c.alerts, c.poLines,
	)
	return c
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// PlanCompleted records one finished day plan.
func (c *Collector) PlanCompleted(siteID string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.plans.WithLabelValues(siteID, outcome).Inc()
	c.planDuration.WithLabelValues(siteID).Observe(elapsed.Seconds())
}

// ScheduleBuilt records the tasks and conflicts of a schedule.
func (c *Collector) ScheduleBuilt(siteID string, schedule *models.ProductionSchedule) {
	c.tasks.WithLabelValues(siteID).Add(float64(len(schedule.Tasks)))
	for _, conflict := range schedule.Conflicts {
		c.conflicts.WithLabelValues(siteID, string(conflict.Kind)).Inc()
	}
}

// Issued records a FIFO issuance.
func (c *Collector) Issued(result *models.IssueResult) {
	fulfilled := "true"
	if !result.Fulfilled {
		fulfilled = "false"
		c.shortfall.WithLabelValues(result.SiteID, result.IngredientID).Add(result.Shortfall)
	}
	c.issues.WithLabelValues(result.SiteID, fulfilled).Inc()
}

// AlertsRaised records expiration alerts.
func (c *Collector) AlertsRaised(siteID string, alerts []models.ExpirationAlert) {
	for _, a := range alerts {
		c.alerts.WithLabelValues(siteID, string(a.Action)).Inc()
	}
}

// PurchaseOrderDrafted records the lines of a draft.
func (c *Collector) PurchaseOrderDrafted(draft *models.PurchaseOrderDraft) {
	c.poLines.WithLabelValues(draft.SiteID).Add(float64(len(draft.Lines)))
}
