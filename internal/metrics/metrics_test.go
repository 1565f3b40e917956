package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleyops/galley/internal/models"
)

func TestPlanCompleted(t *testing.T) {
	c := NewCollector()
	c.PlanCompleted("main", 20*time.Millisecond, nil)
	c.PlanCompleted("main", 30*time.Millisecond, nil)
	c.PlanCompleted("main", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.plans.WithLabelValues("main", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plans.WithLabelValues("main", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.planDuration))
}

func TestScheduleBuilt(t *testing.T) {
	c := NewCollector()
	c.ScheduleBuilt("main", &models.ProductionSchedule{
		Tasks: make([]models.ProductionTask, 3),
		Conflicts: []models.ResourceConflict{
			{Kind: models.ConflictEquipment},
			{Kind: models.ConflictEquipment},
			{Kind: models.ConflictStaff},
		},
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(c.tasks.WithLabelValues("main")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.conflicts.WithLabelValues("main", "EQUIPMENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.conflicts.WithLabelValues("main", "STAFF")))
}

func TestIssued(t *testing.T) {
	c := NewCollector()
	c.Issued(&models.IssueResult{SiteID: "main", IngredientID: "rice", Fulfilled: true})
	c.Issued(&models.IssueResult{SiteID: "main", IngredientID: "rice", Shortfall: 2.5})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.issues.WithLabelValues("main", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.issues.WithLabelValues("main", "false")))
	assert.Equal(t, 2.5, testutil.ToFloat64(c.shortfall.WithLabelValues("main", "rice")))
}

func TestAlertsAndPurchaseOrders(t *testing.T) {
	c := NewCollector()
	c.AlertsRaised("main", []models.ExpirationAlert{
		{Action: models.ExpirationDiscard},
		{Action: models.ExpirationUseFirst},
		{Action: models.ExpirationUseFirst},
	})
	c.PurchaseOrderDrafted(&models.PurchaseOrderDraft{SiteID: "main", Lines: make([]models.PurchaseOrderLine, 4)})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.alerts.WithLabelValues("main", "DISCARD")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.alerts.WithLabelValues("main", "USE_FIRST")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.poLines.WithLabelValues("main")))
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.PlanCompleted("main", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `galley_plans_total{outcome="ok",site="main"} 1`)
}
