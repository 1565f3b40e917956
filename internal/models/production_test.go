package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTaskStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusPlanned, false},
		{TaskStatusInProgress, false},
		{TaskStatusCompleted, true},
		{TaskStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProductionSchedule_ShiftWindow(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	schedule := &ProductionSchedule{
		Tasks: []ProductionTask{
			{ID: "a", PrepStart: at(9, 30), ReadyTime: at(11, 15)},
			{ID: "b", PrepStart: at(8, 45), ReadyTime: at(10, 0)},
			{ID: "c", PrepStart: at(10, 0), ReadyTime: at(11, 45)},
		},
	}

	start, end := schedule.ShiftWindow()
	if !start.Equal(at(8, 45)) {
		t.Errorf("start = %v, want 08:45", start)
	}
	if !end.Equal(at(11, 45)) {
		t.Errorf("end = %v, want 11:45", end)
	}

	task, ok := schedule.Task("b")
	if !ok || task.Duration() != 75*time.Minute {
		t.Errorf("Task(b) = %v, %v", task, ok)
	}
	if _, ok := schedule.Task("missing"); ok {
		t.Error("Task(missing) should not be found")
	}
}

func TestPurchaseOrderDraft_EstimatedTotal(t *testing.T) {
	draft := &PurchaseOrderDraft{
		Lines: []PurchaseOrderLine{
			{IngredientID: "flour", EstimatedCost: decimal.RequireFromString("12.50")},
			{IngredientID: "eggs", EstimatedCost: decimal.RequireFromString("7.25")},
		},
	}
	want := decimal.RequireFromString("19.75")
	if got := draft.EstimatedTotal(); !got.Equal(want) {
		t.Errorf("EstimatedTotal() = %s, want %s", got, want)
	}
}

func TestForecast_Variance(t *testing.T) {
	f := &Forecast{ForecastedCount: 120}
	if f.Variance() != nil {
		t.Error("Variance() should be nil without actuals")
	}
	actual := 111
	f.ActualCount = &actual
	if v := f.Variance(); v == nil || *v != -9 {
		t.Errorf("Variance() = %v, want -9", v)
	}
	if !f.IsCensus() {
		t.Error("forecast without recipe should be census level")
	}
	if !(Interval{Low: 100, High: 140}).Contains(120) {
		t.Error("interval should contain its midpoint")
	}
}

func TestEmployee_CanWorkStation(t *testing.T) {
	grill := &Employee{StationIDs: []string{"grill", "saute"}}
	floater := &Employee{}

	if !grill.CanWorkStation("saute") {
		t.Error("grill cook should work saute")
	}
	if grill.CanWorkStation("pastry") {
		t.Error("grill cook should not work pastry")
	}
	if !floater.CanWorkStation("pastry") {
		t.Error("employee without stations should work anywhere")
	}
	if !grill.CanWorkStation("") {
		t.Error("recipe without station accepts anyone")
	}
}

func TestSelectionObservation_Fraction(t *testing.T) {
	if got := (SelectionObservation{Selected: 30, Census: 120}).Fraction(); got != 0.25 {
		t.Errorf("Fraction() = %v, want 0.25", got)
	}
	if got := (SelectionObservation{Selected: 5}).Fraction(); got != 0 {
		t.Errorf("Fraction() with zero census = %v, want 0", got)
	}
}
