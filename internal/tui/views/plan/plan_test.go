package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/galleyops/galley/internal/models"
)

var day = time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestScheduleView_RendersTasks(t *testing.T) {
	v := NewScheduleView()
	v.SetTasks([]models.ProductionTask{
		{ID: "t1", RecipeName: "Rice Pilaf", MealPeriodID: "lunch", PortionsNeeded: 40, BatchCount: 4,
			PrepStart: at(9, 15), CookStart: at(9, 45), ReadyTime: at(10, 45),
			AssignedEquipmentIDs: []string{"kettle-1"}, AssignedEmployeeID: "ana", Status: models.TaskStatusPlanned},
		{ID: "t2", RecipeName: "Chili", MealPeriodID: "lunch", PortionsNeeded: 25, BatchCount: 1,
			PrepStart: at(8, 0), CookStart: at(8, 30), ReadyTime: at(10, 30), Dependencies: []string{"t3"}},
	})

	out := v.Render(120, 30)
	for _, want := range []string{"PRODUCTION SCHEDULE", "Rice Pilaf", "09:15", "10:45", "kettle-1", "ana", "2 tasks, 65 portions"} {
		if !strings.Contains(out, want) {
			t.Errorf("schedule missing %q:\n%s", want, out)
		}
	}

	if got := v.Selected(); got == nil || got.ID != "t1" {
		t.Fatalf("Selected() = %v, want t1", got)
	}
	v.MoveDown()
	if got := v.Selected(); got.ID != "t2" {
		t.Errorf("after MoveDown Selected() = %s, want t2", got.ID)
	}
	if out := v.Render(120, 30); !strings.Contains(out, "Chili waits on 1 task(s)") {
		t.Errorf("dependency hint missing:\n%s", out)
	}
}

func TestScheduleView_NarrowDropsColumns(t *testing.T) {
	v := NewScheduleView()
	v.SetTasks([]models.ProductionTask{{ID: "t1", RecipeName: "Rice Pilaf", Status: models.TaskStatusPlanned}})

	out := v.Render(50, 20)
	if !strings.Contains(out, "Recipe") {
		t.Errorf("narrow schedule dropped the recipe column:\n%s", out)
	}
	if strings.Contains(out, "Status") {
		t.Errorf("narrow schedule kept the lowest priority column:\n%s", out)
	}
}

func TestScheduleView_Empty(t *testing.T) {
	v := NewScheduleView()
	if got := v.Selected(); got != nil {
		t.Errorf("Selected() on empty view = %v, want nil", got)
	}
	if out := v.Render(100, 20); !strings.Contains(out, "No production tasks.") {
		t.Errorf("empty text missing:\n%s", out)
	}
}

func TestAlertsView(t *testing.T) {
	v := NewAlertsView()
	v.SetAlerts([]models.ExpirationAlert{
		{LotID: "lot-1", IngredientID: "milk", Quantity: 2, ExpirationDate: day.AddDate(0, 0, -1),
			DaysUntilExpiry: -1, Action: models.ExpirationDiscard},
		{LotID: "lot-2", IngredientID: "cream", Quantity: 1.5, ExpirationDate: day,
			DaysUntilExpiry: 0, Action: models.ExpirationUseFirst},
	})

	if got := v.DiscardCount(); got != 1 {
		t.Errorf("DiscardCount() = %d, want 1", got)
	}
	out := v.Render(100, 20)
	for _, want := range []string{"EXPIRING STOCK", "DISCARD", "PAST", "TODAY", "2026-01-19", "2 lots flagged, 1 to discard"} {
		if !strings.Contains(out, want) {
			t.Errorf("alerts missing %q:\n%s", want, out)
		}
	}
}

func TestOrderView(t *testing.T) {
	v := NewOrderView()
	v.SetOrder(&models.PurchaseOrderDraft{
		ID: "po-1",
		Lines: []models.PurchaseOrderLine{
			{IngredientID: "rice", IngredientName: "Long Grain Rice", OrderQuantity: 25, Unit: "lb",
				Reason: "below reorder point", EstimatedCost: decimal.RequireFromString("20.00")},
			{IngredientID: "beans", OrderQuantity: 10, Unit: "lb", EstimatedCost: decimal.RequireFromString("12.5")},
		},
	})

	out := v.Render(140, 20)
	for _, want := range []string{"PURCHASE ORDER DRAFT", "Long Grain Rice", "beans", "$20.00", "2 lines, estimated total $32.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("order missing %q:\n%s", want, out)
		}
	}

	v.SetOrder(nil)
	if v.Len() != 0 {
		t.Errorf("Len() after SetOrder(nil) = %d, want 0", v.Len())
	}
	if out := v.Render(140, 20); !strings.Contains(out, "Nothing to order.") {
		t.Errorf("empty order text missing:\n%s", out)
	}
}
