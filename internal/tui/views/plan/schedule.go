package plan

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/tui/components"
	"github.com/galleyops/galley/internal/util"
)

// ScheduleView lists a day's production tasks in prep order.
type ScheduleView struct {
	listView
	tasks []models.ProductionTask
}

// NewScheduleView creates an empty schedule view.
func NewScheduleView() *ScheduleView {
	columns := []components.Column{
		{Title: "Prep", Width: 5, Priority: 9},
		{Title: "Cook", Width: 5, Priority: 3},
		{Title: "Ready", Width: 5, Priority: 8},
		{Title: "Recipe", Width: 18, Weight: 2, Priority: 10},
		{Title: "Meal", Width: 10, Priority: 6},
		{Title: "Portions", Width: 8, Align: lipgloss.Right, Priority: 7},
		{Title: "Batches", Width: 7, Align: lipgloss.Right, Priority: 4},
		{Title: "Equipment", Width: 14, Weight: 1, Priority: 5},
		{Title: "Staff", Width: 10, Priority: 2},
		{Title: "Status", Width: 11, Priority: 1},
	}
	return &ScheduleView{listView: newListView("PRODUCTION SCHEDULE", columns, "No production tasks.")}
}

// SetTasks replaces the displayed tasks.
func (v *ScheduleView) SetTasks(tasks []models.ProductionTask) {
	v.tasks = tasks
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		staff := t.AssignedEmployeeID
		if staff == "" {
			staff = "-"
		}
		equipment := strings.Join(t.AssignedEquipmentIDs, ",")
		if equipment == "" {
			equipment = "-"
		}
		rows[i] = []string{
			util.FormatTimeOfDay(t.PrepStart),
			util.FormatTimeOfDay(t.CookStart),
			util.FormatTimeOfDay(t.ReadyTime),
			t.RecipeName,
			t.MealPeriodID,
			fmt.Sprintf("%d", t.PortionsNeeded),
			fmt.Sprintf("%d", t.BatchCount),
			equipment,
			staff,
			string(t.Status),
		}
	}
	v.table.SetRows(rows)
}

// Selected returns the highlighted task, or nil.
func (v *ScheduleView) Selected() *models.ProductionTask {
	i := v.table.Selected()
	if i < 0 || i >= len(v.tasks) {
		return nil
	}
	return &v.tasks[i]
}

// Render draws the schedule.
func (v *ScheduleView) Render(width, height int) string {
	footer := ""
	if len(v.tasks) > 0 {
		portions := 0
		for _, t := range v.tasks {
			portions += t.PortionsNeeded
		}
		footer = fmt.Sprintf("%d tasks, %d portions", len(v.tasks), portions)
		if t := v.Selected(); t != nil && len(t.Dependencies) > 0 {
			footer += fmt.Sprintf("  |  %s waits on %d task(s)", t.RecipeName, len(t.Dependencies))
		}
	}
	return v.render(width, height, footer)
}
