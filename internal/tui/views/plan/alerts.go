package plan

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/tui/components"
	"github.com/galleyops/galley/internal/util"
)

// AlertsView lists expiring lots.
type AlertsView struct {
	listView
	alerts []models.ExpirationAlert
}

// NewAlertsView creates an empty alerts view.
func NewAlertsView() *AlertsView {
	columns := []components.Column{
		{Title: "Action", Width: 9, Priority: 10},
		{Title: "Ingredient", Width: 16, Weight: 1, Priority: 9},
		{Title: "Lot", Width: 14, Priority: 2},
		{Title: "Qty", Width: 8, Align: lipgloss.Right, Priority: 7},
		{Title: "Expires", Width: 10, Priority: 5},
		{Title: "Days", Width: 6, Align: lipgloss.Right, Priority: 8},
	}
	return &AlertsView{listView: newListView("EXPIRING STOCK", columns, "No lots nearing expiration.")}
}

// SetAlerts replaces the displayed alerts.
func (v *AlertsView) SetAlerts(alerts []models.ExpirationAlert) {
	v.alerts = alerts
	rows := make([][]string, len(alerts))
	for i, a := range alerts {
		days := fmt.Sprintf("%d", a.DaysUntilExpiry)
		switch {
		case a.DaysUntilExpiry < 0:
			days = "PAST"
		case a.DaysUntilExpiry == 0:
			days = "TODAY"
		}
		rows[i] = []string{
			string(a.Action),
			a.IngredientID,
			a.LotID,
			fmt.Sprintf("%.2f", a.Quantity),
			util.FormatDate(a.ExpirationDate),
			days,
		}
	}
	v.table.SetRows(rows)
}

// DiscardCount returns how many lots must be thrown out.
func (v *AlertsView) DiscardCount() int {
	n := 0
	for _, a := range v.alerts {
		if a.Action == models.ExpirationDiscard {
			n++
		}
	}
	return n
}

// Render draws the alert list.
func (v *AlertsView) Render(width, height int) string {
	footer := ""
	if len(v.alerts) > 0 {
		footer = fmt.Sprintf("%d lots flagged, %d to discard", len(v.alerts), v.DiscardCount())
	}
	return v.render(width, height, footer)
}
