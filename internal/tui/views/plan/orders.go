package plan

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/tui/components"
)

// OrderView shows the draft purchase order.
type OrderView struct {
	listView
	order *models.PurchaseOrderDraft
}

// NewOrderView creates an empty order view.
func NewOrderView() *OrderView {
	columns := []components.Column{
		{Title: "Ingredient", Width: 16, Weight: 1, Priority: 10},
		{Title: "Order", Width: 8, Align: lipgloss.Right, Priority: 9},
		{Title: "Unit", Width: 5, Priority: 8},
		{Title: "On Hand", Width: 8, Align: lipgloss.Right, Priority: 5},
		{Title: "Usage", Width: 8, Align: lipgloss.Right, Priority: 4},
		{Title: "ROP", Width: 8, Align: lipgloss.Right, Priority: 3},
		{Title: "Vendor", Width: 10, Priority: 1},
		{Title: "Reason", Width: 16, Weight: 1, Priority: 2},
		{Title: "Est. Cost", Width: 10, Align: lipgloss.Right, Priority: 7},
	}
	return &OrderView{listView: newListView("PURCHASE ORDER DRAFT", columns, "Nothing to order.")}
}

// SetOrder replaces the displayed draft. A nil draft clears the view.
func (v *OrderView) SetOrder(order *models.PurchaseOrderDraft) {
	v.order = order
	if order == nil {
		v.table.SetRows(nil)
		return
	}
	rows := make([][]string, len(order.Lines))
	for i, l := range order.Lines {
		name := l.IngredientName
		if name == "" {
			name = l.IngredientID
		}
		vendor := l.VendorID
		if vendor == "" {
			vendor = "-"
		}
		rows[i] = []string{
			name,
			fmt.Sprintf("%.2f", l.OrderQuantity),
			l.Unit,
			fmt.Sprintf("%.2f", l.OnHand),
			fmt.Sprintf("%.2f", l.ProjectedUsage),
			fmt.Sprintf("%.2f", l.ReorderPoint),
			vendor,
			l.Reason,
			"$" + l.EstimatedCost.StringFixed(2),
		}
	}
	v.table.SetRows(rows)
}

// Render draws the order lines and the estimated total.
func (v *OrderView) Render(width, height int) string {
	footer := ""
	if v.order != nil && len(v.order.Lines) > 0 {
		footer = fmt.Sprintf("%d lines, estimated total $%s", len(v.order.Lines), v.order.EstimatedTotal().StringFixed(2))
	}
	return v.render(width, height, footer)
}
