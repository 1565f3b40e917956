// Package plan provides TUI views over a persisted day plan.
package plan

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/galleyops/galley/internal/tui/components"
)

// listView is the shared shape of the plan tables.
type listView struct {
	title string
	table *components.Table
}

func newListView(title string, columns []components.Column, empty string) listView {
	t := components.NewTable(columns)
	t.SetVisibleRows(20)
	t.SetEmptyText(empty)
	t.Focus(true)
	return listView{title: title, table: t}
}

// SetStyles applies theme styles to the table.
func (v *listView) SetStyles(s components.Styles) { v.table.SetStyles(s) }

func (v *listView) MoveUp() { v.table.MoveUp() }
func (v *listView) MoveDown() { v.table.MoveDown() }
func (v *listView) PageUp() { v.table.PageUp() }
func (v *listView) PageDown() { v.table.PageDown() }
func (v *listView) GoToTop() { v.table.GoToTop() }
func (v *listView) GoToBottom() { v.table.GoToBottom() }

// Len returns the number of rows.
func (v *listView) Len() int { return v.table.RowCount() }

// render draws the title, the table fitted to width and an optional footer.
func (v *listView) render(width, height int, footer string) string {
	// title, rule and table header
	if rows := height - 5; rows > 0 {
		v.table.SetVisibleRows(rows)
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("═══ " + v.title + " ═══"))
	b.WriteString("\n\n")
	b.WriteString(v.table.RenderWidth(width))
	if footer != "" {
		b.WriteString("\n\n")
		b.WriteString(footer)
	}
	return b.String()
}
