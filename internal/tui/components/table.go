// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. Width is the preferred width; a positive
// Weight lets the column grow into spare space. When the table is too
// narrow, columns with the lowest Priority are dropped first.
type Column struct {
	Title    string
	Width    int
	Weight   float64
	Priority int
	Align    lipgloss.Position
}

// Styles holds the table's render styles.
type Styles struct {
	Header   lipgloss.Style
	Row      lipgloss.Style
	RowAlt   lipgloss.Style
	Selected lipgloss.Style
	Border   lipgloss.Style
}

// DefaultStyles returns unstyled output.
func DefaultStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:   plain.Bold(true),
		Row:      plain,
		RowAlt:   plain,
		Selected: plain.Reverse(true),
		Border:   plain,
	}
}

const separator = " | "

// Table is a scrollable, selectable table.
type Table struct {
	columns     []Column
	rows        [][]string
	selected    int
	offset      int
	visibleRows int
	focused     bool
	styles      Styles
	emptyText   string
}

// NewTable creates a table with the given columns.
func NewTable(columns []Column) *Table {
	return &Table{
		columns:     columns,
		visibleRows: 10,
		styles:      DefaultStyles(),
		emptyText:   "Nothing to show.",
	}
}

// SetRows replaces the table data and clamps the selection.
func (t *Table) SetRows(rows [][]string) {
	t.rows = rows
	if t.selected >= len(rows) {
		t.selected = len(rows) - 1
	}
	if t.selected < 0 {
		t.selected = 0
	}
	if t.offset > t.selected {
		t.offset = t.selected
	}
}

// SetVisibleRows sets the number of rows drawn at once.
func (t *Table) SetVisibleRows(n int) {
	if n < 1 {
		n = 1
	}
	t.visibleRows = n
}

// SetStyles sets the table styles.
func (t *Table) SetStyles(s Styles) {
	t.styles = s
}

// SetEmptyText sets the line shown when there are no rows.
func (t *Table) SetEmptyText(s string) {
	t.emptyText = s
}

// Focus sets whether the selection is highlighted.
func (t *Table) Focus(focused bool) {
	t.focused = focused
}

// Selected returns the selected row index.
func (t *Table) Selected() int {
	return t.selected
}

// SelectedRow returns the selected row, or nil for an empty table.
func (t *Table) SelectedRow() []string {
	if t.selected >= 0 && t.selected < len(t.rows) {
		return t.rows[t.selected]
	}
	return nil
}

// MoveUp moves the selection up.
func (t *Table) MoveUp() {
	if t.selected > 0 {
		t.selected--
		if t.selected < t.offset {
			t.offset = t.selected
		}
	}
}

// MoveDown moves the selection down.
func (t *Table) MoveDown() {
	if t.selected < len(t.rows)-1 {
		t.selected++
		if t.selected >= t.offset+t.visibleRows {
			t.offset = t.selected - t.visibleRows + 1
		}
	}
}

// PageUp moves up one page.
func (t *Table) PageUp() {
	t.selected -= t.visibleRows
	if t.selected < 0 {
		t.selected = 0
	}
	t.offset = t.selected
}

// PageDown moves down one page.
func (t *Table) PageDown() {
	t.selected += t.visibleRows
	if t.selected >= len(t.rows) {
		t.selected = len(t.rows) - 1
	}
	if t.selected < 0 {
		t.selected = 0
	}
	t.offset = max(t.selected-t.visibleRows+1, 0)
}

// GoToTop selects the first row.
func (t *Table) GoToTop() {
	t.selected = 0
	t.offset = 0
}

// GoToBottom selects the last row.
func (t *Table) GoToBottom() {
	if len(t.rows) > 0 {
		t.selected = len(t.rows) - 1
		t.offset = max(t.selected-t.visibleRows+1, 0)
	}
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// computeWidths fits the columns into width. A zero width uses the
// preferred widths. Dropped columns get width 0.
func (t *Table) computeWidths(width int) []int {
	widths := make([]int, len(t.columns))
	visible := make([]bool, len(t.columns))
	for i := range t.columns {
		visible[i] = true
	}
	if width <= 0 {
		for i, c := range t.columns {
			widths[i] = c.Width
		}
		return widths
	}

	need := func() int {
		n, count := 2, 0
		for i, c := range t.columns {
			if visible[i] {
				n += c.Width
				count++
			}
		}
		if count > 1 {
			n += (count - 1) * len(separator)
		}
		return n
	}

	for need() > width {
		drop := -1
		count := 0
		for i, c := range t.columns {
			if !visible[i] {
				continue
			}
			count++
			if drop < 0 || c.Priority < t.columns[drop].Priority {
				drop = i
			}
		}
		if count <= 1 {
			break
		}
		visible[drop] = false
	}

	spare := width - need()
	totalWeight := 0.0
	for i, c := range t.columns {
		if visible[i] {
			totalWeight += c.Weight
		}
	}
	for i, c := range t.columns {
		if !visible[i] {
			continue
		}
		widths[i] = c.Width
		if spare > 0 && totalWeight > 0 && c.Weight > 0 {
			widths[i] += int(float64(spare) * c.Weight / totalWeight)
		}
	}
	return widths
}

// Render draws the table at its preferred widths.
func (t *Table) Render() string {
	return t.RenderWidth(0)
}

// RenderWidth draws the table fitted to width.
func (t *Table) RenderWidth(width int) string {
	widths := t.computeWidths(width)
	total := 0
	for _, w := range widths {
		if w > 0 {
			total += w + len(separator)
		}
	}

	var b strings.Builder
	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.Title
	}
	b.WriteString(t.renderRow(headers, widths, t.styles.Header))
	b.WriteString("\n")
	b.WriteString(t.styles.Border.Render(strings.Repeat("-", total)))
	b.WriteString("\n")

	if len(t.rows) == 0 {
		b.WriteString(" " + t.emptyText)
		return b.String()
	}

	end := min(t.offset+t.visibleRows, len(t.rows))
	for i := t.offset; i < end; i++ {
		style := t.styles.Row
		switch {
		case i == t.selected && t.focused:
			style = t.styles.Selected
		case (i-t.offset)%2 == 1:
			style = t.styles.RowAlt
		}
		b.WriteString(t.renderRow(t.rows[i], widths, style))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	if len(t.rows) > t.visibleRows {
		b.WriteString("\n")
		b.WriteString(t.styles.Border.Render(fmt.Sprintf("%d-%d of %d", t.offset+1, end, len(t.rows))))
	}
	return b.String()
}

func (t *Table) renderRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	for i, c := range t.columns {
		w := widths[i]
		if w <= 0 {
			continue
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if lipgloss.Width(cell) > w {
			r := []rune(cell)
			if len(r) > w-1 {
				r = r[:max(w-1, 0)]
			}
			cell = string(r) + "…"
		}
		switch c.Align {
		case lipgloss.Right:
			cell = fmt.Sprintf("%*s", w, cell)
		case lipgloss.Center:
			pad := w - lipgloss.Width(cell)
			cell = strings.Repeat(" ", pad/2) + cell + strings.Repeat(" ", pad-pad/2)
		default:
			cell = fmt.Sprintf("%-*s", w, cell)
		}
		parts = append(parts, style.Render(cell))
	}
	return " " + strings.Join(parts, separator) + " "
}
