package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTable_SetRows(t *testing.T) {
	table := NewTable([]Column{{Title: "Recipe", Width: 10}, {Title: "Portions", Width: 8}})
	if !table.Empty() {
		t.Error("new table should be empty")
	}

	table.SetRows([][]string{{"Pilaf", "40"}, {"Chili", "25"}, {"Slaw", "30"}})
	if table.RowCount() != 3 {
		t.Errorf("RowCount() = %d, want 3", table.RowCount())
	}
	table.GoToBottom()

	// Shrinking the data clamps the selection.
	table.SetRows([][]string{{"Pilaf", "40"}})
	if table.Selected() != 0 {
		t.Errorf("Selected() after shrink = %d, want 0", table.Selected())
	}
}

func TestTable_Navigation(t *testing.T) {
	table := NewTable([]Column{{Title: "ID", Width: 5}})
	table.SetRows([][]string{{"1"}, {"2"}, {"3"}, {"4"}, {"5"}})

	table.MoveDown()
	if table.Selected() != 1 {
		t.Errorf("after MoveDown Selected() = %d, want 1", table.Selected())
	}
	table.MoveUp()
	table.MoveUp()
	if table.Selected() != 0 {
		t.Errorf("MoveUp past top: Selected() = %d, want 0", table.Selected())
	}
	table.GoToBottom()
	table.MoveDown()
	if table.Selected() != 4 {
		t.Errorf("MoveDown past bottom: Selected() = %d, want 4", table.Selected())
	}
	table.GoToTop()
	if table.Selected() != 0 {
		t.Errorf("GoToTop: Selected() = %d, want 0", table.Selected())
	}
}

func TestTable_PageNavigation(t *testing.T) {
	table := NewTable([]Column{{Title: "ID", Width: 5}})
	rows := make([][]string, 25)
	for i := range rows {
		rows[i] = []string{string(rune('a' + i))}
	}
	table.SetRows(rows)
	table.SetVisibleRows(10)

	table.PageDown()
	if table.Selected() != 10 {
		t.Errorf("PageDown: Selected() = %d, want 10", table.Selected())
	}
	table.PageDown()
	table.PageDown()
	if table.Selected() != 24 {
		t.Errorf("PageDown past end: Selected() = %d, want 24", table.Selected())
	}
	table.PageUp()
	if table.Selected() != 14 {
		t.Errorf("PageUp: Selected() = %d, want 14", table.Selected())
	}
}

func TestTable_SelectedRow(t *testing.T) {
	table := NewTable([]Column{{Title: "ID", Width: 5}})
	if table.SelectedRow() != nil {
		t.Error("SelectedRow() on empty table should be nil")
	}
	table.SetRows([][]string{{"1"}, {"2"}})
	table.MoveDown()
	if row := table.SelectedRow(); row[0] != "2" {
		t.Errorf("SelectedRow() = %v, want [2]", row)
	}
}

func TestTable_ComputeWidths(t *testing.T) {
	cols := []Column{
		{Title: "A", Width: 10, Priority: 3},
		{Title: "B", Width: 10, Weight: 1, Priority: 2},
		{Title: "C", Width: 10, Weight: 3, Priority: 1},
	}
	table := NewTable(cols)

	t.Run("preferred widths at zero", func(t *testing.T) {
		got := table.computeWidths(0)
		for i, w := range got {
			if w != 10 {
				t.Errorf("widths[%d] = %d, want 10", i, w)
			}
		}
	})

	t.Run("spare space split by weight", func(t *testing.T) {
		// 2 padding + 30 + 6 separators = 38, so 40 spare at 78.
		got := table.computeWidths(78)
		if got[0] != 10 || got[1] != 20 || got[2] != 40 {
			t.Errorf("widths = %v, want [10 20 40]", got)
		}
	})

	t.Run("lowest priority dropped first", func(t *testing.T) {
		got := table.computeWidths(30)
		if got[2] != 0 {
			t.Errorf("column C should be hidden, widths = %v", got)
		}
		if got[0] == 0 || got[1] == 0 {
			t.Errorf("columns A and B should be visible, widths = %v", got)
		}
	})

	t.Run("one column always survives", func(t *testing.T) {
		got := table.computeWidths(5)
		if got[0] != 10 || got[1] != 0 || got[2] != 0 {
			t.Errorf("widths = %v, want [10 0 0]", got)
		}
	})
}

func TestTable_RenderWidth(t *testing.T) {
	table := NewTable([]Column{
		{Title: "Recipe", Width: 12, Priority: 2},
		{Title: "Portions", Width: 8, Align: lipgloss.Right, Priority: 1},
	})
	table.SetRows([][]string{{"Rice Pilaf", "40"}})

	out := table.RenderWidth(80)
	if !strings.Contains(out, "Recipe") || !strings.Contains(out, "Portions") {
		t.Errorf("headers missing:\n%s", out)
	}
	if !strings.Contains(out, "      40") {
		t.Errorf("portions not right aligned:\n%s", out)
	}

	narrow := table.RenderWidth(16)
	if strings.Contains(narrow, "Portions") {
		t.Errorf("narrow render kept the low priority column:\n%s", narrow)
	}
}

func TestTable_RenderTruncatesAndPages(t *testing.T) {
	table := NewTable([]Column{{Title: "Recipe", Width: 6}})
	table.SetRows([][]string{{"Vegetable Lasagna"}, {"Chili"}, {"Slaw"}})
	table.SetVisibleRows(2)

	out := table.Render()
	if !strings.Contains(out, "Veget…") {
		t.Errorf("long cell not truncated:\n%s", out)
	}
	if !strings.Contains(out, "1-2 of 3") {
		t.Errorf("page indicator missing:\n%s", out)
	}
	if strings.Contains(out, "Slaw") {
		t.Errorf("row beyond the visible window rendered:\n%s", out)
	}
}

func TestTable_RenderEmpty(t *testing.T) {
	table := NewTable([]Column{{Title: "Lot", Width: 8}})
	table.SetEmptyText("No lots.")
	if out := table.Render(); !strings.Contains(out, "No lots.") {
		t.Errorf("empty text missing:\n%s", out)
	}
}
