// Package tui provides the terminal plan viewer.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/galleyops/galley/internal/config"
	"github.com/galleyops/galley/internal/tui/components"
)

// Theme contains the style definitions for the TUI.
type Theme struct {
	PrimaryColor   lipgloss.Color
	SecondaryColor lipgloss.Color
	AccentColor    lipgloss.Color
	MutedColor     lipgloss.Color

	Base      lipgloss.Style
	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Accent    lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Success   lipgloss.Style
	Muted     lipgloss.Style

	Header    lipgloss.Style
	Footer    lipgloss.Style
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Box       lipgloss.Style
	Selected  lipgloss.Style
	Alert     lipgloss.Style
	AlertWarn lipgloss.Style
	AlertCrit lipgloss.Style

	TableHeader lipgloss.Style
	TableRow    lipgloss.Style
	TableRowAlt lipgloss.Style
	TableBorder lipgloss.Style

	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	StatusDivider lipgloss.Style
}

type palette struct {
	primary, secondary, accent, background, muted lipgloss.Color
	errorColor, warningColor, successColor        lipgloss.Color
}

var palettes = map[config.Theme]palette{
	// Warm heat-lamp tones.
	config.ThemeLine: {
		primary: "#FFB347", secondary: "#CC7A29", accent: "#FFD9A0", background: "#1A1008",
		muted: "#6B4A2B", errorColor: "#FF5555", warningColor: "#FFE066", successColor: "#8BD17C",
	},
	config.ThemePastry: {
		primary: "#F4A6C1", secondary: "#C98BA4", accent: "#FFF1D6", background: "#2B1E24",
		muted: "#7A5C68", errorColor: "#FF6B6B", warningColor: "#F7D488", successColor: "#A8E6CF",
	},
	config.ThemePlain: {
		primary: "#FFFFFF", secondary: "#AAAAAA", accent: "#FFFFFF", background: "#000000",
		muted: "#666666", errorColor: "#FF4444", warningColor: "#FFAA00", successColor: "#00CC66",
	},
}

// NewTheme returns the theme for a configured palette. Unknown names fall
// back to the line palette.
func NewTheme(name config.Theme) *Theme {
	p, ok := palettes[name]
	if !ok {
		p = palettes[config.ThemeLine]
	}
	return buildTheme(p)
}

func buildTheme(p palette) *Theme {
	t := &Theme{
		PrimaryColor:   p.primary,
		SecondaryColor: p.secondary,
		AccentColor:    p.accent,
		MutedColor:     p.muted,
	}

	t.Base = lipgloss.NewStyle().Foreground(p.primary)
	t.Primary = lipgloss.NewStyle().Foreground(p.primary)
	t.Secondary = lipgloss.NewStyle().Foreground(p.secondary)
	t.Accent = lipgloss.NewStyle().Foreground(p.accent)
	t.Error = lipgloss.NewStyle().Foreground(p.errorColor)
	t.Warning = lipgloss.NewStyle().Foreground(p.warningColor)
	t.Success = lipgloss.NewStyle().Foreground(p.successColor)
	t.Muted = lipgloss.NewStyle().Foreground(p.muted)

	t.Header = lipgloss.NewStyle().Foreground(p.primary).Bold(true).Padding(0, 1)
	t.Footer = lipgloss.NewStyle().Foreground(p.secondary).Padding(0, 1)
	t.Title = lipgloss.NewStyle().Foreground(p.accent).Bold(true).Padding(0, 1)
	t.Subtitle = lipgloss.NewStyle().Foreground(p.primary).Padding(0, 1)
	t.Label = lipgloss.NewStyle().Foreground(p.secondary)
	t.Value = lipgloss.NewStyle().Foreground(p.primary)

	t.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.secondary).
		Padding(0, 1)

	t.Selected = lipgloss.NewStyle().
		Foreground(p.background).
		Background(p.primary).
		Bold(true)

	t.Alert = lipgloss.NewStyle().Foreground(p.primary).Bold(true)
	t.AlertWarn = lipgloss.NewStyle().Foreground(p.warningColor).Bold(true)
	t.AlertCrit = lipgloss.NewStyle().Foreground(p.errorColor).Bold(true)

	t.TableHeader = lipgloss.NewStyle().Foreground(p.accent).Bold(true)
	t.TableRow = lipgloss.NewStyle().Foreground(p.primary)
	t.TableRowAlt = lipgloss.NewStyle().Foreground(p.secondary)
	t.TableBorder = lipgloss.NewStyle().Foreground(p.muted)

	t.TabActive = lipgloss.NewStyle().
		Foreground(p.background).
		Background(p.accent).
		Bold(true).
		Padding(0, 1)
	t.TabInactive = lipgloss.NewStyle().Foreground(p.secondary).Padding(0, 1)

	t.StatusDivider = lipgloss.NewStyle().Foreground(p.muted).SetString(" │ ")

	return t
}

// TableStyles returns the table component styles for this theme.
func (t *Theme) TableStyles() components.Styles {
	return components.Styles{
		Header:   t.TableHeader,
		Row:      t.TableRow,
		RowAlt:   t.TableRowAlt,
		Selected: t.Selected,
		Border:   t.TableBorder,
	}
}

// DrawHorizontalLine draws a single rule.
func (t *Theme) DrawHorizontalLine(width int) string {
	if width < 0 {
		width = 0
	}
	return t.Secondary.Render(strings.Repeat("─", width))
}

// DrawDoubleLine draws a double rule.
func (t *Theme) DrawDoubleLine(width int) string {
	if width < 0 {
		width = 0
	}
	return t.Primary.Render(strings.Repeat("═", width))
}
