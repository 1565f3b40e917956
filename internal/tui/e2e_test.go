package tui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/galleyops/galley/internal/config"
)

// newE2EApp creates an App for teatest. Unlike newTestApp, the window size
// arrives through WithInitialTermSize.
func newE2EApp(t *testing.T, src PlanSource) *App {
	t.Helper()
	return New(src, config.Default(), "main", testDate,
		WithClock(func() time.Time { return testNow }),
		WithLogger(discardLogger()))
}

func startE2E(t *testing.T, src PlanSource) *teatest.TestModel {
	t.Helper()
	tm := teatest.NewTestModel(t, newE2EApp(t, src), teatest.WithInitialTermSize(120, 40))
	return tm
}

// waitFor is a convenience wrapper around teatest.WaitFor with a standard timeout.
func waitFor(t *testing.T, tm *teatest.TestModel, text ...string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		for _, s := range text {
			if !bytes.Contains(bts, []byte(s)) {
				return false
			}
		}
		return true
	}, teatest.WithDuration(5*time.Second))
}

// These launch the real program in a headless terminal, send keystrokes,
// and assert on the rendered output.

func TestE2E_OverviewOnStartup(t *testing.T) {
	src := newFakeSource()
	src.addPlan(testDate, 1, 0)
	tm := startE2E(t, src)
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "SERVICE OVERVIEW", "412.35", "1 resource conflicts")
}

func TestE2E_BrowseViews(t *testing.T) {
	src := newFakeSource()
	src.addPlan(testDate, 0, 1)
	tm := startE2E(t, src)
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "SERVICE OVERVIEW")

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "PRODUCTION SCHEDULE", "Turkey Chili")

	tm.Send(tea.KeyMsg{Type: tea.KeyF4})
	waitFor(t, tm, "EXPIRING STOCK", "DISCARD")

	tm.Send(tea.KeyMsg{Type: tea.KeyF5})
	waitFor(t, tm, "PURCHASE ORDER DRAFT", "Kidney Beans")
}

func TestE2E_NextDayWithoutPlan(t *testing.T) {
	src := newFakeSource()
	src.addPlan(testDate, 0, 0)
	tm := startE2E(t, src)
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "Plan clear")

	tm.Send(tea.KeyMsg{Type: tea.KeyRight})
	waitFor(t, tm, "No plan stored for main on 2026-01-20")
}

func TestE2E_HelpScreenAndBack(t *testing.T) {
	tm := startE2E(t, newFakeSource())
	t.Cleanup(func() { tm.Quit() })

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "PRODUCTION SCHEDULE")

	tm.Send(tea.KeyMsg{Type: tea.KeyF1})
	waitFor(t, tm, "Previous / next service day")

	tm.Send(tea.KeyMsg{Type: tea.KeyEscape})
	waitFor(t, tm, "No production tasks.")
}

func TestE2E_QuitFlow(t *testing.T) {
	tm := startE2E(t, newFakeSource())

	waitFor(t, tm, "SERVICE OVERVIEW")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	waitFor(t, tm, "CONFIRM EXIT")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})

	m := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	app, ok := m.(*App)
	if !ok {
		t.Fatal("expected *App final model")
	}
	if !app.quitting {
		t.Error("expected app to be quitting")
	}
}
