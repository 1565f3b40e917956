package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/galleyops/galley/internal/config"
	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/repository"
	planviews "github.com/galleyops/galley/internal/tui/views/plan"
	"github.com/galleyops/galley/internal/util"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// MaxContentWidth is the maximum width for content display
const MaxContentWidth = 120

// Module represents a view module in the application.
type Module string

const (
	ModuleOverview Module = "overview"
	ModuleSchedule Module = "schedule"
	ModuleExpiring Module = "expiring"
	ModuleOrdering Module = "ordering"
	ModuleHelp     Module = "help"

	moduleQuit Module = "quit"
)

// PlanSource reads persisted day plans.
type PlanSource interface {
	GetPlanSummary(ctx context.Context, siteID string, date time.Time) (*repository.PlanSummary, error)
	ListTasks(ctx context.Context, planID string) ([]models.ProductionTask, error)
	ListAlerts(ctx context.Context, planID string) ([]models.ExpirationAlert, error)
	GetPurchaseOrder(ctx context.Context, planID string) (*models.PurchaseOrderDraft, error)
}

// App is the main Bubble Tea application model.
type App struct {
	// Dependencies
	source PlanSource
	config *config.Config
	logger *slog.Logger
	now    func() time.Time

	// Views
	schedule *planviews.ScheduleView
	expiring *planviews.AlertsView
	ordering *planviews.OrderView

	// Plan state
	siteID    string
	firstDate time.Time
	date      time.Time
	summary   *repository.PlanSummary
	loading   bool

	// UI state
	theme       *Theme
	keys        KeyMap
	width       int
	height      int
	ready       bool
	quitting    bool
	showConfirm bool

	currentModule  Module
	previousModule Module

	alerts []Alert
}

// Alert represents a status line message.
type Alert struct {
	Level   AlertLevel
	Message string
	Time    time.Time
}

// AlertLevel indicates the severity of an alert.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

// tickMsg is sent periodically to update the clock.
type tickMsg time.Time

// planLoadedMsg carries one day's plan. A nil summary with no error means
// the day has not been planned.
type planLoadedMsg struct {
	date    time.Time
	summary *repository.PlanSummary
	tasks   []models.ProductionTask
	alerts  []models.ExpirationAlert
	order   *models.PurchaseOrderDraft
	err     error
}

// Option configures an App.
type Option func(*App)

// WithClock overrides the wall clock shown in the status line.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// New creates a viewer for one site's plans starting at date.
func New(source PlanSource, cfg *config.Config, siteID string, date time.Time, opts ...Option) *App {
	theme := NewTheme(cfg.Display.Theme)
	a := &App{
		source:        source,
		config:        cfg,
		logger:        slog.Default(),
		now:           time.Now,
		schedule:      planviews.NewScheduleView(),
		expiring:      planviews.NewAlertsView(),
		ordering:      planviews.NewOrderView(),
		siteID:        siteID,
		firstDate:     util.StartOfDay(date),
		date:          util.StartOfDay(date),
		theme:         theme,
		keys:          DefaultKeyMap(),
		currentModule: ModuleOverview,
	}
	for _, opt := range opts {
		opt(a)
	}
	styles := theme.TableStyles()
	a.schedule.SetStyles(styles)
	a.expiring.SetStyles(styles)
	a.ordering.SetStyles(styles)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	a.loading = true
	return tea.Batch(tickCmd(), a.loadPlan(a.date))
}

// tickCmd returns a command that sends tick messages.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// loadPlan reads the plan for date and everything attached to it.
func (a *App) loadPlan(date time.Time) tea.Cmd {
	siteID := a.siteID
	return func() tea.Msg {
		ctx := context.Background()
		msg := planLoadedMsg{date: date}

		summary, err := a.source.GetPlanSummary(ctx, siteID, date)
		if errors.Is(err, repository.ErrNotFound) {
			return msg
		}
		if err != nil {
			msg.err = err
			return msg
		}
		msg.summary = summary

		if msg.tasks, err = a.source.ListTasks(ctx, summary.ID); err != nil {
			msg.err = err
			return msg
		}
		if msg.alerts, err = a.source.ListAlerts(ctx, summary.ID); err != nil {
			msg.err = err
			return msg
		}
		msg.order, err = a.source.GetPurchaseOrder(ctx, summary.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			msg.err = err
		}
		return msg
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case tickMsg:
		return a, tickCmd()

	case planLoadedMsg:
		a.applyPlan(msg)
		return a, nil
	}

	return a, nil
}

func (a *App) applyPlan(msg planLoadedMsg) {
	// A slower load for a day we already left.
	if !msg.date.Equal(a.date) {
		return
	}
	a.loading = false
	a.ClearAlerts()

	if msg.err != nil {
		a.logger.Error("loading plan", "site", a.siteID, "date", util.FormatDate(msg.date), "error", msg.err)
		a.AddAlert(AlertWarning, "Failed to load plan: "+msg.err.Error())
		return
	}

	a.summary = msg.summary
	a.schedule.SetTasks(msg.tasks)
	a.expiring.SetAlerts(msg.alerts)
	a.ordering.SetOrder(msg.order)

	if msg.summary == nil {
		a.AddAlert(AlertInfo, fmt.Sprintf("No plan for %s on %s", a.siteID, util.FormatDate(msg.date)))
		return
	}
	if n := a.expiring.DiscardCount(); n > 0 {
		a.AddAlert(AlertCritical, fmt.Sprintf("%d lots past expiration must be discarded", n))
	}
	if n := msg.summary.ConflictCount; n > 0 {
		a.AddAlert(AlertWarning, fmt.Sprintf("%d resource conflicts need a decision", n))
	}
}

// handleKeyPress processes key press events.
func (a *App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal takes priority.
	if a.showConfirm {
		switch msg.String() {
		case "y", "Y", "enter":
			a.quitting = true
			return a, tea.Quit
		case "n", "N", "esc":
			a.showConfirm = false
		}
		return a, nil
	}

	if a.keys.IsQuit(msg) {
		a.showConfirm = true
		return a, nil
	}

	if a.keys.IsFunctionKey(msg) {
		module := a.keys.GetFunctionKeyModule(msg)
		if module == ModuleHelp && a.currentModule != ModuleHelp {
			a.previousModule = a.currentModule
		}
		a.currentModule = module
		return a, nil
	}

	switch {
	case a.keys.Help.Matches(msg):
		if a.currentModule != ModuleHelp {
			a.previousModule = a.currentModule
			a.currentModule = ModuleHelp
		}
		return a, nil
	case a.keys.Back.Matches(msg):
		if a.currentModule == ModuleHelp && a.previousModule != "" {
			a.currentModule = a.previousModule
			a.previousModule = ""
		}
		return a, nil
	case a.keys.PrevDay.Matches(msg):
		return a, a.setDate(util.AddDays(a.date, -1))
	case a.keys.NextDay.Matches(msg):
		return a, a.setDate(util.AddDays(a.date, 1))
	case a.keys.Today.Matches(msg):
		return a, a.setDate(a.firstDate)
	case a.keys.Reload.Matches(msg):
		return a, a.setDate(a.date)
	}

	if v := a.activeList(); v != nil {
		switch {
		case a.keys.Up.Matches(msg):
			v.MoveUp()
		case a.keys.Down.Matches(msg):
			v.MoveDown()
		case a.keys.PageUp.Matches(msg):
			v.PageUp()
		case a.keys.PageDown.Matches(msg):
			v.PageDown()
		case a.keys.Home.Matches(msg):
			v.GoToTop()
		case a.keys.End.Matches(msg):
			v.GoToBottom()
		}
	}
	return a, nil
}

func (a *App) setDate(date time.Time) tea.Cmd {
	a.date = date
	a.loading = true
	return a.loadPlan(date)
}

type navigable interface {
	MoveUp()
	MoveDown()
	PageUp()
	PageDown()
	GoToTop()
	GoToBottom()
}

func (a *App) activeList() navigable {
	switch a.currentModule {
	case ModuleSchedule:
		return a.schedule
	case ModuleExpiring:
		return a.expiring
	case ModuleOrdering:
		return a.ordering
	}
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	if a.quitting {
		return a.theme.Title.Render("Closing the pass...")
	}

	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(a.renderAlertBar())
	b.WriteString("\n")

	contentHeight := ContentHeight(a.height, 6)
	if a.showConfirm {
		b.WriteString(a.renderConfirmDialog(contentHeight))
	} else {
		b.WriteString(a.renderContent(contentHeight))
	}

	b.WriteString("\n")
	b.WriteString(a.renderFooter())

	return b.String()
}

// renderHeader renders the top header bar.
func (a *App) renderHeader() string {
	title := fmt.Sprintf("GALLEY KITCHEN PLANNER v%s", Version)
	info := fmt.Sprintf("%s | SITE %s | %s",
		a.config.Kitchen.Name, a.siteID, a.date.Format(a.config.Display.DateFormat))

	spacing := max(a.width-lipgloss.Width(title)-lipgloss.Width(info)-4, 1)
	header := a.theme.Header.Render(title) +
		strings.Repeat(" ", spacing) +
		a.theme.Header.Render(info)

	return header + "\n" + a.theme.DrawDoubleLine(a.width)
}

// renderAlertBar renders the clock and the most recent alert.
func (a *App) renderAlertBar() string {
	timeStr := a.now().Format(a.config.Display.DateFormat + " " + a.config.Display.TimeFormat)

	var alertText string
	switch {
	case a.loading:
		alertText = a.theme.Muted.Render("Loading plan...")
	case len(a.alerts) > 0:
		alert := a.alerts[0]
		switch alert.Level {
		case AlertCritical:
			alertText = a.theme.AlertCrit.Render("CRITICAL: " + alert.Message)
		case AlertWarning:
			alertText = a.theme.AlertWarn.Render("WARNING: " + alert.Message)
		default:
			alertText = a.theme.Alert.Render("INFO: " + alert.Message)
		}
	default:
		alertText = a.theme.Muted.Render("Plan clear")
	}

	return a.theme.Value.Render(timeStr) + a.theme.StatusDivider.Render() + alertText
}

// renderContent renders the main content area based on current module.
func (a *App) renderContent(height int) string {
	contentWidth := ContentWidth(a.width, 20, MaxContentWidth)

	var content string
	switch a.currentModule {
	case ModuleOverview:
		content = a.renderOverview(contentWidth)
	case ModuleSchedule:
		content = a.schedule.Render(contentWidth, height)
	case ModuleExpiring:
		content = a.expiring.Render(contentWidth, height)
	case ModuleOrdering:
		content = a.ordering.Render(contentWidth, height)
	case ModuleHelp:
		content = a.renderHelp()
	}

	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Top)

	return style.Render(lipgloss.NewStyle().Width(contentWidth).Render(content))
}

// renderOverview renders the day summary.
func (a *App) renderOverview(width int) string {
	var b strings.Builder
	b.WriteString(a.theme.Title.Render("═══ SERVICE OVERVIEW ═══"))
	b.WriteString("\n\n")

	if a.summary == nil {
		if !a.loading {
			b.WriteString(a.theme.Muted.Render(fmt.Sprintf("No plan stored for %s on %s.", a.siteID, util.FormatDate(a.date))))
			b.WriteString("\n\n")
			b.WriteString(a.theme.Label.Render("Run the planner for this date, or use ←/→ to change day."))
		}
		return b.String()
	}

	s := a.summary
	row := func(label, value string) string {
		return a.theme.Label.Render(PadRight(label, 16)) + a.theme.Value.Render(value) + "\n"
	}

	var service strings.Builder
	service.WriteString(row("Census", fmt.Sprintf("%d", s.TotalCensus)))
	service.WriteString(row("Tasks", fmt.Sprintf("%d", s.TaskCount)))
	service.WriteString(row("Conflicts", fmt.Sprintf("%d", s.ConflictCount)))
	service.WriteString(row("Food cost", "$"+s.FoodCost.StringFixed(2)))
	service.WriteString(row("Planned", util.FormatDateTime(s.CreatedAt)))
	resourced := max(s.TaskCount-s.ConflictCount, 0)
	service.WriteString(a.theme.Label.Render(PadRight("Resourced", 16)))
	service.WriteString(a.theme.ProgressBar(float64(resourced), float64(s.TaskCount), 20))

	var stock strings.Builder
	stock.WriteString(row("Expiring lots", fmt.Sprintf("%d", a.expiring.Len())))
	stock.WriteString(row("To discard", fmt.Sprintf("%d", a.expiring.DiscardCount())))
	stock.WriteString(row("Order lines", fmt.Sprintf("%d", a.ordering.Len())))

	panelWidth := width/2 - 2
	if GetBreakpoint(width) == BreakpointNarrow {
		panelWidth = width
	}
	b.WriteString(SideBySide(
		a.theme.Panel("SERVICE", service.String(), panelWidth),
		a.theme.Panel("STOCK", strings.TrimSuffix(stock.String(), "\n"), panelWidth),
		width, 2,
	))
	return b.String()
}

// renderHelp renders the help screen.
func (a *App) renderHelp() string {
	var b strings.Builder

	b.WriteString(a.theme.Title.Render("═══ HELP ═══"))
	b.WriteString("\n\n")

	sections := []struct {
		title string
		items [][2]string
	}{
		{"VIEWS", [][2]string{
			{"F1", "Help"},
			{"F2", "Service overview"},
			{"F3", "Production schedule"},
			{"F4", "Expiring stock"},
			{"F5", "Purchase order draft"},
			{"F10", "Quit"},
		}},
		{"CONTROLS", [][2]string{
			{"←/→", "Previous / next service day"},
			{"t", "Back to the first day"},
			{"r", "Reload the plan"},
			{"Up/Down", "Move selection"},
			{"PgUp/Dn", "Page"},
			{"Esc", "Back"},
		}},
	}

	for _, s := range sections {
		b.WriteString(a.theme.Subtitle.Render(s.title))
		b.WriteString("\n\n")
		for _, item := range s.items {
			b.WriteString(a.theme.Primary.Render(fmt.Sprintf("    %-8s  %s", item[0], item[1])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(a.theme.Muted.Render("Press Esc to return"))
	return b.String()
}

// renderConfirmDialog renders the quit confirmation dialog.
func (a *App) renderConfirmDialog(height int) string {
	dialog := a.theme.Box.Render(
		a.theme.Title.Render("CONFIRM EXIT") + "\n\n" +
			a.theme.Base.Render("Leave the plan viewer?") + "\n\n" +
			a.theme.Label.Render("[Y]es  [N]o"),
	)

	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	return style.Render(dialog)
}

// renderFooter renders the bottom status bar.
func (a *App) renderFooter() string {
	return a.theme.DrawHorizontalLine(a.width) + "\n" + a.theme.Footer.Render(a.keys.StatusBarHelp())
}

// AddAlert adds a new alert to the display.
func (a *App) AddAlert(level AlertLevel, message string) {
	a.alerts = append([]Alert{{
		Level:   level,
		Message: message,
		Time:    a.now(),
	}}, a.alerts...)

	if len(a.alerts) > 10 {
		a.alerts = a.alerts[:10]
	}
}

// ClearAlerts removes all alerts.
func (a *App) ClearAlerts() {
	a.alerts = nil
}

// Run starts the viewer and blocks until it exits or ctx is cancelled.
func Run(ctx context.Context, source PlanSource, cfg *config.Config, siteID string, date time.Time, opts ...Option) error {
	app := New(source, cfg, siteID, date, opts...)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
