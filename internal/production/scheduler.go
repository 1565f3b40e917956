// Package production turns forecast portions into a timed production schedule
// with equipment and staff assignments.
package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/recipes"
	"github.com/galleyops/galley/internal/util"
)

// DefaultBufferMinutes separates ready time from service start.
const DefaultBufferMinutes = 15

// ErrUnknownRecipe is returned when a planned item names a recipe that does not exist.
var ErrUnknownRecipe = errors.New("unknown recipe")

// RecipeSource looks up recipes.
type RecipeSource interface {
	GetRecipe(ctx context.Context, id string) (*models.Recipe, error)
}

// RosterSource lists the schedulable resources of a site.
type RosterSource interface {
	ListEquipment(ctx context.Context, siteID string) ([]models.Equipment, error)
	ListEmployees(ctx context.Context, siteID string) ([]models.Employee, error)
}

// PlannedItem is a resolved menu item with its forecast portions.
type PlannedItem struct {
	RecipeID string
	Portions int
}

// Scheduler builds production schedules from recipes and a site roster.
type Scheduler struct {
	recipes RecipeSource
	roster  RosterSource
	buffer  time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a scheduler. A non-positive bufferMinutes uses
// DefaultBufferMinutes; a nil logger uses slog.Default().
func NewScheduler(recipes RecipeSource, roster RosterSource, bufferMinutes int, logger *slog.Logger) *Scheduler {
	if bufferMinutes <= 0 {
		bufferMinutes = DefaultBufferMinutes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		recipes: recipes,
		roster:  roster,
		buffer:  time.Duration(bufferMinutes) * time.Minute,
		logger:  logger,
	}
}

// GenerateSchedule plans production for one meal period. Resource shortages
// are returned as conflicts on the schedule, not as errors.
func (s *Scheduler) GenerateSchedule(ctx context.Context, date time.Time, siteID string, mealPeriod models.MealPeriod, items []PlannedItem) (*models.ProductionSchedule, error) {
	book, err := s.loadRecipes(ctx, items)
	if err != nil {
		return nil, err
	}
	equipment, err := s.roster.ListEquipment(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	employees, err := s.roster.ListEmployees(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}

	schedule, err := Build(Input{
		Date:       date,
		SiteID:     siteID,
		MealPeriod: mealPeriod,
		Items:      items,
		Recipes:    book,
		Equipment:  equipment,
		Employees:  employees,
		Buffer:     s.buffer,
	})
	if err != nil {
		return nil, err
	}

	for _, c := range schedule.Conflicts {
		s.logger.Warn("resource conflict",
			"site", siteID,
			"date", util.FormatDate(date),
			"meal_period", mealPeriod.ID,
			"kind", c.Kind,
			"recipe", c.RecipeID,
			"resource", c.ResourceType,
		)
	}
	s.logger.Debug("schedule generated",
		"site", siteID,
		"date", util.FormatDate(date),
		"meal_period", mealPeriod.ID,
		"tasks", len(schedule.Tasks),
		"critical_path", len(schedule.CriticalPath),
	)
	return schedule, nil
}

// loadRecipes fetches the planned recipes and, transitively, their components.
// Missing components are left out so Build can report them as conflicts.
func (s *Scheduler) loadRecipes(ctx context.Context, items []PlannedItem) (map[string]*models.Recipe, error) {
	book := make(map[string]*models.Recipe)
	queue := make([]string, 0, len(items))
	for _, it := range items {
		queue = append(queue, it.RecipeID)
	}
	top := len(queue)

	for i := 0; i < len(queue); i++ {
		id := queue[i]
		if _, ok := book[id]; ok {
			continue
		}
		r, err := s.recipes.GetRecipe(ctx, id)
		if err != nil {
			if i < top {
				return nil, fmt.Errorf("loading recipe %s: %w", id, err)
			}
			continue
		}
		book[id] = r
		queue = append(queue, r.Components...)
	}
	return book, nil
}

// Input is everything Build needs, already loaded.
type Input struct {
	Date       time.Time
	SiteID     string
	MealPeriod models.MealPeriod
	Items      []PlannedItem
	Recipes    map[string]*models.Recipe
	Equipment  []models.Equipment
	Employees  []models.Employee
	Buffer     time.Duration
}

type builder struct {
	in         Input
	tasks      map[string]*models.ProductionTask // by recipe ID
	order      []string
	base       map[string]int      // menu portions by recipe ID
	components map[string][]string // usable, acyclic component edges
	readyBy    map[string]time.Time
	state      map[string]int
	finished   []string // DFS post-order, components before parents
	problems   []componentProblem
	conflicts  []models.ResourceConflict
}

type componentProblem struct {
	parentID, compID, msg string
}

const (
	unvisited = iota
	visiting
	visited
)

// Build schedules production backward from service start:
//
//	readyTime = serviceStart - buffer
//	cookStart = readyTime - cookTime
//	prepStart = cookStart - prepTime
//
// Components are scheduled to be ready by their earliest dependent's cook
// start, and make enough batches for every dependent plus their own menu
// portions.
func Build(in Input) (*models.ProductionSchedule, error) {
	serviceStart, err := util.AtTimeOfDay(in.Date, in.MealPeriod.ServiceStart)
	if err != nil {
		return nil, fmt.Errorf("meal period %s: %w", in.MealPeriod.ID, err)
	}
	if in.Buffer <= 0 {
		in.Buffer = DefaultBufferMinutes * time.Minute
	}
	ready := serviceStart.Add(-in.Buffer)

	b := &builder{
		in:         in,
		tasks:      make(map[string]*models.ProductionTask),
		base:       make(map[string]int),
		components: make(map[string][]string),
		readyBy:    make(map[string]time.Time),
		state:      make(map[string]int),
	}

	for _, it := range mergeItems(in.Items) {
		if it.Portions <= 0 {
			continue
		}
		r, ok := in.Recipes[it.RecipeID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRecipe, it.RecipeID)
		}
		if r.YieldQuantity <= 0 {
			return nil, fmt.Errorf("recipe %s: %w", r.ID, recipes.ErrInvalidYield)
		}
		b.base[r.ID] = it.Portions
		b.readyBy[r.ID] = ready
		b.addTask(r)
	}

	for _, id := range append([]string(nil), b.order...) {
		b.walk(id)
	}
	b.plan()

	for _, p := range b.problems {
		b.conflicts = append(b.conflicts, dependencyConflict(b.tasks[p.parentID], p.compID, p.msg))
	}

	schedule := &models.ProductionSchedule{
		Date:         util.StartOfDay(in.Date),
		SiteID:       in.SiteID,
		MealPeriodID: in.MealPeriod.ID,
		ServiceStart: serviceStart,
		Tasks:        make([]models.ProductionTask, 0, len(b.order)),
	}
	for _, id := range b.order {
		schedule.Tasks = append(schedule.Tasks, *b.tasks[id])
	}
	sort.SliceStable(schedule.Tasks, func(i, j int) bool {
		return schedule.Tasks[i].PrepStart.Before(schedule.Tasks[j].PrepStart)
	})

	b.conflicts = append(b.conflicts, allocateEquipment(schedule.Tasks, in.Recipes, in.Equipment)...)
	b.conflicts = append(b.conflicts, allocateStaff(schedule.Tasks, in.Recipes, in.Employees)...)
	schedule.Conflicts = b.conflicts
	schedule.CriticalPath = CriticalPath(schedule.Tasks)
	return schedule, nil
}

func (b *builder) addTask(r *models.Recipe) {
	t := &models.ProductionTask{
		ID:                util.NewID(),
		RecipeID:          r.ID,
		RecipeName:        r.Name,
		SiteID:            b.in.SiteID,
		Date:              util.StartOfDay(b.in.Date),
		MealPeriodID:      b.in.MealPeriod.ID,
		AssignedStationID: r.StationID,
		Status:            models.TaskStatusPlanned,
	}
	b.tasks[r.ID] = t
	b.order = append(b.order, r.ID)
}

func setReady(t *models.ProductionTask, r *models.Recipe, ready time.Time) {
	t.ReadyTime = ready
	t.CookStart = ready.Add(-time.Duration(r.CookTimeMinutes) * time.Minute)
	t.PrepStart = t.CookStart.Add(-time.Duration(r.PrepTimeMinutes) * time.Minute)
}

// walk discovers the component graph below id depth first. Edges to missing
// recipes and edges that close a cycle are recorded as problems and dropped,
// so the remaining edges form a DAG.
func (b *builder) walk(id string) {
	if b.state[id] != unvisited {
		return
	}
	b.state[id] = visiting
	r := b.in.Recipes[id]
	for _, compID := range r.Components {
		comp, ok := b.in.Recipes[compID]
		switch {
		case !ok || comp.YieldQuantity <= 0:
			b.problems = append(b.problems, componentProblem{id, compID,
				fmt.Sprintf("component %s of %s has no usable recipe", compID, r.Name)})
			continue
		case b.state[compID] == visiting:
			b.problems = append(b.problems, componentProblem{id, compID,
				fmt.Sprintf("component %s of %s forms a cycle", compID, r.Name)})
			continue
		}
		if containsString(b.components[id], compID) {
			continue
		}
		b.components[id] = append(b.components[id], compID)
		if _, ok := b.tasks[compID]; !ok {
			b.addTask(comp)
		}
		b.walk(compID)
	}
	b.state[id] = visited
	b.finished = append(b.finished, id)
}

// plan visits recipes parents first, so a task's demand and ready time are
// final before they are pushed down to its components.
func (b *builder) plan() {
	for i := len(b.finished) - 1; i >= 0; i-- {
		id := b.finished[i]
		t, r := b.tasks[id], b.in.Recipes[id]
		t.PortionsNeeded += b.base[id]
		t.BatchCount = int(math.Ceil(float64(t.PortionsNeeded) / r.YieldQuantity))
		setReady(t, r, b.readyBy[id])

		for _, compID := range b.components[id] {
			child, comp := b.tasks[compID], b.in.Recipes[compID]
			// One component batch per parent batch.
			child.PortionsNeeded += t.BatchCount * int(math.Ceil(comp.YieldQuantity))
			if at, ok := b.readyBy[compID]; !ok || t.CookStart.Before(at) {
				b.readyBy[compID] = t.CookStart
			}
			t.Dependencies = append(t.Dependencies, child.ID)
		}
	}
}

func dependencyConflict(t *models.ProductionTask, compID, msg string) models.ResourceConflict {
	return models.ResourceConflict{
		Kind:         models.ConflictDependency,
		TaskID:       t.ID,
		RecipeID:     t.RecipeID,
		ResourceType: compID,
		WindowStart:  t.PrepStart,
		WindowEnd:    t.CookStart,
		Message:      msg,
	}
}

// mergeItems sums portions of repeated recipes, keeping first-seen order.
func mergeItems(items []PlannedItem) []PlannedItem {
	idx := make(map[string]int)
	out := make([]PlannedItem, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.RecipeID]; ok {
			out[i].Portions += it.Portions
			continue
		}
		idx[it.RecipeID] = len(out)
		out = append(out, it)
	}
	return out
}

// CriticalPath walks from the earliest prep start, each step taking the
// longest task that starts exactly at the cursor and moving the cursor to its
// ready time. Tasks with slack never appear on it.
func CriticalPath(tasks []models.ProductionTask) []string {
	if len(tasks) == 0 {
		return nil
	}
	cursor := tasks[0].PrepStart
	for _, t := range tasks[1:] {
		if t.PrepStart.Before(cursor) {
			cursor = t.PrepStart
		}
	}

	used := make(map[string]bool)
	var path []string
	for {
		best := -1
		for i, t := range tasks {
			if used[t.ID] || !t.PrepStart.Equal(cursor) {
				continue
			}
			if best < 0 || t.Duration() > tasks[best].Duration() {
				best = i
			}
		}
		if best < 0 {
			return path
		}
		used[tasks[best].ID] = true
		path = append(path, tasks[best].ID)
		cursor = tasks[best].ReadyTime
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
