package production

import (
	"fmt"
	"sort"
	"time"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/util"
)

type window struct {
	start, end time.Time
}

// booking tracks the windows already assigned to each resource.
type booking map[string][]window

func (b booking) free(id string, start, end time.Time) bool {
	for _, w := range b[id] {
		if util.Overlaps(w.start, w.end, start, end) {
			return false
		}
	}
	return true
}

func (b booking) reserve(id string, start, end time.Time) {
	b[id] = append(b[id], window{start, end})
}

// allocateEquipment gives each task the first unit of every required
// equipment type that is free over [cookStart, readyTime). Tasks are visited
// in slice order.
func allocateEquipment(tasks []models.ProductionTask, book map[string]*models.Recipe, equipment []models.Equipment) []models.ResourceConflict {
	byType := make(map[string][]models.Equipment)
	for _, e := range equipment {
		byType[e.Type] = append(byType[e.Type], e)
	}
	for typ := range byType {
		units := byType[typ]
		sort.SliceStable(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	}

	used := make(booking)
	var conflicts []models.ResourceConflict

	for i := range tasks {
		t := &tasks[i]
		r := book[t.RecipeID]
		if r == nil {
			continue
		}
		for _, typ := range r.EquipmentTypes {
			assigned := false
			for _, unit := range byType[typ] {
				if containsString(t.AssignedEquipmentIDs, unit.ID) || !used.free(unit.ID, t.CookStart, t.ReadyTime) {
					continue
				}
				used.reserve(unit.ID, t.CookStart, t.ReadyTime)
				t.AssignedEquipmentIDs = append(t.AssignedEquipmentIDs, unit.ID)
				assigned = true
				break
			}
			if !assigned {
				conflicts = append(conflicts, models.ResourceConflict{
					Kind:         models.ConflictEquipment,
					TaskID:       t.ID,
					RecipeID:     t.RecipeID,
					ResourceType: typ,
					WindowStart:  t.CookStart,
					WindowEnd:    t.ReadyTime,
					Message: fmt.Sprintf("no %s free for %s %s-%s", typ, recipeLabel(t),
						util.FormatTimeOfDay(t.CookStart), util.FormatTimeOfDay(t.ReadyTime)),
				})
			}
		}
	}
	return conflicts
}

// allocateStaff gives each task the first employee who is on shift for the
// whole of [prepStart, readyTime), can work the recipe's station and is not
// already busy. A site with no employees on its roster is not staffed.
func allocateStaff(tasks []models.ProductionTask, book map[string]*models.Recipe, employees []models.Employee) []models.ResourceConflict {
	if len(employees) == 0 {
		return nil
	}
	staff := make([]models.Employee, len(employees))
	copy(staff, employees)
	sort.SliceStable(staff, func(i, j int) bool { return staff[i].ID < staff[j].ID })

	busy := make(booking)
	var conflicts []models.ResourceConflict

	for i := range tasks {
		t := &tasks[i]
		station := ""
		if r := book[t.RecipeID]; r != nil {
			station = r.StationID
		}
		for _, e := range staff {
			if !e.CanWorkStation(station) || !onShift(e, t.Date, t.PrepStart, t.ReadyTime) {
				continue
			}
			if !busy.free(e.ID, t.PrepStart, t.ReadyTime) {
				continue
			}
			busy.reserve(e.ID, t.PrepStart, t.ReadyTime)
			t.AssignedEmployeeID = e.ID
			break
		}
		if t.AssignedEmployeeID == "" {
			conflicts = append(conflicts, models.ResourceConflict{
				Kind:         models.ConflictStaff,
				TaskID:       t.ID,
				RecipeID:     t.RecipeID,
				ResourceType: station,
				WindowStart:  t.PrepStart,
				WindowEnd:    t.ReadyTime,
				Message: fmt.Sprintf("no cook available for %s %s-%s", recipeLabel(t),
					util.FormatTimeOfDay(t.PrepStart), util.FormatTimeOfDay(t.ReadyTime)),
			})
		}
	}
	return conflicts
}

// onShift reports whether the employee's shift on date covers [start, end).
// Unparseable or empty shift bounds are treated as open.
func onShift(e models.Employee, date, start, end time.Time) bool {
	if e.ShiftStart != "" {
		if s, err := util.AtTimeOfDay(date, e.ShiftStart); err == nil && start.Before(s) {
			return false
		}
	}
	if e.ShiftEnd != "" {
		if f, err := util.AtTimeOfDay(date, e.ShiftEnd); err == nil && end.After(f) {
			return false
		}
	}
	return true
}

func recipeLabel(t *models.ProductionTask) string {
	if t.RecipeName != "" {
		return t.RecipeName
	}
	return t.RecipeID
}
