package models

import "time"

// TaskStatus represents the state of a production task.
type TaskStatus string

const (
	TaskStatusPlanned    TaskStatus = "PLANNED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the task can no longer change.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// ProductionTask is the timed production of one recipe for one meal period.
type ProductionTask struct {
	ID                   string
	RecipeID             string
	RecipeName           string
	SiteID               string
	Date                 time.Time
	MealPeriodID         string
	PortionsNeeded       int
	BatchCount           int
	PrepStart            time.Time
	CookStart            time.Time
	ReadyTime            time.Time
	AssignedEmployeeID   string
	AssignedEquipmentIDs []string
	AssignedStationID    string
	Dependencies         []string // task IDs
	Status               TaskStatus
}

// Duration returns prep start to ready time.
func (t *ProductionTask) Duration() time.Duration {
	return t.ReadyTime.Sub(t.PrepStart)
}

// ConflictKind identifies which resource could not be allocated.
type ConflictKind string

const (
	ConflictEquipment  ConflictKind = "EQUIPMENT"
	ConflictStaff      ConflictKind = "STAFF"
	ConflictDependency ConflictKind = "DEPENDENCY"
)

// ResourceConflict is a non-fatal allocation failure surfaced for staff to resolve.
type ResourceConflict struct {
	Kind         ConflictKind
	TaskID       string
	RecipeID     string
	ResourceType string
	WindowStart  time.Time
	WindowEnd    time.Time
	Message      string
}

// ProductionSchedule is the plan for one (date, site, meal period).
type ProductionSchedule struct {
	Date         time.Time
	SiteID       string
	MealPeriodID string
	ServiceStart time.Time
	Tasks        []ProductionTask
	Conflicts    []ResourceConflict
	CriticalPath []string // task IDs in execution order
}

// Task returns the task with the given ID.
func (s *ProductionSchedule) Task(id string) (*ProductionTask, bool) {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i], true
		}
	}
	return nil, false
}

// ShiftWindow returns the earliest prep start and latest ready time.
func (s *ProductionSchedule) ShiftWindow() (time.Time, time.Time) {
	var start, end time.Time
	for i, t := range s.Tasks {
		if i == 0 || t.PrepStart.Before(start) {
			start = t.PrepStart
		}
		if i == 0 || t.ReadyTime.After(end) {
			end = t.ReadyTime
		}
	}
	return start, end
}
