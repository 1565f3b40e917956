package models

import (
	"errors"
	"fmt"
	"time"
)

// CycleMenuStatus represents the lifecycle state of a cycle menu.
type CycleMenuStatus string

const (
	CycleMenuStatusDraft    CycleMenuStatus = "DRAFT"
	CycleMenuStatusActive   CycleMenuStatus = "ACTIVE"
	CycleMenuStatusArchived CycleMenuStatus = "ARCHIVED"
)

func (s CycleMenuStatus) String() string {
	return string(s)
}

// CycleMenu is a recurring menu template spanning a fixed number of weeks.
type CycleMenu struct {
	ID          string
	SiteID      string
	Name        string
	StartDate   time.Time
	LengthWeeks int
	Status      CycleMenuStatus
	Version     int
	Items       []MenuItem
	CreatedAt   time.Time
}

// MenuItem places a recipe at a slot of the cycle.
type MenuItem struct {
	ID           string
	WeekNumber   int // 1-based
	DayOfWeek    time.Weekday
	MealPeriodID string
	RecipeID     string
	Category     string // "entree", "side", "dessert"...
	SortOrder    int
}

// IsEditable reports whether the cycle can still be modified in place.
// Active and archived cycles are edited by creating a new version.
func (c *CycleMenu) IsEditable() bool {
	return c.Status == CycleMenuStatusDraft
}

// NewVersion returns a draft copy of the cycle with the version bumped.
// The caller assigns a fresh ID before persisting it.
func (c *CycleMenu) NewVersion() *CycleMenu {
	next := *c
	next.ID = ""
	next.Status = CycleMenuStatusDraft
	next.Version = c.Version + 1
	next.Items = make([]MenuItem, len(c.Items))
	copy(next.Items, c.Items)
	return &next
}

// OverrideScope selects which part of a day a single-use menu covers.
type OverrideScope string

const (
	OverrideScopeDay        OverrideScope = "DAY"
	OverrideScopeMealPeriod OverrideScope = "MEAL_PERIOD"
)

func (s OverrideScope) String() string {
	return string(s)
}

// OverrideMode selects whether a single-use menu replaces or adds to cycle items.
type OverrideMode string

const (
	OverrideModeReplace    OverrideMode = "REPLACE"
	OverrideModeSupplement OverrideMode = "SUPPLEMENT"
)

func (m OverrideMode) String() string {
	return string(m)
}

// SingleUseMenu is a date-specific override (holiday, event).
type SingleUseMenu struct {
	ID           string
	SiteID       string // empty applies to every site
	Name         string
	ServiceDate  time.Time
	Scope        OverrideScope
	MealPeriodID string // required when Scope is MEAL_PERIOD
	Mode         OverrideMode
	Items        []SingleUseItem
}

// SingleUseItem is a recipe served by a single-use menu.
type SingleUseItem struct {
	ID           string
	MealPeriodID string
	RecipeID     string
	Category     string
	SortOrder    int
}

// AppliesToSite reports whether the override covers siteID.
func (s *SingleUseMenu) AppliesToSite(siteID string) bool {
	return s.SiteID == "" || s.SiteID == siteID
}

// Validate checks the scope/meal period pairing. Items of a DAY override
// must name their meal period, otherwise nothing would ever produce them.
func (s *SingleUseMenu) Validate() error {
	var errs []error
	switch s.Scope {
	case OverrideScopeDay:
		for _, it := range s.Items {
			if it.MealPeriodID == "" {
				errs = append(errs, fmt.Errorf("day scope item %s needs a meal period", it.RecipeID))
			}
		}
	case OverrideScopeMealPeriod:
		if s.MealPeriodID == "" {
			errs = append(errs, errors.New("meal period scope requires a meal period"))
		}
	default:
		errs = append(errs, errors.New("invalid scope: "+string(s.Scope)))
	}
	if s.Mode != OverrideModeReplace && s.Mode != OverrideModeSupplement {
		errs = append(errs, errors.New("invalid mode: "+string(s.Mode)))
	}
	return errors.Join(errs...)
}

// SourceRef records where a resolved item came from. Exactly one field is set.
type SourceRef struct {
	CycleItemID     string
	SingleUseItemID string
}

// ErrAmbiguousSource is returned when a SourceRef names zero or two origins.
var ErrAmbiguousSource = errors.New("resolved item must reference exactly one source")

// Validate enforces single provenance.
func (r SourceRef) Validate() error {
	if (r.CycleItemID == "") == (r.SingleUseItemID == "") {
		return ErrAmbiguousSource
	}
	return nil
}

// FromCycle reports whether the item came from the cycle menu.
func (r SourceRef) FromCycle() bool {
	return r.CycleItemID != ""
}

// ID returns whichever source identifier is set.
func (r SourceRef) ID() string {
	if r.CycleItemID != "" {
		return r.CycleItemID
	}
	return r.SingleUseItemID
}

// ResolvedItem is one concrete menu line for a date.
type ResolvedItem struct {
	RecipeID     string
	MealPeriodID string
	Category     string
	Position     int // 0-based order within (meal period, category)
	Source       SourceRef
}

// ResolvedMenu is the merged menu for one (date, site).
type ResolvedMenu struct {
	Date   time.Time
	SiteID string
	Items  []ResolvedItem
}

// ForMealPeriod returns the items served in a meal period, in order.
func (m *ResolvedMenu) ForMealPeriod(mealPeriodID string) []ResolvedItem {
	var items []ResolvedItem
	for _, it := range m.Items {
		if it.MealPeriodID == mealPeriodID {
			items = append(items, it)
		}
	}
	return items
}

// MealPeriodIDs returns the distinct meal periods in first-seen order.
func (m *ResolvedMenu) MealPeriodIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, it := range m.Items {
		if !seen[it.MealPeriodID] {
			seen[it.MealPeriodID] = true
			ids = append(ids, it.MealPeriodID)
		}
	}
	return ids
}

// AlternativesIn counts the items competing in the same (meal period, category) slot.
func (m *ResolvedMenu) AlternativesIn(mealPeriodID, category string) int {
	n := 0
	for _, it := range m.Items {
		if it.MealPeriodID == mealPeriodID && it.Category == category {
			n++
		}
	}
	return n
}
