package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/pipeline"
	"github.com/galleyops/galley/internal/refdata"
)

// Store bundles every repository over one database.
type Store struct {
	db *sql.DB

	Sites   *SiteRepository
	Recipes *RecipeRepository
	Menus   *MenuRepository
	Lots    *LotRepository
	History *HistoryRepository
	Plans   *PlanRepository
}

// NewStore creates the repositories for db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		Sites:   NewSiteRepository(db),
		Recipes: NewRecipeRepository(db),
		Menus:   NewMenuRepository(db),
		Lots:    NewLotRepository(db),
		History: NewHistoryRepository(db),
		Plans:   NewPlanRepository(db),
	}
}

// Sources wires the store into the planner. Plans are persisted.
func (s *Store) Sources() pipeline.Sources {
	return pipeline.Sources{
		Menus:       s.Menus,
		Sites:       s.Sites,
		History:     s.History,
		Recipes:     s.Recipes,
		Roster:      s.Sites,
		Ingredients: s.Recipes,
		Lots:        s.Lots,
		Output:      s.Plans,
	}
}

// ImportStats counts the rows written by Import.
type ImportStats struct {
	Sites        int
	Ingredients  int
	Recipes      int
	CycleMenus   int
	Overrides    int
	Lots         int
	Observations int
}

// Import writes a reference dataset in one transaction. Rows with existing
// IDs are replaced.
func (s *Store) Import(ctx context.Context, ds *refdata.Dataset) (*ImportStats, error) {
	stats := &ImportStats{}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range ds.Sites {
		if err := s.Sites.CreateSite(ctx, tx, &ds.Sites[i]); err != nil {
			return nil, err
		}
		stats.Sites++
	}
	for i := range ds.MealPeriods {
		if err := s.Sites.CreateMealPeriod(ctx, tx, &ds.MealPeriods[i]); err != nil {
			return nil, err
		}
	}
	for i := range ds.Equipment {
		if err := s.Sites.CreateEquipment(ctx, tx, &ds.Equipment[i]); err != nil {
			return nil, err
		}
	}
	for i := range ds.Employees {
		if err := s.Sites.CreateEmployee(ctx, tx, &ds.Employees[i]); err != nil {
			return nil, err
		}
	}
	for i := range ds.Ingredients {
		if err := s.Recipes.CreateIngredient(ctx, tx, &ds.Ingredients[i]); err != nil {
			return nil, err
		}
		stats.Ingredients++
	}
	for _, c := range ds.Conversions {
		if err := s.Recipes.SaveConversion(ctx, tx, c.From, c.To, c.Factor); err != nil {
			return nil, err
		}
	}
	for i := range ds.Recipes {
		if err := s.Recipes.CreateRecipe(ctx, tx, &ds.Recipes[i]); err != nil {
			return nil, err
		}
		stats.Recipes++
	}
	for i := range ds.CycleMenus {
		cm := &ds.CycleMenus[i]
		if err := s.Menus.DeleteCycleMenu(ctx, tx, cm.ID); err != nil {
			return nil, err
		}
		if err := s.Menus.CreateCycleMenu(ctx, tx, cm); err != nil {
			return nil, err
		}
		stats.CycleMenus++
	}
	for i := range ds.Overrides {
		m := &ds.Overrides[i]
		if err := s.Menus.DeleteSingleUseMenu(ctx, tx, m.ID); err != nil {
			return nil, err
		}
		if err := s.Menus.CreateSingleUseMenu(ctx, tx, m); err != nil {
			return nil, err
		}
		stats.Overrides++
	}
	for i := range ds.Lots {
		if err := s.Lots.CreateLot(ctx, tx, &ds.Lots[i]); err != nil {
			return nil, err
		}
		stats.Lots++
	}
	n, err := s.recordHistory(ctx, tx, ds.Census, ds.Selections, ds.Usage)
	if err != nil {
		return nil, err
	}
	stats.Observations = n

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return stats, nil
}

// RecordHistory upserts observations in one transaction and returns how
// many were written.
func (s *Store) RecordHistory(ctx context.Context, census []models.CensusObservation, selections []models.SelectionObservation, usage []models.UsageObservation) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := s.recordHistory(ctx, tx, census, selections, usage)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing history: %w", err)
	}
	return n, nil
}

func (s *Store) recordHistory(ctx context.Context, tx *sql.Tx, census []models.CensusObservation, selections []models.SelectionObservation, usage []models.UsageObservation) (int, error) {
	n := 0
	for _, o := range census {
		if err := s.History.RecordCensus(ctx, tx, o); err != nil {
			return n, err
		}
		n++
	}
	for _, o := range selections {
		if err := s.History.RecordSelection(ctx, tx, o); err != nil {
			return n, err
		}
		n++
	}
	for _, o := range usage {
		if err := s.History.RecordUsage(ctx, tx, o); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
