package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMealNotFound is returned when planning a meal that does not exist for the user.
var ErrMealNotFound = errors.New("meal not found")

// Meal types in display order. Unknown types sort with MealTypeOther.
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
	MealTypeOther     = "other"
)

// NormalizeMealType lowercases t and maps anything unknown to MealTypeOther.
func NormalizeMealType(t string) string {
	switch m := strings.ToLower(strings.TrimSpace(t)); m {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return m
	}
	return MealTypeOther
}

// PlannedMealRow is one meal_plans entry joined with its meal.
type PlannedMealRow struct {
	ID       int64
	MealID   int64
	PlanDate string
	MealType string
	MealName string
	// Ingredients is the stored JSON blob; nil when the meal has none.
	Ingredients *string
}

// PlanRepository is a database-backed repository for meals and meal plans.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// AddMeal stores a meal with its raw ingredient blob and returns its id.
func (r *PlanRepository) AddMeal(ctx context.Context, userID, name string, ingredients *string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO meals (user_id, name, ingredients, created_at) VALUES (?, ?, ?, ?)`,
		userID, strings.TrimSpace(name), ingredients, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert meal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read meal id: %w", err)
	}
	return id, nil
}

// PlanMeal schedules an existing meal of the user on a calendar day.
func (r *PlanRepository) PlanMeal(ctx context.Context, userID string, mealID int64, date time.Time, mealType string) (int64, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM meals WHERE id = ? AND user_id = ?`, mealID, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("meal %d: %w", mealID, ErrMealNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up meal %d: %w", mealID, err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (user_id, meal_id, plan_date, meal_type, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, mealID, FormatDate(date), NormalizeMealType(mealType), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert meal plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read meal plan id: %w", err)
	}
	return id, nil
}

const listPlannedMeals = `
SELECT mp.id, mp.meal_id, mp.plan_date, mp.meal_type, m.name, m.ingredients
FROM meal_plans mp
JOIN meals m ON m.id = mp.meal_id
WHERE mp.user_id = ? AND mp.plan_date >= ? AND mp.plan_date <= ?
ORDER BY mp.plan_date,
	CASE mp.meal_type
		WHEN 'breakfast' THEN 0
		WHEN 'lunch' THEN 1
		WHEN 'dinner' THEN 2
		WHEN 'snack' THEN 3
		ELSE 4
	END,
	mp.id`

// ListPlannedMeals returns the user's planned meals between from and to, both inclusive.
func (r *PlanRepository) ListPlannedMeals(ctx context.Context, userID string, from, to time.Time) ([]PlannedMealRow, error) {
	rows, err := r.db.QueryContext(ctx, listPlannedMeals, userID, FormatDate(from), FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list planned meals for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []PlannedMealRow
	for rows.Next() {
		var row PlannedMealRow
		var ingredients sql.NullString
		if err := rows.Scan(&row.ID, &row.MealID, &row.PlanDate, &row.MealType, &row.MealName, &ingredients); err != nil {
			return nil, fmt.Errorf("failed to scan planned meal: %w", err)
		}
		if ingredients.Valid {
			row.Ingredients = &ingredients.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate planned meals: %w", err)
	}
	return out, nil
}
