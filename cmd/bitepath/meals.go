package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bitepath/internal/planner"
)

func newAddMealCmd(opts *rootOptions) *cobra.Command {
	var name, ingredients, ingredientsFile string
	cmd := &cobra.Command{
		Use:   "add-meal",
		Short: "Store a meal with its ingredient list",
		Long: `Store a meal. Ingredients are a JSON array of {"name","quantity","unit","description"} records,
given inline with --ingredients or read from --ingredients-file ("-" reads stdin).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			blob, err := readIngredients(cmd.InOrStdin(), ingredients, ingredientsFile)
			if err != nil {
				return err
			}
			return opts.with(func(e *env) error {
				id, err := e.plans.AddMeal(cmd.Context(), e.cfg.UserID, name, blob)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added meal %d: %s\n", id, strings.TrimSpace(name))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Meal name")
	cmd.Flags().StringVar(&ingredients, "ingredients", "", "Ingredients JSON")
	cmd.Flags().StringVar(&ingredientsFile, "ingredients-file", "", "File holding the ingredients JSON")
	return cmd
}

// readIngredients returns nil when the meal has no ingredient list. The blob is stored as given;
// malformed content is tolerated later when lists are built.
func readIngredients(stdin io.Reader, inline, path string) (*string, error) {
	if inline != "" && path != "" {
		return nil, fmt.Errorf("use either --ingredients or --ingredients-file, not both")
	}
	if inline != "" {
		return &inline, nil
	}
	if path == "" {
		return nil, nil
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ingredients: %w", err)
	}
	s := string(data)
	return &s, nil
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var mealID int64
	var date, mealType string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Schedule a stored meal on a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mealID <= 0 {
				return fmt.Errorf("--meal-id must be > 0")
			}
			day, err := parseDateOrToday(date)
			if err != nil {
				return err
			}
			return opts.with(func(e *env) error {
				id, err := e.plans.PlanMeal(cmd.Context(), e.cfg.UserID, mealID, day, mealType)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Planned meal %d for %s %s (plan %d)\n",
					mealID, planner.FormatDate(day), planner.NormalizeMealType(mealType), id)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&mealID, "meal-id", 0, "Meal to schedule")
	cmd.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&mealType, "type", planner.MealTypeDinner, "breakfast, lunch, dinner or snack")
	return cmd
}

func parseDateOrToday(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return planner.Day(time.Now()), nil
	}
	d, err := planner.ParseDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
	}
	return d, nil
}
