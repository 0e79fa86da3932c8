package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bitepath/internal/app"
	"bitepath/internal/grocery"
	"bitepath/internal/planner"
)

// listSelector picks one of the lists: a week (default the current one), today, or today by meal.
type listSelector struct {
	week  string
	next  bool
	today bool
	meals bool
	date  string
}

func (s *listSelector) addWeekFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.week, "week", "", "Any date YYYY-MM-DD inside the week (default this week)")
	cmd.Flags().BoolVar(&s.next, "next", false, "Use next week")
}

func (s *listSelector) addTodayFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.date, "date", "", "Date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&s.meals, "meals", false, "Group today's items by meal")
}

func (s *listSelector) view() grocery.View {
	switch {
	case s.meals:
		return app.ViewMealWise
	case s.today:
		return grocery.ViewToday
	}
	return grocery.ViewWeek
}

// shownList is whichever list was built; exactly one field is set.
type shownList struct {
	list  *app.GroceryList
	meals *app.MealWiseList
}

// items returns the lines in the order they are numbered on screen.
func (l shownList) items() []grocery.DisplayItem {
	if l.meals != nil {
		if l.meals.IsExample {
			return nil
		}
		return l.meals.All()
	}
	return l.list.Items
}

func (s *listSelector) load(ctx context.Context, e *env) (shownList, error) {
	user := e.cfg.UserID
	if s.today || s.meals {
		day, err := parseDateOrToday(s.date)
		if err != nil {
			return shownList{}, err
		}
		if s.meals {
			m, err := e.app.MealWise(ctx, user, day)
			return shownList{meals: m}, err
		}
		l, err := e.app.TodayList(ctx, user, day)
		return shownList{list: l}, err
	}

	anchor := time.Now()
	if s.week != "" {
		d, err := planner.ParseDate(s.week)
		if err != nil {
			return shownList{}, fmt.Errorf("invalid --week %q (expected YYYY-MM-DD)", s.week)
		}
		anchor = d
	}
	if s.next {
		anchor = planner.NextMonday(anchor)
	}
	l, err := e.app.GroceryList(ctx, user, planner.WeekStart(anchor), planner.WeekEnd(anchor))
	return shownList{list: l}, err
}

func newGroceryCmd(opts *rootOptions) *cobra.Command {
	sel := &listSelector{}
	var p printer
	cmd := &cobra.Command{
		Use:   "grocery",
		Short: "Show the aggregated grocery list for a week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(func(e *env) error {
				shown, err := sel.load(cmd.Context(), e)
				if err != nil {
					return err
				}
				p.out = cmd.OutOrStdout()
				p.groceryList(shown.list)
				return nil
			})
		},
	}
	sel.addWeekFlags(cmd)
	p.addFlags(cmd)
	return cmd
}

func newTodayCmd(opts *rootOptions) *cobra.Command {
	sel := &listSelector{today: true}
	var p printer
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show the grocery list for a single day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(func(e *env) error {
				shown, err := sel.load(cmd.Context(), e)
				if err != nil {
					return err
				}
				p.out = cmd.OutOrStdout()
				if shown.meals != nil {
					p.mealWise(shown.meals)
				} else {
					p.groceryList(shown.list)
				}
				return nil
			})
		},
	}
	sel.addTodayFlags(cmd)
	p.addFlags(cmd)
	return cmd
}

func newToggleCmd(opts *rootOptions) *cobra.Command {
	sel := &listSelector{}
	cmd := &cobra.Command{
		Use:   "toggle <number|key>",
		Short: "Check off or uncheck an item",
		Long:  "Toggle an item by the number shown next to it in the list, or by its key (see --keys).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(func(e *env) error {
				shown, err := sel.load(cmd.Context(), e)
				if err != nil {
					return err
				}
				item, err := pickItem(shown.items(), args[0])
				if err != nil {
					return err
				}
				struck, err := e.app.Toggle(e.cfg.UserID, item.Key)
				if err != nil {
					return err
				}
				state := "Unchecked"
				if struck {
					state = "Checked off"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, item.Name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&sel.today, "today", false, "Number refers to today's list")
	sel.addWeekFlags(cmd)
	sel.addTodayFlags(cmd)
	return cmd
}

// pickItem resolves a 1-based list number or an item key.
func pickItem(items []grocery.DisplayItem, arg string) (grocery.DisplayItem, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(items) {
			return grocery.DisplayItem{}, fmt.Errorf("no item %d, the list has %d", n, len(items))
		}
		return items[n-1], nil
	}
	for _, it := range items {
		if it.Key == arg {
			return it, nil
		}
	}
	return grocery.DisplayItem{}, fmt.Errorf("no item with key %q on this list", arg)
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	sel := &listSelector{}
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Uncheck every item on a list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(func(e *env) error {
				// Build first so the cleared keys are the ones currently on the list.
				if _, err := sel.load(cmd.Context(), e); err != nil {
					return err
				}
				if err := e.app.ClearStruck(e.cfg.UserID, sel.view()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Every item on the list is unchecked.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&sel.today, "today", false, "Clear today's list")
	sel.addWeekFlags(cmd)
	sel.addTodayFlags(cmd)
	return cmd
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
