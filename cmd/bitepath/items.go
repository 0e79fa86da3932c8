package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bitepath/internal/shoppinglist"
)

func newAddItemCmd(opts *rootOptions) *cobra.Command {
	var qty, unit string
	cmd := &cobra.Command{
		Use:   "add-item <name>",
		Short: "Add an item to the list by hand",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(func(e *env) error {
				item, err := e.app.AddManualItem(e.cfg.UserID, shoppinglist.ManualItemInput{
					Name:     strings.Join(args, " "),
					Quantity: qty,
					Unit:     unit,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", joinNonEmpty(item.Name, item.Quantity, item.Unit), item.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&qty, "qty", "", "Quantity")
	cmd.Flags().StringVar(&unit, "unit", "", "Unit")
	return cmd
}

func newRemoveItemCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <id>",
		Short: "Remove a hand-added item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(func(e *env) error {
				removed, err := e.app.RemoveManualItem(e.cfg.UserID, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no hand-added item %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newClearItemsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-items",
		Short: "Remove every hand-added item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(func(e *env) error {
				if err := e.app.ClearManualItems(e.cfg.UserID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Removed every hand-added item.")
				return nil
			})
		},
	}
}

func newUnitsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "units [imperial|metric]",
		Short:     "Show or set the preferred display units",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"imperial", "metric"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(func(e *env) error {
				if len(args) == 0 {
					system, err := e.app.UnitSystem(cmd.Context(), e.cfg.UserID)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), system)
					return nil
				}
				system, err := e.app.SetUnitSystem(cmd.Context(), e.cfg.UserID, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Preferred units set to %s\n", system)
				return nil
			})
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	sel := &listSelector{}
	var p printer
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reprint the list whenever another client checks items off",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return opts.with(func(e *env) error {
				return watchList(ctx, e, sel, &p, cmd)
			})
		},
	}
	cmd.Flags().BoolVar(&sel.today, "today", false, "Watch today's list")
	sel.addWeekFlags(cmd)
	sel.addTodayFlags(cmd)
	p.addFlags(cmd)
	return cmd
}

func watchList(ctx context.Context, e *env, sel *listSelector, p *printer, cmd *cobra.Command) error {
	p.out = cmd.OutOrStdout()
	show := func() error {
		shown, err := sel.load(ctx, e)
		if err != nil {
			return err
		}
		if shown.meals != nil {
			p.mealWise(shown.meals)
		} else {
			p.groceryList(shown.list)
		}
		return nil
	}

	if err := e.kv.Watch(ctx); err != nil {
		return err
	}
	if err := show(); err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	unwatch := e.app.Watch(e.cfg.UserID, sel.view(), func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unwatch()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			fmt.Fprintln(p.out)
			if err := show(); err != nil {
				e.log.Warn("Failed to rebuild list", zap.Error(err))
			}
		}
	}
}
