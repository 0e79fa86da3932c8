package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bitepath/internal/app"
	"bitepath/internal/grocery"
	"bitepath/internal/planner"
)

type printer struct {
	out     io.Writer
	flat    bool
	details bool
	keys    bool
}

func (p *printer) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.flat, "flat", false, "Print one sorted list without category headings")
	cmd.Flags().BoolVar(&p.details, "details", false, "Show where each amount comes from")
	cmd.Flags().BoolVar(&p.keys, "keys", false, "Show item keys")
}

func (p *printer) item(n int, it grocery.DisplayItem, struck bool) {
	box := "[ ]"
	if struck {
		box = "[x]"
	}
	line := it.Name
	if it.Details != "" {
		line += ": " + it.Details
	}
	fmt.Fprintf(p.out, "%4d. %s %s\n", n, box, line)
	if p.keys {
		fmt.Fprintf(p.out, "         key: %s\n", it.Key)
	}
	if p.details && it.Tooltip != "" {
		for _, l := range strings.Split(it.Tooltip, "\n") {
			fmt.Fprintf(p.out, "         %s\n", l)
		}
	}
}

func (p *printer) example(sections []grocery.MealSection) {
	fmt.Fprintln(p.out, "Nothing planned yet. Here is what a list looks like:")
	for _, s := range sections {
		fmt.Fprintf(p.out, "\n%s\n", s.MealName)
		for _, it := range s.Items {
			fmt.Fprintf(p.out, "  - %s: %s\n", it.Name, it.Details)
		}
	}
}

func (p *printer) groceryList(list *app.GroceryList) {
	if list.View == grocery.ViewToday {
		fmt.Fprintf(p.out, "Today %s (%s)\n", planner.FormatDate(list.From), list.System)
	} else {
		fmt.Fprintf(p.out, "Grocery list %s to %s (%s)\n", planner.FormatDate(list.From), planner.FormatDate(list.To), list.System)
	}
	if len(list.Items) == 0 {
		fmt.Fprintln(p.out)
		p.example(list.Example)
		return
	}

	index := make(map[string]int, len(list.Items))
	for i, it := range list.Items {
		index[it.Key] = i + 1
	}
	if p.flat {
		fmt.Fprintln(p.out)
		for i, it := range list.Items {
			p.item(i+1, it, list.IsStruck(it.Key))
		}
		return
	}
	for _, g := range list.Groups {
		fmt.Fprintf(p.out, "\n%s\n", g.Title)
		for _, it := range g.Items {
			p.item(index[it.Key], it, list.IsStruck(it.Key))
		}
	}
}

func (p *printer) mealWise(list *app.MealWiseList) {
	fmt.Fprintf(p.out, "Meals %s (%s)\n", planner.FormatDate(list.Day), list.System)
	if list.IsExample {
		fmt.Fprintln(p.out)
		p.example(list.Sections)
		return
	}
	n := 0
	for _, s := range list.Sections {
		fmt.Fprintf(p.out, "\n%s\n", s.MealName)
		for _, it := range s.Items {
			n++
			p.item(n, it, list.IsStruck(it.Key))
		}
	}
	if len(list.Manual) > 0 {
		fmt.Fprintf(p.out, "\n%s\n", grocery.ManualGroupTitle)
		for _, it := range list.Manual {
			n++
			p.item(n, it, list.IsStruck(it.Key))
		}
	}
}
