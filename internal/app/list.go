package app

import (
	"time"

	"bitepath/internal/grocery"
)

// GroceryList is a computed list together with the struck state of its items.
type GroceryList struct {
	From   time.Time
	To     time.Time
	System grocery.UnitSystem
	View   grocery.View
	// Items holds aggregated items sorted by name followed by manual items.
	Items  []grocery.DisplayItem
	Groups []grocery.Group
	Struck map[string]bool
	// Example is set when nothing is planned and nothing was added by hand.
	Example []grocery.MealSection
}

// IsStruck reports whether the item with key is checked off.
func (l *GroceryList) IsStruck(key string) bool {
	return l.Struck[key]
}

// Item returns the item at index i of Items.
func (l *GroceryList) Item(i int) (grocery.DisplayItem, bool) {
	if i < 0 || i >= len(l.Items) {
		return grocery.DisplayItem{}, false
	}
	return l.Items[i], true
}

// MealWiseList is the per-meal variant of the today list.
type MealWiseList struct {
	Day       time.Time
	System    grocery.UnitSystem
	Sections  []grocery.MealSection
	Manual    []grocery.DisplayItem
	Struck    map[string]bool
	IsExample bool
}

// IsStruck reports whether the item with key is checked off.
func (l *MealWiseList) IsStruck(key string) bool {
	return l.Struck[key]
}

// All returns every line in display order: meal sections first, then manual items.
func (l *MealWiseList) All() []grocery.DisplayItem {
	var out []grocery.DisplayItem
	for _, s := range l.Sections {
		out = append(out, s.Items...)
	}
	return append(out, l.Manual...)
}
