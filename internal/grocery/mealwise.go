package grocery

import (
	"fmt"
	"strings"
)

// MealSection is one meal of the meal-wise list with its own, unaggregated ingredient lines.
type MealSection struct {
	MealName string
	PlanDate string
	Items    []DisplayItem
}

// MealWiseKey identifies an ingredient line of the meal-wise list. The index keeps repeated
// ingredients of the same meal apart.
func MealWiseKey(mealName, ingredientName, unit string, index int) string {
	return fmt.Sprintf("mealwise-today:%s:%s:%s-%d",
		mealName,
		strings.ToLower(strings.TrimSpace(ingredientName)),
		strings.ToLower(strings.TrimSpace(unit)),
		index)
}

// MealWise renders planned meals one by one without aggregation. Entries of the same meal on the
// same day share a section.
func MealWise(meals []PlannedMeal, system UnitSystem) ([]MealSection, error) {
	if system != Imperial && system != Metric {
		return nil, fmt.Errorf("meal-wise list: %w", ErrInvalidUnitSystem)
	}

	index := make(map[string]int)
	var sections []MealSection
	for _, meal := range meals {
		id := meal.PlanDate + "-" + meal.MealName
		i, ok := index[id]
		if !ok {
			i = len(sections)
			index[id] = i
			sections = append(sections, MealSection{MealName: meal.MealName, PlanDate: meal.PlanDate})
		}

		for n, ing := range meal.Ingredients {
			occ := Occurrence{
				MealName:    meal.MealName,
				Quantity:    ing.Quantity,
				Unit:        ing.Unit,
				Description: ing.Description,
			}
			text, muted, err := renderOccurrence(occ, system)
			if err != nil {
				return nil, err
			}
			sections[i].Items = append(sections[i].Items, DisplayItem{
				Name:     ing.Name,
				Details:  text,
				Muted:    muted,
				Category: Categorize(ing.Name),
				Key:      MealWiseKey(meal.MealName, ing.Name, ing.Unit, n),
				Tooltip:  occurrenceTooltip(occ),
			})
		}
	}
	return sections, nil
}

// ExampleList is shown when there is nothing planned and nothing added by hand. Its keys never
// collide with real list keys.
func ExampleList() []MealSection {
	item := func(name, details, key string) DisplayItem {
		return DisplayItem{Name: name, Details: details, Category: Categorize(name), Key: "ex-" + key}
	}
	return []MealSection{
		{
			MealName: "Example: Yogurt & Granola (Breakfast)",
			Items: []DisplayItem{
				item("Yogurt", "1 cup", "yogurt"),
				item("Granola", "1/2 cup", "granola"),
				item("Berries", "1/4 cup (e.g., blueberries)", "berries"),
			},
		},
		{
			MealName: "Example: Salad with Chicken (Lunch)",
			Items: []DisplayItem{
				item("Chicken Breast", "1 piece", "chicken"),
				item("Lettuce", "1 head", "lettuce"),
				item("Tomatoes", "2 medium", "tomatoes"),
				item("Cucumber", "1/2 medium", "cucumber"),
				item("Salad Dressing", "2 tbsp", "dressing"),
			},
		},
		{
			MealName: "Example: Spaghetti Carbonara (Dinner)",
			Items: []DisplayItem{
				item("Spaghetti", "200g", "spaghetti"),
				item("Pancetta (or Bacon)", "100g", "pancetta"),
				item("Eggs", "2 large", "eggs"),
				item("Parmesan Cheese", "50g (grated)", "parmesan"),
				{Name: "Black Pepper", Details: "to taste", Muted: true, Category: Categorize("Black Pepper"), Key: "ex-pepper"},
			},
		},
	}
}
