package grocery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMealWise(t *testing.T) {
	breakfast := PlannedMeal{
		MealName: "Oatmeal",
		PlanDate: "2024-05-06",
		Ingredients: []Ingredient{
			ing("Oats", Float(1), "cup"),
			ing("Blueberries", Float(0.5), "cup"),
			{Name: "Cinnamon", Description: "to taste"},
		},
	}
	lunch := PlannedMeal{
		MealName:    "Wrap",
		PlanDate:    "2024-05-06",
		Ingredients: []Ingredient{ing("Tortilla", Float(2), "pieces"), ing("Chicken", Float(200), "g")},
	}
	// A second planning of the same meal on the same day shares the section.
	extra := PlannedMeal{MealName: "Oatmeal", PlanDate: "2024-05-06", Ingredients: []Ingredient{ing("Oats", Float(1), "cup")}}

	sections, err := MealWise([]PlannedMeal{breakfast, lunch, extra}, Metric)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	oatmeal := sections[0]
	assert.Equal(t, "Oatmeal", oatmeal.MealName)
	require.Len(t, oatmeal.Items, 4)
	assert.Equal(t, "236.6 ml", oatmeal.Items[0].Details)
	assert.Equal(t, "mealwise-today:Oatmeal:oats:cup-0", oatmeal.Items[0].Key)
	assert.Equal(t, "to taste", oatmeal.Items[2].Details)
	assert.True(t, oatmeal.Items[2].Muted)
	assert.Equal(t, "mealwise-today:Oatmeal:cinnamon:-2", oatmeal.Items[2].Key)
	assert.Equal(t, "mealwise-today:Oatmeal:oats:cup-0", oatmeal.Items[3].Key, "index restarts per planned entry")

	wrap := sections[1]
	assert.Equal(t, "2", wrap.Items[0].Details)
	assert.Equal(t, "200 g", wrap.Items[1].Details)
	assert.Equal(t, CategoryMeat, wrap.Items[1].Category)
}

func TestMealWiseInvalidSystem(t *testing.T) {
	_, err := MealWise(nil, "")
	assert.ErrorIs(t, err, ErrInvalidUnitSystem)
}

func TestExampleList(t *testing.T) {
	sections := ExampleList()
	require.Len(t, sections, 3)
	for _, s := range sections {
		for _, it := range s.Items {
			assert.Regexp(t, `^ex-`, it.Key)
		}
	}
	last := sections[2].Items[len(sections[2].Items)-1]
	assert.Equal(t, "Black Pepper", last.Name)
	assert.True(t, last.Muted)
}
