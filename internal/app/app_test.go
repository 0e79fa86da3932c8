package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitepath/internal/grocery"
	"bitepath/internal/planner"
	"bitepath/internal/shoppinglist"
	"bitepath/internal/storage"
)

type fakePlans struct {
	rows []planner.PlannedMealRow
	err  error
	from string
	to   string
}

func (f *fakePlans) ListPlannedMeals(_ context.Context, _ string, from, to time.Time) ([]planner.PlannedMealRow, error) {
	f.from, f.to = planner.FormatDate(from), planner.FormatDate(to)
	if f.err != nil {
		return nil, f.err
	}
	var out []planner.PlannedMealRow
	for _, r := range f.rows {
		if r.PlanDate >= f.from && r.PlanDate <= f.to {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeProfiles struct {
	systems map[string]grocery.UnitSystem
}

func (f *fakeProfiles) PreferredUnitSystem(_ context.Context, userID string) (grocery.UnitSystem, error) {
	if s, ok := f.systems[userID]; ok {
		return s, nil
	}
	return grocery.Imperial, nil
}

func (f *fakeProfiles) SetPreferredUnitSystem(_ context.Context, userID string, s grocery.UnitSystem) error {
	f.systems[userID] = s
	return nil
}

type fakeRecorder struct {
	malformed int
	dropped   []string
	built     []string
	toggled   []bool
}

func (r *fakeRecorder) MalformedBlob()              { r.malformed++ }
func (r *fakeRecorder) DroppedRecord(reason string) { r.dropped = append(r.dropped, reason) }
func (r *fakeRecorder) ListBuilt(view string)       { r.built = append(r.built, view) }
func (r *fakeRecorder) Toggled(struck bool)         { r.toggled = append(r.toggled, struck) }

func blob(s string) *string { return &s }

func row(date, meal, ingredients string) planner.PlannedMealRow {
	r := planner.PlannedMealRow{PlanDate: date, MealType: "dinner", MealName: meal}
	if ingredients != "" {
		r.Ingredients = blob(ingredients)
	}
	return r
}

type fixture struct {
	app      *App
	plans    *fakePlans
	profiles *fakeProfiles
	recorder *fakeRecorder
	kv       *storage.FileStore
}

func newFixture(t *testing.T, rows ...planner.PlannedMealRow) *fixture {
	t.Helper()
	kv, err := storage.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	f := &fixture{
		plans:    &fakePlans{rows: rows},
		profiles: &fakeProfiles{systems: map[string]grocery.UnitSystem{}},
		recorder: &fakeRecorder{},
		kv:       kv,
	}
	f.app = NewApp(f.plans, f.profiles, kv, Options{Recorder: f.recorder})
	t.Cleanup(f.app.Close)
	return f
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := planner.ParseDate(s)
	require.NoError(t, err)
	return d
}

func names(items []grocery.DisplayItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

var weekRows = []planner.PlannedMealRow{
	row("2024-05-06", "Pancakes", `[{"name":"Flour","quantity":1,"unit":"cup"},{"name":"Salt","quantity":null,"unit":null,"description":"to taste"}]`),
	row("2024-05-07", "Muffins", `[{"name":"Flour","quantity":0.5,"unit":"cup"},{"name":"Sugar","quantity":"200","unit":"g"}]`),
	row("2024-05-08", "Broken", "{not valid json"),
	row("2024-05-08", "Cake", `[{"name":"Sugar","quantity":300,"unit":"g"},{"name":"Salt","description":"to taste"},{"name":"Egg","quantity":"lots"}]`),
	row("2024-05-09", "Omelette", `[{"name":"Salt","description":"to taste"},{"name":"Eggs","quantity":3,"unit":""}]`),
}

func TestGroceryList(t *testing.T) {
	f := newFixture(t, weekRows...)
	ctx := context.Background()

	list, err := f.app.GroceryList(ctx, "u1", day(t, "2024-05-06"), day(t, "2024-05-12"))
	require.NoError(t, err)

	assert.Equal(t, grocery.Imperial, list.System)
	assert.Equal(t, []string{"Eggs", "Flour", "Salt", "Sugar"}, names(list.Items))

	byName := map[string]grocery.DisplayItem{}
	for _, it := range list.Items {
		byName[it.Name] = it
	}
	assert.Equal(t, "1 cup + 0.5 cup", byName["Flour"].Details)
	assert.Equal(t, "500 g", byName["Sugar"].Details)
	assert.Equal(t, "to taste", byName["Salt"].Details)
	assert.Equal(t, "to taste (from: Pancakes)\nto taste (from: Cake)\nto taste (from: Omelette)", byName["Salt"].Tooltip)
	assert.Equal(t, "3", byName["Eggs"].Details)

	assert.Equal(t, 1, f.recorder.malformed)
	assert.Equal(t, []string{grocery.DropInvalidQuantity}, f.recorder.dropped)
	assert.Equal(t, []string{"week"}, f.recorder.built)
	assert.Nil(t, list.Example)

	var titles []string
	for _, g := range list.Groups {
		titles = append(titles, g.Title)
	}
	assert.Equal(t, []string{"Dairy & Eggs", "Pantry"}, titles)
}

func TestGroceryListUnitSystem(t *testing.T) {
	f := newFixture(t, row("2024-05-06", "Soup", `[{"name":"Stock","quantity":1500,"unit":"ml"},{"name":"Beef","quantity":1,"unit":"lb"}]`))
	ctx := context.Background()

	_, err := f.app.SetUnitSystem(ctx, "u1", "metric")
	require.NoError(t, err)

	list, err := f.app.TodayList(ctx, "u1", day(t, "2024-05-06"))
	require.NoError(t, err)
	assert.Equal(t, grocery.Metric, list.System)
	assert.Equal(t, "453.6 g", list.Items[0].Details)
	assert.Equal(t, "1.5 L", list.Items[1].Details)

	_, err = f.app.SetUnitSystem(ctx, "u1", "cubits")
	assert.ErrorIs(t, err, grocery.ErrInvalidUnitSystem)

	override := NewApp(f.plans, f.profiles, f.kv, Options{UnitSystem: grocery.Imperial})
	defer override.Close()
	list, err = override.TodayList(ctx, "u1", day(t, "2024-05-06"))
	require.NoError(t, err)
	assert.Equal(t, "1 lb", list.Items[0].Details)
}

func TestGroceryListUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.plans.err = errors.New("connection refused")

	_, err := f.app.GroceryList(context.Background(), "u1", day(t, "2024-05-06"), day(t, "2024-05-12"))
	assert.ErrorIs(t, err, ErrPlansUnavailable)
	assert.Empty(t, f.recorder.built)
}

func TestManualItemsAndExample(t *testing.T) {
	f := newFixture(t, row("2024-05-06", "Snack", `[{"name":"Apples","quantity":3}]`))
	ctx := context.Background()

	empty, err := f.app.GroceryList(ctx, "u1", day(t, "2024-06-03"), day(t, "2024-06-09"))
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.NotEmpty(t, empty.Example)

	_, err = f.app.AddManualItem("u1", shoppinglist.ManualItemInput{Name: " "})
	assert.ErrorIs(t, err, shoppinglist.ErrItemNameRequired)

	soda, err := f.app.AddManualItem("u1", shoppinglist.ManualItemInput{Name: "Baking Soda", Quantity: "1", Unit: "box"})
	require.NoError(t, err)

	list, err := f.app.GroceryList(ctx, "u1", day(t, "2024-05-06"), day(t, "2024-05-12"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Apples", "Baking Soda"}, names(list.Items))
	assert.True(t, list.Items[1].Manual)
	assert.Equal(t, grocery.ManualGroupTitle, list.Groups[len(list.Groups)-1].Title)

	removed, err := f.app.RemoveManualItem("u1", soda.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, f.app.ClearManualItems("u1"))
}

func TestToggleSharedAcrossViews(t *testing.T) {
	f := newFixture(t, weekRows...)
	ctx := context.Background()

	week, err := f.app.GroceryList(ctx, "u1", day(t, "2024-05-06"), day(t, "2024-05-12"))
	require.NoError(t, err)
	today, err := f.app.TodayList(ctx, "u1", day(t, "2024-05-06"))
	require.NoError(t, err)

	var flour grocery.DisplayItem
	for _, it := range week.Items {
		if it.Name == "Flour" {
			flour = it
		}
	}
	require.Equal(t, "Flour", today.Items[0].Name)
	require.Equal(t, flour.Key, today.Items[0].Key)

	struck, err := f.app.Toggle("u1", flour.Key)
	require.NoError(t, err)
	assert.True(t, struck)

	today, err = f.app.TodayList(ctx, "u1", day(t, "2024-05-06"))
	require.NoError(t, err)
	assert.True(t, today.IsStruck(flour.Key))

	// Another user's list is unaffected.
	other, err := f.app.TodayList(ctx, "u2", day(t, "2024-05-06"))
	require.NoError(t, err)
	assert.False(t, other.IsStruck(flour.Key))

	require.NoError(t, f.app.ClearStruck("u1", grocery.ViewToday))
	week, err = f.app.GroceryList(ctx, "u1", day(t, "2024-05-06"), day(t, "2024-05-12"))
	require.NoError(t, err)
	assert.False(t, week.IsStruck(flour.Key))
	assert.Equal(t, []bool{true}, f.recorder.toggled)
}

func TestMealWise(t *testing.T) {
	f := newFixture(t, weekRows...)
	ctx := context.Background()

	list, err := f.app.MealWise(ctx, "u1", day(t, "2024-05-06"))
	require.NoError(t, err)
	require.Len(t, list.Sections, 1)
	assert.False(t, list.IsExample)
	assert.Equal(t, "Pancakes", list.Sections[0].MealName)

	key := list.Sections[0].Items[0].Key
	assert.Equal(t, "mealwise-today:Pancakes:flour:cup-0", key)
	_, err = f.app.Toggle("u1", key)
	require.NoError(t, err)

	list, err = f.app.MealWise(ctx, "u1", day(t, "2024-05-06"))
	require.NoError(t, err)
	assert.True(t, list.IsStruck(key))

	empty, err := f.app.MealWise(ctx, "u1", day(t, "2024-06-01"))
	require.NoError(t, err)
	assert.True(t, empty.IsExample)
}

func TestWatchFollowsShownItems(t *testing.T) {
	f := newFixture(t, weekRows...)
	ctx := context.Background()

	today, err := f.app.TodayList(ctx, "u1", day(t, "2024-05-06"))
	require.NoError(t, err)
	require.Equal(t, "Flour", today.Items[0].Name)

	calls := 0
	stop := f.app.Watch("u1", grocery.ViewToday, func() { calls++ })

	// Sugar is only on the week list, so today's watcher stays quiet.
	_, err = f.app.Toggle("u1", grocery.ItemKey("Sugar", "g", grocery.CategoryPantry, true))
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	_, err = f.app.Toggle("u1", today.Items[0].Key)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = f.app.AddManualItem("u1", shoppinglist.ManualItemInput{Name: "Foil"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	stop()
	_, err = f.app.Toggle("u1", today.Items[0].Key)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
