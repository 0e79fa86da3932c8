package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"bitepath/internal/grocery"
	"bitepath/internal/planner"
	"bitepath/internal/shoppinglist"
)

// ErrPlansUnavailable wraps failures of the meal-plan query. No list is built in that case.
var ErrPlansUnavailable = errors.New("meal plans unavailable")

// PlanSource returns a user's planned meals for a date range.
type PlanSource interface {
	ListPlannedMeals(ctx context.Context, userID string, from, to time.Time) ([]planner.PlannedMealRow, error)
}

// ProfileStore reads and writes the preferred display system.
type ProfileStore interface {
	PreferredUnitSystem(ctx context.Context, userID string) (grocery.UnitSystem, error)
	SetPreferredUnitSystem(ctx context.Context, userID string, system grocery.UnitSystem) error
}

// Recorder receives the operational counters.
type Recorder interface {
	grocery.Recorder
	ListBuilt(view string)
	Toggled(struck bool)
}

type nopRecorder struct{}

func (nopRecorder) MalformedBlob()       {}
func (nopRecorder) DroppedRecord(string) {}
func (nopRecorder) ListBuilt(string)     {}
func (nopRecorder) Toggled(bool)         {}

// ViewMealWise is the per-meal today list. It has its own keys and so its own strike view.
const ViewMealWise grocery.View = "mealwise"

// Options configures an App.
type Options struct {
	// UnitSystem overrides every profile preference when set.
	UnitSystem grocery.UnitSystem
	Recorder   Recorder
	Logger     *zap.Logger
}

// App wires the meal-plan query, the grocery pipeline and the persisted overlay together.
type App struct {
	plans    PlanSource
	profiles ProfileStore
	kv       shoppinglist.KV
	parser   *grocery.Parser
	recorder Recorder
	override grocery.UnitSystem
	log      *zap.Logger

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	struck *shoppinglist.StruckStore
	manual *shoppinglist.ManualStore
	views  map[grocery.View]*shoppinglist.View
}

// NewApp creates and initializes a new App instance.
func NewApp(plans PlanSource, profiles ProfileStore, kv shoppinglist.KV, opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &App{
		plans:    plans,
		profiles: profiles,
		kv:       kv,
		parser:   grocery.NewParser(log.Named("parser"), rec),
		recorder: rec,
		override: opts.UnitSystem,
		log:      log,
		users:    make(map[string]*userState),
	}
}

func (a *App) user(userID string) *userState {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[userID]
	if !ok {
		u = &userState{
			struck: shoppinglist.NewStruckStore(a.kv, userID, a.log),
			manual: shoppinglist.NewManualStore(a.kv, userID, a.log),
			views:  make(map[grocery.View]*shoppinglist.View),
		}
		a.users[userID] = u
	}
	return u
}

func (a *App) view(userID string, view grocery.View) *shoppinglist.View {
	u := a.user(userID)
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := u.views[view]
	if !ok {
		v = shoppinglist.NewView(u.struck)
		u.views[view] = v
	}
	return v
}

// Close releases every open list view.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.users {
		for _, v := range u.views {
			v.Close()
		}
	}
	a.users = make(map[string]*userState)
}

// UnitSystem resolves the display system: configured override, then profile, then imperial.
func (a *App) UnitSystem(ctx context.Context, userID string) (grocery.UnitSystem, error) {
	if a.override != "" {
		return a.override, nil
	}
	system, err := a.profiles.PreferredUnitSystem(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve unit system: %w", err)
	}
	if system == "" {
		return grocery.Imperial, nil
	}
	return system, nil
}

// SetUnitSystem stores the user's preferred display system.
func (a *App) SetUnitSystem(ctx context.Context, userID, system string) (grocery.UnitSystem, error) {
	s, err := grocery.ParseUnitSystem(system)
	if err != nil {
		return "", err
	}
	if err := a.profiles.SetPreferredUnitSystem(ctx, userID, s); err != nil {
		return "", err
	}
	return s, nil
}

func (a *App) plannedMeals(ctx context.Context, userID string, from, to time.Time) ([]grocery.PlannedMeal, error) {
	rows, err := a.plans.ListPlannedMeals(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlansUnavailable, err)
	}
	meals := make([]grocery.PlannedMeal, 0, len(rows))
	for _, row := range rows {
		meals = append(meals, grocery.PlannedMeal{
			MealName:    row.MealName,
			MealType:    row.MealType,
			PlanDate:    row.PlanDate,
			Ingredients: a.parser.Parse(row.MealName, row.Ingredients),
		})
	}
	return meals, nil
}

// GroceryList builds the aggregated list for every meal planned between from and to.
func (a *App) GroceryList(ctx context.Context, userID string, from, to time.Time) (*GroceryList, error) {
	return a.build(ctx, userID, planner.Day(from), planner.Day(to), grocery.ViewWeek)
}

// TodayList builds the aggregated list for a single day.
func (a *App) TodayList(ctx context.Context, userID string, day time.Time) (*GroceryList, error) {
	d := planner.Day(day)
	return a.build(ctx, userID, d, d, grocery.ViewToday)
}

func (a *App) build(ctx context.Context, userID string, from, to time.Time, view grocery.View) (*GroceryList, error) {
	meals, err := a.plannedMeals(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	system, err := a.UnitSystem(ctx, userID)
	if err != nil {
		return nil, err
	}

	aggs := grocery.Aggregate(meals)
	manual := a.user(userID).manual.List()
	items, err := grocery.BuildList(aggs, manual, grocery.FormatOptions{System: system, View: view, Grouped: true})
	if err != nil {
		return nil, err
	}

	v := a.view(userID, view)
	v.SetItems(grocery.Keys(items))

	list := &GroceryList{
		From:   from,
		To:     to,
		System: system,
		View:   view,
		Items:  items,
		Groups: grocery.GroupByCategory(items),
		Struck: toSet(v.Struck()),
	}
	if len(items) == 0 {
		list.Example = grocery.ExampleList()
	}

	a.recorder.ListBuilt(string(view))
	a.log.Debug("Grocery list built",
		zap.String("user", userID),
		zap.String("view", string(view)),
		zap.Int("meals", len(meals)),
		zap.Int("items", len(items)))
	return list, nil
}

// MealWise builds the per-meal list for a single day, followed by the manual items.
func (a *App) MealWise(ctx context.Context, userID string, day time.Time) (*MealWiseList, error) {
	d := planner.Day(day)
	meals, err := a.plannedMeals(ctx, userID, d, d)
	if err != nil {
		return nil, err
	}
	system, err := a.UnitSystem(ctx, userID)
	if err != nil {
		return nil, err
	}
	sections, err := grocery.MealWise(meals, system)
	if err != nil {
		return nil, err
	}

	var manual []grocery.DisplayItem
	for _, m := range a.user(userID).manual.List() {
		manual = append(manual, grocery.FormatManual(m, system))
	}

	var keys []string
	for _, s := range sections {
		keys = append(keys, grocery.Keys(s.Items)...)
	}
	keys = append(keys, grocery.Keys(manual)...)

	v := a.view(userID, ViewMealWise)
	v.SetItems(keys)

	list := &MealWiseList{
		Day:      d,
		System:   system,
		Sections: sections,
		Manual:   manual,
		Struck:   toSet(v.Struck()),
	}
	if len(sections) == 0 && len(manual) == 0 {
		list.Sections = grocery.ExampleList()
		list.IsExample = true
	}
	a.recorder.ListBuilt(string(ViewMealWise))
	return list, nil
}

// Watch calls fn whenever the struck items shown on the user's last built list of view change, or
// the manual items change, from this process or another one sharing the store. Build the list
// first so the view knows which keys it shows. The returned function stops watching.
func (a *App) Watch(userID string, view grocery.View, fn func()) func() {
	v := a.view(userID, view)
	v.OnChange(fn)
	stop := a.user(userID).manual.Subscribe(func([]grocery.ManualItem) { fn() })
	return func() {
		stop()
		v.OnChange(nil)
	}
}

// Toggle flips the struck state of an item key in the user's shared set.
func (a *App) Toggle(userID, key string) (bool, error) {
	struck, err := a.user(userID).struck.Toggle(key)
	if err != nil {
		return false, err
	}
	a.recorder.Toggled(struck)
	return struck, nil
}

// ClearStruck un-strikes every item of the most recently built list of the given view.
func (a *App) ClearStruck(userID string, view grocery.View) error {
	return a.view(userID, view).ClearStruck()
}

// AddManualItem appends a user-entered item to the user's manual list.
func (a *App) AddManualItem(userID string, in shoppinglist.ManualItemInput) (grocery.ManualItem, error) {
	item, err := a.user(userID).manual.Add(in)
	if err != nil {
		return grocery.ManualItem{}, err
	}
	a.log.Info("Manual item added", zap.String("user", userID), zap.String("id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// RemoveManualItem deletes one manual item and reports whether it existed.
func (a *App) RemoveManualItem(userID, id string) (bool, error) {
	return a.user(userID).manual.Remove(id)
}

// ClearManualItems deletes all of the user's manual items.
func (a *App) ClearManualItems(userID string) error {
	return a.user(userID).manual.Clear()
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
