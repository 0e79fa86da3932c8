package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitepath/internal/app"
	"bitepath/internal/config"
	"bitepath/internal/grocery"
	"bitepath/internal/planner"
	"bitepath/internal/storage"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	switch m := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	}
	t.Fatalf("unexpected chattable %T", f.sent[len(f.sent)-1])
	return ""
}

type stubPlans struct {
	rows []planner.PlannedMealRow
}

func (s stubPlans) ListPlannedMeals(_ context.Context, _ string, from, to time.Time) ([]planner.PlannedMealRow, error) {
	var out []planner.PlannedMealRow
	for _, r := range s.rows {
		if r.PlanDate >= planner.FormatDate(from) && r.PlanDate <= planner.FormatDate(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubProfiles struct {
	mu      sync.Mutex
	systems map[string]grocery.UnitSystem
}

func (s *stubProfiles) PreferredUnitSystem(_ context.Context, userID string) (grocery.UnitSystem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systems[userID], nil
}

func (s *stubProfiles) SetPreferredUnitSystem(_ context.Context, userID string, system grocery.UnitSystem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems[userID] = system
	return nil
}

func ingredients(s string) *string { return &s }

func newTestBot(t *testing.T, allowed ...int64) (*Bot, *fakeSender, *app.App) {
	t.Helper()
	kv, err := storage.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	plans := stubPlans{rows: []planner.PlannedMealRow{
		{PlanDate: "2024-05-06", MealType: "dinner", MealName: "Pancakes",
			Ingredients: ingredients(`[{"name":"Flour","quantity":1,"unit":"cup"},{"name":"Milk","quantity":250,"unit":"ml"}]`)},
		{PlanDate: "2024-05-08", MealType: "lunch", MealName: "Muffins",
			Ingredients: ingredients(`[{"name":"Flour","quantity":0.5,"unit":"cup"},{"name":"Salt","description":"to taste"}]`)},
	}}
	svc := app.NewApp(plans, &stubProfiles{systems: map[string]grocery.UnitSystem{}}, kv, app.Options{})
	t.Cleanup(svc.Close)

	sender := &fakeSender{}
	cfg := &config.Config{DatabasePath: "missing.db", StateDir: t.TempDir(), TelegramAllowedUserIDs: allowed}
	b := newBot(sender, svc, cfg, nil)
	b.now = func() time.Time { return time.Date(2024, 5, 8, 9, 30, 0, 0, time.Local) }
	return b, sender, svc
}

func command(from int64, text string) *tgbotapi.Message {
	n := strings.IndexByte(text, ' ')
	if n < 0 {
		n = len(text)
	}
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data    string
		want    callback
		wantErr bool
	}{
		{"t|3|w", callback{Action: "t", Index: 3, Ref: "w"}, false},
		{"t|0|m", callback{Action: "t", Index: 0, Ref: "m"}, false},
		{"c|t", callback{Action: "c", Ref: "t"}, false},
		{"t|-1|w", callback{}, true},
		{"t|x|w", callback{}, true},
		{"t|1|q", callback{}, true},
		{"redo|something", callback{}, true},
		{"", callback{}, true},
	}
	for _, tt := range tests {
		got, err := parseCallback(tt.data)
		if tt.wantErr {
			assert.Error(t, err, tt.data)
			continue
		}
		require.NoError(t, err, tt.data)
		assert.Equal(t, tt.want, got, tt.data)
	}
}

func TestParseAddArgs(t *testing.T) {
	tests := []struct {
		args, name, qty, unit string
	}{
		{"Foil", "Foil", "", ""},
		{"Baking Soda 1 box", "Baking Soda", "1", "box"},
		{"Olive Oil .5 fl oz", "Olive Oil", ".5", "fl oz"},
		{"7up 2", "7up", "2", ""},
		{"  ", "", "", ""},
	}
	for _, tt := range tests {
		name, qty, unit := parseAddArgs(tt.args)
		assert.Equal(t, []string{tt.name, tt.qty, tt.unit}, []string{name, qty, unit}, tt.args)
	}
}

func TestRenderGroceryList(t *testing.T) {
	flour := grocery.DisplayItem{Name: "Flour", Details: "1 cup + 0.5 cup", Category: grocery.CategoryPantry, Key: "item:flour:cup:pantry"}
	salt := grocery.DisplayItem{Name: "Salt", Details: "to taste", Muted: true, Category: grocery.CategoryPantry, Key: "item:salt::pantry"}
	items := []grocery.DisplayItem{flour, salt}
	list := &app.GroceryList{
		From:   time.Date(2024, 5, 6, 0, 0, 0, 0, time.Local),
		To:     time.Date(2024, 5, 12, 0, 0, 0, 0, time.Local),
		System: grocery.Imperial,
		View:   grocery.ViewWeek,
		Items:  items,
		Groups: grocery.GroupByCategory(items),
		Struck: map[string]bool{flour.Key: true},
	}

	msg := renderGroceryList(list, refWeek)
	assert.Contains(t, msg.Text, `2024\-05\-06 to 2024\-05\-12`)
	assert.Contains(t, msg.Text, "*Pantry*")
	assert.Contains(t, msg.Text, `• ~Flour: 1 cup \+ 0\.5 cup~`)
	assert.Contains(t, msg.Text, "• Salt: _to taste_")

	require.NotNil(t, msg.Keyboard)
	rows := msg.Keyboard.InlineKeyboard
	require.Len(t, rows, 2)
	assert.Equal(t, "✅ Flour", rows[0][0].Text)
	assert.Equal(t, "t|0|w", *rows[0][0].CallbackData)
	assert.Equal(t, "⬜ Salt", rows[0][1].Text)
	assert.Equal(t, "c|w", *rows[1][0].CallbackData)
}

func TestRenderEmptyListShowsExample(t *testing.T) {
	list := &app.GroceryList{System: grocery.Metric, View: grocery.ViewToday, Example: grocery.ExampleList()}
	msg := renderGroceryList(list, refToday)
	assert.Nil(t, msg.Keyboard)
	assert.Contains(t, msg.Text, "Nothing planned yet")
	assert.Contains(t, msg.Text, "_metric_")
}

func TestGroceryCommandAndToggle(t *testing.T) {
	b, sender, svc := newTestBot(t)
	ctx := context.Background()

	b.processMessage(command(42, "/grocery"))
	text := sender.lastText(t)
	assert.Contains(t, text, `Flour: 1 cup \+ 0\.5 cup`)
	assert.Contains(t, text, "Milk: 250 ml")

	b.handleCallbackQuery(&tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 42}},
		Data:    "t|0|w",
	})
	assert.Contains(t, sender.lastText(t), "~Flour")

	week := b.now()
	list, err := svc.GroceryList(ctx, "42", planner.WeekStart(week), planner.WeekEnd(week))
	require.NoError(t, err)
	assert.True(t, list.IsStruck(list.Items[0].Key))

	// Today shares the strike because its keys match the week's.
	b.processMessage(command(42, "/today"))
	assert.Contains(t, sender.lastText(t), "~Flour: 0\\.5 cup~")

	b.handleCallbackQuery(&tgbotapi.CallbackQuery{
		ID:   "q2",
		From: &tgbotapi.User{ID: 42},
		Data: "c|t",
	})
	list, err = svc.GroceryList(ctx, "42", planner.WeekStart(week), planner.WeekEnd(week))
	require.NoError(t, err)
	assert.Empty(t, list.Struck)
	assert.Len(t, sender.requests, 2)
}

func TestStaleToggleIndex(t *testing.T) {
	b, sender, _ := newTestBot(t)
	b.handleCallbackQuery(&tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 7}},
		Data:    "t|99|w",
	})
	require.Len(t, sender.requests, 1)
	assert.NotContains(t, sender.lastText(t), "~")
}

func TestAddAndUnitsCommands(t *testing.T) {
	b, sender, _ := newTestBot(t)

	b.processMessage(command(5, "/add"))
	assert.Contains(t, sender.lastText(t), "Usage")

	b.processMessage(command(5, "/add Baking Soda 1 box"))
	assert.Contains(t, sender.lastText(t), "Added *Baking Soda*")

	b.processMessage(command(5, "/units cubits"))
	assert.Contains(t, sender.lastText(t), "Usage")

	b.processMessage(command(5, "/units Metric"))
	assert.Contains(t, sender.lastText(t), "*metric*")

	b.processMessage(command(5, "/grocery"))
	text := sender.lastText(t)
	assert.Contains(t, text, "_metric_")
	assert.Contains(t, text, "*Manually Added Items*")
	assert.Contains(t, text, "Baking Soda: 1 box")

	b.processMessage(command(5, "/clearadded"))
	b.processMessage(command(5, "/grocery"))
	assert.NotContains(t, sender.lastText(t), "Baking Soda")
}

func TestMealsCommand(t *testing.T) {
	b, sender, _ := newTestBot(t)
	b.processMessage(command(3, "/meals"))
	text := sender.lastText(t)
	assert.Contains(t, text, "*Muffins*")
	assert.Contains(t, text, "Salt: _to taste_")
}

func TestHelpAndStatus(t *testing.T) {
	b, sender, _ := newTestBot(t)
	b.processMessage(command(3, "/start"))
	assert.Contains(t, sender.lastText(t), `/grocery next \- next week's list`)

	b.processMessage(command(3, "/status"))
	assert.Contains(t, sender.lastText(t), "Health Report")
}

func TestWebhookRejectsUnknownUsers(t *testing.T) {
	b, sender, _ := newTestBot(t, 1)
	mux := http.NewServeMux()
	b.RegisterHandlers(mux, nil)

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":2},"chat":{"id":2},"text":"/grocery","entities":[{"type":"bot_command","offset":0,"length":8}]}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Never(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	b, _, _ := newTestBot(t)
	mux := http.NewServeMux()
	b.RegisterHandlers(mux, http.NotFoundHandler())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database_size":"0 B"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
