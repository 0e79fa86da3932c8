package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bitepath/internal/app"
	"bitepath/internal/config"
	"bitepath/internal/grocery"
	"bitepath/internal/metrics"
	"bitepath/internal/planner"
	"bitepath/internal/shoppinglist"
)

// Sender is the subset of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is the grocery-list application the bot exposes.
type Service interface {
	GroceryList(ctx context.Context, userID string, from, to time.Time) (*app.GroceryList, error)
	TodayList(ctx context.Context, userID string, day time.Time) (*app.GroceryList, error)
	MealWise(ctx context.Context, userID string, day time.Time) (*app.MealWiseList, error)
	Toggle(userID, key string) (bool, error)
	ClearStruck(userID string, view grocery.View) error
	AddManualItem(userID string, in shoppinglist.ManualItemInput) (grocery.ManualItem, error)
	ClearManualItems(userID string) error
	UnitSystem(ctx context.Context, userID string) (grocery.UnitSystem, error)
	SetUnitSystem(ctx context.Context, userID, system string) (grocery.UnitSystem, error)
}

// Bot wraps the Telegram API and the grocery service.
type Bot struct {
	api Sender
	svc Service
	cfg *config.Config
	log *zap.Logger
	now func() time.Time
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, svc Service, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("Authorized on account", zap.String("username", api.Self.UserName))

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook for %s: %w", webhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Info("Webhook set", zap.String("response", resp.Description))

	return newBot(api, svc, cfg, log), nil
}

func newBot(api Sender, svc Service, cfg *config.Config, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{api: api, svc: svc, cfg: cfg, log: log, now: time.Now}
}

// RegisterHandlers registers the webhook, health and metrics endpoints on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux, metricsHandler http.Handler) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", b.handleHealth)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
}

func (b *Bot) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := metrics.GetSysHealth(b.cfg.DatabasePath, b.cfg.StateDir)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		b.log.Warn("Failed to write health response", zap.Error(err))
	}
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.log.Warn("Error parsing update", zap.Error(err))
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	b.dispatch(update)
}

func (b *Bot) dispatch(update tgbotapi.Update) {
	if q := update.CallbackQuery; q != nil {
		if q.From == nil || !b.cfg.IsTelegramUserAllowed(q.From.ID) {
			b.log.Warn("Unauthorized callback", zap.Int64("user_id", fromID(q.From)))
			return
		}
		go b.handleCallbackQuery(q)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.cfg.IsTelegramUserAllowed(msg.From.ID) {
		b.log.Warn("⚠️ Unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		return
	}
	go b.processMessage(msg)
}

func fromID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func userKey(u *tgbotapi.User) string {
	return strconv.FormatInt(u.ID, 10)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := userKey(msg.From)
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "grocery":
		ref := refWeek
		if strings.EqualFold(args, "next") {
			ref = refNextWeek
		}
		b.sendList(ctx, chatID, userID, ref)
	case "today":
		b.sendList(ctx, chatID, userID, refToday)
	case "meals":
		b.sendList(ctx, chatID, userID, refMeals)
	case "add":
		b.handleAdd(chatID, userID, args)
	case "units":
		b.handleUnits(ctx, chatID, userID, args)
	case "clear":
		b.handleClear(ctx, chatID, userID, args)
	case "clearadded":
		if err := b.svc.ClearManualItems(userID); err != nil {
			b.replyError(chatID, "Could not clear added items", err)
			return
		}
		b.reply(chatID, esc("🧹 Removed every hand-added item."))
	case "status":
		b.handleStatusCommand(chatID)
	default:
		b.reply(chatID, helpText())
	}
}

// load builds the list behind ref and returns it rendered, together with its items in
// keyboard order.
func (b *Bot) load(ctx context.Context, userID, ref string) (listMessage, []grocery.DisplayItem, error) {
	now := b.now()
	switch ref {
	case refToday:
		list, err := b.svc.TodayList(ctx, userID, now)
		if err != nil {
			return listMessage{}, nil, err
		}
		return renderGroceryList(list, ref), list.Items, nil
	case refMeals:
		list, err := b.svc.MealWise(ctx, userID, now)
		if err != nil {
			return listMessage{}, nil, err
		}
		if list.IsExample {
			return renderMealWise(list), nil, nil
		}
		return renderMealWise(list), list.All(), nil
	case refNextWeek:
		now = planner.NextMonday(now)
	}
	list, err := b.svc.GroceryList(ctx, userID, planner.WeekStart(now), planner.WeekEnd(now))
	if err != nil {
		return listMessage{}, nil, err
	}
	return renderGroceryList(list, ref), list.Items, nil
}

func viewOf(ref string) grocery.View {
	switch ref {
	case refToday:
		return grocery.ViewToday
	case refMeals:
		return app.ViewMealWise
	}
	return grocery.ViewWeek
}

func (b *Bot) sendList(ctx context.Context, chatID int64, userID, ref string) {
	rendered, _, err := b.load(ctx, userID, ref)
	if err != nil {
		b.replyError(chatID, "Could not build the grocery list", err)
		return
	}
	msg := tgbotapi.NewMessage(chatID, rendered.Text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if rendered.Keyboard != nil {
		msg.ReplyMarkup = rendered.Keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("Failed to send list", zap.String("ref", ref), zap.Error(err))
	}
}

func (b *Bot) handleAdd(chatID int64, userID, args string) {
	name, qty, unit := parseAddArgs(args)
	item, err := b.svc.AddManualItem(userID, shoppinglist.ManualItemInput{Name: name, Quantity: qty, Unit: unit})
	if errors.Is(err, shoppinglist.ErrItemNameRequired) {
		b.reply(chatID, esc("Usage: /add <name> [qty] [unit]"))
		return
	}
	if err != nil {
		b.replyError(chatID, "Could not add item", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Added *%s*", esc(item.Name)))
}

func (b *Bot) handleUnits(ctx context.Context, chatID int64, userID, args string) {
	if args == "" {
		system, err := b.svc.UnitSystem(ctx, userID)
		if err != nil {
			b.replyError(chatID, "Could not read unit preference", err)
			return
		}
		b.reply(chatID, fmt.Sprintf("📏 Showing amounts in *%s* units\\.", esc(string(system))))
		return
	}
	system, err := b.svc.SetUnitSystem(ctx, userID, strings.ToLower(args))
	if errors.Is(err, grocery.ErrInvalidUnitSystem) {
		b.reply(chatID, esc("Usage: /units imperial|metric"))
		return
	}
	if err != nil {
		b.replyError(chatID, "Could not save unit preference", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("📏 Switched to *%s* units\\.", esc(string(system))))
}

func (b *Bot) handleClear(ctx context.Context, chatID int64, userID, args string) {
	ref := refWeek
	switch strings.ToLower(args) {
	case "today":
		ref = refToday
	case "next":
		ref = refNextWeek
	case "meals":
		ref = refMeals
	}
	if err := b.clear(ctx, userID, ref); err != nil {
		b.replyError(chatID, "Could not clear checked items", err)
		return
	}
	b.reply(chatID, esc("🧹 Every item on that list is unchecked."))
}

// clear rebuilds the list first so the view's visible keys are the ones being cleared.
func (b *Bot) clear(ctx context.Context, userID, ref string) error {
	if _, _, err := b.load(ctx, userID, ref); err != nil {
		return err
	}
	return b.svc.ClearStruck(userID, viewOf(ref))
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	userID := userKey(query.From)

	cb, err := parseCallback(query.Data)
	if err != nil {
		b.log.Warn("Ignoring callback", zap.String("data", query.Data), zap.Error(err))
		b.answer(query.ID, "")
		return
	}

	notice := ""
	switch cb.Action {
	case "t":
		_, items, err := b.load(ctx, userID, cb.Ref)
		if err != nil {
			b.log.Error("Failed to load list for toggle", zap.Error(err))
			b.answer(query.ID, "Could not load the list")
			return
		}
		// The list may have changed since the keyboard was sent.
		if cb.Index >= len(items) {
			b.answer(query.ID, "That list changed, showing the latest")
			break
		}
		item := items[cb.Index]
		struck, err := b.svc.Toggle(userID, item.Key)
		if err != nil {
			b.log.Error("Failed to toggle item", zap.String("key", item.Key), zap.Error(err))
			b.answer(query.ID, "Could not update the item")
			return
		}
		notice = "Unchecked " + item.Name
		if struck {
			notice = "Checked off " + item.Name
		}
	case "c":
		if err := b.clear(ctx, userID, cb.Ref); err != nil {
			b.log.Error("Failed to clear struck items", zap.Error(err))
			b.answer(query.ID, "Could not clear the list")
			return
		}
		notice = "Cleared"
	}
	if notice != "" {
		b.answer(query.ID, notice)
	}

	if query.Message == nil {
		return
	}
	rendered, _, err := b.load(ctx, userID, cb.Ref)
	if err != nil {
		b.log.Error("Failed to reload list", zap.Error(err))
		return
	}
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, rendered.Text)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.ReplyMarkup = rendered.Keyboard
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("Failed to edit list message", zap.Error(err))
	}
}

func (b *Bot) answer(queryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		b.log.Warn("Failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) handleStatusCommand(chatID int64) {
	health := metrics.GetSysHealth(b.cfg.DatabasePath, b.cfg.StateDir)

	var sb strings.Builder
	sb.WriteString("📊 *Health Report*\n\n")
	sb.WriteString(esc(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)", health.AllocMB, health.SysMB)) + "\n")
	sb.WriteString(esc(fmt.Sprintf("• GC cycles: %d", health.NumGC)) + "\n")
	sb.WriteString(esc(fmt.Sprintf("• Goroutines: %d", health.Goroutines)) + "\n")
	sb.WriteString(esc(fmt.Sprintf("• Database: %s", health.DatabaseSize)) + "\n")
	sb.WriteString(esc(fmt.Sprintf("• List state: %s", health.StateSize)) + "\n")
	b.reply(chatID, sb.String())
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("Failed to send reply", zap.Error(err))
	}
}

func (b *Bot) replyError(chatID int64, what string, err error) {
	b.log.Error(what, zap.Error(err))
	text := "❌ " + what + "."
	if errors.Is(err, app.ErrPlansUnavailable) {
		text = "❌ Meal plans are unavailable right now, try again later."
	}
	b.reply(chatID, esc(text))
}
