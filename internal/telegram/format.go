package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bitepath/internal/app"
	"bitepath/internal/grocery"
	"bitepath/internal/planner"
)

// List references carried in callback data. Callback data is limited to 64 bytes.
const (
	refWeek     = "w"
	refNextWeek = "n"
	refToday    = "t"
	refMeals    = "m"
)

// maxButtons keeps the keyboard under Telegram's 100 button limit, leaving room for the footer row.
const maxButtons = 90

// listMessage is a rendered list together with its toggle keyboard.
type listMessage struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

func itemLine(it grocery.DisplayItem, struck bool) string {
	line := esc(it.Name)
	if it.Details != "" {
		details := esc(it.Details)
		if it.Muted {
			details = "_" + details + "_"
		}
		line += ": " + details
	}
	if struck {
		return "• ~" + line + "~"
	}
	return "• " + line
}

func renderExample(sb *strings.Builder, sections []grocery.MealSection) {
	sb.WriteString(esc("Nothing planned yet. Here is what a list looks like:") + "\n")
	for _, s := range sections {
		sb.WriteString("\n*" + esc(s.MealName) + "*\n")
		for _, it := range s.Items {
			sb.WriteString(itemLine(it, false) + "\n")
		}
	}
}

// renderGroceryList formats a week or today list grouped by category.
func renderGroceryList(list *app.GroceryList, ref string) listMessage {
	var sb strings.Builder
	if list.View == grocery.ViewToday {
		sb.WriteString(fmt.Sprintf("🛒 *Today* %s", esc(planner.FormatDate(list.From))))
	} else {
		sb.WriteString(fmt.Sprintf("🛒 *Grocery list* %s", esc(planner.FormatDate(list.From)+" to "+planner.FormatDate(list.To))))
	}
	sb.WriteString(fmt.Sprintf(" _%s_\n", esc(string(list.System))))

	if len(list.Items) == 0 {
		sb.WriteString("\n")
		renderExample(&sb, list.Example)
		return listMessage{Text: sb.String()}
	}

	for _, g := range list.Groups {
		sb.WriteString("\n*" + esc(g.Title) + "*\n")
		for _, it := range g.Items {
			sb.WriteString(itemLine(it, list.IsStruck(it.Key)) + "\n")
		}
	}
	return listMessage{Text: sb.String(), Keyboard: toggleKeyboard(list.Items, list.Struck, ref)}
}

// renderMealWise formats today's list one meal at a time, manual items last.
func renderMealWise(list *app.MealWiseList) listMessage {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *Meals* %s _%s_\n", esc(planner.FormatDate(list.Day)), esc(string(list.System))))

	if list.IsExample {
		sb.WriteString("\n")
		renderExample(&sb, list.Sections)
		return listMessage{Text: sb.String()}
	}

	for _, s := range list.Sections {
		sb.WriteString("\n*" + esc(s.MealName) + "*\n")
		for _, it := range s.Items {
			sb.WriteString(itemLine(it, list.IsStruck(it.Key)) + "\n")
		}
	}
	if len(list.Manual) > 0 {
		sb.WriteString("\n*" + esc(grocery.ManualGroupTitle) + "*\n")
		for _, it := range list.Manual {
			sb.WriteString(itemLine(it, list.IsStruck(it.Key)) + "\n")
		}
	}
	return listMessage{Text: sb.String(), Keyboard: toggleKeyboard(list.All(), list.Struck, refMeals)}
}

// toggleKeyboard builds one button per item, two per row, and a footer to clear checked items.
func toggleKeyboard(items []grocery.DisplayItem, struck map[string]bool, ref string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, it := range items {
		if i == maxButtons {
			break
		}
		label := "⬜ " + it.Name
		if struck[it.Key] {
			label = "✅ " + it.Name
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, toggleData(i, ref)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🧹 Clear checked", "c|"+ref),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func toggleData(index int, ref string) string {
	return fmt.Sprintf("t|%d|%s", index, ref)
}

type callback struct {
	Action string
	Index  int
	Ref    string
}

// parseCallback decodes "t|<index>|<ref>" and "c|<ref>".
func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, "|")
	switch {
	case len(parts) == 3 && parts[0] == "t":
		i, err := strconv.Atoi(parts[1])
		if err != nil || i < 0 {
			return callback{}, fmt.Errorf("invalid item index %q", parts[1])
		}
		if !validRef(parts[2]) {
			return callback{}, fmt.Errorf("unknown list %q", parts[2])
		}
		return callback{Action: "t", Index: i, Ref: parts[2]}, nil
	case len(parts) == 2 && parts[0] == "c":
		if !validRef(parts[1]) {
			return callback{}, fmt.Errorf("unknown list %q", parts[1])
		}
		return callback{Action: "c", Ref: parts[1]}, nil
	}
	return callback{}, fmt.Errorf("unrecognized callback %q", data)
}

func validRef(ref string) bool {
	switch ref {
	case refWeek, refNextWeek, refToday, refMeals:
		return true
	}
	return false
}

// parseAddArgs splits "<name> [qty] [unit]". The first token that starts like a number begins
// the quantity; everything after it is the unit.
func parseAddArgs(args string) (name, qty, unit string) {
	fields := strings.Fields(args)
	for i, f := range fields {
		if i > 0 && startsNumeric(f) {
			return strings.Join(fields[:i], " "), f, strings.Join(fields[i+1:], " ")
		}
	}
	return strings.Join(fields, " "), "", ""
}

func startsNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if c == '.' && len(s) > 1 {
		c = s[1]
	}
	return c >= '0' && c <= '9'
}

const helpBody = `/grocery - this week's list
/grocery next - next week's list
/today - today's list
/meals - today's list by meal
/add <name> [qty] [unit] - add an item by hand
/units [imperial|metric] - show or set display units
/clear [today|next|meals] - uncheck every item of a list
/clearadded - remove every hand-added item
/status - health report`

func helpText() string {
	return "🛒 *Bitepath grocery list*\n\n" + esc(helpBody)
}
