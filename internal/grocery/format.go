package grocery

import (
	"fmt"
	"strings"
)

// View selects which list variant is being rendered.
type View string

const (
	ViewWeek  View = "week"
	ViewToday View = "today"
)

// DisplayItem is one printable grocery-list line.
type DisplayItem struct {
	Name     string
	Details  string
	Muted    bool
	Category Category
	// Key identifies the line for strike-state; it is stable for the same name, unit and category.
	Key     string
	Tooltip string
	Manual  bool
}

// FormatOptions controls rendering of aggregated buckets.
type FormatOptions struct {
	System UnitSystem
	View   View
	// Grouped views carry the category in item keys.
	Grouped bool
}

func (o FormatOptions) joiner() string {
	if o.View == ViewToday {
		return "; "
	}
	return " + "
}

var noPlural = map[string]bool{
	"l": true, "ml": true, "g": true, "kg": true, "mg": true, "oz": true, "fl oz": true,
	"tsp": true, "tbsp": true,
}

var yExceptions = map[string]bool{
	"day": true, "key": true, "way": true, "toy": true, "boy": true, "guy": true,
}

// Pluralize returns the unit word to print next to a rounded quantity. Only amounts above one
// are pluralized, so "0.5 cup" stays singular.
func Pluralize(unit string, qty float64) string {
	lower := strings.ToLower(unit)
	if qty <= 1 || lower == "" || noPlural[lower] || strings.HasSuffix(lower, "s") {
		return unit
	}
	if strings.HasSuffix(lower, "y") && len(lower) > 1 && !yExceptions[lower] {
		return unit[:len(unit)-1] + "ies"
	}
	if strings.HasSuffix(lower, "ch") || strings.HasSuffix(lower, "sh") || strings.HasSuffix(lower, "x") {
		return unit + "es"
	}
	return unit + "s"
}

func displayUnitName(unit string) string {
	if unit == "fl-oz" {
		return "fl oz"
	}
	return unit
}

// targetSystem keeps metric-recorded amounts metric when the user reads imperial.
func targetSystem(display, recorded UnitSystem) UnitSystem {
	if display == Imperial && recorded == Metric {
		return Metric
	}
	return display
}

// renderAmount formats a positive amount in the unit it was recorded or summed in.
func renderAmount(value float64, unit string, display, recorded UnitSystem) (string, bool, error) {
	class := ClassifyUnit(unit)
	shownValue, shownUnit := value, strings.TrimSpace(unit)

	if class.Measurable() {
		q, err := Convert(value, unit, targetSystem(display, recorded))
		if err != nil {
			return "", false, err
		}
		if q != nil {
			shownValue, shownUnit = q.Value, displayUnitName(q.Unit)
		}
	}
	muted := class.Category == UnitSpice

	r := RoundForDisplay(shownValue)
	switch {
	case r <= 0:
		if class.Category == UnitUnitless {
			return "", muted, nil
		}
		return shownUnit, muted, nil
	case class.Category == UnitPiece, class.Category == UnitUnitless:
		return formatNumber(r), muted, nil
	}
	return formatNumber(r) + " " + Pluralize(shownUnit, r), muted, nil
}

func renderOccurrence(o Occurrence, display UnitSystem) (string, bool, error) {
	ing := Ingredient{Quantity: o.Quantity, Unit: o.Unit, Description: o.Description}
	if ing.IsToTaste() {
		return bucketToTaste, true, nil
	}
	if o.Quantity == nil || *o.Quantity <= 0 {
		class := ClassifyUnit(o.Unit)
		return strings.TrimSpace(o.Unit), class.Category == UnitSpice, nil
	}
	recorded, _ := unitSystemOf(o.Unit)
	return renderAmount(*o.Quantity, o.Unit, display, recorded)
}

func occurrenceTooltip(o Occurrence) string {
	var parts []string
	if o.Quantity != nil {
		parts = append(parts, formatNumber(*o.Quantity))
	}
	if u := strings.TrimSpace(o.Unit); u != "" {
		parts = append(parts, u)
	}
	if d := strings.TrimSpace(o.Description); d != "" {
		parts = append(parts, d)
	}
	parts = append(parts, fmt.Sprintf("(from: %s)", o.MealName))
	return strings.Join(parts, " ")
}

// ItemKey builds the strike-state identity of an aggregated line.
func ItemKey(name, unit string, category Category, grouped bool) string {
	key := "item:" + normalizeName(name) + ":" + strings.ToLower(strings.TrimSpace(unit))
	if grouped {
		key += ":" + strings.ToLower(string(category))
	}
	return key
}

// Format renders an aggregated bucket. It only fails on an unknown unit system.
func Format(item AggregatedIngredient, opts FormatOptions) (DisplayItem, error) {
	if opts.System != Imperial && opts.System != Metric {
		return DisplayItem{}, fmt.Errorf("format %q: %w", item.DisplayName, ErrInvalidUnitSystem)
	}

	category := Categorize(item.DisplayName)
	out := DisplayItem{
		Name:     item.DisplayName,
		Category: category,
		Key:      ItemKey(item.DisplayName, item.BaseUnit, category, opts.Grouped),
	}

	tips := make([]string, 0, len(item.Occurrences))
	for _, o := range item.Occurrences {
		tips = append(tips, occurrenceTooltip(o))
	}
	out.Tooltip = strings.Join(tips, "\n")

	switch {
	case item.IsToTaste():
		out.Details, out.Muted = bucketToTaste, true
	case item.Summable && item.TotalQuantity > 0:
		unit := item.BaseUnit
		if item.Kind == UnitUnitless {
			unit = ""
		}
		text, muted, err := renderAmount(item.TotalQuantity, unit, opts.System, item.SourceSystem)
		if err != nil {
			return DisplayItem{}, err
		}
		out.Details, out.Muted = text, muted
	default:
		var parts []string
		allMuted := true
		for _, o := range item.Occurrences {
			text, muted, err := renderOccurrence(o, opts.System)
			if err != nil {
				return DisplayItem{}, err
			}
			if text == "" {
				continue
			}
			allMuted = allMuted && muted
			parts = append(parts, text)
		}
		out.Details = strings.Join(parts, opts.joiner())
		out.Muted = len(parts) > 0 && allMuted
	}
	return out, nil
}
