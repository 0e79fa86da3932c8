package grocery

import (
	"sort"
	"strings"
)

// ManualItem is an ad hoc entry typed in by the user. It is never aggregated.
type ManualItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

// Key is the strike-state identity of a manual item.
func (m ManualItem) Key() string {
	return "manual:" + m.ID
}

const manualTooltip = "Manually added item"

// FormatManual renders a manual item with the same unit rules as parsed ingredients.
func FormatManual(m ManualItem, system UnitSystem) DisplayItem {
	out := DisplayItem{
		Name:     m.Name,
		Category: Categorize(m.Name),
		Key:      m.Key(),
		Tooltip:  manualTooltip,
		Manual:   true,
	}

	var qty float64
	if q, err := parseQuantityText(m.Quantity); err == nil && q != nil {
		qty = *q
	}
	unit := strings.TrimSpace(m.Unit)
	if qty <= 0 {
		out.Details = unit
		return out
	}
	recorded, _ := unitSystemOf(unit)
	text, muted, err := renderAmount(qty, unit, system, recorded)
	if err != nil {
		// Only reachable with an invalid system; fall back to the raw input.
		out.Details = strings.TrimSpace(m.Quantity + " " + unit)
		return out
	}
	out.Details, out.Muted = text, muted
	return out
}

// BuildList formats every bucket, sorts them by case-insensitive name and appends manual items
// in insertion order.
func BuildList(aggs []AggregatedIngredient, manual []ManualItem, opts FormatOptions) ([]DisplayItem, error) {
	items := make([]DisplayItem, 0, len(aggs)+len(manual))
	for _, a := range aggs {
		it, err := Format(a, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool {
		ni, nj := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if ni != nj {
			return ni < nj
		}
		return items[i].Key < items[j].Key
	})

	for _, m := range manual {
		items = append(items, FormatManual(m, opts.System))
	}
	return items, nil
}

// Group is a titled section of a grouped list.
type Group struct {
	Title string
	Items []DisplayItem
}

// ManualGroupTitle heads the section of user-added items.
const ManualGroupTitle = "Manually Added Items"

// GroupByCategory splits a display list into category sections in fixed order, followed by the
// manual items. Empty sections are omitted.
func GroupByCategory(items []DisplayItem) []Group {
	byCategory := make(map[Category][]DisplayItem)
	var manual []DisplayItem
	for _, it := range items {
		if it.Manual {
			manual = append(manual, it)
			continue
		}
		byCategory[it.Category] = append(byCategory[it.Category], it)
	}

	var groups []Group
	for _, c := range Categories {
		if len(byCategory[c]) == 0 {
			continue
		}
		groups = append(groups, Group{Title: string(c), Items: byCategory[c]})
	}
	if len(manual) > 0 {
		groups = append(groups, Group{Title: ManualGroupTitle, Items: manual})
	}
	return groups
}

// Keys returns the strike-state keys of a display list.
func Keys(items []DisplayItem) []string {
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	return keys
}
