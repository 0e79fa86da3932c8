package grocery

import "strings"

// Occurrence is one contributing ingredient line, kept for tooltips and non-summable rendering.
type Occurrence struct {
	MealName    string
	Quantity    *float64
	Unit        string
	Description string
}

// AggregatedIngredient is the accumulator for one (normalized name, base unit) bucket.
type AggregatedIngredient struct {
	DisplayName string
	// BaseUnit is "g" or "ml" for converted measures, a canonical piece/spice/discrete token,
	// "to taste" or "unitless".
	BaseUnit string
	Kind     UnitCategory
	// TotalQuantity is only meaningful while Summable is true.
	TotalQuantity float64
	Summable      bool
	// SourceSystem is Metric only while every measured occurrence was recorded in metric units,
	// so the bucket's display does not depend on occurrence order. Empty for non-measures.
	SourceSystem UnitSystem
	Occurrences  []Occurrence
}

// IsToTaste reports whether the bucket holds amount-less ingredients.
func (a AggregatedIngredient) IsToTaste() bool {
	return a.BaseUnit == bucketToTaste
}

type bucketKey struct {
	name string
	unit string
}

type keyedOccurrence struct {
	key      bucketKey
	kind     UnitCategory
	value    float64
	summable bool
	system   UnitSystem
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// keyFor derives the bucket an ingredient falls into and whether it may be summed.
func keyFor(ing Ingredient) keyedOccurrence {
	name := normalizeName(ing.Name)
	class := ClassifyUnit(ing.Unit)
	hasQty := ing.Quantity != nil && *ing.Quantity > 0

	if ing.IsToTaste() {
		return keyedOccurrence{key: bucketKey{name, bucketToTaste}, kind: UnitToTaste}
	}
	if hasQty && class.Measurable() {
		if base, unit, ok := toBase(*ing.Quantity, ing.Unit); ok {
			system, _ := unitSystemOf(ing.Unit)
			return keyedOccurrence{
				key:      bucketKey{name, unit},
				kind:     class.Category,
				value:    base,
				summable: summableClass(class),
				system:   system,
			}
		}
	}

	unit, summable := class.Canonical, hasQty && summableClass(class)
	if _, def, ok := resolveMeasure(ing.Unit); ok && class.Measurable() {
		// Amount-less measures join the summed bucket whatever their spelling, and poison it.
		_, unit = def.base()
		summable = false
	}
	occ := keyedOccurrence{
		key:      bucketKey{name, unit},
		kind:     class.Category,
		summable: summable,
	}
	if hasQty {
		occ.value = *ing.Quantity
	}
	return occ
}

// Aggregate merges every ingredient of every meal into one entry per (normalized name, base unit).
// Mass and volume are summed in grams and milliliters. Once a bucket receives an occurrence it
// cannot add up, it stays non-summable for the rest of the run and renders per occurrence.
// Buckets are returned in first-seen order.
func Aggregate(meals []PlannedMeal) []AggregatedIngredient {
	index := make(map[bucketKey]int)
	var out []AggregatedIngredient

	for _, meal := range meals {
		for _, ing := range meal.Ingredients {
			if strings.TrimSpace(ing.Name) == "" {
				continue
			}
			k := keyFor(ing)
			occ := Occurrence{
				MealName:    meal.MealName,
				Quantity:    ing.Quantity,
				Unit:        ing.Unit,
				Description: ing.Description,
			}

			i, ok := index[k.key]
			if !ok {
				index[k.key] = len(out)
				out = append(out, AggregatedIngredient{
					DisplayName:   strings.TrimSpace(ing.Name),
					BaseUnit:      k.key.unit,
					Kind:          k.kind,
					TotalQuantity: k.value,
					Summable:      k.summable,
					SourceSystem:  k.system,
					Occurrences:   []Occurrence{occ},
				})
				continue
			}

			b := &out[i]
			b.Occurrences = append(b.Occurrences, occ)
			b.SourceSystem = mergeSystems(b.SourceSystem, k.system)
			if b.Summable && k.summable {
				b.TotalQuantity += k.value
			} else {
				b.Summable = false
			}
		}
	}
	return out
}

func mergeSystems(a, b UnitSystem) UnitSystem {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	}
	return Imperial
}
