package grocery

import (
	"errors"
	"fmt"
	"strings"

	units "github.com/bcicen/go-units"
)

// UnitSystem is the unit vocabulary shown to the user.
type UnitSystem string

const (
	Imperial UnitSystem = "imperial"
	Metric   UnitSystem = "metric"
)

// ErrInvalidUnitSystem is returned when a unit system other than imperial or metric is requested.
var ErrInvalidUnitSystem = errors.New("invalid unit system")

// ParseUnitSystem validates a user supplied unit system name.
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch UnitSystem(strings.ToLower(strings.TrimSpace(s))) {
	case Imperial:
		return Imperial, nil
	case Metric:
		return Metric, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnitSystem, s)
}

// UnitCategory describes how a unit participates in aggregation and display.
type UnitCategory string

const (
	UnitMass     UnitCategory = "mass"
	UnitVolume   UnitCategory = "volume"
	UnitPiece    UnitCategory = "piece"
	UnitSpice    UnitCategory = "spice"
	UnitToTaste  UnitCategory = "to-taste"
	UnitUnitless UnitCategory = "unitless"
	UnitDiscrete UnitCategory = "discrete"
)

// UnitClass is the result of classifying a free-form unit token.
type UnitClass struct {
	Category UnitCategory
	// Canonical is the singular, lowercased token used for bucketing.
	Canonical string
}

// Measurable reports whether the unit can be converted between systems.
func (c UnitClass) Measurable() bool {
	return c.Category == UnitMass || c.Category == UnitVolume
}

const (
	bucketToTaste  = "to taste"
	bucketUnitless = "unitless"
	baseMass       = "g"
	baseVolume     = "ml"
)

var pieceUnits = map[string]string{
	"piece": "piece", "pieces": "piece",
	"item": "item", "items": "item",
	"unit": "unit", "units": "unit",
	"clove": "clove", "cloves": "clove",
	"slice": "slice", "slices": "slice",
	"sprig": "sprig", "sprigs": "sprig",
	"head": "head", "heads": "head",
	"bunch": "bunch", "bunches": "bunch",
	"can": "can", "cans": "can",
	"bottle": "bottle", "bottles": "bottle",
	"package": "package", "packages": "package",
}

var spiceUnits = map[string]string{
	"tsp": "tsp", "tsps": "tsp", "teaspoon": "tsp", "teaspoons": "tsp",
	"tbsp": "tbsp", "tbsps": "tbsp", "tablespoon": "tbsp", "tablespoons": "tbsp",
	"pinch": "pinch", "pinches": "pinch",
	"dash": "dash", "dashes": "dash",
}

// nonSummable units are recognized but listed per occurrence instead of being added up.
var nonSummable = map[string]bool{
	"cup":   true,
	"pinch": true,
	"dash":  true,
}

// Measure kinds reported by the conversion library.
const (
	quantityMass   = "mass"
	quantityVolume = "volume"
)

var (
	gram       = findUnit("gram", "g")
	milliliter = findUnit("milliliter", "millilitre", "ml")
)

// Kitchen volumes are US customary. The library's imperial pints and gallons are British, so
// these are registered against milliliters instead.
var (
	usTeaspoon   = kitchenVolume("us customary teaspoon", 4.92892159375)
	usTablespoon = kitchenVolume("us customary tablespoon", 14.78676478125)
	usFluidOunce = kitchenVolume("us customary fluid ounce", 29.5735295625)
	usCup        = kitchenVolume("us customary cup", 236.5882365)
	usPint       = kitchenVolume("us customary pint", 473.176473)
	usQuart      = kitchenVolume("us customary quart", 946.352946)
	usGallon     = kitchenVolume("us customary gallon", 3785.411784)
)

type measureDef struct {
	unit   units.Unit
	system UnitSystem
}

func (d measureDef) category() UnitCategory {
	if d.unit.Quantity == quantityMass {
		return UnitMass
	}
	return UnitVolume
}

// base is the unit sums are kept in, with its bucket token: grams for mass, milliliters for volume.
func (d measureDef) base() (units.Unit, string) {
	if d.category() == UnitMass {
		return gram, baseMass
	}
	return milliliter, baseVolume
}

var measureTable = map[string]measureDef{
	"mg": {findUnit("milligram", "mg"), Metric},
	"g":  {gram, Metric},
	"kg": {findUnit("kilogram", "kg"), Metric},
	"oz": {findUnit("ounce", "oz"), Imperial},
	"lb": {findUnit("pound", "lb"), Imperial},

	"ml":    {milliliter, Metric},
	"l":     {findUnit("liter", "litre", "l"), Metric},
	"tsp":   {usTeaspoon, Imperial},
	"tbsp":  {usTablespoon, Imperial},
	"fl-oz": {usFluidOunce, Imperial},
	"cup":   {usCup, Imperial},
	"pt":    {usPint, Imperial},
	"qt":    {usQuart, Imperial},
	"gal":   {usGallon, Imperial},
}

// findUnit looks a unit up in the conversion library by the first name it knows.
func findUnit(names ...string) units.Unit {
	for _, name := range names {
		if u, err := units.Find(name); err == nil {
			return u
		}
	}
	panic(fmt.Sprintf("grocery: conversion library has no unit %q", names[0]))
}

func kitchenVolume(name string, ml float64) units.Unit {
	u := units.NewUnit(name, "", units.UnitOptionQuantity(quantityVolume))
	units.NewRatioConversion(u, milliliter, ml)
	return u
}

// convertUnit converts v between two units of the same measure.
func convertUnit(v float64, from, to units.Unit) (float64, error) {
	if from.Name == to.Name {
		return v, nil
	}
	out, err := units.ConvertFloat(v, from, to)
	if err != nil {
		return 0, fmt.Errorf("convert %s to %s: %w", from.Name, to.Name, err)
	}
	return out.Float(), nil
}

var measureAliases = map[string]string{
	"milligram": "mg", "milligrams": "mg",
	"gram": "g", "grams": "g", "gr": "g",
	"kilogram": "kg", "kilograms": "kg", "kgs": "kg",
	"ounce": "oz", "ounces": "oz",
	"pound": "lb", "pounds": "lb", "lbs": "lb",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "mls": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"fl oz": "fl-oz", "fluid oz": "fl-oz", "fluid ounce": "fl-oz", "fluid ounces": "fl-oz", "floz": "fl-oz",
	"cups": "cup", "c": "cup",
	"pint": "pt", "pints": "pt",
	"quart": "qt", "quarts": "qt",
	"gallon": "gal", "gallons": "gal",
}

func normalizeUnit(unit string) string {
	return strings.Join(strings.Fields(strings.ToLower(unit)), " ")
}

// resolveMeasure maps a unit token to its conversion table entry.
func resolveMeasure(unit string) (string, measureDef, bool) {
	u := normalizeUnit(unit)
	if alias, ok := measureAliases[u]; ok {
		u = alias
	}
	if alias, ok := spiceUnits[u]; ok {
		u = alias
	}
	def, ok := measureTable[u]
	return u, def, ok
}

// ClassifyUnit categorizes a free-form unit string. Matching is case-insensitive and trimmed.
// Piece and spice vocabularies win over the measure table, so "tsp" is a spice even though it
// is convertible as a volume.
func ClassifyUnit(unit string) UnitClass {
	u := normalizeUnit(unit)
	switch u {
	case "":
		return UnitClass{Category: UnitUnitless, Canonical: bucketUnitless}
	case bucketToTaste:
		return UnitClass{Category: UnitToTaste, Canonical: bucketToTaste}
	}
	if c, ok := pieceUnits[u]; ok {
		return UnitClass{Category: UnitPiece, Canonical: c}
	}
	if c, ok := spiceUnits[u]; ok {
		return UnitClass{Category: UnitSpice, Canonical: c}
	}
	if c, def, ok := resolveMeasure(u); ok {
		return UnitClass{Category: def.category(), Canonical: c}
	}
	return UnitClass{Category: UnitDiscrete, Canonical: u}
}

// summableClass reports whether an occurrence with this unit may contribute to a running sum.
func summableClass(c UnitClass) bool {
	switch c.Category {
	case UnitToTaste:
		return false
	}
	return !nonSummable[c.Canonical]
}
