package grocery

import (
	"fmt"
	"math"
	"strconv"

	units "github.com/bcicen/go-units"
)

// Quantity is an amount expressed in a concrete unit.
type Quantity struct {
	Value float64
	Unit  string
}

// toBase converts a measurable quantity into grams or milliliters. Non-measurable units report false.
func toBase(value float64, unit string) (float64, string, bool) {
	if c := ClassifyUnit(unit); !c.Measurable() {
		return 0, "", false
	}
	_, def, ok := resolveMeasure(unit)
	if !ok {
		return 0, "", false
	}
	base, token := def.base()
	v, err := convertUnit(value, def.unit, base)
	if err != nil {
		return 0, "", false
	}
	return v, token, true
}

// unitSystemOf reports which system a measurable unit belongs to.
func unitSystemOf(unit string) (UnitSystem, bool) {
	_, def, ok := resolveMeasure(unit)
	if !ok {
		return "", false
	}
	return def.system, true
}

// Convert expresses a mass or volume quantity in the target system. Piece, spice, discrete and
// to-taste units are never converted and yield a nil Quantity. Units already in the target system
// are returned as-is, except that metric values are magnitude normalized (1500 g -> 1.5 kg).
func Convert(value float64, fromUnit string, to UnitSystem) (*Quantity, error) {
	if to != Imperial && to != Metric {
		return nil, fmt.Errorf("convert to %q: %w", to, ErrInvalidUnitSystem)
	}
	if !ClassifyUnit(fromUnit).Measurable() {
		return nil, nil
	}
	canonical, def, ok := resolveMeasure(fromUnit)
	if !ok {
		return nil, nil
	}
	if def.system == Imperial && to == Imperial {
		return &Quantity{Value: value, Unit: canonical}, nil
	}

	baseUnit, _ := def.base()
	base, err := convertUnit(value, def.unit, baseUnit)
	if err != nil {
		return nil, err
	}
	var q Quantity
	if to == Metric {
		q, err = normalizeMetric(base, def.category())
	} else {
		q, err = bestImperial(base, def.category())
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// express converts a base amount into the unit keyed by canonical in the measure table.
func express(base float64, from units.Unit, canonical string) (Quantity, error) {
	v, err := convertUnit(base, from, measureTable[canonical].unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: v, Unit: canonical}, nil
}

// normalizeMetric picks g/kg or ml/L for a base value.
func normalizeMetric(base float64, category UnitCategory) (Quantity, error) {
	if category == UnitMass {
		if base >= 1000 {
			return express(base, gram, "kg")
		}
		return Quantity{Value: base, Unit: "g"}, nil
	}
	if base >= 1000 {
		q, err := express(base, milliliter, "l")
		q.Unit = "L"
		return q, err
	}
	return Quantity{Value: base, Unit: "ml"}, nil
}

// bestImperial picks the largest sensible imperial unit for a base value. Volumes only use cups
// for whole cups; anything else reads as fluid ounces so summed amounts never show as 1.5 cups.
func bestImperial(base float64, category UnitCategory) (Quantity, error) {
	if category == UnitMass {
		oz, err := express(base, gram, "oz")
		if err != nil || oz.Value < 16 {
			return oz, err
		}
		return express(base, gram, "lb")
	}

	for _, canonical := range []string{"gal", "cup", "fl-oz", "tbsp"} {
		q, err := express(base, milliliter, canonical)
		if err != nil {
			return Quantity{}, err
		}
		if q.Value < 1 || (canonical == "cup" && !isWhole(q.Value)) {
			continue
		}
		return q, nil
	}
	return express(base, milliliter, "tsp")
}

func isWhole(v float64) bool {
	return math.Abs(v-math.Round(v)) < 1e-6
}

// RoundForDisplay keeps whole numbers whole and rounds everything else to one decimal place.
func RoundForDisplay(v float64) float64 {
	if v == math.Trunc(v) {
		return v
	}
	return math.Round(v*10) / 10
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
