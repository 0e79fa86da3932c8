package grocery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Ingredient is a single normalized ingredient line attached to a meal.
type Ingredient struct {
	Name string `json:"name"`
	// Quantity is nil for non-quantified ("to taste" or bare) ingredients.
	Quantity    *float64 `json:"quantity"`
	Unit        string   `json:"unit"`
	Description string   `json:"description,omitempty"`
}

// IsToTaste reports whether the ingredient carries no meaningful amount.
func (i Ingredient) IsToTaste() bool {
	if strings.EqualFold(strings.TrimSpace(i.Description), bucketToTaste) {
		return true
	}
	return ClassifyUnit(i.Unit).Category == UnitToTaste
}

// PlannedMeal is one meal-plan entry with its decoded ingredient list.
type PlannedMeal struct {
	MealName    string
	MealType    string
	PlanDate    string
	Ingredients []Ingredient
}

// Drop reasons reported to a Recorder.
const (
	DropMissingName     = "missing_name"
	DropInvalidQuantity = "invalid_quantity"
	DropMalformedRecord = "malformed_record"
)

// Recorder receives data-quality signals from the parser.
type Recorder interface {
	MalformedBlob()
	DroppedRecord(reason string)
}

type nopRecorder struct{}

func (nopRecorder) MalformedBlob()       {}
func (nopRecorder) DroppedRecord(string) {}

// Parser decodes stored ingredient blobs. It never fails: bad data is logged and skipped.
type Parser struct {
	log      *zap.Logger
	recorder Recorder
}

// NewParser creates a Parser. A nil logger or recorder is replaced by a no-op.
func NewParser(log *zap.Logger, recorder Recorder) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Parser{log: log, recorder: recorder}
}

type rawRecord struct {
	Name        any             `json:"name"`
	Quantity    json.RawMessage `json:"quantity"`
	Unit        any             `json:"unit"`
	Description any             `json:"description"`
}

// Parse decodes a JSON array of {name, quantity, unit, description} records. A nil or blank blob
// yields no ingredients. A blob that is not an array yields no ingredients and a warning. Single
// records without a name or with a non-numeric quantity are dropped.
func (p *Parser) Parse(mealName string, blob *string) []Ingredient {
	if blob == nil || strings.TrimSpace(*blob) == "" {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(*blob), &elems); err != nil {
		p.recorder.MalformedBlob()
		p.log.Warn("Skipping malformed ingredient data", zap.String("meal", mealName), zap.Error(err))
		return nil
	}

	out := make([]Ingredient, 0, len(elems))
	for _, elem := range elems {
		ing, reason := decodeRecord(elem)
		if reason != "" {
			p.recorder.DroppedRecord(reason)
			p.log.Debug("Dropping ingredient record",
				zap.String("meal", mealName),
				zap.String("name", ing.Name),
				zap.String("reason", reason))
			continue
		}
		out = append(out, ing)
	}
	return out
}

func decodeRecord(elem json.RawMessage) (Ingredient, string) {
	var raw rawRecord
	if err := json.Unmarshal(elem, &raw); err != nil {
		return Ingredient{}, DropMalformedRecord
	}

	ing := Ingredient{
		Name:        strings.TrimSpace(stringField(raw.Name)),
		Unit:        strings.TrimSpace(stringField(raw.Unit)),
		Description: strings.TrimSpace(stringField(raw.Description)),
	}
	if ing.Name == "" {
		return ing, DropMissingName
	}

	q, err := parseQuantity(raw.Quantity)
	if err != nil {
		return ing, DropInvalidQuantity
	}
	ing.Quantity = q
	return ing, ""
}

func stringField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

// leadingFloat matches the longest numeric prefix, the way lenient float parsing reads "2 cups".
var leadingFloat = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// parseQuantity accepts a JSON number, a numeric-like string, null or an absent field.
func parseQuantity(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return &num, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("quantity is neither number nor string: %s", raw)
	}
	return parseQuantityText(s)
}

// parseQuantityText reads the numeric prefix of s. Blank text means no quantity.
func parseQuantityText(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	m := leadingFloat.FindString(s)
	if m == "" {
		return nil, fmt.Errorf("quantity %q is not numeric", s)
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return &v, nil
}

// Float is a convenience for building Ingredient values.
func Float(v float64) *float64 {
	return &v
}
