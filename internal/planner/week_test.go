package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		day   string
		start string
		end   string
		next  string
	}{
		{"2024-05-06", "2024-05-06", "2024-05-12", "2024-05-13"}, // Monday
		{"2024-05-08", "2024-05-06", "2024-05-12", "2024-05-13"},
		{"2024-05-12", "2024-05-06", "2024-05-12", "2024-05-13"}, // Sunday
		{"2024-12-31", "2024-12-30", "2025-01-05", "2025-01-06"},
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			d := date(t, tt.day).Add(15 * time.Hour)
			assert.Equal(t, tt.start, FormatDate(WeekStart(d)))
			assert.Equal(t, tt.end, FormatDate(WeekEnd(d)))
			assert.Equal(t, tt.next, FormatDate(NextMonday(d)))
			assert.Equal(t, 0, WeekStart(d).Hour())
		})
	}
}

func TestNormalizeMealType(t *testing.T) {
	assert.Equal(t, MealTypeDinner, NormalizeMealType(" Dinner "))
	assert.Equal(t, MealTypeSnack, NormalizeMealType("snack"))
	assert.Equal(t, MealTypeOther, NormalizeMealType("brunch"))
	assert.Equal(t, MealTypeOther, NormalizeMealType(""))
}
