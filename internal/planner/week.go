package planner

import "time"

// DateLayout is the calendar-day format stored in meal_plans.plan_date.
const DateLayout = "2006-01-02"

// FormatDate renders the calendar day of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate reads a calendar day in the local time zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return Day(t).AddDate(0, 0, -offset)
}

// WeekEnd returns the Sunday of the week containing t.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 6)
}

// NextMonday returns the Monday after the week containing t.
func NextMonday(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 7)
}
