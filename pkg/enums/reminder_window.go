package enums

import "fmt"

// ReminderWindow is the daily band a vendor wants order reminders in.
type ReminderWindow string

const (
	ReminderWindowMorning ReminderWindow = "morning"
	ReminderWindowEvening ReminderWindow = "evening"
	ReminderWindowNight   ReminderWindow = "night"
)

type hourRange struct {
	start int
	end   int
}

// Bands are half-open: [start, end).
var reminderWindowHours = map[ReminderWindow]hourRange{
	ReminderWindowMorning: {start: 6, end: 8},
	ReminderWindowEvening: {start: 18, end: 20},
	ReminderWindowNight:   {start: 22, end: 23},
}

var validReminderWindows = []ReminderWindow{
	ReminderWindowMorning,
	ReminderWindowEvening,
	ReminderWindowNight,
}

// String implements fmt.Stringer.
func (w ReminderWindow) String() string {
	return string(w)
}

// IsValid reports whether the value is a known ReminderWindow.
func (w ReminderWindow) IsValid() bool {
	_, ok := reminderWindowHours[w]
	return ok
}

// Hours returns the [start, end) hour bounds of the window.
func (w ReminderWindow) Hours() (start, end int) {
	r := reminderWindowHours[w]
	return r.start, r.end
}

// Contains reports whether the given hour of day falls inside the window.
func (w ReminderWindow) Contains(hour int) bool {
	r, ok := reminderWindowHours[w]
	if !ok {
		return false
	}
	return hour >= r.start && hour < r.end
}

// ParseReminderWindow converts raw input into a ReminderWindow.
func ParseReminderWindow(value string) (ReminderWindow, error) {
	for _, candidate := range validReminderWindows {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reminder window %q", value)
}
