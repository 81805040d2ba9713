package models

import "time"

// Weekday codes follow the portal convention: Monday=2 .. Saturday=7 and
// Sunday=8, so range checks over a week stay monotonic.
const (
	WeekdayMonday = 2
	WeekdaySunday = 8
)

// SessionsPerDay is the institution's fixed daily period grid.
const SessionsPerDay = 16

// Session shift boundaries (6 morning, 6 afternoon, 4 evening periods).
const (
	ShiftMorning   = "MORNING"
	ShiftAfternoon = "AFTERNOON"
	ShiftEvening   = "EVENING"

	lastMorningSession   = 6
	lastAfternoonSession = 12
)

// Occurrence is one recurring weekly class meeting: every <Weekday> between
// StartDate and EndDate, sessions SessionStart..SessionEnd inclusive.
// Occurrences are immutable once parsed.
type Occurrence struct {
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Weekday      int       `json:"weekday"`
	SessionStart int       `json:"session_start"`
	SessionEnd   int       `json:"session_end"`
	Location     string    `json:"location,omitempty"`
}

// Valid reports whether the occurrence satisfies the structural invariants.
func (o Occurrence) Valid() bool {
	if o.Weekday < WeekdayMonday || o.Weekday > WeekdaySunday {
		return false
	}
	if o.SessionStart < 1 || o.SessionEnd > SessionsPerDay || o.SessionStart > o.SessionEnd {
		return false
	}
	return !o.StartDate.After(o.EndDate)
}

// Covers reports whether the occurrence claims the given date and session.
func (o Occurrence) Covers(date time.Time, session int) bool {
	if session < o.SessionStart || session > o.SessionEnd {
		return false
	}
	if WeekdayCode(date) != o.Weekday {
		return false
	}
	return !date.Before(o.StartDate) && !date.After(o.EndDate)
}

// Length is the number of consecutive sessions the occurrence spans.
func (o Occurrence) Length() int {
	return o.SessionEnd - o.SessionStart + 1
}

// WeekdayCode maps a calendar date onto the portal weekday encoding.
func WeekdayCode(date time.Time) int {
	if date.Weekday() == time.Sunday {
		return WeekdaySunday
	}
	return int(date.Weekday()) + 1
}

// SessionShift classifies a 1-based session index into the day shift used by
// the planner's part-of-day preferences.
func SessionShift(session int) string {
	switch {
	case session <= lastMorningSession:
		return ShiftMorning
	case session <= lastAfternoonSession:
		return ShiftAfternoon
	default:
		return ShiftEvening
	}
}
