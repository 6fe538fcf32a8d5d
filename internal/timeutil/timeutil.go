package timeutil

import (
	"fmt"
	"time"
)

// Badge sentinel strings shown when no countdown applies
const (
	BadgeBlocked = "Blocked"
	BadgeDayOff  = "Day Off"
)

// Clock represents a duration split into hours, minutes and seconds
type Clock struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// SecondsToClock converts a second count into a Clock. Negative input
// clamps to all-zero.
func SecondsToClock(seconds int) Clock {
	if seconds < 0 {
		seconds = 0
	}
	return Clock{
		Hours:   seconds / 3600,
		Minutes: (seconds % 3600) / 60,
		Seconds: seconds % 60,
	}
}

// FormatRemaining formats a second count as "H:MM:SS", or "M:SS" when
// under an hour. Negative input formats as "0:00".
func FormatRemaining(seconds int) string {
	c := SecondsToClock(seconds)
	if c.Hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
	}
	return fmt.Sprintf("%d:%02d", c.Minutes, c.Seconds)
}

// BadgeText returns the badge label for a budget's state: the formatted
// remaining time while some allowance is left, "Blocked" once it is
// spent, and "Day Off" when the whole day is off.
func BadgeText(remainingSeconds int, dayOff bool) string {
	if dayOff {
		return BadgeDayOff
	}
	if remainingSeconds <= 0 {
		return BadgeBlocked
	}
	return FormatRemaining(remainingSeconds)
}

// MondayIndex converts Go's Sunday-first weekday to the Monday-first
// 0..6 index used by schedule arrays.
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// DayIndex returns the Monday-first weekday index for t.
func DayIndex(t time.Time) int {
	return MondayIndex(t.Weekday())
}

// MinutesSinceMidnight returns t's clock time in minutes, 0..1439.
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// WithinWindow reports whether now (minutes since midnight) falls in
// the [start, end) window. A window with end < start crosses midnight,
// so containment is now >= start OR now < end.
func WithinWindow(start, end, now int) bool {
	if end < start {
		return now >= start || now < end
	}
	return now >= start && now < end
}

// DateKey formats t as the ISO calendar date used to index daily state.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
