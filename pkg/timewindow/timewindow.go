// Package timewindow evaluates calendar windows for check_time nodes.
//
// A window is four independent axes (months, days of month, days of week,
// time of day). Each axis is either the wildcard "*" or an ordered list of
// "start-end" range strings. The axes are evaluated against the current
// time in the window's timezone and combined with logical AND.
//
// The evaluator is pure and safe for concurrent use.
package timewindow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyAxis indicates an axis with no entries. Flow validation rejects
// these before a node can execute.
var ErrEmptyAxis = errors.New("time window axis has no entries")

// months maps lowercase month abbreviations to 1-12.
var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// weekDays maps lowercase weekday abbreviations to 0-6 starting Monday.
var weekDays = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

// Window is the four-axis specification plus its IANA timezone.
type Window struct {
	TimeRanges  []string
	DaysOfWeek  []string
	DaysOfMonth []string
	Months      []string
	Timezone    string
}

// Evaluate reports whether now falls inside the window. now is converted to
// the window's timezone first; every axis must pass.
func Evaluate(now time.Time, w Window) (bool, error) {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return false, fmt.Errorf("invalid timezone %q: %w", w.Timezone, err)
	}
	local := now.In(loc)

	for _, axis := range [][]string{w.Months, w.DaysOfMonth, w.DaysOfWeek, w.TimeRanges} {
		if len(axis) == 0 {
			return false, ErrEmptyAxis
		}
	}

	weekDay := strings.ToLower(local.Format("Mon"))

	ok := matchMonth(int(local.Month()), w.Months) &&
		matchMonthDay(local.Day(), w.DaysOfMonth) &&
		matchWeekDay(weekDay, w.DaysOfWeek) &&
		matchTimeOfDay(local, w.TimeRanges)
	return ok, nil
}

// matchMonth checks the month axis. The wildcard is honored only when it is
// the FIRST entry of the axis; a "*" anywhere else is an ordinary (never
// matching) range string. Ranges are inclusive and do not wrap across the
// year boundary, so start > end never matches.
func matchMonth(month int, axis []string) bool {
	if axis[0] == "*" {
		return true
	}

	for _, entry := range axis {
		start, end, ok := splitRange(entry)
		if !ok {
			continue
		}
		lo, okLo := months[strings.ToLower(start)]
		hi, okHi := months[strings.ToLower(end)]
		if okLo && okHi && withinRange(month, lo, hi) {
			return true
		}
	}

	return false
}

// matchMonthDay checks the day-of-month axis (integer ranges 1-31).
// Wildcard rule identical to matchMonth: only the first entry is checked.
func matchMonthDay(day int, axis []string) bool {
	if axis[0] == "*" {
		return true
	}

	for _, entry := range axis {
		start, end, ok := splitRange(entry)
		if !ok {
			continue
		}
		lo, errLo := strconv.Atoi(start)
		hi, errHi := strconv.Atoi(end)
		if errLo == nil && errHi == nil && withinRange(day, lo, hi) {
			return true
		}
	}

	return false
}

// matchWeekDay checks the day-of-week axis (mon..sun mapped to 0..6).
// Wildcard rule identical to matchMonth: only the first entry is checked.
func matchWeekDay(weekDay string, axis []string) bool {
	if axis[0] == "*" {
		return true
	}

	current, ok := weekDays[weekDay]
	if !ok {
		return false
	}

	for _, entry := range axis {
		start, end, splitOK := splitRange(entry)
		if !splitOK {
			continue
		}
		lo, okLo := weekDays[strings.ToLower(start)]
		hi, okHi := weekDays[strings.ToLower(end)]
		if okLo && okHi && withinRange(current, lo, hi) {
			return true
		}
	}

	return false
}

// matchTimeOfDay checks the time-of-day axis ("HH:MM" bounds). A candidate
// matches when it is STRICTLY between start and end; the boundaries
// themselves do not match, and a range crossing midnight (start > end)
// never matches. Wildcard rule identical to matchMonth.
func matchTimeOfDay(local time.Time, axis []string) bool {
	if axis[0] == "*" {
		return true
	}

	current := local.Hour()*3600 + local.Minute()*60 + local.Second()

	for _, entry := range axis {
		start, end, ok := splitRange(entry)
		if !ok {
			continue
		}
		lo, errLo := parseClock(start)
		hi, errHi := parseClock(end)
		if errLo != nil || errHi != nil {
			continue
		}
		if current > lo && current < hi {
			return true
		}
	}

	return false
}

// splitRange splits a "start-end" entry. Entries without exactly one dash
// are skipped by the axis matchers.
func splitRange(entry string) (string, string, bool) {
	parts := strings.Split(entry, "-")
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// parseClock converts "HH:MM" to seconds since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}

// withinRange reports lo <= v <= hi.
func withinRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
