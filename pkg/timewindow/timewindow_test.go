package timewindow

import (
	"testing"
	"time"
)

// mustTime builds a time in the given zone.
func mustTime(t *testing.T, zone string, year int, month time.Month, day, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(zone)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", zone, err)
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func TestEvaluate_BusinessHours(t *testing.T) {
	w := Window{
		Months:      []string{"*"},
		DaysOfWeek:  []string{"mon-fri"},
		DaysOfMonth: []string{"1-31"},
		TimeRanges:  []string{"08:00-12:00"},
		Timezone:    "UTC",
	}

	// Tuesday 2024-04-02 09:30 UTC
	tuesday := mustTime(t, "UTC", 2024, time.April, 2, 9, 30)
	ok, err := Evaluate(tuesday, w)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("expected Tuesday 09:30 to match")
	}

	// Same Tuesday at 13:00: time axis fails, AND yields false.
	afternoon := mustTime(t, "UTC", 2024, time.April, 2, 13, 0)
	ok, err = Evaluate(afternoon, w)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Error("expected Tuesday 13:00 not to match")
	}
}

func TestEvaluate_TimezoneConversion(t *testing.T) {
	w := Window{
		Months:      []string{"*"},
		DaysOfWeek:  []string{"*"},
		DaysOfMonth: []string{"*"},
		TimeRanges:  []string{"08:00-12:00"},
		Timezone:    "America/Bogota",
	}

	// 14:30 UTC is 09:30 in Bogota (UTC-5).
	now := mustTime(t, "UTC", 2024, time.April, 2, 14, 30)
	ok, err := Evaluate(now, w)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("expected 09:30 Bogota time to match")
	}
}

func TestEvaluate_InvalidTimezone(t *testing.T) {
	w := Window{
		Months:      []string{"*"},
		DaysOfWeek:  []string{"*"},
		DaysOfMonth: []string{"*"},
		TimeRanges:  []string{"*"},
		Timezone:    "Not/AZone",
	}
	if _, err := Evaluate(time.Now(), w); err == nil {
		t.Error("expected error for invalid timezone")
	}
}

func TestMatchMonthDay_MultipleRanges(t *testing.T) {
	axis := []string{"8-12", "20-25"}

	if !matchMonthDay(21, axis) {
		t.Error("day 21 should match 20-25")
	}
	if matchMonthDay(15, axis) {
		t.Error("day 15 should not match any range")
	}
	if !matchMonthDay(8, axis) {
		t.Error("range boundaries are inclusive for day-of-month")
	}
}

// The wildcard is only honored as the first entry of an axis. A "*" later
// in the list is an ordinary entry that never matches.
func TestWildcardOnlyFirstEntry(t *testing.T) {
	if !matchMonthDay(31, []string{"*", "1-2"}) {
		t.Error("leading wildcard should satisfy the axis")
	}
	if matchMonthDay(31, []string{"1-2", "*"}) {
		t.Error("non-leading wildcard must not satisfy the axis")
	}
}

func TestMatchMonth_NamesAndNoWraparound(t *testing.T) {
	if !matchMonth(3, []string{"jan-jun"}) {
		t.Error("March should match jan-jun")
	}
	if matchMonth(3, []string{"oct-feb"}) {
		t.Error("start > end ranges never match (no year wraparound)")
	}
	if matchMonth(5, []string{"bogus-jun"}) {
		t.Error("unknown month names should not match")
	}
}

func TestMatchWeekDay(t *testing.T) {
	if !matchWeekDay("wed", []string{"mon-fri"}) {
		t.Error("Wednesday should match mon-fri")
	}
	if matchWeekDay("sun", []string{"mon-fri"}) {
		t.Error("Sunday should not match mon-fri")
	}
	if !matchWeekDay("sat", []string{"mon-fri", "sat-sun"}) {
		t.Error("any entry may satisfy the axis")
	}
}

func TestMatchTimeOfDay_StrictBoundaries(t *testing.T) {
	day := func(h, m int) time.Time {
		return time.Date(2024, time.April, 2, h, m, 0, 0, time.UTC)
	}
	axis := []string{"08:00-12:00"}

	if matchTimeOfDay(day(8, 0), axis) {
		t.Error("start boundary must not match (strictly between)")
	}
	if matchTimeOfDay(day(12, 0), axis) {
		t.Error("end boundary must not match (strictly between)")
	}
	if !matchTimeOfDay(day(8, 1), axis) {
		t.Error("08:01 should match")
	}

	// Ranges crossing midnight never match under strict-between.
	if matchTimeOfDay(day(23, 0), []string{"22:00-02:00"}) {
		t.Error("midnight-crossing range must never match")
	}
}

func TestEvaluate_EmptyAxis(t *testing.T) {
	w := Window{
		Months:      []string{"*"},
		DaysOfWeek:  []string{"*"},
		DaysOfMonth: nil,
		TimeRanges:  []string{"*"},
		Timezone:    "UTC",
	}
	if _, err := Evaluate(time.Now(), w); err == nil {
		t.Error("expected error for empty axis")
	}
}
