package schedule

import (
	"reflect"
	"testing"
	"time"

	"aircheck/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpandEmitsMatchingWeekdaysOnly(t *testing.T) {
	rules := []models.ScheduleRule{{
		Start:   date(2024, time.January, 1),
		End:     date(2024, time.January, 31),
		Weekday: time.Monday,
		Hours:   []int{22, 23, 0},
	}}

	got := Collect(rules, time.Time{})

	want := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 8),
		date(2024, time.January, 15),
		date(2024, time.January, 22),
		date(2024, time.January, 29),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(got))
	}
	for i, occ := range got {
		if !occ.Date.Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, want[i], occ.Date)
		}
		if occ.Date.Weekday() != time.Monday {
			t.Fatalf("occurrence %d: weekday %s is not Monday", i, occ.Date.Weekday())
		}
		if !reflect.DeepEqual(occ.Hours, []int{22, 23, 0}) {
			t.Fatalf("occurrence %d: unexpected hours %v", i, occ.Hours)
		}
	}
}

func TestExpandWindowIsInclusive(t *testing.T) {
	// Both endpoints are Mondays.
	rules := []models.ScheduleRule{{
		Start:   date(2024, time.January, 1),
		End:     date(2024, time.January, 8),
		Weekday: time.Monday,
		Hours:   []int{22},
	}}

	got := Collect(rules, time.Time{})
	if len(got) != 2 {
		t.Fatalf("expected both boundary Mondays, got %d occurrences", len(got))
	}
}

func TestExpandStartAfterFiltersEarlierDates(t *testing.T) {
	rules := []models.ScheduleRule{{
		Start:   date(2024, time.January, 1),
		End:     date(2024, time.January, 31),
		Weekday: time.Monday,
		Hours:   []int{22},
	}}

	got := Collect(rules, date(2024, time.January, 15))

	if len(got) != 3 {
		t.Fatalf("expected 3 occurrences from Jan 15, got %d", len(got))
	}
	for _, occ := range got {
		if occ.Date.Before(date(2024, time.January, 15)) {
			t.Fatalf("occurrence %s precedes the startAfter bound", occ.Date)
		}
	}
	if !got[0].Date.Equal(date(2024, time.January, 15)) {
		t.Fatalf("startAfter bound should be inclusive, first occurrence is %s", got[0].Date)
	}
}

func TestExpandKeepsRuleOrderAndDoesNotMerge(t *testing.T) {
	overlapping := models.ScheduleRule{
		Start:   date(2024, time.January, 1),
		End:     date(2024, time.January, 7),
		Weekday: time.Monday,
		Hours:   []int{22},
	}
	rules := []models.ScheduleRule{overlapping, overlapping}

	got := Collect(rules, time.Time{})
	if len(got) != 2 {
		t.Fatalf("overlapping rules must each emit their own occurrence, got %d", len(got))
	}
}

func TestExpandIsRestartable(t *testing.T) {
	rules := []models.ScheduleRule{{
		Start:   date(2024, time.January, 1),
		End:     date(2024, time.January, 31),
		Weekday: time.Wednesday,
		Hours:   []int{22, 23},
	}}

	seq := Expand(rules, time.Time{})
	var first, second []models.Occurrence
	for occ := range seq {
		first = append(first, occ)
	}
	for occ := range seq {
		second = append(second, occ)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two iterations differ:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestValidate(t *testing.T) {
	valid := models.ScheduleRule{
		Start:   date(2024, time.January, 1),
		End:     date(2024, time.January, 31),
		Weekday: time.Monday,
		Hours:   []int{22, 23, 0},
	}

	if err := Validate([]models.ScheduleRule{valid}); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}
	if err := Validate(nil); err == nil {
		t.Fatalf("expected error for empty rule list")
	}

	inverted := valid
	inverted.Start, inverted.End = inverted.End, inverted.Start
	if err := Validate([]models.ScheduleRule{inverted}); err == nil {
		t.Fatalf("expected error for inverted window")
	}

	noHours := valid
	noHours.Hours = nil
	if err := Validate([]models.ScheduleRule{noHours}); err == nil {
		t.Fatalf("expected error for empty hours")
	}

	badHour := valid
	badHour.Hours = []int{24}
	if err := Validate([]models.ScheduleRule{badHour}); err == nil {
		t.Fatalf("expected error for out-of-range hour")
	}
}
