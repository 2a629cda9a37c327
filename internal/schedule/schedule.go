// Package schedule expands recurring broadcast rules into concrete
// occurrences.
package schedule

import (
	"fmt"
	"iter"
	"time"

	"aircheck/internal/models"
)

// Validate checks every rule for internal consistency: a non-inverted
// date window, at least one hour, and hours within 0–23.
func Validate(rules []models.ScheduleRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("no schedule rules configured")
	}
	for i, rule := range rules {
		if rule.End.Before(rule.Start) {
			return fmt.Errorf("rule %d: end %s precedes start %s",
				i+1, rule.End.Format("2006-01-02"), rule.Start.Format("2006-01-02"))
		}
		if len(rule.Hours) == 0 {
			return fmt.Errorf("rule %d: no hours configured", i+1)
		}
		for _, h := range rule.Hours {
			if h < 0 || h > 23 {
				return fmt.Errorf("rule %d: hour %d out of range", i+1, h)
			}
		}
	}
	return nil
}

// Expand yields one occurrence per date in each rule's window whose
// weekday matches the rule, in rule order then chronological order
// within a rule. When startAfter is non-zero, dates before it are
// filtered out. Overlapping rules are not merged: each yields its own
// occurrences. The sequence is restartable and has no side effects.
func Expand(rules []models.ScheduleRule, startAfter time.Time) iter.Seq[models.Occurrence] {
	return func(yield func(models.Occurrence) bool) {
		for _, rule := range rules {
			for d := rule.Start; !d.After(rule.End); d = d.AddDate(0, 0, 1) {
				if d.Weekday() != rule.Weekday {
					continue
				}
				if !startAfter.IsZero() && d.Before(startAfter) {
					continue
				}
				if !yield(models.Occurrence{Date: d, Hours: rule.Hours}) {
					return
				}
			}
		}
	}
}

// Collect materializes the expansion into a slice, in emission order.
func Collect(rules []models.ScheduleRule, startAfter time.Time) []models.Occurrence {
	var out []models.Occurrence
	for occ := range Expand(rules, startAfter) {
		out = append(out, occ)
	}
	return out
}
