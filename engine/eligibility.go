/*
eligibility.go - Eligibility window resolution

PURPOSE:
  Answers "which enrollment record governed this person on this date?" from
  a historical, possibly overlapping set of validity windows (vigencias).

RESOLUTION RULE:
  1. Keep records whose start date is on or before the reference date
  2. Among those, the latest start date wins
  3. Ties on start date go to the highest internal id (most recently
     created record wins, keeping the choice deterministic)

MONTH-ACTIVITY RULE:
  A resolved record counts as active for a reference month when either
  - it has no exclusion date and its normalized status is Active, or
  - its exclusion date is on or after the last day of the month.
  Excluded on the month's first day, or mid-month, means inactive for that
  month; excluded on the month's last day or later still counts the whole
  month. A future-dated exclusion therefore keeps the person active until
  the month it falls in.
*/
package engine

import "time"

// Resolve returns the enrollment record effective at asOf, or nil when the
// person had no enrollment starting on or before that date. The returned
// record is a copy; the input slice is never mutated.
func Resolve(records []EnrollmentRecord, asOf time.Time) *EnrollmentRecord {
	var best *EnrollmentRecord
	for i := range records {
		r := &records[i]
		if r.StartDate.After(asOf) {
			continue
		}
		if best == nil {
			best = r
			continue
		}
		switch {
		case r.StartDate.After(best.StartDate):
			best = r
		case r.StartDate.Equal(best.StartDate) && r.ID > best.ID:
			best = r
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// ActiveForMonth reports whether the record counts as active for the whole
// reference month. See the month-activity rule in the file header.
func (r *EnrollmentRecord) ActiveForMonth(m Month) bool {
	if r.Exclusion == nil {
		return r.Status == EnrollmentActive
	}
	return !r.Exclusion.Before(m.LastDay())
}
