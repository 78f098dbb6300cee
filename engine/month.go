package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Competence month (the calendar month a claim is attributed to)
// =============================================================================

// Month is a calendar month in the proleptic Gregorian calendar, used as the
// grouping key for every aggregate. The zero value is "no month".
type Month struct {
	year  int
	month time.Month
}

// NewMonth builds a month from its parts.
func NewMonth(year int, month time.Month) Month {
	return Month{year: year, month: month}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{year: t.Year(), month: t.Month()}
}

// ParseMonth parses the wire format "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

func (m Month) IsZero() bool { return m.year == 0 && m.month == 0 }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.year, int(m.month))
}

// FirstDay returns the first day of the month at UTC midnight.
func (m Month) FirstDay() time.Time {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last day of the month at UTC midnight.
func (m Month) LastDay() time.Time {
	return m.FirstDay().AddDate(0, 1, -1)
}

func (m Month) Next() Month { return MonthOf(m.FirstDay().AddDate(0, 1, 0)) }

// Comparison
func (m Month) Before(other Month) bool {
	if m.year != other.year {
		return m.year < other.year
	}
	return m.month < other.month
}
func (m Month) After(other Month) bool { return other.Before(m) }
func (m Month) Equal(other Month) bool { return m == other }

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool { return MonthOf(t) == m }

// MonthRange returns every month from 'from' to 'to', inclusive.
// Returns ErrInvalidPeriod when 'to' precedes 'from'.
func MonthRange(from, to Month) ([]Month, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, ErrInvalidPeriod
	}
	var months []Month
	for m := from; !m.After(to); m = m.Next() {
		months = append(months, m)
	}
	return months, nil
}
