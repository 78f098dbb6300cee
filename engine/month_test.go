package engine

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "2025-02" {
		t.Errorf("round trip: got %s", m)
	}

	for _, bad := range []string{"", "2025", "2025-13", "02-2025", "2025/02", "garbage"} {
		if _, err := ParseMonth(bad); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("ParseMonth(%q): expected ErrInvalidMonth, got %v", bad, err)
		}
	}
}

func TestMonthDays(t *testing.T) {
	m := NewMonth(2025, time.February)
	if got := m.FirstDay(); !got.Equal(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("FirstDay = %v", got)
	}
	if got := m.LastDay(); !got.Equal(time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LastDay = %v", got)
	}

	// Leap year
	leap := NewMonth(2024, time.February)
	if got := leap.LastDay().Day(); got != 29 {
		t.Errorf("leap February last day = %d", got)
	}
}

func TestMonthRange(t *testing.T) {
	from := NewMonth(2024, time.November)
	to := NewMonth(2025, time.February)

	months, err := MonthRange(from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-11", "2024-12", "2025-01", "2025-02"}
	if len(months) != len(want) {
		t.Fatalf("expected %d months, got %d", len(want), len(months))
	}
	for i, m := range months {
		if m.String() != want[i] {
			t.Errorf("month %d: got %s, want %s", i, m, want[i])
		}
	}

	if _, err := MonthRange(to, from); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("inverted range: expected ErrInvalidPeriod, got %v", err)
	}
	if _, err := MonthRange(Month{}, to); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("zero start: expected ErrInvalidPeriod, got %v", err)
	}
}
