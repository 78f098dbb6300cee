package engine

import "testing"

func intp(v int) *int { return &v }

func TestBracketForAge(t *testing.T) {
	cases := []struct {
		name string
		age  *int
		want AgeBracket
	}{
		{"unknown age", nil, Bracket00to18},
		{"newborn", intp(0), Bracket00to18},
		{"upper edge of minor bracket", intp(18), Bracket00to18},
		{"lower edge of first adult bracket", intp(19), Bracket19to23},
		{"mid bracket", intp(25), Bracket24to28},
		{"bracket boundary 33/34", intp(33), Bracket29to33},
		{"bracket boundary 34", intp(34), Bracket34to38},
		{"upper edge of last closed bracket", intp(58), Bracket54to58},
		{"lower edge of open bracket", intp(59), Bracket59plus},
		{"well past the open edge", intp(97), Bracket59plus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BracketForAge(tc.age); got != tc.want {
				t.Errorf("BracketForAge(%v) = %s, want %s", tc.age, got, tc.want)
			}
		})
	}
}

func TestAgeBracketsAreSortedAndComplete(t *testing.T) {
	if len(AgeBrackets) != 10 {
		t.Fatalf("expected 10 brackets, got %d", len(AgeBrackets))
	}
	for i := 1; i < len(AgeBrackets); i++ {
		if !(AgeBrackets[i-1] < AgeBrackets[i]) {
			t.Errorf("brackets not in ascending lexical order: %s before %s",
				AgeBrackets[i-1], AgeBrackets[i])
		}
	}
}
