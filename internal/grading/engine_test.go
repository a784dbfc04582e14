package grading

import (
	"errors"
	"strings"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		submitted string
		key       string
		want      float64
	}{
		{name: "three of four in first band", submitted: "ABXD", key: "ABCD", want: 3.3},
		{name: "empty sheet", submitted: "", key: "", want: 0},
		{name: "case sensitive", submitted: "abcd", key: "ABCD", want: 0},
		{name: "first band full", submitted: strings.Repeat("A", 45), key: strings.Repeat("A", 45), want: 49.5},
		{name: "two bands full", submitted: strings.Repeat("B", 75), key: strings.Repeat("B", 75), want: 142.5},
		{name: "all bands full", submitted: strings.Repeat("C", 90), key: strings.Repeat("C", 90), want: 174},
		{name: "only index 45", submitted: strings.Repeat("X", 45) + "D", key: strings.Repeat("A", 45) + "D", want: 3.1},
		{name: "only index 75", submitted: strings.Repeat("X", 75) + "DXXXX", key: strings.Repeat("A", 75) + "DAAAA", want: 2.1},
		{name: "multibyte characters", submitted: "АБ", key: "АБ", want: 2.2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score(tc.submitted, tc.key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Score(%q, %q) = %v, want %v", tc.submitted, tc.key, got, tc.want)
			}
		})
	}
}

func TestScore_LengthMismatch(t *testing.T) {
	for _, sub := range []string{"ABC", "ABCDE", ""} {
		if _, err := Score(sub, "ABCD"); !errors.Is(err, ErrLengthMismatch) {
			t.Fatalf("Score(%q): expected ErrLengthMismatch, got %v", sub, err)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	key := strings.Repeat("ABCD", 25)
	sub := strings.Repeat("ABDC", 25)
	first, err := Score(sub, key)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := Score(sub, key)
		if again != first {
			t.Fatalf("run %d: got %v, first run %v", i, again, first)
		}
	}
}

func TestMaxScore(t *testing.T) {
	cases := map[int]float64{0: 0, 4: 4.4, 50: 65, 90: 174}
	for n, want := range cases {
		if got := MaxScore(n); got != want {
			t.Errorf("MaxScore(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestPositionalGrader_Options(t *testing.T) {
	g := NewPositionalGrader(WithSchedule(Schedule{{Until: 2, Weight: 1}, {Until: 0, Weight: 5}}))
	got, err := g.Score("AAAB", "AAAA")
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Fatalf("custom schedule: got %v, want 7", got)
	}

	whole := NewPositionalGrader(WithPrecision(0))
	got, _ = whole.Score("AAA", "AAA")
	if got != 3 {
		t.Fatalf("precision 0: got %v, want 3", got)
	}
}

func TestSchedule_WeightAt(t *testing.T) {
	for i, want := range map[int]float64{0: 1.1, 44: 1.1, 45: 3.1, 74: 3.1, 75: 2.1, 500: 2.1} {
		if got := DefaultSchedule.WeightAt(i); got != want {
			t.Errorf("WeightAt(%d) = %v, want %v", i, got, want)
		}
	}
	bounded := Schedule{{Until: 1, Weight: 2}}
	if got := bounded.WeightAt(3); got != 0 {
		t.Errorf("past the last bounded band: got %v, want 0", got)
	}
}
