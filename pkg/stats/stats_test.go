package stats

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	if got := Mean([]float64{50, 52, 48, 51, 49}); got != 50 {
		t.Errorf("Expected mean 50, got %v", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Expected mean 0 for empty input, got %v", got)
	}
}

func TestStdDev_EqualValues(t *testing.T) {
	if got := StdDev([]float64{42, 42, 42, 42}); got != 0 {
		t.Errorf("Expected stddev 0 for equal values, got %v", got)
	}
}

func TestStdDev_NeverNegative(t *testing.T) {
	inputs := [][]float64{
		{1, 2, 3, 4, 5},
		{-10, 10},
		{0.1, 0.2, 0.3},
		{100},
		{},
	}
	for _, in := range inputs {
		if got := StdDev(in); got < 0 {
			t.Errorf("StdDev(%v) = %v, want >= 0", in, got)
		}
	}
}

func TestStdDev_Population(t *testing.T) {
	// Population stddev of [2, 4] is 1 (divide by N, not N-1).
	if got := StdDev([]float64{2, 4}); got != 1 {
		t.Errorf("Expected population stddev 1, got %v", got)
	}
}

func TestStdDev_FewerThanTwoSamples(t *testing.T) {
	if got := StdDev([]float64{7.5}); got != 0 {
		t.Errorf("Expected 0 for a single sample, got %v", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(12.345, 2); got != 12.35 {
		t.Errorf("Expected 12.35, got %v", got)
	}
	if got := Round(12.34, 1); got != 12.3 {
		t.Errorf("Expected 12.3, got %v", got)
	}
	if got := Round(-0.04, 1); got != -0.0 && got != 0.0 {
		t.Errorf("Expected 0, got %v", got)
	}
	if math.IsNaN(Round(1.0, 0)) {
		t.Error("Round produced NaN")
	}
}
