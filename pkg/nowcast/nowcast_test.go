package nowcast

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/aircast/aircast/pkg/series"
	"github.com/aircast/aircast/pkg/stats"
)

func snapshotOf(values ...float64) series.Snapshot {
	snap := make(series.Snapshot, len(values))
	for i, v := range values {
		snap[i] = series.Reading{
			Timestamp: fmt.Sprintf("2025-01-%02dT%02d:00:00Z", 1+i/24, i%24),
			Value:     v,
		}
	}
	return snap
}

func TestEstimate_Empty(t *testing.T) {
	_, err := Estimate(nil)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
}

func TestEstimate_Band(t *testing.T) {
	// Mean 3, population stddev sqrt(2) ≈ 1.414.
	band, err := Estimate(snapshotOf(1, 2, 3, 4, 5))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if band.Mean != 3.0 {
		t.Errorf("Expected mean 3.0, got %v", band.Mean)
	}
	if band.Low != 1.6 {
		t.Errorf("Expected low 1.6, got %v", band.Low)
	}
	if band.High != 4.4 {
		t.Errorf("Expected high 4.4, got %v", band.High)
	}
	if band.Samples != 5 {
		t.Errorf("Expected 5 samples, got %d", band.Samples)
	}
}

func TestEstimate_LowClampedAtZero(t *testing.T) {
	band, err := Estimate(snapshotOf(0.5, 10, 0.5, 10))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if band.Low < 0 {
		t.Errorf("Low must never be negative, got %v", band.Low)
	}
	if band.High < band.Low {
		t.Errorf("High %v < Low %v", band.High, band.Low)
	}
}

func TestEstimate_UsesLast24Only(t *testing.T) {
	// 30 old readings at 100, then 24 recent at 10: only the tail counts.
	values := make([]float64, 0, 54)
	for i := 0; i < 30; i++ {
		values = append(values, 100)
	}
	for i := 0; i < 24; i++ {
		values = append(values, 10)
	}

	band, err := Estimate(snapshotOf(values...))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if band.Samples != 24 {
		t.Errorf("Expected 24 samples, got %d", band.Samples)
	}
	if band.Mean != 10.0 {
		t.Errorf("Expected mean 10.0 over the recent window, got %v", band.Mean)
	}
}

func TestEstimate_SingleSample(t *testing.T) {
	// No minimum-sample floor: one reading gives a zero-width band.
	band, err := Estimate(snapshotOf(42.0))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if band.Samples != 1 {
		t.Errorf("Expected 1 sample, got %d", band.Samples)
	}
	if band.Low != 42.0 || band.High != 42.0 {
		t.Errorf("Expected degenerate band at 42.0, got [%v, %v]", band.Low, band.High)
	}
}

func TestEstimate_Rounding(t *testing.T) {
	band, err := Estimate(snapshotOf(1.11, 2.22, 3.33))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	for _, v := range []float64{band.Mean, band.Low, band.High} {
		if math.Abs(v-stats.Round(v, 1)) > 1e-9 {
			t.Errorf("Value %v not rounded to one decimal place", v)
		}
	}
}
