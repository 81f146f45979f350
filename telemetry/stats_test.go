package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeFitnessStats(t *testing.T) {
	// Unsorted on purpose; the input must not be reordered
	values := []float64{4, 2, -0.9, 8, 6}
	sum := ComputeFitnessStats(values)

	if sum.Best != 8 {
		t.Errorf("best = %v, want 8", sum.Best)
	}
	if math.Abs(sum.Mean-3.82) > 1e-9 {
		t.Errorf("mean = %v, want 3.82", sum.Mean)
	}
	if math.Abs(sum.P50-4) > 1e-9 {
		t.Errorf("p50 = %v, want 4", sum.P50)
	}
	if sum.Std <= 0 {
		t.Errorf("std = %v, want positive", sum.Std)
	}
	if values[0] != 4 {
		t.Error("ComputeFitnessStats reordered its input")
	}

	var s GenerationStats
	sum.Apply(&s)
	if s.BestFitness != 8 || s.P50Fitness != sum.P50 {
		t.Errorf("Apply lost values: %+v", s)
	}
}

func TestComputeFitnessStatsConstant(t *testing.T) {
	sum := ComputeFitnessStats([]float64{2, 2, 2})
	if sum.Std != 0 || sum.Mean != 2 {
		t.Errorf("constant input: mean=%v std=%v", sum.Mean, sum.Std)
	}
}

func TestComputeFitnessStatsEmpty(t *testing.T) {
	if sum := ComputeFitnessStats(nil); sum != (FitnessSummary{}) {
		t.Errorf("empty input should return zeros, got %+v", sum)
	}
}
