package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats holds aggregated statistics for one evaluated generation.
type GenerationStats struct {
	Generation int `csv:"generation"`
	Population int `csv:"population"`
	Species    int `csv:"species"`

	// Fitness distribution
	BestFitness float64 `csv:"best_fitness"`
	MeanFitness float64 `csv:"mean_fitness"`
	StdFitness  float64 `csv:"std_fitness"`
	P10Fitness  float64 `csv:"p10_fitness"`
	P50Fitness  float64 `csv:"p50_fitness"`
	P90Fitness  float64 `csv:"p90_fitness"`

	// Episode outcome
	Score  int    `csv:"score"`
	Ticks  int    `csv:"ticks"`
	Reason string `csv:"reason"`

	// Champion
	BestGenome int `csv:"best_genome"`
	BestNodes  int `csv:"best_nodes"`
	BestLinks  int `csv:"best_links"`

	ElapsedMS int64 `csv:"elapsed_ms"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// FitnessSummary holds the distribution of a generation's fitness values.
type FitnessSummary struct {
	Best, Mean, Std, P10, P50, P90 float64
}

// ComputeFitnessStats calculates the fitness distribution. Std is the
// population standard deviation.
func ComputeFitnessStats(values []float64) FitnessSummary {
	if len(values) == 0 {
		return FitnessSummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, variance := stat.PopMeanVariance(sorted, nil)
	return FitnessSummary{
		Best: sorted[len(sorted)-1],
		Mean: mean,
		Std:  math.Sqrt(variance),
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

// Apply copies the summary into the stats record.
func (f FitnessSummary) Apply(s *GenerationStats) {
	s.BestFitness = f.Best
	s.MeanFitness = f.Mean
	s.StdFitness = f.Std
	s.P10Fitness = f.P10
	s.P50Fitness = f.P50
	s.P90Fitness = f.P90
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("population", s.Population),
		slog.Int("species", s.Species),
		slog.Float64("best_fitness", s.BestFitness),
		slog.Float64("mean_fitness", s.MeanFitness),
		slog.Float64("std_fitness", s.StdFitness),
		slog.Float64("p50_fitness", s.P50Fitness),
		slog.Int("score", s.Score),
		slog.Int("ticks", s.Ticks),
		slog.String("reason", s.Reason),
		slog.Int("best_genome", s.BestGenome),
		slog.Int64("elapsed_ms", s.ElapsedMS),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("generation",
		"generation", s.Generation,
		"population", s.Population,
		"species", s.Species,
		"best_fitness", s.BestFitness,
		"mean_fitness", s.MeanFitness,
		"p90_fitness", s.P90Fitness,
		"score", s.Score,
		"ticks", s.Ticks,
		"reason", s.Reason,
		"best_nodes", s.BestNodes,
		"best_links", s.BestLinks,
	)
}
