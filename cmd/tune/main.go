// Package main tunes a fixed-topology pilot network with CMA-ES, as a
// baseline for the NEAT trainer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/flappy/assets"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/neural"
)

// evalRow is one line of tune_log.csv.
type evalRow struct {
	Eval      int     `csv:"eval"`
	Fitness   float64 `csv:"fitness"`
	MeanTicks float64 `csv:"mean_ticks"`
	MeanScore float64 `csv:"mean_score"`
	BestScore int     `csv:"best_score"`
	Best      float64 `csv:"best_fitness"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	variant := flag.String("variant", "ai", "Variant preset to fly")
	hidden := flag.Int("hidden", 4, "Hidden units in the pilot network")
	bound := flag.Float64("bound", 5, "Absolute bound on every weight")
	maxTicks := flag.Int("max-ticks", 5000, "Tick cap per flight")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 300, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	stepSize := flag.Float64("step", 0.5, "Initial CMA-ES step size")
	seed := flag.Int64("seed", 1, "Seed for the starting point")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()

	opts, err := game.OptionsFromConfig(cfg, *variant)
	if err != nil {
		log.Fatalf("variant: %v", err)
	}
	opts.MaxTicks = *maxTicks

	bundle, err := assets.Load(cfg)
	if err != nil {
		log.Fatalf("failed to load assets: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	space := WeightSpace{Hidden: *hidden, Bound: *bound}
	evaluator := NewFitnessEvaluator(ctx, cfg, opts, bundle, space, evalSeeds)
	dim := space.Dim()
	initX := space.Initial(rand.New(rand.NewSource(*seed)))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	headerWritten := false

	evalCount := 0
	startTime := time.Now()

	// optimize minimizes, so the problem is the negated fitness.
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			ev := evaluator.Evaluate(x)
			evalCount++

			_, best := evaluator.Best()
			row := []evalRow{{
				Eval:      evalCount,
				Fitness:   ev.Fitness,
				MeanTicks: ev.MeanTicks,
				MeanScore: ev.MeanScore,
				BestScore: ev.BestScore,
				Best:      best,
			}}
			var werr error
			if !headerWritten {
				werr = gocsv.Marshal(row, logFile)
				headerWritten = true
			} else {
				werr = gocsv.MarshalWithoutHeaders(row, logFile)
			}
			if werr != nil {
				log.Printf("failed to write log row: %v", werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			fmt.Printf("Eval %d/%d: fitness=%.1f ticks=%.0f score=%.1f (best=%.1f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, ev.Fitness, ev.MeanTicks, ev.MeanScore, best,
				formatDuration(elapsed), formatDuration(remaining))

			return -ev.Fitness
		},
		Status: func() (optimize.Status, error) {
			if ctx.Err() != nil {
				return optimize.Failure, ctx.Err()
			}
			return optimize.NotTerminated, nil
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0,
	}
	method := &optimize.CmaEsChol{
		InitStepSize: *stepSize,
		Population:   popSize,
	}

	fmt.Printf("Starting CMA-ES with %d weights (hidden=%d), population=%d, max_evals=%d\n",
		dim, *hidden, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, tick cap per flight: %d\n", *seeds, *maxTicks)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	bestParams, bestFitness := evaluator.Best()
	if bestParams == nil && result != nil {
		bestParams = space.Clamp(result.X)
		bestFitness = -result.F
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.1f\n", bestFitness)
	if bestParams == nil {
		return
	}

	weightsPath := filepath.Join(*outputDir, "best_weights.json")
	err = neural.WriteWeights(weightsPath, neural.WeightsRecord{
		Hidden:  *hidden,
		Bound:   *bound,
		Fitness: bestFitness,
		Seeds:   evalSeeds,
		Params:  bestParams,
	})
	if err != nil {
		log.Fatalf("failed to save weights: %v", err)
	}
	fmt.Printf("Best weights saved to: %s\n", weightsPath)
}
