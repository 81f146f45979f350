package main

import (
	"context"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
)

// accumulator is the fitness sink for a single tuned pilot.
type accumulator struct {
	fitness float64
}

func (a *accumulator) Reward(delta float64)   { a.fitness += delta }
func (a *accumulator) Penalize(delta float64) { a.fitness -= delta }

// seedResult holds the outcome of one flight.
type seedResult struct {
	fitness float64
	ticks   int
	score   int
}

// Evaluation summarizes one point of the search across all seeds.
type Evaluation struct {
	Fitness   float64 // mean survival fitness, higher is better
	MeanTicks float64
	MeanScore float64
	BestScore int
}

// FitnessEvaluator flies a candidate network headless over a fixed seed set.
type FitnessEvaluator struct {
	ctx     context.Context
	cfg     *config.Config
	opts    game.Options
	sprites game.Sprites
	space   WeightSpace
	seeds   []int64

	mu          sync.Mutex
	bestFitness float64
	bestParams  []float64
	last        Evaluation
}

// NewFitnessEvaluator creates an evaluator. opts.MaxTicks caps each flight.
func NewFitnessEvaluator(ctx context.Context, cfg *config.Config, opts game.Options, sprites game.Sprites, space WeightSpace, seeds []int64) *FitnessEvaluator {
	return &FitnessEvaluator{
		ctx:         ctx,
		cfg:         cfg,
		opts:        opts,
		sprites:     sprites,
		space:       space,
		seeds:       seeds,
		bestFitness: math.Inf(-1),
	}
}

// Best returns the best clamped weights seen so far and their fitness.
func (fe *FitnessEvaluator) Best() ([]float64, float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestParams, fe.bestFitness
}

// Last returns the most recent evaluation.
func (fe *FitnessEvaluator) Last() Evaluation {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate flies x once per seed in parallel and returns the mean fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) Evaluation {
	params := fe.space.Clamp(x)
	results := make([]seedResult, len(fe.seeds))

	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.fly(params, s)
		}(i, seed)
	}
	wg.Wait()

	fitness := make([]float64, len(results))
	ticks := make([]float64, len(results))
	scores := make([]float64, len(results))
	ev := Evaluation{}
	for i, r := range results {
		fitness[i] = r.fitness
		ticks[i] = float64(r.ticks)
		scores[i] = float64(r.score)
		ev.BestScore = max(ev.BestScore, r.score)
	}
	ev.Fitness = stat.Mean(fitness, nil)
	ev.MeanTicks = stat.Mean(ticks, nil)
	ev.MeanScore = stat.Mean(scores, nil)

	fe.mu.Lock()
	if ev.Fitness > fe.bestFitness {
		fe.bestFitness = ev.Fitness
		fe.bestParams = params
	}
	fe.last = ev
	fe.mu.Unlock()

	return ev
}

// fly runs a single-bird AI episode for one seed.
func (fe *FitnessEvaluator) fly(params []float64, seed int64) seedResult {
	nn, err := fe.space.Network(params)
	if err != nil {
		return seedResult{fitness: math.Inf(-1)}
	}
	opts := fe.opts
	opts.Seed = seed

	acc := &accumulator{}
	res := game.EvaluateGeneration(fe.ctx, fe.cfg, opts, fe.sprites,
		[]game.Candidate{{ID: 0, Decider: nn, Sink: acc}}, game.Env{})
	return seedResult{fitness: acc.fitness, ticks: res.Ticks, score: res.Score}
}
