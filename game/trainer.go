package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/neural"
	"github.com/pthm-cable/flappy/telemetry"
)

// TrainResult summarizes a training run.
type TrainResult struct {
	Generations int
	Solved      bool // the fitness threshold was reached
	Champion    neural.GenomeRecord
}

// Trainer evolves a population by flying each generation as one episode.
type Trainer struct {
	cfg     *config.Config
	opts    Options
	sprites Sprites
	pop     *neural.Population
	env     Env

	output *telemetry.OutputManager
	hall   *telemetry.HallOfFame
	store  *telemetry.ChampionStore

	// OnGeneration, if set, is called after every evaluated generation.
	OnGeneration func(telemetry.GenerationStats)
}

// NewTrainer creates a trainer. Output, hall of fame and champion store are optional.
func NewTrainer(cfg *config.Config, opts Options, sprites Sprites, pop *neural.Population, env Env) *Trainer {
	return &Trainer{
		cfg:     cfg,
		opts:    opts,
		sprites: sprites,
		pop:     pop,
		env:     env,
	}
}

// SetOutput enables CSV and JSON output.
func (t *Trainer) SetOutput(om *telemetry.OutputManager) { t.output = om }

// SetHallOfFame enables the hall of fame.
func (t *Trainer) SetHallOfFame(h *telemetry.HallOfFame) { t.hall = h }

// SetChampionStore enables per-generation champion persistence.
func (t *Trainer) SetChampionStore(s *telemetry.ChampionStore) { t.store = s }

// EpisodeCap is the number of ticks after which a bird that never dies has
// earned the fitness threshold from survival alone. It returns 0 when the
// threshold cannot be reached by surviving.
func EpisodeCap(cfg *config.Config) int {
	reward := cfg.Fitness.SurvivalReward
	threshold := cfg.Evolution.FitnessThreshold
	if reward <= 0 || threshold <= 0 {
		return 0
	}
	ticks := math.Ceil(threshold/reward) + 1
	if ticks > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ticks)
}

// Run evolves until the generation cap, the fitness threshold, or ctx is done.
// Every generation flies with a fresh pipe seed derived from the base seed.
func (t *Trainer) Run(ctx context.Context) (TrainResult, error) {
	var result TrainResult
	evo := t.cfg.Evolution
	found := false

	for i := 0; i < evo.Generations; i++ {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()

		t.pop.ResetFitness()
		candidates := make([]Candidate, 0, len(t.pop.Organisms))
		controllers := make(map[int]*neural.Controller, len(t.pop.Organisms))
		for _, o := range t.pop.Organisms {
			ctrl, err := neural.NewController(o.Genome)
			if err != nil {
				slog.Warn("skipping genome", "genome", o.ID(), "error", err)
				continue
			}
			controllers[o.ID()] = ctrl
			candidates = append(candidates, Candidate{ID: o.ID(), Decider: ctrl, Sink: o})
		}

		opts := t.opts
		opts.Seed = t.opts.Seed + int64(t.pop.Generation())
		if opts.MaxTicks == 0 {
			opts.MaxTicks = EpisodeCap(t.cfg)
		}
		res := EvaluateGeneration(ctx, t.cfg, opts, t.sprites, candidates, t.env)
		if res.Reason == ReasonCancelled || res.Reason == ReasonQuit {
			slog.Info("training interrupted", "generation", t.pop.Generation(), "reason", string(res.Reason))
			break
		}

		best := t.pop.Best()
		rec := neural.RecordOf(best)
		stats := telemetry.GenerationStats{
			Generation: t.pop.Generation(),
			Population: len(t.pop.Organisms),
			Species:    len(t.pop.Species.Species),
			Score:      res.Score,
			Ticks:      res.Ticks,
			Reason:     string(res.Reason),
			BestGenome: best.ID(),
			ElapsedMS:  time.Since(start).Milliseconds(),
		}
		if ctrl, ok := controllers[best.ID()]; ok {
			stats.BestNodes = ctrl.NodeCount()
			stats.BestLinks = ctrl.LinkCount()
		}
		values := make([]float64, len(t.pop.Organisms))
		for j, o := range t.pop.Organisms {
			values[j] = o.Fitness
		}
		telemetry.ComputeFitnessStats(values).Apply(&stats)

		t.report(stats, rec, res)
		result.Generations++
		if !found || rec.Fitness > result.Champion.Fitness {
			result.Champion, found = rec, true
		}

		if best.Fitness >= evo.FitnessThreshold {
			result.Solved = true
			slog.Info("fitness threshold reached", "generation", stats.Generation, "fitness", best.Fitness)
			break
		}
		if i == evo.Generations-1 {
			break
		}
		if err := t.pop.Epoch(); err != nil {
			return result, fmt.Errorf("epoch after generation %d: %w", stats.Generation, err)
		}
	}

	if err := t.output.WriteHallOfFame(t.hall); err != nil {
		slog.Error("failed to write hall of fame", "error", err)
	}
	if found {
		if err := t.output.WriteChampion(result.Champion); err != nil {
			slog.Error("failed to write champion", "error", err)
		}
	}
	return result, nil
}

// report hands a generation's results to every attached telemetry consumer.
func (t *Trainer) report(stats telemetry.GenerationStats, rec neural.GenomeRecord, res Result) {
	if t.OnGeneration != nil {
		t.OnGeneration(stats)
	}

	every := t.cfg.Telemetry.LogEvery
	if every < 1 || stats.Generation%every == 0 {
		stats.LogStats()
		if t.env.Perf != nil {
			slog.Debug("perf", "generation", stats.Generation, "stats", t.env.Perf.Stats())
		}
	}

	if t.hall != nil {
		t.hall.Consider(telemetry.HallEntry{Genome: rec, Score: res.Score, Ticks: res.Ticks})
	}
	if t.store != nil {
		if err := t.store.Put(rec); err != nil {
			slog.Error("failed to store champion", "generation", stats.Generation, "error", err)
		}
	}
	if err := t.output.WriteGeneration(stats); err != nil {
		slog.Error("failed to write generation", "error", err)
	}
	if t.env.Perf != nil {
		if err := t.output.WritePerf(t.env.Perf.Stats(), stats.Generation, res.Ticks); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
